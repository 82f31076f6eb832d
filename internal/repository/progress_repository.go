package repository

import (
	"errors"
	"learnhub/internal/model"
	"learnhub/internal/util"
	"sort"
	"sync"
	"time"

	"gorm.io/gorm"
)

// ProgressStore 按 (用户, 课程) 保存进度记录
type ProgressStore interface {
	Find(userID string, courseID uint) (*model.CourseProgress, error)
	FindByUser(userID string) ([]model.CourseProgress, error)
	Save(progress *model.CourseProgress) error
	DeleteByUser(userID string) error
}

var (
	_ ProgressStore = (*ProgressRepository)(nil)
	_ ProgressStore = (*MemoryProgressRepository)(nil)
)

// ProgressRepository 基于 gorm 的进度存储
type ProgressRepository struct {
	DB *gorm.DB
}

func NewProgressRepository(db *gorm.DB) *ProgressRepository {
	return &ProgressRepository{DB: db}
}

func (r *ProgressRepository) Find(userID string, courseID uint) (*model.CourseProgress, error) {
	var p model.CourseProgress
	err := r.DB.Where("user_id = ? AND course_id = ?", userID, courseID).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrProgressNotFound
	}
	if err != nil {
		return nil, err
	}
	if p.Modules == nil {
		p.Modules = make(map[uint]float64)
	}
	return &p, nil
}

func (r *ProgressRepository) FindByUser(userID string) ([]model.CourseProgress, error) {
	var list []model.CourseProgress
	err := r.DB.Where("user_id = ?", userID).Order("course_id ASC").Find(&list).Error
	return list, err
}

func (r *ProgressRepository) Save(progress *model.CourseProgress) error {
	now := time.Now()
	if progress.CreatedAt.IsZero() {
		progress.CreatedAt = now
	}
	progress.UpdatedAt = now
	return r.DB.Save(progress).Error
}

func (r *ProgressRepository) DeleteByUser(userID string) error {
	return r.DB.Where("user_id = ?", userID).Delete(&model.CourseProgress{}).Error
}

type progressKey struct {
	userID   string
	courseID uint
}

// MemoryProgressRepository 进程内进度存储
type MemoryProgressRepository struct {
	mu      sync.RWMutex
	records map[progressKey]model.CourseProgress
}

func NewMemoryProgressRepository() *MemoryProgressRepository {
	return &MemoryProgressRepository{records: make(map[progressKey]model.CourseProgress)}
}

func (r *MemoryProgressRepository) Find(userID string, courseID uint) (*model.CourseProgress, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.records[progressKey{userID, courseID}]
	if !ok {
		return nil, util.ErrProgressNotFound
	}
	cp := p.Clone()
	return &cp, nil
}

func (r *MemoryProgressRepository) FindByUser(userID string) ([]model.CourseProgress, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var list []model.CourseProgress
	for k, p := range r.records {
		if k.userID == userID {
			list = append(list, p.Clone())
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].CourseID < list[j].CourseID })
	return list, nil
}

func (r *MemoryProgressRepository) Save(progress *model.CourseProgress) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records[progressKey{progress.UserID, progress.CourseID}] = progress.Clone()
	return nil
}

func (r *MemoryProgressRepository) DeleteByUser(userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for k := range r.records {
		if k.userID == userID {
			delete(r.records, k)
		}
	}
	return nil
}
