package repository

import (
	"errors"
	"learnhub/internal/model"
	"learnhub/internal/util"
	"sync"
	"time"

	"gorm.io/gorm"
)

// UserStore 用户注册表
type UserStore interface {
	// Save 按 ID 覆盖写入
	Save(user *model.User) error
	FindByID(id string) (*model.User, error)
}

var (
	_ UserStore = (*UserRepository)(nil)
	_ UserStore = (*MemoryUserRepository)(nil)
)

// UserRepository 基于 gorm 的用户存储
type UserRepository struct {
	DB *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{DB: db}
}

func (r *UserRepository) Save(user *model.User) error {
	now := time.Now()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now
	return r.DB.Save(user).Error
}

func (r *UserRepository) FindByID(id string) (*model.User, error) {
	var user model.User
	err := r.DB.First(&user, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// MemoryUserRepository 进程内用户存储
type MemoryUserRepository struct {
	mu    sync.RWMutex
	users map[string]model.User
}

func NewMemoryUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{users: make(map[string]model.User)}
}

func (r *MemoryUserRepository) Save(user *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[user.ID] = *user
	return nil
}

func (r *MemoryUserRepository) FindByID(id string) (*model.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	user, ok := r.users[id]
	if !ok {
		return nil, util.ErrUserNotFound
	}
	return &user, nil
}
