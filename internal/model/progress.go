package model

// swagger:model CourseProgress
type CourseProgress struct {
	UserID          string           `gorm:"primaryKey;size:64" json:"user_id"`
	CourseID        uint             `gorm:"primaryKey;autoIncrement:false" json:"course_id"`
	Modules         map[uint]float64 `gorm:"serializer:json;type:text" json:"modules"`
	OverallProgress float64          `gorm:"default:0" json:"overall_progress"`
	Timestamps
}

func (CourseProgress) TableName() string {
	return "course_progress"
}

// Recompute 根据完整的模块完成表重新计算总进度，只统计属于课程的模块
func (p *CourseProgress) Recompute(course *Course) {
	if course == nil || len(course.Modules) == 0 {
		p.OverallProgress = 0
		return
	}

	completed := 0
	for _, m := range course.Modules {
		if p.Modules[m.ID] == 100 {
			completed++
		}
	}
	p.OverallProgress = float64(completed) / float64(len(course.Modules)) * 100
}

// Clone 深拷贝
func (p CourseProgress) Clone() CourseProgress {
	out := p
	out.Modules = make(map[uint]float64, len(p.Modules))
	for k, v := range p.Modules {
		out.Modules[k] = v
	}
	return out
}
