package model

import (
	"time"
)

// Timestamps 持久化记录的创建/更新时间
type Timestamps struct {
	CreatedAt time.Time `json:"-"`
	UpdatedAt time.Time `json:"-"`
}
