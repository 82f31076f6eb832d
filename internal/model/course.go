package model

// CourseModule 课程中的一个学习单元，Duration 单位为分钟
type CourseModule struct {
	ID       uint   `json:"id" yaml:"id"`
	Title    string `json:"title" yaml:"title"`
	Duration int    `json:"duration" yaml:"duration"`
}

// Course 课程目录中的一门课程，目录初始化后不再修改
type Course struct {
	ID          uint           `json:"id" yaml:"id"`
	Name        string         `json:"name" yaml:"name"`
	Description string         `json:"description" yaml:"description"`
	Difficulty  string         `json:"difficulty" yaml:"difficulty"`
	Topics      []string       `json:"topics" yaml:"topics"`
	Modules     []CourseModule `json:"modules" yaml:"modules"`
}

// HasModule 判断模块是否属于该课程
func (c *Course) HasModule(moduleID uint) bool {
	for _, m := range c.Modules {
		if m.ID == moduleID {
			return true
		}
	}
	return false
}

// Clone 深拷贝，避免调用方修改目录中的数据
func (c Course) Clone() Course {
	out := c
	out.Topics = append([]string(nil), c.Topics...)
	out.Modules = append([]CourseModule(nil), c.Modules...)
	return out
}

// swagger:model Recommendation
type Recommendation struct {
	Course
	Score    float64 `json:"score"`
	Progress float64 `json:"progress"`
}
