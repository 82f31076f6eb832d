package controller

import (
	"errors"
	"learnhub/internal/service"
	"learnhub/internal/util"
	"strconv"

	"github.com/gin-gonic/gin"
)

type CourseController struct {
	CourseService *service.CourseService
}

func NewCourseController(courseService *service.CourseService) *CourseController {
	return &CourseController{CourseService: courseService}
}

// ListCourses godoc
// @Summary 课程目录
// @Tags 课程
// @Produce json
// @Success 200 {object} util.Response{data=[]model.Course} "成功"
// @Router /courses [get]
func (c *CourseController) ListCourses(ctx *gin.Context) {
	util.Success(ctx, gin.H{"courses": c.CourseService.List()})
}

// GetCourse godoc
// @Summary 课程详情
// @Tags 课程
// @Produce json
// @Param id path int true "课程ID"
// @Success 200 {object} util.Response{data=model.Course} "成功"
// @Failure 400 {object} util.Response "参数错误"
// @Failure 404 {object} util.Response "课程不存在"
// @Router /courses/{id} [get]
func (c *CourseController) GetCourse(ctx *gin.Context) {
	id, err := strconv.ParseUint(ctx.Param("id"), 10, 32)
	if err != nil {
		util.BadRequest(ctx, "Invalid course id")
		return
	}

	course, err := c.CourseService.Get(uint(id))
	if errors.Is(err, util.ErrCourseNotFound) {
		util.NotFound(ctx, "Course not found")
		return
	}
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, course)
}
