package controller

import (
	"errors"
	"learnhub/internal/service"
	"learnhub/internal/util"
	"strconv"

	"github.com/gin-gonic/gin"
)

type ProgressController struct {
	ProgressService *service.ProgressService
}

func NewProgressController(progressService *service.ProgressService) *ProgressController {
	return &ProgressController{ProgressService: progressService}
}

// UpdateProgressRequest 模块进度更新请求，progress 取值 0-100
// swagger:model UpdateProgressRequest
type UpdateProgressRequest struct {
	CourseID *uint    `json:"course_id" binding:"required"`
	ModuleID *uint    `json:"module_id" binding:"required"`
	Progress *float64 `json:"progress" binding:"required"`
}

// UpdateProgress godoc
// @Summary 更新模块进度
// @Tags 学习进度
// @Accept json
// @Produce json
// @Param id path string true "用户ID"
// @Param request body UpdateProgressRequest true "进度"
// @Success 200 {object} util.Response{data=model.CourseProgress} "成功"
// @Failure 400 {object} util.Response "参数错误"
// @Failure 404 {object} util.Response "用户不存在"
// @Router /users/{id}/progress [post]
func (c *ProgressController) UpdateProgress(ctx *gin.Context) {
	var req UpdateProgressRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, "Missing required fields")
		return
	}

	progress, err := c.ProgressService.SetModuleProgress(ctx.Request.Context(), ctx.Param("id"), *req.CourseID, *req.ModuleID, *req.Progress)
	switch {
	case errors.Is(err, util.ErrInvalidProgress):
		util.BadRequest(ctx, err.Error())
		return
	case errors.Is(err, util.ErrMissingFields):
		util.BadRequest(ctx, "Missing required fields")
		return
	case errors.Is(err, util.ErrUserNotFound):
		util.NotFound(ctx, "User not found")
		return
	case err != nil:
		util.LogInternalError(ctx, err)
		return
	}

	util.SuccessWithMessage(ctx, "Progress updated successfully", gin.H{"progress": progress})
}

// ListProgress godoc
// @Summary 用户全部课程进度
// @Tags 学习进度
// @Produce json
// @Param id path string true "用户ID"
// @Success 200 {object} util.Response{data=[]model.CourseProgress} "成功"
// @Router /users/{id}/progress [get]
func (c *ProgressController) ListProgress(ctx *gin.Context) {
	list, err := c.ProgressService.ListProgress(ctx.Param("id"))
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"progress": list})
}

// GetCourseProgress godoc
// @Summary 单门课程进度
// @Description 没有记录时返回总进度 0
// @Tags 学习进度
// @Produce json
// @Param id path string true "用户ID"
// @Param course_id path int true "课程ID"
// @Success 200 {object} util.Response{data=model.CourseProgress} "成功"
// @Failure 400 {object} util.Response "参数错误"
// @Router /users/{id}/progress/{course_id} [get]
func (c *ProgressController) GetCourseProgress(ctx *gin.Context) {
	courseID, err := strconv.ParseUint(ctx.Param("course_id"), 10, 32)
	if err != nil {
		util.BadRequest(ctx, "Invalid course id")
		return
	}

	progress, _, err := c.ProgressService.GetProgress(ctx.Param("id"), uint(courseID))
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, progress)
}
