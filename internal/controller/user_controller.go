package controller

import (
	"errors"
	"learnhub/internal/service"
	"learnhub/internal/util"
	"strconv"

	"github.com/gin-gonic/gin"
)

// UserController 处理用户注册、查询与课程推荐
type UserController struct {
	UserService           *service.UserService
	RecommendationService *service.RecommendationService
}

func NewUserController(userService *service.UserService, recommendationService *service.RecommendationService) *UserController {
	return &UserController{
		UserService:           userService,
		RecommendationService: recommendationService,
	}
}

// RegisterRequest 用户注册请求
// swagger:model RegisterRequest
type RegisterRequest struct {
	UserID        string `json:"user_id" binding:"required"`
	Interests     string `json:"interests" binding:"required"`
	LearningStyle string `json:"learning_style" binding:"required"`
}

// Register godoc
// @Summary 注册用户
// @Description 注册或覆盖用户信息，重新注册会清空学习进度
// @Tags 用户
// @Accept json
// @Produce json
// @Param request body RegisterRequest true "用户信息"
// @Success 200 {object} util.Response "注册成功"
// @Failure 400 {object} util.Response "缺少必填字段"
// @Failure 500 {object} util.Response "服务器内部错误"
// @Router /users [post]
func (c *UserController) Register(ctx *gin.Context) {
	var req RegisterRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, "Missing required fields")
		return
	}

	user, err := c.UserService.Register(ctx.Request.Context(), req.UserID, req.Interests, req.LearningStyle)
	if errors.Is(err, util.ErrMissingFields) {
		util.BadRequest(ctx, "Missing required fields")
		return
	}
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}

	util.SuccessWithMessage(ctx, "User registered successfully", gin.H{"user": user})
}

// GetUser godoc
// @Summary 获取用户
// @Tags 用户
// @Produce json
// @Param id path string true "用户ID"
// @Success 200 {object} util.Response{data=model.User} "成功"
// @Failure 404 {object} util.Response "用户不存在"
// @Router /users/{id} [get]
func (c *UserController) GetUser(ctx *gin.Context) {
	user, err := c.UserService.Lookup(ctx.Param("id"))
	if errors.Is(err, util.ErrUserNotFound) {
		util.NotFound(ctx, "User not found")
		return
	}
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, user)
}

// GetRecommendations godoc
// @Summary 课程推荐
// @Description 按兴趣与课程描述的相似度推荐课程，未注册用户返回空列表
// @Tags 用户
// @Produce json
// @Param id path string true "用户ID"
// @Param top_n query int false "返回数量"
// @Success 200 {object} util.Response{data=[]model.Recommendation} "成功"
// @Failure 400 {object} util.Response "参数错误"
// @Router /users/{id}/recommendations [get]
func (c *UserController) GetRecommendations(ctx *gin.Context) {
	topN := 0
	if raw := ctx.Query("top_n"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			util.BadRequest(ctx, "top_n must be a positive integer")
			return
		}
		topN = n
	}

	recs, err := c.RecommendationService.Recommend(ctx.Request.Context(), ctx.Param("id"), topN)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"recommendations": recs})
}
