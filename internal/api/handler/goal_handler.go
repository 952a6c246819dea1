package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/SNU-Hackathon/Doany-sub004/internal/dto"
	"github.com/SNU-Hackathon/Doany-sub004/internal/service"
	"github.com/SNU-Hackathon/Doany-sub004/pkg/response"
)

// GoalHandler 目标模块 HTTP 处理器
type GoalHandler struct {
	goalSvc service.GoalService
}

// NewGoalHandler 创建 GoalHandler
func NewGoalHandler(goalSvc service.GoalService) *GoalHandler {
	return &GoalHandler{goalSvc: goalSvc}
}

// CreateGoal 创建目标并生成首批任务
// POST /api/v1/goals
func (h *GoalHandler) CreateGoal(c *gin.Context) {
	var req dto.CreateGoalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err)
		return
	}

	resp, err := h.goalSvc.Create(c.Request.Context(), &req)
	if err != nil {
		handleGoalError(c, err)
		return
	}
	response.Created(c, resp)
}

// ListGoals 目标列表
// GET /api/v1/goals?owner_id=&goal_type=&page=&page_size=
func (h *GoalHandler) ListGoals(c *gin.Context) {
	var req dto.GoalListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		bindFailed(c, err)
		return
	}

	goals, total, err := h.goalSvc.List(c.Request.Context(), &req)
	if err != nil {
		handleGoalError(c, err)
		return
	}
	response.OKPage(c, goals, total, req.GetPage(), req.GetPageSize())
}

// GetGoal 目标详情
// GET /api/v1/goals/:id
func (h *GoalHandler) GetGoal(c *gin.Context) {
	goal, err := h.goalSvc.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleGoalError(c, err)
		return
	}
	response.OK(c, goal)
}

// UpdateGoal 修改目标基本信息
// PATCH /api/v1/goals/:id
func (h *GoalHandler) UpdateGoal(c *gin.Context) {
	var req dto.UpdateGoalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err)
		return
	}

	goal, err := h.goalSvc.Update(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		handleGoalError(c, err)
		return
	}
	response.OK(c, goal)
}

// DeleteGoal 删除目标
// DELETE /api/v1/goals/:id
func (h *GoalHandler) DeleteGoal(c *gin.Context) {
	if err := h.goalSvc.Delete(c.Request.Context(), c.Param("id")); err != nil {
		handleGoalError(c, err)
		return
	}
	response.OK(c, nil)
}

func handleGoalError(c *gin.Context, err error) {
	if handleCommonError(c, err) {
		return
	}
	response.InternalError(c)
}
