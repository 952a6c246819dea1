package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/SNU-Hackathon/Doany-sub004/internal/dto"
	"github.com/SNU-Hackathon/Doany-sub004/internal/service"
	"github.com/SNU-Hackathon/Doany-sub004/pkg/response"
)

// AchievementHandler 达成率与验证事件 HTTP 处理器
type AchievementHandler struct {
	achievementSvc service.AchievementService
}

// NewAchievementHandler 创建 AchievementHandler
func NewAchievementHandler(achievementSvc service.AchievementService) *AchievementHandler {
	return &AchievementHandler{achievementSvc: achievementSvc}
}

// GetAchievement 目标达成率
// GET /api/v1/goals/:id/achievement
func (h *AchievementHandler) GetAchievement(c *gin.Context) {
	resp, err := h.achievementSvc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleAchievementError(c, err)
		return
	}
	response.OK(c, resp)
}

// RecordVerification 记录一次验证结果
// POST /api/v1/goals/:id/verifications
func (h *AchievementHandler) RecordVerification(c *gin.Context) {
	var req dto.RecordVerificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err)
		return
	}

	resp, err := h.achievementSvc.RecordVerification(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		handleAchievementError(c, err)
		return
	}
	response.Created(c, resp)
}

// ListVerifications 验证事件列表
// GET /api/v1/goals/:id/verifications?from=&to=&page=&page_size=
func (h *AchievementHandler) ListVerifications(c *gin.Context) {
	var req dto.VerificationListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		bindFailed(c, err)
		return
	}

	list, total, err := h.achievementSvc.ListVerifications(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		handleAchievementError(c, err)
		return
	}
	response.OKPage(c, list, total, req.GetPage(), req.GetPageSize())
}

func handleAchievementError(c *gin.Context, err error) {
	if handleCommonError(c, err) {
		return
	}
	switch {
	case errors.Is(err, service.ErrQuestNotFound):
		response.NotFound(c, 24001, "任务不存在")
	case errors.Is(err, service.ErrQuestGoalMismatch):
		response.BadRequest(c, 24002, "任务不属于该目标")
	default:
		response.InternalError(c)
	}
}
