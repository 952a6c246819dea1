package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/SNU-Hackathon/Doany-sub004/internal/dto"
	"github.com/SNU-Hackathon/Doany-sub004/internal/service"
	"github.com/SNU-Hackathon/Doany-sub004/pkg/response"
)

// QuestHandler 任务模块 HTTP 处理器
type QuestHandler struct {
	questSvc service.QuestService
}

// NewQuestHandler 创建 QuestHandler
func NewQuestHandler(questSvc service.QuestService) *QuestHandler {
	return &QuestHandler{questSvc: questSvc}
}

// ListQuests 目标下的任务
// GET /api/v1/goals/:id/quests?status=&from=&to=
func (h *QuestHandler) ListQuests(c *gin.Context) {
	var req dto.QuestListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		bindFailed(c, err)
		return
	}

	quests, err := h.questSvc.List(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		handleQuestError(c, err)
		return
	}
	response.OK(c, gin.H{"list": quests})
}

// SyncQuests 按当前日程重新同步未来任务
// POST /api/v1/goals/:id/quests/sync
func (h *QuestHandler) SyncQuests(c *gin.Context) {
	result, err := h.questSvc.Sync(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleQuestError(c, err)
		return
	}
	response.OK(c, result)
}

// UpdateStatus 上报任务状态
// PUT /api/v1/quests/:id/status
func (h *QuestHandler) UpdateStatus(c *gin.Context) {
	var req dto.UpdateQuestStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err)
		return
	}

	quest, err := h.questSvc.UpdateStatus(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		handleQuestError(c, err)
		return
	}
	response.OK(c, quest)
}

func handleQuestError(c *gin.Context, err error) {
	if handleCommonError(c, err) {
		return
	}
	switch {
	case errors.Is(err, service.ErrQuestNotFound):
		response.NotFound(c, 23001, "任务不存在")
	default:
		response.InternalError(c)
	}
}
