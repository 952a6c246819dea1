package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/SNU-Hackathon/Doany-sub004/internal/service"
	pkgerrors "github.com/SNU-Hackathon/Doany-sub004/pkg/errors"
	"github.com/SNU-Hackathon/Doany-sub004/pkg/response"
)

// Handler 所有 Handler 的聚合入口
type Handler struct {
	Goal        *GoalHandler
	Schedule    *ScheduleHandler
	Quest       *QuestHandler
	Achievement *AchievementHandler
	Export      *ExportHandler
}

// NewHandler 创建 Handler 聚合
func NewHandler(svc *service.Service) *Handler {
	return &Handler{
		Goal:        NewGoalHandler(svc.Goal),
		Schedule:    NewScheduleHandler(svc.Schedule),
		Quest:       NewQuestHandler(svc.Quest),
		Achievement: NewAchievementHandler(svc.Achievement),
		Export:      NewExportHandler(svc.Export),
	}
}

// ── 错误码 ──
//
//	10001 参数绑定失败
//	10409 版本冲突
//	20xxx 目标  21xxx 日程  22xxx 事件  23xxx 任务  24xxx 达成率  25xxx 导出
const (
	codeBadRequest = 10001
	codeConflict   = 10409
)

// handleCommonError 处理各模块共有的错误，已写入响应时返回 true
func handleCommonError(c *gin.Context, err error) bool {
	if ve, ok := pkgerrors.AsValidation(err); ok {
		response.ValidationFailed(c, codeBadRequest, ve.Reasons)
		return true
	}
	switch {
	case errors.Is(err, pkgerrors.ErrOptimisticLock):
		response.Conflict(c, codeConflict, err.Error())
	case errors.Is(err, service.ErrGoalNotFound):
		response.NotFound(c, 20001, "目标不存在")
	case errors.Is(err, service.ErrGoalNoPeriod):
		response.Unprocessable(c, 21001, "目标没有设置周期")
	case errors.Is(err, service.ErrDateOutOfPeriod):
		response.BadRequest(c, 21002, "日期不在目标周期内")
	default:
		return false
	}
	return true
}

// bindFailed 绑定失败时返回逐字段原因，请求体超限时返回 413
func bindFailed(c *gin.Context, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		response.Error(c, http.StatusRequestEntityTooLarge, 10005, "请求体过大")
		return
	}
	response.ValidationFailed(c, codeBadRequest, bindingReasons(err))
}
