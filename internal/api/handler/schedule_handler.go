package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/SNU-Hackathon/Doany-sub004/internal/dto"
	"github.com/SNU-Hackathon/Doany-sub004/internal/service"
	"github.com/SNU-Hackathon/Doany-sub004/pkg/response"
)

// ScheduleHandler 日程与日历事件 HTTP 处理器
type ScheduleHandler struct {
	scheduleSvc service.ScheduleService
	// fetchICS 按 URL 获取 ICS，测试中替换
	fetchICS func(url string) (io.ReadCloser, error)
}

// NewScheduleHandler 创建 ScheduleHandler
func NewScheduleHandler(scheduleSvc service.ScheduleService) *ScheduleHandler {
	return &ScheduleHandler{
		scheduleSvc: scheduleSvc,
		fetchICS:    service.FetchICSContent,
	}
}

// GetSchedule 物化后的日程
// GET /api/v1/goals/:id/schedule
func (h *ScheduleHandler) GetSchedule(c *gin.Context) {
	resp, err := h.scheduleSvc.GetSchedule(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleScheduleError(c, err)
		return
	}
	response.OK(c, resp)
}

// UpdateSchedule 整体替换日程定义
// PUT /api/v1/goals/:id/schedule
func (h *ScheduleHandler) UpdateSchedule(c *gin.Context) {
	var req dto.UpdateScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err)
		return
	}

	resp, err := h.scheduleSvc.UpdateSchedule(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		handleScheduleError(c, err)
		return
	}
	response.OK(c, resp)
}

// ToggleDate 切换单日
// POST /api/v1/goals/:id/schedule/toggle
func (h *ScheduleHandler) ToggleDate(c *gin.Context) {
	var req dto.ToggleDateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err)
		return
	}

	resp, err := h.scheduleSvc.ToggleDate(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		handleScheduleError(c, err)
		return
	}
	response.OK(c, resp)
}

// ApplyRange 批量开启 / 关闭
// POST /api/v1/goals/:id/schedule/ranges
func (h *ScheduleHandler) ApplyRange(c *gin.Context) {
	var req dto.ApplyRangeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err)
		return
	}

	resp, err := h.scheduleSvc.ApplyRange(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		handleScheduleError(c, err)
		return
	}
	response.OK(c, resp)
}

// Preview 未保存定义的预览，校验失败也返回 200 与原因列表
// POST /api/v1/schedule/preview
func (h *ScheduleHandler) Preview(c *gin.Context) {
	var req dto.PreviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err)
		return
	}

	resp, err := h.scheduleSvc.Preview(c.Request.Context(), &req)
	if err != nil {
		handleScheduleError(c, err)
		return
	}
	response.OK(c, resp)
}

// ── 日历事件 ──

// ListEvents 每周镜像与覆盖事件
// GET /api/v1/goals/:id/events?from=&to=
func (h *ScheduleHandler) ListEvents(c *gin.Context) {
	var req dto.EventListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		bindFailed(c, err)
		return
	}

	events, err := h.scheduleSvc.ListEvents(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		handleScheduleError(c, err)
		return
	}
	response.OK(c, gin.H{"list": events})
}

// CreateEvent 新增覆盖事件
// POST /api/v1/goals/:id/events
func (h *ScheduleHandler) CreateEvent(c *gin.Context) {
	var req dto.CreateEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err)
		return
	}

	event, err := h.scheduleSvc.CreateEvent(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		handleScheduleError(c, err)
		return
	}
	response.Created(c, event)
}

// DeleteEvent 删除覆盖事件
// DELETE /api/v1/goals/:id/events/:eventId
func (h *ScheduleHandler) DeleteEvent(c *gin.Context) {
	if err := h.scheduleSvc.DeleteEvent(c.Request.Context(), c.Param("id"), c.Param("eventId")); err != nil {
		handleScheduleError(c, err)
		return
	}
	response.OK(c, nil)
}

// ImportICS 从 iCalendar 导入覆盖事件
// POST /api/v1/goals/:id/events/import
//
// 支持两种方式：
//   - 文件上传: multipart/form-data, field="file"
//   - URL 导入: application/json, body={"url": "..."}
func (h *ScheduleHandler) ImportICS(c *gin.Context) {
	goalID := c.Param("id")

	file, _, err := c.Request.FormFile("file")
	if err == nil {
		defer file.Close()
		resp, err := h.scheduleSvc.ImportICS(c.Request.Context(), goalID, file)
		if err != nil {
			handleScheduleError(c, err)
			return
		}
		response.Created(c, resp)
		return
	}

	var req dto.ImportICSRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		req.URL = c.PostForm("url")
		if req.URL == "" {
			response.BadRequest(c, 22003, "请上传 ICS 文件或提供 ICS URL")
			return
		}
	}

	body, err := h.fetchICS(req.URL)
	if err != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest, 22004, "ICS URL 获取失败", err.Error())
		return
	}
	defer body.Close()

	resp, err := h.scheduleSvc.ImportICS(c.Request.Context(), goalID, body)
	if err != nil {
		handleScheduleError(c, err)
		return
	}
	response.Created(c, resp)
}

func handleScheduleError(c *gin.Context, err error) {
	if handleCommonError(c, err) {
		return
	}
	switch {
	case errors.Is(err, service.ErrEventNotFound):
		response.NotFound(c, 22001, "日历事件不存在")
	case errors.Is(err, service.ErrEventReadOnly):
		response.Unprocessable(c, 22002, "每周模式派生的事件只读，请修改每周设置")
	case errors.Is(err, service.ErrICSParse):
		response.ErrorWithDetails(c, http.StatusBadRequest, 22005, "ICS 文件格式错误", err.Error())
	default:
		response.InternalError(c)
	}
}
