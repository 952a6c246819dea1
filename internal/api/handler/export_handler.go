package handler

import (
	"bytes"
	"errors"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"github.com/SNU-Hackathon/Doany-sub004/internal/service"
	"github.com/SNU-Hackathon/Doany-sub004/pkg/response"
)

const (
	contentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	contentTypeICS  = "text/calendar; charset=utf-8"
)

// ExportHandler 导出模块 HTTP 处理器
type ExportHandler struct {
	exportSvc service.ExportService
}

// NewExportHandler 创建 ExportHandler
func NewExportHandler(exportSvc service.ExportService) *ExportHandler {
	return &ExportHandler{exportSvc: exportSvc}
}

// ExportAchievement 导出达成率 Excel
// GET /api/v1/goals/:id/export/achievement
func (h *ExportHandler) ExportAchievement(c *gin.Context) {
	buf, filename, err := h.exportSvc.ExportAchievement(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleExportError(c, err)
		return
	}
	sendFile(c, buf, filename, contentTypeXLSX)
}

// ExportCalendar 导出日程 iCalendar
// GET /api/v1/goals/:id/export/calendar
func (h *ExportHandler) ExportCalendar(c *gin.Context) {
	buf, filename, err := h.exportSvc.ExportCalendar(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleExportError(c, err)
		return
	}
	sendFile(c, buf, filename, contentTypeICS)
}

// sendFile 设置下载响应头
func sendFile(c *gin.Context, buf *bytes.Buffer, filename, contentType string) {
	encodedFilename := url.QueryEscape(filename)
	c.Header("Content-Description", "File Transfer")
	c.Header("Content-Disposition", "attachment; filename*=UTF-8''"+encodedFilename)
	c.Data(http.StatusOK, contentType, buf.Bytes())
}

func handleExportError(c *gin.Context, err error) {
	if handleCommonError(c, err) {
		return
	}
	switch {
	case errors.Is(err, service.ErrExportGenerateFail):
		response.Error(c, http.StatusInternalServerError, 25001, "导出文件生成失败")
	default:
		response.InternalError(c)
	}
}
