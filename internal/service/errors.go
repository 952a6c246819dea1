package service

import "errors"

// ── 目标 / 日程模块业务错误 ──

var (
	ErrGoalNotFound      = errors.New("目标不存在")
	ErrGoalNoPeriod      = errors.New("目标尚未设置周期")
	ErrDateOutOfPeriod   = errors.New("日期不在目标周期内")
	ErrEventNotFound     = errors.New("日历事件不存在")
	ErrEventReadOnly     = errors.New("由每周模式生成的事件为只读")
	ErrICSParse          = errors.New("ICS 文件解析失败")
	ErrQuestNotFound     = errors.New("任务不存在")
	ErrQuestGoalMismatch = errors.New("任务不属于该目标")
)

// ── 导出模块业务错误 ──

var ErrExportGenerateFail = errors.New("生成导出文件失败")
