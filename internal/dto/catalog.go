package dto

import "time"

// ── 课程目录刷新 ──

// RefreshCatalogRequest 手动刷新请求
type RefreshCatalogRequest struct {
	Year     int    `json:"year"     binding:"required,min=2000,max=2100"`
	Semester string `json:"semester" binding:"required,semester"`
}

// CatalogRefreshResult 一次刷新的统计
type CatalogRefreshResult struct {
	Year        int           `json:"year"`
	Semester    string        `json:"semester"`
	Fetched     int           `json:"fetched"`     // 目录中的课程行数
	Created     int           `json:"created"`     // 新增
	Updated     int           `json:"updated"`     // 按自然键命中并覆盖
	Skipped     int           `json:"skipped"`     // 时段解析失败或同批重复
	Deactivated int           `json:"deactivated"` // 本次目录中消失而被停用
	Duration    time.Duration `json:"duration_ns"`
}
