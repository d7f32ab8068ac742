package dto

import (
	"time"

	"sugang-timetable/backend/internal/model"
)

// ── 时间表 ──

// CreateTimetableRequest 创建时间表请求
// 标题是否为空白由 Service 判定，以便返回专用错误码
type CreateTimetableRequest struct {
	Year     int    `json:"year"     binding:"required,min=2000,max=2100"`
	Semester string `json:"semester" binding:"required,semester"`
	Title    string `json:"title"    binding:"max=100"`
}

// UpdateTimetableRequest 更新时间表请求（目前仅支持改名，未提供字段保持不变）
type UpdateTimetableRequest struct {
	Title *string `json:"title" binding:"omitempty,max=100"`
}

// AddLectureRequest 选课请求
type AddLectureRequest struct {
	LectureID int64 `json:"lecture_id" binding:"required,min=1"`
}

// ExportTimetableRequest 导出请求
type ExportTimetableRequest struct {
	Format string `form:"format"`
}

// TimetableResponse 时间表概要
type TimetableResponse struct {
	TimetableID int64          `json:"timetable_id"`
	OwnerID     int64          `json:"owner_id"`
	Year        int            `json:"year"`
	Semester    model.Semester `json:"semester"`
	Title       string         `json:"title"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// NewTimetableResponse 由模型构建响应
func NewTimetableResponse(t *model.Timetable) TimetableResponse {
	return TimetableResponse{
		TimetableID: t.TimetableID,
		OwnerID:     t.OwnerID,
		Year:        t.Year,
		Semester:    t.Semester,
		Title:       t.Title,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}

// TimetableDetailResponse 时间表详情（含已选课程与总学分）
type TimetableDetailResponse struct {
	TimetableResponse
	Lectures     []LectureResponse `json:"lectures"`
	TotalCredits int               `json:"total_credits"`
}
