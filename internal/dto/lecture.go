package dto

import (
	"fmt"

	"sugang-timetable/backend/internal/model"
)

// ── 课程检索 ──

// SearchLecturesRequest 课程检索请求
type SearchLecturesRequest struct {
	Year     int    `form:"year"     binding:"required,min=2000,max=2100"`
	Semester string `form:"semester" binding:"required,semester"`
	Keyword  string `form:"keyword"  binding:"omitempty,max=100"`
	PaginationRequest
}

// LectureTimeResponse 上课时段
type LectureTimeResponse struct {
	DayOfWeek   string `json:"day_of_week"`
	StartTime   string `json:"start_time"` // HH:MM
	EndTime     string `json:"end_time"`
	StartMinute int    `json:"start_minute"`
	EndMinute   int    `json:"end_minute"`
	LectureType string `json:"lecture_type"`
	Location    string `json:"location"`
}

// LectureResponse 课程信息
type LectureResponse struct {
	LectureID      int64                 `json:"lecture_id"`
	Year           int                   `json:"year"`
	Semester       model.Semester        `json:"semester"`
	Classification string                `json:"classification"`
	College        string                `json:"college"`
	Department     string                `json:"department"`
	AcademicCourse string                `json:"academic_course"`
	AcademicYear   string                `json:"academic_year"`
	CourseNumber   string                `json:"course_number"`
	LectureNumber  string                `json:"lecture_number"`
	CourseTitle    string                `json:"course_title"`
	CourseSubtitle string                `json:"course_subtitle"`
	Credit         int                   `json:"credit"`
	Location       string                `json:"location"`
	Instructor     string                `json:"instructor"`
	Remark         string                `json:"remark"`
	IsActive       bool                  `json:"is_active"`
	Times          []LectureTimeResponse `json:"times"`
}

// NewLectureResponse 由模型构建响应
func NewLectureResponse(l *model.Lecture) LectureResponse {
	times := make([]LectureTimeResponse, 0, len(l.Times))
	for _, t := range l.Times {
		times = append(times, LectureTimeResponse{
			DayOfWeek:   t.DayOfWeek,
			StartTime:   FormatMinute(t.StartMinute),
			EndTime:     FormatMinute(t.EndMinute),
			StartMinute: t.StartMinute,
			EndMinute:   t.EndMinute,
			LectureType: t.LectureType,
			Location:    t.Location,
		})
	}
	return LectureResponse{
		LectureID:      l.LectureID,
		Year:           l.Year,
		Semester:       l.Semester,
		Classification: l.Classification,
		College:        l.College,
		Department:     l.Department,
		AcademicCourse: l.AcademicCourse,
		AcademicYear:   l.AcademicYear,
		CourseNumber:   l.CourseNumber,
		LectureNumber:  l.LectureNumber,
		CourseTitle:    l.CourseTitle,
		CourseSubtitle: l.CourseSubtitle,
		Credit:         l.Credit,
		Location:       l.Location,
		Instructor:     l.Instructor,
		Remark:         l.Remark,
		IsActive:       l.IsActive,
		Times:          times,
	}
}

// FormatMinute 分钟数转 HH:MM
func FormatMinute(m int) string {
	return fmt.Sprintf("%02d:%02d", m/60, m%60)
}
