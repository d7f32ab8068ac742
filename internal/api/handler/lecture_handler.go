package handler

import (
	"github.com/gin-gonic/gin"

	"sugang-timetable/backend/internal/dto"
	"sugang-timetable/backend/internal/service"
	"sugang-timetable/backend/pkg/response"
)

// LectureHandler 课程查询 Handler
type LectureHandler struct {
	svc service.LectureService
}

// NewLectureHandler 创建 LectureHandler 实例
func NewLectureHandler(svc service.LectureService) *LectureHandler {
	return &LectureHandler{svc: svc}
}

// Search 按学年学期检索课程
// GET /api/v1/lectures?year=2025&semester=SPRING&keyword=&page=0&size=20
func (h *LectureHandler) Search(c *gin.Context) {
	var req dto.SearchLecturesRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, err.Error())
		return
	}

	list, total, err := h.svc.Search(c.Request.Context(), &req)
	if err != nil {
		handleError(c, err)
		return
	}
	response.OKPage(c, list, total, req.GetPage(), req.GetSize())
}

// Get 课程详情
// GET /api/v1/lectures/:id
func (h *LectureHandler) Get(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	resp, err := h.svc.GetByID(c.Request.Context(), id)
	if err != nil {
		handleError(c, err)
		return
	}
	response.OK(c, resp)
}
