package handler

import (
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"sugang-timetable/backend/internal/dto"
	"sugang-timetable/backend/internal/service"
	"sugang-timetable/backend/pkg/response"
)

// TimetableHandler 时间表模块 Handler
type TimetableHandler struct {
	svc       service.TimetableService
	exportSvc service.ExportService
}

// NewTimetableHandler 创建 TimetableHandler 实例
func NewTimetableHandler(svc service.TimetableService, exportSvc service.ExportService) *TimetableHandler {
	return &TimetableHandler{svc: svc, exportSvc: exportSvc}
}

// Create 创建时间表
// POST /api/v1/timetables
func (h *TimetableHandler) Create(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.CreateTimetableRequest
	if !bindJSON(c, &req) {
		return
	}

	resp, err := h.svc.Create(c.Request.Context(), userID, &req)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Created(c, resp)
}

// List 我的时间表列表
// GET /api/v1/timetables
func (h *TimetableHandler) List(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	resp, err := h.svc.List(c.Request.Context(), userID)
	if err != nil {
		handleError(c, err)
		return
	}
	response.OK(c, resp)
}

// Get 时间表详情（含已选课程与总学分）
// GET /api/v1/timetables/:id
func (h *TimetableHandler) Get(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	resp, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		handleError(c, err)
		return
	}
	response.OK(c, resp)
}

// Update 修改时间表标题
// PATCH /api/v1/timetables/:id
func (h *TimetableHandler) Update(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req dto.UpdateTimetableRequest
	if !bindJSON(c, &req) {
		return
	}

	resp, err := h.svc.Update(c.Request.Context(), id, userID, &req)
	if err != nil {
		handleError(c, err)
		return
	}
	response.OK(c, resp)
}

// Delete 删除时间表
// DELETE /api/v1/timetables/:id
func (h *TimetableHandler) Delete(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.svc.Delete(c.Request.Context(), id, userID); err != nil {
		handleError(c, err)
		return
	}
	response.NoContent(c)
}

// AddLecture 向时间表添加课程
// POST /api/v1/timetables/:id/lectures
func (h *TimetableHandler) AddLecture(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req dto.AddLectureRequest
	if !bindJSON(c, &req) {
		return
	}

	resp, err := h.svc.AddLecture(c.Request.Context(), id, req.LectureID, userID)
	if err != nil {
		handleError(c, err)
		return
	}
	response.OK(c, resp)
}

// RemoveLecture 从时间表移除课程
// DELETE /api/v1/timetables/:id/lectures/:lectureId
func (h *TimetableHandler) RemoveLecture(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	lectureID, ok := parseIDParam(c, "lectureId")
	if !ok {
		return
	}

	if err := h.svc.RemoveLecture(c.Request.Context(), id, lectureID, userID); err != nil {
		handleError(c, err)
		return
	}
	response.NoContent(c)
}

// Export 导出时间表
// GET /api/v1/timetables/:id/export?format=xlsx|ics
func (h *TimetableHandler) Export(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req dto.ExportTimetableRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, err.Error())
		return
	}

	file, err := h.exportSvc.ExportTimetable(c.Request.Context(), id, req.Format)
	if err != nil {
		handleError(c, err)
		return
	}

	// 设置下载响应头
	c.Header("Content-Description", "File Transfer")
	c.Header("Content-Disposition", "attachment; filename*=UTF-8''"+url.PathEscape(file.Filename))
	c.Data(http.StatusOK, file.ContentType, file.Content.Bytes())
}
