package handler

import (
	"github.com/gin-gonic/gin"

	"sugang-timetable/backend/internal/dto"
	"sugang-timetable/backend/internal/model"
	"sugang-timetable/backend/internal/service"
	"sugang-timetable/backend/pkg/response"
)

const roleAdmin = "admin"

// CatalogHandler 课程目录同步 Handler
type CatalogHandler struct {
	svc service.CatalogService
}

// NewCatalogHandler 创建 CatalogHandler 实例
func NewCatalogHandler(svc service.CatalogService) *CatalogHandler {
	return &CatalogHandler{svc: svc}
}

// Refresh 手动刷新指定学年学期的课程目录（同步执行，返回统计）
// POST /api/v1/catalog/refresh
func (h *CatalogHandler) Refresh(c *gin.Context) {
	// 仅管理员可刷新，不依赖路由上是否挂了 RoleAuth
	role, ok := MustGetRole(c)
	if !ok {
		return
	}
	if role != roleAdmin {
		response.Forbidden(c, 10003, "无权限访问")
		return
	}

	var req dto.RefreshCatalogRequest
	if !bindJSON(c, &req) {
		return
	}
	semester, err := model.ParseSemester(req.Semester)
	if err != nil {
		response.BadRequest(c, 10001, err.Error())
		return
	}

	result, err := h.svc.Refresh(c.Request.Context(), req.Year, semester)
	if err != nil {
		handleError(c, err)
		return
	}
	response.OK(c, result)
}
