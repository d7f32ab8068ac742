package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"sugang-timetable/backend/internal/service"
	apperrors "sugang-timetable/backend/pkg/errors"
	"sugang-timetable/backend/pkg/response"
)

// Handler 所有 Handler 的聚合入口
type Handler struct {
	Lecture   *LectureHandler
	Timetable *TimetableHandler
	Catalog   *CatalogHandler
}

// NewHandler 创建 Handler 聚合
func NewHandler(svc *service.Service) *Handler {
	return &Handler{
		Lecture:   NewLectureHandler(svc.Lecture),
		Timetable: NewTimetableHandler(svc.Timetable, svc.Export),
		Catalog:   NewCatalogHandler(svc.Catalog),
	}
}

// bindJSON 绑定 JSON 请求体；请求体超出 BodyLimit 时返回 413，其余绑定错误返回 400
func bindJSON(c *gin.Context, obj interface{}) bool {
	err := c.ShouldBindJSON(obj)
	if err == nil {
		return true
	}
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		response.ErrorWithDetails(c, http.StatusRequestEntityTooLarge, 10005, "请求体过大", c.GetString("request_id"))
		return false
	}
	response.BadRequest(c, 10001, err.Error())
	return false
}

// ── 业务错误映射 ──

type errorMapping struct {
	status int
	code   int
}

// 业务码按模块分段：1xxxx 通用，2xxxx 课程，3xxxx 时间表，4xxxx 目录同步
var kindMappings = map[apperrors.Kind]errorMapping{
	apperrors.KindInvalidArgument:           {http.StatusBadRequest, 10001},
	apperrors.KindLectureNotFound:           {http.StatusNotFound, 20001},
	apperrors.KindTimetableNotFound:         {http.StatusNotFound, 30001},
	apperrors.KindTimetableUpdateForbidden:  {http.StatusForbidden, 30002},
	apperrors.KindTimetableBlankTitle:       {http.StatusBadRequest, 30003},
	apperrors.KindTimetableDuplicateTitle:   {http.StatusConflict, 30004},
	apperrors.KindTimetableWrongSemester:    {http.StatusUnprocessableEntity, 30005},
	apperrors.KindTimetableDuplicateLecture: {http.StatusConflict, 30006},
	apperrors.KindTimetableDuplicateTime:    {http.StatusConflict, 30007},
	apperrors.KindTimetableLectureNotFound:  {http.StatusNotFound, 30008},
	apperrors.KindExportUnsupportedFormat:   {http.StatusBadRequest, 30009},
	apperrors.KindFetchTransport:            {http.StatusBadGateway, 40001},
	apperrors.KindFetchParse:                {http.StatusBadGateway, 40002},
}

// handleError 将 Service 返回的业务错误映射为 HTTP 响应，details 携带错误类型
func handleError(c *gin.Context, err error) {
	var appErr *apperrors.Error
	if errors.As(err, &appErr) {
		if m, ok := kindMappings[appErr.Kind]; ok {
			response.ErrorWithDetails(c, m.status, m.code, appErr.Message, string(appErr.Kind))
			return
		}
	}
	_ = c.Error(err)
	response.InternalError(c)
}

// parseIDParam 解析路径中的正整数 ID，失败时写入 400 响应
func parseIDParam(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		response.BadRequest(c, 10001, name+" 无效")
		return 0, false
	}
	return id, true
}
