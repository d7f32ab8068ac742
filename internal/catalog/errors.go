// Package catalog 负责从课程目录系统抓取 Excel 并解析为课程记录。
package catalog

import apperrors "sugang-timetable/backend/pkg/errors"

var (
	ErrFetchTransport = apperrors.New(apperrors.KindFetchTransport, "课程目录请求失败")
	ErrFetchParse     = apperrors.New(apperrors.KindFetchParse, "课程目录解析失败")
)

func transportError(message string, err error) error {
	return apperrors.Wrap(apperrors.KindFetchTransport, message, err)
}

func parseError(message string, err error) error {
	return apperrors.Wrap(apperrors.KindFetchParse, message, err)
}
