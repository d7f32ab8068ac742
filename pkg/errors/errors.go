// Package errors 定义业务错误分类。
//
// 每个业务错误携带稳定的机器可读 Kind 与面向用户的 Message；
// errors.Is 按 Kind 匹配，因此带底层原因的包装错误仍能与 Service 层哨兵错误比较。
package errors

import (
	stderrors "errors"
)

// Kind 业务错误类型（对外稳定，作为 API 响应 details 返回）
type Kind string

const (
	KindFetchTransport            Kind = "FETCH_TRANSPORT"
	KindFetchParse                Kind = "FETCH_PARSE"
	KindTimetableNotFound         Kind = "TIMETABLE_NOT_FOUND"
	KindLectureNotFound           Kind = "LECTURE_NOT_FOUND"
	KindTimetableUpdateForbidden  Kind = "TIMETABLE_UPDATE_FORBIDDEN"
	KindTimetableBlankTitle       Kind = "TIMETABLE_BLANK_TITLE"
	KindTimetableDuplicateTitle   Kind = "TIMETABLE_DUPLICATE_TITLE"
	KindTimetableWrongSemester    Kind = "TIMETABLE_WRONG_SEMESTER"
	KindTimetableDuplicateLecture Kind = "TIMETABLE_DUPLICATE_LECTURE"
	KindTimetableDuplicateTime    Kind = "TIMETABLE_DUPLICATE_TIME"
	KindTimetableLectureNotFound  Kind = "TIMETABLE_LECTURE_NOT_FOUND"
	KindExportUnsupportedFormat   Kind = "EXPORT_UNSUPPORTED_FORMAT"
	KindInvalidArgument           Kind = "INVALID_ARGUMENT"
)

// Error 业务错误
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

// New 创建不带底层原因的业务错误（通常作为哨兵错误使用）
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap 创建携带底层原因的业务错误
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is 同 Kind 即视为同一错误
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// KindOf 提取错误链中的业务错误类型，非业务错误返回空串
func KindOf(err error) Kind {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Kind
	}
	return ""
}
