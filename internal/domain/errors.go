package domain

import (
	"errors"
	"fmt"
)

// Kind 错误分类，transport 层据此映射状态码
type Kind string

const (
	KindValidation     Kind = "validation"
	KindConflict       Kind = "conflict"
	KindNotFound       Kind = "not_found"
	KindUpstream       Kind = "upstream"
	KindPartialFailure Kind = "partial_failure"
	KindUnauthorized   Kind = "unauthorized"
	KindForbidden      Kind = "forbidden"
)

type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.Msg != "" && e.Err != nil:
		return e.Msg + ": " + e.Err.Error()
	case e.Msg != "":
		return e.Msg
	case e.Err != nil:
		return e.Err.Error()
	}
	return string(e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

func Validation(msg string) error { return &Error{Kind: KindValidation, Msg: msg} }

func Validationf(format string, args ...any) error {
	return &Error{Kind: KindValidation, Msg: fmt.Sprintf(format, args...)}
}

func Conflict(msg string) error     { return &Error{Kind: KindConflict, Msg: msg} }
func NotFound(msg string) error     { return &Error{Kind: KindNotFound, Msg: msg} }
func Unauthorized(msg string) error { return &Error{Kind: KindUnauthorized, Msg: msg} }
func Forbidden(msg string) error    { return &Error{Kind: KindForbidden, Msg: msg} }

func Upstream(msg string, err error) error {
	return &Error{Kind: KindUpstream, Msg: msg, Err: err}
}

// PartialFailure 两个存储之一已写入/删除，配对动作或补偿动作失败
func PartialFailure(msg string, err error) error {
	return &Error{Kind: KindPartialFailure, Msg: msg, Err: err}
}

// KindOf 返回错误链上第一个 *Error 的分类；未分类的错误按 upstream 处理
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindUpstream
}

func IsKind(err error, k Kind) bool { return err != nil && KindOf(err) == k }

// Message 面向用户的错误文本
func Message(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Error()
	}
	if err != nil {
		return err.Error()
	}
	return ""
}
