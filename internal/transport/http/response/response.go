package response

import (
	"errors"

	"franchise-crm/internal/domain"
)

type Resp struct {
	Code int         `json:"code"`
	Msg  string      `json:"msg"`
	Data interface{} `json:"data"`
}

// New 构造函数（保证 data 不为 null）
func New(code int, msg string, data interface{}) Resp {
	if data == nil {
		data = struct{}{}
	}
	return Resp{Code: code, Msg: msg, Data: data}
}

// OK 成功响应
func OK(data interface{}) Resp {
	return New(CodeOK, CodeMsgMap[CodeOK], data)
}

// Error 失败响应（可以传自定义 msg 覆盖默认）
func Error(code int, customMsg string) Resp {
	msg := CodeMsgMap[code]
	if customMsg != "" {
		msg = customMsg
	}
	return New(code, msg, struct{}{})
}

// CodeOf 领域错误分类 → 业务码
func CodeOf(k domain.Kind) int {
	switch k {
	case domain.KindValidation:
		return CodeBadRequest
	case domain.KindUnauthorized:
		return CodeUnauthorized
	case domain.KindForbidden:
		return CodeForbidden
	case domain.KindNotFound:
		return CodeNotFound
	case domain.KindConflict:
		return CodeConflict
	case domain.KindUpstream:
		return CodeBadGateway
	}
	return CodeServerError
}

// FromError 领域错误转响应；上游错误不向客户端暴露内部细节
func FromError(err error) Resp {
	k := domain.KindOf(err)
	code := CodeOf(k)
	if k == domain.KindUpstream || k == domain.KindPartialFailure {
		var msg string
		var de *domain.Error
		if errors.As(err, &de) {
			msg = de.Msg
		}
		return Error(code, msg)
	}
	return Error(code, domain.Message(err))
}
