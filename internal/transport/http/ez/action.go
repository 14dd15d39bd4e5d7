package ez

import (
	"errors"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"franchise-crm/internal/domain"
	mdw "franchise-crm/internal/transport/http/middleware"
	resp "franchise-crm/internal/transport/http/response"
)

type EZ struct{ g *gin.RouterGroup }

func New(g *gin.RouterGroup) EZ { return EZ{g: g} }

// 绑定方式
type Binder string

const (
	BindJSON  Binder = "json"  // 从 JSON 绑定
	BindQuery Binder = "query" // 从 URL ?a=b 绑定
	BindNone  Binder = "none"  // 不绑定，自己从 c.Param / c.FormFile 取
)

// 统一错误对象（配合 resp.Error(int, msg)）
type AErr struct {
	Code int
	Msg  string
	Err  error
}

func (e *AErr) Error() string {
	if e.Msg != "" {
		return e.Msg
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return "action error"
}

func (e *AErr) Unwrap() error { return e.Err }

func BadRequest(msg string) error   { return &AErr{Code: resp.CodeBadRequest, Msg: msg} }
func Unauthorized(msg string) error { return &AErr{Code: resp.CodeUnauthorized, Msg: msg} }
func Forbidden(msg string) error    { return &AErr{Code: resp.CodeForbidden, Msg: msg} }
func NotFound(msg string) error     { return &AErr{Code: resp.CodeNotFound, Msg: msg} }
func Internal(msg string, err error) error {
	return &AErr{Code: resp.CodeServerError, Msg: msg, Err: err}
}

// File 非 JSON 输出（PDF、xlsx 模板）
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

// 动作定义：I 入参，O 出参
type Action[I any, O any] struct {
	Method string // "GET" | "POST" | "PUT" | "DELETE"
	Path   string // 例："/auth/login"、"/leads/:id/move"
	Binder Binder // 绑定方式
	Auth   bool   // 是否要求登录（分组需挂 AuthJWT）
	// AllowNoProfile 没有 profile 的账号默认一律拒绝，/me 之类接口放开
	AllowNoProfile bool
	// Need 权限判断（可选），不满足返回 403
	Need    func(domain.Capabilities) bool
	Denied  string // Need 不满足时的提示
	Handler func(c *gin.Context, caller domain.Caller, in *I) (O, error)
}

// Authorize 鉴权 + 权限；Crud 也复用
func Authorize(c *gin.Context, allowNoProfile bool, need func(domain.Capabilities) bool, denied string) (domain.Caller, error) {
	caller, ok := mdw.CallerOf(c)
	if !ok || (caller.UserID == "" && !caller.Service) {
		return caller, Unauthorized("unauthorized")
	}
	if !caller.HasProfile && !allowNoProfile {
		return caller, Forbidden("account has no profile")
	}
	if need != nil && !need(caller.Capabilities) {
		if denied == "" {
			denied = "forbidden"
		}
		return caller, Forbidden(denied)
	}
	return caller, nil
}

// Fail 统一错误映射
func Fail(c *gin.Context, err error) {
	_ = c.Error(err)
	var ae *AErr
	if errors.As(err, &ae) {
		c.JSON(http.StatusOK, resp.Error(ae.Code, ae.Error()))
		return
	}
	c.JSON(http.StatusOK, resp.FromError(err))
}

// 在当前 EZ 下注册动作接口
func RegisterAction[I any, O any](e EZ, a Action[I, O]) {
	h := func(c *gin.Context) {
		// 1) 鉴权/权限
		var caller domain.Caller
		if a.Auth {
			var err error
			if caller, err = Authorize(c, a.AllowNoProfile, a.Need, a.Denied); err != nil {
				Fail(c, err)
				return
			}
		}

		// 2) 绑定入参
		var in I
		var bindErr error
		switch a.Binder {
		case BindJSON:
			bindErr = c.ShouldBindJSON(&in)
		case BindQuery:
			bindErr = c.ShouldBindQuery(&in)
		default: // BindNone: 不绑定
		}
		if bindErr != nil {
			Fail(c, BadRequest(bindErr.Error()))
			return
		}

		// 3) 执行
		out, err := a.Handler(c, caller, &in)
		if err != nil {
			Fail(c, err)
			return
		}
		if f, ok := any(out).(File); ok {
			c.Header("Content-Disposition", `attachment; filename="`+f.Name+`"`)
			c.Data(http.StatusOK, f.ContentType, f.Data)
			return
		}
		c.JSON(http.StatusOK, resp.OK(out))
	}

	switch strings.ToUpper(a.Method) {
	case http.MethodGet:
		e.g.GET(a.Path, h)
	case http.MethodPut:
		e.g.PUT(a.Path, h)
	case http.MethodPatch:
		e.g.PATCH(a.Path, h)
	case http.MethodDelete:
		e.g.DELETE(a.Path, h)
	default: // 默认 POST
		e.g.POST(a.Path, h)
	}
}

// FormFile 读取 multipart 单文件，handler 内使用
func FormFile(c *gin.Context, field string) (multipart.File, *multipart.FileHeader, error) {
	fh, err := c.FormFile(field)
	if err != nil {
		return nil, nil, BadRequest("missing file field " + strconv.Quote(field))
	}
	f, err := fh.Open()
	if err != nil {
		return nil, nil, BadRequest("cannot read uploaded file")
	}
	return f, fh, nil
}
