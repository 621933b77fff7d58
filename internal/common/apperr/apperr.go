package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind 错误类别。领域层只抛这几类，由传输层统一翻译为 HTTP 状态码。
type Kind int

const (
	KindValidation Kind = iota // 入参缺失/越界
	KindNotFound               // 目标实体不存在
	KindConflict               // 不变量冲突（重复 active 班次/行程、重复账号、非法状态流转）
	KindAuth                   // 凭证错误/令牌无效/权限不足
	KindInternal               // 数据一致性被破坏等“不该发生”的错误
)

// Error 带类别的领域错误。
type Error struct {
	Kind    Kind
	Message string
	Err     error // 可选：底层原因
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// New 创建指定类别的错误。
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap 包装底层错误并标注类别。
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

func Validation(message string) *Error { return New(KindValidation, message) }
func NotFound(message string) *Error   { return New(KindNotFound, message) }
func Conflict(message string) *Error   { return New(KindConflict, message) }
func Auth(message string) *Error       { return New(KindAuth, message) }

// Internal 包装不可达分支/一致性破坏。
func Internal(message string, err error) *Error {
	return Wrap(KindInternal, message, err)
}

// KindOf 提取错误类别；非 *Error 一律按 Internal 处理。
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// IsKind 判断错误是否属于指定类别。
func IsKind(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// HTTPStatus 类别到 HTTP 状态码的映射。
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindAuth:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// PublicMessage 返回可直接下发给客户端的文案；内部错误不暴露细节。
func PublicMessage(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Kind != KindInternal {
		return e.Message
	}
	return "internal error"
}
