package server

import (
	"encoding/json"
	"net/http"

	"github.com/ansaralyh/AX-server/internal/common/apperr"
)

// Response 统一响应包裹。
type Response struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// Respond 写出统一格式的 JSON 响应。
func Respond(w http.ResponseWriter, status int, message string, data interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(Response{
		Success: status < http.StatusBadRequest,
		Message: message,
		Data:    data,
	})
}

// RespondMessage 只带文案的响应。
func RespondMessage(w http.ResponseWriter, status int, success bool, message string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(Response{Success: success, Message: message})
}

// RespondError 按错误类别映射 HTTP 状态码；内部错误不向客户端泄露细节。
func RespondError(w http.ResponseWriter, err error) {
	RespondMessage(w, apperr.HTTPStatus(err), false, apperr.PublicMessage(err))
}

// DecodeJSON 解析请求体；格式错误统一转为 ValidationError。
func DecodeJSON(r *http.Request, dst interface{}) error {
	if r.Body == nil {
		return apperr.Validation("request body is empty")
	}
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		return apperr.Wrap(apperr.KindValidation, "invalid request body", err)
	}
	return nil
}
