package application

import (
	"encoding/json"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/ansaralyh/AX-server/internal/common/apperr"
	"github.com/ansaralyh/AX-server/internal/common/logger"
	"github.com/ansaralyh/AX-server/internal/common/server"
	"github.com/go-chi/chi/v5"
)

// maxApplyBodyBytes 申请表单（含附件）的大小上限。
const maxApplyBodyBytes = 32 << 20

// Handler 申请工作流 HTTP 入口。
type Handler struct {
	svc *Service
	log logger.Logger
}

func NewHandler(svc *Service, log logger.Logger) *Handler {
	return &Handler{svc: svc, log: log}
}

// RegisterPublicRoutes 申请提交，未登录可用。
func (h *Handler) RegisterPublicRoutes(r chi.Router) {
	r.Post("/drivers/apply", h.submit)
}

// RegisterAdminRoutes 审核与管理路由，调用方需套管理员角色校验。
func (h *Handler) RegisterAdminRoutes(r chi.Router) {
	r.Get("/drivers", h.list)
	r.Get("/drivers/search", h.search)
	r.Get("/drivers/{id}", h.get)
	r.Put("/drivers/{id}", h.update)
	r.Delete("/drivers/{id}", h.delete)
	r.Put("/drivers/{id}/status", h.changeStatus)
	r.Put("/drivers/{id}/approve", h.approve)
	r.Put("/drivers/{id}/reject", h.reject)
}

// submit 支持两种提交方式：纯 JSON，或 multipart
// （"application" 字段放 JSON，其余文件字段名即文档类型）。
func (h *Handler) submit(w http.ResponseWriter, r *http.Request) {
	var in SubmitInput

	ct := r.Header.Get("Content-Type")
	if strings.HasPrefix(ct, "multipart/") {
		if err := r.ParseMultipartForm(maxApplyBodyBytes); err != nil {
			server.RespondError(w, apperr.Wrap(apperr.KindValidation, "invalid multipart form", err))
			return
		}
		defer func() {
			_ = r.MultipartForm.RemoveAll()
		}()

		payload := r.FormValue("application")
		if payload == "" {
			server.RespondError(w, apperr.Validation("application field is required"))
			return
		}
		if err := json.Unmarshal([]byte(payload), &in); err != nil {
			server.RespondError(w, apperr.Wrap(apperr.KindValidation, "invalid application payload", err))
			return
		}

		docs, closers, err := collectUploads(r.MultipartForm)
		if err != nil {
			server.RespondError(w, err)
			return
		}
		defer func() {
			for _, c := range closers {
				_ = c.Close()
			}
		}()
		in.Documents = docs
	} else {
		if err := server.DecodeJSON(r, &in); err != nil {
			server.RespondError(w, err)
			return
		}
	}

	a, err := h.svc.Submit(r.Context(), in)
	if err != nil {
		server.RespondError(w, err)
		return
	}
	server.Respond(w, http.StatusCreated, "application submitted", a)
}

func collectUploads(form *multipart.Form) ([]DocumentUpload, []multipart.File, error) {
	var docs []DocumentUpload
	var closers []multipart.File
	for kind, headers := range form.File {
		if len(headers) == 0 {
			continue
		}
		f, err := headers[0].Open()
		if err != nil {
			for _, c := range closers {
				_ = c.Close()
			}
			return nil, nil, apperr.Wrap(apperr.KindValidation, "read uploaded file", err)
		}
		closers = append(closers, f)
		docs = append(docs, DocumentUpload{
			Kind:     kind,
			Filename: headers[0].Filename,
			Content:  f,
		})
	}
	return docs, closers, nil
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	a, err := h.svc.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		server.RespondError(w, err)
		return
	}
	server.Respond(w, http.StatusOK, "application", a)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, limit := pagination(r)
	f := ListFilter{
		Status: Status(q.Get("status")),
		Offset: (page - 1) * limit,
		Limit:  limit,
	}
	if v := q.Get("approved"); v != "" {
		approved := v == "true"
		f.IsApproved = &approved
	}
	apps, total, err := h.svc.List(r.Context(), f)
	if err != nil {
		server.RespondError(w, err)
		return
	}
	server.Respond(w, http.StatusOK, "applications", pageData(apps, total, page, limit))
}

func (h *Handler) search(w http.ResponseWriter, r *http.Request) {
	page, limit := pagination(r)
	apps, total, err := h.svc.Search(r.Context(), r.URL.Query().Get("q"), (page-1)*limit, limit)
	if err != nil {
		server.RespondError(w, err)
		return
	}
	server.Respond(w, http.StatusOK, "applications", pageData(apps, total, page, limit))
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	var in UpdateInput
	if err := server.DecodeJSON(r, &in); err != nil {
		server.RespondError(w, err)
		return
	}
	a, err := h.svc.Update(r.Context(), chi.URLParam(r, "id"), in)
	if err != nil {
		server.RespondError(w, err)
		return
	}
	server.Respond(w, http.StatusOK, "application updated", a)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		server.RespondError(w, err)
		return
	}
	server.RespondMessage(w, http.StatusOK, true, "application deleted")
}

type changeStatusRequest struct {
	Status          Status `json:"status"`
	RejectionReason string `json:"rejectionReason"`
}

func (h *Handler) changeStatus(w http.ResponseWriter, r *http.Request) {
	var req changeStatusRequest
	if err := server.DecodeJSON(r, &req); err != nil {
		server.RespondError(w, err)
		return
	}
	a, err := h.svc.ChangeStatus(r.Context(), chi.URLParam(r, "id"), req.Status, req.RejectionReason)
	if err != nil {
		server.RespondError(w, err)
		return
	}
	server.Respond(w, http.StatusOK, "status updated", a)
}

func (h *Handler) approve(w http.ResponseWriter, r *http.Request) {
	a, err := h.svc.ChangeStatus(r.Context(), chi.URLParam(r, "id"), StatusApproved, "")
	if err != nil {
		server.RespondError(w, err)
		return
	}
	server.Respond(w, http.StatusOK, "application approved", a)
}

type rejectRequest struct {
	RejectionReason string `json:"rejectionReason"`
}

func (h *Handler) reject(w http.ResponseWriter, r *http.Request) {
	var req rejectRequest
	if err := server.DecodeJSON(r, &req); err != nil {
		server.RespondError(w, err)
		return
	}
	a, err := h.svc.ChangeStatus(r.Context(), chi.URLParam(r, "id"), StatusRejected, req.RejectionReason)
	if err != nil {
		server.RespondError(w, err)
		return
	}
	server.Respond(w, http.StatusOK, "application rejected", a)
}

func pagination(r *http.Request) (page, limit int) {
	page, _ = strconv.Atoi(r.URL.Query().Get("page"))
	limit, _ = strconv.Atoi(r.URL.Query().Get("limit"))
	if page < 1 {
		page = 1
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return page, limit
}

func pageData(items interface{}, total int64, page, limit int) map[string]interface{} {
	return map[string]interface{}{
		"items": items,
		"total": total,
		"page":  page,
		"limit": limit,
	}
}
