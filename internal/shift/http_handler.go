package shift

import (
	"net/http"
	"strconv"
	"time"

	"github.com/ansaralyh/AX-server/internal/common/apperr"
	"github.com/ansaralyh/AX-server/internal/common/logger"
	"github.com/ansaralyh/AX-server/internal/common/server"
	"github.com/go-chi/chi/v5"
)

// Handler 班次相关 HTTP 入口，全部要求司机身份。
type Handler struct {
	svc *Service
	log logger.Logger
}

func NewHandler(svc *Service, log logger.Logger) *Handler {
	return &Handler{svc: svc, log: log}
}

// RegisterRoutes 调用方需套司机角色校验。
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/shifts/start", h.start)
	r.Get("/shifts/active", h.active)
	r.Get("/shifts/history", h.history)
	r.Get("/shifts/stats", h.stats)
	r.Put("/shifts/{id}/end", h.end)
	r.Put("/shifts/{id}/cancel", h.cancel)
	r.Post("/shifts/{id}/break/start", h.startBreak)
	r.Put("/shifts/{id}/break/end", h.endBreak)
	r.Get("/shifts/{id}/break", h.currentBreak)
}

func driverID(r *http.Request) (string, error) {
	ai, ok := server.AuthFromContext(r.Context())
	if !ok || ai.Subject == "" {
		return "", apperr.Auth("authentication required")
	}
	return ai.Subject, nil
}

func (h *Handler) start(w http.ResponseWriter, r *http.Request) {
	id, err := driverID(r)
	if err != nil {
		server.RespondError(w, err)
		return
	}
	sh, err := h.svc.StartShift(r.Context(), id)
	if err != nil {
		server.RespondError(w, err)
		return
	}
	server.Respond(w, http.StatusCreated, "shift started", sh)
}

func (h *Handler) active(w http.ResponseWriter, r *http.Request) {
	id, err := driverID(r)
	if err != nil {
		server.RespondError(w, err)
		return
	}
	sh, err := h.svc.GetActiveShift(r.Context(), id)
	if err != nil {
		server.RespondError(w, err)
		return
	}
	server.Respond(w, http.StatusOK, "active shift", sh)
}

func (h *Handler) end(w http.ResponseWriter, r *http.Request) {
	id, err := driverID(r)
	if err != nil {
		server.RespondError(w, err)
		return
	}
	sh, err := h.svc.EndShift(r.Context(), id, chi.URLParam(r, "id"))
	if err != nil {
		server.RespondError(w, err)
		return
	}
	server.Respond(w, http.StatusOK, "shift ended", sh)
}

type cancelShiftRequest struct {
	Reason string `json:"reason"`
}

func (h *Handler) cancel(w http.ResponseWriter, r *http.Request) {
	id, err := driverID(r)
	if err != nil {
		server.RespondError(w, err)
		return
	}
	var req cancelShiftRequest
	if err := server.DecodeJSON(r, &req); err != nil {
		server.RespondError(w, err)
		return
	}
	sh, err := h.svc.CancelShift(r.Context(), id, chi.URLParam(r, "id"), req.Reason)
	if err != nil {
		server.RespondError(w, err)
		return
	}
	server.Respond(w, http.StatusOK, "shift cancelled", sh)
}

type startBreakRequest struct {
	Type BreakType `json:"type"`
}

func (h *Handler) startBreak(w http.ResponseWriter, r *http.Request) {
	id, err := driverID(r)
	if err != nil {
		server.RespondError(w, err)
		return
	}
	var req startBreakRequest
	if err := server.DecodeJSON(r, &req); err != nil {
		server.RespondError(w, err)
		return
	}
	sh, err := h.svc.StartBreak(r.Context(), id, chi.URLParam(r, "id"), req.Type)
	if err != nil {
		server.RespondError(w, err)
		return
	}
	server.Respond(w, http.StatusOK, "break started", sh)
}

func (h *Handler) endBreak(w http.ResponseWriter, r *http.Request) {
	id, err := driverID(r)
	if err != nil {
		server.RespondError(w, err)
		return
	}
	sh, err := h.svc.EndBreak(r.Context(), id, chi.URLParam(r, "id"))
	if err != nil {
		server.RespondError(w, err)
		return
	}
	server.Respond(w, http.StatusOK, "break ended", sh)
}

func (h *Handler) currentBreak(w http.ResponseWriter, r *http.Request) {
	id, err := driverID(r)
	if err != nil {
		server.RespondError(w, err)
		return
	}
	sh, err := h.svc.ownedActiveShift(r.Context(), id, chi.URLParam(r, "id"))
	if err != nil {
		server.RespondError(w, err)
		return
	}
	server.Respond(w, http.StatusOK, "current break", map[string]interface{}{
		"onBreak":      sh.OnBreak(),
		"currentBreak": sh.CurrentBreak,
	})
}

func (h *Handler) history(w http.ResponseWriter, r *http.Request) {
	id, err := driverID(r)
	if err != nil {
		server.RespondError(w, err)
		return
	}
	q := r.URL.Query()
	start, err := parseDate(q.Get("startDate"))
	if err != nil {
		server.RespondError(w, err)
		return
	}
	end, err := parseDate(q.Get("endDate"))
	if err != nil {
		server.RespondError(w, err)
		return
	}
	page, _ := strconv.Atoi(q.Get("page"))
	limit, _ := strconv.Atoi(q.Get("limit"))

	shifts, total, err := h.svc.History(r.Context(), id, start, end, page, limit)
	if err != nil {
		server.RespondError(w, err)
		return
	}
	server.Respond(w, http.StatusOK, "shift history", map[string]interface{}{
		"items": shifts,
		"total": total,
	})
}

func (h *Handler) stats(w http.ResponseWriter, r *http.Request) {
	id, err := driverID(r)
	if err != nil {
		server.RespondError(w, err)
		return
	}
	q := r.URL.Query()
	start, err := parseDate(q.Get("startDate"))
	if err != nil {
		server.RespondError(w, err)
		return
	}
	end, err := parseDate(q.Get("endDate"))
	if err != nil {
		server.RespondError(w, err)
		return
	}
	st, err := h.svc.GetStats(r.Context(), id, start, end)
	if err != nil {
		server.RespondError(w, err)
		return
	}
	server.Respond(w, http.StatusOK, "shift stats", st)
}

// parseDate 接受 RFC3339 或 2006-01-02，空串返回零值。
func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	return time.Time{}, apperr.Validation("invalid date: " + s)
}
