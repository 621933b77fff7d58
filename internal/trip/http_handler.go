package trip

import (
	"net/http"
	"strconv"
	"time"

	"github.com/ansaralyh/AX-server/internal/common/apperr"
	"github.com/ansaralyh/AX-server/internal/common/logger"
	"github.com/ansaralyh/AX-server/internal/common/server"
	"github.com/go-chi/chi/v5"
)

// Handler 行程相关 HTTP 入口，全部要求司机身份。
type Handler struct {
	svc *Service
	log logger.Logger
}

func NewHandler(svc *Service, log logger.Logger) *Handler {
	return &Handler{svc: svc, log: log}
}

// RegisterRoutes 调用方需套司机角色校验。
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/trips", h.start)
	r.Get("/trips", h.list)
	r.Get("/trips/stats", h.stats)
	r.Get("/trips/{id}", h.get)
	r.Put("/trips/{id}/complete", h.complete)
	r.Put("/trips/{id}/cancel", h.cancel)
	r.Put("/trips/{id}/rate", h.rate)
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
	var in StartTripInput
	if err := server.DecodeJSON(r, &in); err != nil {
		server.RespondError(w, err)
		return
	}
	tr, err := h.svc.StartTrip(r.Context(), id, in)
	if err != nil {
		server.RespondError(w, err)
		return
	}
	server.Respond(w, http.StatusCreated, "trip started", tr)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := driverID(r)
	if err != nil {
		server.RespondError(w, err)
		return
	}
	tr, err := h.svc.GetTrip(r.Context(), id, chi.URLParam(r, "id"))
	if err != nil {
		server.RespondError(w, err)
		return
	}
	server.Respond(w, http.StatusOK, "trip", tr)
}

func (h *Handler) complete(w http.ResponseWriter, r *http.Request) {
	id, err := driverID(r)
	if err != nil {
		server.RespondError(w, err)
		return
	}
	var in CompleteTripInput
	if err := server.DecodeJSON(r, &in); err != nil {
		server.RespondError(w, err)
		return
	}
	tr, err := h.svc.CompleteTrip(r.Context(), id, chi.URLParam(r, "id"), in)
	if err != nil {
		server.RespondError(w, err)
		return
	}
	server.Respond(w, http.StatusOK, "trip completed", tr)
}

type cancelTripRequest struct {
	Reason string `json:"reason"`
}

func (h *Handler) cancel(w http.ResponseWriter, r *http.Request) {
	id, err := driverID(r)
	if err != nil {
		server.RespondError(w, err)
		return
	}
	var req cancelTripRequest
	if err := server.DecodeJSON(r, &req); err != nil {
		server.RespondError(w, err)
		return
	}
	tr, err := h.svc.CancelTrip(r.Context(), id, chi.URLParam(r, "id"), req.Reason)
	if err != nil {
		server.RespondError(w, err)
		return
	}
	server.Respond(w, http.StatusOK, "trip cancelled", tr)
}

type rateTripRequest struct {
	Rating int    `json:"rating"`
	Review string `json:"review"`
}

func (h *Handler) rate(w http.ResponseWriter, r *http.Request) {
	id, err := driverID(r)
	if err != nil {
		server.RespondError(w, err)
		return
	}
	var req rateTripRequest
	if err := server.DecodeJSON(r, &req); err != nil {
		server.RespondError(w, err)
		return
	}
	tr, err := h.svc.RateTrip(r.Context(), id, chi.URLParam(r, "id"), req.Rating, req.Review)
	if err != nil {
		server.RespondError(w, err)
		return
	}
	server.Respond(w, http.StatusOK, "trip rated", tr)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
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

	trips, total, err := h.svc.ListDriverTrips(r.Context(), id, start, end, page, limit)
	if err != nil {
		server.RespondError(w, err)
		return
	}
	server.Respond(w, http.StatusOK, "trips", map[string]interface{}{
		"items": trips,
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
	st, err := h.svc.GetDriverStats(r.Context(), id, start, end)
	if err != nil {
		server.RespondError(w, err)
		return
	}
	server.Respond(w, http.StatusOK, "trip stats", st)
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
