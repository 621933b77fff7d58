package vehicle

import (
	"net/http"
	"strconv"

	"github.com/ansaralyh/AX-server/internal/common/apperr"
	"github.com/ansaralyh/AX-server/internal/common/logger"
	"github.com/ansaralyh/AX-server/internal/common/server"
	"github.com/go-chi/chi/v5"
)

// Handler 车辆目录 HTTP 入口。
type Handler struct {
	svc *Service
	log logger.Logger
}

func NewHandler(svc *Service, log logger.Logger) *Handler {
	return &Handler{svc: svc, log: log}
}

// RegisterRoutes 调用方需套管理员角色校验。
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/vehicles", h.create)
	r.Get("/vehicles", h.search)
	r.Get("/vehicles/available", h.available)
	r.Get("/vehicles/nearby", h.nearby)
	r.Get("/vehicles/{id}", h.get)
	r.Get("/vehicles/{id}/stats", h.stats)
	r.Put("/vehicles/{id}/location", h.updateLocation)
	r.Put("/vehicles/{id}/fuel", h.updateFuel)
	r.Put("/vehicles/{id}/status", h.setStatus)
	r.Delete("/vehicles/{id}", h.delete)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var in CreateVehicleInput
	if err := server.DecodeJSON(r, &in); err != nil {
		server.RespondError(w, err)
		return
	}
	v, err := h.svc.CreateVehicle(r.Context(), in)
	if err != nil {
		server.RespondError(w, err)
		return
	}
	server.Respond(w, http.StatusCreated, "vehicle created", v)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	v, err := h.svc.GetVehicle(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		server.RespondError(w, err)
		return
	}
	server.Respond(w, http.StatusOK, "vehicle", v)
}

func (h *Handler) search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	limit, _ := strconv.Atoi(q.Get("limit"))
	if page < 1 {
		page = 1
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	vs, total, err := h.svc.Search(r.Context(), q.Get("q"), (page-1)*limit, limit)
	if err != nil {
		server.RespondError(w, err)
		return
	}
	server.Respond(w, http.StatusOK, "vehicles", map[string]interface{}{
		"items": vs,
		"total": total,
		"page":  page,
		"limit": limit,
	})
}

func (h *Handler) available(w http.ResponseWriter, r *http.Request) {
	vs, err := h.svc.FindAvailable(r.Context(), r.URL.Query().Get("type"))
	if err != nil {
		server.RespondError(w, err)
		return
	}
	server.Respond(w, http.StatusOK, "available vehicles", vs)
}

func (h *Handler) nearby(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	lng, err1 := strconv.ParseFloat(q.Get("longitude"), 64)
	lat, err2 := strconv.ParseFloat(q.Get("latitude"), 64)
	if err1 != nil || err2 != nil {
		server.RespondError(w, apperr.Validation("longitude and latitude are required"))
		return
	}
	radius, _ := strconv.ParseFloat(q.Get("radiusKm"), 64)

	vs, err := h.svc.FindNearby(r.Context(), lng, lat, radius)
	if err != nil {
		server.RespondError(w, err)
		return
	}
	server.Respond(w, http.StatusOK, "nearby vehicles", vs)
}

func (h *Handler) stats(w http.ResponseWriter, r *http.Request) {
	st, err := h.svc.Stats(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		server.RespondError(w, err)
		return
	}
	server.Respond(w, http.StatusOK, "vehicle stats", st)
}

type updateLocationRequest struct {
	Longitude float64 `json:"longitude"`
	Latitude  float64 `json:"latitude"`
}

func (h *Handler) updateLocation(w http.ResponseWriter, r *http.Request) {
	var req updateLocationRequest
	if err := server.DecodeJSON(r, &req); err != nil {
		server.RespondError(w, err)
		return
	}
	v, err := h.svc.UpdateLocation(r.Context(), chi.URLParam(r, "id"), req.Longitude, req.Latitude)
	if err != nil {
		server.RespondError(w, err)
		return
	}
	server.Respond(w, http.StatusOK, "location updated", v)
}

type updateFuelRequest struct {
	CurrentFuel float64 `json:"currentFuel"`
}

func (h *Handler) updateFuel(w http.ResponseWriter, r *http.Request) {
	var req updateFuelRequest
	if err := server.DecodeJSON(r, &req); err != nil {
		server.RespondError(w, err)
		return
	}
	v, err := h.svc.UpdateFuel(r.Context(), chi.URLParam(r, "id"), req.CurrentFuel)
	if err != nil {
		server.RespondError(w, err)
		return
	}
	server.Respond(w, http.StatusOK, "fuel updated", v)
}

type setStatusRequest struct {
	Status Status `json:"status"`
}

func (h *Handler) setStatus(w http.ResponseWriter, r *http.Request) {
	var req setStatusRequest
	if err := server.DecodeJSON(r, &req); err != nil {
		server.RespondError(w, err)
		return
	}
	v, err := h.svc.SetStatus(r.Context(), chi.URLParam(r, "id"), req.Status)
	if err != nil {
		server.RespondError(w, err)
		return
	}
	server.Respond(w, http.StatusOK, "status updated", v)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteVehicle(r.Context(), chi.URLParam(r, "id")); err != nil {
		server.RespondError(w, err)
		return
	}
	server.RespondMessage(w, http.StatusOK, true, "vehicle deleted")
}
