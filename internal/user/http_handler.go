package user

import (
	"net/http"
	"strconv"

	"github.com/ansaralyh/AX-server/internal/common/apperr"
	"github.com/ansaralyh/AX-server/internal/common/logger"
	"github.com/ansaralyh/AX-server/internal/common/server"
	"github.com/go-chi/chi/v5"
)

// Handler 账号与认证相关的 HTTP 入口。
type Handler struct {
	svc *Service
	log logger.Logger
}

func NewHandler(svc *Service, log logger.Logger) *Handler {
	return &Handler{svc: svc, log: log}
}

// RegisterAuthRoutes 登录、找回密码等公开路由，以及个人中心路由。
// 公开与否由网关侧的 PublicPaths 决定，这里只负责挂载。
func (h *Handler) RegisterAuthRoutes(r chi.Router) {
	r.Post("/auth/admin/login", h.adminLogin)
	r.Post("/auth/driver/login", h.driverLogin)
	r.Post("/auth/password/forgot", h.forgotPassword)
	r.Post("/auth/password/reset", h.resetPassword)
	r.Post("/auth/setup", h.setup)
	r.Get("/auth/profile", h.profile)
	r.Put("/auth/password", h.changePassword)
}

// RegisterAdminRoutes 账号管理路由，调用方需套管理员角色校验。
func (h *Handler) RegisterAdminRoutes(r chi.Router) {
	r.Post("/users", h.createUser)
	r.Get("/users", h.listUsers)
	r.Get("/users/{id}", h.getUser)
	r.Put("/users/{id}", h.updateUser)
	r.Delete("/users/{id}", h.deleteUser)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) adminLogin(w http.ResponseWriter, r *http.Request) {
	h.login(w, r, RoleAdmin, RoleSuperAdmin)
}

func (h *Handler) driverLogin(w http.ResponseWriter, r *http.Request) {
	h.login(w, r, RoleDriver)
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request, roles ...Role) {
	var req loginRequest
	if err := server.DecodeJSON(r, &req); err != nil {
		server.RespondError(w, err)
		return
	}
	result, err := h.svc.Login(r.Context(), req.Email, req.Password, roles...)
	if err != nil {
		server.RespondError(w, err)
		return
	}
	server.Respond(w, http.StatusOK, "login successful", result)
}

func (h *Handler) profile(w http.ResponseWriter, r *http.Request) {
	ai, ok := server.AuthFromContext(r.Context())
	if !ok {
		server.RespondError(w, apperr.Auth("authentication required"))
		return
	}
	u, err := h.svc.Profile(r.Context(), ai.Subject)
	if err != nil {
		server.RespondError(w, err)
		return
	}
	server.Respond(w, http.StatusOK, "profile", u)
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

func (h *Handler) changePassword(w http.ResponseWriter, r *http.Request) {
	ai, ok := server.AuthFromContext(r.Context())
	if !ok {
		server.RespondError(w, apperr.Auth("authentication required"))
		return
	}
	var req changePasswordRequest
	if err := server.DecodeJSON(r, &req); err != nil {
		server.RespondError(w, err)
		return
	}
	if err := h.svc.ChangePassword(r.Context(), ai.Subject, req.CurrentPassword, req.NewPassword); err != nil {
		server.RespondError(w, err)
		return
	}
	server.RespondMessage(w, http.StatusOK, true, "password changed")
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

func (h *Handler) forgotPassword(w http.ResponseWriter, r *http.Request) {
	var req forgotPasswordRequest
	if err := server.DecodeJSON(r, &req); err != nil {
		server.RespondError(w, err)
		return
	}
	if err := h.svc.RequestPasswordReset(r.Context(), req.Email); err != nil {
		server.RespondError(w, err)
		return
	}
	// 无论邮箱是否存在都返回同样的文案
	server.RespondMessage(w, http.StatusOK, true, "if the email exists, a reset link has been sent")
}

type resetPasswordRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"newPassword"`
}

func (h *Handler) resetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if err := server.DecodeJSON(r, &req); err != nil {
		server.RespondError(w, err)
		return
	}
	if err := h.svc.ResetPassword(r.Context(), req.Token, req.NewPassword); err != nil {
		server.RespondError(w, err)
		return
	}
	server.RespondMessage(w, http.StatusOK, true, "password reset")
}

type setupRequest struct {
	SecretKey string `json:"secretKey"`
	Email     string `json:"email"`
	Password  string `json:"password"`
}

// setup 一次性创建 super-admin，由配置里的 setup_secret_key 守门。
func (h *Handler) setup(w http.ResponseWriter, r *http.Request) {
	var req setupRequest
	if err := server.DecodeJSON(r, &req); err != nil {
		server.RespondError(w, err)
		return
	}
	u, err := h.svc.BootstrapSuperAdmin(r.Context(), req.SecretKey, req.Email, req.Password)
	if err != nil {
		server.RespondError(w, err)
		return
	}
	server.Respond(w, http.StatusCreated, "super-admin created", u)
}

func (h *Handler) createUser(w http.ResponseWriter, r *http.Request) {
	var in CreateUserInput
	if err := server.DecodeJSON(r, &in); err != nil {
		server.RespondError(w, err)
		return
	}
	u, err := h.svc.CreateUser(r.Context(), in)
	if err != nil {
		server.RespondError(w, err)
		return
	}
	server.Respond(w, http.StatusCreated, "user created", u)
}

func (h *Handler) listUsers(w http.ResponseWriter, r *http.Request) {
	role := Role(r.URL.Query().Get("role"))
	page, limit := pagination(r)
	users, total, err := h.svc.ListUsers(r.Context(), role, (page-1)*limit, limit)
	if err != nil {
		server.RespondError(w, err)
		return
	}
	server.Respond(w, http.StatusOK, "users", map[string]interface{}{
		"items": users,
		"total": total,
		"page":  page,
		"limit": limit,
	})
}

func (h *Handler) getUser(w http.ResponseWriter, r *http.Request) {
	u, err := h.svc.GetUser(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		server.RespondError(w, err)
		return
	}
	server.Respond(w, http.StatusOK, "user", u)
}

func (h *Handler) updateUser(w http.ResponseWriter, r *http.Request) {
	var in UpdateUserInput
	if err := server.DecodeJSON(r, &in); err != nil {
		server.RespondError(w, err)
		return
	}
	u, err := h.svc.UpdateUser(r.Context(), chi.URLParam(r, "id"), in)
	if err != nil {
		server.RespondError(w, err)
		return
	}
	server.Respond(w, http.StatusOK, "user updated", u)
}

func (h *Handler) deleteUser(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteUser(r.Context(), chi.URLParam(r, "id")); err != nil {
		server.RespondError(w, err)
		return
	}
	server.RespondMessage(w, http.StatusOK, true, "user deleted")
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
