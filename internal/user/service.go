package user

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ansaralyh/AX-server/internal/common/apperr"
	"github.com/ansaralyh/AX-server/internal/common/auth"
	"github.com/ansaralyh/AX-server/internal/common/config"
	"github.com/ansaralyh/AX-server/internal/common/logger"
	"github.com/ansaralyh/AX-server/internal/notify"
	"github.com/google/uuid"
)

const resetTokenTTL = 30 * time.Minute

// Service 身份域用例：登录签发 token、档案、改密/重置密、后台建号。
type Service struct {
	store   Store
	mailer  notify.Mailer
	authCfg config.AuthConfig
	log     logger.Logger
}

func NewService(store Store, mailer notify.Mailer, authCfg config.AuthConfig, log logger.Logger) *Service {
	return &Service{store: store, mailer: mailer, authCfg: authCfg, log: log}
}

// LoginResult 登录结果。
type LoginResult struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	User      *User     `json:"user"`
}

// Login 校验邮箱+密码并签发 token。
// allowedRoles 划定入口可用的角色：管理端 admin/super-admin，司机端 driver。
// 账号不存在与密码错误统一返回同一文案，避免探测。
func (s *Service) Login(ctx context.Context, email, password string, allowedRoles ...Role) (*LoginResult, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, apperr.Validation("email and password are required")
	}

	u, err := s.store.FindByEmail(ctx, email)
	if err != nil {
		if apperr.IsKind(err, apperr.KindNotFound) {
			return nil, apperr.Auth("invalid credentials")
		}
		return nil, err
	}
	if !VerifyPassword(password, u.PasswordHash) {
		return nil, apperr.Auth("invalid credentials")
	}
	if len(allowedRoles) > 0 && !roleIn(u.Role, allowedRoles) {
		return nil, apperr.Auth("invalid credentials")
	}

	ttl := time.Duration(s.authCfg.TokenTTLHours) * time.Hour
	token, exp, err := auth.GenerateAccessToken(s.authCfg, u.ID, []string{string(u.Role)}, ttl)
	if err != nil {
		return nil, apperr.Internal("failed to issue token", err)
	}
	return &LoginResult{Token: token, ExpiresAt: exp, User: u}, nil
}

// Profile 返回账号档案（PasswordHash 由模型序列化规则排除）。
func (s *Service) Profile(ctx context.Context, userID string) (*User, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, apperr.Auth("missing auth subject")
	}
	return s.store.FindByID(ctx, userID)
}

// CreateUserInput 后台建号入参。
type CreateUserInput struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	Role      Role   `json:"role"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Phone     string `json:"phone"`
}

// CreateUser 管理端直接建号（司机账号通常由审批流程自动创建）。
func (s *Service) CreateUser(ctx context.Context, in CreateUserInput) (*User, error) {
	email := normalizeEmail(in.Email)
	if email == "" {
		return nil, apperr.Validation("email is required")
	}
	if len(in.Password) < 8 {
		return nil, apperr.Validation("password must be at least 8 characters")
	}
	if !ValidRole(in.Role) {
		return nil, apperr.Validation(fmt.Sprintf("invalid role: %s", in.Role))
	}

	hash, err := HashPassword(in.Password)
	if err != nil {
		return nil, apperr.Internal("failed to hash password", err)
	}
	u := &User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: hash,
		Role:         in.Role,
		FirstName:    strings.TrimSpace(in.FirstName),
		LastName:     strings.TrimSpace(in.LastName),
		Phone:        strings.TrimSpace(in.Phone),
	}
	if err := s.store.Create(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// ChangePassword 修改密码，要求先验证当前密码。
func (s *Service) ChangePassword(ctx context.Context, userID, current, newPassword string) error {
	if len(newPassword) < 8 {
		return apperr.Validation("new password must be at least 8 characters")
	}
	u, err := s.store.FindByID(ctx, userID)
	if err != nil {
		return err
	}
	if !VerifyPassword(current, u.PasswordHash) {
		return apperr.Auth("current password is incorrect")
	}
	hash, err := HashPassword(newPassword)
	if err != nil {
		return apperr.Internal("failed to hash password", err)
	}
	u.PasswordHash = hash
	u.ResetTokenHash = ""
	u.ResetTokenExpiresAt = nil
	return s.store.Update(ctx, u)
}

// RequestPasswordReset 签发重置令牌并发邮件。
// 账号不存在时同样返回成功，不暴露邮箱是否注册；邮件失败只记日志。
func (s *Service) RequestPasswordReset(ctx context.Context, email string) error {
	email = normalizeEmail(email)
	if email == "" {
		return apperr.Validation("email is required")
	}
	u, err := s.store.FindByEmail(ctx, email)
	if err != nil {
		if apperr.IsKind(err, apperr.KindNotFound) {
			return nil
		}
		return err
	}

	token, hash, err := GenerateResetToken()
	if err != nil {
		return apperr.Internal("failed to generate reset token", err)
	}
	exp := time.Now().Add(resetTokenTTL)
	u.ResetTokenHash = hash
	u.ResetTokenExpiresAt = &exp
	if err := s.store.Update(ctx, u); err != nil {
		return err
	}

	if s.mailer != nil {
		if err := s.mailer.SendPasswordResetEmail(u.Email, token); err != nil && s.log != nil {
			s.log.WithField("email", u.Email).Warnf("failed to send reset email: %v", err)
		}
	}
	return nil
}

// ResetPassword 用有效且未过期的令牌重置密码。
func (s *Service) ResetPassword(ctx context.Context, token, newPassword string) error {
	if strings.TrimSpace(token) == "" {
		return apperr.Validation("reset token is required")
	}
	if len(newPassword) < 8 {
		return apperr.Validation("new password must be at least 8 characters")
	}

	u, err := s.store.FindByResetTokenHash(ctx, HashResetToken(token))
	if err != nil {
		if apperr.IsKind(err, apperr.KindNotFound) {
			return apperr.Auth("invalid or expired reset token")
		}
		return err
	}
	if u.ResetTokenExpiresAt == nil || time.Now().After(*u.ResetTokenExpiresAt) {
		return apperr.Auth("invalid or expired reset token")
	}

	hash, err := HashPassword(newPassword)
	if err != nil {
		return apperr.Internal("failed to hash password", err)
	}
	u.PasswordHash = hash
	u.ResetTokenHash = ""
	u.ResetTokenExpiresAt = nil
	return s.store.Update(ctx, u)
}

// BootstrapSuperAdmin 一次性初始化 super-admin。
// 需要配置里的 setup_secret_key；已存在 super-admin 则拒绝。
func (s *Service) BootstrapSuperAdmin(ctx context.Context, secretKey, email, password string) (*User, error) {
	if s.authCfg.SetupSecretKey == "" || secretKey != s.authCfg.SetupSecretKey {
		return nil, apperr.Auth("invalid setup secret key")
	}
	n, err := s.store.CountByRole(ctx, RoleSuperAdmin)
	if err != nil {
		return nil, err
	}
	if n > 0 {
		return nil, apperr.Conflict("super-admin already exists")
	}
	return s.CreateUser(ctx, CreateUserInput{
		Email:    email,
		Password: password,
		Role:     RoleSuperAdmin,
	})
}

func (s *Service) GetUser(ctx context.Context, id string) (*User, error) {
	if strings.TrimSpace(id) == "" {
		return nil, apperr.Validation("id is required")
	}
	return s.store.FindByID(ctx, id)
}

func (s *Service) ListUsers(ctx context.Context, role Role, offset, limit int) ([]User, int64, error) {
	if role != "" && !ValidRole(role) {
		return nil, 0, apperr.Validation(fmt.Sprintf("invalid role: %s", role))
	}
	return s.store.List(ctx, role, offset, limit)
}

// UpdateUserInput 后台改账号入参，nil 字段表示不修改。
type UpdateUserInput struct {
	FirstName *string `json:"firstName"`
	LastName  *string `json:"lastName"`
	Phone     *string `json:"phone"`
	Role      *Role   `json:"role"`
}

// UpdateUser 管理端更新账号基础信息，邮箱和密码走各自的流程。
func (s *Service) UpdateUser(ctx context.Context, id string, in UpdateUserInput) (*User, error) {
	u, err := s.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}
	if in.Role != nil {
		if !ValidRole(*in.Role) {
			return nil, apperr.Validation(fmt.Sprintf("invalid role: %s", *in.Role))
		}
		u.Role = *in.Role
	}
	if in.FirstName != nil {
		u.FirstName = strings.TrimSpace(*in.FirstName)
	}
	if in.LastName != nil {
		u.LastName = strings.TrimSpace(*in.LastName)
	}
	if in.Phone != nil {
		u.Phone = strings.TrimSpace(*in.Phone)
	}
	if err := s.store.Update(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *Service) DeleteUser(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return apperr.Validation("id is required")
	}
	return s.store.Delete(ctx, id)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func roleIn(r Role, set []Role) bool {
	for _, x := range set {
		if r == x {
			return true
		}
	}
	return false
}
