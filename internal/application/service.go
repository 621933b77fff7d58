package application

import (
	"context"
	"io"
	"strings"
	"time"

	"github.com/ansaralyh/AX-server/internal/common/apperr"
	"github.com/ansaralyh/AX-server/internal/common/logger"
	"github.com/ansaralyh/AX-server/internal/common/middleware"
	"github.com/ansaralyh/AX-server/internal/docstore"
	"github.com/ansaralyh/AX-server/internal/notify"
	"github.com/ansaralyh/AX-server/internal/user"
	"github.com/google/uuid"
)

// Service 申请工作流：提交、审批、驳回、管理编辑。
// 审批通过时开通司机账号，邮件通知是尽力而为，
// 账号和状态一旦落库绝不回滚。
type Service struct {
	store   Store
	users   user.Store
	docs    docstore.Store
	mailer  notify.Mailer
	breaker *middleware.CircuitBreaker
	log     logger.Logger
}

func NewService(store Store, users user.Store, docs docstore.Store, mailer notify.Mailer, log logger.Logger) *Service {
	return &Service{
		store:   store,
		users:   users,
		docs:    docs,
		mailer:  mailer,
		breaker: middleware.NewCircuitBreaker("mailer", 5, 30*time.Second),
		log:     log,
	}
}

// DocumentUpload 提交时附带的一份文件。
type DocumentUpload struct {
	Kind     string
	Filename string
	Content  io.Reader
}

// SubmitInput 申请提交入参。
type SubmitInput struct {
	Email       string         `json:"email"`
	FirstName   string         `json:"firstName"`
	LastName    string         `json:"lastName"`
	Phone       string         `json:"phone"`
	DateOfBirth time.Time      `json:"dateOfBirth"`
	Address     Address        `json:"address"`
	CDL         CDL            `json:"cdl"`
	Employment  []Employment   `json:"employmentHistory"`
	Driving     DrivingHistory `json:"drivingHistory"`
	References  []Reference    `json:"references"`

	BackgroundCheckConsent bool `json:"backgroundCheckConsent"`
	DrugTestConsent        bool `json:"drugTestConsent"`

	Documents []DocumentUpload `json:"-"`
}

// Submit 提交申请。先落文件再落记录，记录落库失败时尽力清理文件。
func (s *Service) Submit(ctx context.Context, in SubmitInput) (*Application, error) {
	if err := validateSubmit(&in); err != nil {
		return nil, err
	}

	a := &Application{
		ID:                     uuid.NewString(),
		Email:                  strings.ToLower(strings.TrimSpace(in.Email)),
		FirstName:              strings.TrimSpace(in.FirstName),
		LastName:               strings.TrimSpace(in.LastName),
		Phone:                  strings.TrimSpace(in.Phone),
		DateOfBirth:            in.DateOfBirth,
		Address:                in.Address,
		CDL:                    in.CDL,
		EmploymentHistory:      in.Employment,
		DrivingHistory:         in.Driving,
		References:             in.References,
		BackgroundCheckConsent: in.BackgroundCheckConsent,
		DrugTestConsent:        in.DrugTestConsent,
		Status:                 StatusPending,
	}

	if len(in.Documents) > 0 {
		a.Documents = make(map[string]string, len(in.Documents))
		for _, d := range in.Documents {
			path, err := s.docs.Save(a.ID, d.Kind, d.Filename, d.Content)
			if err != nil {
				s.cleanupDocuments(a.ID)
				return nil, apperr.Wrap(apperr.KindInternal, "store document", err)
			}
			a.Documents[d.Kind] = path
		}
	}

	if err := s.store.Create(ctx, a); err != nil {
		s.cleanupDocuments(a.ID)
		return nil, err
	}

	s.log.Infof("application submitted: %s email=%s", a.ID, a.Email)
	return a, nil
}

// ChangeStatus 状态流转。approved / rejected 带副作用。
func (s *Service) ChangeStatus(ctx context.Context, id string, to Status, reason string) (*Application, error) {
	if !ValidStatus(to) {
		return nil, apperr.Validation("status must be pending, in_review, approved or rejected")
	}
	a, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !CanTransition(a.Status, to) {
		return nil, apperr.Conflict("cannot move application from " + string(a.Status) + " to " + string(to))
	}

	switch to {
	case StatusApproved:
		return s.approve(ctx, a)
	case StatusRejected:
		return s.reject(ctx, a, reason)
	default:
		if err := ApplyTransition(a, to, time.Now().UTC()); err != nil {
			return nil, apperr.Conflict(err.Error())
		}
		if err := s.store.Update(ctx, a); err != nil {
			return nil, err
		}
		return a, nil
	}
}

// approve 审批通过：生成初始密码，开通司机账号，回填关联，发信。
// 邮箱唯一索引保证重复审批在建号一步失败，不会产生第二个账号。
func (s *Service) approve(ctx context.Context, a *Application) (*Application, error) {
	if a.LinkedUserID != nil {
		return nil, apperr.Conflict("application has already been approved")
	}

	password, err := user.GeneratePassword(user.GeneratedPasswordLength)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "generate password", err)
	}
	hash, err := user.HashPassword(password)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "hash password", err)
	}

	u := &user.User{
		ID:           uuid.NewString(),
		Email:        a.Email,
		PasswordHash: hash,
		Role:         user.RoleDriver,
		FirstName:    a.FirstName,
		LastName:     a.LastName,
		Phone:        a.Phone,
	}
	if err := s.users.Create(ctx, u); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	if err := ApplyTransition(a, StatusApproved, now); err != nil {
		return nil, apperr.Conflict(err.Error())
	}
	a.LinkedUserID = &u.ID
	a.RejectionReason = ""
	if err := s.store.Update(ctx, a); err != nil {
		return nil, err
	}

	s.sendMail(func() error {
		return s.mailer.SendApprovalEmail(a.Email, a.FullName(), password)
	})
	s.log.Infof("application approved: %s user=%s", a.ID, u.ID)
	return a, nil
}

func (s *Service) reject(ctx context.Context, a *Application, reason string) (*Application, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, apperr.Validation("rejection reason is required")
	}

	if err := ApplyTransition(a, StatusRejected, time.Now().UTC()); err != nil {
		return nil, apperr.Conflict(err.Error())
	}
	a.RejectionReason = reason
	if err := s.store.Update(ctx, a); err != nil {
		return nil, err
	}

	s.sendMail(func() error {
		return s.mailer.SendRejectionEmail(a.Email, a.FullName(), reason)
	})
	s.log.Infof("application rejected: %s", a.ID)
	return a, nil
}

// UpdateInput 管理侧字段修正。状态与账号关联不允许从这里改。
type UpdateInput struct {
	Phone      *string         `json:"phone,omitempty"`
	Address    *Address        `json:"address,omitempty"`
	CDL        *CDL            `json:"cdl,omitempty"`
	Employment *[]Employment   `json:"employmentHistory,omitempty"`
	Driving    *DrivingHistory `json:"drivingHistory,omitempty"`
	References *[]Reference    `json:"references,omitempty"`
	Comments   *string         `json:"comments,omitempty"`

	// 出现即拒绝
	Status       *string `json:"status,omitempty"`
	LinkedUserID *string `json:"linkedUserId,omitempty"`
	IsApproved   *bool   `json:"isApproved,omitempty"`
}

func (s *Service) Update(ctx context.Context, id string, in UpdateInput) (*Application, error) {
	if in.Status != nil || in.LinkedUserID != nil || in.IsApproved != nil {
		return nil, apperr.Validation("status and account linkage can only change through the review workflow")
	}
	a, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if in.Phone != nil {
		a.Phone = strings.TrimSpace(*in.Phone)
	}
	if in.Address != nil {
		a.Address = *in.Address
	}
	if in.CDL != nil {
		a.CDL = *in.CDL
	}
	if in.Employment != nil {
		a.EmploymentHistory = *in.Employment
	}
	if in.Driving != nil {
		a.DrivingHistory = *in.Driving
	}
	if in.References != nil {
		if len(*in.References) < 2 {
			return nil, apperr.Validation("at least two references are required")
		}
		a.References = *in.References
	}
	if in.Comments != nil {
		a.Comments = strings.TrimSpace(*in.Comments)
	}

	if err := s.store.Update(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

func (s *Service) Get(ctx context.Context, id string) (*Application, error) {
	return s.store.FindByID(ctx, id)
}

func (s *Service) List(ctx context.Context, f ListFilter) ([]Application, int64, error) {
	return s.store.List(ctx, f)
}

func (s *Service) Search(ctx context.Context, query string, offset, limit int) ([]Application, int64, error) {
	return s.store.Search(ctx, strings.TrimSpace(query), offset, limit)
}

// Delete 删除申请。记录删除为准，文件清理尽力而为。
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	s.cleanupDocuments(id)
	s.log.Infof("application deleted: %s", id)
	return nil
}

func (s *Service) cleanupDocuments(applicationID string) {
	if err := s.docs.RemoveAll(applicationID); err != nil {
		s.log.Warnf("cleanup documents for application %s: %v", applicationID, err)
	}
}

// sendMail 邮件走熔断器，失败只记日志。
func (s *Service) sendMail(fn func() error) {
	if err := s.breaker.Call(context.Background(), fn); err != nil {
		s.log.Warnf("send notification: %v", err)
	}
}

func validateSubmit(in *SubmitInput) error {
	if strings.TrimSpace(in.Email) == "" || strings.TrimSpace(in.FirstName) == "" || strings.TrimSpace(in.LastName) == "" {
		return apperr.Validation("email, firstName and lastName are required")
	}
	if in.Address.Street == "" || in.Address.City == "" || in.Address.State == "" {
		return apperr.Validation("a complete address is required")
	}
	if in.CDL.LicenseNumber == "" || in.CDL.State == "" || in.CDL.ExpirationDate.IsZero() {
		return apperr.Validation("CDL number, state and expiration date are required")
	}
	if len(in.Employment) < 1 {
		return apperr.Validation("at least one employment history entry is required")
	}
	if len(in.References) < 2 {
		return apperr.Validation("at least two references are required")
	}
	if !in.BackgroundCheckConsent || !in.DrugTestConsent {
		return apperr.Validation("background check and drug test consent are required")
	}
	return nil
}
