package application

import (
	"context"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/ansaralyh/AX-server/internal/common/apperr"
	"github.com/ansaralyh/AX-server/internal/user"
)

// fakeStore 申请存储内存实现，邮箱唯一。
type fakeStore struct {
	mu   sync.Mutex
	apps map[string]*Application
}

var _ Store = (*fakeStore)(nil)

func newFakeStore() *fakeStore {
	return &fakeStore{apps: make(map[string]*Application)}
}

func copyApp(a *Application) *Application {
	cp := *a
	if a.LinkedUserID != nil {
		id := *a.LinkedUserID
		cp.LinkedUserID = &id
	}
	if a.Documents != nil {
		cp.Documents = make(map[string]string, len(a.Documents))
		for k, v := range a.Documents {
			cp.Documents[k] = v
		}
	}
	return &cp
}

func (f *fakeStore) Create(_ context.Context, a *Application) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.apps {
		if existing.Email == a.Email {
			return apperr.Conflict("an application with this email already exists")
		}
	}
	f.apps[a.ID] = copyApp(a)
	return nil
}

func (f *fakeStore) FindByID(_ context.Context, id string) (*Application, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.apps[id]
	if !ok {
		return nil, apperr.NotFound("application not found")
	}
	return copyApp(a), nil
}

func (f *fakeStore) FindByEmail(_ context.Context, email string) (*Application, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range f.apps {
		if a.Email == email {
			return copyApp(a), nil
		}
	}
	return nil, apperr.NotFound("application not found")
}

func (f *fakeStore) Update(_ context.Context, a *Application) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.apps[a.ID]; !ok {
		return apperr.NotFound("application not found")
	}
	f.apps[a.ID] = copyApp(a)
	return nil
}

func (f *fakeStore) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.apps[id]; !ok {
		return apperr.NotFound("application not found")
	}
	delete(f.apps, id)
	return nil
}

func (f *fakeStore) List(_ context.Context, fl ListFilter) ([]Application, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if fl.Limit <= 0 {
		fl.Limit = 20
	}
	var all []Application
	for _, a := range f.apps {
		if fl.Status != "" && a.Status != fl.Status {
			continue
		}
		if fl.IsApproved != nil && a.IsApproved != *fl.IsApproved {
			continue
		}
		all = append(all, *copyApp(a))
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })
	total := int64(len(all))
	if fl.Offset >= len(all) {
		return nil, total, nil
	}
	e := fl.Offset + fl.Limit
	if e > len(all) {
		e = len(all)
	}
	return all[fl.Offset:e], total, nil
}

func (f *fakeStore) Search(_ context.Context, query string, offset, limit int) ([]Application, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if limit <= 0 {
		limit = 20
	}
	q := strings.ToLower(query)
	var all []Application
	for _, a := range f.apps {
		if q == "" ||
			strings.Contains(strings.ToLower(a.FirstName), q) ||
			strings.Contains(strings.ToLower(a.LastName), q) ||
			strings.Contains(strings.ToLower(a.Email), q) ||
			strings.Contains(strings.ToLower(a.CDL.LicenseNumber), q) ||
			strings.Contains(strings.ToLower(a.CDL.State), q) {
			all = append(all, *copyApp(a))
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })
	total := int64(len(all))
	if offset >= len(all) {
		return nil, total, nil
	}
	e := offset + limit
	if e > len(all) {
		e = len(all)
	}
	return all[offset:e], total, nil
}

// fakeUsers 账号存储桩，邮箱唯一，覆盖审批建号路径。
type fakeUsers struct {
	mu    sync.Mutex
	users map[string]*user.User // key: email
}

var _ user.Store = (*fakeUsers)(nil)

func newFakeUsers() *fakeUsers {
	return &fakeUsers{users: make(map[string]*user.User)}
}

func (f *fakeUsers) Create(_ context.Context, u *user.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.users[u.Email]; ok {
		return apperr.Conflict("a user with this email already exists")
	}
	cp := *u
	f.users[u.Email] = &cp
	return nil
}

func (f *fakeUsers) FindByEmail(_ context.Context, email string) (*user.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[email]
	if !ok {
		return nil, apperr.NotFound("user not found")
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUsers) FindByID(_ context.Context, id string) (*user.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.ID == id {
			cp := *u
			return &cp, nil
		}
	}
	return nil, apperr.NotFound("user not found")
}

func (f *fakeUsers) FindByResetTokenHash(_ context.Context, hash string) (*user.User, error) {
	return nil, apperr.NotFound("user not found")
}

func (f *fakeUsers) Update(_ context.Context, u *user.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *u
	f.users[u.Email] = &cp
	return nil
}

func (f *fakeUsers) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for email, u := range f.users {
		if u.ID == id {
			delete(f.users, email)
			return nil
		}
	}
	return apperr.NotFound("user not found")
}

func (f *fakeUsers) List(_ context.Context, role user.Role, offset, limit int) ([]user.User, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []user.User
	for _, u := range f.users {
		if role != "" && u.Role != role {
			continue
		}
		out = append(out, *u)
	}
	return out, int64(len(out)), nil
}

func (f *fakeUsers) CountByRole(_ context.Context, role user.Role) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, u := range f.users {
		if u.Role == role {
			n++
		}
	}
	return n, nil
}

// fakeDocs 文件存储桩，记录保存与清理调用。
type fakeDocs struct {
	mu      sync.Mutex
	saved   map[string][]string // applicationID -> paths
	failOn  string              // 指定 kind 保存失败
	cleaned []string
}

func newFakeDocs() *fakeDocs {
	return &fakeDocs{saved: make(map[string][]string)}
}

func (f *fakeDocs) Save(applicationID, kind, filename string, _ io.Reader) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if kind == f.failOn {
		return "", apperr.Internal("disk full", nil)
	}
	path := applicationID + "/" + kind + "-" + filename
	f.saved[applicationID] = append(f.saved[applicationID], path)
	return path, nil
}

func (f *fakeDocs) Remove(path string) error {
	return nil
}

func (f *fakeDocs) RemoveAll(applicationID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.saved, applicationID)
	f.cleaned = append(f.cleaned, applicationID)
	return nil
}

// recordingMailer 记录外发邮件，可注入失败。
type recordingMailer struct {
	mu         sync.Mutex
	approvals  []string // "to:password"
	rejections []string // "to:reason"
	fail       bool
}

func (m *recordingMailer) SendApprovalEmail(to, _, password string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return apperr.Internal("smtp unavailable", nil)
	}
	m.approvals = append(m.approvals, to+":"+password)
	return nil
}

func (m *recordingMailer) SendRejectionEmail(to, _, reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return apperr.Internal("smtp unavailable", nil)
	}
	m.rejections = append(m.rejections, to+":"+reason)
	return nil
}

func (m *recordingMailer) SendPasswordResetEmail(to, token string) error {
	return nil
}
