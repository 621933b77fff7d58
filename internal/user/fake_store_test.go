package user

import (
	"context"
	"sync"

	"github.com/ansaralyh/AX-server/internal/common/apperr"
)

// fakeStore 内存实现，复刻仓储的条件写语义（唯一邮箱）。
type fakeStore struct {
	mu    sync.Mutex
	users map[string]*User // by ID
}

var _ Store = (*fakeStore)(nil)

func newFakeStore() *fakeStore {
	return &fakeStore{users: make(map[string]*User)}
}

func (f *fakeStore) Create(_ context.Context, u *User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, x := range f.users {
		if x.Email == u.Email {
			return apperr.Conflict("a user with this email already exists")
		}
	}
	cp := *u
	f.users[u.ID] = &cp
	return nil
}

func (f *fakeStore) FindByEmail(_ context.Context, email string) (*User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, x := range f.users {
		if x.Email == email {
			cp := *x
			return &cp, nil
		}
	}
	return nil, apperr.NotFound("user not found")
}

func (f *fakeStore) FindByID(_ context.Context, id string) (*User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if x, ok := f.users[id]; ok {
		cp := *x
		return &cp, nil
	}
	return nil, apperr.NotFound("user not found")
}

func (f *fakeStore) FindByResetTokenHash(_ context.Context, hash string) (*User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, x := range f.users {
		if hash != "" && x.ResetTokenHash == hash {
			cp := *x
			return &cp, nil
		}
	}
	return nil, apperr.NotFound("user not found")
}

func (f *fakeStore) Update(_ context.Context, u *User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.users[u.ID]; !ok {
		return apperr.NotFound("user not found")
	}
	cp := *u
	f.users[u.ID] = &cp
	return nil
}

func (f *fakeStore) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.users[id]; !ok {
		return apperr.NotFound("user not found")
	}
	delete(f.users, id)
	return nil
}

func (f *fakeStore) List(_ context.Context, role Role, offset, limit int) ([]User, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []User
	for _, x := range f.users {
		if role == "" || x.Role == role {
			out = append(out, *x)
		}
	}
	return out, int64(len(out)), nil
}

func (f *fakeStore) CountByRole(_ context.Context, role Role) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, x := range f.users {
		if x.Role == role {
			n++
		}
	}
	return n, nil
}
