package users

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/user/usermgmt-go/apperror"
	"github.com/user/usermgmt-go/auth"
)

// memoryDirectory is an in-memory Directory used in place of PostgreSQL.
// Create and Update enforce email uniqueness under the same lock that mutates
// the map, mirroring the atomicity the unique index provides in the real store.
type memoryDirectory struct {
	mu     sync.Mutex
	nextID int64
	byID   map[int64]*auth.User
}

func newMemoryDirectory() *memoryDirectory {
	return &memoryDirectory{nextID: 1, byID: make(map[int64]*auth.User)}
}

func (d *memoryDirectory) emailTakenLocked(email string, excludeID int64) bool {
	for _, u := range d.byID {
		if u.ID != excludeID && strings.EqualFold(u.Email, email) {
			return true
		}
	}
	return false
}

func (d *memoryDirectory) Create(_ context.Context, email, name, passwordHash string) (*auth.User, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.emailTakenLocked(email, 0) {
		return nil, apperror.NewConflictError("Email already registered", nil)
	}

	user := &auth.User{
		ID:             d.nextID,
		Email:          email,
		Name:           name,
		HashedPassword: passwordHash,
		CreatedAt:      time.Now(),
	}
	d.byID[user.ID] = user
	d.nextID++

	copied := *user
	return &copied, nil
}

func (d *memoryDirectory) FindByEmail(_ context.Context, email string) (*auth.User, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, u := range d.byID {
		if u.Email == email {
			copied := *u
			return &copied, nil
		}
	}
	return nil, nil
}

func (d *memoryDirectory) FindByID(_ context.Context, id int64) (*auth.User, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	u, ok := d.byID[id]
	if !ok {
		return nil, nil
	}
	copied := *u
	return &copied, nil
}

func (d *memoryDirectory) Update(_ context.Context, id int64, fields UpdateFields) (*auth.User, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	u, ok := d.byID[id]
	if !ok {
		return nil, apperror.NewNotFoundError("User not found", nil)
	}

	if fields.Email != nil {
		if d.emailTakenLocked(*fields.Email, id) {
			return nil, apperror.NewConflictError("Email already registered", nil)
		}
		u.Email = *fields.Email
	}
	if fields.Name != nil {
		u.Name = *fields.Name
	}
	if fields.PasswordHash != nil {
		u.HashedPassword = *fields.PasswordHash
	}

	copied := *u
	return &copied, nil
}

func (d *memoryDirectory) Delete(_ context.Context, id int64) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.byID[id]; !ok {
		return apperror.NewNotFoundError("User not found", nil)
	}
	delete(d.byID, id)
	return nil
}

func (d *memoryDirectory) List(_ context.Context) ([]auth.User, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	result := make([]auth.User, 0, len(d.byID))
	for _, u := range d.byID {
		result = append(result, *u)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

// storedHash reads the raw stored hash for assertions.
func (d *memoryDirectory) storedHash(id int64) string {
	d.mu.Lock()
	defer d.mu.Unlock()
	if u, ok := d.byID[id]; ok {
		return u.HashedPassword
	}
	return ""
}
