package directory

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrUserNotFound is returned when a user id or email does not resolve.
	ErrUserNotFound = errors.New("user not found")

	// ErrEmailTaken is returned when creating a user with an existing email.
	ErrEmailTaken = errors.New("email already registered")
)

// Repository defines user storage.
type Repository interface {
	GetByID(ctx context.Context, id string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	List(ctx context.Context, role Role) ([]*User, error)
	Create(ctx context.Context, u *User) (*User, error)
	SetRole(ctx context.Context, id string, role Role) (*User, error)
	SetActive(ctx context.Context, id string, active bool) (*User, error)
}

//go:embed seed_users.json
var seedUsers []byte

// InMemoryRepository keeps users in memory, seeded with the demo accounts.
type InMemoryRepository struct {
	mu    sync.RWMutex
	users map[string]*User
}

// NewInMemoryRepository creates a repository preloaded with the seed users.
func NewInMemoryRepository() (*InMemoryRepository, error) {
	var seeded []User
	if err := json.Unmarshal(seedUsers, &seeded); err != nil {
		return nil, fmt.Errorf("directory: decode seed users: %w", err)
	}
	repo := &InMemoryRepository{users: make(map[string]*User, len(seeded))}
	for i := range seeded {
		u := seeded[i]
		repo.users[u.ID] = &u
	}
	return repo, nil
}

// GetByID retrieves a user by id.
func (r *InMemoryRepository) GetByID(ctx context.Context, id string) (*User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

// GetByEmail retrieves a user by email, case-insensitive.
func (r *InMemoryRepository) GetByEmail(ctx context.Context, email string) (*User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, u := range r.users {
		if strings.ToLower(u.Email) == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, ErrUserNotFound
}

// List returns users, optionally filtered by role, sorted by name.
func (r *InMemoryRepository) List(ctx context.Context, role Role) ([]*User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*User
	for _, u := range r.users {
		if role != "" && u.Role != role {
			continue
		}
		cp := *u
		out = append(out, &cp)
	}
	sortUsers(out)
	return out, nil
}

// Create adds a new user, assigning an id when absent.
func (r *InMemoryRepository) Create(ctx context.Context, u *User) (*User, error) {
	if _, err := r.GetByEmail(ctx, u.Email); err == nil {
		return nil, ErrEmailTaken
	}
	cp := *u
	if cp.ID == "" {
		cp.ID = uuid.NewString()
	}
	cp.Email = strings.ToLower(strings.TrimSpace(cp.Email))
	cp.Active = true
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = time.Now().UTC()
	}

	r.mu.Lock()
	r.users[cp.ID] = &cp
	r.mu.Unlock()

	result := cp
	return &result, nil
}

// SetRole changes a user's role.
func (r *InMemoryRepository) SetRole(ctx context.Context, id string, role Role) (*User, error) {
	return r.update(id, func(u *User) { u.Role = role })
}

// SetActive toggles a user's active flag.
func (r *InMemoryRepository) SetActive(ctx context.Context, id string, active bool) (*User, error) {
	return r.update(id, func(u *User) { u.Active = active })
}

func (r *InMemoryRepository) update(id string, apply func(*User)) (*User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	apply(u)
	cp := *u
	return &cp, nil
}

func sortUsers(users []*User) {
	sort.Slice(users, func(i, j int) bool {
		if users[i].Name == users[j].Name {
			return users[i].ID < users[j].ID
		}
		return users[i].Name < users[j].Name
	})
}
