package directory

import (
	"context"

	"github.com/mediconnect/platform/internal/appointments"
)

// Resolver adapts the user repository to the appointment manager's reference
// lookup. Deactivated accounts do not resolve.
type Resolver struct {
	repo Repository
}

// NewResolver wraps a repository.
func NewResolver(repo Repository) *Resolver {
	if repo == nil {
		panic("directory: repository required")
	}
	return &Resolver{repo: repo}
}

// FindPatient implements appointments.Directory.
func (r *Resolver) FindPatient(ctx context.Context, id string) (*appointments.Person, error) {
	return r.find(ctx, id, RolePatient)
}

// FindDoctor implements appointments.Directory.
func (r *Resolver) FindDoctor(ctx context.Context, id string) (*appointments.Person, error) {
	return r.find(ctx, id, RoleDoctor)
}

func (r *Resolver) find(ctx context.Context, id string, role Role) (*appointments.Person, error) {
	u, err := r.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if u.Role != role || !u.Active {
		return nil, ErrUserNotFound
	}
	return &appointments.Person{
		ID:        u.ID,
		Name:      u.Name,
		Specialty: u.Specialty,
	}, nil
}
