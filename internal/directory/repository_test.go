package directory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSeededAccounts(t *testing.T) {
	repo, err := NewInMemoryRepository()
	require.NoError(t, err)
	ctx := context.Background()

	u, err := repo.GetByEmail(ctx, "Maria.Gonzalez@example.com")
	require.NoError(t, err, "email lookup is case-insensitive")
	require.Equal(t, RolePatient, u.Role)
	require.True(t, u.Active)

	doctors, err := repo.List(ctx, RoleDoctor)
	require.NoError(t, err)
	require.Len(t, doctors, 2)
	require.Equal(t, "Dr. Ahmed Hassan", doctors[0].Name, "sorted by name")
	require.NotEmpty(t, doctors[0].Specialty)

	admins, err := repo.List(ctx, RoleAdmin)
	require.NoError(t, err)
	require.Len(t, admins, 1)
}

func TestCreateUser(t *testing.T) {
	repo, err := NewInMemoryRepository()
	require.NoError(t, err)
	ctx := context.Background()

	created, err := repo.Create(ctx, &User{
		Role:  RolePatient,
		Name:  "Nina Petrova",
		Email: "  Nina.Petrova@Example.com ",
	})
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)
	require.Equal(t, "nina.petrova@example.com", created.Email)
	require.True(t, created.Active)
	require.False(t, created.CreatedAt.IsZero())

	_, err = repo.Create(ctx, &User{Name: "Dup", Email: "nina.petrova@example.com"})
	require.ErrorIs(t, err, ErrEmailTaken)
}

func TestSetRoleAndActive(t *testing.T) {
	repo, err := NewInMemoryRepository()
	require.NoError(t, err)
	ctx := context.Background()

	u, err := repo.GetByEmail(ctx, "james.carter@example.com")
	require.NoError(t, err)

	updated, err := repo.SetRole(ctx, u.ID, RoleDoctor)
	require.NoError(t, err)
	require.Equal(t, RoleDoctor, updated.Role)

	updated, err = repo.SetActive(ctx, u.ID, false)
	require.NoError(t, err)
	require.False(t, updated.Active)

	_, err = repo.SetRole(ctx, "missing", RoleAdmin)
	require.ErrorIs(t, err, ErrUserNotFound)
}

func TestRepositoryReturnsCopies(t *testing.T) {
	repo, err := NewInMemoryRepository()
	require.NoError(t, err)
	ctx := context.Background()

	u, err := repo.GetByEmail(ctx, "maria.gonzalez@example.com")
	require.NoError(t, err)
	u.Name = "mutated"

	again, err := repo.GetByID(ctx, u.ID)
	require.NoError(t, err)
	require.Equal(t, "Maria Gonzalez", again.Name)
}

func TestParseRole(t *testing.T) {
	r, ok := ParseRole("  Doctor ")
	require.True(t, ok)
	require.Equal(t, RoleDoctor, r)

	_, ok = ParseRole("superuser")
	require.False(t, ok)
}

func TestCanonicalizeLegacy(t *testing.T) {
	u := CanonicalizeLegacy(LegacyAccount{
		UserID:      "legacy-1",
		DisplayName: "Old Timer",
		Email:       " Old.Timer@Example.com ",
		AccountType: "provider",
		LinkedID:    "canonical-9",
	})
	require.Equal(t, "canonical-9", u.ID, "linked id wins over the legacy id")
	require.Equal(t, RoleDoctor, u.Role)
	require.Equal(t, "old.timer@example.com", u.Email)
	require.True(t, u.Active)

	u = CanonicalizeLegacy(LegacyAccount{UserID: "legacy-2", AccountType: "administrator"})
	require.Equal(t, "legacy-2", u.ID)
	require.Equal(t, RoleAdmin, u.Role)

	u = CanonicalizeLegacy(LegacyAccount{UserID: "legacy-3", AccountType: "user"})
	require.Equal(t, RolePatient, u.Role)
}
