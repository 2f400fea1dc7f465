package migrations

import (
	"context"
	"testing"

	"order_manager/internal/models"
	"order_manager/internal/services"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"gorm.io/gorm"
)

type memUsers struct {
	byName map[string]*models.User
}

func (m *memUsers) Create(_ context.Context, u *models.User) error {
	u.ID = uuid.New()
	m.byName[u.Username] = u
	return nil
}

func (m *memUsers) GetByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	for _, u := range m.byName {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *memUsers) GetByUsername(_ context.Context, name string) (*models.User, error) {
	if u, ok := m.byName[name]; ok {
		return u, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *memUsers) GetAll(context.Context) ([]models.User, error) {
	var out []models.User
	for _, u := range m.byName {
		out = append(out, *u)
	}
	return out, nil
}

func (m *memUsers) TeamMemberIDs(context.Context, uuid.UUID) ([]uuid.UUID, error) { return nil, nil }

func TestSeedAdminCreatesVerifiedSuperAdmin(t *testing.T) {
	repo := &memUsers{byName: map[string]*models.User{}}
	users := services.NewUserService(repo)
	admin := Admin{Username: "root", Email: "root@example.com", Password: "change-me"}

	require.NoError(t, SeedAdmin(context.Background(), users, admin, zap.NewNop()))

	seeded := repo.byName["root"]
	require.NotNil(t, seeded)
	assert.Equal(t, models.RoleSuperAdmin, seeded.Role)
	_, err := users.VerifyPassword(context.Background(), "root", "change-me")
	assert.NoError(t, err)
}

func TestSeedAdminWarnsOnStalePassword(t *testing.T) {
	repo := &memUsers{byName: map[string]*models.User{}}
	users := services.NewUserService(repo)
	ctx := context.Background()
	require.NoError(t, SeedAdmin(ctx, users, Admin{Username: "root", Password: "first"}, zap.NewNop()))

	core, logs := observer.New(zapcore.InfoLevel)
	require.NoError(t, SeedAdmin(ctx, users, Admin{Username: "root", Password: "rotated"}, zap.New(core)))

	assert.Len(t, repo.byName, 1)
	assert.Equal(t, 1, logs.FilterLevelExact(zapcore.WarnLevel).Len())
}
