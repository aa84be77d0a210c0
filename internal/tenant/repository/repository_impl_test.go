package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/commercepulse/commercepulse/internal/migration"
	tenantdomain "github.com/commercepulse/commercepulse/internal/tenant/domain"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_pragma=foreign_keys(1)", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, migration.AutoMigrate(db))
	return db
}

func TestIsActiveDistinguishesMissingFromInactive(t *testing.T) {
	db := openTestDB(t)
	repo := Provide()
	ctx := context.Background()
	now := time.Now().UTC()

	active := tenantdomain.Tenant{ID: uuid.New(), Name: "A", APIKey: uuid.NewString(), IsActive: true, CreatedAt: now, UpdatedAt: now}
	inactive := tenantdomain.Tenant{ID: uuid.New(), Name: "B", APIKey: uuid.NewString(), IsActive: false, CreatedAt: now, UpdatedAt: now}
	require.NoError(t, repo.Create(ctx, db, &active))
	require.NoError(t, repo.Create(ctx, db, &inactive))

	got, err := repo.IsActive(ctx, db, active.ID)
	require.NoError(t, err)
	assert.True(t, got)

	got, err = repo.IsActive(ctx, db, inactive.ID)
	require.NoError(t, err)
	assert.False(t, got)

	_, err = repo.IsActive(ctx, db, uuid.New())
	assert.ErrorIs(t, err, tenantdomain.ErrTenantNotFound)
}

func TestFindByAPIKey(t *testing.T) {
	db := openTestDB(t)
	repo := Provide()
	ctx := context.Background()
	now := time.Now().UTC()

	tenant := tenantdomain.Tenant{ID: uuid.New(), Name: "A", APIKey: "key-123", IsActive: true, CreatedAt: now, UpdatedAt: now}
	require.NoError(t, repo.Create(ctx, db, &tenant))

	got, err := repo.FindByAPIKey(ctx, db, "key-123")
	require.NoError(t, err)
	assert.Equal(t, tenant.ID, got.ID)

	_, err = repo.FindByAPIKey(ctx, db, "nope")
	assert.ErrorIs(t, err, tenantdomain.ErrTenantNotFound)
}

func TestListActiveOrdersByCreation(t *testing.T) {
	db := openTestDB(t)
	repo := Provide()
	ctx := context.Background()
	base := time.Now().UTC()

	for i, name := range []string{"first", "second", "third"} {
		tenant := tenantdomain.Tenant{
			ID:        uuid.New(),
			Name:      name,
			APIKey:    uuid.NewString(),
			IsActive:  name != "second",
			CreatedAt: base.Add(time.Duration(i) * time.Second),
			UpdatedAt: base,
		}
		require.NoError(t, repo.Create(ctx, db, &tenant))
	}

	tenants, err := repo.ListActive(ctx, db)
	require.NoError(t, err)
	require.Len(t, tenants, 2)
	assert.Equal(t, "first", tenants[0].Name)
	assert.Equal(t, "third", tenants[1].Name)
}
