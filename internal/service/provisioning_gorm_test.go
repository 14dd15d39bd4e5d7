package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"franchise-crm/internal/core/database/dbtest"
	"franchise-crm/internal/domain"
	"franchise-crm/internal/identity"
	"franchise-crm/internal/repo"
)

// lateProfiles 查重时看不到并发写入的 profile，只有唯一索引能拦住
type lateProfiles struct{ *repo.ProfileRepo }

func (lateProfiles) FindByEmail(context.Context, string) (*domain.Profile, error) { return nil, nil }

func TestProvisioner_Create_UniqueIndexRollsBackAccount(t *testing.T) {
	db := dbtest.Open(t, &identity.AccountModel{})
	ctx := context.Background()
	profiles := repo.NewProfileRepo(db)
	require.NoError(t, profiles.Create(ctx, &domain.Profile{ID: "existing", Email: "ana@example.com", Role: domain.RoleUser}))

	p := NewProvisioner(identity.NewLocalStore(db), lateProfiles{profiles}, nil, nil, ProvisionerOptions{}, nil)
	_, err := p.Create(ctx, validCreate())
	require.Error(t, err)
	assert.True(t, domain.IsKind(err, domain.KindConflict), "got %v", err)
	assert.Contains(t, domain.Message(err), "already been registered")

	var accounts, rows int64
	require.NoError(t, db.Model(&identity.AccountModel{}).Count(&accounts).Error)
	require.NoError(t, db.Model(&domain.Profile{}).Count(&rows).Error)
	assert.Zero(t, accounts, "account created before the failed insert is deleted")
	assert.EqualValues(t, 1, rows)
}

func TestProvisioner_LocalStoreRoundTrip(t *testing.T) {
	db := dbtest.Open(t, &identity.AccountModel{})
	ctx := context.Background()
	ids := identity.NewLocalStore(db)
	profiles := repo.NewProfileRepo(db)
	p := NewProvisioner(ids, profiles, nil, nil, ProvisionerOptions{}, nil)

	id, err := p.Create(ctx, validCreate())
	require.NoError(t, err)

	_, err = p.Create(ctx, validCreate())
	assert.True(t, domain.IsKind(err, domain.KindConflict))

	require.NoError(t, p.Update(ctx, UpdateUserInput{UserID: id, Role: ptr("user")}))
	prof, err := profiles.FindByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleUser, prof.Role)

	require.NoError(t, p.Delete(ctx, id))
	_, err = ids.GetAccount(ctx, id)
	assert.ErrorIs(t, err, identity.ErrNotFound)
	prof, err = profiles.FindByID(ctx, id)
	assert.NoError(t, err)
	assert.Nil(t, prof)
}
