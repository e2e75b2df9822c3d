package services_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/solang-dev/solang-keys/src/models"
	"github.com/solang-dev/solang-keys/src/repositories/mock"
	"github.com/solang-dev/solang-keys/src/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedGenerator returns canned values in order, then keeps repeating
// the last one. Used to force value collisions deterministically.
type scriptedGenerator struct {
	values []string
	calls  int
}

func (g *scriptedGenerator) Generate() (string, error) {
	i := g.calls
	g.calls++
	if i >= len(g.values) {
		i = len(g.values) - 1
	}
	return g.values[i], nil
}

func newKeyService(repo *mock.KeyRepository, gen services.KeyGenerator) *services.KeyService {
	if gen == nil {
		gen = services.NewKeyGenerator()
	}
	return services.NewKeyService(repo, models.DefaultTierCatalog(), gen)
}

func TestKeyService_Create(t *testing.T) {
	repo := mock.NewKeyRepository()
	ks := newKeyService(repo, nil)
	ctx := context.Background()

	key, err := ks.Create(ctx, "acct_1", "production", models.TierPro)
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, key.ID)
	assert.Equal(t, "production", key.Name)
	assert.Equal(t, models.TierPro, key.Tier)
	assert.Equal(t, 0, key.CreditsUsed)
	assert.True(t, strings.HasPrefix(key.KeyValue, models.KeyPrefix))

	// Persisted, and readable back by the same owner.
	stored, err := repo.GetByID(ctx, key.ID, "acct_1")
	require.NoError(t, err)
	assert.Equal(t, key.KeyValue, stored.KeyValue)
}

func TestKeyService_Create_TrimsName(t *testing.T) {
	ks := newKeyService(mock.NewKeyRepository(), nil)

	key, err := ks.Create(context.Background(), "acct_1", "  staging  ", models.TierFree)
	require.NoError(t, err)
	assert.Equal(t, "staging", key.Name)
}

func TestKeyService_Create_Rejections(t *testing.T) {
	ks := newKeyService(mock.NewKeyRepository(), nil)
	ctx := context.Background()

	_, err := ks.Create(ctx, "acct_1", "   ", models.TierFree)
	assert.ErrorIs(t, err, services.ErrInvalidName)

	_, err = ks.Create(ctx, "", "name", models.TierFree)
	assert.ErrorIs(t, err, services.ErrInvalidOwner)

	_, err = ks.Create(ctx, "acct_1", "name", models.Tier("PLATINUM"))
	assert.ErrorIs(t, err, models.ErrUnknownTier)
}

func TestKeyService_Create_RetriesOnCollision(t *testing.T) {
	repo := mock.NewKeyRepository()
	ctx := context.Background()

	taken := models.KeyPrefix + "taken"
	fresh := models.KeyPrefix + "fresh"

	// Occupy the first candidate value under a different owner.
	first, err := newKeyService(repo, &scriptedGenerator{values: []string{taken}}).
		Create(ctx, "acct_other", "existing", models.TierFree)
	require.NoError(t, err)

	gen := &scriptedGenerator{values: []string{taken, taken, fresh}}
	key, err := newKeyService(repo, gen).Create(ctx, "acct_1", "mine", models.TierBasic)
	require.NoError(t, err)

	assert.Equal(t, fresh, key.KeyValue)
	assert.Equal(t, 3, gen.calls)

	// The colliding key is untouched.
	kept, err := repo.GetByID(ctx, first.ID, "acct_other")
	require.NoError(t, err)
	assert.Equal(t, taken, kept.KeyValue)
}

func TestKeyService_Create_ExhaustsRetries(t *testing.T) {
	repo := mock.NewKeyRepository()
	ctx := context.Background()

	taken := models.KeyPrefix + "alwaystaken"
	_, err := newKeyService(repo, &scriptedGenerator{values: []string{taken}}).
		Create(ctx, "acct_other", "existing", models.TierFree)
	require.NoError(t, err)

	gen := &scriptedGenerator{values: []string{taken}}
	_, err = newKeyService(repo, gen).Create(ctx, "acct_1", "mine", models.TierFree)
	assert.ErrorIs(t, err, services.ErrExhaustedRetries)
	assert.Equal(t, 5, gen.calls)

	// Nothing was persisted for the failed creation.
	keys, err := repo.ListByOwner(ctx, "acct_1")
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestKeyService_Create_NonConflictInsertError(t *testing.T) {
	repo := mock.NewKeyRepository()
	repo.InsertErr = fmt.Errorf("connection refused")

	gen := &scriptedGenerator{values: []string{models.KeyPrefix + "v"}}
	_, err := newKeyService(repo, gen).Create(context.Background(), "acct_1", "n", models.TierFree)
	require.Error(t, err)
	assert.NotErrorIs(t, err, services.ErrExhaustedRetries)
	assert.Equal(t, 1, gen.calls, "non-conflict errors must not be retried")
}

func TestKeyService_List_EmptyOwner(t *testing.T) {
	ks := newKeyService(mock.NewKeyRepository(), nil)

	keys, err := ks.List(context.Background(), "acct_nobody")
	require.NoError(t, err)
	require.NotNil(t, keys)
	assert.Empty(t, keys)
}

func TestKeyService_Rename_KeepsValue(t *testing.T) {
	repo := mock.NewKeyRepository()
	ks := newKeyService(repo, nil)
	ctx := context.Background()

	key, err := ks.Create(ctx, "acct_1", "old-name", models.TierFree)
	require.NoError(t, err)

	require.NoError(t, ks.Rename(ctx, "acct_1", key.ID, "new-name"))

	renamed, err := ks.Get(ctx, "acct_1", key.ID)
	require.NoError(t, err)
	assert.Equal(t, "new-name", renamed.Name)
	assert.Equal(t, key.KeyValue, renamed.KeyValue, "rename must not rotate the value")
}

func TestKeyService_Rename_OwnershipScoped(t *testing.T) {
	repo := mock.NewKeyRepository()
	ks := newKeyService(repo, nil)
	ctx := context.Background()

	key, err := ks.Create(ctx, "acct_1", "mine", models.TierFree)
	require.NoError(t, err)

	// Another account cannot see, let alone rename, the key.
	err = ks.Rename(ctx, "acct_2", key.ID, "stolen")
	assert.ErrorIs(t, err, services.ErrKeyNotFound)

	err = ks.Rename(ctx, "acct_1", key.ID, "  ")
	assert.ErrorIs(t, err, services.ErrInvalidName)
}

func TestKeyService_Delete(t *testing.T) {
	repo := mock.NewKeyRepository()
	ks := newKeyService(repo, nil)
	ctx := context.Background()

	key, err := ks.Create(ctx, "acct_1", "doomed", models.TierFree)
	require.NoError(t, err)

	err = ks.Delete(ctx, "acct_2", key.ID)
	assert.ErrorIs(t, err, services.ErrKeyNotFound)

	require.NoError(t, ks.Delete(ctx, "acct_1", key.ID))

	_, err = ks.Get(ctx, "acct_1", key.ID)
	assert.ErrorIs(t, err, services.ErrKeyNotFound)

	err = ks.Rename(ctx, "acct_1", key.ID, "ghost")
	assert.True(t, errors.Is(err, services.ErrKeyNotFound))
}
