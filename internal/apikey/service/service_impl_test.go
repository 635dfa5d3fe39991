package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	apikeydomain "github.com/primetable/partnerboard/internal/apikey/domain"
	apikeyrepo "github.com/primetable/partnerboard/internal/apikey/repository"
	"github.com/primetable/partnerboard/internal/clock"
	"github.com/primetable/partnerboard/internal/venuectx"
	"github.com/primetable/partnerboard/pkg/db"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func setupAPIKeyService(t *testing.T) (apikeydomain.Service, *clock.FakeClock, context.Context) {
	t.Helper()

	dbConn, err := db.NewTest()
	require.NoError(t, err)
	require.NoError(t, dbConn.AutoMigrate(&apikeydomain.APIKey{}))

	node, err := snowflake.NewNode(7)
	require.NoError(t, err)

	fake := clock.NewFakeClock(time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC))
	svc := New(Params{
		DB:    dbConn,
		Log:   zap.NewNop(),
		GenID: node,
		Clock: fake,
		Repo:  apikeyrepo.Provide(),
	})

	venueID := node.Generate()
	ctx := venuectx.WithVenueID(context.Background(), int64(venueID))
	return svc, fake, ctx
}

func TestCreateAndResolveAPIKey(t *testing.T) {
	svc, _, ctx := setupAPIKeyService(t)

	secret, err := svc.Create(ctx, apikeydomain.CreateRequest{Name: "ops integration"})
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(secret.APIKey, "pb_live_key_"))

	// The plaintext secret resolves; only its hash is stored.
	key, err := svc.Resolve(ctx, secret.APIKey)
	require.NoError(t, err)
	require.Equal(t, secret.KeyID, key.KeyID)
	require.NotEqual(t, secret.APIKey, key.KeyHash)

	// Default scopes cover both writes and reads.
	require.ElementsMatch(t,
		[]string{apikeydomain.ScopeBookingsWrite, apikeydomain.ScopeReportsRead},
		[]string(key.Scopes))

	_, err = svc.Resolve(ctx, "pb_live_key_bogus")
	require.ErrorIs(t, err, apikeydomain.ErrNotFound)
}

func TestCreateAPIKeyRequiresName(t *testing.T) {
	svc, _, ctx := setupAPIKeyService(t)

	_, err := svc.Create(ctx, apikeydomain.CreateRequest{Name: "   "})
	require.ErrorIs(t, err, apikeydomain.ErrInvalidName)
}

func TestRotateKeepsOldKeyDuringGrace(t *testing.T) {
	svc, fake, ctx := setupAPIKeyService(t)

	original, err := svc.Create(ctx, apikeydomain.CreateRequest{Name: "dashboard"})
	require.NoError(t, err)

	rotated, err := svc.Rotate(ctx, original.KeyID)
	require.NoError(t, err)
	require.NotEqual(t, original.KeyID, rotated.KeyID)

	// Both keys resolve inside the grace period.
	_, err = svc.Resolve(ctx, original.APIKey)
	require.NoError(t, err)
	_, err = svc.Resolve(ctx, rotated.APIKey)
	require.NoError(t, err)

	// After the grace period only the new key survives.
	fake.Advance(25 * time.Hour)
	_, err = svc.Resolve(ctx, original.APIKey)
	require.ErrorIs(t, err, apikeydomain.ErrNotFound)
	_, err = svc.Resolve(ctx, rotated.APIKey)
	require.NoError(t, err)

	// A rotated-out key cannot be rotated again.
	fake.Advance(time.Hour)
	_, err = svc.Rotate(ctx, original.KeyID)
	require.ErrorIs(t, err, apikeydomain.ErrNotFound)
}

func TestRevokeDisablesKey(t *testing.T) {
	svc, _, ctx := setupAPIKeyService(t)

	secret, err := svc.Create(ctx, apikeydomain.CreateRequest{Name: "partner feed"})
	require.NoError(t, err)

	require.NoError(t, svc.Revoke(ctx, secret.KeyID))

	_, err = svc.Resolve(ctx, secret.APIKey)
	require.ErrorIs(t, err, apikeydomain.ErrNotFound)

	keys, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, keys, 1)
	require.False(t, keys[0].IsActive)
}
