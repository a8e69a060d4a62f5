package identity

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskdeck/taskdeck/internal/store"
)

func TestService_StartGuestSession(t *testing.T) {
	svc, s := setupService(t, Config{})
	ctx := context.Background()

	account, sessionID, err := svc.StartGuestSession(ctx, "test")
	require.NoError(t, err)
	assert.NotEmpty(t, account.ID)
	assert.Empty(t, account.Email)
	assert.Empty(t, account.PasswordHash)
	assert.True(t, svc.IsGuest(account.ID))

	// The guest session resolves like any other
	resolved, err := svc.ValidateSession(ctx, sessionID)
	require.NoError(t, err)
	assert.Equal(t, account.ID, resolved.ID)

	// But nothing reached persistent storage
	_, err = s.GetAccount(ctx, account.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, err = s.GetSession(ctx, sessionID)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestService_GuestIsolation(t *testing.T) {
	svc, s := setupService(t, Config{})
	ctx := context.Background()

	guest1, session1, err := svc.StartGuestSession(ctx, "test")
	require.NoError(t, err)
	guest2, session2, err := svc.StartGuestSession(ctx, "test")
	require.NoError(t, err)

	assert.NotEqual(t, guest1.ID, guest2.ID)
	assert.NotEqual(t, session1, session2)

	// Guests never appear in the unique email index
	_, err = s.GetAccountByEmail(ctx, "")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestService_GuestLogout(t *testing.T) {
	svc, _ := setupService(t, Config{})
	ctx := context.Background()

	account, sessionID, err := svc.StartGuestSession(ctx, "test")
	require.NoError(t, err)

	require.NoError(t, svc.Logout(ctx, sessionID))

	_, err = svc.ValidateSession(ctx, sessionID)
	assert.ErrorIs(t, err, ErrSessionInvalid)
	assert.False(t, svc.IsGuest(account.ID), "logout drops the guest identity")
}

func TestService_GuestExpiry(t *testing.T) {
	svc, _ := setupService(t, Config{})
	ctx := context.Background()

	account, sessionID, err := svc.StartGuestSession(ctx, "test")
	require.NoError(t, err)

	// Force the guest session past its expiry
	svc.guests.mu.Lock()
	svc.guests.sessions[sessionID].ExpiresAt = time.Now().Add(-time.Minute)
	svc.guests.mu.Unlock()

	_, err = svc.ValidateSession(ctx, sessionID)
	assert.ErrorIs(t, err, ErrSessionInvalid)
	assert.False(t, svc.IsGuest(account.ID), "expiry drops the guest identity")
}

func TestService_GuestUpdateProfile(t *testing.T) {
	svc, s := setupService(t, Config{})
	ctx := context.Background()

	account, _, err := svc.StartGuestSession(ctx, "test")
	require.NoError(t, err)

	updated, err := svc.UpdateProfile(ctx, account.ID, "Visiting User", "")
	require.NoError(t, err)
	assert.Equal(t, "Visiting User", updated.DisplayName)

	// Still nothing in persistent storage
	_, err = s.GetAccount(ctx, account.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
}
