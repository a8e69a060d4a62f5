package identity

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/taskdeck/taskdeck/internal/store"
)

// setupService creates an identity service over a temporary store.
// MinCost keeps the hashing fast in tests.
func setupService(t *testing.T, cfg Config) (*Service, *store.SQLiteStore) {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")

	s, err := store.NewSQLiteStore(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = bcrypt.MinCost
	}
	return NewService(s, cfg), s
}

func TestService_Register(t *testing.T) {
	svc, s := setupService(t, Config{})
	ctx := context.Background()

	account, sessionID, err := svc.Register(ctx, "a@x.com", "Ann", "pw1", "test")
	require.NoError(t, err)
	assert.NotEmpty(t, account.ID)
	assert.NotEmpty(t, sessionID)
	assert.Equal(t, "a@x.com", account.Email)
	assert.NotEqual(t, "pw1", account.PasswordHash, "password must be stored hashed")

	// Registration implies login: the session resolves immediately
	resolved, err := svc.ValidateSession(ctx, sessionID)
	require.NoError(t, err)
	assert.Equal(t, account.ID, resolved.ID)

	// And the session is a real stored record
	session, err := s.GetSession(ctx, sessionID)
	require.NoError(t, err)
	assert.Equal(t, account.ID, session.OwnerID)
}

func TestService_Register_DuplicateEmail(t *testing.T) {
	svc, s := setupService(t, Config{})
	ctx := context.Background()

	original, _, err := svc.Register(ctx, "a@x.com", "Ann", "pw1", "test")
	require.NoError(t, err)

	_, _, err = svc.Register(ctx, "a@x.com", "Impostor", "pw2", "test")
	assert.ErrorIs(t, err, ErrDuplicateAccount)

	// The original account is untouched
	kept, err := s.GetAccountByEmail(ctx, "a@x.com")
	require.NoError(t, err)
	assert.Equal(t, original.ID, kept.ID)
	assert.Equal(t, "Ann", kept.DisplayName)
}

func TestService_Register_EmptyFields(t *testing.T) {
	svc, _ := setupService(t, Config{})
	ctx := context.Background()

	_, _, err := svc.Register(ctx, "", "Ann", "pw1", "test")
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, _, err = svc.Register(ctx, "a@x.com", "Ann", "", "test")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestService_RegisterLoginScenario(t *testing.T) {
	svc, _ := setupService(t, Config{})
	ctx := context.Background()

	_, registerSession, err := svc.Register(ctx, "a@x.com", "Ann", "pw1", "test")
	require.NoError(t, err)

	// Wrong password fails with the undifferentiated credential error
	_, _, err = svc.Login(ctx, "a@x.com", "wrong", "test")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	// Unknown email fails with the exact same error
	_, _, err = svc.Login(ctx, "nobody@x.com", "pw1", "test")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	// Correct credentials open a fresh session
	account, loginSession, err := svc.Login(ctx, "a@x.com", "pw1", "test")
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", account.Email)
	assert.NotEqual(t, registerSession, loginSession, "login must mint a new session id")
}

func TestService_Login_EmailNormalized(t *testing.T) {
	svc, _ := setupService(t, Config{})
	ctx := context.Background()

	_, _, err := svc.Register(ctx, "a@x.com", "Ann", "pw1", "test")
	require.NoError(t, err)

	_, _, err = svc.Login(ctx, "  A@X.COM ", "pw1", "test")
	assert.NoError(t, err)
}

func TestService_Logout_Idempotent(t *testing.T) {
	svc, _ := setupService(t, Config{})
	ctx := context.Background()

	_, sessionID, err := svc.Register(ctx, "a@x.com", "Ann", "pw1", "test")
	require.NoError(t, err)

	require.NoError(t, svc.Logout(ctx, sessionID))
	_, err = svc.ValidateSession(ctx, sessionID)
	assert.ErrorIs(t, err, ErrSessionInvalid)

	// Logging out again, or with a made-up id, is not an error
	assert.NoError(t, svc.Logout(ctx, sessionID))
	assert.NoError(t, svc.Logout(ctx, "never-existed"))
}

func TestService_ValidateSession_Expiry(t *testing.T) {
	svc, s := setupService(t, Config{})
	ctx := context.Background()

	account, _, err := svc.Register(ctx, "a@x.com", "Ann", "pw1", "test")
	require.NoError(t, err)

	// A session whose expiry has passed fails validation
	expired := &store.Session{
		ID:        "expired-session",
		OwnerID:   account.ID,
		CreatedAt: time.Now().Add(-2 * time.Hour),
		ExpiresAt: time.Now().Add(-time.Hour),
	}
	require.NoError(t, s.CreateSession(ctx, expired))

	_, err = svc.ValidateSession(ctx, "expired-session")
	assert.ErrorIs(t, err, ErrSessionInvalid)

	// The failed validation lazily reaped the record
	_, err = s.GetSession(ctx, "expired-session")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestService_ValidateSession_BeforeExpiry(t *testing.T) {
	svc, s := setupService(t, Config{SessionTTL: time.Hour})
	ctx := context.Background()

	account, sessionID, err := svc.Register(ctx, "a@x.com", "Ann", "pw1", "test")
	require.NoError(t, err)

	resolved, err := svc.ValidateSession(ctx, sessionID)
	require.NoError(t, err)
	assert.Equal(t, account.ID, resolved.ID)

	// Still stored and still bounded by the configured TTL
	session, err := s.GetSession(ctx, sessionID)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), session.ExpiresAt, time.Minute)
}

func TestService_ValidateSession_Unknown(t *testing.T) {
	svc, _ := setupService(t, Config{})

	_, err := svc.ValidateSession(context.Background(), "no-such-session")
	assert.ErrorIs(t, err, ErrSessionInvalid)
}

func TestService_UpdateProfile(t *testing.T) {
	svc, _ := setupService(t, Config{})
	ctx := context.Background()

	account, _, err := svc.Register(ctx, "a@x.com", "Ann", "pw1", "test")
	require.NoError(t, err)

	updated, err := svc.UpdateProfile(ctx, account.ID, "Ann B.", "https://cdn.example.com/ann.png")
	require.NoError(t, err)
	assert.Equal(t, "Ann B.", updated.DisplayName)
	assert.Equal(t, "https://cdn.example.com/ann.png", updated.AvatarURL)
}

func TestService_UpdatePreferences(t *testing.T) {
	svc, _ := setupService(t, Config{})
	ctx := context.Background()

	account, _, err := svc.Register(ctx, "a@x.com", "Ann", "pw1", "test")
	require.NoError(t, err)

	updated, err := svc.UpdatePreferences(ctx, account.ID, store.Preferences{
		Theme:           "dark",
		DefaultPriority: store.PriorityUrgent,
		Timezone:        "Europe/Berlin",
	})
	require.NoError(t, err)
	assert.Equal(t, "dark", updated.Preferences.Theme)
	assert.Equal(t, store.PriorityUrgent, updated.Preferences.DefaultPriority)
}
