package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/coffee-storefront/internal/infrastructure/storage"
	"github.com/example/coffee-storefront/internal/infrastructure/storage/mocks"
)

func signedToken(t *testing.T, userID string, expiresAt time.Time) string {
	t.Helper()
	claims := Claims{
		UserID: userID,
		Email:  userID + "@example.com",
		Role:   "customer",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			Subject:   userID,
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("any-secret"))
	require.NoError(t, err)
	return token
}

// ============================================
// ParseClaims Tests
// ============================================

func TestParseClaims_Unverified(t *testing.T) {
	token := signedToken(t, "user-123", time.Now().Add(time.Hour))

	claims, err := ParseClaims(token)

	require.NoError(t, err)
	assert.Equal(t, "user-123", claims.UserID)
	assert.Equal(t, "user-123@example.com", claims.Email)
}

func TestParseClaims_FallsBackToSubject(t *testing.T) {
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{Subject: "user-9"}).
		SignedString([]byte("secret"))
	require.NoError(t, err)

	claims, err := ParseClaims(token)

	require.NoError(t, err)
	assert.Equal(t, "user-9", claims.UserID)
}

func TestParseClaims_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		token string
	}{
		{"empty", ""},
		{"garbage", "not-a-token"},
		{"two segments", "abc.def"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseClaims(tt.token)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

// ============================================
// Session Tests
// ============================================

func TestSession_GuestByDefault(t *testing.T) {
	s, err := NewSession(storage.NewMemory())

	require.NoError(t, err)
	assert.False(t, s.IsLoggedIn())
	assert.Empty(t, s.Token())
	_, ok := s.Claims()
	assert.False(t, ok)
}

func TestSession_LoginPersistsToken(t *testing.T) {
	store := storage.NewMemory()
	s, err := NewSession(store)
	require.NoError(t, err)
	token := signedToken(t, "user-1", time.Now().Add(time.Hour))

	require.NoError(t, s.Login(token))

	assert.True(t, s.IsLoggedIn())
	assert.Equal(t, token, s.Token())
	stored, ok, _ := store.GetItem(storage.KeyAuthToken)
	assert.True(t, ok)
	assert.Equal(t, token, stored)

	restored, err := NewSession(store)
	require.NoError(t, err)
	assert.True(t, restored.IsLoggedIn())
	claims, ok := restored.Claims()
	require.True(t, ok)
	assert.Equal(t, "user-1", claims.UserID)
}

func TestSession_LoginRejectsExpiredToken(t *testing.T) {
	store := mocks.NewMockStorage()
	s, err := NewSession(store)
	require.NoError(t, err)

	err = s.Login(signedToken(t, "user-1", time.Now().Add(-time.Minute)))

	assert.ErrorIs(t, err, ErrExpiredToken)
	assert.False(t, s.IsLoggedIn())
	assert.Empty(t, store.SetCalls)
}

func TestSession_ExpiresWithClock(t *testing.T) {
	s, err := NewSession(storage.NewMemory())
	require.NoError(t, err)
	expiresAt := time.Now().Add(time.Hour)
	require.NoError(t, s.Login(signedToken(t, "user-1", expiresAt)))

	s.SetClock(func() time.Time { return expiresAt.Add(time.Second) })

	assert.False(t, s.IsLoggedIn())
	assert.Empty(t, s.Token())
}

func TestSession_Logout(t *testing.T) {
	store := storage.NewMemory()
	s, err := NewSession(store)
	require.NoError(t, err)
	require.NoError(t, s.Login(signedToken(t, "user-1", time.Now().Add(time.Hour))))

	require.NoError(t, s.Logout())

	assert.False(t, s.IsLoggedIn())
	_, ok, _ := store.GetItem(storage.KeyAuthToken)
	assert.False(t, ok)
}

func TestSession_ReloadFollowsStorage(t *testing.T) {
	store := storage.NewMemory()
	s, err := NewSession(store)
	require.NoError(t, err)

	// another process logs in
	other, err := NewSession(store)
	require.NoError(t, err)
	require.NoError(t, other.Login(signedToken(t, "user-2", time.Now().Add(time.Hour))))
	assert.False(t, s.IsLoggedIn())

	require.NoError(t, s.Reload())
	claims, ok := s.Claims()
	require.True(t, ok)
	assert.Equal(t, "user-2", claims.UserID)

	require.NoError(t, other.Logout())
	require.NoError(t, s.Reload())
	assert.False(t, s.IsLoggedIn())
}

func TestSession_DiscardsCorruptPersistedToken(t *testing.T) {
	store := mocks.NewMockStorage()
	store.SetData(storage.KeyAuthToken, "corrupt")

	s, err := NewSession(store)

	require.NoError(t, err)
	assert.False(t, s.IsLoggedIn())
	assert.Equal(t, []string{storage.KeyAuthToken}, store.RemoveCalls)
}

// ============================================
// Issuer Tests
// ============================================

func newTestIssuer() *Issuer {
	return NewIssuer("test-secret-key-for-testing-purposes", 15*time.Minute).WithBcryptCost(4)
}

func TestIssuer_GenerateAndValidate(t *testing.T) {
	issuer := newTestIssuer()

	token, expiresAt, err := issuer.GenerateAccessToken("user-456", "test@example.com", "admin")
	require.NoError(t, err)
	assert.True(t, expiresAt.After(time.Now()))

	claims, err := issuer.ValidateAccessToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user-456", claims.UserID)
	assert.Equal(t, "admin", claims.Role)
	assert.Equal(t, "user-456", claims.Subject)
}

func TestIssuer_ValidateRejectsOtherSecret(t *testing.T) {
	token, _, err := NewIssuer("another-secret", time.Minute).GenerateAccessToken("u", "e", "customer")
	require.NoError(t, err)

	_, err = newTestIssuer().ValidateAccessToken(token)

	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestIssuer_ValidateExpired(t *testing.T) {
	token := signedToken(t, "user-1", time.Now().Add(-time.Minute))
	issuer := NewIssuer("any-secret", time.Minute)

	_, err := issuer.ValidateAccessToken(token)

	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestIssuer_HashPassword(t *testing.T) {
	issuer := newTestIssuer()

	hash, err := issuer.HashPassword("correct horse")
	require.NoError(t, err)

	assert.True(t, CheckPassword("correct horse", hash))
	assert.False(t, CheckPassword("wrong horse", hash))

	_, err = issuer.HashPassword("short")
	assert.ErrorIs(t, err, ErrPasswordTooShort)
}
