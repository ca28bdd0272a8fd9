package utils

import (
	"os"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/cppla/boardhub/config"
)

func TestMain(m *testing.M) {
	os.Setenv("JWT_SECRET", "utils-test-secret")
	os.Exit(m.Run())
}

func TestGenerateAndParseToken(t *testing.T) {
	token, err := GenerateToken(7, "alice", "admin")
	require.NoError(t, err)

	claims, err := ParseToken(token)
	require.NoError(t, err)
	assert.EqualValues(t, 7, claims.UserID)
	assert.Equal(t, "alice", claims.Username)
	assert.Equal(t, "admin", claims.Role)
	require.NotNil(t, claims.ExpiresAt)
	assert.WithinDuration(t, time.Now().Add(config.Get().JWTExpiresIn), claims.ExpiresAt.Time, time.Minute)
}

func sign(t *testing.T, claims Claims, secret string) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return s
}

func TestParseTokenRejects(t *testing.T) {
	secret := config.Get().JWTSecret
	past := jwt.NewNumericDate(time.Now().Add(-time.Hour))
	future := jwt.NewNumericDate(time.Now().Add(time.Hour))

	_, err := ParseToken(sign(t, Claims{UserID: 1, RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: past}}, secret))
	assert.ErrorIs(t, err, ErrTokenExpired)

	_, err = ParseToken(sign(t, Claims{UserID: 1, RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: future}}, "other-secret"))
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrTokenExpired)

	_, err = ParseToken(sign(t, Claims{UserID: 0, RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: future}}, secret))
	assert.Error(t, err)

	_, err = ParseToken("not-a-token")
	assert.Error(t, err)
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("secret123")
	require.NoError(t, err)
	assert.NotEqual(t, "secret123", hash)
	assert.True(t, CheckPassword(hash, "secret123"))
	assert.False(t, CheckPassword(hash, "secret124"))
}

func TestCheckPasswordDummy(t *testing.T) {
	cost, err := bcrypt.Cost(dummyHash())
	require.NoError(t, err)
	assert.Equal(t, PasswordCost, cost)

	assert.False(t, CheckPasswordDummy("no such user"))
	assert.False(t, CheckPasswordDummy(""))
}

func TestSanitize(t *testing.T) {
	assert.Equal(t, "hello", Sanitize("  <script>x()</script>hello "))
	assert.Equal(t, "<b>bold</b>", Sanitize("<b onclick=\"x()\">bold</b>"))
	assert.Equal(t, "", Sanitize("   "))
}
