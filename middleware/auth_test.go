package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/cppla/boardhub/config"
	"github.com/cppla/boardhub/models"
	"github.com/cppla/boardhub/utils"
)

func TestMain(m *testing.M) {
	os.Setenv("JWT_SECRET", "middleware-test-secret")
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := config.OpenDatabase(config.AppConfig{DBDriver: "sqlite", SQLitePath: ":memory:", LogLevel: "silent"}, models.All()...)
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

func newEngine(db *gorm.DB) *gin.Engine {
	r := gin.New()
	r.GET("/me", AuthRequired(db), func(ctx *gin.Context) {
		caller, _ := CurrentCaller(ctx)
		ctx.JSON(http.StatusOK, caller)
	})
	r.GET("/admin", AuthRequired(db), AdminRequired(), func(ctx *gin.Context) {
		ctx.Status(http.StatusNoContent)
	})
	return r
}

func call(r *gin.Engine, path, authHeader string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func codeOf(t *testing.T, w *httptest.ResponseRecorder) int {
	t.Helper()
	var e utils.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &e))
	return e.Code
}

func TestAuthRequiredRejectsBadHeaders(t *testing.T) {
	r := newEngine(openTestDB(t))

	cases := map[string]int{
		"":              40101,
		"Token abc":     40102,
		"Bearer ":       40103,
		"Bearer abc.de": 40105,
	}
	for header, code := range cases {
		w := call(r, "/me", header)
		assert.Equal(t, http.StatusUnauthorized, w.Code, header)
		assert.Equal(t, code, codeOf(t, w), header)
	}
}

func TestAuthRequiredUsesStoredRole(t *testing.T) {
	db := openTestDB(t)
	r := newEngine(db)

	u := models.User{Username: "alice", Email: "alice@example.com", PasswordHash: "x"}
	require.NoError(t, db.Create(&u).Error)
	// the token claims admin, the row says user
	token, err := utils.GenerateToken(u.ID, u.Username, models.RoleAdmin)
	require.NoError(t, err)

	w := call(r, "/me", "Bearer "+token)
	require.Equal(t, http.StatusOK, w.Code)
	var caller struct {
		ID   uint   `json:"id"`
		Role string `json:"role"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &caller))
	assert.Equal(t, u.ID, caller.ID)
	assert.Equal(t, models.RoleUser, caller.Role)

	w = call(r, "/admin", "Bearer "+token)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, 40300, codeOf(t, w))

	require.NoError(t, db.Model(&u).Update("role", models.RoleAdmin).Error)
	assert.Equal(t, http.StatusNoContent, call(r, "/admin", "Bearer "+token).Code)
}

func TestAuthRequiredUserVanished(t *testing.T) {
	db := openTestDB(t)
	r := newEngine(db)

	token, err := utils.GenerateToken(42, "ghost", models.RoleUser)
	require.NoError(t, err)

	w := call(r, "/me", "Bearer "+token)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, 40106, codeOf(t, w))
}

func TestRateLimit(t *testing.T) {
	r := gin.New()
	r.GET("/x", RateLimit(2), func(ctx *gin.Context) { ctx.Status(http.StatusOK) })

	// burst is half the per-minute budget
	assert.Equal(t, http.StatusOK, call(r, "/x", "").Code)
	w := call(r, "/x", "")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, 42901, codeOf(t, w))
}
