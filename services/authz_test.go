package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cppla/boardhub/models"
)

func TestCanMutate(t *testing.T) {
	user := Caller{ID: 7, Role: models.RoleUser}
	admin := Caller{ID: 1, Role: models.RoleAdmin}

	assert.True(t, CanMutate(7, user))
	assert.False(t, CanMutate(8, user))
	assert.True(t, CanMutate(8, admin))
	assert.False(t, CanMutate(7, Caller{}), "anonymous caller never matches")
	assert.False(t, CanMutate(0, Caller{Role: models.RoleAdmin}))
}

func TestErrorKinds(t *testing.T) {
	cases := []struct {
		err    *Error
		status int
	}{
		{Validation(40000, "bad"), http.StatusBadRequest},
		{Unauthenticated(40100, "who"), http.StatusUnauthorized},
		{UserVanished(40106, "gone"), http.StatusUnauthorized},
		{Forbidden(40300, "no"), http.StatusForbidden},
		{NotFound(40400, "missing"), http.StatusNotFound},
		{Conflict(40900, "dup"), http.StatusConflict},
		{External(50000, "blob", errors.New("x")), http.StatusInternalServerError},
		{Internal(50000, "db", errors.New("x")), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.status, tc.err.Kind.Status(), tc.err.Message)
	}

	cause := errors.New("root cause")
	wrapped := fmt.Errorf("outer: %w", Internal(50000, "failed", cause))
	assert.Equal(t, KindInternal, KindOf(wrapped))
	assert.ErrorIs(t, wrapped, cause)
	assert.Equal(t, KindInternal, KindOf(errors.New("plain")))
}

func TestPromoteAdmins(t *testing.T) {
	db := openTestDB(t)
	for _, name := range []string{"alice", "bob"} {
		require.NoError(t, db.Create(&models.User{Username: name, Email: name + "@example.com", PasswordHash: "x"}).Error)
	}

	n, err := PromoteAdmins(context.Background(), db, []string{" alice ", "ghost", ""})
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	var alice, bob models.User
	require.NoError(t, db.Where("username = ?", "alice").First(&alice).Error)
	require.NoError(t, db.Where("username = ?", "bob").First(&bob).Error)
	assert.Equal(t, models.RoleAdmin, alice.Role)
	assert.Equal(t, models.RoleUser, bob.Role)

	n, err = PromoteAdmins(context.Background(), db, []string{"alice"})
	require.NoError(t, err)
	assert.Zero(t, n, "already an admin")
}

func TestDatabaseErrorClassification(t *testing.T) {
	db := openTestDB(t)
	u := models.User{Username: "alice", Email: "alice@example.com", PasswordHash: "x"}
	require.NoError(t, db.Create(&u).Error)

	err := db.Create(&models.User{Username: "alice", Email: "other@example.com", PasswordHash: "x"}).Error
	assert.True(t, IsDuplicateKey(err), "%v", err)

	require.NoError(t, db.Create(&models.Post{UserID: u.ID, Title: "t", Content: "c", Community: "/gen/"}).Error)
	err = db.Delete(&models.User{}, u.ID).Error
	assert.True(t, IsForeignKeyViolation(err), "%v", err)
	assert.False(t, IsDuplicateKey(err))
}

func TestDriverErrorCodes(t *testing.T) {
	wrap := func(err error) error { return fmt.Errorf("delete user: %w", err) }

	assert.True(t, IsForeignKeyViolation(wrap(sqlite3.Error{Code: sqlite3.ErrConstraint, ExtendedCode: sqlite3.ErrConstraintTrigger})))
	assert.True(t, IsForeignKeyViolation(wrap(sqlite3.Error{Code: sqlite3.ErrConstraint, ExtendedCode: sqlite3.ErrConstraintForeignKey})))
	assert.True(t, IsForeignKeyViolation(wrap(&mysql.MySQLError{Number: 1451})))
	assert.True(t, IsDuplicateKey(wrap(sqlite3.Error{Code: sqlite3.ErrConstraint, ExtendedCode: sqlite3.ErrConstraintUnique})))
	assert.True(t, IsDuplicateKey(wrap(&mysql.MySQLError{Number: 1062})))

	notNull := sqlite3.Error{Code: sqlite3.ErrConstraint, ExtendedCode: sqlite3.ErrConstraintNotNull}
	assert.False(t, IsForeignKeyViolation(notNull))
	assert.False(t, IsDuplicateKey(notNull))
	assert.False(t, IsForeignKeyViolation(errors.New("boom")))
}
