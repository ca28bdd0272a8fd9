package services

import (
	"context"
	"errors"
	"io"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/cppla/boardhub/config"
	"github.com/cppla/boardhub/models"
	"github.com/cppla/boardhub/utils"
)

func TestMain(m *testing.M) {
	os.Setenv("JWT_SECRET", "services-test-secret")
	os.Exit(m.Run())
}

type stubBlobs struct {
	deleted []string
	err     error
}

func (s *stubBlobs) Put(context.Context, string, io.Reader) (string, error) {
	return "", errors.New("not used")
}

func (s *stubBlobs) Delete(_ context.Context, rawURL string) error {
	if s.err != nil {
		return s.err
	}
	s.deleted = append(s.deleted, rawURL)
	return nil
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

type fixture struct {
	owner, other models.User
	post         models.Post
	comments     []models.Comment
}

// seed creates one post with two comments carrying three replies in total.
func seed(t *testing.T, db *gorm.DB, image string) fixture {
	t.Helper()
	f := fixture{
		owner: models.User{Username: "owner", Email: "owner@example.com", PasswordHash: "x"},
		other: models.User{Username: "other", Email: "other@example.com", PasswordHash: "x"},
	}
	require.NoError(t, db.Create(&f.owner).Error)
	require.NoError(t, db.Create(&f.other).Error)

	f.post = models.Post{UserID: f.owner.ID, Title: "t", Content: "c", Community: "/gen/"}
	if image != "" {
		f.post.ImageURL = &image
		require.NoError(t, db.Create(&models.UploadedFile{UserID: f.owner.ID, BlobName: "blob.png", URL: image, Attached: true}).Error)
	}
	require.NoError(t, db.Create(&f.post).Error)

	for i := 0; i < 2; i++ {
		c := models.Comment{PostID: f.post.ID, UserID: f.other.ID, CommentText: "c"}
		require.NoError(t, db.Create(&c).Error)
		f.comments = append(f.comments, c)
	}
	for _, cid := range []uint{f.comments[0].ID, f.comments[0].ID, f.comments[1].ID} {
		require.NoError(t, db.Create(&models.Reply{CommentID: cid, UserID: f.owner.ID, ReplyText: "r"}).Error)
	}
	return f
}

func countRows(t *testing.T, db *gorm.DB, model interface{}) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(model).Count(&n).Error)
	return n
}

func TestPostDeleterRemovesWholeThread(t *testing.T) {
	db := openTestDB(t)
	f := seed(t, db, "/static/uploads/blob.png")
	blobs := &stubBlobs{}

	res, err := NewPostDeleter(db, blobs, utils.LogPublisher{}).
		Delete(context.Background(), f.post.ID, Caller{ID: f.owner.ID, Role: models.RoleUser})
	require.NoError(t, err)

	assert.Equal(t, &DeleteResult{PostID: f.post.ID, CommentsRemoved: 2, RepliesRemoved: 3, ImageRemoved: true}, res)
	assert.Equal(t, []string{"/static/uploads/blob.png"}, blobs.deleted)
	assert.Zero(t, countRows(t, db, &models.Post{}))
	assert.Zero(t, countRows(t, db, &models.Comment{}))
	assert.Zero(t, countRows(t, db, &models.Reply{}))
	assert.Zero(t, countRows(t, db, &models.UploadedFile{}))
	assert.EqualValues(t, 2, countRows(t, db, &models.User{}))
}

func TestPostDeleterWithoutImageSkipsBlobStore(t *testing.T) {
	db := openTestDB(t)
	f := seed(t, db, "")
	blobs := &stubBlobs{err: errors.New("must not be called")}

	res, err := NewPostDeleter(db, blobs, utils.LogPublisher{}).
		Delete(context.Background(), f.post.ID, Caller{ID: f.owner.ID})
	require.NoError(t, err)
	assert.False(t, res.ImageRemoved)
	assert.Zero(t, countRows(t, db, &models.Post{}))
}

func TestPostDeleterBlobFailureRollsBack(t *testing.T) {
	db := openTestDB(t)
	f := seed(t, db, "/static/uploads/blob.png")
	blobs := &stubBlobs{err: errors.New("disk on fire")}

	_, err := NewPostDeleter(db, blobs, utils.LogPublisher{}).
		Delete(context.Background(), f.post.ID, Caller{ID: f.owner.ID})
	require.Error(t, err)

	var se *Error
	require.ErrorAs(t, err, &se)
	assert.Equal(t, KindExternal, se.Kind)
	assert.Equal(t, "failed to delete associated image", se.Message)
	assert.EqualValues(t, 1, countRows(t, db, &models.Post{}))
	assert.EqualValues(t, 2, countRows(t, db, &models.Comment{}))
	assert.EqualValues(t, 3, countRows(t, db, &models.Reply{}))
	assert.EqualValues(t, 1, countRows(t, db, &models.UploadedFile{}))
}

func TestPostDeleterAuthorization(t *testing.T) {
	db := openTestDB(t)
	f := seed(t, db, "/static/uploads/blob.png")
	blobs := &stubBlobs{}
	d := NewPostDeleter(db, blobs, utils.LogPublisher{})

	_, err := d.Delete(context.Background(), f.post.ID, Caller{ID: f.other.ID, Role: models.RoleUser})
	assert.Equal(t, KindForbidden, KindOf(err))
	assert.Empty(t, blobs.deleted, "no side effect before the ownership check")
	assert.EqualValues(t, 1, countRows(t, db, &models.Post{}))

	_, err = d.Delete(context.Background(), 9999, Caller{ID: f.other.ID})
	assert.Equal(t, KindNotFound, KindOf(err))

	_, err = d.Delete(context.Background(), f.post.ID, Caller{ID: f.other.ID, Role: models.RoleAdmin})
	require.NoError(t, err)

	_, err = d.Delete(context.Background(), f.post.ID, Caller{ID: f.owner.ID})
	assert.Equal(t, KindNotFound, KindOf(err))
}

func TestPostDeleterLeavesForeignImage(t *testing.T) {
	db := openTestDB(t)
	f := seed(t, db, "")

	// an upload owned by someone else, referenced by the owner's second post
	img := "/static/uploads/theirs.png"
	require.NoError(t, db.Create(&models.UploadedFile{UserID: f.other.ID, BlobName: "theirs.png", URL: img, Attached: true}).Error)
	p := models.Post{UserID: f.owner.ID, Title: "t", Content: "c", Community: "/gen/", ImageURL: &img}
	require.NoError(t, db.Create(&p).Error)

	orphan := "/static/uploads/gone.png"
	q := models.Post{UserID: f.owner.ID, Title: "t", Content: "c", Community: "/gen/", ImageURL: &orphan}
	require.NoError(t, db.Create(&q).Error)

	blobs := &stubBlobs{err: errors.New("must not be called")}
	d := NewPostDeleter(db, blobs, utils.LogPublisher{})
	for _, id := range []uint{p.ID, q.ID} {
		res, err := d.Delete(context.Background(), id, Caller{ID: f.owner.ID})
		require.NoError(t, err)
		assert.False(t, res.ImageRemoved)
	}

	assert.Empty(t, blobs.deleted)
	assert.EqualValues(t, 1, countRows(t, db, &models.UploadedFile{}))
	assert.EqualValues(t, 1, countRows(t, db, &models.Post{}))
}
