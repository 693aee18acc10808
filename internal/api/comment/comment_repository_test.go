package comment

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/go-blog-api/internal/types"
)

var commentColumnNames = []string{"id", "content", "post_id", "user_id", "likes", "cardinality", "created_at", "updated_at"}

func newMockRepo(t *testing.T) (*PostgresCommentRepo, pgxmock.PgxPoolIface) {
	t.Helper()
	pool, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	return NewPostgresCommentRepo(pool, discardLogger(), nil), pool
}

func TestRepoCreateComment(t *testing.T) {
	repo, pool := newMockRepo(t)
	id := uuid.New()
	now := time.Now()
	c := &types.Comment{Content: "hi", PostID: uuid.New(), UserID: uuid.New()}

	pool.ExpectQuery("INSERT INTO comments").
		WithArgs(c.Content, c.PostID, c.UserID).
		WillReturnRows(pgxmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow(id, now, now))

	require.NoError(t, repo.CreateComment(context.Background(), c))
	assert.Equal(t, id, c.ID)
	assert.NotNil(t, c.Likes)
	assert.NoError(t, pool.ExpectationsWereMet())
}

func TestRepoCreateCommentMissingPost(t *testing.T) {
	repo, pool := newMockRepo(t)
	pool.ExpectQuery("INSERT INTO comments").
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnError(&pgconn.PgError{Code: "23503", ConstraintName: "comments_post_id_fkey"})

	err := repo.CreateComment(context.Background(), &types.Comment{Content: "hi"})
	assert.ErrorIs(t, err, types.ErrNotFound)
	assert.Equal(t, "Post not found", types.PublicMessage(err, ""))
	assert.NoError(t, pool.ExpectationsWereMet())
}

func TestRepoToggleLike(t *testing.T) {
	repo, pool := newMockRepo(t)
	commentID, userID := uuid.New(), uuid.New()
	now := time.Now()

	pool.ExpectQuery(`UPDATE comments\s+SET likes = CASE WHEN \$2 = ANY\(likes\) THEN array_remove\(likes, \$2\) ELSE array_append\(likes, \$2\) END`).
		WithArgs(commentID, userID).
		WillReturnRows(pgxmock.NewRows(commentColumnNames).
			AddRow(commentID, "hi", uuid.New(), uuid.New(), []uuid.UUID{userID}, 1, now, now))

	c, err := repo.ToggleLike(context.Background(), commentID, userID)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{userID}, c.Likes)
	assert.Equal(t, 1, c.NumberOfLikes)

	pool.ExpectQuery("UPDATE comments").WithArgs(commentID, userID).WillReturnError(pgx.ErrNoRows)
	_, err = repo.ToggleLike(context.Background(), commentID, userID)
	assert.ErrorIs(t, err, types.ErrNotFound)
	assert.NoError(t, pool.ExpectationsWereMet())
}

func TestRepoListPostCommentsNewestFirst(t *testing.T) {
	repo, pool := newMockRepo(t)
	postID := uuid.New()
	now := time.Now()

	pool.ExpectQuery(`SELECT (.+) FROM comments WHERE post_id = \$1 ORDER BY created_at DESC`).
		WithArgs(postID).
		WillReturnRows(pgxmock.NewRows(commentColumnNames).
			AddRow(uuid.New(), "newer", postID, uuid.New(), []uuid.UUID{}, 0, now, now).
			AddRow(uuid.New(), "older", postID, uuid.New(), []uuid.UUID{}, 0, now.Add(-time.Hour), now))

	comments, err := repo.ListPostComments(context.Background(), postID)
	require.NoError(t, err)
	require.Len(t, comments, 2)
	assert.Equal(t, "newer", comments[0].Content)
}

func TestRepoListComments(t *testing.T) {
	repo, pool := newMockRepo(t)
	pool.ExpectQuery(`SELECT (.+) FROM comments ORDER BY created_at ASC LIMIT \$1 OFFSET \$2`).
		WithArgs(9, 0).
		WillReturnRows(pgxmock.NewRows(commentColumnNames))

	comments, err := repo.ListComments(context.Background(), types.ListOptions{Limit: 9, Ascending: true})
	require.NoError(t, err)
	assert.Empty(t, comments)
	assert.NotNil(t, comments)
}

func TestRepoDeleteComment(t *testing.T) {
	repo, pool := newMockRepo(t)
	id := uuid.New()
	pool.ExpectExec("DELETE FROM comments").WithArgs(id).WillReturnResult(pgxmock.NewResult("DELETE", 0))
	assert.ErrorIs(t, repo.DeleteComment(context.Background(), id), types.ErrNotFound)
}
