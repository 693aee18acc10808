package post

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

var postColumnNames = []string{"id", "user_id", "title", "content", "image", "category", "slug", "created_at", "updated_at"}

func newMockRepo(t *testing.T) (*PostgresPostRepo, pgxmock.PgxPoolIface) {
	t.Helper()
	pool, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	return NewPostgresPostRepo(pool, discardLogger(), nil), pool
}

func TestRepoCreatePost(t *testing.T) {
	repo, pool := newMockRepo(t)
	id := uuid.New()
	now := time.Now()
	p := &types.Post{UserID: uuid.New(), Title: "Hello", Content: "c", Image: "i", Category: "go", Slug: "hello"}

	pool.ExpectQuery("INSERT INTO posts").
		WithArgs(p.UserID, p.Title, p.Content, p.Image, p.Category, p.Slug).
		WillReturnRows(pgxmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow(id, now, now))

	require.NoError(t, repo.CreatePost(context.Background(), p))
	assert.Equal(t, id, p.ID)
	assert.Equal(t, now, p.CreatedAt)
	assert.NoError(t, pool.ExpectationsWereMet())
}

func TestRepoCreatePostDuplicate(t *testing.T) {
	repo, pool := newMockRepo(t)
	pool.ExpectQuery("INSERT INTO posts").
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "posts_slug_key"})

	err := repo.CreatePost(context.Background(), &types.Post{Title: "Hello", Slug: "hello"})
	assert.ErrorIs(t, err, types.ErrConflict)
	assert.Equal(t, "A post with this title already exists", types.PublicMessage(err, ""))
	assert.NoError(t, pool.ExpectationsWereMet())
}

func TestRepoGetPostBySlug(t *testing.T) {
	repo, pool := newMockRepo(t)
	now := time.Now()

	pool.ExpectQuery(`SELECT (.+) FROM posts WHERE slug = \$1`).WithArgs("hello").
		WillReturnRows(pgxmock.NewRows(postColumnNames).
			AddRow(uuid.New(), uuid.New(), "Hello", "c", "i", "go", "hello", now, now))
	p, err := repo.GetPostBySlug(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, "Hello", p.Title)

	missing := uuid.New()
	pool.ExpectQuery(`SELECT (.+) FROM posts WHERE id = \$1`).WithArgs(missing).WillReturnError(pgx.ErrNoRows)
	_, err = repo.GetPostByID(context.Background(), missing)
	assert.ErrorIs(t, err, types.ErrNotFound)
	assert.NoError(t, pool.ExpectationsWereMet())
}

func TestRepoListPostsFilters(t *testing.T) {
	repo, pool := newMockRepo(t)
	author := uuid.New()
	now := time.Now()

	pool.ExpectQuery(`SELECT (.+) FROM posts WHERE user_id = \$1 AND category = \$2 AND \(title ILIKE \$3 OR content ILIKE \$3\) ORDER BY updated_at DESC LIMIT \$4 OFFSET \$5`).
		WithArgs(author, "go", "%gopher%", 9, 18).
		WillReturnRows(pgxmock.NewRows(postColumnNames).
			AddRow(uuid.New(), author, "Gophers", "c", "i", "go", "gophers", now, now))

	posts, err := repo.ListPosts(context.Background(), types.PostFilter{
		ListOptions: types.ListOptions{StartIndex: 18, Limit: 9},
		UserID:      author,
		Category:    "go",
		SearchTerm:  "gopher",
	})
	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.Equal(t, "gophers", posts[0].Slug)
	assert.NoError(t, pool.ExpectationsWereMet())
}

func TestRepoListPostsSearchIsLiteral(t *testing.T) {
	repo, pool := newMockRepo(t)
	pool.ExpectQuery(`SELECT (.+) FROM posts WHERE \(title ILIKE \$1 OR content ILIKE \$1\)`).
		WithArgs(`%100\%\_off%`, 9, 0).
		WillReturnRows(pgxmock.NewRows(postColumnNames))

	_, err := repo.ListPosts(context.Background(), types.PostFilter{
		ListOptions: types.ListOptions{Limit: 9},
		SearchTerm:  "100%_off",
	})
	require.NoError(t, err)
	assert.NoError(t, pool.ExpectationsWereMet())
}

func TestRepoListPostsUnfiltered(t *testing.T) {
	repo, pool := newMockRepo(t)
	pool.ExpectQuery(`SELECT (.+) FROM posts ORDER BY updated_at ASC LIMIT \$1 OFFSET \$2`).
		WithArgs(5, 0).
		WillReturnRows(pgxmock.NewRows(postColumnNames))

	posts, err := repo.ListPosts(context.Background(), types.PostFilter{ListOptions: types.ListOptions{Limit: 5, Ascending: true}})
	require.NoError(t, err)
	assert.NotNil(t, posts)
	assert.Empty(t, posts)
}

func TestRepoUpdatePost(t *testing.T) {
	repo, pool := newMockRepo(t)
	id := uuid.New()
	now := time.Now()
	title, newSlug := "New", "new"

	pool.ExpectQuery(`UPDATE posts SET title = \$1, slug = \$2, updated_at = NOW\(\) WHERE id = \$3 RETURNING`).
		WithArgs(title, newSlug, id).
		WillReturnRows(pgxmock.NewRows(postColumnNames).AddRow(id, uuid.New(), title, "c", "i", "go", newSlug, now, now))

	p, err := repo.UpdatePost(context.Background(), id, types.UpdatePostParams{Title: &title, Slug: &newSlug})
	require.NoError(t, err)
	assert.Equal(t, newSlug, p.Slug)

	_, err = repo.UpdatePost(context.Background(), id, types.UpdatePostParams{})
	assert.ErrorIs(t, err, types.ErrValidation)
	assert.NoError(t, pool.ExpectationsWereMet())
}

func TestRepoDeletePost(t *testing.T) {
	repo, pool := newMockRepo(t)
	id := uuid.New()

	pool.ExpectExec("DELETE FROM posts").WithArgs(id).WillReturnResult(pgxmock.NewResult("DELETE", 0))
	assert.ErrorIs(t, repo.DeletePost(context.Background(), id), types.ErrNotFound)
}
