package auth

import (
	"context"
	"errors"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/markbates/goth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/FACorreiaa/go-blog-api/internal/types"
)

func newTestService(t *testing.T, repo UserRepo) (*AuthServiceImpl, *TokenManager) {
	t.Helper()
	tokens, err := NewTokenManager(testSecret, time.Hour)
	require.NoError(t, err)
	return NewAuthService(repo, NewPasswordHasher(bcrypt.MinCost), tokens, discardLogger(), nil), tokens
}

func TestSignupThenSignin(t *testing.T) {
	repo := newMemUserRepo()
	svc, tokens := newTestService(t, repo)
	ctx := context.Background()

	user, err := svc.Signup(ctx, types.SignupRequest{Username: "alice", Email: "a@x.com", Password: "secret1"})
	require.NoError(t, err)
	assert.NotEqual(t, "secret1", user.Password)
	assert.False(t, user.IsAdmin)
	assert.Equal(t, types.DefaultProfilePicture, user.ProfilePicture)

	session, err := svc.Signin(ctx, types.SigninRequest{Email: "A@x.com", Password: "secret1"})
	require.NoError(t, err)
	identity, err := tokens.Verify(session.Token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, identity.ID)
	assert.Equal(t, user.ID, session.User.ID)
}

func TestSignupValidation(t *testing.T) {
	svc, _ := newTestService(t, newMemUserRepo())
	ctx := context.Background()

	cases := map[string]types.SignupRequest{
		"missing username": {Email: "a@x.com", Password: "secret1"},
		"missing email":    {Username: "alice", Password: "secret1"},
		"missing password": {Username: "alice", Email: "a@x.com"},
		"bad email":        {Username: "alice", Email: "not-an-email", Password: "secret1"},
		"display name":     {Username: "alice", Email: "Alice <a@x.com>", Password: "secret1"},
	}
	for name, req := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.Signup(ctx, req)
			assert.ErrorIs(t, err, types.ErrValidation)
		})
	}
}

func TestSignupDuplicateEmailLeavesCountUnchanged(t *testing.T) {
	repo := newMemUserRepo()
	svc, _ := newTestService(t, repo)
	ctx := context.Background()

	_, err := svc.Signup(ctx, types.SignupRequest{Username: "alice", Email: "a@x.com", Password: "secret1"})
	require.NoError(t, err)
	before := repo.count()

	_, err = svc.Signup(ctx, types.SignupRequest{Username: "alice2", Email: "a@x.com", Password: "secret1"})
	assert.ErrorIs(t, err, types.ErrConflict)
	assert.Equal(t, before, repo.count())
}

func TestConcurrentSignupsSameEmail(t *testing.T) {
	repo := newMemUserRepo()
	svc, _ := newTestService(t, repo)

	const n = 8
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = svc.Signup(context.Background(), types.SignupRequest{
				Username: "user" + string(rune('a'+i)),
				Email:    "race@x.com",
				Password: "secret1",
			})
		}()
	}
	wg.Wait()

	var ok, conflicts int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, types.ErrConflict):
			conflicts++
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, n-1, conflicts)
	assert.Equal(t, 1, repo.count())
}

func TestSigninGenericFailure(t *testing.T) {
	repo := newMemUserRepo()
	svc, _ := newTestService(t, repo)
	ctx := context.Background()
	_, err := svc.Signup(ctx, types.SignupRequest{Username: "alice", Email: "a@x.com", Password: "secret1"})
	require.NoError(t, err)

	_, wrongPassword := svc.Signin(ctx, types.SigninRequest{Email: "a@x.com", Password: "wrong"})
	_, unknownEmail := svc.Signin(ctx, types.SigninRequest{Email: "nobody@x.com", Password: "wrong"})

	require.ErrorIs(t, wrongPassword, types.ErrUnauthenticated)
	require.ErrorIs(t, unknownEmail, types.ErrUnauthenticated)
	assert.Equal(t, wrongPassword.Error(), unknownEmail.Error())
	assert.Equal(t, types.PublicMessage(wrongPassword, ""), types.PublicMessage(unknownEmail, ""))
}

func TestSigninMissingFields(t *testing.T) {
	svc, _ := newTestService(t, newMemUserRepo())
	_, err := svc.Signin(context.Background(), types.SigninRequest{Email: "a@x.com"})
	assert.ErrorIs(t, err, types.ErrValidation)
}

func TestSigninRepoFailure(t *testing.T) {
	repo := new(MockUserRepo)
	svc, _ := newTestService(t, repo)
	dbErr := errors.New("connection reset")
	repo.On("GetUserByEmail", mock.Anything, "a@x.com").Return(nil, dbErr)

	_, err := svc.Signin(context.Background(), types.SigninRequest{Email: "a@x.com", Password: "secret1"})
	assert.ErrorIs(t, err, dbErr)
	assert.NotErrorIs(t, err, types.ErrUnauthenticated)
	repo.AssertExpectations(t)
}

func TestSignInWithGoogle(t *testing.T) {
	repo := newMemUserRepo()
	svc, tokens := newTestService(t, repo)
	ctx := context.Background()
	gu := goth.User{Name: "Alice Doe", Email: "Alice@Gmail.com", AvatarURL: "https://img/alice.png"}

	first, err := svc.SignInWithGoogle(ctx, gu)
	require.NoError(t, err)
	assert.Equal(t, 1, repo.count())
	assert.Equal(t, "alice@gmail.com", first.User.Email)
	assert.Equal(t, "https://img/alice.png", first.User.ProfilePicture)
	assert.Regexp(t, regexp.MustCompile(`^alicedoe\d{4}$`), first.User.Username)
	assert.NotEmpty(t, first.User.Password)
	_, err = bcrypt.Cost([]byte(first.User.Password))
	assert.NoError(t, err, "stored password must be a bcrypt digest")

	second, err := svc.SignInWithGoogle(ctx, gu)
	require.NoError(t, err)
	assert.Equal(t, 1, repo.count())
	assert.Equal(t, first.User.ID, second.User.ID)

	identity, err := tokens.Verify(second.Token)
	require.NoError(t, err)
	assert.Equal(t, first.User.ID, identity.ID)
}

func TestSignInWithGoogleReusesLocalAccount(t *testing.T) {
	repo := newMemUserRepo()
	svc, _ := newTestService(t, repo)
	ctx := context.Background()

	local, err := svc.Signup(ctx, types.SignupRequest{Username: "alice", Email: "a@x.com", Password: "secret1"})
	require.NoError(t, err)

	session, err := svc.SignInWithGoogle(ctx, goth.User{Name: "Alice", Email: "a@x.com"})
	require.NoError(t, err)
	assert.Equal(t, local.ID, session.User.ID)
	assert.Equal(t, 1, repo.count())
}

func TestSignInWithGoogleUsernameClashRetries(t *testing.T) {
	repo := new(MockUserRepo)
	svc, _ := newTestService(t, repo)

	repo.On("GetUserByEmail", mock.Anything, "bob@x.com").Return(nil, types.ErrNotFound)
	repo.On("CreateUser", mock.Anything, mock.AnythingOfType("*types.User")).Return(ErrUsernameTaken).Once()
	repo.On("CreateUser", mock.Anything, mock.AnythingOfType("*types.User")).Return(nil).Once()

	session, err := svc.SignInWithGoogle(context.Background(), goth.User{Name: "Bob", Email: "bob@x.com"})
	require.NoError(t, err)
	assert.Regexp(t, `^bob\d{4}$`, session.User.Username)
	repo.AssertNumberOfCalls(t, "CreateUser", 2)
}

func TestSignInWithGoogleEmailRaceIsConflict(t *testing.T) {
	repo := new(MockUserRepo)
	svc, _ := newTestService(t, repo)

	repo.On("GetUserByEmail", mock.Anything, "bob@x.com").Return(nil, types.ErrNotFound)
	repo.On("CreateUser", mock.Anything, mock.AnythingOfType("*types.User")).Return(ErrEmailTaken).Once()

	_, err := svc.SignInWithGoogle(context.Background(), goth.User{Name: "Bob", Email: "bob@x.com"})
	assert.ErrorIs(t, err, types.ErrConflict)
	repo.AssertNumberOfCalls(t, "CreateUser", 1)
}

func TestSignInWithGooglePersistenceFailure(t *testing.T) {
	repo := new(MockUserRepo)
	svc, _ := newTestService(t, repo)
	dbErr := errors.New("disk full")

	repo.On("GetUserByEmail", mock.Anything, "bob@x.com").Return(nil, types.ErrNotFound)
	repo.On("CreateUser", mock.Anything, mock.AnythingOfType("*types.User")).Return(dbErr).Once()

	_, err := svc.SignInWithGoogle(context.Background(), goth.User{Name: "Bob", Email: "bob@x.com"})
	assert.ErrorIs(t, err, dbErr)
	repo.AssertNumberOfCalls(t, "CreateUser", 1)
}

func TestUsernameBase(t *testing.T) {
	assert.Equal(t, "alicedoe", usernameBase("Alice Doe"))
	assert.Equal(t, "jos", usernameBase("José Ñ"))
	assert.Equal(t, "user", usernameBase("   "))
	assert.Equal(t, "janedoe", usernameBase("", "jane.doe"))
	assert.Equal(t, "bob", usernameBase("Bob", "jane.doe"))
	assert.Equal(t, "user", usernameBase("", "._+"))
}

func TestSignInWithGoogleNamelessUsesEmail(t *testing.T) {
	repo := newMemUserRepo()
	svc, _ := newTestService(t, repo)

	session, err := svc.SignInWithGoogle(context.Background(), goth.User{Email: "jane.doe@gmail.com"})
	require.NoError(t, err)
	assert.Regexp(t, `^janedoe\d{4}$`, session.User.Username)
}

func TestRandomDigits(t *testing.T) {
	for range 20 {
		d, err := randomDigits(4)
		require.NoError(t, err)
		assert.Regexp(t, `^\d{4}$`, d)
	}
}
