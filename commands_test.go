package auth_test

import (
	"context"
	"testing"

	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-conduit-auth"
)

func strPtr(s string) *string { return &s }

func TestRegisterUserHandler(t *testing.T) {
	repo := newTestRepo(t)
	sink := &capturingSink{}
	handler := auth.NewRegisterUserHandler(repo, auth.NewPasswordHasher(2), sink, newQuietLogger())
	ctx := context.Background()

	user, err := handler.Execute(ctx, auth.RegisterUserMessage{
		Username: "Ana",
		Email:    " Ana@Example.com ",
		Password: "p@ss1234",
	})
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, user.ID)
	assert.Equal(t, "ana", user.Username)
	assert.Equal(t, "ana@example.com", user.Email)
	assert.True(t, user.ValidPassword("p@ss1234"))
	assert.False(t, user.ValidPassword("P@ss1234"))
	assert.Empty(t, user.Favorites)
	assert.Equal(t, []auth.ActivityEventType{auth.ActivityEventUserRegistered}, sink.types())

	t.Run("duplicate username", func(t *testing.T) {
		_, err := handler.Execute(ctx, auth.RegisterUserMessage{Username: "ANA", Email: "other@example.com", Password: "x"})
		require.Error(t, err)
		assert.True(t, auth.IsUniqueViolation(err))
		assert.Equal(t, []string{"is already taken"}, auth.ErrorResponse(err).Errors["username"])
	})

	t.Run("duplicate email", func(t *testing.T) {
		_, err := handler.Execute(ctx, auth.RegisterUserMessage{Username: "bob", Email: "ana@example.com", Password: "x"})
		require.Error(t, err)
		assert.True(t, auth.IsUniqueViolation(err))
		assert.Equal(t, []string{"is already taken"}, auth.ErrorResponse(err).Errors["email"])
	})

	t.Run("invalid payload", func(t *testing.T) {
		_, err := handler.Execute(ctx, auth.RegisterUserMessage{Username: "bad name", Email: "nope", Password: ""})
		require.Error(t, err)
		assert.Equal(t, 422, auth.StatusFromError(err))

		fields := auth.ErrorResponse(err).Errors
		assert.Contains(t, fields, "username")
		assert.Contains(t, fields, "email")
		assert.Equal(t, []string{"can't be blank"}, fields["password"])
	})

	t.Run("cancelled context", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		_, err := handler.Execute(cctx, auth.RegisterUserMessage{Username: "carl", Email: "carl@example.com", Password: "x"})
		require.Error(t, err)
	})
}

func TestRegisterUserMessage_EmailPattern(t *testing.T) {
	cases := map[string]bool{
		"ana@example.com":        true,
		"<ana@example.com>":      true,
		"mail me at a@b.co then": true,
		"ana@example":            false,
		"ana.example.com":        false,
		"ana @example.com":       false,
	}

	for email, valid := range cases {
		err := auth.RegisterUserMessage{Username: "ana", Email: email, Password: "x"}.Validate()
		if valid {
			assert.NoError(t, err, email)
		} else {
			assert.Error(t, err, email)
		}
	}
}

func TestRegisterUserHandler_Hashid(t *testing.T) {
	repo := newTestRepo(t)
	handler := auth.NewRegisterUserHandler(repo, auth.NewPasswordHasher(1), nil, nil)

	user, err := handler.Execute(context.Background(), auth.RegisterUserMessage{
		Username:  "ana",
		Email:     "ana@example.com",
		Password:  "p@ss1234",
		UseHashid: true,
	})
	require.NoError(t, err)

	expected, err := hashid.NewUUID("ana@example.com")
	require.NoError(t, err)
	assert.Equal(t, expected, user.ID)
}

func TestUpdateUserHandler(t *testing.T) {
	repo := newTestRepo(t)
	sink := &capturingSink{}
	handler := auth.NewUpdateUserHandler(repo, auth.NewPasswordHasher(1), sink, newQuietLogger())
	ctx := context.Background()

	ana := mustRegister(t, repo, "ana", "ana@example.com", "p@ss1234")
	mustRegister(t, repo, "bob", "bob@example.com", "p@ss1234")

	updated, err := handler.Execute(ctx, auth.UpdateUserMessage{
		UserID: ana.ID,
		Patch:  auth.UserPatch{Bio: strPtr("hello"), Image: strPtr("https://img.example.com/a.png")},
	})
	require.NoError(t, err)
	assert.Equal(t, "hello", updated.Bio)
	assert.Equal(t, "https://img.example.com/a.png", updated.ProfileImage())
	assert.Equal(t, ana.Salt, updated.Salt)
	assert.Equal(t, []auth.ActivityEventType{auth.ActivityEventUserUpdated}, sink.types())

	t.Run("password change re-salts", func(t *testing.T) {
		updated, err := handler.Execute(ctx, auth.UpdateUserMessage{
			UserID: ana.ID,
			Patch:  auth.UserPatch{Password: strPtr("n3w-secret")},
		})
		require.NoError(t, err)

		stored, err := repo.Users().GetByID(ctx, ana.ID)
		require.NoError(t, err)
		assert.NotEqual(t, ana.Salt, stored.Salt)
		assert.True(t, stored.ValidPassword("n3w-secret"))
		assert.False(t, stored.ValidPassword("p@ss1234"))
		assert.Equal(t, "hello", updated.Bio)
		assert.Contains(t, sink.types(), auth.ActivityEventPasswordChanged)
	})

	t.Run("empty password rejected", func(t *testing.T) {
		_, err := handler.Execute(ctx, auth.UpdateUserMessage{
			UserID: ana.ID,
			Patch:  auth.UserPatch{Password: strPtr("")},
		})
		require.Error(t, err)
		assert.Equal(t, []string{"can't be blank"}, auth.ErrorResponse(err).Errors["password"])
	})

	t.Run("username taken", func(t *testing.T) {
		_, err := handler.Execute(ctx, auth.UpdateUserMessage{
			UserID: ana.ID,
			Patch:  auth.UserPatch{Username: strPtr("BOB")},
		})
		require.Error(t, err)
		assert.True(t, auth.IsUniqueViolation(err))
	})

	t.Run("unknown user", func(t *testing.T) {
		_, err := handler.Execute(ctx, auth.UpdateUserMessage{
			UserID: uuid.New(),
			Patch:  auth.UserPatch{Bio: strPtr("x")},
		})
		require.Error(t, err)
		assert.True(t, auth.IsNotFound(err))
	})
}

func TestCreateArticleHandler(t *testing.T) {
	repo := newTestRepo(t)
	sink := &capturingSink{}
	handler := auth.NewCreateArticleHandler(repo, sink, newQuietLogger())
	ctx := context.Background()

	ana := mustRegister(t, repo, "ana", "ana@example.com", "p@ss1234")

	article, err := handler.Execute(ctx, auth.CreateArticleMessage{
		AuthorID: ana.ID,
		Title:    "Hello World",
		Body:     "first post",
		TagList:  []string{"intro"},
	})
	require.NoError(t, err)
	assert.Regexp(t, `^hello-world-[0-9a-z]{6}$`, article.Slug)
	assert.Equal(t, 0, article.FavoritesCount)
	assert.Equal(t, []string{"intro"}, article.TagList)
	require.NotNil(t, article.Author)
	assert.Equal(t, "ana", article.Author.Username)
	assert.Equal(t, []auth.ActivityEventType{auth.ActivityEventArticleCreated}, sink.types())

	second, err := handler.Execute(ctx, auth.CreateArticleMessage{AuthorID: ana.ID, Title: "Hello World", Body: "again"})
	require.NoError(t, err)
	assert.NotEqual(t, article.Slug, second.Slug)
	assert.NotNil(t, second.TagList)

	t.Run("missing title and body", func(t *testing.T) {
		_, err := handler.Execute(ctx, auth.CreateArticleMessage{AuthorID: ana.ID})
		require.Error(t, err)
		fields := auth.ErrorResponse(err).Errors
		assert.Equal(t, []string{"can't be blank"}, fields["title"])
		assert.Equal(t, []string{"can't be blank"}, fields["body"])
	})

	t.Run("unknown author", func(t *testing.T) {
		_, err := handler.Execute(ctx, auth.CreateArticleMessage{AuthorID: uuid.New(), Title: "x", Body: "y"})
		require.Error(t, err)
		assert.True(t, auth.IsNotFound(err))
	})
}

func TestUpdateArticleHandler(t *testing.T) {
	repo := newTestRepo(t)
	handler := auth.NewUpdateArticleHandler(repo)
	ctx := context.Background()

	ana := mustRegister(t, repo, "ana", "ana@example.com", "p@ss1234")
	bob := mustRegister(t, repo, "bob", "bob@example.com", "p@ss1234")
	article := mustCreateArticle(t, repo, ana, "Hello World")

	updated, err := handler.Execute(ctx, auth.UpdateArticleMessage{
		UserID: ana.ID,
		Slug:   article.Slug,
		Patch:  auth.ArticlePatch{Title: strPtr("Goodbye World"), Description: strPtr("short")},
	})
	require.NoError(t, err)
	assert.Equal(t, "Goodbye World", updated.Title)
	assert.Equal(t, "short", updated.Description)
	assert.Equal(t, article.Slug, updated.Slug)

	_, err = handler.Execute(ctx, auth.UpdateArticleMessage{
		UserID: bob.ID,
		Slug:   article.Slug,
		Patch:  auth.ArticlePatch{Title: strPtr("hijacked")},
	})
	require.Error(t, err)
	assert.True(t, auth.IsForbidden(err))
	assert.Equal(t, 403, auth.StatusFromError(err))

	stored, err := repo.Articles().GetBySlug(ctx, article.Slug)
	require.NoError(t, err)
	assert.Equal(t, "Goodbye World", stored.Title)

	_, err = handler.Execute(ctx, auth.UpdateArticleMessage{UserID: ana.ID, Slug: "missing-000000", Patch: auth.ArticlePatch{Body: strPtr("x")}})
	require.Error(t, err)
	assert.True(t, auth.IsNotFound(err))

	_, err = handler.Execute(ctx, auth.UpdateArticleMessage{UserID: ana.ID, Slug: article.Slug, Patch: auth.ArticlePatch{Body: strPtr("")}})
	require.Error(t, err)
	assert.Equal(t, []string{"can't be blank"}, auth.ErrorResponse(err).Errors["body"])
}

func TestDeleteArticleHandler(t *testing.T) {
	repo := newTestRepo(t)
	sink := &capturingSink{}
	handler := auth.NewDeleteArticleHandler(repo, sink, newQuietLogger())
	ctx := context.Background()

	ana := mustRegister(t, repo, "ana", "ana@example.com", "p@ss1234")
	bob := mustRegister(t, repo, "bob", "bob@example.com", "p@ss1234")
	article := mustCreateArticle(t, repo, ana, "Hello World")

	err := handler.Execute(ctx, auth.DeleteArticleMessage{UserID: bob.ID, Slug: article.Slug})
	require.Error(t, err)
	assert.True(t, auth.IsForbidden(err))
	assert.Empty(t, sink.events)

	require.NoError(t, handler.Execute(ctx, auth.DeleteArticleMessage{UserID: ana.ID, Slug: article.Slug}))
	assert.Equal(t, []auth.ActivityEventType{auth.ActivityEventArticleDeleted}, sink.types())

	_, err = repo.Articles().GetBySlug(ctx, article.Slug)
	assert.True(t, auth.IsNotFound(err))

	err = handler.Execute(ctx, auth.DeleteArticleMessage{UserID: ana.ID, Slug: article.Slug})
	assert.True(t, auth.IsNotFound(err))
}
