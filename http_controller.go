package auth

import (
	"net/http"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-router"
	"github.com/google/uuid"
)

// Controller exposes the users, profiles and articles endpoints
type Controller struct {
	repo          RepositoryManager
	cfg           Config
	tokens        TokenService
	auther        *Auther
	favorites     *Favorites
	register      *RegisterUserHandler
	updateUser    *UpdateUserHandler
	createArticle *CreateArticleHandler
	updateArticle *UpdateArticleHandler
	deleteArticle *DeleteArticleHandler
	hasher        *PasswordHasher
	activity      ActivitySink
	logger        Logger
	useHashid     bool
}

type ControllerOption func(*Controller)

func WithControllerLogger(logger Logger) ControllerOption {
	return func(c *Controller) {
		c.logger = logger
	}
}

func WithControllerActivitySink(sink ActivitySink) ControllerOption {
	return func(c *Controller) {
		c.activity = sink
	}
}

// WithControllerHasher shares a password hashing pool with other components
func WithControllerHasher(hasher *PasswordHasher) ControllerOption {
	return func(c *Controller) {
		c.hasher = hasher
	}
}

// WithControllerHashidIDs derives new user ids from the email with hashid
// instead of a random uuid
func WithControllerHashidIDs(enabled bool) ControllerOption {
	return func(c *Controller) {
		c.useHashid = enabled
	}
}

// WithControllerTokenService replaces the token service built from Config
func WithControllerTokenService(ts TokenService) ControllerOption {
	return func(c *Controller) {
		c.tokens = ts
	}
}

func NewController(repo RepositoryManager, cfg Config, opts ...ControllerOption) *Controller {
	c := &Controller{
		repo: repo,
		cfg:  cfg,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}

	c.logger = normalizeLogger(c.logger)
	c.activity = normalizeActivitySink(c.activity)
	if c.hasher == nil {
		c.hasher = NewPasswordHasher(0)
	}
	if c.tokens == nil {
		c.tokens = NewTokenServiceFromConfig(cfg, c.logger)
	}

	provider := NewUserProvider(repo.Users(), c.hasher).WithLogger(c.logger)
	c.auther = NewAuthenticator(provider, cfg).
		WithLogger(c.logger).
		WithActivitySink(c.activity).
		WithTokenService(c.tokens)

	c.favorites = NewFavorites(repo, WithFavoritesActivitySink(c.activity), WithFavoritesLogger(c.logger))
	c.register = NewRegisterUserHandler(repo, c.hasher, c.activity, c.logger)
	c.updateUser = NewUpdateUserHandler(repo, c.hasher, c.activity, c.logger)
	c.createArticle = NewCreateArticleHandler(repo, c.activity, c.logger)
	c.updateArticle = NewUpdateArticleHandler(repo)
	c.deleteArticle = NewDeleteArticleHandler(repo, c.activity, c.logger)

	return c
}

// RegisterConduitRoutes mounts the users, profiles and articles routes on
// app, usually the "/api" group.
func RegisterConduitRoutes[T any](app router.Router[T], ctrl *Controller) {
	required := RequiredAuth(ctrl.tokens, WithGateConfig(ctrl.cfg), WithGateLogger(ctrl.logger))
	optional := OptionalAuth(ctrl.tokens, WithGateConfig(ctrl.cfg), WithGateLogger(ctrl.logger))

	app.Post("/users", ctrl.RegisterUser).SetName("users.register")
	app.Post("/users/login", ctrl.Login).SetName("users.login")
	app.Get("/user", ctrl.CurrentUser, required).SetName("user.current")
	app.Put("/user", ctrl.UpdateCurrentUser, required).SetName("user.update")

	app.Get("/profiles/:username", ctrl.Profile, optional).SetName("profiles.get")

	app.Get("/articles", ctrl.ListArticles, optional).SetName("articles.list")
	app.Post("/articles", ctrl.CreateArticle, required).SetName("articles.create")
	app.Get("/articles/:slug", ctrl.GetArticle, optional).SetName("articles.get")
	app.Put("/articles/:slug", ctrl.UpdateArticle, required).SetName("articles.update")
	app.Delete("/articles/:slug", ctrl.DeleteArticle, required).SetName("articles.delete")
	app.Post("/articles/:slug/favorite", ctrl.FavoriteArticle, required).SetName("articles.favorite")
	app.Delete("/articles/:slug/favorite", ctrl.UnfavoriteArticle, required).SetName("articles.unfavorite")
}

type userEnvelope[T any] struct {
	User T `json:"user"`
}

type articleEnvelope[T any] struct {
	Article T `json:"article"`
}

// UserView is the authenticated user payload, it carries a fresh token
type UserView struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Token    string `json:"token"`
	Bio      string `json:"bio"`
	Image    string `json:"image"`
}

type ProfileView struct {
	Username  string `json:"username"`
	Bio       string `json:"bio"`
	Image     string `json:"image"`
	Following bool   `json:"following"`
}

type ArticleView struct {
	Slug           string      `json:"slug"`
	Title          string      `json:"title"`
	Description    string      `json:"description"`
	Body           string      `json:"body"`
	TagList        []string    `json:"tagList"`
	CreatedAt      string      `json:"createdAt"`
	UpdatedAt      string      `json:"updatedAt"`
	Favorited      bool        `json:"favorited"`
	FavoritesCount int         `json:"favoritesCount"`
	Author         ProfileView `json:"author"`
}

type loginPayload struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type updateUserPayload struct {
	Username *string `json:"username"`
	Email    *string `json:"email"`
	Bio      *string `json:"bio"`
	Image    *string `json:"image"`
	Password *string `json:"password"`
}

type updateArticlePayload struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Body        *string `json:"body"`
}

func (ctrl *Controller) RegisterUser(c router.Context) error {
	var payload userEnvelope[RegisterUserMessage]
	if err := c.Bind(&payload); err != nil {
		return badBody(err)
	}

	msg := payload.User
	msg.UseHashid = ctrl.useHashid

	user, err := ctrl.register.Execute(c.Context(), msg)
	if err != nil {
		return err
	}

	return ctrl.respondUser(c, user)
}

func (ctrl *Controller) Login(c router.Context) error {
	var payload userEnvelope[loginPayload]
	if err := c.Bind(&payload); err != nil {
		return badBody(err)
	}

	fields := map[string]string{}
	if payload.User.Email == "" {
		fields["email"] = "can't be blank"
	}
	if payload.User.Password == "" {
		fields["password"] = "can't be blank"
	}
	if len(fields) > 0 {
		return NewValidationError(goerrors.New("missing credentials", goerrors.CategoryValidation), fields)
	}

	token, identity, err := ctrl.auther.Login(c.Context(), payload.User.Email, payload.User.Password)
	if err != nil {
		return err
	}

	user, err := ctrl.userFromIdentity(c, identity)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, userEnvelope[UserView]{User: newUserView(user, token)})
}

func (ctrl *Controller) CurrentUser(c router.Context) error {
	user, err := ctrl.requireUser(c)
	if err != nil {
		return err
	}
	return ctrl.respondUser(c, user)
}

func (ctrl *Controller) UpdateCurrentUser(c router.Context) error {
	user, err := ctrl.requireUser(c)
	if err != nil {
		return err
	}

	var payload userEnvelope[updateUserPayload]
	if err := c.Bind(&payload); err != nil {
		return badBody(err)
	}

	p := payload.User
	user, err = ctrl.updateUser.Execute(c.Context(), UpdateUserMessage{
		UserID: user.ID,
		Patch: UserPatch{
			Username: p.Username,
			Email:    p.Email,
			Bio:      p.Bio,
			Image:    p.Image,
			Password: p.Password,
		},
	})
	if err != nil {
		return err
	}

	return ctrl.respondUser(c, user)
}

func (ctrl *Controller) Profile(c router.Context) error {
	user, err := ctrl.repo.Users().GetByUsername(c.Context(), c.Param("username", ""))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{"profile": newProfileView(user)})
}

func (ctrl *Controller) ListArticles(c router.Context) error {
	viewer := ctrl.optionalUser(c)

	records, total, err := ctrl.repo.Articles().List(c.Context(), c.QueryInt("limit", DefaultListLimit), c.QueryInt("offset", 0))
	if err != nil {
		return err
	}

	views := make([]ArticleView, 0, len(records))
	for _, a := range records {
		views = append(views, newArticleView(a, viewer))
	}

	return c.JSON(http.StatusOK, map[string]any{"articles": views, "articlesCount": total})
}

func (ctrl *Controller) CreateArticle(c router.Context) error {
	user, err := ctrl.requireUser(c)
	if err != nil {
		return err
	}

	var payload articleEnvelope[CreateArticleMessage]
	if err := c.Bind(&payload); err != nil {
		return badBody(err)
	}

	msg := payload.Article
	msg.AuthorID = user.ID

	article, err := ctrl.createArticle.Execute(c.Context(), msg)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, articleEnvelope[ArticleView]{Article: newArticleView(article, user)})
}

func (ctrl *Controller) GetArticle(c router.Context) error {
	article, err := ctrl.repo.Articles().GetBySlug(c.Context(), c.Param("slug", ""))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, articleEnvelope[ArticleView]{Article: newArticleView(article, ctrl.optionalUser(c))})
}

func (ctrl *Controller) UpdateArticle(c router.Context) error {
	user, err := ctrl.requireUser(c)
	if err != nil {
		return err
	}

	var payload articleEnvelope[updateArticlePayload]
	if err := c.Bind(&payload); err != nil {
		return badBody(err)
	}

	p := payload.Article
	article, err := ctrl.updateArticle.Execute(c.Context(), UpdateArticleMessage{
		UserID: user.ID,
		Slug:   c.Param("slug", ""),
		Patch: ArticlePatch{
			Title:       p.Title,
			Description: p.Description,
			Body:        p.Body,
		},
	})
	if err != nil {
		return err
	}

	if article.Author == nil {
		article.Author = user
	}

	return c.JSON(http.StatusOK, articleEnvelope[ArticleView]{Article: newArticleView(article, user)})
}

func (ctrl *Controller) DeleteArticle(c router.Context) error {
	user, err := ctrl.requireUser(c)
	if err != nil {
		return err
	}

	if err := ctrl.deleteArticle.Execute(c.Context(), DeleteArticleMessage{
		UserID: user.ID,
		Slug:   c.Param("slug", ""),
	}); err != nil {
		return err
	}

	return c.NoContent(http.StatusNoContent)
}

func (ctrl *Controller) FavoriteArticle(c router.Context) error {
	return ctrl.toggleFavorite(c, true)
}

func (ctrl *Controller) UnfavoriteArticle(c router.Context) error {
	return ctrl.toggleFavorite(c, false)
}

func (ctrl *Controller) toggleFavorite(c router.Context, add bool) error {
	user, err := ctrl.requireUser(c)
	if err != nil {
		return err
	}

	article, err := ctrl.repo.Articles().GetBySlug(c.Context(), c.Param("slug", ""))
	if err != nil {
		return err
	}

	var updated *Article
	if add {
		updated, err = ctrl.favorites.Favorite(c.Context(), user.ID, article.ID)
	} else {
		updated, err = ctrl.favorites.Unfavorite(c.Context(), user.ID, article.ID)
	}
	if err != nil {
		return err
	}

	// the set changed inside the transaction, reload the viewer
	viewer, err := ctrl.repo.Users().GetByID(c.Context(), user.ID)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, articleEnvelope[ArticleView]{Article: newArticleView(updated, viewer)})
}

// requireUser resolves the record behind the claims, a token naming a
// deleted user is treated as unauthorized.
func (ctrl *Controller) requireUser(c router.Context) (*User, error) {
	claims, ok := GetRouterClaims(c, ctrl.cfg.GetContextKey())
	if !ok {
		return nil, ErrUnauthorized
	}

	id, err := uuid.Parse(claims.UserID())
	if err != nil {
		return nil, ErrUnauthorized
	}

	user, err := ctrl.repo.Users().GetByID(c.Context(), id)
	if err != nil {
		if IsNotFound(err) {
			return nil, ErrUnauthorized
		}
		return nil, err
	}
	c.SetContext(WithContext(c.Context(), user))
	return user, nil
}

// optionalUser is nil for anonymous requests
func (ctrl *Controller) optionalUser(c router.Context) *User {
	user, err := ctrl.requireUser(c)
	if err != nil {
		return nil
	}
	return user
}

func (ctrl *Controller) userFromIdentity(c router.Context, identity Identity) (*User, error) {
	if ui, ok := identity.(UserIdentity); ok && ui.User() != nil {
		return ui.User(), nil
	}
	id, err := uuid.Parse(identity.ID())
	if err != nil {
		return nil, ErrIdentityNotFound
	}
	return ctrl.repo.Users().GetByID(c.Context(), id)
}

func (ctrl *Controller) respondUser(c router.Context, user *User) error {
	token, err := ctrl.tokens.Issue(NewIdentityFromUser(user))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, userEnvelope[UserView]{User: newUserView(user, token)})
}

func badBody(err error) error {
	return NewValidationError(err, map[string]string{"body": "is invalid"})
}

func newUserView(u *User, token string) UserView {
	return UserView{
		Username: u.Username,
		Email:    u.Email,
		Token:    token,
		Bio:      u.Bio,
		Image:    u.Image,
	}
}

func newProfileView(u *User) ProfileView {
	if u == nil {
		return ProfileView{Image: DefaultProfileImage}
	}
	return ProfileView{
		Username: u.Username,
		Bio:      u.Bio,
		Image:    u.ProfileImage(),
	}
}

func newArticleView(a *Article, viewer *User) ArticleView {
	tags := a.TagList
	if tags == nil {
		tags = []string{}
	}
	return ArticleView{
		Slug:           a.Slug,
		Title:          a.Title,
		Description:    a.Description,
		Body:           a.Body,
		TagList:        tags,
		CreatedAt:      a.CreatedAt.UTC().Format("2006-01-02T15:04:05.000Z"),
		UpdatedAt:      a.UpdatedAt.UTC().Format("2006-01-02T15:04:05.000Z"),
		Favorited:      viewer.IsFavorite(a.ID),
		FavoritesCount: a.FavoritesCount,
		Author:         newProfileView(a.Author),
	}
}
