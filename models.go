package auth

import (
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// DefaultProfileImage is shown for users without an image
const DefaultProfileImage = "https://static.productionready.io/images/smiley-cyrus.jpg"

// User is the identity record. Favorites is the source of truth for every
// article favorites counter.
type User struct {
	bun.BaseModel `bun:"table:users,alias:usr"`
	ID            uuid.UUID   `bun:"id,pk,type:uuid" json:"id,omitempty"`
	Username      string      `bun:"username,notnull,unique" json:"username,omitempty"`
	Email         string      `bun:"email,notnull,unique" json:"email,omitempty"`
	Bio           string      `bun:"bio" json:"bio,omitempty"`
	Image         string      `bun:"image" json:"image,omitempty"`
	Salt          string      `bun:"salt" json:"-"`
	Hash          string      `bun:"hash" json:"-"`
	Favorites     []uuid.UUID `bun:"favorites,notnull" json:"favorites,omitempty"`
	CreatedAt     time.Time   `bun:"created_at,nullzero,notnull" json:"created_at,omitempty"`
	UpdatedAt     time.Time   `bun:"updated_at,nullzero,notnull" json:"updated_at,omitempty"`
}

// SetCredentials replaces salt and hash
func (u *User) SetCredentials(c Credentials) {
	u.Salt = c.Salt
	u.Hash = c.Hash
}

// ValidPassword checks the password against the stored credentials
func (u *User) ValidPassword(password string) bool {
	return VerifyPassword(password, u.Salt, u.Hash)
}

// AddFavorite adds the article id unless present, reports whether the set changed
func (u *User) AddFavorite(id uuid.UUID) bool {
	if u.IsFavorite(id) {
		return false
	}
	u.Favorites = append(u.Favorites, id)
	return true
}

// RemoveFavorite removes the article id if present, reports whether the set changed
func (u *User) RemoveFavorite(id uuid.UUID) bool {
	idx := slices.Index(u.Favorites, id)
	if idx < 0 {
		return false
	}
	u.Favorites = slices.Delete(u.Favorites, idx, idx+1)
	return true
}

// IsFavorite reports whether the article is in the favorites set
func (u *User) IsFavorite(id uuid.UUID) bool {
	if u == nil {
		return false
	}
	return slices.Contains(u.Favorites, id)
}

// Normalize lowercases username and email
func (u *User) Normalize() {
	u.Username = strings.ToLower(strings.TrimSpace(u.Username))
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
}

// ProfileImage returns the image or the default one
func (u *User) ProfileImage() string {
	if u.Image == "" {
		return DefaultProfileImage
	}
	return u.Image
}

// UserPatch is a partial update, nil fields are left untouched
type UserPatch struct {
	Username *string `json:"username,omitempty"`
	Email    *string `json:"email,omitempty"`
	Bio      *string `json:"bio,omitempty"`
	Image    *string `json:"image,omitempty"`
	Password *string `json:"password,omitempty"`
}

// IsEmpty reports whether the patch changes nothing
func (p UserPatch) IsEmpty() bool {
	return p.Username == nil && p.Email == nil && p.Bio == nil && p.Image == nil && p.Password == nil
}

// Apply copies present profile fields onto the user and returns the
// changed columns. Password is handled by the caller since it needs the KDF.
func (p UserPatch) Apply(u *User) []string {
	columns := make([]string, 0, 4)
	if p.Username != nil {
		u.Username = strings.ToLower(strings.TrimSpace(*p.Username))
		columns = append(columns, "username")
	}
	if p.Email != nil {
		u.Email = strings.ToLower(strings.TrimSpace(*p.Email))
		columns = append(columns, "email")
	}
	if p.Bio != nil {
		u.Bio = *p.Bio
		columns = append(columns, "bio")
	}
	if p.Image != nil {
		u.Image = *p.Image
		columns = append(columns, "image")
	}
	return columns
}

// Article is the content item. Slug is assigned once before the first
// insert and never changes. FavoritesCount is derived from users.favorites.
type Article struct {
	bun.BaseModel  `bun:"table:articles,alias:art"`
	ID             uuid.UUID `bun:"id,pk,type:uuid" json:"id,omitempty"`
	Slug           string    `bun:"slug,notnull,unique" json:"slug"`
	Title          string    `bun:"title,notnull" json:"title"`
	Description    string    `bun:"description" json:"description"`
	Body           string    `bun:"body" json:"body"`
	TagList        []string  `bun:"tag_list,notnull" json:"tagList"`
	AuthorID       uuid.UUID `bun:"author_id,notnull,type:uuid" json:"-"`
	Author         *User     `bun:"rel:belongs-to,join:author_id=id" json:"-"`
	FavoritesCount int       `bun:"favorites_count,notnull" json:"favoritesCount"`
	CreatedAt      time.Time `bun:"created_at,nullzero,notnull" json:"createdAt"`
	UpdatedAt      time.Time `bun:"updated_at,nullzero,notnull" json:"updatedAt"`
}

// EnsureSlug assigns a slug when the article has none
func (a *Article) EnsureSlug() error {
	if a.Slug != "" {
		return nil
	}
	slug, err := GenerateSlug(a.Title)
	if err != nil {
		return err
	}
	a.Slug = slug
	return nil
}

// IsOwnedBy reports whether the user id is the author
func (a *Article) IsOwnedBy(userID uuid.UUID) bool {
	return a != nil && userID != uuid.Nil && a.AuthorID == userID
}

// ArticlePatch is a partial update, nil fields are left untouched. There is
// no slug field, a title change keeps the slug.
type ArticlePatch struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	Body        *string `json:"body,omitempty"`
}

// IsEmpty reports whether the patch changes nothing
func (p ArticlePatch) IsEmpty() bool {
	return p.Title == nil && p.Description == nil && p.Body == nil
}

// Apply copies present fields onto the article and returns the changed columns
func (p ArticlePatch) Apply(a *Article) []string {
	columns := make([]string, 0, 3)
	if p.Title != nil {
		a.Title = *p.Title
		columns = append(columns, "title")
	}
	if p.Description != nil {
		a.Description = *p.Description
		columns = append(columns, "description")
	}
	if p.Body != nil {
		a.Body = *p.Body
		columns = append(columns, "body")
	}
	return columns
}
