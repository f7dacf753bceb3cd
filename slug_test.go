package auth_test

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-conduit-auth"
)

func TestSlugify(t *testing.T) {
	tests := []struct {
		title string
		want  string
	}{
		{title: "My Title", want: "my-title"},
		{title: "Hello World", want: "hello-world"},
		{title: "  Leading and trailing  ", want: "leading-and-trailing"},
		{title: "Crème Brûlée", want: "creme-brulee"},
		{title: "Go 1.23: what is new?", want: "go-1-23-what-is-new"},
		{title: "Łódź snake_case", want: "lodz-snake-case"},
		{title: "a---b", want: "a-b"},
		{title: "", want: "untitled"},
		{title: "!!!", want: "untitled"},
	}

	for _, tt := range tests {
		t.Run(tt.title, func(t *testing.T) {
			assert.Equal(t, tt.want, auth.Slugify(tt.title))
		})
	}
}

func TestGenerateSlug(t *testing.T) {
	slug, err := auth.GenerateSlug("My Title")
	require.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`^my-title-[0-9a-z]{6}$`), slug)
}

func TestGenerateSlug_EmptyTitle(t *testing.T) {
	slug, err := auth.GenerateSlug("")
	require.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`^untitled-[0-9a-z]{6}$`), slug)
}

func TestGenerateSlug_Distinct(t *testing.T) {
	seen := map[string]bool{}
	for range 50 {
		slug, err := auth.GenerateSlug("Same Title")
		require.NoError(t, err)
		seen[slug] = true
	}
	// 50 draws out of 36^6, a repeat is practically impossible
	assert.Len(t, seen, 50)
}

func TestArticle_EnsureSlugKeepsExisting(t *testing.T) {
	article := &auth.Article{Title: "New Title", Slug: "old-title-abc123"}
	require.NoError(t, article.EnsureSlug())
	assert.Equal(t, "old-title-abc123", article.Slug)

	fresh := &auth.Article{Title: "New Title"}
	require.NoError(t, fresh.EnsureSlug())
	assert.Regexp(t, `^new-title-[0-9a-z]{6}$`, fresh.Slug)
}
