package auth

import (
	"crypto/rand"
	"math/big"
	"strconv"
	"strings"

	goerrors "github.com/goliatone/go-errors"
	gosimpleslug "github.com/gosimple/slug"
)

const (
	slugSuffixLen = 6
	// slugFallback is used when nothing of the title survives normalization
	slugFallback = "untitled"
)

// 36^6 suffixes
var slugSuffixSpace = new(big.Int).Exp(big.NewInt(36), big.NewInt(slugSuffixLen), nil)

// Slugify transliterates the title to lowercase ASCII and joins its
// alphanumeric runs with a single dash.
func Slugify(title string) string {
	base := gosimpleslug.Make(title)

	var b strings.Builder
	b.Grow(len(base))

	dash := false
	for _, r := range base {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			if dash && b.Len() > 0 {
				b.WriteByte('-')
			}
			b.WriteRune(r)
			dash = false
			continue
		}
		dash = true
	}

	if b.Len() == 0 {
		return slugFallback
	}
	return b.String()
}

// GenerateSlug returns "<slugified title>-<6 random base36 chars>"
func GenerateSlug(title string) (string, error) {
	suffix, err := randomSlugSuffix()
	if err != nil {
		return "", err
	}
	return Slugify(title) + "-" + suffix, nil
}

func randomSlugSuffix() (string, error) {
	n, err := rand.Int(rand.Reader, slugSuffixSpace)
	if err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to generate slug suffix")
	}

	suffix := strconv.FormatInt(n.Int64(), 36)
	if pad := slugSuffixLen - len(suffix); pad > 0 {
		suffix = strings.Repeat("0", pad) + suffix
	}
	return suffix, nil
}
