package catalog

import (
	"context"
	"fmt"
	"strings"

	"puceats-api/apperr"

	"github.com/gosimple/slug"
	"gorm.io/gorm"
)

const maxSlugLength = 120

// Apostrophes join rather than split words: "Bob's" -> "bobs".
var apostrophes = strings.NewReplacer("'", "", "’", "")

// baseSlug derives the URL-safe, lowercase slug for a name:
// "Café Central" -> "cafe-central".
func baseSlug(name string) string {
	s := slug.Make(apostrophes.Replace(name))
	if len(s) > maxSlugLength {
		s = s[:maxSlugLength]
	}
	if s == "" {
		s = "item"
	}
	return s
}

// customSlug normalizes a caller-chosen slug. Input with no letters or digits
// has no slug form and is rejected.
func customSlug(raw string) (string, error) {
	s := slug.Make(apostrophes.Replace(raw))
	if len(s) > maxSlugLength {
		s = strings.Trim(s[:maxSlugLength], "-")
	}
	if s == "" {
		return "", apperr.Validation("slug must contain letters or digits")
	}
	return s, nil
}

// uniqueSlug returns base if unused in model's table, otherwise the first free
// base-2, base-3, ... It must run inside the transaction that inserts the row.
func uniqueSlug(ctx context.Context, tx *gorm.DB, model any, base string) (string, error) {
	var taken []string
	err := tx.WithContext(ctx).Model(model).
		Where("slug = ? OR slug LIKE ?", base, base+"-%").
		Pluck("slug", &taken).Error
	if err != nil {
		return "", err
	}
	used := make(map[string]bool, len(taken))
	for _, s := range taken {
		used[s] = true
	}
	if !used[base] {
		return base, nil
	}
	for n := 2; ; n++ {
		candidate := fmt.Sprintf("%s-%d", base, n)
		if !used[candidate] {
			return candidate, nil
		}
	}
}
