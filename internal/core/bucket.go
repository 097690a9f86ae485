package core

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Bucket separates a folder's identity from its display label.
// Two buckets are the same destination iff their keys are equal.
type Bucket struct {
	Key   string
	Label string
}

// decorative covers glyphs that folder labels carry for looks only:
// emoji and other symbols, joiners, variation selectors, combining marks, spaces.
var decorative = runes.Predicate(func(r rune) bool {
	return unicode.Is(unicode.So, r) ||
		unicode.Is(unicode.Sk, r) ||
		unicode.Is(unicode.Cf, r) ||
		unicode.Is(unicode.Mn, r) ||
		unicode.IsSpace(r)
})

// NewBucket builds the identity for a folder label
func NewBucket(label string) Bucket {
	return Bucket{Key: BucketKey(label), Label: strings.TrimSpace(label)}
}

// BucketKey returns the canonical comparison key of a folder label
func BucketKey(label string) string {
	t := transform.Chain(norm.NFKD, runes.Remove(decorative), norm.NFC)
	stripped, _, err := transform.String(t, label)
	if err != nil {
		stripped = strings.Join(strings.Fields(label), "")
	}
	return cases.Fold().String(stripped)
}

// Same reports whether two buckets identify the same destination
func (b Bucket) Same(other Bucket) bool {
	return b.Key == other.Key
}

// SameBucket compares two folder labels by canonical key
func SameBucket(a, b string) bool {
	return BucketKey(a) == BucketKey(b)
}
