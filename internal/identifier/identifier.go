// Package identifier derives stable index and document identifiers from
// source locators (URLs, file names, conversation tags).
//
// Index services impose strict naming rules (lowercase alphanumerics and
// dashes, bounded length), so locators are slugged. Slugging is lossy: two
// distinct locators can collapse to the same slug, so an 8-hex fragment of
// the MD5 of the original locator is appended to keep names unique.
package identifier

import (
	"crypto/md5" // #nosec G501 -- collision-avoidance suffix, not a security boundary
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"
)

// slugPrefixLen caps the slug portion so the final name stays within the
// index service's name length limit.
const slugPrefixLen = 60

var (
	invalidChars = regexp.MustCompile(`[^a-z0-9-]`)
	dashRuns     = regexp.MustCompile(`-+`)
)

// IndexName maps a locator to a valid, unique index name. It is a pure
// function: the same locator always yields the same name, and distinct
// locators yield distinct names even when their slugs collide.
func IndexName(locator string) string {
	slug := strings.TrimPrefix(locator, "https://")
	slug = strings.TrimPrefix(slug, "http://")
	slug = strings.ToLower(strings.ReplaceAll(slug, "_", "-"))
	slug = invalidChars.ReplaceAllString(slug, "-")
	slug = dashRuns.ReplaceAllString(slug, "-")
	slug = strings.Trim(slug, "-")
	if len(slug) > slugPrefixLen {
		slug = slug[:slugPrefixLen]
		slug = strings.TrimRight(slug, "-")
	}

	// Hash the original locator, not the slug, so locators that differ only
	// in slugged-away characters still get distinct names.
	sum := md5.Sum([]byte(locator)) // #nosec G401
	return slug + "-" + hex.EncodeToString(sum[:])[:8]
}

// DocumentID derives a document key from a locator and an ordinal. The
// ordinal is an integer or a short tag such as "content-3"; anything else
// is formatted with %v.
func DocumentID(locator string, ordinal any) string {
	return fmt.Sprintf("%s-%v", IndexName(locator), ordinal)
}
