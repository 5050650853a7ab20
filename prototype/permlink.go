package prototype

import (
	"strconv"
	"strings"
	"time"
)

const maxSlugLength = 200

// PostPermlink derives a permlink from the title and the publish time. The
// time suffix keeps two posts with the same title apart without a lookup.
func PostPermlink(title string, now time.Time) string {
	slug := Slugify(title)
	if slug == "" {
		slug = "post"
	}
	return clampPermlink(slug + "-" + timeSuffix(now))
}

// CommentPermlink derives a reply permlink from the parent permlink and time.
func CommentPermlink(parentPermlink string, now time.Time) string {
	slug := Slugify(parentPermlink)
	return clampPermlink("re-" + slug + "-" + timeSuffix(now))
}

// Slugify lowercases s and collapses everything outside [a-z0-9] into single
// dashes.
func Slugify(s string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(s) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	slug := strings.Trim(b.String(), "-")
	if len(slug) > maxSlugLength {
		slug = strings.TrimRight(slug[:maxSlugLength], "-")
	}
	return slug
}

func timeSuffix(now time.Time) string {
	return strconv.FormatInt(now.UnixNano()/int64(time.Millisecond), 36)
}

func clampPermlink(p string) string {
	if len(p) <= MaxPermlinkLength {
		return p
	}
	return strings.TrimLeft(p[len(p)-MaxPermlinkLength:], "-")
}
