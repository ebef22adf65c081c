// Package etag implements HTTP entity-tag helpers: tag formatting,
// If-None-Match comparison and 304 short-circuiting for gin handlers.
package etag

import (
	"crypto/sha1"
	"encoding/hex"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// Format wraps an opaque validator in double quotes. Weak validators
// (W/"...") and already-quoted values pass through unchanged.
func Format(value string) string {
	if value == "" {
		return ""
	}
	if strings.HasPrefix(value, "W/") || strings.HasPrefix(value, "w/") {
		return value
	}
	if len(value) >= 2 && strings.HasPrefix(value, `"`) && strings.HasSuffix(value, `"`) {
		return value
	}
	return `"` + value + `"`
}

// FromContent returns a strong entity tag derived from the content
func FromContent(data []byte) string {
	sum := sha1.Sum(data)
	return `"` + hex.EncodeToString(sum[:]) + `"`
}

// trimTag normalizes a tag for weak comparison: the W/ prefix and
// surrounding quotes are dropped.
func trimTag(tag string) string {
	tag = strings.TrimSpace(tag)
	if strings.HasPrefix(tag, "W/") || strings.HasPrefix(tag, "w/") {
		tag = tag[2:]
	}
	return strings.Trim(tag, `"`)
}

// Matches reports whether an If-None-Match header value matches the
// tag. Comparison is weak (W/ prefixes are ignored) and tolerates
// unquoted tags; a bare * matches any non-empty tag.
func Matches(ifNoneMatch, tag string) bool {
	if ifNoneMatch == "" || tag == "" {
		return false
	}
	want := trimTag(tag)
	if want == "" {
		return false
	}
	for _, part := range strings.Split(ifNoneMatch, ",") {
		part = strings.TrimSpace(part)
		if part == "*" {
			return true
		}
		if trimTag(part) == want {
			return true
		}
	}
	return false
}

// Set writes the ETag response header. Empty tags are ignored.
func Set(c *gin.Context, tag string) {
	if tag == "" {
		return
	}
	c.Header("ETag", Format(tag))
}

// HandleIfNoneMatch answers 304 Not Modified when the request's
// If-None-Match header matches tag and returns true; the caller must
// stop. On a miss the ETag header is set for the upcoming response.
func HandleIfNoneMatch(c *gin.Context, tag string) bool {
	if tag == "" {
		return false
	}
	if Matches(c.GetHeader("If-None-Match"), tag) {
		Set(c, tag)
		c.AbortWithStatus(http.StatusNotModified)
		return true
	}
	Set(c, tag)
	return false
}
