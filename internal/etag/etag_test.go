package etag

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestFormat_QuotesBareValues(t *testing.T) {
	if got := Format("abc123"); got != `"abc123"` {
		t.Errorf("Format(abc123) = %q, want %q", got, `"abc123"`)
	}
}

func TestFormat_LeavesQuotedAndWeakAlone(t *testing.T) {
	if got := Format(`"abc"`); got != `"abc"` {
		t.Errorf("quoted tag changed: %q", got)
	}
	if got := Format(`W/"abc"`); got != `W/"abc"` {
		t.Errorf("weak tag changed: %q", got)
	}
	if got := Format(""); got != "" {
		t.Errorf("empty tag formatted to %q", got)
	}
}

func TestFromContent_StableAndQuoted(t *testing.T) {
	a := FromContent([]byte("hello"))
	b := FromContent([]byte("hello"))
	if a != b {
		t.Fatalf("same content produced different tags: %q vs %q", a, b)
	}
	if a[0] != '"' || a[len(a)-1] != '"' {
		t.Errorf("tag not quoted: %q", a)
	}
	if c := FromContent([]byte("other")); c == a {
		t.Errorf("different content produced identical tags")
	}
}

func TestMatches(t *testing.T) {
	tests := []struct {
		name        string
		ifNoneMatch string
		tag         string
		want        bool
	}{
		{"exact quoted", `"abc"`, `"abc"`, true},
		{"bare against quoted", `abc`, `"abc"`, true},
		{"weak against strong", `W/"abc"`, `"abc"`, true},
		{"strong against weak", `"abc"`, `W/"abc"`, true},
		{"list match", `"x", "abc", "y"`, `"abc"`, true},
		{"star", `*`, `"anything"`, true},
		{"miss", `"def"`, `"abc"`, false},
		{"empty header", ``, `"abc"`, false},
		{"empty tag", `"abc"`, ``, false},
	}
	for _, tt := range tests {
		if got := Matches(tt.ifNoneMatch, tt.tag); got != tt.want {
			t.Errorf("%s: Matches(%q, %q) = %t, want %t",
				tt.name, tt.ifNoneMatch, tt.tag, got, tt.want)
		}
	}
}

func TestHandleIfNoneMatch_Hit(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/x", nil)
	c.Request.Header.Set("If-None-Match", `"abc"`)

	if !HandleIfNoneMatch(c, "abc") {
		t.Fatalf("matching If-None-Match not handled")
	}
	if w.Code != http.StatusNotModified {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNotModified)
	}
	if got := w.Header().Get("ETag"); got != `"abc"` {
		t.Errorf("ETag header = %q, want %q", got, `"abc"`)
	}
}

func TestHandleIfNoneMatch_MissSetsHeader(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/x", nil)
	c.Request.Header.Set("If-None-Match", `"stale"`)

	if HandleIfNoneMatch(c, "fresh") {
		t.Fatalf("non-matching If-None-Match handled as hit")
	}
	if got := w.Header().Get("ETag"); got != `"fresh"` {
		t.Errorf("ETag header = %q, want %q", got, `"fresh"`)
	}
}

func TestHandleIfNoneMatch_EmptyTagNoop(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/x", nil)
	c.Request.Header.Set("If-None-Match", `*`)

	if HandleIfNoneMatch(c, "") {
		t.Fatalf("empty tag produced a 304")
	}
	if got := w.Header().Get("ETag"); got != "" {
		t.Errorf("ETag header set for empty tag: %q", got)
	}
}
