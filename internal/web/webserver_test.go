package web

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/go-while/go-sitekit/internal/config"
	"github.com/go-while/go-sitekit/internal/database"
	"github.com/go-while/go-sitekit/internal/models"
)

// newTestServer wires a WebServer against a fresh temp-dir database.
func newTestServer(t *testing.T) *WebServer {
	t.Helper()

	database.GlobalDBMutex.Lock()
	database.INIT = false
	database.GlobalDBMutex.Unlock()

	dbcfg := database.DefaultDBConfig()
	dbcfg.DataDir = t.TempDir()
	db, err := database.OpenDatabase(dbcfg)
	if err != nil {
		t.Fatalf("OpenDatabase: %v", err)
	}
	t.Cleanup(func() {
		if err := db.Shutdown(); err != nil {
			t.Errorf("Shutdown: %v", err)
		}
	})

	cfg := config.NewDefaultConfig()
	cfg.Web.TemplateDir = "../../web/templates"
	cfg.Assets.MediaDirs = []string{t.TempDir()}
	cfg.Assets.TemplateDirs = []string{"../../web/templates"}

	return NewServer(db, cfg)
}

func createTestUser(t *testing.T, db *database.Database, username, password string) *models.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}
	u := &models.User{
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: string(hash),
		DisplayName:  username,
	}
	if _, err := db.InsertUser(u); err != nil {
		t.Fatalf("InsertUser(%q): %v", username, err)
	}
	return u
}

func TestPing_ETagConditionalRequest(t *testing.T) {
	s := newTestServer(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/ping", nil)
	s.Router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("GET /ping status = %d, want 200", w.Code)
	}
	tag := w.Header().Get("ETag")
	if tag == "" {
		t.Fatalf("GET /ping returned no ETag header")
	}
	var body map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON body: %v", err)
	}
	if body["stat"] != "ok" {
		t.Errorf("stat = %v, want ok", body["stat"])
	}

	// Replay with the tag: must short-circuit to 304
	w = httptest.NewRecorder()
	req = httptest.NewRequest("GET", "/ping", nil)
	req.Header.Set("If-None-Match", tag)
	s.Router.ServeHTTP(w, req)

	if w.Code != http.StatusNotModified {
		t.Fatalf("conditional GET /ping status = %d, want 304", w.Code)
	}
	if got := w.Header().Get("ETag"); got != tag {
		t.Errorf("304 ETag = %q, want %q", got, tag)
	}
}

func TestStaticHandler_ServesEmbeddedAssets(t *testing.T) {
	s := newTestServer(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/static/css/sitekit.css", nil)
	s.Router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("GET static css status = %d, want 200", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "text/css" {
		t.Errorf("Content-Type = %q, want text/css", ct)
	}
	if cc := w.Header().Get("Cache-Control"); !strings.Contains(cc, "max-age") {
		t.Errorf("Cache-Control = %q, want a max-age directive", cc)
	}
	tag := w.Header().Get("ETag")
	if tag == "" {
		t.Fatalf("static response carries no ETag")
	}

	w = httptest.NewRecorder()
	req = httptest.NewRequest("GET", "/static/css/sitekit.css", nil)
	req.Header.Set("If-None-Match", tag)
	s.Router.ServeHTTP(w, req)
	if w.Code != http.StatusNotModified {
		t.Fatalf("conditional static GET status = %d, want 304", w.Code)
	}

	// A cache-buster query string must not affect the handler
	w = httptest.NewRecorder()
	req = httptest.NewRequest("GET", "/static/css/sitekit.css?12345", nil)
	s.Router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("GET with serial query status = %d, want 200", w.Code)
	}

	w = httptest.NewRecorder()
	req = httptest.NewRequest("GET", "/static/no/such/file.css", nil)
	s.Router.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Fatalf("GET missing static file status = %d, want 404", w.Code)
	}
}

func TestListEmbeddedFiles_CoversServedAssets(t *testing.T) {
	files, err := ListEmbeddedFiles()
	if err != nil {
		t.Fatalf("ListEmbeddedFiles: %v", err)
	}
	want := []string{"static/css/sitekit.css", "static/js/sitekit.js", "static/favicon.svg"}
	for _, name := range want {
		found := false
		for _, f := range files {
			if f == name {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("embedded file list missing %q: %v", name, files)
		}
	}
}

func TestAPI_SettingsLifecycle(t *testing.T) {
	s := newTestServer(t)
	admin := createTestUser(t, s.DB, "root", "adminpass")
	if admin.ID != 1 {
		t.Fatalf("first user got ID %d, want 1", admin.ID)
	}

	form := url.Values{}
	form.Set("value", "pg")
	w := httptest.NewRecorder()
	req := httptest.NewRequest("PUT", "/api/v1/settings/gravatar_rating", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth("root", "adminpass")
	s.Router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("PUT setting status = %d, want 200: %s", w.Code, w.Body.String())
	}

	w = httptest.NewRecorder()
	req = httptest.NewRequest("GET", "/api/v1/settings/gravatar_rating", nil)
	req.SetBasicAuth("root", "adminpass")
	s.Router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("GET setting status = %d, want 200: %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), `"value":"pg"`) {
		t.Errorf("GET payload missing value: %s", w.Body.String())
	}

	w = httptest.NewRecorder()
	req = httptest.NewRequest("DELETE", "/api/v1/settings/gravatar_rating", nil)
	req.SetBasicAuth("root", "adminpass")
	s.Router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("DELETE setting status = %d, want 200: %s", w.Code, w.Body.String())
	}

	// The key is gone afterwards
	w = httptest.NewRecorder()
	req = httptest.NewRequest("GET", "/api/v1/settings/gravatar_rating", nil)
	req.SetBasicAuth("root", "adminpass")
	s.Router.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Fatalf("GET deleted setting status = %d, want 404", w.Code)
	}

	// Deleting a missing key reports DOES_NOT_EXIST
	w = httptest.NewRecorder()
	req = httptest.NewRequest("DELETE", "/api/v1/settings/gravatar_rating", nil)
	req.SetBasicAuth("root", "adminpass")
	s.Router.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Fatalf("DELETE missing setting status = %d, want 404", w.Code)
	}
	var fail struct {
		Err struct {
			Code int `json:"code"`
		} `json:"err"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &fail); err != nil {
		t.Fatalf("invalid JSON body: %v", err)
	}
	if fail.Err.Code != 100 {
		t.Errorf("err.code = %d, want 100", fail.Err.Code)
	}
}

func TestAPI_RequiresLogin(t *testing.T) {
	s := newTestServer(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/api/v1/me", nil)
	s.Router.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("unauthenticated /api/v1/me status = %d, want 401", w.Code)
	}
	if got := w.Header().Get("WWW-Authenticate"); !strings.Contains(got, "Basic") {
		t.Errorf("WWW-Authenticate = %q, want a Basic challenge", got)
	}
	var body struct {
		Stat string `json:"stat"`
		Err  struct {
			Code int `json:"code"`
		} `json:"err"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON body: %v", err)
	}
	if body.Stat != "fail" || body.Err.Code != 103 {
		t.Errorf("got stat=%q code=%d, want fail/103", body.Stat, body.Err.Code)
	}
}

func TestAPI_BasicAuthFallback(t *testing.T) {
	s := newTestServer(t)
	createTestUser(t, s.DB, "alice", "sekrit99")

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/api/v1/me", nil)
	req.SetBasicAuth("alice", "sekrit99")
	s.Router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("basic-auth /api/v1/me status = %d, want 200: %s", w.Code, w.Body.String())
	}
	var body struct {
		Stat        string `json:"stat"`
		GravatarURL string `json:"gravatar_url"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON body: %v", err)
	}
	if body.Stat != "ok" {
		t.Errorf("stat = %q, want ok", body.Stat)
	}
	if !strings.Contains(body.GravatarURL, "gravatar.com/avatar/") {
		t.Errorf("gravatar_url = %q, want a gravatar.com URL", body.GravatarURL)
	}

	// Wrong password is LOGIN_FAILED, not NOT_LOGGED_IN
	w = httptest.NewRecorder()
	req = httptest.NewRequest("GET", "/api/v1/me", nil)
	req.SetBasicAuth("alice", "wrong")
	s.Router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("wrong-password status = %d, want 401", w.Code)
	}
	var fail struct {
		Err struct {
			Code int `json:"code"`
		} `json:"err"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &fail); err != nil {
		t.Fatalf("invalid JSON body: %v", err)
	}
	if fail.Err.Code != 104 {
		t.Errorf("err.code = %d, want 104", fail.Err.Code)
	}
}

func TestAPI_AdminGuard(t *testing.T) {
	s := newTestServer(t)
	admin := createTestUser(t, s.DB, "root", "adminpass") // first user, ID 1
	createTestUser(t, s.DB, "bob", "bobpass")

	if admin.ID != 1 {
		t.Fatalf("first user got ID %d, want 1", admin.ID)
	}

	// Non-admin is rejected with PERMISSION_DENIED
	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/api/v1/users", nil)
	req.SetBasicAuth("bob", "bobpass")
	s.Router.ServeHTTP(w, req)
	if w.Code != http.StatusForbidden {
		t.Fatalf("non-admin /api/v1/users status = %d, want 403", w.Code)
	}

	// User ID 1 holds every permission implicitly
	w = httptest.NewRecorder()
	req = httptest.NewRequest("GET", "/api/v1/users", nil)
	req.SetBasicAuth("root", "adminpass")
	s.Router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("admin /api/v1/users status = %d, want 200: %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), `"total_count":2`) {
		t.Errorf("user list missing total_count=2: %s", w.Body.String())
	}
}

func TestLoginFlow_SessionCookie(t *testing.T) {
	s := newTestServer(t)
	createTestUser(t, s.DB, "carol", "carolpass")

	form := url.Values{}
	form.Set("username", "carol")
	form.Set("password", "carolpass")

	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	s.Router.ServeHTTP(w, req)

	if w.Code != http.StatusSeeOther {
		t.Fatalf("login status = %d, want 303", w.Code)
	}
	cookies := w.Result().Cookies()
	var sessionID string
	for _, ck := range cookies {
		if ck.Name == "session_id" {
			sessionID = ck.Value
			if !ck.HttpOnly {
				t.Errorf("session cookie is not HttpOnly")
			}
		}
	}
	if sessionID == "" {
		t.Fatalf("login did not set a session_id cookie")
	}

	// Session cookie authenticates API requests
	w = httptest.NewRecorder()
	req = httptest.NewRequest("GET", "/api/v1/serials", nil)
	req.AddCookie(&http.Cookie{Name: "session_id", Value: sessionID})
	s.Router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("session-cookie /api/v1/serials status = %d, want 200: %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), "media_serial") {
		t.Errorf("serials payload missing media_serial: %s", w.Body.String())
	}
}

func TestAPITokenAuth_HeaderResolvesUser(t *testing.T) {
	s := newTestServer(t)
	user := createTestUser(t, s.DB, "dave", "davepass")

	_, plainToken, err := s.DB.CreateAPIToken(user.Username, user.ID, nil)
	if err != nil {
		t.Fatalf("CreateAPIToken: %v", err)
	}

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/api/v1/me", nil)
	req.Header.Set(APIAuthHeader, plainToken)
	s.Router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("token-auth /api/v1/me status = %d, want 200: %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), `"username":"dave"`) {
		t.Errorf("payload missing user: %s", w.Body.String())
	}
}
