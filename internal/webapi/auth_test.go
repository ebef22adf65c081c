package webapi

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/go-while/go-sitekit/internal/models"
)

// fakeAuth implements Authenticator against an in-memory user set.
type fakeAuth struct {
	ambient   *models.User
	passwords map[string]string
	users     map[string]*models.User
	perms     map[int64]map[string]bool
}

func (f *fakeAuth) UserFromRequest(c *gin.Context) *models.User {
	return f.ambient
}

func (f *fakeAuth) CheckCredentials(c *gin.Context, username, password string) (*models.User, bool) {
	if f.passwords[username] != password || password == "" {
		return nil, false
	}
	return f.users[username], true
}

func (f *fakeAuth) HasPermission(user *models.User, perm string) bool {
	return f.perms[user.ID][perm]
}

func newFakeAuth() *fakeAuth {
	return &fakeAuth{
		passwords: map[string]string{"alice": "sekrit"},
		users: map[string]*models.User{
			"alice": {ID: 7, Username: "alice"},
		},
		perms: map[int64]map[string]bool{},
	}
}

func guardedRouter(mw gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	r.GET("/api/v1/me", mw, func(c *gin.Context) {
		user := UserFrom(c)
		OK(gin.H{"username": user.Username}).Render(c)
	})
	return r
}

func TestRequireLogin_NoCredentials(t *testing.T) {
	r := guardedRouter(RequireLogin(newFakeAuth()))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/me", nil))

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", w.Code)
	}
	if got := w.Header().Get("WWW-Authenticate"); got == "" {
		t.Errorf("WWW-Authenticate challenge missing")
	}
	body := decodeBody(t, w)
	errObj := body["err"].(map[string]interface{})
	if errObj["code"] != float64(103) {
		t.Errorf("err.code = %v, want 103 (not logged in)", errObj["code"])
	}
}

func TestRequireLogin_BasicAuthSucceeds(t *testing.T) {
	r := guardedRouter(RequireLogin(newFakeAuth()))
	req := httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
	req.SetBasicAuth("alice", "sekrit")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body: %s", w.Code, w.Body.String())
	}
	body := decodeBody(t, w)
	if body["username"] != "alice" {
		t.Errorf("username = %v, want alice", body["username"])
	}
}

func TestRequireLogin_BasicAuthWrongPassword(t *testing.T) {
	r := guardedRouter(RequireLogin(newFakeAuth()))
	req := httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
	req.SetBasicAuth("alice", "wrong")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", w.Code)
	}
	body := decodeBody(t, w)
	errObj := body["err"].(map[string]interface{})
	if errObj["code"] != float64(104) {
		t.Errorf("err.code = %v, want 104 (login failed)", errObj["code"])
	}
}

func TestRequireLogin_AmbientCredentials(t *testing.T) {
	auth := newFakeAuth()
	auth.ambient = &models.User{ID: 9, Username: "session-user"}
	r := guardedRouter(RequireLogin(auth))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/me", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	body := decodeBody(t, w)
	if body["username"] != "session-user" {
		t.Errorf("username = %v, want session-user", body["username"])
	}
}

func TestRequirePermission_Denied(t *testing.T) {
	auth := newFakeAuth()
	auth.ambient = &models.User{ID: 9, Username: "pleb"}
	r := guardedRouter(RequirePermission(auth, "admin"))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/me", nil))

	if w.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", w.Code)
	}
	body := decodeBody(t, w)
	errObj := body["err"].(map[string]interface{})
	if errObj["code"] != float64(101) {
		t.Errorf("err.code = %v, want 101 (permission denied)", errObj["code"])
	}
}

func TestRequirePermission_Granted(t *testing.T) {
	auth := newFakeAuth()
	auth.ambient = &models.User{ID: 9, Username: "mod"}
	auth.perms[9] = map[string]bool{"moderate": true}
	r := guardedRouter(RequirePermission(auth, "moderate"))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/me", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body: %s", w.Code, w.Body.String())
	}
}

func TestRequirePermission_AdminBypass(t *testing.T) {
	auth := newFakeAuth()
	auth.ambient = &models.User{ID: AdminUserID, Username: "root"}
	r := guardedRouter(RequirePermission(auth, "anything-at-all"))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/me", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
}

func TestRequirePermission_NotLoggedIn(t *testing.T) {
	r := guardedRouter(RequirePermission(newFakeAuth(), "admin"))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/me", nil))

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", w.Code)
	}
}
