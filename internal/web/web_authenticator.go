package web

import (
	"log"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/go-while/go-sitekit/internal/database"
	"github.com/go-while/go-sitekit/internal/models"
)

// APIAuthHeader carries API tokens on requests without a session.
const APIAuthHeader = "X-API"

// dbAuthenticator implements webapi.Authenticator against the database.
// Ambient credentials are checked in order: session cookie, then the
// X-API token header. HTTP Basic is handled by the guards themselves.
type dbAuthenticator struct {
	DB *database.Database
}

// Authenticator returns the API guard authenticator for this server.
func (s *WebServer) Authenticator() *dbAuthenticator {
	return &dbAuthenticator{DB: s.DB}
}

// UserFromRequest resolves the session cookie or API token to a user.
func (a *dbAuthenticator) UserFromRequest(c *gin.Context) *models.User {
	if sessionID, err := c.Cookie("session_id"); err == nil && sessionID != "" {
		if user, err := a.DB.ValidateUserSession(sessionID); err == nil {
			return user
		}
	}

	if token := strings.TrimSpace(c.GetHeader(APIAuthHeader)); token != "" {
		apiToken, err := a.DB.ValidateAPIToken(token)
		if err != nil {
			return nil
		}
		user, err := a.DB.GetUserByID(apiToken.OwnerID)
		if err != nil {
			return nil
		}
		// Update usage statistics (non-blocking)
		go func() {
			if err := a.DB.UpdateTokenUsage(apiToken.ID); err != nil {
				log.Printf("[AUTH]: failed to update token usage: %v", err)
			}
		}()
		return user
	}

	return nil
}

// CheckCredentials verifies a username/password pair, honoring the
// login lockout counters.
func (a *dbAuthenticator) CheckCredentials(c *gin.Context, username, password string) (*models.User, bool) {
	if lockedOut, err := a.DB.IsUserLockedOut(username); err == nil && lockedOut {
		return nil, false
	}

	user, err := a.DB.GetUserByUsername(username)
	if err != nil {
		a.DB.IncrementLoginAttempts(username)
		return nil, false
	}
	if !checkPassword(password, user.PasswordHash) {
		a.DB.IncrementLoginAttempts(username)
		return nil, false
	}

	a.DB.ResetLoginAttempts(user.ID)
	return user, true
}

// HasPermission reports whether the user holds a named permission.
func (a *dbAuthenticator) HasPermission(user *models.User, perm string) bool {
	has, err := a.DB.HasPermission(user.ID, perm)
	if err != nil {
		return false
	}
	return has
}
