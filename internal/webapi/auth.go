package webapi

import (
	"fmt"

	"github.com/gin-gonic/gin"

	"github.com/go-while/go-sitekit/internal/models"
)

// BasicRealm is the realm sent in WWW-Authenticate challenges.
const BasicRealm = "go-sitekit API"

// AdminUserID implicitly holds every permission.
const AdminUserID = 1

// userContextKey is where the guards park the resolved user.
const userContextKey = "webapi_user"

// Authenticator resolves users for the API guards. Implementations
// check whatever ambient credentials the deployment supports (session
// cookie, API token header) and verify HTTP Basic credentials.
type Authenticator interface {
	// UserFromRequest returns the user carried by ambient request
	// credentials, or nil when there are none.
	UserFromRequest(c *gin.Context) *models.User

	// CheckCredentials verifies a username/password pair.
	CheckCredentials(c *gin.Context, username, password string) (*models.User, bool)

	// HasPermission reports whether the user holds a named permission.
	HasPermission(user *models.User, perm string) bool
}

// SetUser stores the authenticated user in the request context.
func SetUser(c *gin.Context, user *models.User) {
	c.Set(userContextKey, user)
}

// UserFrom returns the authenticated user set by a guard, or nil.
func UserFrom(c *gin.Context) *models.User {
	if v, ok := c.Get(userContextKey); ok {
		if user, ok := v.(*models.User); ok {
			return user
		}
	}
	return nil
}

// resolveUser authenticates the request: ambient credentials first,
// then an HTTP Basic Authorization header. A present-but-wrong Basic
// header fails with ErrLoginFailed; no credentials at all is
// ErrNotLoggedIn.
func resolveUser(c *gin.Context, auth Authenticator) (*models.User, *APIError) {
	if user := UserFrom(c); user != nil {
		return user, nil
	}

	if user := auth.UserFromRequest(c); user != nil {
		SetUser(c, user)
		return user, nil
	}

	if username, password, ok := c.Request.BasicAuth(); ok {
		user, ok := auth.CheckCredentials(c, username, password)
		if !ok {
			return nil, ErrLoginFailed
		}
		SetUser(c, user)
		return user, nil
	}

	return nil, ErrNotLoggedIn
}

// abortWithError renders the failure envelope and stops the chain. A
// 401 carries the Basic challenge so command-line clients can retry
// with credentials.
func abortWithError(c *gin.Context, apiErr *APIError) {
	if apiErr.Code == ErrNotLoggedIn.Code {
		c.Header("WWW-Authenticate", fmt.Sprintf(`Basic realm=%q`, BasicRealm))
	}
	Fail(apiErr, nil).Render(c)
	c.Abort()
}

// RequireLogin rejects unauthenticated requests with NOT_LOGGED_IN and
// stores the user in the context for downstream handlers.
func RequireLogin(auth Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, apiErr := resolveUser(c, auth); apiErr != nil {
			abortWithError(c, apiErr)
			return
		}
		c.Next()
	}
}

// RequirePermission runs the login guard and then checks the named
// permission. The admin user holds every permission implicitly.
func RequirePermission(auth Authenticator, perm string) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, apiErr := resolveUser(c, auth)
		if apiErr != nil {
			abortWithError(c, apiErr)
			return
		}
		if user.ID != AdminUserID && !auth.HasPermission(user, perm) {
			abortWithError(c, ErrPermissionDenied)
			return
		}
		c.Next()
	}
}
