package web

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/go-while/go-sitekit/internal/webapi"
)

// setupRoutes configures all HTTP routes
func (s *WebServer) setupRoutes() {
	// Static files first (highest priority)
	s.Router.GET("/static/*filepath", s.EmbeddedStaticHandler("/static"))

	// Handle favicon so browsers don't 404-spam the logs
	s.Router.GET("/favicon.ico", EmbeddedFileHandler("static/favicon.svg"))
	s.Router.GET("/robots.txt", func(c *gin.Context) {
		c.String(http.StatusOK, "User-agent: *\nDisallow:\n")
	})
	s.Router.GET("/ping", s.pingHandler)

	// Authentication routes (high priority)
	s.Router.GET("/login", s.loginPage)
	s.Router.POST("/login", s.loginSubmit)
	s.Router.GET("/register", s.registerPage)
	s.Router.POST("/register", s.registerSubmit)
	s.Router.POST("/logout", s.logout)
	s.Router.GET("/profile", s.profilePage)
	s.Router.POST("/profile", s.profileUpdate)

	// Home page
	s.Router.GET("/", s.homePage)

	// Handle bare API base routes
	s.Router.GET("/api", func(c *gin.Context) {
		c.Redirect(http.StatusMovedPermanently, "/api/v1/me")
	})
	s.Router.GET("/api/v1", func(c *gin.Context) {
		c.Redirect(http.StatusMovedPermanently, "/api/v1/me")
	})

	auth := s.Authenticator()

	// API routes: everything under /api/v1 needs a login
	api := s.Router.Group("/api/v1")
	api.Use(webapi.RequireLogin(auth))
	{
		api.GET("/me", s.apiMe)
		api.GET("/serials", s.apiSerials)
		api.POST("/upload", s.apiUpload)
		api.POST("/tokens", s.apiCreateToken)
	}

	// Admin-only API routes
	admin := s.Router.Group("/api/v1")
	admin.Use(webapi.RequirePermission(auth, "admin"))
	{
		admin.GET("/users", s.apiListUsers)
		admin.GET("/settings/:key", s.apiGetSetting)
		admin.PUT("/settings/:key", s.apiPutSetting)
		admin.DELETE("/settings/:key", s.apiDeleteSetting)
	}
}
