package web

import (
	"html/template"
	"log"
	"net/http"
	"path/filepath"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/go-while/go-sitekit/internal/config"
	"github.com/go-while/go-sitekit/internal/gravatar"
	"github.com/go-while/go-sitekit/internal/models"
)

// TemplateData represents common template data
type TemplateData struct {
	Title               template.HTML
	CurrentTime         string
	Port                int
	User                *AuthUser
	IsAdmin             bool
	AppVersion          string
	RegistrationEnabled bool
	FlashSuccess        string
	FlashError          string
}

// getBaseTemplateData creates a TemplateData struct with common information including user auth
func (s *WebServer) getBaseTemplateData(c *gin.Context, title string) TemplateData {
	// Check registration status (default to true if error)
	registrationEnabled := true
	if enabled, err := s.DB.IsRegistrationEnabled(); err == nil {
		registrationEnabled = enabled
	}

	data := TemplateData{
		Title:               template.HTML(title),
		CurrentTime:         time.Now().Format("2006-01-02 15:04:05"),
		Port:                s.GetPort(),
		AppVersion:          config.AppVersion,
		RegistrationEnabled: registrationEnabled,
	}

	// Add user information if logged in
	if session := s.getWebSession(c); session != nil {
		data.User = session.User
		data.FlashSuccess, data.FlashError = GetAndClearFlash(session.SessionID)
		// Check if user is admin
		if userModel, err := s.DB.GetUserByID(session.UserID); err == nil {
			data.IsAdmin = s.isAdminUser(userModel)
		}
	}

	return data
}

// isAdminUser checks if a user has admin permissions (helper for base template)
func (s *WebServer) isAdminUser(user *models.User) bool {
	if user.ID == 1 {
		return true
	}
	has, err := s.DB.HasPermission(user.ID, "admin")
	if err != nil {
		return false
	}
	return has
}

// gravatarDefaults merges the site_settings gravatar overrides over the
// configured fallbacks. Settings errors fall back to the config values.
func (s *WebServer) gravatarDefaults() gravatar.Options {
	opts := gravatar.Options{
		Size:    s.Config.Gravatar.Size,
		Rating:  s.Config.Gravatar.Rating,
		Default: s.Config.Gravatar.Default,
	}
	if v, err := s.DB.GetSettingValue("gravatar_size"); err == nil && v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			opts.Size = n
		}
	}
	if v, err := s.DB.GetSettingValue("gravatar_rating"); err == nil && v != "" {
		opts.Rating = v
	}
	if v, err := s.DB.GetSettingValue("gravatar_default"); err == nil && v != "" {
		opts.Default = v
	}
	return opts
}

// templateFuncs merges the gravatar and asset serial template helpers.
func (s *WebServer) templateFuncs() template.FuncMap {
	funcs := template.FuncMap{}
	for name, fn := range gravatar.FuncMap(s.gravatarDefaults()) {
		funcs[name] = fn
	}
	for name, fn := range s.Serials.FuncMap() {
		funcs[name] = fn
	}
	return funcs
}

// loadTemplate parses base.html plus one page template with the helper
// funcs attached. Templates are parsed per request to avoid engine-wide
// name conflicts.
func (s *WebServer) loadTemplate(templateName string) *template.Template {
	dir := s.Config.Web.TemplateDir
	return template.Must(template.New("base.html").
		Funcs(s.templateFuncs()).
		ParseFiles(filepath.Join(dir, "base.html"), filepath.Join(dir, templateName)))
}

// renderError renders an error page
func (s *WebServer) renderError(c *gin.Context, statusCode int, message string, errstring string) {
	errorData := struct {
		TemplateData
		Error      string
		StatusCode int
	}{
		TemplateData: s.getBaseTemplateData(c, "Error"),
		Error:        message,
		StatusCode:   statusCode,
	}
	log.Printf("[WEB]: error %d: %s - %s", statusCode, message, errstring)

	tmpl := s.loadTemplate("error.html")
	c.Header("Content-Type", "text/html")
	c.Status(statusCode)
	err := tmpl.ExecuteTemplate(c.Writer, "base.html", errorData)
	if err != nil {
		log.Printf("[WEB]: error rendering error template: %v", err)
		c.String(statusCode, "Error: %s - %s", message, errstring)
	}
}

// renderTemplate renders a template with base template data
func (s *WebServer) renderTemplate(c *gin.Context, templateName string, data interface{}) {
	tmpl := s.loadTemplate(templateName)
	c.Header("Content-Type", "text/html")
	err := tmpl.ExecuteTemplate(c.Writer, "base.html", data)
	if err != nil {
		log.Printf("[WEB]: error rendering template %s: %v", templateName, err)
		s.renderError(c, http.StatusInternalServerError, "Template error", err.Error())
	}
}
