package web

import (
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/go-while/go-sitekit/internal/config"
	"github.com/go-while/go-sitekit/internal/etag"
	"github.com/go-while/go-sitekit/internal/gravatar"
	"github.com/go-while/go-sitekit/internal/models"
	"github.com/go-while/go-sitekit/internal/webapi"
)

var LIMIT_listUsers = 25

// pingHandler answers the health check with an ETag'd version payload
// so monitoring loops can poll it cheaply.
func (s *WebServer) pingHandler(c *gin.Context) {
	tag := etag.FromContent([]byte(config.AppVersion))
	if etag.HandleIfNoneMatch(c, tag) {
		return
	}
	webapi.OK(gin.H{
		"version": config.AppVersion,
		"uptime":  time.Since(s.StartTime).Round(time.Second).String(),
	}).Render(c)
}

// apiMe returns the authenticated user and their gravatar URL
func (s *WebServer) apiMe(c *gin.Context) {
	user := webapi.UserFrom(c)
	webapi.OK(gin.H{
		"user":         user,
		"gravatar_url": gravatar.URL(user.Email, s.gravatarDefaults()),
	}).Render(c)
}

// apiSerials returns the current cache-busting serials
func (s *WebServer) apiSerials(c *gin.Context) {
	webapi.OK(gin.H{
		"media_serial": s.Serials.MediaSerial(),
		"ajax_serial":  s.Serials.AjaxSerial(),
		"last_refresh": s.Serials.LastRefresh().UTC().Format(time.RFC3339),
	}).Render(c)
}

// apiListUsers returns one page of users (admin only)
func (s *WebServer) apiListUsers(c *gin.Context) {
	values, fieldErrs := webapi.ValidateFields(c, nil, webapi.FieldSet{
		"page":      {Type: webapi.IntField, Description: "Page number (1-based)"},
		"page_size": {Type: webapi.IntField, Description: "Users per page"},
	}, false)
	if fieldErrs != nil {
		fieldErrs.Respond(c)
		return
	}

	page := 1
	if values.Has("page") && values.Int("page") > 0 {
		page = values.Int("page")
	}
	pageSize := LIMIT_listUsers
	if values.Has("page_size") && values.Int("page_size") > 0 {
		pageSize = values.Int("page_size")
	}

	users, totalCount, err := s.DB.ListUsers(page, pageSize)
	if err != nil {
		webapi.Fail(webapi.ErrInvalidAttribute.WithMessage(err.Error()), nil).Render(c)
		return
	}

	totalPages := (totalCount + pageSize - 1) / pageSize
	if totalPages == 0 {
		totalPages = 1
	}

	response := models.PaginatedResponse{
		Data:       users,
		Page:       page,
		PageSize:   pageSize,
		TotalCount: totalCount,
		TotalPages: totalPages,
		HasNext:    page < totalPages,
		HasPrev:    page > 1,
	}
	webapi.OK(gin.H{"users": response}).Render(c)
}

// apiUpload stores a multipart file upload. The response goes through
// the envelope's iframe MIME fallback when a browser form posts here.
func (s *WebServer) apiUpload(c *gin.Context) {
	values, fieldErrs := webapi.ValidateFields(c,
		webapi.FieldSet{
			"file": {Type: webapi.FileField, Description: "The file to upload"},
		},
		webapi.FieldSet{
			"caption":   {Type: webapi.StringField, Description: "Optional caption"},
			"overwrite": {Type: webapi.BoolField, Description: "Replace an existing file of the same name"},
		}, false)
	if fieldErrs != nil {
		fieldErrs.Respond(c)
		return
	}

	header := values.File("file")
	uploadDir := filepath.Join(s.DB.GetDataDir(), "uploads")
	if err := os.MkdirAll(uploadDir, 0755); err != nil {
		webapi.Fail(webapi.ErrInvalidAttribute.WithMessage("failed to prepare upload directory"), nil).Render(c)
		return
	}

	dest := filepath.Join(uploadDir, filepath.Base(header.Filename))
	if !values.Bool("overwrite") {
		if _, err := os.Stat(dest); err == nil {
			webapi.Fail(webapi.ErrInvalidFormData, gin.H{
				"fields": map[string][]string{"file": {"A file with this name already exists"}},
			}).Render(c)
			return
		}
	}

	if err := c.SaveUploadedFile(header, dest); err != nil {
		log.Printf("[API]: upload of %s failed: %v", header.Filename, err)
		webapi.Fail(webapi.ErrInvalidAttribute.WithMessage("failed to store upload"), nil).Render(c)
		return
	}

	webapi.OK(gin.H{
		"filename": filepath.Base(header.Filename),
		"size":     header.Size,
		"caption":  values.String("caption"),
	}).Render(c)
}

// apiGetSetting returns one site_settings row (admin only)
func (s *WebServer) apiGetSetting(c *gin.Context) {
	key := c.Param("key")
	value, err := s.DB.GetSettingValue(key)
	if err != nil {
		webapi.Fail(webapi.ErrInvalidAttribute.WithMessage(err.Error()), nil).Render(c)
		return
	}
	if value == "" {
		webapi.Fail(webapi.ErrDoesNotExist, gin.H{"key": key}).Render(c)
		return
	}
	webapi.OK(gin.H{"key": key, "value": value}).Render(c)
}

// apiPutSetting sets one site_settings row (admin only)
func (s *WebServer) apiPutSetting(c *gin.Context) {
	values, fieldErrs := webapi.ValidateFields(c, webapi.FieldSet{
		"value": {Type: webapi.StringField, Description: "The new setting value"},
	}, nil, false)
	if fieldErrs != nil {
		fieldErrs.Respond(c)
		return
	}

	key := c.Param("key")
	if err := s.DB.SetSettingValue(key, values.String("value")); err != nil {
		webapi.Fail(webapi.ErrInvalidAttribute.WithMessage(err.Error()), nil).Render(c)
		return
	}
	webapi.OK(gin.H{"key": key, "value": values.String("value")}).Render(c)
}

// apiDeleteSetting removes one site_settings row (admin only)
func (s *WebServer) apiDeleteSetting(c *gin.Context) {
	key := c.Param("key")
	value, err := s.DB.GetSettingValue(key)
	if err != nil {
		webapi.Fail(webapi.ErrInvalidAttribute.WithMessage(err.Error()), nil).Render(c)
		return
	}
	if value == "" {
		webapi.Fail(webapi.ErrDoesNotExist, gin.H{"key": key}).Render(c)
		return
	}
	if err := s.DB.DeleteSetting(key); err != nil {
		webapi.Fail(webapi.ErrInvalidAttribute.WithMessage(err.Error()), nil).Render(c)
		return
	}
	webapi.OK(gin.H{"key": key}).Render(c)
}

// apiCreateToken mints a new API token for the authenticated user. The
// plaintext token appears in this response and nowhere else.
func (s *WebServer) apiCreateToken(c *gin.Context) {
	values, fieldErrs := webapi.ValidateFields(c, nil, webapi.FieldSet{
		"expires_days": {Type: webapi.IntField, Description: "Days until the token expires (0 = never)"},
	}, false)
	if fieldErrs != nil {
		fieldErrs.Respond(c)
		return
	}

	user := webapi.UserFrom(c)

	var expiresAt *time.Time
	if values.Has("expires_days") && values.Int("expires_days") > 0 {
		t := time.Now().AddDate(0, 0, values.Int("expires_days")).UTC()
		expiresAt = &t
	}

	token, plainToken, err := s.DB.CreateAPIToken(user.Username, user.ID, expiresAt)
	if err != nil {
		log.Printf("[API]: failed to create token for %s: %v", user.Username, err)
		webapi.Fail(webapi.ErrInvalidAttribute.WithMessage("failed to create token"), nil).Render(c)
		return
	}

	extra := gin.H{
		"token_id": token.ID,
		"token":    plainToken, // Only returned once!
	}
	if token.ExpiresAt != nil {
		extra["expires_at"] = token.ExpiresAt.Format(time.RFC3339)
	}
	webapi.OK(extra).Render(c)
}
