// Package web provides the HTTP server and web interface for go-sitekit
package web

import (
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/gin-contrib/secure"
	"github.com/gin-gonic/gin"
	"github.com/robfig/cron/v3"

	"github.com/go-while/go-sitekit/internal/assetserial"
	"github.com/go-while/go-sitekit/internal/config"
	"github.com/go-while/go-sitekit/internal/database"
)

// WebServer represents the web server
type WebServer struct {
	DB        *database.Database
	Router    *gin.Engine
	Config    *config.MainConfig
	Serials   *assetserial.Scanner
	StartTime time.Time // Track server start time for uptime calculations

	cron *cron.Cron
}

// NewServer creates a new web server instance
func NewServer(db *database.Database, mainConfig *config.MainConfig) *WebServer {
	// Set Gin to release mode for production
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	// Configure Gin to trust reverse proxy headers
	// Set trusted proxies for common reverse proxy setups (nginx, etc.)
	router.SetTrustedProxies([]string{"127.0.0.1", "::1", "10.0.0.0/8", "172.16.0.0/12", "192.168.0.0/16"})

	// Configure security headers based on SSL setup
	secureConfig := secure.Config{
		FrameDeny:          true,
		ContentTypeNosniff: true,
		BrowserXssFilter:   true,
		ReferrerPolicy:     "strict-origin-when-cross-origin",
	}

	// Only add SSL-specific headers if SSL is enabled on the application itself
	// (not when running behind a reverse proxy like nginx with SSL)
	if mainConfig.Web.SSL {
		secureConfig.SSLRedirect = true
		secureConfig.STSSeconds = 31536000
		secureConfig.STSIncludeSubdomains = true
	}

	server := &WebServer{
		DB:      db,
		Router:  router,
		Config:  mainConfig,
		Serials: assetserial.NewScanner(mainConfig.Assets.MediaDirs, mainConfig.Assets.TemplateDirs),
		cron:    cron.New(),
	}

	// Apache-style access log instead of gin's default logger
	router.Use(server.ApacheLogFormat(), gin.Recovery())

	// Apply security middleware
	router.Use(secure.New(secureConfig))

	// Add reverse proxy middleware for handling X-Forwarded headers
	router.Use(server.ReverseProxyMiddleware())

	server.setupRoutes()
	return server
}

// Start starts the cron jobs and the web server, with SSL support if
// configured. Blocks until the listener fails.
func (s *WebServer) Start() error {
	s.StartTime = time.Now() // Set the start time for uptime calculations

	// First serial scan happens before we serve anything
	if err := s.Serials.Refresh(); err != nil {
		log.Printf("[SERIAL]: initial refresh failed: %v", err)
	}
	if err := s.startCron(); err != nil {
		return err
	}

	addr := ":" + strconv.Itoa(s.Config.Web.ListenPort)
	if s.Config.Web.SSL {
		if s.Config.Web.CertFile == "" || s.Config.Web.KeyFile == "" {
			return errors.New("SSL enabled but cert_file or key_file not specified in config")
		}
		log.Printf("[WEB]: starting HTTPS server on %s", addr)
		return s.Router.RunTLS(addr, s.Config.Web.CertFile, s.Config.Web.KeyFile)
	}
	log.Printf("[WEB]: starting HTTP server on %s", addr)
	return s.Router.Run(addr)
}

// Stop halts the background cron jobs.
func (s *WebServer) Stop() {
	if s.cron != nil {
		s.cron.Stop()
	}
}

// GetPort returns the listening port from the config
func (s *WebServer) GetPort() int {
	return s.Config.Web.ListenPort
}

// ReverseProxyMiddleware handles X-Forwarded headers when running behind a reverse proxy
func (s *WebServer) ReverseProxyMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		// Handle X-Forwarded-Proto to detect if the original request was HTTPS
		if proto := c.GetHeader("X-Forwarded-Proto"); proto == "https" {
			c.Request.URL.Scheme = "https"
		}

		// Handle X-Forwarded-For to get the real client IP
		if xff := c.GetHeader("X-Forwarded-For"); xff != "" {
			// Take the first IP from the list (original client)
			ips := strings.Split(xff, ",")
			if len(ips) > 0 {
				clientIP := strings.TrimSpace(ips[0])
				c.Request.RemoteAddr = clientIP + ":0"
			}
		}

		// Handle X-Real-IP as an alternative
		if realIP := c.GetHeader("X-Real-IP"); realIP != "" {
			c.Request.RemoteAddr = realIP + ":0"
		}

		// Handle X-Forwarded-Host to get the original host
		if host := c.GetHeader("X-Forwarded-Host"); host != "" {
			c.Request.Host = host
		}

		c.Next()
	}
}

func (s *WebServer) ApacheLogFormat() gin.HandlerFunc {
	return gin.LoggerWithFormatter(func(param gin.LogFormatterParams) string {
		return fmt.Sprintf(`%s - - [%s] "%s %s %s" %d %d "%s" "%s"`+"\n",
			param.ClientIP,
			param.TimeStamp.Format("02/Jan/2006:15:04:05 -0700"),
			param.Method,
			param.Path,
			param.Request.Proto,
			param.StatusCode,
			param.BodySize,
			param.Request.Referer(),
			param.Request.UserAgent(),
		)
	})
}
