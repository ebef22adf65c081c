// Web server for go-sitekit
package main

import (
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	prof "github.com/go-while/go-cpu-mem-profiler"

	"github.com/go-while/go-sitekit/internal/config"
	"github.com/go-while/go-sitekit/internal/database"
	"github.com/go-while/go-sitekit/internal/web"
)

var Prof *prof.Profiler

var appVersion = "-unset-"

var (
	// command-line flags
	webport      int
	webhostname  string
	webssl       bool
	webcertFile  string
	webkeyFile   string
	datadir      string
	staticdir    string
	templatedir  string
	mediadirs    string
	refreshSpec  string
	pprofAddr    string
	printVersion bool
)

func main() {
	config.AppVersion = appVersion

	flag.IntVar(&webport, "port", 0, "Web server port (default: 11980)")
	flag.StringVar(&webhostname, "hostname", "", "Public hostname of this site")
	flag.BoolVar(&webssl, "ssl", false, "Enable SSL")
	flag.StringVar(&webcertFile, "sslcert", "", "SSL certificate file (/path/to/fullchain.pem)")
	flag.StringVar(&webkeyFile, "sslkey", "", "SSL key file (/path/to/privkey.pem)")
	flag.StringVar(&datadir, "datadir", "", "Directory for the SQLite database and uploads")
	flag.StringVar(&staticdir, "staticdir", "", "On-disk static asset directory (scanned for the media serial)")
	flag.StringVar(&templatedir, "templatedir", "", "Template directory")
	flag.StringVar(&mediadirs, "mediadirs", "", "Comma-separated extra media directories for serial scanning")
	flag.StringVar(&refreshSpec, "refresh", "", "Cron spec for asset serial rescans (default: @every 5m)")
	flag.StringVar(&pprofAddr, "pprof", "", "Start pprof web server on this address (e.g. :51180)")
	flag.BoolVar(&printVersion, "version", false, "Print version and exit")
	flag.Parse()

	if printVersion {
		fmt.Println(appVersion)
		return
	}

	log.Printf("Starting go-sitekit: Web Server (version: %s)", appVersion)

	if pprofAddr != "" {
		Prof = prof.NewProf()
		go Prof.PprofWeb(pprofAddr)
		log.Printf("[WEB]: pprof listening on %s", pprofAddr)
	}

	// Environment first, command-line flags override
	mainConfig, err := config.FromEnv()
	if err != nil {
		log.Fatalf("[WEB]: failed to load configuration: %v", err)
	}
	if webport > 0 {
		mainConfig.Web.ListenPort = webport
		log.Printf("[WEB]: overriding listen port with command-line flag: %d", webport)
	}
	if webhostname != "" {
		mainConfig.Web.Hostname = webhostname
	}
	if webssl {
		mainConfig.Web.SSL = true
		log.Printf("[WEB]: SSL enabled via command-line flag")
	}
	if webcertFile != "" {
		mainConfig.Web.CertFile = webcertFile
	}
	if webkeyFile != "" {
		mainConfig.Web.KeyFile = webkeyFile
	}
	if datadir != "" {
		mainConfig.Database.DataDir = datadir
	}
	if staticdir != "" {
		mainConfig.Web.StaticDir = staticdir
		mainConfig.Assets.MediaDirs = []string{staticdir}
	}
	if templatedir != "" {
		mainConfig.Web.TemplateDir = templatedir
		mainConfig.Assets.TemplateDirs = []string{templatedir}
	}
	if mediadirs != "" {
		for _, dir := range strings.Split(mediadirs, ",") {
			if dir = strings.TrimSpace(dir); dir != "" {
				mainConfig.Assets.MediaDirs = append(mainConfig.Assets.MediaDirs, dir)
			}
		}
	}
	if refreshSpec != "" {
		mainConfig.Assets.RefreshSpec = refreshSpec
	}

	// Validate port
	if mainConfig.Web.ListenPort < 1024 || mainConfig.Web.ListenPort > 65535 {
		log.Fatalf("[WEB]: invalid port number: %d (must be between 1024 and 65535)", mainConfig.Web.ListenPort)
	}

	// Initialize database
	dbconfig := database.DefaultDBConfig()
	dbconfig.DataDir = mainConfig.Database.DataDir
	db, err := database.OpenDatabase(dbconfig)
	if err != nil {
		log.Fatalf("[WEB]: failed to initialize database: %v", err)
	}

	server := web.NewServer(db, mainConfig)

	// Set up cross-platform signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	// Start web server in goroutine to make it non-blocking
	webServerErrChan := make(chan error, 1)
	go func() {
		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			webServerErrChan <- err
		}
	}()

	log.Printf("[WEB]: server started. Press Ctrl+C to gracefully shutdown...")

	// Wait for either shutdown signal or server error
	select {
	case <-sigChan:
		log.Printf("[WEB]: received shutdown signal, initiating graceful shutdown...")
	case err := <-webServerErrChan:
		log.Fatalf("[WEB]: failed to start web server: %v", err)
	}

	// Stop cron jobs, then the database
	server.Stop()

	if err := db.Shutdown(); err != nil {
		log.Fatalf("[WEB]: failed to shutdown database: %v", err)
	}

	log.Printf("[WEB]: graceful shutdown completed")
} // end main
