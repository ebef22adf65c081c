// Prints cache-busting asset serials for deploy scripts
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/go-while/go-sitekit/internal/assetserial"
	"github.com/go-while/go-sitekit/internal/config"
)

var appVersion = "-unset-"

func main() {
	config.AppVersion = appVersion
	var (
		mediaDirs    = flag.String("media", "internal/web/static", "Comma-separated media directories")
		templateDirs = flag.String("templates", "web/templates", "Comma-separated template directories")
		watch        = flag.Duration("watch", 0, "Rescan and print at this interval (0 = print once and exit)")
	)
	flag.Parse()

	media := splitDirs(*mediaDirs)
	templates := splitDirs(*templateDirs)

	// At least one root has to exist, otherwise the serials are
	// meaningless zeros and the deploy script should know.
	existing := 0
	for _, dir := range append(append([]string{}, media...), templates...) {
		if _, err := os.Stat(dir); err == nil {
			existing++
		}
	}
	if existing == 0 {
		log.Printf("[SERIAL]: none of the given directories exist")
		os.Exit(1)
	}

	scanner := assetserial.NewScanner(media, templates)
	for {
		if err := scanner.Refresh(); err != nil {
			log.Fatalf("[SERIAL]: refresh failed: %v", err)
		}
		fmt.Printf("media=%d ajax=%d\n", scanner.MediaSerial(), scanner.AjaxSerial())
		if *watch <= 0 {
			return
		}
		time.Sleep(*watch)
	}
}

func splitDirs(s string) []string {
	var out []string
	for _, dir := range strings.Split(s, ",") {
		if dir = strings.TrimSpace(dir); dir != "" {
			out = append(out, dir)
		}
	}
	return out
}
