// Package assetserial computes cache-busting serial numbers from file
// modification times. Templates append the serial as a query string to
// static asset URLs so browsers refetch after a deploy.
package assetserial

import (
	"html/template"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"
)

// Scanner tracks the media and ajax serials for a set of directory
// roots. The media serial covers static assets; the ajax serial also
// covers template directories, since template edits change the payloads
// delivered to cached client-side code.
type Scanner struct {
	mediaRoots    []string
	templateRoots []string

	mux         sync.RWMutex
	mediaSerial uint64
	ajaxSerial  uint64
	lastRefresh time.Time
}

// NewScanner creates a Scanner over the given roots. No scan happens
// until Refresh is called.
func NewScanner(mediaRoots, templateRoots []string) *Scanner {
	return &Scanner{
		mediaRoots:    mediaRoots,
		templateRoots: templateRoots,
	}
}

// walkMax returns the maximum file modification time (Unix seconds)
// under root. A missing root contributes zero. Unreadable entries are
// logged and skipped.
func walkMax(root string) (uint64, error) {
	if _, err := os.Stat(root); os.IsNotExist(err) {
		return 0, nil
	}

	var max uint64
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			log.Printf("[SERIAL]: skipping %s: %v", path, err)
			return nil
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			log.Printf("[SERIAL]: skipping %s: %v", path, err)
			return nil
		}
		if mtime := uint64(info.ModTime().Unix()); mtime > max {
			max = mtime
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return max, nil
}

// Refresh rescans all roots and stores the new serials. On error the
// previous serials stay in place.
func (s *Scanner) Refresh() error {
	var media uint64
	for _, root := range s.mediaRoots {
		m, err := walkMax(root)
		if err != nil {
			return err
		}
		if m > media {
			media = m
		}
	}

	ajax := media
	for _, root := range s.templateRoots {
		m, err := walkMax(root)
		if err != nil {
			return err
		}
		if m > ajax {
			ajax = m
		}
	}

	s.mux.Lock()
	s.mediaSerial = media
	s.ajaxSerial = ajax
	s.lastRefresh = time.Now()
	s.mux.Unlock()
	return nil
}

// MediaSerial returns the last computed media serial (0 before the
// first successful Refresh).
func (s *Scanner) MediaSerial() uint64 {
	s.mux.RLock()
	defer s.mux.RUnlock()
	return s.mediaSerial
}

// AjaxSerial returns the last computed ajax serial.
func (s *Scanner) AjaxSerial() uint64 {
	s.mux.RLock()
	defer s.mux.RUnlock()
	return s.ajaxSerial
}

// LastRefresh returns when the serials were last recomputed.
func (s *Scanner) LastRefresh() time.Time {
	s.mux.RLock()
	defer s.mux.RUnlock()
	return s.lastRefresh
}

// StaticURL appends the media serial to an asset path as a query
// string cache buster.
func (s *Scanner) StaticURL(path string) string {
	return path + "?" + strconv.FormatUint(s.MediaSerial(), 10)
}

// FuncMap returns the template helpers mediaSerial, ajaxSerial and
// staticURL for the web layer's templates.
func (s *Scanner) FuncMap() template.FuncMap {
	return template.FuncMap{
		"mediaSerial": s.MediaSerial,
		"ajaxSerial":  s.AjaxSerial,
		"staticURL":   s.StaticURL,
	}
}
