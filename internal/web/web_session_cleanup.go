package web

import (
	"fmt"
	"log"
)

// startCron registers the recurring maintenance jobs: asset serial
// rescans, expired session cleanup and expired API token cleanup.
func (s *WebServer) startCron() error {
	if _, err := s.cron.AddFunc(s.Config.Assets.RefreshSpec, func() {
		if err := s.Serials.Refresh(); err != nil {
			log.Printf("[CRON]: serial refresh failed: %v", err)
		}
	}); err != nil {
		return fmt.Errorf("invalid serial refresh spec %q: %w", s.Config.Assets.RefreshSpec, err)
	}

	if _, err := s.cron.AddFunc("@every 15m", func() {
		if err := s.DB.CleanupExpiredSessions(); err != nil {
			log.Printf("[CRON]: session cleanup failed: %v", err)
		}
	}); err != nil {
		return err
	}

	if _, err := s.cron.AddFunc("@hourly", func() {
		removed, err := s.DB.CleanupExpiredAPITokens()
		if err != nil {
			log.Printf("[CRON]: token cleanup failed: %v", err)
			return
		}
		if removed > 0 {
			log.Printf("[CRON]: removed %d expired API tokens", removed)
		}
	}); err != nil {
		return err
	}

	s.cron.Start()
	log.Printf("[CRON]: started maintenance jobs (serial refresh: %s)", s.Config.Assets.RefreshSpec)
	return nil
}
