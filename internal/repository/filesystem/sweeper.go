package filesystem

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// Sweeper deletes partial uploads left behind by a crash. Uploads that fail
// while the process is alive clean up after themselves.
type Sweeper struct {
	root   string
	maxAge time.Duration
	logger *slog.Logger
	cron   *cron.Cron
	now    func() time.Time
}

func NewSweeper(root string, maxAge time.Duration, logger *slog.Logger) *Sweeper {
	return &Sweeper{
		root:   root,
		maxAge: maxAge,
		logger: logger.With("component", "partial_sweeper"),
		cron:   cron.New(),
		now:    time.Now,
	}
}

// Start schedules Sweep with a cron spec such as "@every 10m".
func (s *Sweeper) Start(schedule string) error {
	if _, err := s.cron.AddFunc(schedule, func() {
		if _, err := s.Sweep(); err != nil {
			s.logger.Error("sweeping partial uploads", "error", err)
		}
	}); err != nil {
		return fmt.Errorf("invalid sweep schedule %q: %w", schedule, err)
	}
	s.cron.Start()
	s.logger.Info("partial upload sweeper started", "schedule", schedule, "max_age", s.maxAge)
	return nil
}

// Stop waits for a running sweep to finish.
func (s *Sweeper) Stop() {
	<-s.cron.Stop().Done()
}

// Sweep removes partial files older than maxAge and returns how many it removed.
func (s *Sweeper) Sweep() (int, error) {
	dir := filepath.Join(s.root, partialDir)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, fmt.Errorf("reading %s: %w", dir, err)
	}

	cutoff := s.now().Add(-s.maxAge)
	removed := 0
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), partialSuffix) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(dir, e.Name())); err != nil {
			s.logger.Warn("removing partial upload", "file", e.Name(), "error", err)
			continue
		}
		removed++
	}
	if removed > 0 {
		s.logger.Info("removed stale partial uploads", "count", removed)
	}
	return removed, nil
}
