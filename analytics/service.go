package analytics

import (
	"context"
	"log/slog"
	"time"

	"github.com/kazeca/holyfit-sub000/core"
)

// Service bundles the KPI hooks with a periodic report exporter.
type Service struct {
	dau      *DAU
	metrics  *EngagementMetrics
	exporter Exporter
	interval time.Duration
	log      *slog.Logger
}

// NewService builds a Service. exporter may be nil when reports are
// consumed in-process only.
func NewService(exporter Exporter, interval time.Duration, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	if interval <= 0 {
		interval = time.Hour
	}
	return &Service{
		dau:      NewDAU(),
		metrics:  NewEngagementMetrics(),
		exporter: exporter,
		interval: interval,
		log:      log,
	}
}

// Hook returns the combined event hook to register on the event bus.
func (s *Service) Hook() Hook {
	return NewBridge(s.dau, s.metrics)
}

// Metrics exposes the underlying engagement aggregates.
func (s *Service) Metrics() *EngagementMetrics { return s.metrics }

// DAU exposes the daily active user tracker.
func (s *Service) DAU() *DAU { return s.dau }

// Report builds the KPI snapshot for a day ("2006-01-02").
func (s *Service) Report(day string) *Report {
	return s.metrics.Snapshot(day)
}

// Start runs the periodic export loop until ctx is cancelled.
func (s *Service) Start(ctx context.Context) {
	if s.exporter == nil {
		return
	}
	go func() {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				s.flush(context.Background())
				return
			case <-ticker.C:
				s.export(ctx)
			}
		}
	}()
}

func (s *Service) export(ctx context.Context) {
	day := string(core.Today(time.UTC))
	if err := s.exporter.Export(ctx, s.metrics.Snapshot(day)); err != nil {
		s.log.Warn("report export failed", "day", day, "error", err)
	}
}

func (s *Service) flush(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	s.export(ctx)
	if err := s.exporter.Flush(ctx); err != nil {
		s.log.Warn("report flush failed", "error", err)
	}
}

// Close flushes and closes the exporter.
func (s *Service) Close() error {
	if s.exporter == nil {
		return nil
	}
	s.flush(context.Background())
	return s.exporter.Close()
}
