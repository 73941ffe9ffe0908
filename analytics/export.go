package analytics

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/kazeca/holyfit-sub000/core"
)

// Report is a daily KPI snapshot built from EngagementMetrics.
type Report struct {
	Day              string                      `json:"day"`
	CreatedAt        time.Time                   `json:"created_at"`
	ActiveUsers      int                         `json:"active_users"`
	XPAwarded        int64                       `json:"xp_awarded"`
	XPSpent          int64                       `json:"xp_spent"`
	XPByActivity     map[core.ActivityType]int64 `json:"xp_by_activity,omitempty"`
	BadgesUnlocked   int64                       `json:"badges_unlocked"`
	LevelUps         int64                       `json:"level_ups"`
	StreaksLost      int64                       `json:"streaks_lost"`
	StreaksProtected int64                       `json:"streaks_protected"`
	ShieldsPurchased int64                       `json:"shields_purchased"`
	ShieldsUsed      int64                       `json:"shields_used"`
}

// Exporter defines the interface for exporting KPI reports
type Exporter interface {
	Export(ctx context.Context, report *Report) error
	Flush(ctx context.Context) error
	Close() error
}

// HTTPExporter exports reports to an external HTTP endpoint in batches
type HTTPExporter struct {
	endpoint   string
	apiKey     string
	httpClient *http.Client
	buffer     []*Report
	batchSize  int
}

func NewHTTPExporter(endpoint, apiKey string, batchSize int) *HTTPExporter {
	return &HTTPExporter{
		endpoint: endpoint,
		apiKey:   apiKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		buffer:    make([]*Report, 0, batchSize),
		batchSize: batchSize,
	}
}

func (e *HTTPExporter) Export(ctx context.Context, report *Report) error {
	e.buffer = append(e.buffer, report)

	if len(e.buffer) >= e.batchSize {
		return e.Flush(ctx)
	}

	return nil
}

func (e *HTTPExporter) Flush(ctx context.Context) error {
	if len(e.buffer) == 0 {
		return nil
	}

	payload, err := json.Marshal(e.buffer)
	if err != nil {
		return fmt.Errorf("failed to marshal reports: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", e.endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if e.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+e.apiKey)
	}

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send reports: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("report export failed with status %d: %s", resp.StatusCode, string(body))
	}

	// Clear buffer on successful export
	e.buffer = e.buffer[:0]
	return nil
}

func (e *HTTPExporter) Close() error {
	// Flush any remaining data
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return e.Flush(ctx)
}

// ConsoleExporter exports reports to console (for debugging)
type ConsoleExporter struct {
	prefix string
}

func NewConsoleExporter(prefix string) *ConsoleExporter {
	return &ConsoleExporter{prefix: prefix}
}

func (e *ConsoleExporter) Export(ctx context.Context, report *Report) error {
	jsonData, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return err
	}

	fmt.Printf("%s KPI report:\n%s\n", e.prefix, string(jsonData))
	return nil
}

func (e *ConsoleExporter) Flush(ctx context.Context) error {
	return nil
}

func (e *ConsoleExporter) Close() error {
	return nil
}

// MultiExporter fans reports out to multiple exporters
type MultiExporter struct {
	exporters []Exporter
}

func NewMultiExporter(exporters ...Exporter) *MultiExporter {
	return &MultiExporter{exporters: exporters}
}

func (e *MultiExporter) Export(ctx context.Context, report *Report) error {
	for _, exporter := range e.exporters {
		if err := exporter.Export(ctx, report); err != nil {
			// Continue with other exporters
			fmt.Printf("export error: %v\n", err)
		}
	}
	return nil
}

func (e *MultiExporter) Flush(ctx context.Context) error {
	for _, exporter := range e.exporters {
		if err := exporter.Flush(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (e *MultiExporter) Close() error {
	var lastErr error
	for _, exporter := range e.exporters {
		if err := exporter.Close(); err != nil {
			lastErr = err
		}
	}
	return lastErr
}
