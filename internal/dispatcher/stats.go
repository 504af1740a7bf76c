package dispatcher

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/BradenHooton/gatekeeper/internal/models"
)

// Stats accumulates probe counters for one run. Safe for concurrent use.
type Stats struct {
	mu         sync.Mutex
	startTime  time.Time
	totalTried int
	failed     int
	errors     int
	successful []models.Finding
	reqCount   int
	reqTotal   time.Duration
	reqMin     time.Duration
	reqMax     time.Duration
}

// StatsReport is the JSON written to the stats file
type StatsReport struct {
	RunID              string           `json:"runId,omitempty"`
	Mode               string           `json:"mode,omitempty"`
	Username           string           `json:"username,omitempty"`
	InstanceID         int              `json:"instanceId"`
	TotalInstances     int              `json:"totalInstances"`
	StartTime          time.Time        `json:"startTime"`
	TotalTried         int              `json:"totalTried"`
	Successful         []models.Finding `json:"successful"`
	Failed             int              `json:"failed"`
	Errors             int              `json:"errors"`
	Duration           string           `json:"duration"`
	AverageRequestTime string           `json:"averageRequestTime"`
	MinRequestTime     string           `json:"minRequestTime"`
	MaxRequestTime     string           `json:"maxRequestTime"`
	RequestsPerSecond  string           `json:"requestsPerSecond"`
	StopReason         string           `json:"stopReason,omitempty"`
}

// NewStats starts the clock at startTime
func NewStats(startTime time.Time) *Stats {
	return &Stats{startTime: startTime, successful: []models.Finding{}}
}

// Record counts one probe. Transport errors are not counted as tried.
func (s *Stats) Record(r ProbeResult) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if r.Outcome == Error {
		s.errors++
		return
	}

	s.totalTried++
	if r.Outcome == NoMatch {
		s.failed++
	}

	s.reqCount++
	s.reqTotal += r.Duration
	if s.reqCount == 1 || r.Duration < s.reqMin {
		s.reqMin = r.Duration
	}
	if r.Duration > s.reqMax {
		s.reqMax = r.Duration
	}
}

// RecordFinding adds a successful credential pair
func (s *Stats) RecordFinding(f models.Finding) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.successful = append(s.successful, f)
}

// Tried returns the number of completed probes that got an HTTP answer
func (s *Stats) Tried() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.totalTried
}

// Snapshot summarizes the counters as of now
func (s *Stats) Snapshot(now time.Time) StatsReport {
	s.mu.Lock()
	defer s.mu.Unlock()

	elapsed := now.Sub(s.startTime)
	var avg time.Duration
	if s.reqCount > 0 {
		avg = s.reqTotal / time.Duration(s.reqCount)
	}
	var rps float64
	if elapsed > 0 {
		rps = float64(s.totalTried) / elapsed.Seconds()
	}

	successful := make([]models.Finding, len(s.successful))
	copy(successful, s.successful)

	return StatsReport{
		StartTime:          s.startTime,
		TotalTried:         s.totalTried,
		Successful:         successful,
		Failed:             s.failed,
		Errors:             s.errors,
		Duration:           fmt.Sprintf("%.2fs", elapsed.Seconds()),
		AverageRequestTime: formatMillis(avg),
		MinRequestTime:     formatMillis(s.reqMin),
		MaxRequestTime:     formatMillis(s.reqMax),
		RequestsPerSecond:  fmt.Sprintf("%.2f", rps),
	}
}

func formatMillis(d time.Duration) string {
	return fmt.Sprintf("%.2fms", float64(d)/float64(time.Millisecond))
}

// SaveStats writes report as indented JSON
func SaveStats(path string, report StatsReport) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode stats: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write stats: %w", err)
	}
	return nil
}
