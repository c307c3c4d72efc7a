package server

import (
	"context"
	"errors"
	"testing"

	"SigForge/pkg/logger"
)

type stubDepthReader struct {
	depth int64
	err   error
}

func (s stubDepthReader) Depth(_ context.Context) (int64, error) {
	return s.depth, s.err
}

type depthRecorder struct {
	set  bool
	last int
}

func (r *depthRecorder) RecordCandidate(_, _ string)            {}
func (r *depthRecorder) RecordSelection(_ string)               {}
func (r *depthRecorder) RecordSkip(_ string)                    {}
func (r *depthRecorder) RecordError(_ string)                   {}
func (r *depthRecorder) RecordQualityScore(_ string, _ float64) {}
func (r *depthRecorder) RecordLatency(_ string, _ float64)      {}
func (r *depthRecorder) RecordBacktestRun(_ string)             {}
func (r *depthRecorder) SetBacktestQueueDepth(n int) {
	r.set = true
	r.last = n
}

func TestReportQueueDepth(t *testing.T) {
	rec := &depthRecorder{}
	reportQueueDepth(context.Background(), stubDepthReader{depth: 7}, rec, logger.Nop())
	if !rec.set || rec.last != 7 {
		t.Fatalf("gauge = (%v, %d), want (true, 7)", rec.set, rec.last)
	}
}

func TestReportQueueDepthErrorSkipsGauge(t *testing.T) {
	rec := &depthRecorder{}
	reportQueueDepth(context.Background(), stubDepthReader{err: errors.New("redis down")}, rec, logger.Nop())
	if rec.set {
		t.Fatalf("gauge updated on error, last = %d", rec.last)
	}
}
