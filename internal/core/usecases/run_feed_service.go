package usecases

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/samirrijal/platekit/internal/core/domain"
	"github.com/samirrijal/platekit/internal/core/ports"
)

// RunDigest is the compact broadcast sent to dashboard clients for each
// finished run, with running totals since the feed started.
type RunDigest struct {
	RunID      string                   `json:"run_id"`
	Status     domain.RunStatus         `json:"status"`
	Input      string                   `json:"input"`
	Kept       int                      `json:"kept"`
	Dropped    int                      `json:"dropped"`
	DurationMs int64                    `json:"duration_ms"`
	Totals     map[domain.RunStatus]int `json:"totals"`
	SentAt     time.Time                `json:"sent_at"`
}

// RunFeedService turns run events into broadcast digests.
type RunFeedService struct {
	publisher ports.EventPublisher
	now       func() time.Time

	mu     sync.Mutex
	totals map[domain.RunStatus]int
}

// NewRunFeedService creates a new RunFeedService.
func NewRunFeedService(publisher ports.EventPublisher) *RunFeedService {
	return &RunFeedService{
		publisher: publisher,
		now:       time.Now,
		totals:    make(map[domain.RunStatus]int),
	}
}

// ProcessRunEvent counts a finished run and broadcasts its digest. A failed
// broadcast is returned so the broker can redeliver the event.
func (s *RunFeedService) ProcessRunEvent(ctx context.Context, ev *domain.FilterRunEvent) error {
	if ev == nil || ev.RunID == "" {
		return fmt.Errorf("run event without id")
	}

	s.mu.Lock()
	s.totals[ev.Status]++
	totals := make(map[domain.RunStatus]int, len(s.totals))
	for k, v := range s.totals {
		totals[k] = v
	}
	s.mu.Unlock()

	digest := RunDigest{
		RunID:      ev.RunID,
		Status:     ev.Status,
		Input:      ev.Input,
		Kept:       ev.OutputSize,
		Dropped:    ev.InputSize - ev.OutputSize,
		DurationMs: ev.DurationMs,
		Totals:     totals,
		SentAt:     s.now().UTC(),
	}
	data, err := json.Marshal(digest)
	if err != nil {
		return fmt.Errorf("encode digest: %w", err)
	}
	if err := s.publisher.PublishBroadcast(ctx, data); err != nil {
		return fmt.Errorf("broadcast run %s: %w", ev.RunID, err)
	}
	return nil
}

// Follow feeds every run event delivered by sub into ProcessRunEvent.
func (s *RunFeedService) Follow(ctx context.Context, sub ports.EventSubscriber) error {
	return sub.SubscribeFilterRuns(ctx, s.ProcessRunEvent)
}
