package usecase

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"SigForge/internal/domain/models"
	"SigForge/internal/domain/repository"
	"SigForge/pkg/cache"
	"SigForge/pkg/logger"
	"SigForge/pkg/util"
)

// leaseKeyPrefix namespaces the per-period selection lease in Redis.
const leaseKeyPrefix = "selection:lease:"

// SelectionConfig holds the dedup and quota parameters.
type SelectionConfig struct {
	Quota           int
	DuplicateWindow time.Duration
	LeaseTTL        time.Duration
}

// Period collects candidates for one evaluation period. Lifecycle:
// OPEN on creation, COLLECTING once the first candidate arrives, CLOSED
// after a successful Close.
type Period struct {
	key        string
	mu         sync.Mutex
	status     models.PeriodStatus
	candidates []models.CandidateSignal
}

// NewPeriod opens a collection period for the given key.
func NewPeriod(key string) *Period {
	return &Period{key: key, status: models.PeriodOpen}
}

// Key returns the period key.
func (p *Period) Key() string { return p.key }

// Status returns the current lifecycle state.
func (p *Period) Status() models.PeriodStatus {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status
}

// Add collects a candidate. Candidates arriving after close are rejected.
func (p *Period) Add(sig models.CandidateSignal) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.status == models.PeriodClosed {
		return fmt.Errorf("period %s already closed", p.key)
	}
	p.status = models.PeriodCollecting
	p.candidates = append(p.candidates, sig)
	return nil
}

func (p *Period) snapshot() []models.CandidateSignal {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]models.CandidateSignal, len(p.candidates))
	copy(out, p.candidates)
	return out
}

func (p *Period) markClosed() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.status = models.PeriodClosed
}

// SelectionEngine deduplicates, ranks and persists the per-period signal
// set. It is the pipeline's only serialization point: the whole
// discard/rank/persist sequence runs under an exclusive per-period lease.
type SelectionEngine struct {
	signals repository.SignalStore
	locker  cache.Locker
	metrics repository.Metrics
	cfg     SelectionConfig
	logger  *logger.Logger
}

// NewSelectionEngine creates a selection engine.
func NewSelectionEngine(signals repository.SignalStore, locker cache.Locker, metrics repository.Metrics, cfg SelectionConfig, lgr *logger.Logger) *SelectionEngine {
	if cfg.Quota <= 0 {
		cfg.Quota = 5
	}
	if cfg.LeaseTTL <= 0 {
		cfg.LeaseTTL = 2 * time.Minute
	}
	return &SelectionEngine{signals: signals, locker: locker, metrics: metrics, cfg: cfg, logger: lgr}
}

// Close runs the selection sequence for the period: drop short-window
// duplicates keeping the higher score, enforce one signal per symbol per
// calendar day, rank, and persist ranks 1..N. A held lease elsewhere
// yields models.ErrSelectionConflict with nothing persisted. Re-closing
// with identical candidates is idempotent.
func (e *SelectionEngine) Close(ctx context.Context, period *Period) ([]models.SelectionRecord, error) {
	key := period.Key()

	acquired, err := e.locker.TryLock(ctx, leaseKeyPrefix+key, e.cfg.LeaseTTL)
	if err != nil {
		return nil, fmt.Errorf("acquire selection lease %s: %w", key, err)
	}
	if !acquired {
		e.metrics.RecordError("selection_conflict")
		return nil, fmt.Errorf("period %s: %w", key, models.ErrSelectionConflict)
	}
	defer func() {
		if err := e.locker.Unlock(ctx, leaseKeyPrefix+key); err != nil {
			e.logger.Warn("failed to release selection lease", logger.String("period", key), logger.Error(err))
		}
	}()

	periodStart, ok := util.ParsePeriodKey(key)
	if !ok {
		return nil, fmt.Errorf("malformed period key %q", key)
	}

	candidates := dropShortWindowDuplicates(period.snapshot(), e.cfg.DuplicateWindow)

	taken, err := e.symbolsTakenToday(ctx, key, util.DayKey(periodStart))
	if err != nil {
		return nil, err
	}
	candidates = dropTakenSymbols(candidates, taken)

	rankCandidates(candidates)

	// one rank per symbol, top N overall
	records := make([]models.SelectionRecord, 0, e.cfg.Quota)
	seen := make(map[string]bool)
	for _, c := range candidates {
		if len(records) == e.cfg.Quota {
			break
		}
		if seen[c.Symbol] {
			continue
		}
		seen[c.Symbol] = true
		records = append(records, models.SelectionRecord{
			PeriodKey:    key,
			Rank:         len(records) + 1,
			SignalID:     c.ID,
			Symbol:       c.Symbol,
			QualityScore: c.QualityScore,
			SelectedAt:   periodStart,
		})
	}

	if err := e.signals.ReplaceSelections(ctx, key, records); err != nil {
		return nil, fmt.Errorf("persist selections %s: %w", key, err)
	}
	period.markClosed()

	e.metrics.RecordSelection(key)
	e.logger.Info("period closed",
		logger.String("period", key),
		logger.Int("selected", len(records)),
	)
	return records, nil
}

// symbolsTakenToday returns symbols already selected today by other
// periods. The current period's own prior records are ignored so a re-run
// does not exclude itself.
func (e *SelectionEngine) symbolsTakenToday(ctx context.Context, periodKey, dayKey string) (map[string]bool, error) {
	existing, err := e.signals.SelectionsOn(ctx, dayKey)
	if err != nil {
		return nil, fmt.Errorf("load day selections %s: %w", dayKey, err)
	}
	taken := make(map[string]bool, len(existing))
	for _, r := range existing {
		if r.PeriodKey != periodKey {
			taken[r.Symbol] = true
		}
	}
	return taken, nil
}

// dropShortWindowDuplicates keeps, per symbol, only the highest-quality
// candidate among those generated within window of each other.
func dropShortWindowDuplicates(candidates []models.CandidateSignal, window time.Duration) []models.CandidateSignal {
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Symbol != candidates[j].Symbol {
			return candidates[i].Symbol < candidates[j].Symbol
		}
		return candidates[i].GeneratedAt.Before(candidates[j].GeneratedAt)
	})

	var out []models.CandidateSignal
	for _, c := range candidates {
		if len(out) > 0 {
			last := &out[len(out)-1]
			if last.Symbol == c.Symbol && c.GeneratedAt.Sub(last.GeneratedAt) <= window {
				if c.QualityScore > last.QualityScore {
					*last = c
				}
				continue
			}
		}
		out = append(out, c)
	}
	return out
}

func dropTakenSymbols(candidates []models.CandidateSignal, taken map[string]bool) []models.CandidateSignal {
	out := candidates[:0]
	for _, c := range candidates {
		if !taken[c.Symbol] {
			out = append(out, c)
		}
	}
	return out
}

// rankCandidates orders by quality desc, reward:risk desc, confidence
// desc, with symbol as the final deterministic tie-break.
func rankCandidates(candidates []models.CandidateSignal) {
	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.QualityScore != b.QualityScore {
			return a.QualityScore > b.QualityScore
		}
		if ar, br := a.RewardRisk(), b.RewardRisk(); ar != br {
			return ar > br
		}
		if a.Confidence != b.Confidence {
			return a.Confidence > b.Confidence
		}
		return a.Symbol < b.Symbol
	})
}
