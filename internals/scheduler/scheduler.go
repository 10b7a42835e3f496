// Package scheduler runs the engine's periodic jobs: waiver clearing, offer
// and trade expiry, and cap reconciliation. Jobs run one after another; each
// job works in its own small units of work and never holds a lock between
// ticks.
package scheduler

import (
	"context"
	"time"

	"github.com/libertypfc/Hockeybot-sub000/internals/capledger"
	"github.com/libertypfc/Hockeybot-sub000/internals/contracts"
	"github.com/libertypfc/Hockeybot-sub000/internals/trade"
	"github.com/libertypfc/Hockeybot-sub000/internals/waivers"
	"github.com/rs/zerolog/log"
)

// Job reports how many records it changed.
type Job struct {
	Name string
	Run  func(ctx context.Context, now time.Time) (int, error)
}

// JobResult represents the result of a job execution
type JobResult struct {
	JobName  string        `json:"job_name"`
	Changed  int           `json:"changed"`
	Duration time.Duration `json:"duration"`
	Error    string        `json:"error,omitempty"`
}

type Scheduler struct {
	Interval time.Duration
	Jobs     []Job
	Now      func() time.Time
}

func New(interval time.Duration, jobs ...Job) *Scheduler {
	return &Scheduler{
		Interval: interval,
		Jobs:     jobs,
		Now:      func() time.Time { return time.Now().UTC() },
	}
}

// EngineJobs wires the standard maintenance jobs.
func EngineJobs(ws *waivers.WaiverService, cs *contracts.ContractService, ts *trade.TradeService, ledger *capledger.LedgerService) []Job {
	return []Job{
		{Name: "waiver_sweep", Run: ws.SweepExpired},
		{Name: "expire_offers", Run: cs.ExpireStale},
		{Name: "expire_trades", Run: ts.ExpireStale},
		{Name: "reconcile_cap", Run: func(ctx context.Context, _ time.Time) (int, error) {
			return ledger.ReconcileAll(ctx)
		}},
	}
}

// RunOnce runs every job with the same now. A failing job does not stop the
// ones after it.
func (s *Scheduler) RunOnce(ctx context.Context) []JobResult {
	now := s.Now()
	results := make([]JobResult, 0, len(s.Jobs))
	for _, job := range s.Jobs {
		start := time.Now()
		n, err := job.Run(ctx, now)
		res := JobResult{JobName: job.Name, Changed: n, Duration: time.Since(start)}
		if err != nil {
			res.Error = err.Error()
			log.Error().Err(err).Str("job", job.Name).Msg("scheduled job failed")
		} else {
			log.Debug().Str("job", job.Name).Int("changed", n).Dur("took", res.Duration).Msg("scheduled job done")
		}
		results = append(results, res)
	}
	return results
}

// Start runs the jobs every Interval until ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) {
	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	log.Info().Dur("interval", s.Interval).Int("jobs", len(s.Jobs)).Msg("scheduler started")
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("scheduler stopped")
			return
		case <-ticker.C:
			s.RunOnce(ctx)
		}
	}
}
