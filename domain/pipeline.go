package domain

import (
	"context"
	"fmt"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

const defaultWorkers = 8

// PipelineConfig carries the collaborators and tuning for a Pipeline. Store,
// Prefs, Identities, Sender and Logger are required; Guard and Anomalies are
// optional.
type PipelineConfig struct {
	Store       TaskStore
	Prefs       PreferenceStore
	Identities  IdentityResolver
	Sender      Sender
	Guard       DispatchGuard
	Anomalies   AnomalyRecorder
	ScheduleURL string
	Workers     int
	Logger      *log.Logger
}

// Pipeline executes one reminder run: find due tasks per tier, aggregate per
// user, filter by opt-in, compose, dispatch, and mark notified flags only
// after a confirmed send.
type Pipeline struct {
	store       TaskStore
	prefs       PreferenceStore
	ids         IdentityResolver
	sender      Sender
	guard       DispatchGuard
	anomalies   AnomalyRecorder
	scheduleURL string
	workers     int
	logger      *log.Logger
}

// NewPipeline validates the config and builds a Pipeline.
func NewPipeline(cfg PipelineConfig) *Pipeline {
	if cfg.Store == nil {
		panic("domain.NewPipeline: task store is required")
	}
	if cfg.Prefs == nil {
		panic("domain.NewPipeline: preference store is required")
	}
	if cfg.Identities == nil {
		panic("domain.NewPipeline: identity resolver is required")
	}
	if cfg.Sender == nil {
		panic("domain.NewPipeline: sender is required")
	}
	if cfg.Logger == nil {
		panic("domain.NewPipeline: logger is required")
	}
	if cfg.Workers <= 0 {
		cfg.Workers = defaultWorkers
	}
	return &Pipeline{
		store:       cfg.Store,
		prefs:       cfg.Prefs,
		ids:         cfg.Identities,
		sender:      cfg.Sender,
		guard:       cfg.Guard,
		anomalies:   cfg.Anomalies,
		scheduleURL: cfg.ScheduleURL,
		workers:     cfg.Workers,
		logger:      cfg.Logger,
	}
}

// userResult carries one user's dispatch outcome back to the run accumulator.
type userResult struct {
	sent   TierCounts
	marked TierCounts
}

// Run performs one reminder batch invocation. A finder failure aborts the run
// before any dispatch; every later failure is absorbed per user/tier and
// reflected only in logs and counters.
func (p *Pipeline) Run(ctx context.Context, now time.Time) (Summary, error) {
	var sum Summary

	dueTomorrow, err := p.store.FindDueTasks(ctx, TierTomorrow, TierTomorrow.TargetDate(now))
	if err != nil {
		return Summary{}, fmt.Errorf("find tasks due tomorrow: %w", err)
	}
	dueWeekAhead, err := p.store.FindDueTasks(ctx, TierWeekAhead, TierWeekAhead.TargetDate(now))
	if err != nil {
		return Summary{}, fmt.Errorf("find tasks due in 7 days: %w", err)
	}
	sum.TasksDueTomorrow = len(dueTomorrow)
	sum.TasksDue7Days = len(dueWeekAhead)

	batches := GroupByUser(dueTomorrow, dueWeekAhead)
	sum.UsersProcessed = len(batches)
	if len(batches) == 0 {
		return sum, nil
	}

	// Batches are disjoint by user and mutate disjoint task rows, so they can
	// be dispatched concurrently. Bounded so a large backlog cannot flood the
	// store or the mail endpoint.
	results := make(chan userResult, len(batches))
	sem := make(chan struct{}, p.workers)
	var wg sync.WaitGroup
	for _, b := range batches {
		wg.Add(1)
		go func(b *Batch) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			results <- p.processUser(ctx, now, b)
		}(b)
	}
	wg.Wait()
	close(results)

	for r := range results {
		sum.EmailsSent.merge(r.sent)
		sum.TasksUpdated.merge(r.marked)
	}
	return sum, nil
}

func (p *Pipeline) processUser(ctx context.Context, now time.Time, b *Batch) userResult {
	var res userResult

	addr, err := p.ids.ResolveEmail(ctx, b.UserID)
	if err != nil || addr == "" {
		p.logger.WithFields(log.Fields{"user": b.UserID, "error": errString(err)}).
			Warn("no deliverable address, skipping user")
		return res
	}

	if len(b.Tasks(TierWeekAhead)) > 0 {
		optIn, found, err := p.prefs.FetchOptIn(ctx, b.UserID)
		if err != nil {
			p.logger.WithFields(log.Fields{"user": b.UserID, "error": err.Error()}).
				Warn("preference lookup failed, skipping user")
			return res
		}
		if !found || !optIn {
			b.Drop(TierWeekAhead)
		}
	}

	for _, tier := range Tiers {
		tasks := b.Tasks(tier)
		if len(tasks) == 0 {
			continue
		}
		p.dispatch(ctx, now, b.UserID, addr, tier, tasks, &res)
	}
	return res
}

// dispatch sends one composed message and, on confirmed success only, marks
// each contributing task as notified for the tier. A failed send leaves every
// flag untouched so the next run re-selects the same tasks.
func (p *Pipeline) dispatch(ctx context.Context, now time.Time, userID, addr string, tier Tier, tasks []Task, res *userResult) {
	date := tier.TargetDate(now)

	claimed := false
	if p.guard != nil {
		ok, err := p.guard.Acquire(ctx, date, userID, tier)
		if err != nil {
			// The notified flags remain the primary duplicate gate; an
			// unavailable guard must not stop reminders going out.
			p.logger.WithFields(log.Fields{"user": userID, "tier": tier.Code, "error": err.Error()}).
				Warn("dispatch guard unavailable, proceeding unguarded")
		} else if !ok {
			p.logger.WithFields(log.Fields{"user": userID, "tier": tier.Code}).
				Info("batch already claimed by a concurrent run")
			return
		} else {
			claimed = true
		}
	}

	msg := Compose(tier, tasks, p.scheduleURL)
	if err := p.sender.Send(ctx, addr, msg); err != nil {
		p.logger.WithFields(log.Fields{"user": userID, "tier": tier.Code, "tasks": len(tasks), "error": err.Error()}).
			Error("reminder send failed, tasks remain eligible")
		if claimed {
			if rerr := p.guard.Release(ctx, date, userID, tier); rerr != nil {
				p.logger.WithFields(log.Fields{"user": userID, "tier": tier.Code, "error": rerr.Error()}).
					Error("dispatch guard release failed")
			}
		}
		return
	}
	res.sent.add(tier, 1)

	for _, t := range tasks {
		if err := p.store.MarkNotified(ctx, t.UserID, t.ID, tier); err != nil {
			// The send already went out; a resend on the next run is the
			// accepted risk. Surface the task for reconciliation.
			p.logger.WithFields(log.Fields{"user": t.UserID, "task": t.ID, "tier": tier.Code, "error": err.Error()}).
				Error("task sent but not marked notified")
			if p.anomalies != nil {
				if aerr := p.anomalies.RecordUnmarked(ctx, t.UserID, t.ID, tier); aerr != nil {
					p.logger.WithFields(log.Fields{"task": t.ID, "error": aerr.Error()}).
						Error("anomaly record failed")
				}
			}
			continue
		}
		res.marked.add(tier, 1)
	}
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
