// Package outbox implements the reward/side-effect dispatcher. Primary
// mutations enqueue jobs transactionally (see repo.EnqueueJob) and return;
// a background worker drains the queue and performs the bookkeeping: world
// resource increments, activity-feed lines, secret grants, and denormalized
// counters. A job failure is logged and retried up to a cap; it can never
// turn an already-committed primary write into a user-visible error.
package outbox

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/leadcraft/leadcraft-backend/internal/domain"
	"github.com/leadcraft/leadcraft-backend/internal/repo"
)

// Payload types, one per job kind. They are marshalled into
// domain.OutboxJob.Payload.

// ChallengeRewardPayload triggers the full reward pipeline for a challenge
// response: look up the challenge's reward spec, credit the student, append
// a feed line, bump the response counter.
type ChallengeRewardPayload struct {
	ChallengeID string `json:"challenge_id"`
	StudentID   string `json:"student_id"`
}

// FeedEntryPayload appends one activity-feed line.
type FeedEntryPayload struct {
	StudentID string `json:"student_id"`
	ClassID   string `json:"class_id"`
	Kind      string `json:"kind"`
	Message   string `json:"message"`
}

// SecretGrantPayload unlocks a discovered secret.
type SecretGrantPayload struct {
	StudentID string `json:"student_id"`
	Code      string `json:"code"`
}

// WorldSeedPayload idempotently seeds a student's world-resource row.
type WorldSeedPayload struct {
	StudentID string `json:"student_id"`
}

// Enqueue marshals payload and inserts a pending job using db, which should
// be the primary write's transaction handle.
func Enqueue(ctx context.Context, db *gorm.DB, kind string, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("outbox: marshal %s payload: %w", kind, err)
	}
	return repo.EnqueueJob(ctx, db, kind, string(raw))
}

var (
	jobsProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "outbox_jobs_processed_total",
		Help: "Outbox jobs completed successfully, by kind.",
	}, []string{"kind"})

	jobsFailed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "outbox_jobs_failed_total",
		Help: "Outbox job attempts that failed, by kind.",
	}, []string{"kind"})
)

// Dispatcher drains pending jobs on a ticker.
type Dispatcher struct {
	DB          *gorm.DB
	Interval    time.Duration
	BatchSize   int
	MaxAttempts int
}

// NewDispatcher returns a dispatcher with production defaults.
func NewDispatcher(db *gorm.DB) *Dispatcher {
	return &Dispatcher{
		DB:          db,
		Interval:    2 * time.Second,
		BatchSize:   20,
		MaxAttempts: 3,
	}
}

// Run processes jobs until ctx is cancelled. It is intended to be started as
// a goroutine from main; a panic inside a job is recovered so the worker
// never takes the process down.
func (d *Dispatcher) Run(ctx context.Context) {
	ticker := time.NewTicker(d.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.Drain(ctx)
		}
	}
}

// Drain claims and processes one batch of pending jobs. Exposed so tests
// (and shutdown paths) can pump the queue without the ticker.
func (d *Dispatcher) Drain(ctx context.Context) {
	jobs, err := repo.ClaimPendingJobs(ctx, d.DB, d.BatchSize)
	if err != nil {
		log.Error().Err(err).Str("component", "outbox").Msg("claim pending jobs")
		return
	}
	for i := range jobs {
		d.runJob(ctx, &jobs[i])
	}
}

// runJob executes one job, recovering panics and recording the outcome.
func (d *Dispatcher) runJob(ctx context.Context, job *domain.OutboxJob) {
	var err error
	func() {
		defer func() {
			if rec := recover(); rec != nil {
				err = fmt.Errorf("panic: %v", rec)
			}
		}()
		err = d.execute(ctx, job)
	}()

	if err == nil {
		jobsProcessed.WithLabelValues(job.Kind).Inc()
		if merr := repo.MarkJobDone(ctx, d.DB, job.ID); merr != nil {
			log.Error().Err(merr).Str("component", "outbox").Str("job_id", job.ID).Msg("mark job done")
		}
		return
	}

	jobsFailed.WithLabelValues(job.Kind).Inc()
	attempts := job.Attempts + 1
	log.Error().Err(err).
		Str("component", "outbox").
		Str("job_id", job.ID).
		Str("kind", job.Kind).
		Int("attempts", attempts).
		Msg("outbox job failed")
	if merr := repo.MarkJobFailed(ctx, d.DB, job.ID, attempts, d.MaxAttempts, err.Error()); merr != nil {
		log.Error().Err(merr).Str("component", "outbox").Str("job_id", job.ID).Msg("mark job failed")
	}
}

// execute dispatches on the job kind. Multi-step jobs run inside one
// transaction so a retry after failure never applies a step twice.
func (d *Dispatcher) execute(ctx context.Context, job *domain.OutboxJob) error {
	switch job.Kind {
	case domain.JobChallengeReward:
		var p ChallengeRewardPayload
		if err := json.Unmarshal([]byte(job.Payload), &p); err != nil {
			return fmt.Errorf("decode payload: %w", err)
		}
		return d.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			ch, err := repo.GetTeacherChallenge(ctx, tx, p.ChallengeID)
			if err != nil {
				return fmt.Errorf("lookup challenge: %w", err)
			}
			if err := repo.IncrementWorldResource(ctx, tx, p.StudentID, ch.RewardType, ch.RewardAmount); err != nil {
				return fmt.Errorf("increment resource: %w", err)
			}
			msg := fmt.Sprintf("completed the challenge %q and earned %d %s", ch.Title, ch.RewardAmount, ch.RewardType)
			if err := repo.AddToFeed(ctx, tx, p.StudentID, ch.ClassID, "challenge_response", msg); err != nil {
				return fmt.Errorf("feed entry: %w", err)
			}
			if err := repo.IncrementResponseCount(ctx, tx, ch.ID); err != nil {
				return fmt.Errorf("response count: %w", err)
			}
			return nil
		})

	case domain.JobFeedEntry:
		var p FeedEntryPayload
		if err := json.Unmarshal([]byte(job.Payload), &p); err != nil {
			return fmt.Errorf("decode payload: %w", err)
		}
		return repo.AddToFeed(ctx, d.DB, p.StudentID, p.ClassID, p.Kind, p.Message)

	case domain.JobSecretGrant:
		var p SecretGrantPayload
		if err := json.Unmarshal([]byte(job.Payload), &p); err != nil {
			return fmt.Errorf("decode payload: %w", err)
		}
		return repo.GrantSecret(ctx, d.DB, p.StudentID, p.Code)

	case domain.JobWorldSeed:
		var p WorldSeedPayload
		if err := json.Unmarshal([]byte(job.Payload), &p); err != nil {
			return fmt.Errorf("decode payload: %w", err)
		}
		return repo.EnsureWorld(ctx, d.DB, p.StudentID)

	default:
		return fmt.Errorf("unknown job kind %q", job.Kind)
	}
}
