// Outbox model for detached side effects.
//
// Reward bookkeeping (resource increments, feed lines, denormalized
// counters) must never block or roll back the primary write that earned it.
// Jobs are therefore enqueued in the same transaction as the primary
// mutation and drained by a background worker; a failed job is observable
// and retryable instead of silently logged-and-dropped.
package domain

import "time"

// Outbox job statuses.
const (
	JobPending = "pending"
	JobDone    = "done"
	JobFailed  = "failed"
)

// Outbox job kinds understood by the dispatcher.
const (
	JobChallengeReward = "challenge_reward"
	JobFeedEntry       = "feed_entry"
	JobSecretGrant     = "secret_grant"
	JobWorldSeed       = "world_seed"
)

// OutboxJob is one pending side effect. Payload is a kind-specific JSON
// document; Attempts and LastError make failures diagnosable.
type OutboxJob struct {
	ID          string     `json:"id"           gorm:"type:char(36);primaryKey"`
	Kind        string     `json:"kind"         gorm:"type:varchar(40);not null;index:idx_outbox_kind"`
	Payload     string     `json:"payload"      gorm:"type:text;not null"`
	Status      string     `json:"status"       gorm:"type:varchar(20);not null;default:'pending';index:idx_outbox_status"`
	Attempts    int        `json:"attempts"     gorm:"not null;default:0"`
	LastError   string     `json:"last_error"   gorm:"type:text;not null;default:''"`
	CreatedAt   time.Time  `json:"created_at"   gorm:"index"`
	ProcessedAt *time.Time `json:"processed_at"`
}

// TableName returns the database table name for OutboxJob.
func (OutboxJob) TableName() string { return "outbox_jobs" }
