// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides the outbox helpers used by the
// side-effect dispatcher: jobs are enqueued inside the primary write's
// transaction and claimed in batches by the worker.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/leadcraft/leadcraft-backend/internal/domain"
)

// EnqueueJob inserts a pending outbox job. Pass the primary write's
// transaction handle so the job commits or rolls back with it.
func EnqueueJob(ctx context.Context, db *gorm.DB, kind, payload string) error {
	j := &domain.OutboxJob{
		ID:        uuid.NewString(),
		Kind:      kind,
		Payload:   payload,
		Status:    domain.JobPending,
		CreatedAt: time.Now().UTC(),
	}
	return db.WithContext(ctx).Create(j).Error
}

// ClaimPendingJobs returns up to limit pending jobs, oldest first.
func ClaimPendingJobs(ctx context.Context, db *gorm.DB, limit int) ([]domain.OutboxJob, error) {
	if limit <= 0 {
		limit = 20
	}
	var out []domain.OutboxJob
	err := db.WithContext(ctx).
		Where("status = ?", domain.JobPending).
		Order("created_at asc").
		Limit(limit).
		Find(&out).Error
	return out, err
}

// MarkJobDone stamps a job as processed.
func MarkJobDone(ctx context.Context, db *gorm.DB, id string) error {
	now := time.Now().UTC()
	return db.WithContext(ctx).
		Model(&domain.OutboxJob{}).
		Where("id = ?", id).
		Updates(map[string]any{"status": domain.JobDone, "processed_at": now}).Error
}

// MarkJobFailed records a failed attempt. The job stays pending for retry
// until attempts reach maxAttempts, then moves to failed permanently.
func MarkJobFailed(ctx context.Context, db *gorm.DB, id string, attempts, maxAttempts int, lastError string) error {
	status := domain.JobPending
	if attempts >= maxAttempts {
		status = domain.JobFailed
	}
	return db.WithContext(ctx).
		Model(&domain.OutboxJob{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":     status,
			"attempts":   attempts,
			"last_error": lastError,
		}).Error
}
