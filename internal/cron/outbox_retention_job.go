package cron

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/angelmondragon/offerpay-backend/pkg/logger"
)

const defaultOutboxRetention = 30 * 24 * time.Hour

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type OutboxRetentionJobParams struct {
	Logger     *logger.Logger
	DB         txRunner
	Repository outboxRetentionRepo
	Retention  time.Duration
	// ParkedAttempts is the publisher's max attempts; rows at or above it are
	// parked and purged with published rows. Zero keeps parked rows.
	ParkedAttempts int
}

type outboxRetentionRepo interface {
	DeleteFinishedBefore(ctx context.Context, tx *gorm.DB, cutoff time.Time, parkedAttempts int) (int64, error)
}

func NewOutboxRetentionJob(params OutboxRetentionJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if params.Repository == nil {
		return nil, fmt.Errorf("outbox repository required")
	}
	retention := params.Retention
	if retention <= 0 {
		retention = defaultOutboxRetention
	}
	return &outboxRetentionJob{
		logg:           params.Logger,
		db:             params.DB,
		repo:           params.Repository,
		retention:      retention,
		parkedAttempts: params.ParkedAttempts,
		now:            time.Now,
	}, nil
}

type outboxRetentionJob struct {
	logg           *logger.Logger
	db             txRunner
	repo           outboxRetentionRepo
	retention      time.Duration
	parkedAttempts int
	now            func() time.Time
}

func (j *outboxRetentionJob) Name() string { return "outbox_retention" }

func (j *outboxRetentionJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.retention)
	var deleted int64
	err := j.db.WithTx(ctx, func(tx *gorm.DB) error {
		rows, err := j.repo.DeleteFinishedBefore(ctx, tx, cutoff, j.parkedAttempts)
		if err != nil {
			return err
		}
		deleted = rows
		return nil
	})
	if err != nil {
		return fmt.Errorf("outbox retention: %w", err)
	}
	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"cutoff":          cutoff,
		"retention_hours": int(j.retention.Hours()),
		"parked_attempts": j.parkedAttempts,
		"rows_deleted":    deleted,
	}), "outbox retention cleanup complete")
	return nil
}
