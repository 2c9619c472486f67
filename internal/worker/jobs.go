package worker

import (
	"context"

	"github.com/mlindner/flowsync/internal/logger"
	"github.com/mlindner/flowsync/internal/services"
)

// SyncAllJob runs one smart batch in the background.
type SyncAllJob struct {
	Sync services.SyncService
}

func (j *SyncAllJob) Name() string { return "sync_all" }

func (j *SyncAllJob) Run(ctx context.Context) error {
	report, err := j.Sync.SyncAll(ctx)
	if err != nil {
		return err
	}

	log := logger.FromContext(ctx)
	log.Info("batch done: total=%d synced=%d skipped=%d failed=%d forced=%v",
		report.Total, report.Synced, report.Skipped, report.ErrorCount, report.Forced)
	return nil
}

// SyncProfileJob refreshes a single profile in the background.
type SyncProfileJob struct {
	Sync      services.SyncService
	ProfileID int64
}

func (j *SyncProfileJob) Name() string { return "sync_profile" }

func (j *SyncProfileJob) Run(ctx context.Context) error {
	result, err := j.Sync.SyncProfile(ctx, j.ProfileID)
	if err != nil {
		return err
	}

	log := logger.FromContext(ctx)
	if result.Success {
		log.Info("profile %d synced: action=%s", j.ProfileID, result.Action)
	} else {
		log.Warn("profile %d sync failed: %s", j.ProfileID, result.Error)
	}
	return nil
}
