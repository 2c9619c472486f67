package jobs

import (
	"github.com/mlindner/flowsync/internal/services"
	"github.com/mlindner/flowsync/internal/worker"
)

// WorkerQueue implements JobQueue on top of the sync worker pool.
type WorkerQueue struct {
	pool *worker.Pool
	sync services.SyncService
}

// NewWorkerQueue creates a new WorkerQueue implementation
func NewWorkerQueue(pool *worker.Pool, syncService services.SyncService) JobQueue {
	return &WorkerQueue{pool: pool, sync: syncService}
}

func (q *WorkerQueue) EnqueueSyncAll() error {
	return q.pool.Submit(&worker.SyncAllJob{Sync: q.sync})
}

func (q *WorkerQueue) EnqueueSyncProfile(profileID int64) error {
	return q.pool.Submit(&worker.SyncProfileJob{Sync: q.sync, ProfileID: profileID})
}
