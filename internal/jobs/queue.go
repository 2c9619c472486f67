package jobs

// JobQueue provides an abstraction for enqueueing background sync work
type JobQueue interface {
	EnqueueSyncAll() error
	EnqueueSyncProfile(profileID int64) error
}
