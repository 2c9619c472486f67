package api

import (
	"github.com/mlindner/flowsync/internal/db"
	"github.com/mlindner/flowsync/internal/jobs"
	"github.com/mlindner/flowsync/internal/services"
)

// BrowserStatus exposes the extraction gate state for /api/status.
type BrowserStatus interface {
	Busy() bool
}

type Server struct {
	DB             *db.DB
	ProfileService services.ProfileService
	SyncService    services.SyncService
	Queue          jobs.JobQueue
	Browser        BrowserStatus
}
