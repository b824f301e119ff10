package models

import (
	"github.com/smazurov/jobsh/internal/jobs"
	"github.com/smazurov/jobsh/internal/logging"
	"github.com/smazurov/jobsh/internal/metrics"
)

// Health check models
type HealthData struct {
	Status  string         `json:"status" example:"ok" doc:"Service status"`
	Message string         `json:"message" example:"shell is running" doc:"Status message"`
	Jobs    metrics.Totals `json:"jobs" doc:"Job counters since startup"`
}

type HealthResponse struct {
	Body HealthData
}

// Version models
type VersionData struct {
	Version   string `json:"version" example:"dev" doc:"Application version"`
	GitCommit string `json:"git_commit" example:"abc1234" doc:"Git commit SHA"`
	BuildDate string `json:"build_date" example:"2024-12-15 14:30" doc:"Build timestamp"`
	BuildID   string `json:"build_id" example:"a1b2c3d4" doc:"Unique build identifier"`
	GoVersion string `json:"go_version" example:"go1.25.0" doc:"Go compiler version"`
	Compiler  string `json:"compiler" example:"gc" doc:"Compiler used"`
	Platform  string `json:"platform" example:"linux/amd64" doc:"Platform"`
}

type VersionResponse struct {
	Body VersionData
}

// Job models
type JobListData struct {
	Jobs  []jobs.JobInfo `json:"jobs" doc:"Registered jobs, newest first"`
	Count int            `json:"count" example:"2" doc:"Number of registered jobs"`
}

type JobListResponse struct {
	Body JobListData
}

type JobRequest struct {
	PID int `path:"pid" minimum:"1" example:"4242" doc:"Process id of the job"`
}

type JobResponse struct {
	Body jobs.JobInfo
}

// Log models
type LogQuery struct {
	Module string `query:"module" example:"reaper" doc:"Only entries from this module"`
	Level  string `query:"level" enum:"debug,info,warn,error" doc:"Minimum level"`
	Limit  int    `query:"limit" minimum:"0" maximum:"1000" default:"100" doc:"Newest entries to return, 0 for all"`
}

type LogData struct {
	Entries []logging.LogEntry `json:"entries" doc:"Matching entries, oldest first"`
	Count   int                `json:"count" example:"12" doc:"Number of entries returned"`
}

type LogResponse struct {
	Body LogData
}
