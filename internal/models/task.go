package models

import (
	"time"
)

// Task is one recovery attempt against one file.
type Task struct {
	ID           string    `json:"id"`
	FilePath     string    `json:"file_path"`
	Profile      Profile   `json:"profile"`
	CustomMask   string    `json:"custom_mask,omitempty"`
	State        State     `json:"state"`
	StageIndex   int       `json:"stage_index"`
	StageCount   int       `json:"stage_count"`
	Progress     float64   `json:"progress"`
	Result       *Result   `json:"result,omitempty"`
	ErrorKind    ErrorKind `json:"error_kind,omitempty"`
	ErrorMessage string    `json:"error_message,omitempty"`
	WorkerID     string    `json:"worker_id,omitempty"`
	// CancelRequested is set by another process; the owning worker stops
	// the attempt when it sees it
	CancelRequested bool          `json:"cancel_requested,omitempty"`
	Budget          time.Duration `json:"budget"`
	CreatedAt       time.Time     `json:"created_at"`
	StartedAt       *time.Time    `json:"started_at,omitempty"`
	CompletedAt     *time.Time    `json:"completed_at,omitempty"`
	UpdatedAt       time.Time     `json:"updated_at"`
}

// Result is recorded when a stage recovers the password
type Result struct {
	Password   string        `json:"password"`
	StageIndex int           `json:"stage_index"`
	StageName  string        `json:"stage_name"`
	Algorithm  AlgorithmID   `json:"algorithm"`
	Elapsed    time.Duration `json:"elapsed"`
	Verified   *bool         `json:"verified,omitempty"`
}

// Elapsed is the wall time since the task started, frozen at completion.
func (t *Task) Elapsed(now time.Time) time.Duration {
	if t.StartedAt == nil {
		return 0
	}
	if t.CompletedAt != nil {
		return t.CompletedAt.Sub(*t.StartedAt)
	}
	return now.Sub(*t.StartedAt)
}

// TaskStatus is the view pushed to or polled by observers.
type TaskStatus struct {
	TaskID        string        `json:"task_id"`
	State         State         `json:"state"`
	StageIndex    int           `json:"stage_index"`
	StageCount    int           `json:"stage_count"`
	Progress      float64       `json:"progress"`
	Elapsed       time.Duration `json:"elapsed"`
	Budget        time.Duration `json:"budget"`
	BudgetRatio   float64       `json:"budget_ratio"`
	Password      string        `json:"password,omitempty"`
	ErrorKind     ErrorKind     `json:"error_kind,omitempty"`
	FailureReason string        `json:"failure_reason,omitempty"`
}

// Status builds the observer view at now.
func (t *Task) Status(now time.Time) TaskStatus {
	st := TaskStatus{
		TaskID:        t.ID,
		State:         t.State,
		StageIndex:    t.StageIndex,
		StageCount:    t.StageCount,
		Progress:      t.Progress,
		Elapsed:       t.Elapsed(now),
		Budget:        t.Budget,
		ErrorKind:     t.ErrorKind,
		FailureReason: t.ErrorMessage,
	}
	if t.Budget > 0 {
		st.BudgetRatio = float64(st.Elapsed) / float64(t.Budget)
	}
	if t.State == StateSuccess && t.Result != nil {
		st.Password = t.Result.Password
	}
	return st
}

// LogEvent classifies a task log entry
type LogEvent string

const (
	EventState         LogEvent = "state"
	EventStageStarted  LogEvent = "stage_started"
	EventStageFinished LogEvent = "stage_finished"
	EventStageDropped  LogEvent = "stage_dropped"
	EventEngineOutput  LogEvent = "engine_output"
	EventError         LogEvent = "error"
	EventSuccess       LogEvent = "success"
	EventVerify        LogEvent = "verify"
)

// LogEntry is an append-only record in a task's history.
type LogEntry struct {
	ID         int64     `json:"id"`
	TaskID     string    `json:"task_id"`
	Time       time.Time `json:"time"`
	Level      string    `json:"level"`
	Event      LogEvent  `json:"event"`
	Message    string    `json:"message"`
	StageIndex int       `json:"stage_index"`
}
