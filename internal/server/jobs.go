package server

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

// === Job System ===

type JobStatus string

const (
	StatusRunning JobStatus = "running"
	StatusDone    JobStatus = "done"
	StatusError   JobStatus = "error"
)

type JobResult struct {
	Wells int      `json:"wells"`
	Rows  int      `json:"rows"`
	Dir   string   `json:"-"`
	Files []string `json:"files"` // base names, served by /download
}

type Job struct {
	ID        string
	Status    JobStatus
	Logs      []string
	Progress  int // 0-100
	Result    *JobResult
	Error     string
	Mutex     sync.RWMutex
	CreatedAt time.Time
}

func NewJob() *Job {
	return &Job{
		ID:        uuid.New().String(),
		Status:    StatusRunning,
		Logs:      []string{},
		CreatedAt: time.Now(),
	}
}

func (j *Job) Log(msg string) {
	j.Mutex.Lock()
	defer j.Mutex.Unlock()
	j.appendLog(msg)
}

func (j *Job) appendLog(msg string) {
	ts := time.Now().Format("15:04:05")
	j.Logs = append(j.Logs, fmt.Sprintf("[%s] %s", ts, msg))
}

func (j *Job) SetProgress(current, total int, msg string) {
	j.Mutex.Lock()
	defer j.Mutex.Unlock()
	if total > 0 {
		j.Progress = int(float64(current) / float64(total) * 100)
	}
	if msg != "" {
		j.appendLog(msg)
	}
}

func (j *Job) Fail(msg string) {
	j.Mutex.Lock()
	defer j.Mutex.Unlock()
	j.Status = StatusError
	j.Error = msg
	j.Logs = append(j.Logs, "[ERROR] "+msg)
}

func (j *Job) Finish(res *JobResult) {
	j.Mutex.Lock()
	defer j.Mutex.Unlock()
	j.Status = StatusDone
	j.appendLog("Report generation finished.")
	j.Result = res
	j.Progress = 100
}

// Snapshot is a consistent copy of a job's state.
type Snapshot struct {
	ID       string     `json:"id"`
	Status   JobStatus  `json:"status"`
	Progress int        `json:"progress"`
	Logs     []string   `json:"logs,omitempty"`
	Error    string     `json:"error,omitempty"`
	Result   *JobResult `json:"result,omitempty"`
}

func (j *Job) Snapshot() Snapshot {
	j.Mutex.RLock()
	defer j.Mutex.RUnlock()
	logs := make([]string, len(j.Logs))
	copy(logs, j.Logs)
	return Snapshot{
		ID:       j.ID,
		Status:   j.Status,
		Progress: j.Progress,
		Logs:     logs,
		Error:    j.Error,
		Result:   j.Result,
	}
}

// FilePath resolves a downloadable file of a finished job. Only files the
// job produced are returned.
func (j *Job) FilePath(name string) (string, bool) {
	j.Mutex.RLock()
	defer j.Mutex.RUnlock()
	if j.Result == nil {
		return "", false
	}
	for _, f := range j.Result.Files {
		if f == name {
			return filepath.Join(j.Result.Dir, f), true
		}
	}
	return "", false
}

// Store holds jobs in memory for the life of the process.
type Store struct {
	mu   sync.RWMutex
	jobs map[string]*Job
}

func NewStore() *Store {
	return &Store{jobs: make(map[string]*Job)}
}

func (s *Store) Add(j *Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[j.ID] = j
}

func (s *Store) Get(id string) *Job {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.jobs[id]
}
