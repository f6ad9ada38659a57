package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/ZerkerEOD/filecrack/internal/models"
)

// MemoryStore keeps tasks in process memory. The CLI uses it for its single
// task; tests use it everywhere a database is not the subject.
type MemoryStore struct {
	mu     sync.RWMutex
	tasks  map[string]*models.Task
	logs   map[string][]models.LogEntry
	nextID int64
}

// NewMemoryStore creates an empty MemoryStore
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		tasks: make(map[string]*models.Task),
		logs:  make(map[string][]models.LogEntry),
	}
}

func cloneTask(t *models.Task) *models.Task {
	c := *t
	if t.Result != nil {
		r := *t.Result
		if t.Result.Verified != nil {
			v := *t.Result.Verified
			r.Verified = &v
		}
		c.Result = &r
	}
	if t.StartedAt != nil {
		s := *t.StartedAt
		c.StartedAt = &s
	}
	if t.CompletedAt != nil {
		d := *t.CompletedAt
		c.CompletedAt = &d
	}
	return &c
}

func (m *MemoryStore) Create(ctx context.Context, task *models.Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.tasks[task.ID]; exists {
		return fmt.Errorf("task %s already exists", task.ID)
	}
	m.tasks[task.ID] = cloneTask(task)
	return nil
}

func (m *MemoryStore) Get(ctx context.Context, id string) (*models.Task, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.tasks[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneTask(t), nil
}

func (m *MemoryStore) Update(ctx context.Context, task *models.Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.tasks[task.ID]
	if !ok {
		return ErrNotFound
	}
	c := cloneTask(task)
	c.CancelRequested = existing.CancelRequested
	m.tasks[task.ID] = c
	return nil
}

func (m *MemoryStore) AppendLog(ctx context.Context, entry *models.LogEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tasks[entry.TaskID]; !ok {
		return ErrNotFound
	}
	m.nextID++
	entry.ID = m.nextID
	m.logs[entry.TaskID] = append(m.logs[entry.TaskID], *entry)
	return nil
}

func (m *MemoryStore) Logs(ctx context.Context, taskID string) ([]models.LogEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]models.LogEntry(nil), m.logs[taskID]...), nil
}

func (m *MemoryStore) ClaimPending(ctx context.Context, workerID string) (*models.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var oldest *models.Task
	for _, t := range m.tasks {
		if t.State != models.StatePending || t.WorkerID != "" {
			continue
		}
		if oldest == nil || t.CreatedAt.Before(oldest.CreatedAt) {
			oldest = t
		}
	}
	if oldest == nil {
		return nil, ErrNoPending
	}
	oldest.WorkerID = workerID
	return cloneTask(oldest), nil
}

func (m *MemoryStore) ListByState(ctx context.Context, states ...models.State) ([]*models.Task, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	want := make(map[models.State]bool, len(states))
	for _, s := range states {
		want[s] = true
	}
	var out []*models.Task
	for _, t := range m.tasks {
		if want[t.State] {
			out = append(out, cloneTask(t))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (m *MemoryStore) RequestCancel(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[id]
	if !ok {
		return ErrNotFound
	}
	t.CancelRequested = true
	return nil
}

func (m *MemoryStore) CancelPending(ctx context.Context, id, reason string, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[id]
	if !ok {
		return false, ErrNotFound
	}
	if t.State != models.StatePending || t.WorkerID != "" {
		return false, nil
	}
	t.State = models.StateCancelled
	t.ErrorKind = models.KindCancelled
	t.ErrorMessage = reason
	t.CancelRequested = true
	t.CompletedAt = &at
	t.UpdatedAt = at
	return true, nil
}
