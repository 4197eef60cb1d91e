package monitoring

import (
	"sync"
	"time"

	"github.com/sarchlab/bankcheck/tracing"
)

// A ProgressBar is a tracker of the progress
type ProgressBar struct {
	sync.Mutex
	ID         string
	Name       string
	StartTime  time.Time
	Total      uint64
	Finished   uint64
	InProgress uint64
}

type progressBarRsp struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	StartTime  time.Time `json:"start_time"`
	Total      uint64    `json:"total"`
	Finished   uint64    `json:"finished"`
	InProgress uint64    `json:"in_progress"`
}

func (b *ProgressBar) snapshot() progressBarRsp {
	b.Lock()
	defer b.Unlock()

	return progressBarRsp{
		ID:         b.ID,
		Name:       b.Name,
		StartTime:  b.StartTime,
		Total:      b.Total,
		Finished:   b.Finished,
		InProgress: b.InProgress,
	}
}

// IncrementInProgress adds the number of in-progress element.
func (b *ProgressBar) IncrementInProgress(amount uint64) {
	b.Lock()
	defer b.Unlock()

	b.InProgress += amount
}

// IncrementFinished add a certain amount to finished element.
func (b *ProgressBar) IncrementFinished(amount uint64) {
	b.Lock()
	defer b.Unlock()

	b.Finished += amount
}

// MoveInProgressToFinished reduces the number of in progress item by a certain
// amount and increase the finished item by the same amount.
func (b *ProgressBar) MoveInProgressToFinished(amount uint64) {
	b.Lock()
	defer b.Unlock()

	b.InProgress -= amount
	b.Finished += amount
}

// ProgressTracer moves a progress bar as tasks start and end.
type ProgressTracer struct {
	bar    *ProgressBar
	filter tracing.TaskFilter

	lock     sync.Mutex
	inflight map[string]bool
}

// NewProgressTracer creates a tracer that counts the tasks that pass the
// filter on the bar.
func NewProgressTracer(bar *ProgressBar, filter tracing.TaskFilter) *ProgressTracer {
	return &ProgressTracer{
		bar:      bar,
		filter:   filter,
		inflight: make(map[string]bool),
	}
}

// StartTask marks a task in progress.
func (t *ProgressTracer) StartTask(task tracing.Task) {
	if !t.filter(task) {
		return
	}

	t.lock.Lock()
	t.inflight[task.ID] = true
	t.lock.Unlock()

	t.bar.IncrementInProgress(1)
}

// StepTask does nothing.
func (t *ProgressTracer) StepTask(_ tracing.Task) {}

// EndTask marks a task finished.
func (t *ProgressTracer) EndTask(task tracing.Task) {
	t.lock.Lock()
	_, ok := t.inflight[task.ID]
	delete(t.inflight, task.ID)
	t.lock.Unlock()

	if ok {
		t.bar.MoveInProgressToFinished(1)
	}
}
