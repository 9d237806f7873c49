package jobexe

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/rs/xid"
	"go.uber.org/zap"
)

// ExeID is an identifier of a job execution.
type ExeID string

// NewExeID generates a new ExeID that is unique globally.
func NewExeID() ExeID {
	return ExeID(xid.New().String())
}

// JobExeStatus is a status of a job execution record.
type JobExeStatus int

const (
	JobExeQueued = JobExeStatus(iota)
	JobExeRunning
	JobExeCompleted
	JobExeFailed
	JobExeCanceled
)

// String represents JobExeStatus as string.
func (s JobExeStatus) String() string {
	return map[JobExeStatus]string{
		JobExeQueued:    "queued",
		JobExeRunning:   "running",
		JobExeCompleted: "completed",
		JobExeFailed:    "failed",
		JobExeCanceled:  "canceled",
	}[s]
}

// JobExe is a job execution record, that is loaded from a database.
// It is used to create a RunningExecution.
type JobExe struct {
	// ID is the job execution's id.
	// An empty ID will be filled with a generated one.
	ID ExeID

	// Status should be JobExeRunning to create a RunningExecution.
	Status JobExeStatus

	// JobType is the name of the job's type. It is informational.
	JobType string

	// Scheduled is the resources the scheduler granted to the execution.
	Scheduled Resources

	// Tasks are ids of the tasks in the order they should run.
	Tasks []TaskID

	// Disk decides disk requirement for each task.
	Disk DiskPolicy
}

// Option is an option for NewRunningExecution.
type Option func(*RunningExecution)

// WithLogger sets a logger of the execution.
func WithLogger(l *zap.Logger) Option {
	return func(e *RunningExecution) {
		if l != nil {
			e.log = l
		}
	}
}

// RunningExecution is a job execution that is running it's tasks one by one.
// It is safe for concurrent use.
//
// A scheduler checks IsNextTaskReady and NextTaskResources to place the next task,
// then calls StartNextTask. Reports from the cluster are applied with
// TaskRunning, TaskCompleted and TaskFailed, that can be called from other goroutines.
type RunningExecution struct {
	// NOTE: Fields below should be read-only after the initialization.
	id      ExeID
	jobType string
	log     *zap.Logger

	// mu guards state.
	// Don't do any blocking job while holding it.
	mu    sync.Mutex
	state *executionState
}

// NewRunningExecution creates a RunningExecution for a job execution
// that has just transitioned into running status.
func NewRunningExecution(exe *JobExe, opts ...Option) (*RunningExecution, error) {
	if exe == nil {
		return nil, fmt.Errorf("nil job execution")
	}
	if exe.Status != JobExeRunning {
		return nil, fmt.Errorf("job execution %v should be running: got %v", exe.ID, exe.Status)
	}
	seq, err := NewTaskSequence(exe.Tasks, exe.Disk)
	if err != nil {
		return nil, fmt.Errorf("job execution %v: %w", exe.ID, err)
	}
	id := exe.ID
	if id == "" {
		id = NewExeID()
	}
	scheduled := NewResources(
		exe.Scheduled.CPUs,
		exe.Scheduled.Mem,
		exe.Scheduled.DiskIn,
		exe.Scheduled.DiskOut,
		exe.Scheduled.DiskTotal,
	)
	e := &RunningExecution{
		id:      id,
		jobType: exe.JobType,
		log:     zap.NewNop(),
		state:   newExecutionState(id, seq, scheduled),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.log = e.log.With(zap.String("exe", string(id)))
	return e, nil
}

// ID returns the execution's id.
func (e *RunningExecution) ID() ExeID {
	return e.id
}

// JobType returns the job type name of the execution.
func (e *RunningExecution) JobType() string {
	return e.jobType
}

// Scheduled returns the resources granted to the execution.
func (e *RunningExecution) Scheduled() Resources {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.scheduled
}

// CurrentTaskID returns id of the current task.
// The second return value is false when there isn't a current task.
func (e *RunningExecution) CurrentTaskID() (TaskID, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.currentTaskID()
}

// IsFinished reports whether the execution cannot progress anymore,
// either by all tasks has completed or a task has failed.
func (e *RunningExecution) IsFinished() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.isFinished()
}

// IsNextTaskReady reports whether the next task can be started.
func (e *RunningExecution) IsNextTaskReady() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.isNextTaskReady()
}

// NextTaskResources returns the resources required by the next task.
// The second return value is false when no task remains.
func (e *RunningExecution) NextTaskResources() (Resources, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.nextTaskResources()
}

// StartNextTask starts the next task and returns a copy of it.
// The second return value is false, when the next task isn't ready.
// It checks the readiness again by itself, a prior IsNextTaskReady could be outdated.
func (e *RunningExecution) StartNextTask() (Task, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	t := e.state.startNextTask()
	if t == nil {
		return Task{}, false
	}
	e.log.Debug("task started", zap.String("task", string(t.ID)), zap.Int("num", t.num))
	return *t, true
}

// TaskRunning tells the execution that the cluster confirmed the task is running.
// It returns an error wrapping ErrStaleReport when the task isn't the current task.
func (e *RunningExecution) TaskRunning(id TaskID, r TaskReport) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.logStale(e.state.taskRunning(id, r), id, r)
}

// TaskCompleted tells the execution that the task has completed.
// It returns an error wrapping ErrStaleReport when the task isn't the current task.
func (e *RunningExecution) TaskCompleted(id TaskID, r TaskReport) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	err := e.state.taskCompleted(id, r)
	if err != nil {
		return e.logStale(err, id, r)
	}
	e.log.Debug("task completed", zap.String("task", string(id)), zap.Stringer("phase", e.state.phase))
	return nil
}

// TaskFailed tells the execution that the task has failed.
// The remaining tasks will not be started, and the execution will be finished.
// It returns an error wrapping ErrStaleReport when the task isn't the current task.
func (e *RunningExecution) TaskFailed(id TaskID, r TaskReport) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	err := e.state.taskFailed(id, r)
	if err != nil {
		return e.logStale(err, id, r)
	}
	e.log.Info("task failed", zap.String("task", string(id)), zap.String("message", r.Message))
	return nil
}

// HandleReport applies the report according to it's outcome.
func (e *RunningExecution) HandleReport(r TaskReport) error {
	switch r.Outcome {
	case OutcomeRunning:
		return e.TaskRunning(r.TaskID, r)
	case OutcomeFinished:
		return e.TaskCompleted(r.TaskID, r)
	case OutcomeFailed:
		return e.TaskFailed(r.TaskID, r)
	}
	return fmt.Errorf("unknown task outcome: %v", r.Outcome)
}

// logStale logs the error if it is not nil. It should be called with holding the lock.
func (e *RunningExecution) logStale(err error, id TaskID, r TaskReport) error {
	if err == nil {
		return nil
	}
	cur, _ := e.state.currentTaskID()
	e.log.Warn("ignored task report",
		zap.String("task", string(id)),
		zap.Stringer("outcome", r.Outcome),
		zap.String("current", string(cur)),
		zap.Stringer("phase", e.state.phase),
	)
	return err
}

// Phase returns the execution's phase.
func (e *RunningExecution) Phase() Phase {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.phase
}

// Succeeded reports whether all tasks of the execution has completed.
func (e *RunningExecution) Succeeded() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.phase == PhaseAllTasksDone
}

// Tasks returns copies of the execution's tasks in order.
func (e *RunningExecution) Tasks() []Task {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.seq.Tasks()
}

// exeJSON is a snapshot of RunningExecution for json encoding.
type exeJSON struct {
	ID        ExeID
	JobType   string
	Phase     string
	Current   TaskID
	Scheduled Resources
	Tasks     []Task
}

func (e *RunningExecution) snapshot() exeJSON {
	e.mu.Lock()
	defer e.mu.Unlock()
	cur, _ := e.state.currentTaskID()
	return exeJSON{
		ID:        e.id,
		JobType:   e.jobType,
		Phase:     e.state.phase.String(),
		Current:   cur,
		Scheduled: e.state.scheduled,
		Tasks:     e.state.seq.Tasks(),
	}
}

// MarshalJSON implements json.Marshaler interface.
func (e *RunningExecution) MarshalJSON() ([]byte, error) {
	return json.Marshal(e.snapshot())
}
