package jobexe

import (
	"encoding/json"
	"time"

	"github.com/rs/xid"
)

// TaskID is a Task identifier make it distinct from other tasks of the job execution.
type TaskID string

// NewTaskID generates a new TaskID that is unique globally.
func NewTaskID() TaskID {
	return TaskID(xid.New().String())
}

// TaskStatus is a task status.
type TaskStatus int

const (
	TaskPending = TaskStatus(iota)
	TaskRunning
	TaskCompleted
	TaskFailed
)

// String represents TaskStatus as string.
func (s TaskStatus) String() string {
	return map[TaskStatus]string{
		TaskPending:   "pending",
		TaskRunning:   "running",
		TaskCompleted: "completed",
		TaskFailed:    "failed",
	}[s]
}

// Task is a unit of work of a job execution that will be launched in a cluster.
//
// Tasks are owned by their TaskSequence, and should be changed only by the
// execution state holding the RunningExecution's lock.
// Others get copies of them.
type Task struct {
	// ID is the task's identifier.
	ID TaskID

	// num is the order of the task in it's sequence.
	num int

	// status indicates the task's status.
	status TaskStatus

	// started is when the task is started by the scheduler.
	started time.Time

	// running is when the cluster confirmed the task is running.
	// It is zero, until the task got a RUNNING report.
	running time.Time

	// ended is when the task is completed or failed.
	ended time.Time

	// report is the last report the task has got.
	report *TaskReport
}

// Num returns the order of the task in it's sequence, starts from 0.
func (t Task) Num() int {
	return t.num
}

// Status returns the task's status.
func (t Task) Status() TaskStatus {
	return t.status
}

// Started returns when the task has started.
func (t Task) Started() time.Time {
	return t.started
}

// Running returns when the cluster confirmed the task running.
func (t Task) Running() time.Time {
	return t.running
}

// Ended returns when the task has completed or failed.
func (t Task) Ended() time.Time {
	return t.ended
}

// Report returns a copy of the last report the task has got. It could be nil.
func (t Task) Report() *TaskReport {
	if t.report == nil {
		return nil
	}
	r := t.report.clone()
	return &r
}

// MarshalJSON implements json.Marshaler interface.
func (t Task) MarshalJSON() ([]byte, error) {
	m := struct {
		ID     TaskID
		Num    int
		Status string
	}{
		ID:     t.ID,
		Num:    t.num,
		Status: t.status.String(),
	}
	return json.Marshal(m)
}
