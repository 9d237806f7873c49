package jobexe

import (
	"fmt"
)

// DiskPolicy decides how much disk space a task requires.
// It is provided by the job type of an execution, as the requirement
// can be different for each task. (eg. the first task downloads inputs)
type DiskPolicy interface {
	DiskRequired(seq *TaskSequence, t Task) float64
}

// DiskFunc is an adapter to use an ordinary function as a DiskPolicy.
type DiskFunc func(seq *TaskSequence, t Task) float64

// DiskRequired calls f(seq, t).
func (f DiskFunc) DiskRequired(seq *TaskSequence, t Task) float64 {
	return f(seq, t)
}

// ConstantDisk is a DiskPolicy that requires same amount of disk for every task.
func ConstantDisk(v float64) DiskPolicy {
	return DiskFunc(func(*TaskSequence, Task) float64 {
		return v
	})
}

// TaskSequence is an ordered tasks of a job execution.
// The order and the tasks are fixed after it is created.
//
// TaskSequence isn't safe for concurrent use. RunningExecution guards it with it's lock.
type TaskSequence struct {
	tasks []*Task
	task  map[TaskID]*Task

	policy DiskPolicy
	// disk caches disk requirements calculated from the policy.
	disk map[TaskID]float64
}

// NewTaskSequence creates a new TaskSequence from task ids.
// An empty id will be filled with a generated one.
// It returns an error if the ids are empty or not unique.
// A nil policy makes all tasks require no disk.
func NewTaskSequence(ids []TaskID, policy DiskPolicy) (*TaskSequence, error) {
	if len(ids) == 0 {
		return nil, fmt.Errorf("a task sequence should have at least one task")
	}
	s := &TaskSequence{
		tasks:  make([]*Task, 0, len(ids)),
		task:   make(map[TaskID]*Task, len(ids)),
		policy: policy,
		disk:   make(map[TaskID]float64),
	}
	for i, id := range ids {
		if id == "" {
			id = NewTaskID()
		}
		if _, ok := s.task[id]; ok {
			return nil, fmt.Errorf("duplicated task id: %v", id)
		}
		t := &Task{ID: id, num: i, status: TaskPending}
		s.tasks = append(s.tasks, t)
		s.task[id] = t
	}
	return s, nil
}

// Len returns number of tasks in the sequence.
func (s *TaskSequence) Len() int {
	return len(s.tasks)
}

// IDs returns the task ids in order.
func (s *TaskSequence) IDs() []TaskID {
	ids := make([]TaskID, len(s.tasks))
	for i, t := range s.tasks {
		ids[i] = t.ID
	}
	return ids
}

// Tasks returns copies of the tasks in order.
func (s *TaskSequence) Tasks() []Task {
	tasks := make([]Task, len(s.tasks))
	for i, t := range s.tasks {
		tasks[i] = *t
	}
	return tasks
}

// TaskAt returns the task that has the id.
// It returns an error wrapping ErrUnknownTask, when the task isn't in the sequence.
func (s *TaskSequence) TaskAt(id TaskID) (*Task, error) {
	t, ok := s.task[id]
	if !ok {
		return nil, unknownTask("", id)
	}
	return t, nil
}

// DiskRequired returns disk space the task requires.
// The policy is called only once for a task, and the result is reused later.
func (s *TaskSequence) DiskRequired(id TaskID) (float64, error) {
	t, err := s.TaskAt(id)
	if err != nil {
		return 0, err
	}
	if d, ok := s.disk[id]; ok {
		return d, nil
	}
	d := 0.0
	if s.policy != nil {
		d = nonNegative(s.policy.DiskRequired(s, *t))
	}
	s.disk[id] = d
	return d, nil
}
