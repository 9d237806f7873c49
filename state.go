package jobexe

import (
	"time"
)

// Phase is a phase of a job execution.
type Phase int

const (
	// PhaseNoTaskStarted means no task is running, the next task can be started if any.
	PhaseNoTaskStarted = Phase(iota)
	// PhaseTaskRunning means a task is started and not finished yet.
	PhaseTaskRunning
	// PhaseAllTasksDone means all tasks have completed. It is terminal.
	PhaseAllTasksDone
	// PhaseTaskFailed means a task has failed. It is terminal.
	PhaseTaskFailed
)

// String represents Phase as string.
func (p Phase) String() string {
	return map[Phase]string{
		PhaseNoTaskStarted: "no-task-started",
		PhaseTaskRunning:   "task-running",
		PhaseAllTasksDone:  "all-tasks-done",
		PhaseTaskFailed:    "task-failed",
	}[p]
}

// Terminal reports whether the phase cannot be changed anymore.
func (p Phase) Terminal() bool {
	return p == PhaseAllTasksDone || p == PhaseTaskFailed
}

// executionState tracks progress of a job execution that runs it's tasks one by one.
//
// It isn't safe for concurrent use. Only RunningExecution should access it,
// with holding it's lock.
type executionState struct {
	exe ExeID
	seq *TaskSequence

	// scheduled is the resources the scheduler granted to the execution.
	// It won't be changed during the execution.
	scheduled Resources

	// remaining are tasks that are not started yet, in order.
	remaining []*Task

	// current is a task that is started and not finished yet.
	// At most one task could be the current task.
	current *Task

	phase Phase

	// now returns current time. It is time.Now except in tests.
	now func() time.Time
}

func newExecutionState(exe ExeID, seq *TaskSequence, scheduled Resources) *executionState {
	s := &executionState{
		exe:       exe,
		seq:       seq,
		scheduled: scheduled,
		remaining: make([]*Task, len(seq.tasks)),
		phase:     PhaseNoTaskStarted,
		now:       time.Now,
	}
	copy(s.remaining, seq.tasks)
	return s
}

func (s *executionState) currentTaskID() (TaskID, bool) {
	if s.current == nil {
		return "", false
	}
	return s.current.ID, true
}

func (s *executionState) isFinished() bool {
	return s.phase.Terminal()
}

func (s *executionState) isNextTaskReady() bool {
	return s.phase == PhaseNoTaskStarted && len(s.remaining) != 0
}

// nextTaskResources returns resources for the next task.
// CPUs and memory are same for every task of the execution,
// while disk is decided by the sequence's policy.
func (s *executionState) nextTaskResources() (Resources, bool) {
	if len(s.remaining) == 0 {
		return Resources{}, false
	}
	// the task is in the sequence, error cannot happen.
	disk, _ := s.seq.DiskRequired(s.remaining[0].ID)
	return NewResources(s.scheduled.CPUs, s.scheduled.Mem, 0, 0, disk), true
}

// startNextTask pops the next task and makes it the current task.
// It does nothing and returns nil when the execution isn't ready for the next task.
func (s *executionState) startNextTask() *Task {
	if !s.isNextTaskReady() {
		return nil
	}
	t := s.remaining[0]
	s.remaining[0] = nil
	s.remaining = s.remaining[1:]
	t.status = TaskRunning
	t.started = s.now()
	s.current = t
	s.phase = PhaseTaskRunning
	return t
}

// checkCurrent returns the current task when it has the id.
// Otherwise the report is stale.
func (s *executionState) checkCurrent(id TaskID) (*Task, error) {
	if _, err := s.seq.TaskAt(id); err != nil {
		// a task from another execution, or a made up one.
		// it is still a stale report for this execution.
		return nil, staleReport(s.exe, id)
	}
	if s.current == nil || s.current.ID != id {
		return nil, staleReport(s.exe, id)
	}
	return s.current, nil
}

func (s *executionState) taskRunning(id TaskID, r TaskReport) error {
	t, err := s.checkCurrent(id)
	if err != nil {
		return err
	}
	if t.running.IsZero() {
		t.running = r.timeOr(s.now())
	}
	c := r.clone()
	t.report = &c
	return nil
}

func (s *executionState) taskCompleted(id TaskID, r TaskReport) error {
	if _, err := s.checkCurrent(id); err != nil {
		return err
	}
	s.endCurrent(TaskCompleted, r)
	if len(s.remaining) == 0 {
		s.phase = PhaseAllTasksDone
		return nil
	}
	s.phase = PhaseNoTaskStarted
	return nil
}

// taskFailed fails the current task. As tasks run one after another,
// the remaining tasks will never be started.
func (s *executionState) taskFailed(id TaskID, r TaskReport) error {
	if _, err := s.checkCurrent(id); err != nil {
		return err
	}
	s.endCurrent(TaskFailed, r)
	for i := range s.remaining {
		s.remaining[i] = nil
	}
	s.remaining = s.remaining[:0]
	s.phase = PhaseTaskFailed
	return nil
}

func (s *executionState) endCurrent(st TaskStatus, r TaskReport) {
	t := s.current
	t.status = st
	t.ended = r.timeOr(s.now())
	c := r.clone()
	t.report = &c
	s.current = nil
}
