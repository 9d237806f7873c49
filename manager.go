package jobexe

import (
	"fmt"
	"sync"

	"github.com/imagvfx/jobexe/lib/container"
	"go.uber.org/zap"
)

// Manager manages running executions and routes task reports to them.
// It is safe for concurrent use.
type Manager struct {
	mu  sync.Mutex
	log *zap.Logger

	// Execution related informations.
	// When an execution is removed, those should be deleted all together,
	// except `queue`. Removed executions in the queue are cleaned up by it's Pop.
	exe   map[ExeID]*RunningExecution
	order []ExeID
	task  map[TaskID]*RunningExecution

	// queue rotates executions for the scheduler.
	queue *container.UniqueQueue[ExeID]
}

// NewManager creates a new Manager.
// A nil logger makes it silent.
func NewManager(log *zap.Logger) *Manager {
	if log == nil {
		log = zap.NewNop()
	}
	return &Manager{
		log:   log,
		exe:   make(map[ExeID]*RunningExecution),
		task:  make(map[TaskID]*RunningExecution),
		queue: container.NewUniqueQueue[ExeID](),
	}
}

// Add adds a running execution to the manager.
// It returns an error when the execution or one of it's task has already added.
func (m *Manager) Add(e *RunningExecution) error {
	if e == nil {
		return fmt.Errorf("nil execution cannot be added")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.exe[e.ID()]; ok {
		return fmt.Errorf("execution already added: %v", e.ID())
	}
	// ids are read-only, no need to hold the execution's lock.
	ids := e.state.seq.IDs()
	for _, id := range ids {
		if other, ok := m.task[id]; ok {
			return fmt.Errorf("task %v of execution %v is already added with execution %v", id, e.ID(), other.ID())
		}
	}
	m.exe[e.ID()] = e
	m.order = append(m.order, e.ID())
	for _, id := range ids {
		m.task[id] = e
	}
	m.queue.Push(e.ID())
	m.log.Info("execution added", zap.String("exe", string(e.ID())), zap.Int("tasks", len(ids)))
	return nil
}

// Get returns the execution that has the id. It returns nil if not found.
func (m *Manager) Get(id ExeID) *RunningExecution {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.exe[id]
}

// Len returns number of executions in the manager.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.exe)
}

// Executions returns all executions in the order they were added.
func (m *Manager) Executions() []*RunningExecution {
	m.mu.Lock()
	defer m.mu.Unlock()
	exes := make([]*RunningExecution, 0, len(m.order))
	for _, id := range m.order {
		exes = append(exes, m.exe[id])
	}
	return exes
}

// Finished returns executions those are finished but not removed yet.
func (m *Manager) Finished() []*RunningExecution {
	exes := make([]*RunningExecution, 0)
	for _, e := range m.Executions() {
		if e.IsFinished() {
			exes = append(exes, e)
		}
	}
	return exes
}

// HandleReport finds the execution of the reported task, and applies the report.
// It returns an error wrapping ErrUnknownTask when no execution has the task.
func (m *Manager) HandleReport(r TaskReport) error {
	m.mu.Lock()
	e, ok := m.task[r.TaskID]
	m.mu.Unlock()
	if !ok {
		m.log.Warn("report for unknown task", zap.String("task", string(r.TaskID)), zap.Stringer("outcome", r.Outcome))
		return unknownTask("", r.TaskID)
	}
	return e.HandleReport(r)
}

// NextReady returns the next execution that is ready to start it's next task.
// Executions are rotated, so an execution will not be returned again
// until others got their chance. It returns nil when no execution is ready.
//
// Finished executions are dropped from the rotation.
func (m *Manager) NextReady() *RunningExecution {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := m.queue.Len()
	for i := 0; i < n; i++ {
		id, ok := m.queue.Pop()
		if !ok {
			return nil
		}
		e := m.exe[id]
		if e == nil || e.IsFinished() {
			continue
		}
		// push it back anyway, so it is the last one to be checked next time.
		m.queue.Push(id)
		if e.IsNextTaskReady() {
			return e
		}
	}
	return nil
}

// Remove removes a finished execution from the manager.
// The caller should record the outcome of the execution before removing it.
func (m *Manager) Remove(id ExeID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.exe[id]
	if !ok {
		return fmt.Errorf("cannot find the execution: %v", id)
	}
	if !e.IsFinished() {
		return fmt.Errorf("execution is not finished: %v", id)
	}
	delete(m.exe, id)
	for i, oid := range m.order {
		if oid == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	for _, tid := range e.state.seq.IDs() {
		delete(m.task, tid)
	}
	m.queue.Remove(id)
	m.log.Info("execution removed", zap.String("exe", string(id)), zap.Bool("succeeded", e.Succeeded()))
	return nil
}

// StartNextTask starts the next task of the execution.
// Unlike RunningExecution.StartNextTask, it returns an error wrapping ErrIllegalStart
// when the execution isn't ready, for callers outside of the scheduling loop.
func (m *Manager) StartNextTask(id ExeID) (Task, error) {
	e := m.Get(id)
	if e == nil {
		return Task{}, fmt.Errorf("cannot find the execution: %v", id)
	}
	t, ok := e.StartNextTask()
	if !ok {
		return Task{}, &TaskError{Err: ErrIllegalStart, Exe: id}
	}
	return t, nil
}
