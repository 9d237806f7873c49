package jobexe

import (
	"errors"
	"fmt"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

var (
	// ErrUnknownTask indicates a task id that doesn't belong to the job execution.
	ErrUnknownTask = errors.New("unknown task")

	// ErrStaleReport indicates a report for a task that isn't the current task.
	// The report is ignored, and the execution isn't changed.
	ErrStaleReport = errors.New("stale task report")

	// ErrIllegalStart indicates a try to start a task when the execution isn't ready.
	ErrIllegalStart = errors.New("next task is not ready")
)

// TaskError is an error about a task of a job execution.
// It wraps one of ErrUnknownTask, ErrStaleReport and ErrIllegalStart,
// so it can be checked with errors.Is.
type TaskError struct {
	Err  error
	Exe  ExeID
	Task TaskID
}

// Error implements error interface.
func (e *TaskError) Error() string {
	msg := e.Err.Error()
	if e.Exe != "" {
		msg += fmt.Sprintf(": exe %v", e.Exe)
	}
	if e.Task != "" {
		msg += fmt.Sprintf(": task %v", e.Task)
	}
	return msg
}

// Unwrap returns the wrapped error.
func (e *TaskError) Unwrap() error {
	return e.Err
}

// GRPCStatus lets grpc servers return the error as is.
func (e *TaskError) GRPCStatus() *status.Status {
	code := codes.Unknown
	switch {
	case errors.Is(e.Err, ErrUnknownTask):
		code = codes.NotFound
	case errors.Is(e.Err, ErrStaleReport), errors.Is(e.Err, ErrIllegalStart):
		code = codes.FailedPrecondition
	}
	return status.New(code, e.Error())
}

func unknownTask(exe ExeID, task TaskID) error {
	return &TaskError{Err: ErrUnknownTask, Exe: exe, Task: task}
}

func staleReport(exe ExeID, task TaskID) error {
	return &TaskError{Err: ErrStaleReport, Exe: exe, Task: task}
}
