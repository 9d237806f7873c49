package jobexe

import (
	"time"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/timestamppb"
)

// TaskOutcome is an outcome of a task that the cluster reported.
type TaskOutcome int

const (
	OutcomeRunning = TaskOutcome(iota)
	OutcomeFinished
	OutcomeFailed
)

// String represents TaskOutcome as string.
func (o TaskOutcome) String() string {
	return map[TaskOutcome]string{
		OutcomeRunning:  "RUNNING",
		OutcomeFinished: "FINISHED",
		OutcomeFailed:   "FAILED",
	}[o]
}

// TaskReport is a status report of a task, delivered from the cluster.
type TaskReport struct {
	// TaskID is the task the report is about.
	TaskID TaskID

	// Outcome is what happened to the task.
	Outcome TaskOutcome

	// Timestamp is when the cluster made the report.
	Timestamp *timestamppb.Timestamp

	// ExitCode is the exit code of the task's process, if the process has exited.
	ExitCode *int32

	// Message is a human readable diagnostic message. It could be empty.
	Message string

	// Data has extra diagnostic information from the cluster.
	Data *structpb.Struct
}

// NewTaskReport creates a new TaskReport stamped with the given time.
func NewTaskReport(id TaskID, o TaskOutcome, at time.Time) TaskReport {
	return TaskReport{
		TaskID:    id,
		Outcome:   o,
		Timestamp: timestamppb.New(at),
	}
}

// Time returns the report's timestamp as time.Time.
// It returns zero time when the report doesn't have a valid timestamp.
func (r TaskReport) Time() time.Time {
	if r.Timestamp == nil || r.Timestamp.CheckValid() != nil {
		return time.Time{}
	}
	return r.Timestamp.AsTime()
}

// timeOr returns the report's time, or the fallback when the report doesn't have one.
func (r TaskReport) timeOr(fallback time.Time) time.Time {
	t := r.Time()
	if t.IsZero() {
		return fallback
	}
	return t
}

// clone returns a deep copy of the report.
func (r TaskReport) clone() TaskReport {
	c := r
	if r.Timestamp != nil {
		c.Timestamp = proto.Clone(r.Timestamp).(*timestamppb.Timestamp)
	}
	if r.ExitCode != nil {
		code := *r.ExitCode
		c.ExitCode = &code
	}
	if r.Data != nil {
		c.Data = proto.Clone(r.Data).(*structpb.Struct)
	}
	return c
}
