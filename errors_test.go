package jobexe

import (
	"errors"
	"testing"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestTaskErrorGRPCStatus(t *testing.T) {
	cases := []struct {
		err  error
		want codes.Code
		msg  string
	}{
		{
			err:  unknownTask("", "t1"),
			want: codes.NotFound,
			msg:  "unknown task: task t1",
		},
		{
			err:  staleReport("exe", "t1"),
			want: codes.FailedPrecondition,
			msg:  "stale task report: exe exe: task t1",
		},
		{
			err:  &TaskError{Err: ErrIllegalStart, Exe: "exe"},
			want: codes.FailedPrecondition,
			msg:  "next task is not ready: exe exe",
		},
	}
	for i, c := range cases {
		if c.err.Error() != c.msg {
			t.Fatalf("%d: message: got %q, want %q", i, c.err.Error(), c.msg)
		}
		got := status.Code(c.err)
		if got != c.want {
			t.Fatalf("%d: code: got %v, want %v", i, got, c.want)
		}
		var te *TaskError
		if !errors.As(c.err, &te) {
			t.Fatalf("%d: should be a TaskError", i)
		}
	}
}
