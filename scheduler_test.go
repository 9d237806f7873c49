package jobexe

import (
	"context"
	"reflect"
	"sync"
	"testing"
	"time"
)

func TestSchedulerSchedule(t *testing.T) {
	m := NewManager(nil)
	a := newManagerExecution(t, "a", "a1", "a2") // 1 cpu, 512 mem, 10 disk
	b := newManagerExecution(t, "b", "b1")
	c := newManagerExecution(t, "c", "c1")
	m.Add(a)
	m.Add(b)
	m.Add(c)
	s := NewScheduler(m, nil)

	offers := []*Offer{
		{Node: "node1", Available: NewResources(1, 1024, 0, 0, 100)},
		{Node: "node2", Available: NewResources(1, 1024, 0, 0, 100)},
	}
	launches := s.Schedule(offers)
	got := make([]string, 0)
	for _, l := range launches {
		got = append(got, string(l.Task.ID)+"@"+l.Node)
	}
	// c doesn't fit anymore.
	want := []string{"a1@node1", "b1@node2"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	if offers[0].Available.CPUs != 0 || offers[0].Available.Mem != 512 || offers[0].Available.Disk() != 90 {
		t.Fatalf("offer should be subtracted: %v", offers[0].Available)
	}
	if !c.IsNextTaskReady() {
		t.Fatalf("c should be still ready")
	}

	// a has one task running, it should not be scheduled again.
	launches = s.Schedule([]*Offer{{Node: "node3", Available: NewResources(8, 8192, 0, 0, 1000)}})
	if len(launches) != 1 || launches[0].Exe != c {
		t.Fatalf("only c should be scheduled, got %v", launches)
	}
}

func TestSchedulerScheduleDiskUsedUp(t *testing.T) {
	m := NewManager(nil)
	for _, id := range []ExeID{"a", "b"} {
		e, err := NewRunningExecution(&JobExe{
			ID:        id,
			Status:    JobExeRunning,
			Scheduled: NewResources(1, 512, 0, 0, 0),
			Tasks:     []TaskID{TaskID(id) + "1"},
			Disk:      ConstantDisk(100),
		})
		if err != nil {
			t.Fatal(err)
		}
		m.Add(e)
	}
	s := NewScheduler(m, nil)

	// 100 disk in total, split into in and out.
	offers := []*Offer{{Node: "node", Available: NewResources(4, 4096, 60, 40, 0)}}
	launches := s.Schedule(offers)
	if len(launches) != 1 {
		t.Fatalf("only one task needing 100 disk fits, got %d launches", len(launches))
	}
	if offers[0].Available.Disk() != 0 {
		t.Fatalf("offer disk should be used up: %#v", offers[0].Available)
	}
	if launches = s.Schedule(offers); len(launches) != 0 {
		t.Fatalf("nothing should be placed on used up disk, got %d launches", len(launches))
	}
}

func TestSchedulerRun(t *testing.T) {
	m := NewManager(nil)
	ids := []TaskID{"t1", "t2", "t3"}
	e := newManagerExecution(t, "exe", ids...)
	m.Add(e)
	s := NewScheduler(m, nil)
	s.Interval = time.Millisecond

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var mu sync.Mutex
	launched := make([]TaskID, 0)
	offers := func() []*Offer {
		return []*Offer{{Node: "node", Available: NewResources(1, 512, 0, 0, 10)}}
	}
	launch := func(l Launch) {
		mu.Lock()
		launched = append(launched, l.Task.ID)
		mu.Unlock()
		// the cluster finishes the task right away.
		go func() {
			m.HandleReport(report(l.Task.ID, OutcomeRunning))
			m.HandleReport(report(l.Task.ID, OutcomeFinished))
			if e.IsFinished() {
				cancel()
			}
		}()
	}
	err := s.Run(ctx, offers, launch)
	if err != context.Canceled {
		t.Fatalf("want context.Canceled, got %v", err)
	}
	if !e.Succeeded() {
		t.Fatalf("execution should be succeeded, got %v", e.Phase())
	}
	mu.Lock()
	defer mu.Unlock()
	if !reflect.DeepEqual(launched, ids) {
		t.Fatalf("launched: got %v, want %v", launched, ids)
	}
}
