package main

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/imagvfx/jobexe"
	"go.uber.org/zap"
)

func TestSimulate(t *testing.T) {
	cfg := mustParseConfig(t, testConfig)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	results, err := simulate(ctx, cfg, time.Millisecond, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 2 {
		t.Fatalf("want 2 results, got %v", len(results))
	}
	got := make(map[jobexe.ExeID]result)
	for _, r := range results {
		got[r.Exe] = r
	}
	second := got["second"]
	if !second.Succeeded {
		t.Fatalf("second should be succeeded")
	}
	for _, task := range second.Tasks {
		if task.Status() != jobexe.TaskCompleted {
			t.Fatalf("%v: got %v, want %v", task.ID, task.Status(), jobexe.TaskCompleted)
		}
		if task.Report() == nil || task.Report().ExitCode == nil || *task.Report().ExitCode != 0 {
			t.Fatalf("%v: should have the final report with exit code 0", task.ID)
		}
	}
	first := got["first"]
	if first.Succeeded {
		t.Fatalf("first should be failed")
	}
	r := first.Tasks[0].Report()
	if r == nil || r.Data == nil || r.Data.Fields["node"] == nil {
		t.Fatalf("failed report should have diagnostic data: %v", r)
	}

	var buf bytes.Buffer
	printResults(&buf, results)
	out := buf.String()
	if !strings.Contains(out, "[second] done") || !strings.Contains(out, "[first] failed") {
		t.Fatalf("unexpected output:\n%s", out)
	}
}

func TestSimulateTimeout(t *testing.T) {
	// the task needs more cpus than any node has.
	cfg := mustParseConfig(t, `
[nodes.small]
cpus = 1.0
mem = 1024.0

[exes.big]
cpus = 8.0
mem = 512.0
tasks = ["main"]
`)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := simulate(ctx, cfg, time.Millisecond, zap.NewNop())
	if err == nil {
		t.Fatalf("simulation should be stopped by the timeout")
	}
}
