package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/imagvfx/jobexe"
	"go.uber.org/zap"
)

// result is the outcome of a job execution in the simulation.
type result struct {
	Exe       jobexe.ExeID
	JobType   string
	Succeeded bool
	Tasks     []jobexe.Task
}

// simulate runs the job executions of the config in a simulated cluster,
// until all of them are finished or the context is done.
func simulate(ctx context.Context, cfg *Config, interval time.Duration, log *zap.Logger) ([]result, error) {
	m := jobexe.NewManager(log)
	for _, name := range cfg.exeOrder {
		e, err := jobexe.NewRunningExecution(cfg.Exes[name].JobExe(name), jobexe.WithLogger(log))
		if err != nil {
			return nil, err
		}
		err = m.Add(e)
		if err != nil {
			return nil, err
		}
	}
	total := m.Len()

	runCtx, stop := context.WithCancel(ctx)
	defer stop()
	var once sync.Once
	finished := func() {
		if len(m.Finished()) == total {
			once.Do(stop)
		}
	}
	cl := newCluster(cfg, m.HandleReport, finished, log)
	s := jobexe.NewScheduler(m, log)
	s.Interval = interval
	err := s.Run(runCtx, cl.Offers, cl.Launch)
	cl.Wait()
	if ctx.Err() != nil {
		return nil, fmt.Errorf("simulation stopped before all executions finished: %w", err)
	}
	if !errors.Is(err, context.Canceled) {
		return nil, fmt.Errorf("scheduler stopped: %w", err)
	}

	results := make([]result, 0, total)
	for _, e := range m.Finished() {
		results = append(results, result{
			Exe:       e.ID(),
			JobType:   e.JobType(),
			Succeeded: e.Succeeded(),
			Tasks:     e.Tasks(),
		})
		// the outcome is recorded in results.
		if err := m.Remove(e.ID()); err != nil {
			return nil, err
		}
	}
	return results, nil
}

func cutOrFill(s string, n int, fillLeft bool) string {
	if n < 0 {
		// invalid input
		return s
	}
	if len(s) > n {
		return s[:n]
	}
	spaces := strings.Repeat(" ", n-len(s))
	if fillLeft {
		return spaces + s
	}
	return s + spaces
}

// printResults prints results in human readable form.
func printResults(w io.Writer, results []result) {
	for _, r := range results {
		status := "failed"
		if r.Succeeded {
			status = "done"
		}
		fmt.Fprintf(w, "[%v] %v - %v\n", r.Exe, cutOrFill(status, 6, false), r.JobType)
		for _, t := range r.Tasks {
			took := ""
			if !t.Ended().IsZero() {
				took = t.Ended().Sub(t.Started()).Round(time.Millisecond).String()
			}
			fmt.Fprintf(w, "    %v %v %v\n", cutOrFill(string(t.ID), 24, false), cutOrFill(t.Status().String(), 9, false), took)
		}
	}
}
