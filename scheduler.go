package jobexe

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Offer is resources of a node that are available for new tasks.
type Offer struct {
	Node      string
	Available Resources
}

// Launch is a task that is started by the scheduler, and should be launched on the node.
type Launch struct {
	Exe       *RunningExecution
	Task      Task
	Node      string
	Resources Resources
}

// Scheduler places next tasks of running executions on offered nodes.
type Scheduler struct {
	Manager *Manager

	// Interval is the interval Run waits between scheduling rounds.
	// Default is a second.
	Interval time.Duration

	Log *zap.Logger
}

// NewScheduler creates a new Scheduler for the manager.
func NewScheduler(m *Manager, log *zap.Logger) *Scheduler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Scheduler{
		Manager:  m,
		Interval: time.Second,
		Log:      log,
	}
}

// Schedule starts as many next tasks as the offers can afford,
// and subtracts resources of the started tasks from the offers.
// An execution has at most one task in a round, as it's tasks run one by one.
func (s *Scheduler) Schedule(offers []*Offer) []Launch {
	launches := make([]Launch, 0)
	seen := make(map[ExeID]bool)
	for {
		e := s.Manager.NextReady()
		if e == nil || seen[e.ID()] {
			// every ready execution got their chance.
			return launches
		}
		seen[e.ID()] = true
		req, ok := e.NextTaskResources()
		if !ok {
			continue
		}
		o := findOffer(offers, req)
		if o == nil {
			s.Log.Debug("no offer fits", zap.String("exe", string(e.ID())), zap.Stringer("resources", req))
			continue
		}
		t, ok := e.StartNextTask()
		if !ok {
			// someone else started it, or the execution is failed meanwhile.
			continue
		}
		o.Available = o.Available.Subtract(req)
		launches = append(launches, Launch{
			Exe:       e,
			Task:      t,
			Node:      o.Node,
			Resources: req,
		})
		s.Log.Info("task scheduled",
			zap.String("exe", string(e.ID())),
			zap.String("task", string(t.ID)),
			zap.String("node", o.Node),
			zap.Stringer("resources", req),
		)
	}
}

// findOffer finds the first offer that is sufficient for the requirement.
func findOffer(offers []*Offer, req Resources) *Offer {
	for _, o := range offers {
		if o.Available.IsSufficientToMeet(req) {
			return o
		}
	}
	return nil
}

// Run schedules tasks periodically until the context is done.
// offers is called at every round to get current offers,
// and launch is called for each scheduled task.
func (s *Scheduler) Run(ctx context.Context, offers func() []*Offer, launch func(Launch)) error {
	interval := s.Interval
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		for _, l := range s.Schedule(offers()) {
			launch(l)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
