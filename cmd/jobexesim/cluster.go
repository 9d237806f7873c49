package main

import (
	"errors"
	"sync"
	"time"

	"github.com/imagvfx/jobexe"
	"go.uber.org/zap"
	"google.golang.org/protobuf/types/known/structpb"
)

// node is a node of the simulated cluster.
type node struct {
	name  string
	total jobexe.Resources
	used  jobexe.Resources
}

// taskPlan decides how tasks of an execution behave in the simulated cluster.
type taskPlan struct {
	duration time.Duration
	failAt   int
}

// placement is where a task is running, and how much it uses.
type placement struct {
	node *node
	res  jobexe.Resources
}

// cluster simulates a cluster resource manager.
// It runs launched tasks in goroutines, and reports their status back
// like a real cluster does.
type cluster struct {
	mu      sync.Mutex
	nodes   []*node
	running map[jobexe.TaskID]*placement
	plan    map[jobexe.ExeID]taskPlan

	// report is called with status reports of the tasks, from other goroutines.
	report func(jobexe.TaskReport) error
	// finished is called after a task reported it's final status.
	finished func()

	log *zap.Logger
	wg  sync.WaitGroup
}

func newCluster(cfg *Config, report func(jobexe.TaskReport) error, finished func(), log *zap.Logger) *cluster {
	c := &cluster{
		running:  make(map[jobexe.TaskID]*placement),
		plan:     make(map[jobexe.ExeID]taskPlan),
		report:   report,
		finished: finished,
		log:      log,
	}
	for _, name := range cfg.nodeOrder {
		n := cfg.Nodes[name]
		c.nodes = append(c.nodes, &node{
			name:  name,
			total: jobexe.NewResources(n.CPUs, n.Mem, 0, 0, n.Disk),
		})
	}
	for _, name := range cfg.exeOrder {
		e := cfg.Exes[name]
		d, _ := e.duration() // already validated
		c.plan[jobexe.ExeID(name)] = taskPlan{duration: d, failAt: e.failAt()}
	}
	return c
}

// Offers returns resources of the nodes those are not used by running tasks.
func (c *cluster) Offers() []*jobexe.Offer {
	c.mu.Lock()
	defer c.mu.Unlock()
	offers := make([]*jobexe.Offer, 0, len(c.nodes))
	for _, n := range c.nodes {
		offers = append(offers, &jobexe.Offer{
			Node:      n.name,
			Available: n.total.Subtract(n.used),
		})
	}
	return offers
}

// Launch runs the task on the node.
func (c *cluster) Launch(l jobexe.Launch) {
	c.mu.Lock()
	var n *node
	for _, nd := range c.nodes {
		if nd.name == l.Node {
			n = nd
			break
		}
	}
	if n == nil {
		c.mu.Unlock()
		c.log.Error("unknown node", zap.String("node", l.Node))
		c.send(jobexe.TaskReport{
			TaskID:  l.Task.ID,
			Outcome: jobexe.OutcomeFailed,
			Message: "unknown node: " + l.Node,
		})
		c.finished()
		return
	}
	n.used = n.used.Add(l.Resources)
	c.running[l.Task.ID] = &placement{node: n, res: l.Resources}
	plan := c.plan[l.Exe.ID()]
	c.mu.Unlock()

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.run(l, n, plan)
	}()
}

func (c *cluster) run(l jobexe.Launch, n *node, plan taskPlan) {
	id := l.Task.ID
	time.Sleep(plan.duration / 10)
	running := jobexe.NewTaskReport(id, jobexe.OutcomeRunning, time.Now())
	c.send(running)
	// real clusters may send the same status more than once.
	c.send(running)
	time.Sleep(plan.duration)

	c.release(id)
	var r jobexe.TaskReport
	if l.Task.Num() == plan.failAt {
		r = jobexe.NewTaskReport(id, jobexe.OutcomeFailed, time.Now())
		r.ExitCode = ptr[int32](1)
		r.Message = "task exited with non-zero code"
		data, err := structpb.NewStruct(map[string]interface{}{
			"node": n.name,
			"cpus": l.Resources.CPUs,
		})
		if err == nil {
			r.Data = data
		}
	} else {
		r = jobexe.NewTaskReport(id, jobexe.OutcomeFinished, time.Now())
		r.ExitCode = ptr[int32](0)
	}
	c.send(r)
	c.finished()
}

// release frees resources the task was using.
func (c *cluster) release(id jobexe.TaskID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.running[id]
	if !ok {
		return
	}
	p.node.used = p.node.used.Subtract(p.res)
	delete(c.running, id)
}

func (c *cluster) send(r jobexe.TaskReport) {
	err := c.report(r)
	if err == nil {
		return
	}
	if errors.Is(err, jobexe.ErrStaleReport) {
		c.log.Debug("stale report", zap.Error(err))
		return
	}
	c.log.Warn("report failed", zap.Error(err))
}

// Wait waits all launched tasks to finish.
func (c *cluster) Wait() {
	c.wg.Wait()
}
