package main

import (
	"fmt"
	"sort"
	"time"

	"github.com/imagvfx/jobexe"
	"github.com/pelletier/go-toml"
)

// Config is a simulation config.
type Config struct {
	// Nodes are cluster nodes that tasks will be placed on.
	Nodes map[string]*NodeConfig `toml:"nodes"`

	// Exes are job executions to be run.
	Exes map[string]*ExeConfig `toml:"exes"`

	// nodeOrder and exeOrder are keys of Nodes and Exes in the file order.
	nodeOrder []string
	exeOrder  []string
}

// NodeConfig is resources of a node.
type NodeConfig struct {
	CPUs float64 `toml:"cpus"`
	Mem  float64 `toml:"mem"`
	Disk float64 `toml:"disk"`
}

// ExeConfig is a job execution already scheduled to run.
type ExeConfig struct {
	JobType   string  `toml:"job_type"`
	CPUs      float64 `toml:"cpus"`
	Mem       float64 `toml:"mem"`
	DiskIn    float64 `toml:"disk_in"`
	DiskOut   float64 `toml:"disk_out"`
	DiskTotal float64 `toml:"disk_total"`

	// Tasks are task ids of the execution.
	// An empty string lets it generate one.
	Tasks []string `toml:"tasks"`

	// TaskDisk is disk requirement for each task.
	// When it's shorter than Tasks, the last value is used for the rest.
	// No value means the tasks don't need disk.
	TaskDisk []float64 `toml:"task_disk"`

	// Duration is how long each task runs in the simulated cluster, eg. "200ms".
	Duration string `toml:"duration"`

	// FailAt is the task number that will fail. Negative value means no task fails.
	FailAt *int `toml:"fail_at"`
}

// Match go-toml.Tree keys to the same order with the file.
// Would be great it can be done with go-toml package, but didn't find the way.
func orderedKeys(t *toml.Tree) []string {
	type keyPos struct {
		Key  string
		Line int
		Col  int
	}
	keys := t.Keys()
	poses := make([]keyPos, 0, len(keys))
	for _, k := range keys {
		subt, ok := t.Get(k).(*toml.Tree)
		if !ok {
			continue
		}
		p := keyPos{
			Key:  k,
			Line: subt.Position().Line,
			Col:  subt.Position().Col,
		}
		poses = append(poses, p)
	}
	sort.Slice(poses, func(i, j int) bool {
		if poses[i].Line < poses[j].Line {
			return true
		}
		if poses[i].Line > poses[j].Line {
			return false
		}
		if poses[i].Col < poses[j].Col {
			return true
		}
		return false
	})
	ordkeys := make([]string, len(poses))
	for i, p := range poses {
		ordkeys[i] = p.Key
	}
	return ordkeys
}

// loadConfig loads a simulation config file.
func loadConfig(path string) (*Config, error) {
	tree, err := toml.LoadFile(path)
	if err != nil {
		return nil, err
	}
	return parseConfig(tree)
}

func parseConfig(tree *toml.Tree) (*Config, error) {
	cfg := &Config{}
	err := tree.Unmarshal(cfg)
	if err != nil {
		return nil, err
	}
	if len(cfg.Nodes) == 0 {
		return nil, fmt.Errorf("config should have at least one node")
	}
	if len(cfg.Exes) == 0 {
		return nil, fmt.Errorf("config should have at least one exe")
	}
	if t, ok := tree.Get("nodes").(*toml.Tree); ok {
		cfg.nodeOrder = orderedKeys(t)
	}
	if t, ok := tree.Get("exes").(*toml.Tree); ok {
		cfg.exeOrder = orderedKeys(t)
	}
	for _, name := range cfg.exeOrder {
		e := cfg.Exes[name]
		if len(e.Tasks) == 0 {
			return nil, fmt.Errorf("exe %v: should have at least one task", name)
		}
		if _, err := e.duration(); err != nil {
			return nil, fmt.Errorf("exe %v: %w", name, err)
		}
	}
	return cfg, nil
}

func (c *ExeConfig) duration() (time.Duration, error) {
	if c.Duration == "" {
		return 100 * time.Millisecond, nil
	}
	d, err := time.ParseDuration(c.Duration)
	if err != nil {
		return 0, fmt.Errorf("invalid duration: %v", c.Duration)
	}
	return d, nil
}

// failAt returns the task number that should fail, or -1.
func (c *ExeConfig) failAt() int {
	if c.FailAt == nil || *c.FailAt < 0 {
		return -1
	}
	return *c.FailAt
}

// diskPolicy returns a DiskPolicy that looks up TaskDisk with the task number.
func (c *ExeConfig) diskPolicy() jobexe.DiskPolicy {
	disk := append([]float64(nil), c.TaskDisk...)
	return jobexe.DiskFunc(func(seq *jobexe.TaskSequence, t jobexe.Task) float64 {
		if len(disk) == 0 {
			return 0
		}
		n := t.Num()
		if n >= len(disk) {
			n = len(disk) - 1
		}
		return disk[n]
	})
}

// JobExe converts the config into a job execution record that is running.
func (c *ExeConfig) JobExe(name string) *jobexe.JobExe {
	tasks := make([]jobexe.TaskID, len(c.Tasks))
	for i, t := range c.Tasks {
		if t != "" {
			t = name + "/" + t
		}
		tasks[i] = jobexe.TaskID(t)
	}
	return &jobexe.JobExe{
		ID:        jobexe.ExeID(name),
		Status:    jobexe.JobExeRunning,
		JobType:   c.JobType,
		Scheduled: jobexe.NewResources(c.CPUs, c.Mem, c.DiskIn, c.DiskOut, c.DiskTotal),
		Tasks:     tasks,
		Disk:      c.diskPolicy(),
	}
}
