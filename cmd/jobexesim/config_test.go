package main

import (
	"reflect"
	"testing"

	"github.com/imagvfx/jobexe"
	"github.com/pelletier/go-toml"
)

const testConfig = `
[nodes.zeta]
cpus = 2.0
mem = 2048.0
disk = 1000.0

[nodes.alpha]
cpus = 1.0
mem = 1024.0
disk = 500.0

[exes.second]
job_type = "render"
cpus = 1.0
mem = 512.0
tasks = ["pull", "", "push"]
task_disk = [300.0, 50.0]
duration = "1ms"

[exes.first]
job_type = "ingest"
cpus = 1.0
mem = 512.0
tasks = ["main"]
duration = "1ms"
fail_at = 0
`

func mustParseConfig(t *testing.T, s string) *Config {
	t.Helper()
	tree, err := toml.Load(s)
	if err != nil {
		t.Fatal(err)
	}
	cfg, err := parseConfig(tree)
	if err != nil {
		t.Fatal(err)
	}
	return cfg
}

func TestParseConfig(t *testing.T) {
	cfg := mustParseConfig(t, testConfig)
	// keys should be in the file order, not in alphabetical order.
	if want := []string{"zeta", "alpha"}; !reflect.DeepEqual(cfg.nodeOrder, want) {
		t.Fatalf("node order: got %v, want %v", cfg.nodeOrder, want)
	}
	if want := []string{"second", "first"}; !reflect.DeepEqual(cfg.exeOrder, want) {
		t.Fatalf("exe order: got %v, want %v", cfg.exeOrder, want)
	}
	if cfg.Nodes["zeta"].Disk != 1000 {
		t.Fatalf("zeta disk: got %v, want 1000", cfg.Nodes["zeta"].Disk)
	}
	if cfg.Exes["first"].failAt() != 0 {
		t.Fatalf("first fail_at: got %v, want 0", cfg.Exes["first"].failAt())
	}
	if cfg.Exes["second"].failAt() != -1 {
		t.Fatalf("second fail_at: got %v, want -1", cfg.Exes["second"].failAt())
	}
}

func TestParseConfigInvalid(t *testing.T) {
	cases := []string{
		// no nodes
		`
[exes.a]
tasks = ["main"]
`,
		// no exes
		`
[nodes.a]
cpus = 1.0
`,
		// no tasks
		`
[nodes.a]
cpus = 1.0

[exes.a]
cpus = 1.0
`,
		// invalid duration
		`
[nodes.a]
cpus = 1.0

[exes.a]
tasks = ["main"]
duration = "soon"
`,
	}
	for i, c := range cases {
		tree, err := toml.Load(c)
		if err != nil {
			t.Fatalf("%d: %v", i, err)
		}
		_, err = parseConfig(tree)
		if err == nil {
			t.Fatalf("%d: should be an error", i)
		}
	}
}

func TestExeConfigJobExe(t *testing.T) {
	cfg := mustParseConfig(t, testConfig)
	exe := cfg.Exes["second"].JobExe("second")
	if exe.Status != jobexe.JobExeRunning {
		t.Fatalf("status: got %v, want %v", exe.Status, jobexe.JobExeRunning)
	}
	e, err := jobexe.NewRunningExecution(exe)
	if err != nil {
		t.Fatal(err)
	}
	tasks := e.Tasks()
	if tasks[0].ID != "second/pull" || tasks[2].ID != "second/push" {
		t.Fatalf("unexpected task ids: %v", tasks)
	}
	// the last disk value is used for the rest of tasks.
	want := []float64{300, 50, 50}
	for i, w := range want {
		res, ok := e.NextTaskResources()
		if !ok {
			t.Fatalf("%d: should have next task resources", i)
		}
		if res.Disk() != w {
			t.Fatalf("%d: disk: got %v, want %v", i, res.Disk(), w)
		}
		task, _ := e.StartNextTask()
		e.TaskCompleted(task.ID, jobexe.TaskReport{TaskID: task.ID, Outcome: jobexe.OutcomeFinished})
	}
	if !e.Succeeded() {
		t.Fatalf("should be succeeded")
	}
}
