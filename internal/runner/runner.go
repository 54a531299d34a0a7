// Package runner executes a project's build and test commands,
// capturing stdout, stderr, and exit code as a model.TestOutcome. A
// non-zero exit is a reported outcome, not a Go error. A command
// string that does not tokenize, a failure to attach output pipes, or
// a spawn failure (bad executable, missing PATH entry) becomes an
// outcome with a synthetic failure message.
package runner

import (
	"context"
	"io"
	"os/exec"
	"sync"

	"github.com/devpost-labs/devpost-upgrade/internal/model"
)

// Runner runs shell command strings in a fixed working directory.
type Runner struct {
	Dir string
}

// New creates a Runner rooted at dir.
func New(dir string) *Runner {
	return &Runner{Dir: dir}
}

// Run tokenizes command, spawns it, and waits for completion,
// returning the captured outcome. Subprocesses inherit the invoking
// process's environment and carry no explicit timeout — per §5 they
// run to completion; a user-initiated interrupt is handled by the
// orchestrator's checkpoint discipline, not by Run itself.
func (r *Runner) Run(ctx context.Context, command string) model.TestOutcome {
	if command == "" {
		return model.TestOutcome{Success: true, ExitCode: 0}
	}

	argv, err := Tokenize(command)
	if err != nil {
		return model.TestOutcome{Success: false, Stderr: err.Error(), ExitCode: -1}
	}
	if len(argv) == 0 {
		return model.TestOutcome{Success: true, ExitCode: 0}
	}

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Dir = r.Dir

	outPipe, outErr := cmd.StdoutPipe()
	errPipe, errErr := cmd.StderrPipe()
	if outErr != nil || errErr != nil {
		return model.TestOutcome{Success: false, Stderr: "runner: failed to attach output pipes", ExitCode: -1}
	}

	if startErr := cmd.Start(); startErr != nil {
		return model.TestOutcome{Success: false, Stderr: startErr.Error(), ExitCode: -1}
	}

	var stdout, stderr []byte
	var wg sync.WaitGroup
	wg.Add(2)
	go func() { defer wg.Done(); stdout = drain(outPipe) }()
	go func() { defer wg.Done(); stderr = drain(errPipe) }()
	wg.Wait()

	waitErr := cmd.Wait()
	exitCode := 0
	success := true
	if waitErr != nil {
		success = false
		if exitErr, ok := waitErr.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
		} else {
			// Spawn-adjacent failure surfaced at Wait time (rare once
			// Start has succeeded): report as a failed outcome rather
			// than a Go error, consistent with Run's contract.
			stderr = append(stderr, []byte("\n"+waitErr.Error())...)
			exitCode = -1
		}
	}

	return model.TestOutcome{
		Success:  success,
		Stdout:   string(stdout),
		Stderr:   string(stderr),
		ExitCode: exitCode,
	}
}

// RunAll runs the build command first; if it fails, the test command
// is reported as skipped with a synthetic outcome rather than run.
func (r *Runner) RunAll(ctx context.Context, buildCommand, testCommand string) (build, test model.TestOutcome) {
	build = r.Run(ctx, buildCommand)
	if !build.Success {
		test = model.TestOutcome{
			Success: false,
			Stdout:  "",
			Stderr:  "skipped: build failed",
			ExitCode: -1,
		}
		return build, test
	}
	test = r.Run(ctx, testCommand)
	return build, test
}

func drain(r io.Reader) []byte {
	data, _ := io.ReadAll(r)
	return data
}
