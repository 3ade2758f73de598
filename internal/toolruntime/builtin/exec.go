package builtin

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"regexp"
	"time"

	"github.com/nextlevelbuilder/orchhub/internal/toolruntime"
)

// denyPatterns blocks the same destructive/exfiltration/reverse-shell shapes
// the teacher's shell.go denies before ever spawning a process.
var denyPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\brm\s+-[rf]{1,2}\b`),
	regexp.MustCompile(`\b(shutdown|reboot|poweroff)\b`),
	regexp.MustCompile(`:\(\)\s*\{.*\};\s*:`),
	regexp.MustCompile(`\bcurl\b.*\|\s*(ba)?sh\b`),
	regexp.MustCompile(`\bwget\b.*-O\s*-\s*\|\s*(ba)?sh\b`),
	regexp.MustCompile(`\b(nc|ncat|netcat)\b.*-[el]\b`),
	regexp.MustCompile(`\bsudo\b`),
	regexp.MustCompile(`/dev/tcp/`),
}

// Exec implements the "code_exec" code tool: run a shell command with a
// bounded timeout and a denylist of destructive/exfiltrating patterns.
type Exec struct {
	workingDir string
	timeout    time.Duration
}

func NewExec(workingDir string) *Exec {
	return &Exec{workingDir: workingDir, timeout: 60 * time.Second}
}

func (t *Exec) Name() string { return "code_exec" }

func (t *Exec) Execute(ctx context.Context, args map[string]any) *toolruntime.Result {
	command, _ := args["command"].(string)
	if command == "" {
		return toolruntime.ErrorResult("command is required")
	}
	for _, pattern := range denyPatterns {
		if pattern.MatchString(command) {
			return toolruntime.ErrorResult(fmt.Sprintf("command denied by safety policy: matches pattern %s", pattern.String()))
		}
	}

	runCtx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, "sh", "-c", command)
	cmd.Dir = t.workingDir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return toolruntime.ErrorResult(fmt.Sprintf("command failed: %v\n%s", err, stderr.String())).WithError(err)
	}
	return toolruntime.NewResult(stdout.String())
}
