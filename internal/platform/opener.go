package platform

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"runtime"
	"strings"
	"sync"
)

// Opener hands a target (app key, URI or URL) to the host
type Opener interface {
	Open(ctx context.Context, target string) error
}

// CommandOpener runs a command with the target as its last argument
type CommandOpener struct {
	Command string
	Args    []string
}

// NewCommandOpener parses command, e.g. "xdg-open" or "open -a". An empty
// command selects the platform default.
func NewCommandOpener(command string) (*CommandOpener, error) {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return DefaultOpener()
	}
	return &CommandOpener{Command: fields[0], Args: fields[1:]}, nil
}

// DefaultOpener returns the opener of the running OS
func DefaultOpener() (*CommandOpener, error) {
	switch runtime.GOOS {
	case "darwin":
		return &CommandOpener{Command: "open"}, nil
	case "linux":
		return &CommandOpener{Command: "xdg-open"}, nil
	case "windows":
		return &CommandOpener{Command: "rundll32", Args: []string{"url.dll,FileProtocolHandler"}}, nil
	}
	return nil, fmt.Errorf("unsupported platform: %s", runtime.GOOS)
}

// Open starts the command and does not wait for it. The started process
// outlives ctx.
func (o *CommandOpener) Open(ctx context.Context, target string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	args := append(append([]string{}, o.Args...), target)
	cmd := exec.Command(o.Command, args...)
	if err := cmd.Start(); err != nil {
		return err
	}
	go func() { _ = cmd.Wait() }()
	return nil
}

// LogOpener only logs and remembers targets. Used for dry runs.
type LogOpener struct {
	logger *slog.Logger

	mu     sync.Mutex
	opened []string
}

// NewLogOpener creates a LogOpener; a nil logger uses slog.Default()
func NewLogOpener(logger *slog.Logger) *LogOpener {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogOpener{logger: logger}
}

func (o *LogOpener) Open(_ context.Context, target string) error {
	o.mu.Lock()
	o.opened = append(o.opened, target)
	o.mu.Unlock()
	o.logger.Info("open", "target", target)
	return nil
}

// Opened returns the targets opened so far
func (o *LogOpener) Opened() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]string(nil), o.opened...)
}
