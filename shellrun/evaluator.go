// Package shellrun implements the deduplicating, LRU-memoized shell
// command evaluator used to rewrite cgroup display names. Concurrent
// callers asking for the identical rendered command observe the
// subprocess run exactly once.
package shellrun

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"sync"

	"github.com/alessio/shellescape"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/jwalton/oguz-cgroups-exporter/config"
	"github.com/jwalton/oguz-cgroups-exporter/internal/tmplexpand"
)

const defaultCacheSize = 100

var (
	ErrExecution    = errors.New("shell: failed to start command")
	ErrExit         = errors.New("shell: command exited non-zero")
	ErrEmpty        = errors.New("shell: command produced empty output")
	ErrWait         = errors.New("shell: in-flight command failed")
	ErrShuttingDown = errors.New("shell: evaluator shutting down")
)

type result struct {
	value string
	err   error
}

type inflight struct {
	done chan struct{}
	res  result
}

// Evaluator is the single-flight + LRU shell command runner. The zero
// value is not usable; construct with NewEvaluator.
type Evaluator struct {
	mu         sync.Mutex
	inProgress map[string]*inflight
	completed  *lru.Cache[string, string]
}

// NewEvaluator builds an Evaluator whose completed-command cache holds up
// to cacheSize entries. cacheSize <= 0 is floored to 100, matching the
// "cache capacity 0 treated as 100" boundary behavior.
func NewEvaluator(cacheSize int) *Evaluator {
	if cacheSize <= 0 {
		cacheSize = defaultCacheSize
	}
	c, err := lru.New[string, string](cacheSize)
	if err != nil {
		// Only returns an error for size <= 0, which we've already ruled out.
		panic(fmt.Sprintf("shellrun: unexpected lru.New error: %v", err))
	}
	return &Evaluator{
		inProgress: make(map[string]*inflight),
		completed:  c,
	}
}

// Evaluate renders commandTemplate by shell-quoting and substituting vars,
// then runs it via `sh -c`, returning the trimmed selected stream.
// Concurrent calls with the same rendered command coalesce into a single
// subprocess execution.
func (e *Evaluator) Evaluate(ctx context.Context, commandTemplate string, vars map[string]string, stream config.Stream) (string, error) {
	taskID := tmplexpand.ExpandFunc(commandTemplate, vars, shellescape.Quote)

	e.mu.Lock()
	if v, ok := e.completed.Get(taskID); ok {
		e.mu.Unlock()
		return v, nil
	}
	if fl, ok := e.inProgress[taskID]; ok {
		e.mu.Unlock()
		select {
		case <-fl.done:
			if fl.res.err != nil {
				return "", fmt.Errorf("%w: %v", ErrWait, fl.res.err)
			}
			return fl.res.value, nil
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}

	fl := &inflight{done: make(chan struct{})}
	e.inProgress[taskID] = fl
	e.mu.Unlock()

	value, err := e.execute(ctx, taskID, stream)

	e.mu.Lock()
	delete(e.inProgress, taskID)
	if err == nil {
		e.completed.Add(taskID, value)
	}
	e.mu.Unlock()

	fl.res = result{value: value, err: err}
	close(fl.done)

	return value, err
}

func (e *Evaluator) execute(ctx context.Context, command string, stream config.Stream) (string, error) {
	cmd := exec.CommandContext(ctx, "sh", "-c", command)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return "", fmt.Errorf("%w: exit code %d", ErrExit, exitErr.ExitCode())
		}
		return "", fmt.Errorf("%w: %v", ErrExecution, err)
	}

	out := stdout.String()
	if stream == config.StreamStderr {
		out = stderr.String()
	}
	trimmed := strings.TrimSpace(out)
	if trimmed == "" {
		return "", ErrEmpty
	}
	return trimmed, nil
}
