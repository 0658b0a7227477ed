package checks

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/lucasnoah/changegate/internal/config"
)

// RunOrder is the order checks execute in sequential mode. Cheap static
// checks run before the test suite.
var RunOrder = []string{"lint", "format", "typecheck", "security", "tests"}

// Executor runs the configured set of named checks against a working copy
// and aggregates the results into a name-keyed map.
type Executor struct {
	runner  *Runner
	configs []CheckConfig
}

// NewExecutor builds an Executor from the config's check table. Unknown
// timeout strings fall back to the runner default.
func NewExecutor(runner *Runner, cfgs map[string]config.Check) *Executor {
	e := &Executor{runner: runner}
	for _, name := range RunOrder {
		chk, ok := cfgs[name]
		if !ok {
			continue
		}
		timeout, _ := time.ParseDuration(chk.Timeout)
		e.configs = append(e.configs, CheckConfig{
			Name:    name,
			Command: chk.Command,
			Parser:  chk.Parser,
			Timeout: timeout,
		})
	}
	return e
}

// RunSequential executes checks one at a time, stopping early after a
// critical failure. Execution-machinery errors are converted into synthetic
// failed, critical results so the batch always yields a complete map for the
// checks it attempted.
func (e *Executor) RunSequential(ctx context.Context, dir string) map[string]CheckResult {
	results := make(map[string]CheckResult, len(e.configs))
	for _, cfg := range e.configs {
		result := e.runOne(ctx, dir, cfg)
		results[cfg.Name] = result
		if result.CriticalFailure {
			break
		}
	}
	return results
}

// RunParallel executes all checks concurrently. A panic or error from any
// one check is caught at the aggregation boundary and converted into a
// synthetic failed, critical result rather than aborting the batch.
func (e *Executor) RunParallel(ctx context.Context, dir string) map[string]CheckResult {
	results := make(map[string]CheckResult, len(e.configs))
	var mu sync.Mutex
	var wg sync.WaitGroup

	for _, cfg := range e.configs {
		wg.Add(1)
		go func(cfg CheckConfig) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					mu.Lock()
					results[cfg.Name] = syntheticFailure(cfg.Name, fmt.Sprintf("check panicked: %v", r))
					mu.Unlock()
				}
			}()
			result := e.runOne(ctx, dir, cfg)
			mu.Lock()
			results[cfg.Name] = result
			mu.Unlock()
		}(cfg)
	}
	wg.Wait()
	return results
}

// runOne executes a single check, converting runner errors into synthetic
// critical results.
func (e *Executor) runOne(ctx context.Context, dir string, cfg CheckConfig) CheckResult {
	result, err := e.runner.Run(ctx, dir, cfg)
	if err != nil {
		return syntheticFailure(cfg.Name, err.Error())
	}
	return *result
}

func syntheticFailure(name, msg string) CheckResult {
	return CheckResult{
		CheckName:       name,
		Passed:          false,
		Output:          msg,
		ErrorCount:      1,
		CriticalFailure: true,
	}
}
