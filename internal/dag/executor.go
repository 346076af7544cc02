package dag

import (
	"context"
	"fmt"
	"time"

	"github.com/specialistvlad/llamabuild/internal/ctxlog"
)

// Step is the work attached to one node.
type Step func(ctx context.Context) error

// Executor runs the steps of a graph sequentially.
type Executor struct {
	graph *Graph
	steps map[string]Step
}

// Report describes what happened to each node during a run.
type Report struct {
	// Order is the topological order the executor followed.
	Order  []string
	States map[string]State
	// Failed is the node whose step returned an error, if any.
	Failed string
}

// NewExecutor pairs every node of g with its step. Each node must have
// exactly one step and each step must belong to a node.
func NewExecutor(g *Graph, steps map[string]Step) (*Executor, error) {
	for id := range steps {
		if !g.Has(id) {
			return nil, fmt.Errorf("step registered for unknown node: %s", id)
		}
	}
	g.mutex.RLock()
	defer g.mutex.RUnlock()
	for _, id := range g.order {
		if steps[id] == nil {
			return nil, fmt.Errorf("no step registered for node: %s", id)
		}
	}
	return &Executor{graph: g, steps: steps}, nil
}

// Run executes every step in topological order. The first failing step
// aborts the run: its dependents and every step not yet started are marked
// Skipped and the step's error is returned wrapped with the node ID.
func (e *Executor) Run(ctx context.Context) (*Report, error) {
	logger := ctxlog.FromContext(ctx)

	order, err := e.graph.TopologicalOrder()
	if err != nil {
		return nil, fmt.Errorf("error validating step graph: %w", err)
	}
	report := &Report{Order: order, States: make(map[string]State, len(order))}
	for _, id := range order {
		report.States[id] = Pending
	}
	logger.Debug("Executing step graph.", "steps", len(order))

	for i, id := range order {
		if err := ctx.Err(); err != nil {
			logger.Warn("Context canceled, skipping remaining steps.", "step", id)
			e.skip(report, order[i:])
			return report, err
		}

		stepLogger := logger.With("step", id)
		stepLogger.Debug("Starting step.")
		start := time.Now()
		if err := e.steps[id](ctx); err != nil {
			stepLogger.Error("Step failed.", "error", err)
			report.States[id] = Failed
			report.Failed = id
			e.skipAfterFailure(ctx, report, id, order[i+1:])
			return report, fmt.Errorf("step %s: %w", id, err)
		}
		report.States[id] = Done
		stepLogger.Debug("Step finished.", "duration", time.Since(start))
	}
	return report, nil
}

func (e *Executor) skipAfterFailure(ctx context.Context, report *Report, failed string, rest []string) {
	logger := ctxlog.FromContext(ctx)
	downstream, _ := e.graph.Downstream(failed)
	isDownstream := make(map[string]bool, len(downstream))
	for _, id := range downstream {
		isDownstream[id] = true
	}
	for _, id := range rest {
		if isDownstream[id] {
			logger.Warn("Skipping dependent step due to upstream failure.", "step", id, "dependency", failed)
		} else {
			logger.Warn("Skipping step, build aborted.", "step", id)
		}
		report.States[id] = Skipped
	}
}

func (e *Executor) skip(report *Report, ids []string) {
	for _, id := range ids {
		report.States[id] = Skipped
	}
}
