package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/anvil-build/anvil/internal/ctxlog"
	"github.com/anvil-build/anvil/internal/job"
)

// Runner dispatches one job's unit of work. The artifact manager supplies a
// dispatcher that binds build jobs to their blueprint callback; plain jobs
// run their declared action.
type Runner func(ctx context.Context, j *job.Job) error

// Scheduler executes job graphs against a registry with a fixed worker
// pool.
type Scheduler struct {
	registry *job.Registry
	workers  int
}

// New creates a scheduler. workers below one is clamped to one.
func New(registry *job.Registry, workers int) *Scheduler {
	if workers < 1 {
		workers = 1
	}
	return &Scheduler{registry: registry, workers: workers}
}

// Run executes the target job and its predecessor closure and returns the
// target's terminal outcome. Structural problems (unknown job, unknown
// predecessor, cycle) are returned as an error before anything executes.
func (s *Scheduler) Run(ctx context.Context, target job.URI, run Runner) (*Outcome, error) {
	logger := ctxlog.FromContext(ctx)

	nodes, root, err := buildGraph(s.registry, target)
	if err != nil {
		return nil, err
	}
	if err := detectCycles(nodes); err != nil {
		return nil, err
	}
	logger.Debug("Job graph built.", "target", target.String(), "jobs", len(nodes))

	readyChan := make(chan *node, len(nodes))
	var pending sync.WaitGroup
	pending.Add(len(nodes))

	for _, n := range nodes {
		if n.depCount.Load() == 0 {
			readyChan <- n
		}
	}

	workers := min(s.workers, len(nodes))
	var workerWg sync.WaitGroup
	for i := 0; i < workers; i++ {
		workerWg.Add(1)
		go func(workerID int) {
			defer workerWg.Done()
			s.worker(ctx, readyChan, &pending, run, workerID)
		}(i)
	}

	// Close the ready channel once every node reached a terminal state so
	// the workers drain out.
	go func() {
		pending.Wait()
		close(readyChan)
	}()
	workerWg.Wait()

	outcome := &Outcome{State: root.getState(), Err: root.err}
	logger.Debug("Job graph finished.", "target", target.String(), "state", outcome.State.String())
	return outcome, nil
}

// worker is the processing loop for a single concurrent worker.
func (s *Scheduler) worker(ctx context.Context, readyChan chan *node, pending *sync.WaitGroup, run Runner, workerID int) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Worker started.", "workerID", workerID)

	for n := range readyChan {
		// A node already swept to Cancelled was accounted for by the
		// sweep; just drop it.
		if !n.claim(Pending, Running) {
			continue
		}
		workerLogger := logger.With("workerID", workerID, "job", n.job.URI().String())

		if err := ctx.Err(); err != nil {
			workerLogger.Debug("Cancellation raised, job will not start.")
			n.err = err
			n.setState(Cancelled)
			s.cancelDependents(ctx, n, err, pending)
			pending.Done()
			continue
		}

		if n.job.Satisfied() {
			workerLogger.Debug("Job already satisfied by cache hit, skipping action.")
			s.succeed(n, readyChan)
			pending.Done()
			continue
		}

		workerLogger.Debug("Worker picked up job.")
		err := s.runAction(ctx, run, n)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				workerLogger.Debug("Job observed cancellation.", "error", err)
				n.err = err
				n.setState(Cancelled)
			} else {
				workerLogger.Error("Job failed.", "error", err)
				n.err = err
				n.setState(Failed)
			}
			s.cancelDependents(ctx, n, err, pending)
			pending.Done()
			continue
		}

		workerLogger.Debug("Job succeeded.")
		s.succeed(n, readyChan)
		pending.Done()
	}
	logger.Debug("Worker finished.", "workerID", workerID)
}

// succeed marks a node Succeeded and unlocks any dependent whose last
// predecessor this was.
func (s *Scheduler) succeed(n *node, readyChan chan *node) {
	n.setState(Succeeded)
	for _, dependent := range n.dependents {
		if dependent.depCount.Add(-1) == 0 {
			readyChan <- dependent
		}
	}
}

// runAction executes the job's unit of work, converting a panic into an
// ordinary failure so a misbehaving action can never crash the scheduler.
func (s *Scheduler) runAction(ctx context.Context, run Runner, n *node) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job %s panicked: %v", n.job.URI().String(), r)
		}
	}()
	if run != nil {
		return run(ctx, n.job)
	}
	if n.job.Action == nil {
		return nil
	}
	return n.job.Action(ctx)
}

// cancelDependents transitions every not-yet-started transitive dependent
// of n to Cancelled, carrying the causing error. Dependents that are
// already running or terminal are left alone.
func (s *Scheduler) cancelDependents(ctx context.Context, n *node, cause error, pending *sync.WaitGroup) {
	logger := ctxlog.FromContext(ctx)
	for _, dependent := range n.dependents {
		if !dependent.claim(Pending, Cancelled) {
			continue
		}
		logger.Debug("Cancelling dependent job.", "job", dependent.job.URI().String(), "cause", cause)
		dependent.err = cause
		pending.Done()
		s.cancelDependents(ctx, dependent, cause, pending)
	}
}
