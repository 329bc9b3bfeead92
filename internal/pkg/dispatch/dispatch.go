// Package dispatch orchestrates model builds and solver calls, checks
// the returned solutions against the problem's fixings, and publishes
// results for the persistence and presentation layers.
package dispatch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/amir013/opf/internal/pkg/admittance"
	"github.com/amir013/opf/internal/pkg/msg"
	"github.com/amir013/opf/internal/pkg/network"
	"github.com/amir013/opf/internal/pkg/opfmodel"
	"github.com/amir013/opf/internal/pkg/report"
	"github.com/amir013/opf/internal/pkg/solver"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// fixedTol is the slack allowed between a fixed variable and the value
// a solver hands back for it before the solution is rejected.
const fixedTol = 1e-6

var (
	solvesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "opf_solves_total",
		Help: "Completed solve attempts by model type and termination status.",
	}, []string{"model", "status"})

	solveSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "opf_solve_duration_seconds",
		Help:    "Wall time of solver calls by model type.",
		Buckets: prometheus.ExponentialBuckets(0.01, 4, 8),
	}, []string{"model"})
)

// Result pairs a problem instance with its solution.
type Result struct {
	Problem  *opfmodel.Problem
	Solution solver.Solution
	Elapsed  time.Duration
}

// Orchestrator owns solver selection and the result stream. The AC
// backend is typically remote; the DC backend runs locally.
type Orchestrator struct {
	mux       *sync.Mutex
	pid       uuid.UUID
	publisher *msg.PubSub
	teamName  string
	ac        solver.Solver
	dc        solver.Solver
}

// New returns an orchestrator publishing under a fresh PID. Either
// backend may be nil when that formulation is not in use.
func New(teamName string, ac, dc solver.Solver) (*Orchestrator, error) {
	pid, err := uuid.NewUUID()
	if err != nil {
		return nil, err
	}
	return &Orchestrator{
		mux:       &sync.Mutex{},
		pid:       pid,
		publisher: msg.NewPublisher(pid),
		teamName:  teamName,
		ac:        ac,
		dc:        dc,
	}, nil
}

// PID returns the orchestrator's PID.
func (o *Orchestrator) PID() uuid.UUID {
	return o.pid
}

// Subscribe returns a read-only channel for the orchestrator's events.
func (o *Orchestrator) Subscribe(pid uuid.UUID, topic msg.Topic) (<-chan msg.Msg, error) {
	return o.publisher.Subscribe(pid, topic)
}

// Unsubscribe drops the subscriber.
func (o *Orchestrator) Unsubscribe(pid uuid.UUID) {
	o.publisher.Unsubscribe(pid)
}

// RunAC builds and solves the nonlinear AC model for the network.
func (o *Orchestrator) RunAC(ctx context.Context, net network.Network) (Result, error) {
	if o.ac == nil {
		return Result{}, fmt.Errorf("no AC solver configured")
	}
	p, err := opfmodel.BuildAC(net)
	if err != nil {
		return Result{}, err
	}
	return o.run(ctx, o.ac, p)
}

// RunACWithAdmittance solves the AC model against precomputed
// admittance matrices, for networks that ship without a line table.
func (o *Orchestrator) RunACWithAdmittance(ctx context.Context, net network.Network, adm admittance.Matrices) (Result, error) {
	if o.ac == nil {
		return Result{}, fmt.Errorf("no AC solver configured")
	}
	p, err := opfmodel.BuildACWithAdmittance(net, adm)
	if err != nil {
		return Result{}, err
	}
	return o.run(ctx, o.ac, p)
}

// RunDC builds and solves the linearized DC model for the network.
func (o *Orchestrator) RunDC(ctx context.Context, net network.Network) (Result, error) {
	if o.dc == nil {
		return Result{}, fmt.Errorf("no DC solver configured")
	}
	p, err := opfmodel.BuildDC(net)
	if err != nil {
		return Result{}, err
	}
	return o.run(ctx, o.dc, p)
}

// RunDCWithAdmittance solves the DC model against precomputed
// admittance matrices.
func (o *Orchestrator) RunDCWithAdmittance(ctx context.Context, net network.Network, adm admittance.Matrices) (Result, error) {
	if o.dc == nil {
		return Result{}, fmt.Errorf("no DC solver configured")
	}
	p, err := opfmodel.BuildDCWithAdmittance(net, adm)
	if err != nil {
		return Result{}, err
	}
	return o.run(ctx, o.dc, p)
}

func (o *Orchestrator) run(ctx context.Context, s solver.Solver, p *opfmodel.Problem) (Result, error) {
	o.mux.Lock()
	defer o.mux.Unlock()

	start := time.Now()
	sol, err := s.Solve(ctx, p)
	elapsed := time.Since(start)

	solveSeconds.WithLabelValues(p.Name).Observe(elapsed.Seconds())
	solvesTotal.WithLabelValues(p.Name, sol.Status.String()).Inc()

	res := Result{Problem: p, Solution: sol, Elapsed: elapsed}
	if err != nil {
		return res, err
	}

	if err := p.VerifyFixed(sol.Value, fixedTol); err != nil {
		res.Solution.Status = solver.Failed
		return res, fmt.Errorf("solution rejected: %w", err)
	}

	o.publisher.Publish(msg.Result, report.New(o.teamName, p, sol))
	return res, nil
}
