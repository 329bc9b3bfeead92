// Package remote submits nonlinear power flow problems to a remote
// solve service over HTTP and polls for the result. The service runs
// an interior-point nonlinear solver; this side only serializes the
// problem and maps the answer back.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io/ioutil"
	"net/http"
	"time"

	"github.com/amir013/opf/internal/pkg/opfmodel"
	"github.com/amir013/opf/internal/pkg/solver"
)

// Config identifies the remote service and the submitter. The email is
// carried explicitly in the job request; it is never read from the
// process environment.
type Config struct {
	URL          string `json:"URL"`
	Email        string `json:"Email"`
	Solver       string `json:"Solver"`
	PollInterval int    `json:"PollInterval"`
	Timeout      int    `json:"Timeout"`
}

// Backend is an HTTP client for the remote solve service.
type Backend struct {
	config Config
	client *http.Client
}

// New reads the service configuration from a JSON file.
func New(configPath string) (Backend, error) {
	jsonConfig, err := ioutil.ReadFile(configPath)
	if err != nil {
		return Backend{}, err
	}
	cfg := Config{}
	if err := json.Unmarshal(jsonConfig, &cfg); err != nil {
		return Backend{}, err
	}
	return NewWithConfig(cfg)
}

// NewWithConfig builds a backend from an in-memory configuration.
func NewWithConfig(cfg Config) (Backend, error) {
	if cfg.URL == "" {
		return Backend{}, fmt.Errorf("remote solver URL is required")
	}
	if cfg.Email == "" {
		return Backend{}, fmt.Errorf("remote solver email is required")
	}
	if cfg.Solver == "" {
		cfg.Solver = "ipopt"
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 2000
	}
	timeout := time.Duration(cfg.Timeout) * time.Millisecond
	if cfg.Timeout <= 0 {
		timeout = 30 * time.Second
	}
	return Backend{
		config: cfg,
		client: &http.Client{Timeout: timeout},
	}, nil
}

// wire formats for the job protocol.

type jobRequest struct {
	Email     string      `json:"email"`
	Solver    string      `json:"solver"`
	ModelType string      `json:"model_type"`
	Problem   wireProblem `json:"problem"`
}

type wireProblem struct {
	Buses     int            `json:"buses"`
	Variables []wireVariable `json:"variables"`
	Objective wireObjective  `json:"objective"`
	Linear    []wireRow      `json:"linear_constraints,omitempty"`
	Balance   *wireBalance   `json:"balance,omitempty"`
}

type wireVariable struct {
	Name  string  `json:"name"`
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
	Fixed bool    `json:"fixed,omitempty"`
	Value float64 `json:"value,omitempty"`
}

type wireObjective struct {
	Quad     []float64 `json:"quad"`
	Lin      []float64 `json:"lin"`
	Constant float64   `json:"constant"`
}

type wireRow struct {
	Coeffs []float64 `json:"coeffs"`
	RHS    float64   `json:"rhs"`
}

type wireBalance struct {
	G     [][]float64 `json:"g"`
	B     [][]float64 `json:"b"`
	Pload []float64   `json:"pload"`
	Qload []float64   `json:"qload"`
}

type jobCreated struct {
	ID string `json:"job_id"`
}

type jobResult struct {
	State     string    `json:"state"` // queued, running, done
	Status    string    `json:"status"`
	Values    []float64 `json:"values"`
	Objective *float64  `json:"objective"`
}

func encodeProblem(p *opfmodel.Problem) wireProblem {
	w := wireProblem{
		Buses:     p.Buses,
		Variables: make([]wireVariable, len(p.Vars)),
		Objective: wireObjective{
			Quad: make([]float64, len(p.Vars)),
			Lin:  make([]float64, len(p.Vars)),
		},
	}
	for i, v := range p.Vars {
		w.Variables[i] = wireVariable{
			Name:  v.Name,
			Lower: v.Lower,
			Upper: v.Upper,
			Fixed: v.Fixed,
			Value: v.Value,
		}
	}
	for _, t := range p.Obj.Terms {
		w.Objective.Quad[t.Var] += t.Quad
		w.Objective.Lin[t.Var] += t.Lin
	}
	w.Objective.Constant = p.Obj.Constant
	for _, row := range p.Linear {
		w.Linear = append(w.Linear, wireRow{Coeffs: row.Coeffs, RHS: row.RHS})
	}
	if p.Balance != nil {
		n := p.Buses
		wb := &wireBalance{
			G:     make([][]float64, n),
			B:     make([][]float64, n),
			Pload: p.Balance.Pload,
			Qload: p.Balance.Qload,
		}
		for i := 0; i < n; i++ {
			wb.G[i] = make([]float64, n)
			wb.B[i] = make([]float64, n)
			for j := 0; j < n; j++ {
				wb.G[i][j] = p.Balance.G.At(i, j)
				wb.B[i][j] = p.Balance.B.At(i, j)
			}
		}
		w.Balance = wb
	}
	return w
}

// Solve submits the problem and polls until the service reports a
// terminal state or the context ends. Transport failures surface as
// errors; the problem itself stays untouched and can be resubmitted.
func (b Backend) Solve(ctx context.Context, p *opfmodel.Problem) (solver.Solution, error) {
	id, err := b.submit(ctx, p)
	if err != nil {
		return solver.Solution{}, err
	}

	ticker := time.NewTicker(time.Duration(b.config.PollInterval) * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return solver.Solution{Status: solver.Interrupted}, ctx.Err()
		case <-ticker.C:
			res, err := b.poll(ctx, id)
			if err != nil {
				return solver.Solution{}, err
			}
			if res.State != "done" {
				continue
			}
			return mapResult(p, res), nil
		}
	}
}

func (b Backend) submit(ctx context.Context, p *opfmodel.Problem) (string, error) {
	job := jobRequest{
		Email:     b.config.Email,
		Solver:    b.config.Solver,
		ModelType: p.Name,
		Problem:   encodeProblem(p),
	}
	body, err := json.Marshal(job)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, "POST", b.config.URL+"/jobs", bytes.NewBuffer(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("remote solver unreachable: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("remote solver rejected job: %s", resp.Status)
	}

	created := jobCreated{}
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return "", err
	}
	if created.ID == "" {
		return "", fmt.Errorf("remote solver returned no job id")
	}
	return created.ID, nil
}

func (b Backend) poll(ctx context.Context, id string) (jobResult, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", b.config.URL+"/jobs/"+id, nil)
	if err != nil {
		return jobResult{}, err
	}
	resp, err := b.client.Do(req)
	if err != nil {
		return jobResult{}, fmt.Errorf("remote solver unreachable: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return jobResult{}, fmt.Errorf("remote solver job %s: %s", id, resp.Status)
	}
	res := jobResult{}
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return jobResult{}, err
	}
	return res, nil
}

func mapResult(p *opfmodel.Problem, res jobResult) solver.Solution {
	sol := solver.Solution{
		Status: mapStatus(res.Status),
		Values: make([]solver.Value, len(p.Vars)),
	}
	if len(res.Values) == len(p.Vars) {
		for i, v := range res.Values {
			sol.Values[i] = solver.NewValue(v)
		}
	}
	if res.Objective != nil {
		sol.Cost = solver.NewValue(*res.Objective)
	}
	return sol
}

func mapStatus(s string) solver.Status {
	switch s {
	case "optimal", "locallyOptimal":
		return solver.Optimal
	case "infeasible", "locallyInfeasible":
		return solver.Infeasible
	case "unbounded":
		return solver.Unbounded
	case "maxIterations", "maxTimeLimit", "interrupted":
		return solver.Interrupted
	}
	return solver.Failed
}
