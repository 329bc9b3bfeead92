// Package report renders solved power flow results as tabular text and
// as the JSON results document exported for downstream consumers.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"io/ioutil"
	"math"
	"path/filepath"

	"github.com/amir013/opf/internal/pkg/opfmodel"
	"github.com/amir013/opf/internal/pkg/solver"
)

// NodeResult holds the solved values for one bus. Nil means the solver
// produced no value for that variable, distinct from a solved zero.
type NodeResult struct {
	VoltageAngle     *float64 `json:"voltage_angle"`
	Power            *float64 `json:"power"`
	VoltageMagnitude *float64 `json:"voltage_magnitude,omitempty"`
	ReactivePower    *float64 `json:"reactive_power,omitempty"`
}

// Document is the exported results shape: one entry per bus keyed
// node_<k> (1-based), plus the total generation cost.
type Document struct {
	TeamName  string                `json:"team_name"`
	ModelType string                `json:"model_type"`
	Nodes     map[string]NodeResult `json:"nodes"`
	TotalCost *float64              `json:"total_cost,omitempty"`
}

// New assembles the results document for a solved problem.
func New(teamName string, p *opfmodel.Problem, sol solver.Solution) Document {
	doc := Document{
		TeamName:  teamName,
		ModelType: p.Name,
		Nodes:     make(map[string]NodeResult, p.Buses),
	}
	ac := p.VarIndex(opfmodel.VoltageMag, 0) >= 0

	for i := 0; i < p.Buses; i++ {
		node := NodeResult{
			VoltageAngle: value(p, sol, opfmodel.VoltageAng, i),
			Power:        value(p, sol, opfmodel.RealPower, i),
		}
		if ac {
			node.VoltageMagnitude = value(p, sol, opfmodel.VoltageMag, i)
			node.ReactivePower = value(p, sol, opfmodel.ReactivePower, i)
		}
		doc.Nodes[fmt.Sprintf("node_%d", i+1)] = node
	}

	if cost, ok := sol.Cost.Get(); ok {
		doc.TotalCost = &cost
	}
	return doc
}

func value(p *opfmodel.Problem, sol solver.Solution, kind opfmodel.VarKind, bus int) *float64 {
	col := p.VarIndex(kind, bus)
	if col < 0 {
		return nil
	}
	if v, ok := sol.Value(col); ok {
		return &v
	}
	return nil
}

// WriteFile writes the document to <team>_<AC|DC>_results.json in dir
// and returns the path.
func (d Document) WriteFile(dir string) (string, error) {
	tag := "DC"
	if d.ModelType == "AC_OPF" {
		tag = "AC"
	}
	path := filepath.Join(dir, fmt.Sprintf("%s_%s_results.json", d.TeamName, tag))
	body, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return "", err
	}
	return path, ioutil.WriteFile(path, body, 0644)
}

// ReadFile loads a previously exported results document.
func ReadFile(path string) (Document, error) {
	body, err := ioutil.ReadFile(path)
	if err != nil {
		return Document{}, err
	}
	doc := Document{}
	if err := json.Unmarshal(body, &doc); err != nil {
		return Document{}, err
	}
	return doc, nil
}

// Table writes a formatted result table. Angles print in degrees;
// variables the solver did not value print as "Not solved".
func Table(w io.Writer, p *opfmodel.Problem, sol solver.Solution) {
	ac := p.VarIndex(opfmodel.VoltageMag, 0) >= 0

	fmt.Fprintf(w, "%-6s%-14s%-16s", "Bus", "Pg (pu)", "Theta (deg)")
	if ac {
		fmt.Fprintf(w, "%-12s%-14s", "|V| (pu)", "Qg (pu)")
	}
	fmt.Fprintln(w)

	for i := 0; i < p.Buses; i++ {
		fmt.Fprintf(w, "%-6d", i+1)
		writeCell(w, p, sol, opfmodel.RealPower, i, 14, 1)
		writeCell(w, p, sol, opfmodel.VoltageAng, i, 16, 180/math.Pi)
		if ac {
			writeCell(w, p, sol, opfmodel.VoltageMag, i, 12, 1)
			writeCell(w, p, sol, opfmodel.ReactivePower, i, 14, 1)
		}
		fmt.Fprintln(w)
	}

	if cost, ok := sol.Cost.Get(); ok {
		fmt.Fprintf(w, "\nTotal Generation Cost: %.4f\n", cost)
	} else {
		fmt.Fprintf(w, "\nTotal Generation Cost: Not solved\n")
	}
}

func writeCell(w io.Writer, p *opfmodel.Problem, sol solver.Solution, kind opfmodel.VarKind, bus, width int, scale float64) {
	col := p.VarIndex(kind, bus)
	if v, ok := sol.Value(col); ok {
		fmt.Fprintf(w, "%-*.4f", width, v*scale)
		return
	}
	fmt.Fprintf(w, "%-*s", width, "Not solved")
}
