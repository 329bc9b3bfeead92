package report

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/amir013/opf/internal/pkg/network"
	"github.com/amir013/opf/internal/pkg/opfmodel"
	"github.com/amir013/opf/internal/pkg/solver"
	"gotest.tools/v3/assert"
)

func solvedDC(t *testing.T) (*opfmodel.Problem, solver.Solution) {
	t.Helper()
	p, err := opfmodel.BuildDC(network.IEEE5())
	assert.NilError(t, err)

	sol := solver.Solution{
		Status: solver.Optimal,
		Values: make([]solver.Value, len(p.Vars)),
		Cost:   solver.NewValue(23.1),
	}
	for i := range sol.Values {
		sol.Values[i] = solver.NewValue(float64(i) * 0.017)
	}
	return p, sol
}

func TestNewDocumentShape(t *testing.T) {
	p, sol := solvedDC(t)
	doc := New("teamA", p, sol)

	assert.Equal(t, doc.TeamName, "teamA")
	assert.Equal(t, doc.ModelType, "DC_OPF")
	assert.Equal(t, len(doc.Nodes), 5)

	node, ok := doc.Nodes["node_1"]
	assert.Assert(t, ok)
	assert.Assert(t, node.Power != nil)
	assert.Assert(t, node.VoltageAngle != nil)
	// DC results carry no voltage magnitude or reactive power.
	assert.Assert(t, node.VoltageMagnitude == nil)
	assert.Assert(t, node.ReactivePower == nil)

	assert.Assert(t, doc.TotalCost != nil)
	assert.Equal(t, *doc.TotalCost, 23.1)
}

func TestNewDocumentACFields(t *testing.T) {
	p, err := opfmodel.BuildAC(network.IEEE5())
	assert.NilError(t, err)

	sol := solver.Solution{
		Status: solver.Optimal,
		Values: make([]solver.Value, len(p.Vars)),
	}
	for i := range sol.Values {
		sol.Values[i] = solver.NewValue(1.0)
	}

	doc := New("teamA", p, sol)
	assert.Equal(t, doc.ModelType, "AC_OPF")
	node := doc.Nodes["node_3"]
	assert.Assert(t, node.VoltageMagnitude != nil)
	assert.Assert(t, node.ReactivePower != nil)
}

func TestUnsolvedValuesExportAsNull(t *testing.T) {
	p, err := opfmodel.BuildDC(network.IEEE5())
	assert.NilError(t, err)

	sol := solver.Solution{Status: solver.Infeasible, Values: make([]solver.Value, len(p.Vars))}
	doc := New("teamA", p, sol)

	body, err := json.Marshal(doc)
	assert.NilError(t, err)
	assert.Assert(t, strings.Contains(string(body), `"voltage_angle":null`))
	assert.Assert(t, !strings.Contains(string(body), "total_cost"))
}

func TestWriteAndReadFileRoundTrip(t *testing.T) {
	p, sol := solvedDC(t)
	doc := New("teamA", p, sol)

	dir := t.TempDir()
	path, err := doc.WriteFile(dir)
	assert.NilError(t, err)
	assert.Assert(t, strings.HasSuffix(path, "teamA_DC_results.json"))

	loaded, err := ReadFile(path)
	assert.NilError(t, err)

	// Every numeric field must survive the trip exactly.
	assert.DeepEqual(t, loaded, doc)
}

func TestTableMarksUnsolvedValues(t *testing.T) {
	p, err := opfmodel.BuildDC(network.IEEE5())
	assert.NilError(t, err)

	sol := solver.Solution{Status: solver.Infeasible, Values: make([]solver.Value, len(p.Vars))}
	var buf bytes.Buffer
	Table(&buf, p, sol)

	out := buf.String()
	assert.Assert(t, strings.Contains(out, "Not solved"))
	assert.Assert(t, strings.Contains(out, "Bus"))
	assert.Assert(t, !strings.Contains(out, "|V|"))
}

func TestTableConvertsAnglesToDegrees(t *testing.T) {
	p, err := opfmodel.BuildDC(network.IEEE5())
	assert.NilError(t, err)

	sol := solver.Solution{
		Status: solver.Optimal,
		Values: make([]solver.Value, len(p.Vars)),
		Cost:   solver.NewValue(0),
	}
	for i := range sol.Values {
		sol.Values[i] = solver.NewValue(0)
	}
	// pi radians on bus 2's angle prints as 180 degrees.
	sol.Values[p.VarIndex(opfmodel.VoltageAng, 1)] = solver.NewValue(3.141592653589793)

	var buf bytes.Buffer
	Table(&buf, p, sol)
	assert.Assert(t, strings.Contains(buf.String(), "180.0000"))
}
