// Package network holds the static description of the transmission
// system under study: per-bus loads, generation limits, voltage limits
// and cost coefficients, plus the branch list connecting the buses.
package network

import (
	"encoding/json"
	"fmt"
	"io/ioutil"
)

// Bus is a single node of the transmission system. All quantities are
// per-unit. Generation cost is CostA*Pg^2 + CostB*Pg + CostC.
type Bus struct {
	Pload float64 `json:"Pload"`
	Qload float64 `json:"Qload"`
	PGmin float64 `json:"PGmin"`
	PGmax float64 `json:"PGmax"`
	QGmin float64 `json:"QGmin"`
	QGmax float64 `json:"QGmax"`
	Vmin  float64 `json:"Vmin"`
	Vmax  float64 `json:"Vmax"`
	CostA float64 `json:"a"`
	CostB float64 `json:"b"`
	CostC float64 `json:"c"`
}

// Line is a series branch between two buses, identified by an
// unordered pair of bus indices.
type Line struct {
	From int     `json:"From"`
	To   int     `json:"To"`
	R    float64 `json:"R"`
	X    float64 `json:"X"`
}

// Network is the full bus/line table. Slack designates the reference
// bus; its voltage magnitude is held at nameplate (Vmax) and its angle
// at zero.
type Network struct {
	Name  string `json:"Name"`
	Slack int    `json:"Slack"`
	Buses []Bus  `json:"Buses"`
	Lines []Line `json:"Lines"`
}

// New reads a network description from a JSON configuration file.
func New(configPath string) (Network, error) {
	jsonConfig, err := ioutil.ReadFile(configPath)
	if err != nil {
		return Network{}, err
	}
	net := Network{}
	if err := json.Unmarshal(jsonConfig, &net); err != nil {
		return Network{}, err
	}
	if err := net.Validate(); err != nil {
		return Network{}, err
	}
	return net, nil
}

// Validate rejects malformed bus/line tables before any model is
// assembled from them.
func (n Network) Validate() error {
	if len(n.Buses) == 0 {
		return fmt.Errorf("network %q has no buses", n.Name)
	}
	if n.Slack < 0 || n.Slack >= len(n.Buses) {
		return fmt.Errorf("slack bus %d out of range [0,%d)", n.Slack, len(n.Buses))
	}
	for i, l := range n.Lines {
		if l.From == l.To {
			return fmt.Errorf("line %d connects bus %d to itself", i, l.From)
		}
		if l.From < 0 || l.From >= len(n.Buses) || l.To < 0 || l.To >= len(n.Buses) {
			return fmt.Errorf("line %d references bus outside [0,%d)", i, len(n.Buses))
		}
	}
	return nil
}

// IsGenerator reports whether bus i carries a dispatchable generator.
// A bus with no positive real capacity is a pure load bus.
func (n Network) IsGenerator(i int) bool {
	return n.Buses[i].PGmax > 0
}

// Generators returns the indices of all generator buses in ascending
// order.
func (n Network) Generators() []int {
	gens := make([]int, 0, len(n.Buses))
	for i := range n.Buses {
		if n.IsGenerator(i) {
			gens = append(gens, i)
		}
	}
	return gens
}

// TotalLoad returns the system-wide real power demand.
func (n Network) TotalLoad() float64 {
	var sum float64
	for _, b := range n.Buses {
		sum += b.Pload
	}
	return sum
}

// SlackVoltage is the voltage magnitude the slack bus is held at.
func (n Network) SlackVoltage() float64 {
	return n.Buses[n.Slack].Vmax
}
