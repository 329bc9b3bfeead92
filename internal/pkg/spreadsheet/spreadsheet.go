// Package spreadsheet loads a network description from an xlsx
// workbook with a NodeData sheet and precomputed admittance sheets, the
// alternate input format used when line impedances are not available.
package spreadsheet

import (
	"fmt"
	"strconv"

	"github.com/amir013/opf/internal/pkg/admittance"
	"github.com/amir013/opf/internal/pkg/network"
	"github.com/xuri/excelize/v2"
)

const (
	nodeSheet = "NodeData"
	realSheet = "RealAdmittanceMatrix"
	imagSheet = "ImaginaryAdmittanceMatrix"
)

// Load reads the workbook. NodeData carries one header row followed by
// one row per bus; the admittance sheets are bare N×N numeric grids.
// The slack bus is the first one (per the sample data convention).
func Load(path string) (network.Network, admittance.Matrices, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return network.Network{}, admittance.Matrices{}, err
	}
	defer f.Close()

	buses, err := readBuses(f)
	if err != nil {
		return network.Network{}, admittance.Matrices{}, err
	}

	g, err := readMatrix(f, realSheet, len(buses))
	if err != nil {
		return network.Network{}, admittance.Matrices{}, err
	}
	b, err := readMatrix(f, imagSheet, len(buses))
	if err != nil {
		return network.Network{}, admittance.Matrices{}, err
	}

	adm, err := admittance.FromDense(g, b)
	if err != nil {
		return network.Network{}, admittance.Matrices{}, err
	}

	net := network.Network{Name: path, Slack: 0, Buses: buses}
	if err := net.Validate(); err != nil {
		return network.Network{}, admittance.Matrices{}, err
	}
	return net, adm, nil
}

func readBuses(f *excelize.File) ([]network.Bus, error) {
	rows, err := f.GetRows(nodeSheet)
	if err != nil {
		return nil, err
	}
	if len(rows) < 2 {
		return nil, fmt.Errorf("sheet %s has no bus rows", nodeSheet)
	}

	col := make(map[string]int, len(rows[0]))
	for i, name := range rows[0] {
		col[name] = i
	}
	for _, name := range []string{"Vmax", "Vmin", "Pload", "Qload", "PGmax", "PGmin", "QGmax", "QGmin", "a", "b", "c"} {
		if _, ok := col[name]; !ok {
			return nil, fmt.Errorf("sheet %s is missing column %q", nodeSheet, name)
		}
	}

	buses := make([]network.Bus, 0, len(rows)-1)
	for r, row := range rows[1:] {
		cell := func(name string) (float64, error) {
			i := col[name]
			if i >= len(row) || row[i] == "" {
				return 0, nil
			}
			v, err := strconv.ParseFloat(row[i], 64)
			if err != nil {
				return 0, fmt.Errorf("sheet %s row %d column %s: %w", nodeSheet, r+2, name, err)
			}
			return v, nil
		}

		bus := network.Bus{}
		fields := []struct {
			name string
			dst  *float64
		}{
			{"Pload", &bus.Pload}, {"Qload", &bus.Qload},
			{"PGmin", &bus.PGmin}, {"PGmax", &bus.PGmax},
			{"QGmin", &bus.QGmin}, {"QGmax", &bus.QGmax},
			{"Vmin", &bus.Vmin}, {"Vmax", &bus.Vmax},
			{"a", &bus.CostA}, {"b", &bus.CostB}, {"c", &bus.CostC},
		}
		for _, fld := range fields {
			v, err := cell(fld.name)
			if err != nil {
				return nil, err
			}
			*fld.dst = v
		}
		buses = append(buses, bus)
	}
	return buses, nil
}

func readMatrix(f *excelize.File, sheet string, n int) ([][]float64, error) {
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, err
	}
	if len(rows) < n {
		return nil, fmt.Errorf("sheet %s has %d rows, want %d", sheet, len(rows), n)
	}

	m := make([][]float64, n)
	for i := 0; i < n; i++ {
		if len(rows[i]) < n {
			return nil, fmt.Errorf("sheet %s row %d has %d columns, want %d", sheet, i+1, len(rows[i]), n)
		}
		m[i] = make([]float64, n)
		for j := 0; j < n; j++ {
			v, err := strconv.ParseFloat(rows[i][j], 64)
			if err != nil {
				return nil, fmt.Errorf("sheet %s cell (%d,%d): %w", sheet, i+1, j+1, err)
			}
			m[i][j] = v
		}
	}
	return m, nil
}
