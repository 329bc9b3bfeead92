package network

// IEEE5 returns the IEEE 5-bus test system: a slack bus held at
// 1.06 pu, two dispatchable generators and two pure load buses. The
// same system ships as config/network.json.
func IEEE5() Network {
	return Network{
		Name:  "ieee5",
		Slack: 0,
		Buses: []Bus{
			{PGmax: 2.0, QGmin: -1.5, QGmax: 1.5, Vmin: 1.06, Vmax: 1.06, CostB: 14.0},
			{Pload: 0.2, Qload: 0.1, PGmax: 0.8, QGmin: -0.4, QGmax: 0.6, Vmin: 0.95, Vmax: 1.05, CostA: 15.0, CostB: 16.0, CostC: 10.0},
			{Pload: 0.45, Qload: 0.15, PGmax: 0.5, QGmin: -0.3, QGmax: 0.4, Vmin: 0.95, Vmax: 1.05, CostA: 18.0, CostB: 20.0, CostC: 12.0},
			{Pload: 0.40, Qload: 0.05, Vmin: 0.95, Vmax: 1.05},
			{Pload: 0.60, Qload: 0.10, Vmin: 0.95, Vmax: 1.05},
		},
		Lines: []Line{
			{From: 0, To: 1, R: 0.02, X: 0.06},
			{From: 0, To: 2, R: 0.08, X: 0.24},
			{From: 1, To: 2, R: 0.06, X: 0.18},
			{From: 1, To: 3, R: 0.06, X: 0.18},
			{From: 1, To: 4, R: 0.04, X: 0.12},
			{From: 2, To: 3, R: 0.01, X: 0.03},
			{From: 3, To: 4, R: 0.08, X: 0.24},
		},
	}
}
