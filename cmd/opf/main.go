package main

import (
	"context"
	"flag"
	"log"
	"os"
	"time"

	"github.com/amir013/opf/internal/pkg/admittance"
	"github.com/amir013/opf/internal/pkg/database/mongodb"
	"github.com/amir013/opf/internal/pkg/dispatch"
	"github.com/amir013/opf/internal/pkg/network"
	"github.com/amir013/opf/internal/pkg/report"
	"github.com/amir013/opf/internal/pkg/solver"
	"github.com/amir013/opf/internal/pkg/solver/highslp"
	"github.com/amir013/opf/internal/pkg/solver/remote"
	"github.com/amir013/opf/internal/pkg/spreadsheet"
	"github.com/amir013/opf/internal/pkg/telemetry"
)

func main() {
	var (
		networkPath   = flag.String("network", "./config/network.json", "network description")
		xlsxPath      = flag.String("xlsx", "", "workbook with node data and precomputed admittance; overrides -network when set")
		remotePath    = flag.String("remote", "", "remote AC solver config; AC solve skipped when empty")
		mongoPath     = flag.String("mongodb", "", "result archive config; archiving skipped when empty")
		telemetryPath = flag.String("telemetry", "", "modbus load telemetry config; static loads when empty")
		outDir        = flag.String("out", ".", "directory for exported result files")
		teamName      = flag.String("team", "opf", "team identifier stamped on exported results")
		timeout       = flag.Duration("timeout", 5*time.Minute, "per-solve time limit")
	)
	flag.Parse()

	net, adm, err := loadNetwork(*networkPath, *xlsxPath)
	if err != nil {
		log.Fatal("[Main] ", err)
	}

	if *telemetryPath != "" {
		net = refreshLoads(net, *telemetryPath)
	}

	log.Println("[Main] Building Orchestrator")
	orch, err := buildOrchestrator(*teamName, *remotePath)
	if err != nil {
		log.Fatal("[Main] ", err)
	}

	if *mongoPath != "" {
		linkArchive(*mongoPath, orch)
	}

	runDC(orch, net, adm, *teamName, *outDir, *timeout)
	if *remotePath != "" {
		runAC(orch, net, adm, *teamName, *outDir, *timeout)
	}
}

// loadNetwork reads either input format. A workbook carries its own
// admittance matrices; the JSON path derives them from the line table
// at build time, signaled by a nil matrices pointer.
func loadNetwork(networkPath, xlsxPath string) (network.Network, *admittance.Matrices, error) {
	if xlsxPath != "" {
		log.Println("[Main] Loading workbook", xlsxPath)
		net, adm, err := spreadsheet.Load(xlsxPath)
		if err != nil {
			return network.Network{}, nil, err
		}
		return net, &adm, nil
	}
	log.Println("[Main] Loading network", networkPath)
	net, err := network.New(networkPath)
	if err != nil {
		return network.Network{}, nil, err
	}
	return net, nil, nil
}

func buildOrchestrator(teamName, remotePath string) (*dispatch.Orchestrator, error) {
	var ac solver.Solver
	if remotePath != "" {
		backend, err := remote.New(remotePath)
		if err != nil {
			return nil, err
		}
		ac = backend
	}
	return dispatch.New(teamName, ac, highslp.New())
}

func refreshLoads(net network.Network, configPath string) network.Network {
	poller, err := telemetry.New(configPath)
	if err != nil {
		log.Println("[Main] telemetry config:", err)
		return net
	}
	readings, err := poller.ReadLoads()
	if err != nil {
		log.Println("[Main] telemetry read:", err, "- using static loads")
	}
	live, err := telemetry.Apply(net, readings)
	if err != nil {
		log.Println("[Main] telemetry apply:", err, "- using static loads")
		return net
	}
	log.Printf("[Main] Refreshed %d load values from telemetry", len(readings))
	return live
}

func linkArchive(configPath string, orch *dispatch.Orchestrator) {
	handler, err := mongodb.New(configPath, orch)
	if err != nil {
		log.Println("[Main] result archive:", err)
		return
	}
	go handler.Process()
}

func runDC(orch *dispatch.Orchestrator, net network.Network, adm *admittance.Matrices, teamName, outDir string, timeout time.Duration) {
	log.Println("[Main] DC OPF (HiGHS)")
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	var res dispatch.Result
	var err error
	if adm != nil {
		res, err = orch.RunDCWithAdmittance(ctx, net, *adm)
	} else {
		res, err = orch.RunDC(ctx, net)
	}
	if err != nil {
		log.Println("[Main] DC OPF failed:", err)
		return
	}
	finish(res, teamName, outDir)
}

func runAC(orch *dispatch.Orchestrator, net network.Network, adm *admittance.Matrices, teamName, outDir string, timeout time.Duration) {
	log.Println("[Main] AC OPF (remote nonlinear solver)")
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	var res dispatch.Result
	var err error
	if adm != nil {
		res, err = orch.RunACWithAdmittance(ctx, net, *adm)
	} else {
		res, err = orch.RunAC(ctx, net)
	}
	if err != nil {
		log.Println("[Main] AC OPF failed:", err)
		return
	}
	finish(res, teamName, outDir)
}

func finish(res dispatch.Result, teamName, outDir string) {
	log.Printf("[Main] %s solver status: %s (%.2fs)",
		res.Problem.Name, res.Solution.Status, res.Elapsed.Seconds())

	report.Table(os.Stdout, res.Problem, res.Solution)

	doc := report.New(teamName, res.Problem, res.Solution)
	path, err := doc.WriteFile(outDir)
	if err != nil {
		log.Println("[Main] export:", err)
		return
	}
	log.Println("[Main] Results saved to", path)
}
