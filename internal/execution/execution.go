// Package execution defines the engine's execution boundary: the
// interface and outcome type a real flash-loan/bundle-submission
// collaborator would implement. Grounded on
// original_source/src/executor/mod.rs's ExecutionEngine/ExecutionResult:
// the three-mode dispatch (Simulation / DryRun / Production), the
// emergency-stop and unprofitable-simulation safety gates, and the
// Rust enum's outcome shape, translated into an idiomatic Go tagged
// struct. Flash-loan construction, transaction signing, and Flashbots
// bundle submission are themselves out of scope here — this package is
// the seam a real submitter plugs into, not the submitter itself.
package execution

import (
	"context"
	"math/big"

	"github.com/arbcore/arbengine/internal/cycle"
	"github.com/arbcore/arbengine/internal/simulator"
	"github.com/arbcore/arbengine/internal/types"
)

// Mode selects how far Execute is allowed to go.
type Mode int

const (
	ModeSimulation Mode = iota // log only, never touches a submitter
	ModeDryRun                 // build and simulate a bundle, never submit
	ModeProduction             // simulate, then actually submit
)

func (m Mode) String() string {
	switch m {
	case ModeDryRun:
		return "dry-run"
	case ModeProduction:
		return "production"
	default:
		return "simulation"
	}
}

// OutcomeKind tags which variant of Outcome is populated, mirroring
// executor/mod.rs's ExecutionResult enum.
type OutcomeKind int

const (
	KindSimulated OutcomeKind = iota
	KindDryRun
	KindSubmitted
	KindIncluded
	KindSkipped
	KindAborted
	KindFailed
)

func (k OutcomeKind) String() string {
	switch k {
	case KindSimulated:
		return "simulated"
	case KindDryRun:
		return "dry-run"
	case KindSubmitted:
		return "submitted"
	case KindIncluded:
		return "included"
	case KindSkipped:
		return "skipped"
	case KindAborted:
		return "aborted"
	default:
		return "failed"
	}
}

// Outcome is the result of one Execute call. Only the fields relevant to
// Kind are populated; the rest are zero values.
type Outcome struct {
	Kind              OutcomeKind
	Reason            string
	ExpectedProfitUSD float64
	WouldExecute      bool
	SimulationPassed  bool
	GasUsed           *uint64
	BundleHash        string
	TargetBlock       uint64
	BlockNumber       uint64
	ActualProfitWei   *big.Int
}

// IsSuccess mirrors ExecutionResult::is_success: true for every variant
// that represents forward progress, not a skip/abort/failure.
func (o Outcome) IsSuccess() bool {
	switch o.Kind {
	case KindSimulated:
		return o.WouldExecute
	case KindDryRun:
		return o.SimulationPassed
	case KindSubmitted, KindIncluded:
		return true
	default:
		return false
	}
}

// BundleRequest is what a real Submitter needs to build and send a
// flash-loan-funded bundle for one cycle.
type BundleRequest struct {
	Cycle        cycle.Cycle
	Simulation   simulator.Result
	TargetBlock  uint64
	MinProfitWei *big.Int
}

// SimulationReport is a submitter's pre-flight bundle simulation result.
type SimulationReport struct {
	Success      bool
	GasUsed      *uint64
	CoinbaseDiff string
	Error        string
}

// SubmissionReport is a submitter's bundle-relay acknowledgement.
type SubmissionReport struct {
	BundleHash string
	Error      string
}

// Submitter is the external collaborator boundary: flash-loan sourcing,
// transaction signing, and private-relay bundle submission all live behind
// this interface in a real deployment. No implementation ships here.
type Submitter interface {
	SimulateBundle(ctx context.Context, req BundleRequest) (SimulationReport, error)
	SubmitBundle(ctx context.Context, req BundleRequest) (SubmissionReport, error)
}

// Engine runs the mode-dispatch safety gates around a Submitter.
type Engine struct {
	Mode          Mode
	EmergencyStop bool
	MinProfitUSD  float64
	Submitter     Submitter // nil is valid in ModeSimulation
	Logger        types.Logger
}

// Execute applies the same ordering of safety checks as
// executor/mod.rs::execute: emergency stop first, then the simulation's
// own profitability verdict, before any mode-specific behavior runs.
func (e *Engine) Execute(ctx context.Context, c cycle.Cycle, sim simulator.Result, currentBlock uint64) (Outcome, error) {
	if e.EmergencyStop {
		return Outcome{Kind: KindAborted, Reason: "emergency stop is active"}, nil
	}
	if !sim.Success {
		return Outcome{Kind: KindSkipped, Reason: "simulation failed: " + sim.FailureReason}, nil
	}
	if sim.NetProfitUSD < e.MinProfitUSD {
		return Outcome{Kind: KindSkipped, Reason: "simulation shows unprofitable after gas"}, nil
	}

	switch e.Mode {
	case ModeSimulation:
		return e.executeSimulation(sim)
	case ModeDryRun:
		return e.executeDryRun(ctx, c, sim, currentBlock)
	case ModeProduction:
		return e.executeProduction(ctx, c, sim, currentBlock)
	default:
		return Outcome{Kind: KindFailed, Reason: "unknown execution mode"}, nil
	}
}

func (e *Engine) executeSimulation(sim simulator.Result) (Outcome, error) {
	if e.Logger != nil {
		e.Logger.Info("execution: simulation-mode opportunity", "net_profit_usd", sim.NetProfitUSD, "hops", len(sim.Swaps))
	}
	return Outcome{Kind: KindSimulated, ExpectedProfitUSD: sim.NetProfitUSD, WouldExecute: true}, nil
}

func (e *Engine) executeDryRun(ctx context.Context, c cycle.Cycle, sim simulator.Result, currentBlock uint64) (Outcome, error) {
	if e.Submitter == nil {
		return Outcome{Kind: KindSkipped, Reason: "no bundle submitter configured"}, nil
	}

	report, err := e.Submitter.SimulateBundle(ctx, BundleRequest{Cycle: c, Simulation: sim, TargetBlock: currentBlock + 1})
	if err != nil {
		return Outcome{Kind: KindFailed, Reason: "bundle simulation error: " + err.Error()}, nil
	}
	return Outcome{Kind: KindDryRun, SimulationPassed: report.Success, GasUsed: report.GasUsed}, nil
}

func (e *Engine) executeProduction(ctx context.Context, c cycle.Cycle, sim simulator.Result, currentBlock uint64) (Outcome, error) {
	if e.Submitter == nil {
		return Outcome{Kind: KindAborted, Reason: "production mode requires a configured submitter"}, nil
	}

	req := BundleRequest{Cycle: c, Simulation: sim, TargetBlock: currentBlock + 1}

	simReport, err := e.Submitter.SimulateBundle(ctx, req)
	if err != nil {
		return Outcome{Kind: KindFailed, Reason: "bundle simulation error: " + err.Error()}, nil
	}
	if !simReport.Success {
		return Outcome{Kind: KindFailed, Reason: "bundle simulation failed: " + simReport.Error}, nil
	}

	subReport, err := e.Submitter.SubmitBundle(ctx, req)
	if err != nil {
		return Outcome{Kind: KindFailed, Reason: "bundle submission error: " + err.Error()}, nil
	}
	if subReport.Error != "" {
		return Outcome{Kind: KindFailed, Reason: "bundle submission failed: " + subReport.Error}, nil
	}

	return Outcome{
		Kind:              KindSubmitted,
		BundleHash:        subReport.BundleHash,
		TargetBlock:       req.TargetBlock,
		ExpectedProfitUSD: sim.NetProfitUSD,
	}, nil
}
