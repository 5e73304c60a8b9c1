package execution

import (
	"context"
	"errors"
	"testing"

	"github.com/arbcore/arbengine/internal/cycle"
	"github.com/arbcore/arbengine/internal/simulator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSubmitter struct {
	simReport SimulationReport
	simErr    error
	subReport SubmissionReport
	subErr    error
}

func (f *fakeSubmitter) SimulateBundle(ctx context.Context, req BundleRequest) (SimulationReport, error) {
	return f.simReport, f.simErr
}

func (f *fakeSubmitter) SubmitBundle(ctx context.Context, req BundleRequest) (SubmissionReport, error) {
	return f.subReport, f.subErr
}

func profitableSim() simulator.Result {
	return simulator.Result{Cycle: cycle.Cycle{}, Success: true, NetProfitUSD: 50}
}

func TestExecuteAbortsOnEmergencyStop(t *testing.T) {
	e := &Engine{EmergencyStop: true}
	out, err := e.Execute(context.Background(), cycle.Cycle{}, profitableSim(), 100)
	require.NoError(t, err)
	assert.Equal(t, KindAborted, out.Kind)
}

func TestExecuteSkipsFailedSimulation(t *testing.T) {
	e := &Engine{}
	out, err := e.Execute(context.Background(), cycle.Cycle{}, simulator.Result{Success: false, FailureReason: "no liquidity"}, 100)
	require.NoError(t, err)
	assert.Equal(t, KindSkipped, out.Kind)
}

func TestExecuteSkipsUnprofitable(t *testing.T) {
	e := &Engine{MinProfitUSD: 100}
	out, err := e.Execute(context.Background(), cycle.Cycle{}, profitableSim(), 100)
	require.NoError(t, err)
	assert.Equal(t, KindSkipped, out.Kind)
}

func TestExecuteSimulationModeReturnsSimulated(t *testing.T) {
	e := &Engine{Mode: ModeSimulation}
	out, err := e.Execute(context.Background(), cycle.Cycle{}, profitableSim(), 100)
	require.NoError(t, err)
	assert.Equal(t, KindSimulated, out.Kind)
	assert.True(t, out.WouldExecute)
	assert.True(t, out.IsSuccess())
}

func TestExecuteDryRunWithoutSubmitterSkips(t *testing.T) {
	e := &Engine{Mode: ModeDryRun}
	out, err := e.Execute(context.Background(), cycle.Cycle{}, profitableSim(), 100)
	require.NoError(t, err)
	assert.Equal(t, KindSkipped, out.Kind)
}

func TestExecuteDryRunReportsSimulationOutcome(t *testing.T) {
	e := &Engine{Mode: ModeDryRun, Submitter: &fakeSubmitter{simReport: SimulationReport{Success: true}}}
	out, err := e.Execute(context.Background(), cycle.Cycle{}, profitableSim(), 100)
	require.NoError(t, err)
	assert.Equal(t, KindDryRun, out.Kind)
	assert.True(t, out.SimulationPassed)
}

func TestExecuteProductionRequiresSubmitter(t *testing.T) {
	e := &Engine{Mode: ModeProduction}
	out, err := e.Execute(context.Background(), cycle.Cycle{}, profitableSim(), 100)
	require.NoError(t, err)
	assert.Equal(t, KindAborted, out.Kind)
}

func TestExecuteProductionSubmitsOnSuccessfulSimulation(t *testing.T) {
	e := &Engine{Mode: ModeProduction, Submitter: &fakeSubmitter{
		simReport: SimulationReport{Success: true},
		subReport: SubmissionReport{BundleHash: "0xabc"},
	}}
	out, err := e.Execute(context.Background(), cycle.Cycle{}, profitableSim(), 100)
	require.NoError(t, err)
	assert.Equal(t, KindSubmitted, out.Kind)
	assert.Equal(t, "0xabc", out.BundleHash)
	assert.Equal(t, uint64(101), out.TargetBlock)
}

func TestExecuteProductionFailsOnSimulationFailure(t *testing.T) {
	e := &Engine{Mode: ModeProduction, Submitter: &fakeSubmitter{
		simReport: SimulationReport{Success: false, Error: "reverted"},
	}}
	out, err := e.Execute(context.Background(), cycle.Cycle{}, profitableSim(), 100)
	require.NoError(t, err)
	assert.Equal(t, KindFailed, out.Kind)
}

func TestExecuteProductionFailsOnSubmissionError(t *testing.T) {
	e := &Engine{Mode: ModeProduction, Submitter: &fakeSubmitter{
		simReport: SimulationReport{Success: true},
		subErr:    errors.New("relay unreachable"),
	}}
	out, err := e.Execute(context.Background(), cycle.Cycle{}, profitableSim(), 100)
	require.NoError(t, err)
	assert.Equal(t, KindFailed, out.Kind)
}
