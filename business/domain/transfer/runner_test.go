package transfer

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/wagervs/go-token-distributor/entities"
	"go.uber.org/zap"
)

type MockLedger struct {
	mu          sync.Mutex
	shouldError bool
	records     map[string]string
}

func (ml *MockLedger) Contains(workKey string) (bool, error) {
	ml.mu.Lock()
	defer ml.mu.Unlock()

	if ml.shouldError {
		return false, ErrMock
	}
	_, ok := ml.records[workKey]

	return ok, nil
}

func (ml *MockLedger) Append(workKey, settlementToken string) error {
	ml.mu.Lock()
	defer ml.mu.Unlock()

	if ml.shouldError {
		return ErrMock
	}
	if ml.records == nil {
		ml.records = make(map[string]string)
	}
	if _, ok := ml.records[workKey]; !ok {
		ml.records[workKey] = settlementToken
	}

	return nil
}

type MockSink struct {
	mu      sync.Mutex
	runID   string
	reports []entities.Report
}

func (ms *MockSink) IndexReports(_ context.Context, runID string, reports []entities.Report) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	ms.runID = runID
	ms.reports = append(ms.reports, reports...)

	return nil
}

func newTestRunner(t *testing.T, client *MockLedgerClient, ledger completionLedger, nrWorkers int, sink ReportSink) *Runner {
	t.Helper()

	logger, err := zap.NewDevelopment()
	require.NoError(t, err)

	executor := NewExecutor(client, &MockSigner{}, ledger, time.Second, time.Second, false, logger.Sugar())

	return NewRunner(executor, nrWorkers, sink, logger.Sugar())
}

func TestRunner_IsolatesItemFailures(t *testing.T) {

	client := testClient()
	runner := newTestRunner(t, client, &MockLedger{}, 1, nil)

	items := []entities.WorkItem{
		{AssetID: "asset-a", OwnerKey: "key", Recipient: "recipient-address", Amount: "1"},
		{AssetID: "asset-a", OwnerKey: "key", Recipient: "recipient-address", Amount: "0"},
		{AssetID: "asset-a", OwnerKey: "key", Recipient: "recipient-address", Amount: "3"},
	}

	summary, reports, err := runner.Run(context.Background(), "test-run", items)
	require.NoError(t, err)

	require.Equal(t, 2, summary.Recorded)
	require.Equal(t, 1, summary.Failed)
	require.Equal(t, 0, summary.Skipped)

	require.Equal(t, entities.StatusRecorded, reports[0].Status)
	require.Equal(t, entities.StatusFailed, reports[1].Status)
	require.Equal(t, entities.StatusRecorded, reports[2].Status)
	require.Equal(t, 2, client.submittedCount())

	require.False(t, summary.Clean())
}

func TestRunner_DuplicateWorkKeysSubmitOnce(t *testing.T) {

	client := testClient()
	runner := newTestRunner(t, client, &MockLedger{}, 4, nil)

	item := testWorkItem()
	items := []entities.WorkItem{item, item}

	summary, _, err := runner.Run(context.Background(), "test-run", items)
	require.NoError(t, err)

	require.Equal(t, 1, summary.Recorded)
	require.Equal(t, 1, summary.Skipped)
	require.Equal(t, 1, client.submittedCount())
}

func TestRunner_SecondRunSkipsEverything(t *testing.T) {

	client := testClient()
	ledger := &MockLedger{}
	runner := newTestRunner(t, client, ledger, 2, nil)

	items := []entities.WorkItem{
		{AssetID: "asset-a", OwnerKey: "key", Recipient: "recipient-address", Amount: "1"},
		{AssetID: "asset-a", OwnerKey: "key", Recipient: "recipient-address", Amount: "2"},
	}

	summary, _, err := runner.Run(context.Background(), "run-1", items)
	require.NoError(t, err)
	require.Equal(t, 2, summary.Recorded)

	summary, _, err = runner.Run(context.Background(), "run-2", items)
	require.NoError(t, err)
	require.Equal(t, 0, summary.Recorded)
	require.Equal(t, 2, summary.Skipped)
	require.Equal(t, 2, client.submittedCount())
	require.True(t, summary.Clean())
}

func TestRunner_LedgerFailureIsFatal(t *testing.T) {

	client := testClient()
	runner := newTestRunner(t, client, &MockLedger{shouldError: true}, 1, nil)

	items := []entities.WorkItem{testWorkItem()}

	_, _, err := runner.Run(context.Background(), "test-run", items)
	require.Error(t, err)
	require.Equal(t, 0, client.submittedCount())
}

func TestRunner_PublishesReportsToSink(t *testing.T) {

	client := testClient()
	sink := &MockSink{}
	runner := newTestRunner(t, client, &MockLedger{}, 1, sink)

	_, reports, err := runner.Run(context.Background(), "run-42", []entities.WorkItem{testWorkItem()})
	require.NoError(t, err)

	require.Equal(t, "run-42", sink.runID)
	require.Equal(t, reports, sink.reports)
}
