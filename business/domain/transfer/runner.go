package transfer

import (
	"context"
	"fmt"
	"sync"

	"github.com/pkg/errors"
	"github.com/wagervs/go-token-distributor/entities"
	"go.uber.org/zap"
)

type ReportSink interface {
	IndexReports(ctx context.Context, runID string, reports []entities.Report) error
}

// Runner drives the executor over the whole work list with a bounded worker
// pool. Every per-item condition, panics included, becomes a per-item report;
// only a completion ledger failure aborts the batch.
type Runner struct {
	executor  *Executor
	nrWorkers int
	sink      ReportSink
	logger    *zap.SugaredLogger
}

func NewRunner(executor *Executor, nrWorkers int, sink ReportSink, logger *zap.SugaredLogger) *Runner {
	if nrWorkers < 1 {
		nrWorkers = 1
	}
	return &Runner{
		executor:  executor,
		nrWorkers: nrWorkers,
		sink:      sink,
		logger:    logger,
	}
}

func (r *Runner) Run(ctx context.Context, runID string, items []entities.WorkItem) (entities.Summary, []entities.Report, error) {
	reports := make([]entities.Report, len(items))

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	sem := make(chan struct{}, r.nrWorkers)

	var fatalMu sync.Mutex
	var fatalErr error

	for i := range items {
		// A fatal condition stops starting new items. In-flight submissions
		// are not cancelled, broadcasting is not undoable.
		if runCtx.Err() != nil {
			break
		}

		sem <- struct{}{}
		wg.Add(1)
		go func(i int, item entities.WorkItem) {
			defer wg.Done()
			defer func() { <-sem }()
			defer func() {
				if rec := recover(); rec != nil {
					reports[i] = entities.Report{
						AssetID:   item.AssetID,
						Recipient: item.Recipient,
						Amount:    item.Amount,
						Status:    entities.StatusFailed,
						Reason:    fmt.Sprintf("panic: %v", rec),
					}
				}
			}()

			report, err := r.executor.Execute(runCtx, item)
			reports[i] = report
			if err != nil {
				fatalMu.Lock()
				if fatalErr == nil {
					fatalErr = err
				}
				fatalMu.Unlock()
				cancel()
			}
		}(i, items[i])
	}

	wg.Wait()

	var summary entities.Summary
	for i := range reports {
		if reports[i].Status == "" {
			reports[i] = entities.Report{
				AssetID:   items[i].AssetID,
				Recipient: items[i].Recipient,
				Amount:    items[i].Amount,
				Status:    entities.StatusFailed,
				Reason:    "batch aborted before item started",
			}
		}
		summary.Add(reports[i].Status)
		r.logReport(reports[i])
	}

	if fatalErr != nil {
		return summary, reports, errors.Wrap(fatalErr, "processing batch")
	}

	if r.sink != nil {
		// Report indexing is best effort, it never fails an otherwise clean batch.
		if err := r.sink.IndexReports(ctx, runID, reports); err != nil {
			r.logger.Errorw("error indexing batch reports", "run", runID, "error", err)
		}
	}

	r.logger.Infow("Finished batch",
		"run", runID,
		"items", len(items),
		"recorded", summary.Recorded,
		"skipped", summary.Skipped,
		"failed", summary.Failed,
		"unconfirmed", summary.Unconfirmed,
		"planned", summary.Planned,
	)

	return summary, reports, nil
}

func (r *Runner) logReport(report entities.Report) {
	switch report.Status {
	case entities.StatusRecorded:
		r.logger.Infow("Sent and recorded",
			"workKey", report.WorkKey, "settlementToken", report.SettlementToken)
	case entities.StatusSkipped:
		r.logger.Infow("Already sent, skipping", "workKey", report.WorkKey)
	case entities.StatusPlanned:
		r.logger.Infow("Would send (dry run)", "workKey", report.WorkKey)
	case entities.StatusUnconfirmed:
		r.logger.Warnw("Submitted but unconfirmed",
			"workKey", report.WorkKey, "reason", report.Reason)
	default:
		r.logger.Errorw("Item failed",
			"workKey", report.WorkKey, "asset", report.AssetID,
			"recipient", report.Recipient, "reason", report.Reason)
	}
}
