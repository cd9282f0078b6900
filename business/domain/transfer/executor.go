package transfer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/wagervs/go-token-distributor/entities"
	"go.uber.org/zap"
)

type LedgerClient interface {
	GetHoldingAccount(ctx context.Context, ownerAddress, assetID string) (string, error)
	AccountExists(ctx context.Context, account string) (bool, error)
	GetAssetPrecision(ctx context.Context, assetID string) (int32, error)
	Submit(ctx context.Context, tx entities.SignedTransaction) (string, error)
}

type Signer interface {
	PublicAddress(credential string) (string, error)
	Sign(payload []byte, credential string) (string, error)
}

type completionLedger interface {
	Contains(workKey string) (bool, error)
	Append(workKey, settlementToken string) error
}

// Executor runs one work item end-to-end: completion ledger check, account
// resolution, operation build, submission and completion record append.
// Side effects are strictly ordered: nothing is submitted before the build,
// nothing is appended before a settlement token is obtained.
type Executor struct {
	client        LedgerClient
	signer        Signer
	ledger        completionLedger
	resolver      *Resolver
	rpcTimeout    time.Duration
	submitTimeout time.Duration
	dryRun        bool
	logger        *zap.SugaredLogger

	keys keyedMutex

	precisionMu sync.Mutex
	precision   map[string]int32
}

func NewExecutor(
	client LedgerClient,
	signer Signer,
	ledger completionLedger,
	rpcTimeout time.Duration,
	submitTimeout time.Duration,
	dryRun bool,
	logger *zap.SugaredLogger,
) *Executor {
	return &Executor{
		client:        client,
		signer:        signer,
		ledger:        ledger,
		resolver:      NewResolver(client, rpcTimeout),
		rpcTimeout:    rpcTimeout,
		submitTimeout: submitTimeout,
		dryRun:        dryRun,
		logger:        logger,
		precision:     make(map[string]int32),
	}
}

// Execute processes a single work item and returns its report. A non-nil
// error is fatal for the whole batch (completion ledger I/O failure); every
// per-item condition is folded into the report instead.
func (e *Executor) Execute(ctx context.Context, item entities.WorkItem) (entities.Report, error) {
	report := entities.Report{
		AssetID:   item.AssetID,
		Recipient: item.Recipient,
		Amount:    item.Amount,
	}

	if item.AssetID == "" || item.Recipient == "" {
		return failed(report, "work item is missing asset id or recipient"), nil
	}

	amount, err := decimal.NewFromString(strings.TrimSpace(item.Amount))
	if err != nil {
		return failed(report, fmt.Sprintf("parsing amount: %v", err)), nil
	}
	if !amount.IsPositive() {
		return failed(report, fmt.Sprintf("amount must be positive, got %s", amount)), nil
	}

	ownerAddress, err := e.signer.PublicAddress(item.OwnerKey)
	if err != nil {
		return failed(report, fmt.Sprintf("normalizing owner credential: %v", err)), nil
	}

	key := WorkKey(item.AssetID, ownerAddress, item.Recipient, amount)
	report.WorkKey = key

	// The check-then-append pair below must not interleave for the same key.
	unlock := e.keys.lock(key)
	defer unlock()

	done, err := e.ledger.Contains(key)
	if err != nil {
		report.Status = entities.StatusFailed
		report.Reason = "completion ledger unavailable"
		return report, fmt.Errorf("checking completion ledger: %v", err)
	}
	if done {
		report.Status = entities.StatusSkipped
		return report, nil
	}

	source, err := e.resolver.ResolveSource(ctx, ownerAddress, item.AssetID)
	if err != nil {
		if errors.Is(err, entities.ErrAccountNotFound) {
			return failed(report, fmt.Sprintf("owner %s holds no account for asset %s", ownerAddress, item.AssetID)), nil
		}
		return failed(report, fmt.Sprintf("resolving source account: %v", err)), nil
	}
	destination := e.resolver.ResolveDestination(item.Recipient, item.AssetID)

	destinationExists, err := func() (bool, error) {
		cctx, cancel := context.WithTimeout(ctx, e.rpcTimeout)
		defer cancel()

		return e.client.AccountExists(cctx, destination)
	}()
	if err != nil {
		return failed(report, fmt.Sprintf("checking destination account: %v", err)), nil
	}

	decimals, err := e.assetPrecision(ctx, item.AssetID)
	if err != nil {
		return failed(report, fmt.Sprintf("getting asset precision: %v", err)), nil
	}

	operations, err := Build(source, destination, ownerAddress, item.AssetID, amount, decimals, !destinationExists)
	if err != nil {
		return failed(report, fmt.Sprintf("building transfer: %v", err)), nil
	}

	if e.dryRun {
		e.logger.Infow("Dry run, not submitting", "workKey", key, "nr_operations", len(operations))
		report.Status = entities.StatusPlanned
		return report, nil
	}

	payload, err := json.Marshal(operations)
	if err != nil {
		return failed(report, fmt.Sprintf("encoding operations: %v", err)), nil
	}
	signature, err := e.signer.Sign(payload, item.OwnerKey)
	if err != nil {
		return failed(report, fmt.Sprintf("signing transaction: %v", err)), nil
	}

	token, err := func() (string, error) {
		// A broadcast cannot be undone, so an aborting batch must not cancel
		// an in-flight submission. Only the per-item timeout bounds the wait.
		sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.submitTimeout)
		defer cancel()

		return e.client.Submit(sctx, entities.SignedTransaction{
			Operations: operations,
			Signer:     ownerAddress,
			Signature:  signature,
		})
	}()
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			report.Status = entities.StatusUnconfirmed
			report.Reason = "submission timed out, transaction may still land"
			return report, nil
		}
		return failed(report, fmt.Sprintf("submitting transaction: %v", err)), nil
	}

	if token == "" {
		report.Status = entities.StatusUnconfirmed
		report.Reason = "submission succeeded but returned no settlement token"
		return report, nil
	}

	if err := e.ledger.Append(key, token); err != nil {
		report.Status = entities.StatusUnconfirmed
		report.Reason = "settlement token obtained but appending the completion record failed"
		return report, fmt.Errorf("appending completion record: %v", err)
	}

	report.Status = entities.StatusRecorded
	report.SettlementToken = token
	return report, nil
}

func (e *Executor) assetPrecision(ctx context.Context, assetID string) (int32, error) {
	e.precisionMu.Lock()
	decimals, ok := e.precision[assetID]
	e.precisionMu.Unlock()
	if ok {
		return decimals, nil
	}

	cctx, cancel := context.WithTimeout(ctx, e.rpcTimeout)
	defer cancel()

	decimals, err := e.client.GetAssetPrecision(cctx, assetID)
	if err != nil {
		return 0, err
	}

	e.precisionMu.Lock()
	e.precision[assetID] = decimals
	e.precisionMu.Unlock()

	return decimals, nil
}

func failed(report entities.Report, reason string) entities.Report {
	report.Status = entities.StatusFailed
	report.Reason = reason
	return report
}

// keyedMutex serializes executions that share a work key. Distinct keys touch
// independent ledger accounts and may run in parallel.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*keyLock
}

type keyLock struct {
	mu   sync.Mutex
	refs int
}

func (k *keyedMutex) lock(key string) func() {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = make(map[string]*keyLock)
	}
	entry, ok := k.locks[key]
	if !ok {
		entry = &keyLock{}
		k.locks[key] = entry
	}
	entry.refs++
	k.mu.Unlock()

	entry.mu.Lock()

	return func() {
		entry.mu.Unlock()

		k.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
