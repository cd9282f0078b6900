package transfer

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// Resolver maps (owner, asset) pairs to holding accounts. Source accounts
// are looked up on the ledger, destination accounts are derived locally.
// Resolution never creates accounts; creation is an explicit operation the
// executor adds to the submission unit when needed.
type Resolver struct {
	client     LedgerClient
	rpcTimeout time.Duration
}

func NewResolver(client LedgerClient, rpcTimeout time.Duration) *Resolver {
	return &Resolver{
		client:     client,
		rpcTimeout: rpcTimeout,
	}
}

// ResolveSource returns the owner's existing holding account for the asset.
// Returns entities.ErrAccountNotFound if the owner holds no account for it.
func (r *Resolver) ResolveSource(ctx context.Context, ownerAddress, assetID string) (string, error) {
	cctx, cancel := context.WithTimeout(ctx, r.rpcTimeout)
	defer cancel()

	account, err := r.client.GetHoldingAccount(cctx, ownerAddress, assetID)
	if err != nil {
		return "", fmt.Errorf("getting holding account: %w", err)
	}

	return account, nil
}

// ResolveDestination derives the canonical holding account address for
// (ownerAddress, assetID). Pure function: same inputs always yield the same
// address, no network access, no side effects.
func (r *Resolver) ResolveDestination(ownerAddress, assetID string) string {
	return DeriveHoldingAccount(ownerAddress, assetID)
}

func DeriveHoldingAccount(ownerAddress, assetID string) string {
	sum := sha256.Sum256([]byte("holding-account\x00" + ownerAddress + "\x00" + assetID))
	return hex.EncodeToString(sum[:])
}
