package transfer

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"
	"github.com/wagervs/go-token-distributor/entities"
)

const maxAssetDecimals = 18

// Build constructs the submission unit for one transfer: the transfer
// operation itself, prepended with a create account operation when the
// destination does not exist on the ledger yet. Both operations form one
// transaction so a created account can never outlive a failed transfer.
// All validation is local; Build performs no network interaction.
func Build(source, destination, ownerAddress, assetID string, amount decimal.Decimal, decimals int32, createDestination bool) ([]entities.Operation, error) {
	if source == "" || destination == "" || ownerAddress == "" {
		return nil, fmt.Errorf("source, destination and owner addresses must not be empty")
	}
	if assetID == "" {
		return nil, fmt.Errorf("asset id must not be empty")
	}

	scaled, err := ScaleAmount(amount, decimals)
	if err != nil {
		return nil, err
	}

	var operations []entities.Operation
	if createDestination {
		operations = append(operations, entities.Operation{
			Type:        entities.OpCreateAccount,
			Destination: destination,
			Owner:       ownerAddress,
			AssetID:     assetID,
		})
	}

	operations = append(operations, entities.Operation{
		Type:        entities.OpTransfer,
		Source:      source,
		Destination: destination,
		Owner:       ownerAddress,
		AssetID:     assetID,
		Amount:      scaled,
		Decimals:    decimals,
	})

	return operations, nil
}

// ScaleAmount converts a decimal amount to the asset's smallest unit using
// exact integer arithmetic. 1.5 at 6 decimals scales to 1500000.
func ScaleAmount(amount decimal.Decimal, decimals int32) (int64, error) {
	if decimals <= 0 || decimals > maxAssetDecimals {
		return 0, fmt.Errorf("invalid asset precision %d", decimals)
	}
	if !amount.IsPositive() {
		return 0, fmt.Errorf("amount must be positive, got %s", amount)
	}

	scaled := amount.Shift(decimals)
	if !scaled.IsInteger() {
		return 0, fmt.Errorf("amount %s has more fractional digits than the asset's %d decimals", amount, decimals)
	}
	if scaled.Cmp(decimal.NewFromInt(math.MaxInt64)) > 0 {
		return 0, fmt.Errorf("scaled amount %s overflows the smallest unit range", scaled)
	}

	return scaled.IntPart(), nil
}
