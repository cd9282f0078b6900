package transfer

import (
	"strings"

	"github.com/shopspring/decimal"
)

// WorkKey is the idempotency key of one unit of work. The amount is
// normalized through its decimal representation so that "1.50" and "1.5"
// produce the same key.
func WorkKey(assetID, ownerAddress, recipient string, amount decimal.Decimal) string {
	return strings.Join([]string{assetID, ownerAddress, recipient, amount.String()}, ",")
}
