package transfer

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/wagervs/go-token-distributor/entities"
)

func TestBuilder_ScaleAmount(t *testing.T) {

	testData := []struct {
		name          string
		amount        string
		decimals      int32
		expected      int64
		errorExpected bool
	}{
		{
			name:     "TestScaleFractional",
			amount:   "1.5",
			decimals: 6,
			expected: 1500000,
		},
		{
			name:     "TestScaleSmallestUnit",
			amount:   "0.000001",
			decimals: 6,
			expected: 1,
		},
		{
			name:     "TestScaleWholeAmount",
			amount:   "250",
			decimals: 2,
			expected: 25000,
		},
		{
			name:          "TestZeroAmountRejected",
			amount:        "0",
			decimals:      6,
			errorExpected: true,
		},
		{
			name:          "TestNegativeAmountRejected",
			amount:        "-1",
			decimals:      6,
			errorExpected: true,
		},
		{
			name:          "TestZeroDecimalsRejected",
			amount:        "1",
			decimals:      0,
			errorExpected: true,
		},
		{
			name:          "TestTooManyDecimalsRejected",
			amount:        "1",
			decimals:      19,
			errorExpected: true,
		},
		{
			name:          "TestExcessPrecisionRejected",
			amount:        "0.1234567",
			decimals:      6,
			errorExpected: true,
		},
		{
			name:          "TestOverflowRejected",
			amount:        "10000000000000",
			decimals:      18,
			errorExpected: true,
		},
	}

	for _, testRun := range testData {
		t.Run(testRun.name, func(t *testing.T) {
			amount, err := decimal.NewFromString(testRun.amount)
			require.NoError(t, err)

			got, err := ScaleAmount(amount, testRun.decimals)
			if testRun.errorExpected {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, testRun.expected, got)
		})
	}
}

func TestBuilder_Build_TransferOnly(t *testing.T) {

	amount, err := decimal.NewFromString("1.5")
	require.NoError(t, err)

	got, err := Build("src-account", "dst-account", "owner-address", "asset-a", amount, 6, false)
	require.NoError(t, err)

	expected := []entities.Operation{
		{
			Type:        entities.OpTransfer,
			Source:      "src-account",
			Destination: "dst-account",
			Owner:       "owner-address",
			AssetID:     "asset-a",
			Amount:      1500000,
			Decimals:    6,
		},
	}

	if diff := cmp.Diff(expected, got); diff != "" {
		t.Fatalf("Unexpected result: %v", diff)
	}
}

func TestBuilder_Build_CreatesMissingDestination(t *testing.T) {

	amount, err := decimal.NewFromString("10")
	require.NoError(t, err)

	got, err := Build("src-account", "dst-account", "owner-address", "asset-a", amount, 2, true)
	require.NoError(t, err)

	expected := []entities.Operation{
		{
			Type:        entities.OpCreateAccount,
			Destination: "dst-account",
			Owner:       "owner-address",
			AssetID:     "asset-a",
		},
		{
			Type:        entities.OpTransfer,
			Source:      "src-account",
			Destination: "dst-account",
			Owner:       "owner-address",
			AssetID:     "asset-a",
			Amount:      1000,
			Decimals:    2,
		},
	}

	if diff := cmp.Diff(expected, got); diff != "" {
		t.Fatalf("Unexpected result: %v", diff)
	}
}

func TestBuilder_Build_RejectsMalformedAddresses(t *testing.T) {

	amount, err := decimal.NewFromString("1")
	require.NoError(t, err)

	_, err = Build("", "dst-account", "owner-address", "asset-a", amount, 6, false)
	require.Error(t, err)

	_, err = Build("src-account", "", "owner-address", "asset-a", amount, 6, false)
	require.Error(t, err)

	_, err = Build("src-account", "dst-account", "owner-address", "", amount, 6, false)
	require.Error(t, err)
}
