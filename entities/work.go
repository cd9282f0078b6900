package entities

// WorkItem is one transfer instruction from the work list. Amount is kept as
// the raw decimal string from the input until the builder scales it.
type WorkItem struct {
	AssetID   string
	OwnerKey  string
	Recipient string
	Amount    string
}

const (
	OpCreateAccount = "createAccount"
	OpTransfer      = "transfer"
)

// Operation is one instruction of a submission unit. A transfer with a
// missing destination account is two operations submitted as one transaction.
type Operation struct {
	Type        string `json:"type"`
	Source      string `json:"source,omitempty"`
	Destination string `json:"destination"`
	Owner       string `json:"owner"`
	AssetID     string `json:"assetId"`
	Amount      int64  `json:"amount,omitempty"`
	Decimals    int32  `json:"decimals,omitempty"`
}

type SignedTransaction struct {
	Operations []Operation `json:"operations"`
	Signer     string      `json:"signer"`
	Signature  string      `json:"signature"`
}

type ItemStatus string

const (
	StatusRecorded    ItemStatus = "recorded"
	StatusSkipped     ItemStatus = "skipped"
	StatusFailed      ItemStatus = "failed"
	StatusUnconfirmed ItemStatus = "unconfirmed"
	StatusPlanned     ItemStatus = "planned"
)

// Report is the per-item outcome handed to the runner, the log output and the
// optional report sink.
type Report struct {
	WorkKey         string     `json:"workKey"`
	AssetID         string     `json:"assetId"`
	Recipient       string     `json:"recipient"`
	Amount          string     `json:"amount"`
	Status          ItemStatus `json:"status"`
	SettlementToken string     `json:"settlementToken,omitempty"`
	Reason          string     `json:"reason,omitempty"`
}

type Summary struct {
	Recorded    int
	Skipped     int
	Failed      int
	Unconfirmed int
	Planned     int
}

func (s *Summary) Add(status ItemStatus) {
	switch status {
	case StatusRecorded:
		s.Recorded++
	case StatusSkipped:
		s.Skipped++
	case StatusFailed:
		s.Failed++
	case StatusUnconfirmed:
		s.Unconfirmed++
	case StatusPlanned:
		s.Planned++
	}
}

// Clean reports whether every item ended in a state that does not require
// another run.
func (s *Summary) Clean() bool {
	return s.Failed == 0 && s.Unconfirmed == 0
}
