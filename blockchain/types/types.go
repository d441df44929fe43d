package types

// WasteItemFingerprint is the compact record of a submission anchored on-chain.
// It is built entirely from data already committed to the off-chain submission store.
type WasteItemFingerprint struct {
	SubmissionID     string  `json:"submissionId"`
	ItemType         string  `json:"itemType"`
	WeightKg         float64 `json:"weightKg"`
	CreatedAtEpochMs int64   `json:"createdAtEpochMs"` // Set by the writer at anchor time
	OwnerID          string  `json:"ownerId"`
}

// VendorCertification proves a vendor was verified at a point in time
type VendorCertification struct {
	VendorID       string   `json:"vendorId"`
	Certifications []string `json:"certifications"`
}

// TransactionHash is the hex identifier the network assigns to a write
type TransactionHash string

// LedgerTransactionRecord is one mined write as rendered to a viewer
type LedgerTransactionRecord struct {
	TransactionHash   TransactionHash `json:"transactionHash"`
	TimestampEpochSec int64           `json:"timestampEpochSec"` // Block inclusion time, authoritative over CreatedAtEpochMs
	Status            Status          `json:"status"`
}

// Param is a named contract argument.
// Values use neutral Go types (string, int64, uint64, []string); each backend converts them.
type Param struct {
	Name  string
	Value any
}

// Args is the ordered argument list of a contract method
type Args []Param

// Values returns the bare argument values in order
func (a Args) Values() []any {
	values := make([]any, len(a))
	for i, p := range a {
		values[i] = p.Value
	}
	return values
}

// TrailEntry is one raw history entry attached by a backend to a read
type TrailEntry struct {
	TxHash         string
	BlockTimestamp int64
	StatusCode     int64
}

// RawReturnValue is the undecoded result of a read-only contract call.
// Outputs holds the method's positional return values; Trail holds the
// transactions the backend could attribute to the queried key.
type RawReturnValue struct {
	Outputs []any
	Trail   []TrailEntry
}

// Target identifies one node and one deployed contract, plus the signing
// credential used for writes against it
type Target struct {
	NodeEndpoint       string
	ContractAddress    string
	ContractDescriptor string
	SignerKey          string
}

// String never includes the signer key
func (t Target) String() string {
	return "endpoint=" + t.NodeEndpoint + " contract=" + t.ContractAddress + " descriptor=" + t.ContractDescriptor
}
