package types

import (
	"encoding/json"
	"fmt"
)

// Status is the lifecycle state of a waste item.
// The off-chain store speaks strings and the contract speaks integer codes;
// both are adapters over this one enum.
type Status int

const (
	StatusUnknown Status = iota - 1
	StatusPending
	StatusInProgress
	StatusCompleted
)

var chainCodes = [...]Status{StatusPending, StatusInProgress, StatusCompleted}

var storeNames = map[Status]string{
	StatusPending:    "Pending",
	StatusInProgress: "In Progress",
	StatusCompleted:  "Completed",
}

// StatusFromChainCode maps a raw contract status code. Codes outside the
// table decode to StatusUnknown instead of failing.
func StatusFromChainCode(code int64) Status {
	if code < 0 || code >= int64(len(chainCodes)) {
		return StatusUnknown
	}
	return chainCodes[code]
}

// ChainCode returns the integer the contract uses for s, or -1 for StatusUnknown
func (s Status) ChainCode() int64 {
	for code, st := range chainCodes {
		if st == s {
			return int64(code)
		}
	}
	return -1
}

// String returns the off-chain store representation
func (s Status) String() string {
	if name, ok := storeNames[s]; ok {
		return name
	}
	return "Unknown"
}

// ParseStoreStatus maps the off-chain status string
func ParseStoreStatus(value string) (Status, error) {
	for st, name := range storeNames {
		if name == value {
			return st, nil
		}
	}
	return StatusUnknown, fmt.Errorf("unrecognized submission status %q", value)
}

func (s Status) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *Status) UnmarshalJSON(data []byte) error {
	var value string
	if err := json.Unmarshal(data, &value); err != nil {
		return err
	}
	parsed, err := ParseStoreStatus(value)
	if err != nil {
		*s = StatusUnknown
		return nil
	}
	*s = parsed
	return nil
}
