package chainmaker

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"

	"github.com/CHIRANJEEVICHETAN/EcoTrack-sub000/blockchain/types"
)

// historyPayload is the JSON the history query returns
type historyPayload struct {
	ItemType  string        `json:"item_type"`
	Weight    json.Number   `json:"weight"`
	Timestamp json.Number   `json:"timestamp"`
	Status    json.Number   `json:"status"`
	Handlers  []string      `json:"handlers"`
	History   []historyItem `json:"history"`
}

type historyItem struct {
	TxID      string      `json:"tx_id"`
	Timestamp json.Number `json:"timestamp"`
	Status    json.Number `json:"status"`
}

// decodeHistory turns the query result into positional outputs
// (itemType, weight, timestamp, statusCode, handlers) plus the transaction trail.
func decodeHistory(data []byte) (*types.RawReturnValue, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) || bytes.Equal(trimmed, []byte("{}")) {
		return nil, types.NewReadError(types.NotFound, nil)
	}

	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()
	var payload historyPayload
	if err := dec.Decode(&payload); err != nil {
		return nil, types.NewReadError(types.Malformed, fmt.Errorf("failed to decode history: %w", err))
	}
	if payload.ItemType == "" && len(payload.History) == 0 {
		return nil, types.NewReadError(types.NotFound, nil)
	}

	handlers := payload.Handlers
	if handlers == nil {
		handlers = []string{}
	}
	raw := &types.RawReturnValue{
		Outputs: []any{
			payload.ItemType,
			numberToInt(payload.Weight),
			numberToInt(payload.Timestamp),
			statusCode(payload.Status),
			handlers,
		},
		Trail: make([]types.TrailEntry, 0, len(payload.History)),
	}
	for _, item := range payload.History {
		raw.Trail = append(raw.Trail, types.TrailEntry{
			TxHash:         item.TxID,
			BlockTimestamp: numberToInt(item.Timestamp),
			StatusCode:     statusCode(item.Status),
		})
	}
	return raw, nil
}

func numberToInt(n json.Number) int64 {
	if n == "" {
		return 0
	}
	if i, err := n.Int64(); err == nil {
		return i
	}
	if f, err := n.Float64(); err == nil && !math.IsInf(f, 0) && !math.IsNaN(f) {
		return int64(math.Round(f))
	}
	return 0
}

// statusCode keeps unparseable codes out of the known range
func statusCode(n json.Number) int64 {
	if i, err := strconv.ParseInt(n.String(), 10, 64); err == nil {
		return i
	}
	return types.StatusUnknown.ChainCode()
}
