package ethereum

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

const maxDescriptorBytes = 8 << 20

// LoadDescriptor reads a contract ABI from a file path or an http(s) URL.
// Both a bare ABI array and a build artifact carrying an "abi" field are accepted.
func LoadDescriptor(ctx context.Context, source string, httpClient *http.Client) (abi.ABI, error) {
	if source == "" {
		return abi.ABI{}, fmt.Errorf("contract descriptor not configured")
	}

	var (
		data []byte
		err  error
	)
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		data, err = fetchDescriptor(ctx, source, httpClient)
	} else {
		data, err = os.ReadFile(source)
	}
	if err != nil {
		return abi.ABI{}, err
	}

	return ParseDescriptor(data)
}

// ParseDescriptor parses a bare ABI array or an artifact object with an "abi" field
func ParseDescriptor(data []byte) (abi.ABI, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return abi.ABI{}, fmt.Errorf("contract descriptor is empty")
	}

	if trimmed[0] == '{' {
		var artifact struct {
			ABI json.RawMessage `json:"abi"`
		}
		if err := json.Unmarshal(trimmed, &artifact); err != nil {
			return abi.ABI{}, fmt.Errorf("failed to parse contract artifact: %w", err)
		}
		if len(artifact.ABI) == 0 {
			return abi.ABI{}, fmt.Errorf("contract artifact has no abi field")
		}
		trimmed = artifact.ABI
	}

	parsed, err := abi.JSON(bytes.NewReader(trimmed))
	if err != nil {
		return abi.ABI{}, fmt.Errorf("failed to parse contract ABI: %w", err)
	}
	return parsed, nil
}

func fetchDescriptor(ctx context.Context, url string, httpClient *http.Client) ([]byte, error) {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch contract descriptor: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to fetch contract descriptor: unexpected status %d", resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxDescriptorBytes))
}
