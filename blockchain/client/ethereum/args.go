package ethereum

import (
	"fmt"
	"math"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"github.com/CHIRANJEEVICHETAN/EcoTrack-sub000/blockchain/types"
)

// packArgs converts neutral argument values into the Go types the ABI encoder
// expects for method's inputs.
func packArgs(method abi.Method, args types.Args) ([]any, error) {
	if len(args) != len(method.Inputs) {
		return nil, fmt.Errorf("method '%s' takes %d arguments, got %d", method.Name, len(method.Inputs), len(args))
	}

	values := make([]any, len(args))
	for i, input := range method.Inputs {
		v, err := convertArg(input.Type, args[i].Value)
		if err != nil {
			return nil, fmt.Errorf("argument '%s' of '%s': %w", args[i].Name, method.Name, err)
		}
		values[i] = v
	}
	return values, nil
}

func convertArg(t abi.Type, value any) (any, error) {
	switch t.T {
	case abi.StringTy:
		s, ok := value.(string)
		if !ok {
			return nil, fmt.Errorf("expected string, got %T", value)
		}
		return s, nil
	case abi.BoolTy:
		b, ok := value.(bool)
		if !ok {
			return nil, fmt.Errorf("expected bool, got %T", value)
		}
		return b, nil
	case abi.AddressTy:
		s, ok := value.(string)
		if !ok || !common.IsHexAddress(s) {
			return nil, fmt.Errorf("expected hex address, got %v", value)
		}
		return common.HexToAddress(s), nil
	case abi.UintTy, abi.IntTy:
		n, err := toBigInt(value)
		if err != nil {
			return nil, err
		}
		return sizedInt(t, n)
	case abi.SliceTy:
		if t.Elem == nil || t.Elem.T != abi.StringTy {
			return nil, fmt.Errorf("unsupported slice type %s", t.String())
		}
		s, ok := value.([]string)
		if !ok {
			return nil, fmt.Errorf("expected []string, got %T", value)
		}
		if s == nil {
			s = []string{}
		}
		return s, nil
	case abi.BytesTy:
		switch b := value.(type) {
		case []byte:
			return b, nil
		case string:
			return []byte(b), nil
		}
		return nil, fmt.Errorf("expected bytes, got %T", value)
	default:
		return nil, fmt.Errorf("unsupported argument type %s", t.String())
	}
}

func toBigInt(value any) (*big.Int, error) {
	switch v := value.(type) {
	case int:
		return big.NewInt(int64(v)), nil
	case int32:
		return big.NewInt(int64(v)), nil
	case int64:
		return big.NewInt(v), nil
	case uint8:
		return new(big.Int).SetUint64(uint64(v)), nil
	case uint32:
		return new(big.Int).SetUint64(uint64(v)), nil
	case uint64:
		return new(big.Int).SetUint64(v), nil
	case *big.Int:
		return new(big.Int).Set(v), nil
	case float64:
		if v != math.Trunc(v) {
			return nil, fmt.Errorf("expected integer, got %v", v)
		}
		n, _ := big.NewFloat(v).Int(nil)
		return n, nil
	case string:
		n, ok := new(big.Int).SetString(v, 10)
		if !ok {
			return nil, fmt.Errorf("expected decimal integer, got %q", v)
		}
		return n, nil
	default:
		return nil, fmt.Errorf("expected integer, got %T", value)
	}
}

// sizedInt returns n in the exact Go type go-ethereum binds to t
func sizedInt(t abi.Type, n *big.Int) (any, error) {
	if t.T == abi.UintTy && n.Sign() < 0 {
		return nil, fmt.Errorf("negative value %s for %s", n, t.String())
	}
	if n.BitLen() > t.Size {
		return nil, fmt.Errorf("value %s overflows %s", n, t.String())
	}

	switch {
	case t.T == abi.UintTy && t.Size == 8:
		return uint8(n.Uint64()), nil
	case t.T == abi.UintTy && t.Size == 16:
		return uint16(n.Uint64()), nil
	case t.T == abi.UintTy && t.Size == 32:
		return uint32(n.Uint64()), nil
	case t.T == abi.UintTy && t.Size == 64:
		return n.Uint64(), nil
	case t.T == abi.IntTy && t.Size == 8:
		return int8(n.Int64()), nil
	case t.T == abi.IntTy && t.Size == 16:
		return int16(n.Int64()), nil
	case t.T == abi.IntTy && t.Size == 32:
		return int32(n.Int64()), nil
	case t.T == abi.IntTy && t.Size == 64:
		return n.Int64(), nil
	default:
		return n, nil
	}
}

// normalizeOutputs turns ABI-decoded values into neutral Go types:
// integers become int64 where they fit, addresses and fixed bytes become hex strings.
func normalizeOutputs(values []any) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = normalizeValue(v)
	}
	return out
}

func normalizeValue(value any) any {
	switch v := value.(type) {
	case *big.Int:
		if v != nil && v.IsInt64() {
			return v.Int64()
		}
		return v
	case uint8:
		return int64(v)
	case uint16:
		return int64(v)
	case uint32:
		return int64(v)
	case uint64:
		if v <= math.MaxInt64 {
			return int64(v)
		}
		return new(big.Int).SetUint64(v)
	case int8:
		return int64(v)
	case int16:
		return int64(v)
	case int32:
		return int64(v)
	case common.Address:
		return v.Hex()
	case []common.Address:
		s := make([]string, len(v))
		for i, a := range v {
			s[i] = a.Hex()
		}
		return s
	case [32]byte:
		return common.Hash(v).Hex()
	default:
		return value
	}
}

// isZeroRecord reports a getter result where every output holds its zero value,
// which is what a contract mapping returns for a key it has never seen.
func isZeroRecord(values []any) bool {
	if len(values) == 0 {
		return true
	}
	for _, value := range values {
		switch v := value.(type) {
		case string:
			if v != "" {
				return false
			}
		case int64:
			if v != 0 {
				return false
			}
		case *big.Int:
			if v != nil && v.Sign() != 0 {
				return false
			}
		case bool:
			if v {
				return false
			}
		case []string:
			if len(v) > 0 {
				return false
			}
		case nil:
		default:
			return false
		}
	}
	return true
}
