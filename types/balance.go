package types

import (
	"encoding/json"
	"fmt"
	"math/big"

	"github.com/holiman/uint256"
)

// Balance is a 128-bit-class unsigned amount, per spec.md §3. It is backed
// by uint256.Int (the ecosystem's standard large-unsigned-integer type, see
// DESIGN.md) rather than a bespoke 128-bit type: every arithmetic op the
// spec needs (add, sub, compare, min) already exists on it. Add, Sub and
// Mul are modulo 2^256 and wrap silently on overflow or underflow.
type Balance struct {
	v uint256.Int
}

// ZeroBalance is the additive identity.
var ZeroBalance = Balance{}

// NewBalance constructs a Balance from a uint64.
func NewBalance(n uint64) Balance {
	var b Balance
	b.v.SetUint64(n)
	return b
}

// BalanceFromDecimal parses a base-10 string into a Balance.
func BalanceFromDecimal(s string) (Balance, error) {
	bi, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return Balance{}, fmt.Errorf("balance: invalid decimal %q", s)
	}
	if bi.Sign() < 0 {
		return Balance{}, fmt.Errorf("balance: negative value %q", s)
	}
	u, overflow := uint256.FromBig(bi)
	if overflow {
		return Balance{}, fmt.Errorf("balance: %q overflows 256 bits", s)
	}
	return Balance{v: *u}, nil
}

func (b Balance) Add(other Balance) Balance {
	var out Balance
	out.v.Add(&b.v, &other.v)
	return out
}

func (b Balance) Sub(other Balance) Balance {
	var out Balance
	out.v.Sub(&b.v, &other.v)
	return out
}

func (b Balance) Mul(other Balance) Balance {
	var out Balance
	out.v.Mul(&b.v, &other.v)
	return out
}

// DivFloor returns floor(b/other). Division by zero returns ZeroBalance.
func (b Balance) DivFloor(other Balance) Balance {
	var out Balance
	if other.IsZero() {
		return ZeroBalance
	}
	out.v.Div(&b.v, &other.v)
	return out
}

// Cmp returns -1, 0 or +1 as b is less than, equal to, or greater than other.
func (b Balance) Cmp(other Balance) int {
	return b.v.Cmp(&other.v)
}

func (b Balance) LessThan(other Balance) bool    { return b.Cmp(other) < 0 }
func (b Balance) GreaterThan(other Balance) bool { return b.Cmp(other) > 0 }
func (b Balance) GreaterOrEqual(other Balance) bool {
	return b.Cmp(other) >= 0
}

func (b Balance) IsZero() bool { return b.v.IsZero() }

// Min returns the smaller of b and other.
func Min(a, b Balance) Balance {
	if a.LessThan(b) {
		return a
	}
	return b
}

// Uint64 returns the value truncated to uint64; callers must ensure the
// value fits (governance weights and bond amounts in this codebase always
// do) — it is never used on raw, unchecked external input.
func (b Balance) Uint64() uint64 {
	return b.v.Uint64()
}

func (b Balance) String() string {
	return b.v.ToBig().String()
}

func (b Balance) MarshalJSON() ([]byte, error) {
	return json.Marshal(b.String())
}

func (b *Balance) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "" {
		b.v = uint256.Int{}
		return nil
	}
	parsed, err := BalanceFromDecimal(s)
	if err != nil {
		return err
	}
	*b = parsed
	return nil
}
