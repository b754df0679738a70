package crypto

import (
	"strings"

	"github.com/consensys/gnark-crypto/ecc/stark-curve/fp"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/holiman/uint256"
	"github.com/pkg/errors"
)

// FeltLen is the width in bytes of the canonical felt encoding.
const FeltLen = fp.Bytes

// ErrFeltOutOfRange is returned when a literal does not fit below the field modulus.
var ErrFeltOutOfRange = errors.New("value is not below the stark field modulus")

// Felt is an element of the Stark prime field p = 2^251 + 17*2^192 + 1.
// Felts are ordered as unsigned integers. The zero value is 0.
type Felt struct {
	e fp.Element
}

// FeltFromUint64 embeds v into the field.
func FeltFromUint64(v uint64) Felt {
	var f Felt
	f.e.SetUint64(v)
	return f
}

// FeltFromBytes reads a canonical 32-byte big-endian encoding.
func FeltFromBytes(b [FeltLen]byte) (Felt, error) {
	e, err := fp.BigEndian.Element(&b)
	if err != nil {
		return Felt{}, ErrFeltOutOfRange
	}
	return Felt{e: e}, nil
}

// MaxFelt returns p-1, the largest representable felt.
func MaxFelt() Felt {
	var f Felt
	f.e.SetOne()
	f.e.Neg(&f.e)
	return f
}

// ParseFelt parses a 0x-prefixed hex literal (odd length allowed) or a
// decimal literal.
func ParseFelt(s string) (Felt, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Felt{}, errors.New("empty felt literal")
	}

	var buf [FeltLen]byte
	if has0xPrefix(s) {
		digits := strings.TrimLeft(s[2:], "0")
		if digits == "" {
			if len(s) == 2 {
				return Felt{}, errors.Errorf("invalid felt literal %q: no digits", s)
			}
			return Felt{}, nil
		}
		if len(digits)%2 != 0 {
			digits = "0" + digits
		}
		raw, err := hexutil.Decode("0x" + digits)
		if err != nil {
			return Felt{}, errors.Wrapf(err, "invalid felt literal %q", s)
		}
		if len(raw) > FeltLen {
			return Felt{}, errors.Wrapf(ErrFeltOutOfRange, "felt literal %q", s)
		}
		copy(buf[FeltLen-len(raw):], raw)
	} else {
		v, err := uint256.FromDecimal(s)
		if err != nil {
			return Felt{}, errors.Wrapf(err, "invalid felt literal %q", s)
		}
		buf = v.Bytes32()
	}

	f, err := FeltFromBytes(buf)
	if err != nil {
		return Felt{}, errors.Wrapf(err, "felt literal %q", s)
	}
	return f, nil
}

// MustParseFelt is like ParseFelt but panics on error. Only use it on
// compile-time literals.
func MustParseFelt(s string) Felt {
	f, err := ParseFelt(s)
	if err != nil {
		panic(err)
	}
	return f
}

// Bytes returns the canonical big-endian encoding.
func (f Felt) Bytes() [FeltLen]byte {
	return f.e.Bytes()
}

// Hex returns the full-width lowercase encoding, e.g. 0x00ab...; leading
// zero bytes are kept.
func (f Felt) Hex() string {
	b := f.e.Bytes()
	return hexutil.Encode(b[:])
}

func (f Felt) String() string {
	return f.Hex()
}

// Cmp returns -1, 0 or +1 depending on whether f is smaller than, equal to or
// larger than o.
func (f Felt) Cmp(o Felt) int {
	return f.e.Cmp(&o.e)
}

func (f Felt) Less(o Felt) bool {
	return f.Cmp(o) < 0
}

func (f Felt) Equal(o Felt) bool {
	return f.e.Equal(&o.e)
}

func (f Felt) IsZero() bool {
	return f.e.IsZero()
}

// BitLen returns the number of significant bits of f.
func (f Felt) BitLen() int {
	b := f.e.Bytes()
	return new(uint256.Int).SetBytes32(b[:]).BitLen()
}

func has0xPrefix(s string) bool {
	return len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X')
}
