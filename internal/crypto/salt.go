package crypto

import (
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/holiman/uint256"
	"github.com/pkg/errors"
)

// SaltBits is the width of the search space.
const SaltBits = 128

// Salt is an unsigned 128-bit search input.
type Salt struct {
	Hi uint64
	Lo uint64
}

// SaltFromUint64 returns the salt with value v.
func SaltFromUint64(v uint64) Salt {
	return Salt{Lo: v}
}

// ParseSalt parses a decimal salt.
func ParseSalt(s string) (Salt, error) {
	v, err := uint256.FromDecimal(strings.TrimSpace(s))
	if err != nil {
		return Salt{}, errors.Wrapf(err, "invalid salt %q", s)
	}
	if v.BitLen() > SaltBits {
		return Salt{}, errors.Errorf("salt %q does not fit in %d bits", s, SaltBits)
	}
	return Salt{Hi: v[1], Lo: v[0]}, nil
}

// Next returns s+1, wrapping at 2^128.
func (s Salt) Next() Salt {
	s.Lo++
	if s.Lo == 0 {
		s.Hi++
	}
	return s
}

// Felt embeds the salt into the field. 2^128 is far below the modulus, so
// no reduction takes place.
func (s Salt) Felt() Felt {
	var buf [FeltLen]byte
	binary.BigEndian.PutUint64(buf[16:24], s.Hi)
	binary.BigEndian.PutUint64(buf[24:32], s.Lo)

	var f Felt
	f.e.SetBytes(buf[:])
	return f
}

// String returns the decimal representation.
func (s Salt) String() string {
	u := uint256.Int{s.Lo, s.Hi, 0, 0}
	return u.Dec()
}

// Hex returns the 0x-prefixed 32 hex digit representation.
func (s Salt) Hex() string {
	return fmt.Sprintf("0x%016x%016x", s.Hi, s.Lo)
}
