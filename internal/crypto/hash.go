package crypto

import (
	pedersenhash "github.com/consensys/gnark-crypto/ecc/stark-curve/pedersen-hash"
	"golang.org/x/crypto/sha3"
)

// HashFunc combines two felts into one. It must be pure.
type HashFunc func(a, b Felt) Felt

// Pedersen is the Starknet Pedersen hash of a and b.
func Pedersen(a, b Felt) Felt {
	return Felt{e: pedersenhash.Pedersen(&a.e, &b.e)}
}

// HashArray folds elems with h and finishes with the element count, the way
// Starknet hashes arrays. An empty array hashes to h(0, 0).
func HashArray(h HashFunc, elems ...Felt) Felt {
	var acc Felt
	for _, e := range elems {
		acc = h(acc, e)
	}
	return h(acc, FeltFromUint64(uint64(len(elems))))
}

// Keccak256 calculates the keccak256 hash of the concatenated inputs.
func Keccak256(data ...[]byte) []byte {
	h := sha3.NewLegacyKeccak256()
	for _, b := range data {
		_, _ = h.Write(b)
	}
	return h.Sum(nil)
}
