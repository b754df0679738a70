package crypto

import (
	"github.com/pkg/errors"
)

const (
	// ContractAddressPrefix is "STARKNET_CONTRACT_ADDRESS" as a short string.
	ContractAddressPrefix = "0x535441524b4e45545f434f4e54524143545f41444452455353"

	DefaultDeployer  = "0x0"
	DefaultClassHash = "0x59d886a22f84091b75918faecebfc0d93128000d4b045f57b71d51871453d6f"

	// AddressArgCount is the length of the hashed address preimage:
	// prefix, deployer, salt, class hash, calldata hash.
	AddressArgCount = "5"

	// FieldMaxLiteral is p-1.
	FieldMaxLiteral = "0x800000000000011000000000000000000000000000000000000000000000000"
)

// Params are the textual inputs of the address derivation.
type Params struct {
	Deployer  string
	ClassHash string
	Calldata  []string
}

// DefaultParams returns a zero deployer, the default class hash and empty
// constructor calldata.
func DefaultParams() Params {
	return Params{
		Deployer:  DefaultDeployer,
		ClassHash: DefaultClassHash,
	}
}

// Constants holds every value the derivation needs besides the salt. It is
// built once and never mutated.
type Constants struct {
	DomainTag    Felt
	Deployer     Felt
	ClassHash    Felt
	CalldataHash Felt
	ArgCount     Felt

	// Prefix is hash(hash(0, DomainTag), Deployer).
	Prefix Felt
	// Ceiling is p-1, the starting bound of every minimum search.
	Ceiling Felt
}

// NewConstants parses p and precomputes the derivation prefix with the
// Pedersen hash.
func NewConstants(p Params) (*Constants, error) {
	return newConstants(p, Pedersen)
}

func newConstants(p Params, h HashFunc) (*Constants, error) {
	var (
		c   Constants
		err error
	)

	if c.DomainTag, err = ParseFelt(ContractAddressPrefix); err != nil {
		return nil, errors.WithMessage(err, "parsing contract address prefix")
	}
	if c.Deployer, err = ParseFelt(p.Deployer); err != nil {
		return nil, errors.WithMessage(err, "parsing deployer address")
	}
	if c.ClassHash, err = ParseFelt(p.ClassHash); err != nil {
		return nil, errors.WithMessage(err, "parsing class hash")
	}
	if c.ArgCount, err = ParseFelt(AddressArgCount); err != nil {
		return nil, errors.WithMessage(err, "parsing argument count")
	}
	if c.Ceiling, err = ParseFelt(FieldMaxLiteral); err != nil {
		return nil, errors.WithMessage(err, "parsing field maximum")
	}
	if !c.Ceiling.Equal(MaxFelt()) {
		return nil, errors.Errorf("field maximum %s is not p-1", c.Ceiling)
	}

	calldata := make([]Felt, len(p.Calldata))
	for i, s := range p.Calldata {
		if calldata[i], err = ParseFelt(s); err != nil {
			return nil, errors.WithMessagef(err, "parsing calldata[%d]", i)
		}
	}
	c.CalldataHash = HashArray(h, calldata...)
	c.Prefix = h(h(Felt{}, c.DomainTag), c.Deployer)

	return &c, nil
}

// Deriver maps salts to contract addresses.
type Deriver struct {
	c    *Constants
	hash HashFunc
}

// NewDeriver returns a Pedersen based deriver over c.
func NewDeriver(c *Constants) *Deriver {
	return &Deriver{c: c, hash: Pedersen}
}

// WithHash returns a copy of d that combines felts with h.
func (d *Deriver) WithHash(h HashFunc) *Deriver {
	return &Deriver{c: d.c, hash: h}
}

// Constants returns the constants d derives over.
func (d *Deriver) Constants() *Constants {
	return d.c
}

// Derive computes the contract address for salt:
//
//	hash(hash(hash(hash(Prefix, salt), ClassHash), CalldataHash), ArgCount)
func (d *Deriver) Derive(salt Salt) Felt {
	h := d.hash(d.c.Prefix, salt.Felt())
	h = d.hash(h, d.c.ClassHash)
	h = d.hash(h, d.c.CalldataHash)
	return d.hash(h, d.c.ArgCount)
}
