package crypto

import (
	"encoding/hex"
	"math"
	"math/rand/v2"
	"testing"

	"github.com/consensys/gnark-crypto/ecc/stark-curve/fp"
	pedersenhash "github.com/consensys/gnark-crypto/ecc/stark-curve/pedersen-hash"
	"github.com/stretchr/testify/require"
)

const emptyCalldataHash = "0x049ee3eba8c1600700ee1b87eb599f16716b0b1022947733551fde4050ca6804"

func newTestDeriver(t *testing.T, p Params) *Deriver {
	t.Helper()
	c, err := NewConstants(p)
	require.NoError(t, err)
	return NewDeriver(c)
}

func TestNewConstants(t *testing.T) {
	c, err := NewConstants(DefaultParams())
	require.NoError(t, err)

	require.True(t, c.Deployer.IsZero())
	require.Equal(t, emptyCalldataHash, c.CalldataHash.Hex())
	require.True(t, c.CalldataHash.Equal(Pedersen(Felt{}, Felt{})))
	require.True(t, c.ArgCount.Equal(FeltFromUint64(5)))
	require.True(t, c.Ceiling.Equal(MaxFelt()))
	require.Equal(t, "0x02fded809d413d52f262acd526c5c64d42a20f8295e87773f781c6febdbbdb84", c.Prefix.Hex())
}

func TestNewConstantsErrors(t *testing.T) {
	tests := []struct {
		name   string
		params Params
	}{
		{name: "bad deployer", params: Params{Deployer: "0xnope", ClassHash: DefaultClassHash}},
		{name: "bad class hash", params: Params{Deployer: DefaultDeployer, ClassHash: ""}},
		{name: "class hash out of range", params: Params{Deployer: DefaultDeployer, ClassHash: "0x0800000000000011000000000000000000000000000000000000000000000001"}},
		{name: "bad calldata", params: Params{Deployer: DefaultDeployer, ClassHash: DefaultClassHash, Calldata: []string{"1", "x"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewConstants(tt.params)
			require.Error(t, err)
		})
	}
}

func TestDeriveGolden(t *testing.T) {
	d := newTestDeriver(t, DefaultParams())

	tests := []struct {
		salt Salt
		want string
	}{
		{Salt{}, "0x006730d8df988b2b47fc0d4d533a3aca84e574ab1a0fdf60b424579ad9aa387e"},
		{SaltFromUint64(1), "0x021554f120fa4d36deaf69c1c605716f933e4e374c979fd8817a093a2e2ea447"},
		{SaltFromUint64(2), "0x03638e003214ee0a19ffd91648e380839de74a42eb4a471e46f45362462ede60"},
		{SaltFromUint64(42), "0x075f9355e3944b0ec6f9cd8677df7ee87387fdbd76afa227d2baf782b5ccf328"},
		{SaltFromUint64(123456789), "0x079925e25008eb2fd68cd62fd72882b56c72e5de8b8298a5ac355e7563acc034"},
		{Salt{Hi: math.MaxUint64, Lo: math.MaxUint64}, "0x078b70046a5ab40de52fba54094082eef11a3596723a3c099821d80c52a248e9"},
	}

	for _, tt := range tests {
		t.Run(tt.salt.String(), func(t *testing.T) {
			require.Equal(t, tt.want, d.Derive(tt.salt).Hex())
		})
	}
}

func TestDeriveCustomParams(t *testing.T) {
	d := newTestDeriver(t, Params{
		Deployer:  "0x1234",
		ClassHash: DefaultClassHash,
		Calldata:  []string{"0x1", "2"},
	})

	require.Equal(t, "0x0501a3a8e6cd4f5241c639c74052aaa34557aafa84dd4ba983d6443c590ab7df", d.Constants().CalldataHash.Hex())
	require.Equal(t, "0x04c7d74a9a21bcc260c344969451ff09d0389a7da7fbdeee349735ca04726138", d.Derive(Salt{}).Hex())
	require.Equal(t, "0x00fdab40fd2ee85104f4ca88835c35ca1c155f3e807bf4a6eb2cfcd8b695518b", d.Derive(SaltFromUint64(7)).Hex())
}

func TestDeriveMatchesArrayHash(t *testing.T) {
	d := newTestDeriver(t, DefaultParams())
	c := d.Constants()
	rng := rand.New(rand.NewPCG(1, 2))

	for i := 0; i < 8; i++ {
		salt := Salt{Hi: rng.Uint64(), Lo: rng.Uint64()}
		saltFelt := salt.Felt()

		want := pedersenhash.PedersenArray(
			[]*fp.Element{&c.DomainTag.e, &c.Deployer.e, &saltFelt.e, &c.ClassHash.e, &c.CalldataHash.e}...,
		)
		got := d.Derive(salt)
		require.True(t, got.e.Equal(&want), "salt %s: got %s", salt, got)
	}
}

func TestDeriveDeterministic(t *testing.T) {
	d := newTestDeriver(t, DefaultParams())
	rng := rand.New(rand.NewPCG(3, 4))

	for i := 0; i < 32; i++ {
		salt := Salt{Hi: rng.Uint64(), Lo: rng.Uint64()}
		require.Equal(t, d.Derive(salt).Bytes(), d.Derive(salt).Bytes())
	}
}

func TestDeriveNoCollisions(t *testing.T) {
	n := 2000
	if testing.Short() {
		n = 200
	}

	d := newTestDeriver(t, DefaultParams())
	rng := rand.New(rand.NewPCG(5, 6))
	seen := make(map[[FeltLen]byte]Salt, n)

	for len(seen) < n {
		salt := Salt{Hi: rng.Uint64(), Lo: rng.Uint64()}
		addr := d.Derive(salt).Bytes()
		if prev, ok := seen[addr]; ok {
			require.Equal(t, prev, salt, "distinct salts derived the same address")
			continue
		}
		seen[addr] = salt
	}
}

func TestHashArray(t *testing.T) {
	require.True(t, HashArray(Pedersen).Equal(MustParseFelt(emptyCalldataHash)))

	a, b := FeltFromUint64(1), FeltFromUint64(2)
	want := pedersenhash.PedersenArray(&a.e, &b.e)
	got := HashArray(Pedersen, a, b)
	require.True(t, got.e.Equal(&want))
}

func TestKeccak256(t *testing.T) {
	require.Equal(t,
		"c5d2460186f7233c927e7db2dcc703c0e500b653ca82273b7bfad8045d85a470",
		hex.EncodeToString(Keccak256()),
	)
	require.Equal(t, Keccak256([]byte("ab")), Keccak256([]byte("a"), []byte("b")))
}
