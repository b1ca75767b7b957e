// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package zerocoin

import (
	"math/big"
	mrand "math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pw512/klimatas-core/params"
)

func newCoins(t *testing.T, p *params.Params, n int) []*Coin {
	r := mrand.New(mrand.NewSource(1)) //#nosec G404
	coins := make([]*Coin, 0, n)
	for range n {
		c, err := NewCoin(r, p.SerialModulus(), 10)
		require.NoError(t, err)
		coins = append(coins, c)
	}
	return coins
}

func TestCommit(t *testing.T) {
	c1 := Commit(big.NewInt(1), big.NewInt(2))
	assert.True(t, IsValidCommitment(c1))
	assert.True(t, c1.ProbablyPrime(20))
	assert.Equal(t, 0, c1.Cmp(Commit(big.NewInt(1), big.NewInt(2))), "deterministic")

	assert.NotEqual(t, 0, c1.Cmp(Commit(big.NewInt(1), big.NewInt(3))))
	// lengths are committed, so concatenations can not collide
	assert.NotEqual(t, 0, Commit(big.NewInt(0x0102), big.NewInt(0x03)).Cmp(Commit(big.NewInt(0x01), big.NewInt(0x0203))))

	assert.False(t, IsValidCommitment(big.NewInt(7)))
	assert.False(t, IsValidCommitment(nil))
}

func TestIsCanonicalSerial(t *testing.T) {
	q := big.NewInt(100)
	assert.True(t, IsCanonicalSerial(big.NewInt(0), q))
	assert.True(t, IsCanonicalSerial(big.NewInt(99), q))
	assert.False(t, IsCanonicalSerial(big.NewInt(100), q))
	assert.False(t, IsCanonicalSerial(big.NewInt(-1), q))
}

func TestAccumulatorCommutative(t *testing.T) {
	p := params.RegTest()
	coins := newCoins(t, p, 3)

	a := NewAccumulator(p.Modulus(), p.AccumulatorBase())
	b := NewAccumulator(p.Modulus(), p.AccumulatorBase())
	for i := range coins {
		a.Accumulate(coins[i].Commitment())
		b.Accumulate(coins[len(coins)-1-i].Commitment())
	}
	assert.Equal(t, a.Value(), b.Value())
	assert.Equal(t, 0, p.AccumulatorBase().Cmp(big.NewInt(961)), "base untouched")
}

func TestProveVerify(t *testing.T) {
	p := params.RegTest()
	coins := newCoins(t, p, 4)

	commitments := make([]*big.Int, len(coins))
	acc := NewAccumulator(p.Modulus(), p.AccumulatorBase())
	for i, c := range coins {
		commitments[i] = c.Commitment()
		acc.Accumulate(commitments[i])
	}

	spent := coins[2]
	stmt := &Statement{
		Accumulator:  acc.Value(),
		Serial:       spent.Serial,
		Denomination: 10,
		Checkpoint:   20,
		Security:     p.Zerocoin.Security.Default,
	}
	proof := Prove(stmt, spent, Witness(p.Modulus(), p.AccumulatorBase(), commitments, 2))
	assert.True(t, VerifyMembership(p.Modulus(), stmt, proof))

	data, err := EncodeProof(proof)
	require.NoError(t, err)
	decoded, err := DecodeProof(data)
	require.NoError(t, err)
	assert.True(t, VerifyMembership(p.Modulus(), stmt, decoded))

	tests := []struct {
		name   string
		mutate func(s *Statement, pr *Proof)
	}{
		{"other serial", func(s *Statement, _ *Proof) { s.Serial = coins[0].Serial }},
		{"other checkpoint", func(s *Statement, _ *Proof) { s.Checkpoint = 30 }},
		{"lower security", func(s *Statement, _ *Proof) { s.Security = 1 }},
		{"other accumulator", func(s *Statement, _ *Proof) { s.Accumulator = p.AccumulatorBase() }},
		{"wrong witness", func(_ *Statement, pr *Proof) {
			pr.Witness = Witness(p.Modulus(), p.AccumulatorBase(), commitments, 1)
		}},
		{"missing witness", func(_ *Statement, pr *Proof) { pr.Witness = nil }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := *stmt
			pr := *proof
			tt.mutate(&s, &pr)
			assert.False(t, VerifyMembership(p.Modulus(), &s, &pr))
		})
	}
}

func TestVerifyWitnessForgery(t *testing.T) {
	p := params.RegTest()
	coins := newCoins(t, p, 2)
	acc := NewAccumulator(p.Modulus(), p.AccumulatorBase()).Accumulate(coins[0].Commitment())

	// coins[1] was never accumulated, a proof with a consistent transcript still fails
	stmt := &Statement{Accumulator: acc.Value(), Serial: coins[1].Serial, Denomination: 10, Security: 1}
	proof := Prove(stmt, coins[1], p.AccumulatorBase())
	assert.False(t, VerifyMembership(p.Modulus(), stmt, proof))
}

func TestReveal(t *testing.T) {
	p := params.RegTest()
	coin := newCoins(t, p, 1)[0]

	reveal := &Reveal{Commitment: coin.Commitment(), Randomness: coin.Randomness}
	data, err := EncodeReveal(reveal)
	require.NoError(t, err)
	decoded, err := DecodeReveal(data)
	require.NoError(t, err)

	assert.True(t, VerifyReveal(coin.Serial, decoded))
	assert.False(t, VerifyReveal(new(big.Int).Add(coin.Serial, big.NewInt(1)), decoded))

	_, err = DecodeReveal([]byte{0xff})
	assert.Error(t, err)
}

func TestVerifiedCache(t *testing.T) {
	p := params.RegTest()
	coin := newCoins(t, p, 1)[0]
	acc := NewAccumulator(p.Modulus(), p.AccumulatorBase()).Accumulate(coin.Commitment())

	stmt := &Statement{Accumulator: acc.Value(), Serial: coin.Serial, Denomination: 10, Security: 5}
	proof := Prove(stmt, coin, p.AccumulatorBase())

	vc := NewVerifiedCache(1024 * 1024)
	assert.True(t, vc.VerifyMembership(p.Modulus(), stmt, proof))
	assert.True(t, vc.VerifyMembership(p.Modulus(), stmt, proof))
	_, hit, miss := vc.Stats()
	assert.Equal(t, int64(1), hit)
	assert.Equal(t, int64(1), miss)

	// a failing proof is never cached
	bad := *stmt
	bad.Checkpoint = 1
	assert.False(t, vc.VerifyMembership(p.Modulus(), &bad, proof))
	assert.False(t, vc.VerifyMembership(p.Modulus(), &bad, proof))
}
