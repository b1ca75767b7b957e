// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package consensus

import (
	"crypto/ecdsa"
	"math/big"
	mrand "math/rand"
	"testing"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"

	"github.com/pw512/klimatas-core/activation"
	"github.com/pw512/klimatas-core/block"
	"github.com/pw512/klimatas-core/chainstate"
	"github.com/pw512/klimatas-core/kts"
	"github.com/pw512/klimatas-core/lvldb"
	"github.com/pw512/klimatas-core/params"
	"github.com/pw512/klimatas-core/spend"
	"github.com/pw512/klimatas-core/zerocoin"
)

const (
	testDenom = 10
	easyBits  = 0x207fffff
)

var (
	stakerKey, _ = crypto.HexToECDSA("b71c71a67e1177ad4e901695e1b4b9ee17ae16c6668d313eac2f96dbcda3f291")
	otherKey, _  = crypto.HexToECDSA("8a1f9a8f95be41cd7ccb6168179afb4504aefe388d1e14474d32c45c72ce7b7a")
)

type testChain struct {
	t      *testing.T
	p      *params.Params
	db     *lvldb.LevelDB
	state  *chainstate.State
	engine *Engine
}

func newTestChain(t *testing.T, p *params.Params, opts ...Option) *testChain {
	db, err := lvldb.NewMem()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	state, err := chainstate.New(db, p, chainstate.Options{})
	require.NoError(t, err)
	return &testChain{
		t:      t,
		p:      p,
		db:     db,
		state:  state,
		engine: New(state, append([]Option{WithOutputs(state.Outputs())}, opts...)...),
	}
}

// blockOpts tweaks a candidate.
type blockOpts struct {
	time    uint64 // 0 for the next slot
	bits    uint32
	stake   *block.Output
	noStake bool
	key     *ecdsa.PrivateKey

	// unlisted leaves the stake out of the output set
	unlisted bool
}

func (c *testChain) nextTime() uint64 {
	next := c.engine.Tip().Time + 60
	return next - next%c.p.Stake.TimeSlotLength
}

func (c *testChain) defaultStake(height uint32, time uint64) *block.Output {
	tip := c.engine.Tip()
	return &block.Output{
		TxID:           kts.Blake2b(tip.ID[:]),
		Amount:         1000 * kts.Coin,
		Owner:          kts.Address(crypto.PubkeyToAddress(stakerKey.PublicKey)),
		CreationHeight: height - 1,
		CreationTime:   time - c.p.Stake.MinAge,
	}
}

func (c *testChain) build(o blockOpts, txs ...*block.Tx) *block.Block {
	tip := c.engine.Tip()
	if o.time == 0 {
		o.time = c.nextTime()
	}
	if o.bits == 0 {
		o.bits = easyBits
	}
	if o.key == nil {
		o.key = stakerKey
	}
	if o.stake == nil && !o.noStake {
		o.stake = c.defaultStake(tip.Height+1, o.time)
	}
	if o.stake != nil && !o.unlisted {
		require.NoError(c.t, c.state.Outputs().Put(o.stake))
	}

	b := new(block.Builder).
		ParentID(tip.ID).
		Timestamp(o.time).
		Bits(o.bits).
		Stake(o.stake)
	for _, tx := range txs {
		b.Transaction(tx)
	}
	blk := b.Build()

	h, err := blk.Header().Sign(o.key, activation.VariantAt(c.p, blk.Header().Position()).Signatures)
	require.NoError(c.t, err)
	return blk.WithSignature(h.Signature())
}

// connect connects a block with the txs, which must be accepted.
func (c *testChain) connect(txs ...*block.Tx) *block.Block {
	blk := c.build(blockOpts{}, txs...)
	v, err := c.engine.Connect(blk, blk.Header().Timestamp())
	require.NoError(c.t, err)
	require.True(c.t, v.Accepted, "%v", v)
	return blk
}

func (c *testChain) connectN(n int) {
	for range n {
		c.connect()
	}
}

func newCoins(t *testing.T, p *params.Params, seed int64, n int) []*zerocoin.Coin {
	r := mrand.New(mrand.NewSource(seed)) //#nosec G404
	coins := make([]*zerocoin.Coin, 0, n)
	for range n {
		coin, err := zerocoin.NewCoin(r, p.SerialModulus(), testDenom)
		require.NoError(t, err)
		coins = append(coins, coin)
	}
	return coins
}

func mintTx(coins ...*zerocoin.Coin) *block.Tx {
	tx := &block.Tx{}
	for _, coin := range coins {
		tx.Mints = append(tx.Mints, &block.Mint{Denomination: testDenom, Commitment: coin.Commitment()})
	}
	return tx
}

// spendTx spends the coin against the checkpoint. commitments are all the
// commitments absorbed into the checkpoint, the coin's included.
func (c *testChain) spendTx(coin *zerocoin.Coin, commitments []*big.Int, checkpoint uint32) *block.Tx {
	st, err := c.state.NewStage()
	require.NoError(c.t, err)
	defer st.Release()

	acc, err := st.Ledger().WitnessAt(testDenom, checkpoint)
	require.NoError(c.t, err)

	index := -1
	for i, cm := range commitments {
		if cm.Cmp(coin.Commitment()) == 0 {
			index = i
		}
	}
	require.NotEqual(c.t, -1, index)

	s := &block.Spend{
		Serial:       coin.Serial,
		Denomination: testDenom,
		Checkpoint:   checkpoint,
		Security:     c.p.Zerocoin.Security.Default,
		Version:      block.SpendVersion2,
		Type:         block.SpendPrivate,
	}
	witness := zerocoin.Witness(c.p.Modulus(), c.p.AccumulatorBase(), commitments, index)
	s.Proof, err = zerocoin.EncodeProof(zerocoin.Prove(spend.Statement(s, acc), coin, witness))
	require.NoError(c.t, err)
	return &block.Tx{Spends: []*block.Spend{s}}
}

func commitmentsOf(coins ...*zerocoin.Coin) []*big.Int {
	var cms []*big.Int
	for _, coin := range coins {
		cms = append(cms, coin.Commitment())
	}
	return cms
}

// publicSpendTx reveals the coin.
func (c *testChain) publicSpendTx(coin *zerocoin.Coin) *block.Tx {
	proof, err := zerocoin.EncodeReveal(&zerocoin.Reveal{Commitment: coin.Commitment(), Randomness: coin.Randomness})
	require.NoError(c.t, err)
	return &block.Tx{Spends: []*block.Spend{{
		Serial:       coin.Serial,
		Denomination: testDenom,
		Version:      block.SpendVersion2,
		Type:         block.SpendPublic,
		Proof:        proof,
	}}}
}
