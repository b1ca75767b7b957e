// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package consensus

import (
	"context"
	"errors"
	"math"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pw512/klimatas-core/block"
	"github.com/pw512/klimatas-core/chainstate"
	"github.com/pw512/klimatas-core/kts"
	"github.com/pw512/klimatas-core/kv"
	"github.com/pw512/klimatas-core/params"
	"github.com/pw512/klimatas-core/zerocoin"
)

func TestConnectDisconnect(t *testing.T) {
	c := newTestChain(t, params.RegTest())
	genesis := c.engine.Tip()

	b1 := c.connect()
	b2 := c.connect()

	tip := c.engine.Tip()
	assert.Equal(t, uint32(2), tip.Height)
	assert.Equal(t, b2.Header().ID(), tip.ID)
	assert.NotEqual(t, genesis.Modifier, tip.Modifier, "v2 modifier mixes every block")

	tip, err := c.engine.Disconnect()
	require.NoError(t, err)
	assert.Equal(t, b1.Header().ID(), tip.ID)
	assert.Equal(t, tip, c.engine.Tip())

	// the disconnected block connects again
	v, err := c.engine.Connect(b2, b2.Header().Timestamp())
	require.NoError(t, err)
	assert.True(t, v.Accepted)
	assert.Equal(t, b2.Header().ID(), c.engine.Tip().ID)
}

func TestBlockRejections(t *testing.T) {
	p := params.RegTest()
	c := newTestChain(t, p)
	c.connectN(3)

	height := c.engine.Tip().Height + 1
	next := c.nextTime()

	tests := []struct {
		name  string
		build func() *block.Block
		now   uint64
		want  kts.Reason
	}{
		{"accepted", func() *block.Block { return c.build(blockOpts{}) }, next, ""},
		{"time too old", func() *block.Block { return c.build(blockOpts{time: c.engine.Tip().Time}) }, next, kts.ReasonTimeTooOld},
		{"bad time slot", func() *block.Block { return c.build(blockOpts{time: next + 1}) }, next + 1, kts.ReasonBadTimeSlot},
		{"future drift", func() *block.Block { return c.build(blockOpts{}) }, next - p.Stake.TimeSlotLength, kts.ReasonFutureDrift},
		{"within drift", func() *block.Block { return c.build(blockOpts{}) }, next - p.Stake.TimeSlotLength + 1, ""},
		{"bad signature", func() *block.Block { return c.build(blockOpts{key: otherKey}) }, next, kts.ReasonBadSignature},
		{"stale stake", func() *block.Block {
			out := c.defaultStake(height, next)
			out.CreationTime = next - 10
			return c.build(blockOpts{stake: out})
		}, next, kts.ReasonStaleStake},
		{"kernel above target", func() *block.Block { return c.build(blockOpts{bits: 0x03000001}) }, next, kts.ReasonKernelAbove},
		{"target above limit", func() *block.Block { return c.build(blockOpts{bits: 0x21010000}) }, next, kts.ReasonMalformed},
		{"missing stake", func() *block.Block { return c.build(blockOpts{noStake: true}) }, next, kts.ReasonMalformed},
		{"output from the future", func() *block.Block {
			out := c.defaultStake(height, next)
			out.CreationHeight = height
			return c.build(blockOpts{stake: out})
		}, next, kts.ReasonMalformed},
		{"txs root mismatch", func() *block.Block {
			blk := c.build(blockOpts{})
			return block.Compose(blk.Header(), block.Transactions{mintTx(newCoins(t, p, 1, 1)...)})
		}, next, kts.ReasonMalformed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := c.engine.Evaluate(tt.build(), tt.now)
			defer v.Release()
			if tt.want == "" {
				assert.True(t, v.Accepted, "%v", v)
				assert.NoError(t, v.Err)
			} else {
				assert.False(t, v.Accepted)
				assert.Equal(t, tt.want, v.Reason, "%v", v.Err)
			}
		})
	}
	assert.Equal(t, height-1, c.engine.Tip().Height, "evaluation does not apply")
}

func TestAgeOrDepth(t *testing.T) {
	p := params.RegTest()
	c := newTestChain(t, p)
	c.connectN(int(p.Stake.MinDepth) + 1)

	height := c.engine.Tip().Height + 1
	next := c.nextTime()

	tests := []struct {
		name         string
		depth        uint32
		age          uint64
		wantAccepted bool
	}{
		{"age only", 1, p.Stake.MinAge, true},
		{"depth only", p.Stake.MinDepth, 1, true},
		{"both", p.Stake.MinDepth, p.Stake.MinAge, true},
		{"neither", p.Stake.MinDepth - 1, p.Stake.MinAge - 1, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := c.defaultStake(height, next)
			out.CreationHeight = height - tt.depth
			out.CreationTime = next - tt.age

			v := c.engine.Evaluate(c.build(blockOpts{stake: out}), next)
			defer v.Release()
			assert.Equal(t, tt.wantAccepted, v.Accepted, "%v", v.Err)
			if !tt.wantAccepted {
				assert.Equal(t, kts.ReasonStaleStake, v.Reason)
			}
		})
	}
}

type outputs map[kts.Bytes32]*block.Output

func (o outputs) Output(txID kts.Bytes32, index uint32) (*block.Output, error) {
	out := o[txID]
	if out == nil || out.Index != index {
		return nil, nil
	}
	return out, nil
}

func TestUnknownStakeOutput(t *testing.T) {
	known := outputs{}
	c := newTestChain(t, params.RegTest(), WithOutputs(known))

	next := c.nextTime()
	out := c.defaultStake(1, next)

	v := c.engine.Evaluate(c.build(blockOpts{stake: out}), next)
	assert.Equal(t, kts.ReasonUnknownOutput, v.Reason)

	cpy := *out
	cpy.Amount++
	known[out.TxID] = &cpy
	v = c.engine.Evaluate(c.build(blockOpts{stake: out}), next)
	assert.Equal(t, kts.ReasonUnknownOutput, v.Reason, "claim must match the output")

	known[out.TxID] = out
	v = c.engine.Evaluate(c.build(blockOpts{stake: out}), next)
	defer v.Release()
	assert.True(t, v.Accepted, "%v", v.Err)
}

// Stake claims are never taken on trust: with no output view a stake block
// can not be evaluated, and an amount no output can hold is malformed before
// any lookup.
func TestStakeClaimChecks(t *testing.T) {
	p := params.RegTest()
	c := newTestChain(t, p)
	next := c.nextTime()

	inflated := func(amount uint64) *block.Output {
		out := c.defaultStake(1, next)
		out.Amount = amount
		return out
	}
	unlisted := c.defaultStake(1, next)
	unlisted.TxID = kts.Blake2b([]byte("unlisted"))
	tests := []struct {
		name string
		opts blockOpts
		want kts.Reason
	}{
		{"listed", blockOpts{}, ""},
		{"unlisted", blockOpts{stake: unlisted, unlisted: true}, kts.ReasonUnknownOutput},
		{"amount above max money", blockOpts{stake: inflated(p.MaxMoney + 1), bits: 0x1d00ffff}, kts.ReasonMalformed},
		{"max amount", blockOpts{stake: inflated(math.MaxUint64), bits: 0x1d00ffff}, kts.ReasonMalformed},
		{"zero amount", blockOpts{stake: inflated(0)}, kts.ReasonMalformed},
		{"unlisted max money", blockOpts{stake: inflated(p.MaxMoney), unlisted: true}, kts.ReasonUnknownOutput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := c.engine.Evaluate(c.build(tt.opts), next)
			defer v.Release()
			if tt.want == "" {
				assert.True(t, v.Accepted, "%v", v.Err)
			} else {
				assert.Equal(t, tt.want, v.Reason, "%v", v.Err)
			}
		})
	}

	blind := newTestChain(t, p, WithOutputs(nil))
	v := blind.engine.Evaluate(blind.build(blockOpts{}), next)
	assert.False(t, v.Accepted)
	assert.Empty(t, v.Reason, "not a verdict on the block")
	assert.ErrorIs(t, v.Err, errNoOutputs)

	v = blind.engine.Evaluate(blind.build(blockOpts{stake: inflated(math.MaxUint64), bits: 0x1d00ffff}), next)
	assert.Equal(t, kts.ReasonMalformed, v.Reason, "%v", v.Err)
}

func TestInvalidStakeOutputs(t *testing.T) {
	tainted := kts.Blake2b([]byte("forged supply"))
	p := params.RegTest().With(func(p *params.Params) {
		p.InvalidOutputs = params.InvalidOutputs{
			EnforceHeight: 2,
			Outpoints:     []kts.Bytes32{(&block.Output{TxID: tainted}).Outpoint()},
		}
	})
	c := newTestChain(t, p)

	stakeOf := func(txID kts.Bytes32) *block.Output {
		height := c.engine.Tip().Height + 1
		out := c.defaultStake(height, c.nextTime())
		out.TxID = txID
		return out
	}

	// still spendable before enforcement
	blk := c.build(blockOpts{stake: stakeOf(tainted)})
	v, err := c.engine.Connect(blk, blk.Header().Timestamp())
	require.NoError(t, err)
	require.True(t, v.Accepted, "%v", v.Err)

	v = c.engine.Evaluate(c.build(blockOpts{stake: stakeOf(tainted)}), c.nextTime())
	assert.Equal(t, kts.ReasonInvalidOutput, v.Reason, "%v", v.Err)

	v = c.engine.Evaluate(c.build(blockOpts{stake: stakeOf(kts.Blake2b([]byte("clean")))}), c.nextTime())
	defer v.Release()
	assert.True(t, v.Accepted, "%v", v.Err)
}

func TestHardCheckpoints(t *testing.T) {
	var wrong kts.Bytes32
	wrong[3], wrong[31] = 1, 0xff // height 1
	p := params.RegTest().With(func(p *params.Params) {
		p.Checkpoints = map[uint32]kts.Bytes32{0: p.GenesisID, 1: wrong}
	})
	require.NoError(t, p.Validate())

	c := newTestChain(t, p)
	blk := c.build(blockOpts{})
	v := c.engine.Evaluate(blk, blk.Header().Timestamp())
	assert.Equal(t, kts.ReasonCheckpointMatch, v.Reason)

	// the same block is accepted where the checkpoint names it
	pinned := newTestChain(t, p.With(func(p *params.Params) {
		p.Checkpoints[1] = blk.Header().ID()
	}))
	require.NoError(t, pinned.state.Outputs().Put(blk.Header().Stake()))
	v, err := pinned.engine.Connect(blk, blk.Header().Timestamp())
	require.NoError(t, err)
	assert.True(t, v.Accepted, "%v", v.Err)

	// and above the last checkpoint any block is
	pinned.connect()
}

func TestRequiredBits(t *testing.T) {
	c := newTestChain(t, params.RegTest(), WithRequiredBits(func(uint32) (uint32, error) {
		return 0x207ffff0, nil
	}))

	v := c.engine.Evaluate(c.build(blockOpts{}), c.nextTime())
	assert.Equal(t, kts.ReasonMalformed, v.Reason)

	v = c.engine.Evaluate(c.build(blockOpts{bits: 0x207ffff0}), c.nextTime())
	defer v.Release()
	assert.True(t, v.Accepted, "%v", v.Err)
}

func TestParentNotTip(t *testing.T) {
	c := newTestChain(t, params.RegTest())
	stale := c.build(blockOpts{})
	c.connect()

	v, err := c.engine.Connect(stale, stale.Header().Timestamp())
	assert.True(t, errors.Is(err, ErrParentNotTip))
	assert.False(t, v.Accepted)
	assert.Empty(t, v.Reason)
}

// Two txs in sequential blocks reuse a serial: the first is accepted, the
// second rejected as a double spend.
func TestDoubleSpendSequentialBlocks(t *testing.T) {
	p := params.RegTest()
	c := newTestChain(t, p)
	coins := newCoins(t, p, 1, 2)

	c.connect(mintTx(coins...))
	c.connectN(9) // absorbed at 3, checkpoint at 10

	spendTx := c.spendTx(coins[0], commitmentsOf(coins...), 10)
	require.NoError(t, c.engine.EvaluateTx(spendTx, c.nextTime()))

	c.connect(spendTx)
	assert.Equal(t, kts.ReasonDoubleSerial, reason(c.engine.EvaluateTx(spendTx, c.nextTime())))

	blk := c.build(blockOpts{}, spendTx)
	v, err := c.engine.Connect(blk, blk.Header().Timestamp())
	require.NoError(t, err)
	assert.False(t, v.Accepted)
	assert.Equal(t, kts.ReasonDoubleSerial, v.Reason)

	// revealing the serial publicly is the same double spend
	v = c.engine.Evaluate(c.build(blockOpts{}, c.publicSpendTx(coins[0])), c.nextTime())
	assert.Equal(t, kts.ReasonDoubleSerial, v.Reason, "%v", v.Err)

	// the other coin is still spendable
	c.connect(c.spendTx(coins[1], commitmentsOf(coins...), 10))
}

// A serial is spent once whichever kind of spend reveals it.
func TestDoubleSpendAcrossSpendTypes(t *testing.T) {
	p := params.RegTest()
	c := newTestChain(t, p)
	coins := newCoins(t, p, 1, 2)

	c.connect(mintTx(coins...))
	c.connectN(9)
	cms := commitmentsOf(coins...)

	// private, then public
	c.connect(c.spendTx(coins[0], cms, 10))
	v := c.engine.Evaluate(c.build(blockOpts{}, c.publicSpendTx(coins[0])), c.nextTime())
	assert.Equal(t, kts.ReasonDoubleSerial, v.Reason, "%v", v.Err)
	assert.Equal(t, kts.ReasonDoubleSerial, reason(c.engine.EvaluateTx(c.publicSpendTx(coins[0]), c.nextTime())))

	// public, then private
	c.connect(c.publicSpendTx(coins[1]))
	v = c.engine.Evaluate(c.build(blockOpts{}, c.spendTx(coins[1], cms, 10)), c.nextTime())
	assert.Equal(t, kts.ReasonDoubleSerial, v.Reason, "%v", v.Err)

	// both in one block
	c2 := newTestChain(t, p)
	c2.connect(mintTx(coins...))
	c2.connectN(9)
	v = c2.engine.Evaluate(c2.build(blockOpts{}, c2.publicSpendTx(coins[0]), c2.spendTx(coins[0], cms, 10)), c2.nextTime())
	assert.Equal(t, kts.ReasonDoubleSerial, v.Reason, "%v", v.Err)
}

func TestDoubleSpendSameBlock(t *testing.T) {
	p := params.RegTest()
	c := newTestChain(t, p)
	coins := newCoins(t, p, 1, 1)

	c.connect(mintTx(coins...))
	c.connectN(9)

	tx := c.spendTx(coins[0], commitmentsOf(coins...), 10)
	v := c.engine.Evaluate(c.build(blockOpts{}, tx, tx), c.nextTime())
	assert.Equal(t, kts.ReasonDoubleSerial, v.Reason)

	twice := &block.Tx{Spends: append(tx.Spends, tx.Spends...)}
	v = c.engine.Evaluate(c.build(blockOpts{}, twice), c.nextTime())
	assert.Equal(t, kts.ReasonDoubleSerial, v.Reason)
}

func TestFirstFailureInBlockOrder(t *testing.T) {
	p := params.RegTest()
	c := newTestChain(t, p)
	coins := newCoins(t, p, 1, 2)

	c.connect(mintTx(coins...))
	c.connectN(9)

	bad := c.spendTx(coins[0], commitmentsOf(coins...), 10)
	bad.Spends[0].Security++ // breaks the proof
	good := c.spendTx(coins[1], commitmentsOf(coins...), 10)

	// the proof failure precedes the double spend
	v := c.engine.Evaluate(c.build(blockOpts{}, bad, good, good), c.nextTime())
	assert.Equal(t, kts.ReasonProofInvalid, v.Reason)
}

func TestCheckpointStaleness(t *testing.T) {
	p := params.RegTest() // checkpoint every 10 blocks, 2 cycles max
	c := newTestChain(t, p)
	coins := newCoins(t, p, 1, 1)

	c.connect(mintTx(coins...))
	c.connectN(9)
	tx := c.spendTx(coins[0], commitmentsOf(coins...), 10)

	c.connectN(19) // tip 29, next block at the bound
	v := c.engine.Evaluate(c.build(blockOpts{}, tx), c.nextTime())
	assert.True(t, v.Accepted, "%v", v.Err)
	v.Release()

	c.connect()
	v = c.engine.Evaluate(c.build(blockOpts{}, tx), c.nextTime())
	assert.Equal(t, kts.ReasonStaleCheckpoint, v.Reason)
}

func TestFraudWindow(t *testing.T) {
	coins := newCoins(t, params.RegTest(), 1, 1)
	p := params.RegTest().With(func(p *params.Params) {
		p.FraudWindow = params.FraudWindow{
			StartHeight:       0,
			EndHeight:         10,
			RemediationHeight: 12,
			Serials:           []*params.Int{params.NewInt(coins[0].Serial)},
		}
	})
	c := newTestChain(t, p)
	c.connect(mintTx(coins...))
	c.connectN(10) // tip 11

	tx := c.spendTx(coins[0], commitmentsOf(coins...), 10)
	v := c.engine.Evaluate(c.build(blockOpts{}, tx), c.nextTime())
	assert.Equal(t, kts.ReasonForgedSerial, v.Reason, "valid proof, forged serial")

	// a checkpoint taken after the window does not launder the serial
	c.connectN(9) // tip 20
	tx = c.spendTx(coins[0], commitmentsOf(coins...), 20)
	v = c.engine.Evaluate(c.build(blockOpts{}, tx), c.nextTime())
	assert.Equal(t, kts.ReasonForgedSerial, v.Reason, "%v", v.Err)
}

// A mint absorbed at H and checkpointed at H+cycle; after disconnecting down
// to H and reconnecting with a different mint set, the checkpoint is a fresh
// computation over the new mints.
func TestReorgRecomputesAccumulator(t *testing.T) {
	p := params.RegTest().With(func(p *params.Params) {
		p.Zerocoin.MintRequiredConfirmations = 0
	})
	coins := newCoins(t, p, 1, 3)
	a, b, other := coins[0], coins[1], coins[2]

	c := newTestChain(t, p)
	c.connectN(4)
	c.connect(mintTx(a)) // H = 5
	c.connect(mintTx(b))
	c.connectN(4) // checkpoint at 10

	checkpoint := func() *big.Int {
		st, err := c.state.NewStage()
		require.NoError(t, err)
		defer st.Release()
		v, err := st.Ledger().WitnessAt(testDenom, 10)
		require.NoError(t, err)
		return v
	}
	fresh := func(cs ...*zerocoin.Coin) *big.Int {
		acc := zerocoin.NewAccumulator(p.Modulus(), p.AccumulatorBase())
		for _, coin := range cs {
			acc.Accumulate(coin.Commitment())
		}
		return acc.Value()
	}
	assert.Equal(t, fresh(a, b), checkpoint())

	for range 5 {
		_, err := c.engine.Disconnect()
		require.NoError(t, err)
	}
	assert.Equal(t, uint32(5), c.engine.Tip().Height)

	c.connect(mintTx(other))
	c.connectN(4)
	assert.Equal(t, fresh(a, other), checkpoint())

	// b was never absorbed on this branch
	st, err := c.state.NewStage()
	require.NoError(t, err)
	defer st.Release()
	_, known, err := st.Ledger().HasMint(testDenom, b.Commitment())
	require.NoError(t, err)
	assert.False(t, known)
}

// Disconnecting then reconnecting a block restores the ledger and serial set
// bit-identical to the state after the first connection.
func TestReorgReversibility(t *testing.T) {
	p := params.RegTest()
	coins := newCoins(t, p, 1, 2)

	c := newTestChain(t, p)
	c.connect(mintTx(coins[0]))
	c.connectN(9)
	blk := c.connect(c.spendTx(coins[0], commitmentsOf(coins[0]), 10), mintTx(coins[1]))
	after := snapshot(t, c)

	_, err := c.engine.Disconnect()
	require.NoError(t, err)
	assert.NotEqual(t, after, snapshot(t, c))

	v, err := c.engine.Connect(blk, blk.Header().Timestamp())
	require.NoError(t, err)
	require.True(t, v.Accepted)
	assert.Equal(t, after, snapshot(t, c))
}

func snapshot(t *testing.T, c *testChain) map[string]string {
	m := make(map[string]string)
	it := c.db.Iterate(kv.Range{})
	defer it.Release()
	for it.Next() {
		switch it.Key()[0] {
		case 'a', 'c', 'n', 'i', 's', 'h':
			m[string(it.Key())] = string(it.Value())
		}
	}
	require.NoError(t, it.Error())
	return m
}

func TestMaxReorgDepth(t *testing.T) {
	p := params.RegTest().With(func(p *params.Params) {
		p.MaxReorgDepth = 2
	})
	c := newTestChain(t, p)
	c.connectN(4)

	for range 2 {
		_, err := c.engine.Disconnect()
		require.NoError(t, err)
	}
	_, err := c.engine.Disconnect()
	assert.True(t, kts.IsFatal(err))
	assert.Equal(t, uint32(2), c.engine.Tip().Height)
}

func TestEvaluateBatch(t *testing.T) {
	c := newTestChain(t, params.RegTest())
	c.connectN(2)

	next := c.nextTime()
	var candidates []*block.Block
	for i := range 4 {
		out := c.defaultStake(3, next)
		out.Index = uint32(i)
		candidates = append(candidates, c.build(blockOpts{stake: out}))
	}
	candidates = append(candidates, c.build(blockOpts{key: otherKey}))

	verdicts := c.engine.EvaluateBatch(context.Background(), candidates, next)
	require.Len(t, verdicts, len(candidates))
	for i, v := range verdicts[:4] {
		assert.True(t, v.Accepted, "candidate %v: %v", i, v.Err)
		assert.Equal(t, candidates[i], v.Block)
	}
	assert.Equal(t, kts.ReasonBadSignature, verdicts[4].Reason)

	// competing blocks: once one is committed, the others are stale
	require.NoError(t, c.engine.Commit(verdicts[0]))
	assert.ErrorIs(t, c.engine.Commit(verdicts[1]), chainstate.ErrStaleStage)
	assert.Error(t, c.engine.Commit(verdicts[4]))
	assert.Error(t, c.engine.Commit(verdicts[0]), "released")
	for _, v := range verdicts {
		v.Release()
	}
	assert.Equal(t, candidates[0].Header().ID(), c.engine.Tip().ID)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	verdicts = c.engine.EvaluateBatch(ctx, candidates[:1], next)
	assert.ErrorIs(t, verdicts[0].Err, context.Canceled)
}

func TestEvaluateTxMints(t *testing.T) {
	p := params.RegTest()
	c := newTestChain(t, p)
	coins := newCoins(t, p, 1, 1)

	tx := mintTx(coins...)
	require.NoError(t, c.engine.EvaluateTx(tx, c.nextTime()))
	c.connect(tx)
	assert.True(t, kts.IsStructural(c.engine.EvaluateTx(tx, c.nextTime())), "known commitment")

	bad := &block.Tx{Mints: []*block.Mint{{Denomination: 3, Commitment: coins[0].Commitment()}}}
	assert.True(t, kts.IsStructural(c.engine.EvaluateTx(bad, c.nextTime())))
}

func TestSignatureSchemeSwitch(t *testing.T) {
	p := params.RegTest().With(func(p *params.Params) {
		p.Activations.NewSignatures = 3
	})
	c := newTestChain(t, p)
	c.connectN(4) // build signs with the scheme of each height

	// a block signed under the wrong scheme does not recover the owner
	blk := c.build(blockOpts{})
	h := blk.Header()
	sig, err := crypto.Sign(h.SigningHash().Bytes(), stakerKey)
	require.NoError(t, err)
	v := c.engine.Evaluate(blk.WithSignature(sig), c.nextTime())
	assert.Equal(t, kts.ReasonBadSignature, v.Reason)
}

func reason(err error) kts.Reason {
	r, _ := kts.ReasonOf(err)
	return r
}
