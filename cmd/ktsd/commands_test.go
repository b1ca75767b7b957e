// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	"bytes"
	"context"
	"testing"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pw512/klimatas-core/activation"
	"github.com/pw512/klimatas-core/block"
	"github.com/pw512/klimatas-core/chainstate"
	"github.com/pw512/klimatas-core/consensus"
	"github.com/pw512/klimatas-core/kts"
	"github.com/pw512/klimatas-core/lvldb"
	"github.com/pw512/klimatas-core/params"
)

func newEngine(t *testing.T, p *params.Params) (*chainstate.State, *consensus.Engine) {
	db, err := lvldb.NewMem()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	state, err := chainstate.New(db, p, chainstate.Options{})
	require.NoError(t, err)
	return state, consensus.New(state, consensus.WithOutputs(state.Outputs()))
}

// encodeChain builds n empty stake blocks on a scratch chain and returns the
// RLP streams of the blocks and of their staked outputs.
func encodeChain(t *testing.T, p *params.Params, n int) (blocks, outputs []byte) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	state, engine := newEngine(t, p)

	var buf, outs bytes.Buffer
	for range n {
		tip := engine.Tip()
		ts := tip.Time + p.Stake.TimeSlotLength
		out := &block.Output{
			TxID:           kts.Blake2b(tip.ID[:]),
			Amount:         1000 * kts.Coin,
			Owner:          kts.Address(crypto.PubkeyToAddress(key.PublicKey)),
			CreationHeight: tip.Height,
			CreationTime:   ts - p.Stake.MinAge,
		}
		require.NoError(t, state.Outputs().Put(out))
		require.NoError(t, rlp.Encode(&outs, out))

		blk := new(block.Builder).
			ParentID(tip.ID).
			Timestamp(ts).
			Bits(p.Stake.LimitV2).
			Stake(out).
			Build()
		h, err := blk.Header().Sign(key, activation.VariantAt(p, blk.Header().Position()).Signatures)
		require.NoError(t, err)
		blk = blk.WithSignature(h.Signature())

		v, err := engine.Connect(blk, ts)
		require.NoError(t, err)
		require.True(t, v.Accepted, "%v", v)
		require.NoError(t, rlp.Encode(&buf, blk))
	}
	return buf.Bytes(), outs.Bytes()
}

// addOutputs loads the outputs stream into the state.
func addOutputs(t *testing.T, state *chainstate.State, data []byte) {
	_, err := importOutputs(bytes.NewReader(data), state.Outputs())
	require.NoError(t, err)
}

func TestImportBlocks(t *testing.T) {
	p := params.RegTest()
	data, outs := encodeChain(t, p, 5)
	state, engine := newEngine(t, p)
	addOutputs(t, state, outs)

	require.NoError(t, importBlocks(context.Background(), engine, bytes.NewReader(data), int64(len(data)), &clock{}))
	assert.Equal(t, uint32(5), engine.Tip().Height)

	// resumed import skips the known blocks
	_, err := engine.Disconnect()
	require.NoError(t, err)
	require.NoError(t, importBlocks(context.Background(), engine, bytes.NewReader(data), int64(len(data)), &clock{}))
	assert.Equal(t, uint32(5), engine.Tip().Height)

	var out bytes.Buffer
	require.NoError(t, printStatus(&out, state))
	assert.Contains(t, out.String(), "network: regtest")
	assert.Contains(t, out.String(), "checkpoints since #0: [0]")
}

func TestImportRejected(t *testing.T) {
	p := params.RegTest()
	data, outs := encodeChain(t, p, 2)

	// the other network does not share the genesis
	other := p.With(func(p *params.Params) {
		p.GenesisID[31]++
	})
	state, engine := newEngine(t, other)
	addOutputs(t, state, outs)
	assert.Error(t, importBlocks(context.Background(), engine, bytes.NewReader(data), int64(len(data)), &clock{}))
	assert.Equal(t, uint32(0), engine.Tip().Height)
}

func TestImportCanceled(t *testing.T) {
	p := params.RegTest()
	data, _ := encodeChain(t, p, 1)
	_, engine := newEngine(t, p)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, importBlocks(ctx, engine, bytes.NewReader(data), int64(len(data)), &clock{}), context.Canceled)
}

func TestImportOutputs(t *testing.T) {
	p := params.RegTest()
	data, outs := encodeChain(t, p, 3)

	// stake claims of unknown outputs are refused
	state, engine := newEngine(t, p)
	err := importBlocks(context.Background(), engine, bytes.NewReader(data), int64(len(data)), &clock{})
	assert.ErrorContains(t, err, string(kts.ReasonUnknownOutput))
	assert.Equal(t, uint32(0), engine.Tip().Height)

	n, err := importOutputs(bytes.NewReader(outs), state.Outputs())
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	require.NoError(t, importBlocks(context.Background(), engine, bytes.NewReader(data), int64(len(data)), &clock{}))
	assert.Equal(t, uint32(3), engine.Tip().Height)

	_, err = importOutputs(bytes.NewReader([]byte{0xc1}), state.Outputs())
	assert.Error(t, err)
}

func TestNormalizeCacheSize(t *testing.T) {
	assert.Equal(t, 16, normalizeCacheSize(1))
	assert.LessOrEqual(t, normalizeCacheSize(1<<40), 1<<40)
}
