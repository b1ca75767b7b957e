// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package accumulator keeps the per-denomination zerocoin accumulators, their
// periodic checkpoints and the index of known mints.
//
// All reads and writes go through a kv.View, normally a staging overlay, so
// that a block's effects are applied (and undone) atomically with the rest of
// the chain state.
package accumulator

import (
	"encoding/binary"
	"math"
	"math/big"

	"github.com/ethereum/go-ethereum/rlp"
	"github.com/pkg/errors"

	"github.com/pw512/klimatas-core/block"
	"github.com/pw512/klimatas-core/kts"
	"github.com/pw512/klimatas-core/kv"
	"github.com/pw512/klimatas-core/log"
	"github.com/pw512/klimatas-core/params"
	"github.com/pw512/klimatas-core/zerocoin"
)

var logger = log.WithContext("pkg", "accumulator")

// Buckets owned by the ledger.
const (
	GroupBucket      kv.Bucket = "a" // denomination => group
	CheckpointBucket kv.Bucket = "c" // height => []checkpointEntry
	MintBucket       kv.Bucket = "n" // height => []*block.Mint
	MintIndexBucket  kv.Bucket = "i" // hash(denomination, commitment) => height
)

// Group is the accumulator of one denomination.
type Group struct {
	Denomination uint64
	Value        *big.Int
	Count        uint64 // number of absorbed commitments
}

type groupRecord struct {
	Value *big.Int
	Count uint64
}

type checkpointEntry struct {
	Denomination uint64
	Value        *big.Int
}

// Effects summarizes what ConnectBlock did.
type Effects struct {
	Recorded     int  // mints of the block itself
	Absorbed     int  // confirmed mints absorbed into groups
	Checkpointed bool // whether the block height is a checkpoint
}

// Ledger is the accumulator ledger over a kv view.
type Ledger struct {
	params      *params.Params
	groups      kv.GetPutter
	mints       kv.GetPutter
	index       kv.GetPutter
	checkpoints kv.View
}

// New creates a ledger reading and writing through view.
func New(p *params.Params, view kv.View) *Ledger {
	return &Ledger{
		params:      p,
		groups:      GroupBucket.NewView(view),
		mints:       MintBucket.NewView(view),
		index:       MintIndexBucket.NewView(view),
		checkpoints: CheckpointBucket.NewView(view),
	}
}

// Group returns the current accumulator of the denomination. A denomination
// without absorbed mints is at the accumulator base.
func (l *Ledger) Group(denomination uint64) (*Group, error) {
	if !l.params.IsValidDenomination(denomination) {
		return nil, kts.Structural("invalid denomination %v", denomination)
	}
	data, err := l.groups.Get(denomKey(denomination))
	if err != nil {
		if !l.groups.IsNotFound(err) {
			return nil, errors.Wrap(err, "get group")
		}
		return &Group{Denomination: denomination, Value: new(big.Int).Set(l.params.AccumulatorBase())}, nil
	}
	var rec groupRecord
	if err := rlp.DecodeBytes(data, &rec); err != nil {
		return nil, errors.Wrap(err, "decode group")
	}
	return &Group{Denomination: denomination, Value: rec.Value, Count: rec.Count}, nil
}

func (l *Ledger) putGroup(g *Group) error {
	data, err := rlp.EncodeToBytes(&groupRecord{g.Value, g.Count})
	if err != nil {
		return err
	}
	return l.groups.Put(denomKey(g.Denomination), data)
}

// ConnectBlock records the mints of the block at height, absorbs the mints
// that reach the required confirmation depth at this height, and takes a
// checkpoint if height is a checkpoint height.
func (l *Ledger) ConnectBlock(height uint32, mints []*block.Mint) (*Effects, error) {
	var effects Effects
	if len(mints) > 0 {
		for _, m := range mints {
			if _, dup, err := l.HasMint(m.Denomination, m.Commitment); err != nil {
				return nil, err
			} else if dup {
				return nil, kts.Structural("duplicate mint commitment %#x", m.Commitment)
			}
			if err := l.index.Put(mintKey(m.Denomination, m.Commitment), heightKey(height)); err != nil {
				return nil, errors.Wrap(err, "put mint index")
			}
		}
		data, err := rlp.EncodeToBytes(mints)
		if err != nil {
			return nil, err
		}
		if err := l.mints.Put(heightKey(height), data); err != nil {
			return nil, errors.Wrap(err, "put mints")
		}
		effects.Recorded = len(mints)
	}

	if conf := l.params.Zerocoin.MintRequiredConfirmations; height >= conf {
		confirmed, err := l.MintsAt(height - conf)
		if err != nil {
			return nil, err
		}
		for _, m := range confirmed {
			if err := l.Absorb(m); err != nil {
				return nil, err
			}
		}
		effects.Absorbed = len(confirmed)
	}

	if l.params.IsCheckpointHeight(height) {
		if err := l.Checkpoint(height); err != nil {
			return nil, err
		}
		effects.Checkpointed = true
	}
	return &effects, nil
}

// MintsAt returns the mints recorded at height.
func (l *Ledger) MintsAt(height uint32) ([]*block.Mint, error) {
	data, err := l.mints.Get(heightKey(height))
	if err != nil {
		if l.mints.IsNotFound(err) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "get mints")
	}
	var mints []*block.Mint
	if err := rlp.DecodeBytes(data, &mints); err != nil {
		return nil, errors.Wrap(err, "decode mints")
	}
	return mints, nil
}

// Absorb accumulates the mint into the group of its denomination.
func (l *Ledger) Absorb(m *block.Mint) error {
	g, err := l.Group(m.Denomination)
	if err != nil {
		return err
	}
	g.Value = zerocoin.Accumulate(l.params.Modulus(), g.Value, m.Commitment)
	g.Count++
	return l.putGroup(g)
}

// Checkpoint records the current value of every group at height.
func (l *Ledger) Checkpoint(height uint32) error {
	entries := make([]checkpointEntry, 0, len(l.params.Zerocoin.Denominations))
	for _, d := range l.params.Zerocoin.Denominations {
		g, err := l.Group(d)
		if err != nil {
			return err
		}
		entries = append(entries, checkpointEntry{d, g.Value})
	}
	data, err := rlp.EncodeToBytes(entries)
	if err != nil {
		return err
	}
	if err := l.checkpoints.Put(heightKey(height), data); err != nil {
		return errors.Wrap(err, "put checkpoint")
	}
	logger.Debug("accumulator checkpoint", "height", height)
	return nil
}

// WitnessAt returns the accumulator value of the denomination recorded at the
// checkpoint height.
func (l *Ledger) WitnessAt(denomination uint64, checkpoint uint32) (*big.Int, error) {
	data, err := l.checkpoints.Get(heightKey(checkpoint))
	if err != nil {
		if l.checkpoints.IsNotFound(err) {
			return nil, kts.Reject(kts.ReasonUnknownCheckpt, "no checkpoint at %v", checkpoint)
		}
		return nil, errors.Wrap(err, "get checkpoint")
	}
	var entries []checkpointEntry
	if err := rlp.DecodeBytes(data, &entries); err != nil {
		return nil, errors.Wrap(err, "decode checkpoint")
	}
	for _, e := range entries {
		if e.Denomination == denomination {
			return e.Value, nil
		}
	}
	return nil, kts.Reject(kts.ReasonUnknownCheckpt, "no denomination %v at checkpoint %v", denomination, checkpoint)
}

// LatestCheckpoint returns the highest checkpoint height not above height.
func (l *Ledger) LatestCheckpoint(height uint32) (uint32, bool, error) {
	r := kv.Range{}
	if height < math.MaxUint32 {
		r.Limit = heightKey(height + 1)
	}
	it := l.checkpoints.Iterate(r)
	defer it.Release()

	if it.Last() {
		return binary.BigEndian.Uint32(it.Key()), true, nil
	}
	return 0, false, it.Error()
}

// Checkpoints returns the checkpoint heights in [from, to], in ascending order.
func (l *Ledger) Checkpoints(from, to uint32) ([]uint32, error) {
	r := kv.Range{Start: heightKey(from)}
	if to < math.MaxUint32 {
		r.Limit = heightKey(to + 1)
	}
	it := l.checkpoints.Iterate(r)
	defer it.Release()

	var heights []uint32
	for it.Next() {
		heights = append(heights, binary.BigEndian.Uint32(it.Key()))
	}
	return heights, it.Error()
}

// CheckFreshness tests that a spend at height may reference checkpoint. The
// checkpoint may be at most MaxCheckpointAge blocks old, the bound included.
func (l *Ledger) CheckFreshness(checkpoint, height uint32) error {
	if checkpoint > height {
		return kts.Reject(kts.ReasonUnknownCheckpt, "checkpoint %v above height %v", checkpoint, height)
	}
	if age, maxAge := height-checkpoint, l.params.MaxCheckpointAge(); age > maxAge {
		return kts.Reject(kts.ReasonStaleCheckpoint, "checkpoint %v is %v blocks old, max %v", checkpoint, age, maxAge)
	}
	has, err := l.checkpoints.Has(heightKey(checkpoint))
	if err != nil {
		return errors.Wrap(err, "has checkpoint")
	}
	if !has {
		return kts.Reject(kts.ReasonUnknownCheckpt, "no checkpoint at %v", checkpoint)
	}
	return nil
}

// HasMint returns the height of the mint of commitment, if it is known.
func (l *Ledger) HasMint(denomination uint64, commitment *big.Int) (uint32, bool, error) {
	data, err := l.index.Get(mintKey(denomination, commitment))
	if err != nil {
		if l.index.IsNotFound(err) {
			return 0, false, nil
		}
		return 0, false, errors.Wrap(err, "get mint index")
	}
	return binary.BigEndian.Uint32(data), true, nil
}

func heightKey(h uint32) []byte {
	return binary.BigEndian.AppendUint32(nil, h)
}

func denomKey(n uint64) []byte {
	return binary.BigEndian.AppendUint64(nil, n)
}

func mintKey(denomination uint64, commitment *big.Int) []byte {
	var d [8]byte
	binary.BigEndian.PutUint64(d[:], denomination)
	return kts.Blake2b(d[:], commitment.Bytes()).Bytes()
}
