// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package params

import (
	"math/big"
	"slices"

	"github.com/pw512/klimatas-core/kts"
)

// FraudWindow is the historical height range in which forged serial numbers
// were accepted. Once the chain reaches RemediationHeight, spends of forged
// serials are rejected regardless of proof validity.
//
// A serial listed in Serials is forged wherever the spent coin comes from.
// A serial not in canonical form (not less than the serial modulus), the
// shape of the forgeries, is forged when the coin originates inside the
// window.
type FraudWindow struct {
	StartHeight       uint32 `yaml:"startHeight"`
	EndHeight         uint32 `yaml:"endHeight"`
	RemediationHeight uint32 `yaml:"remediationHeight"`
	CompromisedSupply uint64 `yaml:"compromisedSupply"` // base units
	Serials           []*Int `yaml:"serials,omitempty"`
}

// NoFraudWindow a window that never matches.
var NoFraudWindow = FraudWindow{
	StartHeight:       kts.Never,
	EndHeight:         kts.Never,
	RemediationHeight: kts.Never,
}

// Covers returns whether origin lies inside the window.
func (w *FraudWindow) Covers(origin uint32) bool {
	return origin >= w.StartHeight && origin <= w.EndHeight
}

// Remediated returns whether the override is in force at height.
func (w *FraudWindow) Remediated(height uint32) bool {
	return height >= w.RemediationHeight
}

// IsListed returns whether the serial is one of the known forgeries.
func (w *FraudWindow) IsListed(serial *big.Int) bool {
	for _, s := range w.Serials {
		if s.Big().Cmp(serial) == 0 {
			return true
		}
	}
	return false
}

// Rejects returns whether a spend of serial, whose coin originates at height
// origin, must be rejected at the given chain height.
func (w *FraudWindow) Rejects(height, origin uint32, serial, serialModulus *big.Int) bool {
	if !w.Remediated(height) {
		return false
	}
	if w.IsListed(serial) {
		return true
	}
	return w.Covers(origin) && serial.Cmp(serialModulus) >= 0
}

// InvalidOutputs lists the outputs created from forged supply. From
// EnforceHeight on they can not stake.
type InvalidOutputs struct {
	EnforceHeight  uint32        `yaml:"enforceHeight"`
	Outpoints      []kts.Bytes32 `yaml:"outpoints,omitempty"`
	FilteredAmount uint64        `yaml:"filteredAmount"` // base units held by the outpoints
}

// Rejects returns whether the outpoint can not stake at height.
func (o *InvalidOutputs) Rejects(height uint32, outpoint kts.Bytes32) bool {
	return height >= o.EnforceHeight && slices.Contains(o.Outpoints, outpoint)
}

// Recalculation bounds the accumulator recalculation that followed the
// fraud. Checkpoints after LastGoodCheckpoint and before Height were computed
// over the fraudulent mints starting at FirstFraudulent, and can not be
// referenced by spends from Height on.
type Recalculation struct {
	FirstFraudulent    uint32 `yaml:"firstFraudulent"`
	LastGoodCheckpoint uint32 `yaml:"lastGoodCheckpoint"`
	Height             uint32 `yaml:"height"`
}

// NoRecalculation never taints a checkpoint.
var NoRecalculation = Recalculation{
	FirstFraudulent:    kts.Never,
	LastGoodCheckpoint: kts.Never,
	Height:             kts.Never,
}

// Taints returns whether a spend at height may not reference checkpoint.
func (r *Recalculation) Taints(height, checkpoint uint32) bool {
	return height >= r.Height && checkpoint > r.LastGoodCheckpoint && checkpoint < r.Height
}
