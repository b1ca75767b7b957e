// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package params defines the consensus parameters of every known network.
//
// A Params value is read-only once constructed. Components receive it
// explicitly; tests derive modified copies with With or swap a registered
// network for the duration of a test with Override.
package params

import (
	"encoding/binary"
	"fmt"
	"maps"
	"math/big"
	"slices"
	"strings"

	"github.com/pw512/klimatas-core/kts"
)

// Activations holds the height (or time) at which each rule-set variant
// becomes mandatory. kts.Never disables a rule, zero makes it always active.
type Activations struct {
	LastPoWBlock       uint32 `yaml:"lastPoWBlock"`
	TimeProtocolV2     uint32 `yaml:"timeProtocolV2"`
	StakeModifierV2    uint32 `yaml:"stakeModifierV2"`
	NewSignatures      uint32 `yaml:"newSignatures"`
	ZerocoinStart      uint32 `yaml:"zerocoinStart"`
	ZerocoinStartTime  uint64 `yaml:"zerocoinStartTime"`
	ZerocoinV2         uint32 `yaml:"zerocoinV2"`
	EnforceSerialRange uint32 `yaml:"enforceSerialRange"`
	PublicSpends       uint32 `yaml:"publicSpends"`
}

func (a Activations) String() string {
	var strs []string
	push := func(name string, blockNum uint32) {
		if blockNum != kts.Never {
			strs = append(strs, fmt.Sprintf("%v: #%v", name, blockNum))
		}
	}

	push("LastPoW", a.LastPoWBlock)
	push("TimeV2", a.TimeProtocolV2)
	push("ModifierV2", a.StakeModifierV2)
	push("NewSigs", a.NewSignatures)
	push("Zerocoin", a.ZerocoinStart)
	push("ZerocoinV2", a.ZerocoinV2)
	push("SerialRange", a.EnforceSerialRange)
	push("PublicSpends", a.PublicSpends)

	return strings.Join(strs, ", ")
}

// Stake holds the proof-of-stake parameters.
type Stake struct {
	MinAge           uint64 `yaml:"minAge"`           // seconds an output must age before staking
	MinDepth         uint32 `yaml:"minDepth"`         // blocks an output must be buried before staking
	TimeSlotLength   uint64 `yaml:"timeSlotLength"`   // seconds, time protocol v2
	FutureDriftPoS   uint64 `yaml:"futureDriftPoS"`   // seconds, time protocol v1 stake blocks
	FutureDriftPoW   uint64 `yaml:"futureDriftPoW"`   // seconds, work blocks
	ModifierInterval uint64 `yaml:"modifierInterval"` // seconds between legacy modifier rotations
	Limit            uint32 `yaml:"limit"`            // compact target limit, time protocol v1
	LimitV2          uint32 `yaml:"limitV2"`          // compact target limit, time protocol v2
}

// Security is the security-level table for private spends.
type Security struct {
	Min     uint32 `yaml:"min"`
	Max     uint32 `yaml:"max"`
	Default uint32 `yaml:"default"`
}

// Allows returns whether the level is within the table.
func (s Security) Allows(level uint32) bool {
	return level >= s.Min && level <= s.Max
}

// Zerocoin holds the accumulator and spend parameters.
type Zerocoin struct {
	Modulus                   *Int          `yaml:"modulus"`
	AccumulatorBase           *Int          `yaml:"accumulatorBase"`
	SerialModulus             *Int          `yaml:"serialModulus"`
	Denominations             []uint64      `yaml:"denominations"` // value tiers, in coins
	MintRequiredConfirmations uint32        `yaml:"mintRequiredConfirmations"`
	CheckpointInterval        uint32        `yaml:"checkpointInterval"`
	MaxCheckpointCycles       uint32        `yaml:"maxCheckpointCycles"`
	LastAccumulatorCheckpoint uint32        `yaml:"lastAccumulatorCheckpoint"`
	Security                  Security      `yaml:"security"`
	MaxSpendsPerTx            int           `yaml:"maxSpendsPerTx"`
	MaxPublicSpendsPerTx      int           `yaml:"maxPublicSpendsPerTx"`
	Recalculation             Recalculation `yaml:"recalculation"`
}

// Params is the full parameter set of a network.
type Params struct {
	Name           string                 `yaml:"name"`
	GenesisID      kts.Bytes32            `yaml:"genesisID"`
	GenesisTime    uint64                 `yaml:"genesisTime"`
	Checkpoints    map[uint32]kts.Bytes32 `yaml:"checkpoints,omitempty"` // height => block id
	MaxMoney       uint64                 `yaml:"maxMoney"`              // base units
	Activations    Activations            `yaml:"activations"`
	Stake          Stake                  `yaml:"stake"`
	Zerocoin       Zerocoin               `yaml:"zerocoin"`
	FraudWindow    FraudWindow            `yaml:"fraudWindow"`
	InvalidOutputs InvalidOutputs         `yaml:"invalidOutputs"`
	MaxReorgDepth  uint32                 `yaml:"maxReorgDepth"`
}

// FutureBlockTimeDrift returns the allowed future drift in seconds.
func (p *Params) FutureBlockTimeDrift(proofOfStake, timeV2 bool) uint64 {
	switch {
	case !proofOfStake:
		return p.Stake.FutureDriftPoW
	case timeV2:
		return p.Stake.TimeSlotLength - 1
	default:
		return p.Stake.FutureDriftPoS
	}
}

// StakeLimit returns the compact proof-of-stake target limit.
func (p *Params) StakeLimit(timeV2 bool) uint32 {
	if timeV2 {
		return p.Stake.LimitV2
	}
	return p.Stake.Limit
}

// IsValidDenomination returns whether d is one of the value tiers.
func (p *Params) IsValidDenomination(d uint64) bool {
	return slices.Contains(p.Zerocoin.Denominations, d)
}

// IsCheckpointHeight returns whether the accumulators are checkpointed at height h.
func (p *Params) IsCheckpointHeight(h uint32) bool {
	return h%p.Zerocoin.CheckpointInterval == 0 && h <= p.Zerocoin.LastAccumulatorCheckpoint
}

// MaxCheckpointAge returns the maximum age in blocks of a checkpoint a spend may reference.
func (p *Params) MaxCheckpointAge() uint32 {
	return p.Zerocoin.MaxCheckpointCycles * p.Zerocoin.CheckpointInterval
}

// LastCheckpoint returns the highest hard-coded block checkpoint.
func (p *Params) LastCheckpoint() (uint32, bool) {
	if len(p.Checkpoints) == 0 {
		return 0, false
	}
	return slices.Max(slices.Collect(maps.Keys(p.Checkpoints))), true
}

// Modulus returns the accumulator modulus. The result must not be modified.
func (p *Params) Modulus() *big.Int { return p.Zerocoin.Modulus.Big() }

// AccumulatorBase returns the initial accumulator value. The result must not be modified.
func (p *Params) AccumulatorBase() *big.Int { return p.Zerocoin.AccumulatorBase.Big() }

// SerialModulus returns the order of the serial group. The result must not be modified.
func (p *Params) SerialModulus() *big.Int { return p.Zerocoin.SerialModulus.Big() }

// Copy returns a deep copy.
func (p *Params) Copy() *Params {
	cpy := *p
	cpy.Zerocoin.Modulus = p.Zerocoin.Modulus.Copy()
	cpy.Zerocoin.AccumulatorBase = p.Zerocoin.AccumulatorBase.Copy()
	cpy.Zerocoin.SerialModulus = p.Zerocoin.SerialModulus.Copy()
	cpy.Zerocoin.Denominations = slices.Clone(p.Zerocoin.Denominations)
	cpy.FraudWindow.Serials = make([]*Int, 0, len(p.FraudWindow.Serials))
	for _, s := range p.FraudWindow.Serials {
		cpy.FraudWindow.Serials = append(cpy.FraudWindow.Serials, s.Copy())
	}
	cpy.Checkpoints = maps.Clone(p.Checkpoints)
	cpy.InvalidOutputs.Outpoints = slices.Clone(p.InvalidOutputs.Outpoints)
	return &cpy
}

// With returns a modified copy of p. The receiver is left untouched.
func (p *Params) With(fn func(*Params)) *Params {
	cpy := p.Copy()
	fn(cpy)
	return cpy
}

// Validate checks the internal consistency of the parameters. Inconsistent
// parameters are a consensus fatal condition.
func (p *Params) Validate() error {
	z := &p.Zerocoin
	a := &p.Activations
	switch {
	case p.Name == "":
		return kts.Fatal("params: empty network name")
	case binary.BigEndian.Uint32(p.GenesisID[:4]) != 0:
		return kts.Fatal("params: genesis id %v must encode height 0", p.GenesisID)
	case p.MaxMoney == 0:
		return kts.Fatal("params: max money must be positive")
	case p.FraudWindow.CompromisedSupply > p.MaxMoney:
		return kts.Fatal("params: compromised supply %v above max money", p.FraudWindow.CompromisedSupply)
	case p.InvalidOutputs.FilteredAmount > p.MaxMoney:
		return kts.Fatal("params: filtered amount %v above max money", p.InvalidOutputs.FilteredAmount)
	case len(p.InvalidOutputs.Outpoints) == 0 && p.InvalidOutputs.FilteredAmount != 0:
		return kts.Fatal("params: filtered amount without invalid outputs")
	case p.MaxReorgDepth == 0:
		return kts.Fatal("params: max reorg depth must be positive")
	case p.Stake.TimeSlotLength == 0:
		return kts.Fatal("params: time slot length must be positive")
	case p.Stake.ModifierInterval == 0:
		return kts.Fatal("params: modifier interval must be positive")
	case z.CheckpointInterval == 0:
		return kts.Fatal("params: checkpoint interval must be positive")
	case z.Modulus == nil || z.AccumulatorBase == nil || z.SerialModulus == nil:
		return kts.Fatal("params: missing zerocoin group parameters")
	case z.AccumulatorBase.Big().Cmp(big.NewInt(1)) <= 0 || z.Modulus.Big().Cmp(z.AccumulatorBase.Big()) <= 0:
		return kts.Fatal("params: accumulator base must lie in (1, modulus)")
	case z.SerialModulus.Big().Sign() <= 0:
		return kts.Fatal("params: serial modulus must be positive")
	case len(z.Denominations) == 0:
		return kts.Fatal("params: no denominations")
	case z.Security.Min == 0 || z.Security.Min > z.Security.Default || z.Security.Default > z.Security.Max:
		return kts.Fatal("params: security table must satisfy 0 < min <= default <= max")
	case z.MaxSpendsPerTx <= 0 || z.MaxPublicSpendsPerTx <= 0:
		return kts.Fatal("params: spends per tx must be positive")
	case a.ZerocoinStart > a.ZerocoinV2 || a.ZerocoinV2 > a.PublicSpends:
		return kts.Fatal("params: spend protocol activations out of order: %v", a)
	case p.FraudWindow.StartHeight > p.FraudWindow.EndHeight:
		return kts.Fatal("params: fraud window start %v after end %v", p.FraudWindow.StartHeight, p.FraudWindow.EndHeight)
	}
	for i := 1; i < len(z.Denominations); i++ {
		if z.Denominations[i] <= z.Denominations[i-1] {
			return kts.Fatal("params: denominations must be strictly increasing")
		}
	}
	if z.Denominations[0] == 0 {
		return kts.Fatal("params: zero denomination")
	}
	if id, ok := p.Checkpoints[0]; ok && id != p.GenesisID {
		return kts.Fatal("params: checkpoint #0 %v is not the genesis", id)
	}
	for h, id := range p.Checkpoints {
		if binary.BigEndian.Uint32(id[:4]) != h {
			return kts.Fatal("params: checkpoint #%v id %v encodes another height", h, id)
		}
	}
	if r := z.Recalculation; r.Height != kts.Never {
		if r.LastGoodCheckpoint >= r.FirstFraudulent || r.FirstFraudulent >= r.Height {
			return kts.Fatal("params: recalculation bounds must satisfy last good < first fraudulent < height")
		}
		if r.LastGoodCheckpoint%z.CheckpointInterval != 0 {
			return kts.Fatal("params: last good checkpoint %v is not a checkpoint height", r.LastGoodCheckpoint)
		}
	}
	return nil
}

func (p *Params) String() string {
	return fmt.Sprintf("%s [%v]", p.Name, p.Activations)
}
