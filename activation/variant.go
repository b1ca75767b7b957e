// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package activation maps a chain position to the rule-set variant in force.
package activation

import (
	"fmt"

	"github.com/pw512/klimatas-core/params"
)

// ChainPosition is the (height, time) of a candidate block.
type ChainPosition struct {
	Height uint32
	Time   uint64
}

// TimeProtocol selects block timestamp rules.
type TimeProtocol uint8

// Time protocols.
const (
	TimeV1 TimeProtocol = iota + 1 // free timestamps
	TimeV2                         // fixed time slots
)

// ModifierVersion selects the stake modifier mixing function.
type ModifierVersion uint8

// Stake modifier versions.
const (
	ModifierV1 ModifierVersion = iota + 1
	ModifierV2
)

// SignatureScheme selects how block signatures are formed.
type SignatureScheme uint8

// Signature schemes.
const (
	SigLegacy SignatureScheme = iota + 1
	SigNew
)

// SpendProtocol selects which zerocoin spends are allowed.
type SpendProtocol uint8

// Spend protocols, in activation order.
const (
	SpendNone   SpendProtocol = iota // zerocoin not started
	SpendV1                          // private spends, version 1
	SpendV2                          // private spends, version 2
	SpendPublic                      // version 2 private and public spends
)

func (s SpendProtocol) String() string {
	switch s {
	case SpendNone:
		return "none"
	case SpendV1:
		return "v1"
	case SpendV2:
		return "v2"
	case SpendPublic:
		return "public"
	default:
		return fmt.Sprintf("SpendProtocol(%d)", uint8(s))
	}
}

// Variant is the bundle of consensus policies in force at a chain position.
type Variant struct {
	ProofOfStake  bool
	TimeProtocol  TimeProtocol
	StakeModifier ModifierVersion
	Signatures    SignatureScheme
	Spends        SpendProtocol
	SerialRange   bool // serials must be in canonical form
}

func (v Variant) String() string {
	return fmt.Sprintf("pos=%v time=v%d modifier=v%d sigs=%d spends=%v serial-range=%v",
		v.ProofOfStake, v.TimeProtocol, v.StakeModifier, v.Signatures, v.Spends, v.SerialRange)
}

// VariantAt returns the variant in force at pos. It is a pure function of its
// inputs.
func VariantAt(p *params.Params, pos ChainPosition) Variant {
	a := &p.Activations
	h := pos.Height

	v := Variant{
		ProofOfStake:  h > a.LastPoWBlock,
		TimeProtocol:  TimeV1,
		StakeModifier: ModifierV1,
		Signatures:    SigLegacy,
		Spends:        SpendNone,
		SerialRange:   h >= a.EnforceSerialRange,
	}
	if h >= a.TimeProtocolV2 {
		v.TimeProtocol = TimeV2
	}
	if h >= a.StakeModifierV2 {
		v.StakeModifier = ModifierV2
	}
	if h >= a.NewSignatures {
		v.Signatures = SigNew
	}
	if h >= a.ZerocoinStart && pos.Time >= a.ZerocoinStartTime {
		v.Spends = SpendV1
		if h >= a.ZerocoinV2 {
			v.Spends = SpendV2
		}
		if h >= a.PublicSpends {
			v.Spends = SpendPublic
		}
	}
	return v
}
