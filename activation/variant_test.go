// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package activation

import (
	"math/rand/v2"
	"testing"

	fuzz "github.com/google/gofuzz"
	"github.com/stretchr/testify/assert"

	"github.com/pw512/klimatas-core/kts"
	"github.com/pw512/klimatas-core/params"
)

func TestVariantAtMainNet(t *testing.T) {
	p := params.MainNet()
	a := p.Activations

	tests := []struct {
		name string
		pos  ChainPosition
		want Variant
	}{
		{"genesis", ChainPosition{0, p.GenesisTime}, Variant{false, TimeV1, ModifierV1, SigLegacy, SpendNone, false}},
		{"first stake, zerocoin time not reached", ChainPosition{a.LastPoWBlock + 1, a.ZerocoinStartTime - 1}, Variant{true, TimeV1, ModifierV1, SigLegacy, SpendNone, false}},
		{"zerocoin v1", ChainPosition{a.ZerocoinStart, a.ZerocoinStartTime}, Variant{true, TimeV1, ModifierV1, SigLegacy, SpendV1, false}},
		{"zerocoin v2", ChainPosition{a.ZerocoinV2, a.ZerocoinStartTime}, Variant{true, TimeV1, ModifierV1, SigLegacy, SpendV2, false}},
		{"serial range", ChainPosition{a.EnforceSerialRange, a.ZerocoinStartTime}, Variant{true, TimeV1, ModifierV1, SigLegacy, SpendV2, true}},
		{"time v2", ChainPosition{a.TimeProtocolV2, a.ZerocoinStartTime}, Variant{true, TimeV2, ModifierV2, SigLegacy, SpendV2, true}},
		{"new sigs", ChainPosition{a.NewSignatures, a.ZerocoinStartTime}, Variant{true, TimeV2, ModifierV2, SigNew, SpendV2, true}},
		{"public", ChainPosition{a.PublicSpends, a.ZerocoinStartTime}, Variant{true, TimeV2, ModifierV2, SigNew, SpendPublic, true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, VariantAt(p, tt.pos))
		})
	}
}

func TestVariantAtThresholdsUniform(t *testing.T) {
	always := params.RegTest()
	assert.Equal(t, Variant{false, TimeV2, ModifierV2, SigNew, SpendPublic, true}, VariantAt(always, ChainPosition{}))
	assert.True(t, VariantAt(always, ChainPosition{Height: 1}).ProofOfStake)

	never := always.With(func(p *params.Params) {
		p.Activations = params.Activations{
			LastPoWBlock:       kts.Never,
			TimeProtocolV2:     kts.Never,
			StakeModifierV2:    kts.Never,
			NewSignatures:      kts.Never,
			ZerocoinStart:      kts.Never,
			ZerocoinV2:         kts.Never,
			EnforceSerialRange: kts.Never,
			PublicSpends:       kts.Never,
		}
	})
	assert.Equal(t, Variant{false, TimeV1, ModifierV1, SigLegacy, SpendNone, false}, VariantAt(never, ChainPosition{kts.Never - 1, 1 << 40}))
}

func TestVariantAtDeterministic(t *testing.T) {
	f := fuzz.New().NilChance(0)
	for range 50 {
		p := params.RegTest()
		f.Fuzz(&p.Activations)

		positions := make([]ChainPosition, 64)
		for i := range positions {
			f.Fuzz(&positions[i])
		}
		first := make([]Variant, len(positions))
		for i, pos := range positions {
			first[i] = VariantAt(p, pos)
		}

		for _, i := range rand.Perm(len(positions)) { //#nosec G404
			assert.Equal(t, first[i], VariantAt(p, positions[i]))
		}
	}
}

func TestVariantAtMonotonic(t *testing.T) {
	rank := func(v Variant) []int {
		b := 0
		if v.ProofOfStake {
			b = 1
		}
		r := 0
		if v.SerialRange {
			r = 1
		}
		return []int{b, int(v.TimeProtocol), int(v.StakeModifier), int(v.Signatures), int(v.Spends), r}
	}

	p := params.MainNet()
	now := p.Activations.ZerocoinStartTime
	prev := rank(VariantAt(p, ChainPosition{0, now}))
	for h := uint32(1); h < 140000; h += 97 {
		cur := rank(VariantAt(p, ChainPosition{h, now}))
		for i := range cur {
			assert.GreaterOrEqual(t, cur[i], prev[i], "height %v field %v", h, i)
		}
		prev = cur
	}
}
