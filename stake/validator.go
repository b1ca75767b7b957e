// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package stake

import (
	"github.com/holiman/uint256"

	"github.com/pw512/klimatas-core/activation"
	"github.com/pw512/klimatas-core/block"
	"github.com/pw512/klimatas-core/kts"
	"github.com/pw512/klimatas-core/log"
	"github.com/pw512/klimatas-core/params"
)

var logger = log.WithContext("pkg", "stake")

// Validator checks stake claims. It holds no state besides the params and is
// safe for concurrent use.
type Validator struct {
	params *params.Params
}

// NewValidator creates a stake validator.
func NewValidator(p *params.Params) *Validator {
	return &Validator{params: p}
}

// Validate checks the claim, staked against the compact target bits with the
// given stake modifier, under the variant active at the claim's position.
// now is the local adjusted time, used to bound future drift.
func (v *Validator) Validate(
	claim *block.StakeClaim,
	bits uint32,
	modifier kts.Bytes32,
	variant activation.Variant,
	now uint64,
) error {
	if err := v.CheckAge(claim); err != nil {
		return err
	}
	if err := v.CheckTime(claim.BlockTime, variant, now); err != nil {
		return err
	}
	target, err := v.Target(bits, variant)
	if err != nil {
		return err
	}

	kernel := Kernel(variant.StakeModifier, modifier, claim)
	if !HitsTarget(kernel, target, claim.Output.Amount) {
		return kts.Reject(kts.ReasonKernelAbove, "kernel %v, bits %#08x, amount %v", kernel.AbbrevString(), bits, claim.Output.Amount)
	}
	logger.Trace("stake kernel hit",
		"height", claim.BlockHeight,
		"output", claim.Output.Outpoint().AbbrevString(),
		"kernel", kernel.AbbrevString(),
		"modifier", variant.StakeModifier)
	return nil
}

// CheckAge tests the minimum age OR the minimum depth of the staked output.
func (v *Validator) CheckAge(claim *block.StakeClaim) error {
	s := &v.params.Stake

	if claim.Output.CreationTime+s.MinAge <= claim.BlockTime {
		return nil
	}
	if claim.Depth() >= s.MinDepth {
		return nil
	}
	return kts.Reject(kts.ReasonStaleStake, "age %vs < %vs and depth %v < %v",
		claim.Age(), s.MinAge, claim.Depth(), s.MinDepth)
}

// CheckTime tests slot alignment under time protocol v2 and the future drift
// bound of a stake block.
func (v *Validator) CheckTime(blockTime uint64, variant activation.Variant, now uint64) error {
	timeV2 := variant.TimeProtocol == activation.TimeV2
	if timeV2 && blockTime%v.params.Stake.TimeSlotLength != 0 {
		return kts.Reject(kts.ReasonBadTimeSlot, "time %v not aligned to %vs slots", blockTime, v.params.Stake.TimeSlotLength)
	}
	if drift := v.params.FutureBlockTimeDrift(true, timeV2); blockTime > now+drift {
		return kts.Reject(kts.ReasonFutureDrift, "time %v beyond now %v + %vs", blockTime, now, drift)
	}
	return nil
}

// Target decodes bits and checks it against the limit of the variant.
func (v *Validator) Target(bits uint32, variant activation.Variant) (*uint256.Int, error) {
	target, err := CompactToTarget(bits)
	if err != nil {
		return nil, err
	}
	if target.IsZero() {
		return nil, kts.Structural("zero stake target")
	}
	limit, err := CompactToTarget(v.params.StakeLimit(variant.TimeProtocol == activation.TimeV2))
	if err != nil {
		return nil, err
	}
	if target.Gt(limit) {
		return nil, kts.Structural("stake target %#08x above limit", bits)
	}
	return target, nil
}
