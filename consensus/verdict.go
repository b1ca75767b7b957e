// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package consensus

import (
	"fmt"

	"github.com/pw512/klimatas-core/block"
	"github.com/pw512/klimatas-core/kts"
)

// Verdict is the outcome of evaluating a candidate block.
type Verdict struct {
	Block    *block.Block
	Accepted bool
	Reason   kts.Reason // set for rejections and structural errors
	Err      error
	Effects  *Effects // staged effects, set if accepted
}

func newVerdict(blk *block.Block, effects *Effects, err error) *Verdict {
	v := &Verdict{Block: blk, Err: err}
	if err == nil {
		v.Accepted = true
		v.Effects = effects
		return v
	}
	v.Reason, _ = kts.ReasonOf(err)
	return v
}

// Release releases the staged effects. It is a no-op for verdicts that were
// not accepted, and safe to call more than once.
func (v *Verdict) Release() {
	if v.Effects != nil && v.Effects.stage != nil {
		v.Effects.stage.Release()
		v.Effects.stage = nil
	}
}

func (v *Verdict) String() string {
	id := v.Block.Header().ID()
	switch {
	case v.Accepted:
		return fmt.Sprintf("accepted %v", id)
	case v.Reason != "":
		return fmt.Sprintf("rejected %v: %v", id, v.Err)
	default:
		return fmt.Sprintf("failed %v: %v", id, v.Err)
	}
}
