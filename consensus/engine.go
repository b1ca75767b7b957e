// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package consensus evaluates candidate blocks and pending transactions
// against the chain state, and applies accepted blocks.
package consensus

import (
	"context"
	"math/big"
	"runtime"
	"time"

	"github.com/holiman/uint256"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/pw512/klimatas-core/activation"
	"github.com/pw512/klimatas-core/block"
	"github.com/pw512/klimatas-core/chainstate"
	"github.com/pw512/klimatas-core/co"
	"github.com/pw512/klimatas-core/kts"
	"github.com/pw512/klimatas-core/log"
	"github.com/pw512/klimatas-core/params"
	"github.com/pw512/klimatas-core/spend"
	"github.com/pw512/klimatas-core/stake"
	"github.com/pw512/klimatas-core/zerocoin"
)

var logger = log.WithContext("pkg", "consensus")

// OutputView resolves the outputs claimed for staking.
type OutputView interface {
	// Output returns the unspent output, or nil if it is unknown or spent.
	Output(txID kts.Bytes32, index uint32) (*block.Output, error)
}

// Option configures the engine.
type Option func(*Engine)

// WithOutputs sets the view stake claims are checked against. Without it no
// stake block can be evaluated.
func WithOutputs(view OutputView) Option {
	return func(e *Engine) { e.outputs = view }
}

// WithRequiredBits makes the engine check header bits against the expected
// difficulty of each height.
func WithRequiredBits(fn func(height uint32) (uint32, error)) Option {
	return func(e *Engine) { e.requiredBits = fn }
}

// WithProofCache sets the size in bytes of the verified proof cache. Zero
// disables it.
func WithProofCache(sizeBytes int) Option {
	return func(e *Engine) { e.proofCacheSize = sizeBytes }
}

// Engine is the consensus rule engine. Evaluation is safe for concurrent use;
// Connect and Disconnect serialize on the state.
type Engine struct {
	params *params.Params
	state  *chainstate.State
	stakes *stake.Validator
	spends *spend.Validator

	outputs        OutputView
	requiredBits   func(height uint32) (uint32, error)
	proofCacheSize int
}

// New creates an engine over the state.
func New(state *chainstate.State, opts ...Option) *Engine {
	e := &Engine{
		params:         state.Params(),
		state:          state,
		stakes:         stake.NewValidator(state.Params()),
		proofCacheSize: 32 * 1024 * 1024,
	}
	for _, opt := range opts {
		opt(e)
	}
	var proofs *zerocoin.VerifiedCache
	if e.proofCacheSize > 0 {
		proofs = zerocoin.NewVerifiedCache(e.proofCacheSize)
	}
	e.spends = spend.NewValidator(e.params, proofs)
	return e
}

// Tip returns the current tip.
func (e *Engine) Tip() *chainstate.Summary {
	return e.state.Tip()
}

// Evaluate evaluates the block as the child of the current tip. Effects of
// an accepted block are staged in the verdict and applied by Commit; a
// verdict that is not committed must be released.
func (e *Engine) Evaluate(blk *block.Block, now uint64) *Verdict {
	start := time.Now()

	st, err := e.state.NewStage()
	if err != nil {
		return &Verdict{Block: blk, Err: err}
	}
	effects, err := e.evaluate(st, blk, now)
	if err != nil {
		st.Release()
	}
	v := newVerdict(blk, effects, err)

	metricEvaluateDuration().Observe(time.Since(start).Microseconds())
	countEvaluation("block", err)
	if err != nil {
		logger.Debug("block rejected", "id", blk.Header().ID(), "number", blk.Header().Number(), "err", err)
	}
	return v
}

// EvaluateBatch evaluates independent candidates in parallel. Verdicts are
// returned in the order of blks. Candidates not started when ctx is done get
// a verdict carrying the context error; started ones always complete.
func (e *Engine) EvaluateBatch(ctx context.Context, blks []*block.Block, now uint64) []*Verdict {
	verdicts := make([]*Verdict, len(blks))

	var g errgroup.Group
	g.SetLimit(runtime.NumCPU())
	for i, blk := range blks {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				verdicts[i] = &Verdict{Block: blk, Err: err}
				return nil
			}
			verdicts[i] = e.Evaluate(blk, now)
			return nil
		})
	}
	_ = g.Wait()
	return verdicts
}

// Commit applies the effects of an accepted verdict. The verdict is released.
func (e *Engine) Commit(v *Verdict) error {
	if !v.Accepted {
		return errNotAccepted
	}
	if v.Effects.stage == nil {
		return errReleased
	}
	defer v.Release()

	if err := e.state.Commit(v.Effects.stage); err != nil {
		return err
	}
	metricTipHeight().Set(int64(v.Effects.Tip.Height))
	logger.Info("block connected",
		"number", v.Effects.Tip.Height,
		"id", v.Effects.Tip.ID,
		"spends", len(v.Effects.Serials),
		"mints", v.Effects.Mints,
		"absorbed", v.Effects.Absorbed)
	return nil
}

// Connect evaluates the block and applies it if accepted. A rejection is
// reported by the verdict; the error is for conditions that are not a verdict
// on the block, like storage failures or a parent that is not the tip.
func (e *Engine) Connect(blk *block.Block, now uint64) (*Verdict, error) {
	v := e.Evaluate(blk, now)
	if v.Err != nil {
		if kts.IsVerdict(v.Err) {
			return v, nil
		}
		return v, v.Err
	}
	if err := e.Commit(v); err != nil {
		return v, err
	}
	return v, nil
}

// Disconnect rolls back the tip block and returns the new tip. Rolling back
// beyond the max reorg depth is a fatal error.
func (e *Engine) Disconnect() (*chainstate.Summary, error) {
	from := e.state.Tip()
	tip, err := e.state.Rollback()
	if err != nil {
		metricDisconnects().AddWithLabel(1, map[string]string{"result": "error"})
		if kts.IsFatal(err) {
			logger.Error("disconnect refused", "tip", from, "err", err)
		}
		return nil, err
	}
	metricDisconnects().AddWithLabel(1, map[string]string{"result": "ok"})
	metricTipHeight().Set(int64(tip.Height))
	return tip, nil
}

// EvaluateTx evaluates a pending tx as if included in the child of the tip
// at time now.
func (e *Engine) EvaluateTx(tx *block.Tx, now uint64) error {
	err := e.evaluateTx(tx, now)
	countEvaluation("tx", err)
	return err
}

func (e *Engine) evaluateTx(tx *block.Tx, now uint64) error {
	st, err := e.state.NewStage()
	if err != nil {
		return err
	}
	defer st.Release()

	pos := activation.ChainPosition{Height: st.Base().Height + 1, Time: now}
	variant := activation.VariantAt(e.params, pos)
	if err := e.spends.CheckTx(tx, variant); err != nil {
		return err
	}
	view := spend.View{Ledger: st.Ledger(), Serials: st.Serials()}
	for _, s := range tx.Spends {
		if err := e.spends.Validate(view, s, pos, variant); err != nil {
			return err
		}
	}
	for _, m := range tx.Mints {
		if _, dup, err := view.Ledger.HasMint(m.Denomination, m.Commitment); err != nil {
			return err
		} else if dup {
			return kts.Structural("duplicate mint commitment %#x", m.Commitment)
		}
	}
	return nil
}

func (e *Engine) evaluate(st *chainstate.Stage, blk *block.Block, now uint64) (*Effects, error) {
	header := blk.Header()
	parent := st.Base()

	if header.ParentID() != parent.ID {
		return nil, errors.Wrapf(ErrParentNotTip, "block %v parent %v, tip %v", header.ID(), header.ParentID(), parent)
	}
	if header.Timestamp() <= parent.Time {
		return nil, kts.Reject(kts.ReasonTimeTooOld, "time %v, parent time %v", header.Timestamp(), parent.Time)
	}

	pos := header.Position()
	variant := activation.VariantAt(e.params, pos)
	if err := e.validateHeader(header, parent, variant, now); err != nil {
		return nil, err
	}
	if header.TxsRoot() != blk.Transactions().RootHash() {
		return nil, kts.Structural("txs root mismatch")
	}

	effects, err := e.applyTxs(st, blk.Transactions(), pos, variant)
	if err != nil {
		return nil, err
	}

	tip := &chainstate.Summary{
		ID:     header.ID(),
		Height: pos.Height,
		Time:   pos.Time,
		Bits:   header.Bits(),
		Modifier: stake.NextModifier(
			variant.StakeModifier,
			e.params.Stake.ModifierInterval,
			parent.Modifier,
			header.ID(),
			parent.Time,
			pos.Time),
	}
	if err := st.SetTip(tip); err != nil {
		return nil, err
	}
	effects.stage = st
	effects.Tip = tip
	return effects, nil
}

func (e *Engine) validateHeader(header *block.Header, parent *chainstate.Summary, variant activation.Variant, now uint64) error {
	if id, ok := e.params.Checkpoints[header.Number()]; ok && id != header.ID() {
		return kts.Reject(kts.ReasonCheckpointMatch, "block %v, checkpoint %v", header.ID(), id)
	}
	if e.requiredBits != nil {
		want, err := e.requiredBits(header.Number())
		if err != nil {
			return err
		}
		if header.Bits() != want {
			return kts.Structural("bits %#08x, want %#08x", header.Bits(), want)
		}
	}

	if !variant.ProofOfStake {
		if header.IsProofOfStake() {
			return kts.Structural("stake claim at work height %v", header.Number())
		}
		if drift := e.params.FutureBlockTimeDrift(false, false); header.Timestamp() > now+drift {
			return kts.Reject(kts.ReasonFutureDrift, "time %v beyond now %v + %vs", header.Timestamp(), now, drift)
		}
		target, err := stake.CompactToTarget(header.Bits())
		if err != nil {
			return err
		}
		id := header.ID()
		if target.IsZero() || new(uint256.Int).SetBytes32(id[:]).Gt(target) {
			return kts.Structural("work hash above target %#08x", header.Bits())
		}
		return nil
	}

	claim := header.StakeClaim()
	if claim == nil {
		return kts.Structural("missing stake claim at %v", header.Number())
	}
	if claim.Output.CreationHeight >= claim.BlockHeight {
		return kts.Structural("staked output created at %v, block %v", claim.Output.CreationHeight, claim.BlockHeight)
	}
	if claim.Output.Amount == 0 || claim.Output.Amount > e.params.MaxMoney {
		return kts.Structural("staked amount %v out of range", claim.Output.Amount)
	}
	if e.outputs == nil {
		return errNoOutputs
	}
	out, err := e.outputs.Output(claim.Output.TxID, claim.Output.Index)
	if err != nil {
		return err
	}
	if out == nil || *out != claim.Output {
		return kts.Reject(kts.ReasonUnknownOutput, "%v", &claim.Output)
	}
	if e.params.InvalidOutputs.Rejects(header.Number(), claim.Output.Outpoint()) {
		return kts.Reject(kts.ReasonInvalidOutput, "%v", &claim.Output)
	}
	signer, err := header.Signer(variant.Signatures)
	if err != nil || signer != claim.Output.Owner {
		return kts.Reject(kts.ReasonBadSignature, "signer %v, owner %v", signer, claim.Output.Owner)
	}
	return e.stakes.Validate(claim, header.Bits(), parent.Modifier, variant, now)
}

// applyTxs stages the spends and mints of the block. The state checks run in
// block order and stage each serial before the next spend is checked, so a
// serial spent twice in one block is a double spend. Proofs are verified in
// parallel afterwards; the first failure in block order is reported.
func (e *Engine) applyTxs(st *chainstate.Stage, txs block.Transactions, pos activation.ChainPosition, variant activation.Variant) (*Effects, error) {
	var (
		view    = spend.View{Ledger: st.Ledger(), Serials: st.Serials()}
		jobs    []*spend.Job
		mints   []*block.Mint
		prepErr error
	)
prepare:
	for _, tx := range txs {
		if prepErr = e.spends.CheckTx(tx, variant); prepErr != nil {
			break
		}
		for _, s := range tx.Spends {
			var job *spend.Job
			if job, prepErr = e.spends.Prepare(view, s, pos, variant); prepErr != nil {
				break prepare
			}
			if prepErr = job.Apply(view); prepErr != nil {
				break prepare
			}
			jobs = append(jobs, job)
		}
		mints = append(mints, tx.Mints...)
	}

	if err := verifyJobs(jobs); err != nil {
		return nil, err
	}
	if prepErr != nil {
		return nil, prepErr
	}

	connected, err := view.Ledger.ConnectBlock(pos.Height, mints)
	if err != nil {
		return nil, err
	}

	metricBlockSpends().Observe(int64(len(jobs)))
	metricBlockMints().Observe(int64(len(mints)))

	effects := &Effects{
		Mints:        len(mints),
		Absorbed:     connected.Absorbed,
		Checkpointed: connected.Checkpointed,
	}
	for _, job := range jobs {
		effects.Serials = append(effects.Serials, job.Spend().Serial)
	}
	return effects, nil
}

func verifyJobs(jobs []*spend.Job) error {
	if len(jobs) == 0 {
		return nil
	}
	errs := make([]error, len(jobs))
	<-co.Parallel(func(queue chan<- func()) {
		for i, job := range jobs {
			queue <- func() {
				errs[i] = job.Verify()
			}
		}
	})
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

// Effects are the staged effects of an accepted block.
type Effects struct {
	stage *chainstate.Stage

	Tip          *chainstate.Summary
	Serials      []*big.Int // serials spent by the block
	Mints        int
	Absorbed     int
	Checkpointed bool
}
