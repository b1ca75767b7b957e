// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package spend validates zerocoin mints and spends against the chain state.
//
// Validation is split in two phases. Prepare runs the checks that read state
// (serial uniqueness, checkpoint freshness, mint lookup) and must run in
// order. The returned Job holds everything proof verification needs, so Verify
// is pure and jobs may be verified in parallel.
package spend

import (
	"math/big"

	"github.com/pw512/klimatas-core/accumulator"
	"github.com/pw512/klimatas-core/activation"
	"github.com/pw512/klimatas-core/block"
	"github.com/pw512/klimatas-core/kts"
	"github.com/pw512/klimatas-core/log"
	"github.com/pw512/klimatas-core/params"
	"github.com/pw512/klimatas-core/serials"
	"github.com/pw512/klimatas-core/zerocoin"
)

var logger = log.WithContext("pkg", "spend")

// View is the chain state spends are validated against.
type View struct {
	Ledger  *accumulator.Ledger
	Serials *serials.Set
}

// Validator validates mints and spends. It is safe for concurrent use.
type Validator struct {
	params *params.Params
	proofs *zerocoin.VerifiedCache
}

// NewValidator creates a validator. proofs is optional.
func NewValidator(p *params.Params, proofs *zerocoin.VerifiedCache) *Validator {
	metricCompromisedSupply().Set(int64(p.FraudWindow.CompromisedSupply))
	return &Validator{params: p, proofs: proofs}
}

// CheckTx checks the shape of a tx under the variant.
func (v *Validator) CheckTx(tx *block.Tx, variant activation.Variant) error {
	if (len(tx.Mints) > 0 || len(tx.Spends) > 0) && variant.Spends == activation.SpendNone {
		return kts.Reject(kts.ReasonZerocoinInactive, "tx %v", tx.ID().AbbrevString())
	}
	var public, private int
	for _, s := range tx.Spends {
		if s.Type == block.SpendPublic {
			public++
		} else {
			private++
		}
	}
	z := &v.params.Zerocoin
	if private > z.MaxSpendsPerTx {
		return kts.Structural("%v private spends in tx, max %v", private, z.MaxSpendsPerTx)
	}
	if public > z.MaxPublicSpendsPerTx {
		return kts.Structural("%v public spends in tx, max %v", public, z.MaxPublicSpendsPerTx)
	}
	for _, m := range tx.Mints {
		if err := v.CheckMint(m, variant); err != nil {
			return err
		}
	}
	return nil
}

// CheckMint checks the shape of a mint under the variant.
func (v *Validator) CheckMint(m *block.Mint, variant activation.Variant) error {
	if variant.Spends == activation.SpendNone {
		return kts.Reject(kts.ReasonZerocoinInactive, "mint")
	}
	if !v.params.IsValidDenomination(m.Denomination) {
		return kts.Structural("invalid mint denomination %v", m.Denomination)
	}
	if !zerocoin.IsValidCommitment(m.Commitment) {
		return kts.Structural("invalid mint commitment")
	}
	return nil
}

// checkShape tests the spend fields and its version and type against the variant.
func (v *Validator) checkShape(s *block.Spend, variant activation.Variant) error {
	if variant.Spends == activation.SpendNone {
		return kts.Reject(kts.ReasonZerocoinInactive, "%v", s)
	}
	if s.Serial == nil || s.Serial.Sign() < 0 {
		return kts.Structural("missing serial")
	}
	if !v.params.IsValidDenomination(s.Denomination) {
		return kts.Structural("invalid spend denomination %v", s.Denomination)
	}

	switch s.Type {
	case block.SpendPublic:
		if variant.Spends < activation.SpendPublic {
			return kts.Reject(kts.ReasonPublicInactive, "%v", s)
		}
		if s.Version != block.SpendVersion2 {
			return kts.Structural("public spend version %v", s.Version)
		}
	case block.SpendPrivate:
		switch s.Version {
		case block.SpendVersion1:
			if variant.Spends >= activation.SpendV2 {
				return kts.Reject(kts.ReasonSpendObsolete, "%v", s)
			}
		case block.SpendVersion2:
			if variant.Spends < activation.SpendV2 {
				return kts.Structural("spend version 2 not active")
			}
		default:
			return kts.Structural("unknown spend version %v", s.Version)
		}
		if !v.params.Zerocoin.Security.Allows(s.Security) {
			return kts.Structural("security level %v out of [%v, %v]",
				s.Security, v.params.Zerocoin.Security.Min, v.params.Zerocoin.Security.Max)
		}
	default:
		return kts.Structural("unknown spend type %v", s.Type)
	}
	return nil
}

// Prepare runs the state-dependent checks of the spend at pos and returns
// the job verifying its proof.
func (v *Validator) Prepare(view View, s *block.Spend, pos activation.ChainPosition, variant activation.Variant) (*Job, error) {
	if err := v.checkShape(s, variant); err != nil {
		return nil, err
	}

	spent, err := view.Serials.Has(s.Serial)
	if err != nil {
		return nil, err
	}
	if spent {
		return nil, kts.Reject(kts.ReasonDoubleSerial, "serial %#x", s.Serial)
	}

	job := &Job{
		validator: v,
		spend:     s,
		height:    pos.Height,
		variant:   variant,
	}

	if s.Type == block.SpendPublic {
		reveal, err := zerocoin.DecodeReveal(s.Proof)
		if err != nil {
			return nil, err
		}
		mintHeight, ok, err := view.Ledger.HasMint(s.Denomination, reveal.Commitment)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, kts.Reject(kts.ReasonProofInvalid, "unknown mint")
		}
		if conf := v.params.Zerocoin.MintRequiredConfirmations; mintHeight+conf > pos.Height {
			return nil, kts.Reject(kts.ReasonProofInvalid, "mint at %v not confirmed at %v", mintHeight, pos.Height)
		}
		job.reveal = reveal
		job.origin = mintHeight
		return job, nil
	}

	if err := view.Ledger.CheckFreshness(s.Checkpoint, pos.Height); err != nil {
		return nil, err
	}
	if r := &v.params.Zerocoin.Recalculation; r.Taints(pos.Height, s.Checkpoint) {
		return nil, kts.Reject(kts.ReasonTaintedCheckpt, "checkpoint %v predates recalculation at %v", s.Checkpoint, r.Height)
	}
	acc, err := view.Ledger.WitnessAt(s.Denomination, s.Checkpoint)
	if err != nil {
		return nil, err
	}
	proof, err := zerocoin.DecodeProof(s.Proof)
	if err != nil {
		return nil, err
	}
	job.statement = Statement(s, acc)
	job.proof = proof
	job.origin = s.Checkpoint
	return job, nil
}

// Validate fully validates the spend and inserts its serial into the view.
func (v *Validator) Validate(view View, s *block.Spend, pos activation.ChainPosition, variant activation.Variant) error {
	job, err := v.Prepare(view, s, pos, variant)
	if err != nil {
		return err
	}
	if err := job.Verify(); err != nil {
		return err
	}
	return job.Apply(view)
}

// Statement returns the statement the proof of a private spend is bound to.
func Statement(s *block.Spend, acc *big.Int) *zerocoin.Statement {
	return &zerocoin.Statement{
		Accumulator:  acc,
		Serial:       s.Serial,
		Denomination: s.Denomination,
		Checkpoint:   s.Checkpoint,
		Security:     s.Security,
	}
}

// Job is a prepared spend.
type Job struct {
	validator *Validator
	spend     *block.Spend
	height    uint32
	origin    uint32 // height the spent coin is attributed to
	variant   activation.Variant

	statement *zerocoin.Statement
	proof     *zerocoin.Proof
	reveal    *zerocoin.Reveal
}

// Spend returns the spend.
func (j *Job) Spend() *block.Spend { return j.spend }

// Verify verifies the proof, then applies the fraud-window override and the
// serial range rule. It reads no state.
func (j *Job) Verify() error {
	var (
		p      = j.validator.params
		s      = j.spend
		q      = p.SerialModulus()
		passed bool
	)
	switch {
	case j.reveal != nil:
		passed = zerocoin.VerifyReveal(s.Serial, j.reveal)
	case j.validator.proofs != nil:
		passed = j.validator.proofs.VerifyMembership(p.Modulus(), j.statement, j.proof)
	default:
		passed = zerocoin.VerifyMembership(p.Modulus(), j.statement, j.proof)
	}
	if !passed {
		return kts.Reject(kts.ReasonProofInvalid, "%v", s)
	}

	if w := &p.FraudWindow; w.Rejects(j.height, j.origin, s.Serial, q) {
		value := s.Denomination * kts.Coin
		metricForgedValue().Add(int64(value))
		logger.Debug("forged serial rejected", "height", j.height, "origin", j.origin, "serial", s.Serial,
			"value", value, "compromised", w.CompromisedSupply)
		return kts.Reject(kts.ReasonForgedSerial, "serial %#x from %v", s.Serial, j.origin)
	}

	if (j.variant.SerialRange || s.Version >= block.SpendVersion2) && !zerocoin.IsCanonicalSerial(s.Serial, q) {
		return kts.Reject(kts.ReasonSerialRange, "serial %#x", s.Serial)
	}
	return nil
}

// Apply marks the serial spent in the view.
func (j *Job) Apply(view View) error {
	return view.Serials.Insert(j.spend.Serial, j.height)
}
