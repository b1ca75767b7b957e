// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package kts

import (
	"errors"
	"fmt"
)

// Reason names a policy rejection. It is stable and used as log and metric label.
type Reason string

// Policy rejection reasons.
const (
	ReasonStaleStake       Reason = "stale-stake"
	ReasonBadTimeSlot      Reason = "bad-time-slot"
	ReasonFutureDrift      Reason = "future-drift-exceeded"
	ReasonKernelAbove      Reason = "kernel-above-target"
	ReasonTimeTooOld       Reason = "time-too-old"
	ReasonBadSignature     Reason = "bad-signature"
	ReasonUnknownOutput    Reason = "unknown-stake-output"
	ReasonDoubleSerial     Reason = "double-serial"
	ReasonProofInvalid     Reason = "proof-invalid"
	ReasonStaleCheckpoint  Reason = "stale-checkpoint"
	ReasonUnknownCheckpt   Reason = "unknown-checkpoint"
	ReasonForgedSerial     Reason = "forged-serial"
	ReasonSerialRange      Reason = "serial-out-of-range"
	ReasonZerocoinInactive Reason = "zerocoin-inactive"
	ReasonPublicInactive   Reason = "public-spend-inactive"
	ReasonSpendObsolete    Reason = "spend-version-obsolete"
	ReasonCheckpointMatch  Reason = "checkpoint-mismatch"
	ReasonInvalidOutput    Reason = "invalid-stake-output"
	ReasonTaintedCheckpt   Reason = "tainted-checkpoint"

	// ReasonMalformed labels structural errors.
	ReasonMalformed Reason = "malformed"
)

// RejectError is a policy rejection. It is permanent for the exact input
// that produced it.
type RejectError struct {
	Reason Reason
	Detail string
}

func (e *RejectError) Error() string {
	if e.Detail == "" {
		return string(e.Reason)
	}
	return string(e.Reason) + ": " + e.Detail
}

// Reject creates a RejectError with formatted detail.
func Reject(reason Reason, format string, args ...any) error {
	return &RejectError{Reason: reason, Detail: fmt.Sprintf(format, args...)}
}

// StructuralError reports a malformed claim, spend or block shape.
type StructuralError string

func (e StructuralError) Error() string {
	return "malformed: " + string(e)
}

// Structural creates a StructuralError with formatted message.
func Structural(format string, args ...any) error {
	return StructuralError(fmt.Sprintf(format, args...))
}

// FatalError halts the branch being processed. It is surfaced to the operator
// and never retried.
type FatalError string

func (e FatalError) Error() string {
	return "consensus fatal: " + string(e)
}

// Fatal creates a FatalError with formatted message.
func Fatal(format string, args ...any) error {
	return FatalError(fmt.Sprintf(format, args...))
}

// ReasonOf returns the rejection reason carried by err. Structural errors
// report ReasonMalformed.
func ReasonOf(err error) (Reason, bool) {
	var rej *RejectError
	if errors.As(err, &rej) {
		return rej.Reason, true
	}
	var se StructuralError
	if errors.As(err, &se) {
		return ReasonMalformed, true
	}
	return "", false
}

// IsReject returns whether err is a policy rejection.
func IsReject(err error) bool {
	var rej *RejectError
	return errors.As(err, &rej)
}

// IsStructural returns whether err is a structural error.
func IsStructural(err error) bool {
	var se StructuralError
	return errors.As(err, &se)
}

// IsFatal returns whether err is a consensus fatal error.
func IsFatal(err error) bool {
	var fe FatalError
	return errors.As(err, &fe)
}

// IsVerdict returns whether err is an ordinary validation outcome, i.e. a
// policy rejection or a structural error, as opposed to a fatal or I/O error.
func IsVerdict(err error) bool {
	return IsReject(err) || IsStructural(err)
}
