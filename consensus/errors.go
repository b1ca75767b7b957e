// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package consensus

import "github.com/pkg/errors"

var (
	// ErrParentNotTip is returned for a candidate whose parent is not the
	// current tip. It is not a verdict on the candidate.
	ErrParentNotTip = errors.New("parent is not the tip")
	errNotAccepted  = errors.New("verdict not accepted")
	errReleased     = errors.New("verdict already released")
	errNoOutputs    = errors.New("no output view to check stake claims")
)
