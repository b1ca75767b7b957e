// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package params

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Parse decodes YAML encoded params. Fields absent from the document take the
// values of base, so a custom network only needs to list its deviations.
func Parse(data []byte, base *Params) (*Params, error) {
	p := base.Copy()
	if err := yaml.Unmarshal(data, p); err != nil {
		return nil, errors.Wrap(err, "decode params")
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// LoadFile reads params from a YAML file, on top of the regression test params.
func LoadFile(path string) (*Params, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read params file")
	}
	return Parse(data, RegTest())
}

// Marshal encodes params into YAML.
func (p *Params) Marshal() ([]byte, error) {
	return yaml.Marshal(p)
}
