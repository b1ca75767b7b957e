// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	cli "gopkg.in/urfave/cli.v1"

	"github.com/pw512/klimatas-core/log"
	"github.com/pw512/klimatas-core/params"
)

var (
	networkFlag = cli.StringFlag{
		Name:  "network",
		Value: params.MainNetName,
		Usage: "the network (main|test|regtest) or the path to a params YAML file",
	}
	dataDirFlag = cli.StringFlag{
		Name:  "data-dir",
		Value: defaultDataDir(),
		Usage: "directory for the state database",
	}
	cacheFlag = cli.IntFlag{
		Name:  "cache",
		Value: 256,
		Usage: "megabytes of ram allocated to the state database",
	}
	verbosityFlag = cli.IntFlag{
		Name:  "verbosity",
		Value: 3,
		Usage: "log verbosity (0-5)",
	}
	logFormatFlag = cli.StringFlag{
		Name:  "log-format",
		Value: log.FormatTerminal,
		Usage: "log output format (terminal|json|logfmt)",
	}
	metricsAddrFlag = cli.StringFlag{
		Name:  "metrics-addr",
		Usage: "metrics service listening address, disabled if empty",
	}
	ntpServerFlag = cli.StringFlag{
		Name:  "ntp",
		Value: "pool.ntp.org",
		Usage: "NTP server used to adjust the local clock, disabled if empty",
	}
	heightFlag = cli.Uint64Flag{
		Name:  "height",
		Usage: "chain height",
	}
	timeFlag = cli.Uint64Flag{
		Name:  "time",
		Usage: "block time in unix seconds, defaults to now",
	}
	countFlag = cli.IntFlag{
		Name:  "count",
		Value: 1,
		Usage: "number of blocks",
	}
)
