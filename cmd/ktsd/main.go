// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// ktsd inspects and maintains the consensus validation state of a node.
package main

import (
	"fmt"
	"os"

	cli "gopkg.in/urfave/cli.v1"
)

var (
	version   string
	gitCommit string
	gitTag    string
)

func fullVersion() string {
	versionMeta := "release"
	if gitTag == "" {
		versionMeta = "dev"
	}
	return fmt.Sprintf("%s-%s-%s", version, gitCommit, versionMeta)
}

func main() {
	stateFlags := []cli.Flag{
		networkFlag,
		dataDirFlag,
		cacheFlag,
		verbosityFlag,
		logFormatFlag,
	}
	app := cli.App{
		Version:   fullVersion(),
		Name:      "ktsd",
		Usage:     "Klimatas consensus state tool",
		Copyright: "2025 The Klimatas developers",
		Commands: []cli.Command{
			{
				Name:   "params",
				Usage:  "print the network parameters as YAML",
				Flags:  []cli.Flag{networkFlag, verbosityFlag, logFormatFlag},
				Action: paramsAction,
			},
			{
				Name:   "variant",
				Usage:  "print the rule-set variant in force at a chain position",
				Flags:  []cli.Flag{networkFlag, heightFlag, timeFlag, verbosityFlag, logFormatFlag},
				Action: variantAction,
			},
			{
				Name:      "import",
				Usage:     "connect the blocks of an RLP encoded file",
				ArgsUsage: "<file>",
				Flags: append(stateFlags,
					metricsAddrFlag,
					ntpServerFlag,
				),
				Action: importAction,
			},
			{
				Name:      "outputs",
				Usage:     "add the stakeable outputs of an RLP encoded file",
				ArgsUsage: "<file>",
				Flags:     stateFlags,
				Action:    outputsAction,
			},
			{
				Name:   "rollback",
				Usage:  "disconnect blocks from the tip",
				Flags:  append(stateFlags, countFlag),
				Action: rollbackAction,
			},
			{
				Name:   "status",
				Usage:  "print the tip and the latest accumulator checkpoints",
				Flags:  stateFlags,
				Action: statusAction,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
