// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

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

func newApp() *cli.App {
	app := cli.NewApp()
	app.Version = fullVersion()
	app.Name = "stakepool"
	app.Usage = "Stake pool operator tool running against a simulated chain"
	app.Flags = []cli.Flag{
		dataDirFlag,
		verbosityFlag,
		logFormatFlag,
		disableAuditFlag,
	}
	app.Commands = []cli.Command{
		{
			Name:   "init",
			Usage:  "create the chain and initialize the pool",
			Flags:  []cli.Flag{configFlag},
			Action: initAction,
		},
		{
			Name:   "show",
			Usage:  "print the pool state",
			Action: showAction,
		},
		{
			Name:      "fund",
			Usage:     "credit a wallet on the simulated chain",
			ArgsUsage: "<address> <lamports>",
			Action:    fundAction,
		},
		{
			Name:  "validator",
			Usage: "manage validators",
			Subcommands: []cli.Command{
				{
					Name:   "list",
					Usage:  "list validators with their stake accounts",
					Action: validatorsAction,
				},
				{
					Name:      "add",
					ArgsUsage: "<vote>",
					Flags:     []cli.Flag{seedFlag},
					Action:    addValidatorAction,
				},
				{
					Name:      "remove",
					ArgsUsage: "<vote>",
					Action:    removeValidatorAction,
				},
				{
					Name:      "increase",
					ArgsUsage: "<vote> <lamports>",
					Action:    increaseAction,
				},
				{
					Name:      "decrease",
					ArgsUsage: "<vote> <lamports>",
					Flags:     []cli.Flag{targetFlag},
					Action:    decreaseAction,
				},
			},
		},
		{
			Name:   "update",
			Usage:  "reconcile every validator and the pool balance",
			Flags:  []cli.Flag{noMergeFlag},
			Action: updateAction,
		},
		{
			Name:   "cleanup",
			Usage:  "drop validators ready for removal",
			Action: cleanupAction,
		},
		{
			Name:      "deposit",
			ArgsUsage: "<from> <lamports>",
			Flags:     []cli.Flag{referrerFlag, minSharesFlag},
			Action:    depositAction,
		},
		{
			Name:      "deposit-stake",
			Usage:     "deposit an active stake account",
			ArgsUsage: "<owner> <stake>",
			Flags:     []cli.Flag{referrerFlag, minSharesFlag},
			Action:    depositStakeAction,
		},
		{
			Name:      "withdraw",
			ArgsUsage: "<owner> <shares>",
			Flags:     []cli.Flag{fromValidatorFlag, transientFlag, minLamportsFlag},
			Action:    withdrawAction,
		},
		{
			Name:      "preferred",
			Usage:     "set or clear a preferred validator",
			ArgsUsage: "<deposit|withdraw> [vote]",
			Action:    preferredAction,
		},
		{
			Name:      "fee",
			Usage:     "change a fee",
			ArgsUsage: "<kind> <numerator/denominator>",
			Action:    feeAction,
		},
		{
			Name:  "epoch",
			Usage: "drive the simulated chain",
			Subcommands: []cli.Command{
				{
					Name:   "advance",
					Flags:  []cli.Flag{epochsFlag},
					Action: advanceEpochAction,
				},
				{
					Name:      "reward",
					ArgsUsage: "<vote> <lamports>",
					Action:    rewardAction,
				},
			},
		},
		{
			Name:   "rebalance",
			Usage:  "spread stake evenly over active validators",
			Flags:  []cli.Flag{retainFlag, dryRunFlag},
			Action: rebalanceAction,
		},
		{
			Name:  "serve",
			Usage: "serve the query API",
			Flags: []cli.Flag{
				apiAddrFlag,
				apiCorsFlag,
				apiLogsLimitFlag,
				enableMetricsFlag,
				metricsAddrFlag,
				crankFlag,
			},
			Action: serveAction,
		},
	}
	return app
}

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
