// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	cli "gopkg.in/urfave/cli.v1"
)

var (
	dataDirFlag = cli.StringFlag{
		Name:   "data-dir",
		Value:  "./stakepool-data",
		Usage:  "directory for the pool, chain and audit databases",
		EnvVar: "STAKEPOOL_DATA_DIR",
	}
	configFlag = cli.StringFlag{
		Name:  "config",
		Usage: "path to the pool config file (yaml)",
	}
	verbosityFlag = cli.IntFlag{
		Name:  "verbosity",
		Value: 3,
		Usage: "log verbosity (0-5)",
	}
	logFormatFlag = cli.StringFlag{
		Name:  "log-format",
		Value: "terminal",
		Usage: "log output format (terminal|json|logfmt)",
	}
	disableAuditFlag = cli.BoolFlag{
		Name:  "disable-audit",
		Usage: "do not journal epoch updates",
	}
	seedFlag = cli.UintFlag{
		Name:  "seed",
		Usage: "validator stake account seed",
	}
	targetFlag = cli.StringFlag{
		Name:  "to",
		Value: "reserve",
		Usage: "where decreased stake goes (active|reserve)",
	}
	noMergeFlag = cli.BoolFlag{
		Name:  "no-merge",
		Usage: "record balances without moving any stake",
	}
	referrerFlag = cli.StringFlag{
		Name:  "referrer",
		Usage: "share account receiving the referral fee",
	}
	fromValidatorFlag = cli.StringFlag{
		Name:  "validator",
		Usage: "withdraw stake from this validator instead of the reserve",
	}
	minSharesFlag = cli.Uint64Flag{
		Name:  "min-shares",
		Usage: "fail unless at least this many shares are received",
	}
	minLamportsFlag = cli.Uint64Flag{
		Name:  "min-lamports",
		Usage: "fail unless at least this many lamports are received",
	}
	transientFlag = cli.BoolFlag{
		Name:  "transient",
		Usage: "withdraw from the transient stake of --validator",
	}
	epochsFlag = cli.Uint64Flag{
		Name:  "epochs",
		Value: 1,
		Usage: "number of epochs to advance",
	}
	retainFlag = cli.Uint64Flag{
		Name:  "retain",
		Usage: "lamports kept in the reserve on top of its minimum",
	}
	dryRunFlag = cli.BoolFlag{
		Name:  "dry-run",
		Usage: "only print the plan",
	}
	apiAddrFlag = cli.StringFlag{
		Name:  "api-addr",
		Value: "localhost:8680",
		Usage: "API service listening address",
	}
	apiCorsFlag = cli.StringFlag{
		Name:  "api-cors",
		Value: "",
		Usage: "comma separated list of domains from which to accept cross origin requests to API",
	}
	apiLogsLimitFlag = cli.Uint64Flag{
		Name:  "api-logs-limit",
		Value: 1000,
		Usage: "limit the number of records returned by /audit API",
	}
	enableMetricsFlag = cli.BoolFlag{
		Name:  "enable-metrics",
		Usage: "enables metrics collection",
	}
	metricsAddrFlag = cli.StringFlag{
		Name:  "metrics-addr",
		Value: "localhost:2112",
		Usage: "metrics service listening address",
	}
	crankFlag = cli.DurationFlag{
		Name:  "crank",
		Usage: "advance the simulated epoch and update the pool at this interval (0 disables)",
	}
)
