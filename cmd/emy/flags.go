// Copyright (c) 2025 The EMY developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	cli "gopkg.in/urfave/cli.v1"
)

var (
	dataDirFlag = cli.StringFlag{
		Name:  "data-dir",
		Value: defaultDataDir(),
		Usage: "directory for ledger databases",
	}
	genesisFlag = cli.StringFlag{
		Name:  "genesis",
		Usage: "path to a YAML genesis file (the built-in default when omitted)",
	}
	apiAddrFlag = cli.StringFlag{
		Name:  "api-addr",
		Value: "localhost:8669",
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
		Usage: "limit the number of logs returned by /logs API",
	}
	apiLogsFlag = cli.BoolFlag{
		Name:  "api-logs",
		Usage: "enables API requests logging",
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
	verbosityFlag = cli.Uint64Flag{
		Name:  "verbosity",
		Value: legacyLevelInfo,
		Usage: "log verbosity (0-5)",
	}
	logJSONFlag = cli.BoolFlag{
		Name:  "log-json",
		Usage: "output logs in JSON format",
	}
	cacheFlag = cli.IntFlag{
		Name:  "cache",
		Value: 1024,
		Usage: "megabytes of ram allocated to the main database cache",
	}
	skipNTPCheckFlag = cli.BoolFlag{
		Name:  "skip-ntp-check",
		Usage: "skip the clock drift check against NTP servers",
	}

	// merkle command
	addressFlag = cli.StringSliceFlag{
		Name:  "address",
		Usage: "whitelisted account, may be repeated",
	}
	fileFlag = cli.StringFlag{
		Name:  "file",
		Usage: "file listing whitelisted accounts, one per line",
	}
)
