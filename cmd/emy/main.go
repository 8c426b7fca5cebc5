// Copyright (c) 2025 The EMY developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	"fmt"
	"os"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
	cli "gopkg.in/urfave/cli.v1"

	"github.com/emylabs/emy/api"
	"github.com/emylabs/emy/cmd/emy/httpserver"
	"github.com/emylabs/emy/ledger"
	"github.com/emylabs/emy/log"
	"github.com/emylabs/emy/metrics"
)

var (
	version   string
	gitCommit string
	gitTag    string

	logger = log.WithContext("pkg", "main")
)

func fullVersion() string {
	versionMeta := "release"
	if gitTag == "" {
		versionMeta = "dev"
	}
	return fmt.Sprintf("%s-%s-%s", version, gitCommit, versionMeta)
}

func main() {
	app := cli.App{
		Version: fullVersion(),
		Name:    "Emy",
		Usage:   "Staking and governance ledger node",
		Flags: []cli.Flag{
			dataDirFlag,
			genesisFlag,
			apiAddrFlag,
			apiCorsFlag,
			apiLogsLimitFlag,
			apiLogsFlag,
			enableMetricsFlag,
			metricsAddrFlag,
			verbosityFlag,
			logJSONFlag,
			cacheFlag,
			skipNTPCheckFlag,
		},
		Action: defaultAction,
		Commands: []cli.Command{
			{
				Name:  "merkle",
				Usage: "print the whitelist root and proofs of a list of accounts",
				Flags: []cli.Flag{
					addressFlag,
					fileFlag,
				},
				Action: merkleAction,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func defaultAction(ctx *cli.Context) error {
	exitSignal := handleExitSignal()
	defer func() { logger.Info("exited") }()

	if err := initLogger(ctx); err != nil {
		return err
	}
	if ctx.Bool(enableMetricsFlag.Name) {
		metrics.InitializePrometheusMetrics()
	}

	gene, err := loadGenesis(ctx)
	if err != nil {
		return err
	}
	instanceDir, err := makeInstanceDir(ctx, gene)
	if err != nil {
		return err
	}

	mainDB, err := openMainDB(ctx, instanceDir)
	if err != nil {
		return err
	}
	defer func() { logger.Info("closing main database..."); mainDB.Close() }()

	eventDB, err := openEventDB(instanceDir)
	if err != nil {
		return err
	}
	defer func() { logger.Info("closing event database..."); eventDB.Close() }()

	if !ctx.Bool(skipNTPCheckFlag.Name) {
		go checkClockOffset()
	}

	l, err := ledger.New(mainDB, gene, ledger.SystemClock{}, eventDB)
	if err != nil {
		return errors.Wrap(err, "open ledger")
	}
	defer func() { logger.Info("closing ledger..."); l.Close() }()

	if err := syncEventDB(exitSignal, l, eventDB); err != nil {
		return errors.Wrap(err, "sync event db")
	}

	handler, closeAPI := api.New(l, eventDB, gene.Deployments(), api.Options{
		AllowedOrigins:  ctx.String(apiCorsFlag.Name),
		LogsLimit:       ctx.Uint64(apiLogsLimitFlag.Name),
		EnableReqLogger: ctx.Bool(apiLogsFlag.Name),
		EnableMetrics:   ctx.Bool(enableMetricsFlag.Name),
	})
	defer closeAPI()

	var (
		g           errgroup.Group
		apiURL      string
		metricsURL  string
		stopAPI     = func() {}
		stopMetrics = func() {}
	)
	g.Go(func() error {
		url, stop, err := httpserver.StartAPIServer(ctx.String(apiAddrFlag.Name), handler)
		if err != nil {
			return err
		}
		apiURL, stopAPI = url, stop
		return nil
	})
	if ctx.Bool(enableMetricsFlag.Name) {
		g.Go(func() error {
			url, stop, err := httpserver.StartMetricsServer(ctx.String(metricsAddrFlag.Name))
			if err != nil {
				return err
			}
			metricsURL, stopMetrics = url, stop
			return nil
		})
	}
	err = g.Wait()
	// stops whichever started
	defer func() {
		logger.Info("stopping servers...")
		stopServers(stopAPI, stopMetrics)
	}()
	if err != nil {
		return err
	}

	printStartupMessage(gene, l, instanceDir, apiURL, metricsURL)

	<-exitSignal.Done()
	return nil
}
