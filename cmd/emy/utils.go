// Copyright (c) 2025 The EMY developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"os"
	"os/signal"
	"os/user"
	"path/filepath"
	"runtime"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/beevik/ntp"
	"github.com/elastic/gosigar"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/fdlimit"
	"github.com/mattn/go-isatty"
	"github.com/pkg/errors"
	cli "gopkg.in/urfave/cli.v1"

	"github.com/emylabs/emy/co"
	"github.com/emylabs/emy/eventdb"
	"github.com/emylabs/emy/genesis"
	"github.com/emylabs/emy/ledger"
	"github.com/emylabs/emy/log"
	"github.com/emylabs/emy/lvldb"
)

const (
	legacyLevelInfo  = 3
	legacyLevelTrace = 5

	// blocks are not produced on a schedule, so only large drifts matter
	maxClockOffset = 5 * time.Second
)

func handleExitSignal() context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		exitSignalCh := make(chan os.Signal, 1)
		signal.Notify(exitSignalCh, os.Interrupt, syscall.SIGTERM)

		sig := <-exitSignalCh
		logger.Info("exit signal received", "signal", sig)
		cancel()
	}()
	return ctx
}

func initLogger(ctx *cli.Context) error {
	handler, err := newLogHandler(os.Stderr, ctx.Uint64(verbosityFlag.Name), ctx.Bool(logJSONFlag.Name))
	if err != nil {
		return err
	}
	log.SetDefault(log.NewLogger(handler))
	return nil
}

// newLogHandler builds the root handler. Colours are used only when f is
// a terminal.
func newLogHandler(f *os.File, verbosity uint64, jsonLogs bool) (slog.Handler, error) {
	if verbosity > legacyLevelTrace {
		return nil, fmt.Errorf("verbosity: must be in range [0, %d]", legacyLevelTrace)
	}
	level := log.FromLegacyLevel(int(verbosity))
	if jsonLogs {
		return log.NewJSONHandler(f, level), nil
	}
	useColor := (isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())) && os.Getenv("TERM") != "dumb"
	return log.NewTerminalHandler(f, level, useColor), nil
}

func loadGenesis(ctx *cli.Context) (*genesis.Genesis, error) {
	path := ctx.String(genesisFlag.Name)
	if path == "" {
		return genesis.NewDefault(), nil
	}
	cfg, err := genesis.LoadConfig(path)
	if err != nil {
		return nil, err
	}
	gene, err := genesis.New(cfg)
	if err != nil {
		return nil, errors.WithMessage(err, "build genesis")
	}
	return gene, nil
}

func makeInstanceDir(ctx *cli.Context, gene *genesis.Genesis) (string, error) {
	dataDir := ctx.String(dataDirFlag.Name)
	if dataDir == "" {
		return "", fmt.Errorf("unable to infer default data dir, use -%s to specify", dataDirFlag.Name)
	}
	instanceDir := filepath.Join(dataDir, fmt.Sprintf("instance-%x", gene.ID().Bytes()[24:]))
	if err := os.MkdirAll(instanceDir, 0700); err != nil {
		return "", errors.Wrapf(err, "create data dir [%v]", instanceDir)
	}
	return instanceDir, nil
}

func openMainDB(ctx *cli.Context, instanceDir string) (*lvldb.LevelDB, error) {
	cacheMB := normalizeCacheSize(ctx.Int(cacheFlag.Name))
	logger.Debug("cache size(MB)", "size", cacheMB)

	// Ensure Go's GC ignores the database cache for trigger percentage
	gogc := math.Max(20, math.Min(100, 100/(float64(cacheMB)/1024)))
	logger.Debug("sanitize Go's GC trigger", "percent", int(gogc))
	debug.SetGCPercent(int(gogc))

	fdCache := suggestFDCache()
	logger.Debug("fd cache", "n", fdCache)

	dir := filepath.Join(instanceDir, "main.db")
	db, err := lvldb.New(dir, lvldb.Options{
		CacheSize:              cacheMB,
		OpenFilesCacheCapacity: fdCache,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "open main database [%v]", dir)
	}
	return db, nil
}

func normalizeCacheSize(sizeMB int) int {
	if sizeMB < 128 {
		sizeMB = 128
	}

	var mem gosigar.Mem
	if err := mem.Get(); err != nil {
		logger.Warn("failed to get total mem:", "err", err)
	} else {
		// limit to 1/2 os physical ram
		limitMB := int(mem.Total / 1024 / 1024 / 2)
		if sizeMB > limitMB {
			sizeMB = limitMB
			logger.Warn("cache size(MB) limited", "limit", limitMB)
		}
	}
	return sizeMB
}

func suggestFDCache() int {
	limit, err := fdlimit.Current()
	if err != nil {
		logger.Warn("failed to get fd limit", "err", err)
		return 500
	}
	if limit <= 1024 {
		logger.Warn("low fd limit, increase it if possible", "limit", limit)
	}

	n := limit / 2
	if n > 5120 {
		return 5120
	}
	return n
}

func openEventDB(instanceDir string) (*eventdb.EventDB, error) {
	dir := filepath.Join(instanceDir, "events.db")
	db, err := eventdb.New(dir)
	if err != nil {
		return nil, errors.Wrapf(err, "open event database [%v]", dir)
	}
	return db, nil
}

func checkClockOffset() {
	resp, err := ntp.Query("pool.ntp.org")
	if err != nil {
		logger.Debug("failed to access NTP", "err", err)
		return
	}
	offset := resp.ClockOffset
	if offset < 0 {
		offset = -offset
	}
	if offset > maxClockOffset {
		logger.Warn("clock offset detected", "offset", common.PrettyDuration(resp.ClockOffset))
	}
}

// stopServers runs the stop funcs concurrently and waits for all of them.
func stopServers(stops ...func()) {
	goes := co.NewGoes()
	for _, stop := range stops {
		stop := stop // per-iteration copy; go 1.21 shares loop vars
		goes.Go(func(<-chan struct{}) { stop() })
	}
	goes.Wait()
}

func printStartupMessage(
	gene *genesis.Genesis,
	l *ledger.Ledger,
	dataDir string,
	apiURL string,
	metricsURL string,
) {
	head := l.Head()
	d := gene.Deployments()

	if metricsURL == "" {
		metricsURL = "Disabled"
	}

	fmt.Printf(`Starting %v
    Genesis      [ %v ]
    Head         [ #%v %v ]
    Contracts    [ reward %v | lp %v | staking %v | dao %v ]
    Instance dir [ %v ]
    API portal   [ %v ]
    Metrics      [ %v ]
`,
		"Emy/"+fullVersion(),
		gene.ID(),
		head.Number, time.Unix(int64(head.Time), 0),
		d.RewardToken, d.LPToken, d.Staking, d.Dao,
		dataDir,
		apiURL,
		metricsURL)
}

// copy from go-ethereum
func defaultDataDir() string {
	// Try to place the data folder in the user's home dir
	if home := homeDir(); home != "" {
		if runtime.GOOS == "darwin" {
			return filepath.Join(home, "Library", "Application Support", "org.emylabs.emy")
		} else if runtime.GOOS == "windows" {
			return filepath.Join(home, "AppData", "Roaming", "org.emylabs.emy")
		} else {
			return filepath.Join(home, ".org.emylabs.emy")
		}
	}
	// As we cannot guess a stable location, return empty and handle later
	return ""
}

func homeDir() string {
	if home := os.Getenv("HOME"); home != "" {
		return home
	}
	if usr, err := user.Current(); err == nil {
		return usr.HomeDir
	}
	return ""
}
