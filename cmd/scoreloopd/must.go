// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"os/user"
	"path/filepath"
	"syscall"

	"github.com/mattn/go-isatty"
	"github.com/pkg/errors"
	"github.com/vechain/scoreloop/co"
	"github.com/vechain/scoreloop/engine"
	"github.com/vechain/scoreloop/genesis"
	"github.com/vechain/scoreloop/log"
	"github.com/vechain/scoreloop/lvldb"
	cli "gopkg.in/urfave/cli.v1"
)

func initLogger(ctx *cli.Context) (*log.Handler, error) {
	level, err := log.ParseLevel(ctx.String(verbosityFlag.Name))
	if err != nil {
		return nil, errors.Wrap(err, "parse verbosity flag")
	}

	var handler *log.Handler
	if ctx.Bool(jsonLogsFlag.Name) {
		handler = log.NewJSONHandler(os.Stdout, level)
	} else {
		useColor := (isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())) &&
			os.Getenv("TERM") != "dumb"
		handler = log.NewTerminalHandler(os.Stdout, level, useColor)
	}
	log.SetDefault(handler)
	return handler, nil
}

func loadGenesis(ctx *cli.Context) (*genesis.Genesis, error) {
	path := ctx.String(genesisFlag.Name)
	if path == "" {
		return genesis.NewDevnet(), nil
	}
	gene, err := genesis.LoadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "load genesis [%v]", path)
	}
	return gene, nil
}

func makeDataDir(ctx *cli.Context) (string, error) {
	dataDir := ctx.String(dataDirFlag.Name)
	if dataDir == "" {
		return "", errors.New("unable to infer default data dir, use -data-dir to specify")
	}
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return "", errors.Wrapf(err, "create data dir [%v]", dataDir)
	}
	return dataDir, nil
}

func normalizeCacheSize(sizeMB int) int {
	if sizeMB < 128 {
		sizeMB = 128
	}
	return sizeMB
}

// stateCacheEntries sizes the committed value cache from a quarter of the cache flag,
// counting a kilobyte per entry.
func stateCacheEntries(ctx *cli.Context) int {
	return normalizeCacheSize(ctx.Int(cacheFlag.Name)) / 4 * 1024
}

func openMainDB(ctx *cli.Context, dataDir string) (*lvldb.LevelDB, error) {
	cacheMB := normalizeCacheSize(ctx.Int(cacheFlag.Name))
	logger.Debug("cache size(MB)", "size", cacheMB)

	dir := filepath.Join(dataDir, "main.db")
	db, err := lvldb.New(dir, lvldb.Options{
		CacheSize:              cacheMB / 2,
		OpenFilesCacheCapacity: 500,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "open main database [%v]", dir)
	}
	return db, nil
}

func healthOf(eng *engine.Engine) func() (any, bool) {
	return func() (any, bool) {
		return map[string]any{
			"height": eng.Height(),
			"hash":   eng.LastHash(),
		}, eng.Initialized()
	}
}

// handleExitSignal returns a context canceled on SIGINT or SIGTERM. The watcher
// stops once the returned cancel func is called.
func handleExitSignal(goes *co.Goes) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	goes.GoContext(ctx, func(ctx context.Context) {
		exitSignalCh := make(chan os.Signal, 1)
		signal.Notify(exitSignalCh, os.Interrupt, syscall.SIGTERM)
		defer signal.Stop(exitSignalCh)

		select {
		case sig := <-exitSignalCh:
			logger.Info("exit signal received", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	})
	return ctx, cancel
}

func printStartupMessage(gene *genesis.Genesis, eng *engine.Engine, dataDir, adminURL string) {
	if adminURL == "" {
		adminURL = "Disabled"
	}
	fmt.Printf(`Starting %v
    Network      [ %v %v ]
    Last block   [ %v #%v ]
    Data dir     [ %v ]
    Admin portal [ %v ]
`,
		fullVersion(),
		gene.Name, gene.ID(),
		eng.LastHash(), eng.Height(),
		dataDir,
		adminURL)
}

func defaultDataDir() string {
	if home := homeDir(); home != "" {
		return filepath.Join(home, ".scoreloop")
	}
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
