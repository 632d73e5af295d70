// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// scoreloopd runs the contract execution engine over a local state database.
package main

import (
	"fmt"
	"os"

	"github.com/pkg/errors"
	"github.com/vechain/scoreloop/admin"
	"github.com/vechain/scoreloop/co"
	"github.com/vechain/scoreloop/engine"
	"github.com/vechain/scoreloop/log"
	"github.com/vechain/scoreloop/metrics"
	cli "gopkg.in/urfave/cli.v1"
	"gopkg.in/yaml.v3"
)

var (
	version   string
	gitCommit string
	gitTag    string

	logger = log.WithContext("pkg", "scoreloopd")
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
		Name:    "Scoreloop",
		Usage:   "Contract execution engine node",
		Flags: []cli.Flag{
			dataDirFlag,
			genesisFlag,
			verbosityFlag,
			jsonLogsFlag,
			adminAddrFlag,
			enableMetricsFlag,
			queryWorkersFlag,
			cacheFlag,
		},
		Action: defaultAction,
		Commands: []cli.Command{
			{
				Name:   "dump-genesis",
				Usage:  "print the genesis in yaml",
				Flags:  []cli.Flag{genesisFlag},
				Action: dumpGenesisAction,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func defaultAction(ctx *cli.Context) error {
	var goes co.Goes
	exitSignal, stopSignal := handleExitSignal(&goes)
	defer func() {
		stopSignal()
		goes.Wait()
		logger.Info("exited")
	}()

	logHandler, err := initLogger(ctx)
	if err != nil {
		return err
	}
	gene, err := loadGenesis(ctx)
	if err != nil {
		return err
	}
	dataDir, err := makeDataDir(ctx)
	if err != nil {
		return err
	}
	if ctx.Bool(enableMetricsFlag.Name) {
		metrics.InitializePrometheusMetrics()
	}

	mainDB, err := openMainDB(ctx, dataDir)
	if err != nil {
		return err
	}
	defer func() { logger.Info("closing main database..."); mainDB.Close() }()

	fatalCh := make(chan error, 1)
	eng, err := engine.New(mainDB, engine.Config{
		CacheSize:    stateCacheEntries(ctx),
		QueryWorkers: ctx.Int(queryWorkersFlag.Name),
		OnFatal: func(err error) {
			select {
			case fatalCh <- err:
			default:
			}
		},
	})
	if err != nil {
		return errors.Wrap(err, "open engine")
	}
	defer func() { logger.Info("stopping engine..."); eng.Close() }()

	if !eng.Initialized() {
		if err := eng.Genesis(gene); err != nil {
			return errors.Wrap(err, "apply genesis")
		}
	}

	adminURL := ""
	if addr := ctx.String(adminAddrFlag.Name); addr != "" {
		url, stop, err := admin.StartServer(addr, logHandler, healthOf(eng))
		if err != nil {
			return err
		}
		defer func() { logger.Info("stopping admin server..."); stop() }()
		adminURL = url
	}

	printStartupMessage(gene, eng, dataDir, adminURL)

	select {
	case <-exitSignal.Done():
		return nil
	case err := <-fatalCh:
		logger.Crit("shutting down on fatal error", "err", err)
		return errors.Wrap(err, "engine")
	}
}

func dumpGenesisAction(ctx *cli.Context) error {
	gene, err := loadGenesis(ctx)
	if err != nil {
		return err
	}
	enc := yaml.NewEncoder(os.Stdout)
	enc.SetIndent(2)
	if err := enc.Encode(gene); err != nil {
		return errors.Wrap(err, "encode genesis")
	}
	fmt.Fprintf(os.Stderr, "# id: %v\n", gene.ID())
	return enc.Close()
}
