// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/beevik/ntp"
	"github.com/elastic/gosigar"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/mattn/go-isatty"
	"github.com/pkg/errors"
	cli "gopkg.in/urfave/cli.v1"

	"github.com/pw512/klimatas-core/chainstate"
	"github.com/pw512/klimatas-core/co"
	"github.com/pw512/klimatas-core/log"
	"github.com/pw512/klimatas-core/lvldb"
	"github.com/pw512/klimatas-core/metrics"
	"github.com/pw512/klimatas-core/params"
)

var logger = log.WithContext("pkg", "ktsd")

func initLogger(ctx *cli.Context) error {
	useColor := (isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd())) && os.Getenv("TERM") != "dumb"

	var level slog.LevelVar
	level.Set(log.FromLegacyLevel(ctx.Int(verbosityFlag.Name)))
	handler, err := log.NewHandler(ctx.String(logFormatFlag.Name), os.Stderr, &level, useColor)
	if err != nil {
		return errors.Wrap(err, "-log-format")
	}
	log.SetDefault(log.NewLogger(handler))
	return nil
}

func defaultDataDir() string {
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".klimatas")
	}
	return ".klimatas"
}

// selectParams resolves the network flag, either a registered network name
// or the path of a params file.
func selectParams(ctx *cli.Context) (*params.Params, error) {
	network := ctx.String(networkFlag.Name)
	if p, err := params.Select(network); err == nil {
		return p, nil
	}
	p, err := params.LoadFile(network)
	if err != nil {
		return nil, errors.Wrapf(err, "network %q", network)
	}
	return p, nil
}

// openState opens the state database of the network under the data dir.
func openState(ctx *cli.Context, p *params.Params) (*lvldb.LevelDB, *chainstate.State, error) {
	dir := filepath.Join(ctx.String(dataDirFlag.Name), p.Name)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, nil, errors.Wrapf(err, "create data dir [%v]", dir)
	}
	db, err := lvldb.New(filepath.Join(dir, "state.db"), lvldb.Options{
		CacheSize:              normalizeCacheSize(ctx.Int(cacheFlag.Name)),
		OpenFilesCacheCapacity: 64,
	})
	if err != nil {
		return nil, nil, err
	}
	state, err := chainstate.New(db, p, chainstate.Options{})
	if err != nil {
		db.Close()
		return nil, nil, err
	}
	logger.Debug("state opened", "dir", dir, "tip", state.Tip().Height, "best", state.Best())
	return db, state, nil
}

// normalizeCacheSize keeps the database cache within [16MB, half of the
// physical memory].
func normalizeCacheSize(sizeMB int) int {
	if sizeMB < 16 {
		sizeMB = 16
	}

	var mem gosigar.Mem
	if err := mem.Get(); err != nil {
		logger.Warn("failed to get total mem", "err", err)
	} else {
		limitMB := int(mem.Total / 1024 / 1024 / 2)
		if sizeMB > limitMB {
			sizeMB = limitMB
			logger.Warn("cache size(MB) limited", "limit", limitMB)
		}
	}
	return sizeMB
}

// startMetricsServer serves prometheus metrics, including the database
// statistics, on addr.
func startMetricsServer(addr string, db *lvldb.LevelDB) (string, func(), error) {
	metrics.InitializePrometheusMetrics()
	metrics.Register(metrics.NewStoreCollector("state", db.Stats))

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return "", nil, errors.Wrapf(err, "listen metrics API addr [%v]", addr)
	}

	router := mux.NewRouter()
	router.PathPrefix("/metrics").Handler(metrics.HTTPHandler())
	handler := handlers.CompressHandler(router)

	srv := &http.Server{Handler: handler, ReadHeaderTimeout: time.Second, ReadTimeout: 5 * time.Second}
	var goes co.Goes
	goes.Try(func() error {
		if err := srv.Serve(listener); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	return "http://" + listener.Addr().String() + "/metrics", func() {
		srv.Close()
		if err := goes.Wait(); err != nil {
			logger.Warn("metrics server stopped", "err", err)
		}
	}, nil
}

// clock is the local clock adjusted by the offset measured against an NTP
// server. It supplies the now of future drift checks.
type clock struct {
	offset time.Duration
}

func newClock(server string, p *params.Params) *clock {
	c := &clock{}
	if server == "" {
		return c
	}
	resp, err := ntp.Query(server)
	if err != nil {
		logger.Warn("failed to access NTP", "server", server, "err", err)
		return c
	}
	c.offset = resp.ClockOffset

	abs := c.offset
	if abs < 0 {
		abs = -abs
	}
	if abs > time.Duration(p.Stake.TimeSlotLength)*time.Second/2 {
		logger.Warn("clock offset detected", "offset", c.offset)
	}
	return c
}

func (c *clock) Now() uint64 {
	return uint64(time.Now().Add(c.offset).Unix())
}
