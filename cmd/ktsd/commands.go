// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/davecgh/go-spew/spew"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/pkg/errors"
	"gopkg.in/cheggaaa/pb.v1"
	cli "gopkg.in/urfave/cli.v1"

	"github.com/pw512/klimatas-core/activation"
	"github.com/pw512/klimatas-core/block"
	"github.com/pw512/klimatas-core/chainstate"
	"github.com/pw512/klimatas-core/consensus"
	"github.com/pw512/klimatas-core/kts"
)

func paramsAction(ctx *cli.Context) error {
	if err := initLogger(ctx); err != nil {
		return err
	}
	p, err := selectParams(ctx)
	if err != nil {
		return err
	}
	data, err := p.Marshal()
	if err != nil {
		return err
	}
	_, err = os.Stdout.Write(data)
	return err
}

func variantAction(ctx *cli.Context) error {
	if err := initLogger(ctx); err != nil {
		return err
	}
	p, err := selectParams(ctx)
	if err != nil {
		return err
	}
	height := ctx.Uint64(heightFlag.Name)
	if height > uint64(kts.Never) {
		return errors.Errorf("height %v out of range", height)
	}
	pos := activation.ChainPosition{
		Height: uint32(height),
		Time:   ctx.Uint64(timeFlag.Name),
	}
	if !ctx.IsSet(timeFlag.Name) {
		pos.Time = uint64(time.Now().Unix())
	}
	fmt.Printf("%v #%v @%v: %v\n", p.Name, pos.Height, pos.Time, activation.VariantAt(p, pos))
	return nil
}

func importAction(ctx *cli.Context) error {
	if err := initLogger(ctx); err != nil {
		return err
	}
	if ctx.NArg() != 1 {
		return errors.New("import: expect exactly one file argument")
	}
	p, err := selectParams(ctx)
	if err != nil {
		return err
	}
	db, state, err := openState(ctx, p)
	if err != nil {
		return err
	}
	defer func() { logger.Info("closing state database..."); db.Close() }()

	if addr := ctx.String(metricsAddrFlag.Name); addr != "" {
		url, closeFunc, err := startMetricsServer(addr, db)
		if err != nil {
			return err
		}
		defer closeFunc()
		logger.Info("metrics server started", "url", url)
	}

	f, err := os.Open(ctx.Args().First())
	if err != nil {
		return errors.Wrap(err, "open blocks file")
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return err
	}

	exitCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	engine := consensus.New(state, consensus.WithOutputs(state.Outputs()))
	return importBlocks(exitCtx, engine, f, info.Size(), newClock(ctx.String(ntpServerFlag.Name), p))
}

// importBlocks connects the blocks read from r in order. Blocks at or below
// the tip are skipped, so an interrupted import can be resumed.
func importBlocks(ctx context.Context, engine *consensus.Engine, r io.Reader, size int64, clk *clock) error {
	bar := pb.New64(size).
		SetUnits(pb.U_BYTES).
		SetMaxWidth(90).
		Start()
	defer func() { bar.NotPrint = true }()

	var (
		stream    = rlp.NewStream(bar.NewProxyReader(r), 0)
		connected int
		skipped   int
		start     = time.Now()
	)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		var blk block.Block
		if err := stream.Decode(&blk); err != nil {
			if err == io.EOF {
				break
			}
			return errors.Wrapf(err, "decode block #%v", connected+skipped)
		}
		if blk.Header().Number() <= engine.Tip().Height {
			skipped++
			continue
		}

		v, err := engine.Connect(&blk, clk.Now())
		if err != nil {
			return err
		}
		if !v.Accepted {
			return errors.Errorf("block #%v %v", blk.Header().Number(), v)
		}
		connected++
	}
	bar.Finish()

	logger.Info("import completed",
		"connected", connected,
		"skipped", skipped,
		"tip", engine.Tip().Height,
		"elapsed", time.Since(start).Round(time.Millisecond))
	return nil
}

func outputsAction(ctx *cli.Context) error {
	if err := initLogger(ctx); err != nil {
		return err
	}
	if ctx.NArg() != 1 {
		return errors.New("outputs: expect exactly one file argument")
	}
	p, err := selectParams(ctx)
	if err != nil {
		return err
	}
	db, state, err := openState(ctx, p)
	if err != nil {
		return err
	}
	defer db.Close()

	f, err := os.Open(ctx.Args().First())
	if err != nil {
		return errors.Wrap(err, "open outputs file")
	}
	defer f.Close()

	n, err := importOutputs(f, state.Outputs())
	if err != nil {
		return err
	}
	logger.Info("outputs added", "count", n)
	return nil
}

// outputsBatch is the number of outputs written at once.
const outputsBatch = 4096

// importOutputs adds the outputs read from r to the stakeable set.
func importOutputs(r io.Reader, outs *chainstate.Outputs) (int, error) {
	var (
		stream = rlp.NewStream(r, 0)
		batch  = make([]*block.Output, 0, outputsBatch)
		n      int
	)
	flush := func() error {
		if err := outs.Put(batch...); err != nil {
			return err
		}
		n += len(batch)
		batch = batch[:0]
		return nil
	}
	for {
		var out block.Output
		if err := stream.Decode(&out); err != nil {
			if err == io.EOF {
				break
			}
			return n, errors.Wrapf(err, "decode output #%v", n+len(batch))
		}
		if batch = append(batch, &out); len(batch) == outputsBatch {
			if err := flush(); err != nil {
				return n, err
			}
		}
	}
	return n, flush()
}

func rollbackAction(ctx *cli.Context) error {
	if err := initLogger(ctx); err != nil {
		return err
	}
	p, err := selectParams(ctx)
	if err != nil {
		return err
	}
	db, state, err := openState(ctx, p)
	if err != nil {
		return err
	}
	defer db.Close()

	engine := consensus.New(state, consensus.WithOutputs(state.Outputs()))
	for i := 0; i < ctx.Int(countFlag.Name); i++ {
		tip, err := engine.Disconnect()
		if err != nil {
			return err
		}
		logger.Info("block disconnected", "tip", tip.Height, "id", tip.ID)
	}
	return nil
}

func statusAction(ctx *cli.Context) error {
	if err := initLogger(ctx); err != nil {
		return err
	}
	p, err := selectParams(ctx)
	if err != nil {
		return err
	}
	db, state, err := openState(ctx, p)
	if err != nil {
		return err
	}
	defer db.Close()

	return printStatus(os.Stdout, state)
}

func printStatus(w io.Writer, state *chainstate.State) error {
	p := state.Params()
	st, err := state.NewStage()
	if err != nil {
		return err
	}
	defer st.Release()

	tip := st.Base()
	fmt.Fprintf(w, "network: %v\nbest:    %v\ntip:\n", p.Name, state.Best())
	spew.Fdump(w, tip)

	ledger := st.Ledger()
	from := uint32(0)
	if age := p.MaxCheckpointAge(); tip.Height > age {
		from = tip.Height - age
	}
	checkpoints, err := ledger.Checkpoints(from, tip.Height)
	if err != nil {
		return err
	}

	fmt.Fprintln(w, "accumulators:")
	for _, denom := range p.Zerocoin.Denominations {
		g, err := ledger.Group(denom)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "  %5d  count=%-8d value=%v\n", denom, g.Count, abbrev(g.Value.Text(16)))
	}
	fmt.Fprintf(w, "checkpoints since #%v: %v\n", from, checkpoints)
	return nil
}

func abbrev(s string) string {
	if len(s) <= 16 {
		return s
	}
	return s[:8] + "…" + s[len(s)-8:]
}
