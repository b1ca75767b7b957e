// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package log

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"reflect"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

// Log output formats.
const (
	FormatTerminal = "terminal"
	FormatJSON     = "json"
	FormatLogfmt   = "logfmt"
)

// NewHandler returns a handler writing records at or above lvl in the named
// format. Colors only apply to the terminal format.
func NewHandler(format string, wr io.Writer, lvl *slog.LevelVar, useColor bool) (slog.Handler, error) {
	switch format {
	case FormatTerminal, "":
		return &TerminalHandler{wr: wr, lvl: lvl, useColor: useColor, fieldPadding: make(map[string]int)}, nil
	case FormatJSON:
		return slog.NewJSONHandler(wr, &slog.HandlerOptions{Level: lvl, ReplaceAttr: replaceAttr(false)}), nil
	case FormatLogfmt:
		return slog.NewTextHandler(wr, &slog.HandlerOptions{Level: lvl, ReplaceAttr: replaceAttr(true)}), nil
	default:
		return nil, fmt.Errorf("unknown log format %q", format)
	}
}

// replaceAttr renames the time and level keys to t and lvl and prints values
// the way the terminal handler does. Times stay native in json.
func replaceAttr(logfmt bool) func([]string, slog.Attr) slog.Attr {
	return func(_ []string, attr slog.Attr) slog.Attr {
		switch attr.Key {
		case slog.TimeKey:
			if attr.Value.Kind() != slog.KindTime {
				break
			}
			if !logfmt {
				return slog.Attr{Key: "t", Value: attr.Value}
			}
			return slog.String("t", attr.Value.Time().Format(timeFormat))
		case slog.LevelKey:
			if l, ok := attr.Value.Any().(slog.Level); ok {
				return slog.String("lvl", LevelString(l))
			}
		}
		switch v := attr.Value.Any().(type) {
		case time.Time:
			if logfmt {
				return slog.String(attr.Key, v.Format(timeFormat))
			}
		case *big.Int:
			return slog.String(attr.Key, nilOr(v, func() string { return bigText(v) }))
		case []byte:
			return slog.String(attr.Key, hexutil.Encode(v))
		case error:
			return slog.String(attr.Key, nilOr(v, v.Error))
		case fmt.Stringer:
			return slog.String(attr.Key, nilOr(v, v.String))
		}
		return attr
	}
}

// nilOr returns "<nil>" for a nil pointer held in an interface, else text().
func nilOr(v any, text func() string) string {
	if rv := reflect.ValueOf(v); rv.Kind() == reflect.Pointer && rv.IsNil() {
		return "<nil>"
	}
	return text()
}

// DiscardHandler returns a handler that drops every record.
func DiscardHandler() slog.Handler { return discardHandler{} }

type discardHandler struct{}

func (discardHandler) Handle(context.Context, slog.Record) error { return nil }
func (discardHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (h discardHandler) WithGroup(string) slog.Handler           { return h }
func (h discardHandler) WithAttrs([]slog.Attr) slog.Handler      { return h }

// TerminalHandler prints records for humans on a terminal:
//
//	LEVEL [TIME] MESSAGE key=value key=value ...
type TerminalHandler struct {
	mu       sync.Mutex
	wr       io.Writer
	lvl      *slog.LevelVar
	useColor bool
	attrs    []slog.Attr
	// widest value seen per key, so that columns line up
	fieldPadding map[string]int

	buf []byte
}

func (h *TerminalHandler) Handle(_ context.Context, r slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	buf := h.format(h.buf, r, h.useColor)
	_, err := h.wr.Write(buf)
	h.buf = buf[:0]
	return err
}

func (h *TerminalHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.lvl.Level()
}

// WithGroup is not supported: groups are flattened away.
func (h *TerminalHandler) WithGroup(string) slog.Handler { return h }

func (h *TerminalHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &TerminalHandler{
		wr:           h.wr,
		lvl:          h.lvl,
		useColor:     h.useColor,
		attrs:        append(h.attrs[:len(h.attrs):len(h.attrs)], attrs...),
		fieldPadding: make(map[string]int),
	}
}
