// Package trace writes debug lines on independently switchable channels.
//
// Channels are named after the pgguard namespace ("pgguard:file",
// "pgguard:table", ...) and are enabled with a DEBUG style filter. Message
// producers are only invoked for enabled channels, so callers can pass
// closures that do expensive formatting.
package trace

import (
	"fmt"
	"io"
	"sync"

	"github.com/fatih/color"
)

// Namespace prefixes every channel name
const Namespace = "pgguard"

type Channel string

const (
	File     Channel = "file"
	Query    Channel = "query"
	Subquery Channel = "subquery"
	Table    Channel = "table"
)

// Channels returns all known channels
func Channels() []Channel {
	return []Channel{File, Query, Subquery, Table}
}

// Namespace returns the filter name of the channel, e.g. "pgguard:table"
func (c Channel) Namespace() string {
	return Namespace + ":" + string(c)
}

var channelColors = map[Channel]*color.Color{
	File:     color.New(color.FgCyan, color.Bold),
	Query:    color.New(color.FgMagenta, color.Bold),
	Subquery: color.New(color.FgBlue, color.Bold),
	Table:    color.New(color.FgGreen, color.Bold),
}

// Tracer writes messages for enabled channels to a sink
type Tracer struct {
	mu  sync.Mutex
	out io.Writer
	cfg Config
}

// New creates a tracer writing to out
func New(out io.Writer, cfg Config) *Tracer {
	return &Tracer{out: out, cfg: cfg}
}

// Disabled returns a tracer with every channel switched off
func Disabled() *Tracer {
	return New(io.Discard, NewConfig())
}

// Enabled reports whether messages on ch will be written
func (t *Tracer) Enabled(ch Channel) bool {
	if t == nil {
		return false
	}
	return t.cfg.Enabled(ch)
}

// Emit writes the message produced by msg if ch is enabled.
// msg is not called otherwise.
func (t *Tracer) Emit(ch Channel, msg func() string) {
	if !t.Enabled(ch) {
		return
	}

	prefix := ch.Namespace()
	if c, ok := channelColors[ch]; ok {
		prefix = c.Sprint(prefix)
	}
	line := fmt.Sprintf("%s %s\n", prefix, msg())

	t.mu.Lock()
	defer t.mu.Unlock()
	_, _ = io.WriteString(t.out, line)
}

// Emitf is Emit with printf style formatting, deferred until the channel
// is known to be enabled.
func (t *Tracer) Emitf(ch Channel, format string, args ...any) {
	t.Emit(ch, func() string {
		return fmt.Sprintf(format, args...)
	})
}
