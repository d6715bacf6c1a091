package trace

import (
	"bytes"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
)

func disableColor(t *testing.T) {
	t.Helper()
	prev := color.NoColor
	color.NoColor = true
	t.Cleanup(func() { color.NoColor = prev })
}

func TestParseFilter(t *testing.T) {
	tests := []struct {
		name   string
		filter string
		want   []Channel
	}{
		{name: "empty", filter: "", want: nil},
		{name: "single channel", filter: "pgguard:table", want: []Channel{Table}},
		{name: "wildcard", filter: "pgguard:*", want: []Channel{File, Query, Subquery, Table}},
		{name: "global wildcard", filter: "*", want: []Channel{File, Query, Subquery, Table}},
		{name: "exclusion", filter: "pgguard:*,-pgguard:query", want: []Channel{File, Subquery, Table}},
		{name: "exclusion wins regardless of order", filter: "-pgguard:file pgguard:*", want: []Channel{Query, Subquery, Table}},
		{name: "whitespace separated", filter: "pgguard:file  pgguard:subquery", want: []Channel{File, Subquery}},
		{name: "partial wildcard", filter: "pgguard:*query", want: []Channel{Query, Subquery}},
		{name: "foreign namespace", filter: "express:*", want: nil},
		{name: "regexp characters are literal", filter: "pgguard.table", want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseFilter(tt.filter).EnabledChannels())
		})
	}
}

func TestTracer_EmitEnabledChannel(t *testing.T) {
	disableColor(t)
	var buf bytes.Buffer
	tr := New(&buf, NewConfig(Table))

	tr.Emit(Table, func() string { return "  Table: users" })
	tr.Emitf(Table, "    Column %q: %s", "id", "integer")

	assert.Equal(t, "pgguard:table   Table: users\npgguard:table     Column \"id\": integer\n", buf.String())
}

func TestTracer_DisabledChannelSkipsProducer(t *testing.T) {
	var buf bytes.Buffer
	tr := New(&buf, NewConfig(File))

	tr.Emit(Table, func() string {
		t.Fatal("message producer called for a disabled channel")
		return ""
	})

	assert.Empty(t, buf.String())
	assert.True(t, tr.Enabled(File))
	assert.False(t, tr.Enabled(Table))
}

func TestTracer_NilAndDisabled(t *testing.T) {
	var nilTracer *Tracer
	assert.False(t, nilTracer.Enabled(File))
	nilTracer.Emit(File, func() string {
		t.Fatal("nil tracer evaluated message")
		return ""
	})

	off := Disabled()
	for _, ch := range Channels() {
		assert.False(t, off.Enabled(ch))
	}
}

func TestTracer_PreservesCallOrderWithinChannel(t *testing.T) {
	disableColor(t)
	var buf bytes.Buffer
	tr := New(&buf, NewConfig(File))

	for _, msg := range []string{"one", "two", "three"} {
		tr.Emit(File, func() string { return msg })
	}

	assert.Equal(t, "pgguard:file one\npgguard:file two\npgguard:file three\n", buf.String())
}
