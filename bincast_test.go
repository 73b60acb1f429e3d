package bincast

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/rawbytedev/bincast/compound"
	"github.com/rawbytedev/bincast/wire"
	"github.com/rawbytedev/bincast/zc"
)

type reading struct {
	Sensor uint16
	Values []int32
}

var readingDef = compound.NewStruct[reading]("reading").
	Field(compound.Value("sensor", wire.U16, func(r *reading) *uint16 { return &r.Sensor })).
	Field(compound.Collection("values", wire.Slice(wire.I32), func(r *reading) *[]int32 { return &r.Values })).
	MustBuild()

func TestEntryPointsRoundTrip(t *testing.T) {
	in := reading{Sensor: 0x0A0B, Values: []int32{-1, 2}}

	b, err := Marshal(in, readingDef)
	require.NoError(t, err)
	require.Equal(t, []byte{0x0B, 0x0A, 2, 0, 0, 0, 0xff, 0xff, 0xff, 0xff, 2, 0, 0, 0}, b)

	out, err := Unmarshal(b, readingDef)
	require.NoError(t, err)
	require.Equal(t, in, out)

	var buf bytes.Buffer
	n, err := Encode(&buf, in, readingDef, WithOrder(wire.Big))
	require.NoError(t, err)
	require.Equal(t, buf.Len(), n)
	require.Equal(t, []byte{0x0A, 0x0B}, buf.Bytes()[:2])

	out, err = Decode(&buf, readingDef, WithOrder(wire.Big))
	require.NoError(t, err)
	require.Equal(t, in, out)
}

func TestUnmarshalRejectsTrailingBytes(t *testing.T) {
	_, err := Unmarshal([]byte{1, 0, 0, 0, 9}, wire.U32)
	require.ErrorIs(t, err, wire.ErrInvalidEncoding)
	var werr *wire.Error
	require.ErrorAs(t, err, &werr)
	require.Equal(t, 4, werr.Offset)

	_, err = Unmarshal([]byte{1, 0}, wire.U32)
	require.ErrorIs(t, err, wire.ErrInsufficientInput)
}

func TestViewBorrows(t *testing.T) {
	buf := []byte{5, 0, 0, 0, 'h', 'e', 'l', 'l', 'o'}
	s, err := View(buf, zc.BytesView)
	require.NoError(t, err)
	require.Equal(t, []byte("hello"), s)
	buf[4] = 'j'
	require.Equal(t, []byte("jello"), s)

	enc, err := Marshal(reading{Sensor: 5, Values: []int32{7}}, readingDef)
	require.NoError(t, err)
	v, err := View(enc, readingDef)
	require.NoError(t, err)
	require.Equal(t, reading{Sensor: 5, Values: []int32{7}}, v)
}

func TestParseConfig(t *testing.T) {
	c, err := ParseConfig([]byte("order: big\nlog_level: debug\n"))
	require.NoError(t, err)
	require.Equal(t, Config{Order: "big", LogLevel: "debug"}, c)

	opts, err := c.Options()
	require.NoError(t, err)
	require.Equal(t, Options{Order: wire.Big}, newOptions(opts))

	l, err := c.Logger()
	require.NoError(t, err)
	require.True(t, l.Core().Enabled(zapcore.DebugLevel))

	for order, want := range map[string]wire.Endian{
		"":       wire.Little,
		"LE":     wire.Little,
		"little": wire.Little,
		"be":     wire.Big,
		"native": wire.Native,
	} {
		opts, err := Config{Order: order}.Options()
		require.NoError(t, err, order)
		require.Equal(t, want, newOptions(opts).Order, order)
	}

	_, err = Config{Order: "middle"}.Options()
	require.Error(t, err)
	_, err = Config{LogLevel: "loud"}.Logger()
	require.Error(t, err)
	_, err = ParseConfig([]byte("order: [1"))
	require.Error(t, err)
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bincast.yaml")
	require.NoError(t, os.WriteFile(path, []byte("order: little\n"), 0o600))
	c, err := LoadConfig(path)
	require.NoError(t, err)
	require.Equal(t, "little", c.Order)

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestSetLoggerForwards(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	SetLogger(zap.New(core))
	t.Cleanup(func() { SetLogger(zap.NewNop()) })

	type Logged struct {
		A uint8
	}
	_, err := NewEngine().Marshal(Logged{A: 1})
	require.NoError(t, err)
	require.Equal(t, 1, logs.FilterMessage("tag plan built").Len())
}
