package compression

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

var configs = []Config{
	{Type: None},
	Lz4Fast(8),
	ZstdLevel(3),
	{Type: Snappy},
}

func payload() []byte {
	return bytes.Repeat([]byte("account data with some repetition "), 1000)
}

func TestRoundTrip(t *testing.T) {
	src := payload()
	for _, c := range configs {
		codec, err := New(c)
		require.NoError(t, err)
		require.Equal(t, c.Type, codec.Type())

		compressed, err := codec.Compress(src)
		require.NoError(t, err)
		if c.Type != None {
			require.Less(t, len(compressed), len(src), c.Type.String())
		}

		receiver, err := ForType(codec.Type())
		require.NoError(t, err)
		decompressed, err := receiver.Decompress(compressed, len(src))
		require.NoError(t, err)
		require.Equal(t, src, decompressed)
	}
}

func TestLimit(t *testing.T) {
	src := payload()
	for _, c := range configs {
		codec, err := New(c)
		require.NoError(t, err)
		compressed, err := codec.Compress(src)
		require.NoError(t, err)

		_, err = Decompress(c.Type, compressed, len(src)-1)
		require.ErrorIs(t, err, ErrTooLarge, c.Type.String())
	}
}

func TestGarbage(t *testing.T) {
	garbage := []byte{0xde, 0xad, 0xbe, 0xef, 0x01, 0x02, 0x03}
	for _, typ := range []Type{LZ4, Zstd, Snappy} {
		_, err := Decompress(typ, garbage, 1024)
		require.Error(t, err, typ.String())
	}
}

func TestUnknownType(t *testing.T) {
	_, err := ForType(Type(42))
	require.ErrorIs(t, err, ErrUnknownType)
	_, err = New(Config{Type: Type(42)})
	require.ErrorIs(t, err, ErrUnknownType)
	require.Equal(t, "Type(42)", Type(42).String())
}

func TestConfigJSON(t *testing.T) {
	tcs := []struct {
		json   string
		config Config
	}{
		{`"None"`, Config{Type: None}},
		{`{"Lz4Fast":8}`, Lz4Fast(8)},
		{`{"Zstd":3}`, ZstdLevel(3)},
		{`"Snappy"`, Config{Type: Snappy}},
	}
	for _, tc := range tcs {
		var c Config
		require.NoError(t, json.Unmarshal([]byte(tc.json), &c))
		require.Equal(t, tc.config, c)

		b, err := json.Marshal(c)
		require.NoError(t, err)
		require.JSONEq(t, tc.json, string(b))
	}

	var c Config
	require.Error(t, json.Unmarshal([]byte(`"Lz4Fast"`), &c))
	require.Error(t, json.Unmarshal([]byte(`"Brotli"`), &c))
	require.Error(t, json.Unmarshal([]byte(`{"Lz4Fast":1,"Zstd":2}`), &c))
	require.Error(t, json.Unmarshal([]byte(`42`), &c))
}
