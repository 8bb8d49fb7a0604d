package wire

import (
	"bytes"
	"errors"
	"io"
	"testing"

	"github.com/ridge/geyser/compression"
	"github.com/ridge/geyser/event"
	"github.com/ridge/geyser/filter"
	"github.com/stretchr/testify/require"
)

const limit = 1 << 20

var (
	owner  = event.MustParsePubkey("TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA")
	pubkey = event.MustParsePubkey("4Nd1mBQtrMJVYVfKf2PJy9NZUZdTAsp7D4xWLs4gDB4T")
)

func messages() []Message {
	return []Message{
		AccountMsg{event.NewAccountUpdate(pubkey, owner, 42, bytes.Repeat([]byte{7}, 300), false, 361, 10, 100)},
		SlotMsg{event.NewSlotUpdate(101, 100, event.Finalized)},
		BlockMetaMsg{event.BlockMeta{Slot: 101, ParentSlot: 100, Blockhash: "hash", ExecutedTransactionCount: 3}},
		TransactionMsg{event.Transaction{Slot: 101, Signature: event.Signature{9}, AccountKeys: []event.Pubkey{pubkey}}},
		FiltersMsg{Filters: []filter.Filter{
			filter.Owner(owner),
			filter.Accounts(pubkey),
			filter.AccountFilter{},
			filter.SlotFilter{},
			filter.BlockMetaFilter{},
			filter.TransactionFilter{IncludeVotes: true, Accounts: []event.Pubkey{owner}},
		}},
	}
}

func codecs(t *testing.T) []compression.Codec {
	var res []compression.Codec
	for _, c := range []compression.Config{{Type: compression.None}, compression.Lz4Fast(8), compression.ZstdLevel(1), {Type: compression.Snappy}} {
		codec, err := compression.New(c)
		require.NoError(t, err)
		res = append(res, codec)
	}
	return res
}

func TestRoundTrip(t *testing.T) {
	for _, codec := range codecs(t) {
		for _, msg := range messages() {
			frame, err := Encode(msg, codec)
			require.NoError(t, err)
			require.Equal(t, byte(msg.Kind()), frame[0])
			require.Equal(t, byte(codec.Type()), frame[1])

			decoded, err := Decode(bytes.NewReader(frame), limit)
			require.NoError(t, err)
			require.Equal(t, msg, decoded)

			parsed, err := Parse(frame, limit)
			require.NoError(t, err)
			require.Equal(t, msg, parsed)
		}
	}
}

func TestEmptyAccountListSurvives(t *testing.T) {
	var none []event.Pubkey
	u := event.NewAccountUpdate(pubkey, owner, 0, nil, false, 0, 1, 1)
	for _, sent := range []filter.AccountFilter{filter.Accounts(), filter.Accounts(none...)} {
		frame, err := Encode(FiltersMsg{Filters: []filter.Filter{sent}}, codecs(t)[0])
		require.NoError(t, err)
		decoded, err := Parse(frame, limit)
		require.NoError(t, err)

		filters := decoded.(FiltersMsg).Filters
		f := filters[0].(filter.AccountFilter)
		require.NotNil(t, f.Accounts)
		require.Empty(t, f.Accounts)
		require.False(t, filter.Matches(u, f))
		require.False(t, filter.Compile(filters).Matches(u))
	}
}

func TestEventRoundTrip(t *testing.T) {
	codec := codecs(t)[1]
	e := event.NewSlotUpdate(5, 4, event.Confirmed)
	frame, err := EncodeEvent(e, codec)
	require.NoError(t, err)
	msg, err := Parse(frame, limit)
	require.NoError(t, err)
	require.Equal(t, e, msg.(EventMessage).Event())
}

func requireProtocolError(t *testing.T, err error) {
	t.Helper()
	var perr *ErrProtocol
	require.True(t, errors.As(err, &perr), "expected protocol error, got %v", err)
}

func validFrame(t *testing.T) []byte {
	frame, err := Encode(messages()[0], codecs(t)[1])
	require.NoError(t, err)
	return frame
}

func TestDecodeTruncated(t *testing.T) {
	frame := validFrame(t)
	for _, n := range []int{0, 3, HeaderSize, len(frame) - 1} {
		_, err := Decode(bytes.NewReader(frame[:n]), limit)
		requireProtocolError(t, err)
		_, err = Parse(frame[:n], limit)
		requireProtocolError(t, err)
	}
}

func TestDecodeTrailingBytes(t *testing.T) {
	frame := append(validFrame(t), 0)
	_, err := Decode(bytes.NewReader(frame), limit)
	requireProtocolError(t, err)
	_, err = Parse(frame, limit)
	requireProtocolError(t, err)
}

func TestDecodeUnknownKind(t *testing.T) {
	frame := validFrame(t)
	frame[0] = 42
	_, err := Decode(bytes.NewReader(frame), limit)
	requireProtocolError(t, err)
}

func TestDecodeUnknownCompression(t *testing.T) {
	frame := validFrame(t)
	frame[1] = 42
	_, err := Decode(bytes.NewReader(frame), limit)
	requireProtocolError(t, err)
	require.ErrorIs(t, err, compression.ErrUnknownType)
}

func TestDecodeOversized(t *testing.T) {
	frame := validFrame(t)
	_, err := Decode(bytes.NewReader(frame), len(frame)-HeaderSize-1)
	requireProtocolError(t, err)

	// decompression bomb: small compressed payload, large result
	codec := codecs(t)[1]
	big, err := Encode(AccountMsg{event.NewAccountUpdate(pubkey, owner, 1, make([]byte, 100000), false, 0, 1, 1)}, codec)
	require.NoError(t, err)
	require.Less(t, len(big), 10000)
	_, err = Parse(big, 10000)
	requireProtocolError(t, err)
	require.ErrorIs(t, err, compression.ErrTooLarge)
}

func TestDecodeCorruptPayload(t *testing.T) {
	frame := Frame(KindAccount, compression.None, []byte{0xc1, 0xc1, 0xc1})
	_, err := Decode(bytes.NewReader(frame), limit)
	requireProtocolError(t, err)

	frame = Frame(KindFilters, compression.None, []byte{0x91, 0x81, 0xa6, 't', 'a', 'r', 'g', 'e', 't', 0x09})
	_, err = Decode(bytes.NewReader(frame), limit)
	requireProtocolError(t, err)
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) {
	return 0, io.ErrClosedPipe
}

func TestDecodeReadError(t *testing.T) {
	_, err := Decode(failingReader{}, limit)
	require.ErrorIs(t, err, io.ErrClosedPipe)
	var perr *ErrProtocol
	require.False(t, errors.As(err, &perr))
}

func TestCloseCode(t *testing.T) {
	require.Equal(t, "overloaded", CloseOverloaded.String())
	require.Equal(t, "close code 99", CloseCode(99).String())
	require.Equal(t, "connection closed by peer: protocol error: bad frame",
		ErrClosed{Code: CloseProtocol, Remote: true, Reason: "bad frame"}.Error())
}

func TestExitCode(t *testing.T) {
	require.Equal(t, 102, ErrClosed{Code: CloseOverloaded, Remote: true}.ExitCode())
	require.Equal(t, 1, ErrClosed{Code: CloseOverloaded}.ExitCode())
	require.Equal(t, 1, ErrClosed{Code: CloseCode(99), Remote: true}.ExitCode())
}
