package event

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

var (
	testOwner  = MustParsePubkey("TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA")
	testPubkey = MustParsePubkey("4Nd1mBQtrMJVYVfKf2PJy9NZUZdTAsp7D4xWLs4gDB4T")
)

func testEvents() []Event {
	height := uint64(1234)
	commission := uint8(7)
	units := uint64(20000)
	return []Event{
		NewAccountUpdate(testPubkey, testOwner, 42, []byte{1, 2, 3}, false, 361, 10, 100),
		NewSlotUpdate(101, 100, Confirmed),
		BlockMeta{
			Slot:            101,
			ParentSlot:      100,
			Blockhash:       "3Eq21vXNB5s86c62bVuUfTeaMif1N2kUqRPBmGRJhyTA",
			ParentBlockhash: "9Lc8EyyfsHpqmgy3hh3rC7WxkGZUwfho55LWLVEdDBz4",
			Rewards: []Reward{
				{Pubkey: testPubkey.String(), Lamports: 5000, PostBalance: 10000, RewardType: RewardVoting, Commission: &commission},
			},
			BlockHeight:              &height,
			ExecutedTransactionCount: 12,
			EntriesCount:             3,
		},
		Transaction{
			Slot:        101,
			Signature:   Signature{1, 2, 3},
			IsVote:      true,
			Index:       4,
			AccountKeys: []Pubkey{testPubkey, testOwner},
			Message:     []byte("message"),
			Meta: TransactionMeta{
				Fee:                  5000,
				PreBalances:          []uint64{1, 2},
				PostBalances:         []uint64{3, 4},
				ComputeUnitsConsumed: &units,
				LogMessages:          []string{"Program log: hello"},
			},
		},
	}
}

func TestSerializeRoundTrip(t *testing.T) {
	for _, e := range testEvents() {
		b, err := Serialize(e)
		require.NoError(t, err)
		decoded, err := Deserialize(e.Kind(), b)
		require.NoError(t, err)
		require.Equal(t, e, decoded)
	}
}

func TestSerializeDeterministic(t *testing.T) {
	for _, e := range testEvents() {
		b1, err := Serialize(e)
		require.NoError(t, err)
		b2, err := Serialize(e)
		require.NoError(t, err)
		require.Equal(t, b1, b2)
	}
}

func TestDeserializeUnknownKind(t *testing.T) {
	_, err := Deserialize(Kind(42), []byte{0x80})
	require.Error(t, err)
}

func TestDeserializeGarbage(t *testing.T) {
	_, err := Deserialize(KindAccount, []byte{0xc1, 0xff, 0x00})
	require.Error(t, err)
}

func TestPubkeyText(t *testing.T) {
	text, err := testOwner.MarshalText()
	require.NoError(t, err)
	require.Equal(t, "TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA", string(text))

	var pk Pubkey
	require.NoError(t, pk.UnmarshalText(text))
	require.Equal(t, testOwner, pk)

	require.Error(t, pk.UnmarshalText([]byte("abc")))
	require.Error(t, pk.UnmarshalText([]byte("0OIl")))
	require.True(t, Pubkey{}.IsZero())
	require.Equal(t, "11111111111111111111111111111111", Pubkey{}.String())
}

func TestCommitmentLevel(t *testing.T) {
	for _, c := range []CommitmentLevel{Processed, Confirmed, Finalized} {
		parsed, err := ParseCommitmentLevel(c.String())
		require.NoError(t, err)
		require.Equal(t, c, parsed)
		require.True(t, c.Valid())
	}
	_, err := ParseCommitmentLevel("rooted")
	require.Error(t, err)
	require.False(t, CommitmentLevel(3).Valid())
}

func TestAccountStateMonotonic(t *testing.T) {
	updates := make([]AccountUpdate, 0, 50)
	for v := uint64(1); v <= 50; v++ {
		updates = append(updates, NewAccountUpdate(testPubkey, testOwner, v*10, nil, false, 0, v, 1))
	}

	for seed := int64(0); seed < 20; seed++ {
		shuffled := append([]AccountUpdate(nil), updates...)
		rand.New(rand.NewSource(seed)).Shuffle(len(shuffled), func(i, j int) {
			shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
		})

		state := NewAccountState()
		var highest uint64
		for _, u := range shuffled {
			applied := state.Apply(u)
			require.Equal(t, u.WriteVersion > highest, applied)
			if applied {
				highest = u.WriteVersion
			}
			cur, ok := state.Get(testPubkey)
			require.True(t, ok)
			require.Equal(t, highest, cur.WriteVersion)
		}

		final, ok := state.Get(testPubkey)
		require.True(t, ok)
		require.Equal(t, uint64(50), final.WriteVersion)
		require.Equal(t, uint64(500), final.Account.Lamports)
		require.Equal(t, 1, state.Len())
	}
}

func TestSlotStateNeverRegresses(t *testing.T) {
	state := NewSlotState()
	require.True(t, state.Apply(NewSlotUpdate(5, 4, Confirmed)))
	require.False(t, state.Apply(NewSlotUpdate(5, 4, Processed)))
	require.False(t, state.Apply(NewSlotUpdate(5, 4, Confirmed)))
	require.True(t, state.Apply(NewSlotUpdate(5, 4, Finalized)))

	c, ok := state.Commitment(5)
	require.True(t, ok)
	require.Equal(t, Finalized, c)

	require.True(t, state.Apply(NewSlotUpdate(6, 5, Processed)))
	state.Prune(6)
	_, ok = state.Commitment(5)
	require.False(t, ok)
	_, ok = state.Commitment(6)
	require.True(t, ok)
}

func TestSlot(t *testing.T) {
	for _, e := range testEvents() {
		require.NotZero(t, Slot(e))
	}
}
