package filter

import (
	"math/rand"
	"testing"

	"github.com/ridge/geyser/event"
	"github.com/stretchr/testify/require"
)

var keys = func() []event.Pubkey {
	res := make([]event.Pubkey, 6)
	for i := range res {
		res[i][0] = byte(i + 1)
	}
	return res
}()

func account(pubkey, owner event.Pubkey, version uint64) event.AccountUpdate {
	return event.NewAccountUpdate(pubkey, owner, 1, nil, false, 0, version, 1)
}

func TestMatchesAccount(t *testing.T) {
	p, o, o2 := keys[0], keys[1], keys[2]
	u := account(p, o, 1)

	require.True(t, Matches(u, AccountFilter{}))
	require.True(t, Matches(u, Owner(o)))
	require.False(t, Matches(u, Owner(o2)))
	require.True(t, Matches(u, Accounts(p)))
	require.False(t, Matches(u, Accounts(o)))
	require.False(t, Matches(u, Accounts()))

	// union semantics when both are set
	require.True(t, Matches(u, AccountFilter{Owner: &o2, Accounts: []event.Pubkey{p}}))
	require.True(t, Matches(u, AccountFilter{Owner: &o, Accounts: []event.Pubkey{o2}}))
	require.False(t, Matches(u, AccountFilter{Owner: &o2, Accounts: []event.Pubkey{o2}}))

	require.False(t, Matches(u, SlotFilter{}))
	require.False(t, Matches(u, TransactionFilter{}))
}

func TestEmptyAccountListMatchesNothing(t *testing.T) {
	u := account(keys[0], keys[1], 1)
	var none []event.Pubkey
	for _, f := range []AccountFilter{Accounts(), Accounts(none...)} {
		require.NotNil(t, f.Accounts)
		require.False(t, Matches(u, f))

		sub := Compile([]Filter{SlotFilter{}, f})
		require.False(t, sub.Matches(u))
		require.False(t, sub.Wants(event.KindAccount))
		require.Equal(t, []Filter{SlotFilter{}}, sub.Filters())
	}
}

func TestAccountsCopiesKeys(t *testing.T) {
	list := []event.Pubkey{keys[0]}
	f := Accounts(list...)
	list[0] = keys[1]
	require.True(t, Matches(account(keys[0], keys[2], 1), f))
}

func TestMatchesOtherKinds(t *testing.T) {
	slot := event.NewSlotUpdate(2, 1, event.Processed)
	meta := event.BlockMeta{Slot: 2}
	vote := event.Transaction{Slot: 2, IsVote: true, AccountKeys: []event.Pubkey{keys[0]}}
	tx := event.Transaction{Slot: 2, AccountKeys: []event.Pubkey{keys[1]}}

	require.True(t, Matches(slot, SlotFilter{}))
	require.False(t, Matches(slot, BlockMetaFilter{}))
	require.True(t, Matches(meta, BlockMetaFilter{}))
	require.False(t, Matches(meta, AccountFilter{}))

	require.True(t, Matches(tx, TransactionFilter{}))
	require.False(t, Matches(vote, TransactionFilter{}))
	require.True(t, Matches(vote, TransactionFilter{IncludeVotes: true}))
	require.True(t, Matches(tx, TransactionFilter{Accounts: []event.Pubkey{keys[1]}}))
	require.False(t, Matches(tx, TransactionFilter{Accounts: []event.Pubkey{keys[0]}}))
	require.False(t, Matches(vote, TransactionFilter{Accounts: []event.Pubkey{keys[0]}}))
	require.True(t, Matches(vote, TransactionFilter{IncludeVotes: true, Accounts: []event.Pubkey{keys[0]}}))
}

func TestOwnerScenario(t *testing.T) {
	p, o, o2 := keys[0], keys[1], keys[2]
	subO := Compile([]Filter{Owner(o)})
	subO2 := Compile([]Filter{Owner(o2)})

	for _, u := range []event.AccountUpdate{account(p, o, 1), account(p, o, 2)} {
		require.True(t, subO.Matches(u))
		require.False(t, subO2.Matches(u))
	}
}

func TestEmptySubscription(t *testing.T) {
	require.False(t, Empty.Matches(account(keys[0], keys[1], 1)))
	require.False(t, Empty.Matches(event.NewSlotUpdate(1, 0, event.Finalized)))
	require.False(t, Empty.Matches(event.BlockMeta{}))
	require.False(t, Empty.Matches(event.Transaction{}))
	for _, k := range []event.Kind{event.KindAccount, event.KindSlot, event.KindBlockMeta, event.KindTransaction} {
		require.False(t, Empty.Wants(k))
	}
	require.Empty(t, Empty.Filters())
}

func TestDeduplication(t *testing.T) {
	o := keys[1]
	sub := Compile([]Filter{
		Owner(o), Owner(o), SlotFilter{}, SlotFilter{},
		Accounts(keys[3], keys[2]), Accounts(keys[2]),
	})
	require.Equal(t, []Filter{
		Owner(o),
		Accounts(keys[2], keys[3]),
		SlotFilter{},
	}, sub.Filters())
	require.Equal(t, 3, sub.Len())
}

func TestAllAccountsAbsorbs(t *testing.T) {
	sub := Compile([]Filter{Owner(keys[0]), AccountFilter{}, Accounts(keys[1])})
	require.Equal(t, []Filter{AccountFilter{}}, sub.Filters())
	require.True(t, sub.Wants(event.KindAccount))
}

func randomKeys(r *rand.Rand) []event.Pubkey {
	if r.Intn(3) == 0 {
		return nil
	}
	n := r.Intn(3)
	res := make([]event.Pubkey, 0, n)
	for i := 0; i < n; i++ {
		res = append(res, keys[r.Intn(len(keys))])
	}
	return res
}

func randomFilter(r *rand.Rand) Filter {
	switch r.Intn(4) {
	case 0:
		f := AccountFilter{Accounts: randomKeys(r)}
		if r.Intn(2) == 0 {
			owner := keys[r.Intn(len(keys))]
			f.Owner = &owner
		}
		return f
	case 1:
		return SlotFilter{}
	case 2:
		return BlockMetaFilter{}
	default:
		return TransactionFilter{IncludeVotes: r.Intn(2) == 0, Accounts: randomKeys(r)}
	}
}

func randomEvent(r *rand.Rand) event.Event {
	switch r.Intn(4) {
	case 0:
		return account(keys[r.Intn(len(keys))], keys[r.Intn(len(keys))], uint64(r.Intn(10)))
	case 1:
		return event.NewSlotUpdate(uint64(r.Intn(10)), 0, event.Processed)
	case 2:
		return event.BlockMeta{Slot: uint64(r.Intn(10))}
	default:
		return event.Transaction{IsVote: r.Intn(2) == 0, AccountKeys: randomKeys(r)}
	}
}

func matchesAny(e event.Event, filters []Filter) bool {
	for _, f := range filters {
		if Matches(e, f) {
			return true
		}
	}
	return false
}

func TestSubscriptionEquivalence(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	for i := 0; i < 2000; i++ {
		filters := make([]Filter, r.Intn(5))
		for j := range filters {
			filters[j] = randomFilter(r)
		}
		sub := Compile(filters)
		canonical := sub.Filters()
		recompiled := Compile(canonical)
		require.Equal(t, canonical, recompiled.Filters())

		for j := 0; j < 20; j++ {
			e := randomEvent(r)
			expected := matchesAny(e, filters)
			require.Equal(t, expected, sub.Matches(e), "filters %#v event %#v", filters, e)
			require.Equal(t, expected, matchesAny(e, canonical), "canonical %#v event %#v", canonical, e)
			if expected {
				require.True(t, sub.Wants(e.Kind()))
			}
		}
	}
}
