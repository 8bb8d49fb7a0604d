package filter

import (
	"bytes"
	"fmt"

	"github.com/ridge/geyser/event"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

type keySet map[event.Pubkey]struct{}

func (ks keySet) add(keys ...event.Pubkey) {
	for _, k := range keys {
		ks[k] = struct{}{}
	}
}

func (ks keySet) has(k event.Pubkey) bool {
	_, ok := ks[k]
	return ok
}

func (ks keySet) sorted() []event.Pubkey {
	keys := maps.Keys(ks)
	slices.SortFunc(keys, func(a, b event.Pubkey) bool {
		return bytes.Compare(a[:], b[:]) < 0
	})
	return keys
}

// Subscription is a compiled, deduplicated set of filters.
//
// A Subscription is immutable once compiled; updating the filters of a
// connection means compiling a new Subscription and replacing the old one.
// Safe for concurrent use.
type Subscription struct {
	allAccounts bool
	owners      keySet
	accounts    keySet

	slots     bool
	blockMeta bool

	transactions    bool
	allTransactions bool // some transaction filter has no account list
	txVotes         bool // some filter without account list includes votes
	txAccounts      keySet
	txAccountsVotes keySet // accounts listed by filters including votes
}

// Empty is the subscription of a connection that has not subscribed yet
var Empty = Compile(nil)

// Compile builds a Subscription from a list of filters. Duplicate filters
// collapse, so that an event is never delivered twice.
func Compile(filters []Filter) *Subscription {
	s := &Subscription{
		owners:          keySet{},
		accounts:        keySet{},
		txAccounts:      keySet{},
		txAccountsVotes: keySet{},
	}
	for _, f := range filters {
		switch f := f.(type) {
		case AccountFilter:
			if f.Owner == nil && f.Accounts == nil {
				s.allAccounts = true
				continue
			}
			if f.Owner != nil {
				s.owners.add(*f.Owner)
			}
			s.accounts.add(f.Accounts...)
		case SlotFilter:
			s.slots = true
		case BlockMetaFilter:
			s.blockMeta = true
		case TransactionFilter:
			s.transactions = true
			switch {
			case len(f.Accounts) == 0:
				s.allTransactions = true
				s.txVotes = s.txVotes || f.IncludeVotes
			case f.IncludeVotes:
				s.txAccountsVotes.add(f.Accounts...)
				s.txAccounts.add(f.Accounts...)
			default:
				s.txAccounts.add(f.Accounts...)
			}
		default:
			panic(fmt.Sprintf("unexpected filter type %T", f))
		}
	}
	return s
}

// Matches reports whether any filter of the subscription matches the event
func (s *Subscription) Matches(e event.Event) bool {
	switch e := e.(type) {
	case event.AccountUpdate:
		return s.allAccounts || s.owners.has(e.Account.Owner) || s.accounts.has(e.Pubkey)
	case event.SlotUpdate:
		return s.slots
	case event.BlockMeta:
		return s.blockMeta
	case event.Transaction:
		if !s.transactions {
			return false
		}
		if s.allTransactions && (!e.IsVote || s.txVotes) {
			return true
		}
		accounts := s.txAccounts
		if e.IsVote {
			accounts = s.txAccountsVotes
		}
		for _, key := range e.AccountKeys {
			if accounts.has(key) {
				return true
			}
		}
		return false
	default:
		panic(fmt.Sprintf("unexpected event type %T", e))
	}
}

// Wants reports whether the subscription can match any event of the kind
func (s *Subscription) Wants(kind event.Kind) bool {
	switch kind {
	case event.KindAccount:
		return s.allAccounts || len(s.owners) != 0 || len(s.accounts) != 0
	case event.KindSlot:
		return s.slots
	case event.KindBlockMeta:
		return s.blockMeta
	case event.KindTransaction:
		return s.transactions
	default:
		return false
	}
}

// Filters returns a canonical filter list equivalent to the subscription:
// deduplicated, with keys sorted, in the order accounts, slots, block
// metadata, transactions.
func (s *Subscription) Filters() []Filter {
	var res []Filter

	switch {
	case s.allAccounts:
		res = append(res, AccountFilter{})
	default:
		for _, owner := range s.owners.sorted() {
			res = append(res, Owner(owner))
		}
		if len(s.accounts) != 0 {
			res = append(res, Accounts(s.accounts.sorted()...))
		}
	}

	if s.slots {
		res = append(res, SlotFilter{})
	}
	if s.blockMeta {
		res = append(res, BlockMetaFilter{})
	}

	if s.transactions {
		if s.allTransactions {
			res = append(res, TransactionFilter{IncludeVotes: s.txVotes})
		}
		if len(s.txAccountsVotes) != 0 {
			res = append(res, TransactionFilter{IncludeVotes: true, Accounts: s.txAccountsVotes.sorted()})
		}
		rest := keySet{}
		for k := range s.txAccounts {
			if !s.txAccountsVotes.has(k) {
				rest.add(k)
			}
		}
		if len(rest) != 0 {
			res = append(res, TransactionFilter{Accounts: rest.sorted()})
		}
	}
	return res
}

// Len returns the number of distinct keys indexed by the subscription
func (s *Subscription) Len() int {
	return len(s.owners) + len(s.accounts) + len(s.txAccounts)
}
