// Package filter describes which events a subscriber is interested in.
//
// A Filter targets exactly one event variant. A subscription is a set of
// filters combined with logical OR: an event is delivered if any filter
// matches it. Compile turns a filter list into a Subscription indexed by
// hash sets, so that matching costs O(1) regardless of the number of
// accounts subscribed to.
package filter

import (
	"fmt"

	"github.com/ridge/geyser/event"
)

// Filter is a predicate over events of one variant
type Filter interface {
	// Target returns the event variant the filter applies to
	Target() event.Kind
	isFilter()
}

// AccountFilter matches account updates.
//
// If both Owner and Accounts are set, an update matches when either the
// owner equals Owner or the account key is in Accounts. If neither is set,
// every account update matches.
type AccountFilter struct {
	Owner    *event.Pubkey
	Accounts []event.Pubkey
}

// SlotFilter matches all slot updates
type SlotFilter struct{}

// BlockMetaFilter matches all block metadata
type BlockMetaFilter struct{}

// TransactionFilter matches transactions.
//
// Vote transactions match only if IncludeVotes is set. If Accounts is not
// empty, a transaction matches only if it references one of the accounts.
type TransactionFilter struct {
	IncludeVotes bool
	Accounts     []event.Pubkey
}

// Target implements Filter
func (AccountFilter) Target() event.Kind { return event.KindAccount }

// Target implements Filter
func (SlotFilter) Target() event.Kind { return event.KindSlot }

// Target implements Filter
func (BlockMetaFilter) Target() event.Kind { return event.KindBlockMeta }

// Target implements Filter
func (TransactionFilter) Target() event.Kind { return event.KindTransaction }

func (AccountFilter) isFilter()     {}
func (SlotFilter) isFilter()        {}
func (BlockMetaFilter) isFilter()   {}
func (TransactionFilter) isFilter() {}

// Owner is a shorthand for an AccountFilter matching all accounts owned by
// a program
func Owner(owner event.Pubkey) AccountFilter {
	return AccountFilter{Owner: &owner}
}

// Accounts is a shorthand for an AccountFilter matching an explicit set of
// accounts. The list is never nil, so that no keys match no accounts.
func Accounts(accounts ...event.Pubkey) AccountFilter {
	return AccountFilter{Accounts: append([]event.Pubkey{}, accounts...)}
}

// Matches reports whether a single filter matches an event.
//
// This is the reference definition. Subscription.Matches computes the same
// result for a set of filters using indices.
func Matches(e event.Event, f Filter) bool {
	if e.Kind() != f.Target() {
		return false
	}
	switch f := f.(type) {
	case AccountFilter:
		u := e.(event.AccountUpdate)
		if f.Owner == nil && f.Accounts == nil {
			return true
		}
		if f.Owner != nil && *f.Owner == u.Account.Owner {
			return true
		}
		for _, pk := range f.Accounts {
			if pk == u.Pubkey {
				return true
			}
		}
		return false
	case SlotFilter, BlockMetaFilter:
		return true
	case TransactionFilter:
		tx := e.(event.Transaction)
		if tx.IsVote && !f.IncludeVotes {
			return false
		}
		if len(f.Accounts) == 0 {
			return true
		}
		for _, key := range tx.AccountKeys {
			for _, pk := range f.Accounts {
				if pk == key {
					return true
				}
			}
		}
		return false
	default:
		panic(fmt.Sprintf("unexpected filter type %T", f))
	}
}
