package wire

import (
	"fmt"

	"github.com/ridge/geyser/event"
	"github.com/ridge/geyser/filter"
	"github.com/vmihailenco/msgpack/v4"
)

// filterRecord is the serialized form of a filter.
//
// AccountsSet distinguishes an account filter with an empty account list,
// which matches nothing, from one without a list.
type filterRecord struct {
	Target       event.Kind     `msgpack:"target"`
	Owner        *event.Pubkey  `msgpack:"owner,omitempty"`
	Accounts     []event.Pubkey `msgpack:"accounts,omitempty"`
	AccountsSet  bool           `msgpack:"accounts_set,omitempty"`
	IncludeVotes bool           `msgpack:"include_votes,omitempty"`
}

func toRecord(f filter.Filter) filterRecord {
	switch f := f.(type) {
	case filter.AccountFilter:
		return filterRecord{Target: event.KindAccount, Owner: f.Owner, Accounts: f.Accounts, AccountsSet: f.Accounts != nil}
	case filter.SlotFilter:
		return filterRecord{Target: event.KindSlot}
	case filter.BlockMetaFilter:
		return filterRecord{Target: event.KindBlockMeta}
	case filter.TransactionFilter:
		return filterRecord{Target: event.KindTransaction, Accounts: f.Accounts, IncludeVotes: f.IncludeVotes}
	default:
		panic(fmt.Sprintf("unexpected filter type %T", f))
	}
}

func (r filterRecord) filter() (filter.Filter, error) {
	switch r.Target {
	case event.KindAccount:
		f := filter.AccountFilter{Owner: r.Owner}
		if r.AccountsSet {
			f.Accounts = append([]event.Pubkey{}, r.Accounts...)
		}
		return f, nil
	case event.KindSlot:
		return filter.SlotFilter{}, nil
	case event.KindBlockMeta:
		return filter.BlockMetaFilter{}, nil
	case event.KindTransaction:
		return filter.TransactionFilter{IncludeVotes: r.IncludeVotes, Accounts: r.Accounts}, nil
	default:
		return nil, fmt.Errorf("unknown filter target %s", r.Target)
	}
}

func encodeFilters(m FiltersMsg) ([]byte, error) {
	records := make([]filterRecord, 0, len(m.Filters))
	for _, f := range m.Filters {
		records = append(records, toRecord(f))
	}
	b, err := msgpack.Marshal(records)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize filters: %w", err)
	}
	return b, nil
}

func decodeFilters(data []byte) (FiltersMsg, error) {
	var records []filterRecord
	if err := msgpack.Unmarshal(data, &records); err != nil {
		return FiltersMsg{}, fmt.Errorf("failed to deserialize filters: %w", err)
	}
	res := FiltersMsg{Filters: make([]filter.Filter, 0, len(records))}
	for _, r := range records {
		f, err := r.filter()
		if err != nil {
			return FiltersMsg{}, err
		}
		res.Filters = append(res.Filters, f)
	}
	return res, nil
}
