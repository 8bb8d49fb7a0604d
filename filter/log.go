package filter

import "go.uber.org/zap/zapcore"

// MarshalLogObject implements zapcore.ObjectMarshaler to allow logging of Subscription with zap.Object
func (s *Subscription) MarshalLogObject(e zapcore.ObjectEncoder) error {
	if s.allAccounts {
		e.AddBool("allAccounts", true)
	}
	if len(s.owners) != 0 {
		e.AddInt("owners", len(s.owners))
	}
	if len(s.accounts) != 0 {
		e.AddInt("accounts", len(s.accounts))
	}
	if s.slots {
		e.AddBool("slots", true)
	}
	if s.blockMeta {
		e.AddBool("blockMeta", true)
	}
	if s.transactions {
		e.AddBool("transactions", true)
		e.AddBool("votes", s.txVotes || len(s.txAccountsVotes) != 0)
		if len(s.txAccounts) != 0 {
			e.AddInt("transactionAccounts", len(s.txAccounts))
		}
	}
	return nil
}
