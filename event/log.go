package event

import "go.uber.org/zap/zapcore"

// MarshalLogObject implements zapcore.ObjectMarshaler to allow logging of AccountUpdate with zap.Object
func (u AccountUpdate) MarshalLogObject(e zapcore.ObjectEncoder) error {
	e.AddString("pubkey", u.Pubkey.String())
	e.AddString("owner", u.Account.Owner.String())
	e.AddUint64("lamports", u.Account.Lamports)
	e.AddInt("dataLen", len(u.Account.Data))
	e.AddUint64("writeVersion", u.WriteVersion)
	e.AddUint64("slot", u.Slot)
	return nil
}

// MarshalLogObject implements zapcore.ObjectMarshaler to allow logging of SlotUpdate with zap.Object
func (u SlotUpdate) MarshalLogObject(e zapcore.ObjectEncoder) error {
	e.AddUint64("slot", u.Slot)
	e.AddUint64("parent", u.Parent)
	e.AddString("commitment", u.Commitment.String())
	return nil
}

// MarshalLogObject implements zapcore.ObjectMarshaler to allow logging of BlockMeta with zap.Object
func (m BlockMeta) MarshalLogObject(e zapcore.ObjectEncoder) error {
	e.AddUint64("slot", m.Slot)
	e.AddUint64("parentSlot", m.ParentSlot)
	e.AddString("blockhash", m.Blockhash)
	if m.BlockHeight != nil {
		e.AddUint64("blockHeight", *m.BlockHeight)
	}
	e.AddUint64("executedTransactionCount", m.ExecutedTransactionCount)
	return nil
}

// MarshalLogObject implements zapcore.ObjectMarshaler to allow logging of Transaction with zap.Object
func (t Transaction) MarshalLogObject(e zapcore.ObjectEncoder) error {
	e.AddUint64("slot", t.Slot)
	e.AddString("signature", t.Signature.String())
	e.AddBool("vote", t.IsVote)
	if t.Meta.Err != "" {
		e.AddString("err", t.Meta.Err)
	}
	return nil
}
