package event

// AccountState resolves the authoritative value of each account from updates
// received in any order: the update with the highest WriteVersion wins.
//
// Not safe for concurrent use.
type AccountState struct {
	latest map[Pubkey]AccountUpdate
}

// NewAccountState creates an empty AccountState
func NewAccountState() *AccountState {
	return &AccountState{latest: map[Pubkey]AccountUpdate{}}
}

// Apply records an update. Returns false if the update is not newer than the
// one already recorded for the same pubkey, in which case the visible state
// does not change.
func (s *AccountState) Apply(u AccountUpdate) bool {
	if cur, ok := s.latest[u.Pubkey]; ok && cur.WriteVersion >= u.WriteVersion {
		return false
	}
	s.latest[u.Pubkey] = u
	return true
}

// Get returns the authoritative update for a pubkey
func (s *AccountState) Get(pubkey Pubkey) (AccountUpdate, bool) {
	u, ok := s.latest[pubkey]
	return u, ok
}

// Len returns the number of accounts known
func (s *AccountState) Len() int {
	return len(s.latest)
}

// SlotState tracks the highest commitment level seen for each slot.
//
// Not safe for concurrent use.
type SlotState struct {
	levels map[uint64]CommitmentLevel
}

// NewSlotState creates an empty SlotState
func NewSlotState() *SlotState {
	return &SlotState{levels: map[uint64]CommitmentLevel{}}
}

// Apply records a slot update. Returns false for a repeated or regressing
// commitment level.
func (s *SlotState) Apply(u SlotUpdate) bool {
	if cur, ok := s.levels[u.Slot]; ok && cur >= u.Commitment {
		return false
	}
	s.levels[u.Slot] = u.Commitment
	return true
}

// Commitment returns the highest commitment level seen for a slot
func (s *SlotState) Commitment(slot uint64) (CommitmentLevel, bool) {
	c, ok := s.levels[slot]
	return c, ok
}

// Prune forgets all slots below the given one
func (s *SlotState) Prune(below uint64) {
	for slot := range s.levels {
		if slot < below {
			delete(s.levels, slot)
		}
	}
}
