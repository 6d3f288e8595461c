package ledger

import "asset_ledger/internal/domain"

// Sequence hands out strictly increasing item ids. It is not safe for
// concurrent use; the ledger only touches it while holding its operation lock.
type Sequence struct {
	next domain.ItemID
}

// NewSequence creates a sequence whose first id is 1.
func NewSequence() *Sequence {
	return &Sequence{next: 1}
}

// Peek returns the id the next committed record will receive.
func (s *Sequence) Peek() domain.ItemID {
	return s.next
}

// Advance consumes the peeked id.
func (s *Sequence) Advance() {
	s.next++
}

// ResumeAfter moves the sequence past last so restored ids are never reused.
func (s *Sequence) ResumeAfter(last domain.ItemID) {
	if last >= s.next {
		s.next = last + 1
	}
}
