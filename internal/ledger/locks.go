package ledger

import (
	"sync"

	"github.com/gofrs/uuid/v5"
)

// payerLocks serializes balance-mutating operations per payer, so a
// check-then-act (affordability check + debit) is atomic with respect to
// concurrent deposits, withdrawals and other debits on the same payer.
// Locks for distinct payers are independent.
type payerLocks struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*sync.Mutex
}

func newPayerLocks() *payerLocks {
	return &payerLocks{
		locks: make(map[uuid.UUID]*sync.Mutex),
	}
}

func (p *payerLocks) lock(payerID uuid.UUID) (unlock func()) {
	p.mu.Lock()

	l, ok := p.locks[payerID]
	if !ok {
		l = &sync.Mutex{}
		p.locks[payerID] = l
	}

	p.mu.Unlock()

	l.Lock()

	return l.Unlock
}
