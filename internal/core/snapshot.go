package core

// Snapshot is the owner's full financial state at one point in time.
// Transactions are ordered most recent first.
type Snapshot struct {
	Profile      Profile
	Cards        []Card
	Transactions []Transaction
}

// EmptySnapshot is the state of an owner with no data.
func EmptySnapshot(owner string) Snapshot {
	return Snapshot{
		Profile:      DefaultProfile(owner),
		Cards:        []Card{},
		Transactions: []Transaction{},
	}
}

// AggregateBalance sums all card balances.
func AggregateBalance(cards []Card) Money {
	var total Money
	for _, c := range cards {
		total = total.Add(c.Balance)
	}
	return total
}

func (s Snapshot) AggregateBalance() Money {
	return AggregateBalance(s.Cards)
}

// ExpectedBalance recomputes a card balance from its opening balance and
// every transaction that references it.
func ExpectedBalance(card Card, txs []Transaction) Money {
	bal := card.OpeningBalance
	for _, t := range txs {
		if t.CardID == card.ID {
			bal = bal.Add(t.Signed())
		}
	}
	return bal
}

func (s Snapshot) Card(id string) (Card, bool) {
	for _, c := range s.Cards {
		if c.ID == id {
			return c, true
		}
	}
	return Card{}, false
}

func (s Snapshot) Transaction(id string) (Transaction, bool) {
	for _, t := range s.Transactions {
		if t.ID == id {
			return t, true
		}
	}
	return Transaction{}, false
}

// Clone deep-copies the snapshot.
func (s Snapshot) Clone() Snapshot {
	return Snapshot{
		Profile:      s.Profile.Clone(),
		Cards:        append([]Card(nil), s.Cards...),
		Transactions: append([]Transaction(nil), s.Transactions...),
	}
}
