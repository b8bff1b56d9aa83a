package core

// DefaultCardPolicy picks the card a transaction lands on when the caller
// names none. The bool is false when no card applies.
type DefaultCardPolicy func(cards []Card) (string, bool)

// FirstCard selects the owner's first card in stored order.
func FirstCard(cards []Card) (string, bool) {
	if len(cards) == 0 {
		return "", false
	}
	return cards[0].ID, true
}

// NoDefaultCard never selects a card.
func NoDefaultCard([]Card) (string, bool) {
	return "", false
}
