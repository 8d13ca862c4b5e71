package domain

import "time"

// Market is a two-outcome prediction market on Polymarket.
type Market struct {
	ConditionID string
	QuestionID  string
	Question    string
	Slug        string
	EndDate     time.Time
	Tokens      [2]Token
	NegRisk     bool
	Active      bool
	Closed      bool
	Resolved    bool
}

// Token is one of the two outcome sides of the market.
type Token struct {
	TokenID string
	Outcome string // "Yes" | "No"
	Price   float64
	Winner  bool
}

// HoursToExpiry returns the hours until the market resolves.
// Negative values mean the market already expired (possibly still settling).
func (m Market) HoursToExpiry() float64 {
	if m.EndDate.IsZero() {
		return 0
	}
	return time.Until(m.EndDate).Hours()
}

// WinningToken returns the resolved winning token, if any.
func (m Market) WinningToken() (Token, bool) {
	for _, t := range m.Tokens {
		if t.Winner {
			return t, true
		}
	}
	return Token{}, false
}

// TokenBySide returns the token for the given leg side.
func (m Market) TokenBySide(side LegSide) Token {
	if side == SideB {
		return m.Tokens[1]
	}
	return m.Tokens[0]
}
