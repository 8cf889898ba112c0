package statemachine

import (
	"puceats-api/apperr"
	"puceats-api/models"
)

// Transition defines a valid token state change and what triggers it
type Transition struct {
	From    models.TokenStatus `json:"from"`
	To      models.TokenStatus `json:"to"`
	Trigger string             `json:"trigger"` // "redeem", "clock"
}

// validTransitions is the authoritative token lifecycle. USED and EXPIRED are terminal.
var validTransitions = []Transition{
	// An owner consumes the code while registering or adding an establishment
	{From: models.TokenAvailable, To: models.TokenUsed, Trigger: "redeem"},
	// Validity window elapses
	{From: models.TokenAvailable, To: models.TokenExpired, Trigger: "clock"},
}

type transitionKey struct {
	From    models.TokenStatus
	To      models.TokenStatus
	Trigger string
}

var transitionMap = func() map[transitionKey]bool {
	m := make(map[transitionKey]bool)
	for _, t := range validTransitions {
		m[transitionKey{t.From, t.To, t.Trigger}] = true
	}
	return m
}()

// CanTransition reports whether trigger may move a token from one status to another
func CanTransition(from, to models.TokenStatus, trigger string) bool {
	return transitionMap[transitionKey{From: from, To: to, Trigger: trigger}]
}

// IsTerminal reports whether no further transition leaves status
func IsTerminal(status models.TokenStatus) bool {
	for _, t := range validTransitions {
		if t.From == status {
			return false
		}
	}
	return true
}

// CheckRedeemable maps a token status to the user-facing redemption outcome.
// A nil return means the token may be redeemed.
func CheckRedeemable(status models.TokenStatus) error {
	if CanTransition(status, models.TokenUsed, "redeem") {
		return nil
	}
	switch status {
	case models.TokenUsed:
		return apperr.AlreadyUsed("token has already been used")
	case models.TokenExpired:
		return apperr.Expired("token has expired")
	default:
		return apperr.Validation("token is in an unknown state %q", status)
	}
}

// GetAllTransitions returns the lifecycle for documentation
func GetAllTransitions() []Transition {
	return validTransitions
}
