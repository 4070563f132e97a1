package authflowrepo

import "time"

// AuthFlowState is what a pending sign-in needs when the provider redirects back.
type AuthFlowState struct {
	CodeVerifier string
	Nonce        string
	ReturnURL    string
	CreatedAt    time.Time
}

type Repo interface {
	Upsert(state string, authState *AuthFlowState) error
	Get(state string) (*AuthFlowState, error)
	Delete(state string) error
	// Take returns and removes the state so it cannot be replayed.
	Take(state string) (*AuthFlowState, error)
	DeleteExpired(before time.Time) int
}
