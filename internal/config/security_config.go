package config

import "time"

type SessionConfig interface {
	GetSessionMaxAge() time.Duration
	GetAuthFlowTimeout() time.Duration
}

type Session struct{}

var _ SessionConfig = Session{}

// GetSessionMaxAge reads SESSION_MAX_AGE as a Go duration, defaulting to 8 hours.
func (Session) GetSessionMaxAge() time.Duration {
	if d, err := time.ParseDuration(GetEnv("SESSION_MAX_AGE", "")); err == nil && d > 0 {
		return d
	}
	return 8 * time.Hour
}

func (Session) GetAuthFlowTimeout() time.Duration {
	return 10 * time.Minute // Pending sign-ins are discarded after this
}
