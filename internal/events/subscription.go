package events

import "time"

// SubscriptionStart is emitted once a subscription stream has been set up.
type SubscriptionStart struct {
	Field string
}

// SubscriptionFinish is emitted when a subscription stream ends.
type SubscriptionFinish struct {
	Field    string
	Events   int
	Err      error
	Duration time.Duration
}
