package resolver

// Option configures the Runtime built by Registry.Build.
type Option func(*options)

type options struct {
	maxConcurrency int
}

// WithMaxConcurrency bounds how many async fields of one depth resolve at
// the same time. n <= 0 means unbounded.
func WithMaxConcurrency(n int) Option {
	return func(o *options) { o.maxConcurrency = n }
}
