package history

// Option configures a Stack during creation.
type Option func(*Stack)

// WithMaxEntries caps the executed sequence at max entries, evicting the
// oldest when the cap is exceeded. Zero or negative means unbounded.
func WithMaxEntries(max int) Option {
	return func(s *Stack) {
		if max > 0 {
			s.maxEntries = max
		}
	}
}
