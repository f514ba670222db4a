package session

// Option configures a Session during creation.
type Option func(*Session)

// WithLogger sets the session logger.
func WithLogger(l Logger) Option {
	return func(s *Session) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithPlaceholder overrides the value HardReset installs.
func WithPlaceholder(text string) Option {
	return func(s *Session) {
		s.placeholder = text
	}
}

// WithHistoryLimit caps the undo chain at max entries, evicting the
// oldest. Zero or negative keeps it unbounded, the default.
func WithHistoryLimit(max int) Option {
	return func(s *Session) {
		if max > 0 {
			s.historyLimit = max
		}
	}
}
