package core

// Logger interface for fog renderer logging
type Logger interface {
	Printf(format string, args ...interface{})
}
