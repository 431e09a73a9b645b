package core

// Flusher defines the persistence contract of a run store
type Flusher interface {
	// Flush overwrites the store's file with its in-memory content
	Flush() error

	// Path returns the file the store flushes to
	Path() string
}
