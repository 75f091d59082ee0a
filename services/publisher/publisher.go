package publisher

// Publisher represents a service for publishing listing events
type Publisher interface {
	// Publish appends a message to the event stream
	Publish(message []byte) error

	// Close closes the publisher connection
	Close() error
}
