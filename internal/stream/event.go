package stream

// Event is one framed server-sent event from the backend.
type Event struct {
	// Name is the value of the "event:" field, empty for unnamed events.
	Name string
	// Data is the "data:" payload; multi-line payloads are joined with "\n".
	Data []byte
}
