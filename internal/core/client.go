package core

// Client is one connected session as seen by the core layer. A player
// who reconnects gets a fresh Client carrying the same ID, so rooms key
// membership by ID and deliver to whichever session is current.
type Client struct {
	ID     string
	Name   string
	Events chan *Event
}

// NewClient constructs a client with an initialized event channel.
func NewClient(id, name string) *Client {
	if name == "" {
		name = id
	}
	return &Client{
		ID:     id,
		Name:   name,
		Events: make(chan *Event, 32),
	}
}

// Send delivers an event without blocking the room actor. Slow
// consumers lose events; they recover from the next full snapshot.
func (c *Client) Send(ev *Event) bool {
	select {
	case c.Events <- ev:
		return true
	default:
		return false
	}
}
