package realtime

// EventKind names a server -> client message.
type EventKind string

const (
	EventConnected         EventKind = "connected"
	EventJoined            EventKind = "joined"
	EventError             EventKind = "error"
	EventSeatHeld          EventKind = "seat_held"
	EventSeatReleased      EventKind = "seat_released"
	EventSeatsSold         EventKind = "seats_sold"
	EventSeatStatusChanged EventKind = "seat_status_changed"
	EventCleanup           EventKind = "cleanup"
)

// Event is the single wire shape for every server -> client message. Unused
// fields are omitted, so each kind serializes to its own flat object.
type Event struct {
	Event     EventKind `json:"event"`
	ClientID  string    `json:"clientId,omitempty"`
	SessionID string    `json:"sessionId,omitempty"`
	SeatID    string    `json:"seatId,omitempty"`
	SeatIDs   []string  `json:"seatIds,omitempty"`
	NewStatus string    `json:"newStatus,omitempty"`
	Released  *int      `json:"released,omitempty"`
	Message   string    `json:"message,omitempty"`
	Seats     any       `json:"seats,omitempty"`
}

func Connected(clientID string) Event {
	return Event{Event: EventConnected, ClientID: clientID}
}

func Joined(sessionID string, seats any) Event {
	return Event{Event: EventJoined, SessionID: sessionID, Seats: seats}
}

func Error(message string) Event {
	return Event{Event: EventError, Message: message}
}

func SeatHeld(seatID, sessionID string) Event {
	return Event{Event: EventSeatHeld, SeatID: seatID, SessionID: sessionID}
}

func SeatReleased(seatID, sessionID string) Event {
	return Event{Event: EventSeatReleased, SeatID: seatID, SessionID: sessionID}
}

func SeatsSold(seatIDs []string, sessionID string) Event {
	return Event{Event: EventSeatsSold, SeatIDs: seatIDs, SessionID: sessionID}
}

func SeatStatusChanged(seatIDs []string, status string) Event {
	return Event{Event: EventSeatStatusChanged, SeatIDs: seatIDs, NewStatus: status}
}

func Cleanup(released []string) Event {
	n := len(released)
	return Event{
		Event:    EventCleanup,
		SeatIDs:  released,
		Released: &n,
		Message:  "Expired seat holds cleaned up",
	}
}
