package domain

// EventType defines the type of real-time event.
type EventType string

const (
	EventDatasetUploaded EventType = "DATASET_UPLOADED"
	EventDatasetDeleted  EventType = "DATASET_DELETED"
	EventOverrideUpdated EventType = "OVERRIDE_UPDATED"
	EventPong            EventType = "PONG"
)

// IsGlobal reports whether the event changes the dataset list itself and so
// goes to every connected client rather than one dataset room.
func (t EventType) IsGlobal() bool {
	return t == EventDatasetUploaded || t == EventDatasetDeleted
}

// Event is the payload sent over WebSocket.
type Event struct {
	Type      EventType   `json:"type"`
	Payload   interface{} `json:"payload"`
	DatasetID string      `json:"datasetId"` // Used for routing to dataset "rooms"
}
