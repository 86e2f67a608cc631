package events

import "context"

// Event topic constants
const (
	TopicPipeCreated  = "hci.pipe.created"
	TopicPipeDeleted  = "hci.pipe.deleted"
	TopicPipesCleared = "hci.pipes.cleared"
	TopicSequenceEnd  = "hci.sequence.end"
)

type PipeEvent struct {
	SessionID string `json:"session_id"`
	PipeID    uint8  `json:"pipe_id"`
	Gate      string `json:"gate"`
}

type ClearedEvent struct {
	SessionID string `json:"session_id"`
	Count     int    `json:"count"`
}

// SequenceEvent is published once a bring-up has created all of its pipes and
// initialized the dependent subsystems.
type SequenceEvent struct {
	SessionID string `json:"session_id"`
	Pipes     int    `json:"pipes"`
}

// Publisher is the interface for emitting events.
type Publisher interface {
	Publish(ctx context.Context, topic string, event any) error
	Close() error
}
