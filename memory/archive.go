package memory

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Turn is one accepted exchange between a user and the agent that won routing.
type Turn struct {
	ID        string    `json:"id" bson:"_id"`
	SessionID string    `json:"session_id" bson:"session_id"`
	Agent     string    `json:"agent" bson:"agent"`
	Query     string    `json:"query" bson:"query"`
	Reply     string    `json:"reply" bson:"reply"`
	Score     float64   `json:"score" bson:"score"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
}

// NewTurn stamps a turn with an ID and creation time.
func NewTurn(sessionID, agent, query, reply string, score float64) *Turn {
	return &Turn{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		Agent:     agent,
		Query:     query,
		Reply:     reply,
		Score:     score,
		CreatedAt: time.Now().UTC(),
	}
}

// Archive persists completed turns beyond the bounded in-memory log.
type Archive interface {
	Record(ctx context.Context, turn *Turn) error
	// History returns up to limit turns for the agent, oldest first.
	// A non-positive limit returns everything kept.
	History(ctx context.Context, agent string, limit int) ([]*Turn, error)
}
