package store

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
	"github.com/sweetpotato0/ai-dispatch/memory"
)

// PostgresArchive stores turns in a PostgreSQL table.
type PostgresArchive struct {
	db *sql.DB
}

// PostgresConfig holds PostgreSQL connection configuration
type PostgresConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// DefaultPostgresConfig returns default PostgreSQL configuration
func DefaultPostgresConfig() *PostgresConfig {
	return &PostgresConfig{
		Host:     "localhost",
		Port:     5432,
		User:     "postgres",
		Password: "postgres",
		DBName:   "ai_dispatch",
		SSLMode:  "disable",
	}
}

// DSN renders the connection string understood by lib/pq.
func (c *PostgresConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}

// NewPostgresArchive connects using the config and creates the table if needed.
func NewPostgresArchive(ctx context.Context, config *PostgresConfig) (*PostgresArchive, error) {
	if config == nil {
		config = DefaultPostgresConfig()
	}
	return OpenPostgresArchive(ctx, config.DSN())
}

// OpenPostgresArchive connects using a raw DSN.
func OpenPostgresArchive(ctx context.Context, dsn string) (*PostgresArchive, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping PostgreSQL: %w", err)
	}

	store := &PostgresArchive{db: db}
	if err := store.createTable(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create table: %w", err)
	}
	return store, nil
}

func (s *PostgresArchive) createTable(ctx context.Context) error {
	query := `
	CREATE TABLE IF NOT EXISTS dispatch_turns (
		id VARCHAR(64) PRIMARY KEY,
		session_id VARCHAR(255) NOT NULL DEFAULT '',
		agent VARCHAR(255) NOT NULL,
		query TEXT NOT NULL,
		reply TEXT NOT NULL,
		score DOUBLE PRECISION NOT NULL,
		created_at TIMESTAMP NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_dispatch_turns_agent_created ON dispatch_turns(agent, created_at);
	`
	_, err := s.db.ExecContext(ctx, query)
	return err
}

// Record inserts the turn.
func (s *PostgresArchive) Record(ctx context.Context, turn *memory.Turn) error {
	if turn == nil {
		return fmt.Errorf("turn cannot be nil")
	}

	query := `
	INSERT INTO dispatch_turns (id, session_id, agent, query, reply, score, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7)
	ON CONFLICT (id) DO NOTHING
	`
	_, err := s.db.ExecContext(ctx, query,
		turn.ID, turn.SessionID, turn.Agent, turn.Query, turn.Reply, turn.Score, turn.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to add turn to PostgreSQL: %w", err)
	}
	return nil
}

// History returns the newest limit turns for the agent, oldest first.
func (s *PostgresArchive) History(ctx context.Context, agent string, limit int) ([]*memory.Turn, error) {
	var (
		rows *sql.Rows
		err  error
	)
	base := `SELECT id, session_id, agent, query, reply, score, created_at
		FROM dispatch_turns WHERE agent = $1 ORDER BY created_at DESC`
	if limit > 0 {
		rows, err = s.db.QueryContext(ctx, base+` LIMIT $2`, agent, limit)
	} else {
		rows, err = s.db.QueryContext(ctx, base, agent)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query turns: %w", err)
	}
	defer rows.Close()

	turns := make([]*memory.Turn, 0)
	for rows.Next() {
		turn := &memory.Turn{}
		if err := rows.Scan(&turn.ID, &turn.SessionID, &turn.Agent, &turn.Query,
			&turn.Reply, &turn.Score, &turn.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan turn: %w", err)
		}
		turns = append(turns, turn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating turns: %w", err)
	}

	reverse(turns)
	return turns, nil
}

// Clear removes the agent's turns.
func (s *PostgresArchive) Clear(ctx context.Context, agent string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM dispatch_turns WHERE agent = $1", agent); err != nil {
		return fmt.Errorf("failed to clear turns: %w", err)
	}
	return nil
}

// Close closes the PostgreSQL connection
func (s *PostgresArchive) Close() error {
	return s.db.Close()
}

func reverse(turns []*memory.Turn) {
	for i, j := 0, len(turns)-1; i < j; i, j = i+1, j-1 {
		turns[i], turns[j] = turns[j], turns[i]
	}
}
