package store

import (
	"database/sql"
	"encoding/json"
	"sync"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"

	"github.com/apexhq/apex/internal/types"
)

// DefaultTitle given to a conversation until title generation renames it.
const DefaultTitle = "New Conversation"

// Store owns the set of conversations. The in-memory ordered list is the
// source of truth; a SQLite projection with attachments stripped is
// rewritten on every mutation and rehydrated on startup. Persistence
// failures are logged and the store keeps operating in memory.
type Store struct {
	mu            sync.Mutex
	conversations []*types.Conversation
	index         map[string]*types.Conversation

	db     *sql.DB
	logger zerolog.Logger
}

// New opens the store, rehydrating conversations from the durable snapshot
// if one exists. A missing or broken database never fails construction.
func New(dbPath string, logger zerolog.Logger) *Store {
	s := &Store{
		index:  map[string]*types.Conversation{},
		logger: logger,
	}

	db, err := openDatabase(dbPath)
	if err != nil {
		s.logger.Warn().Err(err).Str("path", dbPath).Msg("opening conversation database, continuing in-memory only")
		return s
	}
	s.db = db

	if err := s.load(); err != nil {
		s.logger.Warn().Err(err).Msg("loading conversations, starting empty")
	}
	return s
}

func openDatabase(dbPath string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, errors.Wrap(err, "opening database")
	}
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS conversations (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			mode TEXT NOT NULL,
			creation_timestamp INTEGER NOT NULL,
			update_timestamp INTEGER NOT NULL,
			messages TEXT NOT NULL
		)
	`)
	if err != nil {
		db.Close()
		return nil, errors.Wrap(err, "creating conversations table")
	}
	return db, nil
}

// load rehydrates the in-memory list from the snapshot, newest first.
func (s *Store) load() error {
	rows, err := s.db.Query(`
		SELECT id, title, mode, creation_timestamp, update_timestamp, messages
		FROM conversations
		ORDER BY creation_timestamp DESC
	`)
	if err != nil {
		return errors.Wrap(err, "querying conversations")
	}
	defer rows.Close()

	for rows.Next() {
		conversation := &types.Conversation{}
		var mode, messagesJSON string
		err := rows.Scan(
			&conversation.ID, &conversation.Title, &mode,
			&conversation.CreationTimestamp, &conversation.UpdateTimestamp,
			&messagesJSON,
		)
		if err != nil {
			return errors.Wrap(err, "scanning conversation row")
		}
		conversation.Mode = types.Mode(mode)
		if err := json.Unmarshal([]byte(messagesJSON), &conversation.Messages); err != nil {
			return errors.Wrap(err, "unmarshaling messages")
		}
		s.conversations = append(s.conversations, conversation)
		s.index[conversation.ID] = conversation
	}
	return errors.Wrap(rows.Err(), "iterating conversation rows")
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}
