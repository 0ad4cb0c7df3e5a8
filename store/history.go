package store

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"strconv"
	"strings"

	"github.com/saurabh22suman/soloengine.in/vector"
)

// SaveHistory appends one chat turn. The query embedding is stored when
// available but its absence never blocks the write. Turns are never mutated.
func (s *Store) SaveHistory(ctx context.Context, turn ChatTurn) error {
	if turn.SessionID == "" || turn.UserMessage == "" || turn.SystemResponse == "" {
		return fmt.Errorf("%w: missing session, message, or response", ErrInvalidInput)
	}

	var embeddingBlob []byte
	if queryEmbedding, err := s.embedder.Embed(ctx, turn.UserMessage); err == nil {
		embeddingBlob = vector.Encode(queryEmbedding)
	} else {
		log.Printf("[store] History saved without query embedding: %v", err)
	}

	_, err := s.db.ExecContext(ctx, s.rebind(`
		INSERT INTO rag_chat_history
		(session_id, user_message, system_response, context_ids, ip_address, embedding, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`),
		turn.SessionID, turn.UserMessage, turn.SystemResponse,
		encodeContextIDs(turn.ContextIDs), turn.ClientAddr, embeddingBlob, s.now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("insert history: %w", err)
	}
	return nil
}

// GetHistory returns the most recent limit turns for a session in
// chronological order, oldest first, ready for prompt assembly.
func (s *Store) GetHistory(ctx context.Context, sessionID string, limit int) ([]ChatTurn, error) {
	if sessionID == "" || limit <= 0 || limit > 100 {
		return nil, fmt.Errorf("%w: bad session or limit", ErrInvalidInput)
	}

	rows, err := s.db.QueryContext(ctx, s.rebind(`
		SELECT id, session_id, user_message, system_response, context_ids, ip_address, created_at
		FROM rag_chat_history
		WHERE session_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?`), sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var turns []ChatTurn
	for rows.Next() {
		var t ChatTurn
		var contextIDs sql.NullString
		var createdAt int64
		if err := rows.Scan(&t.ID, &t.SessionID, &t.UserMessage, &t.SystemResponse, &contextIDs, &t.ClientAddr, &createdAt); err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		t.ContextIDs = decodeContextIDs(contextIDs)
		t.CreatedAt = unixTime(createdAt)
		turns = append(turns, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate history: %w", err)
	}

	// Newest-first query, oldest-first result.
	for i, j := 0, len(turns)-1; i < j; i, j = i+1, j-1 {
		turns[i], turns[j] = turns[j], turns[i]
	}
	return turns, nil
}

// ListRecentHistory returns the latest turns across all sessions, newest
// first. Admin console view.
func (s *Store) ListRecentHistory(ctx context.Context, limit int) ([]ChatTurn, error) {
	if limit <= 0 || limit > 500 {
		return nil, fmt.Errorf("%w: bad limit", ErrInvalidInput)
	}

	rows, err := s.db.QueryContext(ctx, s.rebind(`
		SELECT id, session_id, user_message, system_response, context_ids, ip_address, created_at
		FROM rag_chat_history
		ORDER BY created_at DESC, id DESC
		LIMIT ?`), limit)
	if err != nil {
		return nil, fmt.Errorf("query recent history: %w", err)
	}
	defer rows.Close()

	var turns []ChatTurn
	for rows.Next() {
		var t ChatTurn
		var contextIDs sql.NullString
		var createdAt int64
		if err := rows.Scan(&t.ID, &t.SessionID, &t.UserMessage, &t.SystemResponse, &contextIDs, &t.ClientAddr, &createdAt); err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		t.ContextIDs = decodeContextIDs(contextIDs)
		t.CreatedAt = unixTime(createdAt)
		turns = append(turns, t)
	}
	return turns, rows.Err()
}

func encodeContextIDs(ids []int64) sql.NullString {
	if len(ids) == 0 {
		return sql.NullString{}
	}
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return sql.NullString{String: strings.Join(parts, ","), Valid: true}
}

func decodeContextIDs(ns sql.NullString) []int64 {
	if !ns.Valid || ns.String == "" {
		return nil
	}
	parts := strings.Split(ns.String, ",")
	ids := make([]int64, 0, len(parts))
	for _, p := range parts {
		id, err := strconv.ParseInt(p, 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids
}
