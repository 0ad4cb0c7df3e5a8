package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"

	"github.com/saurabh22suman/soloengine.in/vector"
)

// AddDocument validates, inserts, chunks, embeds, and persists a document in
// a single transaction. Any failure rolls back the document and all chunks
// together. Chunks whose embedding failed (zero vector) are skipped, not
// fatal. Returns the new document id.
func (s *Store) AddDocument(ctx context.Context, title, source, content string, metadata map[string]string) (int64, error) {
	if title == "" || content == "" {
		return 0, fmt.Errorf("%w: empty title or content", ErrInvalidInput)
	}

	metadataJSON, err := encodeMetadata(metadata)
	if err != nil {
		return 0, err
	}

	chunks := s.chunker.Split(content)
	embeddings, err := s.embedder.EmbedBatch(ctx, chunks)
	if err != nil {
		return 0, fmt.Errorf("embed chunks: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	now := s.now().Unix()
	var documentID int64
	err = tx.QueryRowContext(ctx, s.rebind(`
		INSERT INTO rag_documents (title, source, content, metadata, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		RETURNING id`),
		title, source, content, metadataJSON, now, now,
	).Scan(&documentID)
	if err != nil {
		return 0, fmt.Errorf("insert document: %w", err)
	}

	if err := s.insertChunks(ctx, tx, documentID, chunks, embeddings); err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return documentID, nil
}

// UpdateDocument replaces a document's row and regenerates its chunks and
// embeddings. Reports ErrNotFound without side effects when the id does not
// exist.
func (s *Store) UpdateDocument(ctx context.Context, id int64, title, source, content string, metadata map[string]string) error {
	if id <= 0 || title == "" || content == "" {
		return fmt.Errorf("%w: bad id or empty title/content", ErrInvalidInput)
	}

	metadataJSON, err := encodeMetadata(metadata)
	if err != nil {
		return err
	}

	chunks := s.chunker.Split(content)
	embeddings, err := s.embedder.EmbedBatch(ctx, chunks)
	if err != nil {
		return fmt.Errorf("embed chunks: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, s.rebind(`
		UPDATE rag_documents
		SET title = ?, source = ?, content = ?, metadata = ?, updated_at = ?
		WHERE id = ?`),
		title, source, content, metadataJSON, s.now().Unix(), id,
	)
	if err != nil {
		return fmt.Errorf("update document: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}

	if _, err := tx.ExecContext(ctx, s.rebind(`DELETE FROM rag_chunks WHERE document_id = ?`), id); err != nil {
		return fmt.Errorf("delete old chunks: %w", err)
	}

	if err := s.insertChunks(ctx, tx, id, chunks, embeddings); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// RemoveDocument deletes a document; its chunks cascade. A delete that
// touches no row reports ErrNotFound.
func (s *Store) RemoveDocument(ctx context.Context, id int64) error {
	if id <= 0 {
		return fmt.Errorf("%w: bad document id", ErrInvalidInput)
	}

	res, err := s.db.ExecContext(ctx, s.rebind(`DELETE FROM rag_documents WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// GetDocument fetches one document with its content and metadata.
func (s *Store) GetDocument(ctx context.Context, id int64) (Document, error) {
	var d Document
	if id <= 0 {
		return d, fmt.Errorf("%w: bad document id", ErrInvalidInput)
	}

	var metadataJSON sql.NullString
	var createdAt, updatedAt int64
	err := s.db.QueryRowContext(ctx, s.rebind(`
		SELECT id, title, source, content, metadata, created_at, updated_at
		FROM rag_documents WHERE id = ?`), id,
	).Scan(&d.ID, &d.Title, &d.Source, &d.Content, &metadataJSON, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return d, ErrNotFound
	}
	if err != nil {
		return d, fmt.Errorf("query document: %w", err)
	}

	d.Metadata = decodeMetadata(metadataJSON)
	d.CreatedAt = unixTime(createdAt)
	d.UpdatedAt = unixTime(updatedAt)
	return d, nil
}

// ListDocuments returns all documents with chunk counts, newest-updated
// first. Content is omitted from list rows.
func (s *Store) ListDocuments(ctx context.Context) ([]Document, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT d.id, d.title, d.source, d.metadata, d.created_at, d.updated_at,
		       COUNT(c.id) AS chunk_count
		FROM rag_documents d
		LEFT JOIN rag_chunks c ON d.id = c.document_id
		GROUP BY d.id, d.title, d.source, d.metadata, d.created_at, d.updated_at
		ORDER BY d.updated_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("query documents: %w", err)
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		var d Document
		var metadataJSON sql.NullString
		var createdAt, updatedAt int64
		if err := rows.Scan(&d.ID, &d.Title, &d.Source, &metadataJSON, &createdAt, &updatedAt, &d.ChunkCount); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		d.Metadata = decodeMetadata(metadataJSON)
		d.CreatedAt = unixTime(createdAt)
		d.UpdatedAt = unixTime(updatedAt)
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

// insertChunks persists chunk rows within tx, skipping chunks whose
// embedding failed (zero vector substitutes from the batch path).
func (s *Store) insertChunks(ctx context.Context, tx *sql.Tx, documentID int64, chunks []string, embeddings [][]float64) error {
	now := s.now().Unix()
	for i, chunk := range chunks {
		if i >= len(embeddings) || !usableEmbedding(embeddings[i]) {
			log.Printf("[store] Skipping chunk %d of document %d: no embedding", i, documentID)
			continue
		}
		_, err := tx.ExecContext(ctx, s.rebind(`
			INSERT INTO rag_chunks (document_id, chunk_index, content, embedding, created_at)
			VALUES (?, ?, ?, ?, ?)`),
			documentID, i, chunk, vector.Encode(embeddings[i]), now,
		)
		if err != nil {
			return fmt.Errorf("insert chunk %d: %w", i, err)
		}
	}
	return nil
}

// usableEmbedding reports whether an embedding carries signal. The batch
// embed path substitutes zero vectors for failed items; those are skipped
// rather than stored.
func usableEmbedding(embedding []float64) bool {
	for _, v := range embedding {
		if v != 0 {
			return true
		}
	}
	return false
}

func encodeMetadata(metadata map[string]string) (sql.NullString, error) {
	if len(metadata) == 0 {
		return sql.NullString{}, nil
	}
	raw, err := json.Marshal(metadata)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("marshal metadata: %w", err)
	}
	return sql.NullString{String: string(raw), Valid: true}, nil
}

func decodeMetadata(metadataJSON sql.NullString) map[string]string {
	if !metadataJSON.Valid || metadataJSON.String == "" {
		return nil
	}
	var metadata map[string]string
	if err := json.Unmarshal([]byte(metadataJSON.String), &metadata); err != nil {
		log.Printf("[store] Failed to decode document metadata: %v", err)
		return nil
	}
	return metadata
}
