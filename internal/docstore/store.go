package docstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/starford/notestore/internal/apperr"
	"github.com/starford/notestore/internal/checksum"
	"github.com/starford/notestore/internal/docid"
	"github.com/starford/notestore/internal/models"
)

var emptyBody = []byte("{}")

// Get returns the live document with the given id, or nil when there is none.
func (s *Store) Get(ctx context.Context, id string) (*models.Document, error) {
	var rev, body string
	err := s.conn.QueryRowContext(ctx,
		`SELECT rev, body FROM docs WHERE id = ? AND deleted = 0`, id).Scan(&rev, &body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("docstore: get %s: %w", id, err)
	}
	return newDocument(id, rev, body), nil
}

// GetMany returns the live documents among ids, in the order requested.
// Missing ids are omitted.
func (s *Store) GetMany(ctx context.Context, ids []string) ([]*models.Document, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	found, err := s.queryDocs(ctx,
		`SELECT id, rev, body FROM docs WHERE deleted = 0 AND id IN (`+placeholders+`)`, args...)
	if err != nil {
		return nil, fmt.Errorf("docstore: get many: %w", err)
	}
	byID := make(map[string]*models.Document, len(found))
	for _, d := range found {
		byID[d.ID] = d
	}
	out := make([]*models.Document, 0, len(found))
	for _, id := range ids {
		if d, ok := byID[id]; ok {
			out = append(out, d)
			delete(byID, id)
		}
	}
	return out, nil
}

// Put creates or updates a document and returns its new revision.
//
// doc.Rev must be the current revision of the stored document, or empty when
// the document does not exist (or was removed). Anything else fails with
// apperr.ErrConflict and leaves the stored document unchanged.
func (s *Store) Put(ctx context.Context, doc *models.Document) (string, error) {
	if doc.ID == "" {
		return "", fmt.Errorf("docstore: put: empty id")
	}
	body := doc.Body
	if len(body) == 0 {
		body = emptyBody
	}

	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("docstore: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	cur, err := currentRev(ctx, tx, doc.ID)
	if err != nil {
		return "", err
	}
	gen := 0
	switch {
	case !cur.exists || cur.deleted:
		if doc.Rev != "" {
			return "", conflict(doc.ID, doc.Rev)
		}
		if cur.exists {
			gen = generation(cur.rev)
		}
	case doc.Rev != cur.rev:
		return "", conflict(doc.ID, doc.Rev)
	default:
		gen = generation(cur.rev)
	}

	seq, err := nextSeq(ctx, tx)
	if err != nil {
		return "", err
	}
	rev := newRev(gen+1, body)
	_, err = tx.ExecContext(ctx, `
		INSERT INTO docs (id, rev, seq, deleted, body)
		VALUES (?, ?, ?, 0, ?)
		ON CONFLICT(id) DO UPDATE SET
			rev     = excluded.rev,
			seq     = excluded.seq,
			deleted = 0,
			body    = excluded.body
	`, doc.ID, rev, seq, string(body))
	if err != nil {
		return "", fmt.Errorf("docstore: put %s: %w", doc.ID, err)
	}
	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("docstore: commit put %s: %w", doc.ID, err)
	}
	return rev, nil
}

// Remove deletes the document id at revision rev. A tombstone is kept so
// that views catch up with the deletion.
func (s *Store) Remove(ctx context.Context, id, rev string) error {
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("docstore: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	cur, err := currentRev(ctx, tx, id)
	if err != nil {
		return err
	}
	if !cur.exists || cur.deleted {
		return fmt.Errorf("%w: document %s", apperr.ErrNotFound, id)
	}
	if rev != cur.rev {
		return conflict(id, rev)
	}
	seq, err := nextSeq(ctx, tx)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx,
		`UPDATE docs SET rev = ?, seq = ?, deleted = 1, body = '{}' WHERE id = ?`,
		newRev(generation(cur.rev)+1, emptyBody), seq, id)
	if err != nil {
		return fmt.Errorf("docstore: remove %s: %w", id, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("docstore: commit remove %s: %w", id, err)
	}
	return nil
}

// AllDocs returns every live document ordered by id.
func (s *Store) AllDocs(ctx context.Context) ([]*models.Document, error) {
	docs, err := s.queryDocs(ctx, `SELECT id, rev, body FROM docs WHERE deleted = 0 ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("docstore: all docs: %w", err)
	}
	return docs, nil
}

// Range returns the live documents with start <= id < end in byte order,
// ordered by id. An empty end leaves the range unbounded above.
func (s *Store) Range(ctx context.Context, start, end string) ([]*models.Document, error) {
	docs, err := s.queryDocs(ctx,
		`SELECT id, rev, body FROM docs
		 WHERE deleted = 0 AND id >= ? AND (? = '' OR id < ?)
		 ORDER BY id`, start, end, end)
	if err != nil {
		return nil, fmt.Errorf("docstore: range [%s, %s): %w", start, end, err)
	}
	return docs, nil
}

// ScanPrefix returns the live documents whose id starts with prefix.
func (s *Store) ScanPrefix(ctx context.Context, prefix string) ([]*models.Document, error) {
	start, end := docid.PrefixRange(prefix)
	return s.Range(ctx, start, end)
}

func (s *Store) queryDocs(ctx context.Context, query string, args ...any) ([]*models.Document, error) {
	rows, err := s.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.Document
	for rows.Next() {
		var id, rev, body string
		if err := rows.Scan(&id, &rev, &body); err != nil {
			return nil, err
		}
		out = append(out, newDocument(id, rev, body))
	}
	return out, rows.Err()
}

type revState struct {
	rev     string
	exists  bool
	deleted bool
}

func currentRev(ctx context.Context, tx *sql.Tx, id string) (revState, error) {
	var st revState
	var deleted int
	err := tx.QueryRowContext(ctx, `SELECT rev, deleted FROM docs WHERE id = ?`, id).Scan(&st.rev, &deleted)
	if errors.Is(err, sql.ErrNoRows) {
		return st, nil
	}
	if err != nil {
		return st, fmt.Errorf("docstore: read rev %s: %w", id, err)
	}
	st.exists = true
	st.deleted = deleted != 0
	return st, nil
}

func nextSeq(ctx context.Context, tx *sql.Tx) (int64, error) {
	var seq int64
	if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq), 0) + 1 FROM docs`).Scan(&seq); err != nil {
		return 0, fmt.Errorf("docstore: next seq: %w", err)
	}
	return seq, nil
}

func newDocument(id, rev, body string) *models.Document {
	return &models.Document{
		ID:   id,
		Rev:  rev,
		Kind: docid.KindOf(id),
		Body: []byte(body),
	}
}

// newRev formats a revision as "<generation>-<digest of body>".
func newRev(gen int, body []byte) string {
	return strconv.Itoa(gen) + "-" + checksum.Short(body, 32)
}

func generation(rev string) int {
	head, _, _ := strings.Cut(rev, "-")
	n, err := strconv.Atoi(head)
	if err != nil {
		return 0
	}
	return n
}

func conflict(id, rev string) error {
	return fmt.Errorf("%w: document %s at revision %q is stale", apperr.ErrConflict, id, rev)
}
