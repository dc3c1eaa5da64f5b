package docstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/starford/notestore/internal/checksum"
	"github.com/starford/notestore/internal/models"
)

// View is a named secondary index. Emit returns the keys a document is
// indexed under; Map is the declarative definition of Emit and is what gets
// persisted and compared to decide whether the index must be rebuilt.
type View struct {
	Name string
	Map  string
	Emit func(doc *models.Document) []string
}

func (v View) signature() string {
	return checksum.Short([]byte(v.Map), 16)
}

// Design groups views persisted together under a _design/ document.
type Design struct {
	ID    string
	Views []View
}

type designBody struct {
	Views map[string]viewBody `json:"views"`
}

type viewBody struct {
	Map string `json:"map"`
}

func (d Design) body() designBody {
	b := designBody{Views: make(map[string]viewBody, len(d.Views))}
	for _, v := range d.Views {
		b.Views[v.Name] = viewBody{Map: v.Map}
	}
	return b
}

// EnsureDesign registers the design's views with the store and makes the
// stored design document match it. It reports whether the stored definition
// was (re)written. Views whose definition changed are rebuilt from scratch
// on their next query; unchanged views keep their rows.
func (s *Store) EnsureDesign(ctx context.Context, d Design) (bool, error) {
	s.mu.Lock()
	for _, v := range d.Views {
		s.views[v.Name] = v
	}
	s.mu.Unlock()

	want := d.body()
	cur, err := s.Get(ctx, d.ID)
	if err != nil {
		return false, err
	}
	doc := &models.Document{ID: d.ID}
	if cur != nil {
		var have designBody
		if err := json.Unmarshal(cur.Body, &have); err == nil && sameViews(have, want) {
			return false, nil
		}
		doc.Rev = cur.Rev
	}
	doc.Body, err = json.Marshal(want)
	if err != nil {
		return false, fmt.Errorf("docstore: encode design %s: %w", d.ID, err)
	}
	if _, err := s.Put(ctx, doc); err != nil {
		return false, err
	}
	return true, nil
}

func sameViews(a, b designBody) bool {
	if len(a.Views) != len(b.Views) {
		return false
	}
	for name, v := range b.Views {
		if a.Views[name] != v {
			return false
		}
	}
	return true
}

// Query returns the live documents indexed under key by the named view,
// ordered by id. The view is first caught up with every write made since it
// was last queried.
func (s *Store) Query(ctx context.Context, view, key string) ([]*models.Document, error) {
	s.mu.RLock()
	v, ok := s.views[view]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("docstore: unknown view %q", view)
	}
	if err := s.refreshView(ctx, v); err != nil {
		return nil, err
	}
	docs, err := s.queryDocs(ctx, `
		SELECT d.id, d.rev, d.body
		FROM view_rows r
		JOIN docs d ON d.id = r.doc_id
		WHERE r.view = ? AND r.key = ? AND d.deleted = 0
		ORDER BY d.id
	`, view, key)
	if err != nil {
		return nil, fmt.Errorf("docstore: query %s: %w", view, err)
	}
	return docs, nil
}

type change struct {
	doc     *models.Document
	seq     int64
	deleted bool
}

// refreshView applies every document change past the view's last sequence.
// A view with no state, or whose definition signature differs from the
// stored one, is rebuilt from sequence zero.
func (s *Store) refreshView(ctx context.Context, v View) error {
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("docstore: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	sig := v.signature()
	var storedSig string
	var lastSeq int64
	err = tx.QueryRowContext(ctx,
		`SELECT signature, last_seq FROM view_state WHERE view = ?`, v.Name).Scan(&storedSig, &lastSeq)
	switch {
	case errors.Is(err, sql.ErrNoRows), err == nil && storedSig != sig:
		if _, err := tx.ExecContext(ctx, `DELETE FROM view_rows WHERE view = ?`, v.Name); err != nil {
			return fmt.Errorf("docstore: reset view %s: %w", v.Name, err)
		}
		lastSeq = 0
	case err != nil:
		return fmt.Errorf("docstore: read view state %s: %w", v.Name, err)
	}

	changes, err := changesSince(ctx, tx, lastSeq)
	if err != nil {
		return err
	}
	if len(changes) == 0 && storedSig == sig {
		return nil
	}

	for _, c := range changes {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM view_rows WHERE view = ? AND doc_id = ?`, v.Name, c.doc.ID); err != nil {
			return fmt.Errorf("docstore: clear rows %s/%s: %w", v.Name, c.doc.ID, err)
		}
		if !c.deleted {
			for _, key := range v.Emit(c.doc) {
				if _, err := tx.ExecContext(ctx,
					`INSERT OR IGNORE INTO view_rows (view, key, doc_id) VALUES (?, ?, ?)`,
					v.Name, key, c.doc.ID); err != nil {
					return fmt.Errorf("docstore: emit %s/%s: %w", v.Name, c.doc.ID, err)
				}
			}
		}
		lastSeq = c.seq
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO view_state (view, signature, last_seq) VALUES (?, ?, ?)
		ON CONFLICT(view) DO UPDATE SET
			signature = excluded.signature,
			last_seq  = excluded.last_seq
	`, v.Name, sig, lastSeq)
	if err != nil {
		return fmt.Errorf("docstore: save view state %s: %w", v.Name, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("docstore: commit view %s: %w", v.Name, err)
	}
	return nil
}

func changesSince(ctx context.Context, tx *sql.Tx, seq int64) ([]change, error) {
	rows, err := tx.QueryContext(ctx,
		`SELECT id, rev, seq, deleted, body FROM docs WHERE seq > ? ORDER BY seq`, seq)
	if err != nil {
		return nil, fmt.Errorf("docstore: changes since %d: %w", seq, err)
	}
	defer rows.Close()

	var out []change
	for rows.Next() {
		var id, rev, body string
		var c change
		var deleted int
		if err := rows.Scan(&id, &rev, &c.seq, &deleted, &body); err != nil {
			return nil, err
		}
		c.doc = newDocument(id, rev, body)
		c.deleted = deleted != 0
		out = append(out, c)
	}
	return out, rows.Err()
}
