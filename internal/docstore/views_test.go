package docstore

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/starford/notestore/internal/models"
)

func colorView(mapDef string) View {
	return View{
		Name: "by_color",
		Map:  mapDef,
		Emit: func(d *models.Document) []string {
			var body struct {
				Colors []string `json:"colors"`
			}
			if err := json.Unmarshal(d.Body, &body); err != nil {
				return nil
			}
			return body.Colors
		},
	}
}

func queryIDs(t *testing.T, s *Store, view, key string) []string {
	t.Helper()
	docs, err := s.Query(context.Background(), view, key)
	if err != nil {
		t.Fatalf("Query(%s, %s): %v", view, key, err)
	}
	ids := make([]string, len(docs))
	for i, d := range docs {
		ids[i] = d.ID
	}
	return ids
}

func TestEnsureDesign_Idempotent(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	d := Design{ID: "_design/test", Views: []View{colorView("emit(colors)")}}

	changed, err := s.EnsureDesign(ctx, d)
	if err != nil || !changed {
		t.Fatalf("first EnsureDesign = %v, %v; want true, nil", changed, err)
	}
	before, _ := s.Get(ctx, "_design/test")

	changed, err = s.EnsureDesign(ctx, d)
	if err != nil || changed {
		t.Fatalf("second EnsureDesign = %v, %v; want false, nil", changed, err)
	}
	after, _ := s.Get(ctx, "_design/test")
	if before.Rev != after.Rev {
		t.Errorf("design rev changed: %q -> %q", before.Rev, after.Rev)
	}

	changed, _ = s.EnsureDesign(ctx, Design{ID: "_design/test", Views: []View{colorView("emit(colors) // v2")}})
	if !changed {
		t.Error("definition change should rewrite the design document")
	}
}

func TestQuery_IncrementalMaintenance(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	if _, err := s.EnsureDesign(ctx, Design{ID: "_design/test", Views: []View{colorView("v1")}}); err != nil {
		t.Fatal(err)
	}

	rev, _ := s.Put(ctx, doc("note:1", "", map[string]any{"colors": []string{"red", "blue", "red"}}))
	_, _ = s.Put(ctx, doc("note:2", "", map[string]any{"colors": []string{"red"}}))

	if got := queryIDs(t, s, "by_color", "red"); len(got) != 2 {
		t.Fatalf("red = %v, want 2 docs", got)
	}
	if got := queryIDs(t, s, "by_color", "blue"); len(got) != 1 || got[0] != "note:1" {
		t.Fatalf("blue = %v", got)
	}

	// Update drops the old key.
	rev, _ = s.Put(ctx, doc("note:1", rev, map[string]any{"colors": []string{"green"}}))
	if got := queryIDs(t, s, "by_color", "blue"); len(got) != 0 {
		t.Errorf("blue after update = %v, want none", got)
	}
	if got := queryIDs(t, s, "by_color", "green"); len(got) != 1 {
		t.Errorf("green after update = %v", got)
	}

	// Remove drops every key.
	if err := s.Remove(ctx, "note:1", rev); err != nil {
		t.Fatal(err)
	}
	if got := queryIDs(t, s, "by_color", "green"); len(got) != 0 {
		t.Errorf("green after remove = %v, want none", got)
	}
}

func TestQuery_RebuildOnDefinitionChange(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	_, _ = s.EnsureDesign(ctx, Design{ID: "_design/test", Views: []View{colorView("v1")}})
	_, _ = s.Put(ctx, doc("note:1", "", map[string]any{"colors": []string{"red"}}))
	_ = queryIDs(t, s, "by_color", "red")

	upper := colorView("v2")
	upper.Emit = func(d *models.Document) []string { return []string{"all"} }
	if changed, _ := s.EnsureDesign(ctx, Design{ID: "_design/test", Views: []View{upper}}); !changed {
		t.Fatal("expected design rewrite")
	}

	if got := queryIDs(t, s, "by_color", "red"); len(got) != 0 {
		t.Errorf("stale rows survived rebuild: %v", got)
	}
	// The design document itself is emitted by this catch-all view.
	if got := queryIDs(t, s, "by_color", "all"); len(got) != 2 {
		t.Errorf("rebuilt view = %v, want note and design doc", got)
	}
}

func TestQuery_UnknownView(t *testing.T) {
	s := testStore(t)
	if _, err := s.Query(context.Background(), "nope", "k"); err == nil {
		t.Error("expected error for unknown view")
	}
}
