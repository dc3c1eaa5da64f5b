package vault_test

import (
	"context"
	"io"
	"log/slog"
	"slices"
	"strings"
	"testing"

	"github.com/starford/notestore/internal/models"
	"github.com/starford/notestore/internal/parser"
	"github.com/starford/notestore/internal/testutil"
	"github.com/starford/notestore/internal/vault"
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestImport(t *testing.T) {
	ctx := context.Background()
	db, _ := testutil.TestNoteDB(t)
	_, src := testutil.TestVault(t)

	_ = src.Write("top.md", []byte("# Top level\nhello\n"))
	_ = src.Write("work/q3/plan.md", []byte("---\ntitle: Plan\ntags: [todo, work]\npriority: 2\n---\nShip it.\n"))
	_ = src.Write("bad/tagged.md", []byte("---\ntags: [\"a/b\"]\n---\nx\n"))

	report, err := vault.Import(ctx, db, src, discard())
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if report.Created != 2 || report.Updated != 0 {
		t.Errorf("report = %+v", report)
	}
	if !slices.Equal(report.Skipped, []string{"bad/tagged.md"}) {
		t.Errorf("skipped = %v", report.Skipped)
	}

	notes, err := db.FindNotesByFolder(ctx, "/work/q3")
	if err != nil {
		t.Fatal(err)
	}
	if len(notes) != 1 {
		t.Fatalf("notes in /work/q3 = %d, want 1", len(notes))
	}
	n := notes[0]
	if n.Title != "Plan" || n.Content != "Ship it.\n" {
		t.Errorf("note = %+v", n)
	}
	if !slices.Equal(n.Tags, []string{"todo", "work"}) {
		t.Errorf("tags = %v", n.Tags)
	}
	if n.Data["priority"] != float64(2) {
		t.Errorf("data = %v", n.Data)
	}
	for _, p := range []string{"/work", "/work/q3"} {
		if f, _ := db.GetFolder(ctx, p); f == nil {
			t.Errorf("folder %q missing", p)
		}
	}
	if f, _ := db.GetFolder(ctx, "/bad"); f != nil {
		t.Error("skipped file created its folder")
	}

	top, _ := db.FindNotesByFolder(ctx, "/")
	if len(top) != 1 || top[0].Title != "Top level" {
		t.Errorf("root notes = %+v", top)
	}
}

func TestExport(t *testing.T) {
	ctx := context.Background()
	db, _ := testutil.TestNoteDB(t)
	_, dst := testutil.TestVault(t)

	title, content, folder := "Hello, Wörld!", "body\n", "/a/b"
	n, err := db.CreateNote(ctx, models.NoteProps{
		Title:          &title,
		Content:        &content,
		FolderPathname: &folder,
		Tags:           []string{"x"},
	})
	if err != nil {
		t.Fatal(err)
	}
	gone, _ := db.CreateNote(ctx, models.NoteProps{Title: &title})
	_, _ = db.TrashNote(ctx, gone.ID)

	report, err := vault.Export(ctx, db, dst, vault.ExportOptions{}, discard())
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if report.Written != 1 || report.Trashed != 1 {
		t.Errorf("report = %+v", report)
	}

	p := vault.FileFor(n)
	if !strings.HasPrefix(p, "a/b/hello-world-") || !strings.HasSuffix(p, ".md") {
		t.Errorf("export path = %q", p)
	}
	data, err := dst.Read(p)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	r, err := parser.Parse(data)
	if err != nil {
		t.Fatal(err)
	}
	if r.ID != n.ID || r.Title != title || r.Body != content || !slices.Equal(r.Tags, []string{"x"}) {
		t.Errorf("exported file = %+v", r)
	}

	again, err := vault.Export(ctx, db, dst, vault.ExportOptions{}, discard())
	if err != nil {
		t.Fatal(err)
	}
	if again.Written != 0 || again.Unchanged != 1 {
		t.Errorf("second export = %+v, want nothing written", again)
	}
}

func TestExport_Prune(t *testing.T) {
	ctx := context.Background()
	db, _ := testutil.TestNoteDB(t)
	_, dst := testutil.TestVault(t)

	_, _ = db.CreateNote(ctx, models.NoteProps{})
	_ = dst.Write("stale/old.md", []byte("old"))

	report, err := vault.Export(ctx, db, dst, vault.ExportOptions{Prune: true}, discard())
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if report.Pruned != 1 {
		t.Errorf("pruned = %d, want 1", report.Pruned)
	}
	if _, err := dst.Read("stale/old.md"); err == nil {
		t.Error("stale file still present")
	}
}

func TestRoundTrip_UpdatesByID(t *testing.T) {
	ctx := context.Background()
	db, _ := testutil.TestNoteDB(t)
	_, dir := testutil.TestVault(t)

	title := "Original"
	n, _ := db.CreateNote(ctx, models.NoteProps{Title: &title, Tags: []string{"keep"}})
	if _, err := vault.Export(ctx, db, dir, vault.ExportOptions{}, discard()); err != nil {
		t.Fatal(err)
	}

	p := vault.FileFor(n)
	data, _ := dir.Read(p)
	edited := strings.Replace(string(data), "title: Original", "title: Edited", 1)
	_ = dir.Write(p, []byte(edited))

	report, err := vault.Import(ctx, db, dir, discard())
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if report.Updated != 1 || report.Created != 0 {
		t.Errorf("report = %+v, want one update", report)
	}
	got, _ := db.GetNote(ctx, n.ID)
	if got.Title != "Edited" || !slices.Equal(got.Tags, []string{"keep"}) {
		t.Errorf("note after import = %+v", got)
	}
}

func TestFolderFor(t *testing.T) {
	cases := map[string]string{
		"a.md":       "/",
		"x/a.md":     "/x",
		"x/y/z/a.md": "/x/y/z",
	}
	for in, want := range cases {
		if got := vault.FolderFor(in); got != want {
			t.Errorf("FolderFor(%q) = %q, want %q", in, got, want)
		}
	}
}
