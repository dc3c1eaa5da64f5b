package notedb_test

import (
	"context"
	"errors"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/starford/notestore/internal/apperr"
	"github.com/starford/notestore/internal/docid"
	"github.com/starford/notestore/internal/models"
	"github.com/starford/notestore/internal/notedb"
	"github.com/starford/notestore/internal/testutil"
)

func TestCreateNote_Defaults(t *testing.T) {
	db, _ := testutil.TestNoteDB(t)
	ctx := context.Background()

	n, err := db.CreateNote(ctx, models.NoteProps{})
	if err != nil {
		t.Fatalf("CreateNote: %v", err)
	}
	if docid.KindOf(n.ID) != models.KindNote {
		t.Errorf("id %q is not a note id", n.ID)
	}
	if n.Rev == "" {
		t.Error("created note has no revision")
	}
	if n.Title != "Untitled" {
		t.Errorf("title = %q, want Untitled", n.Title)
	}
	if n.FolderPathname != "/" {
		t.Errorf("folder = %q, want /", n.FolderPathname)
	}
	if n.Trashed {
		t.Error("new note is trashed")
	}
	if len(n.Tags) != 0 {
		t.Errorf("tags = %v, want empty", n.Tags)
	}
	if !n.CreatedAt.Equal(n.UpdatedAt) {
		t.Error("createdAt and updatedAt differ on create")
	}

	got, err := db.GetNote(ctx, n.ID)
	if err != nil {
		t.Fatalf("GetNote: %v", err)
	}
	if got == nil || got.Rev != n.Rev || got.Title != n.Title {
		t.Errorf("GetNote = %+v, want %+v", got, n)
	}
}

func TestCreateNote_MaterializesRefs(t *testing.T) {
	db, _ := testutil.TestNoteDB(t)
	ctx := context.Background()

	n, err := db.CreateNote(ctx, models.NoteProps{
		Title:          ptr("Plan"),
		FolderPathname: ptr("/work/q3"),
		Tags:           []string{"todo", "urgent", "todo"},
	})
	if err != nil {
		t.Fatalf("CreateNote: %v", err)
	}
	if !slices.Equal(n.Tags, []string{"todo", "urgent"}) {
		t.Errorf("tags = %v, want duplicates collapsed", n.Tags)
	}
	for _, p := range []string{"/", "/work", "/work/q3"} {
		if f, _ := db.GetFolder(ctx, p); f == nil {
			t.Errorf("folder %q missing", p)
		}
	}
	for _, name := range n.Tags {
		if tag, _ := db.GetTag(ctx, name); tag == nil {
			t.Errorf("tag %q missing", name)
		}
	}

	inFolder, err := db.FindNotesByFolder(ctx, "/work/q3")
	if err != nil {
		t.Fatalf("FindNotesByFolder: %v", err)
	}
	if len(inFolder) != 1 || inFolder[0].ID != n.ID {
		t.Errorf("FindNotesByFolder = %v", inFolder)
	}
}

func TestCreateNote_InvalidRefsWriteNothing(t *testing.T) {
	db, s := testutil.TestNoteDB(t)
	ctx := context.Background()
	before, _ := s.AllDocs(ctx)

	cases := []models.NoteProps{
		{FolderPathname: ptr("")},
		{FolderPathname: ptr("relative/path")},
		{FolderPathname: ptr("/ok"), Tags: []string{"fine", "bad/tag"}},
		{Tags: []string{" "}},
	}
	for i, props := range cases {
		if _, err := db.CreateNote(ctx, props); !errors.Is(err, apperr.ErrUnprocessable) {
			t.Errorf("case %d: err = %v, want ErrUnprocessable", i, err)
		}
	}

	after, _ := s.AllDocs(ctx)
	if len(after) != len(before) {
		t.Errorf("rejected creates wrote documents: %d -> %d", len(before), len(after))
	}
	if f, _ := db.GetFolder(ctx, "/ok"); f != nil {
		t.Error("folder /ok was created for a rejected note")
	}
}

func TestUpdateNote(t *testing.T) {
	clock := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	db, _ := testutil.TestNoteDB(t, notedb.WithClock(func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}))
	ctx := context.Background()

	n, _ := db.CreateNote(ctx, models.NoteProps{Title: ptr("a"), Content: ptr("body"), Tags: []string{"x"}})
	up, err := db.UpdateNote(ctx, n.ID, models.NoteProps{
		Title:          ptr("b"),
		FolderPathname: ptr("/moved"),
		Tags:           []string{"y"},
	})
	if err != nil {
		t.Fatalf("UpdateNote: %v", err)
	}
	if up.Title != "b" || up.Content != "body" {
		t.Errorf("title/content = %q/%q", up.Title, up.Content)
	}
	if up.FolderPathname != "/moved" || !slices.Equal(up.Tags, []string{"y"}) {
		t.Errorf("folder/tags = %q/%v", up.FolderPathname, up.Tags)
	}
	if !up.UpdatedAt.After(n.UpdatedAt) {
		t.Error("updatedAt not advanced")
	}
	if !up.CreatedAt.Equal(n.CreatedAt) {
		t.Error("createdAt changed")
	}
	if f, _ := db.GetFolder(ctx, "/moved"); f == nil {
		t.Error("new folder not materialized")
	}
	if tag, _ := db.GetTag(ctx, "y"); tag == nil {
		t.Error("new tag not materialized")
	}
	// Dropped tags stay known.
	if tag, _ := db.GetTag(ctx, "x"); tag == nil {
		t.Error("old tag was removed")
	}
}

func TestUpdateNote_StaleRevision(t *testing.T) {
	db, _ := testutil.TestNoteDB(t)
	ctx := context.Background()

	n, _ := db.CreateNote(ctx, models.NoteProps{Title: ptr("v1")})
	if _, err := db.UpdateNote(ctx, n.ID, models.NoteProps{Rev: n.Rev, Title: ptr("v2")}); err != nil {
		t.Fatalf("UpdateNote at current rev: %v", err)
	}
	_, err := db.UpdateNote(ctx, n.ID, models.NoteProps{Rev: n.Rev, Title: ptr("v3")})
	if !errors.Is(err, apperr.ErrConflict) {
		t.Fatalf("stale update err = %v, want ErrConflict", err)
	}
	got, _ := db.GetNote(ctx, n.ID)
	if got.Title != "v2" {
		t.Errorf("title = %q, stale update must not apply", got.Title)
	}
}

func TestUpdateNote_NotFound(t *testing.T) {
	db, _ := testutil.TestNoteDB(t)
	_, err := db.UpdateNote(context.Background(), "note:missing", models.NoteProps{Title: ptr("x")})
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestGetNote_NonNoteID(t *testing.T) {
	db, _ := testutil.TestNoteDB(t)
	got, err := db.GetNote(context.Background(), docid.FolderID("/"))
	if err != nil {
		t.Fatalf("GetNote: %v", err)
	}
	if got != nil {
		t.Errorf("GetNote on a folder id = %+v, want nil", got)
	}
}

func TestTrashUntrash_Rematerializes(t *testing.T) {
	db, s := testutil.TestNoteDB(t)
	ctx := context.Background()

	n, _ := db.CreateNote(ctx, models.NoteProps{FolderPathname: ptr("/p/q"), Tags: []string{"t"}})
	trashed, err := db.TrashNote(ctx, n.ID)
	if err != nil {
		t.Fatalf("TrashNote: %v", err)
	}
	if !trashed.Trashed {
		t.Fatal("note not trashed")
	}

	if err := db.RemoveFolderSubtree(ctx, "/p"); err != nil {
		t.Fatalf("RemoveFolderSubtree: %v", err)
	}
	if err := db.RemoveTag(ctx, "t"); err != nil {
		t.Fatalf("RemoveTag: %v", err)
	}
	// RemoveTag detaches the tag from trashed notes too.
	got, _ := db.GetNote(ctx, n.ID)
	if len(got.Tags) != 0 {
		t.Errorf("tags after RemoveTag = %v", got.Tags)
	}

	// Put the tag back on while trashed, remove the tag document only.
	if _, err := db.UpdateNote(ctx, n.ID, models.NoteProps{Tags: []string{"t"}}); err != nil {
		t.Fatal(err)
	}
	tag, _ := db.GetTag(ctx, "t")
	if err := s.Remove(ctx, tag.ID, tag.Rev); err != nil {
		t.Fatal(err)
	}

	restored, err := db.UntrashNote(ctx, n.ID)
	if err != nil {
		t.Fatalf("UntrashNote: %v", err)
	}
	if restored.Trashed {
		t.Error("note still trashed")
	}
	for _, p := range []string{"/p", "/p/q"} {
		if f, _ := db.GetFolder(ctx, p); f == nil {
			t.Errorf("folder %q not re-materialized", p)
		}
	}
	if tag, _ := db.GetTag(ctx, "t"); tag == nil {
		t.Error("tag not re-materialized")
	}
}

func TestTrashNote_AlreadyTrashed(t *testing.T) {
	db, _ := testutil.TestNoteDB(t)
	ctx := context.Background()

	n, _ := db.CreateNote(ctx, models.NoteProps{})
	first, _ := db.TrashNote(ctx, n.ID)
	second, err := db.TrashNote(ctx, n.ID)
	if err != nil {
		t.Fatalf("TrashNote again: %v", err)
	}
	if first.Rev != second.Rev {
		t.Error("trashing a trashed note wrote a new revision")
	}
}

func TestTrashNote_KeepsUpdatedAt(t *testing.T) {
	clock := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	db, _ := testutil.TestNoteDB(t, notedb.WithClock(func() time.Time {
		clock = clock.Add(time.Minute)
		return clock
	}))
	ctx := context.Background()

	n, _ := db.CreateNote(ctx, models.NoteProps{})
	trashed, _ := db.TrashNote(ctx, n.ID)
	if !trashed.UpdatedAt.Equal(n.UpdatedAt) {
		t.Errorf("updatedAt moved on trash: %v -> %v", n.UpdatedAt, trashed.UpdatedAt)
	}
}

func TestPurgeNote(t *testing.T) {
	db, _ := testutil.TestNoteDB(t)
	ctx := context.Background()

	n, _ := db.CreateNote(ctx, models.NoteProps{FolderPathname: ptr("/keep"), Tags: []string{"keep"}})
	if err := db.PurgeNote(ctx, n.ID); err != nil {
		t.Fatalf("PurgeNote: %v", err)
	}
	if got, _ := db.GetNote(ctx, n.ID); got != nil {
		t.Error("purged note still readable")
	}
	if f, _ := db.GetFolder(ctx, "/keep"); f == nil {
		t.Error("purge removed the folder")
	}
	if tag, _ := db.GetTag(ctx, "keep"); tag == nil {
		t.Error("purge removed the tag")
	}
	if err := db.PurgeNote(ctx, n.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("second purge = %v, want ErrNotFound", err)
	}
}

func TestCreateNote_Concurrent(t *testing.T) {
	db, _ := testutil.TestNoteDB(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := db.CreateNote(ctx, models.NoteProps{
				FolderPathname: ptr("/shared/deep"),
				Tags:           []string{"same"},
			})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Errorf("concurrent CreateNote: %v", err)
		}
	}
	notes, _ := db.FindNotesByFolder(ctx, "/shared/deep")
	if len(notes) != 8 {
		t.Errorf("notes in folder = %d, want 8", len(notes))
	}
}

func TestEvents(t *testing.T) {
	var mu sync.Mutex
	var events []notedb.Event
	db, _ := testutil.TestNoteDB(t, notedb.WithEventFunc(func(e notedb.Event) {
		mu.Lock()
		events = append(events, e)
		mu.Unlock()
	}))
	ctx := context.Background()

	mu.Lock()
	events = nil
	mu.Unlock()

	n, _ := db.CreateNote(ctx, models.NoteProps{FolderPathname: ptr("/e"), Tags: []string{"ev"}})
	_, _ = db.TrashNote(ctx, n.ID)

	mu.Lock()
	defer mu.Unlock()
	want := map[notedb.Event]bool{
		{Type: notedb.EventFolderUpserted, ID: "folder:/e"}: false,
		{Type: notedb.EventTagUpserted, ID: "tag:ev"}:       false,
		{Type: notedb.EventNoteCreated, ID: n.ID}:           false,
		{Type: notedb.EventNoteTrashed, ID: n.ID}:           false,
	}
	for _, e := range events {
		if _, ok := want[e]; ok {
			want[e] = true
		}
	}
	for e, seen := range want {
		if !seen {
			t.Errorf("missing event %+v in %+v", e, events)
		}
	}
	if last := events[len(events)-1]; last.Type != notedb.EventNoteTrashed {
		t.Errorf("last event = %+v, want note.trashed", last)
	}
}
