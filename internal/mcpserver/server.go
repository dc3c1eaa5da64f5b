// Package mcpserver provides an MCP (Model Context Protocol) server that
// exposes the note store to LLM clients over stdio.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/notestore/internal/models"
	"github.com/starford/notestore/internal/notedb"
)

// Server wraps the MCP server with the note store tools.
type Server struct {
	mcp *server.MCPServer
	db  *notedb.DB
}

// New creates a new MCP server with every tool registered.
func New(db *notedb.DB, version string) *Server {
	s := &Server{db: db}

	s.mcp = server.NewMCPServer(
		"notestore",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	noteFields := []mcp.ToolOption{
		mcp.WithString("title", mcp.Description("Note title")),
		mcp.WithString("content", mcp.Description("Markdown body")),
		mcp.WithString("folderPathname", mcp.Description("Folder pathname such as /work/ideas")),
		mcp.WithArray("tags", mcp.Description("Tag names; replaces the current list"),
			mcp.Items(map[string]any{"type": "string"})),
	}

	s.mcp.AddTool(mcp.NewTool("create_note", append([]mcp.ToolOption{
		mcp.WithDescription("Create a note. Its folder and tags are created when missing. "+
			"Read the "+NoteModelURI+" resource for the data model."),
	}, noteFields...)...), s.createNote)

	s.mcp.AddTool(mcp.NewTool("read_note",
		mcp.WithDescription("Read a note by id."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Note id (note:...)")),
	), s.readNote)

	s.mcp.AddTool(mcp.NewTool("update_note", append([]mcp.ToolOption{
		mcp.WithDescription("Change some fields of a note. Omitted fields are left alone."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Note id (note:...)")),
		mcp.WithString("rev", mcp.Description("Expected current revision; the update fails if the note changed since")),
	}, noteFields...)...), s.updateNote)

	s.mcp.AddTool(mcp.NewTool("trash_note",
		mcp.WithDescription("Move a note to the trash."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Note id")),
	), s.trashNote)

	s.mcp.AddTool(mcp.NewTool("untrash_note",
		mcp.WithDescription("Restore a note from the trash."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Note id")),
	), s.untrashNote)

	s.mcp.AddTool(mcp.NewTool("list_folders",
		mcp.WithDescription("List every folder pathname."),
	), s.listFolders)

	s.mcp.AddTool(mcp.NewTool("list_notes_in_folder",
		mcp.WithDescription("List the notes directly inside a folder, trashed ones included."),
		mcp.WithString("pathname", mcp.Required(), mcp.Description("Folder pathname")),
	), s.listNotesInFolder)

	s.mcp.AddTool(mcp.NewTool("list_notes_with_tag",
		mcp.WithDescription("List the notes carrying a tag, trashed ones included."),
		mcp.WithString("tag", mcp.Required(), mcp.Description("Tag name")),
	), s.listNotesWithTag)

	s.mcp.AddTool(mcp.NewTool("remove_tag",
		mcp.WithDescription("Detach a tag from every note and delete it."),
		mcp.WithString("tag", mcp.Required(), mcp.Description("Tag name")),
	), s.removeTag)

	s.mcp.AddTool(mcp.NewTool("remove_folder",
		mcp.WithDescription("Trash every note in a folder subtree, then delete the folders."),
		mcp.WithString("pathname", mcp.Required(), mcp.Description("Folder pathname (not /)")),
	), s.removeFolder)

	s.mcp.AddResource(
		mcp.NewResource(NoteModelURI, "Note Store Model",
			mcp.WithResourceDescription("Notes, folders, tags and trash semantics."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readNoteModel,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

// noteSummary is the listing form of a note, without its content.
type noteSummary struct {
	ID             string    `json:"_id"`
	Title          string    `json:"title"`
	FolderPathname string    `json:"folderPathname"`
	Tags           []string  `json:"tags"`
	Trashed        bool      `json:"trashed"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

func summarize(notes []*models.Note) []noteSummary {
	out := make([]noteSummary, len(notes))
	for i, n := range notes {
		out[i] = noteSummary{
			ID:             n.ID,
			Title:          n.Title,
			FolderPathname: n.FolderPathname,
			Tags:           n.Tags,
			Trashed:        n.Trashed,
			UpdatedAt:      n.UpdatedAt,
		}
	}
	return out
}

func jsonResult(v any) *mcp.CallToolResult {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error())
	}
	return mcp.NewToolResultText(string(out))
}

// noteProps reads the optional note fields present in the call. A field
// that is absent stays nil; an empty string is a real value.
func noteProps(req mcp.CallToolRequest) (models.NoteProps, error) {
	var props models.NoteProps
	args := req.GetArguments()
	str := func(key string) (*string, error) {
		v, ok := args[key]
		if !ok || v == nil {
			return nil, nil
		}
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("%s must be a string", key)
		}
		return &s, nil
	}

	var err error
	if props.Title, err = str("title"); err != nil {
		return props, err
	}
	if props.Content, err = str("content"); err != nil {
		return props, err
	}
	if props.FolderPathname, err = str("folderPathname"); err != nil {
		return props, err
	}
	if raw, ok := args["tags"]; ok && raw != nil {
		items, ok := raw.([]any)
		if !ok {
			return props, fmt.Errorf("tags must be an array of strings")
		}
		props.Tags = make([]string, 0, len(items))
		for _, item := range items {
			t, ok := item.(string)
			if !ok {
				return props, fmt.Errorf("tags must be an array of strings")
			}
			props.Tags = append(props.Tags, t)
		}
	}
	if rev, err := str("rev"); err != nil {
		return props, err
	} else if rev != nil {
		props.Rev = *rev
	}
	return props, nil
}

func (s *Server) createNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	props, err := noteProps(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	props.Rev = ""
	note, err := s.db.CreateNote(ctx, props)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(note), nil
}

func (s *Server) readNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	note, err := s.db.GetNote(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if note == nil {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", id)), nil
	}
	return jsonResult(note), nil
}

func (s *Server) updateNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	props, err := noteProps(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	note, err := s.db.UpdateNote(ctx, id, props)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(note), nil
}

func (s *Server) trashNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	note, err := s.db.TrashNote(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(note), nil
}

func (s *Server) untrashNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	note, err := s.db.UntrashNote(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(note), nil
}

func (s *Server) listFolders(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	folders, err := s.db.ListAllFolders(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	pathnames := make([]string, len(folders))
	for i, f := range folders {
		pathnames[i] = f.Pathname
	}
	return jsonResult(pathnames), nil
}

func (s *Server) listNotesInFolder(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	pathname, err := req.RequireString("pathname")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	notes, err := s.db.FindNotesByFolder(ctx, pathname)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(summarize(notes)), nil
}

func (s *Server) listNotesWithTag(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	tag, err := req.RequireString("tag")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	notes, err := s.db.FindNotesByTag(ctx, tag)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(summarize(notes)), nil
}

func (s *Server) removeTag(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	tag, err := req.RequireString("tag")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.db.RemoveTag(ctx, tag); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("removed tag: %s", tag)), nil
}

func (s *Server) removeFolder(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	pathname, err := req.RequireString("pathname")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.db.RemoveFolderSubtree(ctx, pathname); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("removed folder: %s", pathname)), nil
}

func (s *Server) readNoteModel(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      NoteModelURI,
			MIMEType: "text/markdown",
			Text:     NoteModel,
		},
	}, nil
}
