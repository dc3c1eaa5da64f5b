package mcpserver

// NoteModelURI is the resource URI of NoteModel.
const NoteModelURI = "notestore://note-model"

// NoteModel explains the note store's data model to LLM clients.
const NoteModel = `# Note Store Model

The store holds three kinds of documents: notes, folders and tags.

## Notes

- ` + "`_id`" + ` looks like ` + "`note:<uuid>`" + `. Pass it verbatim to every tool that takes an id.
- ` + "`_rev`" + ` changes on every write. Pass it as ` + "`rev`" + ` to update_note to make the
  update fail instead of overwriting a newer version.
- ` + "`title`" + ` defaults to "Untitled"; ` + "`content`" + ` is Markdown.
- ` + "`folderPathname`" + ` places the note in a folder (default ` + "`/`" + `).
- ` + "`tags`" + ` is a list of tag names. Duplicates are dropped.
- ` + "`trashed`" + ` notes stay readable and listable until purged.

## Folders

- Identified by pathname: starts with ` + "`/`" + `, no trailing slash, no empty,
  ` + "`.`" + ` or ` + "`..`" + ` segments. The root is ` + "`/`" + `.
- Created automatically, ancestors included, when a note references them.
- remove_folder trashes every note in the folder and its subfolders, then
  deletes the folders. The root cannot be removed.

## Tags

- Any non-blank name without ` + "`/`" + ` or ` + "`\\`" + `.
- Created automatically when a note references them; they persist after the
  last note drops them.
- remove_tag detaches the tag from every note (trashed ones included) and
  deletes it.

## Trash

- trash_note hides a note without deleting it; untrash_note restores it and
  re-creates its folder and tags if they were removed meanwhile.
`
