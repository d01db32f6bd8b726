package logging

// Shared log field names so entries stay greppable across components
const (
	// FieldNoteID note id field
	FieldNoteID = "noteId"

	// FieldNoteIDs note ids touched by a batched call
	FieldNoteIDs = "noteIds"

	// FieldTarget drop target field
	FieldTarget = "target"

	// FieldAction operation type field
	FieldAction = "action"

	// FieldMethod HTTP method field
	FieldMethod = "method"

	// FieldPath request path field
	FieldPath = "path"

	// FieldStatus HTTP status field
	FieldStatus = "status"

	// FieldDuration elapsed time field
	FieldDuration = "duration"

	// FieldKey cache key field
	FieldKey = "key"

	// FieldGeneration autosave session generation
	FieldGeneration = "gen"

	// FieldSeq edit or mutation sequence
	FieldSeq = "seq"

	// FieldField edited note field
	FieldField = "field"

	// FieldView TUI view name
	FieldView = "view"
)
