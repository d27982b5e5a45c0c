package log

import "cashplan/internal/core"

// Common field names for structured logging
const (
	FieldComponent   = "component"
	FieldOperation   = "operation"
	FieldError       = "error"
	FieldErrorType   = "error_type"
	FieldWorkspaceID = "workspace_id"
	FieldLineItemID  = "line_item_id"
	FieldActualID    = "actual_id"
	FieldFile        = "file"
	FieldRows        = "rows"
	FieldRowErrors   = "row_errors"
	FieldDuplicates  = "duplicates"
	FieldDateFormat  = "date_format"
	FieldMonths      = "months"
	FieldCacheHit    = "cache_hit"
	FieldDuration    = "duration_ms"
)

// Components
const (
	ComponentApp        = "app"
	ComponentImport     = "import"
	ComponentPlan       = "plan"
	ComponentLineItems  = "line_items"
	ComponentWorkspaces = "workspaces"
	ComponentStorage    = "storage"
	ComponentBackend    = "backend"
)

// Operations
const (
	OpPreview  = "preview"
	OpConfirm  = "confirm"
	OpReassign = "reassign"
	OpReport   = "report"
	OpSave     = "save"
	OpDelete   = "delete"
	OpLoad     = "load"
	OpExport   = "export"
	OpStartup  = "startup"
	OpShutdown = "shutdown"
)

// Error type categories
const (
	ErrorTypeValidation    = "validation_error"
	ErrorTypeConfiguration = "configuration_error"
	ErrorTypeDatabase      = "database_error"
	ErrorTypeNotFound      = "not_found_error"
	ErrorTypeConflict      = "conflict_error"
	ErrorTypeParse         = "parse_error"
)

// LogFields provides a builder pattern for structured log fields
type LogFields map[string]any

func NewFields() LogFields {
	return make(LogFields)
}

func (f LogFields) WithComponent(component string) LogFields {
	f[FieldComponent] = component
	return f
}

func (f LogFields) WithOperation(op string) LogFields {
	f[FieldOperation] = op
	return f
}

func (f LogFields) WithWorkspace(id string) LogFields {
	f[FieldWorkspaceID] = id
	return f
}

func (f LogFields) WithError(err error) LogFields {
	if err != nil {
		f[FieldError] = err.Error()
	}
	return f
}

// WithErrorType tags the entry with one of the ErrorType categories.
func (f LogFields) WithErrorType(t string) LogFields {
	f[FieldErrorType] = t
	return f
}

// WithConfidence adds one count per match confidence, keyed "matched_<level>".
func (f LogFields) WithConfidence(counts map[core.MatchConfidence]int) LogFields {
	for c, n := range counts {
		f["matched_"+string(c)] = n
	}
	return f
}

func (f LogFields) With(key string, value any) LogFields {
	f[key] = value
	return f
}

// ToSlice converts LogFields to a slice for slog
func (f LogFields) ToSlice() []any {
	slice := make([]any, 0, len(f)*2)
	for k, v := range f {
		slice = append(slice, k, v)
	}
	return slice
}
