package memory

// CreateInput carries the caller-supplied fields for Create; Content is
// required, everything else is optional.
type CreateInput struct {
	Content    string
	Tags       []string
	Source     string
	Confidence float64
}

// UpdatePatch carries the caller-supplied fields for Update. A nil pointer
// (or nil slice, for Tags) means "leave unchanged".
type UpdatePatch struct {
	Content    *string
	Tags       []string
	Source     *string
	Confidence *float64
	IsVerified *bool
}

// ListOptions controls List's pagination and filtering.
type ListOptions struct {
	Limit  int // default 50
	Offset int
	Source string // exact match when non-empty
}

// SearchOptions controls Search's project-path visibility filter.
type SearchOptions struct {
	ProjectPath string
}
