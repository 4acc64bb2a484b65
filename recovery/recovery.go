package recovery

// Strategy decides how the synthesis loop reacts to a localized failure.
type Strategy interface {
	OnError(err error, location Location) Action
}

// Location identifies where in a batch a failure happened.
type Location struct {
	Row       int    // 0-based dataset row, -1 if not row-scoped
	FieldID   string // placement id, empty if not field-scoped
	Component string
}

type Action int

const (
	ActionFail Action = iota
	ActionSkip
	ActionWarn
)
