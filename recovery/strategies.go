package recovery

import "fmt"

// StrictStrategy fails the batch on the first error. Useful in tests and
// when diagnosing a template that silently produces empty documents.
type StrictStrategy struct{}

func NewStrictStrategy() *StrictStrategy { return &StrictStrategy{} }

func (s *StrictStrategy) OnError(err error, location Location) Action {
	return ActionFail
}

// LenientStrategy records every error and lets the batch continue. This is
// the default: a bad field or row must never abort the remaining rows.
type LenientStrategy struct {
	Errors []error
}

func NewLenientStrategy() *LenientStrategy { return &LenientStrategy{} }

func (s *LenientStrategy) OnError(err error, location Location) Action {
	s.Errors = append(s.Errors, fmt.Errorf("[%s] row %d field %q: %w", location.Component, location.Row, location.FieldID, err))
	return ActionWarn
}
