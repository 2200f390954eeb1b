package form

import (
	"errors"
	"fmt"

	"github.com/zjrosen/regform/internal/log"
)

// ErrUnknownField is returned when a field name is not part of the schema.
var ErrUnknownField = errors.New("unknown field")

// ChangeKind describes what triggered a Change.
type ChangeKind int

const (
	ChangeValue ChangeKind = iota // value edited
	ChangeTouch                   // field interacted with without editing
	ChangeReset                   // all fields cleared
)

// Change is delivered to observers after every mutation.
// Field is empty for ChangeReset.
type Change struct {
	Kind   ChangeKind
	Field  string
	Value  string
	Errors Errors
	Valid  bool
}

// Observer receives form changes.
type Observer func(Change)

// Form holds field values, interaction flags and the current errors.
// Form is not safe for concurrent use; callers serialize access.
type Form struct {
	schema  Schema
	values  Values
	touched map[string]bool
	dirty   map[string]bool
	errors  Errors

	observers map[int]Observer
	nextID    int
}

// New creates an empty form for schema. Errors are computed immediately so
// Valid reflects the empty state.
func New(schema Schema) *Form {
	f := &Form{
		schema:    schema,
		values:    Values{},
		touched:   map[string]bool{},
		dirty:     map[string]bool{},
		observers: map[int]Observer{},
	}
	f.errors = Validate(schema, f.values)
	return f
}

// Schema returns the form schema.
func (f *Form) Schema() Schema {
	return f.schema
}

// Subscribe registers an observer and returns a function that removes it.
func (f *Form) Subscribe(o Observer) func() {
	id := f.nextID
	f.nextID++
	f.observers[id] = o
	return func() { delete(f.observers, id) }
}

// SetValue updates a field, marks it dirty, revalidates and notifies observers.
func (f *Form) SetValue(field, value string) error {
	if _, ok := f.schema.Lookup(field); !ok {
		return fmt.Errorf("%w: %s", ErrUnknownField, field)
	}
	f.values[field] = value
	f.dirty[field] = true
	f.errors = Validate(f.schema, f.values)

	log.Debug(log.CatForm, "value changed", "field", field, "errors", f.errors[field])
	f.notify(Change{Kind: ChangeValue, Field: field, Value: value})
	return nil
}

// Touch marks a field as interacted with (e.g. focus left it).
func (f *Form) Touch(field string) error {
	if _, ok := f.schema.Lookup(field); !ok {
		return fmt.Errorf("%w: %s", ErrUnknownField, field)
	}
	if f.touched[field] {
		return nil
	}
	f.touched[field] = true
	f.notify(Change{Kind: ChangeTouch, Field: field, Value: f.values[field]})
	return nil
}

// MarkAllTouched touches every field so pending errors become visible.
func (f *Form) MarkAllTouched() {
	for _, spec := range f.schema {
		_ = f.Touch(spec.Name)
	}
}

// Reset clears all values and interaction flags.
func (f *Form) Reset() {
	f.values = Values{}
	f.touched = map[string]bool{}
	f.dirty = map[string]bool{}
	f.errors = Validate(f.schema, f.values)
	f.notify(Change{Kind: ChangeReset})
}

// Value returns the current value of field.
func (f *Form) Value(field string) string {
	return f.values[field]
}

// Values returns a copy of all values.
func (f *Form) Values() Values {
	out := make(Values, len(f.values))
	for k, v := range f.values {
		out[k] = v
	}
	return out
}

// Errors returns a copy of the current errors, regardless of interaction.
func (f *Form) Errors() Errors {
	return f.errors.clone()
}

// Valid reports whether every field passes.
func (f *Form) Valid() bool {
	return len(f.errors) == 0
}

// FieldValid reports whether field passes all its rules.
func (f *Form) FieldValid(field string) bool {
	return len(f.errors[field]) == 0
}

// Interacted reports whether field was touched or modified.
func (f *Form) Interacted(field string) bool {
	return f.touched[field] || f.dirty[field]
}

// Error returns the first failing reason of field, but only once the user
// has interacted with it.
func (f *Form) Error(field string) (Reason, bool) {
	if !f.Interacted(field) {
		return "", false
	}
	return f.errors.First(field)
}

// ErrorMessage is Error rendered as text; empty when there is nothing to show.
func (f *Form) ErrorMessage(field string) string {
	reason, ok := f.Error(field)
	if !ok {
		return ""
	}
	return f.schema.Message(field, reason)
}

func (f *Form) notify(c Change) {
	c.Errors = f.errors.clone()
	c.Valid = len(f.errors) == 0
	// Snapshot so observers may unsubscribe during delivery.
	obs := make([]Observer, 0, len(f.observers))
	for id := 0; id < f.nextID; id++ {
		if o, ok := f.observers[id]; ok {
			obs = append(obs, o)
		}
	}
	for _, o := range obs {
		o(c)
	}
}
