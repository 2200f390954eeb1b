package form

// Field names of the registration form.
const (
	FieldUsername = "username"
	FieldCountry  = "country"
)

// DefaultUsernameMaxLength is the username length limit.
const DefaultUsernameMaxLength = 20

// FieldSpec declares one field and its rules, in evaluation order.
type FieldSpec struct {
	Name  string
	Label string
	Rules []Rule
}

// Schema is the ordered list of fields of a form.
type Schema []FieldSpec

// Lookup returns the spec for name.
func (s Schema) Lookup(name string) (FieldSpec, bool) {
	for _, f := range s {
		if f.Name == name {
			return f, true
		}
	}
	return FieldSpec{}, false
}

// RegistrationSchema returns the username/country schema.
// A maxLength below 1 falls back to DefaultUsernameMaxLength.
func RegistrationSchema(maxLength int) Schema {
	if maxLength < 1 {
		maxLength = DefaultUsernameMaxLength
	}
	return Schema{
		{
			Name:  FieldUsername,
			Label: "Username",
			Rules: []Rule{Required(), MaxLength(maxLength), Lowercase()},
		},
		{
			Name:  FieldCountry,
			Label: "Country",
			Rules: []Rule{Required()},
		},
	}
}

// Values maps field name to current value.
type Values map[string]string

// Errors maps field name to its failing reasons in rule order.
// Fields that pass are absent.
type Errors map[string][]Reason

// Has reports whether field failed with reason.
func (e Errors) Has(field string, reason Reason) bool {
	for _, r := range e[field] {
		if r == reason {
			return true
		}
	}
	return false
}

// First returns the first failing reason of field.
func (e Errors) First(field string) (Reason, bool) {
	reasons := e[field]
	if len(reasons) == 0 {
		return "", false
	}
	return reasons[0], true
}

func (e Errors) clone() Errors {
	out := make(Errors, len(e))
	for k, v := range e {
		out[k] = append([]Reason(nil), v...)
	}
	return out
}

// Validate runs every rule of schema against values. Missing values are
// treated as empty strings.
func Validate(schema Schema, values Values) Errors {
	errs := Errors{}
	for _, field := range schema {
		v := values[field.Name]
		for _, rule := range field.Rules {
			if !rule.Check(v) {
				errs[field.Name] = append(errs[field.Name], rule.Reason)
			}
		}
	}
	return errs
}

// Message returns the human-readable text for a field's failing reason.
func (s Schema) Message(field string, reason Reason) string {
	spec, ok := s.Lookup(field)
	if !ok {
		return ""
	}
	for _, rule := range spec.Rules {
		if rule.Reason == reason && rule.Message != nil {
			return rule.Message(spec.Label)
		}
	}
	return ""
}
