package credential

// Redacted wraps a sensitive token string to prevent accidental logging.
//
// This type implements fmt.Stringer to return "[REDACTED]" instead of the
// actual value, preventing credential leakage in log messages, error
// strings, or debug output.
//
// Usage:
//
//	token := credential.NewRedacted("secret-token-value")
//	fmt.Println(token)         // prints: [REDACTED]
//	actual := token.Value()    // returns: "secret-token-value"
type Redacted struct {
	value string
}

// NewRedacted creates a new Redacted wrapping the given value.
func NewRedacted(value string) Redacted {
	return Redacted{value: value}
}

// Value returns the actual token value. Use this method only when the
// token needs to be sent in an HTTP header or printed as the explicit
// output of a command. Never log the result of this method.
func (t Redacted) Value() string {
	return t.value
}

// String implements fmt.Stringer, returning "[REDACTED]" to prevent
// accidental logging of the token value.
func (t Redacted) String() string {
	return "[REDACTED]"
}

// GoString implements fmt.GoStringer for %#v formatting, also returning
// "[REDACTED]".
func (t Redacted) GoString() string {
	return "credential.Redacted{[REDACTED]}"
}

// IsEmpty returns true if the token value is empty.
func (t Redacted) IsEmpty() bool {
	return t.value == ""
}

// MarshalText implements encoding.TextMarshaler, returning "[REDACTED]"
// to prevent accidental serialization of the token value.
func (t Redacted) MarshalText() ([]byte, error) {
	return []byte("[REDACTED]"), nil
}

// MarshalJSON implements json.Marshaler, returning "[REDACTED]" to prevent
// accidental JSON serialization of the token value.
func (t Redacted) MarshalJSON() ([]byte, error) {
	return []byte(`"[REDACTED]"`), nil
}
