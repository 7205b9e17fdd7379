package api

// RedactionMarker replaces secret values wherever they would be printed or serialized.
const RedactionMarker = "<redacted>"

// Secret wraps a credential so it cannot leak through fmt verbs or JSON.
//
//	s := api.NewSecret("token")
//	fmt.Println(s)   // <redacted>
//	s.Reveal()       // "token"
type Secret struct {
	value string
}

// NewSecret wraps value.
func NewSecret(value string) Secret {
	return Secret{value: value}
}

// Reveal returns the raw value. Only call it when writing the value onto the wire.
func (s Secret) Reveal() string {
	return s.value
}

// IsEmpty reports whether the wrapped value is empty.
func (s Secret) IsEmpty() bool {
	return s.value == ""
}

func (s Secret) String() string {
	return RedactionMarker
}

func (s Secret) GoString() string {
	return "api.Secret{" + RedactionMarker + "}"
}

func (s Secret) MarshalText() ([]byte, error) {
	return []byte(RedactionMarker), nil
}

func (s Secret) MarshalJSON() ([]byte, error) {
	return []byte(`"` + RedactionMarker + `"`), nil
}
