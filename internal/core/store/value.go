package store

// Value is an entry of the keyspace.
type Value interface {
	Type() string
}

// String is the string value type.
type String []byte

// Type returns "string".
func (String) Type() string { return "string" }
