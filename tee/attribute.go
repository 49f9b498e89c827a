package tee

import "fmt"

// Attribute is one typed entry of an attribute list. Buffer attributes use
// Ref, value attributes use A and B. The kind is fixed by the ID.
type Attribute struct {
	ID  AttributeID
	Ref []byte
	A   uint32
	B   uint32
}

// NewRefAttribute returns a buffer attribute referencing buf. A nil buf is
// replaced by an empty slice so that the attribute stays a present,
// zero-length reference.
func NewRefAttribute(id AttributeID, buf []byte) Attribute {
	if buf == nil {
		buf = []byte{}
	}
	return Attribute{ID: id, Ref: buf}
}

// NewValueAttribute returns a value attribute carrying a and b.
func NewValueAttribute(id AttributeID, a, b uint32) Attribute {
	return Attribute{ID: id, A: a, B: b}
}

func (a Attribute) String() string {
	if a.ID.IsValue() {
		return fmt.Sprintf("%s{a=%d b=%d}", a.ID, a.A, a.B)
	}
	return fmt.Sprintf("%s{len=%d}", a.ID, len(a.Ref))
}

// Check verifies that the attribute content matches the kind encoded in its
// ID.
func (a Attribute) Check() error {
	if a.ID.IsValue() && a.Ref != nil {
		return fmt.Errorf("tee: value attribute %s carries a buffer", a.ID)
	}
	if !a.ID.IsValue() && a.Ref == nil {
		return fmt.Errorf("tee: buffer attribute %s without reference", a.ID)
	}
	return nil
}

// Find returns the first attribute with id in attrs.
func Find(attrs []Attribute, id AttributeID) (Attribute, bool) {
	for _, a := range attrs {
		if a.ID == id {
			return a, true
		}
	}
	return Attribute{}, false
}
