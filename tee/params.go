package tee

// Params is a validated attribute list of a derive call.
type Params struct {
	buffers map[AttributeID][]byte
	values  map[AttributeID]uint32
}

// ParseParams validates attrs. Every attribute must be well formed, be one
// of accepted and occur at most once.
func ParseParams(attrs []Attribute, accepted ...AttributeID) (*Params, error) {
	p := &Params{
		buffers: make(map[AttributeID][]byte),
		values:  make(map[AttributeID]uint32),
	}

	for _, a := range attrs {
		if err := a.Check(); err != nil {
			return nil, Errorf(StatusBadParameters, "%v", err)
		}
		if !containsID(accepted, a.ID) {
			return nil, Errorf(StatusBadParameters, "tee: unexpected attribute %s", a.ID)
		}
		_, isBuf := p.buffers[a.ID]
		_, isVal := p.values[a.ID]
		if isBuf || isVal {
			return nil, Errorf(StatusBadParameters, "tee: attribute %s given twice", a.ID)
		}
		if a.ID.IsValue() {
			p.values[a.ID] = a.A
		} else {
			p.buffers[a.ID] = a.Ref
		}
	}

	return p, nil
}

func containsID(ids []AttributeID, id AttributeID) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

// Buffer returns an optional buffer attribute. Absent attributes return nil
// and false, present empty attributes a non-nil empty slice.
func (p *Params) Buffer(id AttributeID) ([]byte, bool) {
	b, ok := p.buffers[id]
	return b, ok
}

// Value returns the a value of a required value attribute.
func (p *Params) Value(id AttributeID) (uint32, error) {
	v, ok := p.values[id]
	if !ok {
		return 0, Errorf(StatusBadParameters, "tee: missing attribute %s", id)
	}
	return v, nil
}

// Length returns a required length attribute within 1..max.
func (p *Params) Length(id AttributeID, max int) (int, error) {
	v, err := p.Value(id)
	if err != nil {
		return 0, err
	}
	if v == 0 || uint64(v) > uint64(max) {
		return 0, Errorf(StatusBadParameters, "tee: %s %d out of range", id, v)
	}
	return int(v), nil
}
