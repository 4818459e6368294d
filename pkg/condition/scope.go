package condition

// Scope is a stack of form bindings. Each frame maps a form id to its field
// values; a form bound in an inner frame hides the whole form of outer frames.
type Scope struct {
	frames []map[string]map[string]any
}

func NewScope() *Scope {
	return &Scope{frames: []map[string]map[string]any{{}}}
}

// Push opens a new innermost frame.
func (s *Scope) Push() {
	s.frames = append(s.frames, map[string]map[string]any{})
}

// Pop discards the innermost frame. The root frame is never removed.
func (s *Scope) Pop() {
	if len(s.frames) > 1 {
		s.frames = s.frames[:len(s.frames)-1]
	}
}

// Depth returns the number of open frames, root included.
func (s *Scope) Depth() int {
	return len(s.frames)
}

// Set binds form in the innermost frame, replacing any previous binding there.
func (s *Scope) Set(form string, fields map[string]any) {
	copied := make(map[string]any, len(fields))
	for name, value := range fields {
		copied[name] = value
	}

	s.frames[len(s.frames)-1][form] = copied
}

func (s *Scope) form(form string) (map[string]any, bool) {
	for i := len(s.frames) - 1; i >= 0; i-- {
		if fields, ok := s.frames[i][form]; ok {
			return fields, true
		}
	}

	return nil, false
}

func (s *Scope) Lookup(form, field string) (any, bool) {
	fields, ok := s.form(form)
	if !ok {
		return nil, false
	}

	value, ok := fields[field]

	return value, ok
}

func (s *Scope) Has(form, field string) bool {
	_, ok := s.Lookup(form, field)

	return ok
}
