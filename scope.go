package script

import "sort"

type Variable struct {
	Value any
	Type  *Type

	// origin is the declaration that introduced the binding.
	origin Node
}

// scope is one link of the lexical chain. Writes always land in the
// receiving scope, so a child never changes what its parent observes.
type scope struct {
	vars   map[string]*Variable
	parent *scope
}

func newScope(parent *scope) *scope {
	return &scope{vars: make(map[string]*Variable), parent: parent}
}

func (s *scope) lookup(name string) (*Variable, bool) {
	for sc := s; sc != nil; sc = sc.parent {
		if v, ok := sc.vars[name]; ok {
			if v == nil {
				return nil, false
			}
			return v, true
		}
	}
	return nil, false
}

func (s *scope) set(name string, v *Variable) {
	s.vars[name] = v
}

// remove hides name from s and its descendants. A name owned by an outer
// scope is shadowed by a tombstone.
func (s *scope) remove(name string) {
	if s.parent == nil {
		delete(s.vars, name)
		return
	}
	if _, ok := s.parent.lookup(name); ok {
		s.vars[name] = nil
		return
	}
	delete(s.vars, name)
}

func (s *scope) names() []string {
	seen := make(map[string]bool)
	var out []string
	for sc := s; sc != nil; sc = sc.parent {
		for name, v := range sc.vars {
			if seen[name] {
				continue
			}
			seen[name] = true
			if v != nil {
				out = append(out, name)
			}
		}
	}
	sort.Strings(out)
	return out
}

func (s *scope) depth() int {
	n := 0
	for sc := s; sc != nil; sc = sc.parent {
		n++
	}
	return n
}
