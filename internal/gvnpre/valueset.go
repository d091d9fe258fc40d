package gvnpre

import "github.com/firmgo/firmgo/internal/ir"

// valueSet is the insertion-ordered value-number-to-representative mapping
// spec §3 names ("Value set"): exp_gen, avail_out, antic_in are each one
// of these per block.
type valueSet struct {
	order []uint64
	reps  map[uint64]*ir.Node
}

func newValueSet() *valueSet {
	return &valueSet{reps: map[uint64]*ir.Node{}}
}

// insert records n as the leader for vn, overwriting any earlier leader —
// within one block's own insertions later nodes shadow earlier ones, and
// the spec invariant ("each value number has exactly one leader per
// block in avail_out") only requires exactly one, not a specific one.
func (s *valueSet) insert(vn uint64, n *ir.Node) {
	if _, ok := s.reps[vn]; !ok {
		s.order = append(s.order, vn)
	}
	s.reps[vn] = n
}

func (s *valueSet) has(vn uint64) bool {
	_, ok := s.reps[vn]
	return ok
}

func (s *valueSet) get(vn uint64) (*ir.Node, bool) {
	n, ok := s.reps[vn]
	return n, ok
}

func (s *valueSet) members() []uint64 { return s.order }

func (s *valueSet) clone() *valueSet {
	c := &valueSet{
		order: append([]uint64(nil), s.order...),
		reps:  make(map[uint64]*ir.Node, len(s.reps)),
	}
	for k, v := range s.reps {
		c.reps[k] = v
	}
	return c
}

// union adds every member of other not already present in s, without
// disturbing s's existing leaders (used to propagate a dominator's
// avail_out down to a child — spec §4.B.4's "propagate each block's
// new_set to dominated blocks' avail_out").
func (s *valueSet) union(other *valueSet) {
	for _, vn := range other.order {
		if !s.has(vn) {
			s.insert(vn, other.reps[vn])
		}
	}
}

// intersect returns the members present in both sets, by value number
// (spec §4.B.3: "intersection by value number").
func (s *valueSet) intersect(other *valueSet) *valueSet {
	out := newValueSet()
	for _, vn := range s.order {
		if other.has(vn) {
			out.insert(vn, s.reps[vn])
		}
	}
	return out
}

func (s *valueSet) equal(other *valueSet) bool {
	if len(s.reps) != len(other.reps) {
		return false
	}
	for vn := range s.reps {
		if _, ok := other.reps[vn]; !ok {
			return false
		}
	}
	return true
}
