package db

// Value is the closed set of shapes a Fact's payload can take (spec §3
// "Fact"). Each variant implements Equal for structural comparison; types
// and constraint lists are supplied by the caller (internal/types) as
// opaque Value implementations via Extension, since db must not import
// types (types imports db, and the solver and visitor depend on both).
type Value interface {
	Equal(Value) bool
	isFactValue()
}

// Unit is the value of markers like `hidden`, `untyped`, `incompleteType`.
type Unit struct{}

func (Unit) Equal(other Value) bool { _, ok := other.(Unit); return ok }
func (Unit) isFactValue()           {}

// Text is a plain string payload (e.g. `source`).
type Text string

func (t Text) Equal(other Value) bool {
	o, ok := other.(Text)
	return ok && t == o
}
func (Text) isFactValue() {}

// NodeRef is a NodeId payload (e.g. a parent-relation fact, `instance`).
type NodeRef NodeId

func (n NodeRef) Equal(other Value) bool {
	o, ok := other.(NodeRef)
	return ok && n == o
}
func (NodeRef) isFactValue() {}

// SpanValue wraps a Span as a fact payload (the `span` fact).
type SpanValue Span

func (s SpanValue) Equal(other Value) bool {
	o, ok := other.(SpanValue)
	return ok && Span(s) == Span(o)
}
func (SpanValue) isFactValue() {}

// Extension is an opaque payload escape hatch for values the db package
// does not itself know the shape of: resolved Ty, Substitutions, and
// ConstraintList facts (spec §3). Callers supply their own Equal via the
// EqFn field since db cannot import internal/types without an import cycle
// (internal/types builds these Extension values itself).
type Extension struct {
	Tag  string // e.g. "type", "substitutions", "constraints"
	Val  any
	EqFn func(a, b any) bool
}

func (e Extension) Equal(other Value) bool {
	o, ok := other.(Extension)
	if !ok || e.Tag != o.Tag {
		return false
	}
	if e.EqFn != nil {
		return e.EqFn(e.Val, o.Val)
	}
	return false
}
func (Extension) isFactValue() {}
