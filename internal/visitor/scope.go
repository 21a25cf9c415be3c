package visitor

import (
	"github.com/funvibe/semant/internal/ast"
	"github.com/funvibe/semant/internal/db"
	"github.com/funvibe/semant/internal/types"
)

// DefinitionKind classifies a Definition (spec §3 "Definition").
type DefinitionKind int

const (
	KindVariable DefinitionKind = iota
	KindConstant
	KindType
	KindTrait
	KindInstance
	KindTypeParameter
)

// Definition is a named binding (spec §3 "Definition", §4.2). Node is the
// node the name resolves to at a use site: for a Constant this is the
// signature node until the body is filled in, then the body node (spec
// §4.2 "peekName").
type Definition struct {
	Kind       DefinitionKind
	Node       db.NodeId
	Doc        []string
	Attributes []ast.Attribute

	// Constant-only: SigNode is "the type of the signature" target used by
	// `Ty(value, Of(sigNode))`; Resolved flips from false ("Err(sigNode)")
	// to true ("Ok(bodyNode)") once an Assignment supplies the body (spec
	// §4.2 "forward reference and later definition").
	SigNode  db.NodeId
	Resolved bool

	// Type/Trait-only: the definition's own formal type parameters, in
	// declaration order, so a parameterized reference can zip its
	// arguments against them.
	Params []db.NodeId

	// Lazy holds constraints captured while this definition's signature was
	// lowered under withDefinition; they are re-instantiated at every use
	// site (spec §4.2 "Two constraint queues").
	Lazy []types.LazyConstraint
}

// scope is one lexical frame: name -> (possibly shadowed) list of
// Definitions, innermost shadowing outermost (spec §3 "Scope").
type scope struct {
	bindings map[string][]*Definition
}

func newScope() *scope { return &scope{bindings: make(map[string][]*Definition)} }

// scopeStack is the visitor's lexical scope stack.
type scopeStack struct {
	frames []*scope
}

func newScopeStack() *scopeStack {
	s := &scopeStack{}
	s.push()
	return s
}

func (s *scopeStack) push() { s.frames = append(s.frames, newScope()) }

func (s *scopeStack) pop() { s.frames = s.frames[:len(s.frames)-1] }

// define appends def to the innermost scope under name (spec §4.2 "defineName").
func (s *scopeStack) define(name string, def *Definition) {
	top := s.frames[len(s.frames)-1]
	top.bindings[name] = append(top.bindings[name], def)
}

// NameFilter decides, for a candidate Definition found while resolving a
// name, whether to accept it and under what parent-relation name (spec §4.2
// "resolveName"). It returns ok=false to keep searching outer scopes /
// other same-name bindings.
type NameFilter func(*Definition) (relation string, ok bool)

// resolve walks scopes outer-last (i.e. innermost first), and within a
// scope walks same-name bindings most-recently-defined first, calling
// filter on each until one is accepted.
func (s *scopeStack) resolve(name string, filter NameFilter) (*Definition, string, bool) {
	for i := len(s.frames) - 1; i >= 0; i-- {
		defs := s.frames[i].bindings[name]
		for j := len(defs) - 1; j >= 0; j-- {
			if relation, ok := filter(defs[j]); ok {
				return defs[j], relation, true
			}
		}
	}
	return nil, "", false
}
