// Package visitor implements the Lowering Visitor of spec §4.2: it walks a
// parsed source file, allocates fact-database nodes for every syntactic
// construct, resolves names against a lexical scope stack, and emits
// typing constraints onto two queues (definition-scope and top-level) for
// the solver to consume.
package visitor

import (
	"github.com/funvibe/semant/internal/ast"
	"github.com/funvibe/semant/internal/db"
	"github.com/funvibe/semant/internal/solver"
	"github.com/funvibe/semant/internal/types"
)

// SpanFactory turns a syntax Range plus the source path into a db.Span and
// the exact source text it covers, so every allocated node can carry
// `span` and `source` facts (spec §4.1, §6).
type SpanFactory func(r ast.Range) (db.Span, string)

// Visitor lowers one source file's statements into the fact database.
type Visitor struct {
	d       *db.DB
	path    string
	spanOf  SpanFactory
	scopes  *scopeStack
	typed   []db.NodeId // every node the solver must assign a final type to
	defs    map[db.NodeId]*Definition
	traits  map[db.NodeId][]instanceEntry // trait definition node -> its instances

	// defCtx, while non-nil, is the definition currently being lowered:
	// lowerType appends implicitly introduced type parameters to its Params
	// (spec §4.2 "withDefinition"). Constraints are not redirected to it.
	defCtx *Definition

	// topLevel holds constraints for nodes outside any definition signature
	// (e.g. a top-level expression statement's own type), queued directly
	// into the solver once lowering finishes.
	topLevel []types.Constraint
}

type instanceEntry struct {
	node          db.NodeId
	substitutions types.Substitutions
}

// New returns a Visitor that lowers into d, using spanOf to place nodes in
// source.
func New(d *db.DB, spanOf SpanFactory) *Visitor {
	return &Visitor{
		d:      d,
		spanOf: spanOf,
		scopes: newScopeStack(),
		defs:   make(map[db.NodeId]*Definition),
		traits: make(map[db.NodeId][]instanceEntry),
	}
}

// VisitFile lowers every top-level statement of f.
func (v *Visitor) VisitFile(f *ast.SourceFile) {
	v.path = f.Path
	for _, stmt := range f.Statements {
		v.lowerStatement(stmt)
	}
}

// TypedNodes returns every node the solver must assign a final type to.
func (v *Visitor) TypedNodes() []db.NodeId { return v.typed }

// TopLevelConstraints returns the constraints queued outside any
// definition's lazy list (spec §4.2 "Two constraint queues": the top-level
// queue, handed to the solver once per file rather than per use site).
func (v *Visitor) TopLevelConstraints() []types.Constraint { return v.topLevel }

// Environment adapts the visitor's Definition table to solver.Environment.
func (v *Visitor) Environment() solver.Environment { return environment{v} }

type environment struct{ v *Visitor }

func (e environment) LazyConstraints(definition db.NodeId) []types.LazyConstraint {
	def, ok := e.v.defs[definition]
	if !ok {
		return nil
	}
	return def.Lazy
}

func (e environment) Instances(trait db.NodeId) []solver.InstanceCandidate {
	entries := e.v.traits[trait]
	out := make([]solver.InstanceCandidate, len(entries))
	for i, en := range entries {
		out[i] = solver.InstanceCandidate{Instance: en.node, Substitutions: en.substitutions}
	}
	return out
}

// ---- node allocation helpers ----------------------------------------------

// newNode allocates a node for r, stamping `span` and `source`.
func (v *Visitor) newNode(r ast.Range) db.NodeId {
	n := v.d.NewNode()
	span, source := v.spanOf(r)
	v.d.Fact(n, "span", db.SpanValue(span))
	v.d.Fact(n, "source", db.Text(source))
	return n
}

// hide marks n as not corresponding to user-visible surface syntax (spec
// §4.1 "hidden").
func (v *Visitor) hide(n db.NodeId) { v.d.Fact(n, "hidden", db.Unit{}) }

// markTyped records n as requiring a final `type` fact from the solver.
func (v *Visitor) markTyped(n db.NodeId) { v.typed = append(v.typed, n) }

// emit queues a constraint directly, outside of any definition's lazy
// list. Every node allocated while lowering a signature still gets its own
// immediate Ty constraint this way (for display/report purposes); what
// makes a definition generic is the single extra lazy constraint
// lowerConstantDeclaration or lowerTraitDeclaration attaches to its
// Definition, captured explicitly rather
// than by redirecting every emit() call (spec §4.2 "Two constraint
// queues").
func (v *Visitor) emit(c types.Constraint) {
	v.topLevel = append(v.topLevel, c)
}

// emitTy is shorthand for emit(TyConstraint{node, t}), also marking node typed.
func (v *Visitor) emitTy(node db.NodeId, t types.Ty) {
	v.markTyped(node)
	v.emit(types.TyConstraint{Node: node, Type: t})
}

// withDefinition runs body while def is the active definition context, so
// type parameters introduced implicitly inside body are recorded on
// def.Params (spec §4.2 "withDefinition"). emit() calls inside body still
// go to the top-level queue; lazy constraints are appended to def.Lazy
// explicitly by the caller.
func (v *Visitor) withDefinition(def *Definition, body func()) {
	prev := v.defCtx
	v.defCtx = def
	body()
	v.defCtx = prev
}

// defineName installs def under name in the innermost scope.
func (v *Visitor) defineName(name string, def *Definition) {
	v.scopes.define(name, def)
	v.defs[def.Node] = def
}

// resolveName looks up name via filter, recording a NodeRef("resolvesTo")
// fact from use to the definition's current node, or an `unresolvedName`
// fact if nothing matched (spec §4.2 "resolveName").
func (v *Visitor) resolveName(use db.NodeId, name string, filter NameFilter) (*Definition, bool) {
	def, _, ok := v.scopes.resolve(name, filter)
	if !ok {
		v.d.Fact(use, "unresolvedName", db.Text(name))
		return nil, false
	}
	v.d.Fact(use, "resolvesTo", db.NodeRef(def.Node))
	return def, true
}

// variableOrConstantFilter accepts any value-like binding a bare name can
// refer to. A trait name used as a plain reference (rather than in a
// `where` clause) resolves the same way a constant does: both go through
// resolveUse, which instantiates a fresh copy at each use site; only a
// Variable binds directly to its own definition node without
// instantiation, so the parser need not distinguish `ast.Variable` from
// `ast.TraitNameExpr` for an ordinary reference.
func variableOrConstantFilter(d *Definition) (string, bool) {
	switch d.Kind {
	case KindVariable, KindConstant, KindTrait:
		return "binding", true
	}
	return "", false
}

func traitFilter(d *Definition) (string, bool) {
	if d.Kind == KindTrait {
		return "trait", true
	}
	return "", false
}

func typeFilter(d *Definition) (string, bool) {
	if d.Kind == KindType {
		return "type", true
	}
	return "", false
}

func typeParameterFilter(d *Definition) (string, bool) {
	if d.Kind == KindTypeParameter {
		return "parameter", true
	}
	return "", false
}
