// Package pipeline is the glue of spec §4.5: it parses a source file,
// builds the line-column lookup the span factory needs, runs the lowering
// visitor, enqueues the visitor's top-level constraints into the solver,
// and calls Finish. Definitions' lazy constraints are not enqueued here:
// the solver reaches them through the visitor's Environment only when an
// Instantiation names the definition, so a definition that is never used
// has its lazy constraints never solved. Grounded in the
// teacher's internal/pipeline.Pipeline, but collapsed to the single linear
// stage this spec actually needs instead of a general processor chain: the
// teacher's Pipeline exists to interleave parser/analyzer/evaluator/backend
// stages that can each fail independently and still hand off partial state
// (e.g. for the LSP); this spec has exactly one straight-line stage order
// with no such branching, so one Run function plays that role.
package pipeline

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/funvibe/semant/internal/ast"
	"github.com/funvibe/semant/internal/db"
	"github.com/funvibe/semant/internal/lexer"
	"github.com/funvibe/semant/internal/parser"
	"github.com/funvibe/semant/internal/solver"
	"github.com/funvibe/semant/internal/visitor"
)

// Result is everything a reporter needs: the finished fact database, the
// source text (for span-to-text slicing), and a per-run identifier that the
// CLI prints in its stderr run banner so repeated or concurrent runs over
// the same path are distinguishable in logs; the textual report and the
// graph file do not carry it (spec §3 domain stack: the
// teacher declares google/uuid directly but no component of its own source
// exercises it; this repo gives it a permanent, real home here).
type Result struct {
	RunID string
	DB    *db.DB
	Path  string
	Src   string
}

// Run lexes, parses, lowers, and solves src (read from path, used only for
// diagnostics and span text). It never returns a parse error silently: a
// structural parse error halts compilation and is returned verbatim (spec
// §7 "Structural parse error").
func Run(path string, src string) (*Result, error) {
	toks := lexer.Tokenize(src)
	file, err := parser.Parse(path, toks)
	if err != nil {
		return nil, fmt.Errorf("pipeline: parse %s: %w", path, err)
	}

	lines := newLineIndex(src)
	d := db.New()

	spanOf := func(r ast.Range) (db.Span, string) {
		startLine, startCol := lines.lineCol(r.Start)
		endLine, endCol := lines.lineCol(r.End)
		span := db.Span{
			Path:      path,
			Start:     r.Start,
			End:       r.End,
			StartLine: startLine,
			StartCol:  startCol,
			EndLine:   endLine,
			EndCol:    endCol,
		}
		text := ""
		if r.Start >= 0 && r.End <= len(src) && r.Start <= r.End {
			text = src[r.Start:r.End]
		}
		return span, text
	}

	v := visitor.New(d, spanOf)
	v.VisitFile(file)

	s := solver.New(d, v.Environment())
	s.InsertTypedNodes(v.TypedNodes())
	s.Enqueue(v.TopLevelConstraints()...)
	s.Finish()

	return &Result{
		RunID: uuid.NewString(),
		DB:    d,
		Path:  path,
		Src:   src,
	}, nil
}

// lineIndex maps a byte offset to a 1-based (line, column) pair.
type lineIndex struct {
	// lineStarts[i] is the byte offset of the first byte of line i+1.
	lineStarts []int
}

func newLineIndex(src string) *lineIndex {
	starts := []int{0}
	for i, c := range []byte(src) {
		if c == '\n' {
			starts = append(starts, i+1)
		}
	}
	return &lineIndex{lineStarts: starts}
}

func (li *lineIndex) lineCol(offset int) (line, col int) {
	// Binary search for the last lineStart <= offset.
	lo, hi := 0, len(li.lineStarts)-1
	for lo < hi {
		mid := (lo + hi + 1) / 2
		if li.lineStarts[mid] <= offset {
			lo = mid
		} else {
			hi = mid - 1
		}
	}
	return lo + 1, offset - li.lineStarts[lo] + 1
}
