// Package report renders a finished fact database as the textual report
// and the optional node-and-cluster graph described in spec §6. It is the
// fact-reading surface that consumes the finished DB; the diagnostic
// template engine that would format these facts into prose stays an
// external collaborator (spec.md §1 "out of scope"). Grounded in the
// teacher's internal/prettyprinter/code_printer.go for the buffer-based,
// indent-tracking rendering style, adapted from printing source code back
// out to printing facts.
package report

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/mattn/go-isatty"

	"github.com/funvibe/semant/internal/db"
	"github.com/funvibe/semant/internal/types"
)

// Options controls what Render and RenderGraph display. The zero value
// renders everything, uncolored.
type Options struct {
	// Color forces ANSI coloring on or off; nil means "decide from the
	// output stream" (StdoutIsTTY).
	Color *bool
	// Span, if non-nil, narrows displayed nodes to ones whose `span` fact
	// intersects it (spec §4 supplemented feature "Query-span filtering").
	// This only narrows what is displayed, never what was inferred.
	Span *SpanFilter
	// FactNames, if non-empty, narrows displayed nodes to ones carrying at
	// least one fact with one of these names (a named --query preset).
	FactNames []string
}

// StdoutIsTTY reports whether stdout is attached to a terminal, matching
// the teacher's builtins_term.go check (isatty plus the Cygwin special
// case).
func StdoutIsTTY() bool {
	fd := os.Stdout.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func (o Options) useColor() bool {
	if o.Color != nil {
		return *o.Color
	}
	return StdoutIsTTY()
}

// SpanFilter is a parsed `--query-span PATH:LINE:COL-LINE:COL` argument.
type SpanFilter struct {
	Path                 string
	StartLine, StartCol  int
	EndLine, EndCol       int
}

// ParseQuerySpan parses "path:line:col-line:col" (spec §6 CLI contract).
func ParseQuerySpan(s string) (*SpanFilter, error) {
	lastColon := strings.LastIndex(s, ":")
	firstDash := strings.Index(s, "-")
	// Split "path" from "line:col-line:col" by finding the colon that
	// begins the position part: walk back from the end past two
	// "N:N-N:N"-shaped groups isn't needed if we split on the first ':'
	// that is followed only by digits/colons/dashes.
	idx := -1
	for i, c := range s {
		if c == ':' && isPositionTail(s[i+1:]) {
			idx = i
			break
		}
	}
	if idx < 0 || lastColon < 0 || firstDash < 0 {
		return nil, fmt.Errorf("report: malformed --query-span %q, want PATH:LINE:COL-LINE:COL", s)
	}
	path := s[:idx]
	pos := s[idx+1:]
	halves := strings.SplitN(pos, "-", 2)
	if len(halves) != 2 {
		return nil, fmt.Errorf("report: malformed --query-span %q, want PATH:LINE:COL-LINE:COL", s)
	}
	startLine, startCol, err := parseLineCol(halves[0])
	if err != nil {
		return nil, fmt.Errorf("report: malformed --query-span %q: %w", s, err)
	}
	endLine, endCol, err := parseLineCol(halves[1])
	if err != nil {
		return nil, fmt.Errorf("report: malformed --query-span %q: %w", s, err)
	}
	return &SpanFilter{Path: path, StartLine: startLine, StartCol: startCol, EndLine: endLine, EndCol: endCol}, nil
}

func isPositionTail(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if c != ':' && c != '-' && (c < '0' || c > '9') {
			return false
		}
	}
	return strings.ContainsAny(s, "0123456789")
}

func parseLineCol(s string) (line, col int, err error) {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("expected LINE:COL, got %q", s)
	}
	line, err = strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, err
	}
	col, err = strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, err
	}
	return line, col, nil
}

// Matches reports whether span intersects f.
func (f *SpanFilter) Matches(span db.Span) bool {
	if f.Path != "" && span.Path != f.Path {
		return false
	}
	before := span.EndLine < f.StartLine || (span.EndLine == f.StartLine && span.EndCol < f.StartCol)
	after := span.StartLine > f.EndLine || (span.StartLine == f.EndLine && span.StartCol > f.EndCol)
	return !before && !after
}

// ---- textual report --------------------------------------------------

// Render writes the textual report of spec §6: nodes sorted by NodeId,
// facts within a node sorted by name, one `NodeId: source` header per
// node followed by one `factName(value)` line per fact. Hidden nodes are
// never shown.
func Render(w io.Writer, d *db.DB, opts Options) error {
	color := opts.useColor()
	for _, n := range visibleNodes(d, opts) {
		source := factText(d, n, "source")
		header := fmt.Sprintf("%d: %s", n, source)
		if color {
			header = bold(header)
		}
		if _, err := fmt.Fprintln(w, header); err != nil {
			return err
		}
		for _, line := range factLines(d, n, color) {
			if _, err := fmt.Fprintln(w, "  "+line); err != nil {
				return err
			}
		}
	}
	return nil
}

// RenderString is a convenience wrapper returning Render's output as a
// string, used by tests and by callers that want to post-process it.
func RenderString(d *db.DB, opts Options) (string, error) {
	var buf bytes.Buffer
	if err := Render(&buf, d, opts); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func visibleNodes(d *db.DB, opts Options) []db.NodeId {
	var out []db.NodeId
	for _, n := range d.Nodes() {
		if d.IsHidden(n) {
			continue
		}
		if opts.Span != nil {
			span, ok := db.Get[db.SpanValue](d, n, "span")
			if !ok || !opts.Span.Matches(db.Span(span)) {
				continue
			}
		}
		if len(opts.FactNames) > 0 && !hasAnyFact(d, n, opts.FactNames) {
			continue
		}
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func hasAnyFact(d *db.DB, n db.NodeId, names []string) bool {
	for _, name := range names {
		if len(d.IterByName(n, name)) > 0 {
			return true
		}
	}
	return false
}

func factText(d *db.DB, n db.NodeId, name string) string {
	if t, ok := db.Get[db.Text](d, n, name); ok {
		return string(t)
	}
	return ""
}

// factLines renders every fact on n as "factName(value)", sorted by name,
// coloring mismatched `type` facts (more than one distinct type recorded
// on the same node — the diagnostic itself, per spec §7) when color is on.
func factLines(d *db.DB, n db.NodeId, color bool) []string {
	facts := d.Iter(n)
	byName := make(map[string][]db.Fact)
	var names []string
	for _, f := range facts {
		if f.IsHidden() {
			continue
		}
		if _, ok := byName[f.Name]; !ok {
			names = append(names, f.Name)
		}
		byName[f.Name] = append(byName[f.Name], f)
	}
	sort.Strings(names)

	mismatched := color && len(byName["type"]) > 1

	var lines []string
	for _, name := range names {
		for _, f := range byName[name] {
			line := fmt.Sprintf("%s(%s)", name, formatValue(d, f.Value))
			if mismatched && name == "type" {
				line = red(line)
			}
			lines = append(lines, line)
		}
	}
	return lines
}

func formatValue(d *db.DB, v db.Value) string {
	switch val := v.(type) {
	case db.Unit:
		return "()"
	case db.Text:
		return strconv.Quote(string(val))
	case db.NodeRef:
		return fmt.Sprintf("#%d", db.NodeId(val))
	case db.SpanValue:
		return fmt.Sprintf("%d:%d-%d:%d", val.StartLine, val.StartCol, val.EndLine, val.EndCol)
	case db.Extension:
		switch val.Tag {
		case "type":
			if ty, ok := val.Val.(types.Ty); ok {
				return types.Display(d, ty)
			}
		case "substitutions":
			if subs, ok := val.Val.(types.Substitutions); ok {
				return formatSubstitutions(d, subs)
			}
		case "constraints":
			if cs, ok := val.Val.([]types.Constraint); ok {
				return fmt.Sprintf("<%d constraints>", len(cs))
			}
		}
		return fmt.Sprintf("<%s>", val.Tag)
	default:
		return "?"
	}
}

func formatSubstitutions(d *db.DB, subs types.Substitutions) string {
	var parts []string
	for _, k := range subs.Order() {
		ty, _ := subs.Get(k)
		parts = append(parts, fmt.Sprintf("#%d=%s", k, types.Display(d, ty)))
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

func bold(s string) string { return "\x1b[1m" + s + "\x1b[0m" }
func red(s string) string  { return "\x1b[31m" + s + "\x1b[0m" }
