package report

import (
	"bytes"
	"fmt"
	"io"
	"sort"

	"github.com/funvibe/semant/internal/db"
)

// printer is a tiny indent-tracking text emitter, in the same spirit as
// the teacher's prettyprinter.CodePrinter: a buffer plus an indent level,
// with line prefixing each new line.
type printer struct {
	buf    bytes.Buffer
	indent int
}

func (p *printer) line(format string, args ...any) {
	for i := 0; i < p.indent; i++ {
		p.buf.WriteString("  ")
	}
	fmt.Fprintf(&p.buf, format, args...)
	p.buf.WriteByte('\n')
}

// RenderGraph writes a node-and-cluster graph in DOT syntax (spec §6
// "Graph rendering"): every visible node is labeled by its span and
// source; edges carry the parent-relation fact name; clusters group nodes
// by shared resolved type, colored red when the cluster's own nodes carry
// mismatched (more than one distinct) `type` facts.
func RenderGraph(w io.Writer, d *db.DB, opts Options) error {
	nodes := visibleNodes(d, opts)
	visible := make(map[db.NodeId]bool, len(nodes))
	for _, n := range nodes {
		visible[n] = true
	}

	p := &printer{}
	p.line("digraph semant {")
	p.indent++
	p.line(`rankdir=LR;`)

	clusters, order := groupByType(d, nodes)
	for _, key := range order {
		members := clusters[key]
		mismatched := clusterMismatched(d, members)
		color := "black"
		if mismatched {
			color = "red"
		}
		p.line(`subgraph "cluster_%s" {`, sanitize(key))
		p.indent++
		p.line(`label=%q;`, key)
		p.line(`color=%s;`, color)
		for _, n := range members {
			p.line(`n%d [label=%q];`, n, nodeLabel(d, n))
		}
		p.indent--
		p.line("}")
	}

	for _, n := range nodes {
		for _, f := range d.Iter(n) {
			if f.IsHidden() {
				continue
			}
			ref, ok := f.Value.(db.NodeRef)
			if !ok {
				continue
			}
			target := db.NodeId(ref)
			if !visible[target] {
				continue
			}
			p.line(`n%d -> n%d [label=%q];`, n, target, f.Name)
		}
	}

	p.indent--
	p.line("}")

	_, err := w.Write(p.buf.Bytes())
	return err
}

func nodeLabel(d *db.DB, n db.NodeId) string {
	span, ok := db.Get[db.SpanValue](d, n, "span")
	source := factText(d, n, "source")
	if !ok {
		return fmt.Sprintf("%d: %s", n, source)
	}
	return fmt.Sprintf("%d:%d:%d %s", n, span.StartLine, span.StartCol, source)
}

// groupByType buckets nodes by the display form of their first `type`
// fact ("_" for untyped nodes), returning a stable iteration order.
func groupByType(d *db.DB, nodes []db.NodeId) (map[string][]db.NodeId, []string) {
	clusters := make(map[string][]db.NodeId)
	for _, n := range nodes {
		key := "_"
		if tys := d.IterByName(n, "type"); len(tys) > 0 {
			key = formatValue(d, tys[0].Value)
		}
		clusters[key] = append(clusters[key], n)
	}
	order := make([]string, 0, len(clusters))
	for k := range clusters {
		order = append(order, k)
	}
	sort.Strings(order)
	return clusters, order
}

func clusterMismatched(d *db.DB, members []db.NodeId) bool {
	for _, n := range members {
		if len(d.IterByName(n, "type")) > 1 {
			return true
		}
	}
	return false
}

func sanitize(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' {
			out = append(out, c)
		} else {
			out = append(out, '_')
		}
	}
	if len(out) == 0 {
		return "cluster"
	}
	return string(out)
}
