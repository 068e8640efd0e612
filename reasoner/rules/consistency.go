package rules

import (
	"fmt"
	"sort"
	"strings"

	"github.com/c360/semreason/reasoner"
	"github.com/c360/semreason/triple"
	"github.com/c360/semreason/vocabulary"
)

// violation is one contradiction found in a saturated dataset.
type violation struct {
	kind     reasoner.InconsistencyKind
	message  string
	premises []triple.Triple
}

// violations checks the closure for individuals typed with disjoint
// classes and for members of owl:Nothing.
func (c *closure) violations() []violation {
	ix := newIndex(c.dataset)
	var out []violation

	seen := make(map[string]bool)
	for _, dw := range ix.pred(vocabulary.OwlDisjointWith) {
		members := make(map[string]triple.Triple)
		for _, xa := range ix.instancesOf(dw.Subject) {
			members[xa.Subject] = xa
		}
		for _, xb := range ix.instancesOf(dw.Object) {
			xa, ok := members[xb.Subject]
			if !ok {
				continue
			}
			key := xb.Subject + "|" + dw.Subject + "|" + dw.Object
			if seen[key] {
				continue
			}
			seen[key] = true

			kind := reasoner.ClassDisjointness
			if c.viaDomainOrRange(xa) || c.viaDomainOrRange(xb) {
				kind = reasoner.PropertyDomainRange
			}
			out = append(out, violation{
				kind:     kind,
				message:  fmt.Sprintf("%s is an instance of disjoint classes %s and %s", xb.Subject, dw.Subject, dw.Object),
				premises: []triple.Triple{dw, xa, xb},
			})
		}
	}

	for _, xn := range ix.instancesOf(vocabulary.OwlNothing) {
		out = append(out, violation{
			kind:     reasoner.LogicalContradiction,
			message:  fmt.Sprintf("%s is an instance of owl:Nothing", xn.Subject),
			premises: []triple.Triple{xn},
		})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].message < out[j].message })
	return out
}

func (c *closure) viaDomainOrRange(t triple.Triple) bool {
	d, ok := c.provenance[t]
	return ok && (d.rule == "prp-dom" || d.rule == "prp-rng")
}

func kinds(vs []violation) []reasoner.InconsistencyKind {
	set := make(map[reasoner.InconsistencyKind]bool)
	var out []reasoner.InconsistencyKind
	for _, v := range vs {
		if !set[v.kind] {
			set[v.kind] = true
			out = append(out, v.kind)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// unsatisfiable lists classes that can have no instances: subclasses of
// owl:Nothing and subclasses of two disjoint classes. It expects a
// closure saturated with the schema rules.
func (c *closure) unsatisfiable() []string {
	ix := newIndex(c.dataset)

	supers := func(class string) map[string]bool {
		out := map[string]bool{vocabulary.Expand(class): true}
		for _, t := range ix.subjPred(class, vocabulary.RdfsSubClassOf) {
			out[vocabulary.Expand(t.Object)] = true
		}
		return out
	}

	candidates := make(map[string]bool)
	for _, t := range ix.pred(vocabulary.RdfsSubClassOf) {
		candidates[t.Subject] = true
	}
	for _, t := range ix.pred(vocabulary.OwlDisjointWith) {
		candidates[t.Subject] = true
		candidates[t.Object] = true
	}

	var out []string
	for class := range candidates {
		if vocabulary.Is(class, vocabulary.OwlNothing) {
			continue
		}
		up := supers(class)
		if up[vocabulary.OwlNothing] {
			out = append(out, class)
			continue
		}
		for _, dw := range ix.pred(vocabulary.OwlDisjointWith) {
			if up[vocabulary.Expand(dw.Subject)] && up[vocabulary.Expand(dw.Object)] {
				out = append(out, class)
				break
			}
		}
	}
	sort.Strings(out)
	return out
}

// justify renders the derivation tree of t, one line per step, indented
// by depth.
func (c *closure) justify(t triple.Triple, depth int, visited map[triple.Triple]bool) []string {
	indent := strings.Repeat("  ", depth)
	if visited[t] {
		return []string{indent + t.String() + " (see above)"}
	}
	visited[t] = true

	d, ok := c.provenance[t]
	if !ok {
		return []string{indent + t.String() + " (asserted)"}
	}
	lines := []string{fmt.Sprintf("%s%s (by %s)", indent, t, d.rule)}
	for _, p := range d.premises {
		lines = append(lines, c.justify(p, depth+1, visited)...)
	}
	return lines
}

func (c *closure) explainViolations(vs []violation) []string {
	var lines []string
	for _, v := range vs {
		lines = append(lines, fmt.Sprintf("[%s] %s", v.kind, v.message))
		visited := make(map[triple.Triple]bool)
		for _, p := range v.premises {
			lines = append(lines, c.justify(p, 1, visited)...)
		}
	}
	return lines
}
