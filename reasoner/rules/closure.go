package rules

import (
	"context"
	"strings"

	"github.com/c360/semreason/triple"
	"github.com/c360/semreason/vocabulary"
)

// derivation records the first rule application that produced a triple.
type derivation struct {
	rule     string
	premises []triple.Triple
}

type pairKey struct {
	a, b string
}

// index is rebuilt from the working set at the start of every round.
// Predicates and objects used as lookup keys are expanded so compact and
// full IRIs join with each other.
type index struct {
	byPred     map[string][]triple.Triple
	bySubjPred map[pairKey][]triple.Triple
	byPredObj  map[pairKey][]triple.Triple
}

func newIndex(ds triple.Dataset) *index {
	ix := &index{
		byPred:     make(map[string][]triple.Triple),
		bySubjPred: make(map[pairKey][]triple.Triple),
		byPredObj:  make(map[pairKey][]triple.Triple),
	}
	for _, t := range ds.Triples() {
		p := vocabulary.Expand(t.Predicate)
		ix.byPred[p] = append(ix.byPred[p], t)
		ix.bySubjPred[pairKey{t.Subject, p}] = append(ix.bySubjPred[pairKey{t.Subject, p}], t)
		ix.byPredObj[pairKey{p, vocabulary.Expand(t.Object)}] = append(ix.byPredObj[pairKey{p, vocabulary.Expand(t.Object)}], t)
	}
	return ix
}

func (ix *index) pred(iri string) []triple.Triple {
	return ix.byPred[iri]
}

func (ix *index) subjPred(subject, iri string) []triple.Triple {
	return ix.bySubjPred[pairKey{subject, iri}]
}

func (ix *index) instancesOf(class string) []triple.Triple {
	return ix.byPredObj[pairKey{vocabulary.RdfType, vocabulary.Expand(class)}]
}

type emitFunc func(t triple.Triple, rule string, premises ...triple.Triple)

type rule struct {
	name  string
	apply func(ix *index, emit emitFunc)
}

// closure is the saturated dataset together with the provenance of every
// triple that was not asserted.
type closure struct {
	asserted   triple.Dataset
	dataset    triple.Dataset
	provenance map[triple.Triple]derivation
	iterations int
	fired      int
}

func (c *closure) inferred() int {
	return c.dataset.Len() - c.asserted.Len()
}

// saturate applies rules until no new triple appears. ctx is checked once
// per round.
func saturate(ctx context.Context, ds triple.Dataset, rs []rule, maxTriples int) (*closure, error) {
	c := &closure{
		asserted:   ds,
		dataset:    ds.Clone(),
		provenance: make(map[triple.Triple]derivation),
	}

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		c.iterations++

		ix := newIndex(c.dataset)
		added := triple.NewDataset()
		emit := func(t triple.Triple, name string, premises ...triple.Triple) {
			if c.dataset.Contains(t) || !added.Add(t) {
				return
			}
			c.fired++
			c.provenance[t] = derivation{rule: name, premises: premises}
		}
		for _, r := range rs {
			r.apply(ix, emit)
		}

		if added.Len() == 0 {
			return c, nil
		}
		c.dataset = c.dataset.Union(added)
		if maxTriples > 0 && c.dataset.Len() > maxTriples {
			return nil, errClosureTooLarge(c.dataset.Len(), maxTriples)
		}
	}
}

func isLiteral(term string) bool {
	return strings.HasPrefix(term, `"`)
}

// Rule names follow the OWL 2 RL rule table.
var (
	ruleSubClassTransitive = rule{"scm-sco", func(ix *index, emit emitFunc) {
		for _, ab := range ix.pred(vocabulary.RdfsSubClassOf) {
			for _, bc := range ix.subjPred(ab.Object, vocabulary.RdfsSubClassOf) {
				if ab.Subject != bc.Object {
					emit(triple.New(ab.Subject, ab.Predicate, bc.Object), "scm-sco", ab, bc)
				}
			}
		}
	}}

	ruleEquivalentClass = rule{"scm-eqc", func(ix *index, emit emitFunc) {
		for _, e := range ix.pred(vocabulary.OwlEquivalentClass) {
			sub := vocabulary.Like(vocabulary.RdfsSubClassOf, e.Predicate)
			emit(triple.New(e.Subject, sub, e.Object), "scm-eqc", e)
			emit(triple.New(e.Object, sub, e.Subject), "scm-eqc", e)
		}
	}}

	ruleSubPropertyTransitive = rule{"scm-spo", func(ix *index, emit emitFunc) {
		for _, pq := range ix.pred(vocabulary.RdfsSubPropertyOf) {
			for _, qr := range ix.subjPred(pq.Object, vocabulary.RdfsSubPropertyOf) {
				if pq.Subject != qr.Object {
					emit(triple.New(pq.Subject, pq.Predicate, qr.Object), "scm-spo", pq, qr)
				}
			}
		}
	}}

	ruleEquivalentProperty = rule{"scm-eqp", func(ix *index, emit emitFunc) {
		for _, e := range ix.pred(vocabulary.OwlEquivalentProperty) {
			sub := vocabulary.Like(vocabulary.RdfsSubPropertyOf, e.Predicate)
			emit(triple.New(e.Subject, sub, e.Object), "scm-eqp", e)
			emit(triple.New(e.Object, sub, e.Subject), "scm-eqp", e)
		}
	}}

	ruleTypeBySubClass = rule{"cax-sco", func(ix *index, emit emitFunc) {
		for _, xa := range ix.pred(vocabulary.RdfType) {
			for _, ab := range ix.subjPred(xa.Object, vocabulary.RdfsSubClassOf) {
				emit(triple.New(xa.Subject, xa.Predicate, ab.Object), "cax-sco", xa, ab)
			}
		}
	}}

	ruleDomain = rule{"prp-dom", func(ix *index, emit emitFunc) {
		for _, d := range ix.pred(vocabulary.RdfsDomain) {
			typ := vocabulary.Like(vocabulary.RdfType, d.Predicate)
			for _, xy := range ix.pred(vocabulary.Expand(d.Subject)) {
				emit(triple.New(xy.Subject, typ, d.Object), "prp-dom", d, xy)
			}
		}
	}}

	ruleRange = rule{"prp-rng", func(ix *index, emit emitFunc) {
		for _, r := range ix.pred(vocabulary.RdfsRange) {
			typ := vocabulary.Like(vocabulary.RdfType, r.Predicate)
			for _, xy := range ix.pred(vocabulary.Expand(r.Subject)) {
				if !isLiteral(xy.Object) {
					emit(triple.New(xy.Object, typ, r.Object), "prp-rng", r, xy)
				}
			}
		}
	}}

	ruleSubProperty = rule{"prp-spo1", func(ix *index, emit emitFunc) {
		for _, pq := range ix.pred(vocabulary.RdfsSubPropertyOf) {
			for _, xy := range ix.pred(vocabulary.Expand(pq.Subject)) {
				emit(triple.New(xy.Subject, pq.Object, xy.Object), "prp-spo1", pq, xy)
			}
		}
	}}

	ruleInverse = rule{"prp-inv", func(ix *index, emit emitFunc) {
		for _, inv := range ix.pred(vocabulary.OwlInverseOf) {
			for _, xy := range ix.pred(vocabulary.Expand(inv.Subject)) {
				if !isLiteral(xy.Object) {
					emit(triple.New(xy.Object, inv.Object, xy.Subject), "prp-inv1", inv, xy)
				}
			}
			for _, xy := range ix.pred(vocabulary.Expand(inv.Object)) {
				if !isLiteral(xy.Object) {
					emit(triple.New(xy.Object, inv.Subject, xy.Subject), "prp-inv2", inv, xy)
				}
			}
		}
	}}

	ruleSymmetric = rule{"prp-symp", func(ix *index, emit emitFunc) {
		for _, pt := range ix.instancesOf(vocabulary.OwlSymmetricProperty) {
			for _, xy := range ix.pred(vocabulary.Expand(pt.Subject)) {
				if !isLiteral(xy.Object) {
					emit(triple.New(xy.Object, xy.Predicate, xy.Subject), "prp-symp", pt, xy)
				}
			}
		}
	}}

	ruleTransitive = rule{"prp-trp", func(ix *index, emit emitFunc) {
		for _, pt := range ix.instancesOf(vocabulary.OwlTransitiveProperty) {
			p := vocabulary.Expand(pt.Subject)
			for _, xy := range ix.pred(p) {
				for _, yz := range ix.subjPred(xy.Object, p) {
					if xy.Subject != yz.Object {
						emit(triple.New(xy.Subject, xy.Predicate, yz.Object), "prp-trp", pt, xy, yz)
					}
				}
			}
		}
	}}

	ruleSameAsSymmetric = rule{"eq-sym", func(ix *index, emit emitFunc) {
		for _, xy := range ix.pred(vocabulary.OwlSameAs) {
			emit(triple.New(xy.Object, xy.Predicate, xy.Subject), "eq-sym", xy)
		}
	}}

	ruleThing = rule{"cls-thing", func(ix *index, emit emitFunc) {
		for _, xa := range ix.pred(vocabulary.RdfType) {
			if isMetaClass(xa.Object) {
				continue
			}
			emit(triple.New(xa.Subject, xa.Predicate, vocabulary.Like(vocabulary.OwlThing, xa.Predicate)), "cls-thing", xa)
		}
	}}
)

// isMetaClass reports whether class types schema terms rather than
// individuals.
func isMetaClass(class string) bool {
	switch vocabulary.Expand(class) {
	case vocabulary.OwlThing, vocabulary.OwlClass, vocabulary.RdfsClass, vocabulary.RdfProperty,
		vocabulary.OwlTransitiveProperty, vocabulary.OwlSymmetricProperty:
		return true
	}
	return false
}

var (
	schemaRules = []rule{
		ruleSubClassTransitive,
		ruleEquivalentClass,
		ruleSubPropertyTransitive,
		ruleEquivalentProperty,
	}
	instanceRules = []rule{
		ruleTypeBySubClass,
		ruleDomain,
		ruleRange,
		ruleThing,
	}
	propertyRules = []rule{
		ruleSubProperty,
		ruleInverse,
		ruleSymmetric,
		ruleTransitive,
		ruleSameAsSymmetric,
	}
)

func concat(sets ...[]rule) []rule {
	var out []rule
	for _, s := range sets {
		out = append(out, s...)
	}
	return out
}

var allRules = concat(schemaRules, propertyRules, instanceRules)
