// Package triple defines the fact model shared by the reasoning engine:
// triples, datasets (sets of triples), wildcard patterns and the
// order-independent content hash used as a cache key.
package triple

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Triple is a single subject-predicate-object fact. Terms are opaque
// strings; two triples are equal when all three terms are equal.
type Triple struct {
	Subject   string `json:"subject"`
	Predicate string `json:"predicate"`
	Object    string `json:"object"`
}

// New builds a triple.
func New(subject, predicate, object string) Triple {
	return Triple{Subject: subject, Predicate: predicate, Object: object}
}

// Canonical returns the fixed textual form used for hashing and ordering:
// the three terms quoted and separated by single spaces.
func (t Triple) Canonical() string {
	var b strings.Builder
	b.Grow(len(t.Subject) + len(t.Predicate) + len(t.Object) + 8)
	b.WriteString(strconv.Quote(t.Subject))
	b.WriteByte(' ')
	b.WriteString(strconv.Quote(t.Predicate))
	b.WriteByte(' ')
	b.WriteString(strconv.Quote(t.Object))
	return b.String()
}

// ParseCanonical reverses Canonical.
func ParseCanonical(s string) (Triple, error) {
	var terms [3]string
	rest := s
	for i := range terms {
		if i > 0 {
			if !strings.HasPrefix(rest, " ") {
				return Triple{}, fmt.Errorf("canonical triple %q: expected space before term %d", s, i+1)
			}
			rest = rest[1:]
		}
		quoted, err := strconv.QuotedPrefix(rest)
		if err != nil {
			return Triple{}, fmt.Errorf("canonical triple %q: term %d: %w", s, i+1, err)
		}
		if terms[i], err = strconv.Unquote(quoted); err != nil {
			return Triple{}, fmt.Errorf("canonical triple %q: term %d: %w", s, i+1, err)
		}
		rest = rest[len(quoted):]
	}
	if rest != "" {
		return Triple{}, fmt.Errorf("canonical triple %q: trailing data", s)
	}
	return New(terms[0], terms[1], terms[2]), nil
}

func (t Triple) String() string {
	return "(" + t.Subject + ", " + t.Predicate + ", " + t.Object + ")"
}

// Less orders triples by subject, then predicate, then object.
func (t Triple) Less(o Triple) bool {
	if t.Subject != o.Subject {
		return t.Subject < o.Subject
	}
	if t.Predicate != o.Predicate {
		return t.Predicate < o.Predicate
	}
	return t.Object < o.Object
}

// Pattern selects triples. An empty field matches any term.
type Pattern struct {
	Subject   string `json:"subject,omitempty"`
	Predicate string `json:"predicate,omitempty"`
	Object    string `json:"object,omitempty"`
}

// Wildcard matches every triple.
var Wildcard = Pattern{}

// Matches reports whether t satisfies the pattern.
func (p Pattern) Matches(t Triple) bool {
	return (p.Subject == "" || p.Subject == t.Subject) &&
		(p.Predicate == "" || p.Predicate == t.Predicate) &&
		(p.Object == "" || p.Object == t.Object)
}

// IsWildcard reports whether the pattern matches everything.
func (p Pattern) IsWildcard() bool {
	return p == Wildcard
}

// Dataset is a set of triples. The zero value is not usable; create one
// with NewDataset. A Dataset is not safe for concurrent mutation.
type Dataset struct {
	set map[Triple]struct{}
}

// NewDataset returns a dataset holding the given triples.
func NewDataset(triples ...Triple) Dataset {
	ds := Dataset{set: make(map[Triple]struct{}, len(triples))}
	for _, t := range triples {
		ds.set[t] = struct{}{}
	}
	return ds
}

// Add inserts t and reports whether it was not already present.
func (d Dataset) Add(t Triple) bool {
	if _, ok := d.set[t]; ok {
		return false
	}
	d.set[t] = struct{}{}
	return true
}

// Remove deletes t and reports whether it was present.
func (d Dataset) Remove(t Triple) bool {
	if _, ok := d.set[t]; !ok {
		return false
	}
	delete(d.set, t)
	return true
}

// Contains reports whether t is in the dataset.
func (d Dataset) Contains(t Triple) bool {
	_, ok := d.set[t]
	return ok
}

// Len returns the number of triples.
func (d Dataset) Len() int {
	return len(d.set)
}

// Triples returns the triples sorted by Less.
func (d Dataset) Triples() []Triple {
	out := make([]Triple, 0, len(d.set))
	for t := range d.set {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Less(out[j]) })
	return out
}

// Each calls fn for every triple in unspecified order until fn returns false.
func (d Dataset) Each(fn func(Triple) bool) {
	for t := range d.set {
		if !fn(t) {
			return
		}
	}
}

// Clone returns an independent copy.
func (d Dataset) Clone() Dataset {
	out := Dataset{set: make(map[Triple]struct{}, len(d.set))}
	for t := range d.set {
		out.set[t] = struct{}{}
	}
	return out
}

// Union returns a new dataset with the triples of both.
func (d Dataset) Union(o Dataset) Dataset {
	out := d.Clone()
	for t := range o.set {
		out.set[t] = struct{}{}
	}
	return out
}

// Difference returns the triples in d that are not in o.
func (d Dataset) Difference(o Dataset) Dataset {
	out := NewDataset()
	for t := range d.set {
		if _, ok := o.set[t]; !ok {
			out.set[t] = struct{}{}
		}
	}
	return out
}

// IsSupersetOf reports whether every triple of o is in d.
func (d Dataset) IsSupersetOf(o Dataset) bool {
	if len(o.set) > len(d.set) {
		return false
	}
	for t := range o.set {
		if _, ok := d.set[t]; !ok {
			return false
		}
	}
	return true
}

// IsStrictSupersetOf reports whether d contains o and at least one more triple.
func (d Dataset) IsStrictSupersetOf(o Dataset) bool {
	return len(d.set) > len(o.set) && d.IsSupersetOf(o)
}

// Equal reports whether both datasets hold the same triples.
func (d Dataset) Equal(o Dataset) bool {
	return len(d.set) == len(o.set) && d.IsSupersetOf(o)
}

// Match returns the triples satisfying p.
func (d Dataset) Match(p Pattern) Dataset {
	out := NewDataset()
	for t := range d.set {
		if p.Matches(t) {
			out.set[t] = struct{}{}
		}
	}
	return out
}

// MarshalJSON encodes the dataset as a sorted array of triples.
func (d Dataset) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.Triples())
}

// UnmarshalJSON decodes an array of triples. Duplicates collapse.
func (d *Dataset) UnmarshalJSON(data []byte) error {
	var triples []Triple
	if err := json.Unmarshal(data, &triples); err != nil {
		return err
	}
	*d = NewDataset(triples...)
	return nil
}

// ContentHash returns the hex SHA-256 digest of the dataset's canonical
// form. Every triple is rendered with Canonical, the lines are sorted and
// joined with newlines, so the digest does not depend on insertion order.
func ContentHash(d Dataset) string {
	lines := make([]string, 0, len(d.set))
	for t := range d.set {
		lines = append(lines, t.Canonical())
	}
	sort.Strings(lines)

	h := sha256.New()
	for _, line := range lines {
		h.Write([]byte(line))
		h.Write([]byte{'\n'})
	}
	return hex.EncodeToString(h.Sum(nil))
}
