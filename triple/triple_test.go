package triple

import (
	"encoding/json"
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	a1 = New("A", "type", "Class1")
	a2 = New("A", "type", "Thing")
	b1 = New("B", "knows", "A")
)

func TestDataset_SetSemantics(t *testing.T) {
	ds := NewDataset(a1, a1, a2)
	assert.Equal(t, 2, ds.Len())

	assert.False(t, ds.Add(a1))
	assert.True(t, ds.Add(b1))
	assert.True(t, ds.Contains(b1))
	assert.True(t, ds.Remove(b1))
	assert.False(t, ds.Remove(b1))
	assert.Equal(t, 2, ds.Len())
}

func TestDataset_TriplesSorted(t *testing.T) {
	ds := NewDataset(b1, a2, a1)
	want := []Triple{a1, a2, b1}
	if diff := cmp.Diff(want, ds.Triples()); diff != "" {
		t.Errorf("Triples() mismatch (-want +got):\n%s", diff)
	}
}

func TestDataset_SetAlgebra(t *testing.T) {
	base := NewDataset(a1)
	inferred := NewDataset(a1, a2)

	assert.True(t, inferred.IsSupersetOf(base))
	assert.True(t, inferred.IsStrictSupersetOf(base))
	assert.False(t, base.IsStrictSupersetOf(base))
	assert.True(t, base.Equal(NewDataset(a1)))
	assert.False(t, base.Equal(inferred))

	diff := inferred.Difference(base)
	assert.Equal(t, []Triple{a2}, diff.Triples())

	u := base.Union(NewDataset(b1))
	assert.Equal(t, 2, u.Len())
	assert.Equal(t, 1, base.Len(), "union must not mutate receiver")
}

func TestDataset_CloneIsIndependent(t *testing.T) {
	ds := NewDataset(a1)
	cp := ds.Clone()
	cp.Add(a2)
	assert.Equal(t, 1, ds.Len())
	assert.Equal(t, 2, cp.Len())
}

func TestPattern_Match(t *testing.T) {
	ds := NewDataset(a1, a2, b1)

	tests := []struct {
		name    string
		pattern Pattern
		want    int
	}{
		{"wildcard", Wildcard, 3},
		{"by subject", Pattern{Subject: "A"}, 2},
		{"by predicate", Pattern{Predicate: "knows"}, 1},
		{"by object", Pattern{Object: "Thing"}, 1},
		{"full", Pattern{Subject: "A", Predicate: "type", Object: "Class1"}, 1},
		{"none", Pattern{Subject: "Z"}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ds.Match(tt.pattern).Len())
		})
	}
	assert.True(t, Wildcard.IsWildcard())
	assert.False(t, Pattern{Object: "x"}.IsWildcard())
}

func TestContentHash_OrderIndependent(t *testing.T) {
	triples := []Triple{a1, a2, b1, New("C", "p", "D"), New("E", "p", "F")}
	want := ContentHash(NewDataset(triples...))

	r := rand.New(rand.NewSource(7))
	for i := 0; i < 20; i++ {
		perm := make([]Triple, len(triples))
		for j, k := range r.Perm(len(triples)) {
			perm[j] = triples[k]
		}
		assert.Equal(t, want, ContentHash(NewDataset(perm...)))
	}

	ds := NewDataset()
	for i := len(triples) - 1; i >= 0; i-- {
		ds.Add(triples[i])
	}
	assert.Equal(t, want, ContentHash(ds))
}

func TestContentHash_Distinguishes(t *testing.T) {
	assert.NotEqual(t, ContentHash(NewDataset(a1)), ContentHash(NewDataset(a2)))
	assert.NotEqual(t, ContentHash(NewDataset()), ContentHash(NewDataset(a1)))

	// Quoting keeps term boundaries unambiguous
	x := NewDataset(New("a b", "c", "d"))
	y := NewDataset(New("a", "b c", "d"))
	assert.NotEqual(t, ContentHash(x), ContentHash(y))
	assert.Len(t, ContentHash(x), 64)
}

func TestDataset_JSON(t *testing.T) {
	ds := NewDataset(a2, a1)
	data, err := json.Marshal(ds)
	require.NoError(t, err)
	assert.JSONEq(t, `[
		{"subject":"A","predicate":"type","object":"Class1"},
		{"subject":"A","predicate":"type","object":"Thing"}
	]`, string(data))

	var back Dataset
	require.NoError(t, json.Unmarshal(data, &back))
	assert.True(t, back.Equal(ds))
}

func TestParseCanonical(t *testing.T) {
	for _, tr := range []Triple{
		a1,
		New("http://ex.org/a b", "p", `"quoted" literal`),
		New("", "tab\there", "line\nbreak ünïcode"),
	} {
		got, err := ParseCanonical(tr.Canonical())
		require.NoError(t, err)
		assert.Equal(t, tr, got)
	}

	for _, bad := range []string{
		"",
		`"A" "type"`,
		`"A""type" "Class1"`,
		`"A" "type" "Class1" `,
		`A type Class1`,
	} {
		_, err := ParseCanonical(bad)
		assert.Error(t, err, bad)
	}
}
