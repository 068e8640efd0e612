package vocabulary

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExpandCompact(t *testing.T) {
	tests := []struct {
		compact string
		full    string
	}{
		{"rdf:type", RdfType},
		{"rdfs:subClassOf", RdfsSubClassOf},
		{"owl:Thing", OwlThing},
		{"owl:disjointWith", OwlDisjointWith},
	}

	for _, tt := range tests {
		t.Run(tt.compact, func(t *testing.T) {
			assert.Equal(t, tt.full, Expand(tt.compact))
			assert.Equal(t, tt.compact, Compact(tt.full))
			assert.True(t, IsCompact(tt.compact))
			assert.False(t, IsCompact(tt.full))
		})
	}
}

func TestExpand_LeavesOtherTermsAlone(t *testing.T) {
	assert.Equal(t, "ex:Dog", Expand("ex:Dog"))
	assert.Equal(t, "http://example.org/Dog", Expand("http://example.org/Dog"))
	assert.Equal(t, "Dog", Expand("Dog"))
	assert.Equal(t, "http://example.org/Dog", Compact("http://example.org/Dog"))
}

func TestIsAndLike(t *testing.T) {
	assert.True(t, Is("rdf:type", RdfType))
	assert.True(t, Is(RdfType, RdfType))
	assert.False(t, Is("type", RdfType))

	assert.Equal(t, "owl:Thing", Like(OwlThing, "rdf:type"))
	assert.Equal(t, OwlThing, Like(OwlThing, RdfType))
}
