package rules_test

import (
	"context"
	stderrors "errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/semreason/errors"
	"github.com/c360/semreason/reasoner"
	"github.com/c360/semreason/reasoner/rules"
	"github.com/c360/semreason/testutil"
	"github.com/c360/semreason/triple"
	"github.com/c360/semreason/vocabulary"
)

const ex = testutil.ExNS

func reason(t *testing.T, ds triple.Dataset, kind reasoner.Kind) *reasoner.Result {
	t.Helper()
	res, err := rules.New().Reason(context.Background(), ds, reasoner.Configuration{Kind: kind})
	require.NoError(t, err)
	return res
}

func TestReason_FullInferenceOnAnimalOntology(t *testing.T) {
	ds := testutil.AnimalOntology()
	res := reason(t, ds, reasoner.KindFullInference)

	assert.True(t, res.Consistent)
	assert.Empty(t, res.Inconsistencies)
	assert.True(t, res.InferredDataset.IsStrictSupersetOf(ds))

	for _, want := range []triple.Triple{
		testutil.T(testutil.Dog, vocabulary.RdfsSubClassOf, testutil.Animal),
		testutil.T(testutil.Rex, vocabulary.RdfType, testutil.Mammal),
		testutil.T(testutil.Rex, vocabulary.RdfType, testutil.Animal),
		testutil.T(testutil.Rex, vocabulary.RdfType, vocabulary.OwlThing),
		testutil.T(testutil.Alice, vocabulary.RdfType, testutil.Person),
		testutil.T(testutil.Alice, testutil.Owns, testutil.Rex),
	} {
		assert.True(t, res.InferredDataset.Contains(want), "missing %s", want)
	}
	assert.Greater(t, res.Metadata["rules_applied"], 0)
}

func TestReason_ClassificationOnlyUsesSchemaRules(t *testing.T) {
	res := reason(t, testutil.AnimalOntology(), reasoner.KindClassification)

	assert.True(t, res.InferredDataset.Contains(testutil.T(testutil.Dog, vocabulary.RdfsSubClassOf, testutil.Animal)))
	assert.False(t, res.InferredDataset.Contains(testutil.T(testutil.Rex, vocabulary.RdfType, testutil.Mammal)))
	assert.False(t, res.InferredDataset.Contains(testutil.T(testutil.Alice, testutil.Owns, testutil.Rex)))
}

func TestReason_ConsistencyVerdictUsesAllRules(t *testing.T) {
	res := reason(t, testutil.ContradictoryAnimalOntology(), reasoner.KindClassification)
	assert.False(t, res.Consistent, "disjointness needs type propagation even for classification")
}

func TestReason_DisjointClasses(t *testing.T) {
	b := rules.New()
	ds := testutil.ContradictoryAnimalOntology()

	res, err := b.Reason(context.Background(), ds, reasoner.Configuration{
		Kind:                   reasoner.KindFullInference,
		ExplainInconsistencies: true,
	})
	require.NoError(t, err)
	assert.False(t, res.Consistent)
	assert.Equal(t, []reasoner.InconsistencyKind{reasoner.ClassDisjointness}, res.Inconsistencies)
	assert.NotEmpty(t, res.Metadata[reasoner.MetadataInconsistencyExplanations])

	ok, err := b.CheckConsistency(context.Background(), ds)
	require.NoError(t, err)
	assert.False(t, ok)

	lines, err := b.ExplainInconsistency(context.Background(), ds)
	require.NoError(t, err)
	require.NotEmpty(t, lines)
	assert.Contains(t, lines[0], "[class_disjointness]")
	assert.Contains(t, lines[0], "disjoint classes")
	assert.Contains(t, strings.Join(lines, "\n"), "(asserted)")
}

func TestReason_RangeViolation(t *testing.T) {
	ds := testutil.AnimalOntology()
	ds.Add(testutil.T(testutil.Person, vocabulary.OwlDisjointWith, testutil.Animal))
	ds.Add(testutil.T(testutil.Fido, vocabulary.RdfType, testutil.Dog))
	ds.Add(testutil.T(testutil.Rex, testutil.HasOwner, testutil.Fido))

	res := reason(t, ds, reasoner.KindFullInference)
	assert.False(t, res.Consistent)
	assert.Contains(t, res.Inconsistencies, reasoner.PropertyDomainRange)
}

func TestReason_Nothing(t *testing.T) {
	ds := triple.NewDataset(testutil.T(ex+"ghost", vocabulary.RdfType, vocabulary.OwlNothing))
	res := reason(t, ds, reasoner.KindFullInference)
	assert.Equal(t, []reasoner.InconsistencyKind{reasoner.LogicalContradiction}, res.Inconsistencies)
}

func TestReason_EmptyDataset(t *testing.T) {
	res := reason(t, triple.NewDataset(), reasoner.KindFullInference)
	assert.True(t, res.Consistent)
	assert.Equal(t, 0, res.InferredDataset.Len())
}

func TestReason_CompactNotationIsPreserved(t *testing.T) {
	ds := triple.NewDataset(
		testutil.T("ex:Dog", "rdfs:subClassOf", "ex:Animal"),
		testutil.T("ex:rex", "rdf:type", "ex:Dog"),
	)
	res := reason(t, ds, reasoner.KindFullInference)

	assert.True(t, res.InferredDataset.Contains(testutil.T("ex:rex", "rdf:type", "ex:Animal")))
	assert.True(t, res.InferredDataset.Contains(testutil.T("ex:rex", "rdf:type", "owl:Thing")))
}

func TestReason_PropertyCharacteristics(t *testing.T) {
	partOf := ex + "partOf"
	near := ex + "near"
	ds := triple.NewDataset(
		testutil.T(partOf, vocabulary.RdfType, vocabulary.OwlTransitiveProperty),
		testutil.T(near, vocabulary.RdfType, vocabulary.OwlSymmetricProperty),
		testutil.T(ex+"paw", partOf, ex+"leg"),
		testutil.T(ex+"leg", partOf, testutil.Rex),
		testutil.T(testutil.Rex, near, testutil.Fido),
	)

	res := reason(t, ds, reasoner.KindPropertyAssertion)
	assert.True(t, res.InferredDataset.Contains(testutil.T(ex+"paw", partOf, testutil.Rex)))
	assert.True(t, res.InferredDataset.Contains(testutil.T(testutil.Fido, near, testutil.Rex)))
	assert.False(t, res.InferredDataset.Contains(testutil.T(ex+"paw", vocabulary.RdfType, vocabulary.OwlThing)))
}

func TestReason_SubPropertyAndDomain(t *testing.T) {
	hasPet := ex + "hasPet"
	ds := triple.NewDataset(
		testutil.T(hasPet, vocabulary.RdfsSubPropertyOf, testutil.Owns),
		testutil.T(testutil.Owns, vocabulary.RdfsDomain, testutil.Person),
		testutil.T(testutil.Alice, hasPet, testutil.Rex),
	)
	res := reason(t, ds, reasoner.KindFullInference)

	assert.True(t, res.InferredDataset.Contains(testutil.T(testutil.Alice, testutil.Owns, testutil.Rex)))
	assert.True(t, res.InferredDataset.Contains(testutil.T(testutil.Alice, vocabulary.RdfType, testutil.Person)))
}

func TestReason_IncrementalWarns(t *testing.T) {
	res, err := rules.New().Reason(context.Background(), testutil.AnimalOntology(),
		reasoner.Configuration{Kind: reasoner.KindFullInference, Incremental: true})
	require.NoError(t, err)
	require.Len(t, res.Warnings, 1)
}

func TestReason_UnknownKind(t *testing.T) {
	_, err := rules.New().Reason(context.Background(), triple.NewDataset(), reasoner.Configuration{Kind: "telepathy"})
	assert.ErrorIs(t, err, errors.ErrCapabilityUnsupported)
}

func TestReason_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := rules.New().Reason(ctx, testutil.AnimalOntology(), reasoner.Configuration{Kind: reasoner.KindFullInference})
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, context.Canceled))
}

func TestReason_MaxTriples(t *testing.T) {
	_, err := rules.New(rules.WithMaxTriples(8)).Reason(context.Background(), testutil.AnimalOntology(),
		reasoner.Configuration{Kind: reasoner.KindFullInference})
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrResourceExhausted)
	assert.True(t, errors.IsInvalid(err))
}

func TestUnsatisfiableEntities(t *testing.T) {
	hybrid := ex + "Hybrid"
	ds := testutil.AnimalOntology()
	ds.Add(testutil.T(hybrid, vocabulary.RdfsSubClassOf, testutil.Dog))
	ds.Add(testutil.T(hybrid, vocabulary.RdfsSubClassOf, testutil.Plant))
	ds.Add(testutil.T(ex+"Void", vocabulary.RdfsSubClassOf, vocabulary.OwlNothing))

	got, err := rules.New().UnsatisfiableEntities(context.Background(), ds)
	require.NoError(t, err)
	assert.Equal(t, []string{hybrid, ex + "Void"}, got)

	res := reason(t, ds, reasoner.KindFullInference)
	assert.True(t, res.Consistent, "an unsatisfiable class without members is not a contradiction")

	none, err := rules.New().UnsatisfiableEntities(context.Background(), testutil.AnimalOntology())
	require.NoError(t, err)
	assert.Equal(t, []string{}, none)
}

func TestExplainTriple(t *testing.T) {
	b := rules.New()
	ds := testutil.AnimalOntology()

	lines, err := b.ExplainTriple(context.Background(), ds, testutil.T(testutil.Rex, vocabulary.RdfType, testutil.Animal))
	require.NoError(t, err)
	require.NotEmpty(t, lines)
	assert.Contains(t, lines[0], "(by cax-sco)")
	assert.Contains(t, strings.Join(lines, "\n"), "(asserted)")

	lines, err = b.ExplainTriple(context.Background(), ds, testutil.T(testutil.Rex, vocabulary.RdfType, testutil.Plant))
	require.NoError(t, err)
	assert.Len(t, lines, 1)
	assert.Contains(t, lines[0], "not entailed")
}

func TestServiceWithRulesBackend(t *testing.T) {
	svc, err := reasoner.NewService(rules.New())
	require.NoError(t, err)
	ctx := context.Background()

	res, err := svc.ValidateOntology(ctx, testutil.ContradictoryAnimalOntology())
	require.NoError(t, err)
	assert.False(t, res.Consistent)
	assert.Equal(t, []string{}, res.Metadata[reasoner.MetadataUnsatisfiableClasses])
	assert.NotEmpty(t, res.Metadata[reasoner.MetadataInconsistencyExplanations])
	assert.Empty(t, res.Warnings)

	why, err := svc.ExplainInference(ctx, testutil.AnimalOntology(), testutil.T(testutil.Alice, testutil.Owns, testutil.Rex))
	require.NoError(t, err)
	require.NotEmpty(t, why)
	assert.Contains(t, why[0], "(by prp-inv1)")

	mammals, err := svc.GetEntailments(ctx, testutil.AnimalOntology(),
		triple.Pattern{Predicate: vocabulary.RdfType, Object: testutil.Mammal})
	require.NoError(t, err)
	assert.Equal(t, []triple.Triple{testutil.T(testutil.Rex, vocabulary.RdfType, testutil.Mammal)}, mammals.Triples())
}
