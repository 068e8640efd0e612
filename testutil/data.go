package testutil

import (
	"github.com/c360/semreason/reasoner"
	"github.com/c360/semreason/triple"
	"github.com/c360/semreason/vocabulary"
)

// T is shorthand for triple.New.
func T(s, p, o string) triple.Triple {
	return triple.New(s, p, o)
}

// Consistent builds a consistent result over the given triples.
func Consistent(triples ...triple.Triple) *reasoner.Result {
	return &reasoner.Result{InferredDataset: triple.NewDataset(triples...), Consistent: true}
}

// Inconsistent builds an inconsistent result over the given triples.
func Inconsistent(kinds []reasoner.InconsistencyKind, triples ...triple.Triple) *reasoner.Result {
	return &reasoner.Result{
		InferredDataset: triple.NewDataset(triples...),
		Consistent:      false,
		Inconsistencies: kinds,
	}
}

// Fixture IRIs of the animal ontology.
const (
	ExNS     = "http://example.org/zoo#"
	Animal   = ExNS + "Animal"
	Mammal   = ExNS + "Mammal"
	Dog      = ExNS + "Dog"
	Plant    = ExNS + "Plant"
	Rex      = ExNS + "rex"
	Fido     = ExNS + "fido"
	HasOwner = ExNS + "hasOwner"
	Owns     = ExNS + "owns"
	Person   = ExNS + "Person"
	Alice    = ExNS + "alice"
)

// AnimalOntology returns a small consistent ontology: Dog ⊑ Mammal ⊑ Animal,
// Animal disjoint with Plant, rex a Dog owned by alice.
func AnimalOntology() triple.Dataset {
	return triple.NewDataset(
		T(Dog, vocabulary.RdfsSubClassOf, Mammal),
		T(Mammal, vocabulary.RdfsSubClassOf, Animal),
		T(Animal, vocabulary.OwlDisjointWith, Plant),
		T(HasOwner, vocabulary.RdfsRange, Person),
		T(HasOwner, vocabulary.OwlInverseOf, Owns),
		T(Rex, vocabulary.RdfType, Dog),
		T(Rex, HasOwner, Alice),
	)
}

// ContradictoryAnimalOntology adds a triple making rex both an Animal and a Plant.
func ContradictoryAnimalOntology() triple.Dataset {
	ds := AnimalOntology()
	ds.Add(T(Rex, vocabulary.RdfType, Plant))
	return ds
}
