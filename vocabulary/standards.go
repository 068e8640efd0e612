package vocabulary

// Namespaces of the W3C vocabularies the reasoning backends understand.
const (
	RDFNamespace  = "http://www.w3.org/1999/02/22-rdf-syntax-ns#"
	RDFSNamespace = "http://www.w3.org/2000/01/rdf-schema#"
	OWLNamespace  = "http://www.w3.org/2002/07/owl#"
	XSDNamespace  = "http://www.w3.org/2001/XMLSchema#"
)

// RDF Standard IRIs
const (
	// RdfType states that a resource is an instance of a class.
	RdfType = RDFNamespace + "type"

	// RdfProperty is the class of RDF properties.
	RdfProperty = RDFNamespace + "Property"
)

// RDF Schema Standard IRIs
const (
	// RdfsSubClassOf states that all instances of one class are instances of another.
	RdfsSubClassOf = RDFSNamespace + "subClassOf"

	// RdfsSubPropertyOf states that all pairs related by one property are related by another.
	RdfsSubPropertyOf = RDFSNamespace + "subPropertyOf"

	// RdfsDomain types the subject of every statement using the property.
	RdfsDomain = RDFSNamespace + "domain"

	// RdfsRange types the object of every statement using the property.
	RdfsRange = RDFSNamespace + "range"

	RdfsClass   = RDFSNamespace + "Class"
	RdfsLabel   = RDFSNamespace + "label"
	RdfsComment = RDFSNamespace + "comment"
)

// OWL (Web Ontology Language) Standard IRIs
const (
	// OwlThing is the class of all individuals.
	OwlThing = OWLNamespace + "Thing"

	// OwlNothing is the empty class. An instance of it is a contradiction.
	OwlNothing = OWLNamespace + "Nothing"

	OwlClass = OWLNamespace + "Class"

	// OwlEquivalentClass indicates two classes have the same instances.
	OwlEquivalentClass = OWLNamespace + "equivalentClass"

	// OwlEquivalentProperty indicates two properties relate the same pairs.
	OwlEquivalentProperty = OWLNamespace + "equivalentProperty"

	// OwlDisjointWith indicates two classes share no instances.
	OwlDisjointWith = OWLNamespace + "disjointWith"

	// OwlInverseOf indicates one property relates (y, x) whenever the other relates (x, y).
	OwlInverseOf = OWLNamespace + "inverseOf"

	OwlTransitiveProperty = OWLNamespace + "TransitiveProperty"
	OwlSymmetricProperty  = OWLNamespace + "SymmetricProperty"

	// OwlSameAs indicates two IRIs denote the same individual.
	OwlSameAs = OWLNamespace + "sameAs"
)
