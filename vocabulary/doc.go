// Package vocabulary holds the RDF, RDFS and OWL terms that carry meaning
// for the reasoning backends.
//
// Triples may spell these terms as full IRIs or with the compact prefixes
// rdf:, rdfs:, owl: and xsd:. Is compares a term against an IRI in either
// spelling, and Like renders a derived term in the notation of its premise
// so a dataset written in compact form stays compact after inference.
package vocabulary
