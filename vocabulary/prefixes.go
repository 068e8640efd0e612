package vocabulary

import "strings"

// Prefixes maps the compact prefixes accepted in triples to their namespaces.
var Prefixes = map[string]string{
	"rdf":  RDFNamespace,
	"rdfs": RDFSNamespace,
	"owl":  OWLNamespace,
	"xsd":  XSDNamespace,
}

// Expand turns a compact name such as "rdfs:subClassOf" into its full IRI.
// Terms with an unknown prefix, and full IRIs, are returned unchanged.
func Expand(term string) string {
	prefix, local, ok := strings.Cut(term, ":")
	if !ok || strings.HasPrefix(local, "//") {
		return term
	}
	ns, known := Prefixes[prefix]
	if !known {
		return term
	}
	return ns + local
}

// Compact turns a full IRI in a known namespace into its compact form.
// Other terms are returned unchanged.
func Compact(iri string) string {
	for prefix, ns := range Prefixes {
		if local, ok := strings.CutPrefix(iri, ns); ok && local != "" {
			return prefix + ":" + local
		}
	}
	return iri
}

// IsCompact reports whether term is written with a known prefix.
func IsCompact(term string) bool {
	return Expand(term) != term
}

// Is reports whether term denotes iri, in either full or compact form.
func Is(term, iri string) bool {
	return term == iri || Expand(term) == iri
}

// Like renders iri in the same style as sample: compact when sample is
// compact, full otherwise. Inferred triples use it to match the notation
// of the facts they were derived from.
func Like(iri, sample string) string {
	if IsCompact(sample) {
		return Compact(iri)
	}
	return iri
}
