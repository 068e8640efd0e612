// Package testutil provides test doubles and fixtures shared by the
// package tests.
//
//   - StubBackend: scriptable reasoner.Backend with call counters
//   - RecordingPublisher: records payloads per subject, can be made to fail
//   - AnimalOntology and friends: small RDFS/OWL fixture datasets
//
// Integration tests that need a real NATS server use
// natsclient.NewTestClient instead.
package testutil
