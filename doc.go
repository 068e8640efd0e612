// Package semreason is a reasoning orchestration engine for RDF knowledge
// stores.
//
// It sits between a triple store and a pluggable reasoning backend. Store
// mutations are batched into debounced reasoning passes; consistent
// passes write the newly inferred triples back, inconsistent passes are
// reported and never written.
//
// # Architecture
//
//	┌─────────────────────────────────────┐
//	│       Operator API (gateway/http)   │  manual runs, enable/disable,
//	│  health, stats, events, /metrics    │  cache invalidation
//	└─────────────────────────────────────┘
//	           ↓ drives
//	┌─────────────────────────────────────┐
//	│       Change scheduler (scheduler)  │  debounce, batch escape,
//	│  store subscription → pass reports  │  merge-back, observers
//	└─────────────────────────────────────┘
//	     ↓ reads/writes          ↓ validates
//	┌──────────────────┐  ┌─────────────────────────┐
//	│  Knowledge store │  │  Reasoning service      │  result cache,
//	│  memstore,       │  │  (reasoner)             │  statistics,
//	│  kvstore (NATS)  │  │  → backend: rules,      │  timeouts
//	└──────────────────┘  │    remote (NATS), LLM   │
//	                      │    explanations          │
//	                      └─────────────────────────┘
//
// # Packages
//
//   - triple, vocabulary: the data model and RDF/RDFS/OWL terms
//   - reasoner: the Service, the Backend port, result caching and statistics
//   - reasoner/rules: in-process RDFS and OWL RL closure with consistency checks
//   - reasoner/remote: NATS request/reply backend and server
//   - reasoner/explainer: plain-language inconsistency summaries
//   - reasoner/sqlitecache: persistent result cache tier
//   - reasoner/factory: builds a Service from configuration and profiles
//   - store, store/memstore, store/kvstore: the knowledge store port and adapters
//   - scheduler: change-driven reasoning passes
//   - gateway, gateway/http: the operator API
//   - health, metric, errors, config, natsclient: the ambient stack
//
// # Running
//
//	semreason --config=semreason.yaml
//
// With no config file the engine runs on defaults: in-memory store, rules
// backend, balanced profile, automatic reasoning on and the operator API
// on :8080. Every setting can be overridden with a SEMREASON_ environment
// variable.
package semreason
