// Package gateway defines the operator API contract: the engine
// interfaces the API drives and the JSON bodies it answers with.
// Package gateway/http serves it.
package gateway
