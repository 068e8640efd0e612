package gateway

import (
	"context"
	"net/http"

	"github.com/c360/semreason/reasoner"
	"github.com/c360/semreason/scheduler"
	"github.com/c360/semreason/triple"
)

// Scheduler is the part of scheduler.Scheduler the operator API drives.
type Scheduler interface {
	RunFullReasoningNow(ctx context.Context, kind reasoner.Kind) (triple.Dataset, error)
	CheckConsistencyNow(ctx context.Context) (bool, error)
	ValidateNow(ctx context.Context) (*reasoner.Result, error)
	Enable() error
	Disable()
	GetIntegrationStatistics() scheduler.IntegrationStatistics
}

// Cache invalidates cached reasoning results. reasoner.Service
// implements it.
type Cache interface {
	InvalidateCache(ctx context.Context, pattern string) bool
}

// HTTPHandler is implemented by anything that mounts routes on a mux.
type HTTPHandler interface {
	RegisterHTTPHandlers(prefix string, mux *http.ServeMux)
}
