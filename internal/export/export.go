// Package export mirrors the exposed variables into an external store so
// pollers that cannot reach the HTTP surface can still read them.
package export

import (
	"context"

	"github.com/sweeney/heatmon/internal/status"
)

// Exporter writes a snapshot's variables somewhere.
type Exporter interface {
	// Export writes the variables of snap. Implementations must not keep
	// snap after returning.
	Export(ctx context.Context, snap status.Snapshot) error

	// Close releases the exporter's resources.
	Close() error
}

// Fields renders the variables of snap as string fields, in the form stored
// by string-only backends.
func Fields(snap status.Snapshot) map[string]any {
	vars := status.Variables(snap)
	out := make(map[string]any, len(vars))
	for _, v := range vars {
		out[v.Name] = v.String()
	}
	return out
}
