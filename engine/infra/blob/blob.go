// Package blob reads raw source documents from the configured backing
// store. Paths are slash-separated keys relative to the store root,
// e.g. "normativos/IN/in_62_2021.pdf".
package blob

import (
	"context"
	"fmt"
)

// Getter fetches stored objects by key.
type Getter interface {
	// GetBytes reads the full object. Source documents are small enough
	// that streaming buys nothing over a single read.
	GetBytes(ctx context.Context, path string) ([]byte, error)
	// List returns every object key under prefix, in lexical order.
	List(ctx context.Context, prefix string) ([]string, error)
	// Close releases backend resources.
	Close() error
}

// Driver names accepted by NewGetter.
const (
	DriverFS  = "fs"
	DriverGCS = "gcs"
)

// NewGetter builds the store named by driver. Root is the base directory
// for the fs driver and the bucket name for gcs.
func NewGetter(ctx context.Context, driver, root string) (Getter, error) {
	switch driver {
	case DriverFS:
		return NewFSGetter(root)
	case DriverGCS:
		return NewGCSGetter(ctx, root)
	default:
		return nil, fmt.Errorf("blob: unknown driver %q", driver)
	}
}
