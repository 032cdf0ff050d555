//go:build !tinygo && !cgo

package hal

import "fmt"

// RunWindow is unavailable without cgo; RunHeadless and RunServe still
// work.
func RunWindow(func(HAL) func() error) error {
	return fmt.Errorf("window mode needs cgo (CGO_ENABLED=1); use -headless or -serve: %w", ErrNotImplemented)
}
