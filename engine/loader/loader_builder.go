package loader

import "go.uber.org/zap"

// LoaderBuilderOption configures a Loader.
type LoaderBuilderOption func(*loader)

// WithLogger replaces the loader's logger.
//
// Parameters:
//   - log: the logger to use
//
// Returns:
//   - LoaderBuilderOption: the option
func WithLogger(log *zap.Logger) LoaderBuilderOption {
	return func(l *loader) {
		if log != nil {
			l.log = log
		}
	}
}

// WithFitRadius recenters every loaded mesh on its bounding box centre and scales it uniformly
// so its furthest vertex lies at radius. Zero leaves geometry untouched.
//
// Parameters:
//   - radius: the target bounding radius
//
// Returns:
//   - LoaderBuilderOption: the option
func WithFitRadius(radius float32) LoaderBuilderOption {
	return func(l *loader) {
		l.fitRadius = max(radius, 0)
	}
}
