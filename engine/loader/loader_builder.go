package loader

import "go.uber.org/zap"

// LoaderBuilderOption is a functional option for configuring a Loader via NewLoader.
type LoaderBuilderOption func(*loader)

// WithLogger replaces the loader logger, which defaults to logger.Named("loader").
//
// Parameters:
//   - log: the logger used for import and instantiation messages
//
// Returns:
//   - LoaderBuilderOption: a function that applies the logger option to a loader
func WithLogger(log *zap.Logger) LoaderBuilderOption {
	return func(l *loader) {
		l.log = log
	}
}

// WithAsset is an option builder that pre-populates the asset cache.
//
// Parameters:
//   - key: the cache key for the asset
//   - a: the asset to cache
//
// Returns:
//   - LoaderBuilderOption: a function that applies the asset option to a loader
func WithAsset(key string, a *Asset) LoaderBuilderOption {
	return func(l *loader) {
		l.assetCache[key] = a
	}
}
