package dedupe

// Option applies a configuration option to the key store.
type Option func(*keyStore)

// WithMaxSize sets the maximum number of keys kept in memory.
// If maxSize > 0 the oldest key is evicted first once the limit is reached.
// If maxSize <= 0 the store is unbounded.
func WithMaxSize(maxSize int) Option {
	return func(d *keyStore) {
		d.maxSize = maxSize
	}
}
