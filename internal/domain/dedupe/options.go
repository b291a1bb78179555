package dedupe

// Option configures an in-memory deduper.
type Option func(*inMemoryDeduper)

// WithMaxSize bounds the number of remembered keys. Zero or a negative value
// disables eviction.
func WithMaxSize(maxSize int) Option {
	return func(d *inMemoryDeduper) {
		d.maxSize = maxSize
	}
}
