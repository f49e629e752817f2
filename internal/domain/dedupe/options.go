package dedupe

// Option applies a configuration option to the InMemoryDeduper.
type Option func(*inMemoryDeduper)

// WithCaseFolding makes keys match ignoring case and surrounding whitespace.
func WithCaseFolding() Option {
	return func(d *inMemoryDeduper) {
		d.fold = true
	}
}

// WithInitialCapacity presizes the key map.
func WithInitialCapacity(n int) Option {
	return func(d *inMemoryDeduper) {
		if n > 0 {
			d.capacity = n
		}
	}
}
