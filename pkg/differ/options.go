package differ

// Option is a functional option for configuring Differ
type Option func(*Differ)

// WithIgnoredFields sets field paths to ignore during comparison,
// e.g. "Metadata.SourceHash".
func WithIgnoredFields(fields ...string) Option {
	return func(d *Differ) {
		for _, field := range fields {
			d.ignoreFields[field] = true
		}
	}
}
