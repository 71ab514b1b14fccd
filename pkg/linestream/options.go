package linestream

const defaultChunkSize = 32 * 1024

type config struct {
	flushTrailing bool
	chunkSize     int
	maxLineSize   int
}

func newConfig(opts ...Option) *config {
	c := &config{chunkSize: defaultChunkSize}
	for _, opt := range opts {
		opt(c)
	}
	if c.chunkSize <= 0 {
		c.chunkSize = defaultChunkSize
	}
	return c
}

// Option configures a Splitter or Reader.
type Option func(*config)

// WithFlushTrailing emits a final unterminated line at end of stream instead
// of discarding it.
func WithFlushTrailing(flush bool) Option {
	return func(c *config) {
		c.flushTrailing = flush
	}
}

// WithChunkSize sets the size of each read from the source. Defaults to 32KiB.
func WithChunkSize(n int) Option {
	return func(c *config) {
		c.chunkSize = n
	}
}

// WithMaxLineSize bounds the unterminated tail a Reader will buffer. Zero,
// the default, means unlimited.
func WithMaxLineSize(n int) Option {
	return func(c *config) {
		c.maxLineSize = n
	}
}
