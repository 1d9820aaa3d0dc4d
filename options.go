package fastset

type options struct {
	partitionBits int
	capacityBits  int
	concurrent    bool
	loadFactor    int
	logger        *Logger
	metrics       MetricsCollector
}

func defaultOptions() options {
	return options{
		partitionBits: autoPartitionBits,
		concurrent:    true,
		loadFactor:    DefaultLoadFactor,
	}
}

// Option configures a Set.
type Option func(*options)

// WithPartitionBits sets log2 of the partition count. Values above
// MaxPartitionBits are clamped; a negative value (the default) derives the
// count from GOMAXPROCS.
func WithPartitionBits(bits int) Option {
	return func(o *options) {
		o.partitionBits = bits
	}
}

// WithCapacityBits sets log2 of the initial bucket count per partition.
// 0 selects DefaultCapacityBits; other values are clamped to
// [MinCapacityBits, MaxCapacityBits].
func WithCapacityBits(bits int) Option {
	return func(o *options) {
		o.capacityBits = bits
	}
}

// WithConcurrent selects between per-partition locking (true, the default)
// and an unsynchronized single-writer path (false).
//
// A non-concurrent set must not be used from more than one goroutine at a
// time, including through AddAll and AddExclusive from another set.
func WithConcurrent(concurrent bool) Option {
	return func(o *options) {
		o.concurrent = concurrent
	}
}

// WithLoadFactor sets the average keys per bucket at which a partition
// doubles its bucket table. Values below 1 are ignored.
func WithLoadFactor(n int) Option {
	return func(o *options) {
		if n >= 1 {
			o.loadFactor = n
		}
	}
}

// WithLogger configures the logger. If nil, logging is disabled.
func WithLogger(l *Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithMetrics configures the metrics collector. If nil, metrics are discarded.
func WithMetrics(m MetricsCollector) Option {
	return func(o *options) {
		o.metrics = m
	}
}

func (o *options) finish() {
	o.partitionBits = normalizePartitionBits(o.partitionBits)
	o.capacityBits = normalizeCapacityBits(o.capacityBits)
	if o.logger == nil {
		o.logger = NoopLogger()
	}
	if o.metrics == nil {
		o.metrics = NoopMetricsCollector{}
	}
}
