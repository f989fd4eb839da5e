package threshold

const (
	DefaultTrimFraction    = 0.15
	DefaultReplications    = 1000
	DefaultConfidenceLevel = 0.95
)
