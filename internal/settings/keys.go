package settings

// Well-known setting keys consumed by the core modules.
const (
	KeyEnableTax   = "enable_tax"
	KeyTaxRate     = "tax_rate"
	KeyQueuePrefix = "queue_prefix"
)

// Defaults applied when a key is missing.
const (
	DefaultQueuePrefix = "A"
)
