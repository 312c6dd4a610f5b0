package channel

// RuntimeConfig controls default behavior for channel constructors.
// Zero values mean "use built-in defaults".
type RuntimeConfig struct {
	// BoundedCapacity is the capacity given to bounded links that do not
	// set one explicitly.
	BoundedCapacity int
}

// DefaultBoundedCapacity is the built-in capacity of a bounded link.
const DefaultBoundedCapacity = 1

var defaultRuntimeConfig RuntimeConfig

// SetDefaultRuntimeConfig overrides the default channel settings.
func SetDefaultRuntimeConfig(cfg RuntimeConfig) { defaultRuntimeConfig = cfg }

// BoundedCapacity returns the effective default capacity for bounded links.
func BoundedCapacity() int {
	if defaultRuntimeConfig.BoundedCapacity > 0 {
		return defaultRuntimeConfig.BoundedCapacity
	}
	return DefaultBoundedCapacity
}
