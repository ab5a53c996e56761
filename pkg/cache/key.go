package cache

import (
	"strings"
)

// KeyPrefix namespaces every key written by this module.
const KeyPrefix = "cmfeed"

// Key identifies a stored value.
type Key struct {
	// Namespace groups related values (e.g. "postage", "ratelimit")
	Namespace string

	// Name is the value name within the namespace (e.g. "postage-values")
	Name string
}

// String generates a deterministic key string.
// Format: cmfeed:namespace:name
//
// Example:
//
//	cmfeed:postage:country-value
func (k Key) String() string {
	parts := []string{KeyPrefix}

	if ns := strings.Trim(k.Namespace, ": "); ns != "" {
		parts = append(parts, ns)
	}
	if name := strings.Trim(k.Name, ": "); name != "" {
		parts = append(parts, name)
	}

	return strings.Join(parts, ":")
}
