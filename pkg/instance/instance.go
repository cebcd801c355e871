package instance

import "os"

const EnvInstanceID = "STOREFRONT_INSTANCE_ID"

// ID names this process in lock values and logs. EnvInstanceID wins, then
// the hostname.
func ID() string {
	if id := os.Getenv(EnvInstanceID); id != "" {
		return id
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return "cart-api-0"
}
