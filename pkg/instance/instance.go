package instance

import "os"

// GetID names the running process in logs. Heroku's DYNO wins, then
// OFFERPAY_INSTANCE_ID, then the host name.
func GetID() string {
	for _, key := range []string{"DYNO", "OFFERPAY_INSTANCE_ID"} {
		if id := os.Getenv(key); id != "" {
			return id
		}
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return "local"
}
