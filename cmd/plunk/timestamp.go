package main

import "time"

// nowTimestamp returns the current time in the RFC-3339Nano UTC form used
// throughout store metadata and link entries.
func nowTimestamp() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}
