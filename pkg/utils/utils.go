package utils

import "net/url"

// HTTPTimeout reports whether an http client error was a timeout
func HTTPTimeout(err error) bool {
	if httpErr, ok := err.(*url.Error); ok {
		return httpErr.Timeout()
	}
	return false
}
