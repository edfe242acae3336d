package utils

import (
	"net/http"
	"net/http/cookiejar"
	"time"

	"golang.org/x/net/publicsuffix"
)

// UserAgent is sent on every outbound request. Several merchants and
// shorteners serve stripped-down or blocking pages to unknown clients.
const UserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"

// NewHTTPClient builds the outbound client used against merchant and
// redirect URLs: bounded timeout and a public-suffix-aware cookie jar
// (some merchants bounce through a cookie-setting interstitial).
func NewHTTPClient(timeout time.Duration) *http.Client {
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		// cookiejar.New only fails on a nil-safe option misuse; fall back to no jar.
		jar = nil
	}
	return &http.Client{
		Timeout: timeout,
		Jar:     jar,
	}
}

// SetBrowserHeaders applies the browser-like headers to an outbound request.
func SetBrowserHeaders(req *http.Request) {
	req.Header.Set("User-Agent", UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-IN,en;q=0.9")
}
