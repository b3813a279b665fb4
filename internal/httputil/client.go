package httputil

import (
	"net/http"
	"time"
)

// DownloadTimeout is generous because GRIB subsets from NOMADS can
// take tens of seconds to cut server-side.
const DownloadTimeout = 120 * time.Second

const APITimeout = 30 * time.Second

// NewDownloadClient returns an HTTP client for bulk forecast downloads.
func NewDownloadClient() *http.Client {
	return &http.Client{Timeout: DownloadTimeout}
}

// NewAPIClient returns an HTTP client for small JSON API calls.
func NewAPIClient() *http.Client {
	return &http.Client{Timeout: APITimeout}
}
