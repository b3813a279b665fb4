package ingest

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/cenkalti/backoff/v4"

	"chromasky/internal/httputil"
	"chromasky/internal/metrics"
)

const camsBaseURL = "https://ads.atmosphere.copernicus.eu/api/v2/resources/cams-global-atmospheric-composition-forecasts"

// CAMSClient downloads the 550nm total aerosol optical depth forecast
// from the Copernicus Atmosphere Data Store. AOD is optional input:
// when a cycle cannot be fetched the air quality factor falls back to
// its seasonal default instead of blocking scoring.
type CAMSClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

func NewCAMSClient(apiKey string) *CAMSClient {
	return &CAMSClient{
		baseURL: camsBaseURL,
		apiKey:  apiKey,
		client:  httputil.NewDownloadClient(),
	}
}

// Enabled reports whether an ADS API key was configured.
func (c *CAMSClient) Enabled() bool { return c.apiKey != "" }

// FetchAOD downloads the AOD forecast initialized at base time.
func (c *CAMSClient) FetchAOD(base time.Time) ([]byte, error) {
	if !c.Enabled() {
		return nil, fmt.Errorf("cams: no ADS API key configured")
	}
	u := fmt.Sprintf("%s?variable=total_aerosol_optical_depth_550nm&date=%s&time=%02d:00",
		c.baseURL, base.UTC().Format("2006-01-02"), base.UTC().Hour())

	start := time.Now()
	var body []byte
	operation := func() error {
		req, err := http.NewRequest(http.MethodGet, u, nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Authorization", "Bearer "+c.apiKey)

		resp, err := c.client.Do(req)
		if err != nil {
			return fmt.Errorf("cams fetch: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			return fmt.Errorf("cams fetch: status %d", resp.StatusCode)
		}
		if resp.StatusCode != http.StatusOK {
			b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			return backoff.Permanent(fmt.Errorf("cams fetch: status %d: %s", resp.StatusCode, string(b)))
		}

		body, err = io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("cams read body: %w", err)
		}
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = 5 * time.Minute
	err := backoff.Retry(operation, bo)

	metrics.DownloadLatency.WithLabelValues("cams").Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.DownloadsTotal.WithLabelValues("cams", "error").Inc()
		return nil, err
	}
	metrics.DownloadsTotal.WithLabelValues("cams", "ok").Inc()
	return body, nil
}

// SaveAOD fetches and writes the AOD forecast under dir.
func (c *CAMSClient) SaveAOD(dir string, base time.Time) (string, error) {
	data, err := c.FetchAOD(base)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}
	path := filepath.Join(dir, fmt.Sprintf("cams_aod_%s_t%02dz.grib2", base.UTC().Format("20060102"), base.UTC().Hour()))
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	return path, nil
}
