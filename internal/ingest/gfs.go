package ingest

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/cenkalti/backoff/v4"

	"chromasky/internal/httputil"
	"chromasky/internal/metrics"
)

// Region is the bounding box requested from the grib filter.
type Region struct {
	TopLat    float64
	BottomLat float64
	LeftLon   float64
	RightLon  float64
}

// DefaultRegion covers the East Asia forecast domain.
var DefaultRegion = Region{TopLat: 55, BottomLat: 15, LeftLon: 100, RightLon: 135}

const gfsFilterURL = "https://nomads.ncep.noaa.gov/cgi-bin/filter_gfs_0p25.pl"

// GFSClient downloads 0.25 degree GFS subsets through the NOMADS grib
// filter: the cloud layer covers, total cloud cover, and the cloud
// ceiling geopotential height the altitude factor needs.
type GFSClient struct {
	baseURL string
	client  *http.Client
	region  Region
}

func NewGFSClient(region Region) *GFSClient {
	return &GFSClient{
		baseURL: gfsFilterURL,
		client:  httputil.NewDownloadClient(),
		region:  region,
	}
}

// subsetURL builds the grib filter query for one forecast hour of one cycle.
func (g *GFSClient) subsetURL(runDate, runHour string, forecastHour int) string {
	q := url.Values{}
	q.Set("dir", fmt.Sprintf("/gfs.%s/%s/atmos", runDate, runHour))
	q.Set("file", fmt.Sprintf("gfs.t%sz.pgrb2.0p25.f%03d", runHour, forecastHour))
	q.Set("var_TCDC", "on")
	q.Set("var_LCDC", "on")
	q.Set("var_MCDC", "on")
	q.Set("var_HCDC", "on")
	q.Set("var_HGT", "on")
	q.Set("lev_entire_atmosphere", "on")
	q.Set("lev_low_cloud_layer", "on")
	q.Set("lev_middle_cloud_layer", "on")
	q.Set("lev_high_cloud_layer", "on")
	q.Set("lev_cloud_ceiling", "on")
	q.Set("subregion", "")
	q.Set("toplat", fmt.Sprintf("%g", g.region.TopLat))
	q.Set("bottomlat", fmt.Sprintf("%g", g.region.BottomLat))
	q.Set("leftlon", fmt.Sprintf("%g", g.region.LeftLon))
	q.Set("rightlon", fmt.Sprintf("%g", g.region.RightLon))
	return g.baseURL + "?" + q.Encode()
}

// FetchForecastHour downloads one subset GRIB file, retrying transient
// upstream failures with exponential backoff.
func (g *GFSClient) FetchForecastHour(runDate, runHour string, forecastHour int) ([]byte, error) {
	u := g.subsetURL(runDate, runHour, forecastHour)

	start := time.Now()
	var body []byte
	operation := func() error {
		resp, err := g.client.Get(u)
		if err != nil {
			return fmt.Errorf("gfs fetch: %w", err)
		}
		defer resp.Body.Close()

		// NOMADS throttles aggressively; retry on rate limiting and
		// server errors, give up on anything else.
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			return fmt.Errorf("gfs fetch: status %d", resp.StatusCode)
		}
		if resp.StatusCode != http.StatusOK {
			b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			return backoff.Permanent(fmt.Errorf("gfs fetch: status %d: %s", resp.StatusCode, string(b)))
		}

		body, err = io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("gfs read body: %w", err)
		}
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = 5 * time.Minute
	err := backoff.Retry(operation, bo)

	metrics.DownloadLatency.WithLabelValues("gfs").Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.DownloadsTotal.WithLabelValues("gfs", "error").Inc()
		return nil, err
	}
	metrics.DownloadsTotal.WithLabelValues("gfs", "ok").Inc()
	return body, nil
}

// SaveForecastHour fetches and writes one subset under dir, returning
// the file path.
func (g *GFSClient) SaveForecastHour(dir, runDate, runHour string, forecastHour int) (string, error) {
	data, err := g.FetchForecastHour(runDate, runHour, forecastHour)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}
	path := filepath.Join(dir, fmt.Sprintf("gfs_%s_t%sz_f%03d.grib2", runDate, runHour, forecastHour))
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	return path, nil
}

// LatestCycle picks the most recent GFS cycle that should be published
// by now. Cycles appear roughly 4.5 hours after their nominal time.
func LatestCycle(now time.Time) (runDate, runHour string) {
	t := now.UTC().Add(-4*time.Hour - 30*time.Minute)
	cycle := (t.Hour() / 6) * 6
	return t.Format("20060102"), fmt.Sprintf("%02d", cycle)
}
