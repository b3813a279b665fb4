package ingest

import (
	"fmt"
	"io"
	"time"

	"github.com/jlaffaye/ftp"
)

const (
	nceiFTPHost = "ftp.ncei.noaa.gov:21"
	nceiGFSPath = "/pub/data/nccf/com/gfs/prod"
)

// ArchiveClient pulls historical GFS cycles from the NCEI FTP archive,
// used by the backfill mode to rebuild past event maps for
// verification against observed afterglows.
type ArchiveClient struct {
	host string
	root string
}

func NewArchiveClient() *ArchiveClient {
	return &ArchiveClient{host: nceiFTPHost, root: nceiGFSPath}
}

// FetchHistorical retrieves one archived forecast file for a past
// cycle. The connection is short-lived; backfill iterates dates one at
// a time and the archive throttles parallel logins.
func (a *ArchiveClient) FetchHistorical(runDate, runHour string, forecastHour int) ([]byte, error) {
	conn, err := ftp.Dial(a.host, ftp.DialWithTimeout(30*time.Second))
	if err != nil {
		return nil, fmt.Errorf("ftp dial: %w", err)
	}
	defer conn.Quit()

	if err := conn.Login("anonymous", "anonymous"); err != nil {
		return nil, fmt.Errorf("ftp login: %w", err)
	}

	path := fmt.Sprintf("%s/gfs.%s/%s/atmos/gfs.t%sz.pgrb2.0p25.f%03d",
		a.root, runDate, runHour, runHour, forecastHour)
	resp, err := conn.Retr(path)
	if err != nil {
		return nil, fmt.Errorf("ftp retr %s: %w", path, err)
	}
	defer resp.Close()

	data, err := io.ReadAll(resp)
	if err != nil {
		return nil, fmt.Errorf("ftp read %s: %w", path, err)
	}
	return data, nil
}

// ListCycles lists the archived cycle directories for a date.
func (a *ArchiveClient) ListCycles(runDate string) ([]string, error) {
	conn, err := ftp.Dial(a.host, ftp.DialWithTimeout(30*time.Second))
	if err != nil {
		return nil, fmt.Errorf("ftp dial: %w", err)
	}
	defer conn.Quit()

	if err := conn.Login("anonymous", "anonymous"); err != nil {
		return nil, fmt.Errorf("ftp login: %w", err)
	}

	entries, err := conn.List(fmt.Sprintf("%s/gfs.%s", a.root, runDate))
	if err != nil {
		return nil, fmt.Errorf("ftp list: %w", err)
	}
	var cycles []string
	for _, e := range entries {
		if e.Type == ftp.EntryTypeFolder {
			cycles = append(cycles, e.Name)
		}
	}
	return cycles, nil
}
