// Package ingest fetches upstream forecast files, keeps run manifests,
// and loads meteorological snapshots for the scoring engine. The
// scoring core only ever sees the SnapshotSource interface; it never
// assumes a global cache.
package ingest

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"chromasky/internal/grid"
	"chromasky/internal/models"
)

// SnapshotSource hands immutable snapshots to the scoring layer.
type SnapshotSource interface {
	// Snapshot returns the snapshot valid closest to instant for the
	// event, or an error when no data within tolerance exists.
	Snapshot(event models.Event, instant time.Time) (*grid.Snapshot, error)
	// Reload drops the cache and re-reads from disk.
	Reload() error
}

// snapshotFile is the on-disk intermediate the converter writes after
// decoding upstream GRIB. Nulls mark missing cells.
type snapshotFile struct {
	Time     time.Time             `json:"time"`
	Event    string                `json:"event"`
	Geometry geometryJSON          `json:"geometry"`
	Fields   map[string][]*float64 `json:"fields"`
}

type geometryJSON struct {
	LatMin  float64 `json:"lat_min"`
	LonMin  float64 `json:"lon_min"`
	LatStep float64 `json:"lat_step"`
	LonStep float64 `json:"lon_step"`
	Rows    int     `json:"rows"`
	Cols    int     `json:"cols"`
}

// DecodeSnapshot reads one snapshot JSON document.
func DecodeSnapshot(r io.Reader) (*grid.Snapshot, string, error) {
	var sf snapshotFile
	if err := json.NewDecoder(r).Decode(&sf); err != nil {
		return nil, "", fmt.Errorf("decode snapshot: %w", err)
	}
	geom := grid.Geometry{
		LatMin: sf.Geometry.LatMin, LonMin: sf.Geometry.LonMin,
		LatStep: sf.Geometry.LatStep, LonStep: sf.Geometry.LonStep,
		Rows: sf.Geometry.Rows, Cols: sf.Geometry.Cols,
	}
	field := func(name string) (*grid.Field, error) {
		vals, ok := sf.Fields[name]
		if !ok {
			return nil, nil
		}
		if len(vals) != geom.Rows*geom.Cols {
			return nil, fmt.Errorf("field %s: %d values for %dx%d grid", name, len(vals), geom.Rows, geom.Cols)
		}
		f := grid.NewField(geom)
		for i := 0; i < geom.Rows; i++ {
			for j := 0; j < geom.Cols; j++ {
				if v := vals[i*geom.Cols+j]; v != nil {
					f.Set(i, j, *v)
				}
			}
		}
		return f, nil
	}

	var fields [6]*grid.Field
	for k, name := range [...]string{"hcc", "mcc", "lcc", "tcc", "cloud_base", "aod"} {
		f, err := field(name)
		if err != nil {
			return nil, "", err
		}
		fields[k] = f
	}
	snap, err := grid.NewSnapshot(sf.Time, fields[0], fields[1], fields[2], fields[3], fields[4], fields[5])
	if err != nil {
		return nil, "", err
	}
	return snap, sf.Event, nil
}

// EncodeSnapshot writes a snapshot JSON document.
func EncodeSnapshot(w io.Writer, snap *grid.Snapshot, event string) error {
	geom := snap.Geom()
	sf := snapshotFile{
		Time:  snap.Time,
		Event: event,
		Geometry: geometryJSON{
			LatMin: geom.LatMin, LonMin: geom.LonMin,
			LatStep: geom.LatStep, LonStep: geom.LonStep,
			Rows: geom.Rows, Cols: geom.Cols,
		},
		Fields: map[string][]*float64{},
	}
	put := func(name string, f *grid.Field) {
		if f == nil {
			return
		}
		vals := make([]*float64, geom.Rows*geom.Cols)
		for i := 0; i < geom.Rows; i++ {
			for j := 0; j < geom.Cols; j++ {
				if v, ok := f.At(i, j); ok {
					vc := v
					vals[i*geom.Cols+j] = &vc
				}
			}
		}
		sf.Fields[name] = vals
	}
	put("hcc", snap.HCC)
	put("mcc", snap.MCC)
	put("lcc", snap.LCC)
	put("tcc", snap.TCC)
	put("cloud_base", snap.CloudBase)
	put("aod", snap.AOD)
	return json.NewEncoder(w).Encode(sf)
}

// FileSource loads snapshots from the data directory. Files follow
// snapshot_<event>_<HHMM>.json as written by the GRIB conversion step.
// Loaded snapshots are cached until Reload.
type FileSource struct {
	dir string

	mu    sync.Mutex
	cache map[models.Event][]*grid.Snapshot
}

// MaxSnapshotSkew is the largest gap tolerated between the requested
// instant and a snapshot's valid time.
const MaxSnapshotSkew = 90 * time.Minute

func NewFileSource(dir string) *FileSource {
	return &FileSource{dir: dir, cache: map[models.Event][]*grid.Snapshot{}}
}

func (fs *FileSource) load(event models.Event) ([]*grid.Snapshot, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if snaps, ok := fs.cache[event]; ok {
		return snaps, nil
	}

	pattern := filepath.Join(fs.dir, fmt.Sprintf("snapshot_%s_*.json", event))
	paths, err := filepath.Glob(pattern)
	if err != nil {
		return nil, err
	}
	var snaps []*grid.Snapshot
	for _, p := range paths {
		f, err := os.Open(p)
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", p, err)
		}
		snap, ev, err := DecodeSnapshot(f)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", p, err)
		}
		if ev != "" && !strings.HasPrefix(ev, string(event)) {
			continue
		}
		snaps = append(snaps, snap)
	}
	sort.Slice(snaps, func(i, j int) bool { return snaps[i].Time.Before(snaps[j].Time) })
	fs.cache[event] = snaps
	return snaps, nil
}

func (fs *FileSource) Snapshot(event models.Event, instant time.Time) (*grid.Snapshot, error) {
	snaps, err := fs.load(event)
	if err != nil {
		return nil, err
	}
	var best *grid.Snapshot
	bestGap := math.Inf(1)
	for _, s := range snaps {
		gap := math.Abs(s.Time.Sub(instant).Seconds())
		if gap < bestGap {
			best, bestGap = s, gap
		}
	}
	if best == nil || bestGap > MaxSnapshotSkew.Seconds() {
		return nil, fmt.Errorf("no snapshot for %s near %s", event, instant.Format(time.RFC3339))
	}
	return best, nil
}

func (fs *FileSource) Reload() error {
	fs.mu.Lock()
	fs.cache = map[models.Event][]*grid.Snapshot{}
	fs.mu.Unlock()
	return nil
}
