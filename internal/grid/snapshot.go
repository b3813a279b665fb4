package grid

import (
	"fmt"
	"time"
)

// Snapshot bundles the named meteorological fields for one forecast
// valid time. Cloud covers are percent [0,100], cloud base is meters
// above ground, AOD is dimensionless optical depth. A snapshot is
// immutable once constructed: the scoring layer only reads it.
type Snapshot struct {
	Time      time.Time
	HCC       *Field // high cloud cover
	MCC       *Field // medium cloud cover
	LCC       *Field // low cloud cover
	TCC       *Field // total cloud cover
	CloudBase *Field // cloud ceiling geopotential height
	AOD       *Field // aerosol optical depth at 550nm, may be nil
}

// NewSnapshot validates that all fields share one grid geometry.
// AOD is optional; when nil the air quality factor falls back to its
// seasonal default.
func NewSnapshot(t time.Time, hcc, mcc, lcc, tcc, cloudBase, aod *Field) (*Snapshot, error) {
	required := map[string]*Field{
		"hcc": hcc, "mcc": mcc, "lcc": lcc, "tcc": tcc, "cloud_base": cloudBase,
	}
	for name, f := range required {
		if f == nil {
			return nil, fmt.Errorf("snapshot missing required field %s", name)
		}
	}
	geoms := []Geometry{hcc.Geom, mcc.Geom, lcc.Geom, tcc.Geom, cloudBase.Geom}
	if aod != nil {
		geoms = append(geoms, aod.Geom)
	}
	if err := CheckAligned(geoms...); err != nil {
		return nil, fmt.Errorf("snapshot at %s: %w", t.Format(time.RFC3339), err)
	}
	return &Snapshot{
		Time: t, HCC: hcc, MCC: mcc, LCC: lcc, TCC: tcc, CloudBase: cloudBase, AOD: aod,
	}, nil
}

// Geom returns the shared grid geometry.
func (s *Snapshot) Geom() Geometry { return s.TCC.Geom }
