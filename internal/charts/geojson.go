package charts

import (
	"github.com/chrissnell/groundwatch/internal/types"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// StationMap returns a GeoJSON point per station. The station named by
// selected, if any, is flagged so a map can highlight it.
func StationMap(stations []types.Station, selected string) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, st := range stations {
		f := geojson.NewFeature(orb.Point{st.Longitude, st.Latitude})
		f.ID = st.StationID
		f.Properties["station_id"] = st.StationID
		f.Properties["name"] = st.DisplayName
		f.Properties["selected"] = st.StationID == selected
		if st.Elevation != nil {
			f.Properties["elevation"] = *st.Elevation
		}
		fc.Append(f)
	}
	return fc
}
