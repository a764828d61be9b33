package region

// LegendEntry describes how an index is colored on the map.
type LegendEntry struct {
	Index       IndexKind `json:"index"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	LowColor    string    `json:"lowColor"`
	HighColor   string    `json:"highColor"`
	Range       string    `json:"range"`
}

// Legend returns the legend for every index kind, in display order.
func Legend() []LegendEntry {
	return []LegendEntry{
		{Index: NDSI, Name: "NDSI", Description: "Snow/Ice Index", LowColor: "red", HighColor: "cyan", Range: "Red (low) → Cyan (high)"},
		{Index: NDVI, Name: "NDVI", Description: "Vegetation Index", LowColor: "blue", HighColor: "green", Range: "Blue (low) → Green (high)"},
		{Index: NDBI, Name: "NDBI", Description: "Urban Area Index", LowColor: "blue", HighColor: "yellow", Range: "Blue (low) → Yellow (high)"},
	}
}

// LegendFor returns the legend entry of one index kind.
func LegendFor(k IndexKind) (LegendEntry, bool) {
	for _, e := range Legend() {
		if e.Index == k {
			return e, true
		}
	}
	return LegendEntry{}, false
}
