package catalog

// TagGroup selects features whose Key tag has one of Values.
type TagGroup struct {
	Key    string
	Values []string
}

// Has reports whether v is one of the group's values.
func (g TagGroup) Has(v string) bool {
	for _, x := range g.Values {
		if x == v {
			return true
		}
	}
	return false
}

// DefaultGroups returns the tag groups queried for every region, in the
// order their results are concatenated.
func DefaultGroups() []TagGroup {
	return []TagGroup{
		{Key: "leisure", Values: []string{"park", "garden", "recreation_ground"}},
		{Key: "amenity", Values: []string{"hospital", "clinic", "school", "kindergarten"}},
		{Key: "landuse", Values: []string{"cemetery"}},
		{Key: "natural", Values: []string{"beach", "water"}},
		{Key: "railway", Values: []string{"station", "subway"}},
		{Key: "tourism", Values: []string{"attraction", "museum"}},
		{Key: "historic", Values: []string{"monument", "memorial"}},
		{Key: "place", Values: []string{"square"}},
	}
}
