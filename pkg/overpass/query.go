package overpass

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
)

// areaOffset turns an OSM relation id into its Overpass area id.
const areaOffset = 3600000000

// AreaID returns the Overpass area id for a region given as an OSM relation
// id. Values that are already area ids are returned unchanged.
func AreaID(regionID string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(regionID), 10, 64)
	if err != nil || id <= 0 {
		return 0, eris.Errorf("overpass: region %q is not an OSM relation id", regionID)
	}
	if id >= areaOffset {
		return id, nil
	}
	return areaOffset + id, nil
}

// TagQuery builds a query for named nodes, ways and relations inside the
// region whose key tag matches one of values exactly.
func TagQuery(regionID, key string, values []string, timeoutSecs int) (string, error) {
	area, err := AreaID(regionID)
	if err != nil {
		return "", err
	}
	if key == "" || len(values) == 0 {
		return "", eris.New("overpass: tag query needs a key and at least one value")
	}

	quoted := make([]string, len(values))
	for i, v := range values {
		quoted[i] = escape(regexp.QuoteMeta(v))
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "[out:json][timeout:%d];\n", timeoutSecs)
	fmt.Fprintf(&sb, "area(id:%d)->.searchArea;\n", area)
	fmt.Fprintf(&sb, "nwr[\"%s\"~\"^(%s)$\"][\"name\"](area.searchArea);\n", escape(key), strings.Join(quoted, "|"))
	sb.WriteString("out geom;")
	return sb.String(), nil
}

func escape(s string) string {
	return strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(s)
}
