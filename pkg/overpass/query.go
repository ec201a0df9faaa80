package overpass

import (
	"fmt"
	"strings"
)

var nodeFilters = []string{
	`["tourism"~"attraction|museum|viewpoint|artwork|information|hotel"]`,
	`["historic"~"castle|monument|memorial|ruins|archaeological_site"]`,
	`["amenity"="place_of_worship"]`,
	`["natural"~"peak|cliff|beach|hot_spring"]`,
	`["leisure"~"park|garden"]`,
}

var wayFilters = []string{
	`["tourism"~"attraction|museum|viewpoint"]`,
	`["historic"~"castle|monument|memorial|ruins"]`,
	`["amenity"="place_of_worship"]`,
	`["leisure"~"park|garden"]`,
}

// BuildQuery returns the Overpass QL query for tourist-relevant features
// within radius meters of (lat, lon). Ways are returned with their center.
func BuildQuery(lat, lon, radius float64) string {
	around := fmt.Sprintf("(around:%s,%s,%s)", fmtNum(radius), fmtNum(lat), fmtNum(lon))

	var b strings.Builder
	b.WriteString("[out:json][timeout:10];\n(\n")
	for _, f := range nodeFilters {
		fmt.Fprintf(&b, "  node%s%s;\n", f, around)
	}
	for _, f := range wayFilters {
		fmt.Fprintf(&b, "  way%s%s;\n", f, around)
	}
	b.WriteString(");\nout center body;")
	return b.String()
}

func fmtNum(v float64) string {
	return strings.TrimRight(strings.TrimRight(fmt.Sprintf("%.6f", v), "0"), ".")
}
