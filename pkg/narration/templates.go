package narration

import (
	"fmt"
	"strings"

	"driveguide/pkg/model"
)

// NearDistance is the cutoff below which the fallback text says "just over there".
const NearDistance = 500

var directionPhrases = map[model.Direction]string{
	model.DirectionLeft:   "Take a look to your left.",
	model.DirectionRight:  "Take a look to your right.",
	model.DirectionAhead:  "Coming up straight ahead.",
	model.DirectionBehind: "We just passed it.",
}

var subTypeLabels = map[string]string{
	"attraction":          "sightseeing spot",
	"museum":              "museum",
	"viewpoint":           "viewpoint",
	"artwork":             "piece of public art",
	"information":         "visitor information point",
	"hotel":               "hotel",
	"castle":              "castle",
	"monument":            "monument",
	"memorial":            "memorial",
	"ruins":               "ruin",
	"archaeological_site": "archaeological site",
	"shrine":              "shrine",
	"temple":              "temple",
	"church":              "church",
	"peak":                "summit",
	"cliff":               "cliff",
	"beach":               "beach",
	"hot_spring":          "hot spring",
	"park":                "park",
	"garden":              "garden",
}

// SubTypeLabel returns a readable label for an OSM subtype, or the raw value.
func SubTypeLabel(subType string) string {
	if label, ok := subTypeLabels[subType]; ok {
		return label
	}
	return subType
}

func distancePhrase(meters int) string {
	if meters < NearDistance {
		return "just over there"
	}
	return fmt.Sprintf("about %dm ahead", meters)
}

var templates = []func(dir, dist, name, label string) string{
	func(dir, dist, name, label string) string {
		return fmt.Sprintf("%s %s you can see %s. It's a %s that locals love too. Keep it in mind for this drive.", dir, dist, name, label)
	},
	func(dir, dist, name, label string) string {
		return fmt.Sprintf("Now then. %s %s is %s. This area has plenty of history and is perfect for a stroll. How about it for the next break?", dir, dist, name)
	},
	func(dir, dist, name, label string) string {
		return fmt.Sprintf("%s %s there's %s. Known as a %s, it's something of a hidden gem. Stop by if you have the time.", dir, dist, name, label)
	},
	func(dir, dist, name, label string) string {
		return fmt.Sprintf("Oh! %s %s there's %s! It's a %s that only insiders know about, and it looks great in photos.", dir, dist, name, label)
	},
}

// TemplateCount is the number of fallback templates.
var TemplateCount = len(templates)

// Fallback renders the deterministic fallback text using template idx
// (taken modulo TemplateCount).
func Fallback(req *model.NarrationRequest, idx int) string {
	if idx < 0 {
		idx = -idx
	}
	dir := directionPhrases[req.Direction]
	text := templates[idx%len(templates)](dir, capitalize(distancePhrase(req.DistanceMeters)), req.POIName, SubTypeLabel(req.POISubType))
	return strings.TrimSpace(text)
}

func capitalize(s string) string {
	if s == "" || s[0] < 'a' || s[0] > 'z' {
		return s
	}
	return string(s[0]-'a'+'A') + s[1:]
}
