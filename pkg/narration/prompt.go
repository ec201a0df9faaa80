package narration

import (
	"fmt"
	"math"
	"strings"

	"driveguide/pkg/model"
)

// SystemPrompt sets the guide persona for remote generation.
const SystemPrompt = `You are a friendly tour guide narrating sights to passengers during a drive.

Rules:
- Speak English.
- Be polite but warm and conversational.
- Keep it to 2 to 4 sentences.
- Always work the direction (on your right, on your left, straight ahead) naturally into the text.
- Include one interesting fact or bit of history.
- Aim for curious adults on a road trip: fun and a little clever, never stiff, never silly.
- Do not use emoji.`

var directionWords = map[model.Direction]string{
	model.DirectionLeft:   "on the left",
	model.DirectionRight:  "on the right",
	model.DirectionAhead:  "straight ahead",
	model.DirectionBehind: "behind",
}

// BuildUserMessage renders the per-POI request for the model.
func BuildUserMessage(req *model.NarrationRequest) string {
	direction, ok := directionWords[req.Direction]
	if !ok {
		direction = string(req.Direction)
	}

	var sb strings.Builder
	sb.WriteString("Please introduce the following place:\n\n")
	fmt.Fprintf(&sb, "Name: %s\n", req.POIName)
	fmt.Fprintf(&sb, "Kind: %s\n", req.POISubType)
	fmt.Fprintf(&sb, "Direction: %s (relative to the direction of travel)\n", direction)
	fmt.Fprintf(&sb, "Distance: about %dm\n", req.DistanceMeters)
	fmt.Fprintf(&sb, "Current position: latitude %.4f, longitude %.4f\n", req.Latitude, req.Longitude)
	if req.Speed != nil {
		fmt.Fprintf(&sb, "Current speed: about %dkm/h\n", int(math.Round(*req.Speed*3.6)))
	}
	sb.WriteString("\nWeave the direction naturally into the introduction.")
	return sb.String()
}
