package narration

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"driveguide/pkg/model"
)

func TestBuildUserMessage(t *testing.T) {
	req := &model.NarrationRequest{
		POIName:        "Tokyo Tower",
		POISubType:     "attraction",
		DistanceMeters: 400,
		Direction:      model.DirectionRight,
		Latitude:       35.658581,
		Longitude:      139.745433,
	}

	msg := BuildUserMessage(req)
	assert.Contains(t, msg, "Name: Tokyo Tower")
	assert.Contains(t, msg, "Kind: attraction")
	assert.Contains(t, msg, "Direction: on the right")
	assert.Contains(t, msg, "Distance: about 400m")
	assert.Contains(t, msg, "latitude 35.6586, longitude 139.7454")
	assert.NotContains(t, msg, "speed")

	req.Speed = model.Float(12.5)
	msg = BuildUserMessage(req)
	assert.Contains(t, msg, "Current speed: about 45km/h")
}

func TestSubTypeLabel(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"attraction", "sightseeing spot"},
		{"temple", "temple"},
		{"hot_spring", "hot spring"},
		{"fountain", "fountain"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, SubTypeLabel(tt.in), tt.in)
	}
}

func TestDistancePhrase(t *testing.T) {
	assert.Equal(t, "just over there", distancePhrase(0))
	assert.Equal(t, "just over there", distancePhrase(499))
	assert.Equal(t, "about 500m ahead", distancePhrase(500))
	assert.Equal(t, "about 1250m ahead", distancePhrase(1250))
}

func TestFallback(t *testing.T) {
	req := &model.NarrationRequest{
		POIName:        "Zojo-ji Temple",
		POISubType:     "temple",
		DistanceMeters: 800,
		Direction:      model.DirectionLeft,
	}

	for i := 0; i < TemplateCount; i++ {
		text := Fallback(req, i)
		assert.Contains(t, text, "Zojo-ji Temple")
		assert.Contains(t, text, "About 800m ahead")
		assert.True(t, strings.HasPrefix(text, "Take a look to your left.") || strings.Contains(text, "Take a look to your left."), text)
	}

	// Deterministic per index, wraps around
	assert.Equal(t, Fallback(req, 1), Fallback(req, 1+TemplateCount))
	assert.Equal(t, Fallback(req, 2), Fallback(req, -2))

	near := *req
	near.DistanceMeters = 120
	near.Direction = model.DirectionRight
	text := Fallback(&near, 0)
	assert.Equal(t, "Take a look to your right. Just over there you can see Zojo-ji Temple. It's a temple that locals love too. Keep it in mind for this drive.", text)
}

func TestHasValidKey(t *testing.T) {
	tests := []struct {
		key  string
		want bool
	}{
		{"", false},
		{"short", false},
		{"0123456789", false},
		{"your-gemini-api-key-here", false},
		{"AIzaSyExampleRealLookingKey", true},
		{"  AIzaSyExampleRealLookingKey  ", true},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, HasValidKey(tt.key), tt.key)
	}
}
