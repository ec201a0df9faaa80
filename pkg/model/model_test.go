package model

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestLocationSampleHeading(t *testing.T) {
	tests := []struct {
		name   string
		sample LocationSample
		want   bool
	}{
		{"NoHeading", LocationSample{Latitude: 35, Longitude: 139}, false},
		{"ZeroHeading", LocationSample{Heading: Float(0)}, true},
		{"East", LocationSample{Heading: Float(90)}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.sample.HasHeading(); got != tt.want {
				t.Errorf("HasHeading() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNullHeadingEncodesAsNull(t *testing.T) {
	b, err := json.Marshal(LocationSample{Latitude: 35, Longitude: 139})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(b), `"heading":null`) {
		t.Errorf("expected null heading, got %s", b)
	}
}
