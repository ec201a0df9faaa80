package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestParseDuration(t *testing.T) {
	tests := []struct {
		input   string
		want    time.Duration
		wantErr bool
	}{
		{"10s", 10 * time.Second, false},
		{"1m", time.Minute, false},
		{"1.5h", 90 * time.Minute, false},
		{"1d", Day, false},
		{"1w", Week, false},
		{"2d2h", 50 * time.Hour, false},
		{"1h30m", 90 * time.Minute, false},
		{"5m0s", 5 * time.Minute, false},
		{"100ms", 100 * time.Millisecond, false},
		{"30000", 30 * time.Second, false},
		{" 15 s ", 15 * time.Second, false},
		{"-5s", -5 * time.Second, false},
		{"", 0, false},
		{"invalid", 0, true},
		{"10x", 0, true},
		{"1h30", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseDuration(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseDistance(t *testing.T) {
	tests := []struct {
		input   string
		want    float64
		wantErr bool
	}{
		{"100m", 100, false},
		{"1.5km", 1500, false},
		{"1nm", 1852, false},
		{"300ft", 91.44, false},
		{"1mi", 1609.344, false},
		{"500", 500, false},
		{"1km200m", 1200, false},
		{"10x", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseDistance(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

type unitsDoc struct {
	Time Duration `yaml:"time"`
	Dist Distance `yaml:"dist"`
}

func TestYAMLUnmarshal(t *testing.T) {
	tests := []struct {
		name     string
		doc      string
		wantTime time.Duration
		wantDist float64
	}{
		{"suffixed", "time: 2d\ndist: 5km\n", 48 * time.Hour, 5000},
		{"bare numbers", "time: 10000\ndist: 300\n", 10 * time.Second, 300},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got unitsDoc
			require.NoError(t, yaml.Unmarshal([]byte(tt.doc), &got))
			assert.Equal(t, tt.wantTime, time.Duration(got.Time))
			assert.InDelta(t, tt.wantDist, float64(got.Dist), 1e-9)
		})
	}

	var bad unitsDoc
	assert.Error(t, yaml.Unmarshal([]byte("time: soon\n"), &bad))
}

func TestYAMLRoundTrip(t *testing.T) {
	in := unitsDoc{Time: Duration(5 * time.Minute), Dist: Distance(2000)}
	data, err := yaml.Marshal(in)
	require.NoError(t, err)
	assert.Contains(t, string(data), "dist: 2000m")

	var out unitsDoc
	require.NoError(t, yaml.Unmarshal(data, &out))
	assert.Equal(t, in, out)
}
