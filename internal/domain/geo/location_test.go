package geo

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLocation_Valid(t *testing.T) {
	assert.True(t, Location{Latitude: 12.9, Longitude: 77.6}.Valid())
	assert.True(t, Location{Latitude: -85, Longitude: -180}.Valid())
	assert.False(t, Location{Latitude: 89, Longitude: 0}.Valid())
	assert.False(t, Location{Latitude: 0, Longitude: 181}.Valid())
}

func TestBoundingBox_RandomLocation(t *testing.T) {
	box := BoundingBox{MinLat: 12.8, MaxLat: 28.8, MinLon: 72.7, MaxLon: 77.5}
	rng := rand.New(rand.NewSource(1))

	for i := 0; i < 1000; i++ {
		assert.True(t, box.Contains(box.RandomLocation(rng)))
	}
}

func TestBoundingBox_Validate(t *testing.T) {
	assert.NoError(t, BoundingBox{MinLat: -1, MaxLat: 1, MinLon: -1, MaxLon: 1}.Validate())
	assert.Error(t, BoundingBox{MinLat: 1, MaxLat: -1}.Validate())
	assert.Error(t, BoundingBox{MinLon: 1, MaxLon: -1}.Validate())
	assert.Error(t, BoundingBox{MinLat: -91, MaxLat: 0}.Validate())
	assert.Error(t, BoundingBox{MinLon: 0, MaxLon: 200}.Validate())
}
