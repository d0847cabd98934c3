package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildQuery(t *testing.T) {
	query := buildQuery("", 30.26, -97.74, 25, "music", "tm, eventbrite,,", true, true, true)

	require.NotNil(t, query.Latitude)
	require.NotNil(t, query.Longitude)
	require.NotNil(t, query.RadiusKm)
	assert.Equal(t, 30.26, *query.Latitude)
	assert.Equal(t, -97.74, *query.Longitude)
	assert.Equal(t, 25.0, *query.RadiusKm)
	assert.Equal(t, "music", query.Category)
	assert.Equal(t, []string{"tm", "eventbrite"}, query.Sources)
	require.NotNil(t, query.IsFree)
	assert.True(t, *query.IsFree)
}

func TestBuildQuery_CityOnly(t *testing.T) {
	query := buildQuery("Austin", 0, 0, 0, "", "", false, false, false)

	assert.Equal(t, "Austin", query.City)
	assert.Nil(t, query.Latitude)
	assert.Nil(t, query.Longitude)
	assert.Nil(t, query.RadiusKm)
	assert.Nil(t, query.IsFree)
	assert.Empty(t, query.Sources)
}
