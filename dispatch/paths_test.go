package dispatch

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpand(t *testing.T) {
	end := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	got := expand("/fleet/{start}/{end}/{page}", "3", end.Add(-6*time.Hour), end)
	assert.Equal(t, "/fleet/2024-06-01T06:00:00Z/2024-06-01T12:00:00Z/3", got)
}

func TestValidSubPath(t *testing.T) {
	assert.True(t, validSubPath("/fleet/equipment/makeModelSerial/CAT/320/SN1/faults/a/b/1"))
	assert.True(t, validSubPath("/fleet?pageNumber=1"))
	assert.False(t, validSubPath("fleet/1"))
	assert.False(t, validSubPath("//evil.example/fleet"))
	assert.False(t, validSubPath("/redirect?to=https://evil.example"))
	assert.False(t, validSubPath("/fleet/../admin"))
}

func TestAssetRefFromPath(t *testing.T) {
	assert.Equal(t, "SN1", assetRefFromPath("/fleet/equipment/makeModelSerial/CAT/320/SN1/locations/a/b/1"))
	assert.Equal(t, "SN1", assetRefFromPath("/fleet/equipment/makeModelSerial/CAT/320/SN1"))
	assert.Equal(t, "", assetRefFromPath("/fleet/1"))
}

func TestParam(t *testing.T) {
	var req Request
	require.NoError(t, json.Unmarshal([]byte(`{"method":"assets","endpoint":7}`), &req))
	assert.Equal(t, Param("7"), req.Endpoint)
	assert.True(t, req.normalize())

	require.NoError(t, json.Unmarshal([]byte(`{"method":"x","endpoint":" /a ","normalize":false}`), &req))
	assert.Equal(t, Param("/a"), req.Endpoint)
	assert.False(t, req.normalize())

	req = Request{}
	require.NoError(t, json.Unmarshal([]byte(`{"endpoint":null}`), &req))
	assert.Equal(t, Param(""), req.Endpoint)

	assert.Error(t, json.Unmarshal([]byte(`{"endpoint":{}}`), &req))
}
