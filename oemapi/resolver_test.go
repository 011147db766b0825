package oemapi

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func countEquipment(raw json.RawMessage) int {
	return len(gjson.GetBytes(raw, "fleet.equipment").Array())
}

func TestResolveFallbackOrder(t *testing.T) {
	v := newVendorStub(t, map[string]func() (int, string){
		"/telematics/iso15143/a": fixed(http.StatusForbidden, `{"message":"not entitled"}`),
		"/telematics/iso15143/b": fixed(http.StatusOK, `{"fleet":{"equipment":[{},{}]}}`),
		"/telematics/iso15143/c": fixed(http.StatusOK, `{"fleet":{"equipment":[{}]}}`),
	})
	r := NewResolver(testClient(v.URL), countEquipment)

	res := r.ResolveAndFetch(context.Background(), []string{"/a", "/b", "/c"}, "tok")
	require.True(t, res.Found)
	assert.Equal(t, "/b", res.Path)
	assert.Equal(t, 2, res.Items)
	require.Len(t, res.Outcomes, 2)
	assert.Equal(t, StatusError, res.Outcomes[0].Status)
	assert.Equal(t, StatusSuccess, res.Outcomes[1].Status)
	assert.Equal(t, 0, v.count("/telematics/iso15143/c"))
	assert.Empty(t, res.Recommendations)
}

func TestResolveSkipsEmptyUnlessLenient(t *testing.T) {
	routes := map[string]func() (int, string){
		"/telematics/iso15143/a": fixed(http.StatusOK, `{"fleet":{"equipment":[]}}`),
		"/telematics/iso15143/b": fixed(http.StatusOK, `{"fleet":{"equipment":[{}]}}`),
	}
	v := newVendorStub(t, routes)
	r := NewResolver(testClient(v.URL), countEquipment)

	res := r.ResolveAndFetch(context.Background(), []string{"/a", "/b"}, "tok")
	require.True(t, res.Found)
	assert.Equal(t, "/b", res.Path)

	r.Lenient = true
	res = r.ResolveAndFetch(context.Background(), []string{"/a", "/b"}, "tok")
	require.True(t, res.Found)
	assert.Equal(t, "/a", res.Path)
	assert.Equal(t, 0, res.Items)
}

func TestResolveNoEndpointAnswered(t *testing.T) {
	v := newVendorStub(t, map[string]func() (int, string){
		"/telematics/iso15143/a": fixed(http.StatusUnauthorized, `{}`),
	})
	r := NewResolver(testClient(v.URL), countEquipment)

	res := r.ResolveAndFetch(context.Background(), []string{"/a", "/b"}, "tok")
	assert.False(t, res.Found)
	require.Len(t, res.Outcomes, 2)
	assert.Equal(t, StatusError, res.Outcomes[0].Status)
	assert.Equal(t, StatusEmpty, res.Outcomes[1].Status)
	assert.Contains(t, res.Recommendations[0], "401")
	assert.Subset(t, res.Recommendations, Remediation)
}

func TestOutcomeJSON(t *testing.T) {
	ok, err := json.Marshal(Outcome{Path: "/a", Status: StatusSuccess, Items: 3})
	require.NoError(t, err)
	assert.JSONEq(t, `{"path":"/a","status":"success","itemsFound":3}`, string(ok))

	failed, err := json.Marshal(Outcome{Path: "/b", Status: StatusError, Err: &APIError{Status: 400, Body: "x"}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"path":"/b","status":"error","error":"OEM API call failed: 400 x"}`, string(failed))
}
