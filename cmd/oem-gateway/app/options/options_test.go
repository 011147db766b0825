package options

import (
	"testing"

	"github.com/hashicorp/go-multierror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultsAreValid(t *testing.T) {
	assert.NoError(t, NewGatewayOptions().Validate())
}

func TestValidateAggregates(t *testing.T) {
	o := NewGatewayOptions()
	o.HTTP.Addr = "no-port"
	o.OEM.BaseURL = "not a url"
	o.OEM.MaxAttempts = 0
	o.Vault.Addr = "http://vault:8200"
	o.Signature.SharedKey = "only-shared"
	o.Log.Level = "loud"
	o.OEM.HoursWindow = 9000

	err := o.Validate()
	require.Error(t, err)
	var merr *multierror.Error
	require.ErrorAs(t, err, &merr)
	assert.Len(t, merr.Errors, 7)
}

func TestSettings(t *testing.T) {
	o := NewGatewayOptions()
	o.OEM.ClientID = "cid"
	o.Vault.Addr = "http://vault:8200"
	o.Vault.Path = "oem/caterpillar"
	o.OEM.AssetPaths = []string{"/v2/fleet/{page}"}

	s := o.Settings()
	assert.Equal(t, "cid", s.Credentials.ClientID)
	assert.Equal(t, "secret", s.Vault.MountPath)
	assert.True(t, s.Vault.Enabled())
	assert.Equal(t, []string{"/v2/fleet/{page}"}, s.AssetCandidates)
	assert.Equal(t, o.OEM.MaxAttempts, s.MaxAttempts)
}
