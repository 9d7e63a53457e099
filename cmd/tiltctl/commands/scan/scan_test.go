package scan

import (
	"bytes"
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTarget(t *testing.T) {
	tests := []struct {
		name       string
		vendor     string
		domain     string
		subdomains []string
		wantDomain string
		wantSubs   []string
	}{
		{name: "explicit domain", vendor: "Acme", domain: "HTTPS://Acme.io/", wantDomain: "acme.io"},
		{name: "guessed domain", vendor: "Acme Corp", wantDomain: "acmecorp.com"},
		{
			name:       "subdomains normalized",
			vendor:     "Acme",
			domain:     "acme.com",
			subdomains: []string{"Mail.Acme.com", "mail.acme.com.", ""},
			wantDomain: "acme.com",
			wantSubs:   []string{"mail.acme.com"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Target(tt.vendor, tt.domain, tt.subdomains)
			require.NoError(t, err)
			assert.Equal(t, tt.vendor, got.VendorName)
			assert.Equal(t, tt.wantDomain, got.PrimaryDomain)
			assert.Equal(t, tt.wantSubs, got.DMARCSubdomains)
		})
	}

	_, err := Target("", "acme.com", nil)
	assert.Error(t, err)
}

func TestCommand_RequiresVendor(t *testing.T) {
	log := logrus.New()
	log.SetOutput(io.Discard)

	cmd := New(log)
	cmd.SetArgs(nil)
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	assert.Error(t, cmd.Execute())
}
