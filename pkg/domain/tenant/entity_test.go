package tenant

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchemaName(t *testing.T) {
	tests := []struct {
		slug string
		want string
	}{
		{"acme", "tenant_acme"},
		{"acme-corp", "tenant_acme_corp"},
		{"Acme Corp!", "tenant_acmecorp"},
		{"a.b-c_9", "tenant_ab_c9"},
		{"ACME", "tenant_acme"},
	}

	for _, tt := range tests {
		t.Run(tt.slug, func(t *testing.T) {
			assert.Equal(t, tt.want, SchemaName(tt.slug))
		})
	}
}

func TestNew(t *testing.T) {
	tn, err := New("  Acme-Corp ", "Acme Corporation")
	require.NoError(t, err)
	assert.Equal(t, "acme-corp", tn.Slug)
	assert.Equal(t, "tenant_acme_corp", tn.SchemaName())
	assert.True(t, tn.IsActive)

	_, err = New("   ", "blank")
	require.Error(t, err)
}

func TestDeactivate(t *testing.T) {
	tn, err := New("acme", "Acme")
	require.NoError(t, err)
	tn.Deactivate()
	assert.False(t, tn.IsActive)
}
