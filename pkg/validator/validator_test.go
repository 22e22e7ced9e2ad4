package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sampleInput struct {
	TenantSlug  string `validate:"required,slug"`
	CronExpr    string `validate:"omitempty,cron"`
	EntityType  string `validate:"omitempty,entity_type"`
	TriggerType string `validate:"omitempty,trigger_type"`
	Name        string `validate:"required,min=1,max=100"`
}

func TestValidateOK(t *testing.T) {
	v := New()
	err := v.Validate(sampleInput{
		TenantSlug:  "acme-corp",
		CronExpr:    "0 9 * * 1",
		EntityType:  "issue",
		TriggerType: "created",
		Name:        "Weekly report",
	})
	assert.NoError(t, err)
}

func TestValidateFailures(t *testing.T) {
	v := New()

	err := v.Validate(sampleInput{TenantSlug: "Not A Slug", Name: "x"})
	require.Error(t, err)
	verrs, ok := err.(ValidationErrors)
	require.True(t, ok)
	assert.Equal(t, "tenant_slug", verrs[0].Field)

	err = v.Validate(sampleInput{TenantSlug: "acme", CronExpr: "nope", Name: "x"})
	require.Error(t, err)

	err = v.Validate(sampleInput{TenantSlug: "acme", EntityType: "server", Name: "x"})
	require.Error(t, err)

	err = v.Validate(sampleInput{TenantSlug: "acme", TriggerType: "deleted", Name: "x"})
	require.Error(t, err)

	err = v.Validate(sampleInput{TenantSlug: "acme"})
	require.Error(t, err, "missing name")
}
