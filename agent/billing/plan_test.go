package billing

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPlanMatches(t *testing.T) {
	growth := DefaultPlans()[1]

	for _, name := range []string{"growth", "Growth", "  GROWTH ", "pro", "PRO"} {
		assert.True(t, growth.Matches(name), "Matches(%q)", name)
	}
	for _, name := range []string{"", "  ", "grow", "growth plan", "starter"} {
		assert.False(t, growth.Matches(name), "Matches(%q)", name)
	}
}

func TestPlanFormatting(t *testing.T) {
	growth := DefaultPlans()[1]
	assert.Equal(t, "Growth: 49.00 USD monthly / 499.00 USD annually", growth.PriceSummary())
	assert.Equal(t, "- Priority email support\n- Integrations API\n- Advanced analytics\n", growth.FeatureList())
	assert.Equal(t, "- Core usage\n", Plan{}.FeatureList())
}

func TestCatalogKeys(t *testing.T) {
	c := NewCatalog(DefaultPlans())
	assert.Equal(t, []string{
		"starter", "basic", "entry",
		"growth", "pro",
		"scale", "enterprise",
	}, c.Keys())
	assert.Len(t, c.Plans(), 3)
}

func TestCatalogFirstPlanKeepsSharedName(t *testing.T) {
	c := NewCatalog([]Plan{
		{Code: "a", DisplayName: "Team", Aliases: []string{"shared", " "}},
		{Code: "b", DisplayName: "Business", Aliases: []string{"SHARED"}},
	})

	p, ok := c.Locate("shared")
	assert.True(t, ok)
	assert.Equal(t, "a", p.Code)
	assert.Equal(t, []string{"a", "team", "shared", "b", "business"}, c.Keys())
}

func TestCatalogLocate(t *testing.T) {
	c := NewCatalog(DefaultPlans())

	p, ok := c.Locate(" Enterprise ")
	assert.True(t, ok)
	assert.Equal(t, "scale", p.Code)

	_, ok = c.Locate("platinum")
	assert.False(t, ok)
}

func TestCatalogDetect(t *testing.T) {
	c := NewCatalog(DefaultPlans())

	tests := []struct {
		question string
		want     string
	}{
		{"How long does a Growth plan refund take?", "growth"},
		{"refund on my BASIC subscription", "starter"},
		{"we are on enterprise", "scale"},
		{"when will I get my money back", ""},
		{"", ""},
	}
	for _, tt := range tests {
		p, ok := c.Detect(tt.question)
		if tt.want == "" {
			assert.False(t, ok, "Detect(%q)", tt.question)
			continue
		}
		assert.True(t, ok, "Detect(%q)", tt.question)
		assert.Equal(t, tt.want, p.Code, "Detect(%q)", tt.question)
	}
}
