package billing

import (
	"fmt"
	"strings"
)

// Plan is one subscription plan of the billing catalogue.
type Plan struct {
	Code               string   `yaml:"code" json:"code"`
	DisplayName        string   `yaml:"displayName" json:"displayName"`
	Aliases            []string `yaml:"aliases" json:"aliases"`
	MonthlyPrice       float64  `yaml:"monthlyPrice" json:"monthlyPrice"`
	AnnualPrice        float64  `yaml:"annualPrice" json:"annualPrice"`
	Currency           string   `yaml:"currency" json:"currency"`
	Features           []string `yaml:"features" json:"features"`
	RefundTimeline     string   `yaml:"refundTimeline" json:"refundTimeline"`
	CancellationPolicy string   `yaml:"cancellationPolicy" json:"cancellationPolicy"`
}

// Names returns code, display name and aliases in that order.
func (p Plan) Names() []string {
	names := make([]string, 0, len(p.Aliases)+2)
	names = append(names, p.Code, p.DisplayName)
	return append(names, p.Aliases...)
}

// Matches reports a case-insensitive exact match on any of the plan's names.
func (p Plan) Matches(name string) bool {
	key := normalize(name)
	if key == "" {
		return false
	}
	for _, n := range p.Names() {
		if normalize(n) == key {
			return true
		}
	}
	return false
}

// PriceSummary renders "Growth: 49.00 USD monthly / 499.00 USD annually".
func (p Plan) PriceSummary() string {
	return fmt.Sprintf("%s: %.2f %s monthly / %.2f %s annually",
		p.DisplayName, p.MonthlyPrice, p.Currency, p.AnnualPrice, p.Currency)
}

// FeatureList renders one "- feature" line per feature.
func (p Plan) FeatureList() string {
	if len(p.Features) == 0 {
		return "- Core usage\n"
	}
	var b strings.Builder
	for _, f := range p.Features {
		b.WriteString("- ")
		b.WriteString(f)
		b.WriteString("\n")
	}
	return b.String()
}

// Catalog indexes plans by every lower-cased name. When two plans share a
// name the first registered plan keeps it.
type Catalog struct {
	plans []Plan
	keys  []string
	index map[string]int
}

// NewCatalog builds the index. Blank names are not indexed.
func NewCatalog(plans []Plan) *Catalog {
	c := &Catalog{
		plans: append([]Plan(nil), plans...),
		index: make(map[string]int),
	}
	for i, p := range c.plans {
		for _, n := range p.Names() {
			key := normalize(n)
			if key == "" {
				continue
			}
			if _, taken := c.index[key]; taken {
				continue
			}
			c.index[key] = i
			c.keys = append(c.keys, key)
		}
	}
	return c
}

// Plans returns the distinct plans in registration order.
func (c *Catalog) Plans() []Plan {
	return append([]Plan(nil), c.plans...)
}

// Keys returns every indexed name in registration order.
func (c *Catalog) Keys() []string {
	return append([]string(nil), c.keys...)
}

// Locate finds a plan by exact, case-insensitive name.
func (c *Catalog) Locate(name string) (Plan, bool) {
	i, ok := c.index[normalize(name)]
	if !ok {
		return Plan{}, false
	}
	return c.plans[i], true
}

// Detect finds the first plan whose code, display name or alias occurs
// anywhere in the free-text question.
func (c *Catalog) Detect(question string) (Plan, bool) {
	lower := strings.ToLower(question)
	if strings.TrimSpace(lower) == "" {
		return Plan{}, false
	}
	for _, p := range c.plans {
		for _, n := range p.Names() {
			if n = normalize(n); n != "" && strings.Contains(lower, n) {
				return p, true
			}
		}
	}
	return Plan{}, false
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// DefaultPlans is the catalogue shipped with the default configuration.
func DefaultPlans() []Plan {
	return []Plan{
		{
			Code:               "starter",
			DisplayName:        "Starter",
			Aliases:            []string{"basic", "entry"},
			MonthlyPrice:       19,
			AnnualPrice:        199,
			Currency:           "USD",
			Features:           []string{"Email support", "Up to 3 team seats", "Community templates"},
			RefundTimeline:     "Starter refunds are limited to the first 30 days of a billing cycle.",
			CancellationPolicy: "Cancel anytime before renewal. Access remains until the end of the paid period.",
		},
		{
			Code:               "growth",
			DisplayName:        "Growth",
			Aliases:            []string{"pro"},
			MonthlyPrice:       49,
			AnnualPrice:        499,
			Currency:           "USD",
			Features:           []string{"Priority email support", "Integrations API", "Advanced analytics"},
			RefundTimeline:     "Growth refunds are reviewed within 30 days of the charge and prorated afterwards.",
			CancellationPolicy: "Upgrades/downgrades prorate on your next invoice.",
		},
		{
			Code:               "scale",
			DisplayName:        "Scale",
			Aliases:            []string{"enterprise"},
			MonthlyPrice:       129,
			AnnualPrice:        1290,
			Currency:           "USD",
			Features:           []string{"Dedicated CSM", "SLA-backed uptime", "Custom integrations"},
			RefundTimeline:     "Scale plans follow the master services agreement: refunds allowed within 45 days when SLAs are unmet.",
			CancellationPolicy: "Requires 60-day written notice for cancellation as per MSA.",
		},
	}
}
