package catalog

import (
	"strings"
	"testing"
	"time"
)

func TestDefaultCatalogIsValid(t *testing.T) {
	c, err := Default()
	if err != nil {
		t.Fatalf("default catalog: %v", err)
	}
	if len(c.Ranks) != 10 {
		t.Errorf("expected 10 ranks, got %d", len(c.Ranks))
	}
	cr, ok := c.Crime("pickpocket")
	if !ok {
		t.Fatalf("pickpocket missing")
	}
	if cr.Cooldown != 30*time.Second {
		t.Errorf("expected pickpocket cooldown 30s, got %v", cr.Cooldown)
	}
	if _, ok := c.Model("supercar"); !ok {
		t.Errorf("supercar model missing")
	}
	h, ok := c.Heist("bank_vault")
	if !ok {
		t.Fatalf("bank_vault missing")
	}
	if _, ok := h.PrepOption("inside_man"); !ok {
		t.Errorf("inside_man prep missing")
	}
	if c.MaxRank() != 9 {
		t.Errorf("expected max rank 9, got %d", c.MaxRank())
	}
}

func TestValidateRejectsBrokenTables(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Catalog)
		want   string
	}{
		{"duplicate crime", func(c *Catalog) { c.Crimes = append(c.Crimes, c.Crimes[0]) }, "duplicate id pickpocket"},
		{"rank order", func(c *Catalog) { c.Ranks[2].MinXP = 1 }, "must require more xp"},
		{"unknown stat", func(c *Catalog) { c.Crimes[0].Stat = "luck" }, "unknown stat"},
		{"self prerequisite", func(c *Catalog) { c.Skills[0].Requires = []string{c.Skills[0].ID} }, "requires itself"},
		{"unknown model", func(c *Catalog) { c.VehicleTiers[0].Models = []string{"spaceship"} }, "unknown model spaceship"},
		{"bad probability", func(c *Catalog) { c.Heists[0].BaseChance = 1.5 }, "not in [0,1]"},
		{"unknown controller", func(c *Catalog) { c.Territories[0].Controller = "nobody" }, "unknown controller"},
		{"starting city", func(c *Catalog) { c.Limits.StartingCity = "atlantis" }, "unknown starting city"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := Default()
			if err != nil {
				t.Fatalf("default catalog: %v", err)
			}
			tt.mutate(c)
			err = c.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}

func TestParseRejectsMalformedYAML(t *testing.T) {
	if _, err := Parse([]byte("ranks: [")); err == nil {
		t.Fatalf("expected yaml error")
	}
}
