package plans

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultCatalog(t *testing.T) {
	c := Default()

	list := c.Plans()
	require.Len(t, list, 3)
	require.Equal(t, "community", list[0].Code)
	require.Equal(t, "enterprise", list[2].Code)

	tiers := c.Tiers()
	require.Len(t, tiers, 3)
	require.Equal(t, "basic", tiers[0].Code)

	for _, p := range list {
		_, err := c.Tier(p.Tier)
		require.NoError(t, err, "plan %s", p.Code)
	}
}

func TestPlanLookup(t *testing.T) {
	c := Default()

	p, err := c.Plan("professional")
	require.NoError(t, err)
	require.Equal(t, int64(4900), p.MonthlyPriceCents)

	p.EligibleRoles[0] = "tampered"
	again, err := c.Plan("professional")
	require.NoError(t, err)
	require.Equal(t, "contractor", again.EligibleRoles[0])

	_, err = c.Plan("platinum")
	require.ErrorIs(t, err, ErrPlanNotFound)
	_, err = c.Tier("unlimited")
	require.ErrorIs(t, err, ErrTierNotFound)
}

func TestPlansFor(t *testing.T) {
	c := Default()

	contractor := c.PlansFor("contractor")
	require.Len(t, contractor, 2)
	require.Equal(t, "community", contractor[0].Code)
	require.Equal(t, "professional", contractor[1].Code)

	require.Empty(t, c.PlansFor("stranger"))
}

func TestNewCatalogValidation(t *testing.T) {
	tiers := []APITier{{Code: "basic", RequestsPerMinute: 60}}

	_, err := NewCatalog([]Plan{{Code: "x", Name: "X", Tier: "missing", EligibleRoles: []string{"viewer"}}}, tiers)
	require.ErrorIs(t, err, ErrTierNotFound)

	_, err = NewCatalog([]Plan{{Code: "x", Name: "X", Tier: "basic"}}, tiers)
	require.Error(t, err, "eligible roles required")

	_, err = NewCatalog(nil, []APITier{{Code: "zero", RequestsPerMinute: 0}})
	require.Error(t, err)

	_, err = NewCatalog(nil, append(tiers, tiers[0]))
	require.Error(t, err)
}
