package telegram

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/evelansk/grouppassbot/internal/models"
)

func TestCallbackRoundTrip(t *testing.T) {
	cases := []Callback{
		{Action: ActionBackToPlans},
		{Action: ActionMySubs},
		{Action: ActionShowPlan, PlanID: 7},
		{Action: ActionEnterPromo, PlanID: 7},
		{Action: ActionSkipPromo, PlanID: 7},
		{Action: ActionPayCard, PlanID: 7},
		{Action: ActionPayManual, PlanID: 7},
		{Action: ActionRenew, PlanID: 7},
		{Action: ActionPickOption, PlanID: 7, Type: models.PaymentSecondPart},
	}
	for _, c := range cases {
		t.Run(c.Encode(), func(t *testing.T) {
			parsed, err := ParseCallback(c.Encode())
			require.NoError(t, err)
			require.Equal(t, c, parsed)
		})
	}
}

func TestParseCallbackRejectsMalformed(t *testing.T) {
	cases := []string{
		"",
		"unknown",
		"plan",
		"plan:abc",
		"plan:0",
		"plan:7:extra",
		"opt:7",
		"opt:7:lifetime",
		"opt:abc:full",
		"mysubs:1",
	}
	for _, data := range cases {
		t.Run(data, func(t *testing.T) {
			_, err := ParseCallback(data)
			require.Error(t, err)
		})
	}
}
