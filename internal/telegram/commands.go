package telegram

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/evelansk/grouppassbot/internal/models"
)

// CallbackAction enumerates the inline-button actions. Callback data is
// encoded as action:arg... and decoded into a typed Callback before dispatch,
// so handlers never substring-match raw button data.
type CallbackAction string

const (
	ActionShowPlan    CallbackAction = "plan"
	ActionPickOption  CallbackAction = "opt"
	ActionEnterPromo  CallbackAction = "promo"
	ActionSkipPromo   CallbackAction = "nopromo"
	ActionPayCard     CallbackAction = "card"
	ActionPayManual   CallbackAction = "manual"
	ActionRenew       CallbackAction = "renew"
	ActionMySubs      CallbackAction = "mysubs"
	ActionBackToPlans CallbackAction = "plans"
)

// Callback is the decoded form of inline-button data.
type Callback struct {
	Action CallbackAction
	PlanID int64
	Type   models.PaymentType
}

func (c Callback) Encode() string {
	switch c.Action {
	case ActionPickOption:
		return fmt.Sprintf("%s:%d:%s", c.Action, c.PlanID, c.Type)
	case ActionShowPlan, ActionEnterPromo, ActionSkipPromo, ActionPayCard, ActionPayManual, ActionRenew:
		return fmt.Sprintf("%s:%d", c.Action, c.PlanID)
	default:
		return string(c.Action)
	}
}

// ParseCallback decodes button data strictly; unknown or malformed data is an
// error and the press is ignored with an alert.
func ParseCallback(data string) (Callback, error) {
	parts := strings.Split(data, ":")
	action := CallbackAction(parts[0])

	switch action {
	case ActionMySubs, ActionBackToPlans:
		if len(parts) != 1 {
			return Callback{}, fmt.Errorf("unexpected args for %s", action)
		}
		return Callback{Action: action}, nil

	case ActionShowPlan, ActionEnterPromo, ActionSkipPromo, ActionPayCard, ActionPayManual, ActionRenew:
		if len(parts) != 2 {
			return Callback{}, fmt.Errorf("expected one arg for %s", action)
		}
		planID, err := strconv.ParseInt(parts[1], 10, 64)
		if err != nil || planID <= 0 {
			return Callback{}, fmt.Errorf("bad plan id %q", parts[1])
		}
		return Callback{Action: action, PlanID: planID}, nil

	case ActionPickOption:
		if len(parts) != 3 {
			return Callback{}, fmt.Errorf("expected two args for %s", action)
		}
		planID, err := strconv.ParseInt(parts[1], 10, 64)
		if err != nil || planID <= 0 {
			return Callback{}, fmt.Errorf("bad plan id %q", parts[1])
		}
		pt := models.PaymentType(parts[2])
		if !pt.Valid() {
			return Callback{}, fmt.Errorf("bad payment type %q", parts[2])
		}
		return Callback{Action: action, PlanID: planID, Type: pt}, nil

	default:
		return Callback{}, fmt.Errorf("unknown callback action %q", parts[0])
	}
}
