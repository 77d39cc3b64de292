package form

import (
	"log/slog"

	"github.com/vango-dev/livehooks/internal/errors"
	"github.com/vango-dev/livehooks/pkg/dom"
	"github.com/vango-dev/livehooks/pkg/hooks"
)

// Condition editor events.
const (
	EventAddCondition      = "add_simple_condition"
	EventAddConditionGroup = "add_condition_group"
	EventDeleteCondition   = "delete_condition"
	EventUpdateOperator    = "update_condition_operator"
	EventUpdateSource      = "update_condition_source"
	EventUpdateValue       = "update_condition_value"
	EventUpdateGroupType   = "update_condition_group_type"
)

// Attributes identifying conditions and groups.
const (
	AttrConditionID = "data-condition-id"
	AttrGroupID     = "data-group-id"

	conditionIDKey = "condition_id"
	groupIDKey     = "group_id"
)

// action maps a control matched by selector to the event it pushes.
// idAttr names the attribute identifying the condition or group, idKey
// its payload key and valueKey the payload key of the control value.
type action struct {
	selector string
	event    string
	idAttr   string
	idKey    string
	valueKey string
}

var clickActions = []action{
	{selector: ".add-condition-btn", event: EventAddCondition},
	{selector: ".add-condition-group-btn", event: EventAddConditionGroup},
	{selector: ".delete-condition-btn", event: EventDeleteCondition, idAttr: AttrConditionID, idKey: conditionIDKey},
}

var changeActions = []action{
	{selector: ".condition-operator-select", event: EventUpdateOperator, idAttr: AttrConditionID, idKey: conditionIDKey, valueKey: "operator"},
	{selector: ".condition-source-select", event: EventUpdateSource, idAttr: AttrConditionID, idKey: conditionIDKey, valueKey: "source_id"},
	{selector: ".condition-value-input", event: EventUpdateValue, idAttr: AttrConditionID, idKey: conditionIDKey, valueKey: "value"},
	{selector: ".condition-group-type-select", event: EventUpdateGroupType, idAttr: AttrGroupID, idKey: groupIDKey, valueKey: "group_type"},
}

// ConditionEditor handles the condition logic editor with delegated
// click and change listeners on the hook element, so controls added by
// patches need no rebinding.
type ConditionEditor struct{}

// Mounted binds the delegated listeners.
func (h *ConditionEditor) Mounted(ctx *hooks.Context) {
	ctx.Listen(ctx.El, dom.EventClick, func(ev *dom.Event) {
		h.dispatch(ctx, ev, clickActions)
	})
	ctx.Listen(ctx.El, dom.EventChange, func(ev *dom.Event) {
		h.dispatch(ctx, ev, changeActions)
	})
}

func (h *ConditionEditor) dispatch(ctx *hooks.Context, ev *dom.Event, actions []action) {
	for _, a := range actions {
		control := closestIn(ctx.El, ev.Target, a.selector)
		if control == nil {
			continue
		}
		payload := map[string]any{}
		if a.idAttr != "" {
			id := control.GetAttribute(a.idAttr)
			if id == "" {
				ctx.Report(slog.LevelWarn, errors.New(errors.CodeMissingIdentifier).WithDetailf("%s on %s", a.idAttr, a.selector))
				return
			}
			payload[a.idKey] = id
		}
		if a.valueKey != "" {
			payload[a.valueKey] = control.Value()
		}
		ctx.PushEvent(a.event, payload)
		return
	}
}
