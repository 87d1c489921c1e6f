package relay

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/sunnyrelay/sunnyrelay/pkg/log"
	"github.com/sunnyrelay/sunnyrelay/pkg/types"
)

// State names relative to the namespace.
const (
	StateTotalConsumption     = "total_consumption"
	StateGridConsumption      = "grid_consumption"
	StateSelfConsumption      = "self_consumption"
	StateSelfConsumptionQuote = "self_consumption_quote"
	StateAutarkyQuote         = "autarky_quote"
	StateLastUpdate           = "last_update"
	StateInfos                = "infos"
	StateWarnings             = "warnings"
	StateErrors               = "errors"
)

var numberStates = []struct {
	name        string
	description string
	value       func(types.HomeManager) types.Metric
}{
	{StateTotalConsumption, "total consumption", func(h types.HomeManager) types.Metric { return h.TotalConsumption }},
	{StateGridConsumption, "grid consumption", func(h types.HomeManager) types.Metric { return h.GridConsumption }},
	{StateSelfConsumption, "self consumption", func(h types.HomeManager) types.Metric { return h.SelfConsumption }},
	{StateSelfConsumptionQuote, "self consumption quote", func(h types.HomeManager) types.Metric { return h.SelfConsumptionQuote }},
	{StateAutarkyQuote, "autarky quote", func(h types.HomeManager) types.Metric { return h.AutarkyQuote }},
}

// publishHomeManager publishes every field of hm and returns how many states
// failed to publish. Indexed list entries beyond the new list's length are
// left as they were.
func (r *Relay) publishHomeManager(ctx context.Context, hm types.HomeManager) int {
	var failures int
	pub := func(name, description string, typ types.StateType, val any) {
		if err := r.publish(ctx, name, description, typ, val); err != nil {
			failures++
			log.Ctx(ctx).ErrorContext(ctx, "failed to publish state", slog.String("state", name), slog.Any("error", err))
		}
	}

	for _, s := range numberStates {
		// null readings are published as null
		pub(s.name, s.description, types.StateTypeNumber, s.value(hm).Value())
	}
	pub(StateLastUpdate, "time of last update", types.StateTypeString, hm.DateTime())

	lists := []struct {
		name        string
		description string
		messages    []types.Message
	}{
		{StateInfos, "info messages", hm.InfoMessages},
		{StateWarnings, "warning messages", hm.WarningMessages},
		{StateErrors, "error messages", hm.ErrorMessages},
	}
	for _, l := range lists {
		// reset the parent before writing the entries
		pub(l.name, l.description, types.StateTypeString, "")
		for i, m := range l.messages {
			pub(l.name+"."+strconv.Itoa(i), fmt.Sprintf("%s %d", l.description, i), types.StateTypeString, string(m))
		}
	}
	return failures
}

// publish ensures the state object exists and then sets its value as an
// acknowledged update.
func (r *Relay) publish(ctx context.Context, name, description string, typ types.StateType, val any) error {
	id := r.stateID(name)
	err := r.db.EnsureObject(ctx, types.StateObject{
		ID:    id,
		Name:  description,
		Type:  typ,
		Role:  types.StateRoleState,
		Read:  true,
		Write: false,
	})
	if err != nil {
		return fmt.Errorf("failed to ensure object: %w", err)
	}
	err = r.db.SetState(ctx, id, types.State{
		Val: val,
		Ack: true,
		TS:  r.now(),
	})
	if err != nil {
		return fmt.Errorf("failed to set state: %w", err)
	}
	return nil
}

func (r *Relay) stateID(name string) string {
	if r.namespace == "" {
		return name
	}
	return r.namespace + "." + name
}
