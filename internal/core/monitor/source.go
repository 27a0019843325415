package monitor

import (
	"context"

	"github.com/smartdash/energy-backend-go/internal/adapters/homeassistant"
)

// Source supplies telemetry snapshots and executes relay commands. The
// Home Assistant adapter is the production implementation; tests use fakes.
type Source interface {
	States(ctx context.Context) (homeassistant.StateMap, error)
	TurnOffSwitches(ctx context.Context, entityIDs []string) error
	TurnOnSwitches(ctx context.Context, entityIDs []string) error
}

// HASource adapts the Home Assistant REST client to the Source interface.
type HASource struct {
	client homeassistant.RESTClient
}

// NewHASource wraps a REST client as a telemetry source.
func NewHASource(client homeassistant.RESTClient) *HASource {
	return &HASource{client: client}
}

// States pulls one bulk state snapshot.
func (s *HASource) States(ctx context.Context) (homeassistant.StateMap, error) {
	states, err := s.client.GetStates(ctx)
	if err != nil {
		return nil, err
	}
	return homeassistant.BuildStateMap(states), nil
}

// TurnOffSwitches opens the given relays.
func (s *HASource) TurnOffSwitches(ctx context.Context, entityIDs []string) error {
	return s.client.TurnOffSwitches(ctx, entityIDs)
}

// TurnOnSwitches closes the given relays.
func (s *HASource) TurnOnSwitches(ctx context.Context, entityIDs []string) error {
	return s.client.TurnOnSwitches(ctx, entityIDs)
}
