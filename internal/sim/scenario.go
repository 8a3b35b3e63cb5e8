package sim

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/mitchellh/mapstructure"

	"aetheric.io/dronegrid/internal/config"
	"aetheric.io/dronegrid/internal/log"
	"aetheric.io/dronegrid/pkg/wire"
)

// Step parameter shapes, decoded from the untyped config params per action.

type floodParams struct {
	Initiator wire.NodeID `mapstructure:"initiator"`
}

type sendParams struct {
	From    wire.NodeID   `mapstructure:"from"`
	Route   []wire.NodeID `mapstructure:"route"`
	Payload string        `mapstructure:"payload"`
}

type dropRateParams struct {
	Node wire.NodeID `mapstructure:"node"`
	Rate float32     `mapstructure:"rate"`
}

type nodeParams struct {
	Node wire.NodeID `mapstructure:"node"`
}

type linkParams struct {
	A wire.NodeID `mapstructure:"a"`
	B wire.NodeID `mapstructure:"b"`
}

// Scenario replays a scripted sequence of timed actions against a running
// network.
type Scenario struct {
	net   *Network
	steps []scheduledStep
	log   log.Logger
}

type scheduledStep struct {
	after  time.Duration
	action string
	params map[string]any
}

// NewScenario parses and schedules the configured steps. Steps run in
// offset order regardless of declaration order.
func NewScenario(net *Network, cfg config.ScenarioConfig, logger log.Logger) (*Scenario, error) {
	if logger == nil {
		logger = log.GetLogger()
	}
	steps := make([]scheduledStep, 0, len(cfg.Steps))
	for i, sc := range cfg.Steps {
		after := time.Duration(0)
		if sc.After != "" {
			d, err := time.ParseDuration(sc.After)
			if err != nil {
				return nil, fmt.Errorf("step %d: bad offset %q: %w", i, sc.After, err)
			}
			after = d
		}
		steps = append(steps, scheduledStep{after: after, action: sc.Action, params: sc.Params})
	}
	sort.SliceStable(steps, func(i, j int) bool { return steps[i].after < steps[j].after })
	return &Scenario{net: net, steps: steps, log: logger}, nil
}

// Run executes the steps at their offsets from now. A failed step aborts
// the scenario; ctx cancellation aborts between steps.
func (s *Scenario) Run(ctx context.Context) error {
	start := time.Now()
	for i, step := range s.steps {
		wait := step.after - time.Since(start)
		if wait > 0 {
			select {
			case <-time.After(wait):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		s.log.Infof("scenario step %d: %s", i, step.action)
		if err := s.apply(step); err != nil {
			return fmt.Errorf("step %d (%s): %w", i, step.action, err)
		}
	}
	return nil
}

func (s *Scenario) apply(step scheduledStep) error {
	switch step.action {
	case "flood":
		var p floodParams
		if err := decodeParams(step.params, &p); err != nil {
			return err
		}
		_, err := s.net.StartFlood(p.Initiator)
		return err
	case "send":
		var p sendParams
		if err := decodeParams(step.params, &p); err != nil {
			return err
		}
		_, err := s.net.Send(p.From, p.Route, []byte(p.Payload))
		return err
	case "set_drop_rate":
		var p dropRateParams
		if err := decodeParams(step.params, &p); err != nil {
			return err
		}
		return s.net.SetDropRate(p.Node, p.Rate)
	case "crash":
		var p nodeParams
		if err := decodeParams(step.params, &p); err != nil {
			return err
		}
		return s.net.CrashNode(p.Node)
	case "add_link":
		var p linkParams
		if err := decodeParams(step.params, &p); err != nil {
			return err
		}
		return s.net.AddLink(p.A, p.B)
	case "remove_link":
		var p linkParams
		if err := decodeParams(step.params, &p); err != nil {
			return err
		}
		return s.net.RemoveLink(p.A, p.B)
	default:
		return fmt.Errorf("unknown action %q", step.action)
	}
}

// decodeParams maps the untyped step params onto an action-specific struct,
// rejecting keys the action does not know.
func decodeParams(in map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:      out,
		ErrorUnused: true,
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(in); err != nil {
		return fmt.Errorf("bad params: %w", err)
	}
	return nil
}
