// Package executor models the out-of-scope "external executor" collaborator
// spec.md §6 describes as a black box: a registry keyed by (task, strategy)
// that invokes a handler and eventually POSTs a result object to the
// entry's callback URL. Grounded on
// original_source/service_clockML.py::MODEL_REGISTRY / service_s_execute,
// restoring the dynamic task-dispatch design spec.md §9 references but the
// distilled prose dropped.
package executor

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/federicogiustii/carbonshift/internal/apierrors"
	"github.com/federicogiustii/carbonshift/internal/domain"
)

// TaskStrategyKey identifies one (task, strategy) handler slot in the
// registry, e.g. ("Text Generation", "low").
type TaskStrategyKey struct {
	Task     string
	Strategy string
}

// Handler executes one request's payload under its assigned strategy and
// returns a result to report back to the caller.
type Handler func(ctx context.Context, payload json.RawMessage) (json.RawMessage, error)

// Result is the object the executor eventually delivers to the request's
// callback URL, matching spec.md §6's {task, strategy, slot_executed, result}.
type Result struct {
	Task         string          `json:"task"`
	Strategy     string          `json:"strategy"`
	SlotExecuted int             `json:"slot_executed"`
	Result       json.RawMessage `json:"result"`
}

// taskPayload is the {"task": ..., ...} envelope service_s_execute reads
// its "task" field from; payloads without it fall back to the Echo task.
type taskPayload struct {
	Task string `json:"task"`
}

// Delivery POSTs a Result to the request's callback URL. The client-side
// callback receiver itself is out of scope (spec.md §1); Delivery is only
// the core's half of that handoff.
type Delivery interface {
	Deliver(ctx context.Context, callbackURL string, result Result) error
}

// Registry is a (task, strategy) → Handler dispatch table. Unrecognized
// pairs run the fallback handler (EchoHandler, as set by NewRegistry); a
// handler or delivery failure is a per-entry error (ErrExecutorUnavailable),
// never a core failure.
type Registry struct {
	handlers map[TaskStrategyKey]Handler
	fallback Handler
	delivery Delivery
}

// NewRegistry creates a registry with the Echo fallback handler registered
// (matching service_s_execute's "[Echo] {payload}" default), so the system
// is runnable without wiring a real ML backend. delivery may be nil, in
// which case results are computed but not delivered anywhere (useful in
// tests that only assert on dispatch, not on callback traffic).
func NewRegistry(delivery Delivery) *Registry {
	return &Registry{
		handlers: make(map[TaskStrategyKey]Handler),
		fallback: EchoHandler,
		delivery: delivery,
	}
}

// Register installs handler for (task, strategy).
func (r *Registry) Register(task, strategy string, handler Handler) {
	r.handlers[TaskStrategyKey{Task: task, Strategy: strategy}] = handler
}

// EchoHandler is the default handler for unrecognized tasks: it reflects
// the payload back, prefixed, matching service_s_execute's Echo branch.
func EchoHandler(ctx context.Context, payload json.RawMessage) (json.RawMessage, error) {
	echoed, err := json.Marshal(fmt.Sprintf("[Echo] %s", string(payload)))
	if err != nil {
		return nil, err
	}
	return echoed, nil
}

// Execute implements dispatcher.Executor: it resolves (task, strategy) to a
// handler, invokes it, and — if a callback URL is present — hands Result to
// the configured Delivery sink. The dispatcher logs and counts any error
// returned here without halting dispatch.
func (r *Registry) Execute(ctx context.Context, slot int, entry domain.SlotQueueEntry) error {
	task := taskOf(entry.Request.Payload)
	key := TaskStrategyKey{Task: task, Strategy: entry.Strategy}

	handler, ok := r.handlers[key]
	if !ok {
		handler = r.fallback
	}
	if handler == nil {
		return fmt.Errorf("%w: no handler registered for task %q strategy %q", apierrors.ErrExecutorUnavailable, task, entry.Strategy)
	}

	result, err := handler(ctx, entry.Request.Payload)
	if err != nil {
		return fmt.Errorf("%w: %v", apierrors.ErrExecutorUnavailable, err)
	}

	if r.delivery == nil || entry.Request.Callback == "" {
		return nil
	}
	res := Result{Task: task, Strategy: entry.Strategy, SlotExecuted: slot, Result: result}
	if err := r.delivery.Deliver(ctx, entry.Request.Callback, res); err != nil {
		return fmt.Errorf("%w: delivering result: %v", apierrors.ErrExecutorUnavailable, err)
	}
	return nil
}

func taskOf(payload json.RawMessage) string {
	var tp taskPayload
	if err := json.Unmarshal(payload, &tp); err != nil || tp.Task == "" {
		return "Echo"
	}
	return tp.Task
}
