// Package command exposes every ledger operation as a typed command that
// transports (HTTP, CLI) can decode by name and dispatch through a Bus.
package command

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/jmehdipour/worktimer/internal/metrics"
	"github.com/jmehdipour/worktimer/internal/model"
	"go.uber.org/zap"
)

// Command is one operation request. CommandName must not depend on the
// receiver's field values.
type Command interface {
	CommandName() string
}

type Handler[C Command] func(ctx context.Context, cmd C) (*Table, error)

type entry struct {
	decode func(raw []byte) (Command, error)
	handle func(ctx context.Context, cmd Command) (*Table, error)
}

type Bus struct {
	handlers map[string]entry
	log      *zap.Logger
}

func NewBus(log *zap.Logger) *Bus {
	return &Bus{handlers: make(map[string]entry), log: log.With(zap.String("component", "command-bus"))}
}

// Register binds the handler for command type C. Registering the same name
// twice panics.
func Register[C Command](b *Bus, h Handler[C]) {
	var zero C
	name := zero.CommandName()
	if _, dup := b.handlers[name]; dup {
		panic("command: duplicate handler for " + name)
	}

	b.handlers[name] = entry{
		decode: func(raw []byte) (Command, error) {
			var c C
			if len(raw) == 0 {
				return c, nil
			}
			dec := json.NewDecoder(bytes.NewReader(raw))
			dec.DisallowUnknownFields()
			if err := dec.Decode(&c); err != nil {
				return nil, model.NewValidationError("params", err.Error())
			}
			return c, nil
		},
		handle: func(ctx context.Context, cmd Command) (*Table, error) {
			c, ok := cmd.(C)
			if !ok {
				return nil, fmt.Errorf("command %s: unexpected type %T", name, cmd)
			}
			return h(ctx, c)
		},
	}
}

// Decode builds the command registered under name from JSON parameters.
func (b *Bus) Decode(name string, raw []byte) (Command, error) {
	e, ok := b.handlers[name]
	if !ok {
		return nil, fmt.Errorf("command %q: %w", name, model.ErrNotFound)
	}
	return e.decode(raw)
}

// Dispatch runs cmd. Failures are logged with the operation and its
// parameters before being returned.
func (b *Bus) Dispatch(ctx context.Context, cmd Command) (*Table, error) {
	name := cmd.CommandName()
	e, ok := b.handlers[name]
	if !ok {
		return nil, fmt.Errorf("command %q: %w", name, model.ErrNotFound)
	}

	out, err := e.handle(ctx, cmd)
	if err != nil {
		metrics.CommandsTotal.WithLabelValues(name, "error").Inc()
		b.log.Error("command failed",
			zap.String("op", name),
			zap.Any("params", redact(cmd)),
			zap.Error(err),
		)
		return nil, err
	}
	metrics.CommandsTotal.WithLabelValues(name, "ok").Inc()
	return out, nil
}

// Exec decodes and dispatches in one step.
func (b *Bus) Exec(ctx context.Context, name string, raw []byte) (*Table, error) {
	cmd, err := b.Decode(name, raw)
	if err != nil {
		b.log.Warn("command rejected", zap.String("op", name), zap.Error(err))
		return nil, err
	}
	return b.Dispatch(ctx, cmd)
}

func (b *Bus) Names() []string {
	names := make([]string, 0, len(b.handlers))
	for n := range b.handlers {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

var secretKeys = []string{"token", "password", "secret"}

// redact turns cmd into a loggable map with credential values masked.
func redact(cmd Command) map[string]any {
	raw, err := json.Marshal(cmd)
	if err != nil {
		return map[string]any{"_type": fmt.Sprintf("%T", cmd)}
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return map[string]any{"_type": fmt.Sprintf("%T", cmd)}
	}
	for k, v := range m {
		if v == nil {
			continue
		}
		lk := strings.ToLower(k)
		for _, s := range secretKeys {
			if strings.Contains(lk, s) {
				m[k] = "***"
			}
		}
	}
	return m
}
