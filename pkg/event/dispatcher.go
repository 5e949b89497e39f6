//go:generate ${TOOLS_BIN}/mockgen -source ${GOFILE} -destination mock/${GOFILE} -package mock -mock_names "Dispatcher=Dispatcher"
package event

import (
	"context"
	"errors"
	"fmt"
)

type Dispatcher interface {
	Dispatch(ctx context.Context, events ...Event) error
}

type Subscription struct {
	EventType string
	Handler   Handler
}

type dispatcher struct {
	handlers map[string][]Handler
}

func NewDispatcher(subscriptions ...Subscription) Dispatcher {
	handlers := make(map[string][]Handler, len(subscriptions))
	for _, s := range subscriptions {
		handlers[s.EventType] = append(handlers[s.EventType], s.Handler)
	}

	return &dispatcher{handlers: handlers}
}

// Dispatch passes every event to all of its handlers, handler errors do not stop the others.
func (d *dispatcher) Dispatch(ctx context.Context, events ...Event) error {
	var errs []error
	for _, evt := range events {
		for _, handler := range d.handlers[evt.Type()] {
			err := handler(ctx, evt)
			if err != nil {
				errs = append(errs, fmt.Errorf("handle event %s with id %v: %w", evt.Type(), evt.ID(), err))
			}
		}
	}

	return errors.Join(errs...)
}
