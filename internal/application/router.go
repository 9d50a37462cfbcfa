package application

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ericfisherdev/passpanel/internal/domain/model"
	"github.com/ericfisherdev/passpanel/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.Messenger = (*Router)(nil)

// Router dispatches channel messages to the Coordinator and shapes the
// replies. Every coordinator failure becomes a Reply with Success false.
type Router struct {
	coord  *Coordinator
	logger *slog.Logger
}

// NewRouter creates a Router in front of coord.
func NewRouter(coord *Coordinator, logger *slog.Logger) *Router {
	return &Router{coord: coord, logger: logger}
}

// Send implements driven.Messenger for in-process agents. The in-process
// channel never fails, so the error is always nil.
func (r *Router) Send(ctx context.Context, msg model.Message) (model.Reply, error) {
	return r.Handle(ctx, msg), nil
}

// Handle routes one message and returns its reply.
func (r *Router) Handle(ctx context.Context, msg model.Message) model.Reply {
	reply, err := r.dispatch(ctx, msg)
	if err != nil {
		r.logger.Warn("message failed", "action", msg.Action, "error", err)
		return model.Failure(err)
	}
	return reply
}

func (r *Router) dispatch(ctx context.Context, msg model.Message) (model.Reply, error) {
	switch msg.Action {
	case model.ActionSavePassword:
		if msg.Data == nil {
			return model.Reply{}, ErrInvalidCredential
		}
		if _, err := r.coord.Save(ctx, msg.Data.Input()); err != nil {
			return model.Reply{}, err
		}
		return model.Reply{Success: true}, nil

	case model.ActionGetPasswords:
		creds, err := r.coord.List(ctx, msg.URL)
		if err != nil {
			return model.Reply{}, err
		}
		return model.Reply{Success: true, Passwords: creds}, nil

	case model.ActionCheckPassword:
		ok, err := r.coord.Exists(ctx, msg.URL)
		if err != nil {
			return model.Reply{}, err
		}
		return model.Reply{Success: true, HasPassword: ok}, nil

	case model.ActionSavePendingPassword:
		if msg.Data == nil {
			return model.Reply{}, ErrInvalidCredential
		}
		if err := r.coord.StagePending(ctx, *msg.Data); err != nil {
			return model.Reply{}, err
		}
		return model.Reply{Success: true}, nil

	case model.ActionGetPendingPassword:
		p, err := r.coord.GetPending(ctx)
		if err != nil {
			return model.Reply{}, err
		}
		return model.Reply{Success: true, Data: p}, nil

	case model.ActionClearPendingPassword:
		if err := r.coord.ClearPending(ctx); err != nil {
			return model.Reply{}, err
		}
		return model.Reply{Success: true}, nil

	case model.ActionPing:
		return model.Reply{Success: true}, nil

	default:
		return model.Reply{}, fmt.Errorf("Unknown action: %s", msg.Action) //nolint:staticcheck // Message text is part of the channel protocol.
	}
}
