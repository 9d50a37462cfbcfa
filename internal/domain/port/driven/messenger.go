package driven

import (
	"context"

	"github.com/ericfisherdev/passpanel/internal/domain/model"
)

// Messenger is the request/response channel from page agents to the
// coordinator. An error means the channel itself failed; coordinator-level
// failures come back as a Reply with Success false.
type Messenger interface {
	Send(ctx context.Context, msg model.Message) (model.Reply, error)
}
