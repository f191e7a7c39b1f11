package scheduler

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"

	"github.com/titooo7/teamarr-sub000/internal/generation"
	"github.com/titooo7/teamarr-sub000/internal/lifecycle"
	"github.com/titooo7/teamarr-sub000/internal/model"
)

// ActiveChannelLister is the store surface NewChannelResetTask needs: the
// full set of channels this system currently considers live.
type ActiveChannelLister interface {
	AllActiveChannels(ctx context.Context) ([]model.ManagedChannel, error)
}

// NewChannelResetTask wraps lifecycle.Service.ResetChannels as a Task,
// pairing it with the same ChannelGateway the generation driver uses so
// resets reach the aggregator, not just this system's own bookkeeping. With
// no gateway configured the sweep still marks rows deleted locally, since
// there is nothing external to reconcile against.
func NewChannelResetTask(name string, schedule cron.Schedule, svc *lifecycle.Service, store ActiveChannelLister, gateway generation.ChannelGateway) Task {
	return Task{
		Name:     name,
		Schedule: schedule,
		Run: func(ctx context.Context) error {
			active, err := store.AllActiveChannels(ctx)
			if err != nil {
				return fmt.Errorf("list active channels: %w", err)
			}
			var deleteFn func(ctx context.Context, channel model.ManagedChannel) error
			if gateway != nil {
				deleteFn = func(ctx context.Context, channel model.ManagedChannel) error {
					return gateway.DeleteChannel(ctx, channel.ID)
				}
			}
			_, err = svc.ResetChannels(ctx, active, deleteFn)
			return err
		},
	}
}
