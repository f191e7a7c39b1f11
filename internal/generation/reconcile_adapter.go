package generation

import (
	"context"

	"github.com/titooo7/teamarr-sub000/internal/enforcement"
)

// gatewayReconcilerAdapter narrows a ChannelGateway down to the three
// operations enforcement.Reconciler needs, translating between this
// package's richer ChannelState/ChannelPatch and the reconciler's own
// minimal types — kept separate so internal/enforcement never has to
// import this package (it already imports enforcement, for
// CrossGroup/Keyword/Ordering enforcement).
type gatewayReconcilerAdapter struct {
	gateway ChannelGateway
}

func (a gatewayReconcilerAdapter) ListChannels(ctx context.Context) ([]enforcement.GatewayChannelState, error) {
	channels, err := a.gateway.ListChannels(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]enforcement.GatewayChannelState, len(channels))
	for i, c := range channels {
		out[i] = enforcement.GatewayChannelState{ID: c.ID, Name: c.Name, Number: c.Number, TVGID: c.TVGID}
	}
	return out, nil
}

func (a gatewayReconcilerAdapter) UpdateChannel(ctx context.Context, channelID, name string, number int) error {
	return a.gateway.UpdateChannel(ctx, channelID, ChannelPatch{Name: name, Number: number})
}

func (a gatewayReconcilerAdapter) DeleteChannel(ctx context.Context, channelID string) error {
	return a.gateway.DeleteChannel(ctx, channelID)
}
