package generation

import (
	"context"
	"fmt"

	"github.com/titooo7/teamarr-sub000/internal/lifecycle"
)

// cleanupOrphans deletes aggregator channels this system's tvg-id scheme
// recognizes as its own (lifecycle.HasEventPrefix) but which no longer have
// a corresponding active ManagedChannel row — a channel whose owning row
// was hard-deleted, or created by a run that crashed before recording it.
// With no Gateway configured there is nothing to reconcile against, so the
// pass is a no-op rather than an error.
func (d *Driver) cleanupOrphans(ctx context.Context) (int, error) {
	if d.Gateway == nil {
		return 0, nil
	}

	aggregatorChannels, err := d.Gateway.ListChannels(ctx)
	if err != nil {
		return 0, fmt.Errorf("list aggregator channels: %w", err)
	}

	active, err := d.Store.AllActiveChannels(ctx)
	if err != nil {
		return 0, fmt.Errorf("list active channels: %w", err)
	}
	knownTVGIDs := make(map[string]bool, len(active))
	for _, c := range active {
		knownTVGIDs[c.TVGID] = true
	}

	deleted := 0
	var errs []string
	for _, ch := range aggregatorChannels {
		if !lifecycle.HasEventPrefix(ch.TVGID) {
			continue
		}
		if knownTVGIDs[ch.TVGID] {
			continue
		}
		if err := d.Gateway.DeleteChannel(ctx, ch.ID); err != nil {
			errs = append(errs, fmt.Sprintf("delete orphan channel %s: %v", ch.ID, err))
			continue
		}
		deleted++
	}
	if len(errs) > 0 {
		return deleted, fmt.Errorf("%d orphan(s) failed to delete: %s", len(errs), errs[0])
	}
	return deleted, nil
}

// cleanupDisabledGroups retires every managed channel still owned by a
// group whose Enabled flag is now false — a group disabled after channels
// for it were already created keeps those channels forever otherwise,
// since a disabled group is simply skipped by the main processing loop
// rather than visited and torn down there.
func (d *Driver) cleanupDisabledGroups(ctx context.Context) (int, error) {
	groups, err := d.Store.GetEventGroups(ctx)
	if err != nil {
		return 0, fmt.Errorf("load groups: %w", err)
	}

	deleted := 0
	var errs []string
	for _, g := range groups {
		if g.Enabled {
			continue
		}
		channels, err := d.Store.GetManagedChannelsForGroup(ctx, g.ID)
		if err != nil {
			errs = append(errs, fmt.Sprintf("group %s: %v", g.Name, err))
			continue
		}
		for _, ch := range channels {
			if d.Gateway != nil {
				if err := d.Gateway.DeleteChannel(ctx, ch.ID); err != nil {
					errs = append(errs, fmt.Sprintf("delete aggregator channel for %s: %v", ch.Name, err))
					continue
				}
			}
			if err := d.Store.MarkChannelDeleted(ctx, ch.ID, "group_disabled"); err != nil {
				errs = append(errs, fmt.Sprintf("mark channel %s deleted: %v", ch.Name, err))
				continue
			}
			_ = d.Store.LogChannelHistory(ctx, ch.ID, "deleted", "disabled_group_cleanup",
				fmt.Sprintf("group %q disabled", g.Name))
			deleted++
		}
	}
	if len(errs) > 0 {
		return deleted, fmt.Errorf("%d deletion(s) failed: %s", len(errs), errs[0])
	}
	return deleted, nil
}
