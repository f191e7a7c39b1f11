package enforcement

import (
	"context"
	"fmt"

	"github.com/titooo7/teamarr-sub000/internal/model"
)

// OrderingStore is the persistence seam keyword ordering enforcement needs.
// Like KeywordStore, no original implementation module exists for this
// pass; it is grounded on the textual invariant alone and on
// SetChannelNumber, the same single-column update cross-group and lifecycle
// channel management never needed until this pass required it.
type OrderingStore interface {
	EnabledGroups(ctx context.Context) ([]model.EventEPGGroup, error)
	ChannelsForGroup(ctx context.Context, groupID string) ([]model.ManagedChannel, error)
	SetChannelNumber(ctx context.Context, channelID string, number int) error
	LogChannelHistory(ctx context.Context, channelID, changeType, changeSource, notes string) error
}

// ReorderedPair records one main/keyword channel pair whose numbers were
// swapped to restore the main-precedes-keyword invariant.
type ReorderedPair struct {
	MainChannel    string
	KeywordChannel string
	MainNumber     int
	KeywordNumber  int
}

// OrderingResult is the outcome of one keyword-ordering enforcement pass.
type OrderingResult struct {
	Reordered []ReorderedPair
	Errors    []string
}

// KeywordOrderingEnforcer guarantees that for every event with both a main
// channel and one or more keyword-channel siblings, the main channel's
// number is lower. A keyword channel can outrank its main channel when the
// two were created in different runs (the keyword stream appeared before
// the main event was ever classified) or after an unrelated renumbering.
type KeywordOrderingEnforcer struct {
	Store OrderingStore
}

// Enforce scans every enabled group's channels and swaps any out-of-order
// main/keyword pair's channel_number values back into the invariant.
func (o *KeywordOrderingEnforcer) Enforce(ctx context.Context) (OrderingResult, error) {
	result := OrderingResult{}

	groups, err := o.Store.EnabledGroups(ctx)
	if err != nil {
		return result, fmt.Errorf("keyword ordering: loading groups: %w", err)
	}

	for _, group := range groups {
		channels, err := o.Store.ChannelsForGroup(ctx, group.ID)
		if err != nil {
			result.Errors = append(result.Errors, err.Error())
			continue
		}

		mains := map[string]model.ManagedChannel{}
		var keywordChannels []model.ManagedChannel
		for _, c := range channels {
			if c.EventID == "" {
				continue
			}
			key := c.EventID + "|" + c.EventProvider
			if c.ExceptionKeyword == "" {
				mains[key] = c
			} else {
				keywordChannels = append(keywordChannels, c)
			}
		}

		for _, kw := range keywordChannels {
			main, ok := mains[kw.EventID+"|"+kw.EventProvider]
			if !ok || kw.ChannelNumber >= main.ChannelNumber {
				continue
			}

			if err := o.swap(ctx, main, kw); err != nil {
				result.Errors = append(result.Errors, err.Error())
				continue
			}

			result.Reordered = append(result.Reordered, ReorderedPair{
				MainChannel:    main.Name,
				KeywordChannel: kw.Name,
				MainNumber:     kw.ChannelNumber,
				KeywordNumber:  main.ChannelNumber,
			})
		}
	}

	return result, nil
}

func (o *KeywordOrderingEnforcer) swap(ctx context.Context, main, keyword model.ManagedChannel) error {
	if err := o.Store.SetChannelNumber(ctx, main.ID, keyword.ChannelNumber); err != nil {
		return err
	}
	if err := o.Store.SetChannelNumber(ctx, keyword.ID, main.ChannelNumber); err != nil {
		return err
	}
	_ = o.Store.LogChannelHistory(ctx, main.ID, "renumbered", "keyword_ordering_enforcement",
		fmt.Sprintf("swapped with keyword channel %q to restore ordering", keyword.Name))
	_ = o.Store.LogChannelHistory(ctx, keyword.ID, "renumbered", "keyword_ordering_enforcement",
		fmt.Sprintf("swapped with main channel %q to restore ordering", main.Name))
	return nil
}
