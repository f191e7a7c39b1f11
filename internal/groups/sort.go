package groups

import "sort"

// SortMatched orders matched events per a group's channel_sort_order:
// "time" by start time alone, "sport_time" by league then start time,
// "league_time" is an alias of sport_time (both group by league first) —
// the reference's event_group_processor.py treats them as the same
// comparator, keeping league_time only as a separate config-facing label.
func SortMatched(events []NamedEvent, order string) {
	switch order {
	case "sport_time", "league_time":
		sort.SliceStable(events, func(i, j int) bool {
			if events[i].League != events[j].League {
				return events[i].League < events[j].League
			}
			return events[i].Event.StartTime.Before(events[j].Event.StartTime)
		})
	default: // "time"
		sort.SliceStable(events, func(i, j int) bool {
			return events[i].Event.StartTime.Before(events[j].Event.StartTime)
		})
	}
}
