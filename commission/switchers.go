package commission

import (
	"sort"
	"strings"
	"time"

	"bitbucket.org/mmdatafocus/salesops_backend/importer"
)

// ChannelActivity is one customer's footprint in a single channel during a
// period: the order-date window and the rep on the most recent order.
type ChannelActivity struct {
	CustomerID string
	Name       string
	City       string
	Rep        string
	FirstOrder time.Time
	LastOrder  time.Time
}

// Switcher is a customer whose direct relationship went quiet before
// third-party orders started showing up under a matching business name.
type Switcher struct {
	DirectCustomerID  string    `json:"direct_customer_id"`
	ChannelCustomerID string    `json:"channel_customer_id"`
	Name              string    `json:"name"`
	DirectRep         string    `json:"direct_rep"`
	LastDirectDate    time.Time `json:"last_direct_date"`
	FirstChannelDate  time.Time `json:"first_channel_date"`
	DaysBetweenSwitch int       `json:"days_between_switch"`
	MatchScore        int       `json:"match_score"`
}

// Third-party records rarely reuse the direct account, so matches are scored
// on business name and city: exact name 5, substring 3, same city 1. A pair
// below the threshold is not the same business.
const switcherMatchThreshold = 3

func switcherMatchScore(direct, channel *ChannelActivity) int {
	score := 0
	directName := importer.NormalizeText(direct.Name)
	channelName := importer.NormalizeText(channel.Name)
	switch {
	case directName == "" || channelName == "":
	case directName == channelName:
		score += 5
	case strings.Contains(directName, channelName) || strings.Contains(channelName, directName):
		score += 3
	}
	directCity := importer.NormalizeText(direct.City)
	if directCity != "" && directCity == importer.NormalizeText(channel.City) {
		score++
	}
	return score
}

// DetectSwitchers pairs each direct-channel aggregate with its best-scoring
// third-party aggregate and flags the pair only when the last direct order
// predates the first third-party order. A direct order after any third-party
// order means the relationship is still alive, never a switch.
func DetectSwitchers(direct, channel map[string]*ChannelActivity) []*Switcher {
	directIDs := make([]string, 0, len(direct))
	for id := range direct {
		directIDs = append(directIDs, id)
	}
	sort.Strings(directIDs)

	channelIDs := make([]string, 0, len(channel))
	for id := range channel {
		channelIDs = append(channelIDs, id)
	}
	sort.Strings(channelIDs)

	var switchers []*Switcher
	for _, directID := range directIDs {
		d := direct[directID]

		var best *ChannelActivity
		bestScore := 0
		for _, channelID := range channelIDs {
			c := channel[channelID]
			score := switcherMatchScore(d, c)
			if score > bestScore {
				best, bestScore = c, score
			}
		}
		if best == nil || bestScore < switcherMatchThreshold {
			continue
		}
		if !d.LastOrder.Before(best.FirstOrder) {
			continue
		}

		switchers = append(switchers, &Switcher{
			DirectCustomerID:  d.CustomerID,
			ChannelCustomerID: best.CustomerID,
			Name:              d.Name,
			DirectRep:         d.Rep,
			LastDirectDate:    d.LastOrder,
			FirstChannelDate:  best.FirstOrder,
			DaysBetweenSwitch: int(best.FirstOrder.Sub(d.LastOrder).Hours() / 24),
			MatchScore:        bestScore,
		})
	}
	return switchers
}
