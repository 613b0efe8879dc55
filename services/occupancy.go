package services

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/yeremiapane/dinein-app/database"
	"github.com/yeremiapane/dinein-app/events"
	"github.com/yeremiapane/dinein-app/utils"
)

// OccupancySynchronizer reconciles each table's occupied flag with the set
// of open sessions. The flag is advisory; concurrent runs may interleave and
// the last write wins.
type OccupancySynchronizer struct {
	store     *database.Store
	publisher events.Publisher
}

func NewOccupancySynchronizer(store *database.Store, publisher events.Publisher) *OccupancySynchronizer {
	if publisher == nil {
		publisher = events.Nop
	}
	return &OccupancySynchronizer{store: store, publisher: publisher}
}

// SyncTableOccupancy writes the occupied flag of every table in the
// restaurant that disagrees with its open sessions and returns how many
// tables changed.
func (o *OccupancySynchronizer) SyncTableOccupancy(ctx context.Context, restaurantID uint) (int, error) {
	tables, err := o.store.ListTables(ctx, restaurantID)
	if err != nil {
		return 0, fmt.Errorf("failed to list tables of restaurant %d: %w", restaurantID, err)
	}
	openIDs, err := o.store.ListOpenSessionTableIDs(ctx, restaurantID)
	if err != nil {
		return 0, fmt.Errorf("failed to list open sessions of restaurant %d: %w", restaurantID, err)
	}
	open := make(map[uint]bool, len(openIDs))
	for _, id := range openIDs {
		open[id] = true
	}

	changed := 0
	for _, t := range tables {
		want := open[t.ID]
		if t.Occupied == want {
			continue
		}
		if err := o.store.SetTableOccupied(ctx, t.ID, want); err != nil {
			return changed, fmt.Errorf("failed to update table %d: %w", t.ID, err)
		}
		changed++
		o.publisher.Publish(events.New(events.TypeTableStatus,
			events.RestaurantScope(restaurantID),
			events.TableStatusPayload{TableID: t.ID, Occupied: want}))
	}

	if changed > 0 {
		utils.InfoLogger.WithFields(logrus.Fields{
			"restaurant_id": restaurantID,
			"changed":       changed,
		}).Info("Table occupancy synchronised")
	}
	return changed, nil
}
