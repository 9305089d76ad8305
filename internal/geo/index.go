package geo

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"

	"quickbites-dispatch/internal/apperr"
	"quickbites-dispatch/internal/domain"
	"quickbites-dispatch/internal/logx"
)

// searchRadiusMeters is the operational broadcast radius. Callers do not get
// to pick their own; changing it is a policy decision, not a parameter.
const searchRadiusMeters = 5000

const (
	geoKey           = "couriers:geo"
	onlineKeyPrefix  = "courier:online:"
	updateKeyPrefix  = "courier:loc:last:"
	defaultOnlineTTL = 90 * time.Second
)

// Index answers "which online couriers are within the broadcast radius of a
// point" over a Redis geo set. Locations are self-reported pushes, overwritten
// in place; there is no history.
type Index struct {
	rdb         *redis.Client
	minInterval time.Duration
	onlineTTL   time.Duration
	logger      logx.Logger
	throttled   counter
}

type counter interface {
	Inc()
}

// NewIndex creates a courier geospatial index. minInterval throttles location
// pushes per courier; throttled may be nil.
func NewIndex(rdb *redis.Client, minInterval time.Duration, throttled counter, logger logx.Logger) *Index {
	if minInterval <= 0 {
		minInterval = 3 * time.Second
	}
	return &Index{
		rdb:         rdb,
		minInterval: minInterval,
		onlineTTL:   defaultOnlineTTL,
		logger:      logger,
		throttled:   throttled,
	}
}

// UpdateLocation overwrites the courier's stored point and refreshes the
// online flag. A degenerate (0,0) point means "no GPS fix yet" and is dropped
// silently. Pushes arriving faster than the configured min interval are
// dropped as well; the last-update marker lives on the courier's own key, so
// no process-wide state is involved.
func (i *Index) UpdateLocation(ctx context.Context, courierID uuid.UUID, p domain.GeoPoint) error {
	if p.Zero() {
		return nil
	}
	if !p.InRange() {
		return apperr.ErrInvalid
	}

	ok, err := i.rdb.SetNX(ctx, updateKeyPrefix+courierID.String(), 1, i.minInterval).Result()
	if err != nil {
		return fmt.Errorf("geo: throttle check %s: %w", courierID, err)
	}
	if !ok {
		if i.throttled != nil {
			i.throttled.Inc()
		}
		return nil
	}

	if err := i.rdb.GeoAdd(ctx, geoKey, &redis.GeoLocation{
		Name:      courierID.String(),
		Longitude: p.Lng,
		Latitude:  p.Lat,
	}).Err(); err != nil {
		return fmt.Errorf("geo: add location %s: %w", courierID, err)
	}

	if err := i.rdb.Set(ctx, onlineKeyPrefix+courierID.String(), 1, i.onlineTTL).Err(); err != nil {
		return fmt.Errorf("geo: refresh online flag %s: %w", courierID, err)
	}
	return nil
}

// MarkOnline sets the courier's connectivity flag without a location push.
func (i *Index) MarkOnline(ctx context.Context, courierID uuid.UUID) error {
	if err := i.rdb.Set(ctx, onlineKeyPrefix+courierID.String(), 1, i.onlineTTL).Err(); err != nil {
		return fmt.Errorf("geo: mark online %s: %w", courierID, err)
	}
	return nil
}

// MarkOffline clears the courier's connectivity flag. The geo point stays: a
// reconnecting courier is immediately findable again.
func (i *Index) MarkOffline(ctx context.Context, courierID uuid.UUID) error {
	if err := i.rdb.Del(ctx, onlineKeyPrefix+courierID.String()).Err(); err != nil {
		return fmt.Errorf("geo: mark offline %s: %w", courierID, err)
	}
	return nil
}

// FindNearby returns online couriers within the broadcast radius of p,
// ordered by distance ascending. An empty result is a valid outcome, not an
// error.
func (i *Index) FindNearby(ctx context.Context, p domain.GeoPoint) ([]domain.NearbyCourier, error) {
	locs, err := i.rdb.GeoSearchLocation(ctx, geoKey, &redis.GeoSearchLocationQuery{
		GeoSearchQuery: redis.GeoSearchQuery{
			Longitude:  p.Lng,
			Latitude:   p.Lat,
			Radius:     searchRadiusMeters,
			RadiusUnit: "m",
			Sort:       "ASC",
		},
		WithCoord: true,
		WithDist:  true,
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("geo: search near (%f,%f): %w", p.Lat, p.Lng, err)
	}
	if len(locs) == 0 {
		return nil, nil
	}

	keys := make([]string, 0, len(locs))
	for _, l := range locs {
		keys = append(keys, onlineKeyPrefix+l.Name)
	}
	flags, err := i.onlineFlags(ctx, keys)
	if err != nil {
		return nil, err
	}

	out := make([]domain.NearbyCourier, 0, len(locs))
	for n, l := range locs {
		if !flags[n] {
			continue
		}
		id, err := uuid.Parse(l.Name)
		if err != nil {
			// foreign member in the geo set; skip it
			i.logger.Warn("geo: non-uuid member in courier set", logx.String("member", l.Name))
			continue
		}
		out = append(out, domain.NearbyCourier{
			CourierID:      id,
			Point:          domain.GeoPoint{Lat: l.Latitude, Lng: l.Longitude},
			DistanceMeters: l.Dist,
		})
	}
	return out, nil
}

func (i *Index) onlineFlags(ctx context.Context, keys []string) ([]bool, error) {
	pipe := i.rdb.Pipeline()
	cmds := make([]*redis.IntCmd, 0, len(keys))
	for _, k := range keys {
		cmds = append(cmds, pipe.Exists(ctx, k))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("geo: online flags: %w", err)
	}
	flags := make([]bool, len(cmds))
	for n, c := range cmds {
		flags[n] = c.Val() > 0
	}
	return flags, nil
}
