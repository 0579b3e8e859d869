package services

import (
	"context"
	"math/rand"

	"conference/internal/core/domain"
	"conference/internal/core/ports"
)

// HealthChecker reports whether a backend is currently eligible for new
// allocations, independent of capacity — the "health signal" that can
// downgrade a backend in the balancer (spec §7) without a backend-
// originated failure poisoning it outright. Grounded on
// pkg/circuitbreaker: a backend whose circuit is open is unhealthy.
type HealthChecker interface {
	Healthy(backendID domain.BackendID) bool
}

// CapacityMetrics is the subset of PrometheusCollector the balancer
// reports through, kept as an interface so tests don't need the real
// collector.
type CapacityMetrics interface {
	SetBackendFreeCapacity(backendID domain.BackendID, free int)
}

// balancer implements C2. It restricts candidates to live, healthy,
// API-compliant backends matching the room's group (or any group if the
// room has none), scores them by free capacity, and picks the maximum —
// pinning subscribers to the publisher's backend.
type balancer struct {
	backends ports.BackendRepository
	health   HealthChecker
	metrics  CapacityMetrics
	rng      func() float64
}

func NewBalancer(backends ports.BackendRepository, health HealthChecker, metrics CapacityMetrics) ports.Balancer {
	return &balancer{backends: backends, health: health, metrics: metrics, rng: rand.Float64}
}

// WithRNG overrides the tie-break randomness source; used by tests.
func (b *balancer) WithRNG(rng func() float64) *balancer {
	b.rng = rng
	return b
}

func (b *balancer) Choose(ctx context.Context, room *domain.Room, intent domain.Intent) (*domain.JanusBackend, error) {
	if room.BackendID != nil {
		backend, err := b.backends.Get(ctx, *room.BackendID)
		if err != nil {
			return nil, domain.WrapError(domain.ErrBackendNotFound, "pinned backend lookup failed", err)
		}
		if backend == nil {
			return nil, domain.NewError(domain.ErrBackendNotFound, "room's pinned backend is gone")
		}
		return backend, nil
	}

	all, err := b.backends.ListLive(ctx)
	if err != nil {
		return nil, domain.WrapError(domain.ErrDatabaseQueryFailed, "listing live backends failed", err)
	}

	candidates := make([]*domain.JanusBackend, 0, len(all))
	for _, be := range all {
		if be.APIVersion != domain.DefaultCompliantAPIVersion {
			continue
		}
		if room.JanusGroup != "" && be.Group != room.JanusGroup {
			continue
		}
		if b.health != nil && !b.health.Healthy(be.ID) {
			continue
		}
		candidates = append(candidates, be)
	}

	if len(candidates) == 0 {
		return nil, domain.NewError(domain.ErrNoAvailableBackends, "no backend matches the room's group and API version")
	}

	type scored struct {
		backend *domain.JanusBackend
		free    int
	}
	scores := make([]scored, 0, len(candidates))
	best := -1 << 62
	for _, be := range candidates {
		free, err := b.freeCapacity(ctx, be, room)
		if err != nil {
			return nil, err
		}
		scores = append(scores, scored{backend: be, free: free})
		if b.metrics != nil {
			b.metrics.SetBackendFreeCapacity(be.ID, free)
		}
		if free > best {
			best = free
		}
	}

	// Collect all backends tied at the maximum free capacity and break
	// ties by random order, per spec §4.2.4.
	var tied []*domain.JanusBackend
	for _, s := range scores {
		if s.free == best {
			tied = append(tied, s.backend)
		}
	}

	if best <= 0 {
		return nil, b.capacityExceeded(room)
	}

	pick := tied[int(b.rng()*float64(len(tied)))%len(tied)]
	return pick, nil
}

// freeCapacity implements spec §4.2.2's scoring formula:
//
//	balancer_capacity − (active_publishers + N²×active_owned_publishers + active_subscribers×reserve_factor)
//
// where N is the number of active owned publishers (mesh bandwidth in
// owned rooms costs O(N²), per §9's normative resolution of the open
// question: an owned publisher's own N² contribution is counted).
func (b *balancer) freeCapacity(ctx context.Context, be *domain.JanusBackend, room *domain.Room) (int, error) {
	ownedPublishers, err := b.backends.ActivePublisherCount(ctx, be.ID, true)
	if err != nil {
		return 0, domain.WrapError(domain.ErrDatabaseQueryFailed, "counting owned publishers failed", err)
	}
	totalPublishers, err := b.backends.ActivePublisherCount(ctx, be.ID, false)
	if err != nil {
		return 0, domain.WrapError(domain.ErrDatabaseQueryFailed, "counting publishers failed", err)
	}
	subscribers, err := b.backends.ActiveSubscriberCount(ctx, be.ID)
	if err != nil {
		return 0, domain.WrapError(domain.ErrDatabaseQueryFailed, "counting subscribers failed", err)
	}

	const reserveFactor = 1
	meshCost := ownedPublishers * ownedPublishers
	used := totalPublishers + meshCost + subscribers*reserveFactor

	free := be.BalancerCapacity - used

	// A room's own reserve guarantees it a capacity floor even when other
	// rooms would otherwise exhaust the backend (spec §4.2.5, §8 seed case
	// 5): widen `free` for a room that owns this backend already and
	// carries a reserve...
	if room.Reserve != nil && room.BackendID != nil && *room.BackendID == be.ID {
		free += *room.Reserve
		return free, nil
	}

	// ...and, symmetrically, narrow `free` for every other room on the
	// query when scoring a backend it doesn't already own: `used` above is
	// a flat per-backend count with no per-room breakdown, so a reserve
	// another room hasn't consumed yet would otherwise look like spare
	// capacity to this room and let it eat into that floor.
	headroom, err := b.backends.RoomReserveHeadroom(ctx, be.ID, room.ID)
	if err != nil {
		return 0, domain.WrapError(domain.ErrDatabaseQueryFailed, "computing reserve headroom failed", err)
	}
	free -= headroom

	return free, nil
}

func (b *balancer) capacityExceeded(room *domain.Room) error {
	return domain.NewError(domain.ErrCapacityExceeded, "all candidate backends are at capacity")
}
