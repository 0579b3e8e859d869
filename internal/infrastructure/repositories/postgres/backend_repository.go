package postgres

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"conference/internal/core/domain"
	"conference/internal/core/ports"
	"conference/pkg/validation"
)

type BackendRepository struct {
	db *gorm.DB
}

func NewBackendRepository(db *gorm.DB) *BackendRepository {
	return &BackendRepository{db: db}
}

func (r *BackendRepository) Upsert(ctx context.Context, backend *domain.JanusBackend) error {
	if err := validation.ValidateURL(backend.JanusURL); err != nil {
		return domain.NewError(domain.ErrMessageParsingFailed, err.Error())
	}
	err := dbFrom(ctx, r.db).Save(backendFromDomain(backend)).Error
	return wrapQueryErr(err, "failed to upsert backend")
}

func (r *BackendRepository) Get(ctx context.Context, id domain.BackendID) (*domain.JanusBackend, error) {
	var m backendModel
	err := dbFrom(ctx, r.db).First(&m, "label = ? AND audience = ?", id.Label, id.Audience).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, wrapQueryErr(err, "failed to load backend")
	}
	return m.toDomain(), nil
}

func (r *BackendRepository) Delete(ctx context.Context, id domain.BackendID) error {
	err := dbFrom(ctx, r.db).Delete(&backendModel{}, "label = ? AND audience = ?", id.Label, id.Audience).Error
	return wrapQueryErr(err, "failed to delete backend")
}

func (r *BackendRepository) ListLive(ctx context.Context) ([]*domain.JanusBackend, error) {
	var rows []backendModel
	if err := dbFrom(ctx, r.db).Find(&rows).Error; err != nil {
		return nil, wrapQueryErr(err, "failed to list backends")
	}
	backends := make([]*domain.JanusBackend, 0, len(rows))
	for i := range rows {
		backends = append(backends, rows[i].toDomain())
	}
	return backends, nil
}

// ActivePublisherCount counts distinct live JanusRtcStream rows on
// backendID, optionally restricted to rooms with rtc_sharing_policy='owned'
// (spec §4.2.2's N² term; `ownedRooms=false` returns the grand total).
func (r *BackendRepository) ActivePublisherCount(ctx context.Context, backendID domain.BackendID, ownedRooms bool) (int, error) {
	q := dbFrom(ctx, r.db).Table("janus_rtc_streams AS s").
		Joins("JOIN rtcs AS rt ON rt.id = s.rtc_id").
		Joins("JOIN rooms AS ro ON ro.id = rt.room_id").
		Where("s.backend_label = ? AND s.backend_audience = ? AND s.time_upper IS NULL", backendID.Label, backendID.Audience)
	if ownedRooms {
		q = q.Where("ro.rtc_sharing_policy = ?", string(domain.PolicyOwned))
	}
	var count int64
	err := q.Count(&count).Error
	return int(count), wrapQueryErr(err, "failed to count active publishers")
}

func (r *BackendRepository) ActiveSubscriberCount(ctx context.Context, backendID domain.BackendID) (int, error) {
	var count int64
	err := dbFrom(ctx, r.db).Table("agent_connections").
		Where("backend_label = ? AND backend_audience = ? AND intent = ? AND status IN (?)",
			backendID.Label, backendID.Audience, string(domain.IntentRead),
			[]string{string(domain.ConnectionInProgress), string(domain.ConnectionConnected)}).
		Count(&count).Error
	return int(count), wrapQueryErr(err, "failed to count active subscribers")
}

// reserveFactor mirrors services.balancer's freeCapacity subscriber weight;
// kept in sync by hand since the formula lives in the domain layer and this
// query reimplements it per-room instead of importing services.
const reserveFactor = 1

type roomReserveLoadRow struct {
	Policy      string
	Reserve     int
	Publishers  int
	Subscribers int
}

// RoomReserveHeadroom sums, over every other active room pinned to
// backendID, the portion of that room's reserve floor its own connections
// aren't currently using (mirrors original_source's janus_backend::
// free_capacity room_load/janus_backend_load CTEs, adapted from a
// REMB-weighted load to this service's publisher/subscriber-count formula).
func (r *BackendRepository) RoomReserveHeadroom(ctx context.Context, backendID domain.BackendID, excludeRoomID domain.RoomID) (int, error) {
	var rows []roomReserveLoadRow
	err := dbFrom(ctx, r.db).Raw(`
		SELECT
			ro.rtc_sharing_policy AS policy,
			COALESCE(ro.reserve, 0) AS reserve,
			COALESCE(pub.publishers, 0) AS publishers,
			COALESCE(sub.subscribers, 0) AS subscribers
		FROM rooms ro
		LEFT JOIN (
			SELECT rt.room_id, COUNT(DISTINCT s.id) AS publishers
			FROM janus_rtc_streams s
			JOIN rtcs rt ON rt.id = s.rtc_id
			WHERE s.backend_label = ? AND s.backend_audience = ? AND s.time_upper IS NULL
			GROUP BY rt.room_id
		) pub ON pub.room_id = ro.id
		LEFT JOIN (
			SELECT rt.room_id, COUNT(*) AS subscribers
			FROM agent_connections ac
			JOIN rtcs rt ON rt.id = ac.rtc_id
			WHERE ac.backend_label = ? AND ac.backend_audience = ?
			  AND ac.intent = ? AND ac.status IN (?, ?)
			GROUP BY rt.room_id
		) sub ON sub.room_id = ro.id
		WHERE ro.backend_label = ? AND ro.backend_audience = ?
		  AND ro.id <> ?
		  AND ro.reserve IS NOT NULL
		  AND ro.closed_by_label IS NULL
	`,
		backendID.Label, backendID.Audience,
		backendID.Label, backendID.Audience, string(domain.IntentRead),
		string(domain.ConnectionInProgress), string(domain.ConnectionConnected),
		backendID.Label, backendID.Audience,
		uuid.UUID(excludeRoomID),
	).Scan(&rows).Error
	if err != nil {
		return 0, wrapQueryErr(err, "failed to compute room reserve headroom")
	}

	headroom := 0
	for _, row := range rows {
		meshCost := 0
		if domain.RTCSharingPolicy(row.Policy) == domain.PolicyOwned {
			meshCost = row.Publishers * row.Publishers
		}
		taken := row.Publishers + meshCost + row.Subscribers*reserveFactor
		if unused := row.Reserve - taken; unused > 0 {
			headroom += unused
		}
	}
	return headroom, nil
}

var _ ports.BackendRepository = (*BackendRepository)(nil)
