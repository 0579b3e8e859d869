package postgres

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"conference/internal/core/domain"
	"conference/internal/core/ports"
)

type AgentConnectionRepository struct {
	db *gorm.DB
}

func NewAgentConnectionRepository(db *gorm.DB) *AgentConnectionRepository {
	return &AgentConnectionRepository{db: db}
}

func (r *AgentConnectionRepository) Create(ctx context.Context, conn *domain.AgentConnection) error {
	m := agentConnectionFromDomain(conn)
	err := dbFrom(ctx, r.db).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "agent_label"}, {Name: "agent_audience"}, {Name: "rtc_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"handle_id", "backend_label", "backend_audience", "status"}),
	}).Create(m).Error
	return wrapQueryErr(err, "failed to create agent connection")
}

func (r *AgentConnectionRepository) Get(ctx context.Context, agentID domain.AgentID, rtcID domain.RTCID) (*domain.AgentConnection, error) {
	var m agentConnectionModel
	err := dbFrom(ctx, r.db).First(&m, "agent_label = ? AND agent_audience = ? AND rtc_id = ?", agentID.Label, agentID.Audience, uuid.UUID(rtcID)).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, wrapQueryErr(err, "failed to load agent connection")
	}
	return m.toDomain(), nil
}

func (r *AgentConnectionRepository) UpdateStatus(ctx context.Context, agentID domain.AgentID, rtcID domain.RTCID, status domain.ConnectionStatus) error {
	err := dbFrom(ctx, r.db).Model(&agentConnectionModel{}).
		Where("agent_label = ? AND agent_audience = ? AND rtc_id = ?", agentID.Label, agentID.Audience, uuid.UUID(rtcID)).
		Update("status", string(status)).Error
	return wrapQueryErr(err, "failed to update agent connection status")
}

func (r *AgentConnectionRepository) Delete(ctx context.Context, agentID domain.AgentID, rtcID domain.RTCID) error {
	err := dbFrom(ctx, r.db).Delete(&agentConnectionModel{}, "agent_label = ? AND agent_audience = ? AND rtc_id = ?", agentID.Label, agentID.Audience, uuid.UUID(rtcID)).Error
	return wrapQueryErr(err, "failed to delete agent connection")
}

func (r *AgentConnectionRepository) ListByBackend(ctx context.Context, backendID domain.BackendID) ([]*domain.AgentConnection, error) {
	var rows []agentConnectionModel
	if err := dbFrom(ctx, r.db).Where("backend_label = ? AND backend_audience = ?", backendID.Label, backendID.Audience).Find(&rows).Error; err != nil {
		return nil, wrapQueryErr(err, "failed to list backend connections")
	}
	conns := make([]*domain.AgentConnection, 0, len(rows))
	for i := range rows {
		conns = append(conns, rows[i].toDomain())
	}
	return conns, nil
}

func (r *AgentConnectionRepository) ListByRTC(ctx context.Context, rtcID domain.RTCID) ([]*domain.AgentConnection, error) {
	var rows []agentConnectionModel
	if err := dbFrom(ctx, r.db).Where("rtc_id = ?", uuid.UUID(rtcID)).Find(&rows).Error; err != nil {
		return nil, wrapQueryErr(err, "failed to list rtc connections")
	}
	conns := make([]*domain.AgentConnection, 0, len(rows))
	for i := range rows {
		conns = append(conns, rows[i].toDomain())
	}
	return conns, nil
}

func (r *AgentConnectionRepository) CountHandleRefs(ctx context.Context, backendID domain.BackendID, handleID domain.HandleID) (int, error) {
	var count int64
	err := dbFrom(ctx, r.db).Model(&agentConnectionModel{}).
		Where("backend_label = ? AND backend_audience = ? AND handle_id = ?", backendID.Label, backendID.Audience, uint64(handleID)).
		Count(&count).Error
	return int(count), wrapQueryErr(err, "failed to count handle references")
}

// DeleteAllInRoom removes every connection whose rtc belongs to roomID.
// agent_connections has no room_id column of its own, so this goes through
// rtcs the same way the balancer's per-backend counts join through it.
func (r *AgentConnectionRepository) DeleteAllInRoom(ctx context.Context, roomID domain.RoomID) (int, error) {
	res := dbFrom(ctx, r.db).Delete(&agentConnectionModel{},
		"rtc_id IN (SELECT id FROM rtcs WHERE room_id = ?)", uuid.UUID(roomID))
	return int(res.RowsAffected), wrapQueryErr(res.Error, "failed to delete room agent connections")
}

var _ ports.AgentConnectionRepository = (*AgentConnectionRepository)(nil)
