package postgres

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"conference/internal/core/domain"
	"conference/internal/core/ports"
)

type AgentRepository struct {
	db *gorm.DB
}

func NewAgentRepository(db *gorm.DB) *AgentRepository {
	return &AgentRepository{db: db}
}

func (r *AgentRepository) Upsert(ctx context.Context, agent *domain.Agent) error {
	m := agentFromDomain(agent)
	err := dbFrom(ctx, r.db).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "room_id"}, {Name: "label"}, {Name: "audience"}},
		DoUpdates: clause.AssignmentColumns([]string{"status"}),
	}).Create(m).Error
	return wrapQueryErr(err, "failed to upsert agent")
}

func (r *AgentRepository) Get(ctx context.Context, roomID domain.RoomID, agentID domain.AgentID) (*domain.Agent, error) {
	var m agentModel
	err := dbFrom(ctx, r.db).First(&m, "room_id = ? AND label = ? AND audience = ?", uuid.UUID(roomID), agentID.Label, agentID.Audience).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, wrapQueryErr(err, "failed to load agent")
	}
	return m.toDomain(), nil
}

func (r *AgentRepository) List(ctx context.Context, roomID domain.RoomID, offset, limit int) ([]*domain.Agent, error) {
	var rows []agentModel
	q := dbFrom(ctx, r.db).Where("room_id = ?", uuid.UUID(roomID)).Order("created_at").Offset(offset)
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&rows).Error; err != nil {
		return nil, wrapQueryErr(err, "failed to list room agents")
	}
	agents := make([]*domain.Agent, 0, len(rows))
	for i := range rows {
		agents = append(agents, rows[i].toDomain())
	}
	return agents, nil
}

func (r *AgentRepository) Delete(ctx context.Context, roomID domain.RoomID, agentID domain.AgentID) error {
	err := dbFrom(ctx, r.db).Delete(&agentModel{}, "room_id = ? AND label = ? AND audience = ?", uuid.UUID(roomID), agentID.Label, agentID.Audience).Error
	return wrapQueryErr(err, "failed to delete agent")
}

func (r *AgentRepository) DeleteAllInRoom(ctx context.Context, roomID domain.RoomID) (int, error) {
	res := dbFrom(ctx, r.db).Delete(&agentModel{}, "room_id = ?", uuid.UUID(roomID))
	return int(res.RowsAffected), wrapQueryErr(res.Error, "failed to delete room agents")
}

var _ ports.AgentRepository = (*AgentRepository)(nil)
