package postgres

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"conference/internal/core/domain"
	"conference/internal/core/ports"
)

type GroupRepository struct {
	db *gorm.DB
}

func NewGroupRepository(db *gorm.DB) *GroupRepository {
	return &GroupRepository{db: db}
}

// Replace overwrites the room's whole group partition (spec §4.1
// group.update: "overwrites the room's group partition").
func (r *GroupRepository) Replace(ctx context.Context, roomID domain.RoomID, groups []domain.GroupAgent) error {
	db := dbFrom(ctx, r.db)
	if err := db.Delete(&groupAgentModel{}, "room_id = ?", uuid.UUID(roomID)).Error; err != nil {
		return wrapQueryErr(err, "failed to clear room groups")
	}
	if len(groups) == 0 {
		return nil
	}
	rows := make([]*groupAgentModel, 0, len(groups))
	for _, g := range groups {
		rows = append(rows, groupAgentFromDomain(g))
	}
	return wrapQueryErr(db.Create(&rows).Error, "failed to insert room groups")
}

func (r *GroupRepository) List(ctx context.Context, roomID domain.RoomID, withinGroup *int) ([]domain.GroupAgent, error) {
	q := dbFrom(ctx, r.db).Where("room_id = ?", uuid.UUID(roomID))
	if withinGroup != nil {
		q = q.Where("number = ?", *withinGroup)
	}
	var rows []groupAgentModel
	if err := q.Find(&rows).Error; err != nil {
		return nil, wrapQueryErr(err, "failed to list room groups")
	}
	groups := make([]domain.GroupAgent, 0, len(rows))
	for i := range rows {
		groups = append(groups, rows[i].toDomain())
	}
	return groups, nil
}

func (r *GroupRepository) GroupOf(ctx context.Context, roomID domain.RoomID, agentID domain.AgentID) (int, bool, error) {
	var m groupAgentModel
	err := dbFrom(ctx, r.db).First(&m, "room_id = ? AND label = ? AND audience = ?", uuid.UUID(roomID), agentID.Label, agentID.Audience).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return 0, false, nil
		}
		return 0, false, wrapQueryErr(err, "failed to load agent's group")
	}
	return m.Number, true, nil
}

var _ ports.GroupRepository = (*GroupRepository)(nil)
