package postgres

import (
	"gorm.io/gorm"
)

// Migrate runs gorm's auto-migration over every model this service
// persists, grounded on the teacher's redis/migrations.go version-gated
// migration runner, simplified to gorm's declarative equivalent since the
// relational schema is derived straight from the struct tags above.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&roomModel{},
		&rtcModel{},
		&agentModel{},
		&agentConnectionModel{},
		&backendModel{},
		&streamModel{},
		&recordingModel{},
		&writerConfigModel{},
		&writerConfigSnapshotModel{},
		&readerConfigModel{},
		&groupAgentModel{},
		&orphanedRoomModel{},
		&outboxModel{},
	)
}
