package postgres

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"

	"conference/internal/core/domain"
)

// JSONMap adapts a map[string]any to a JSON database column; gorm has no
// built-in JSON scalar without an extra driver-specific package, so this
// mirrors the small Scan/Value shim every gorm-backed repo in the
// retrieval pack that stores opaque objects ends up writing.
type JSONMap map[string]any

func (m JSONMap) Value() (driver.Value, error) {
	if m == nil {
		return nil, nil
	}
	return json.Marshal(m)
}

func (m *JSONMap) Scan(value any) error {
	if value == nil {
		*m = nil
		return nil
	}
	b, ok := value.([]byte)
	if !ok {
		return errors.New("postgres: JSONMap Scan expects []byte")
	}
	return json.Unmarshal(b, m)
}

// StringSlice adapts []string to a JSON column, used for Capabilities and
// MjrDumpsURIs.
type StringSlice []string

func (s StringSlice) Value() (driver.Value, error) {
	if s == nil {
		return nil, nil
	}
	return json.Marshal([]string(s))
}

func (s *StringSlice) Scan(value any) error {
	if value == nil {
		*s = nil
		return nil
	}
	b, ok := value.([]byte)
	if !ok {
		return errors.New("postgres: StringSlice Scan expects []byte")
	}
	return json.Unmarshal(b, s)
}

// segmentsJSON adapts []domain.Int64Range to a JSON column.
type segmentsJSON []domain.Int64Range

func (s segmentsJSON) Value() (driver.Value, error) {
	if s == nil {
		return nil, nil
	}
	return json.Marshal([]domain.Int64Range(s))
}

func (s *segmentsJSON) Scan(value any) error {
	if value == nil {
		*s = nil
		return nil
	}
	b, ok := value.([]byte)
	if !ok {
		return errors.New("postgres: segmentsJSON Scan expects []byte")
	}
	return json.Unmarshal(b, s)
}

type roomModel struct {
	ID                   uuid.UUID `gorm:"type:uuid;primaryKey"`
	ClassroomID          uuid.UUID `gorm:"type:uuid;not null;index"`
	Audience             string    `gorm:"type:varchar(255);not null;index"`
	TimeLower            time.Time `gorm:"not null"`
	TimeUpper            *time.Time
	CreatedAt            time.Time `gorm:"not null"`
	RTCSharingPolicy     string    `gorm:"type:varchar(16);not null"`
	Reserve              *int
	Tags                 JSONMap `gorm:"type:jsonb"`
	BackendLabel         *string
	BackendAudience      *string
	JanusGroup           string `gorm:"type:varchar(255)"`
	HostLabel            *string
	HostAudience         *string
	ClosedByLabel        *string
	ClosedByAudience     *string
	Infinite             bool
	TimedOut             bool
}

func (roomModel) TableName() string { return "rooms" }

func agentIDPtr(label, audience *string) *domain.AgentID {
	if label == nil {
		return nil
	}
	id := domain.AgentID{Label: *label}
	if audience != nil {
		id.Audience = *audience
	}
	return &id
}

func splitAgentIDPtr(id *domain.AgentID) (*string, *string) {
	if id == nil {
		return nil, nil
	}
	label := id.Label
	audience := id.Audience
	return &label, &audience
}

func (m *roomModel) toDomain() *domain.Room {
	return &domain.Room{
		ID:               domain.RoomID(m.ID),
		ClassroomID:      domain.ClassroomID(m.ClassroomID),
		Audience:         m.Audience,
		Time:             domain.TimeRange{Lower: m.TimeLower, Upper: m.TimeUpper},
		CreatedAt:        m.CreatedAt,
		RTCSharingPolicy: domain.RTCSharingPolicy(m.RTCSharingPolicy),
		Reserve:          m.Reserve,
		Tags:             map[string]any(m.Tags),
		BackendID:        agentIDPtr(m.BackendLabel, m.BackendAudience),
		JanusGroup:       m.JanusGroup,
		Host:             agentIDPtr(m.HostLabel, m.HostAudience),
		ClosedBy:         agentIDPtr(m.ClosedByLabel, m.ClosedByAudience),
		Infinite:         m.Infinite,
		TimedOut:         m.TimedOut,
	}
}

func roomFromDomain(r *domain.Room) *roomModel {
	backendLabel, backendAudience := splitAgentIDPtr(r.BackendID)
	hostLabel, hostAudience := splitAgentIDPtr(r.Host)
	closedLabel, closedAudience := splitAgentIDPtr(r.ClosedBy)
	return &roomModel{
		ID:               uuid.UUID(r.ID),
		ClassroomID:      uuid.UUID(r.ClassroomID),
		Audience:         r.Audience,
		TimeLower:        r.Time.Lower,
		TimeUpper:        r.Time.Upper,
		CreatedAt:        r.CreatedAt,
		RTCSharingPolicy: string(r.RTCSharingPolicy),
		Reserve:          r.Reserve,
		Tags:             JSONMap(r.Tags),
		BackendLabel:     backendLabel,
		BackendAudience:  backendAudience,
		JanusGroup:       r.JanusGroup,
		HostLabel:        hostLabel,
		HostAudience:     hostAudience,
		ClosedByLabel:    closedLabel,
		ClosedByAudience: closedAudience,
		Infinite:         r.Infinite,
		TimedOut:         r.TimedOut,
	}
}

type rtcModel struct {
	ID                uuid.UUID `gorm:"type:uuid;primaryKey"`
	RoomID            uuid.UUID `gorm:"type:uuid;not null;index"`
	CreatedByLabel    string    `gorm:"type:varchar(255);not null"`
	CreatedByAudience string    `gorm:"type:varchar(255)"`
	CreatedAt         time.Time `gorm:"not null"`
}

func (rtcModel) TableName() string { return "rtcs" }

func (m *rtcModel) toDomain() *domain.RTC {
	return &domain.RTC{
		ID:        domain.RTCID(m.ID),
		RoomID:    domain.RoomID(m.RoomID),
		CreatedBy: domain.AgentID{Label: m.CreatedByLabel, Audience: m.CreatedByAudience},
		CreatedAt: m.CreatedAt,
	}
}

func rtcFromDomain(r *domain.RTC) *rtcModel {
	return &rtcModel{
		ID:                uuid.UUID(r.ID),
		RoomID:            uuid.UUID(r.RoomID),
		CreatedByLabel:    r.CreatedBy.Label,
		CreatedByAudience: r.CreatedBy.Audience,
		CreatedAt:         r.CreatedAt,
	}
}

type agentModel struct {
	RoomID    uuid.UUID `gorm:"type:uuid;primaryKey"`
	Label     string    `gorm:"primaryKey;type:varchar(255)"`
	Audience  string    `gorm:"primaryKey;type:varchar(255)"`
	Status    string    `gorm:"type:varchar(16);not null"`
	CreatedAt time.Time `gorm:"not null"`
}

func (agentModel) TableName() string { return "agents" }

func (m *agentModel) toDomain() *domain.Agent {
	return &domain.Agent{
		AgentID:   domain.AgentID{Label: m.Label, Audience: m.Audience},
		RoomID:    domain.RoomID(m.RoomID),
		Status:    domain.AgentStatus(m.Status),
		CreatedAt: m.CreatedAt,
	}
}

func agentFromDomain(a *domain.Agent) *agentModel {
	return &agentModel{
		RoomID:    uuid.UUID(a.RoomID),
		Label:     a.AgentID.Label,
		Audience:  a.AgentID.Audience,
		Status:    string(a.Status),
		CreatedAt: a.CreatedAt,
	}
}

type agentConnectionModel struct {
	AgentLabel      string    `gorm:"primaryKey;type:varchar(255)"`
	AgentAudience   string    `gorm:"primaryKey;type:varchar(255)"`
	RTCID           uuid.UUID `gorm:"primaryKey;type:uuid"`
	HandleID        uint64    `gorm:"not null;index"`
	BackendLabel    string    `gorm:"type:varchar(255);not null;index"`
	BackendAudience string    `gorm:"type:varchar(255)"`
	Intent          string    `gorm:"type:varchar(8);not null"`
	Status          string    `gorm:"type:varchar(16);not null"`
	CreatedAt       time.Time `gorm:"not null"`
}

func (agentConnectionModel) TableName() string { return "agent_connections" }

func (m *agentConnectionModel) toDomain() *domain.AgentConnection {
	return &domain.AgentConnection{
		AgentID:   domain.AgentID{Label: m.AgentLabel, Audience: m.AgentAudience},
		RTCID:     domain.RTCID(m.RTCID),
		HandleID:  domain.HandleID(m.HandleID),
		BackendID: domain.BackendID{Label: m.BackendLabel, Audience: m.BackendAudience},
		Intent:    domain.Intent(m.Intent),
		Status:    domain.ConnectionStatus(m.Status),
		CreatedAt: m.CreatedAt,
	}
}

func agentConnectionFromDomain(c *domain.AgentConnection) *agentConnectionModel {
	return &agentConnectionModel{
		AgentLabel:      c.AgentID.Label,
		AgentAudience:   c.AgentID.Audience,
		RTCID:           uuid.UUID(c.RTCID),
		HandleID:        uint64(c.HandleID),
		BackendLabel:    c.BackendID.Label,
		BackendAudience: c.BackendID.Audience,
		Intent:          string(c.Intent),
		Status:          string(c.Status),
		CreatedAt:       c.CreatedAt,
	}
}

type backendModel struct {
	Label            string `gorm:"primaryKey;type:varchar(255)"`
	Audience         string `gorm:"primaryKey;type:varchar(255)"`
	SessionID        int64
	HandleID         uint64
	Capacity         int
	BalancerCapacity int
	Group            string `gorm:"type:varchar(255);index"`
	APIVersion       string `gorm:"type:varchar(32);index"`
	JanusURL         string `gorm:"type:varchar(512);not null"`
	CreatedAt        time.Time
	Capabilities     StringSlice `gorm:"type:jsonb"`
}

func (backendModel) TableName() string { return "janus_backends" }

func (m *backendModel) toDomain() *domain.JanusBackend {
	caps := make([]domain.BackendCapability, 0, len(m.Capabilities))
	for _, c := range m.Capabilities {
		caps = append(caps, domain.BackendCapability(c))
	}
	return &domain.JanusBackend{
		ID:               domain.BackendID{Label: m.Label, Audience: m.Audience},
		SessionID:        m.SessionID,
		HandleID:         domain.HandleID(m.HandleID),
		Capacity:         m.Capacity,
		BalancerCapacity: m.BalancerCapacity,
		Group:            m.Group,
		APIVersion:       m.APIVersion,
		JanusURL:         m.JanusURL,
		CreatedAt:        m.CreatedAt,
		Capabilities:     caps,
	}
}

func backendFromDomain(b *domain.JanusBackend) *backendModel {
	caps := make(StringSlice, 0, len(b.Capabilities))
	for _, c := range b.Capabilities {
		caps = append(caps, string(c))
	}
	return &backendModel{
		Label:            b.ID.Label,
		Audience:         b.ID.Audience,
		SessionID:        b.SessionID,
		HandleID:         uint64(b.HandleID),
		Capacity:         b.Capacity,
		BalancerCapacity: b.BalancerCapacity,
		Group:            b.Group,
		APIVersion:       b.APIVersion,
		JanusURL:         b.JanusURL,
		CreatedAt:        b.CreatedAt,
		Capabilities:     caps,
	}
}

type streamModel struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey"`
	RTCID       uuid.UUID `gorm:"type:uuid;not null;index"`
	BackendLabel    string `gorm:"type:varchar(255);not null;index"`
	BackendAudience string `gorm:"type:varchar(255)"`
	HandleID    uint64
	Label       string `gorm:"type:varchar(255)"`
	SentByLabel string `gorm:"type:varchar(255);not null"`
	SentByAudience string `gorm:"type:varchar(255)"`
	TimeLower   time.Time `gorm:"not null"`
	TimeUpper   *time.Time
	CreatedAt   time.Time
}

func (streamModel) TableName() string { return "janus_rtc_streams" }

func (m *streamModel) toDomain() *domain.JanusRtcStream {
	return &domain.JanusRtcStream{
		ID:        domain.RTCID(m.ID),
		RTCID:     domain.RTCID(m.RTCID),
		BackendID: domain.BackendID{Label: m.BackendLabel, Audience: m.BackendAudience},
		HandleID:  domain.HandleID(m.HandleID),
		Label:     m.Label,
		SentBy:    domain.AgentID{Label: m.SentByLabel, Audience: m.SentByAudience},
		Time:      domain.TimeRange{Lower: m.TimeLower, Upper: m.TimeUpper},
		CreatedAt: m.CreatedAt,
	}
}

func streamFromDomain(s *domain.JanusRtcStream) *streamModel {
	return &streamModel{
		ID:              uuid.UUID(s.ID),
		RTCID:           uuid.UUID(s.RTCID),
		BackendLabel:    s.BackendID.Label,
		BackendAudience: s.BackendID.Audience,
		HandleID:        uint64(s.HandleID),
		Label:           s.Label,
		SentByLabel:     s.SentBy.Label,
		SentByAudience:  s.SentBy.Audience,
		TimeLower:       s.Time.Lower,
		TimeUpper:       s.Time.Upper,
		CreatedAt:       s.CreatedAt,
	}
}

type recordingModel struct {
	RTCID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	StartedAt    *time.Time
	Segments     segmentsJSON `gorm:"type:jsonb"`
	Status       string       `gorm:"type:varchar(16);not null"`
	MjrDumpsURIs StringSlice  `gorm:"type:jsonb"`
}

func (recordingModel) TableName() string { return "recordings" }

func (m *recordingModel) toDomain() *domain.Recording {
	return &domain.Recording{
		RTCID:        domain.RTCID(m.RTCID),
		StartedAt:    m.StartedAt,
		Segments:     []domain.Int64Range(m.Segments),
		Status:       domain.RecordingStatus(m.Status),
		MjrDumpsURIs: []string(m.MjrDumpsURIs),
	}
}

func recordingFromDomain(r *domain.Recording) *recordingModel {
	return &recordingModel{
		RTCID:        uuid.UUID(r.RTCID),
		StartedAt:    r.StartedAt,
		Segments:     segmentsJSON(r.Segments),
		Status:       string(r.Status),
		MjrDumpsURIs: StringSlice(r.MjrDumpsURIs),
	}
}

type writerConfigModel struct {
	RTCID     uuid.UUID `gorm:"type:uuid;primaryKey"`
	SendVideo bool
	SendAudio bool
	VideoRemb *int64
	UpdatedAt time.Time
}

func (writerConfigModel) TableName() string { return "rtc_writer_configs" }

func (m *writerConfigModel) toDomain() *domain.RtcWriterConfig {
	return &domain.RtcWriterConfig{
		RTCID:     domain.RTCID(m.RTCID),
		SendVideo: m.SendVideo,
		SendAudio: m.SendAudio,
		VideoRemb: m.VideoRemb,
		UpdatedAt: m.UpdatedAt,
	}
}

func writerConfigFromDomain(c *domain.RtcWriterConfig) *writerConfigModel {
	return &writerConfigModel{
		RTCID:     uuid.UUID(c.RTCID),
		SendVideo: c.SendVideo,
		SendAudio: c.SendAudio,
		VideoRemb: c.VideoRemb,
		UpdatedAt: c.UpdatedAt,
	}
}

type writerConfigSnapshotModel struct {
	ID        uint64 `gorm:"primaryKey;autoIncrement"`
	RTCID     uuid.UUID `gorm:"type:uuid;not null;index"`
	SendVideo *bool
	SendAudio *bool
	VideoRemb *int64
	CreatedAt time.Time
}

func (writerConfigSnapshotModel) TableName() string { return "rtc_writer_config_snapshots" }

func (m *writerConfigSnapshotModel) toDomain() *domain.WriterConfigSnapshot {
	return &domain.WriterConfigSnapshot{
		RTCID: domain.RTCID(m.RTCID),
		Delta: domain.WriterConfigDelta{
			SendVideo: m.SendVideo,
			SendAudio: m.SendAudio,
			VideoRemb: m.VideoRemb,
		},
		CreatedAt: m.CreatedAt,
	}
}

func writerConfigSnapshotFromDomain(s *domain.WriterConfigSnapshot) *writerConfigSnapshotModel {
	return &writerConfigSnapshotModel{
		RTCID:     uuid.UUID(s.RTCID),
		SendVideo: s.Delta.SendVideo,
		SendAudio: s.Delta.SendAudio,
		VideoRemb: s.Delta.VideoRemb,
		CreatedAt: s.CreatedAt,
	}
}

type readerConfigModel struct {
	RTCID           uuid.UUID `gorm:"type:uuid;primaryKey"`
	ReaderLabel     string    `gorm:"primaryKey;type:varchar(255)"`
	ReaderAudience  string    `gorm:"primaryKey;type:varchar(255)"`
	ReceiveVideo    bool
	ReceiveAudio    bool
	UpdatedAt       time.Time
}

func (readerConfigModel) TableName() string { return "rtc_reader_configs" }

func (m *readerConfigModel) toDomain() *domain.RtcReaderConfig {
	return &domain.RtcReaderConfig{
		RTCID:         domain.RTCID(m.RTCID),
		ReaderAgentID: domain.AgentID{Label: m.ReaderLabel, Audience: m.ReaderAudience},
		ReceiveVideo:  m.ReceiveVideo,
		ReceiveAudio:  m.ReceiveAudio,
		UpdatedAt:     m.UpdatedAt,
	}
}

func readerConfigFromDomain(c *domain.RtcReaderConfig) *readerConfigModel {
	return &readerConfigModel{
		RTCID:          uuid.UUID(c.RTCID),
		ReaderLabel:    c.ReaderAgentID.Label,
		ReaderAudience: c.ReaderAgentID.Audience,
		ReceiveVideo:   c.ReceiveVideo,
		ReceiveAudio:   c.ReceiveAudio,
		UpdatedAt:      c.UpdatedAt,
	}
}

type groupAgentModel struct {
	RoomID   uuid.UUID `gorm:"type:uuid;primaryKey"`
	Label    string    `gorm:"primaryKey;type:varchar(255)"`
	Audience string    `gorm:"primaryKey;type:varchar(255)"`
	Number   int       `gorm:"not null;index"`
}

func (groupAgentModel) TableName() string { return "group_agents" }

func (m *groupAgentModel) toDomain() domain.GroupAgent {
	return domain.GroupAgent{
		RoomID:  domain.RoomID(m.RoomID),
		AgentID: domain.AgentID{Label: m.Label, Audience: m.Audience},
		Number:  m.Number,
	}
}

func groupAgentFromDomain(g domain.GroupAgent) *groupAgentModel {
	return &groupAgentModel{
		RoomID:   uuid.UUID(g.RoomID),
		Label:    g.AgentID.Label,
		Audience: g.AgentID.Audience,
		Number:   g.Number,
	}
}

type orphanedRoomModel struct {
	RoomID    uuid.UUID `gorm:"type:uuid;primaryKey"`
	CreatedAt time.Time `gorm:"not null"`
}

func (orphanedRoomModel) TableName() string { return "orphaned_rooms" }

func (m *orphanedRoomModel) toDomain() *domain.OrphanedRoom {
	return &domain.OrphanedRoom{RoomID: domain.RoomID(m.RoomID), CreatedAt: m.CreatedAt}
}

type outboxModel struct {
	ID                 uint64 `gorm:"primaryKey;autoIncrement"`
	EntityType         string `gorm:"type:varchar(64);not null"`
	EntityID           string `gorm:"type:varchar(64);not null"`
	Kind               string `gorm:"type:varchar(64);not null"`
	Sink               string `gorm:"type:varchar(32);not null"`
	Payload            []byte `gorm:"type:jsonb"`
	DeliveryDeadlineAt time.Time `gorm:"not null;index"`
	RetryCount         int
	ErrorKind          *string
	CreatedAt          time.Time
}

func (outboxModel) TableName() string { return "outbox_entries" }

func (m *outboxModel) toDomain() *domain.OutboxEntry {
	entry := &domain.OutboxEntry{
		ID:                 m.ID,
		EntityType:         m.EntityType,
		EntityID:           m.EntityID,
		Kind:               domain.EventKind(m.Kind),
		Sink:               domain.Sink(m.Sink),
		Payload:            m.Payload,
		DeliveryDeadlineAt: m.DeliveryDeadlineAt,
		RetryCount:         m.RetryCount,
		CreatedAt:          m.CreatedAt,
	}
	if m.ErrorKind != nil {
		slug := domain.ErrorSlug(*m.ErrorKind)
		entry.ErrorKind = &slug
	}
	return entry
}

func outboxFromDomain(e *domain.OutboxEntry) *outboxModel {
	m := &outboxModel{
		ID:                 e.ID,
		EntityType:         e.EntityType,
		EntityID:           e.EntityID,
		Kind:               string(e.Kind),
		Sink:               string(e.Sink),
		Payload:            e.Payload,
		DeliveryDeadlineAt: e.DeliveryDeadlineAt,
		RetryCount:         e.RetryCount,
		CreatedAt:          e.CreatedAt,
	}
	if e.ErrorKind != nil {
		s := string(*e.ErrorKind)
		m.ErrorKind = &s
	}
	return m
}
