package domain

import "time"

// RtcWriterConfig is the per-RTC publisher policy.
type RtcWriterConfig struct {
	RTCID      RTCID
	SendVideo  bool
	SendAudio  bool
	VideoRemb  *int64
	UpdatedAt  time.Time
}

// WriterConfigDelta is a partial update; nil fields are left unchanged.
type WriterConfigDelta struct {
	SendVideo *bool
	SendAudio *bool
	VideoRemb *int64
}

// Merge applies delta on top of c, returning the resulting config. The
// caller is responsible for persisting both the merged config and a
// snapshot row carrying only the fields set by this delta (spec §4.6, §8
// round-trip property).
func (c RtcWriterConfig) Merge(delta WriterConfigDelta, now time.Time) RtcWriterConfig {
	merged := c
	if delta.SendVideo != nil {
		merged.SendVideo = *delta.SendVideo
	}
	if delta.SendAudio != nil {
		merged.SendAudio = *delta.SendAudio
	}
	if delta.VideoRemb != nil {
		merged.VideoRemb = delta.VideoRemb
	}
	merged.UpdatedAt = now
	return merged
}

// WriterConfigSnapshot is one appended row per writer-config update,
// carrying only the fields the update actually set.
type WriterConfigSnapshot struct {
	RTCID     RTCID
	Delta     WriterConfigDelta
	CreatedAt time.Time
}

// RtcReaderConfig is the per-(rtc, reader agent) receive policy.
type RtcReaderConfig struct {
	RTCID         RTCID
	ReaderAgentID AgentID
	ReceiveVideo  bool
	ReceiveAudio  bool
	UpdatedAt     time.Time
}

// ReaderConfigDelta is a partial update for one (rtc, reader agent) row.
type ReaderConfigDelta struct {
	RTCID         RTCID
	ReaderAgentID AgentID
	ReceiveVideo  *bool
	ReceiveAudio  *bool
}

// Merge applies delta on top of c, returning the resulting config.
func (c RtcReaderConfig) Merge(delta ReaderConfigDelta, now time.Time) RtcReaderConfig {
	merged := c
	if delta.ReceiveVideo != nil {
		merged.ReceiveVideo = *delta.ReceiveVideo
	}
	if delta.ReceiveAudio != nil {
		merged.ReceiveAudio = *delta.ReceiveAudio
	}
	merged.UpdatedAt = now
	return merged
}
