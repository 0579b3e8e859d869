package domain

import "time"

// JanusRtcStream is an active (or historical) publisher stream on a
// backend. Time.Upper is nil while the stream is live.
type JanusRtcStream struct {
	ID        RTCID
	RTCID     RTCID
	BackendID BackendID
	HandleID  HandleID
	Label     string
	SentBy    AgentID
	Time      TimeRange
	CreatedAt time.Time
}

// Live reports whether the stream has not yet stopped.
func (s *JanusRtcStream) Live() bool { return s.Time.Upper == nil }

// Stop bounds the stream's Time.Upper at t, transitioning
// created -> stopped per the JanusRtcStream state machine (spec §4.1).
func (s *JanusRtcStream) Stop(t time.Time) {
	if s.Time.Upper != nil {
		return
	}
	s.Time.Upper = &t
}
