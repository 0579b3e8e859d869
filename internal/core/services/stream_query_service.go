package services

import (
	"context"

	"conference/internal/core/domain"
	"conference/internal/core/ports"
)

// streamQueryService implements rtc_stream.list, a read-only projection
// over StreamRepository.
type streamQueryService struct {
	streams ports.StreamRepository
}

func NewStreamQueryService(streams ports.StreamRepository) ports.StreamQueryService {
	return &streamQueryService{streams: streams}
}

func (s *streamQueryService) ListStreams(ctx context.Context, roomID domain.RoomID, rtcID *domain.RTCID, window *domain.TimeRange, offset, limit int) ([]*domain.JanusRtcStream, error) {
	streams, err := s.streams.ListByRoom(ctx, roomID, rtcID, window, offset, limit)
	if err != nil {
		return nil, domain.WrapError(domain.ErrDatabaseQueryFailed, "failed to list rtc streams", err)
	}
	return streams, nil
}
