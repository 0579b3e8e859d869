package services

import (
	"context"

	"github.com/pion/sdp/v3"

	"conference/internal/core/domain"
	"conference/internal/core/ports"
)

// signalService implements C4's signal.create/update: it classifies the
// offer's media direction (the only SDP semantics this service concerns
// itself with, per the Non-goal excluding full SDP parsing) and forwards
// the JSEP body to the agent connection's backend handle, returning
// whatever answer the backend produces. Grounded on the teacher's
// websocket_server.go offer/answer relay, generalized from a raw string
// payload to a backend transaction round trip.
type signalService struct {
	conns  ports.AgentConnectionRepository
	engine ports.TransactionEngine
}

func NewSignalService(conns ports.AgentConnectionRepository, engine ports.TransactionEngine) ports.SignalService {
	return &signalService{conns: conns, engine: engine}
}

func (s *signalService) Create(ctx context.Context, agentID domain.AgentID, rtcID domain.RTCID, jsep map[string]any) (map[string]any, error) {
	return s.exchange(ctx, agentID, rtcID, jsep, ports.ReqMessageCreate)
}

func (s *signalService) Update(ctx context.Context, agentID domain.AgentID, rtcID domain.RTCID, jsep map[string]any) (map[string]any, error) {
	return s.exchange(ctx, agentID, rtcID, jsep, ports.ReqMessageTrickle)
}

func (s *signalService) exchange(ctx context.Context, agentID domain.AgentID, rtcID domain.RTCID, jsep map[string]any, kind ports.BackendRequestKind) (map[string]any, error) {
	conn, err := s.conns.Get(ctx, agentID, rtcID)
	if err != nil {
		return nil, domain.WrapError(domain.ErrDatabaseQueryFailed, "failed to load agent connection", err)
	}
	if conn == nil {
		return nil, domain.NewError(domain.ErrAgentNotEnteredTheRoom, "agent has no connection on this rtc")
	}

	// Trickle bodies carry an ICE candidate rather than an SDP, so only
	// offers are classified.
	kindName := ports.SDPUnknown
	if kind != ports.ReqMessageTrickle {
		kindName, err = classifySDP(jsep)
		if err != nil {
			return nil, err
		}
	}

	resp, err := s.engine.Send(ctx, conn.BackendID, kind, map[string]any{
		"handle_id": uint64(conn.HandleID),
		"jsep":      jsep,
		"sdp_kind":  kindName,
	})
	if err != nil {
		return nil, err
	}
	if resp.Payload == nil {
		return nil, nil
	}
	answer, _ := resp.Payload["jsep"].(map[string]any)
	return answer, nil
}

// classifySDP extracts direction from the offer's media descriptions using
// pion/sdp/v3, reporting sendonly/recvonly/sendrecv for the session as a
// whole: direction attributes are combined across all m-lines (sendonly on
// one and recvonly on another yields sendrecv), and sendrecv is assumed
// when none is present.
func classifySDP(jsep map[string]any) (ports.SDPKind, error) {
	raw, ok := jsep["sdp"].(string)
	if !ok || raw == "" {
		return ports.SDPUnknown, domain.NewError(domain.ErrInvalidJSEPFormat, "jsep is missing an sdp field")
	}

	var parsed sdp.SessionDescription
	if err := parsed.Unmarshal([]byte(raw)); err != nil {
		return ports.SDPUnknown, domain.WrapError(domain.ErrInvalidSDPType, "failed to parse sdp", err)
	}

	sawSend, sawRecv := false, false
	for _, m := range parsed.MediaDescriptions {
		for _, attr := range m.Attributes {
			switch attr.Key {
			case "sendonly":
				sawSend = true
			case "recvonly":
				sawRecv = true
			case "sendrecv":
				sawSend, sawRecv = true, true
			}
		}
	}
	switch {
	case sawSend && sawRecv:
		return ports.SDPSendRecv, nil
	case sawSend:
		return ports.SDPSendOnly, nil
	case sawRecv:
		return ports.SDPRecvOnly, nil
	default:
		return ports.SDPSendRecv, nil
	}
}
