package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"conference/internal/core/domain"
	"conference/internal/core/ports"
	rlog "conference/pkg/logger"

	"go.uber.org/zap"
)

// JanusClient is an HTTP long-poll client to one or more Janus backends,
// grounded on the request/response pairing in
// original_source/src/backend/janus/client.go, generalized to Go's
// net/http. One underlying *http.Client is shared (connection pooling);
// per-backend request URLs are resolved from the backend's JanusURL.
type JanusClient struct {
	http *http.Client

	mu       sync.RWMutex
	backends map[domain.BackendID]string // backend id -> base URL

	logger *zap.SugaredLogger
}

func NewJanusClient() *JanusClient {
	return &JanusClient{
		http:     &http.Client{Timeout: 15 * time.Second},
		backends: make(map[domain.BackendID]string),
		logger:   rlog.New("info").Sugar(),
	}
}

// Register associates a backend id with its base URL, called when a
// JanusBackend row is upserted.
func (c *JanusClient) Register(backendID domain.BackendID, baseURL string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.backends[backendID] = baseURL
}

func (c *JanusClient) Unregister(backendID domain.BackendID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.backends, backendID)
}

type wireRequest struct {
	Transaction string                     `json:"transaction"`
	Janus       ports.BackendRequestKind    `json:"janus"`
	Body        map[string]any              `json:"body,omitempty"`
}

// Send implements Engine's Client interface: it POSTs the request frame and
// leaves response demultiplexing to the poller's read loop (the HTTP
// request/response here only confirms the backend accepted the frame; the
// Janus wire protocol delivers the actual plugin reply asynchronously over
// the same transaction id via the long-poll event channel).
func (c *JanusClient) Send(ctx context.Context, backendID domain.BackendID, transactionID string, kind ports.BackendRequestKind, body map[string]any) error {
	c.mu.RLock()
	baseURL, ok := c.backends[backendID]
	c.mu.RUnlock()
	if !ok {
		return domain.NewError(domain.ErrBackendNotFound, "backend is not registered with the transaction engine")
	}

	payload, err := json.Marshal(wireRequest{Transaction: transactionID, Janus: kind, Body: body})
	if err != nil {
		return domain.WrapError(domain.ErrMessageBuildingFailed, "failed to encode backend request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL, bytes.NewReader(payload))
	if err != nil {
		return domain.WrapError(domain.ErrMessageBuildingFailed, "failed to build backend request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return domain.WrapError(domain.ErrBackendRequestFailed, "backend request transport failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return domain.NewError(domain.ErrBackendRequestFailed, fmt.Sprintf("backend returned HTTP %d", resp.StatusCode))
	}
	return nil
}
