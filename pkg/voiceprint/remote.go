package voiceprint

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	defaultDialTimeout = 10 * time.Second
	defaultCallTimeout = 30 * time.Second

	// maxFrameSamples caps one binary frame at 32 KiB of PCM.
	maxFrameSamples = 8192
)

// ServiceError is an error reported by the embedding service.
type ServiceError struct {
	// Code is the service's business error code.
	Code int

	// Message is the service's error message.
	Message string

	// ReqID is the request ID of the failed session.
	ReqID string
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("voiceprint: service error: %s (code=%d, reqid=%s)", e.Message, e.Code, e.ReqID)
}

// Remote is an [Extractor] backed by a speaker-embedding inference
// service reachable over WebSocket.
//
// Each Extract call runs one request/response session:
//
//  1. dial the service
//  2. send a JSON start frame (request id, sample rate, dimension)
//  3. send the PCM as binary frames, little-endian float32
//  4. read one JSON result frame carrying the embedding
//
// Remote holds no persistent connection and is safe for concurrent
// use.
type Remote struct {
	url string
	cfg remoteConfig
}

var _ Extractor = (*Remote)(nil)

type remoteConfig struct {
	dim         int
	header      http.Header
	dialTimeout time.Duration
	callTimeout time.Duration
}

// RemoteOption configures a [Remote] extractor.
type RemoteOption func(*remoteConfig)

// WithDimension sets the embedding dimension the service produces.
// Default: DefaultDimension.
func WithDimension(dim int) RemoteOption {
	return func(c *remoteConfig) { c.dim = dim }
}

// WithHeader adds an HTTP header (e.g. authorization) to the WebSocket
// handshake.
func WithHeader(key, value string) RemoteOption {
	return func(c *remoteConfig) { c.header.Set(key, value) }
}

// WithDialTimeout sets the WebSocket handshake timeout.
func WithDialTimeout(d time.Duration) RemoteOption {
	return func(c *remoteConfig) { c.dialTimeout = d }
}

// WithCallTimeout bounds one whole Extract session when the caller's
// context carries no deadline of its own.
func WithCallTimeout(d time.Duration) RemoteOption {
	return func(c *remoteConfig) { c.callTimeout = d }
}

// NewRemote creates a Remote extractor for the service at url, e.g.
// "ws://127.0.0.1:7100/v1/embedding".
func NewRemote(url string, opts ...RemoteOption) *Remote {
	cfg := remoteConfig{
		dim:         DefaultDimension,
		header:      http.Header{},
		dialTimeout: defaultDialTimeout,
		callTimeout: defaultCallTimeout,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Remote{url: url, cfg: cfg}
}

type startFrame struct {
	ReqID      string `json:"reqid"`
	SampleRate int    `json:"sample_rate"`
	Dim        int    `json:"dim"`
	Format     string `json:"format"`
	Samples    int    `json:"samples"`
}

type resultFrame struct {
	ReqID     string    `json:"reqid"`
	Code      int       `json:"code"`
	Message   string    `json:"message"`
	Embedding []float32 `json:"embedding"`
}

// Extract runs one embedding session against the service.
func (r *Remote) Extract(ctx context.Context, pcm []float32) ([]float32, error) {
	if len(pcm) == 0 {
		return nil, ErrEmptyAudio
	}
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.cfg.callTimeout)
		defer cancel()
	}

	dialer := websocket.Dialer{HandshakeTimeout: r.cfg.dialTimeout}
	conn, _, err := dialer.DialContext(ctx, r.url, r.cfg.header)
	if err != nil {
		return nil, fmt.Errorf("voiceprint: connect embedding service: %w", err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		conn.SetReadDeadline(deadline)
		conn.SetWriteDeadline(deadline)
	}

	reqID := uuid.New().String()
	start := startFrame{
		ReqID:      reqID,
		SampleRate: SampleRate,
		Dim:        r.cfg.dim,
		Format:     "f32le",
		Samples:    len(pcm),
	}
	if err := conn.WriteJSON(start); err != nil {
		return nil, fmt.Errorf("voiceprint: send start frame: %w", err)
	}

	for off := 0; off < len(pcm); off += maxFrameSamples {
		end := min(off+maxFrameSamples, len(pcm))
		if err := conn.WriteMessage(websocket.BinaryMessage, Print(pcm[off:end]).Marshal()); err != nil {
			return nil, fmt.Errorf("voiceprint: send audio: %w", err)
		}
	}

	_, data, err := conn.ReadMessage()
	if err != nil {
		return nil, fmt.Errorf("voiceprint: read result: %w", err)
	}

	var res resultFrame
	if err := json.Unmarshal(data, &res); err != nil {
		return nil, fmt.Errorf("voiceprint: decode result: %w", err)
	}
	if res.Code != 0 {
		if res.ReqID == "" {
			res.ReqID = reqID
		}
		return nil, &ServiceError{Code: res.Code, Message: res.Message, ReqID: res.ReqID}
	}
	if len(res.Embedding) != r.cfg.dim {
		return nil, &DimensionError{Want: r.cfg.dim, Got: len(res.Embedding)}
	}
	return res.Embedding, nil
}

// Dimension returns the configured embedding dimension.
func (r *Remote) Dimension() int { return r.cfg.dim }
