// Package client is the orbweaver SDK: a thin HTTP/WebSocket wrapper around
// the daemon's API for tools, the TUI and the MCP server.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/rmax-ai/orbweaver/pkg/physics"
	"github.com/rmax-ai/orbweaver/pkg/protocol"
	"github.com/rmax-ai/orbweaver/pkg/retry"
)

// ErrRebuildInProgress mirrors the daemon's 409 on concurrent rebuilds.
var ErrRebuildInProgress = errors.New("a rebuild is already in progress")

// Client is the orbweaver SDK client.
type Client struct {
	endpoint string
	http     *http.Client
	retry    retry.Policy
}

// NewClient creates a client for the daemon at endpoint.
// endpoint defaults to "http://127.0.0.1:8090" if empty.
func NewClient(endpoint string) *Client {
	if endpoint == "" {
		endpoint = "http://127.0.0.1:8090"
	}
	return &Client{
		endpoint: strings.TrimRight(endpoint, "/"),
		http: &http.Client{
			Timeout: 10 * time.Second,
		},
		retry: retry.Policy{
			MaxAttempts: 3,
			Base:        200 * time.Millisecond,
			Multiplier:  2.0,
		},
	}
}

// Health checks the daemon's health endpoint.
func (c *Client) Health(ctx context.Context) (Health, error) {
	var out Health
	err := c.getJSON(ctx, "/v1/health", &out)
	return out, err
}

// GraphPage fetches one page of nodes and the edges internal to it.
// A limit of zero returns the whole graph on one page.
func (c *Client) GraphPage(ctx context.Context, page, limit int) (GraphPage, error) {
	var out GraphPage
	path := "/v1/graph?page=" + strconv.Itoa(page) + "&limit=" + strconv.Itoa(limit)
	err := c.getJSON(ctx, path, &out)
	return out, err
}

// Rebuild asks the daemon to rebuild the graph from its metadata store.
// A concurrent rebuild surfaces as ErrRebuildInProgress.
func (c *Client) Rebuild(ctx context.Context) (RebuildResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/v1/graph/rebuild", nil)
	if err != nil {
		return RebuildResult{}, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return RebuildResult{}, fmt.Errorf("daemon unreachable: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusConflict:
		return RebuildResult{}, ErrRebuildInProgress
	default:
		return RebuildResult{}, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	var out RebuildResult
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return RebuildResult{}, fmt.Errorf("failed to decode response: %w", err)
	}
	return out, nil
}

// UpdatePositions submits externally computed positions. The returned bool
// reports whether the daemon's rate gate applied the batch; false is not an
// error and the caller should not retry.
func (c *Client) UpdatePositions(ctx context.Context, updates []NodeUpdate) (bool, error) {
	body, err := json.Marshal(struct {
		Updates []NodeUpdate `json:"updates"`
	}{Updates: updates})
	if err != nil {
		return false, fmt.Errorf("failed to marshal updates: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/v1/nodes/positions", bytes.NewReader(body))
	if err != nil {
		return false, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return false, fmt.Errorf("daemon unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}
	var out struct {
		Applied bool `json:"applied"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return false, fmt.Errorf("failed to decode response: %w", err)
	}
	return out.Applied, nil
}

// Diagnostics fetches the lifecycle diagnostics snapshot.
func (c *Client) Diagnostics(ctx context.Context) (Diagnostics, error) {
	var out Diagnostics
	err := c.getJSON(ctx, "/v1/diagnostics", &out)
	return out, err
}

// Params fetches the active instance's simulation parameters.
func (c *Client) Params(ctx context.Context) (physics.SimulationParams, error) {
	var out physics.SimulationParams
	err := c.getJSON(ctx, "/v1/params", &out)
	return out, err
}

// Export streams the graph in the given format ("json" or "csv") into w.
func (c *Client) Export(ctx context.Context, format string, w io.Writer) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"/v1/export?format="+url.QueryEscape(format), nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("daemon unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}
	_, err = io.Copy(w, resp.Body)
	return err
}

// StreamFrames connects to the daemon's WebSocket endpoint and invokes
// handler for every decoded position frame until the context is cancelled,
// the connection drops, or the handler returns an error.
func (c *Client) StreamFrames(ctx context.Context, handler func([]protocol.WireNode) error) error {
	wsURL, err := c.websocketURL()
	if err != nil {
		return err
	}

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return fmt.Errorf("failed to dial %s: %w", wsURL, err)
	}
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	defer conn.Close()

	// Close the connection when the context ends so ReadMessage unblocks.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("stream closed: %w", err)
		}
		if msgType != websocket.BinaryMessage {
			continue
		}
		nodes, err := protocol.Decode(data)
		if err != nil {
			return fmt.Errorf("bad frame: %w", err)
		}
		if err := handler(nodes); err != nil {
			return err
		}
	}
}

func (c *Client) websocketURL() (string, error) {
	u, err := url.Parse(c.endpoint)
	if err != nil {
		return "", fmt.Errorf("bad endpoint: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	u.Path = "/ws"
	return u.String(), nil
}

// getJSON fetches path and decodes the body, retrying failures with
// backoff.
func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	return c.retry.Run(ctx, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+path, nil)
		if err != nil {
			return err
		}
		resp, err := c.http.Do(req)
		if err != nil {
			return fmt.Errorf("daemon unreachable: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("unexpected status: %d", resp.StatusCode)
		}
		return json.NewDecoder(resp.Body).Decode(out)
	})
}
