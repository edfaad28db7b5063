package capability

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/tinypirate/tinypirate/pkg/command"
	"github.com/tinypirate/tinypirate/pkg/eventlog"
)

// HTTPBridge forwards a Command to an external automation driver (e.g.
// the browser automation that physically drives an image-generation site)
// over a local HTTP endpoint. The driver is opaque: it may take seconds
// and it may fail; the bridge only translates the wire reply into events.
type HTTPBridge struct {
	name     string
	endpoint string
	client   *http.Client
}

type bridgeRequest struct {
	CommandID  string `json:"command_id"`
	Kind       string `json:"kind"`
	Source     string `json:"source"`
	Payload    string `json:"payload"`
	Attachment string `json:"attachment,omitempty"`
}

type bridgeReply struct {
	OK     bool   `json:"ok"`
	Result string `json:"result,omitempty"`
	Error  string `json:"error,omitempty"`
}

// NewHTTPBridge creates a bridge capability for one automation endpoint.
func NewHTTPBridge(name, endpoint string, timeout time.Duration) *HTTPBridge {
	if timeout <= 0 {
		timeout = 90 * time.Second
	}
	return &HTTPBridge{
		name:     name,
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
	}
}

func (b *HTTPBridge) Name() string { return b.name }

func (b *HTTPBridge) Invoke(ctx context.Context, cmd command.Command) ([]eventlog.Draft, error) {
	body, err := json.Marshal(bridgeRequest{
		CommandID:  cmd.ID,
		Kind:       string(cmd.Kind),
		Source:     cmd.Source,
		Payload:    cmd.Payload,
		Attachment: cmd.Attachment,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("automation %s unreachable: %w", b.name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("automation %s returned status %d", b.name, resp.StatusCode)
	}

	var reply bridgeReply
	if err := json.NewDecoder(resp.Body).Decode(&reply); err != nil {
		return nil, fmt.Errorf("automation %s sent invalid reply: %w", b.name, err)
	}
	if !reply.OK {
		return nil, fmt.Errorf("automation %s failed: %s", b.name, reply.Error)
	}

	return []eventlog.Draft{
		eventlog.Status(fmt.Sprintf("%s accepted: %s", b.name, cmd.Payload)),
		eventlog.Text(reply.Result),
	}, nil
}
