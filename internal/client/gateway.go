package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/telenexus-admin/Api/internal/model"
)

// rawStateClosed is the safe default returned by QueryState when the gateway
// cannot be reached: the read path must always produce a state.
const rawStateClosed = "closed"

// GatewayError reports a failed control-plane call, carrying the upstream
// status and body so callers can tell configuration problems from transient
// network ones.
type GatewayError struct {
	Operation  string
	StatusCode int
	Body       string
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("gateway %s failed: status=%d body=%q", e.Operation, e.StatusCode, e.Body)
}

// GatewayClient wraps the external chat gateway's HTTP API. It is stateless;
// all knowledge of the gateway's wire shape lives here.
type GatewayClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

func NewGatewayClient(baseURL, apiKey string, timeout time.Duration) *GatewayClient {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &GatewayClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

type provisionRequest struct {
	InstanceName string `json:"instanceName"`
	QRCode       bool   `json:"qrcode"`
	Integration  string `json:"integration"`
}

// Provision creates the gateway-side resource for an instance.
func (c *GatewayClient) Provision(ctx context.Context, instanceName string) (map[string]any, error) {
	status, body, err := c.do(ctx, http.MethodPost, "/instance/create", provisionRequest{
		InstanceName: instanceName,
		QRCode:       true,
		Integration:  "WHATSAPP-BAILEYS",
	})
	if err != nil {
		return nil, fmt.Errorf("gateway provision: %w", err)
	}
	if status < 200 || status > 299 {
		return nil, &GatewayError{Operation: "provision", StatusCode: status, Body: string(body)}
	}

	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("gateway provision: failed to decode json: %w body=%q", err, string(body))
	}
	return payload, nil
}

// QueryState returns the gateway's raw connection-state string. Any transport
// or non-200 failure degrades to "closed" instead of propagating.
func (c *GatewayClient) QueryState(ctx context.Context, instanceName string) string {
	status, body, err := c.do(ctx, http.MethodGet, "/instance/connectionState/"+url.PathEscape(instanceName), nil)
	if err != nil || status != http.StatusOK {
		slog.Warn("gateway state query failed, defaulting to closed",
			"instance", instanceName, "status", status, "err", err)
		return rawStateClosed
	}

	var payload struct {
		State    string `json:"state"`
		Instance struct {
			State string `json:"state"`
		} `json:"instance"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		slog.Warn("gateway state query returned malformed body", "instance", instanceName, "err", err)
		return rawStateClosed
	}
	if payload.Instance.State != "" {
		return payload.Instance.State
	}
	if payload.State != "" {
		return payload.State
	}
	return rawStateClosed
}

// QueryQR returns the current pairing QR payload, or "" when unavailable.
func (c *GatewayClient) QueryQR(ctx context.Context, instanceName string) string {
	status, body, err := c.do(ctx, http.MethodGet, "/instance/connect/"+url.PathEscape(instanceName), nil)
	if err != nil || status != http.StatusOK {
		slog.Warn("gateway qr query failed", "instance", instanceName, "status", status, "err", err)
		return ""
	}

	var payload struct {
		Base64 string `json:"base64"`
		Code   string `json:"code"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	if payload.Base64 != "" {
		return payload.Base64
	}
	return payload.Code
}

// QueryOwnerNumber returns the phone number the instance is connected as, or
// "" when unavailable. Best-effort only.
func (c *GatewayClient) QueryOwnerNumber(ctx context.Context, instanceName string) string {
	status, body, err := c.do(ctx, http.MethodGet, "/instance/fetchInstances?instanceName="+url.QueryEscape(instanceName), nil)
	if err != nil || status != http.StatusOK {
		return ""
	}

	// The gateway answers with a single object or a one-element array
	// depending on version.
	var single fetchedInstance
	if err := json.Unmarshal(body, &single); err == nil {
		if owner := single.owner(); owner != "" {
			return owner
		}
	}
	var many []fetchedInstance
	if err := json.Unmarshal(body, &many); err == nil {
		for _, info := range many {
			if owner := info.owner(); owner != "" {
				return owner
			}
		}
	}
	return ""
}

type fetchedInstance struct {
	Instance struct {
		Owner string `json:"owner"`
	} `json:"instance"`
	Owner string `json:"owner"`
}

func (f fetchedInstance) owner() string {
	owner := f.Instance.Owner
	if owner == "" {
		owner = f.Owner
	}
	return model.TrimJIDSuffix(owner)
}

type sendTextRequest struct {
	Number string `json:"number"`
	Text   string `json:"text"`
}

// SendText delivers a text message through the instance. The recipient is
// normalized into the gateway's addressing scheme before sending.
func (c *GatewayClient) SendText(ctx context.Context, instanceName, recipient, body string) (map[string]any, error) {
	status, respBody, err := c.do(ctx, http.MethodPost, "/message/sendText/"+url.PathEscape(instanceName), sendTextRequest{
		Number: model.NormalizeRecipient(recipient),
		Text:   body,
	})
	if err != nil {
		return nil, fmt.Errorf("gateway send: %w", err)
	}
	if status < 200 || status > 299 {
		return nil, &GatewayError{Operation: "sendText", StatusCode: status, Body: string(respBody)}
	}

	var payload map[string]any
	if err := json.Unmarshal(respBody, &payload); err != nil {
		// A 2xx with an undecodable body still means the gateway accepted
		// the message.
		return map[string]any{}, nil
	}
	return payload, nil
}

// Deprovision deletes the gateway-side resource. Best-effort: the caller logs
// and continues on failure.
func (c *GatewayClient) Deprovision(ctx context.Context, instanceName string) bool {
	status, _, err := c.do(ctx, http.MethodDelete, "/instance/delete/"+url.PathEscape(instanceName), nil)
	if err != nil || status < 200 || status > 299 {
		slog.Warn("gateway deprovision failed", "instance", instanceName, "status", status, "err", err)
		return false
	}
	return true
}

// Disconnect logs the instance out of its session. Same failure policy as
// Deprovision.
func (c *GatewayClient) Disconnect(ctx context.Context, instanceName string) bool {
	status, _, err := c.do(ctx, http.MethodDelete, "/instance/logout/"+url.PathEscape(instanceName), nil)
	if err != nil || status < 200 || status > 299 {
		slog.Warn("gateway disconnect failed", "instance", instanceName, "status", status, "err", err)
		return false
	}
	return true
}

func (c *GatewayClient) do(ctx context.Context, method, path string, reqBody any) (int, []byte, error) {
	var r io.Reader
	if reqBody != nil {
		b, err := json.Marshal(reqBody)
		if err != nil {
			return 0, nil, err
		}
		r = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, r)
	if err != nil {
		return 0, nil, err
	}
	if reqBody != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("apikey", c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, body, nil
}
