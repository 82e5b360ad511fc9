// Package alpaca provides an ASCOM Alpaca protocol client with classified
// error reporting.
package alpaca

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/openskies/alpaca-console/internal/models"
)

const defaultTimeout = 30 * time.Second

// Client is a typed request/response client for one Alpaca device.
type Client struct {
	httpClient   *http.Client
	logger       *zap.Logger
	baseURL      string
	deviceType   models.DeviceType
	deviceNumber int
	clientID     int32
	transaction  int32 // atomic counter for transaction IDs
}

// NewClient creates a client for the device at baseURL.
func NewClient(baseURL string, deviceType models.DeviceType, deviceNumber int, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
		logger:       logger.With(zap.String("component", "alpaca_client"), zap.String("device_type", string(deviceType))),
		baseURL:      baseURL,
		deviceType:   deviceType,
		deviceNumber: deviceNumber,
		clientID:     1, // Static client ID
	}
}

// nextTransactionID generates the next transaction ID.
func (c *Client) nextTransactionID() int32 {
	return atomic.AddInt32(&c.transaction, 1)
}

// BuildURL constructs the Alpaca API endpoint URL for a property or method.
func (c *Client) BuildURL(methodOrProperty string) string {
	return fmt.Sprintf("%s/api/v1/%s/%d/%s",
		c.baseURL, c.deviceType, c.deviceNumber, methodOrProperty)
}

// GetProperty fetches a named property and returns it as a typed value.
func (c *Client) GetProperty(ctx context.Context, name string) (models.PropertyValue, error) {
	body, err := c.get(ctx, name)
	if err != nil {
		return models.Null(), err
	}

	var apiResp models.AlpacaValueResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return models.Null(), &Error{Kind: ErrorUnknown, Action: name, Err: fmt.Errorf("unmarshal response: %w", err)}
	}

	if apiResp.ErrorNumber != 0 {
		return models.Null(), &Error{
			Kind:          ErrorDevice,
			Action:        name,
			DeviceCode:    apiResp.ErrorNumber,
			DeviceMessage: apiResp.ErrorMessage,
		}
	}

	return models.FromAny(apiResp.Value), nil
}

// SetProperty writes a named property. The Alpaca convention capitalizes the
// form parameter name, e.g. PUT connected with Connected=true.
func (c *Client) SetProperty(ctx context.Context, name string, value interface{}) error {
	_, err := c.put(ctx, name, map[string]interface{}{
		canonicalParam(name): value,
	})
	return err
}

// CallMethod invokes a device method via PUT with named arguments.
func (c *Client) CallMethod(ctx context.Context, name string, params map[string]interface{}) (models.PropertyValue, error) {
	body, err := c.put(ctx, name, params)
	if err != nil {
		return models.Null(), err
	}

	var apiResp models.AlpacaValueResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		// Methods without a return value respond with the bare envelope.
		return models.Null(), nil
	}
	return models.FromAny(apiResp.Value), nil
}

// GetRaw fetches an endpoint with a custom Accept header and returns the
// raw body. Used for binary imagebytes downloads.
func (c *Client) GetRaw(ctx context.Context, name, accept string) ([]byte, error) {
	endpoint := c.BuildURL(name)

	params := url.Values{}
	params.Add("ClientID", fmt.Sprintf("%d", c.clientID))
	params.Add("ClientTransactionID", fmt.Sprintf("%d", c.nextTransactionID()))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, &Error{Kind: ErrorUnknown, Action: name, Err: err}
	}
	if accept != "" {
		req.Header.Set("Accept", accept)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, classifyTransport(name, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, classifyTransport(name, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &Error{Kind: ErrorServer, Action: name, StatusCode: resp.StatusCode}
	}

	return body, nil
}

// get executes a GET request and returns the response body after HTTP-level
// classification. Envelope-level errors are left to the caller.
func (c *Client) get(ctx context.Context, name string) ([]byte, error) {
	return c.GetRaw(ctx, name, "")
}

// put executes a form-encoded PUT request and classifies both HTTP and
// envelope-level failures.
func (c *Client) put(ctx context.Context, name string, params map[string]interface{}) ([]byte, error) {
	endpoint := c.BuildURL(name)

	formData := url.Values{}
	formData.Add("ClientID", fmt.Sprintf("%d", c.clientID))
	formData.Add("ClientTransactionID", fmt.Sprintf("%d", c.nextTransactionID()))
	for key, value := range params {
		formData.Add(key, fmt.Sprintf("%v", value))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, endpoint, bytes.NewBufferString(formData.Encode()))
	if err != nil {
		return nil, &Error{Kind: ErrorUnknown, Action: name, Err: err}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, classifyTransport(name, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, classifyTransport(name, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &Error{Kind: ErrorServer, Action: name, StatusCode: resp.StatusCode}
	}

	var apiResp models.AlpacaResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return nil, &Error{Kind: ErrorUnknown, Action: name, Err: fmt.Errorf("unmarshal response: %w", err)}
	}

	if apiResp.ErrorNumber != 0 {
		return nil, &Error{
			Kind:          ErrorDevice,
			Action:        name,
			DeviceCode:    apiResp.ErrorNumber,
			DeviceMessage: apiResp.ErrorMessage,
		}
	}

	return body, nil
}

// canonicalParam maps a property name to its Alpaca form parameter casing.
func canonicalParam(name string) string {
	switch name {
	case "connected":
		return "Connected"
	case "tracking":
		return "Tracking"
	case "cooleron":
		return "CoolerOn"
	case "tempcomp":
		return "TempComp"
	case "position":
		return "Position"
	default:
		if name == "" {
			return name
		}
		return strings.ToUpper(name[:1]) + name[1:]
	}
}

// Verify Client implements the transport interface.
var _ DeviceTransport = (*Client)(nil)
