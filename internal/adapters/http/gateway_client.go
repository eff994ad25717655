package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/viacare/clinic-relay-service/internal/domain"
	"github.com/viacare/clinic-relay-service/pkg/logger"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// GatewayClient talks to the WhatsApp-style messaging gateway. Media
// downloads are rate limited because the gateway throttles bursty binary
// fetches much sooner than message sends.
type GatewayClient struct {
	BaseURL      string
	HTTPClient   *http.Client
	mediaLimiter *rate.Limiter
}

// NewGatewayClient creates a new gateway API client
func NewGatewayClient(baseURL string) *GatewayClient {
	return &GatewayClient{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		mediaLimiter: rate.NewLimiter(rate.Limit(5), 10),
	}
}

// DownloadMedia fetches an attachment's binary from the gateway. It returns
// the raw bytes plus the content type the gateway reported, which may be
// empty.
func (c *GatewayClient) DownloadMedia(ctx context.Context, cfg *domain.ChannelConfig, media *domain.MediaDescriptor) ([]byte, string, error) {
	if err := c.mediaLimiter.Wait(ctx); err != nil {
		return nil, "", fmt.Errorf("media download rate limit: %w", err)
	}

	url := media.URL
	if url == "" {
		url = fmt.Sprintf("%s/instances/%s/media/%s", c.BaseURL, cfg.GatewayInstanceKey, media.ID)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create request: %w", err)
	}
	// Media URLs in webhook payloads can point at third-party CDN hosts.
	// The tenant's credential only goes to the gateway itself.
	if strings.HasPrefix(url, c.BaseURL+"/") {
		req.Header.Set("apikey", cfg.GatewayAPIKey)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, "", &domain.UpstreamAPIError{
			Platform: domain.PlatformGateway,
			Status:   resp.StatusCode,
			Endpoint: url,
			Body:     string(body),
		}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read media body: %w", err)
	}

	logger.Base().Debug("Gateway media downloaded",
		zap.String("media_id", media.ID),
		zap.Int("bytes", len(data)))
	return data, resp.Header.Get("Content-Type"), nil
}

// gatewaySendResponse is the gateway's answer to a send call
type gatewaySendResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// SendText delivers a plain text message to a phone number through the
// tenant's gateway instance.
func (c *GatewayClient) SendText(ctx context.Context, cfg *domain.ChannelConfig, phone, text string) error {
	url := fmt.Sprintf("%s/instances/%s/messages/text", c.BaseURL, cfg.GatewayInstanceKey)

	payload, err := json.Marshal(map[string]string{
		"phone": phone,
		"text":  text,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("apikey", cfg.GatewayAPIKey)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return &domain.UpstreamAPIError{
			Platform: domain.PlatformGateway,
			Status:   resp.StatusCode,
			Endpoint: url,
			Body:     string(body),
		}
	}

	var response gatewaySendResponse
	if len(body) > 0 {
		if err := json.Unmarshal(body, &response); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
		if !response.Success && response.Message != "" {
			return &domain.UpstreamAPIError{
				Platform: domain.PlatformGateway,
				Status:   resp.StatusCode,
				Endpoint: url,
				Body:     response.Message,
			}
		}
	}

	logger.Base().Debug("Gateway text sent", zap.String("phone", phone), zap.Int("chars", len(text)))
	return nil
}
