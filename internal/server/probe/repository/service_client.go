package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Alwanly/detect-probe/internal/models"
	"github.com/Alwanly/detect-probe/pkg/logger"
	"github.com/Alwanly/detect-probe/pkg/retry"
)

const (
	HeaderPlatform = "dos"
	HeaderDat      = "dat"
	HeaderToken    = "token"
	HeaderAccount  = "account"

	registerPath = "/detect/endpoint"
)

var ErrRegistrationDenied = errors.New("registration denied")

type serviceClient struct {
	httpClient *http.Client
	identity   models.AgentIdentity
	logger     *logger.CanonicalLogger
}

// NewServiceClient creates a new detection service client
func NewServiceClient(identity models.AgentIdentity, timeout time.Duration, log *logger.CanonicalLogger) IServiceClient {
	return &serviceClient{
		httpClient: &http.Client{Timeout: timeout},
		identity:   identity,
		logger:     log,
	}
}

func (c *serviceClient) Poll(ctx context.Context, previous *models.ReportedStatus) (models.PollResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.identity.ServiceURL, nil)
	if err != nil {
		return models.PollResult{}, fmt.Errorf("failed to create request: %w", err)
	}

	dat := models.EncodeStatus(previous)
	req.Header.Set(HeaderPlatform, c.identity.Platform)
	req.Header.Set(HeaderDat, dat)
	req.Header.Set(HeaderToken, c.identity.Token)

	c.logger.Debug("polling service",
		logger.String(logger.FieldServiceURL, c.identity.ServiceURL),
		logger.String(logger.FieldPlatform, c.identity.Platform),
		logger.String(logger.FieldDat, dat),
		logger.String(logger.FieldCycleID, logger.GetCorrelationID(ctx)),
	)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return models.PollResult{}, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusBadRequest {
		_, _ = io.Copy(io.Discard, resp.Body)
		return models.NoTask(resp.StatusCode, models.NoTaskRejected), nil
	}

	final := resp.Request.URL
	if c.identity.TrustedAuthority != "" && !strings.EqualFold(final.Hostname(), c.identity.TrustedAuthority) {
		c.logger.Warn("discarding response from untrusted authority",
			logger.String(logger.FieldAuthority, final.Hostname()),
		)
		return models.NoTask(resp.StatusCode, models.NoTaskUntrustedAuthority), nil
	}

	name := lastSegment(final)
	if name == "" {
		return models.NoTask(resp.StatusCode, models.NoTaskEmpty), nil
	}

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return models.PollResult{}, fmt.Errorf("failed to read task %s: %w", name, err)
	}

	return models.PollResult{
		StatusCode: resp.StatusCode,
		Task: &models.Task{
			ResourceName: name,
			Payload:      payload,
			OriginHost:   final.Hostname(),
		},
	}, nil
}

func (c *serviceClient) Register(ctx context.Context, accountID, accountSecret, name string) (string, error) {
	body, err := json.Marshal(models.RegistrationRequest{ID: name})
	if err != nil {
		return "", fmt.Errorf("failed to marshal registration request: %w", err)
	}

	endpoint := c.identity.ServiceURL + registerPath
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(HeaderAccount, accountID)
	req.Header.Set(HeaderToken, accountSecret)

	// Set GetBody for retry support
	buf := body
	req.GetBody = func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(buf)), nil
	}

	c.logger.Debug("sending registration request",
		logger.String("url", endpoint),
		logger.String("name", name),
	)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read registration response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return "", retry.Permanent(fmt.Errorf("%w: status %d: %s", ErrRegistrationDenied, resp.StatusCode, string(respBody)))
	case resp.StatusCode != http.StatusOK:
		return "", fmt.Errorf("registration failed with status %d: %s", resp.StatusCode, string(respBody))
	}

	token := strings.TrimSpace(string(respBody))
	if token == "" {
		return "", errors.New("registration returned an empty token")
	}
	return token, nil
}

// lastSegment returns the final path component, empty for "/" or a trailing slash.
func lastSegment(u *url.URL) string {
	if u == nil {
		return ""
	}
	parts := strings.Split(u.Path, "/")
	return parts[len(parts)-1]
}
