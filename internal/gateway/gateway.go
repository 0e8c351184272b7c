// Package gateway is the single path for authenticated API calls. It
// attaches the bearer token, detects expiry, and performs at most one
// refresh-and-retry cycle per original request.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sportcenterhq/client-go/internal/models"
	appErrors "github.com/sportcenterhq/client-go/pkg/errors"
)

// TokenSource supplies the current access token and coordinates refreshes.
// Implemented by session.Manager; Refresh collapses concurrent callers that
// present the same stale token into a single refresh attempt.
type TokenSource interface {
	AccessToken() string
	Refresh(ctx context.Context, stale string) (*models.Credential, error)
}

// Gateway is an authenticated JSON client for the sport-center backend.
type Gateway struct {
	baseURL string
	http    *http.Client
	tokens  TokenSource
	metrics *Metrics
	logger  *zap.Logger
}

// errorEnvelope tolerates both backend error shapes:
// {"error":{"code","message"}} and {"detail":"..."}.
type errorEnvelope struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
	Detail string `json:"detail"`
}

// New constructs a Gateway. Timeout bounds every request including the body
// read; a hung backend surfaces as NETWORK_UNAVAILABLE, never a stuck call.
func New(baseURL string, timeout time.Duration, tokens TokenSource, metrics *Metrics, logger *zap.Logger) *Gateway {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Gateway{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		tokens:  tokens,
		metrics: metrics,
		logger:  logger,
	}
}

// Do round-trips a JSON request. body is marshalled when non-nil; out is
// filled when non-nil and the response carries a body. On a 401 the gateway
// asks the token source for one refresh and retries once with the new token.
func (g *Gateway) Do(ctx context.Context, method, path string, body, out interface{}) error {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode request body")
		}
	}

	token := g.tokens.AccessToken()

	for attempt := 0; ; attempt++ {
		status, respBody, err := g.roundTrip(ctx, method, path, payload, token)
		if err != nil {
			return err
		}

		if status == http.StatusUnauthorized {
			if attempt > 0 {
				// The retried token was rejected too; give up.
				return appErrors.Clone(appErrors.ErrSessionExpired, "")
			}

			cred, refreshErr := g.tokens.Refresh(ctx, token)
			if refreshErr != nil {
				g.metrics.observeRefresh("failure")
				if errors.Is(refreshErr, appErrors.ErrRefreshExpired) || errors.Is(refreshErr, appErrors.ErrSessionExpired) {
					return appErrors.Clone(appErrors.ErrSessionExpired, "")
				}
				return refreshErr
			}
			g.metrics.observeRefresh("success")
			token = cred.AccessToken
			continue
		}

		if status >= 200 && status < 300 {
			if out != nil && status != http.StatusNoContent && len(respBody) > 0 {
				if err := json.Unmarshal(respBody, out); err != nil {
					return appErrors.Wrap(err, appErrors.ErrServerError.Code, appErrors.ErrServerError.Status, "unreadable response body")
				}
			}
			return nil
		}

		return g.mapFailure(method, path, status, respBody)
	}
}

// Get issues an authenticated GET.
func (g *Gateway) Get(ctx context.Context, path string, out interface{}) error {
	return g.Do(ctx, http.MethodGet, path, nil, out)
}

// Post issues an authenticated POST.
func (g *Gateway) Post(ctx context.Context, path string, body, out interface{}) error {
	return g.Do(ctx, http.MethodPost, path, body, out)
}

// Patch issues an authenticated PATCH.
func (g *Gateway) Patch(ctx context.Context, path string, body, out interface{}) error {
	return g.Do(ctx, http.MethodPatch, path, body, out)
}

// Delete issues an authenticated DELETE.
func (g *Gateway) Delete(ctx context.Context, path string) error {
	return g.Do(ctx, http.MethodDelete, path, nil, nil)
}

func (g *Gateway) roundTrip(ctx context.Context, method, path string, payload []byte, token string) (int, []byte, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, g.baseURL+path, reader)
	if err != nil {
		return 0, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to build request")
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := g.http.Do(req)
	if err != nil {
		g.metrics.observeRequest(method, 0, time.Since(start))
		return 0, nil, appErrors.Wrap(err, appErrors.ErrNetworkUnavailable.Code, appErrors.ErrNetworkUnavailable.Status, "backend unreachable")
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		g.metrics.observeRequest(method, 0, time.Since(start))
		return 0, nil, appErrors.Wrap(err, appErrors.ErrNetworkUnavailable.Code, appErrors.ErrNetworkUnavailable.Status, "response read failed")
	}

	g.metrics.observeRequest(method, resp.StatusCode, time.Since(start))
	return resp.StatusCode, body, nil
}

func (g *Gateway) mapFailure(method, path string, status int, body []byte) error {
	envelope := errorEnvelope{}
	_ = json.Unmarshal(body, &envelope)
	code := envelope.Error.Code
	message := envelope.Error.Message
	if message == "" {
		message = envelope.Detail
	}

	g.logger.Warn("api request failed",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", status),
		zap.String("code", code),
	)

	switch {
	case code == appErrors.ErrClassFull.Code:
		return appErrors.Clone(appErrors.ErrClassFull, message)
	case code == appErrors.ErrAlreadyEnrolled.Code:
		return appErrors.Clone(appErrors.ErrAlreadyEnrolled, message)
	case status == http.StatusNotFound:
		return appErrors.Clone(appErrors.ErrNotFound, message)
	case status == http.StatusConflict:
		return appErrors.Clone(appErrors.ErrConflict, message)
	default:
		// 5xx and any 4xx the client has no contract for.
		return appErrors.Clone(appErrors.ErrServerError, fmt.Sprintf("backend returned status %d", status))
	}
}
