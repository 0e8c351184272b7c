package session

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
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/sportcenterhq/client-go/internal/credstore"
	"github.com/sportcenterhq/client-go/internal/models"
	appErrors "github.com/sportcenterhq/client-go/pkg/errors"
)

// Config wires the Manager to the auth endpoints.
type Config struct {
	BaseURL      string
	ClientID     string
	ClientSecret string
	Timeout      time.Duration
}

// Manager owns the session lifecycle: login, restore, refresh, logout. It is
// the single writer of State and of the credential store. The credential
// pair is the only mutable state shared across flows; the Manager's mutex is
// the sole mutual-exclusion discipline around it.
type Manager struct {
	store     credstore.Store
	state     *State
	http      *http.Client
	config    Config
	validator *validator.Validate
	logger    *zap.Logger

	mu       sync.Mutex
	cred     *models.Credential
	identity *models.Identity
}

type loginRequest struct {
	Username string `validate:"required"`
	Password string `validate:"required"`
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// NewManager constructs a Manager instance.
func NewManager(store credstore.Store, state *State, cfg Config, validate *validator.Validate, logger *zap.Logger) *Manager {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	return &Manager{
		store:     store,
		state:     state,
		http:      &http.Client{Timeout: cfg.Timeout},
		config:    cfg,
		validator: validate,
		logger:    logger,
	}
}

// Login exchanges credentials for a token pair, persists the pair, fetches
// and persists the profile, and publishes the new session.
func (m *Manager) Login(ctx context.Context, username, password string) (*models.Identity, error) {
	if err := m.validator.Struct(loginRequest{Username: username, Password: password}); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid login payload")
	}

	m.state.publish(Snapshot{Loading: true})

	form := url.Values{}
	form.Set("grant_type", "password")
	form.Set("username", username)
	form.Set("password", password)

	tok, err := m.tokenGrant(ctx, form)
	if err != nil {
		m.state.publish(Snapshot{})
		return nil, err
	}

	cred := &models.Credential{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		IssuedAt:     time.Now().UTC(),
	}

	if err := m.store.SaveCredential(ctx, cred); err != nil {
		m.state.publish(Snapshot{})
		return nil, appErrors.Wrap(err, appErrors.ErrStorageUnavailable.Code, appErrors.ErrStorageUnavailable.Status, "failed to persist credential")
	}

	identity, err := m.fetchProfile(ctx, cred.AccessToken)
	if err != nil {
		if clearErr := m.store.Clear(ctx); clearErr != nil {
			m.logger.Warn("failed to clear credential after profile failure", zap.Error(clearErr))
		}
		m.state.publish(Snapshot{})
		return nil, err
	}

	if err := m.store.SaveIdentity(ctx, identity); err != nil {
		if clearErr := m.store.Clear(ctx); clearErr != nil {
			m.logger.Warn("failed to roll back credential after identity write failure", zap.Error(clearErr))
		}
		m.state.publish(Snapshot{})
		return nil, appErrors.Wrap(err, appErrors.ErrStorageUnavailable.Code, appErrors.ErrStorageUnavailable.Status, "failed to persist identity")
	}

	m.mu.Lock()
	m.cred = cred
	m.identity = identity
	m.mu.Unlock()

	m.state.publish(Snapshot{User: identity, Role: identity.Role, LoggedIn: true})
	m.logger.Info("logged in", zap.String("username", identity.Username), zap.String("role", string(identity.Role)))

	return identity, nil
}

// Restore republishes a persisted session without a network call. Returns
// (nil, nil) when no consistent session exists; any storage trouble degrades
// to logged-out rather than failing.
func (m *Manager) Restore(ctx context.Context) (*models.Identity, error) {
	cred, err := m.store.LoadCredential(ctx)
	if err != nil {
		if !errors.Is(err, credstore.ErrNotFound) {
			m.logger.Warn("credential storage unavailable, treating as logged out", zap.Error(err))
		}
		m.state.publish(Snapshot{})
		return nil, nil
	}
	if !cred.Complete() {
		m.discardPersisted(ctx, "incomplete credential pair")
		return nil, nil
	}

	identity, err := m.store.LoadIdentity(ctx)
	if err != nil {
		m.discardPersisted(ctx, "identity missing or unreadable")
		return nil, nil
	}

	if claims := models.ParseAccessClaims(cred.AccessToken); claims != nil && claims.UserID != 0 && claims.UserID != identity.ID {
		m.discardPersisted(ctx, "credential does not match identity")
		return nil, nil
	}

	m.mu.Lock()
	m.cred = cred
	m.identity = identity
	m.mu.Unlock()

	m.state.publish(Snapshot{User: identity, Role: identity.Role, LoggedIn: true})
	return identity, nil
}

// Refresh exchanges the refresh token for a new pair. stale is the access
// token the caller saw rejected; when another caller already refreshed past
// it the current pair is returned without a network call, so concurrent 401s
// collapse into a single refresh attempt.
func (m *Manager) Refresh(ctx context.Context, stale string) (*models.Credential, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.cred == nil {
		return nil, appErrors.Clone(appErrors.ErrSessionExpired, "")
	}
	if stale != "" && m.cred.AccessToken != stale {
		cred := *m.cred
		return &cred, nil
	}

	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", m.cred.RefreshToken)

	tok, err := m.tokenGrant(ctx, form)
	if err != nil {
		if errors.Is(err, appErrors.ErrInvalidCredentials) {
			m.teardownLocked(ctx)
			return nil, appErrors.Clone(appErrors.ErrRefreshExpired, "")
		}
		return nil, err
	}

	cred := &models.Credential{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		IssuedAt:     time.Now().UTC(),
	}

	if err := m.store.SaveCredential(ctx, cred); err != nil {
		// The in-memory session stays valid; only restore after a process
		// restart is lost.
		m.logger.Warn("failed to persist refreshed credential", zap.Error(err))
	}

	m.cred = cred
	out := *cred
	return &out, nil
}

// Logout clears all persisted and in-memory session state. The logged-out
// snapshot is published before returning.
func (m *Manager) Logout(ctx context.Context) error {
	m.mu.Lock()
	m.cred = nil
	m.identity = nil
	m.mu.Unlock()

	clearErr := m.store.Clear(ctx)
	m.state.publish(Snapshot{})

	if clearErr != nil {
		return appErrors.Wrap(clearErr, appErrors.ErrStorageUnavailable.Code, appErrors.ErrStorageUnavailable.Status, "failed to clear credential store")
	}
	return nil
}

// Register creates a member account. Registration is unauthenticated; the
// backend forces new accounts into the member role.
func (m *Manager) Register(ctx context.Context, req models.RegisterRequest) (*models.Identity, error) {
	req.Role = string(models.RoleMember)
	if err := m.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid registration payload")
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode registration")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, m.config.BaseURL+"/register", bytes.NewReader(payload))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to build registration request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := m.http.Do(httpReq)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrNetworkUnavailable.Code, appErrors.ErrNetworkUnavailable.Status, "registration request failed")
	}
	defer resp.Body.Close() //nolint:errcheck

	body, _ := io.ReadAll(resp.Body)
	switch {
	case resp.StatusCode == http.StatusCreated || resp.StatusCode == http.StatusOK:
		identity := &models.Identity{}
		if err := json.Unmarshal(body, identity); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrServerError.Code, appErrors.ErrServerError.Status, "unreadable registration response")
		}
		return identity, nil
	case resp.StatusCode == http.StatusBadRequest:
		fields := map[string]json.RawMessage{}
		if json.Unmarshal(body, &fields) == nil {
			if _, taken := fields["username"]; taken {
				return nil, appErrors.Clone(appErrors.ErrConflict, "username already taken")
			}
		}
		return nil, appErrors.Clone(appErrors.ErrValidation, "registration rejected")
	default:
		return nil, appErrors.Clone(appErrors.ErrServerError, fmt.Sprintf("registration failed with status %d", resp.StatusCode))
	}
}

// Whoami re-fetches the profile with the current access token and updates
// the persisted identity.
func (m *Manager) Whoami(ctx context.Context) (*models.Identity, error) {
	token := m.AccessToken()
	if token == "" {
		return nil, appErrors.Clone(appErrors.ErrSessionExpired, "")
	}

	identity, err := m.fetchProfile(ctx, token)
	if err != nil {
		return nil, err
	}

	if err := m.store.SaveIdentity(ctx, identity); err != nil {
		m.logger.Warn("failed to persist refreshed identity", zap.Error(err))
	}

	m.mu.Lock()
	m.identity = identity
	m.mu.Unlock()
	m.state.publish(Snapshot{User: identity, Role: identity.Role, LoggedIn: true})

	return identity, nil
}

// AccessToken returns the current access token, or empty when logged out.
// Blocks while a refresh is in flight so callers pick up the fresh token.
func (m *Manager) AccessToken() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cred == nil {
		return ""
	}
	return m.cred.AccessToken
}

func (m *Manager) tokenGrant(ctx context.Context, form url.Values) (*tokenResponse, error) {
	form.Set("client_id", m.config.ClientID)
	if m.config.ClientSecret != "" {
		form.Set("client_secret", m.config.ClientSecret)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.config.BaseURL+"/token", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to build token request")
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := m.http.Do(req)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrNetworkUnavailable.Code, appErrors.ErrNetworkUnavailable.Status, "token endpoint unreachable")
	}
	defer resp.Body.Close() //nolint:errcheck

	switch {
	case resp.StatusCode == http.StatusOK:
		tok := &tokenResponse{}
		if err := json.NewDecoder(resp.Body).Decode(tok); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrServerError.Code, appErrors.ErrServerError.Status, "unreadable token response")
		}
		if tok.AccessToken == "" || tok.RefreshToken == "" {
			return nil, appErrors.Clone(appErrors.ErrServerError, "token response missing token pair")
		}
		return tok, nil
	case resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusUnauthorized:
		return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "")
	default:
		return nil, appErrors.Clone(appErrors.ErrServerError, fmt.Sprintf("token endpoint returned status %d", resp.StatusCode))
	}
}

func (m *Manager) fetchProfile(ctx context.Context, accessToken string) (*models.Identity, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.config.BaseURL+"/profile", nil)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to build profile request")
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := m.http.Do(req)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrNetworkUnavailable.Code, appErrors.ErrNetworkUnavailable.Status, "profile endpoint unreachable")
	}
	defer resp.Body.Close() //nolint:errcheck

	switch {
	case resp.StatusCode == http.StatusOK:
		identity := &models.Identity{}
		if err := json.NewDecoder(resp.Body).Decode(identity); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrServerError.Code, appErrors.ErrServerError.Status, "unreadable profile response")
		}
		return identity, nil
	case resp.StatusCode == http.StatusUnauthorized:
		return nil, appErrors.Clone(appErrors.ErrSessionExpired, "")
	default:
		return nil, appErrors.Clone(appErrors.ErrServerError, fmt.Sprintf("profile endpoint returned status %d", resp.StatusCode))
	}
}

// discardPersisted drops inconsistent persisted state and publishes logged-out.
func (m *Manager) discardPersisted(ctx context.Context, reason string) {
	m.logger.Warn("discarding persisted session", zap.String("reason", reason))
	if err := m.store.Clear(ctx); err != nil {
		m.logger.Warn("failed to clear persisted session", zap.Error(err))
	}
	m.state.publish(Snapshot{})
}

// teardownLocked forces the session to logged-out. Caller holds m.mu.
func (m *Manager) teardownLocked(ctx context.Context) {
	m.cred = nil
	m.identity = nil
	if err := m.store.Clear(ctx); err != nil {
		m.logger.Warn("failed to clear credential store on session teardown", zap.Error(err))
	}
	m.state.publish(Snapshot{})
}
