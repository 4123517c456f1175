package marketplace

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/LsSens/backend-erp/internal/domain"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

const defaultMercadoLivreURL = "https://api.mercadolibre.com"

// MercadoLivreConfig holds the OAuth application credentials.
type MercadoLivreConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
	CodeVerifier string

	// BaseURL overrides the API host, for tests.
	BaseURL string
	Timeout time.Duration
}

// MercadoLivre exchanges authorization codes against the Mercado Livre API.
type MercadoLivre struct {
	cfg     MercadoLivreConfig
	client  *http.Client
	breaker *gobreaker.CircuitBreaker
	logger  *zap.Logger
}

var _ Exchanger = (*MercadoLivre)(nil)

type mercadoLivreToken struct {
	AccessToken  string      `json:"access_token"`
	RefreshToken string      `json:"refresh_token"`
	TokenType    string      `json:"token_type"`
	ExpiresIn    int         `json:"expires_in"`
	UserID       json.Number `json:"user_id"`
}

type mercadoLivreUser struct {
	ID       json.Number `json:"id"`
	Nickname string      `json:"nickname"`
}

// NewMercadoLivre creates the adapter. All calls share one circuit breaker.
func NewMercadoLivre(cfg MercadoLivreConfig, logger *zap.Logger) *MercadoLivre {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultMercadoLivreURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("mercadolivre")

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "mercadolivre",
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("Circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})

	return &MercadoLivre{
		cfg:     cfg,
		client:  &http.Client{Timeout: cfg.Timeout},
		breaker: breaker,
		logger:  logger,
	}
}

// Exchange trades code for tokens, then reads the seller's profile.
func (m *MercadoLivre) Exchange(ctx context.Context, code string) (*domain.AuthInfo, error) {
	token, err := m.exchangeToken(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange token: %w", err)
	}

	user, err := m.fetchUser(ctx, token.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch user info: %w", err)
	}

	sellerID := token.UserID.String()
	if sellerID == "" {
		sellerID = user.ID.String()
	}

	return &domain.AuthInfo{
		MarketplaceType: domain.MarketplaceMercadoLivre,
		AccessToken:     token.AccessToken,
		RefreshToken:    token.RefreshToken,
		SellerID:        sellerID,
		StoreName:       user.Nickname,
	}, nil
}

func (m *MercadoLivre) exchangeToken(ctx context.Context, code string) (*mercadoLivreToken, error) {
	body, err := json.Marshal(map[string]string{
		"grant_type":    "authorization_code",
		"code":          code,
		"client_id":     m.cfg.ClientID,
		"client_secret": m.cfg.ClientSecret,
		"redirect_uri":  m.cfg.RedirectURI,
		"code_verifier": m.cfg.CodeVerifier,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.cfg.BaseURL+"/oauth/token", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	var token mercadoLivreToken
	if err := m.do(req, &token); err != nil {
		return nil, err
	}
	if token.AccessToken == "" {
		return nil, fmt.Errorf("token response has no access_token")
	}
	return &token, nil
}

func (m *MercadoLivre) fetchUser(ctx context.Context, accessToken string) (*mercadoLivreUser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.cfg.BaseURL+"/users/me", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create user request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")

	var user mercadoLivreUser
	if err := m.do(req, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// do sends req through the breaker and decodes a 2xx JSON body into out.
func (m *MercadoLivre) do(req *http.Request, out interface{}) error {
	start := time.Now()
	_, err := m.breaker.Execute(func() (interface{}, error) {
		resp, err := m.client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("request failed: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return nil, fmt.Errorf("failed to decode response: %w", err)
		}
		return nil, nil
	})

	if err != nil {
		m.logger.Warn("Mercado Livre request failed",
			zap.String("method", req.Method),
			zap.String("path", req.URL.Path),
			zap.Duration("duration", time.Since(start)),
			zap.Error(err))
	}
	return err
}
