package utils

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/jakechorley/daycare-scheduler/internal/config"
)

const (
	AuthPort       = 3000
	authTimeout    = 5 * time.Minute
	callbackPath   = "/oauth/callback"
	tokenDirName   = ".daycare-scheduler/tokens"
	tokenFilePerms = 0600
	tokenDirPerms  = 0700
)

// ScopeSheets is the only Google scope the roster publisher needs
const ScopeSheets = "https://www.googleapis.com/auth/spreadsheets"

// tokenInfoURL is overridden in tests
var tokenInfoURL = "https://oauth2.googleapis.com/tokeninfo"

// GetOAuthConfig builds the OAuth2 config for publishing rosters, redirecting
// the consent screen back to the local callback server
func GetOAuthConfig(oauthCfg *config.OAuthClientConfig) (*oauth2.Config, error) {
	oauthConfigJSON, err := json.Marshal(oauthCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal oauth config: %w", err)
	}

	googleConfig, err := google.ConfigFromJSON(oauthConfigJSON, ScopeSheets)
	if err != nil {
		return nil, fmt.Errorf("failed to create google config: %w", err)
	}
	googleConfig.RedirectURL = fmt.Sprintf("http://localhost:%d%s", AuthPort, callbackPath)

	return googleConfig, nil
}

// TokenStore keeps one OAuth token per environment on disk, plus an in-memory
// copy of the tokens it has handed out
type TokenStore struct {
	dir string

	mu     sync.Mutex
	cached map[string]*oauth2.Token
}

// NewTokenStore stores tokens under ~/.daycare-scheduler/tokens
func NewTokenStore() (*TokenStore, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get home directory: %w", err)
	}
	return NewTokenStoreAt(filepath.Join(homeDir, tokenDirName)), nil
}

// NewTokenStoreAt stores tokens in dir
func NewTokenStoreAt(dir string) *TokenStore {
	return &TokenStore{dir: dir, cached: map[string]*oauth2.Token{}}
}

func (s *TokenStore) path(env string) string {
	return filepath.Join(s.dir, fmt.Sprintf("token-%s.json", env))
}

// Load reads the token saved for env. A missing file is not an error: it
// returns nil.
func (s *TokenStore) Load(env string) (*oauth2.Token, error) {
	data, err := os.ReadFile(s.path(env))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read token file: %w", err)
	}

	var token oauth2.Token
	if err := json.Unmarshal(data, &token); err != nil {
		return nil, fmt.Errorf("failed to parse token file: %w", err)
	}
	return &token, nil
}

// Save writes the token for env, readable by the owner only
func (s *TokenStore) Save(env string, token *oauth2.Token) error {
	if err := os.MkdirAll(s.dir, tokenDirPerms); err != nil {
		return fmt.Errorf("failed to create token directory: %w", err)
	}

	data, err := json.Marshal(token)
	if err != nil {
		return fmt.Errorf("failed to marshal token: %w", err)
	}
	if err := os.WriteFile(s.path(env), data, tokenFilePerms); err != nil {
		return fmt.Errorf("failed to write token file: %w", err)
	}
	return nil
}

// Delete removes the token saved for env, if any
func (s *TokenStore) Delete(env string) error {
	if err := os.Remove(s.path(env)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete token file: %w", err)
	}
	return nil
}

// Authorize returns a token for env that carries ScopeSheets. It reuses the
// cached or saved token while valid, refreshes an expired one, and otherwise
// runs the browser consent flow. Only one caller runs the flow at a time.
func (s *TokenStore) Authorize(ctx context.Context, oauthConfig *oauth2.Config, env string, logger *zap.Logger) (*oauth2.Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if token := s.cached[env]; token != nil && token.Valid() {
		return token, nil
	}

	token, err := s.reuse(ctx, oauthConfig, env, logger)
	if err != nil {
		return nil, err
	}
	if token == nil {
		logger.Info("No usable roster publishing token, starting OAuth flow", zap.String("env", env))
		if token, err = consent(ctx, oauthConfig); err != nil {
			return nil, err
		}
		if err := checkScopes(ctx, token); err != nil {
			return nil, fmt.Errorf("token validation failed: %w", err)
		}
		if err := s.Save(env, token); err != nil {
			logger.Warn("Failed to save token", zap.Error(err))
		}
	}

	s.cached[env] = token
	return token, nil
}

// reuse returns the saved token, refreshed if it expired, or nil when a new
// consent is needed
func (s *TokenStore) reuse(ctx context.Context, oauthConfig *oauth2.Config, env string, logger *zap.Logger) (*oauth2.Token, error) {
	saved, err := s.Load(env)
	if err != nil {
		logger.Warn("Failed to load saved token", zap.Error(err))
		return nil, nil
	}
	if saved == nil {
		return nil, nil
	}

	token := saved
	if !saved.Valid() {
		if saved.RefreshToken == "" {
			return nil, nil
		}
		refreshed, err := oauthConfig.TokenSource(ctx, saved).Token()
		if err != nil {
			logger.Warn("Failed to refresh saved token", zap.Error(err))
			return nil, nil
		}
		token = refreshed
	}

	if err := checkScopes(ctx, token); err != nil {
		logger.Warn("Saved token cannot publish rosters, discarding it", zap.Error(err))
		if err := s.Delete(env); err != nil {
			logger.Warn("Failed to delete token", zap.Error(err))
		}
		return nil, nil
	}

	if token != saved {
		logger.Info("OAuth token refreshed", zap.String("env", env))
		if err := s.Save(env, token); err != nil {
			logger.Warn("Failed to save refreshed token", zap.Error(err))
		}
	}
	return token, nil
}

// checkScopes asks the tokeninfo endpoint which scopes the token was granted
func checkScopes(ctx context.Context, token *oauth2.Token) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, tokenInfoURL+"?access_token="+url.QueryEscape(token.AccessToken), nil)
	if err != nil {
		return fmt.Errorf("failed to create tokeninfo request: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call tokeninfo endpoint: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("tokeninfo request failed with status %d: %s", resp.StatusCode, string(body))
	}

	var info struct {
		Scope string `json:"scope"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return fmt.Errorf("failed to decode tokeninfo response: %w", err)
	}

	if missing := missingScopes(info.Scope); len(missing) > 0 {
		return fmt.Errorf("token is missing required scopes: %v", missing)
	}
	return nil
}

// missingScopes lists the required scopes absent from a space separated grant
func missingScopes(granted string) []string {
	grantedScopes := strings.Fields(granted)
	var missing []string
	for _, required := range []string{ScopeSheets} {
		if !slices.Contains(grantedScopes, required) {
			missing = append(missing, required)
		}
	}
	return missing
}

// consent prints the consent URL and exchanges the code the browser is
// redirected back with
func consent(ctx context.Context, oauthConfig *oauth2.Config) (*oauth2.Token, error) {
	authURL := oauthConfig.AuthCodeURL("state", oauth2.AccessTypeOffline)
	fmt.Printf("\nVisit this URL to allow roster publishing:\n%s\n\n", authURL)

	code, err := listenForAuthCallback(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get authorization code: %w", err)
	}

	token, err := oauthConfig.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange code for token: %w", err)
	}
	return token, nil
}

// callbackRouter reports the code of the first consent redirect on codes, or
// a failed redirect on errs
func callbackRouter(codes chan<- string, errs chan<- error) http.Handler {
	r := chi.NewRouter()
	r.Get(callbackPath, func(w http.ResponseWriter, req *http.Request) {
		code := req.URL.Query().Get("code")
		if code == "" {
			select {
			case errs <- fmt.Errorf("no authorization code received: %s", req.URL.Query().Get("error")):
			default:
			}
			http.Error(w, "Authorization failed", http.StatusBadRequest)
			return
		}

		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, `<html><body><h1>Roster publishing authorized</h1><p>You can close this window.</p></body></html>`)
		select {
		case codes <- code:
		default:
		}
	})
	return r
}

// listenForAuthCallback serves the redirect target until a code arrives
func listenForAuthCallback(ctx context.Context) (string, error) {
	codes := make(chan string, 1)
	errs := make(chan error, 1)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", AuthPort),
		Handler:           callbackRouter(codes, errs),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			select {
			case errs <- fmt.Errorf("server error: %w", err):
			default:
			}
		}
	}()

	timeoutCtx, cancel := context.WithTimeout(ctx, authTimeout)
	defer cancel()

	var code string
	var authErr error
	select {
	case code = <-codes:
	case authErr = <-errs:
	case <-timeoutCtx.Done():
		authErr = fmt.Errorf("authorization timeout after %v", authTimeout)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	server.Shutdown(shutdownCtx)

	return code, authErr
}
