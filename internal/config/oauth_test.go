package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validOAuthClient() *OAuthClientConfig {
	return &OAuthClientConfig{
		Installed: OAuthInstalled{
			ClientID:                "daycare.apps.googleusercontent.com",
			ProjectID:               "daycare-scheduler",
			AuthURI:                 "https://accounts.google.com/o/oauth2/auth",
			TokenURI:                "https://oauth2.googleapis.com/token",
			AuthProviderX509CertURL: "https://www.googleapis.com/oauth2/v1/certs",
			ClientSecret:            "secret",
			RedirectURIs:            []string{"http://localhost"},
		},
	}
}

func TestValidateOAuthClient(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*OAuthInstalled)
		wantErr bool
	}{
		{name: "valid", mutate: func(*OAuthInstalled) {}},
		{name: "missing client id", mutate: func(i *OAuthInstalled) { i.ClientID = "" }, wantErr: true},
		{name: "invalid auth uri", mutate: func(i *OAuthInstalled) { i.AuthURI = "not-a-valid-url" }, wantErr: true},
		{name: "no redirect uris", mutate: func(i *OAuthInstalled) { i.RedirectURIs = nil }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validOAuthClient()
			tt.mutate(&cfg.Installed)

			err := ValidateOAuthClient(cfg)
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), "oauth client validation failed")
		})
	}
}

func TestLoadOAuthClientFromPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "oauthClient.json")
	content := `{"installed":{"client_id":"daycare.apps.googleusercontent.com","project_id":"daycare-scheduler",` +
		`"auth_uri":"https://accounts.google.com/o/oauth2/auth","token_uri":"https://oauth2.googleapis.com/token",` +
		`"auth_provider_x509_cert_url":"https://www.googleapis.com/oauth2/v1/certs","client_secret":"secret",` +
		`"redirect_uris":["http://localhost"]}}`
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	cfg, err := LoadOAuthClientFromPath(path)
	require.NoError(t, err)
	assert.Equal(t, "daycare-scheduler", cfg.Installed.ProjectID)

	require.NoError(t, os.WriteFile(path, []byte("{"), 0600))
	_, err = LoadOAuthClientFromPath(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse oauth client file")
}
