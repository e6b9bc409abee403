package shared

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

// ClientCredentials is a client-credentials grant key pair.
type ClientCredentials struct {
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
}

func (c ClientCredentials) Empty() bool {
	return c.ClientID == "" || c.ClientSecret == ""
}

type credentialsFile struct {
	Spotify ClientCredentials `json:"spotify"`
}

// LoadCredentialsFile reads Spotify credentials from a credentials.json file of the form
// {"spotify": {"client_id": "...", "client_secret": "..."}}.
func LoadCredentialsFile(path string) (ClientCredentials, error) {
	data, err := os.ReadFile(ExpandPath(path))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return ClientCredentials{}, fmt.Errorf("%w: %s does not exist", ErrMissingCredentials, path)
		}
		return ClientCredentials{}, fmt.Errorf("failed to read credentials file: %w", err)
	}

	var f credentialsFile
	if err := json.Unmarshal(data, &f); err != nil {
		return ClientCredentials{}, fmt.Errorf("%w: failed to parse %s: %v", ErrInvalidConfig, path, err)
	}

	if f.Spotify.Empty() {
		return ClientCredentials{}, fmt.Errorf("%w: spotify client_id/client_secret not set in %s", ErrMissingCredentials, path)
	}

	return f.Spotify, nil
}

// SpotifyCredentials resolves credentials from the config, falling back to the credentials file.
func (c *Config) SpotifyCredentials() (ClientCredentials, error) {
	creds := ClientCredentials{ClientID: c.Spotify.ClientID, ClientSecret: c.Spotify.ClientSecret}
	if !creds.Empty() {
		return creds, nil
	}
	if c.Spotify.CredentialsPath == "" {
		return ClientCredentials{}, fmt.Errorf("%w: spotify client_id/client_secret not configured", ErrMissingCredentials)
	}
	return LoadCredentialsFile(c.Spotify.CredentialsPath)
}
