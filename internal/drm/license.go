package drm

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/PizzaHomicide/vidbridge/internal/log"
	"github.com/PizzaHomicide/vidbridge/internal/version"
	"github.com/google/uuid"
)

var (
	ErrNoKeyIDs       = errors.New("no content key ids")
	ErrLicenseRefused = errors.New("license server refused request")
	ErrKeyMissing     = errors.New("license did not contain a requested key")
)

// ContentKey is a decrypted content key and the key id it belongs to
type ContentKey struct {
	KID uuid.UUID
	Key []byte
}

// ClearKeyClient requests content keys from a ClearKey license server using the W3C EME JSON format
type ClearKeyClient struct {
	licenseURL string
	httpClient *http.Client
}

// NewClearKeyClient creates a license client for the given license server URL
func NewClearKeyClient(licenseURL string, httpClient *http.Client) *ClearKeyClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &ClearKeyClient{
		licenseURL: licenseURL,
		httpClient: httpClient,
	}
}

type licenseRequest struct {
	KIDs []string `json:"kids"`
	Type string   `json:"type"`
}

type jsonWebKey struct {
	Kty string `json:"kty"`
	KID string `json:"kid"`
	K   string `json:"k"`
}

type licenseResponse struct {
	Keys []jsonWebKey `json:"keys"`
}

// Acquire requests the keys for all given key ids.  Every requested key must be present in the response.
func (c *ClearKeyClient) Acquire(ctx context.Context, kids []uuid.UUID) ([]ContentKey, error) {
	if len(kids) == 0 {
		return nil, ErrNoKeyIDs
	}

	req := licenseRequest{Type: "temporary"}
	for _, kid := range kids {
		req.KIDs = append(req.KIDs, base64.RawURLEncoding.EncodeToString(kid[:]))
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal license request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.licenseURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create license request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("User-Agent", version.UserAgent())

	log.Debug("Requesting ClearKey license", "url", c.licenseURL, "kid_count", len(kids))

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("license request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("%w: status %d", ErrLicenseRefused, resp.StatusCode)
	}

	var license licenseResponse
	if err := json.NewDecoder(resp.Body).Decode(&license); err != nil {
		return nil, fmt.Errorf("failed to decode license response: %w", err)
	}

	byKID := make(map[uuid.UUID][]byte, len(license.Keys))
	for _, jwk := range license.Keys {
		if jwk.Kty != "oct" {
			log.Warn("Ignoring license key with unexpected type", "kty", jwk.Kty)
			continue
		}
		kid, err := decodeKeyField(jwk.KID)
		if err != nil || len(kid) != 16 {
			log.Warn("Ignoring license key with malformed kid", "kid", jwk.KID)
			continue
		}
		key, err := decodeKeyField(jwk.K)
		if err != nil || len(key) != 16 {
			log.Warn("Ignoring license key with malformed key", "kid", jwk.KID)
			continue
		}
		byKID[uuid.UUID(kid)] = key
	}

	keys := make([]ContentKey, 0, len(kids))
	for _, kid := range kids {
		key, ok := byKID[kid]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrKeyMissing, kid)
		}
		keys = append(keys, ContentKey{KID: kid, Key: key})
	}

	return keys, nil
}

// decodeKeyField decodes base64url, tolerating servers that pad their output
func decodeKeyField(s string) ([]byte, error) {
	if b, err := base64.RawURLEncoding.DecodeString(s); err == nil {
		return b, nil
	}
	return base64.URLEncoding.DecodeString(s)
}
