package directory

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/kamalraji/plan-it-together-sub013/pkg/models"
)

const defaultRequestTimeout = 10 * time.Second

// HTTPService talks to the platform's key directory API:
//
//	GET  /v1/users/{id}/keys/active  -> 200 bundle JSON, 404 no active key
//	POST /v1/users/{id}/keys         -> 201/204 accepted
//
// There are no retries here; callers decide their own retry policy.
type HTTPService struct {
	baseURL string
	client  *http.Client
}

func NewHTTPService(baseURL string, client *http.Client) *HTTPService {
	if client == nil {
		client = &http.Client{Timeout: defaultRequestTimeout}
	}
	return &HTTPService{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		client:  client,
	}
}

func (s *HTTPService) FetchActiveBundle(ctx context.Context, userID string) (bundle models.PublicKeyBundle, retErr error) {
	endpoint := s.baseURL + "/v1/users/" + url.PathEscape(userID) + "/keys/active"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return models.PublicKeyBundle{}, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return models.PublicKeyBundle{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil && retErr == nil {
			retErr = closeErr
		}
	}()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return models.PublicKeyBundle{}, ErrRecipientKeyNotFound
	default:
		return models.PublicKeyBundle{}, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(&bundle); err != nil {
		return models.PublicKeyBundle{}, fmt.Errorf("%w: decode bundle: %v", ErrUnavailable, err)
	}
	return bundle, nil
}

func (s *HTTPService) PublishBundle(ctx context.Context, bundle models.PublicKeyBundle) (retErr error) {
	body, err := json.Marshal(bundle)
	if err != nil {
		return err
	}
	endpoint := s.baseURL + "/v1/users/" + url.PathEscape(bundle.OwnerID) + "/keys"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil && retErr == nil {
			retErr = closeErr
		}
	}()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated, http.StatusNoContent:
		return nil
	default:
		return fmt.Errorf("%w: publish status %d", ErrUnavailable, resp.StatusCode)
	}
}
