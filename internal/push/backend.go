package push

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/webshopd/shopnotify/internal/domain"
)

const subscriptionPath = "/auth/push-subscription"

// BackendClient synchronizes the push subscription with the storefront
// backend. The subscription itself lives with the relay; these calls only
// tell the backend where to deliver.
type BackendClient struct {
	BaseURL    string
	HTTPClient *http.Client
}

func NewBackendClient(baseURL string) *BackendClient {
	return &BackendClient{BaseURL: baseURL, HTTPClient: &http.Client{}}
}

// SyncSubscription POSTs the serialized subscription under the caller's
// bearer credential. Any non-2xx answer is a BackendSyncError; the local
// subscription is never rolled back on failure.
func (b *BackendClient) SyncSubscription(ctx context.Context, record *domain.SubscriptionRecord, token string) error {
	body, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal subscription: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.BaseURL+subscriptionPath, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := b.HTTPClient.Do(req)
	if err != nil {
		return &domain.BackendSyncError{Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &domain.BackendSyncError{StatusCode: resp.StatusCode}
	}
	return nil
}

// DeleteSubscription removes the server-side record at teardown.
func (b *BackendClient) DeleteSubscription(ctx context.Context, token string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, b.BaseURL+subscriptionPath, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := b.HTTPClient.Do(req)
	if err != nil {
		return &domain.BackendSyncError{Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &domain.BackendSyncError{StatusCode: resp.StatusCode}
	}
	return nil
}
