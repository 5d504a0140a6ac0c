// workers/plan_sync_worker.go
package workers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"time"

	"trade-match-system/models"
	"trade-match-system/utils"

	"gorm.io/gorm"
)

// SubscriptionChange is one plan update reported by the billing service.
type SubscriptionChange struct {
	ExternalUserID string    `json:"external_user_id"`
	Plan           string    `json:"plan"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// BillingSyncClient polls the billing service for subscription changes and
// mirrors them into trade_profiles.plan. Billing owns the plan lifecycle;
// the reveal quota only ever reads the mirrored value.
type BillingSyncClient struct {
	BaseURL    string
	Token      string
	HTTPClient *http.Client
	DB         *gorm.DB
}

func NewBillingSyncClient(db *gorm.DB) *BillingSyncClient {
	baseURL := os.Getenv("BILLING_SERVICE_URL")
	if baseURL == "" {
		log.Fatal("BILLING_SERVICE_URL environment variable is required")
	}
	token := os.Getenv("TRADE_SERVICE_TOKEN")
	if token == "" {
		log.Fatal("TRADE_SERVICE_TOKEN environment variable is required for billing sync")
	}

	return &BillingSyncClient{
		BaseURL:    baseURL,
		Token:      token,
		DB:         db,
		HTTPClient: utils.HTTPClient,
	}
}

// GetChangedSubscriptions fetches subscription changes since the given time.
func (c *BillingSyncClient) GetChangedSubscriptions(ctx context.Context, since time.Time) ([]SubscriptionChange, error) {
	since = since.UTC()

	u, err := url.Parse(fmt.Sprintf("%s/api/v1/public/subscriptions", c.BaseURL))
	if err != nil {
		return nil, fmt.Errorf("failed to parse base URL: %w", err)
	}

	q := u.Query()
	q.Set("since", since.Format(time.RFC3339))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, "GET", u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("X-Service-Token", c.Token)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call billing service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("billing service returned status %d: %s", resp.StatusCode, string(body))
	}

	var response struct {
		Subscriptions []SubscriptionChange `json:"subscriptions"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("failed to decode billing service response: %w", err)
	}
	return response.Subscriptions, nil
}

// applyChanges writes the mirrored plans. Unknown users are skipped — they
// may not have onboarded a trade profile yet.
func (c *BillingSyncClient) applyChanges(changes []SubscriptionChange) {
	for _, change := range changes {
		if change.Plan == "" {
			continue
		}
		res := c.DB.Model(&models.TradeProfile{}).
			Where("external_user_id = ?", change.ExternalUserID).
			Updates(map[string]interface{}{
				"plan":       change.Plan,
				"updated_at": time.Now().UTC(),
			})
		if res.Error != nil {
			log.Printf("[PLAN_SYNC] failed to update plan for %s: %v", change.ExternalUserID, res.Error)
			continue
		}
		if res.RowsAffected > 0 {
			log.Printf("[PLAN_SYNC] plan for %s set to %q", change.ExternalUserID, change.Plan)
		}
	}
}

// PollPlans runs the sync loop until the context is cancelled.
func PollPlans(ctx context.Context, client *BillingSyncClient, pollInterval time.Duration) {
	log.Println("Starting billing plan polling...")
	lastSyncTime := time.Now().UTC().Add(-24 * time.Hour)

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Billing plan polling stopped.")
			return
		case <-ticker.C:
			pollStart := time.Now().UTC()

			changes, err := client.GetChangedSubscriptions(ctx, lastSyncTime)
			if err != nil {
				log.Printf("[PLAN_SYNC] polling error: %v", err)
				continue
			}
			if len(changes) > 0 {
				log.Printf("[PLAN_SYNC] received %d subscription change(s)", len(changes))
				client.applyChanges(changes)
			}
			lastSyncTime = pollStart
		}
	}
}
