package workers

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/hibiken/asynq"
	"golang.org/x/oauth2"

	"slotwise/config"
	"slotwise/database/repository/accounts"
	"slotwise/models"
)

const TypeTokenRefresh = "calendar:token_refresh"

// TokenRefreshPayload identifies the calendar account whose OAuth token should
// be refreshed proactively, so the next interactive availability call does not
// pay the refresh round trip.
type TokenRefreshPayload struct {
	AccountID string `json:"accountId"`
}

func redisOpts() asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisTaskDB,
	}
}

// NewTaskClient returns an asynq client for enqueueing background tasks.
func NewTaskClient() *asynq.Client {
	return asynq.NewClient(redisOpts())
}

// EnqueueTokenRefresh schedules a token refresh for the given account.
func EnqueueTokenRefresh(client *asynq.Client, accountID string) error {
	payload, err := json.Marshal(TokenRefreshPayload{AccountID: accountID})
	if err != nil {
		return err
	}
	task := asynq.NewTask(TypeTokenRefresh, payload)
	_, err = client.Enqueue(task, asynq.MaxRetry(3), asynq.Timeout(30*time.Second))
	return err
}

// InitTokenRefreshWorker runs the async worker in background.
func InitTokenRefreshWorker(repo accounts.AccountRepository, oauthCfg *oauth2.Config) {
	srv := asynq.NewServer(
		redisOpts(),
		asynq.Config{
			Concurrency: 5,
			Queues: map[string]int{
				"default": 1,
			},
		},
	)

	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeTokenRefresh, handleTokenRefresh(repo, oauthCfg))

	go func() {
		log.Println("[TokenWorker] Starting async worker...")
		const maxAttempts = 5

		for attempts := 1; attempts <= maxAttempts; attempts++ {
			if err := srv.Run(mux); err != nil {
				log.Printf("[TokenWorker] Attempt %d/%d failed to start worker: %v", attempts, maxAttempts, err)

				if attempts == maxAttempts {
					log.Fatal("[TokenWorker] Max retry attempts reached. Exiting.")
				}
				time.Sleep(time.Duration(attempts*2) * time.Second)
			} else {
				break
			}
		}
	}()
}

func handleTokenRefresh(repo accounts.AccountRepository, oauthCfg *oauth2.Config) asynq.HandlerFunc {
	return func(ctx context.Context, task *asynq.Task) error {
		var p TokenRefreshPayload
		if err := json.Unmarshal(task.Payload(), &p); err != nil {
			log.Printf("[TokenWorker] Invalid payload: %v", err)
			return err
		}

		account, err := repo.GetByID(ctx, p.AccountID)
		if err != nil {
			log.Printf("[TokenWorker] Failed to load account %s: %v", p.AccountID, err)
			return err
		}

		stored := &oauth2.Token{
			AccessToken:  account.Token.AccessToken,
			RefreshToken: account.Token.RefreshToken,
			Expiry:       account.Token.Expiry,
		}
		fresh, err := oauthCfg.TokenSource(ctx, stored).Token()
		if err != nil {
			log.Printf("[TokenWorker] Refresh failed for account %s: %v", p.AccountID, err)
			return err
		}
		if fresh.AccessToken == stored.AccessToken {
			// Token was still valid, nothing to persist.
			return nil
		}

		updated := models.OAuthToken{
			AccessToken:  fresh.AccessToken,
			RefreshToken: fresh.RefreshToken,
			Expiry:       fresh.Expiry,
		}
		if updated.RefreshToken == "" {
			updated.RefreshToken = stored.RefreshToken
		}
		if err := repo.UpdateToken(ctx, p.AccountID, updated); err != nil {
			log.Printf("[TokenWorker] Failed to persist refreshed token for account %s: %v", p.AccountID, err)
			return err
		}
		log.Printf("[TokenWorker] Refreshed token for account %s", p.AccountID)
		return nil
	}
}
