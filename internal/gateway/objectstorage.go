package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/drivekit/billing/internal/config"
	"github.com/drivekit/billing/internal/httpclient"
	"github.com/drivekit/billing/internal/logger"
)

// ObjectStorageClient manages object-storage accounts keyed by processor
// customer id.
type ObjectStorageClient interface {
	// CreateAccount provisions a new downstream account. A conflict from
	// an already-provisioned customer surfaces as ErrAlreadyExists.
	CreateAccount(ctx context.Context, customerID, email string) error
	Reactivate(ctx context.Context, customerID string) error
	Suspend(ctx context.Context, customerID string) error
	Delete(ctx context.Context, customerID string) error
}

type objectStorageClient struct {
	http   httpclient.Client
	cfg    *config.Configuration
	logger *logger.Logger
}

func NewObjectStorageClient(http httpclient.Client, cfg *config.Configuration, log *logger.Logger) ObjectStorageClient {
	return &objectStorageClient{http: http, cfg: cfg, logger: log}
}

func (c *objectStorageClient) CreateAccount(ctx context.Context, customerID, email string) error {
	return c.send(ctx, http.MethodPost, "/accounts", customerID, map[string]interface{}{
		"customerId": customerID,
		"email":      email,
	})
}

func (c *objectStorageClient) Reactivate(ctx context.Context, customerID string) error {
	return c.send(ctx, http.MethodPut, "/accounts/reactivate", customerID, map[string]interface{}{
		"customerId": customerID,
	})
}

func (c *objectStorageClient) Suspend(ctx context.Context, customerID string) error {
	return c.send(ctx, http.MethodPut, "/accounts/suspend", customerID, map[string]interface{}{
		"customerId": customerID,
	})
}

func (c *objectStorageClient) Delete(ctx context.Context, customerID string) error {
	return c.send(ctx, http.MethodDelete, "/accounts", customerID, map[string]interface{}{
		"customerId": customerID,
	})
}

func (c *objectStorageClient) send(ctx context.Context, method, path, customerID string, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	token, err := mintToken(c.cfg.Gateways.Secret, customerID)
	if err != nil {
		return err
	}

	_, err = c.http.Send(ctx, &httpclient.Request{
		Method: method,
		URL:    c.cfg.Gateways.ObjectStorage.URL + path,
		Headers: map[string]string{
			"Authorization": fmt.Sprintf("Bearer %s", token),
		},
		Body: body,
	})
	if err != nil {
		c.logger.Errorw("object storage gateway call failed",
			"method", method,
			"path", path,
			"customer_id", customerID,
			"error", err,
		)
		return err
	}
	return nil
}
