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

// WorkspaceInit carries everything the storage gateway needs to stand up
// a new workspace.
type WorkspaceInit struct {
	SpaceBytes  int64  `json:"maxSpaceBytes"`
	Seats       int    `json:"numberOfSeats"`
	Address     string `json:"address,omitempty"`
	PhoneNumber string `json:"phoneNumber,omitempty"`
}

// DriveClient is the storage-gateway surface the engine provisions
// through.
type DriveClient interface {
	ChangeStorage(ctx context.Context, userUUID string, bytes int64) error
	UpdateWorkspaceStorage(ctx context.Context, userUUID string, bytes int64, seats int) error
	InitializeWorkspace(ctx context.Context, userUUID string, init WorkspaceInit) error

	// Legacy endpoints used for products that predate the tier catalog.
	CreateOrUpdateUser(ctx context.Context, email string, bytes int64) error
	UpdateUserTier(ctx context.Context, userUUID, tierLabel string) error

	// SendPaymentFailedNotice asks the gateway to notify the user about a
	// failed renewal. Best effort at every call site.
	SendPaymentFailedNotice(ctx context.Context, userUUID string) error
}

type driveClient struct {
	http   httpclient.Client
	cfg    *config.Configuration
	logger *logger.Logger
}

func NewDriveClient(http httpclient.Client, cfg *config.Configuration, log *logger.Logger) DriveClient {
	return &driveClient{http: http, cfg: cfg, logger: log}
}

func (c *driveClient) ChangeStorage(ctx context.Context, userUUID string, bytes int64) error {
	payload := map[string]interface{}{
		"uuid":          userUUID,
		"maxSpaceBytes": bytes,
	}
	return c.send(ctx, http.MethodPut, "/gateway/storage", userUUID, payload)
}

func (c *driveClient) UpdateWorkspaceStorage(ctx context.Context, userUUID string, bytes int64, seats int) error {
	payload := map[string]interface{}{
		"ownerId":              userUUID,
		"maxSpaceBytesPerSeat": bytes,
		"numberOfSeats":        seats,
	}
	return c.send(ctx, http.MethodPatch, "/gateway/workspaces/storage", userUUID, payload)
}

func (c *driveClient) InitializeWorkspace(ctx context.Context, userUUID string, init WorkspaceInit) error {
	payload := map[string]interface{}{
		"ownerId":       userUUID,
		"maxSpaceBytes": init.SpaceBytes,
		"numberOfSeats": init.Seats,
		"address":       init.Address,
		"phoneNumber":   init.PhoneNumber,
	}
	return c.send(ctx, http.MethodPost, "/gateway/workspaces", userUUID, payload)
}

func (c *driveClient) CreateOrUpdateUser(ctx context.Context, email string, bytes int64) error {
	payload := map[string]interface{}{
		"email":         email,
		"maxSpaceBytes": bytes,
	}
	return c.send(ctx, http.MethodPost, "/gateway/users", email, payload)
}

func (c *driveClient) UpdateUserTier(ctx context.Context, userUUID, tierLabel string) error {
	payload := map[string]interface{}{
		"uuid":     userUUID,
		"planName": tierLabel,
	}
	return c.send(ctx, http.MethodPut, "/gateway/users/tier", userUUID, payload)
}

func (c *driveClient) SendPaymentFailedNotice(ctx context.Context, userUUID string) error {
	payload := map[string]interface{}{
		"uuid": userUUID,
	}
	return c.send(ctx, http.MethodPost, "/gateway/notifications/payment-failed", userUUID, payload)
}

func (c *driveClient) send(ctx context.Context, method, path, subject string, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	token, err := mintToken(c.cfg.Gateways.Secret, subject)
	if err != nil {
		return err
	}

	_, err = c.http.Send(ctx, &httpclient.Request{
		Method: method,
		URL:    c.cfg.Gateways.DriveURL + path,
		Headers: map[string]string{
			"Authorization": fmt.Sprintf("Bearer %s", token),
		},
		Body: body,
	})
	if err != nil {
		c.logger.Errorw("drive gateway call failed",
			"method", method,
			"path", path,
			"error", err,
		)
		return err
	}
	return nil
}
