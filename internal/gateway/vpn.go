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

// VPNClient toggles VPN feature grants on the VPN gateway.
type VPNClient interface {
	EnableFeature(ctx context.Context, userUUID, featureID string) error
	DisableFeature(ctx context.Context, userUUID, featureID string) error
}

type vpnClient struct {
	http   httpclient.Client
	cfg    *config.Configuration
	logger *logger.Logger
}

func NewVPNClient(http httpclient.Client, cfg *config.Configuration, log *logger.Logger) VPNClient {
	return &vpnClient{http: http, cfg: cfg, logger: log}
}

func (c *vpnClient) EnableFeature(ctx context.Context, userUUID, featureID string) error {
	return c.send(ctx, http.MethodPost, userUUID, featureID)
}

func (c *vpnClient) DisableFeature(ctx context.Context, userUUID, featureID string) error {
	return c.send(ctx, http.MethodDelete, userUUID, featureID)
}

func (c *vpnClient) send(ctx context.Context, method, userUUID, featureID string) error {
	payload, err := json.Marshal(map[string]interface{}{
		"uuid":      userUUID,
		"featureId": featureID,
	})
	if err != nil {
		return err
	}

	token, err := mintToken(c.cfg.Gateways.Secret, userUUID)
	if err != nil {
		return err
	}

	_, err = c.http.Send(ctx, &httpclient.Request{
		Method: method,
		URL:    c.cfg.Gateways.VPNURL + "/gateway/features",
		Headers: map[string]string{
			"Authorization": fmt.Sprintf("Bearer %s", token),
		},
		Body: payload,
	})
	if err != nil {
		c.logger.Errorw("vpn gateway call failed",
			"method", method,
			"feature_id", featureID,
			"error", err,
		)
		return err
	}
	return nil
}
