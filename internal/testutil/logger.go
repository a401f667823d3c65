package testutil

import (
	"go.uber.org/zap"

	"github.com/drivekit/billing/internal/logger"
)

// GetLogger returns a no-op logger for tests.
func GetLogger() *logger.Logger {
	return &logger.Logger{SugaredLogger: zap.NewNop().Sugar()}
}
