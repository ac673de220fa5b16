package services

import (
	"context"

	"github.com/ofs-tools/ofs-client/internal/logging"
	"github.com/ofs-tools/ofs-client/internal/models"
	"github.com/ofs-tools/ofs-client/internal/protocol"
)

// SystemService exposes server-wide information.
type SystemService struct {
	inv    Invoker
	logger *logging.Logger
}

// NewSystemService creates a new SystemService.
func NewSystemService(inv Invoker, logger *logging.Logger) *SystemService {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &SystemService{inv: inv, logger: logger.Named("system-service")}
}

// Stats returns storage and usage statistics.
func (ss *SystemService) Stats(ctx context.Context) (models.Statistics, error) {
	resp, err := invoke(ctx, ss.inv, protocol.OpGetStats, nil)
	if err != nil {
		return models.Statistics{}, err
	}
	stats, err := decode[models.Statistics](protocol.OpGetStats, resp)
	if err != nil {
		return models.Statistics{}, err
	}
	if err := stats.Validate(); err != nil {
		return models.Statistics{}, malformed(protocol.OpGetStats, err)
	}
	return stats, nil
}

// ErrorMessage asks the server to describe an error code.
func (ss *SystemService) ErrorMessage(ctx context.Context, code int) (string, error) {
	resp, err := invoke(ctx, ss.inv, protocol.OpGetErrorMsg, protocol.Params{"error_code": code})
	if err != nil {
		return "", err
	}
	return decode[string](protocol.OpGetErrorMsg, resp)
}
