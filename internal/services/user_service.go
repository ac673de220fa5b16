package services

import (
	"context"
	"errors"

	"github.com/ofs-tools/ofs-client/internal/constants"
	"github.com/ofs-tools/ofs-client/internal/logging"
	"github.com/ofs-tools/ofs-client/internal/models"
	"github.com/ofs-tools/ofs-client/internal/protocol"
	"github.com/ofs-tools/ofs-client/internal/validation"
)

// ErrProtectedAccount is returned when deleting the bootstrap admin account.
// No call is made.
var ErrProtectedAccount = errors.New("the admin account cannot be deleted")

// UserService manages accounts. All of its operations are admin-only on the
// server.
type UserService struct {
	inv    Invoker
	logger *logging.Logger
}

// NewUserService creates a new UserService.
func NewUserService(inv Invoker, logger *logging.Logger) *UserService {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &UserService{inv: inv, logger: logger.Named("user-service")}
}

// List returns every account known to the server.
func (us *UserService) List(ctx context.Context) ([]models.UserRecord, error) {
	resp, err := invoke(ctx, us.inv, protocol.OpUserList, nil)
	if err != nil {
		return nil, err
	}
	if !resp.HasData() {
		return []models.UserRecord{}, nil
	}
	return decode[[]models.UserRecord](protocol.OpUserList, resp)
}

// Create adds an account with the given role.
func (us *UserService) Create(ctx context.Context, username, password string, role models.Role) error {
	if err := validation.ValidateUsername(username); err != nil {
		return err
	}
	if !role.Valid() {
		role = models.RoleNormal
	}
	_, err := invoke(ctx, us.inv, protocol.OpUserCreate, protocol.Params{
		"username": username,
		"password": password,
		"role":     string(role),
	})
	if err == nil {
		us.logger.Info().Str("username", username).Str("role", string(role)).Msg("user created")
	}
	return err
}

// Delete removes an account. The bootstrap admin account is refused locally.
func (us *UserService) Delete(ctx context.Context, username string) error {
	if username == constants.BootstrapAdmin {
		return ErrProtectedAccount
	}
	if err := validation.ValidateUsername(username); err != nil {
		return err
	}
	_, err := invoke(ctx, us.inv, protocol.OpUserDelete, protocol.Params{"username": username})
	if err == nil {
		us.logger.Info().Str("username", username).Msg("user deleted")
	}
	return err
}
