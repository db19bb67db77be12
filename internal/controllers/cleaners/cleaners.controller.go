package cleanersController

import (
	"context"
	"errors"
	"strings"

	"cleanbook/internal/database"
	. "cleanbook/internal/models"
	"cleanbook/internal/repositories"
	"cleanbook/internal/services"
	"cleanbook/internal/types"

	logger "github.com/Bparsons0904/goLogger"
	"github.com/google/uuid"
)

type CleanersController struct {
	cleanerRepo repositories.CleanerRepository
	payment     *services.PaymentService
	db          database.DB
	log         logger.Logger
}

type CleanersControllerInterface interface {
	GetMe(ctx context.Context, user *User) (*Cleaner, error)
	CreateIfMissing(ctx context.Context, user *User) (*Cleaner, error)
	Pause(ctx context.Context, user *User) (*Cleaner, error)
	ResumeFromPause(ctx context.Context, user *User) (*Cleaner, error)
	AttachHMSCard(ctx context.Context, user *User, storageID string) (*Cleaner, error)

	CreateConnectAccount(ctx context.Context, user *User) (*Cleaner, error)
	StartOnboarding(ctx context.Context, user *User, refreshURL, returnURL string) (string, error)
	RefreshConnectStatus(ctx context.Context, user *User) (*Cleaner, error)

	Approve(ctx context.Context, cleanerID uuid.UUID) (*Cleaner, error)
	Reject(ctx context.Context, cleanerID uuid.UUID, reason string) (*Cleaner, error)
	Suspend(ctx context.Context, cleanerID uuid.UUID, reason string) (*Cleaner, error)
	Unsuspend(ctx context.Context, cleanerID uuid.UUID) (*Cleaner, error)
}

func New(
	repos repositories.Repository,
	services services.Service,
	db database.DB,
) CleanersControllerInterface {
	return &CleanersController{
		cleanerRepo: repos.Cleaner,
		payment:     services.Payment,
		db:          db,
		log:         logger.New("cleanersController"),
	}
}

func (c *CleanersController) GetMe(ctx context.Context, user *User) (*Cleaner, error) {
	cleaner, err := c.cleanerRepo.GetActiveByUserID(ctx, c.db.SQLWithContext(ctx), user.ID)
	if err != nil {
		if errors.Is(err, types.NotFound("")) {
			return nil, types.NotFound("cleaner profile not found")
		}
		return nil, err
	}
	return cleaner, nil
}

// CreateIfMissing returns the user's active cleaner, creating an approved one
// on first use.
func (c *CleanersController) CreateIfMissing(ctx context.Context, user *User) (*Cleaner, error) {
	log := c.log.TraceFromContext(ctx).Function("CreateIfMissing")

	existing, err := c.cleanerRepo.GetActiveByUserID(ctx, c.db.SQLWithContext(ctx), user.ID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, types.NotFound("")) {
		return nil, err
	}

	cleaner := &Cleaner{
		UserID:   user.ID,
		Status:   CleanerStatusApproved,
		IsActive: true,
	}
	if err := c.cleanerRepo.Create(ctx, c.db.SQLWithContext(ctx), cleaner); err != nil {
		return nil, log.Err("failed to create cleaner", err, "userID", user.ID)
	}

	log.Info("cleaner created", "userID", user.ID, "cleanerID", cleaner.ID)
	return cleaner, nil
}

func (c *CleanersController) Pause(ctx context.Context, user *User) (*Cleaner, error) {
	cleaner, err := c.GetMe(ctx, user)
	if err != nil {
		return nil, err
	}
	return c.transition(ctx, cleaner, CleanerStatusPaused, nil)
}

// ResumeFromPause only undoes a self-service pause. A suspended cleaner needs
// an admin to unsuspend.
func (c *CleanersController) ResumeFromPause(ctx context.Context, user *User) (*Cleaner, error) {
	cleaner, err := c.GetMe(ctx, user)
	if err != nil {
		return nil, err
	}
	if cleaner.Status != CleanerStatusPaused {
		return nil, types.InvalidTransition(string(cleaner.Status), string(CleanerStatusApproved))
	}
	return c.transition(ctx, cleaner, CleanerStatusApproved, nil)
}

func (c *CleanersController) AttachHMSCard(ctx context.Context, user *User, storageID string) (*Cleaner, error) {
	log := c.log.TraceFromContext(ctx).Function("AttachHMSCard")

	storageID = strings.TrimSpace(storageID)
	if storageID == "" {
		return nil, types.Validation("storageId is required")
	}

	cleaner, err := c.GetMe(ctx, user)
	if err != nil {
		return nil, err
	}

	if err := c.cleanerRepo.Update(
		ctx,
		c.db.SQLWithContext(ctx),
		cleaner.ID,
		map[string]any{"hms_card_storage_id": storageID},
	); err != nil {
		return nil, err
	}

	log.Info("HMS card attached", "cleanerID", cleaner.ID)
	cleaner.HMSCardStorageID = &storageID
	return cleaner, nil
}

func (c *CleanersController) CreateConnectAccount(ctx context.Context, user *User) (*Cleaner, error) {
	log := c.log.TraceFromContext(ctx).Function("CreateConnectAccount")

	cleaner, err := c.GetMe(ctx, user)
	if err != nil {
		return nil, err
	}
	if cleaner.ConnectAccountID != nil && *cleaner.ConnectAccountID != "" {
		return nil, types.Conflict("a payout account already exists")
	}

	email := ""
	if user.Email != nil {
		email = *user.Email
	}

	account, err := c.payment.CreateConnectAccount(ctx, cleaner, email)
	if err != nil {
		return nil, err
	}

	status := services.ConnectStatusFor(account)
	if err := c.cleanerRepo.Update(
		ctx,
		c.db.SQLWithContext(ctx),
		cleaner.ID,
		map[string]any{
			"connect_account_id":     account.ID,
			"connect_account_status": status,
			"charges_enabled":        account.ChargesEnabled,
			"payouts_enabled":        account.PayoutsEnabled,
		},
	); err != nil {
		return nil, log.Err("failed to store connect account", err, "cleanerID", cleaner.ID, "accountID", account.ID)
	}

	log.Info("connect account created", "cleanerID", cleaner.ID, "accountID", account.ID)
	return c.cleanerRepo.GetByID(ctx, c.db.SQLWithContext(ctx), cleaner.ID)
}

func (c *CleanersController) StartOnboarding(
	ctx context.Context,
	user *User,
	refreshURL, returnURL string,
) (string, error) {
	if strings.TrimSpace(returnURL) == "" {
		return "", types.Validation("returnUrl is required")
	}
	if strings.TrimSpace(refreshURL) == "" {
		refreshURL = returnURL
	}

	cleaner, err := c.GetMe(ctx, user)
	if err != nil {
		return "", err
	}
	return c.payment.CreateOnboardingLink(ctx, cleaner, refreshURL, returnURL)
}

func (c *CleanersController) RefreshConnectStatus(ctx context.Context, user *User) (*Cleaner, error) {
	cleaner, err := c.GetMe(ctx, user)
	if err != nil {
		return nil, err
	}
	return c.payment.RefreshConnectStatus(ctx, cleaner)
}

func (c *CleanersController) Approve(ctx context.Context, cleanerID uuid.UUID) (*Cleaner, error) {
	cleaner, err := c.cleanerRepo.GetByID(ctx, c.db.SQLWithContext(ctx), cleanerID)
	if err != nil {
		return nil, err
	}
	if cleaner.Status != CleanerStatusPending {
		return nil, types.InvalidTransition(string(cleaner.Status), string(CleanerStatusApproved))
	}
	return c.transition(ctx, cleaner, CleanerStatusApproved, nil)
}

func (c *CleanersController) Reject(ctx context.Context, cleanerID uuid.UUID, reason string) (*Cleaner, error) {
	cleaner, err := c.cleanerRepo.GetByID(ctx, c.db.SQLWithContext(ctx), cleanerID)
	if err != nil {
		return nil, err
	}
	return c.transition(ctx, cleaner, CleanerStatusRejected, optionalReason(reason))
}

func (c *CleanersController) Suspend(ctx context.Context, cleanerID uuid.UUID, reason string) (*Cleaner, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, types.Validation("a reason is required to suspend a cleaner")
	}

	cleaner, err := c.cleanerRepo.GetByID(ctx, c.db.SQLWithContext(ctx), cleanerID)
	if err != nil {
		return nil, err
	}
	return c.transition(ctx, cleaner, CleanerStatusSuspended, &reason)
}

func (c *CleanersController) Unsuspend(ctx context.Context, cleanerID uuid.UUID) (*Cleaner, error) {
	cleaner, err := c.cleanerRepo.GetByID(ctx, c.db.SQLWithContext(ctx), cleanerID)
	if err != nil {
		return nil, err
	}
	if cleaner.Status != CleanerStatusSuspended {
		return nil, types.InvalidTransition(string(cleaner.Status), string(CleanerStatusApproved))
	}
	return c.transition(ctx, cleaner, CleanerStatusApproved, nil)
}

// transition applies one edge of the cleaner status table, guarded by the
// status the cleaner was read with.
func (c *CleanersController) transition(
	ctx context.Context,
	cleaner *Cleaner,
	next CleanerStatus,
	reason *string,
) (*Cleaner, error) {
	log := c.log.TraceFromContext(ctx).Function("transition")

	if !cleaner.Status.CanTransitionTo(next) {
		return nil, types.InvalidTransition(string(cleaner.Status), string(next))
	}

	updated, err := c.cleanerRepo.UpdateWhereStatus(
		ctx,
		c.db.SQLWithContext(ctx),
		cleaner.ID,
		[]CleanerStatus{cleaner.Status},
		map[string]any{"status": next, "status_reason": reason},
	)
	if err != nil {
		return nil, err
	}

	current, err := c.cleanerRepo.GetByID(ctx, c.db.SQLWithContext(ctx), cleaner.ID)
	if err != nil {
		return nil, err
	}
	if !updated {
		return nil, types.InvalidTransition(string(current.Status), string(next))
	}

	log.Info("cleaner status changed", "cleanerID", cleaner.ID, "from", cleaner.Status, "to", next)
	return current, nil
}

func optionalReason(reason string) *string {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil
	}
	return &reason
}
