package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strconv"
	"strings"
	"time"

	"tenant-auth-core/internal/event"
	"tenant-auth-core/internal/model"
	"tenant-auth-core/internal/pii"
	"tenant-auth-core/pkg/apierror"
)

const (
	minPasswordLength = 8
	// bcrypt refuses longer input.
	maxPasswordBytes = 72
)

type RegisterInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
	Role      model.Role
}

// AccountService owns the user records whose personal fields are encrypted
// with FieldCipher and looked up through the blind index.
type AccountService struct {
	users     UserStore
	customers CustomerStore
	cipher    *pii.FieldCipher
	index     *pii.BlindIndexer
	actions   *ActionTokenService
	mailer    Mailer
	bus       event.Bus
}

func NewAccountService(
	users UserStore,
	customers CustomerStore,
	cipher *pii.FieldCipher,
	index *pii.BlindIndexer,
	actions *ActionTokenService,
	mailer Mailer,
	bus event.Bus,
) *AccountService {
	return &AccountService{
		users:     users,
		customers: customers,
		cipher:    cipher,
		index:     index,
		actions:   actions,
		mailer:    mailer,
		bus:       bus,
	}
}

// Register creates a disabled user in customerID and sends a verification link.
func (s *AccountService) Register(ctx context.Context, customerID int64, in RegisterInput) (model.UserProfile, error) {
	email := pii.NormalizeEmail(in.Email)
	if _, err := mail.ParseAddress(email); err != nil || email == "" {
		return model.UserProfile{}, apierror.BadRequest("invalid email address", "email")
	}
	if err := validatePassword(in.Password); err != nil {
		return model.UserProfile{}, err
	}
	if in.Role == "" {
		in.Role = model.RoleUser
	}
	if !in.Role.Valid() {
		return model.UserProfile{}, apierror.BadRequest("invalid role", string(in.Role))
	}

	exists, err := s.customers.Exists(ctx, customerID)
	if err != nil {
		return model.UserProfile{}, fmt.Errorf("check customer: %w", err)
	}
	if !exists {
		return model.UserProfile{}, model.ErrCustomerNotFound
	}

	emailIndex := s.index.Hash(email)
	taken, err := s.users.ExistsByEmailIndex(ctx, string(emailIndex))
	if err != nil {
		return model.UserProfile{}, fmt.Errorf("check email: %w", err)
	}
	if taken {
		return model.UserProfile{}, model.ErrUserAlreadyExists
	}

	firstName := strings.TrimSpace(in.FirstName)
	lastName := strings.TrimSpace(in.LastName)
	fields, err := s.cipher.EncryptAll(email, firstName, lastName)
	if err != nil {
		return model.UserProfile{}, fmt.Errorf("encrypt user fields: %w", err)
	}

	hash, err := HashSecret(in.Password)
	if err != nil {
		return model.UserProfile{}, err
	}

	now := time.Now().UTC()
	created, err := s.users.Create(ctx, model.User{
		CustomerID:     customerID,
		Email:          string(fields[0]),
		EmailIndex:     string(emailIndex),
		FirstName:      string(fields[1]),
		LastName:       string(fields[2]),
		Role:           in.Role,
		PasswordHash:   hash,
		AccountEnabled: false,
		CreatedAt:      now,
		UpdatedAt:      now,
	})
	if err != nil {
		return model.UserProfile{}, err
	}

	// Without a delivered link the disabled account could never be
	// verified, and its email would be taken for good.
	verification, err := s.actions.Issue(ctx, model.PurposeEmailVerification, created.ID)
	if err != nil {
		s.discardUser(ctx, created.ID)
		return model.UserProfile{}, err
	}
	if err := s.mailer.SendActionLink(ctx, created.ID, email, verification); err != nil {
		s.discardUser(ctx, created.ID)
		return model.UserProfile{}, fmt.Errorf("send verification link: %w", err)
	}

	s.bus.Publish(event.New(event.TypeUserRegistered, strconv.FormatInt(created.ID, 10), map[string]any{
		"customer_id": customerID,
		"role":        string(in.Role),
	}))

	return model.UserProfile{
		ID:             created.ID,
		CustomerID:     customerID,
		Email:          email,
		FirstName:      firstName,
		LastName:       lastName,
		Role:           in.Role,
		AccountEnabled: false,
	}, nil
}

// discardUser removes a user whose registration could not complete. It runs
// even when the request context is already cancelled.
func (s *AccountService) discardUser(ctx context.Context, userID int64) {
	if err := s.users.Delete(context.WithoutCancel(ctx), userID); err != nil {
		slog.Error("failed to remove incomplete registration", "user_id", userID, "error", err)
	}
}

// Profile decrypts a user's personal fields. A decryption failure is
// returned as model.ErrDecryptionFailed and never replaced by empty values.
func (s *AccountService) Profile(ctx context.Context, userID int64) (model.UserProfile, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return model.UserProfile{}, err
	}

	email, err := s.cipher.Decrypt(pii.EncryptedField(user.Email))
	if err != nil {
		return model.UserProfile{}, fmt.Errorf("user %d email: %w", user.ID, err)
	}
	firstName, err := s.cipher.Decrypt(pii.EncryptedField(user.FirstName))
	if err != nil {
		return model.UserProfile{}, fmt.Errorf("user %d first name: %w", user.ID, err)
	}
	lastName, err := s.cipher.Decrypt(pii.EncryptedField(user.LastName))
	if err != nil {
		return model.UserProfile{}, fmt.Errorf("user %d last name: %w", user.ID, err)
	}

	return model.UserProfile{
		ID:             user.ID,
		CustomerID:     user.CustomerID,
		Email:          email,
		FirstName:      firstName,
		LastName:       lastName,
		Role:           user.Role,
		AccountEnabled: user.AccountEnabled,
	}, nil
}

func (s *AccountService) VerifyEmail(ctx context.Context, value string) error {
	t, err := s.actions.Redeem(ctx, model.PurposeEmailVerification, strings.TrimSpace(value))
	if err != nil {
		return err
	}

	if err := s.users.SetEnabled(ctx, t.SubjectID, true); err != nil {
		return fmt.Errorf("enable user: %w", err)
	}
	return nil
}

// RequestPasswordReset sends a reset link when the email belongs to a user.
// Unknown addresses succeed silently so callers cannot probe for accounts.
func (s *AccountService) RequestPasswordReset(ctx context.Context, email string) error {
	email = pii.NormalizeEmail(email)
	user, err := s.users.FindByEmailIndex(ctx, string(s.index.Hash(email)))
	if errors.Is(err, model.ErrUserNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("find user: %w", err)
	}

	reset, err := s.actions.Issue(ctx, model.PurposePasswordReset, user.ID)
	if err != nil {
		return err
	}

	if err := s.mailer.SendActionLink(ctx, user.ID, email, reset); err != nil {
		return fmt.Errorf("send reset link: %w", err)
	}
	return nil
}

// ResetPassword validates the new password before consuming the token so a
// rejected password does not burn the link.
func (s *AccountService) ResetPassword(ctx context.Context, value string, newPassword string) error {
	if err := validatePassword(newPassword); err != nil {
		return err
	}

	t, err := s.actions.Redeem(ctx, model.PurposePasswordReset, strings.TrimSpace(value))
	if err != nil {
		return err
	}

	hash, err := HashSecret(newPassword)
	if err != nil {
		return err
	}
	if err := s.users.UpdatePassword(ctx, t.SubjectID, hash); err != nil {
		return fmt.Errorf("update password: %w", err)
	}

	s.bus.Publish(event.New(event.TypePasswordReset, strconv.FormatInt(t.SubjectID, 10), nil))
	return nil
}

func validatePassword(password string) error {
	if len(password) < minPasswordLength {
		return apierror.BadRequest(fmt.Sprintf("password must be at least %d characters", minPasswordLength), "password")
	}
	if len(password) > maxPasswordBytes {
		return apierror.BadRequest(fmt.Sprintf("password must be at most %d bytes", maxPasswordBytes), "password")
	}
	return nil
}
