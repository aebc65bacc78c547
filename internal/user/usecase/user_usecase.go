package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/allisson/go-pwdhash"
	"github.com/google/uuid"
	validation "github.com/jellydator/validation"

	"github.com/allisson/identity/internal/database"
	apperrors "github.com/allisson/identity/internal/errors"
	outboxDomain "github.com/allisson/identity/internal/outbox/domain"
	"github.com/allisson/identity/internal/user/domain"
	appValidation "github.com/allisson/identity/internal/validation"
)

// UserUseCase handles user-related business logic
type UserUseCase struct {
	txManager      database.TxManager
	userRepo       UserRepository
	outboxRepo     OutboxEventRepository
	tokenIssuer    TokenIssuer
	passwordHasher *pwdhash.PasswordHasher
	logger         *slog.Logger

	// dummyHash is verified against when the email is unknown so both login
	// failure paths cost one hash verification.
	dummyHash string
}

// NewUserUseCase creates a new UserUseCase
func NewUserUseCase(
	txManager database.TxManager,
	userRepo UserRepository,
	outboxRepo OutboxEventRepository,
	tokenIssuer TokenIssuer,
	logger *slog.Logger,
) (UseCase, error) {
	hasher, err := pwdhash.New(pwdhash.WithPolicy(pwdhash.PolicyInteractive))
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to create password hasher")
	}

	dummyHash, err := hasher.Hash([]byte(uuid.NewString()))
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to prepare password hasher")
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &UserUseCase{
		txManager:      txManager,
		userRepo:       userRepo,
		outboxRepo:     outboxRepo,
		tokenIssuer:    tokenIssuer,
		passwordHasher: hasher,
		logger:         logger,
		dummyHash:      dummyHash,
	}, nil
}

func validateRegisterInput(input domain.RegisterInput) error {
	err := validation.ValidateStruct(&input,
		validation.Field(&input.Email,
			validation.Required.Error("email is required"),
			appValidation.NotBlank,
			appValidation.Email,
			validation.Length(5, 255).Error("email must be between 5 and 255 characters"),
		),
		validation.Field(&input.Password,
			validation.Required.Error("password is required"),
			appValidation.DefaultPasswordPolicy,
		),
	)
	return appValidation.WrapValidationError(err)
}

func validateLoginInput(input domain.LoginInput) error {
	err := validation.ValidateStruct(&input,
		validation.Field(&input.Email,
			validation.Required.Error("email is required"),
			appValidation.Email,
		),
		validation.Field(&input.Password,
			validation.Required.Error("password is required"),
		),
	)
	return appValidation.WrapValidationError(err)
}

// Register creates an active account, records a user.registered outbox event in the
// same transaction and returns an access token for the new account.
func (uc *UserUseCase) Register(ctx context.Context, input domain.RegisterInput) (*domain.AuthOutput, error) {
	input.Email = appValidation.NormalizeEmail(input.Email)
	if err := validateRegisterInput(input); err != nil {
		return nil, err
	}

	hashedPassword, err := uc.passwordHasher.Hash([]byte(input.Password))
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to hash password")
	}

	now := time.Now().UTC()
	user := &domain.User{
		ID:        uuid.Must(uuid.NewV7()),
		Email:     input.Email,
		Password:  hashedPassword,
		IsActive:  true,
		Roles:     []string{},
		CreatedAt: now,
		UpdatedAt: now,
	}

	err = uc.txManager.WithTx(ctx, func(ctx context.Context) error {
		if err := uc.userRepo.Create(ctx, user); err != nil {
			return err
		}

		payload, err := json.Marshal(map[string]any{
			"user_id":    user.ID,
			"email":      user.Email,
			"created_at": user.CreatedAt,
		})
		if err != nil {
			return apperrors.Wrap(err, "failed to marshal event payload")
		}

		event := outboxDomain.NewOutboxEvent(domain.EventUserRegistered, payload, now)
		if err := uc.outboxRepo.Create(ctx, event); err != nil {
			return apperrors.Wrap(err, "failed to create outbox event")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	uc.logger.Info("user registered", slog.String("user_id", user.ID.String()))

	return uc.authenticate(user)
}

// Login checks credentials and returns an access token. Unknown emails and wrong
// passwords are indistinguishable to the caller.
func (uc *UserUseCase) Login(ctx context.Context, input domain.LoginInput) (*domain.AuthOutput, error) {
	input.Email = appValidation.NormalizeEmail(input.Email)
	if err := validateLoginInput(input); err != nil {
		return nil, err
	}

	user, err := uc.userRepo.GetByEmail(ctx, input.Email)
	if err != nil {
		if apperrors.Is(err, domain.ErrUserNotFound) {
			_, _ = uc.passwordHasher.Verify([]byte(input.Password), uc.dummyHash)
			return nil, domain.ErrInvalidCredentials
		}
		return nil, err
	}

	ok, err := uc.passwordHasher.Verify([]byte(input.Password), user.Password)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to verify password")
	}
	if !ok {
		return nil, domain.ErrInvalidCredentials
	}

	if !user.IsActive {
		return nil, domain.ErrUserInactive
	}

	return uc.authenticate(user)
}

// GetByID retrieves a user by ID
func (uc *UserUseCase) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	return uc.userRepo.GetByID(ctx, id)
}

func (uc *UserUseCase) authenticate(user *domain.User) (*domain.AuthOutput, error) {
	token, err := uc.tokenIssuer.Issue(user.ID.String(), user.Email, user.RoleList())
	if err != nil {
		uc.logger.Error("failed to issue access token",
			slog.String("user_id", user.ID.String()),
			slog.Any("error", err),
		)
		return nil, fmt.Errorf("%w: %v", domain.ErrTokenIssuance, err)
	}

	return &domain.AuthOutput{
		User:        user,
		AccessToken: token,
		TokenType:   domain.TokenTypeBearer,
		ExpiresIn:   int64(uc.tokenIssuer.TTL() / time.Second),
	}, nil
}
