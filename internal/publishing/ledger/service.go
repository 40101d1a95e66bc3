// Copyright (c) 2026 Kanko. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package ledger

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/taibuivan/kanko/internal/platform/apperr"
	"github.com/taibuivan/kanko/internal/platform/metrics"
	"github.com/taibuivan/kanko/internal/platform/validate"
)

// # Service Layer

// RegisterInput describes a code to record after a confirmed payment.
type RegisterInput struct {
	// Code is optional; a structured token is generated when empty.
	Code     string
	Kind     Kind
	Quantity int
	Order    *string
}

// Service orchestrates registration and redemption of credit codes.
type Service struct {
	store     Store
	generator *Generator
	metrics   *metrics.Metrics
	logger    *slog.Logger
	now       func() time.Time
}

// NewService constructs a new [Service]. recorder may be nil.
func NewService(store Store, generator *Generator, recorder *metrics.Metrics, logger *slog.Logger) *Service {
	return &Service{
		store:     store,
		generator: generator,
		metrics:   recorder,
		logger:    logger,
		now:       time.Now,
	}
}

/*
Register records a new unused code.

Parameters:
  - ctx: context.Context
  - input: RegisterInput

Returns:
  - *Code: The stored code, including a generated token when none was given
  - error: VALIDATION_ERROR on bad input, CONFLICT if the code exists
*/
func (service *Service) Register(ctx context.Context, input RegisterInput) (*Code, error) {
	input.Code = strings.TrimSpace(input.Code)

	validator := &validate.Validator{}
	validator.OneOf(FieldKind, string(input.Kind), string(KindMultiQR), string(KindTokushu))
	validator.Custom(FieldQuantity, input.Quantity < 1, "Must be at least 1")
	validator.MaxLen(FieldCode, input.Code, MaxCodeLength)
	if input.Order != nil {
		validator.Required(FieldOrder, *input.Order)
	}
	if err := validator.Err(); err != nil {
		return nil, err
	}

	createdAt := service.now().UTC()

	if input.Code == "" {
		generated, err := service.generator.Generate(input.Kind, input.Quantity, createdAt)
		if err != nil {
			return nil, apperr.Internal(err)
		}
		input.Code = generated
	}

	code := &Code{
		Code:        input.Code,
		Quantity:    input.Quantity,
		Kind:        input.Kind,
		State:       StateUnused,
		LinkedOrder: input.Order,
		CreatedAt:   createdAt,
	}

	if err := service.store.Register(ctx, code); err != nil {
		service.metrics.CodeOperation("register", false)
		return nil, err
	}

	service.metrics.CodeOperation("register", true)
	service.logger.InfoContext(ctx, "credit_code_registered",
		slog.String("code", code.Code),
		slog.String("kind", string(code.Kind)),
		slog.Int("quantity", code.Quantity),
	)

	return code, nil
}

/*
Activate redeems a code exactly once.

Description: A second activation returns DUPLICATE_CODE_REDEMPTION and
leaves the state and redemption time recorded by the first one untouched.

Parameters:
  - ctx: context.Context
  - code: string
  - order: *string (Optional order to link)

Returns:
  - *Code: The redeemed code
  - error: DUPLICATE_CODE_REDEMPTION, NOT_FOUND or VALIDATION_ERROR
*/
func (service *Service) Activate(ctx context.Context, code string, order *string) (*Code, error) {
	code = strings.TrimSpace(code)

	validator := &validate.Validator{}
	validator.Required(FieldCode, code).MaxLen(FieldCode, code, MaxCodeLength)
	if err := validator.Err(); err != nil {
		return nil, err
	}

	redeemed, err := service.store.Redeem(ctx, code, order, service.now().UTC())
	if err != nil {
		service.metrics.CodeOperation("redeem", false)
		if apperr.HasCode(err, apperr.CodeDuplicateCodeRedemption) {
			service.logger.WarnContext(ctx, "credit_code_reused", slog.String("code", code))
		}
		return nil, err
	}

	service.metrics.CodeOperation("redeem", true)
	service.logger.InfoContext(ctx, "credit_code_activated",
		slog.String("code", redeemed.Code),
		slog.String("kind", string(redeemed.Kind)),
	)

	return redeemed, nil
}
