// Package workflow drives the enrollment state machine: browse, enroll,
// pay, confirm or cancel. All enrollment and class mutations go through
// here so every screen reads a consistent server-backed view.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sportcenterhq/client-go/internal/models"
	appErrors "github.com/sportcenterhq/client-go/pkg/errors"
)

type apiClient interface {
	Do(ctx context.Context, method, path string, body, out interface{}) error
}

type approvalRetrier interface {
	Enqueue(enrollmentID int64)
}

// EnrollOutcome reports the result of an enroll attempt. AlreadyEnrolled is
// the idempotence guard outcome, not an error: the member holds exactly one
// live enrollment for the class either way.
type EnrollOutcome struct {
	Enrollment      *models.Enrollment
	AlreadyEnrolled bool
}

// PayOutcome reports a payment attempt. ConfirmationPending means the
// payment completed but the enrollment approval has not landed yet; the
// payment record is the source of truth and the approval is retried in the
// background. Never treated as a failure.
type PayOutcome struct {
	Payment             *models.PaymentRecord
	Enrollment          *models.Enrollment
	ConfirmationPending bool
}

// EnrollRequest identifies the member/class pair to enroll.
type EnrollRequest struct {
	MemberID int64 `json:"member" validate:"required,gt=0"`
	ClassID  int64 `json:"class" validate:"required,gt=0"`
}

// PayRequest carries a payment for a pending enrollment.
type PayRequest struct {
	EnrollmentID int64                `json:"enrollment" validate:"required,gt=0"`
	MemberID     int64                `json:"member" validate:"required,gt=0"`
	Amount       int64                `json:"amount" validate:"required,gt=0"`
	Method       models.PaymentMethod `json:"method" validate:"required"`
}

type enrollmentCreate struct {
	MemberID int64                   `json:"member"`
	ClassID  int64                   `json:"class"`
	Status   models.EnrollmentStatus `json:"status"`
}

type statusPatch struct {
	Status models.EnrollmentStatus `json:"status"`
}

type paymentCreate struct {
	MemberID      int64                `json:"member"`
	Amount        int64                `json:"amount"`
	Method        models.PaymentMethod `json:"method"`
	TransactionID string               `json:"transaction_id"`
}

// Service orchestrates enrollment workflows against the backend.
type Service struct {
	api        apiClient
	reconciler approvalRetrier
	validator  *validator.Validate
	logger     *zap.Logger
}

// NewService constructs the workflow service. reconciler may be nil, in
// which case pending confirmations are only logged.
func NewService(api apiClient, reconciler approvalRetrier, validate *validator.Validate, logger *zap.Logger) *Service {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{api: api, reconciler: reconciler, validator: validate, logger: logger}
}

// ListActiveClasses returns bookable classes. Read-only, no side effects.
func (s *Service) ListActiveClasses(ctx context.Context, filter models.ClassFilter) ([]models.ClassOffering, error) {
	query := url.Values{}
	query.Set("status", string(models.ClassStatusActive))
	if filter.TrainerID > 0 {
		query.Set("trainer", strconv.FormatInt(filter.TrainerID, 10))
	}
	if filter.Search != "" {
		query.Set("q", filter.Search)
	}
	if filter.Limit > 0 {
		query.Set("limit", strconv.Itoa(filter.Limit))
	}

	var classes []models.ClassOffering
	if err := s.api.Do(ctx, http.MethodGet, "/classes?"+query.Encode(), nil, &classes); err != nil {
		return nil, err
	}
	return classes, nil
}

// GetClass fetches a single offering.
func (s *Service) GetClass(ctx context.Context, classID int64) (*models.ClassOffering, error) {
	class := &models.ClassOffering{}
	if err := s.api.Do(ctx, http.MethodGet, fmt.Sprintf("/classes/%d", classID), nil, class); err != nil {
		return nil, err
	}
	return class, nil
}

// Enroll creates a pending enrollment unless the member already holds a
// live one for the class. The pre-check guards against double submission;
// the server's uniqueness constraint is the final authority, so a
// server-side duplicate rejection maps to the same AlreadyEnrolled outcome.
// A created-but-unpaid enrollment is a valid intermediate state.
func (s *Service) Enroll(ctx context.Context, memberID, classID int64) (*EnrollOutcome, error) {
	req := EnrollRequest{MemberID: memberID, ClassID: classID}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid enrollment payload")
	}

	if existing, err := s.findLiveEnrollment(ctx, memberID, classID); err != nil {
		return nil, err
	} else if existing != nil {
		return &EnrollOutcome{Enrollment: existing, AlreadyEnrolled: true}, nil
	}

	created := &models.Enrollment{}
	err := s.api.Do(ctx, http.MethodPost, "/enrollments", enrollmentCreate{
		MemberID: memberID,
		ClassID:  classID,
		Status:   models.EnrollmentStatusPending,
	}, created)
	if err != nil {
		if errors.Is(err, appErrors.ErrAlreadyEnrolled) || errors.Is(err, appErrors.ErrConflict) {
			// Raced by another device; fetch what the server holds.
			existing, lookupErr := s.findLiveEnrollment(ctx, memberID, classID)
			if lookupErr != nil {
				s.logger.Warn("duplicate enrollment lookup failed", zap.Int64("member", memberID), zap.Int64("class", classID), zap.Error(lookupErr))
			}
			return &EnrollOutcome{Enrollment: existing, AlreadyEnrolled: true}, nil
		}
		return nil, err
	}

	s.logger.Info("enrollment created",
		zap.Int64("enrollment", created.ID),
		zap.Int64("member", memberID),
		zap.Int64("class", classID),
	)
	return &EnrollOutcome{Enrollment: created}, nil
}

// Pay records a payment and then advances the enrollment to approved. Once
// the payment is recorded as completed it is never rolled back: a failed
// approval update surfaces as ConfirmationPending and is retried in the
// background.
func (s *Service) Pay(ctx context.Context, req PayRequest) (*PayOutcome, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payment payload")
	}
	if !req.Method.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unsupported payment method")
	}

	payment := &models.PaymentRecord{}
	err := s.api.Do(ctx, http.MethodPost, "/payments", paymentCreate{
		MemberID:      req.MemberID,
		Amount:        req.Amount,
		Method:        req.Method,
		TransactionID: uuid.NewString(),
	}, payment)
	if err != nil {
		// Nothing was confirmed created; safe to surface for retry.
		return nil, err
	}
	if payment.Status != models.PaymentStatusCompleted {
		return nil, appErrors.Clone(appErrors.ErrServerError, fmt.Sprintf("payment not completed (status %s)", payment.Status))
	}

	approved := &models.Enrollment{}
	patchErr := s.api.Do(ctx, http.MethodPatch, fmt.Sprintf("/enrollments/%d", req.EnrollmentID),
		statusPatch{Status: models.EnrollmentStatusApproved}, approved)
	if patchErr != nil {
		s.logger.Warn("payment recorded but approval update failed, scheduling reconciliation",
			zap.Int64("enrollment", req.EnrollmentID),
			zap.String("transaction", payment.TransactionID),
			zap.Error(patchErr),
		)
		if s.reconciler != nil {
			s.reconciler.Enqueue(req.EnrollmentID)
		}
		return &PayOutcome{Payment: payment, ConfirmationPending: true}, nil
	}

	s.logger.Info("enrollment approved",
		zap.Int64("enrollment", approved.ID),
		zap.String("transaction", payment.TransactionID),
	)
	return &PayOutcome{Payment: payment, Enrollment: approved}, nil
}

// Cancel transitions the enrollment to cancelled. Idempotent: cancelling an
// enrollment the server no longer holds is a no-op success.
func (s *Service) Cancel(ctx context.Context, enrollmentID int64) error {
	err := s.api.Do(ctx, http.MethodDelete, fmt.Sprintf("/enrollments/%d", enrollmentID), nil, nil)
	if err != nil && !errors.Is(err, appErrors.ErrNotFound) {
		return err
	}
	return nil
}

// ListEnrollments returns the member's enrollments joined with their class
// offerings. A failed class lookup degrades that entry to the raw
// enrollment instead of failing the whole list.
func (s *Service) ListEnrollments(ctx context.Context, memberID int64) ([]models.EnrollmentDetail, error) {
	enrollments, err := s.listEnrollments(ctx, memberID)
	if err != nil {
		return nil, err
	}

	details := make([]models.EnrollmentDetail, 0, len(enrollments))
	for _, e := range enrollments {
		detail := models.EnrollmentDetail{Enrollment: e}
		class, classErr := s.GetClass(ctx, e.ClassID)
		if classErr != nil {
			s.logger.Warn("class detail lookup failed, returning raw enrollment",
				zap.Int64("enrollment", e.ID),
				zap.Int64("class", e.ClassID),
				zap.Error(classErr),
			)
		} else {
			detail.Class = class
		}
		details = append(details, detail)
	}
	return details, nil
}

func (s *Service) listEnrollments(ctx context.Context, memberID int64) ([]models.Enrollment, error) {
	var enrollments []models.Enrollment
	path := "/enrollments?member=" + strconv.FormatInt(memberID, 10)
	if err := s.api.Do(ctx, http.MethodGet, path, nil, &enrollments); err != nil {
		return nil, err
	}
	return enrollments, nil
}

func (s *Service) findLiveEnrollment(ctx context.Context, memberID, classID int64) (*models.Enrollment, error) {
	enrollments, err := s.listEnrollments(ctx, memberID)
	if err != nil {
		return nil, err
	}
	for i := range enrollments {
		if enrollments[i].ClassID == classID && enrollments[i].Status.Live() {
			return &enrollments[i], nil
		}
	}
	return nil, nil
}
