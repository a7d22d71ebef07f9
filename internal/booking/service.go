// Package booking validates and submits appointment requests.
package booking

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"homecare-portal/internal/availability"
	"homecare-portal/internal/backend"
	"homecare-portal/internal/cache"
	"homecare-portal/internal/models"
	"homecare-portal/internal/observability"
	"homecare-portal/internal/telemetry"
)

var ErrMissingField = errors.New("missing required field")

// MissingFieldError names the first empty required field.
type MissingFieldError struct {
	Field string
}

func (e *MissingFieldError) Error() string { return fmt.Sprintf("%s is required", e.Field) }

func (e *MissingFieldError) Is(target error) bool { return target == ErrMissingField }

// Backend is the slice of the marketplace API bookings need.
type Backend interface {
	GetProvider(ctx context.Context, token string, id models.ID) (models.Provider, error)
	CreateAppointment(ctx context.Context, token string, draft models.AppointmentDraft) (models.Appointment, error)
}

// Emitter publishes activity events.
type Emitter interface {
	Emit(ctx context.Context, name, requestID, userID string, payload map[string]any)
}

// Service submits appointment drafts.
type Service struct {
	backend   Backend
	providers cache.ProviderCache
	validator *availability.Validator
	emitter   Emitter
	logger    *zap.Logger
}

// NewService builds a booking Service. A nil cache or emitter disables that concern.
func NewService(b Backend, providers cache.ProviderCache, validator *availability.Validator, emitter Emitter, logger *zap.Logger) *Service {
	if providers == nil {
		providers = cache.NoopProviderCache{}
	}
	if validator == nil {
		validator = availability.NewValidator()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{backend: b, providers: providers, validator: validator, emitter: emitter, logger: logger}
}

// Provider returns the provider, cache first.
func (s *Service) Provider(ctx context.Context, session models.Session, id models.ID) (models.Provider, error) {
	if p, err := s.providers.GetProvider(ctx, id); err == nil {
		return p, nil
	} else if !errors.Is(err, cache.ErrMiss) {
		s.logger.Warn("provider cache read failed", zap.String("provider_id", id.String()), zap.Error(err))
	}

	p, err := s.backend.GetProvider(ctx, session.Token, id)
	if err != nil {
		return models.Provider{}, err
	}
	if p.ID == "" {
		p.ID = id
	}
	if err := s.providers.SetProvider(ctx, p); err != nil {
		s.logger.Warn("provider cache write failed", zap.String("provider_id", id.String()), zap.Error(err))
	}
	return p, nil
}

// CheckSlot returns live warnings for a candidate slot. Without provider data only the date
// and time format and the future-date rule are checked.
func (s *Service) CheckSlot(ctx context.Context, session models.Session, providerID models.ID, date, startTime string) []error {
	var avail models.Availability
	if providerID != "" {
		if p, err := s.Provider(ctx, session, providerID); err == nil {
			avail = p.Availability()
		} else {
			s.logger.Debug("availability lookup failed", zap.String("provider_id", providerID.String()), zap.Error(err))
		}
	}
	return s.validator.Warnings(date, startTime, avail)
}

// Submit validates draft and books it. Validation failures are returned before any booking
// call; backend refusals come back as *RejectedError.
func (s *Service) Submit(ctx context.Context, session models.Session, requestID string, draft models.AppointmentDraft) (models.Appointment, error) {
	draft = normalize(draft)
	if err := requireFields(draft); err != nil {
		observability.IncBooking("invalid")
		return models.Appointment{}, err
	}

	// Missing provider data must not block the booking; the backend still checks.
	var avail models.Availability
	if draft.ProviderID != "" {
		p, err := s.Provider(ctx, session, draft.ProviderID)
		if err != nil {
			s.logger.Warn("provider lookup failed, skipping availability check",
				zap.String("provider_id", draft.ProviderID.String()), zap.Error(err))
		} else {
			avail = p.Availability()
			if draft.ProviderEmail == "" {
				draft.ProviderEmail = p.Email
			}
		}
	}
	if draft.ProviderEmail == "" {
		observability.IncBooking("invalid")
		return models.Appointment{}, &MissingFieldError{Field: "providerEmail"}
	}

	if err := s.validator.Check(draft.Date, draft.StartTime, avail); err != nil {
		observability.IncBooking("invalid")
		return models.Appointment{}, err
	}

	appt, err := s.backend.CreateAppointment(ctx, session.Token, draft)
	if err != nil {
		if backend.IsUnavailable(err) {
			observability.IncBooking("error")
			return models.Appointment{}, err
		}
		reason := Classify(err)
		observability.IncBooking("rejected")
		s.emit(ctx, telemetry.EventAppointmentBlocked, requestID, session, map[string]any{
			"reason":         string(reason),
			"provider_email": draft.ProviderEmail,
			"date":           draft.Date,
		})
		return models.Appointment{}, &RejectedError{Reason: reason, Err: err}
	}

	observability.IncBooking("created")
	s.emit(ctx, telemetry.EventAppointmentCreated, requestID, session, map[string]any{
		"appointment_id": appt.ID.String(),
		"provider_email": draft.ProviderEmail,
		"service":        draft.Service,
		"date":           draft.Date,
		"start_time":     draft.StartTime,
	})
	return appt, nil
}

func (s *Service) emit(ctx context.Context, name, requestID string, session models.Session, payload map[string]any) {
	if s.emitter == nil {
		return
	}
	s.emitter.Emit(ctx, name, requestID, session.UserID.String(), payload)
}

func normalize(d models.AppointmentDraft) models.AppointmentDraft {
	d.Service = strings.TrimSpace(d.Service)
	d.Date = strings.TrimSpace(d.Date)
	d.StartTime = strings.TrimSpace(d.StartTime)
	d.Address = strings.TrimSpace(d.Address)
	d.ProviderEmail = strings.TrimSpace(d.ProviderEmail)
	d.Notes = strings.TrimSpace(d.Notes)
	return d
}

func requireFields(d models.AppointmentDraft) error {
	switch {
	case d.Service == "":
		return &MissingFieldError{Field: "service"}
	case d.Date == "":
		return &MissingFieldError{Field: "date"}
	case d.StartTime == "":
		return &MissingFieldError{Field: "startTime"}
	case d.Address == "":
		return &MissingFieldError{Field: "address"}
	case d.ProviderEmail == "" && d.ProviderID == "":
		return &MissingFieldError{Field: "providerEmail"}
	}
	return nil
}
