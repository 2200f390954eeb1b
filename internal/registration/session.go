package registration

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/zjrosen/regform/internal/debounce"
	"github.com/zjrosen/regform/internal/domain"
	"github.com/zjrosen/regform/internal/form"
	"github.com/zjrosen/regform/internal/log"
	"github.com/zjrosen/regform/internal/pubsub"
	"github.com/zjrosen/regform/internal/tracing"
)

var (
	// ErrInvalidForm is returned by Submit when a field fails validation.
	ErrInvalidForm = errors.New("form is invalid")
	// ErrSubmitInProgress is returned by Submit while a request is in flight.
	ErrSubmitInProgress = errors.New("submit already in progress")
	// ErrSuperseded is returned by CheckAvailability when the username
	// changed before the response arrived. The result was discarded.
	ErrSuperseded = errors.New("availability check superseded")
	// ErrClosed is returned after Close.
	ErrClosed = errors.New("session closed")
)

// Session owns one registration form and everything that reacts to it.
// Safe for concurrent use: the debouncer fires on its own goroutine and the
// UI calls in from the Bubble Tea loop.
type Session struct {
	api    API
	tracer trace.Tracer
	broker *pubsub.Broker[State]

	// mu guards everything below, including form. Form observers run with
	// mu held, so they must not call back into exported methods.
	mu          sync.Mutex
	form        *form.Form
	debouncer   *debounce.Debouncer[string]
	unsubscribe func()

	baseCtx context.Context
	cancel  context.CancelFunc

	generation  uint64
	cancelCheck context.CancelFunc
	checking    bool

	availability    domain.Availability
	countries       []domain.Country
	countriesLoaded bool

	phase        Phase
	outcome      Outcome
	registered   domain.Registration
	errorMessage string

	closed bool
}

// Option configures a Session.
type Option func(*options)

type options struct {
	delay     time.Duration
	maxLength int
	tracer    trace.Tracer
}

// WithDebounce sets the quiet period before an availability check.
func WithDebounce(d time.Duration) Option {
	return func(o *options) { o.delay = d }
}

// WithUsernameMaxLength overrides the username length limit.
func WithUsernameMaxLength(n int) Option {
	return func(o *options) { o.maxLength = n }
}

// WithTracer sets the tracer for session spans.
func WithTracer(t trace.Tracer) Option {
	return func(o *options) { o.tracer = t }
}

// NewSession creates a session backed by api. Call Close when done.
func NewSession(api API, opts ...Option) *Session {
	o := options{
		delay:     debounce.DefaultDelay,
		maxLength: form.DefaultUsernameMaxLength,
		tracer:    noop.NewTracerProvider().Tracer("noop"),
	}
	for _, opt := range opts {
		opt(&o)
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		api:     api,
		tracer:  o.tracer,
		broker:  pubsub.NewBroker[State](pubsub.WithReplayLatest()),
		form:    form.New(form.RegistrationSchema(o.maxLength)),
		baseCtx: ctx,
		cancel:  cancel,
	}
	s.debouncer = debounce.New(o.delay, s.debouncedCheck)
	s.unsubscribe = s.form.Subscribe(s.onFormChange)

	s.mu.Lock()
	s.publishLocked(pubsub.InitialEvent)
	s.mu.Unlock()
	return s
}

// Subscribe streams state snapshots. The current state is delivered first.
func (s *Session) Subscribe(ctx context.Context) <-chan pubsub.Event[State] {
	return s.broker.Subscribe(ctx)
}

// State returns the current snapshot.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// DebounceDelay returns the configured quiet period.
func (s *Session) DebounceDelay() time.Duration {
	return s.debouncer.Delay()
}

// Close cancels in-flight work and closes every subscription.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.debouncer.Stop()
	s.unsubscribe()
	if s.cancelCheck != nil {
		s.cancelCheck()
		s.cancelCheck = nil
	}
	s.mu.Unlock()

	s.cancel()
	s.broker.Close()
}

// LoadCountries fetches the country list. On failure the list is empty but
// counts as loaded, so the view stops waiting; the error is logged and
// returned and the form keeps working.
func (s *Session) LoadCountries(ctx context.Context) ([]domain.Country, error) {
	countries, err := s.api.FetchCountries(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		log.ErrorErr(log.CatSession, "Error fetching countries", err)
		s.countries = nil
		s.countriesLoaded = true
		s.publishLocked(pubsub.UpdatedEvent)
		return nil, fmt.Errorf("load countries: %w", err)
	}

	s.countries = append([]domain.Country(nil), countries...)
	s.countriesLoaded = true
	log.Debug(log.CatSession, "countries loaded", "count", len(countries))
	s.publishLocked(pubsub.UpdatedEvent)
	return append([]domain.Country(nil), countries...), nil
}

// SetUsername updates the username and schedules an availability check.
func (s *Session) SetUsername(v string) error {
	return s.setValue(form.FieldUsername, v)
}

// SetCountry updates the selected country code.
func (s *Session) SetCountry(code string) error {
	return s.setValue(form.FieldCountry, code)
}

// Touch marks field as interacted with so its errors become visible.
func (s *Session) Touch(field string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	return s.form.Touch(field)
}

func (s *Session) setValue(field, v string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if s.form.Value(field) == v && s.form.Interacted(field) {
		return nil
	}
	return s.form.SetValue(field, v)
}

// onFormChange runs with mu held.
func (s *Session) onFormChange(c form.Change) {
	switch {
	case c.Kind == form.ChangeReset:
		s.supersedeCheckLocked()
		s.debouncer.Cancel()
	case c.Kind == form.ChangeValue && c.Field == form.FieldUsername:
		s.supersedeCheckLocked()
		if c.Value == "" || len(c.Errors[form.FieldUsername]) > 0 {
			s.debouncer.Cancel()
		} else {
			s.debouncer.Trigger(c.Value)
		}
	}
	s.publishLocked(pubsub.UpdatedEvent)
}

// supersedeCheckLocked invalidates any outstanding check for the previous
// username and forgets its availability.
func (s *Session) supersedeCheckLocked() {
	s.generation++
	if s.cancelCheck != nil {
		s.cancelCheck()
		s.cancelCheck = nil
	}
	s.checking = false
	s.availability = domain.AvailabilityUnknown
}

func (s *Session) debouncedCheck(username string) {
	_, err := s.CheckAvailability(s.baseCtx)
	switch {
	case err == nil, errors.Is(err, ErrSuperseded), errors.Is(err, ErrClosed):
	default:
		log.Debug(log.CatSession, "debounced check failed", "username", username, "error", err)
	}
}

// CheckAvailability checks the current username now, bypassing the
// debouncer. An empty or invalid username yields AvailabilityUnknown without
// a request. On transport failure the previous availability is kept.
func (s *Session) CheckAvailability(ctx context.Context) (domain.Availability, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return domain.AvailabilityUnknown, ErrClosed
	}
	username := s.form.Value(form.FieldUsername)
	if username == "" || !s.form.FieldValid(form.FieldUsername) {
		s.mu.Unlock()
		return domain.AvailabilityUnknown, nil
	}

	s.debouncer.Cancel()
	if s.cancelCheck != nil {
		s.cancelCheck()
	}
	s.generation++
	gen := s.generation
	checkCtx, cancel := context.WithCancel(ctx)
	s.cancelCheck = cancel
	s.checking = true
	s.publishLocked(pubsub.UpdatedEvent)
	s.mu.Unlock()
	defer cancel()

	checkCtx, span := s.tracer.Start(checkCtx, tracing.SpanPrefixSession+"check_availability",
		trace.WithAttributes(
			attribute.String(tracing.AttrUsername, username),
			attribute.Int64(tracing.AttrGeneration, int64(gen)),
		))
	defer span.End()

	res, err := s.api.CheckAvailability(checkCtx, username)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return domain.AvailabilityUnknown, ErrClosed
	}
	if gen != s.generation {
		log.Debug(log.CatSession, "discarding stale availability", "username", username, "generation", gen, "current", s.generation)
		span.SetAttributes(attribute.Bool("regform.check.stale", true))
		return s.availability, ErrSuperseded
	}
	s.cancelCheck = nil
	s.checking = false

	if err != nil {
		log.ErrorErr(log.CatSession, "Error checking username availability", err, "username", username)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.publishLocked(pubsub.UpdatedEvent)
		return s.availability, fmt.Errorf("check availability: %w", err)
	}

	s.availability = domain.AvailabilityFrom(res)
	span.SetAttributes(attribute.Bool(tracing.AttrAvailable, res.Available))
	s.publishLocked(pubsub.UpdatedEvent)
	return s.availability, nil
}

// Submit validates the form and, when valid, posts the registration.
// Success clears the form; failure keeps the values and sets FailureMessage.
func (s *Session) Submit(ctx context.Context) (domain.Registration, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return domain.Registration{}, ErrClosed
	}
	if s.phase == PhaseSubmitting {
		s.mu.Unlock()
		return domain.Registration{}, ErrSubmitInProgress
	}

	s.phase = PhaseValidating
	s.publishLocked(pubsub.UpdatedEvent)
	if !s.form.Valid() {
		s.form.MarkAllTouched()
		s.phase = PhaseIdle
		s.outcome = OutcomeRejected
		s.publishLocked(pubsub.UpdatedEvent)
		s.mu.Unlock()
		return domain.Registration{}, ErrInvalidForm
	}

	username := s.form.Value(form.FieldUsername)
	country := s.form.Value(form.FieldCountry)
	s.phase = PhaseSubmitting
	s.publishLocked(pubsub.UpdatedEvent)
	s.mu.Unlock()

	ctx, span := s.tracer.Start(ctx, tracing.SpanPrefixSession+"submit",
		trace.WithAttributes(
			attribute.String(tracing.AttrUsername, username),
			attribute.String(tracing.AttrCountry, country),
		))
	defer span.End()

	reg, err := s.api.Register(ctx, username, country)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.phase = PhaseIdle

	if err != nil {
		log.ErrorErr(log.CatSession, "Error during registration", err, "username", username)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.outcome = OutcomeFailure
		s.errorMessage = FailureMessage
		s.publishLocked(pubsub.UpdatedEvent)
		return domain.Registration{}, fmt.Errorf("register: %w", err)
	}

	log.Info(log.CatSession, "registered", "username", username, "country", country, "id", reg.ID)
	s.outcome = OutcomeSuccess
	s.registered = reg
	s.errorMessage = ""
	if !s.closed {
		// Reset notifies onFormChange, which publishes and drops availability.
		s.form.Reset()
	}
	return reg, nil
}

func (s *Session) publishLocked(t pubsub.EventType) {
	s.broker.Publish(t, s.snapshotLocked())
}

func (s *Session) snapshotLocked() State {
	st := State{
		Username:        s.form.Value(form.FieldUsername),
		Country:         s.form.Value(form.FieldCountry),
		FieldErrors:     map[string]string{},
		Valid:           s.form.Valid(),
		Availability:    s.availability,
		Checking:        s.checking,
		Generation:      s.generation,
		Countries:       s.countries,
		CountriesLoaded: s.countriesLoaded,
		Phase:           s.phase,
		Outcome:         s.outcome,
		Registered:      s.registered,
		ErrorMessage:    s.errorMessage,
	}
	for _, spec := range s.form.Schema() {
		if msg := s.form.ErrorMessage(spec.Name); msg != "" {
			st.FieldErrors[spec.Name] = msg
		}
	}
	return st
}
