// Package checkout places orders and drives the composition session from
// collecting customer details through to an acknowledged result.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/vasiliy-maslov/pizzeria/pkg/api"
	"github.com/vasiliy-maslov/pizzeria/storefront/internal/order"
	"github.com/vasiliy-maslov/pizzeria/storefront/internal/selection"
)

var (
	ErrSubmitInProgress  = errors.New("checkout: submission already in progress")
	ErrInvalidTransition = errors.New("checkout: invalid session transition")
)

// State is one of Idle, CollectingCustomerDetails, Submitting, Succeeded or Failed.
type State interface {
	Name() string
	sealed()
}

type Idle struct{}

type CollectingCustomerDetails struct {
	Selection *selection.Selection
}

type Submitting struct {
	Request api.OrderRequest
}

type Succeeded struct {
	Order api.OrderResponse
}

type Failed struct {
	Err error
}

func (Idle) Name() string                      { return "idle" }
func (CollectingCustomerDetails) Name() string { return "collecting_customer_details" }
func (Submitting) Name() string                { return "submitting" }
func (Succeeded) Name() string                 { return "succeeded" }
func (Failed) Name() string                    { return "failed" }

func (Idle) sealed()                      {}
func (CollectingCustomerDetails) sealed() {}
func (Submitting) sealed()                {}
func (Succeeded) sealed()                 {}
func (Failed) sealed()                    {}

// OrderPlacer is satisfied by Submitter.
type OrderPlacer interface {
	Submit(ctx context.Context, req api.OrderRequest) (api.OrderResponse, error)
}

// Session is the composition session state machine:
//
//	Idle -> CollectingCustomerDetails -> Submitting -> Succeeded | Failed -> Idle
//
// Collecting may also be cancelled back to Idle. While Submitting, further
// submits are refused so a repeated click cannot place a second order.
type Session struct {
	encoder *order.Encoder
	placer  OrderPlacer

	mu    sync.Mutex
	state State
}

func NewSession(encoder *order.Encoder, placer OrderPlacer) *Session {
	return &Session{encoder: encoder, placer: placer, state: Idle{}}
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// CanSubmit reports whether the submit action should be enabled.
func (s *Session) CanSubmit() bool {
	_, ok := s.State().(CollectingCustomerDetails)
	return ok
}

// Begin opens the customer details step for sel.
func (s *Session) Begin(sel *selection.Selection) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.state.(Idle); !ok {
		return s.invalid(CollectingCustomerDetails{})
	}
	s.transition(CollectingCustomerDetails{Selection: sel})
	return nil
}

// Cancel abandons the customer details step without side effects.
func (s *Session) Cancel() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.state.(CollectingCustomerDetails); !ok {
		return s.invalid(Idle{})
	}
	s.transition(Idle{})
	return nil
}

// Submit encodes the collected selection and places the order. A validation
// failure leaves the session collecting so the details can be corrected.
func (s *Session) Submit(ctx context.Context, customer api.CustomerInfo) (api.OrderResponse, error) {
	s.mu.Lock()
	collecting, ok := s.state.(CollectingCustomerDetails)
	if !ok {
		defer s.mu.Unlock()
		if _, busy := s.state.(Submitting); busy {
			return api.OrderResponse{}, ErrSubmitInProgress
		}
		return api.OrderResponse{}, s.invalid(Submitting{})
	}

	req, err := s.encoder.Encode(collecting.Selection, customer)
	if err != nil {
		s.mu.Unlock()
		return api.OrderResponse{}, err
	}
	s.transition(Submitting{Request: req})
	s.mu.Unlock()

	resp, err := s.placer.Submit(ctx, req)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.transition(Failed{Err: err})
		return api.OrderResponse{}, err
	}
	s.transition(Succeeded{Order: resp})
	return resp, nil
}

// Acknowledge closes a finished result and returns to Idle.
func (s *Session) Acknowledge() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state.(type) {
	case Succeeded, Failed:
		s.transition(Idle{})
		return nil
	default:
		return s.invalid(Idle{})
	}
}

func (s *Session) transition(to State) {
	log.Debug().Str("from", s.state.Name()).Str("to", to.Name()).Msg("checkout: session transition")
	s.state = to
}

func (s *Session) invalid(to State) error {
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, s.state.Name(), to.Name())
}
