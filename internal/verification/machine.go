package verification

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/jason-czar/freedomains/internal/dnsspec"
	"github.com/jason-czar/freedomains/internal/model"
)

const (
	defaultMaxRetries = 10
	defaultRetryDelay = 15 * time.Second
)

// ProviderChecker is the slice of the gateway client the verifier polls
type ProviderChecker interface {
	// Verify reports whether the main record at fqdn resolves
	Verify(ctx context.Context, fqdn string) (bool, error)
	// CheckPlatform reports whether the platform sees the ownership record
	CheckPlatform(ctx context.Context, fqdn string) (bool, error)
}

// StateStore persists verification state transitions
type StateStore interface {
	Get(id int) (*model.DomainRegistration, error)
	UpdateConfig(id int, merge func(cfg *dnsspec.DomainConfig) error) (*dnsspec.DomainConfig, error)
}

// Notifier receives state transitions, e.g. to push them to the dashboard
type Notifier interface {
	VerificationChanged(reg *model.DomainRegistration, state dnsspec.VerificationState)
}

// Service runs the propagation-verification state machine. Each domain gets
// an independent polling loop; loops for different domains share nothing
// mutable, and writes for the same domain (automatic loop vs. a manual
// recheck) are serialized by a per-domain mutex.
type Service struct {
	provider   ProviderChecker
	store      StateStore
	notifier   Notifier
	logger     *logrus.Entry
	maxRetries int
	retryDelay time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu    sync.Mutex
	locks map[int]*sync.Mutex
}

// Options tune the polling loop; zero values take the defaults (10 x 15s)
type Options struct {
	MaxRetries int
	RetryDelay time.Duration
}

// NewService creates a verification service
func NewService(p ProviderChecker, s StateStore, notifier Notifier, logger *logrus.Entry, opts Options) *Service {
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = defaultMaxRetries
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = defaultRetryDelay
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Service{
		provider:   p,
		store:      s,
		notifier:   notifier,
		logger:     logger.WithField("component", "verification"),
		maxRetries: opts.MaxRetries,
		retryDelay: opts.RetryDelay,
		ctx:        ctx,
		cancel:     cancel,
		locks:      make(map[int]*sync.Mutex),
	}
}

// Stop cancels all polling loops and waits for them to drain
func (s *Service) Stop() {
	s.cancel()
	s.wg.Wait()
}

// Handle tracks a detached verification loop
type Handle struct {
	done  chan struct{}
	final dnsspec.VerificationState
}

// Wait blocks until the loop reached a terminal state and returns it
func (h *Handle) Wait() dnsspec.VerificationState {
	<-h.done
	return h.final
}

// Begin starts the polling loop for a domain, detached from the caller.
// The request that created the domain returns immediately; the handle is
// there for callers that do want to await the outcome.
func (s *Service) Begin(domainID int) *Handle {
	h := &Handle{done: make(chan struct{})}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer close(h.done)
		h.final = s.run(domainID)
	}()
	return h
}

// run drives the loop to a terminal state:
//
//	Pending -> Active  both checks passed
//	Pending -> Pending check failed, attempts < maxRetries: wait and retry
//	Pending -> Failed  attempts exhausted without success
//	Pending -> Error   the check itself broke (network failure etc.)
//
// Failed and Error are never retried automatically: "not yet propagated" is
// expected and worth waiting out, a broken check needs an operator.
func (s *Service) run(domainID int) dnsspec.VerificationState {
	log := s.logger.WithField("domain_id", domainID)
	for {
		state, terminal := s.step(domainID)
		if terminal {
			log.WithField("status", state.Status).Info("verification finished")
			return state
		}
		log.WithField("attempts", state.Attempts).Debug("not yet propagated, waiting")

		select {
		case <-time.After(s.retryDelay):
		case <-s.ctx.Done():
			return state
		}
	}
}

// step performs one verification attempt under the domain's lock and
// persists the transition. Returns the new state and whether it is terminal
// for the automatic loop.
func (s *Service) step(domainID int) (dnsspec.VerificationState, bool) {
	lock := s.domainLock(domainID)
	lock.Lock()
	defer lock.Unlock()

	reg, err := s.store.Get(domainID)
	if err != nil {
		// Row is gone (deleted mid-verification): nothing left to verify
		s.logger.WithField("domain_id", domainID).Warnf("verification target vanished: %v", err)
		return dnsspec.VerificationState{Status: dnsspec.VerificationError, LastError: err.Error()}, true
	}

	current := reg.Config.Data().Verification
	if current.Status.Terminal() {
		return current, true
	}
	if current.Attempts >= s.maxRetries {
		// Bound enforced here, not by caller discipline
		return s.persist(reg, func(v *dnsspec.VerificationState) {
			v.Status = dnsspec.VerificationFailed
		}), true
	}

	outcome, checkErr := s.check(reg)
	if checkErr != nil {
		return s.persist(reg, func(v *dnsspec.VerificationState) {
			v.Status = dnsspec.VerificationError
			v.LastError = checkErr.Error()
		}), true
	}

	if outcome.mainPresent && outcome.platformVerified {
		return s.persist(reg, func(v *dnsspec.VerificationState) {
			v.Status = dnsspec.VerificationActive
			v.Attempts++
			v.LastResult = outcome.String()
			v.LastError = ""
		}), true
	}

	state := s.persist(reg, func(v *dnsspec.VerificationState) {
		v.Status = dnsspec.VerificationPending
		v.Attempts++
		v.LastResult = outcome.String()
	})
	if state.Attempts >= s.maxRetries {
		return s.persist(reg, func(v *dnsspec.VerificationState) {
			v.Status = dnsspec.VerificationFailed
		}), true
	}
	return state, false
}

// Recheck performs exactly one synchronous verification attempt, re-entering
// from Failed/Error with the attempt counter reset, and returns the outcome.
func (s *Service) Recheck(domainID int) (dnsspec.VerificationState, error) {
	lock := s.domainLock(domainID)
	lock.Lock()
	defer lock.Unlock()

	reg, err := s.store.Get(domainID)
	if err != nil {
		return dnsspec.VerificationState{}, err
	}

	outcome, checkErr := s.check(reg)
	if checkErr != nil {
		return s.persist(reg, func(v *dnsspec.VerificationState) {
			v.Status = dnsspec.VerificationError
			v.Attempts = 0
			v.LastError = checkErr.Error()
		}), nil
	}

	if outcome.mainPresent && outcome.platformVerified {
		return s.persist(reg, func(v *dnsspec.VerificationState) {
			v.Status = dnsspec.VerificationActive
			v.Attempts = 1
			v.LastResult = outcome.String()
			v.LastError = ""
		}), nil
	}

	return s.persist(reg, func(v *dnsspec.VerificationState) {
		v.Status = dnsspec.VerificationPending
		v.Attempts = 1
		v.LastResult = outcome.String()
		v.LastError = ""
	}), nil
}

type checkOutcome struct {
	mainPresent      bool
	platformVerified bool
}

func (o checkOutcome) String() string {
	switch {
	case o.mainPresent && o.platformVerified:
		return "main record and platform verification present"
	case o.mainPresent:
		return "main record present, platform verification missing"
	default:
		return "main record missing"
	}
}

// check runs the two-step probe: the main record must resolve first, then
// the platform must see the ownership record.
func (s *Service) check(reg *model.DomainRegistration) (checkOutcome, error) {
	ctx, cancel := context.WithTimeout(s.ctx, 30*time.Second)
	defer cancel()

	fqdn := reg.FQDN()
	mainPresent, err := s.provider.Verify(ctx, fqdn)
	if err != nil {
		return checkOutcome{}, err
	}
	if !mainPresent {
		return checkOutcome{}, nil
	}

	platformVerified, err := s.provider.CheckPlatform(ctx, fqdn)
	if err != nil {
		return checkOutcome{mainPresent: true}, err
	}
	return checkOutcome{mainPresent: true, platformVerified: platformVerified}, nil
}

func (s *Service) persist(reg *model.DomainRegistration, mutate func(v *dnsspec.VerificationState)) dnsspec.VerificationState {
	var state dnsspec.VerificationState
	_, err := s.store.UpdateConfig(reg.ID, func(cfg *dnsspec.DomainConfig) error {
		now := time.Now()
		cfg.Verification.LastCheckedAt = &now
		mutate(&cfg.Verification)
		state = cfg.Verification
		return nil
	})
	if err != nil {
		s.logger.WithField("domain_id", reg.ID).Errorf("failed to persist verification state: %v", err)
		return reg.Config.Data().Verification
	}
	if s.notifier != nil {
		s.notifier.VerificationChanged(reg, state)
	}
	return state
}

func (s *Service) domainLock(domainID int) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.locks[domainID]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[domainID] = lock
	}
	return lock
}
