package usecase

import (
	"context"
	"encoding/json"
	"sort"

	"github.com/MitsuharuNakamura/passkey-demo/internal/core/domain"
	"github.com/MitsuharuNakamura/passkey-demo/internal/core/port"
	"github.com/MitsuharuNakamura/passkey-demo/internal/repository"
)

type mockUserRepository struct {
	users map[string]domain.User

	existsErr error
	getErr    error
	putErr    error

	existsCalls int
	getCalls    int
	putCalls    int
	lastPut     domain.User
}

func newMockUserRepository(seed ...domain.User) *mockUserRepository {
	m := &mockUserRepository{users: make(map[string]domain.User)}
	for _, u := range seed {
		m.users[u.Username] = u
	}
	return m
}

func (m *mockUserRepository) Exists(_ context.Context, username string) (bool, error) {
	m.existsCalls++
	if m.existsErr != nil {
		return false, m.existsErr
	}
	_, ok := m.users[username]
	return ok, nil
}

func (m *mockUserRepository) Get(_ context.Context, username string) (*domain.User, error) {
	m.getCalls++
	if m.getErr != nil {
		return nil, m.getErr
	}
	user, ok := m.users[username]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copy := user
	return &copy, nil
}

func (m *mockUserRepository) Put(_ context.Context, user domain.User) error {
	m.putCalls++
	m.lastPut = user
	if m.putErr != nil {
		return m.putErr
	}
	m.users[user.Username] = user
	return nil
}

func (m *mockUserRepository) List(_ context.Context) ([]domain.User, error) {
	out := make([]domain.User, 0, len(m.users))
	for _, u := range m.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out, nil
}

type mockSessionStore struct {
	sessions map[string]*domain.Session

	saveErr   error
	deleteErr error

	saveCalls   int
	deleteCalls int
	lastDeleted string
}

func newMockSessionStore() *mockSessionStore {
	return &mockSessionStore{sessions: make(map[string]*domain.Session)}
}

func (m *mockSessionStore) Get(_ context.Context, sessionID string) (*domain.Session, error) {
	session, ok := m.sessions[sessionID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return session, nil
}

func (m *mockSessionStore) Save(_ context.Context, session *domain.Session) error {
	m.saveCalls++
	if m.saveErr != nil {
		return m.saveErr
	}
	m.sessions[session.ID] = session
	return nil
}

func (m *mockSessionStore) Delete(_ context.Context, sessionID string) error {
	m.deleteCalls++
	m.lastDeleted = sessionID
	if m.deleteErr != nil {
		return m.deleteErr
	}
	delete(m.sessions, sessionID)
	return nil
}

type mockVerifier struct {
	factor    *port.Factor
	challenge *port.Challenge
	status    port.ChallengeStatus

	createFactorErr     error
	verifyFactorErr     error
	createChallengeErr  error
	approveChallengeErr error

	createFactorCalls     int
	verifyFactorCalls     int
	createChallengeCalls  int
	approveChallengeCalls int

	lastIdentity     string
	lastFriendlyName string
	lastCredential   json.RawMessage
}

func (m *mockVerifier) CreateFactor(_ context.Context, identity, friendlyName string) (*port.Factor, error) {
	m.createFactorCalls++
	m.lastIdentity = identity
	m.lastFriendlyName = friendlyName
	if m.createFactorErr != nil {
		return nil, m.createFactorErr
	}
	return m.factor, nil
}

func (m *mockVerifier) VerifyFactor(_ context.Context, credential json.RawMessage) error {
	m.verifyFactorCalls++
	m.lastCredential = credential
	return m.verifyFactorErr
}

func (m *mockVerifier) CreateChallenge(_ context.Context, identity string) (*port.Challenge, error) {
	m.createChallengeCalls++
	m.lastIdentity = identity
	if m.createChallengeErr != nil {
		return nil, m.createChallengeErr
	}
	return m.challenge, nil
}

func (m *mockVerifier) ApproveChallenge(_ context.Context, credential json.RawMessage) (port.ChallengeStatus, error) {
	m.approveChallengeCalls++
	m.lastCredential = credential
	if m.approveChallengeErr != nil {
		return "", m.approveChallengeErr
	}
	return m.status, nil
}

type mockEventPublisher struct {
	registeredCalls    int
	authenticatedCalls int
	loggedOutCalls     int

	lastRegistered    domain.UserRegisteredEvent
	lastAuthenticated domain.UserAuthenticatedEvent
	lastLoggedOut     domain.SessionLoggedOutEvent
}

func (m *mockEventPublisher) PublishUserRegistered(_ context.Context, event domain.UserRegisteredEvent) error {
	m.registeredCalls++
	m.lastRegistered = event
	return nil
}

func (m *mockEventPublisher) PublishUserAuthenticated(_ context.Context, event domain.UserAuthenticatedEvent) error {
	m.authenticatedCalls++
	m.lastAuthenticated = event
	return nil
}

func (m *mockEventPublisher) PublishSessionLoggedOut(_ context.Context, event domain.SessionLoggedOutEvent) error {
	m.loggedOutCalls++
	m.lastLoggedOut = event
	return nil
}
