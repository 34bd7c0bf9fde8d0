package sessionstore_test

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"

	"github.com/slotwise/dialog-orchestrator/internal/domain"
	"github.com/slotwise/dialog-orchestrator/internal/sessionstore"
	"github.com/slotwise/dialog-orchestrator/pkg/logger"
)

type SessionStoreTestSuite struct {
	suite.Suite
	client *redis.Client
	store  *sessionstore.RedisStore
}

func (s *SessionStoreTestSuite) SetupSuite() {
	client, err := sessionstore.Connect("localhost", 6379, "", 15)
	if err != nil {
		s.T().Fatalf("failed to connect to Redis: %v", err)
	}
	if err := client.Ping(context.Background()).Err(); err != nil {
		s.T().Skipf("no live Redis at localhost:6379, skipping session store suite: %v", err)
	}
	s.client = client
	s.store = sessionstore.New(client, "dialog-test", logger.New("error"))
}

func (s *SessionStoreTestSuite) TearDownSuite() {
	if s.client != nil {
		s.client.Close()
	}
}

func (s *SessionStoreTestSuite) SetupTest() {
	s.client.FlushDB(context.Background())
}

func (s *SessionStoreTestSuite) TestSetThenGetRoundtrips() {
	ctx := context.Background()
	slots := domain.NewSlots()
	slots.Set(domain.SlotServiceID, "svc-1")
	state := &domain.SessionState{
		Intent: domain.IntentCreateAppointment,
		Slots:  slots,
		Status: domain.StatusNeedsClarification,
	}

	err := s.store.Set(ctx, domain.DomainService, "user-1", state, time.Minute)
	s.Require().NoError(err)

	got, err := s.store.Get(ctx, domain.DomainService, "user-1")
	s.Require().NoError(err)
	s.Require().NotNil(got)
	assert.Equal(s.T(), domain.IntentCreateAppointment, got.Intent)
	assert.Equal(s.T(), "svc-1", got.Slots.GetString(domain.SlotServiceID))
}

func (s *SessionStoreTestSuite) TestGetMissingReturnsNilWithoutError() {
	got, err := s.store.Get(context.Background(), domain.DomainService, "no-such-user")
	s.Require().NoError(err)
	assert.Nil(s.T(), got)
}

func (s *SessionStoreTestSuite) TestClearRemovesSession() {
	ctx := context.Background()
	state := &domain.SessionState{Intent: domain.IntentCreateReservation, Slots: domain.NewSlots()}
	s.Require().NoError(s.store.Set(ctx, domain.DomainReservation, "user-2", state, time.Minute))

	s.Require().NoError(s.store.Clear(ctx, domain.DomainReservation, "user-2"))

	got, err := s.store.Get(ctx, domain.DomainReservation, "user-2")
	s.Require().NoError(err)
	assert.Nil(s.T(), got)
}

func (s *SessionStoreTestSuite) TestDomainsAreKeyIsolated() {
	ctx := context.Background()
	svcState := &domain.SessionState{Intent: domain.IntentCreateAppointment, Slots: domain.NewSlots()}
	resState := &domain.SessionState{Intent: domain.IntentCreateReservation, Slots: domain.NewSlots()}
	s.Require().NoError(s.store.Set(ctx, domain.DomainService, "user-3", svcState, time.Minute))
	s.Require().NoError(s.store.Set(ctx, domain.DomainReservation, "user-3", resState, time.Minute))

	svcGot, _ := s.store.Get(ctx, domain.DomainService, "user-3")
	resGot, _ := s.store.Get(ctx, domain.DomainReservation, "user-3")

	s.Require().NotNil(svcGot)
	s.Require().NotNil(resGot)
	assert.Equal(s.T(), domain.IntentCreateAppointment, svcGot.Intent)
	assert.Equal(s.T(), domain.IntentCreateReservation, resGot.Intent)
}

func TestSessionStoreSuite(t *testing.T) {
	suite.Run(t, new(SessionStoreTestSuite))
}
