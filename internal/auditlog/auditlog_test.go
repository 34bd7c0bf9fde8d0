package auditlog_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/slotwise/dialog-orchestrator/internal/auditlog"
	"github.com/slotwise/dialog-orchestrator/internal/config"
	"github.com/slotwise/dialog-orchestrator/internal/domain"
	"github.com/slotwise/dialog-orchestrator/pkg/logger"
)

type AuditLogTestSuite struct {
	suite.Suite
	db   *gorm.DB
	repo *auditlog.Repository
}

func (s *AuditLogTestSuite) SetupSuite() {
	cfg := config.NewTestConfig()
	db, err := gorm.Open(postgres.Open(cfg.GetDatabaseURL()), &gorm.Config{})
	if err != nil {
		s.T().Skipf("no test database reachable, skipping audit log suite: %v", err)
	}
	if err := auditlog.Migrate(db); err != nil {
		s.T().Skipf("failed to migrate test database, skipping audit log suite: %v", err)
	}
	s.db = db
	s.repo = auditlog.NewRepository(db, logger.New("error"))
}

func (s *AuditLogTestSuite) SetupTest() {
	if s.db != nil {
		s.db.Exec("DELETE FROM turn_audit_records")
	}
}

func (s *AuditLogTestSuite) turnState(status domain.Status) *domain.TurnState {
	slots := domain.NewSlots()
	slots.Set(domain.SlotServiceID, "haircut")
	return &domain.TurnState{
		Intent:         domain.IntentCreateAppointment,
		EffectiveSlots: slots,
		MissingSlots:   []domain.SlotKey{domain.SlotDate, domain.SlotTime},
		Status:         status,
	}
}

func (s *AuditLogTestSuite) TestRecordAndListByUser() {
	s.repo.Record("turn-1", "u1", domain.DomainService, s.turnState(domain.StatusNeedsClarification), "")
	s.repo.Record("turn-2", "u1", domain.DomainService, s.turnState(domain.StatusExecuted), "book_appointment")
	s.repo.Record("turn-3", "u2", domain.DomainService, s.turnState(domain.StatusNeedsClarification), "")

	records, err := s.repo.ListByUser("u1", domain.DomainService, 10)
	require.NoError(s.T(), err)
	require.Len(s.T(), records, 2)
	assert.Equal(s.T(), "turn-2", records[0].TurnID, "newest first")
	assert.Equal(s.T(), "book_appointment", records[0].ActionName)
	assert.Contains(s.T(), records[0].TurnState, "haircut")
}

func (s *AuditLogTestSuite) TestListScopedByDomain() {
	s.repo.Record("turn-1", "u1", domain.DomainService, s.turnState(domain.StatusNeedsClarification), "")

	records, err := s.repo.ListByUser("u1", domain.DomainReservation, 10)
	require.NoError(s.T(), err)
	assert.Empty(s.T(), records)
}

func (s *AuditLogTestSuite) TestPruneOlderThan() {
	s.repo.Record("turn-1", "u1", domain.DomainService, s.turnState(domain.StatusNeedsClarification), "")

	pruned, err := s.repo.PruneOlderThan(time.Now().Add(time.Minute))
	require.NoError(s.T(), err)
	assert.Equal(s.T(), int64(1), pruned)

	records, err := s.repo.ListByUser("u1", domain.DomainService, 10)
	require.NoError(s.T(), err)
	assert.Empty(s.T(), records)
}

func TestAuditLogTestSuite(t *testing.T) {
	suite.Run(t, new(AuditLogTestSuite))
}
