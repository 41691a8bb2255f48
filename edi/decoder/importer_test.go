package decoder

import (
	"context"
	"math/rand"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"

	"github.com/claimstream/edi-fixtures/edi/constants"
	"github.com/claimstream/edi-fixtures/edi/encoder"
	"github.com/claimstream/edi-fixtures/edi/identity"
	"github.com/claimstream/edi-fixtures/edi/repository"
)

type ImporterTestSuite struct {
	suite.Suite
	repo *repository.MemoryRepository
	imp  *Importer
	g    *encoder.Generator
	dir  string
}

func (s *ImporterTestSuite) SetupTest() {
	logger, _ := test.NewNullLogger()
	s.repo = repository.NewMemoryRepository()
	s.imp = NewImporter(s.repo, identity.Synthetic{}, rand.New(rand.NewSource(23)), logger)
	s.g = newTestGenerator(23)
	s.dir = s.T().TempDir()
}

func TestImporterTestSuite(t *testing.T) {
	suite.Run(t, new(ImporterTestSuite))
}

func (s *ImporterTestSuite) generateFile(transactionType string, count int) string {
	path := filepath.Join(s.dir, "edi_"+transactionType+"_sample.txt")
	opts := encoder.Options{Count: &count, OutputFile: path}
	var err error
	switch transactionType {
	case constants.Transaction834:
		_, err = s.g.Generate834(opts)
	case constants.Transaction837:
		_, err = s.g.Generate837(opts)
	case constants.Transaction835:
		_, err = s.g.Generate835(opts)
	}
	assert.NoError(s.T(), err)
	return path
}

func (s *ImporterTestSuite) import834(count int) int {
	path := s.generateFile(constants.Transaction834, count)
	processed, err := s.imp.Import834(context.Background(), path)
	assert.NoError(s.T(), err)
	return processed
}

func (s *ImporterTestSuite) TestImport834PersistsMembersAndEnrollments() {
	processed := s.import834(10)
	assert.Equal(s.T(), 10, processed)

	for _, want := range s.g.Context().Members() {
		got, ok := s.repo.GetMember(want.ID)
		if !assert.True(s.T(), ok, "member %s not stored", want.ID) {
			continue
		}
		assert.Equal(s.T(), want.LastName, got.LastName)
		assert.Equal(s.T(), want.CoverageStatus, got.CoverageStatus)
		assert.Equal(s.T(), want.SSN, got.SSN)

		enrollment, err := s.repo.GetActiveEnrollment(context.Background(), want.ID)
		if want.CoverageStatus == "T" {
			// Terminated coverage imports as a terminated enrollment.
			assert.ErrorIs(s.T(), err, repository.ErrEnrollmentNotFound)
		} else {
			assert.NoError(s.T(), err)
			assert.Equal(s.T(), want.Plan.ID, enrollment.PlanID)
		}
	}
}

func (s *ImporterTestSuite) TestImport834RecordsTransaction() {
	s.import834(5)

	transactions := s.repo.Transactions()
	if assert.Len(s.T(), transactions, 1) {
		t := transactions[0]
		assert.Equal(s.T(), constants.Transaction834, t.TransactionType)
		assert.Equal(s.T(), constants.ImportComplete, t.Status)
		assert.Equal(s.T(), 5, t.RecordCount)
		assert.NotNil(s.T(), t.ProcessedAt)
	}
}

func (s *ImporterTestSuite) TestImport834IsIdempotentOnMembers() {
	path := s.generateFile(constants.Transaction834, 5)

	for i := 0; i < 2; i++ {
		processed, err := s.imp.Import834(context.Background(), path)
		assert.NoError(s.T(), err)
		assert.Equal(s.T(), 5, processed)
	}

	for _, want := range s.g.Context().Members() {
		_, ok := s.repo.GetMember(want.ID)
		assert.True(s.T(), ok)
	}
}

func (s *ImporterTestSuite) TestImport837PersistsClaimGraph() {
	s.import834(20)
	path := s.generateFile(constants.Transaction837, 5)

	processed, err := s.imp.Import837(context.Background(), path)
	assert.NoError(s.T(), err)
	assert.Equal(s.T(), 5, processed)

	for _, want := range s.g.Context().Claims() {
		got, ok := s.repo.GetClaim(want.ID)
		if !assert.True(s.T(), ok, "claim %s not stored", want.ID) {
			continue
		}
		assert.Equal(s.T(), want.MemberID, got.MemberID)
		assert.Equal(s.T(), "RECEIVED", got.Status)
		assert.Equal(s.T(), "MEDICAL", got.ClaimType)
		assert.InDelta(s.T(), want.BilledAmount, got.TotalBilled, 0.005)
		assert.Equal(s.T(), want.Diagnoses[0].Code, got.PrimaryDiagnosis)
		assert.NotEmpty(s.T(), got.ProviderID)
		assert.NotEmpty(s.T(), got.EnrollmentID)

		diagnoses := s.repo.DiagnosesForClaim(want.ID)
		assert.Len(s.T(), diagnoses, len(want.Diagnoses))

		lines := s.repo.ServiceLinesForClaim(want.ID)
		if assert.Len(s.T(), lines, len(want.ServiceLines)) {
			for i, line := range lines {
				assert.Equal(s.T(), i+1, line.LineNumber)
				assert.Equal(s.T(), want.ServiceLines[i].ProcedureCode, line.ProcedureCode)
				assert.InDelta(s.T(), want.ServiceLines[i].Amount, line.BilledAmount, 0.005)
			}
		}
	}
}

func (s *ImporterTestSuite) TestImport837ReusesProviderByNPI() {
	s.import834(20)
	path := s.generateFile(constants.Transaction837, 8)

	_, err := s.imp.Import837(context.Background(), path)
	assert.NoError(s.T(), err)

	// Every stored claim's provider resolves by NPI to exactly one row, even
	// when several claims bill under the same provider.
	seen := map[string]string{}
	for _, want := range s.g.Context().Claims() {
		got, ok := s.repo.GetClaim(want.ID)
		if !assert.True(s.T(), ok) {
			continue
		}
		provider, _ := s.g.Context().Provider(want.ProviderID)
		if prev, dup := seen[provider.NPI]; dup {
			assert.Equal(s.T(), prev, got.ProviderID)
		}
		seen[provider.NPI] = got.ProviderID
	}
}

func (s *ImporterTestSuite) TestImport837SkipsUnknownMembers() {
	// No 834 import first, so every claim references a member the store has
	// never seen.
	path := s.generateFile(constants.Transaction837, 3)

	processed, err := s.imp.Import837(context.Background(), path)
	assert.NoError(s.T(), err)
	assert.Zero(s.T(), processed)
}

func (s *ImporterTestSuite) TestImport835AppliesPayments() {
	s.import834(20)
	claimPath := s.generateFile(constants.Transaction837, 5)
	_, err := s.imp.Import837(context.Background(), claimPath)
	assert.NoError(s.T(), err)

	paymentPath := s.generateFile(constants.Transaction835, 3)
	processed, err := s.imp.Import835(context.Background(), paymentPath)
	assert.NoError(s.T(), err)
	assert.Equal(s.T(), 3, processed)

	payments := s.repo.Payments()
	if assert.Len(s.T(), payments, 3) {
		for _, p := range payments {
			assert.Equal(s.T(), "PAYER001", p.PayerID)
			assert.Equal(s.T(), "EFT", p.Method)
			assert.Equal(s.T(), "COMPLETED", p.Status)
			assert.NotZero(s.T(), p.Amount)

			claim, ok := s.repo.GetClaim(p.ClaimID)
			if assert.True(s.T(), ok) {
				assert.NotEqual(s.T(), "RECEIVED", claim.Status)
				assert.NotNil(s.T(), claim.AdjudicationDate)
				assert.InDelta(s.T(), p.Amount, claim.TotalPaid, 0.005)
			}
		}
	}
}

func (s *ImporterTestSuite) TestImport835SkipsUnknownClaims() {
	s.import834(20)
	// Claims exist only in the generator context, never imported.
	path := s.generateFile(constants.Transaction835, 2)

	processed, err := s.imp.Import835(context.Background(), path)
	assert.NoError(s.T(), err)
	assert.Zero(s.T(), processed)
}

func (s *ImporterTestSuite) TestImportMissingFileFails() {
	_, err := s.imp.Import834(context.Background(), filepath.Join(s.dir, "nope.txt"))
	assert.Error(s.T(), err)
	assert.Empty(s.T(), s.repo.Transactions())
}
