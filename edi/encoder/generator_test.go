package encoder

import (
	"math/rand"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"

	"github.com/claimstream/edi-fixtures/edi/constants"
	"github.com/claimstream/edi-fixtures/edi/identity"
	"github.com/claimstream/edi-fixtures/edi/models"
	"github.com/claimstream/edi-fixtures/edi/registry"
)

func newTestGenerator(seed int64) *Generator {
	logger, _ := test.NewNullLogger()
	return New(registry.NewContext(), identity.Synthetic{}, rand.New(rand.NewSource(seed)), logger)
}

func elems(segment string) []string {
	return strings.Split(strings.TrimSuffix(segment, "~"), "*")
}

func findSegment(segments []string, id string) (int, []string) {
	for i, seg := range segments {
		e := elems(seg)
		if e[0] == id {
			return i, e
		}
	}
	return -1, nil
}

type GeneratorTestSuite struct {
	suite.Suite
	g *Generator
}

func (s *GeneratorTestSuite) SetupTest() {
	s.g = newTestGenerator(1)
}

func TestGeneratorTestSuite(t *testing.T) {
	suite.Run(t, new(GeneratorTestSuite))
}

func (s *GeneratorTestSuite) generate(transactionType string, count int) *Document {
	opts := Options{Count: &count}
	var (
		doc *Document
		err error
	)
	switch transactionType {
	case constants.Transaction834:
		doc, err = s.g.Generate834(opts)
	case constants.Transaction837:
		doc, err = s.g.Generate837(opts)
	case constants.Transaction835:
		doc, err = s.g.Generate835(opts)
	}
	assert.NoError(s.T(), err)
	return doc
}

// Two generators built from the same seed and pinned to the same clock must
// replay the exact draw sequence: identity draws share the seeded source and
// the registry views are insertion-ordered.
func (s *GeneratorTestSuite) TestSameSeedYieldsIdenticalDocuments() {
	fixed := time.Date(2026, time.August, 1, 10, 30, 0, 0, time.UTC)
	count := 10

	run := func() []string {
		g := newTestGenerator(5)
		g.now = fixed
		docs := make([]string, 0, 3)

		d834, err := g.Generate834(Options{Count: &count})
		assert.NoError(s.T(), err)
		docs = append(docs, d834.String())

		d837, err := g.Generate837(Options{Count: &count})
		assert.NoError(s.T(), err)
		docs = append(docs, d837.String())

		d835, err := g.Generate835(Options{Count: &count})
		assert.NoError(s.T(), err)
		docs = append(docs, d835.String())

		return docs
	}

	assert.Equal(s.T(), run(), run())
}

func (s *GeneratorTestSuite) TestControlNumberEchoedByIEA() {
	for _, transactionType := range []string{constants.Transaction834, constants.Transaction837, constants.Transaction835} {
		doc := s.generate(transactionType, 5)

		isa := elems(doc.Segments[0])
		iea := elems(doc.Segments[len(doc.Segments)-1])
		assert.Equal(s.T(), "ISA", isa[0])
		assert.Equal(s.T(), "IEA", iea[0])
		assert.Len(s.T(), isa[13], 9)
		assert.Equal(s.T(), isa[13], iea[2])
		assert.Equal(s.T(), doc.Envelope.ISAControlNumber, isa[13])
	}
}

func (s *GeneratorTestSuite) TestSECountsSTThroughSEInclusive() {
	for _, transactionType := range []string{constants.Transaction834, constants.Transaction837, constants.Transaction835} {
		doc := s.generate(transactionType, 3)

		stIdx, _ := findSegment(doc.Segments, "ST")
		seIdx, se := findSegment(doc.Segments, "SE")
		assert.Greater(s.T(), seIdx, stIdx)

		count, err := strconv.Atoi(se[1])
		assert.NoError(s.T(), err)
		assert.Equal(s.T(), seIdx-stIdx+1, count)
	}
}

func (s *GeneratorTestSuite) TestGSVersionMatchesST() {
	for transactionType, version := range map[string]string{
		constants.Transaction834: constants.Version834,
		constants.Transaction837: constants.Version837,
		constants.Transaction835: constants.Version835,
	} {
		doc := s.generate(transactionType, 2)

		_, gs := findSegment(doc.Segments, "GS")
		_, st := findSegment(doc.Segments, "ST")
		assert.Equal(s.T(), version, gs[8])
		assert.Equal(s.T(), version, st[3])
		assert.Equal(s.T(), transactionType, st[1])
	}
}

func (s *GeneratorTestSuite) TestInvalidRateWithinBand() {
	count := 400
	doc, err := s.g.Generate834(Options{Count: &count, InvalidRate: 0.10})
	assert.NoError(s.T(), err)
	assert.Equal(s.T(), 400, doc.TotalRecords)
	assert.GreaterOrEqual(s.T(), doc.InvalidRate(), 0.05)
	assert.LessOrEqual(s.T(), doc.InvalidRate(), 0.15)
}

func (s *GeneratorTestSuite) TestZeroInvalidRateYieldsNoIssues() {
	count := 200
	doc, err := s.g.Generate834(Options{Count: &count})
	assert.NoError(s.T(), err)
	assert.Zero(s.T(), doc.InvalidRecords)
	assert.Less(s.T(), doc.InvalidRate(), 0.05)
}

func (s *GeneratorTestSuite) TestTerminatedEnrollmentCarriesReason() {
	end := time.Now().AddDate(0, -3, 0)
	m := &models.Member{
		ID:                "SUB00000001",
		CoverageStatus:    models.StatusTerminated,
		TerminationReason: "07",
		TerminationDate:   &end,
		Plan:              HealthPlans[0],
	}
	e := s.g.NewEnrollment(m)

	assert.Equal(s.T(), "TERMINATED", e.Status)
	assert.Equal(s.T(), "Voluntary termination", e.TerminationReason)
	assert.NotNil(s.T(), e.EndDate)

	segments := s.g.memberSegments(memberRecord{member: m, enrollment: e})
	_, dtp := findSegment(segments, "DTP")
	assert.NotNil(s.T(), dtp)
	assert.Contains(s.T(), strings.Join(segments, "\n"), "DTP*357*D8*"+end.Format("20060102"))
	assert.Contains(s.T(), strings.Join(segments, "\n"), "INS***Voluntary termination~")
}

func (s *GeneratorTestSuite) TestUnknownTerminationReasonPassesThrough() {
	end := time.Now().AddDate(0, -1, 0)
	m := &models.Member{
		ID:                "SUB00000002",
		CoverageStatus:    models.StatusTerminated,
		TerminationReason: "99",
		TerminationDate:   &end,
		Plan:              HealthPlans[0],
	}
	e := s.g.NewEnrollment(m)
	assert.Equal(s.T(), "99", e.TerminationReason)
}

func (s *GeneratorTestSuite) TestDocumentWrite() {
	count := 2
	path := filepath.Join(s.T().TempDir(), "out", "edi_834_sample.txt")
	doc, err := s.g.Generate834(Options{Count: &count, OutputFile: path})
	assert.NoError(s.T(), err)

	raw, err := os.ReadFile(path)
	assert.NoError(s.T(), err)
	assert.Equal(s.T(), doc.String(), string(raw))
}

func (s *GeneratorTestSuite) TestServiceLinesSumToBilledAmount() {
	// Per-line rounding means the sum can drift from the billed total by a
	// few cents at most.
	count := 20
	_, err := s.g.Generate837(Options{Count: &count})
	assert.NoError(s.T(), err)

	for _, claim := range s.g.Context().Claims() {
		var sum float64
		for _, line := range claim.ServiceLines {
			sum += line.Amount
		}
		assert.InDelta(s.T(), claim.BilledAmount, sum, 0.05)
		for i, line := range claim.ServiceLines {
			assert.Equal(s.T(), i+1, line.LineNumber)
		}
	}
}

type RiskProfileTestSuite struct {
	suite.Suite
}

func TestRiskProfileTestSuite(t *testing.T) {
	suite.Run(t, new(RiskProfileTestSuite))
}

func (s *RiskProfileTestSuite) claimStats(riskProfile string, seed int64) (meanBilled, erFraction float64) {
	g := newTestGenerator(seed)
	count := 150
	_, err := g.Generate837(Options{Count: &count, RiskProfile: riskProfile})
	assert.NoError(s.T(), err)

	// Claim ids are random draws, so the registry may hold one fewer entry
	// than the run produced.
	claims := g.Context().Claims()
	assert.GreaterOrEqual(s.T(), len(claims), count-1)

	var total float64
	er := 0
	for _, c := range claims {
		total += c.BilledAmount
		if c.ERVisit {
			er++
		}
	}
	return total / float64(len(claims)), float64(er) / float64(len(claims))
}

func (s *RiskProfileTestSuite) TestHighRiskSkewsCostAndERVisits() {
	meanBilled, erFraction := s.claimStats("high_risk", 7)
	assert.Greater(s.T(), meanBilled, 2000.0)
	assert.InDelta(s.T(), 0.30, erFraction, 0.12)
}

func (s *RiskProfileTestSuite) TestLowRiskStaysCheapAndRare() {
	meanBilled, erFraction := s.claimStats("low_risk", 7)
	assert.Less(s.T(), meanBilled, 500.0)
	assert.Less(s.T(), erFraction, 0.12)
}

func (s *RiskProfileTestSuite) TestRiskOverrideMergesFieldByField() {
	er := 0.9
	merged := models.Risk("low_risk").Merge(&models.RiskOverride{ERVisitRate: &er})
	assert.Equal(s.T(), 0.9, merged.ERVisitRate)
	assert.Equal(s.T(), models.Risk("low_risk").DenialRate, merged.DenialRate)
}

type CSVTestSuite struct {
	suite.Suite
	g *Generator
}

func (s *CSVTestSuite) SetupTest() {
	s.g = newTestGenerator(3)
}

func TestCSVTestSuite(t *testing.T) {
	suite.Run(t, new(CSVTestSuite))
}

func (s *CSVTestSuite) TestMemberRowsMatchSchema() {
	count := 10
	result, err := s.g.Generate834CSV(Options{Count: &count})
	assert.NoError(s.T(), err)
	assert.Equal(s.T(), 10, result.TotalRecords)
	assert.Len(s.T(), result.Data, 10)
	for _, row := range result.Data {
		assert.Len(s.T(), row, len(result.Headers))
	}
}

func (s *CSVTestSuite) TestClaimRowsJoinDiagnosesWithPipe() {
	count := 25
	result, err := s.g.Generate837CSV(Options{Count: &count, RiskProfile: "high_risk"})
	assert.NoError(s.T(), err)

	col := -1
	for i, h := range result.Headers {
		if h == "diagnosis_codes" {
			col = i
		}
	}
	assert.GreaterOrEqual(s.T(), col, 0)

	multi := false
	for _, row := range result.Data {
		assert.NotEmpty(s.T(), row[col])
		if strings.Contains(row[col], "|") {
			multi = true
		}
	}
	// high_risk draws multiple diagnoses 60% of the time, so 25 claims
	// without a single pipe-joined list would be a regression.
	assert.True(s.T(), multi)
}

func (s *CSVTestSuite) TestPaymentRowsWrittenToFile() {
	count := 5
	path := filepath.Join(s.T().TempDir(), "edi_835_sample.csv")
	result, err := s.g.Generate835CSV(Options{Count: &count, OutputFile: path})
	assert.NoError(s.T(), err)
	assert.Equal(s.T(), path, result.OutputFile)

	raw, err := os.ReadFile(path)
	assert.NoError(s.T(), err)
	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	assert.Len(s.T(), lines, result.TotalRecords+1)
	assert.Equal(s.T(), strings.Join(result.Headers, ","), lines[0])
}
