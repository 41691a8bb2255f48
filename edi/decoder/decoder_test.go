package decoder

import (
	"math/rand"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"

	"github.com/claimstream/edi-fixtures/edi/encoder"
	"github.com/claimstream/edi-fixtures/edi/identity"
	"github.com/claimstream/edi-fixtures/edi/registry"
)

func newTestDecoder() (*Decoder, *test.Hook) {
	logger, hook := test.NewNullLogger()
	return New(logger), hook
}

func newTestGenerator(seed int64) *encoder.Generator {
	logger, _ := test.NewNullLogger()
	return encoder.New(registry.NewContext(), identity.Synthetic{}, rand.New(rand.NewSource(seed)), logger)
}

func warnings(hook *test.Hook) []*logrus.Entry {
	var out []*logrus.Entry
	for _, e := range hook.AllEntries() {
		if e.Level == logrus.WarnLevel {
			out = append(out, e)
		}
	}
	return out
}

type TokenizerTestSuite struct {
	suite.Suite
}

func TestTokenizerTestSuite(t *testing.T) {
	suite.Run(t, new(TokenizerTestSuite))
}

func (s *TokenizerTestSuite) TestSplitsOnTerminatorAndTrimsNewlines() {
	segments := Tokenize("ISA*00*SENDER~\nGS*BE*X~\n\nSE*2*0001~")
	assert.Len(s.T(), segments, 3)
	assert.Equal(s.T(), "ISA", segments[0].ID)
	assert.Equal(s.T(), []string{"00", "SENDER"}, segments[0].Elements)
	assert.Equal(s.T(), "GS*BE*X", segments[1].Raw)
}

func (s *TokenizerTestSuite) TestIDOnlySegmentHasNoElements() {
	segments := Tokenize("GE~")
	assert.Len(s.T(), segments, 1)
	assert.Equal(s.T(), "GE", segments[0].ID)
	assert.Empty(s.T(), segments[0].Elements)
}

func (s *TokenizerTestSuite) TestElementOutOfRangeIsEmpty() {
	seg := Tokenize("REF*0F*SUB123~")[0]
	assert.Equal(s.T(), "0F", seg.Element(0))
	assert.Equal(s.T(), "SUB123", seg.Element(1))
	assert.Equal(s.T(), "", seg.Element(2))
	assert.Equal(s.T(), "", seg.Element(-1))
}

func (s *TokenizerTestSuite) TestEmptyInputYieldsNoSegments() {
	assert.Empty(s.T(), Tokenize(""))
	assert.Empty(s.T(), Tokenize("~~\n~"))
}

type Decode834TestSuite struct {
	suite.Suite
	dec  *Decoder
	hook *test.Hook
}

func (s *Decode834TestSuite) SetupTest() {
	s.dec, s.hook = newTestDecoder()
}

func TestDecode834TestSuite(t *testing.T) {
	suite.Run(t, new(Decode834TestSuite))
}

func (s *Decode834TestSuite) TestRoundTripAgainstGenerator() {
	g := newTestGenerator(11)
	count := 10
	doc, err := g.Generate834(encoder.Options{Count: &count})
	assert.NoError(s.T(), err)

	decoded := s.dec.Decode834(Tokenize(doc.String()))
	assert.Len(s.T(), decoded, count)

	byID := make(map[string]*MemberRecord, len(decoded))
	for _, m := range decoded {
		byID[m.MemberID] = m
	}

	for _, want := range g.Context().Members() {
		got, ok := byID[want.ID]
		if !assert.True(s.T(), ok, "member %s missing from decode", want.ID) {
			continue
		}
		assert.Equal(s.T(), want.LastName, got.LastName)
		assert.Equal(s.T(), want.FirstName, got.FirstName)
		assert.Equal(s.T(), want.CoverageStatus, got.CoverageStatus)
		assert.Equal(s.T(), want.SSN, got.SSN)
		assert.Equal(s.T(), want.PolicyNumber, got.PolicyNumber)
		assert.Equal(s.T(), want.Plan.ID, got.PlanID)
		assert.Equal(s.T(), want.Phone, got.Phone)
		assert.Equal(s.T(), want.Email, got.Email)
		assert.Equal(s.T(), want.Street, got.Street)
		assert.Equal(s.T(), want.Gender, got.Gender)
		if assert.NotNil(s.T(), got.DOB) {
			assert.Equal(s.T(), want.DOB.Format("20060102"), got.DOB.Format("20060102"))
		}
		if assert.NotNil(s.T(), got.StartDate) {
			e, ok := g.Context().EnrollmentForMember(want.ID)
			if assert.True(s.T(), ok) {
				assert.Equal(s.T(), e.StartDate.Format("20060102"), got.StartDate.Format("20060102"))
			}
		}
	}
}

func (s *Decode834TestSuite) TestContinuationINSCarriesTerminationReason() {
	stream := "INS*Y*18*030*T*A***FT*Y~" +
		"REF*0F*SUB00000042~" +
		"NM1*IL*1*DOE*JANE***MI*SUB00000042~" +
		"DTP*356*D8*20240101~" +
		"DTP*357*D8*20250301~" +
		"INS***Voluntary termination~" +
		"INS*Y*18*030*A****FT*Y~" +
		"REF*0F*SUB00000043~"

	decoded := s.dec.Decode834(Tokenize(stream))
	assert.Len(s.T(), decoded, 2)

	terminated := decoded[0]
	assert.Equal(s.T(), "SUB00000042", terminated.MemberID)
	assert.Equal(s.T(), "T", terminated.CoverageStatus)
	assert.Equal(s.T(), "Voluntary termination", terminated.TerminationReason)
	if assert.NotNil(s.T(), terminated.EndDate) {
		assert.Equal(s.T(), "20250301", terminated.EndDate.Format("20060102"))
	}

	assert.Equal(s.T(), "SUB00000043", decoded[1].MemberID)
	assert.Empty(s.T(), decoded[1].TerminationReason)
}

func (s *Decode834TestSuite) TestMemberIDFallsBackToREF0F() {
	// NM1 without the identification code qualifier pair keeps the id the
	// REF 0F established.
	stream := "INS*Y*18*030*A****FT*Y~" +
		"REF*0F*SUB00000099~" +
		"NM1*IL*1*DOE*JOHN~"

	decoded := s.dec.Decode834(Tokenize(stream))
	assert.Len(s.T(), decoded, 1)
	assert.Equal(s.T(), "SUB00000099", decoded[0].MemberID)
	assert.Equal(s.T(), "DOE", decoded[0].LastName)
}

func (s *Decode834TestSuite) TestOrphanSegmentsDroppedWithWarning() {
	stream := "REF*0F*SUB00000001~" +
		"NM1*IL*1*LOST*RECORD~" +
		"INS*Y*18*030*A****FT*Y~" +
		"REF*0F*SUB00000002~"

	decoded := s.dec.Decode834(Tokenize(stream))
	assert.Len(s.T(), decoded, 1)
	assert.Equal(s.T(), "SUB00000002", decoded[0].MemberID)
	assert.NotEmpty(s.T(), warnings(s.hook))
}

func (s *Decode834TestSuite) TestUnparseableDateSkipsFieldOnly() {
	stream := "INS*Y*18*030*A****FT*Y~" +
		"REF*0F*SUB00000007~" +
		"DMG*D8*NOTADATE*F~" +
		"DTP*356*D8*20240115~"

	decoded := s.dec.Decode834(Tokenize(stream))
	assert.Len(s.T(), decoded, 1)
	assert.Nil(s.T(), decoded[0].DOB)
	assert.Equal(s.T(), "F", decoded[0].Gender)
	assert.NotNil(s.T(), decoded[0].StartDate)
	assert.NotEmpty(s.T(), warnings(s.hook))
}

type Decode837TestSuite struct {
	suite.Suite
	dec  *Decoder
	hook *test.Hook
}

func (s *Decode837TestSuite) SetupTest() {
	s.dec, s.hook = newTestDecoder()
}

func TestDecode837TestSuite(t *testing.T) {
	suite.Run(t, new(Decode837TestSuite))
}

func (s *Decode837TestSuite) generateClaims(seed int64, memberCount, claimCount int) (*encoder.Generator, *encoder.Document) {
	g := newTestGenerator(seed)
	_, err := g.Generate834(encoder.Options{Count: &memberCount})
	assert.NoError(s.T(), err)
	doc, err := g.Generate837(encoder.Options{Count: &claimCount})
	assert.NoError(s.T(), err)
	return g, doc
}

func (s *Decode837TestSuite) TestRoundTripAgainstGenerator() {
	g, doc := s.generateClaims(13, 20, 5)

	groups := s.dec.Decode837(Tokenize(doc.String()))
	assert.Len(s.T(), groups, 5)

	for _, group := range groups {
		if !assert.NotNil(s.T(), group.Claim) {
			continue
		}
		want, ok := g.Context().Claim(group.Claim.ClaimID)
		if !assert.True(s.T(), ok, "claim %s missing from registry", group.Claim.ClaimID) {
			continue
		}

		assert.InDelta(s.T(), want.BilledAmount, group.Claim.BilledAmount, 0.005)
		assert.Equal(s.T(), "RECEIVED", group.Claim.Status)
		if assert.NotNil(s.T(), group.Claim.ServiceDate) {
			assert.Equal(s.T(), want.ServiceDate.Format("20060102"), group.Claim.ServiceDate.Format("20060102"))
		}

		if assert.NotNil(s.T(), group.Member) {
			assert.Equal(s.T(), want.MemberID, group.Member.MemberID)
			assert.NotNil(s.T(), group.Member.DOB)
		}

		provider, _ := g.Context().Provider(want.ProviderID)
		if assert.NotNil(s.T(), group.Provider) {
			assert.Equal(s.T(), provider.NPI, group.Provider.NPI)
			assert.Equal(s.T(), provider.TaxID, group.Provider.TaxID)
			assert.Equal(s.T(), provider.Street, group.Provider.Street)
		}

		if assert.Len(s.T(), group.Diagnoses, len(want.Diagnoses)) {
			assert.Equal(s.T(), "PRIMARY", group.Diagnoses[0].Category)
			assert.Equal(s.T(), want.Diagnoses[0].Code, group.Diagnoses[0].Code)
			for i := 1; i < len(group.Diagnoses); i++ {
				assert.Equal(s.T(), "SECONDARY", group.Diagnoses[i].Category)
			}
		}

		if assert.Len(s.T(), group.ServiceLines, len(want.ServiceLines)) {
			for i, line := range group.ServiceLines {
				assert.Equal(s.T(), want.ServiceLines[i].ProcedureCode, line.ProcedureCode)
				assert.Equal(s.T(), want.ServiceLines[i].Modifier, line.ModifierCode)
				assert.Equal(s.T(), want.ServiceLines[i].PlaceOfService, line.PlaceOfService)
				assert.InDelta(s.T(), want.ServiceLines[i].Amount, line.BilledAmount, 0.005)
			}
			assert.Equal(s.T(), want.ServiceLines[0].ProcedureCode, group.Claim.ProcedureCode)
		}
	}
}

func (s *Decode837TestSuite) TestDetailSegmentsBufferedUntilCLM() {
	// Provider and member identification precede CLM in the stream; the
	// decoder must hold them until the claim opens.
	stream := "HL*1**22*1~" +
		"PRV*BI*PXC*207Q00000X~" +
		"NM1*85*2*SMITH*ALICE***XX*1234567890~" +
		"REF*EI*TAX123456789~" +
		"N3*10 MAIN ST~" +
		"N4*SPRINGFIELD*IL*62704~" +
		"NM1*IL*1*DOE*JOHN***MI*SUB00000001~" +
		"DMG*D8*19800115*M~" +
		"CLM*CLM2026000001*450.00***A:25*Y*A*Y*Y~" +
		"DTP*472*D8*20250601~" +
		"HI*ABK:J18.9~" +
		"LX*1~" +
		"SV1*HC:99213:25*450.00*UN*1***1~" +
		"REF*6R*11~"

	groups := s.dec.Decode837(Tokenize(stream))
	assert.Len(s.T(), groups, 1)
	group := groups[0]

	if assert.NotNil(s.T(), group.Provider) {
		assert.Equal(s.T(), "1234567890", group.Provider.NPI)
		assert.Equal(s.T(), "TAX123456789", group.Provider.TaxID)
		assert.Equal(s.T(), "207Q00000X", group.Provider.Specialty)
		assert.Equal(s.T(), "10 MAIN ST", group.Provider.Street)
		assert.Equal(s.T(), "SPRINGFIELD", group.Provider.City)
	}
	if assert.NotNil(s.T(), group.Member) {
		assert.Equal(s.T(), "SUB00000001", group.Member.MemberID)
		assert.Equal(s.T(), "M", group.Member.Gender)
		assert.NotNil(s.T(), group.Member.DOB)
	}
	if assert.Len(s.T(), group.ServiceLines, 1) {
		line := group.ServiceLines[0]
		assert.Equal(s.T(), "99213", line.ProcedureCode)
		assert.Equal(s.T(), "25", line.ModifierCode)
		assert.Equal(s.T(), "11", line.PlaceOfService)
		assert.Equal(s.T(), "J18.9", line.DiagnosisCode)
		assert.InDelta(s.T(), 450.00, line.BilledAmount, 0.005)
	}
	assert.Equal(s.T(), "99213", group.Claim.ProcedureCode)
}

func (s *Decode837TestSuite) TestOrphanSegmentsDoNotAbortDecode() {
	g, doc := s.generateClaims(17, 20, 3)

	groups := s.dec.Decode837(Tokenize("LX*1~SV1*HC:99213*100.00*UN*1***1~" + doc.String()))
	assert.Len(s.T(), groups, 3)
	assert.NotEmpty(s.T(), warnings(s.hook))

	for _, group := range groups {
		_, ok := g.Context().Claim(group.Claim.ClaimID)
		assert.True(s.T(), ok)
	}
}

func (s *Decode837TestSuite) TestCLMDefaultsForShortSegments() {
	stream := "HL*1**22*1~" +
		"NM1*IL*1*DOE*JOHN***MI*SUB00000001~" +
		"CLM*CLM0001*100.00~"

	groups := s.dec.Decode837(Tokenize(stream))
	assert.Len(s.T(), groups, 1)
	claim := groups[0].Claim
	assert.Equal(s.T(), "1", claim.FrequencyCode)
	assert.Equal(s.T(), "01", claim.SourceCode)
	assert.Equal(s.T(), "11", claim.FacilityTypeCode)
	assert.Equal(s.T(), "OFFICE", claim.LocationType)
}

func (s *Decode837TestSuite) TestFacilityTypeMapping() {
	assert.Equal(s.T(), "EMERGENCY", FacilityType("23"))
	assert.Equal(s.T(), "HOSPITAL", FacilityType("21"))
	assert.Equal(s.T(), "HOME", FacilityType("12"))
	assert.Equal(s.T(), "OFFICE", FacilityType("nonsense"))
}

type Decode835TestSuite struct {
	suite.Suite
	dec  *Decoder
	hook *test.Hook
}

func (s *Decode835TestSuite) SetupTest() {
	s.dec, s.hook = newTestDecoder()
}

func TestDecode835TestSuite(t *testing.T) {
	suite.Run(t, new(Decode835TestSuite))
}

func (s *Decode835TestSuite) TestRoundTripAgainstGenerator() {
	g := newTestGenerator(19)
	memberCount, claimCount, paymentCount := 20, 5, 3
	_, err := g.Generate834(encoder.Options{Count: &memberCount})
	assert.NoError(s.T(), err)
	_, err = g.Generate837(encoder.Options{Count: &claimCount})
	assert.NoError(s.T(), err)
	doc, err := g.Generate835(encoder.Options{Count: &paymentCount})
	assert.NoError(s.T(), err)

	assert.Contains(s.T(), doc.String(), "DTM*405*D8*")

	payments := s.dec.Decode835(Tokenize(doc.String()))
	assert.Len(s.T(), payments, 1)

	advice := payments[0]
	assert.Equal(s.T(), "ACH", advice.PaymentMethod)
	assert.NotNil(s.T(), advice.PaymentDate)
	assert.Len(s.T(), advice.Claims, paymentCount)

	var totalPaid float64
	for _, cp := range advice.Claims {
		want, ok := g.Context().Claim(cp.ClaimID)
		if !assert.True(s.T(), ok, "claim %s missing from registry", cp.ClaimID) {
			continue
		}
		assert.InDelta(s.T(), want.BilledAmount, cp.BilledAmount, 0.005)
		assert.Greater(s.T(), cp.PaidAmount, 0.0)
		assert.LessOrEqual(s.T(), cp.PaidAmount, want.BilledAmount)
		assert.NotEqual(s.T(), "RECEIVED", cp.Status)
		assert.NotNil(s.T(), cp.AdjudicationDate)
		if assert.Len(s.T(), cp.ServiceLines, 1) {
			assert.InDelta(s.T(), cp.PaidAmount, cp.ServiceLines[0].PaidAmount, 0.005)
		}
		totalPaid += cp.PaidAmount
	}
	assert.InDelta(s.T(), totalPaid, advice.TotalAmount, 0.05)
}

func (s *Decode835TestSuite) TestSyntheticStream() {
	stream := "BPR*I*1250.00*C*ACH*CC*01*CHK123456**DA*1234567890*987654321*20250815~" +
		"TRN*1*REF123456789*PAYER123456~" +
		"LX*1~" +
		"CLP*CLM0001*1*1000.00*750.00*250.00*1~" +
		"CAS*CO*45*50.00~" +
		"SVC*HC:99213*1000.00*750.00*800.00~" +
		"DTM*150*D8*20250601~" +
		"DTM*405*D8*20250815~" +
		"LX*2~" +
		"CLP*CLM0002*4*500.00*0.00*500.00*2~" +
		"DTM*405*20250815~"

	payments := s.dec.Decode835(Tokenize(stream))
	assert.Len(s.T(), payments, 1)

	advice := payments[0]
	assert.InDelta(s.T(), 1250.00, advice.TotalAmount, 0.005)
	assert.Equal(s.T(), "ACH", advice.PaymentMethod)
	assert.Equal(s.T(), "CHK123456", advice.CheckNumber)
	if assert.NotNil(s.T(), advice.PaymentDate) {
		assert.Equal(s.T(), "20250815", advice.PaymentDate.Format("20060102"))
	}

	assert.Len(s.T(), advice.Claims, 2)

	paidClaim := advice.Claims[0]
	assert.Equal(s.T(), "CLM0001", paidClaim.ClaimID)
	assert.Equal(s.T(), "PAID", paidClaim.Status)
	assert.InDelta(s.T(), 750.00, paidClaim.PaidAmount, 0.005)
	assert.InDelta(s.T(), 250.00, paidClaim.PatientResponsibility, 0.005)
	if assert.Len(s.T(), paidClaim.Adjustments, 1) {
		assert.Equal(s.T(), "CO", paidClaim.Adjustments[0].GroupCode)
		assert.Equal(s.T(), "45", paidClaim.Adjustments[0].ReasonCode)
		assert.InDelta(s.T(), 50.00, paidClaim.Adjustments[0].Amount, 0.005)
	}
	if assert.Len(s.T(), paidClaim.ServiceLines, 1) {
		assert.Equal(s.T(), "99213", paidClaim.ServiceLines[0].ProcedureCode)
		assert.InDelta(s.T(), 800.00, paidClaim.ServiceLines[0].AllowedAmount, 0.005)
	}
	if assert.NotNil(s.T(), paidClaim.AdjudicationDate) {
		assert.Equal(s.T(), "20250815", paidClaim.AdjudicationDate.Format("20060102"))
	}

	deniedClaim := advice.Claims[1]
	assert.Equal(s.T(), "DENIED", deniedClaim.Status)
	assert.Zero(s.T(), deniedClaim.PaidAmount)
	// Its DTM lacks the D8 qualifier, so the date is not taken.
	assert.Nil(s.T(), deniedClaim.AdjudicationDate)
}

func (s *Decode835TestSuite) TestOrphanClaimPaymentDropped() {
	stream := "CLP*CLM0001*1*1000.00*750.00*250.00*1~" +
		"BPR*I*100.00*C*ACH*CC*01*CHK000001**DA*1234567890*987654321*20250815~"

	payments := s.dec.Decode835(Tokenize(stream))
	assert.Len(s.T(), payments, 1)
	assert.Empty(s.T(), payments[0].Claims)
	assert.NotEmpty(s.T(), warnings(s.hook))
}

func (s *Decode835TestSuite) TestClaimStatusMapping() {
	assert.Equal(s.T(), "PAID", ClaimStatus("1"))
	assert.Equal(s.T(), "PAID", ClaimStatus("19"))
	assert.Equal(s.T(), "DENIED", ClaimStatus("4"))
	assert.Equal(s.T(), "DENIED", ClaimStatus("22"))
	assert.Equal(s.T(), "RECEIVED", ClaimStatus("totally-unknown"))
}

// Guards the date layout shared by every decode path.
func TestX12DateFormat(t *testing.T) {
	d, _ := newTestDecoder()
	got := d.parseDate("20250301", Segment{Raw: "DTP*356*D8*20250301"})
	if assert.NotNil(t, got) {
		assert.Equal(t, time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), *got)
	}
}
