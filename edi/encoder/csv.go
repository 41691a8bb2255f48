package encoder

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"

	"github.com/claimstream/edi-fixtures/edi/models"
	"github.com/claimstream/edi-fixtures/edi/utils"
)

// Fixed CSV schemas per transaction type. Column order is part of the file
// contract; downstream loaders key on these headers.
var (
	csvHeaders834 = []string{
		"member_id", "subscriber_id", "policy_number", "ssn",
		"last_name", "first_name", "middle_initial",
		"date_of_birth", "gender",
		"street_address", "city", "state", "zip_code", "country",
		"phone", "email",
		"coverage_status", "medicare_plan",
		"plan_id", "plan_name", "plan_type",
		"effective_date", "termination_date", "termination_reason",
		"relationship_code", "transaction_type", "action_code",
		"sponsor_id", "insurance_line",
	}

	csvHeaders837 = []string{
		"claim_id", "member_id", "provider_id", "provider_npi", "provider_tax_id",
		"provider_last_name", "provider_first_name", "provider_specialty",
		"provider_street", "provider_city", "provider_state", "provider_zip",
		"member_last_name", "member_first_name",
		"member_dob", "member_gender",
		"service_date", "billed_amount", "claim_status", "claim_frequency_code",
		"claim_source_code", "facility_type_code", "location_type",
		"procedure_code", "procedure_description", "diagnosis_codes",
		"submission_date", "enrollment_id",
	}

	csvHeaders835 = []string{
		"payment_id", "claim_id", "member_id", "provider_id", "provider_npi",
		"member_last_name", "member_first_name",
		"billed_amount", "paid_amount", "allowed_amount", "patient_responsibility",
		"claim_status", "claim_code", "adjustment_code", "adjustment_amount",
		"procedure_code", "service_date", "adjudication_date",
		"check_number", "payment_date", "payment_method",
		"payer_id", "transaction_reference",
	}
)

// ProcedureDescriptions maps common office-visit procedure codes to their
// short descriptions. Unknown codes fall back to "Medical service".
var ProcedureDescriptions = map[string]string{
	"99213": "Office/outpatient visit est",
	"99214": "Office/outpatient visit est",
	"99203": "Office/outpatient visit new",
	"99204": "Office/outpatient visit new",
	"99215": "Office/outpatient visit est",
	"99244": "Office consult",
}

// ProcedureDescription resolves a description with the standard fallback.
func ProcedureDescription(code string) string {
	if d, ok := ProcedureDescriptions[code]; ok {
		return d
	}
	return "Medical service"
}

// GenerationResult is the CSV counterpart of Document: one generated file
// plus its records kept in memory for callers that want the data directly.
type GenerationResult struct {
	OutputFile     string
	Headers        []string
	Data           [][]string
	TotalRecords   int
	InvalidRecords int
}

// InvalidRate reports the observed fraction of deliberately corrupted
// records.
func (r *GenerationResult) InvalidRate() float64 {
	if r.TotalRecords == 0 {
		return 0
	}
	return float64(r.InvalidRecords) / float64(r.TotalRecords)
}

// Write renders the result as a CSV file with the schema header first.
func (r *GenerationResult) Write(path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return errors.Wrapf(err, "failed to create output directory for %s", path)
		}
	}

	f, err := os.Create(filepath.Clean(path))
	if err != nil {
		return errors.Wrapf(err, "failed to create %s", path)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(r.Headers); err != nil {
		return errors.Wrapf(err, "failed to write header to %s", path)
	}
	if err := w.WriteAll(r.Data); err != nil {
		return errors.Wrapf(err, "failed to write rows to %s", path)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return errors.Wrapf(err, "failed to flush %s", path)
	}
	r.OutputFile = path
	return nil
}

func (g *Generator) maybeWriteCSV(result *GenerationResult, opts Options) error {
	if opts.OutputFile == "" {
		return nil
	}
	return result.Write(opts.OutputFile)
}

func csvDate(t time.Time) string {
	return t.Format("2006-01-02")
}

func csvAmount(v float64) string {
	return fmt.Sprintf("%.2f", v)
}

// Generate834CSV renders the same member/enrollment stream as Generate834,
// one row per member, with no envelope.
func (g *Generator) Generate834CSV(opts Options) (*GenerationResult, error) {
	count := g.volumes.Sample(models.BusinessSize(opts.BusinessSize).Enrollment, opts.Count)
	g.logger.Infof("Generating EDI 834 CSV data for %d members...", count)

	result := &GenerationResult{Headers: csvHeaders834}

	for batchStart := 0; batchStart < count; batchStart += g.batchSize {
		batchEnd := batchStart + g.batchSize
		if batchEnd > count {
			batchEnd = count
		}
		g.logger.Infof("Processing members %d to %d...", batchStart+1, batchEnd)

		records, invalid := g.buildMemberBatch(batchEnd-batchStart, opts.InvalidRate)
		result.TotalRecords += len(records)
		result.InvalidRecords += invalid

		for _, rec := range records {
			result.Data = append(result.Data, memberRow(rec))
		}
	}

	if err := g.maybeWriteCSV(result, opts); err != nil {
		return nil, err
	}
	g.logger.Infof("Successfully generated EDI 834 CSV data for %d members", count)
	return result, nil
}

func memberRow(rec memberRecord) []string {
	m := rec.member
	e := rec.enrollment

	dob := ""
	if m.DOB != nil {
		dob = csvDate(*m.DOB)
	}
	endDate := ""
	if e.EndDate != nil {
		endDate = csvDate(*e.EndDate)
	}

	return []string{
		m.ID,
		m.ID, // self subscriber
		m.PolicyNumber,
		m.SSN,
		m.LastName,
		m.FirstName,
		"", // middle initial, never generated
		dob,
		m.Gender,
		m.Street,
		m.City,
		m.State,
		m.Zip,
		"US",
		m.Phone,
		m.Email,
		m.CoverageStatus,
		m.MedicarePlan,
		m.Plan.ID,
		m.Plan.Name,
		m.Plan.Type,
		csvDate(e.StartDate),
		endDate,
		e.TerminationReason,
		e.RelationshipCode,
		e.TransactionType,
		e.ActionCode,
		e.SponsorID,
		e.InsuranceLine,
	}
}

// Generate837CSV renders claims one row per claim. The claim-level procedure
// and place of service come from the first service line; all diagnosis codes
// are pipe-joined into a single column.
func (g *Generator) Generate837CSV(opts Options) (*GenerationResult, error) {
	if err := g.EnsureEnrollmentPopulation(defaultMemberPopulation); err != nil {
		return nil, err
	}
	g.EnsureProviderPopulation(defaultProviderPopulation)

	risk := models.Risk(opts.RiskProfile).Merge(opts.RiskOverride)
	count := g.volumes.Sample(models.BusinessSize(opts.BusinessSize).Claims, opts.Count)
	g.logger.WithField("risk_profile", risk.Name).Infof("Generating %d claims...", count)

	now := g.now
	result := &GenerationResult{Headers: csvHeaders837}

	for i := 0; i < count; i++ {
		if i > 0 && i%100 == 0 {
			g.logger.Infof("Generated %d claims so far...", i)
		}

		claim := g.buildClaim(risk)
		cc, bad := g.corrupt837(claim, opts.InvalidRate)
		result.TotalRecords++
		if bad {
			result.InvalidRecords++
		}

		result.Data = append(result.Data, g.claimRow(claim, cc, now))
	}

	if err := g.maybeWriteCSV(result, opts); err != nil {
		return nil, err
	}
	g.logger.Infof("Successfully generated EDI 837 CSV data with %d claims", count)
	return result, nil
}

// locationType is the coarse facility label derived from the place-of-service
// code.
func locationType(pos string, erVisit bool) string {
	switch {
	case erVisit || pos == "23":
		return "ER"
	case pos == "11":
		return "OFFICE"
	default:
		return "OUTPATIENT"
	}
}

func (g *Generator) claimRow(claim *models.Claim, cc claimCorruption, now time.Time) []string {
	member, _ := g.ctx.Member(claim.MemberID)
	provider, _ := g.ctx.Provider(claim.ProviderID)

	npi := provider.NPI
	if cc.npiOverride != "" {
		npi = cc.npiOverride
	}

	dob := ""
	if member.DOB != nil {
		dob = csvDate(*member.DOB)
	}

	diagCodes := ""
	for i, d := range claim.Diagnoses {
		if i > 0 {
			diagCodes += "|"
		}
		diagCodes += d.Code
	}

	first := claim.ServiceLines[0]

	return []string{
		claim.ID,
		claim.MemberID,
		claim.ProviderID,
		npi,
		provider.TaxID,
		provider.LastName,
		provider.FirstName,
		provider.Specialty,
		provider.Street,
		provider.City,
		provider.State,
		provider.Zip,
		member.LastName,
		member.FirstName,
		dob,
		member.Gender,
		csvDate(claim.ServiceDate),
		csvAmount(claim.BilledAmount),
		claim.StatusCode,
		"1",  // claim frequency: original submission
		"01", // claim source: provider
		first.PlaceOfService,
		locationType(first.PlaceOfService, claim.ERVisit),
		first.ProcedureCode,
		ProcedureDescription(first.ProcedureCode),
		diagCodes,
		csvDate(now),
		claim.EnrollmentID,
	}
}

// Generate835CSV renders remittances one row per payment, carrying the
// check-level fields that the X12 rendition spreads across BPR/TRN.
func (g *Generator) Generate835CSV(opts Options) (*GenerationResult, error) {
	if g.ctx.ClaimCount() == 0 {
		g.logger.Info("No claims found. Generating sample claims first...")
		if _, err := g.Generate837(Options{BusinessSize: opts.BusinessSize}); err != nil {
			return nil, err
		}
	}

	claims := g.ctx.Claims()
	ratio := models.BusinessSize(opts.BusinessSize).PaymentRatio

	count := int(float64(len(claims)) * ratio.Paid)
	if opts.Count != nil {
		count = *opts.Count
	}
	if count > len(claims) {
		count = len(claims)
	}
	if count < 1 {
		count = 1
	}
	g.logger.Infof("Generating EDI 835 CSV data for %d payments...", count)

	now := g.now
	result := &GenerationResult{Headers: csvHeaders835}

	for _, i := range g.rnd.Perm(len(claims))[:count] {
		claim := claims[i]
		member, _ := g.ctx.Member(claim.MemberID)
		provider, _ := g.ctx.Provider(claim.ProviderID)

		paid := utils.RoundCents(claim.BilledAmount * g.uniform(0.5, 0.9))
		patResp := utils.RoundCents(claim.BilledAmount * g.uniform(0.1, 0.3))

		p := &models.Payment{
			ID:                    g.generateID("PAY", 8),
			ClaimID:               claim.ID,
			PaidAmount:            paid,
			PatientResponsibility: patResp,
			AllowedAmount:         utils.RoundCents(paid + patResp),
		}

		if g.rnd.Float64() < 0.5 {
			p.AdjustmentCode = g.choice(adjustmentGroupCodes)
			p.AdjustmentAmount = utils.RoundCents(p.PaidAmount * g.uniform(0.05, 0.15))
		}

		result.TotalRecords++
		if _, bad := g.corrupt835(p, claim.BilledAmount, opts.InvalidRate); bad {
			result.InvalidRecords++
		}

		adjAmount := ""
		if p.AdjustmentCode != "" {
			adjAmount = csvAmount(p.AdjustmentAmount)
		}

		result.Data = append(result.Data, []string{
			p.ID,
			p.ClaimID,
			claim.MemberID,
			claim.ProviderID,
			provider.NPI,
			member.LastName,
			member.FirstName,
			csvAmount(claim.BilledAmount),
			csvAmount(p.PaidAmount),
			csvAmount(p.AllowedAmount),
			csvAmount(p.PatientResponsibility),
			g.choice(claimPaymentStatusCodes),
			g.choice(claimFilingCodes),
			p.AdjustmentCode,
			adjAmount,
			g.choice(remittanceProcedureCodes),
			csvDate(claim.ServiceDate),
			csvDate(now),
			g.generateID("CHK", 6),
			csvDate(now),
			"ACH",
			g.generateID("PAYER", 6),
			g.generateID("REF", 9),
		})
	}

	if err := g.maybeWriteCSV(result, opts); err != nil {
		return nil, err
	}
	g.logger.Infof("Successfully generated EDI 835 CSV data with %d payments", result.TotalRecords)
	return result, nil
}
