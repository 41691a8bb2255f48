package decoder

import (
	"context"
	"math/rand"
	"os"
	"strconv"
	"time"

	"github.com/pborman/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/claimstream/edi-fixtures/edi/constants"
	"github.com/claimstream/edi-fixtures/edi/encoder"
	"github.com/claimstream/edi-fixtures/edi/identity"
	"github.com/claimstream/edi-fixtures/edi/models"
	"github.com/claimstream/edi-fixtures/edi/repository"
	"github.com/claimstream/edi-fixtures/edi/utils"
)

// Importer decodes EDI files and persists the reconstructed entities through
// a Repository. Each file import is tracked as a transaction record; a bad
// record is skipped and logged, never aborting the rest of the file.
type Importer struct {
	repo   repository.Repository
	dec    *Decoder
	ids    identity.Provider
	rnd    *rand.Rand
	logger logrus.FieldLogger

	senderID   string
	receiverID string
}

func NewImporter(repo repository.Repository, ids identity.Provider, rnd *rand.Rand, logger logrus.FieldLogger) *Importer {
	return &Importer{
		repo:       repo,
		dec:        New(logger),
		ids:        ids,
		rnd:        rnd,
		logger:     logger,
		senderID:   utils.FromEnv("EDI_SENDER_ID", "SENDERID"),
		receiverID: utils.FromEnv("EDI_RECEIVER_ID", "RECEIVERID"),
	}
}

// importID builds a prefixed identifier for entities created during import.
// UUIDs keep concurrent imports collision-free without a shared sequence.
func importID(prefix string) string {
	return prefix + uuid.New()
}

func (imp *Importer) beginTransaction(ctx context.Context, transactionType, path string) (string, error) {
	t := models.Transaction{
		ID:               importID("EDI"),
		TransactionType:  transactionType,
		OriginalFilename: path,
		SenderID:         imp.senderID,
		ReceiverID:       imp.receiverID,
		TransactionDate:  time.Now(),
		Status:           constants.ImportInprog,
	}
	if err := imp.repo.CreateTransaction(ctx, t); err != nil {
		return "", errors.Wrap(err, "failed to record edi transaction")
	}
	return t.ID, nil
}

func (imp *Importer) finishTransaction(ctx context.Context, transactionID string, processed int) {
	if err := imp.repo.UpdateTransactionStatus(ctx, transactionID, constants.ImportComplete, processed); err != nil {
		imp.logger.WithError(err).Error("failed to update edi transaction status")
	}
}

func (imp *Importer) readSegments(path string) ([]Segment, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read %s", path)
	}
	return Tokenize(string(raw)), nil
}

// Import834 decodes an enrollment file and persists its members, plans and
// enrollments. Returns the number of member records processed.
func (imp *Importer) Import834(ctx context.Context, path string) (int, error) {
	imp.logger.Infof("Importing EDI 834 file: %s", path)

	segments, err := imp.readSegments(path)
	if err != nil {
		return 0, err
	}
	transactionID, err := imp.beginTransaction(ctx, constants.Transaction834, path)
	if err != nil {
		return 0, err
	}

	processed := 0
	for _, m := range imp.dec.Decode834(segments) {
		if err := imp.importMember(ctx, m); err != nil {
			imp.logger.WithError(err).Warn("skipping member record")
			continue
		}
		processed++
	}

	imp.finishTransaction(ctx, transactionID, processed)
	imp.logger.Infof("EDI 834 import complete, processed %d member records", processed)
	return processed, nil
}

func (imp *Importer) importMember(ctx context.Context, m *MemberRecord) error {
	if m.MemberID == "" {
		return errors.New("member id could not be determined")
	}

	exists, err := imp.repo.MemberExists(ctx, m.MemberID)
	if err != nil {
		return errors.Wrap(err, "failed to check member existence")
	}
	if !exists {
		member := &models.Member{
			ID:             m.MemberID,
			FirstName:      m.FirstName,
			LastName:       m.LastName,
			Gender:         m.Gender,
			DOB:            m.DOB,
			Phone:          m.Phone,
			Email:          m.Email,
			Street:         m.Street,
			City:           m.City,
			State:          m.State,
			Zip:            m.Zip,
			SSN:            m.SSN,
			PolicyNumber:   m.PolicyNumber,
			CoverageStatus: m.CoverageStatus,
			MedicarePlan:   m.MedicarePlan,
		}
		if err := imp.repo.CreateMember(ctx, member); err != nil {
			return errors.Wrapf(err, "failed to create member %s", m.MemberID)
		}
		imp.logger.Infof("Created member: %s", m.MemberID)
	}

	if m.PlanID == "" {
		return nil
	}

	if err := imp.ensurePlan(ctx, m.PlanID); err != nil {
		return err
	}

	status := "ACTIVE"
	if m.EndDate != nil {
		status = "TERMINATED"
	}
	enrollment := &models.Enrollment{
		ID:                importID("ENR"),
		MemberID:          m.MemberID,
		PlanID:            m.PlanID,
		SponsorID:         "DEFAULTSPO",
		StartDate:         derefOrNow(m.StartDate),
		EndDate:           m.EndDate,
		Status:            status,
		TerminationReason: m.TerminationReason,
		RelationshipCode:  "18",
		TransactionType:   "021",
		ActionCode:        "2",
		InsuranceLine:     m.InsuranceLine,
	}
	if err := imp.repo.CreateEnrollment(ctx, enrollment); err != nil {
		return errors.Wrapf(err, "failed to create enrollment for member %s", m.MemberID)
	}
	imp.logger.Infof("Created enrollment %s for member %s", enrollment.ID, m.MemberID)
	return nil
}

// ensurePlan inserts the catalog plan backing a plan id the store has not
// seen yet. A plan id outside the catalog fails the record.
func (imp *Importer) ensurePlan(ctx context.Context, planID string) error {
	exists, err := imp.repo.PlanExists(ctx, planID)
	if err != nil {
		return errors.Wrap(err, "failed to check plan existence")
	}
	if exists {
		return nil
	}

	plan, ok := encoder.HealthPlanByID(planID)
	if !ok {
		return errors.Errorf("unknown health plan %s", planID)
	}
	if err := imp.repo.CreatePlan(ctx, plan); err != nil {
		return errors.Wrapf(err, "failed to create health plan %s", planID)
	}
	imp.logger.Infof("Created health plan: %s", planID)
	return nil
}

// Import837 decodes a claims file and persists its claim groups. Returns the
// number of claims processed.
func (imp *Importer) Import837(ctx context.Context, path string) (int, error) {
	imp.logger.Infof("Importing EDI 837 file: %s", path)

	segments, err := imp.readSegments(path)
	if err != nil {
		return 0, err
	}
	transactionID, err := imp.beginTransaction(ctx, constants.Transaction837, path)
	if err != nil {
		return 0, err
	}

	processed := 0
	for _, group := range imp.dec.Decode837(segments) {
		if err := imp.importClaimGroup(ctx, group); err != nil {
			imp.logger.WithError(err).Warn("skipping claim record")
			continue
		}
		processed++
	}

	imp.finishTransaction(ctx, transactionID, processed)
	imp.logger.Infof("EDI 837 import complete, processed %d claim records", processed)
	return processed, nil
}

func (imp *Importer) importClaimGroup(ctx context.Context, group *ClaimGroup) error {
	if group.Member == nil || group.Member.MemberID == "" {
		return errors.New("member id could not be determined")
	}
	memberID := group.Member.MemberID

	exists, err := imp.repo.MemberExists(ctx, memberID)
	if err != nil {
		return errors.Wrap(err, "failed to check member existence")
	}
	if !exists {
		return errors.Errorf("member %s not found", memberID)
	}

	providerID, err := imp.resolveProvider(ctx, group.Provider)
	if err != nil {
		return err
	}

	enrollmentID, err := imp.resolveEnrollment(ctx, memberID)
	if err != nil {
		return err
	}

	claim := group.Claim
	primaryDiagnosis := ""
	if len(group.Diagnoses) > 0 {
		primaryDiagnosis = group.Diagnoses[0].Code
	}

	row := repository.MedicalClaim{
		ClaimID:              claim.ClaimID,
		MemberID:             memberID,
		ProviderID:           providerID,
		EnrollmentID:         enrollmentID,
		ServiceDate:          claim.ServiceDate,
		SubmissionDate:       claim.SubmissionDate,
		TotalBilled:          claim.BilledAmount,
		Status:               claim.Status,
		ClaimType:            claim.ClaimType,
		LocationType:         claim.LocationType,
		FrequencyCode:        claim.FrequencyCode,
		SourceCode:           claim.SourceCode,
		FacilityTypeCode:     claim.FacilityTypeCode,
		ProcedureCode:        claim.ProcedureCode,
		ProcedureDescription: encoder.ProcedureDescription(claim.ProcedureCode),
		PrimaryDiagnosis:     primaryDiagnosis,
	}
	if err := imp.repo.CreateClaim(ctx, row); err != nil {
		return errors.Wrapf(err, "failed to create claim %s", claim.ClaimID)
	}

	for idx, diag := range group.Diagnoses {
		d := repository.ClaimDiagnosis{
			DiagnosisID:  claim.ClaimID + "-D" + strconv.Itoa(idx+1),
			ClaimID:      claim.ClaimID,
			MemberID:     memberID,
			ProviderID:   providerID,
			Code:         diag.Code,
			Description:  diag.Description,
			Category:     diag.Category,
			OnsetDate:    diag.OnsetDate,
			RecordedDate: time.Now(),
		}
		if err := imp.repo.CreateClaimDiagnosis(ctx, d); err != nil {
			return errors.Wrapf(err, "failed to create diagnosis for claim %s", claim.ClaimID)
		}
	}

	for lineNum, line := range group.ServiceLines {
		l := repository.ClaimServiceLine{
			ID:                   claim.ClaimID + "-L" + strconv.Itoa(lineNum+1),
			ClaimID:              claim.ClaimID,
			LineNumber:           lineNum + 1,
			ProcedureCode:        line.ProcedureCode,
			ProcedureDescription: encoder.ProcedureDescription(line.ProcedureCode),
			DiagnosisCode:        line.DiagnosisCode,
			ServiceDate:          line.ServiceDate,
			BilledAmount:         line.BilledAmount,
			Units:                line.Units,
			ModifierCode:         line.ModifierCode,
			PlaceOfService:       line.PlaceOfService,
		}
		if err := imp.repo.CreateClaimServiceLine(ctx, l); err != nil {
			return errors.Wrapf(err, "failed to create service line for claim %s", claim.ClaimID)
		}
	}

	imp.logger.Infof("Created claim: %s", claim.ClaimID)
	return nil
}

// resolveProvider finds the stored provider matching the claim's NPI,
// creating one when unseen. Fields the 837 does not carry are filled from the
// identity provider so the stored row stays complete.
func (imp *Importer) resolveProvider(ctx context.Context, p *ProviderRecord) (string, error) {
	if p == nil || p.NPI == "" {
		return "", errors.New("provider npi could not be determined")
	}

	existing, err := imp.repo.GetProviderByNPI(ctx, p.NPI)
	if err == nil {
		return existing.ID, nil
	}
	if !errors.Is(err, repository.ErrProviderNotFound) {
		return "", errors.Wrap(err, "failed to look up provider")
	}

	person := imp.ids.Person()
	provider := &models.Provider{
		ID:        importID("PROV"),
		NPI:       p.NPI,
		FirstName: p.FirstName,
		LastName:  p.LastName,
		TaxID:     firstOr(p.TaxID, "TAX"+imp.digits(9)),
		Specialty: firstOr(p.Specialty, "Family Practice"),
		Street:    p.Street,
		City:      p.City,
		State:     p.State,
		Zip:       p.Zip,
		Phone:     firstOr(p.Phone, person.Phone),
		Email:     firstOr(p.Email, person.Email),
		InNetwork: true,
	}
	if err := imp.repo.CreateProvider(ctx, provider); err != nil {
		return "", errors.Wrapf(err, "failed to create provider with npi %s", p.NPI)
	}
	imp.logger.Infof("Created provider: %s", provider.ID)
	return provider.ID, nil
}

// resolveEnrollment finds the member's active enrollment, creating a default
// one when none exists so the claim has a coverage record to hang off.
func (imp *Importer) resolveEnrollment(ctx context.Context, memberID string) (string, error) {
	enrollment, err := imp.repo.GetActiveEnrollment(ctx, memberID)
	if err == nil {
		return enrollment.ID, nil
	}
	if !errors.Is(err, repository.ErrEnrollmentNotFound) {
		return "", errors.Wrap(err, "failed to look up enrollment")
	}

	if err := imp.ensurePlan(ctx, defaultPlanID); err != nil {
		return "", err
	}
	created := &models.Enrollment{
		ID:               importID("ENR"),
		MemberID:         memberID,
		PlanID:           defaultPlanID,
		SponsorID:        "DEFAULTSPO",
		StartDate:        time.Now().AddDate(-1, 0, 0),
		Status:           "ACTIVE",
		RelationshipCode: "18",
		TransactionType:  "021",
		ActionCode:       "2",
		InsuranceLine:    "HLT",
	}
	if err := imp.repo.CreateEnrollment(ctx, created); err != nil {
		return "", errors.Wrapf(err, "failed to create default enrollment for member %s", memberID)
	}
	imp.logger.Infof("Created default enrollment %s for member %s", created.ID, memberID)
	return created.ID, nil
}

const defaultPlanID = "DH-P3678B"

// paymentMethods maps BPR payment method codes to stored method labels.
var paymentMethods = map[string]string{
	"ACH": "EFT",
	"CCP": "CHECK",
	"CTX": "WIRE",
	"BOP": "WIRE",
}

// Import835 decodes a remittance file and applies its payments to stored
// claims. Returns the number of claim payments processed.
func (imp *Importer) Import835(ctx context.Context, path string) (int, error) {
	imp.logger.Infof("Importing EDI 835 file: %s", path)

	segments, err := imp.readSegments(path)
	if err != nil {
		return 0, err
	}
	transactionID, err := imp.beginTransaction(ctx, constants.Transaction835, path)
	if err != nil {
		return 0, err
	}

	processed := 0
	for _, payment := range imp.dec.Decode835(segments) {
		for _, cp := range payment.Claims {
			if err := imp.importClaimPayment(ctx, payment, cp); err != nil {
				imp.logger.WithError(err).Warn("skipping payment record")
				continue
			}
			processed++
		}
	}

	imp.finishTransaction(ctx, transactionID, processed)
	imp.logger.Infof("EDI 835 import complete, processed %d payment records", processed)
	return processed, nil
}

func (imp *Importer) importClaimPayment(ctx context.Context, payment *PaymentAdvice, cp *ClaimPayment) error {
	keys, err := imp.repo.GetClaimKeys(ctx, cp.ClaimID)
	if err != nil {
		if errors.Is(err, repository.ErrClaimNotFound) {
			return errors.Errorf("claim %s not found", cp.ClaimID)
		}
		return errors.Wrap(err, "failed to look up claim")
	}

	// Allowed amount is taken as the paid amount at the claim level; the
	// per-line SVC breakdown carries the real allowed figures.
	if err := imp.repo.UpdateClaimAdjudication(ctx, cp.ClaimID, cp.Status, cp.AdjudicationDate, cp.PaidAmount, cp.PaidAmount); err != nil {
		return errors.Wrapf(err, "failed to update claim %s", cp.ClaimID)
	}

	method, ok := paymentMethods[payment.PaymentMethod]
	if !ok {
		method = "CHECK"
	}
	record := repository.PaymentRecord{
		PaymentID:   importID("PAY"),
		ClaimID:     cp.ClaimID,
		PayerID:     "PAYER001",
		PayeeID:     keys.ProviderID,
		Method:      method,
		Amount:      cp.PaidAmount,
		PaymentDate: payment.PaymentDate,
		Reference:   payment.CheckNumber,
		Status:      "COMPLETED",
	}
	if err := imp.repo.CreatePayment(ctx, record); err != nil {
		return errors.Wrapf(err, "failed to create payment for claim %s", cp.ClaimID)
	}

	for _, svc := range cp.ServiceLines {
		if err := imp.repo.UpdateServiceLinePayment(ctx, cp.ClaimID, svc.ProcedureCode, svc.PaidAmount, svc.AllowedAmount); err != nil {
			return errors.Wrapf(err, "failed to update service lines for claim %s", cp.ClaimID)
		}
	}

	imp.logger.Infof("Applied payment %s to claim %s", record.PaymentID, cp.ClaimID)
	return nil
}

func (imp *Importer) digits(n int) string {
	const pool = "0123456789"
	b := make([]byte, n)
	for i := range b {
		b[i] = pool[imp.rnd.Intn(len(pool))]
	}
	return string(b)
}

// derefOrNow defaults a missing date to now so NOT NULL start dates stay
// satisfiable even for corrupted records.
func derefOrNow(t *time.Time) time.Time {
	if t != nil {
		return *t
	}
	return time.Now()
}
