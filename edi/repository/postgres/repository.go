package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/huandu/go-sqlbuilder"

	"github.com/claimstream/edi-fixtures/edi/models"
	"github.com/claimstream/edi-fixtures/edi/repository"
)

type queryable interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

type executable interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

const (
	sqlFlavor = sqlbuilder.PostgreSQL
)

// Ensure Repository satisfies the interface
var _ repository.Repository = &Repository{}

type Repository struct {
	queryable
	executable
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db, db}
}

func NewRepositoryTx(tx *sql.Tx) *Repository {
	return &Repository{tx, tx}
}

func (r *Repository) MemberExists(ctx context.Context, memberID string) (bool, error) {
	sb := sqlFlavor.NewSelectBuilder().Select("COUNT(1)").From("members")
	sb.Where(sb.Equal("id", memberID))

	query, args := sb.Build()
	var count int
	if err := r.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *Repository) CreateMember(ctx context.Context, m *models.Member) error {
	ib := sqlFlavor.NewInsertBuilder().InsertInto("members")
	ib.Cols("id", "last_name", "first_name", "dob", "gender", "coverage_status",
		"street_address", "city", "state", "zip_code", "phone", "email", "ssn",
		"medicare_plan", "created_at", "updated_at").
		Values(m.ID, m.LastName, m.FirstName, m.DOB, m.Gender, m.CoverageStatus,
			m.Street, m.City, m.State, m.Zip, m.Phone, m.Email, m.SSN,
			m.MedicarePlan, time.Now(), time.Now())

	query, args := ib.Build()
	_, err := r.ExecContext(ctx, query, args...)
	return err
}

func (r *Repository) PlanExists(ctx context.Context, planID string) (bool, error) {
	sb := sqlFlavor.NewSelectBuilder().Select("COUNT(1)").From("health_plans")
	sb.Where(sb.Equal("plan_id", planID))

	query, args := sb.Build()
	var count int
	if err := r.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *Repository) CreatePlan(ctx context.Context, p models.HealthPlan) error {
	ib := sqlFlavor.NewInsertBuilder().InsertInto("health_plans")
	ib.Cols("plan_id", "plan_name", "plan_type", "monthly_premium", "annual_deductible",
		"coinsurance_rate", "out_of_pocket_max", "effective_date").
		Values(p.ID, p.Name, p.Type, p.Premium, p.Deductible, p.Coinsurance, p.OOPMax, time.Now())

	query, args := ib.Build()
	_, err := r.ExecContext(ctx, query, args...)
	return err
}

func (r *Repository) CreateEnrollment(ctx context.Context, e *models.Enrollment) error {
	ib := sqlFlavor.NewInsertBuilder().InsertInto("enrollments")
	ib.Cols("id", "member_id", "plan_id", "sponsor_id", "start_date", "end_date",
		"relationship_code", "status", "transaction_type", "insurance_line",
		"termination_reason", "action_code").
		Values(e.ID, e.MemberID, e.PlanID, e.SponsorID, e.StartDate, e.EndDate,
			e.RelationshipCode, e.Status, e.TransactionType, e.InsuranceLine,
			e.TerminationReason, e.ActionCode)

	query, args := ib.Build()
	_, err := r.ExecContext(ctx, query, args...)
	return err
}

func (r *Repository) GetActiveEnrollment(ctx context.Context, memberID string) (*models.Enrollment, error) {
	sb := sqlFlavor.NewSelectBuilder()
	sb.Select("id", "member_id", "plan_id", "sponsor_id", "start_date", "end_date",
		"relationship_code", "status", "transaction_type", "insurance_line")
	sb.From("enrollments").
		Where(sb.Equal("member_id", memberID), sb.Equal("status", "ACTIVE")).
		OrderBy("start_date").Desc().Limit(1)

	query, args := sb.Build()
	row := r.QueryRowContext(ctx, query, args...)

	var (
		e       models.Enrollment
		endDate sql.NullTime
	)
	err := row.Scan(&e.ID, &e.MemberID, &e.PlanID, &e.SponsorID, &e.StartDate, &endDate,
		&e.RelationshipCode, &e.Status, &e.TransactionType, &e.InsuranceLine)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrEnrollmentNotFound
		}
		return nil, err
	}
	if endDate.Valid {
		e.EndDate = &endDate.Time
	}
	return &e, nil
}

func (r *Repository) GetProviderByNPI(ctx context.Context, npi string) (*models.Provider, error) {
	sb := sqlFlavor.NewSelectBuilder()
	sb.Select("id", "npi", "last_name", "first_name", "specialty", "tax_id",
		"street_address", "city", "state", "zip_code", "phone", "email", "is_in_network")
	sb.From("providers").Where(sb.Equal("npi", npi))

	query, args := sb.Build()
	row := r.QueryRowContext(ctx, query, args...)

	var p models.Provider
	err := row.Scan(&p.ID, &p.NPI, &p.LastName, &p.FirstName, &p.Specialty, &p.TaxID,
		&p.Street, &p.City, &p.State, &p.Zip, &p.Phone, &p.Email, &p.InNetwork)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrProviderNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (r *Repository) CreateProvider(ctx context.Context, p *models.Provider) error {
	ib := sqlFlavor.NewInsertBuilder().InsertInto("providers")
	ib.Cols("id", "npi", "last_name", "first_name", "specialty", "tax_id",
		"street_address", "city", "state", "zip_code", "phone", "email",
		"is_in_network", "created_at", "updated_at").
		Values(p.ID, p.NPI, p.LastName, p.FirstName, p.Specialty, p.TaxID,
			p.Street, p.City, p.State, p.Zip, p.Phone, p.Email,
			p.InNetwork, time.Now(), time.Now())

	query, args := ib.Build()
	_, err := r.ExecContext(ctx, query, args...)
	return err
}

func (r *Repository) GetClaimKeys(ctx context.Context, claimID string) (repository.ClaimKeys, error) {
	sb := sqlFlavor.NewSelectBuilder().Select("member_id", "provider_id").From("medical_claims")
	sb.Where(sb.Equal("claim_id", claimID))

	query, args := sb.Build()
	var keys repository.ClaimKeys
	err := r.QueryRowContext(ctx, query, args...).Scan(&keys.MemberID, &keys.ProviderID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return repository.ClaimKeys{}, repository.ErrClaimNotFound
		}
		return repository.ClaimKeys{}, err
	}
	return keys, nil
}

func (r *Repository) CreateClaim(ctx context.Context, c repository.MedicalClaim) error {
	ib := sqlFlavor.NewInsertBuilder().InsertInto("medical_claims")
	ib.Cols("claim_id", "member_id", "provider_id", "enrollment_id", "service_date",
		"submission_date", "total_billed", "status", "claim_type", "location_type",
		"claim_frequency_code", "claim_source_code", "facility_type_code",
		"procedure_code", "procedure_description", "diagnosis_code").
		Values(c.ClaimID, c.MemberID, c.ProviderID, c.EnrollmentID, c.ServiceDate,
			c.SubmissionDate, c.TotalBilled, c.Status, c.ClaimType, c.LocationType,
			c.FrequencyCode, c.SourceCode, c.FacilityTypeCode,
			c.ProcedureCode, c.ProcedureDescription, c.PrimaryDiagnosis)

	query, args := ib.Build()
	_, err := r.ExecContext(ctx, query, args...)
	return err
}

func (r *Repository) CreateClaimDiagnosis(ctx context.Context, d repository.ClaimDiagnosis) error {
	ib := sqlFlavor.NewInsertBuilder().InsertInto("diagnoses")
	ib.Cols("diagnosis_id", "claim_id", "member_id", "provider_id", "diagnosis_code",
		"diagnosis_description", "category", "onset_date", "recorded_date").
		Values(d.DiagnosisID, d.ClaimID, d.MemberID, d.ProviderID, d.Code,
			d.Description, d.Category, d.OnsetDate, d.RecordedDate)

	query, args := ib.Build()
	_, err := r.ExecContext(ctx, query, args...)
	return err
}

func (r *Repository) CreateClaimServiceLine(ctx context.Context, l repository.ClaimServiceLine) error {
	ib := sqlFlavor.NewInsertBuilder().InsertInto("claim_service_lines")
	ib.Cols("id", "claim_id", "line_number", "procedure_code", "procedure_description",
		"diagnosis_code", "service_date", "billed_amount", "allowed_amount",
		"paid_amount", "units", "modifier_code", "place_of_service").
		Values(l.ID, l.ClaimID, l.LineNumber, l.ProcedureCode, l.ProcedureDescription,
			l.DiagnosisCode, l.ServiceDate, l.BilledAmount, l.AllowedAmount,
			l.PaidAmount, l.Units, l.ModifierCode, l.PlaceOfService)

	query, args := ib.Build()
	_, err := r.ExecContext(ctx, query, args...)
	return err
}

func (r *Repository) UpdateClaimAdjudication(ctx context.Context, claimID, status string, adjudicationDate *time.Time, paid, allowed float64) error {
	ub := sqlFlavor.NewUpdateBuilder().Update("medical_claims")
	ub.Set(
		ub.Assign("status", status),
		ub.Assign("adjudication_date", adjudicationDate),
		ub.Assign("total_paid", paid),
		ub.Assign("total_allowed", allowed),
	)
	ub.Where(ub.Equal("claim_id", claimID))

	query, args := ub.Build()
	result, err := r.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return repository.ErrClaimNotFound
	}
	return nil
}

func (r *Repository) UpdateServiceLinePayment(ctx context.Context, claimID, procedureCode string, paid, allowed float64) error {
	ub := sqlFlavor.NewUpdateBuilder().Update("claim_service_lines")
	ub.Set(
		ub.Assign("paid_amount", paid),
		ub.Assign("allowed_amount", allowed),
	)
	ub.Where(ub.Equal("claim_id", claimID), ub.Equal("procedure_code", procedureCode))

	query, args := ub.Build()
	_, err := r.ExecContext(ctx, query, args...)
	return err
}

func (r *Repository) CreatePayment(ctx context.Context, p repository.PaymentRecord) error {
	ib := sqlFlavor.NewInsertBuilder().InsertInto("payments")
	ib.Cols("payment_id", "claim_id", "payer_id", "payee_id", "payment_method",
		"payment_amount", "payment_date", "transaction_reference", "status").
		Values(p.PaymentID, p.ClaimID, p.PayerID, p.PayeeID, p.Method,
			p.Amount, p.PaymentDate, p.Reference, p.Status)

	query, args := ib.Build()
	_, err := r.ExecContext(ctx, query, args...)
	return err
}

func (r *Repository) CreateTransaction(ctx context.Context, t models.Transaction) error {
	ib := sqlFlavor.NewInsertBuilder().InsertInto("edi_transactions")
	ib.Cols("id", "transaction_type", "original_filename", "sender_id",
		"receiver_id", "transaction_date", "status").
		Values(t.ID, t.TransactionType, t.OriginalFilename, t.SenderID,
			t.ReceiverID, t.TransactionDate, t.Status)

	query, args := ib.Build()
	_, err := r.ExecContext(ctx, query, args...)
	return err
}

func (r *Repository) UpdateTransactionStatus(ctx context.Context, transactionID, status string, recordCount int) error {
	ub := sqlFlavor.NewUpdateBuilder().Update("edi_transactions")
	ub.Set(
		ub.Assign("status", status),
		ub.Assign("record_count", recordCount),
		ub.Assign("processed_at", time.Now()),
	)
	ub.Where(ub.Equal("id", transactionID))

	query, args := ub.Build()
	_, err := r.ExecContext(ctx, query, args...)
	return err
}
