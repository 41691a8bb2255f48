// Package repository contains all of the methods needed to persist entities
// reconstructed from EDI files.
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/claimstream/edi-fixtures/edi/models"
)

type Repository interface {
	memberRepository
	planRepository
	enrollmentRepository
	providerRepository
	claimRepository
	paymentRepository
	transactionRepository
}

type memberRepository interface {
	MemberExists(ctx context.Context, memberID string) (bool, error)
	CreateMember(ctx context.Context, m *models.Member) error
}

type planRepository interface {
	PlanExists(ctx context.Context, planID string) (bool, error)
	CreatePlan(ctx context.Context, p models.HealthPlan) error
}

type enrollmentRepository interface {
	CreateEnrollment(ctx context.Context, e *models.Enrollment) error

	// GetActiveEnrollment returns the member's most recent active enrollment,
	// or ErrEnrollmentNotFound.
	GetActiveEnrollment(ctx context.Context, memberID string) (*models.Enrollment, error)
}

type providerRepository interface {
	// GetProviderByNPI returns ErrProviderNotFound when no provider carries
	// the NPI.
	GetProviderByNPI(ctx context.Context, npi string) (*models.Provider, error)
	CreateProvider(ctx context.Context, p *models.Provider) error
}

type claimRepository interface {
	// GetClaimKeys resolves the member and provider a stored claim belongs
	// to, or ErrClaimNotFound.
	GetClaimKeys(ctx context.Context, claimID string) (ClaimKeys, error)

	CreateClaim(ctx context.Context, c MedicalClaim) error
	CreateClaimDiagnosis(ctx context.Context, d ClaimDiagnosis) error
	CreateClaimServiceLine(ctx context.Context, l ClaimServiceLine) error

	// UpdateClaimAdjudication records the remittance outcome on a stored
	// claim.
	UpdateClaimAdjudication(ctx context.Context, claimID, status string, adjudicationDate *time.Time, paid, allowed float64) error

	// UpdateServiceLinePayment records paid/allowed amounts on the stored
	// service lines matching the procedure code.
	UpdateServiceLinePayment(ctx context.Context, claimID, procedureCode string, paid, allowed float64) error
}

type paymentRepository interface {
	CreatePayment(ctx context.Context, p PaymentRecord) error
}

type transactionRepository interface {
	CreateTransaction(ctx context.Context, t models.Transaction) error
	UpdateTransactionStatus(ctx context.Context, transactionID, status string, recordCount int) error
}

var (
	ErrEnrollmentNotFound = errors.New("no active enrollment found for member")
	ErrProviderNotFound   = errors.New("no provider found for given npi")
	ErrClaimNotFound      = errors.New("no claim found for given id")
)

// ClaimKeys are the cross-reference ids a payment needs from a stored claim.
type ClaimKeys struct {
	MemberID   string
	ProviderID string
}

// MedicalClaim is the storage row for an imported claim header.
type MedicalClaim struct {
	ClaimID              string
	MemberID             string
	ProviderID           string
	EnrollmentID         string
	ServiceDate          *time.Time
	SubmissionDate       time.Time
	TotalBilled          float64
	Status               string
	ClaimType            string
	LocationType         string
	FrequencyCode        string
	SourceCode           string
	FacilityTypeCode     string
	ProcedureCode        string
	ProcedureDescription string
	PrimaryDiagnosis     string
	TotalPaid            float64
	TotalAllowed         float64
	AdjudicationDate     *time.Time
}

// ClaimDiagnosis is the storage row for one diagnosis on an imported claim.
type ClaimDiagnosis struct {
	DiagnosisID  string
	ClaimID      string
	MemberID     string
	ProviderID   string
	Code         string
	Description  string
	Category     string
	OnsetDate    *time.Time
	RecordedDate time.Time
}

// ClaimServiceLine is the storage row for one service line on an imported
// claim.
type ClaimServiceLine struct {
	ID                   string
	ClaimID              string
	LineNumber           int
	ProcedureCode        string
	ProcedureDescription string
	DiagnosisCode        string
	ServiceDate          *time.Time
	BilledAmount         float64
	AllowedAmount        float64
	PaidAmount           float64
	Units                int
	ModifierCode         string
	PlaceOfService       string
}

// PaymentRecord is the storage row for one remittance payment.
type PaymentRecord struct {
	PaymentID   string
	ClaimID     string
	PayerID     string
	PayeeID     string
	Method      string
	Amount      float64
	PaymentDate *time.Time
	Reference   string
	Status      string
}
