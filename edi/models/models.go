package models

import (
	"time"
)

// Coverage status codes carried in INS04. Relative generation frequencies are
// fixed (85/5/5/1/1/1/1/1), see encoder builders.
const (
	StatusActive          = "A"
	StatusPending         = "P"
	StatusTerminated      = "T"
	StatusSuspended       = "S"
	StatusCOBRA           = "C"
	StatusGraduated       = "G"
	StatusVoluntaryOptOut = "V"
	StatusDeceased        = "D"
)

// TerminationReasons maps INS termination reason codes to their descriptions.
// Unmapped codes pass through verbatim.
var TerminationReasons = map[string]string{
	"07": "Voluntary termination",
	"28": "Initial enrollment",
	"43": "Change of location",
	"33": "Change of medical information",
	"25": "Change of personal data",
}

type HealthPlan struct {
	ID          string  `json:"plan_id"`
	Name        string  `json:"plan_name"`
	Type        string  `json:"plan_type"`
	Premium     float64 `json:"monthly_premium"`
	Deductible  float64 `json:"annual_deductible"`
	Coinsurance int     `json:"coinsurance_rate"`
	OOPMax      float64 `json:"out_of_pocket_max"`
}

type Member struct {
	ID             string     `json:"member_id"`
	FirstName      string     `json:"first_name"`
	LastName       string     `json:"last_name"`
	Gender         string     `json:"gender"`
	DOB            *time.Time `json:"date_of_birth"`
	Phone          string     `json:"phone"`
	Email          string     `json:"email"`
	Street         string     `json:"street_address"`
	City           string     `json:"city"`
	State          string     `json:"state"`
	Zip            string     `json:"zip_code"`
	SSN            string     `json:"ssn"`
	PolicyNumber   string     `json:"policy_number"`
	Plan           HealthPlan `json:"plan"`
	CoverageStatus string     `json:"coverage_status"`
	MedicarePlan   string     `json:"medicare_plan"`

	// Only set when CoverageStatus is Terminated.
	TerminationReason string     `json:"termination_reason,omitempty"`
	TerminationDate   *time.Time `json:"termination_date,omitempty"`
}

type Provider struct {
	ID        string `json:"provider_id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	NPI       string `json:"npi"` // 10 digits
	TaxID     string `json:"tax_id"`
	Street    string `json:"street_address"`
	City      string `json:"city"`
	State     string `json:"state"`
	Zip       string `json:"zip_code"`
	Taxonomy  string `json:"taxonomy_code"`
	Specialty string `json:"specialty"`
	Phone     string `json:"phone"`
	Email     string `json:"email"`
	InNetwork bool   `json:"is_in_network"`
}

type Enrollment struct {
	ID                string     `json:"enrollment_id"`
	MemberID          string     `json:"member_id"`
	PlanID            string     `json:"plan_id"`
	SponsorID         string     `json:"sponsor_id"`
	StartDate         time.Time  `json:"start_date"`
	EndDate           *time.Time `json:"end_date,omitempty"`
	Status            string     `json:"status"` // ACTIVE or TERMINATED
	TerminationReason string     `json:"termination_reason,omitempty"`
	RelationshipCode  string     `json:"relationship_code"`
	TransactionType   string     `json:"transaction_type"`
	ActionCode        string     `json:"action_code"`
	InsuranceLine     string     `json:"insurance_line"`
}

type Diagnosis struct {
	Code        string     `json:"diagnosis_code"`
	Description string     `json:"diagnosis_description"`
	Category    string     `json:"category"` // chronic, acute or preventive
	Primary     bool       `json:"primary"`  // first diagnosis on the claim
	OnsetDate   *time.Time `json:"onset_date,omitempty"`
}

type ServiceLine struct {
	LineNumber     int       `json:"line_number"` // 1-based, claim-scoped
	ProcedureCode  string    `json:"procedure_code"`
	Modifier       string    `json:"modifier_code,omitempty"`
	PlaceOfService string    `json:"place_of_service"`
	Amount         float64   `json:"billed_amount"`
	Units          int       `json:"units"`
	ServiceDate    time.Time `json:"service_date"`
	DiagnosisCode  string    `json:"diagnosis_code,omitempty"`
}

type Claim struct {
	ID           string        `json:"claim_id"`
	MemberID     string        `json:"member_id"`
	ProviderID   string        `json:"provider_id"`
	EnrollmentID string        `json:"enrollment_id"`
	ServiceDate  time.Time     `json:"service_date"`
	BilledAmount float64       `json:"billed_amount"`
	StatusCode   string        `json:"claim_status"`
	ERVisit      bool          `json:"er_visit"`
	Diagnoses    []Diagnosis   `json:"diagnoses"`
	ServiceLines []ServiceLine `json:"service_lines"`
}

type Payment struct {
	ID                    string  `json:"payment_id"`
	ClaimID               string  `json:"claim_id"`
	PaidAmount            float64 `json:"paid_amount"`
	PatientResponsibility float64 `json:"patient_responsibility"`
	AllowedAmount         float64 `json:"allowed_amount"`
	AdjustmentCode        string  `json:"adjustment_code,omitempty"`
	AdjustmentAmount      float64 `json:"adjustment_amount,omitempty"`
}

// Transaction is the processing record kept for each imported EDI file.
type Transaction struct {
	ID               string     `json:"id"`
	TransactionType  string     `json:"transaction_type"`
	OriginalFilename string     `json:"original_filename"`
	SenderID         string     `json:"sender_id"`
	ReceiverID       string     `json:"receiver_id"`
	TransactionDate  time.Time  `json:"transaction_date"`
	Status           string     `json:"status"`
	RecordCount      int        `json:"record_count"`
	ProcessedAt      *time.Time `json:"processed_at,omitempty"`
}

// Envelope captures the interchange-level identifiers issued when an
// interchange is opened. The ISA control number recorded here must be echoed
// verbatim by the closing IEA segment.
type Envelope struct {
	ISAControlNumber string
	GSControlNumber  string
	SenderID         string
	ReceiverID       string
	Timestamp        time.Time
}
