package repository

import (
	"context"
	"sync"
	"time"

	"github.com/claimstream/edi-fixtures/edi/models"
)

// Ensure MemoryRepository satisfies the interface
var _ Repository = &MemoryRepository{}

// MemoryRepository is a map-backed Repository used by tests and local runs
// without a database.
type MemoryRepository struct {
	mu           sync.RWMutex
	members      map[string]*models.Member
	plans        map[string]models.HealthPlan
	enrollments  map[string]*models.Enrollment
	providers    map[string]*models.Provider
	claims       map[string]MedicalClaim
	diagnoses    []ClaimDiagnosis
	serviceLines []ClaimServiceLine
	payments     []PaymentRecord
	transactions map[string]models.Transaction
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		members:      make(map[string]*models.Member),
		plans:        make(map[string]models.HealthPlan),
		enrollments:  make(map[string]*models.Enrollment),
		providers:    make(map[string]*models.Provider),
		claims:       make(map[string]MedicalClaim),
		transactions: make(map[string]models.Transaction),
	}
}

func (r *MemoryRepository) MemberExists(_ context.Context, memberID string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.members[memberID]
	return ok, nil
}

func (r *MemoryRepository) CreateMember(_ context.Context, m *models.Member) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.members[m.ID] = m
	return nil
}

// GetMember is a test helper, not part of the Repository contract.
func (r *MemoryRepository) GetMember(memberID string) (*models.Member, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.members[memberID]
	return m, ok
}

func (r *MemoryRepository) PlanExists(_ context.Context, planID string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.plans[planID]
	return ok, nil
}

func (r *MemoryRepository) CreatePlan(_ context.Context, p models.HealthPlan) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.plans[p.ID] = p
	return nil
}

func (r *MemoryRepository) CreateEnrollment(_ context.Context, e *models.Enrollment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.enrollments[e.ID] = e
	return nil
}

func (r *MemoryRepository) GetActiveEnrollment(_ context.Context, memberID string) (*models.Enrollment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var latest *models.Enrollment
	for _, e := range r.enrollments {
		if e.MemberID != memberID || e.Status != "ACTIVE" {
			continue
		}
		if latest == nil || e.StartDate.After(latest.StartDate) {
			latest = e
		}
	}
	if latest == nil {
		return nil, ErrEnrollmentNotFound
	}
	return latest, nil
}

func (r *MemoryRepository) GetProviderByNPI(_ context.Context, npi string) (*models.Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, p := range r.providers {
		if p.NPI == npi {
			return p, nil
		}
	}
	return nil, ErrProviderNotFound
}

func (r *MemoryRepository) CreateProvider(_ context.Context, p *models.Provider) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[p.ID] = p
	return nil
}

func (r *MemoryRepository) GetClaimKeys(_ context.Context, claimID string) (ClaimKeys, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.claims[claimID]
	if !ok {
		return ClaimKeys{}, ErrClaimNotFound
	}
	return ClaimKeys{MemberID: c.MemberID, ProviderID: c.ProviderID}, nil
}

func (r *MemoryRepository) CreateClaim(_ context.Context, c MedicalClaim) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.claims[c.ClaimID] = c
	return nil
}

// GetClaim is a test helper, not part of the Repository contract.
func (r *MemoryRepository) GetClaim(claimID string) (MedicalClaim, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.claims[claimID]
	return c, ok
}

func (r *MemoryRepository) CreateClaimDiagnosis(_ context.Context, d ClaimDiagnosis) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.diagnoses = append(r.diagnoses, d)
	return nil
}

// DiagnosesForClaim is a test helper, not part of the Repository contract.
func (r *MemoryRepository) DiagnosesForClaim(claimID string) []ClaimDiagnosis {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []ClaimDiagnosis
	for _, d := range r.diagnoses {
		if d.ClaimID == claimID {
			out = append(out, d)
		}
	}
	return out
}

func (r *MemoryRepository) CreateClaimServiceLine(_ context.Context, l ClaimServiceLine) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.serviceLines = append(r.serviceLines, l)
	return nil
}

// ServiceLinesForClaim is a test helper, not part of the Repository contract.
func (r *MemoryRepository) ServiceLinesForClaim(claimID string) []ClaimServiceLine {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []ClaimServiceLine
	for _, l := range r.serviceLines {
		if l.ClaimID == claimID {
			out = append(out, l)
		}
	}
	return out
}

func (r *MemoryRepository) UpdateClaimAdjudication(_ context.Context, claimID, status string, adjudicationDate *time.Time, paid, allowed float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.claims[claimID]
	if !ok {
		return ErrClaimNotFound
	}
	c.Status = status
	c.AdjudicationDate = adjudicationDate
	c.TotalPaid = paid
	c.TotalAllowed = allowed
	r.claims[claimID] = c
	return nil
}

func (r *MemoryRepository) UpdateServiceLinePayment(_ context.Context, claimID, procedureCode string, paid, allowed float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.serviceLines {
		if r.serviceLines[i].ClaimID == claimID && r.serviceLines[i].ProcedureCode == procedureCode {
			r.serviceLines[i].PaidAmount = paid
			r.serviceLines[i].AllowedAmount = allowed
		}
	}
	return nil
}

func (r *MemoryRepository) CreatePayment(_ context.Context, p PaymentRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.payments = append(r.payments, p)
	return nil
}

// Payments is a test helper, not part of the Repository contract.
func (r *MemoryRepository) Payments() []PaymentRecord {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]PaymentRecord, len(r.payments))
	copy(out, r.payments)
	return out
}

func (r *MemoryRepository) CreateTransaction(_ context.Context, t models.Transaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.transactions[t.ID] = t
	return nil
}

// Transactions is a test helper, not part of the Repository contract.
func (r *MemoryRepository) Transactions() []models.Transaction {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]models.Transaction, 0, len(r.transactions))
	for _, t := range r.transactions {
		out = append(out, t)
	}
	return out
}

func (r *MemoryRepository) UpdateTransactionStatus(_ context.Context, transactionID, status string, recordCount int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.transactions[transactionID]
	if !ok {
		return nil
	}
	now := time.Now()
	t.Status = status
	t.RecordCount = recordCount
	t.ProcessedAt = &now
	r.transactions[transactionID] = t
	return nil
}
