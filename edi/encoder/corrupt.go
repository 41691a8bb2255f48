package encoder

import (
	"github.com/claimstream/edi-fixtures/edi/models"
	"github.com/claimstream/edi-fixtures/edi/utils"
)

// Issue tags a deliberately corrupted record with the kind of data problem
// injected, so downstream tests can assert on what was broken.
type Issue string

const (
	// 834 issues
	IssueMissingDOB           Issue = "missing_dob"
	IssueInvalidEffectiveDate Issue = "invalid_effective_date"
	IssueStartAfterEnd        Issue = "start_after_end"
	IssueInvalidGender        Issue = "invalid_gender"
	IssueWrongPlanID          Issue = "wrong_plan_id"

	// 837 issues
	IssueChargeMismatch    Issue = "charge_mismatch"
	IssueInvalidDiagnosis  Issue = "invalid_diagnosis"
	IssueFutureServiceDate Issue = "future_service_date"
	IssueInvalidNPILength  Issue = "invalid_npi_length"
	IssueNegativeAmount    Issue = "negative_amount"

	// 835 issues
	IssueNegativePayment      Issue = "negative_payment"
	IssueMismatchedIDs        Issue = "mismatched_ids"
	IssueInvalidAdjustment    Issue = "invalid_adjustment_code"
	IssuePaymentExceedsBilled Issue = "payment_exceeds_billed"
)

var issues834 = []Issue{IssueMissingDOB, IssueInvalidEffectiveDate, IssueStartAfterEnd, IssueInvalidGender, IssueWrongPlanID}
var issues837 = []Issue{IssueChargeMismatch, IssueInvalidDiagnosis, IssueFutureServiceDate, IssueInvalidNPILength, IssueNegativeAmount}
var issues835 = []Issue{IssueNegativePayment, IssueMismatchedIDs, IssueInvalidAdjustment, IssuePaymentExceedsBilled}

// corrupt834 applies one randomly chosen enrollment data issue at the
// configured per-record rate. The member and enrollment are mutated in
// place after construction.
func (g *Generator) corrupt834(m *models.Member, e *models.Enrollment, rate float64) (Issue, bool) {
	if g.rnd.Float64() > rate {
		return "", false
	}

	now := g.now
	issue := issues834[g.rnd.Intn(len(issues834))]

	switch issue {
	case IssueMissingDOB:
		m.DOB = nil
	case IssueInvalidEffectiveDate:
		// Effective date in the future
		e.StartDate = g.dateBetween(now, now.AddDate(1, 0, 0))
	case IssueStartAfterEnd:
		e.StartDate = g.dateBetween(now.AddDate(-1, 0, 0), now)
		end := e.StartDate.AddDate(0, 0, -g.intBetween(1, 365))
		e.EndDate = &end
	case IssueInvalidGender:
		m.Gender = g.choice([]string{"X", "U", "O", ""})
	case IssueWrongPlanID:
		m.Plan = models.HealthPlan{ID: "INVALID-PLAN", Name: "Invalid Plan", Type: "INVALID"}
		e.PlanID = m.Plan.ID
	}

	return issue, true
}

// claimCorruption carries mutations that live outside the claim record
// itself, like the provider NPI override emitted on the claim's NM1 segment.
type claimCorruption struct {
	issue       Issue
	npiOverride string
}

// corrupt837 applies one randomly chosen claim data issue at the configured
// per-record rate.
func (g *Generator) corrupt837(c *models.Claim, rate float64) (claimCorruption, bool) {
	if g.rnd.Float64() > rate {
		return claimCorruption{}, false
	}

	cc := claimCorruption{issue: issues837[g.rnd.Intn(len(issues837))]}

	switch cc.issue {
	case IssueChargeMismatch:
		// Total charge drops below the sum of the service lines
		var lineTotal float64
		for _, l := range c.ServiceLines {
			lineTotal += l.Amount
		}
		if lineTotal > 0 {
			c.BilledAmount = utils.RoundCents(lineTotal * g.uniform(0.5, 0.8))
		}
	case IssueInvalidDiagnosis:
		c.Diagnoses = append(c.Diagnoses, models.Diagnosis{
			Code:        "INVALID.999",
			Description: "Invalid diagnosis",
			Category:    "acute",
		})
	case IssueFutureServiceDate:
		c.ServiceDate = g.dateBetween(g.now, g.now.AddDate(1, 0, 0))
	case IssueInvalidNPILength:
		lengths := []int{8, 9, 11, 12}
		cc.npiOverride = g.digits(lengths[g.rnd.Intn(len(lengths))])
	case IssueNegativeAmount:
		if c.BilledAmount > 0 {
			c.BilledAmount = -c.BilledAmount
		}
	}

	return cc, true
}

// corrupt835 applies one randomly chosen payment data issue at the
// configured per-record rate.
func (g *Generator) corrupt835(p *models.Payment, billed float64, rate float64) (Issue, bool) {
	if g.rnd.Float64() > rate {
		return "", false
	}

	issue := issues835[g.rnd.Intn(len(issues835))]

	switch issue {
	case IssueNegativePayment:
		if p.PaidAmount > 0 {
			p.PaidAmount = -p.PaidAmount
		}
	case IssueMismatchedIDs:
		p.ClaimID = "MISMATCHED-" + g.digits(10)
	case IssueInvalidAdjustment:
		p.AdjustmentCode = "INVALID"
		if p.AdjustmentAmount == 0 {
			p.AdjustmentAmount = utils.RoundCents(p.PaidAmount * g.uniform(0.05, 0.15))
		}
	case IssuePaymentExceedsBilled:
		p.PaidAmount = utils.RoundCents(billed * g.uniform(1.1, 1.5))
	}

	return issue, true
}
