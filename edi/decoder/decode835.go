package decoder

import (
	"strings"
	"time"
)

// PaymentAdvice is the check-level record rebuilt from a BPR segment and the
// claim payment loops that follow it.
type PaymentAdvice struct {
	TotalAmount   float64
	PaymentMethod string
	PaymentDate   *time.Time
	CheckNumber   string
	Claims        []*ClaimPayment
}

// ClaimPayment is one CLP loop.
type ClaimPayment struct {
	ClaimID               string
	StatusCode            string
	Status                string
	BilledAmount          float64
	PaidAmount            float64
	PatientResponsibility float64
	AdjudicationDate      *time.Time
	Adjustments           []Adjustment
	ServiceLines          []ServicePayment
}

// Adjustment is one CAS claim adjustment.
type Adjustment struct {
	GroupCode  string
	ReasonCode string
	Amount     float64
}

// ServicePayment is one SVC service-line payment breakdown.
type ServicePayment struct {
	ProcedureCode string
	BilledAmount  float64
	PaidAmount    float64
	AllowedAmount float64
}

// ClaimStatus maps a CLP02 claim status code to the adjudication outcome
// stored with the claim. Unknown codes stay RECEIVED.
func ClaimStatus(code string) string {
	m := map[string]string{
		"1": "PAID", "2": "PAID", "3": "DENIED", "4": "DENIED",
		"19": "PAID", "20": "DENIED", "21": "PAID", "22": "DENIED",
		"A": "PAID", "B": "DENIED", "C": "PAID",
	}
	if v, ok := m[code]; ok {
		return v
	}
	return "RECEIVED"
}

// Decode835 rebuilds payment advices from a remittance segment stream. BPR
// opens a payment and appends it immediately; CLP opens a claim payment
// within it; CAS, SVC and DTM-405 mutate the open claim payment.
func (d *Decoder) Decode835(segments []Segment) []*PaymentAdvice {
	var payments []*PaymentAdvice
	var currentPayment *PaymentAdvice
	var currentClaim *ClaimPayment

	for _, seg := range segments {
		switch seg.ID {
		case "BPR":
			currentPayment = &PaymentAdvice{
				TotalAmount:   d.parseAmount(seg.Element(1), seg),
				PaymentMethod: seg.Element(3),
				CheckNumber:   seg.Element(6),
			}
			if date := seg.Element(11); date != "" {
				currentPayment.PaymentDate = d.parseDate(date, seg)
			}
			payments = append(payments, currentPayment)
			currentClaim = nil

		case "CLP":
			if currentPayment == nil {
				d.dropOrphan(seg)
				continue
			}
			currentClaim = &ClaimPayment{
				ClaimID:               seg.Element(0),
				StatusCode:            seg.Element(1),
				Status:                ClaimStatus(seg.Element(1)),
				BilledAmount:          d.parseAmount(seg.Element(2), seg),
				PaidAmount:            d.parseAmount(seg.Element(3), seg),
				PatientResponsibility: d.parseAmount(seg.Element(4), seg),
			}
			currentPayment.Claims = append(currentPayment.Claims, currentClaim)

		case "CAS":
			if currentClaim == nil {
				d.dropOrphan(seg)
				continue
			}
			currentClaim.Adjustments = append(currentClaim.Adjustments, Adjustment{
				GroupCode:  seg.Element(0),
				ReasonCode: seg.Element(1),
				Amount:     d.parseAmount(seg.Element(2), seg),
			})

		case "SVC":
			if currentClaim == nil {
				d.dropOrphan(seg)
				continue
			}
			currentClaim.ServiceLines = append(currentClaim.ServiceLines, ServicePayment{
				ProcedureCode: strings.TrimPrefix(seg.Element(0), "HC:"),
				BilledAmount:  d.parseAmount(seg.Element(1), seg),
				PaidAmount:    d.parseAmount(seg.Element(2), seg),
				AllowedAmount: d.parseAmount(seg.Element(3), seg),
			})

		case "DTM":
			if currentClaim == nil || seg.Element(0) != "405" || seg.Element(1) != "D8" {
				continue
			}
			currentClaim.AdjudicationDate = d.parseDate(seg.Element(2), seg)
		}
	}

	return payments
}
