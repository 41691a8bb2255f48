package encoder

import (
	"fmt"
	"time"

	"github.com/claimstream/edi-fixtures/edi/constants"
	"github.com/claimstream/edi-fixtures/edi/models"
	"github.com/claimstream/edi-fixtures/edi/utils"
)

var adjustmentGroupCodes = []string{"CO", "OA", "PI", "PR"}

var claimPaymentStatusCodes = []string{"1", "2", "3", "4", "19", "20", "21", "22"}

var claimFilingCodes = []string{"1", "2", "3", "A", "B", "C"}

// Procedure codes echoed on SVC lines. Remittances carry the adjudicated
// procedure, not necessarily the one billed.
var remittanceProcedureCodes = []string{"99213", "99214", "99203", "99204"}

// paymentRecord pairs a payment with the claim it settles for the duration of
// one 835 run.
type paymentRecord struct {
	payment *models.Payment
	claim   *models.Claim
	issue   Issue
}

// Generate835 produces one remittance interchange against the registry's
// claim population. With no claims on hand, a default 837 run is generated
// first so remittances always reference real claims.
func (g *Generator) Generate835(opts Options) (*Document, error) {
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
	g.logger.Infof("Generating EDI 835 remittance for %d claims...", count)

	// Sample claims without replacement so no claim is paid twice in one run.
	selected := make([]*models.Claim, 0, count)
	for _, i := range g.rnd.Perm(len(claims))[:count] {
		selected = append(selected, claims[i])
	}

	records := make([]paymentRecord, 0, count)
	invalid := 0
	var totalPaid float64
	for _, claim := range selected {
		paid := utils.RoundCents(claim.BilledAmount * g.uniform(0.5, 0.9))
		patResp := utils.RoundCents(claim.BilledAmount * g.uniform(0.1, 0.3))

		p := &models.Payment{
			ID:                    g.generateID("PAY", 8),
			ClaimID:               claim.ID,
			PaidAmount:            paid,
			PatientResponsibility: patResp,
			AllowedAmount:         utils.RoundCents(paid + patResp),
		}

		rec := paymentRecord{payment: p, claim: claim}
		if issue, bad := g.corrupt835(p, claim.BilledAmount, opts.InvalidRate); bad {
			rec.issue = issue
			invalid++
		}

		totalPaid += rec.payment.PaidAmount
		records = append(records, rec)
	}

	now := g.now
	segments, env := g.openInterchange(constants.Transaction835, now)

	stIndex := len(segments)
	segments = append(segments, stSegment(constants.Transaction835))

	// Financial information: total check amount, ACH payment, account and
	// routing identifiers.
	segments = append(segments, fmt.Sprintf("BPR*I*%.2f*C*ACH*CC*01*%s**DA*%s*%s*%s~",
		utils.RoundCents(totalPaid),
		"CHK"+g.digits(6), g.digits(10), g.digits(9),
		now.Format("20060102")))
	segments = append(segments, fmt.Sprintf("TRN*1*%s*%s~", "REF"+g.digits(9), "PAYER"+g.digits(6)))
	segments = append(segments, fmt.Sprintf("N1*PR*%s*FI*%s~", "PAYER_NAME", g.generateID("TAX", 9)))

	for i, rec := range records {
		segments = append(segments, g.paymentSegments(i, rec, now)...)
	}

	// Occasional provider-level adjustment at the end of the transaction.
	if g.rnd.Float64() < 0.3 {
		providers := g.ctx.Providers()
		if len(providers) > 0 {
			provider := providers[g.rnd.Intn(len(providers))]
			segments = append(segments, fmt.Sprintf("PLB*%s*%s*CV:45*%.2f~",
				provider.ID, now.Format("20060102"),
				utils.RoundCents(g.uniform(100, 500))))
		}
	}

	doc := &Document{
		TransactionType: constants.Transaction835,
		Envelope:        env,
		TotalRecords:    len(records),
		InvalidRecords:  invalid,
	}
	doc.Segments = g.closeInterchange(segments, stIndex, env)

	if err := g.maybeWrite(doc, opts); err != nil {
		return nil, err
	}
	g.logger.Infof("Successfully generated EDI 835 remittance for %d claims", len(records))
	return doc, nil
}

// paymentSegments emits one claim payment loop: LX, CLP, optional CAS
// adjustment, provider and patient identification, the SVC service payment
// and its DTM dates.
func (g *Generator) paymentSegments(index int, rec paymentRecord, now time.Time) []string {
	p := rec.payment
	claim := rec.claim

	member, _ := g.ctx.Member(claim.MemberID)
	provider, _ := g.ctx.Provider(claim.ProviderID)

	segments := make([]string, 0, 8)

	segments = append(segments, fmt.Sprintf("LX*%d~", index+1))
	segments = append(segments, fmt.Sprintf("CLP*%s*%s*%.2f*%.2f*%.2f*%s~",
		p.ClaimID, g.choice(claimPaymentStatusCodes),
		claim.BilledAmount, p.PaidAmount, p.PatientResponsibility,
		g.choice(claimFilingCodes)))

	// Half of payments carry a claim-level adjustment.
	if p.AdjustmentCode != "" || g.rnd.Float64() < 0.5 {
		if p.AdjustmentCode == "" {
			p.AdjustmentCode = g.choice(adjustmentGroupCodes)
			p.AdjustmentAmount = utils.RoundCents(p.PaidAmount * g.uniform(0.05, 0.15))
		}
		segments = append(segments, fmt.Sprintf("CAS*%s*45*%.2f~", p.AdjustmentCode, p.AdjustmentAmount))
	}

	if provider != nil {
		segments = append(segments, fmt.Sprintf("NM1*82*1*%s*%s***XX*%s~",
			provider.LastName, provider.FirstName, provider.NPI))
	}
	if member != nil {
		segments = append(segments, fmt.Sprintf("NM1*IL*1*%s*%s***MI*%s~",
			member.LastName, member.FirstName, member.ID))
	}

	segments = append(segments, fmt.Sprintf("SVC*HC:%s*%.2f*%.2f*%.2f~",
		g.choice(remittanceProcedureCodes),
		claim.BilledAmount, p.PaidAmount, p.AllowedAmount))
	segments = append(segments, fmt.Sprintf("DTM*150*D8*%s~", claim.ServiceDate.Format("20060102")))
	segments = append(segments, fmt.Sprintf("DTM*405*D8*%s~", now.Format("20060102")))

	return segments
}
