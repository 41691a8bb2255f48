package encoder

import (
	"fmt"

	"github.com/claimstream/edi-fixtures/edi/constants"
	"github.com/claimstream/edi-fixtures/edi/models"
	"github.com/claimstream/edi-fixtures/edi/utils"
)

// EnsureEnrollmentPopulation generates a default member population when the
// registry has none. Claim generation depends on an existing population;
// this makes the dependency explicit rather than a hidden side effect.
func (g *Generator) EnsureEnrollmentPopulation(count int) error {
	if g.ctx.MemberCount() > 0 {
		return nil
	}
	g.logger.Infof("No members found. Generating %d sample members first...", count)
	_, err := g.Generate834(Options{Count: &count})
	return err
}

// EnsureProviderPopulation generates a default provider population when the
// registry has none.
func (g *Generator) EnsureProviderPopulation(count int) {
	if g.ctx.ProviderCount() > 0 {
		return
	}
	g.logger.Infof("No providers found. Generating %d providers...", count)
	for i := 0; i < count; i++ {
		g.NewProvider()
	}
}

// selectDiagnoses picks 1 diagnosis, or 2-4 when a draw lands under the
// profile's multiple-diagnosis rate. When multiple, a 30% draw mixes in one
// diagnosis from a different category.
func (g *Generator) selectDiagnoses(risk models.RiskProfile) []models.Diagnosis {
	w := risk.DiagnosisWeights
	category := g.weightedCategory(w.Chronic, w.Acute, w.Preventive)

	numDiag := 1
	if g.rnd.Float64() < risk.MultipleDiagnosisRate {
		numDiag = g.intBetween(2, 4)
	}

	pool := diagnosisPools[category]
	picked := g.sampleDiagnoses(pool, numDiag)

	selected := make([]models.Diagnosis, 0, numDiag)
	for _, d := range picked {
		selected = append(selected, models.Diagnosis{Code: d.code, Description: d.description, Category: category})
	}

	if numDiag > 1 && g.rnd.Float64() < 0.3 {
		var others []string
		for _, c := range diagnosisCategories {
			if c != category {
				others = append(others, c)
			}
		}
		other := others[g.rnd.Intn(len(others))]
		otherPool := diagnosisPools[other]
		d := otherPool[g.rnd.Intn(len(otherPool))]
		selected = append(selected, models.Diagnosis{Code: d.code, Description: d.description, Category: other})
	}

	if len(selected) > numDiag {
		selected = selected[:numDiag]
	}
	selected[0].Primary = true
	return selected
}

// sampleDiagnoses draws up to n distinct entries from the pool.
func (g *Generator) sampleDiagnoses(pool []codedDiagnosis, n int) []codedDiagnosis {
	if n > len(pool) {
		n = len(pool)
	}
	idx := g.rnd.Perm(len(pool))[:n]
	out := make([]codedDiagnosis, 0, n)
	for _, i := range idx {
		out = append(out, pool[i])
	}
	return out
}

func (g *Generator) weightedCategory(chronic, acute, preventive float64) string {
	draw := g.rnd.Float64() * (chronic + acute + preventive)
	switch {
	case draw < chronic:
		return "chronic"
	case draw < chronic+acute:
		return "acute"
	default:
		return "preventive"
	}
}

// billedAmount draws from the top 40% of the charge range at the high-cost
// ratio, otherwise from the bottom 60%.
func (g *Generator) billedAmount(risk models.RiskProfile) float64 {
	cr := risk.ChargeRange
	if g.rnd.Float64() < risk.HighCostRatio {
		return utils.RoundCents(g.uniform(cr.Max*0.6, cr.Max))
	}
	return utils.RoundCents(g.uniform(cr.Min, cr.Max*0.6))
}

func (g *Generator) serviceLineCount(risk models.RiskProfile) int {
	switch risk.ServiceLineComplexity {
	case "high":
		return g.intBetween(3, 8)
	case "low":
		return g.intBetween(1, 2)
	default:
		return g.intBetween(2, 5)
	}
}

func (g *Generator) procedureCode(risk models.RiskProfile, isER bool) string {
	if isER {
		return g.choice(erProcedureCodes)
	}
	switch risk.ServiceLineComplexity {
	case "high":
		return g.choice(append(append([]string{}, procedurePools["high_complexity"]...), procedurePools["medium_complexity"]...))
	case "low":
		return g.choice(append(append([]string{}, procedurePools["low_complexity"]...), procedurePools["medium_complexity"]...))
	default:
		return g.choice(procedurePools["medium_complexity"])
	}
}

func (g *Generator) placeOfServiceCode(risk models.RiskProfile, isER bool) string {
	if isER {
		return "23"
	}
	w := risk.ProviderTypeWeights
	draw := g.rnd.Float64() * (w.Emergency + w.Specialist + w.Primary)
	var providerType string
	switch {
	case draw < w.Emergency:
		providerType = "emergency"
	case draw < w.Emergency+w.Specialist:
		providerType = "specialist"
	default:
		providerType = "primary"
	}
	return g.choice(placeOfService[providerType])
}

func (g *Generator) claimStatus(risk models.RiskProfile) string {
	if g.rnd.Float64() < risk.DenialRate {
		return g.choice([]string{"19", "20", "21", "22"})
	}
	return g.choice([]string{"1", "2", "3", "4"})
}

// buildClaim assembles one claim against a random member/provider pair,
// allocating the billed amount proportionally across service lines. The
// final line absorbs the remainder; rounding at each step means cumulative
// drift against the billed total is possible and accepted.
func (g *Generator) buildClaim(risk models.RiskProfile) *models.Claim {
	members := g.ctx.Members()
	providers := g.ctx.Providers()

	member := members[g.rnd.Intn(len(members))]
	provider := providers[g.rnd.Intn(len(providers))]

	enrollment, ok := g.ctx.EnrollmentForMember(member.ID)
	if !ok {
		enrollment = g.NewEnrollment(member)
	}

	claim := &models.Claim{
		ID:           g.generateID("CLM"+g.now.Format("2006"), 6),
		MemberID:     member.ID,
		ProviderID:   provider.ID,
		EnrollmentID: enrollment.ID,
		ServiceDate:  g.serviceDateFor(enrollment),
		BilledAmount: g.billedAmount(risk),
		ERVisit:      g.rnd.Float64() < risk.ERVisitRate,
		Diagnoses:    g.selectDiagnoses(risk),
	}
	claim.StatusCode = g.claimStatus(risk)

	numLines := g.serviceLineCount(risk)
	remaining := claim.BilledAmount
	for lineNum := 1; lineNum <= numLines; lineNum++ {
		var amount float64
		if lineNum == numLines {
			amount = utils.RoundCents(remaining)
		} else {
			amount = utils.RoundCents(remaining * g.uniform(0.2, 0.4))
		}
		remaining -= amount

		claim.ServiceLines = append(claim.ServiceLines, models.ServiceLine{
			LineNumber:     lineNum,
			ProcedureCode:  g.procedureCode(risk, claim.ERVisit),
			Modifier:       g.choice(serviceLineModifiers),
			PlaceOfService: g.placeOfServiceCode(risk, claim.ERVisit),
			Amount:         amount,
			Units:          1,
			ServiceDate:    claim.ServiceDate,
			DiagnosisCode:  claim.Diagnoses[0].Code,
		})
	}

	g.ctx.AddClaim(claim)
	return claim
}

// Generate837 produces one claims interchange. A missing member or provider
// population is resolved by generating defaults first (see
// EnsureEnrollmentPopulation / EnsureProviderPopulation).
func (g *Generator) Generate837(opts Options) (*Document, error) {
	if err := g.EnsureEnrollmentPopulation(defaultMemberPopulation); err != nil {
		return nil, err
	}
	g.EnsureProviderPopulation(defaultProviderPopulation)

	risk := models.Risk(opts.RiskProfile).Merge(opts.RiskOverride)
	count := g.volumes.Sample(models.BusinessSize(opts.BusinessSize).Claims, opts.Count)
	g.logger.WithField("risk_profile", risk.Name).Infof("Generating %d claims...", count)

	now := g.now
	segments, env := g.openInterchange(constants.Transaction837, now)

	stIndex := len(segments)
	segments = append(segments, stSegment(constants.Transaction837))

	segments = append(segments, fmt.Sprintf("BHT*0019*00*%s*%s*%s*CH~",
		"REF"+g.digits(9), now.Format("20060102"), now.Format("150405")))

	// Submitter and receiver identification
	providers := g.ctx.Providers()
	segments = append(segments, fmt.Sprintf("NM1*41*2*PROVIDER BILLING*****46*%s~", providers[0].ID))
	segments = append(segments, "NM1*40*2*INSURANCE COMPANY*****46*PAYER123~")

	doc := &Document{TransactionType: constants.Transaction837, Envelope: env}

	for i := 0; i < count; i++ {
		if i > 0 && i%100 == 0 {
			g.logger.Infof("Generated %d claims so far...", i)
		}

		claim := g.buildClaim(risk)
		cc, bad := g.corrupt837(claim, opts.InvalidRate)
		doc.TotalRecords++
		if bad {
			doc.InvalidRecords++
		}

		segments = append(segments, g.claimSegments(i, claim, cc)...)
	}

	doc.Segments = g.closeInterchange(segments, stIndex, env)

	if err := g.maybeWrite(doc, opts); err != nil {
		return nil, err
	}
	g.logger.Infof("Successfully generated EDI 837 data with %d claims", count)
	return doc, nil
}

// claimSegments emits one HL claim group: hierarchy marker, provider and
// member identification, the claim itself, service date, diagnoses and the
// LX/SV1/REF/DTP run per service line.
func (g *Generator) claimSegments(index int, claim *models.Claim, cc claimCorruption) []string {
	member, _ := g.ctx.Member(claim.MemberID)
	provider, _ := g.ctx.Provider(claim.ProviderID)

	segments := make([]string, 0, 12+4*len(claim.ServiceLines))

	// Hierarchy level and parent are sequential; level 1 has no parent.
	parent := ""
	if index > 0 {
		parent = fmt.Sprintf("%d", index)
	}
	segments = append(segments, fmt.Sprintf("HL*%d*%s*22*1~", index+1, parent))

	npi := provider.NPI
	if cc.npiOverride != "" {
		npi = cc.npiOverride
	}

	segments = append(segments, fmt.Sprintf("PRV*BI*PXC*%s~", provider.Taxonomy))
	segments = append(segments, fmt.Sprintf("NM1*85*2*%s*%s***XX*%s~", provider.LastName, provider.FirstName, npi))
	segments = append(segments, fmt.Sprintf("REF*EI*%s~", provider.TaxID))
	segments = append(segments, fmt.Sprintf("N3*%s~", provider.Street))
	segments = append(segments, fmt.Sprintf("N4*%s*%s*%s~", provider.City, provider.State, provider.Zip))

	segments = append(segments, fmt.Sprintf("NM1*IL*1*%s*%s***MI*%s~", member.LastName, member.FirstName, member.ID))
	dob := ""
	if member.DOB != nil {
		dob = member.DOB.Format("20060102")
	}
	segments = append(segments, fmt.Sprintf("DMG*D8*%s*%s~", dob, member.Gender))

	segments = append(segments, fmt.Sprintf("CLM*%s*%.2f***%s:%s*Y*A*Y*Y~",
		claim.ID, claim.BilledAmount,
		g.choice([]string{"A", "B", "C"}), g.choice(serviceLineModifiers)))

	segments = append(segments, fmt.Sprintf("DTP*472*D8*%s~", claim.ServiceDate.Format("20060102")))

	for _, diag := range claim.Diagnoses {
		segments = append(segments, fmt.Sprintf("HI*ABK:%s~", diag.Code))
	}

	for _, line := range claim.ServiceLines {
		segments = append(segments, fmt.Sprintf("LX*%d~", line.LineNumber))

		proc := "HC:" + line.ProcedureCode
		if line.Modifier != "" {
			proc += ":" + line.Modifier
		}
		segments = append(segments, fmt.Sprintf("SV1*%s*%.2f*UN*1***1~", proc, line.Amount))
		segments = append(segments, fmt.Sprintf("REF*6R*%s~", line.PlaceOfService))
		segments = append(segments, fmt.Sprintf("DTP*472*D8*%s~", line.ServiceDate.Format("20060102")))
	}

	return segments
}
