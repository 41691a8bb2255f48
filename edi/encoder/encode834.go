package encoder

import (
	"fmt"

	"github.com/claimstream/edi-fixtures/edi/constants"
	"github.com/claimstream/edi-fixtures/edi/models"
)

// memberRecord pairs a member with its enrollment for the duration of one
// 834 run.
type memberRecord struct {
	member     *models.Member
	enrollment *models.Enrollment
	issue      Issue
}

// buildMemberBatch constructs and registers count member/enrollment pairs,
// applying invalid-data injection after construction.
func (g *Generator) buildMemberBatch(count int, invalidRate float64) ([]memberRecord, int) {
	records := make([]memberRecord, 0, count)
	invalid := 0
	for i := 0; i < count; i++ {
		m := g.NewMember()
		e := g.NewEnrollment(m)
		rec := memberRecord{member: m, enrollment: e}
		if issue, bad := g.corrupt834(m, e, invalidRate); bad {
			rec.issue = issue
			invalid++
		}
		records = append(records, rec)
	}
	return records, invalid
}

// Generate834 produces one enrollment interchange. Members are generated in
// fixed-size batches purely to bound memory and pace log output; batch
// boundaries are not observable in the stream.
func (g *Generator) Generate834(opts Options) (*Document, error) {
	count := g.volumes.Sample(models.BusinessSize(opts.BusinessSize).Enrollment, opts.Count)
	g.logger.Infof("Generating EDI 834 data for %d members...", count)

	now := g.now
	segments, env := g.openInterchange(constants.Transaction834, now)

	stIndex := len(segments)
	segments = append(segments, stSegment(constants.Transaction834))

	segments = append(segments, fmt.Sprintf("BGN*00*%s*%s*%s**%s~",
		"REF"+g.digits(9), now.Format("20060102"), now.Format("150405"),
		g.choice([]string{"2", "4"})))

	// Sponsor and payer identification
	segments = append(segments, fmt.Sprintf("N1*P5*%s*FI*%s~", "SPONSOR_NAME", g.generateID("TAX", 9)))
	segments = append(segments, fmt.Sprintf("N1*IN*%s*FI*%s~", "PAYER_NAME", g.generateID("TAX", 9)))

	doc := &Document{TransactionType: constants.Transaction834, Envelope: env}

	for batchStart := 0; batchStart < count; batchStart += g.batchSize {
		batchEnd := batchStart + g.batchSize
		if batchEnd > count {
			batchEnd = count
		}
		g.logger.Infof("Processing members %d to %d...", batchStart+1, batchEnd)

		records, invalid := g.buildMemberBatch(batchEnd-batchStart, opts.InvalidRate)
		doc.TotalRecords += len(records)
		doc.InvalidRecords += invalid

		for _, rec := range records {
			segments = append(segments, g.memberSegments(rec)...)
		}
	}

	doc.Segments = g.closeInterchange(segments, stIndex, env)

	if err := g.maybeWrite(doc, opts); err != nil {
		return nil, err
	}
	g.logger.Infof("Successfully generated EDI 834 data for %d members", count)
	return doc, nil
}

// memberSegments emits the per-member segment run: INS, REFs, name, contact,
// address, demographics, plan and coverage dates. Terminated members get a
// DTP-357 end date and an INS continuation carrying the termination reason.
func (g *Generator) memberSegments(rec memberRecord) []string {
	m := rec.member
	e := rec.enrollment

	segments := make([]string, 0, 12)

	segments = append(segments, fmt.Sprintf("INS*Y*18*030*%s*%s***FT*Y~", m.CoverageStatus, m.MedicarePlan))
	segments = append(segments, fmt.Sprintf("REF*0F*%s~", m.ID))
	segments = append(segments, fmt.Sprintf("REF*38*%s~", m.PolicyNumber))
	segments = append(segments, fmt.Sprintf("REF*SY*%s~", m.SSN))
	segments = append(segments, fmt.Sprintf("NM1*IL*1*%s*%s***MI*%s~", m.LastName, m.FirstName, m.ID))
	segments = append(segments, fmt.Sprintf("PER*IP**HP*%s*EM*%s~", m.Phone, m.Email))
	segments = append(segments, fmt.Sprintf("N3*%s~", m.Street))
	segments = append(segments, fmt.Sprintf("N4*%s*%s*%s*US~", m.City, m.State, m.Zip))

	dob := ""
	if m.DOB != nil {
		dob = m.DOB.Format("20060102")
	}
	segments = append(segments, fmt.Sprintf("DMG*D8*%s*%s~", dob, m.Gender))

	segments = append(segments, fmt.Sprintf("HD*030*HLT*%s*%s*%s~", m.Plan.Type, m.Plan.ID, m.Plan.Name))
	segments = append(segments, fmt.Sprintf("DTP*356*D8*%s~", e.StartDate.Format("20060102")))

	if m.CoverageStatus == models.StatusTerminated && e.EndDate != nil {
		segments = append(segments, fmt.Sprintf("DTP*357*D8*%s~", e.EndDate.Format("20060102")))
		segments = append(segments, fmt.Sprintf("INS***%s~", e.TerminationReason))
	}

	return segments
}
