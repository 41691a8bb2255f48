package decoder

import (
	"strconv"
	"strings"
	"time"
)

// ClaimRecord is the claim header rebuilt from a CLM segment and the
// claim-level segments that follow it.
type ClaimRecord struct {
	ClaimID          string
	BilledAmount     float64
	Status           string
	ClaimType        string
	ServiceDate      *time.Time
	SubmissionDate   time.Time
	ProcedureCode    string
	FrequencyCode    string
	SourceCode       string
	FacilityTypeCode string
	LocationType     string
}

// ProviderRecord is the billing provider attached to a claim group.
type ProviderRecord struct {
	LastName  string
	FirstName string
	NPI       string
	TaxID     string
	Specialty string
	Street    string
	City      string
	State     string
	Zip       string
	Phone     string
	Email     string
}

// MemberRef identifies the patient on a claim group.
type MemberRef struct {
	MemberID  string
	LastName  string
	FirstName string
	Gender    string
	DOB       *time.Time
}

// DiagnosisRecord is one HI diagnosis. The first diagnosis on a claim is
// tagged PRIMARY, the rest SECONDARY.
type DiagnosisRecord struct {
	Code        string
	Description string
	Category    string
	OnsetDate   *time.Time
}

// ServiceLineRecord is one LX/SV1 service line.
type ServiceLineRecord struct {
	ProcedureCode  string
	ModifierCode   string
	PlaceOfService string
	DiagnosisCode  string
	BilledAmount   float64
	Units          int
	ServiceDate    *time.Time
}

// ClaimGroup is one reconstructed HL claim group.
type ClaimGroup struct {
	Claim        *ClaimRecord
	Provider     *ProviderRecord
	Member       *MemberRef
	Diagnoses    []DiagnosisRecord
	ServiceLines []ServiceLineRecord
}

// parseAmount parses a monetary element, defaulting to zero on failure so a
// bad amount degrades a single field rather than the whole record.
func (d *Decoder) parseAmount(value string, seg Segment) float64 {
	if value == "" {
		return 0
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		d.logger.WithError(err).Warnf("unparseable amount in segment %q, defaulting to 0", seg.Raw)
		return 0
	}
	return f
}

// FacilityType maps a facility-type code to the coarse location label stored
// with imported claims.
func FacilityType(code string) string {
	m := map[string]string{
		"11": "OFFICE",
		"12": "HOME",
		"21": "HOSPITAL",
		"22": "HOSPITAL_OUTPATIENT",
		"23": "EMERGENCY",
		"24": "AMBULATORY_SURGERY",
	}
	if v, ok := m[code]; ok {
		return v
	}
	return "OFFICE"
}

// state837 is the open-entity context for one HL claim group. Provider and
// member detail segments precede CLM in the stream, so until a claim is open
// they are buffered in arrival order and only resolved once CLM establishes
// claim context.
type state837 struct {
	claim       *ClaimRecord
	provider    *ProviderRecord
	member      *MemberRef
	diagnoses   []DiagnosisRecord
	lines       []ServiceLineRecord
	currentLine *ServiceLineRecord

	pending []Segment

	// PRV precedes the NM1 that establishes the provider, so the taxonomy is
	// held here until the provider record exists.
	specialty string
}

func (s *state837) reset() {
	*s = state837{}
}

// Decode837 rebuilds claim groups from a claims segment stream. HL is the
// group boundary; everything between two HLs describes one claim.
func (d *Decoder) Decode837(segments []Segment) []*ClaimGroup {
	var groups []*ClaimGroup
	var st state837

	flushLine := func() {
		if st.currentLine != nil {
			st.lines = append(st.lines, *st.currentLine)
			st.currentLine = nil
		}
	}
	flushGroup := func() {
		flushLine()
		if st.claim != nil {
			groups = append(groups, &ClaimGroup{
				Claim:        st.claim,
				Provider:     st.provider,
				Member:       st.member,
				Diagnoses:    st.diagnoses,
				ServiceLines: st.lines,
			})
		}
		st.reset()
	}

	for _, seg := range segments {
		switch seg.ID {
		case "HL":
			flushGroup()

		case "CLM":
			st.claim = &ClaimRecord{
				ClaimID:          seg.Element(0),
				BilledAmount:     d.parseAmount(seg.Element(1), seg),
				Status:           "RECEIVED",
				ClaimType:        "MEDICAL",
				SubmissionDate:   time.Now(),
				FrequencyCode:    firstOr(seg.Element(5), "1"),
				SourceCode:       firstCharOr(seg.Element(6), "01"),
				FacilityTypeCode: firstOr(seg.Element(8), "11"),
			}
			st.claim.LocationType = FacilityType(st.claim.FacilityTypeCode)
			d.drainPending(&st)

		case "NM1", "PRV", "REF", "DMG", "N3", "N4", "PER":
			if st.claim == nil {
				st.pending = append(st.pending, seg)
				continue
			}
			d.applyDetail(&st, seg)

		case "HI":
			if st.claim == nil {
				d.dropOrphan(seg)
				continue
			}
			for _, el := range seg.Elements {
				switch {
				case strings.HasPrefix(el, "ABK:"):
					code := strings.TrimPrefix(el, "ABK:")
					category := "PRIMARY"
					if len(st.diagnoses) > 0 {
						category = "SECONDARY"
					}
					st.diagnoses = append(st.diagnoses, DiagnosisRecord{
						Code:        code,
						Description: "Diagnosis " + code,
						Category:    category,
					})
				case strings.HasPrefix(el, "ABF:"):
					if n := len(st.diagnoses); n > 0 {
						st.diagnoses[n-1].OnsetDate = d.parseDate(strings.TrimPrefix(el, "ABF:"), seg)
					}
				case strings.HasPrefix(el, "ABJ:"):
					if n := len(st.diagnoses); n > 0 {
						st.diagnoses[n-1].Description = strings.TrimPrefix(el, "ABJ:")
					}
				}
			}

		case "DTP":
			if st.claim == nil || seg.Element(0) != "472" || seg.Element(1) != "D8" {
				continue
			}
			date := d.parseDate(seg.Element(2), seg)
			if st.currentLine != nil {
				st.currentLine.ServiceDate = date
			} else {
				st.claim.ServiceDate = date
			}

		case "LX":
			if st.claim == nil {
				d.dropOrphan(seg)
				continue
			}
			flushLine()
			line := ServiceLineRecord{
				Units:          1,
				PlaceOfService: "11",
				ServiceDate:    st.claim.ServiceDate,
			}
			if len(st.diagnoses) > 0 {
				line.DiagnosisCode = st.diagnoses[0].Code
			}
			st.currentLine = &line

		case "SV1":
			if st.claim == nil || st.currentLine == nil {
				d.dropOrphan(seg)
				continue
			}
			proc := strings.TrimPrefix(seg.Element(0), "HC:")
			if idx := strings.Index(proc, ":"); idx >= 0 {
				st.currentLine.ModifierCode = proc[idx+1:]
				proc = proc[:idx]
			}
			st.currentLine.ProcedureCode = proc
			st.currentLine.BilledAmount = d.parseAmount(seg.Element(1), seg)
			if units, err := strconv.Atoi(seg.Element(3)); err == nil && units > 0 {
				st.currentLine.Units = units
			}
			if st.claim.ProcedureCode == "" {
				st.claim.ProcedureCode = proc
			}
		}
	}

	flushGroup()
	return groups
}

// drainPending replays the detail segments buffered before CLM opened the
// claim context, preserving their arrival order so the NM1 that establishes
// the provider or member precedes the segments that mutate it.
func (d *Decoder) drainPending(st *state837) {
	pending := st.pending
	st.pending = nil
	for _, seg := range pending {
		d.applyDetail(st, seg)
	}
}

// applyDetail handles the provider/member detail segments of a claim group.
func (d *Decoder) applyDetail(st *state837, seg Segment) {
	switch seg.ID {
	case "NM1":
		switch seg.Element(0) {
		case "85":
			st.provider = &ProviderRecord{
				LastName:  seg.Element(2),
				FirstName: seg.Element(3),
				NPI:       seg.Element(7),
				Specialty: st.specialty,
			}
		case "IL":
			st.member = &MemberRef{
				LastName:  seg.Element(2),
				FirstName: seg.Element(3),
				MemberID:  seg.Element(7),
			}
		}

	case "PRV":
		specialty := strings.ReplaceAll(seg.Element(2), "^", " ")
		if st.provider != nil {
			st.provider.Specialty = specialty
		} else {
			st.specialty = specialty
		}

	case "REF":
		switch {
		case st.currentLine != nil && seg.Element(0) == "6R":
			st.currentLine.PlaceOfService = seg.Element(1)
		case st.provider != nil && seg.Element(0) == "EI":
			st.provider.TaxID = seg.Element(1)
		}

	case "DMG":
		if st.member == nil {
			return
		}
		if seg.Element(0) == "D8" && seg.Element(1) != "" {
			st.member.DOB = d.parseDate(seg.Element(1), seg)
		}
		st.member.Gender = seg.Element(2)

	case "N3":
		if st.provider != nil {
			st.provider.Street = seg.Element(0)
		}

	case "N4":
		if st.provider != nil {
			st.provider.City = seg.Element(0)
			st.provider.State = seg.Element(1)
			st.provider.Zip = seg.Element(2)
		}

	case "PER":
		if st.provider == nil {
			return
		}
		for i := 0; i+1 < len(seg.Elements); i += 2 {
			switch seg.Element(i) {
			case "TE":
				st.provider.Phone = seg.Element(i + 1)
			case "EM":
				st.provider.Email = seg.Element(i + 1)
			}
		}
	}
}

func firstOr(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}

func firstCharOr(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value[:1]
}
