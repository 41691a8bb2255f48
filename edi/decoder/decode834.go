package decoder

import (
	"time"

	"github.com/sirupsen/logrus"
)

// Ref is one REF segment captured on a member record.
type Ref struct {
	Type  string
	Value string
}

// MemberRecord is the flattened member/enrollment view rebuilt from an 834
// stream. Date pointers stay nil when the source segment was absent or
// unparseable.
type MemberRecord struct {
	MemberID          string
	LastName          string
	FirstName         string
	MiddleInitial     string
	SSN               string
	PolicyNumber      string
	DOB               *time.Time
	Gender            string
	Street            string
	City              string
	State             string
	Zip               string
	Phone             string
	Email             string
	CoverageStatus    string
	MedicarePlan      string
	PlanID            string
	InsuranceLine     string
	StartDate         *time.Time
	EndDate           *time.Time
	TerminationReason string
	Refs              []Ref
}

// Decoder drives the per-transaction reconstruction engines.
type Decoder struct {
	logger logrus.FieldLogger
}

func New(logger logrus.FieldLogger) *Decoder {
	return &Decoder{logger: logger}
}

const x12DateFormat = "20060102"

// parseDate parses a CCYYMMDD date, returning nil on failure so callers can
// apply skip-and-continue per field.
func (d *Decoder) parseDate(value string, seg Segment) *time.Time {
	t, err := time.Parse(x12DateFormat, value)
	if err != nil {
		d.logger.WithError(err).Warnf("unparseable date in segment %q, skipping field", seg.Raw)
		return nil
	}
	return &t
}

// dropOrphan logs and reports a detail segment that arrived with no open
// record to attach it to.
func (d *Decoder) dropOrphan(seg Segment) {
	d.logger.Warnf("segment %q arrived before any record was opened, dropping", seg.Raw)
}

// Decode834 rebuilds member records from an enrollment segment stream. INS
// opens a member (flushing any member already open); the detail segments that
// follow mutate the open member in place. A continuation INS with an empty
// INS01 carries the termination reason for the member already open.
func (d *Decoder) Decode834(segments []Segment) []*MemberRecord {
	var members []*MemberRecord
	var current *MemberRecord

	flush := func() {
		if current != nil {
			members = append(members, current)
			current = nil
		}
	}

	for _, seg := range segments {
		switch seg.ID {
		case "INS":
			if current != nil && seg.Element(0) == "" {
				current.TerminationReason = seg.Element(2)
				continue
			}
			flush()
			current = &MemberRecord{
				CoverageStatus: seg.Element(3),
				MedicarePlan:   seg.Element(4),
			}

		case "REF":
			if current == nil {
				d.dropOrphan(seg)
				continue
			}
			refType, refValue := seg.Element(0), seg.Element(1)
			current.Refs = append(current.Refs, Ref{Type: refType, Value: refValue})
			switch refType {
			case "0F":
				if current.MemberID == "" {
					current.MemberID = refValue
				}
			case "38":
				current.PolicyNumber = refValue
			case "SY":
				current.SSN = refValue
			}

		case "NM1":
			if seg.Element(0) != "IL" {
				continue
			}
			if current == nil {
				d.dropOrphan(seg)
				continue
			}
			current.LastName = seg.Element(2)
			current.FirstName = seg.Element(3)
			current.MiddleInitial = seg.Element(5)
			if id := seg.Element(7); id != "" {
				current.MemberID = id
			}

		case "DMG":
			if current == nil {
				d.dropOrphan(seg)
				continue
			}
			if seg.Element(0) == "D8" && seg.Element(1) != "" {
				current.DOB = d.parseDate(seg.Element(1), seg)
			}
			current.Gender = seg.Element(2)

		case "N3":
			if current == nil {
				d.dropOrphan(seg)
				continue
			}
			current.Street = seg.Element(0)

		case "N4":
			if current == nil {
				d.dropOrphan(seg)
				continue
			}
			current.City = seg.Element(0)
			current.State = seg.Element(1)
			current.Zip = seg.Element(2)

		case "PER":
			if current == nil {
				d.dropOrphan(seg)
				continue
			}
			// Contact qualifier/value pairs, scanned pairwise from the
			// contact-function code onward.
			for i := 0; i+1 < len(seg.Elements); i += 2 {
				switch seg.Element(i) {
				case "HP":
					current.Phone = seg.Element(i + 1)
				case "EM":
					current.Email = seg.Element(i + 1)
				}
			}

		case "HD":
			if current == nil {
				d.dropOrphan(seg)
				continue
			}
			current.InsuranceLine = seg.Element(1)
			current.PlanID = seg.Element(3)

		case "DTP":
			if current == nil {
				d.dropOrphan(seg)
				continue
			}
			if seg.Element(1) != "D8" {
				continue
			}
			switch seg.Element(0) {
			case "356":
				current.StartDate = d.parseDate(seg.Element(2), seg)
			case "357":
				current.EndDate = d.parseDate(seg.Element(2), seg)
			}
		}
	}

	flush()
	return members
}
