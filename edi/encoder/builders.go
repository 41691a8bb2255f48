package encoder

import (
	"time"

	"github.com/claimstream/edi-fixtures/edi/models"
)

// Coverage statuses with their fixed relative frequencies (out of 100).
var coverageStatusWeights = []struct {
	status string
	weight int
}{
	{models.StatusActive, 85},
	{models.StatusPending, 5},
	{models.StatusTerminated, 5},
	{models.StatusSuspended, 1},
	{models.StatusCOBRA, 1},
	{models.StatusGraduated, 1},
	{models.StatusVoluntaryOptOut, 1},
	{models.StatusDeceased, 1},
}

var terminationReasonCodes = []string{"07", "28", "43", "33", "25"}

var medicarePlanCodes = []string{"A", "B", "C", "E"}

func (g *Generator) coverageStatus() string {
	total := 0
	for _, w := range coverageStatusWeights {
		total += w.weight
	}
	draw := g.rnd.Intn(total)
	for _, w := range coverageStatusWeights {
		if draw < w.weight {
			return w.status
		}
		draw -= w.weight
	}
	return models.StatusActive
}

// dateBetween draws a date uniformly from [start, end]. Falls back to end
// when the window is empty or inverted.
func (g *Generator) dateBetween(start, end time.Time) time.Time {
	if !start.Before(end) {
		return end
	}
	span := end.Sub(start)
	return start.Add(time.Duration(g.rnd.Int63n(int64(span))))
}

// NewMember builds a member with synthetic identity fields and registers it.
func (g *Generator) NewMember() *models.Member {
	person := g.ids.Person()
	addr := g.ids.Address()
	now := g.now

	dob := g.dateBetween(now.AddDate(-90, 0, 0), now.AddDate(-18, 0, 0))

	m := &models.Member{
		ID:             g.memberID(),
		FirstName:      person.FirstName,
		LastName:       person.LastName,
		Gender:         g.choice([]string{"M", "F"}),
		DOB:            &dob,
		Phone:          person.Phone,
		Email:          person.Email,
		Street:         addr.Street,
		City:           addr.City,
		State:          addr.State,
		Zip:            addr.Zip,
		SSN:            g.digits(3) + "-" + g.digits(2) + "-" + g.digits(4),
		PolicyNumber:   g.generateID("POL", 8),
		Plan:           HealthPlans[g.rnd.Intn(len(HealthPlans))],
		CoverageStatus: g.coverageStatus(),
	}

	if g.rnd.Float64() < 0.3 {
		m.MedicarePlan = g.choice(medicarePlanCodes)
	}

	if m.CoverageStatus == models.StatusTerminated {
		m.TerminationReason = g.choice(terminationReasonCodes)
		end := g.dateBetween(now.AddDate(-1, 0, 0), now)
		m.TerminationDate = &end
	}

	g.ctx.AddMember(m)
	return m
}

// NewProvider builds a provider with synthetic identity fields and registers
// it.
func (g *Generator) NewProvider() *models.Provider {
	person := g.ids.Person()
	addr := g.ids.Address()

	p := &models.Provider{
		ID:        g.providerID(),
		FirstName: person.FirstName,
		LastName:  person.LastName,
		NPI:       g.digits(10),
		TaxID:     g.generateID("TAX", 9),
		Street:    addr.Street,
		City:      addr.City,
		State:     addr.State,
		Zip:       addr.Zip,
		Taxonomy:  g.choice(providerTaxonomies),
		Specialty: g.choice(providerSpecialties),
		Phone:     person.Phone,
		Email:     person.Email,
		InNetwork: g.rnd.Intn(2) == 0,
	}

	g.ctx.AddProvider(p)
	return p
}

// NewEnrollment builds the enrollment backing a member's coverage. A
// terminated member yields a terminated enrollment with the mapped
// termination reason; unmapped reason codes pass through verbatim.
func (g *Generator) NewEnrollment(m *models.Member) *models.Enrollment {
	now := g.now

	e := &models.Enrollment{
		ID:               g.generateID("ENR", 8),
		MemberID:         m.ID,
		PlanID:           m.Plan.ID,
		SponsorID:        g.generateID("SPON", 6),
		StartDate:        g.dateBetween(now.AddDate(-2, 0, 0), now),
		Status:           "ACTIVE",
		RelationshipCode: "18", // self
		TransactionType:  g.choice([]string{"021", "001", "024", "030"}),
		ActionCode:       g.choice([]string{"2", "4"}),
		InsuranceLine:    "HLT",
	}

	if m.CoverageStatus == models.StatusTerminated {
		e.Status = "TERMINATED"
		e.EndDate = m.TerminationDate
		if reason, ok := models.TerminationReasons[m.TerminationReason]; ok {
			e.TerminationReason = reason
		} else {
			e.TerminationReason = m.TerminationReason
		}
	}

	g.ctx.AddEnrollment(e)
	return e
}

// serviceDateFor samples a service date inside the enrollment window,
// clipped to today. An invalid window falls back to today.
func (g *Generator) serviceDateFor(e *models.Enrollment) time.Time {
	today := g.now

	max := today
	if e.EndDate != nil && e.EndDate.After(e.StartDate) && e.EndDate.Before(today) {
		max = *e.EndDate
	}

	if e.StartDate.Before(max) {
		return g.dateBetween(e.StartDate, max)
	}
	return today
}
