package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"

	"github.com/claimstream/edi-fixtures/edi/models"
)

type RegistryTestSuite struct {
	suite.Suite
	ctx *Context
}

func (s *RegistryTestSuite) SetupTest() {
	s.ctx = NewContext()
}

func TestRegistryTestSuite(t *testing.T) {
	suite.Run(t, new(RegistryTestSuite))
}

func (s *RegistryTestSuite) TestAddAndGet() {
	s.ctx.AddMember(&models.Member{ID: "SUB00000001"})
	s.ctx.AddProvider(&models.Provider{ID: "PROV00000001", NPI: "1234567890"})
	s.ctx.AddClaim(&models.Claim{ID: "CLM0001", MemberID: "SUB00000001"})

	m, ok := s.ctx.Member("SUB00000001")
	assert.True(s.T(), ok)
	assert.Equal(s.T(), "SUB00000001", m.ID)

	p, ok := s.ctx.Provider("PROV00000001")
	assert.True(s.T(), ok)
	assert.Equal(s.T(), "1234567890", p.NPI)

	c, ok := s.ctx.Claim("CLM0001")
	assert.True(s.T(), ok)
	assert.Equal(s.T(), "SUB00000001", c.MemberID)

	_, ok = s.ctx.Member("missing")
	assert.False(s.T(), ok)
}

func (s *RegistryTestSuite) TestCounts() {
	assert.Zero(s.T(), s.ctx.MemberCount())

	s.ctx.AddMember(&models.Member{ID: "SUB00000001"})
	s.ctx.AddMember(&models.Member{ID: "SUB00000002"})
	s.ctx.AddMember(&models.Member{ID: "SUB00000002"}) // same id, overwrite
	s.ctx.AddProvider(&models.Provider{ID: "PROV00000001"})

	assert.Equal(s.T(), 2, s.ctx.MemberCount())
	assert.Equal(s.T(), 1, s.ctx.ProviderCount())
	assert.Zero(s.T(), s.ctx.ClaimCount())
	assert.Len(s.T(), s.ctx.Members(), 2)
}

// The slice views feed seeded sampling, so their order must track insertion,
// not map iteration.
func (s *RegistryTestSuite) TestSliceViewsPreserveInsertionOrder() {
	memberIDs := []string{"SUB00000003", "SUB00000001", "SUB00000002"}
	for _, id := range memberIDs {
		s.ctx.AddMember(&models.Member{ID: id})
	}
	claimIDs := []string{"CLM0002", "CLM0003", "CLM0001"}
	for _, id := range claimIDs {
		s.ctx.AddClaim(&models.Claim{ID: id})
	}

	gotMembers := make([]string, 0, len(memberIDs))
	for _, m := range s.ctx.Members() {
		gotMembers = append(gotMembers, m.ID)
	}
	assert.Equal(s.T(), memberIDs, gotMembers)

	gotClaims := make([]string, 0, len(claimIDs))
	for _, c := range s.ctx.Claims() {
		gotClaims = append(gotClaims, c.ID)
	}
	assert.Equal(s.T(), claimIDs, gotClaims)

	// Overwriting keeps the original position.
	s.ctx.AddMember(&models.Member{ID: "SUB00000003", FirstName: "Replaced"})
	members := s.ctx.Members()
	assert.Equal(s.T(), "SUB00000003", members[0].ID)
	assert.Equal(s.T(), "Replaced", members[0].FirstName)
	assert.Len(s.T(), members, 3)
}

func (s *RegistryTestSuite) TestEnrollmentForMember() {
	s.ctx.AddEnrollment(&models.Enrollment{ID: "ENR0001", MemberID: "SUB00000001"})
	s.ctx.AddEnrollment(&models.Enrollment{ID: "ENR0002", MemberID: "SUB00000002"})

	e, ok := s.ctx.EnrollmentForMember("SUB00000002")
	assert.True(s.T(), ok)
	assert.Equal(s.T(), "ENR0002", e.ID)

	_, ok = s.ctx.EnrollmentForMember("SUB00000003")
	assert.False(s.T(), ok)
}

func (s *RegistryTestSuite) TestResetDropsEverything() {
	s.ctx.AddMember(&models.Member{ID: "SUB00000001"})
	s.ctx.AddClaim(&models.Claim{ID: "CLM0001"})

	s.ctx.Reset()

	assert.Zero(s.T(), s.ctx.MemberCount())
	assert.Zero(s.T(), s.ctx.ClaimCount())
	_, ok := s.ctx.Claim("CLM0001")
	assert.False(s.T(), ok)
}
