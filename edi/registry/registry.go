// Package registry holds the entity context shared between generation runs.
// A Context owns the maps that cross-reference members, providers,
// enrollments and claims (for example, locating a member's enrollment when a
// claim is built against them). It is constructed once per generation or
// parsing run and passed explicitly, so tests stay isolated.
package registry

import (
	"sync"

	"github.com/claimstream/edi-fixtures/edi/models"
)

// Context is safe for concurrent use. Generation today is single-threaded,
// but batched generation may be parallelized, so all access goes through the
// mutex to preserve global uniqueness of ids.
type Context struct {
	mu          sync.RWMutex
	members     map[string]*models.Member
	providers   map[string]*models.Provider
	enrollments map[string]*models.Enrollment
	claims      map[string]*models.Claim

	// Insertion order per entity type. The slice views feed seeded random
	// sampling, so they cannot depend on map iteration order.
	memberOrder     []string
	providerOrder   []string
	enrollmentOrder []string
	claimOrder      []string
}

func NewContext() *Context {
	c := &Context{}
	c.reset()
	return c
}

func (c *Context) reset() {
	c.members = make(map[string]*models.Member)
	c.providers = make(map[string]*models.Provider)
	c.enrollments = make(map[string]*models.Enrollment)
	c.claims = make(map[string]*models.Claim)
	c.memberOrder = nil
	c.providerOrder = nil
	c.enrollmentOrder = nil
	c.claimOrder = nil
}

// Reset drops every registered entity. Intended for test isolation between
// generation runs.
func (c *Context) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reset()
}

func (c *Context) AddMember(m *models.Member) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.members[m.ID]; !ok {
		c.memberOrder = append(c.memberOrder, m.ID)
	}
	c.members[m.ID] = m
}

func (c *Context) AddProvider(p *models.Provider) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.providers[p.ID]; !ok {
		c.providerOrder = append(c.providerOrder, p.ID)
	}
	c.providers[p.ID] = p
}

func (c *Context) AddEnrollment(e *models.Enrollment) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.enrollments[e.ID]; !ok {
		c.enrollmentOrder = append(c.enrollmentOrder, e.ID)
	}
	c.enrollments[e.ID] = e
}

func (c *Context) AddClaim(cl *models.Claim) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.claims[cl.ID]; !ok {
		c.claimOrder = append(c.claimOrder, cl.ID)
	}
	c.claims[cl.ID] = cl
}

func (c *Context) Member(id string) (*models.Member, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	m, ok := c.members[id]
	return m, ok
}

func (c *Context) Provider(id string) (*models.Provider, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.providers[id]
	return p, ok
}

func (c *Context) Claim(id string) (*models.Claim, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	cl, ok := c.claims[id]
	return cl, ok
}

// EnrollmentForMember returns the earliest-registered enrollment for the
// member.
func (c *Context) EnrollmentForMember(memberID string) (*models.Enrollment, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, id := range c.enrollmentOrder {
		if e := c.enrollments[id]; e.MemberID == memberID {
			return e, true
		}
	}
	return nil, false
}

// Members returns the registered members in insertion order.
func (c *Context) Members() []*models.Member {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*models.Member, 0, len(c.memberOrder))
	for _, id := range c.memberOrder {
		out = append(out, c.members[id])
	}
	return out
}

// Providers returns the registered providers in insertion order.
func (c *Context) Providers() []*models.Provider {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*models.Provider, 0, len(c.providerOrder))
	for _, id := range c.providerOrder {
		out = append(out, c.providers[id])
	}
	return out
}

// Claims returns the registered claims in insertion order.
func (c *Context) Claims() []*models.Claim {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*models.Claim, 0, len(c.claimOrder))
	for _, id := range c.claimOrder {
		out = append(out, c.claims[id])
	}
	return out
}

func (c *Context) MemberCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.members)
}

func (c *Context) ProviderCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.providers)
}

func (c *Context) ClaimCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.claims)
}
