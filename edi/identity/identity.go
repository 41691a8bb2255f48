// Package identity supplies the synthetic personal and business field values
// used when building domain entities. Values are random but realistic; no
// real identities are ever used.
package identity

import (
	"fmt"
	"math/rand"
	"strings"

	randomdata "github.com/Pallinder/go-randomdata"
)

// Reseed routes all identity draws through rnd. go-randomdata holds a single
// package-level source, so the most recent call wins; each generator reseeds
// at construction to keep seeded output reproducible.
func Reseed(rnd *rand.Rand) {
	randomdata.CustomRand(rnd)
}

type Person struct {
	FirstName string
	LastName  string
	Phone     string
	Email     string
}

type Address struct {
	Street string
	City   string
	State  string
	Zip    string
}

// Provider is the identity collaborator consumed by the entity builders.
type Provider interface {
	Person() Person
	Address() Address
}

// Synthetic implements Provider on top of go-randomdata.
type Synthetic struct{}

func (Synthetic) Person() Person {
	// randomdata resolves RandomGender (and Email, which uses it) against
	// its unseeded global source, so the gender pick and the address are
	// built from seeded draws instead.
	gender := randomdata.Male
	if randomdata.Boolean() {
		gender = randomdata.Female
	}
	first := randomdata.FirstName(gender)
	last := randomdata.LastName()
	return Person{
		FirstName: first,
		LastName:  last,
		Phone: fmt.Sprintf("(%s) %s-%s",
			randomdata.StringNumberExt(1, "", 3),
			randomdata.StringNumberExt(1, "", 3),
			randomdata.StringNumberExt(1, "", 4)),
		Email: strings.ToLower(first+last) + randomdata.StringNumberExt(1, "", 3) + "@example.com",
	}
}

func (Synthetic) Address() Address {
	return Address{
		Street: fmt.Sprintf("%s %s", randomdata.StringNumberExt(1, "", 4), randomdata.Street()),
		City:   randomdata.City(),
		State:  randomdata.State(randomdata.Small),
		Zip:    randomdata.PostalCode("US"),
	}
}
