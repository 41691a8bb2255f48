// Package encoder turns domain entities into X12-style segment streams for
// the 834, 835 and 837 transaction sets, plus a CSV companion rendition of
// the same entities.
package encoder

import (
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/claimstream/edi-fixtures/edi/identity"
	"github.com/claimstream/edi-fixtures/edi/models"
	"github.com/claimstream/edi-fixtures/edi/registry"
	"github.com/claimstream/edi-fixtures/edi/sampler"
	"github.com/claimstream/edi-fixtures/edi/utils"
)

// Defaults applied when the registry is missing a prerequisite population.
const (
	defaultMemberPopulation   = 1000
	defaultProviderPopulation = 100
)

// Generator emits segment streams for one transaction type at a time. All
// randomness flows through the injected source, including the identity
// draws, so a seeded source yields a reproducible fixture. Date windows are
// anchored to the clock captured at construction for the same reason.
type Generator struct {
	ctx     *registry.Context
	ids     identity.Provider
	rnd     *rand.Rand
	volumes *sampler.Sampler
	logger  logrus.FieldLogger
	now     time.Time

	senderID   string
	receiverID string
	batchSize  int
}

func New(ctx *registry.Context, ids identity.Provider, rnd *rand.Rand, logger logrus.FieldLogger) *Generator {
	identity.Reseed(rnd)
	return &Generator{
		ctx:        ctx,
		ids:        ids,
		rnd:        rnd,
		volumes:    sampler.New(rnd),
		logger:     logger,
		now:        time.Now(),
		senderID:   utils.FromEnv("EDI_SENDER_ID", "SENDERID"),
		receiverID: utils.FromEnv("EDI_RECEIVER_ID", "RECEIVERID"),
		batchSize:  utils.GetEnvInt("EDI_BATCH_SIZE", 1000),
	}
}

// Context exposes the entity registry backing this generator.
func (g *Generator) Context() *registry.Context { return g.ctx }

// Options control a single generation run.
type Options struct {
	// Count bypasses volume sampling when non-nil.
	Count *int
	// BusinessSize selects the volume profile (small, medium, large) used
	// when Count is nil.
	BusinessSize string
	// InvalidRate is the per-record probability of a deliberate data issue.
	InvalidRate float64
	// RiskProfile names the base profile for 837 generation.
	RiskProfile string
	// RiskOverride merges field-by-field onto the named base profile.
	RiskOverride *models.RiskOverride
	// OutputFile, when set, receives the rendered document in one write.
	OutputFile string
}

// Document is one generated interchange.
type Document struct {
	TransactionType string
	Envelope        models.Envelope
	Segments        []string
	TotalRecords    int
	InvalidRecords  int
}

// String renders the document with newline-joined segments for readability.
// The segment terminator, not the newline, delimits segments.
func (d *Document) String() string {
	return strings.Join(d.Segments, "\n")
}

// InvalidRate reports the observed fraction of deliberately corrupted
// records.
func (d *Document) InvalidRate() float64 {
	if d.TotalRecords == 0 {
		return 0
	}
	return float64(d.InvalidRecords) / float64(d.TotalRecords)
}

// Write renders the document to path in a single write. The full stream is
// already in memory, so a failure leaves no partial file behind on create.
func (d *Document) Write(path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return errors.Wrapf(err, "failed to create output directory for %s", path)
		}
	}
	if err := os.WriteFile(filepath.Clean(path), []byte(d.String()), 0640); err != nil {
		return errors.Wrapf(err, "failed to write document to %s", path)
	}
	return nil
}

const idDigits = "0123456789"
const idAlnum = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

func (g *Generator) digits(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = idDigits[g.rnd.Intn(len(idDigits))]
	}
	return string(b)
}

func (g *Generator) generateID(prefix string, length int) string {
	return prefix + g.digits(length)
}

// memberID and providerID re-draw on collision so ids stay unique within the
// registry.
func (g *Generator) memberID() string {
	for {
		id := g.generateID("SUB", 8)
		if _, ok := g.ctx.Member(id); !ok {
			return id
		}
	}
}

func (g *Generator) providerID() string {
	for {
		id := g.generateID("PROV", 8)
		if _, ok := g.ctx.Provider(id); !ok {
			return id
		}
	}
}

func (g *Generator) choice(pool []string) string {
	return pool[g.rnd.Intn(len(pool))]
}

// uniform returns a draw in [min,max).
func (g *Generator) uniform(min, max float64) float64 {
	return min + g.rnd.Float64()*(max-min)
}

func (g *Generator) intBetween(min, max int) int {
	return min + g.rnd.Intn(max-min+1)
}

// maybeWrite persists the document when the options name an output file.
func (g *Generator) maybeWrite(doc *Document, opts Options) error {
	if opts.OutputFile == "" {
		return nil
	}
	return doc.Write(opts.OutputFile)
}
