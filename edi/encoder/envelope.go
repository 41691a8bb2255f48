package encoder

import (
	"fmt"
	"time"

	"github.com/claimstream/edi-fixtures/edi/constants"
	"github.com/claimstream/edi-fixtures/edi/models"
)

// Functional group code and implementation version per transaction type.
var groupCodes = map[string]struct {
	code    string
	version string
}{
	constants.Transaction834: {constants.GroupCodeBenefitEnrollment, constants.Version834},
	constants.Transaction837: {constants.GroupCodeHealthcareClaim, constants.Version837},
	constants.Transaction835: {constants.GroupCodeHealthcarePayment, constants.Version835},
}

// TransactionVersion returns the implementation guide version used for both
// the GS and ST segments of the transaction type.
func TransactionVersion(transactionType string) string {
	return groupCodes[transactionType].version
}

// openInterchange emits the ISA and GS segments and records the freshly
// issued control numbers. Control numbers are random nine-digit tokens;
// uniqueness across interchanges is probabilistic, there is no reuse check.
func (g *Generator) openInterchange(transactionType string, now time.Time) ([]string, models.Envelope) {
	env := models.Envelope{
		ISAControlNumber: g.digits(9),
		GSControlNumber:  "1",
		SenderID:         g.senderID,
		ReceiverID:       g.receiverID,
		Timestamp:        now,
	}

	gc := groupCodes[transactionType]

	isa := fmt.Sprintf("ISA*00*%15s*00*%15s*ZZ*%-15s*ZZ*%-15s*%s*%s*U*00401*%s*0*P*:~",
		"", "",
		env.SenderID, env.ReceiverID,
		now.Format("060102"), now.Format("1504"),
		env.ISAControlNumber)

	gs := fmt.Sprintf("GS*%s*%s*%s*%s*%s*%s*X*%s~",
		gc.code, env.SenderID, env.ReceiverID,
		now.Format("20060102"), now.Format("150405"),
		env.GSControlNumber, gc.version)

	return []string{isa, gs}, env
}

// stSegment opens the transaction set. The caller records the index of this
// segment so the SE count can be computed at close.
func stSegment(transactionType string) string {
	return fmt.Sprintf("ST*%s*0001*%s~", transactionType, TransactionVersion(transactionType))
}

// closeInterchange appends the SE/GE/IEA trailer to the segments built so
// far. The SE count is the exact number of segments from ST through SE
// inclusive; the IEA echoes the control number issued at open.
func (g *Generator) closeInterchange(segments []string, stIndex int, env models.Envelope) []string {
	seCount := (len(segments) - stIndex) + 1
	segments = append(segments, fmt.Sprintf("SE*%d*0001~", seCount))
	segments = append(segments, "GE*1*1~")
	segments = append(segments, fmt.Sprintf("IEA*1*%s~", env.ISAControlNumber))
	return segments
}
