package constants

// X12 delimiters. Segments end with the segment terminator; the newline
// between segments in generated files is purely for readability.
const (
	SegmentTerminator = "~"
	ElementSeparator  = "*"
)

// Transaction set identifiers.
const (
	Transaction834 = "834"
	Transaction837 = "837"
	Transaction835 = "835"
)

// Functional group codes per transaction type (GS01).
const (
	GroupCodeBenefitEnrollment = "BE"
	GroupCodeHealthcareClaim   = "HC"
	GroupCodeHealthcarePayment = "HP"
)

// Implementation guide version strings (GS08 / ST03).
const (
	Version834 = "004010X095A1"
	Version837 = "004010X098A1"
	Version835 = "004010X091A1"
)

const ImportInprog = "In-Progress"
const ImportComplete = "Completed"
const ImportFail = "Failed"

// This is set during compilation. See the release pipeline.
var Version = "latest"
