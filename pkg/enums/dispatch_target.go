package enums

// DispatchTarget names an outbound integration.
type DispatchTarget string

const (
	DispatchTargetAttribution  DispatchTarget = "attribution"
	DispatchTargetAdConversion DispatchTarget = "ad_conversion"
	DispatchTargetAccess       DispatchTarget = "access"
)

// String implements fmt.Stringer.
func (d DispatchTarget) String() string {
	return string(d)
}

// DispatchOutcome labels the result of a single delivery attempt.
type DispatchOutcome string

const (
	DispatchOutcomeDelivered    DispatchOutcome = "delivered"
	DispatchOutcomeSkipped      DispatchOutcome = "skipped"
	DispatchOutcomeFailed       DispatchOutcome = "failed"
	DispatchOutcomePrecondition DispatchOutcome = "precondition_failed"
	DispatchOutcomePanicked     DispatchOutcome = "panicked"
)
