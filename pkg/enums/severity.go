package enums

// Severity is the visual weight a status badge is rendered with.
type Severity string

const (
	SeverityPending Severity = "pending"
	SeveritySuccess Severity = "success"
	SeverityDanger  Severity = "danger"
	SeverityInfo    Severity = "info"
	SeverityNeutral Severity = "neutral"
)

// String implements fmt.Stringer.
func (s Severity) String() string {
	return string(s)
}
