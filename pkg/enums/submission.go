package enums

// SubmissionStatus classifies the outcome of sending a batch to the remote
// system of record.
type SubmissionStatus string

const (
	SubmissionStatusCreated       SubmissionStatus = "created"
	SubmissionStatusAlreadyExists SubmissionStatus = "already_exists"
	SubmissionStatusWarning       SubmissionStatus = "warning"
	SubmissionStatusFailed        SubmissionStatus = "failed"
)

// NoticeSeverity grades a single notice returned by the remote system.
type NoticeSeverity string

const (
	NoticeSeverityWarn  NoticeSeverity = "warn"
	NoticeSeverityError NoticeSeverity = "error"
)
