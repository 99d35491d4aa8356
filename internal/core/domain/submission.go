package domain

// AnonymousEmail is the caller identity used when no authenticated session
// is available. An intentional fallback, not an error.
const AnonymousEmail = "anonymous@example.com"

// Identity is the caller's resolved identity, supplied explicitly to the
// controller and submission gateway at construction time.
type Identity struct {
	Email string `json:"email"`
}

// OrAnonymous returns the identity with the anonymous placeholder filled in
// when no email is present.
func (id Identity) OrAnonymous() Identity {
	if id.Email == "" {
		return Identity{Email: AnonymousEmail}
	}
	return id
}

// SubmissionPayload is the flattened, validated session sent to the intake
// backend. Constructed once, sent once, never retried automatically.
type SubmissionPayload struct {
	Email       string `json:"email"`
	Description string `json:"description,omitempty"`
	ServiceName string `json:"serviceName,omitempty"`
	Details     string `json:"details,omitempty"`
	Location    string `json:"location"`
	Address     string `json:"address"`
}

// SubmissionResult is the backend's structured verdict on a submission.
type SubmissionResult struct {
	OK            bool   `json:"ok"`
	ComplaintType string `json:"complaint_type,omitempty"`
	Address       string `json:"address,omitempty"`
	Err           string `json:"error,omitempty"`
}
