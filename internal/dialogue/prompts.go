package dialogue

import (
	"fmt"

	"github.com/jantavoice/intake/internal/core/domain"
)

// prompts is the per-flow wording of the conversation. The state machine is
// shared; only the phrasing differs between reporting an issue and
// requesting a service.
type prompts struct {
	welcome        string
	primaryInvalid string
	askLocation    string
	askDetails     string
	reset          string
	cancelled      string
	editPrimary    string
	success        string
	failure        string
}

var issuePrompts = prompts{
	welcome:        "Welcome! Please describe the issue you want to report.",
	primaryInvalid: "Please describe the issue you are facing.",
	askLocation:    "Where is the issue located? Type or speak your address, or say 'auto location' for automatic detection.",
	askDetails:     "Address received. Please describe the issue in detail.",
	reset:          "No problem, let's start over. What issue would you like to report?",
	cancelled:      "Report cancelled. To start again, describe your issue.",
	editPrimary:    "Sure! What issue would you like to report?",
	success:        "Issue reported successfully! Redirecting you...",
	failure:        "Failed to report the issue. Try again or say 'restart'.",
}

var servicePrompts = prompts{
	welcome:        "Welcome! Please tell me which service you need.",
	primaryInvalid: "Please specify the service you need.",
	askLocation:    "Where should this service take place? Type or speak your address, or say 'auto location' for automatic detection.",
	askDetails:     "Address received. Please describe your request in detail.",
	reset:          "No problem, let's start over. What service do you need?",
	cancelled:      "Request cancelled. To start again, specify your service.",
	editPrimary:    "Sure! What service do you want to request?",
	success:        "Service requested successfully! Redirecting you...",
	failure:        "Failed to request service. Try again or say 'restart'.",
}

func promptsFor(flow domain.Flow) prompts {
	if flow == domain.FlowService {
		return servicePrompts
	}
	return issuePrompts
}

func (p prompts) confirm(fields domain.Fields) string {
	return fmt.Sprintf(
		"You've requested %q at %q with details: %q. Would you like to submit? (yes or no)",
		fields.Primary, fields.Location, fields.Details,
	)
}

func (p prompts) summary(fields domain.Fields) string {
	if !fields.Complete() {
		return "Provide the request, address and details first to get a summary."
	}
	return fmt.Sprintf(
		"You have requested: %s, at: %s, details: %s",
		fields.Primary, fields.Location, fields.Details,
	)
}

func (p prompts) askLocationWithSuggestion(suggested string) string {
	return fmt.Sprintf(
		"%s I spotted %q in your description; type or say it to use it.",
		p.askLocation, suggested,
	)
}

const (
	promptLocationInvalid  = "Please specify a valid address, or say 'auto location'."
	promptDetailsInvalid   = "Please provide more details for your request."
	promptConfirmHelp      = "Say 'yes' to submit, 'no' to cancel, or 'edit service', 'edit details', 'edit location'."
	promptDetecting        = "Trying to detect your location..."
	promptDetectingSpoken  = "Detecting your location. Please wait."
	promptLocationDenied   = "Location access denied. Please type or speak your address."
	promptNoGeolocation    = "Geolocation is not available. Please type or speak your address."
	promptEditDetails      = "Okay! Please provide new details about your request."
	promptEditLocation     = "What address should I use? Type or speak, or say 'auto location' for automatic detection."
	promptSubmitting       = "Submitting your request, please wait..."
	promptServerError      = "Server error. Please try again later."
	promptVoiceUnavailable = "Voice input isn't available on this device, so this will be a typed conversation."
	promptGoHomeSpoken     = "Redirecting to home."
)

func promptAddressSet(address string) string {
	return fmt.Sprintf("Your address is set to %q. Please describe your request in detail.", address)
}
