package analyzer

import (
	"fmt"

	"airecruiter/internal/types"
)

// Greeting is the first assistant message of an interview
func Greeting(profile types.CandidateProfile) string {
	switch {
	case profile.CandidateName != "" && profile.LastJobTitle != "" && profile.LastCompany != "":
		return fmt.Sprintf("Hello, %s! Thanks for the CV. I see your last position was %s at %s. Please tell me more about your responsibilities.",
			profile.CandidateName, profile.LastJobTitle, profile.LastCompany)
	case profile.CandidateName != "":
		return fmt.Sprintf("Hello, %s! Thanks for the CV. Please tell me about your most recent professional experience.",
			profile.CandidateName)
	default:
		return "Thank you for submitting your CV. Please tell me about your most recent professional experience."
	}
}
