package conversation

import (
	"strings"
)

const (
	feedbackPrefix = "feedback"

	msgRatingThanks   = "Thank you for your rating!"
	msgFeedbackThanks = "Thank you for your feedback!"
	msgFeedbackUsage  = "To leave feedback, type 'feedback 5' or 'feedback your comments'."
	msgSeenAll        = "You've seen all available results for this search."
	msgNoResults      = "I don't have any search results to show more of. Please start a new search."
	msgShowingMore    = "Showing more properties:"
	msgMoreHint       = "Type 'more' to see additional properties."
	msgFeedbackPrompt = "How would you rate your experience with me today?\n" +
		"1 Poor | 2 Fair | 3 Good | 4 Very Good | 5 Excellent\n" +
		"Type 'feedback [number]' or 'feedback [comments]'"
	msgConnectError = "Sorry, I encountered an error connecting. Please try again in a moment."
)

var ratings = map[string]string{
	"1": "⭐ Poor",
	"2": "⭐⭐ Fair",
	"3": "⭐⭐⭐ Good",
	"4": "⭐⭐⭐⭐ Very Good",
	"5": "⭐⭐⭐⭐⭐ Excellent",
}

type commandKind int

const (
	commandQuery commandKind = iota
	commandFeedback
	commandMore
)

type command struct {
	kind commandKind
	// rest is the text after the feedback prefix, trimmed, original case.
	rest string
}

func parseCommand(text string) command {
	if len(text) >= len(feedbackPrefix) && strings.EqualFold(text[:len(feedbackPrefix)], feedbackPrefix) {
		return command{
			kind: commandFeedback,
			rest: strings.TrimSpace(text[len(feedbackPrefix):]),
		}
	}

	switch strings.ToLower(text) {
	case "more", "show more":
		return command{kind: commandMore}
	}

	return command{kind: commandQuery}
}

// RatingLabel maps a single digit 1-5 to its label. Anything else is free
// text feedback.
func RatingLabel(rest string) (string, bool) {
	label, ok := ratings[rest]
	return label, ok
}
