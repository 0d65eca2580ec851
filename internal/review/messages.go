package review

// User-facing texts.
const (
	StartText = "Hello! 🙌\n\nChoose an action:"

	ChannelButton = "📢 Reviews channel"
	ProfileButton = "👤 Main profile"
	LeaveButton   = "📝 Leave a review"

	// CooldownText takes the remaining seconds.
	CooldownText = "⏳ Please wait %d seconds before your next review."
	PromptText   = "✍️ Write your review and I will pass it to the group right away!\n\n" +
		"💡 Do not use profanity, spam or links: such reviews will be rejected."

	// RejectText takes the validation reason.
	RejectText  = "❌ Unable to send the review:\n%s\n\nPress the button and try again."
	SuccessText = "✅ Thank you for your review! It has already been sent to our group.\n\n" +
		"If you want anything else, press /start"
	FailureText = "❌ An error occurred. Please try again later."

	StartDescription = "Main menu"
)

// LeaveReviewUnique is the callback key of the "leave a review" button.
const LeaveReviewUnique = "leave_review"

// Validation failure reasons, shown to the user verbatim.
const (
	ReasonEmpty   = "review cannot be empty"
	ReasonTooLong = "review too long (max 500 characters)"
	ReasonLinks   = "links are not allowed"
	ReasonMention = "mentioning other accounts is not allowed"
)
