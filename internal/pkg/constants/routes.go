package constants

// Static route constants
const (
	APIRoute      = "/api"
	GenerateRoute = "/generate"
	CreditsRoute  = "/credits"
	VerifyRoute   = "/verify-payment"
	CheckoutRoute = "/create-checkout"
	HistoryRoute  = "/readme-history"
	WebhookRoute  = "/webhook"
)
