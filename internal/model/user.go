package model

// PlanTier is a billing category gating features and quota.
type PlanTier string

const (
	PlanFree     PlanTier = "free"
	PlanStandard PlanTier = "standard"
	PlanPremium  PlanTier = "premium"
)

// Valid reports whether p is a known tier.
func (p PlanTier) Valid() bool {
	switch p {
	case PlanFree, PlanStandard, PlanPremium:
		return true
	}
	return false
}

// Paid reports whether p is purchasable through checkout.
func (p PlanTier) Paid() bool {
	return p == PlanStandard || p == PlanPremium
}

// User is the current account as returned by /auth/me.
type User struct {
	ID                string   `json:"id"`
	Email             string   `json:"email"`
	Username          string   `json:"username"`
	IsActive          bool     `json:"is_active"`
	Plan              PlanTier `json:"plan,omitempty"`
	AnalysesRemaining *int     `json:"analyses_remaining,omitempty"`
}

// Credentials are the login request body.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SignupRequest is the signup request body.
type SignupRequest struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
}

// TokenResponse is returned by login and signup. Plan fields are optional and
// may be fresher than a profile fetched right after.
type TokenResponse struct {
	AccessToken       string   `json:"access_token"`
	TokenType         string   `json:"token_type"`
	Plan              PlanTier `json:"plan,omitempty"`
	AnalysesRemaining *int     `json:"analyses_remaining,omitempty"`
}

// Plan describes one purchasable tier.
type Plan struct {
	Name          PlanTier `json:"name"`
	Price         float64  `json:"price"`
	Currency      string   `json:"currency,omitempty"`
	AnalysesLimit int      `json:"analyses_limit"`
	Features      []string `json:"features,omitempty"`
}

// UpgradeRequest changes the caller's plan directly.
type UpgradeRequest struct {
	Plan PlanTier `json:"plan"`
}

// CheckoutRequest starts a hosted payment for a paid tier.
type CheckoutRequest struct {
	Plan PlanTier `json:"plan"`
}

// CheckoutResponse carries the hosted checkout URL.
type CheckoutResponse struct {
	CheckoutURL string `json:"checkout_url"`
}

// PaymentVerification is the result of checking a checkout session.
type PaymentVerification struct {
	Status string   `json:"status"`
	Plan   PlanTier `json:"plan,omitempty"`
	Paid   bool     `json:"paid"`
}

// FeedbackRequest records a thumbs up or down on a response.
type FeedbackRequest struct {
	ResponseID string `json:"response_id"`
	IsPositive bool   `json:"is_positive"`
}

// FeedbackResponse is the stored feedback.
type FeedbackResponse struct {
	ID         string    `json:"id"`
	ResponseID string    `json:"response_id"`
	IsPositive bool      `json:"is_positive"`
	CreatedAt  Timestamp `json:"created_at"`
}

// FeedbackStats aggregates votes on one response.
type FeedbackStats struct {
	ResponseID       string `json:"response_id"`
	TotalFeedback    int    `json:"total_feedback"`
	PositiveFeedback int    `json:"positive_feedback"`
	NegativeFeedback int    `json:"negative_feedback"`
	UserFeedback     *bool  `json:"user_feedback"`
}
