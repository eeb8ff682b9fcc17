package propertyapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tidwall/gjson"

	"github.com/sells-group/property-cli/internal/model"
)

// AuthService covers /auth.
type AuthService struct{ c *Client }

// Login exchanges credentials for a bearer token.
func (s *AuthService) Login(ctx context.Context, creds model.Credentials) (*model.TokenResponse, error) {
	var out model.TokenResponse
	if err := s.c.do(ctx, request{op: "login", method: http.MethodPost, path: "/auth/login", body: creds}, &out); err != nil {
		return nil, err
	}
	if out.AccessToken == "" {
		return nil, eris.New("propertyapi: login: response has no access token")
	}
	return &out, nil
}

// Signup creates an account and returns its bearer token.
func (s *AuthService) Signup(ctx context.Context, req model.SignupRequest) (*model.TokenResponse, error) {
	var out model.TokenResponse
	if err := s.c.do(ctx, request{op: "signup", method: http.MethodPost, path: "/auth/signup", body: req}, &out); err != nil {
		return nil, err
	}
	if out.AccessToken == "" {
		return nil, eris.New("propertyapi: signup: response has no access token")
	}
	return &out, nil
}

// Me returns the profile of the token owner.
func (s *AuthService) Me(ctx context.Context) (*model.User, error) {
	var out model.User
	if err := s.c.do(ctx, request{op: "me", method: http.MethodGet, path: "/auth/me"}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Plans lists the available tiers. Both a bare array and {"plans": [...]}
// are accepted.
func (s *AuthService) Plans(ctx context.Context) ([]model.Plan, error) {
	body, err := s.c.doRaw(ctx, request{op: "plans", method: http.MethodGet, path: "/auth/plans"})
	if err != nil {
		return nil, err
	}
	if wrapped := gjson.GetBytes(body, "plans"); wrapped.IsArray() {
		body = []byte(wrapped.Raw)
	}
	var plans []model.Plan
	if err := json.Unmarshal(body, &plans); err != nil {
		return nil, eris.Wrap(err, "propertyapi: plans: unmarshal response")
	}
	return plans, nil
}

// Upgrade switches the caller to plan and returns the updated profile.
func (s *AuthService) Upgrade(ctx context.Context, plan model.PlanTier) (*model.User, error) {
	var out model.User
	err := s.c.do(ctx, request{op: "upgrade", method: http.MethodPost, path: "/auth/upgrade", body: model.UpgradeRequest{Plan: plan}}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// PropertyService covers /property.
type PropertyService struct{ c *Client }

// Query submits a property for analysis. It uses the long query timeout.
func (s *PropertyService) Query(ctx context.Context, req model.QueryRequest) (*model.AnalysisRecord, error) {
	var out model.AnalysisRecord
	err := s.c.do(ctx, request{
		op:      "query",
		method:  http.MethodPost,
		path:    "/property/query",
		body:    req,
		timeout: s.c.queryTimeout,
	}, &out)
	if err != nil {
		return nil, err
	}
	if out.QueryText == "" {
		out.QueryText = req.Query
	}
	if out.Features == nil {
		f := req.Features
		out.Features = &f
	}
	return &out, nil
}

// History lists the most recent queries, newest first.
func (s *PropertyService) History(ctx context.Context, limit int) ([]model.HistoryEntry, error) {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	var out []model.HistoryEntry
	if err := s.c.do(ctx, request{op: "history", method: http.MethodGet, path: "/property/history", query: q}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Details returns the saved analysis for one query.
func (s *PropertyService) Details(ctx context.Context, id string) (*model.AnalysisRecord, error) {
	if strings.TrimSpace(id) == "" {
		return nil, eris.New("propertyapi: details: empty id")
	}
	var out model.AnalysisRecord
	err := s.c.do(ctx, request{op: "details", method: http.MethodGet, path: "/property/details/" + url.PathEscape(id)}, &out)
	if err != nil {
		return nil, err
	}
	if out.ID == "" {
		out.ID = id
	}
	return &out, nil
}

// DeleteHistory removes a query and its analysis.
func (s *PropertyService) DeleteHistory(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return eris.New("propertyapi: delete history: empty id")
	}
	var out model.DeleteResult
	return s.c.do(ctx, request{op: "delete history", method: http.MethodDelete, path: "/property/history/" + url.PathEscape(id)}, &out)
}

// SuggestTags returns tag completions for a partial input. The backend
// answers {"tags":[{"tag":"..."}]}; bare strings in the array are accepted
// too. At most limit tags are returned when limit is positive.
func (s *PropertyService) SuggestTags(ctx context.Context, prefix string, limit int) ([]string, error) {
	body, err := s.c.doRaw(ctx, request{
		op:     "suggest tags",
		method: http.MethodGet,
		path:   "/property/suggest_tags",
		query:  url.Values{"q": {prefix}},
	})
	if err != nil {
		return nil, err
	}
	return parseTagSuggestions(body, limit), nil
}

func parseTagSuggestions(body []byte, limit int) []string {
	tags := []string{}
	seen := map[string]bool{}
	gjson.GetBytes(body, "tags").ForEach(func(_, v gjson.Result) bool {
		tag := v.String()
		if v.IsObject() {
			tag = v.Get("tag").String()
		}
		tag = strings.TrimSpace(tag)
		if tag == "" || seen[tag] {
			return true
		}
		seen[tag] = true
		tags = append(tags, tag)
		return limit <= 0 || len(tags) < limit
	})
	return tags
}

// AnalyzeLocation scores a point without running a full property query.
func (s *PropertyService) AnalyzeLocation(ctx context.Context, req model.LocationRequest) (*model.LocationAnalysis, error) {
	var out model.LocationAnalysis
	err := s.c.do(ctx, request{
		op:      "analyze location",
		method:  http.MethodPost,
		path:    "/property/location/analyze",
		body:    req,
		timeout: s.c.queryTimeout,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// FeedbackService covers /feedback.
type FeedbackService struct{ c *Client }

// Submit records (or replaces) the caller's vote on a response.
func (s *FeedbackService) Submit(ctx context.Context, req model.FeedbackRequest) (*model.FeedbackResponse, error) {
	var out model.FeedbackResponse
	if err := s.c.do(ctx, request{op: "submit feedback", method: http.MethodPost, path: "/feedback/", body: req}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Stats returns vote totals for a response.
func (s *FeedbackService) Stats(ctx context.Context, responseID string) (*model.FeedbackStats, error) {
	var out model.FeedbackStats
	err := s.c.do(ctx, request{op: "feedback stats", method: http.MethodGet, path: "/feedback/response/" + url.PathEscape(responseID)}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// PaymentService covers /payments.
type PaymentService struct{ c *Client }

// CreateCheckout starts a hosted checkout for a paid plan.
func (s *PaymentService) CreateCheckout(ctx context.Context, plan model.PlanTier) (*model.CheckoutResponse, error) {
	if !plan.Paid() {
		return nil, eris.Errorf("propertyapi: checkout: plan %q is not purchasable", plan)
	}
	var out model.CheckoutResponse
	err := s.c.do(ctx, request{
		op:     "checkout",
		method: http.MethodPost,
		path:   "/payments/create-checkout-session",
		body:   model.CheckoutRequest{Plan: plan},
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// VerifySession checks the outcome of a checkout session.
func (s *PaymentService) VerifySession(ctx context.Context, sessionID string) (*model.PaymentVerification, error) {
	var out model.PaymentVerification
	err := s.c.do(ctx, request{
		op:     "verify payment",
		method: http.MethodGet,
		path:   "/payments/verify-session",
		query:  url.Values{"session_id": {sessionID}},
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}
