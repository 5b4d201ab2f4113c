package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"ranked-engine/internal/config"
	"ranked-engine/internal/constants"
	"ranked-engine/internal/domain"

	"github.com/valyala/fasthttp"
)

// Client talks to the external game-session service that actually
// hosts matches. This core only asks it to create sessions; results
// come back through the match-result callback endpoint.
type Client struct {
	baseURL string
	client  *fasthttp.Client
}

type createRequest struct {
	MatchID  string                   `json:"matchId"`
	Map      string                   `json:"map"`
	Teams    map[domain.Team][]string `json:"teams"`
	Settings map[string]string        `json:"settings"`
}

type createResponse struct {
	SessionID string `json:"sessionId"`
}

func NewClient(cfg *config.Config) *Client {
	return &Client{
		baseURL: cfg.SessionServiceURL,
		client: &fasthttp.Client{
			MaxConnsPerHost:     100,
			ReadTimeout:         constants.SessionAPITimeout,
			WriteTimeout:        constants.SessionAPITimeout,
			MaxIdleConnDuration: 1 * time.Minute,
		},
	}
}

// Create asks the session service for a joinable session and returns
// its identifier.
func (c *Client) Create(ctx context.Context, match domain.Match) (string, error) {
	teams := map[domain.Team][]string{domain.TeamCT: {}, domain.TeamT: {}}
	for playerID, player := range match.Players {
		teams[player.Team] = append(teams[player.Team], playerID)
	}

	payload, err := json.Marshal(createRequest{
		MatchID:  match.MatchID,
		Map:      match.Map,
		Teams:    teams,
		Settings: map[string]string{"mode": "competitive"},
	})
	if err != nil {
		return "", fmt.Errorf("marshal session request: %w", err)
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(c.baseURL + "/v1/sessions")
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType("application/json")
	req.SetBody(payload)

	deadline := time.Now().Add(constants.SessionAPITimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := c.client.DoDeadline(req, resp, deadline); err != nil {
		return "", fmt.Errorf("session service request failed: %w", err)
	}
	if resp.StatusCode() != fasthttp.StatusOK && resp.StatusCode() != fasthttp.StatusCreated {
		return "", fmt.Errorf("session service returned status %d", resp.StatusCode())
	}

	var created createResponse
	if err := json.Unmarshal(resp.Body(), &created); err != nil {
		return "", fmt.Errorf("decode session response: %w", err)
	}
	if created.SessionID == "" {
		return "", fmt.Errorf("session service returned empty session id")
	}
	return created.SessionID, nil
}
