package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"
	"valplus/internal/config"
	"valplus/internal/constants"
	"valplus/internal/domain"

	"github.com/valyala/fasthttp"
)

// RiotClient talks to the session-scoped game services (glz for match state,
// pd for the name service). Base URLs are templates over {region} and {shard}.
type RiotClient struct {
	glzURL         string
	pdURL          string
	clientPlatform string
	client         *fasthttp.Client
}

func NewRiotClient(cfg *config.Config) (*RiotClient, error) {
	for _, tmpl := range []string{cfg.GLZURL, cfg.PDURL} {
		if _, err := expandBaseURL(tmpl, "na", "na"); err != nil {
			return nil, err
		}
	}

	return &RiotClient{
		glzURL:         cfg.GLZURL,
		pdURL:          cfg.PDURL,
		clientPlatform: cfg.ClientPlatform,
		client: &fasthttp.Client{
			MaxConnsPerHost:     16,
			ReadTimeout:         constants.ExternalAPITimeout,
			WriteTimeout:        constants.ExternalAPITimeout,
			MaxIdleConnDuration: 1 * time.Minute,
		},
	}, nil
}

func (c *RiotClient) GetCoreGamePlayer(ctx context.Context, session domain.SessionContext) (*MatchPointer, error) {
	base, err := c.glzBase(session)
	if err != nil {
		return nil, err
	}
	return doRequest[MatchPointer](ctx, c, session, fasthttp.MethodGet, base+"/core-game/v1/players/"+url.PathEscape(session.PlayerID), nil)
}

func (c *RiotClient) GetCoreGameMatch(ctx context.Context, session domain.SessionContext, matchID string) (*CoreGameMatch, error) {
	base, err := c.glzBase(session)
	if err != nil {
		return nil, err
	}
	return doRequest[CoreGameMatch](ctx, c, session, fasthttp.MethodGet, base+"/core-game/v1/matches/"+url.PathEscape(matchID), nil)
}

func (c *RiotClient) GetPreGamePlayer(ctx context.Context, session domain.SessionContext) (*MatchPointer, error) {
	base, err := c.glzBase(session)
	if err != nil {
		return nil, err
	}
	return doRequest[MatchPointer](ctx, c, session, fasthttp.MethodGet, base+"/pregame/v1/players/"+url.PathEscape(session.PlayerID), nil)
}

func (c *RiotClient) GetPreGameMatch(ctx context.Context, session domain.SessionContext, matchID string) (*PreGameMatch, error) {
	base, err := c.glzBase(session)
	if err != nil {
		return nil, err
	}
	return doRequest[PreGameMatch](ctx, c, session, fasthttp.MethodGet, base+"/pregame/v1/matches/"+url.PathEscape(matchID), nil)
}

// GetPlayerNames resolves every id in one request.
func (c *RiotClient) GetPlayerNames(ctx context.Context, session domain.SessionContext, playerIDs []string) ([]NameServiceEntry, error) {
	base, err := expandBaseURL(c.pdURL, session.Region, session.Shard)
	if err != nil {
		return nil, err
	}

	if playerIDs == nil {
		playerIDs = []string{}
	}
	body, err := json.Marshal(playerIDs)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrClientBuild, err)
	}

	entries, err := doRequest[[]NameServiceEntry](ctx, c, session, fasthttp.MethodPut, base+"/name-service/v2/players", body)
	if err != nil {
		return nil, err
	}
	return *entries, nil
}

func (c *RiotClient) glzBase(session domain.SessionContext) (string, error) {
	return expandBaseURL(c.glzURL, session.Region, session.Shard)
}

func expandBaseURL(tmpl, region, shard string) (string, error) {
	needsRegion := strings.Contains(tmpl, "{region}")
	needsShard := strings.Contains(tmpl, "{shard}")
	if (needsRegion && region == "") || (needsShard && shard == "") {
		return "", fmt.Errorf("%w: session has no region/shard for %s", ErrClientBuild, tmpl)
	}

	expanded := strings.NewReplacer("{region}", region, "{shard}", shard).Replace(tmpl)
	u, err := url.Parse(expanded)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrClientBuild, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("%w: base url %q has no scheme or host", ErrClientBuild, expanded)
	}
	return strings.TrimRight(expanded, "/"), nil
}

func doRequest[T any](ctx context.Context, client *RiotClient, session domain.SessionContext, method, url string, body []byte) (*T, error) {
	if err := ctx.Err(); err != nil {
		return nil, &NetworkError{URL: url, Err: err}
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(url)
	req.Header.SetMethod(method)
	req.Header.Set("Authorization", "Bearer "+session.AccessToken)
	req.Header.Set("X-Riot-Entitlements-JWT", session.EntitlementToken)
	req.Header.Set("X-Riot-ClientPlatform", client.clientPlatform)
	req.Header.Set("X-Riot-ClientVersion", session.ClientVersion)
	if body != nil {
		req.Header.SetContentType("application/json")
		req.SetBody(body)
	}

	deadline, ok := ctx.Deadline()
	if ok {
		if err := client.client.DoDeadline(req, resp, deadline); err != nil {
			return nil, &NetworkError{URL: url, Err: err}
		}
	} else {
		if err := client.client.DoTimeout(req, resp, constants.ExternalAPITimeout); err != nil {
			return nil, &NetworkError{URL: url, Err: err}
		}
	}

	if code := resp.StatusCode(); code < 200 || code > 299 {
		return nil, &StatusError{URL: url, Code: code}
	}

	var result T
	if err := json.Unmarshal(resp.Body(), &result); err != nil {
		return nil, &DecodeError{URL: url, Err: err}
	}
	return &result, nil
}
