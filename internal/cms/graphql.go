package cms

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/alberthiggs/folio/internal/xerrors"
)

const (
	defaultGraphQLHost  = "https://graphql.contentful.com"
	defaultEnvironment  = "master"
	defaultMaxBodyBytes = 4 << 20
	defaultHTTPTimeout  = 10 * time.Second
)

const allSectionsQuery = `{
  siteSectionCollection {
    items {
      sectionId
      content
    }
  }
}`

const sectionQuery = `query Section($id: String!) {
  siteSectionCollection(where: { sectionId: $id }, limit: 1) {
    items {
      sectionId
      content
    }
  }
}`

// GraphQLConfig is everything the GraphQL source needs. Nothing is read
// from the environment.
type GraphQLConfig struct {
	SpaceID     string
	AccessToken string
	// Environment defaults to "master".
	Environment string
	// Endpoint overrides the URL derived from SpaceID and Environment.
	Endpoint string
	// HTTPClient defaults to a traced client with a 10s timeout.
	HTTPClient *http.Client
	// MaxBodyBytes caps the response body, default 4 MiB.
	MaxBodyBytes int64
}

// GraphQLSource reads sections from a Contentful-style GraphQL endpoint
// whose siteSection entries carry a sectionId and a JSON content field.
type GraphQLSource struct {
	endpoint string
	token    string
	client   *http.Client
	maxBody  int64
}

func NewGraphQLSource(cfg GraphQLConfig) (*GraphQLSource, error) {
	if cfg.AccessToken == "" {
		return nil, xerrors.New("cms: access token is required")
	}
	endpoint := cfg.Endpoint
	if endpoint == "" {
		if cfg.SpaceID == "" {
			return nil, xerrors.New("cms: space id or endpoint is required")
		}
		env := cfg.Environment
		if env == "" {
			env = defaultEnvironment
		}
		endpoint = fmt.Sprintf("%s/content/v1/spaces/%s/environments/%s",
			defaultGraphQLHost, url.PathEscape(cfg.SpaceID), url.PathEscape(env))
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{
			Timeout:   defaultHTTPTimeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		}
	}
	maxBody := cfg.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = defaultMaxBodyBytes
	}
	return &GraphQLSource{endpoint: endpoint, token: cfg.AccessToken, client: client, maxBody: maxBody}, nil
}

// Endpoint returns the resolved GraphQL url.
func (g *GraphQLSource) Endpoint() string { return g.endpoint }

type gqlRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type gqlItem struct {
	SectionID string          `json:"sectionId"`
	Content   json.RawMessage `json:"content"`
}

type gqlResponse struct {
	Data *struct {
		Collection *struct {
			Items []gqlItem `json:"items"`
		} `json:"siteSectionCollection"`
	} `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

func (g *GraphQLSource) FetchAll(ctx context.Context) (map[Section]Result, error) {
	items, err := g.query(ctx, gqlRequest{Query: allSectionsQuery})
	if err != nil {
		return nil, err
	}
	out := make(map[Section]Result, len(items))
	for _, it := range items {
		// later duplicates replace earlier ones
		if isNull(it.Content) {
			delete(out, Section(it.SectionID))
			continue
		}
		out[Section(it.SectionID)] = Result{Raw: it.Content}
	}
	return out, nil
}

func (g *GraphQLSource) FetchSection(ctx context.Context, s Section) (json.RawMessage, error) {
	items, err := g.query(ctx, gqlRequest{Query: sectionQuery, Variables: map[string]any{"id": string(s)}})
	if err != nil {
		return nil, fetchError(s, err)
	}
	for _, it := range items {
		if Section(it.SectionID) == s && !isNull(it.Content) {
			return it.Content, nil
		}
	}
	return nil, notFound(s)
}

func (g *GraphQLSource) query(ctx context.Context, q gqlRequest) ([]gqlItem, error) {
	body, err := json.Marshal(q)
	if err != nil {
		return nil, xerrors.Wrap(err, "encode graphql request")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, xerrors.Wrap(err, "build graphql request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+g.token)

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, &ContentFetchError{Message: "graphql request failed", Err: xerrors.WithStack(err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		return nil, &ContentFetchError{
			Status:  resp.StatusCode,
			Message: fmt.Sprintf("Contentful GraphQL error: %d", resp.StatusCode),
		}
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, g.maxBody+1))
	if err != nil {
		return nil, &ContentFetchError{Status: resp.StatusCode, Message: "read graphql response", Err: xerrors.WithStack(err)}
	}
	if int64(len(raw)) > g.maxBody {
		return nil, &ContentFetchError{Status: resp.StatusCode, Message: fmt.Sprintf("graphql response exceeds %d bytes", g.maxBody)}
	}

	var gr gqlResponse
	if err := json.Unmarshal(raw, &gr); err != nil {
		return nil, &ContentFetchError{Status: resp.StatusCode, Message: "decode graphql response", Err: xerrors.WithStack(err)}
	}
	if len(gr.Errors) > 0 {
		return nil, &ContentFetchError{Status: resp.StatusCode, Message: "Contentful GraphQL: " + gr.Errors[0].Message}
	}
	if gr.Data == nil || gr.Data.Collection == nil {
		return nil, nil
	}
	return gr.Data.Collection.Items, nil
}
