package pam360

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/go-cleanhttp"

	"github.com/flant/pam360-sync/pkg/log"
)

const (
	AuthTokenHeader = "AUTHTOKEN"
	InputDataField  = "INPUT_DATA"
	DefaultTimeout  = 30 * time.Second

	resourcesPath = "/restapi/json/v1/resources"
)

type Settings struct {
	URL   string
	Token string
	// InsecureSkipVerify disables certificate and hostname checks for the
	// PAM360 endpoint. Ignored when HTTPClient is set.
	InsecureSkipVerify bool
	Timeout            time.Duration
	HTTPClient         *http.Client
}

type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

func NewClient(settings Settings) (*Client, error) {
	u, err := url.Parse(settings.URL)
	if err != nil {
		return nil, fmt.Errorf("parse url '%s': %w", settings.URL, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("url '%s' should have scheme and host", settings.URL)
	}

	timeout := settings.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	var httpClient *http.Client
	if settings.HTTPClient != nil {
		c := *settings.HTTPClient
		httpClient = &c
	} else {
		httpClient = cleanhttp.DefaultPooledClient()
		transport := httpClient.Transport.(*http.Transport)
		transport.TLSClientConfig = &tls.Config{
			InsecureSkipVerify: settings.InsecureSkipVerify, // nolint:gosec
		}
	}
	httpClient.Timeout = timeout

	return &Client{
		baseURL: strings.TrimSuffix(u.String(), "/"),
		token:   settings.Token,
		http:    httpClient,
	}, nil
}

func (c *Client) ListResources(ctx context.Context) ([]Resource, Result) {
	res := c.do(ctx, http.MethodGet, resourcesPath, nil)

	var resources []Resource
	res = res.decodeDetails(&resources)
	return resources, res
}

func (c *Client) ListAccounts(ctx context.Context, resourceID ID) ([]Account, Result) {
	res := c.do(ctx, http.MethodGet, resourcePath(resourceID, "accounts"), nil)

	var details resourceAccounts
	res = res.decodeDetails(&details)
	return details.Accounts, res
}

func (c *Client) ResetAccountPassword(ctx context.Context, resourceID, accountID ID, reset PasswordReset) Result {
	path := resourcePath(resourceID, "accounts", url.PathEscape(accountID.String()), "password")
	return c.do(ctx, http.MethodPut, path, reset)
}

func (c *Client) CreateAccounts(ctx context.Context, resourceID ID, accounts []NewAccount) Result {
	return c.do(ctx, http.MethodPost, resourcePath(resourceID, "accounts"), newAccounts{Accounts: accounts})
}

func (c *Client) CreateResource(ctx context.Context, resource NewResource) Result {
	return c.do(ctx, http.MethodPost, resourcesPath, resource)
}

// ResourceIDByName returns an empty ID when the resource is unknown.
func (c *Client) ResourceIDByName(ctx context.Context, name string) (ID, Result) {
	res := c.do(ctx, http.MethodGet, resourcesPath+"/resourcename/"+url.PathEscape(name), nil)

	var details resourceIdentity
	res = res.decodeDetails(&details)
	return details.ResourceID, res
}

func (c *Client) ShareResource(ctx context.Context, resourceID ID, share Share) Result {
	return c.do(ctx, http.MethodPut, resourcePath(resourceID, "share"), share)
}

func resourcePath(resourceID ID, elems ...string) string {
	return resourcesPath + "/" + url.PathEscape(resourceID.String()) + "/" + strings.Join(elems, "/")
}

func (c *Client) do(ctx context.Context, method, path string, details interface{}) Result {
	res := c.roundTrip(ctx, method, path, details)
	log.Debugf(ctx)("%s %s: %s", method, path, res)
	return res
}

func (c *Client) roundTrip(ctx context.Context, method, path string, details interface{}) Result {
	var body io.Reader
	if details != nil {
		var in request
		in.Operation.Details = details
		data, err := json.Marshal(in)
		if err != nil {
			return Failed(fmt.Errorf("marshal input data: %w", err))
		}
		body = strings.NewReader(url.Values{InputDataField: {string(data)}}.Encode())
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return Failed(err)
	}
	req.Header.Set(AuthTokenHeader, c.token)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return Failed(err)
	}
	defer resp.Body.Close() // nolint:errcheck

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return Failed(fmt.Errorf("read response: %w", err))
	}

	// PAM360 answers errors with the same envelope, use it when it is there.
	var env envelope
	err = json.Unmarshal(data, &env)
	if err != nil {
		if resp.StatusCode >= http.StatusMultipleChoices {
			return Failed(fmt.Errorf("HTTP Error %d: %s", resp.StatusCode, http.StatusText(resp.StatusCode)))
		}
		return Failed(fmt.Errorf("decode response: %w", err))
	}

	return env.result()
}
