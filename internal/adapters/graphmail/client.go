// Package graphmail sends transactional email through the Microsoft Graph sendMail API,
// authenticating with an OAuth2 client-credentials grant.
package graphmail

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"hotel_finder/internal/adapters/upstream"
	"hotel_finder/internal/domain"
)

const (
	DefaultGraphBaseURL = "https://graph.microsoft.com/v1.0"
	graphScope          = "https://graph.microsoft.com/.default"
)

type Config struct {
	ClientID     string
	ClientSecret string
	TenantID     string
	Sender       string
	BCC          string
	TokenURL     string // overrides the tenant token endpoint
	GraphBaseURL string
	Timeout      time.Duration
	RPS          int
}

// TokenURL is the tenant's v2 token endpoint.
func TokenURL(tenant string) string {
	return "https://login.microsoftonline.com/" + url.PathEscape(tenant) + "/oauth2/v2.0/token"
}

type Client struct {
	creds   clientcredentials.Config
	hc      *http.Client
	timeout time.Duration
	graph   string
	sender  string
	bcc     string
	up      *upstream.Client
}

func New(cfg Config) (*Client, error) {
	var missing []string
	for k, v := range map[string]string{
		"client id":     cfg.ClientID,
		"client secret": cfg.ClientSecret,
		"tenant id":     cfg.TenantID,
		"sender":        cfg.Sender,
	} {
		if v == "" {
			missing = append(missing, k)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("graphmail: missing %s", strings.Join(missing, ", "))
	}
	tokenURL := cfg.TokenURL
	if tokenURL == "" {
		tokenURL = TokenURL(cfg.TenantID)
	}
	graph := cfg.GraphBaseURL
	if graph == "" {
		graph = DefaultGraphBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = upstream.DefaultTimeout
	}
	return &Client{
		creds: clientcredentials.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			TokenURL:     tokenURL,
			Scopes:       []string{graphScope},
			AuthStyle:    oauth2.AuthStyleInParams,
		},
		hc:      &http.Client{},
		timeout: timeout,
		graph:   strings.TrimSuffix(graph, "/"),
		sender:  cfg.Sender,
		bcc:     cfg.BCC,
		up:      upstream.New("graphmail", timeout, cfg.RPS),
	}, nil
}

type emailAddress struct {
	Address string `json:"address"`
}

type recipient struct {
	EmailAddress emailAddress `json:"emailAddress"`
}

type sendMailRequest struct {
	Message struct {
		Subject string `json:"subject"`
		Body    struct {
			ContentType string `json:"contentType"`
			Content     string `json:"content"`
		} `json:"body"`
		ToRecipients  []recipient `json:"toRecipients"`
		BccRecipients []recipient `json:"bccRecipients,omitempty"`
	} `json:"message"`
	SaveToSentItems bool `json:"saveToSentItems"`
}

// Send exchanges credentials for a fresh token and posts the message. Tokens are never reused.
func (c *Client) Send(ctx context.Context, msg domain.EmailMessage) error {
	tok, err := c.token(ctx)
	if err != nil {
		return err
	}

	var req sendMailRequest
	req.Message.Subject = msg.Subject
	req.Message.Body.ContentType = "HTML"
	req.Message.Body.Content = msg.HTMLBody
	req.Message.ToRecipients = []recipient{{EmailAddress: emailAddress{Address: msg.Recipient}}}
	if c.bcc != "" {
		req.Message.BccRecipients = []recipient{{EmailAddress: emailAddress{Address: c.bcc}}}
	}

	_, err = c.up.Do(ctx, upstream.Call{
		Method:   http.MethodPost,
		URL:      c.graph + "/users/" + url.PathEscape(c.sender) + "/sendMail",
		Header:   http.Header{"Authorization": {"Bearer " + tok.AccessToken}},
		Body:     req,
		Endpoint: "sendMail",
	})
	if err != nil {
		return fmt.Errorf("graphmail: send: %w", err)
	}
	return nil
}

func (c *Client) token(ctx context.Context) (*oauth2.Token, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.hc)

	tok, err := c.creds.Token(ctx)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("graphmail: token: %w", domain.ErrTimeout)
		}
		var re *oauth2.RetrieveError
		if errors.As(err, &re) && re.Response != nil {
			return nil, fmt.Errorf("graphmail: token: %w", &domain.UpstreamError{
				Service: "graphmail", Status: re.Response.StatusCode, Body: string(re.Body),
			})
		}
		return nil, fmt.Errorf("graphmail: token: %w", err)
	}
	return tok, nil
}
