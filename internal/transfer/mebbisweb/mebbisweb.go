// Package mebbisweb drives the MEBBIS web portal over plain HTTP: it
// fetches the QR login page, polls for the human to complete the scan,
// then submits one counseling session form per item. The portal has no
// published API, so responses are parsed out of the HTML it serves.
package mebbisweb

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/rehberapp/rehber-go/internal/transfer"
)

const (
	qrLoginPath    = "/qrlogin"
	qrStatusPath   = "/qrlogin/durum"
	sessionPath    = "/rehberlik/gorusme-kaydi"
	pollInterval   = 2 * time.Second
	challengeValid = 3 * time.Minute
)

type Driver struct {
	baseURL    string
	client     *http.Client
	sessionKey string
	cancelled  atomic.Bool
}

// New creates a driver for one transfer job. The cookie jar carries the
// portal session established by the QR login, so a driver must never be
// shared between jobs.
func New(baseURL string) *Driver {
	jar, _ := cookiejar.New(nil)
	return &Driver{
		baseURL: strings.TrimRight(baseURL, "/"),
		client: &http.Client{
			Jar:     jar,
			Timeout: 30 * time.Second,
		},
	}
}

func (d *Driver) BeginAuthentication(ctx context.Context) (*transfer.AuthChallenge, error) {
	doc, err := d.fetchDocument(ctx, d.baseURL+qrLoginPath)
	if err != nil {
		return nil, &transfer.FatalError{Err: fmt.Errorf("qr login page: %w", err)}
	}

	qrSrc, ok := doc.Find("img#qrKod").Attr("src")
	if !ok {
		return nil, &transfer.FatalError{Err: fmt.Errorf("qr login page has no qr image")}
	}
	key, ok := doc.Find("input[name=oturumAnahtari]").Attr("value")
	if !ok {
		return nil, &transfer.FatalError{Err: fmt.Errorf("qr login page has no session key")}
	}
	d.sessionKey = key

	return &transfer.AuthChallenge{
		Type:      "qr",
		Payload:   qrSrc,
		ExpiresAt: time.Now().Add(challengeValid),
	}, nil
}

func (d *Driver) WaitForAuthentication(ctx context.Context) error {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			authed, err := d.pollAuthStatus(ctx)
			if err != nil {
				return err
			}
			if authed {
				return nil
			}
		}
	}
}

func (d *Driver) pollAuthStatus(ctx context.Context) (bool, error) {
	statusURL := fmt.Sprintf("%s%s?anahtar=%s", d.baseURL, qrStatusPath, url.QueryEscape(d.sessionKey))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, statusURL, nil)
	if err != nil {
		return false, err
	}
	resp, err := d.client.Do(req)
	if err != nil {
		// Poll failures are transient until the deadline says otherwise.
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		return false, nil
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err != nil {
		return false, nil
	}
	return strings.Contains(string(body), `"durum":"onaylandi"`), nil
}

func (d *Driver) ProcessItem(ctx context.Context, item transfer.Item) (*transfer.ItemResult, error) {
	if d.cancelled.Load() {
		return nil, fmt.Errorf("driver cancelled")
	}

	form := url.Values{
		"gorusmeId":   {strconv.FormatInt(item.SessionID, 10)},
		"ogrenciAdi":  {item.StudentName},
		"gorusmeKonu": {item.Topic},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.baseURL+sessionPath, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := d.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		// Connection-level failures mean the portal session is gone for
		// every remaining item, not just this one.
		return nil, &transfer.FatalError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return nil, &transfer.FatalError{Err: fmt.Errorf("portal returned %s", resp.Status)}
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("unreadable portal response: %w", err)
	}
	if msg := strings.TrimSpace(doc.Find(".alert-danger").Text()); msg != "" {
		return nil, fmt.Errorf("%s", msg)
	}

	detail := strings.TrimSpace(doc.Find(".alert-success").Text())
	if detail == "" {
		detail = firstHiddenValue(doc, "kayitNo")
	}
	return &transfer.ItemResult{ItemID: item.ID, Detail: detail}, nil
}

func (d *Driver) Cancel() {
	d.cancelled.Store(true)
}

func (d *Driver) fetchDocument(ctx context.Context, pageURL string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := d.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %s", resp.Status)
	}
	return goquery.NewDocumentFromReader(resp.Body)
}

// firstHiddenValue walks the raw nodes for a hidden input, which the
// portal sometimes emits without any class hooks goquery selectors can
// target.
func firstHiddenValue(doc *goquery.Document, name string) string {
	var value string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if value != "" {
			return
		}
		if n.Type == html.ElementNode && n.Data == "input" {
			var inputName, inputValue, inputType string
			for _, attr := range n.Attr {
				switch attr.Key {
				case "name":
					inputName = attr.Val
				case "value":
					inputValue = attr.Val
				case "type":
					inputType = attr.Val
				}
			}
			if inputType == "hidden" && inputName == name {
				value = inputValue
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, node := range doc.Selection.Nodes {
		walk(node)
	}
	return value
}
