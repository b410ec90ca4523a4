// Package jobimport extracts campaign fields from public job posting pages.
package jobimport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/Gradiiai/gradii-sub007/internal/domain"
	"github.com/Gradiiai/gradii-sub007/pkg/netguard"
)

const (
	defaultTimeout = 15 * time.Second
	maxPageBytes   = 5 << 20
	userAgent      = "Mozilla/5.0 (compatible; GradiiImporter/1.0)"
)

var (
	ErrInvalidURL     = errors.New("invalid job posting URL")
	ErrBlockedAddress = errors.New("job posting URL resolves to a private address")
	ErrNoContent      = errors.New("no job posting found on page")
)

var descriptionSelectors = []string{
	".job-description",
	"#job-description",
	".job-content",
	"#job-content",
	".posting-page",
	".description",
	"[data-testid='job-description']",
	"main",
	"article",
}

type Importer struct {
	client *http.Client
}

var _ domain.JobPostingImporter = (*Importer)(nil)

// New returns an importer that refuses to connect to loopback, private and
// link-local addresses.
func New() *Importer {
	return &Importer{client: netguard.Client(defaultTimeout)}
}

// NewWithClient uses client as is, without address filtering.
func NewWithClient(client *http.Client) *Importer {
	return &Importer{client: client}
}

func (im *Importer) Import(ctx context.Context, rawURL string) (*domain.CampaignDraft, error) {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, ErrInvalidURL
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("could not create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := im.client.Do(req)
	if err != nil {
		if errors.Is(err, netguard.ErrBlockedAddress) {
			return nil, ErrBlockedAddress
		}
		return nil, fmt.Errorf("fetching job posting: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching job posting: HTTP status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}
	draft := Extract(doc)
	if draft.Title == "" {
		return nil, ErrNoContent
	}
	draft.SourceURL = u.String()
	return draft, nil
}

// Extract reads a schema.org JobPosting when the page has one and falls
// back to meta tags and common content containers.
func Extract(doc *goquery.Document) *domain.CampaignDraft {
	draft := &domain.CampaignDraft{}
	if jp := findJobPosting(doc); jp != nil {
		draft.Title = cleanWhitespace(jp.Title)
		draft.Description = htmlToText(jp.Description)
		draft.Company = cleanWhitespace(jp.HiringOrganization.Name)
		draft.Location = jp.location()
	}

	if draft.Title == "" {
		draft.Title = firstNonEmpty(
			attr(doc, `meta[property="og:title"]`, "content"),
			doc.Find("h1").First().Text(),
			doc.Find("title").First().Text(),
		)
	}
	if draft.Description == "" {
		doc.Find("nav, footer, header, script, style, noscript, form, .cookie-banner").Remove()
		for _, sel := range descriptionSelectors {
			if s := doc.Find(sel).First(); s.Length() > 0 {
				if text := cleanWhitespace(s.Text()); len(text) > 40 {
					draft.Description = text
					break
				}
			}
		}
		if draft.Description == "" {
			draft.Description = cleanWhitespace(attr(doc, `meta[name="description"]`, "content"))
		}
	}
	if draft.Company == "" {
		draft.Company = cleanWhitespace(attr(doc, `meta[property="og:site_name"]`, "content"))
	}
	draft.Title = cleanWhitespace(draft.Title)
	return draft
}

type jobPosting struct {
	Type               any    `json:"@type"`
	Title              string `json:"title"`
	Description        string `json:"description"`
	HiringOrganization struct {
		Name string `json:"name"`
	} `json:"hiringOrganization"`
	JobLocation json.RawMessage `json:"jobLocation"`
}

type place struct {
	Address struct {
		Locality string `json:"addressLocality"`
		Region   string `json:"addressRegion"`
		Country  any    `json:"addressCountry"`
	} `json:"address"`
}

func (jp *jobPosting) isJobPosting() bool {
	switch t := jp.Type.(type) {
	case string:
		return t == "JobPosting"
	case []any:
		for _, v := range t {
			if s, ok := v.(string); ok && s == "JobPosting" {
				return true
			}
		}
	}
	return false
}

func (jp *jobPosting) location() string {
	if len(jp.JobLocation) == 0 {
		return ""
	}
	var places []place
	if err := json.Unmarshal(jp.JobLocation, &places); err != nil {
		var single place
		if err := json.Unmarshal(jp.JobLocation, &single); err != nil {
			return ""
		}
		places = []place{single}
	}
	if len(places) == 0 {
		return ""
	}
	a := places[0].Address
	parts := []string{}
	for _, p := range []string{a.Locality, a.Region} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	if c, ok := a.Country.(string); ok && c != "" {
		parts = append(parts, c)
	}
	return strings.Join(parts, ", ")
}

func findJobPosting(doc *goquery.Document) *jobPosting {
	var found *jobPosting
	doc.Find(`script[type="application/ld+json"]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		raw := []byte(strings.TrimSpace(s.Text()))
		var candidates []jobPosting
		if err := json.Unmarshal(raw, &candidates); err != nil {
			var single struct {
				jobPosting
				Graph []jobPosting `json:"@graph"`
			}
			if err := json.Unmarshal(raw, &single); err != nil {
				return true
			}
			candidates = append([]jobPosting{single.jobPosting}, single.Graph...)
		}
		for i := range candidates {
			if candidates[i].isJobPosting() {
				found = &candidates[i]
				return false
			}
		}
		return true
	})
	return found
}

func htmlToText(s string) string {
	if !strings.Contains(s, "<") {
		return cleanWhitespace(s)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return cleanWhitespace(s)
	}
	doc.Find("br, p, li, h1, h2, h3, h4").Each(func(_ int, sel *goquery.Selection) {
		sel.AppendHtml("\n")
	})
	return cleanWhitespace(doc.Text())
}

func attr(doc *goquery.Document, selector, name string) string {
	v, _ := doc.Find(selector).First().Attr(name)
	return v
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

// cleanWhitespace collapses runs of spaces and keeps at most one blank line.
func cleanWhitespace(s string) string {
	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	blank := false
	for _, line := range lines {
		line = strings.Join(strings.Fields(line), " ")
		if line == "" {
			if !blank && len(out) > 0 {
				out = append(out, "")
			}
			blank = true
			continue
		}
		blank = false
		out = append(out, line)
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}
