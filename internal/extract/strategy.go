package extract

import (
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// Document wraps a parsed page together with the URL it was fetched from,
// so strategies can resolve relative references.
type Document struct {
	doc  *goquery.Document
	base string
}

// NewDocument parses HTML into a queryable document rooted at baseURL.
func NewDocument(r io.Reader, baseURL string) (*Document, error) {
	node, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return &Document{doc: goquery.NewDocumentFromNode(node), base: baseURL}, nil
}

// BaseURL returns the page URL the document was fetched from.
func (d *Document) BaseURL() string {
	return d.base
}

// Find exposes selector queries to the strategies.
func (d *Document) Find(selector string) *goquery.Selection {
	return d.doc.Find(selector)
}

// Resolve makes a candidate absolute against the document's base URL.
func (d *Document) Resolve(candidate string) string {
	return Resolve(candidate, d.base)
}

// Stylesheets lists the resolved URLs of all external stylesheets.
func (d *Document) Stylesheets() []string {
	var out []string
	d.doc.Find(`link[rel="stylesheet"]`).Each(func(_ int, sel *goquery.Selection) {
		href, ok := sel.Attr("href")
		if !ok || strings.TrimSpace(href) == "" {
			return
		}
		if resolved := d.Resolve(href); resolved != "" {
			out = append(out, resolved)
		}
	})
	return out
}

// Strategy extracts image candidates from a document into a registry and
// reports how many candidates it attempted to add. The count drives the
// fall-back decision, so failed de-duplication still counts.
type Strategy interface {
	Name() string
	Extract(doc *Document, reg *Registry) int
}

// collector pairs a registry with an attempt counter so strategies share
// one add-and-count code path.
type collector struct {
	reg   *Registry
	count int
}

func (c *collector) add(rawURL string) {
	if rawURL == "" {
		return
	}
	c.reg.AddIfAbsent(rawURL)
	c.count++
}

type rule struct {
	hostNeedle string
	strategy   Strategy
}

// Dispatcher routes a document to the first strategy whose host needle
// matches the page host, falling back to the standard strategy. New site
// rules are added by appending to the table; order decides ties.
type Dispatcher struct {
	rules    []rule
	standard Strategy
	logger   *slog.Logger
}

// NewDispatcher builds the default rule table.
func NewDispatcher(logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	standard := &StandardStrategy{}
	return &Dispatcher{
		standard: standard,
		logger:   logger,
		rules: []rule{
			{"google.com", &GoogleStrategy{standard: standard}},
			{"irasutoya.com", &IrasutoyaStrategy{standard: standard}},
			{"bing.com", &BingStrategy{standard: standard}},
			{"yahoo.co.jp", &YahooStrategy{standard: standard}},
			{"ac-illust.com", &IllustACStrategy{standard: standard}},
			{"pixiv.net", &PixivStrategy{standard: standard}},
			{"freepik.com", &FreepikStrategy{standard: standard, logger: logger}},
		},
	}
}

// Dispatch clears the registry, picks a strategy by page host, and runs
// it. It returns the name of the strategy that ran.
func (d *Dispatcher) Dispatch(doc *Document, reg *Registry) string {
	reg.Clear()

	strategy := d.pick(doc.BaseURL())
	attempted := strategy.Extract(doc, reg)
	d.logger.Debug("extraction complete",
		"strategy", strategy.Name(),
		"attempted", attempted,
		"records", reg.Len(),
	)
	return strategy.Name()
}

func (d *Dispatcher) pick(pageURL string) Strategy {
	parsed, err := url.Parse(pageURL)
	if err != nil {
		return d.standard
	}
	host := strings.ToLower(parsed.Hostname())
	for _, r := range d.rules {
		if strings.Contains(host, r.hostNeedle) {
			return r.strategy
		}
	}
	return d.standard
}
