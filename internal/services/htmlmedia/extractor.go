// Package htmlmedia scans HTML pages for embedded audio and video
// elements, the fallback for pages the extraction tool has no
// extractor for.
package htmlmedia

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/amaumene/mediastash/internal/models"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/html"
)

// PageMedia describes the embedded media element found in a page
type PageMedia struct {
	MediaURL string          // absolute URL or local path of the media file
	Kind     models.MediaType
	Title    string          // page <title>, "" when absent
}

// Client fetches and scans HTML pages
type Client struct {
	httpClient *http.Client
	logger     *logrus.Logger
}

// NewClient creates a new HTML media client
func NewClient(logger *logrus.Logger) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: logger,
	}
}

// ExtractMediaURL fetches reference (an HTTP(S) URL or a local path) and
// returns the first embedded media element found in it
func (c *Client) ExtractMediaURL(ctx context.Context, reference string) (*PageMedia, error) {
	if strings.HasPrefix(reference, "http://") || strings.HasPrefix(reference, "https://") {
		return c.extractRemote(ctx, reference)
	}
	return c.extractLocal(reference)
}

func (c *Client) extractRemote(ctx context.Context, pageURL string) (*PageMedia, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	c.logger.WithField("url", pageURL).Debug("Scanning page for embedded media")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected HTTP status %d for page", resp.StatusCode)
	}

	scan, err := scanPage(resp.Body)
	if err != nil {
		return nil, err
	}

	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("unparseable page URL: %w", err)
	}
	ref, err := url.Parse(scan.src)
	if err != nil {
		return nil, fmt.Errorf("unparseable media src %q: %w", scan.src, err)
	}

	return &PageMedia{
		MediaURL: base.ResolveReference(ref).String(),
		Kind:     scan.kind,
		Title:    scan.title,
	}, nil
}

func (c *Client) extractLocal(path string) (*PageMedia, error) {
	path = strings.TrimPrefix(path, "file://")

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open page file: %w", err)
	}
	defer f.Close()

	scan, err := scanPage(f)
	if err != nil {
		return nil, err
	}

	// Relative src resolves against the page file's directory
	src := scan.src
	if !filepath.IsAbs(src) && !strings.Contains(src, "://") {
		src = filepath.Join(filepath.Dir(path), src)
	}

	return &PageMedia{
		MediaURL: src,
		Kind:     scan.kind,
		Title:    scan.title,
	}, nil
}

type pageScan struct {
	src   string
	kind  models.MediaType
	title string
}

// scanPage walks the HTML tree for the first playable media element.
// Direct src attributes on <audio>/<video> win over nested <source>
// tags, and audio wins over video within each group.
func scanPage(r io.Reader) (*pageScan, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	scan := &pageScan{}
	var audioSrc, videoSrc, audioSourceSrc, videoSourceSrc string

	var walk func(n *html.Node, enclosing string)
	walk = func(n *html.Node, enclosing string) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "title":
				if scan.title == "" && n.FirstChild != nil && n.FirstChild.Type == html.TextNode {
					scan.title = strings.TrimSpace(n.FirstChild.Data)
				}
			case "audio":
				if src := attrValue(n, "src"); src != "" && audioSrc == "" {
					audioSrc = src
				}
				enclosing = n.Data
			case "video":
				if src := attrValue(n, "src"); src != "" && videoSrc == "" {
					videoSrc = src
				}
				enclosing = n.Data
			case "source":
				if src := attrValue(n, "src"); src != "" {
					switch enclosing {
					case "audio":
						if audioSourceSrc == "" {
							audioSourceSrc = src
						}
					case "video":
						if videoSourceSrc == "" {
							videoSourceSrc = src
						}
					}
				}
			}
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child, enclosing)
		}
	}
	walk(doc, "")

	switch {
	case audioSrc != "":
		scan.src, scan.kind = audioSrc, models.MediaTypeAudio
	case videoSrc != "":
		scan.src, scan.kind = videoSrc, models.MediaTypeVideo
	case audioSourceSrc != "":
		scan.src, scan.kind = audioSourceSrc, models.MediaTypeAudio
	case videoSourceSrc != "":
		scan.src, scan.kind = videoSourceSrc, models.MediaTypeVideo
	default:
		return nil, fmt.Errorf("no embedded media elements found")
	}

	return scan, nil
}

func attrValue(n *html.Node, name string) string {
	for _, a := range n.Attr {
		if a.Key == name {
			return a.Val
		}
	}
	return ""
}
