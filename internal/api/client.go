// Package api reads the book catalog and book files from a library, which is
// either a local directory or an HTTP base URL.
package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gosimple/slug"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/justyntemme/jianyue/pkg/models"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ErrManifest wraps every failure to obtain a usable catalog manifest
var ErrManifest = errors.New("unable to load book list")

// ManifestName is the catalog file inside the library
const ManifestName = "index.json"

// Client reads from one library
type Client struct {
	baseURL    string
	httpClient *http.Client
	log        *zap.Logger
}

// NewClient creates a client for base, a directory path or http(s) URL
func NewClient(base string, log *zap.Logger) *Client {
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{
		baseURL: strings.TrimRight(base, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		log: log,
	}
}

func isRemote(loc string) bool {
	return strings.HasPrefix(loc, "http://") || strings.HasPrefix(loc, "https://")
}

// request performs a GET and returns the body
func (c *Client) request(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return body, nil
}

// parseResponse unmarshals a JSON body
func parseResponse[T any](body []byte) (T, error) {
	var result T
	if err := json.Unmarshal(body, &result); err != nil {
		return result, err
	}
	return result, nil
}

// FetchManifest returns the books listed in the library's index.json.
// An empty list is valid. Any failure is reported as ErrManifest.
func (c *Client) FetchManifest(ctx context.Context) ([]models.BookRef, error) {
	var (
		body []byte
		err  error
	)
	if isRemote(c.baseURL) {
		u := c.baseURL + "/" + ManifestName + "?_=" + strconv.FormatInt(time.Now().UnixMilli(), 10)
		body, err = c.request(ctx, u)
	} else {
		body, err = os.ReadFile(filepath.Join(c.baseURL, ManifestName))
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrManifest, err)
	}

	books, err := parseResponse[[]models.BookRef](body)
	if err != nil {
		return nil, fmt.Errorf("%w: malformed %s: %w", ErrManifest, ManifestName, err)
	}
	return c.normalize(books), nil
}

// normalize fills missing slugs and drops duplicates, keeping the first
func (c *Client) normalize(books []models.BookRef) []models.BookRef {
	seen := make(map[string]struct{}, len(books))
	out := make([]models.BookRef, 0, len(books))
	for _, b := range books {
		if b.Slug == "" {
			b.Slug = deriveSlug(b)
		}
		if b.Slug == "" {
			c.log.Warn("skipping manifest entry without slug", zap.String("file", b.File))
			continue
		}
		if _, dup := seen[b.Slug]; dup {
			c.log.Warn("duplicate slug in manifest", zap.String("slug", b.Slug), zap.String("file", b.File))
			continue
		}
		seen[b.Slug] = struct{}{}
		out = append(out, b)
	}
	return out
}

func deriveSlug(b models.BookRef) string {
	if b.Title != "" {
		return slug.Make(b.Title)
	}
	stem := strings.TrimSuffix(path.Base(b.File), path.Ext(b.File))
	if stem == "." || stem == "/" {
		return ""
	}
	return slug.Make(stem)
}

// DocumentURL returns the location of a book's file inside the library
func (c *Client) DocumentURL(b models.BookRef) string {
	return c.baseURL + "/" + url.PathEscape(b.File)
}

// FetchBook reads the book at a location returned by DocumentURL
func (c *Client) FetchBook(ctx context.Context, loc string) ([]byte, error) {
	if isRemote(loc) {
		data, err := c.request(ctx, loc)
		if err != nil {
			return nil, fmt.Errorf("fetch %s: %w", loc, err)
		}
		return data, nil
	}

	dir, file := path.Split(filepath.ToSlash(loc))
	name, err := url.PathUnescape(file)
	if err != nil {
		return nil, fmt.Errorf("bad book location %s: %w", loc, err)
	}
	data, err := os.ReadFile(filepath.Join(filepath.FromSlash(dir), name))
	if err != nil {
		return nil, fmt.Errorf("read book: %w", err)
	}
	return data, nil
}
