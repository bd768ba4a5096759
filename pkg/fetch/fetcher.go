// ABOUTME: Byte acquisition for remote decode sources
// ABOUTME: Resolves http(s), file:// and local path references into raw bytes
package fetch

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// ErrTooLarge is returned when a source exceeds the configured size limit
var ErrTooLarge = errors.New("source exceeds size limit")

// Config holds fetcher configuration
type Config struct {
	// MaxBytes limits the size of a fetched source. Zero means no limit.
	MaxBytes int64

	// CacheDir enables an on-disk cache of remote sources keyed by URL hash.
	// Empty disables caching.
	CacheDir string

	// Client overrides the HTTP client (default: a client with no timeout)
	Client *http.Client
}

// Fetcher turns a source reference into bytes
type Fetcher struct {
	config Config
	client *http.Client

	// cacheMu serializes cache writes for the same key
	cacheMu sync.Mutex
}

// New creates a fetcher
func New(config Config) (*Fetcher, error) {
	client := config.Client
	if client == nil {
		client = &http.Client{}
	}

	if config.CacheDir != "" {
		if err := os.MkdirAll(config.CacheDir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create cache directory: %w", err)
		}
	}

	return &Fetcher{
		config: config,
		client: client,
	}, nil
}

// Fetch resolves ref into raw bytes. Supported references are http(s) URLs,
// file:// URLs and plain filesystem paths.
func (f *Fetcher) Fetch(ctx context.Context, ref string) ([]byte, error) {
	if ref == "" {
		return nil, errors.New("empty source reference")
	}

	u, err := url.Parse(ref)
	if err != nil {
		return nil, fmt.Errorf("invalid source reference: %w", err)
	}

	switch u.Scheme {
	case "http", "https":
		return f.fetchHTTP(ctx, ref)
	case "file":
		return f.readFile(u.Path)
	case "":
		return f.readFile(ref)
	default:
		return nil, fmt.Errorf("unsupported source scheme: %s", u.Scheme)
	}
}

func (f *Fetcher) fetchHTTP(ctx context.Context, ref string) ([]byte, error) {
	cachePath := f.cachePath(ref)
	if cachePath != "" {
		if data, err := os.ReadFile(cachePath); err == nil {
			log.Printf("Source cache hit: %s", cachePath)
			return data, nil
		}
	}

	log.Printf("Fetching source: %s", ref)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ref, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch source: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("source fetch failed: HTTP %d", resp.StatusCode)
	}

	data, err := f.readLimited(resp.Body)
	if err != nil {
		return nil, err
	}

	if cachePath != "" {
		f.storeCache(cachePath, data)
	}
	return data, nil
}

func (f *Fetcher) readFile(path string) ([]byte, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open source: %w", err)
	}
	defer file.Close()

	return f.readLimited(file)
}

func (f *Fetcher) readLimited(r io.Reader) ([]byte, error) {
	if f.config.MaxBytes <= 0 {
		data, err := io.ReadAll(r)
		if err != nil {
			return nil, fmt.Errorf("failed to read source: %w", err)
		}
		return data, nil
	}

	// Read one byte past the limit so an exact-size source is accepted
	data, err := io.ReadAll(io.LimitReader(r, f.config.MaxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read source: %w", err)
	}
	if int64(len(data)) > f.config.MaxBytes {
		return nil, fmt.Errorf("%w (%d bytes)", ErrTooLarge, f.config.MaxBytes)
	}
	return data, nil
}

func (f *Fetcher) cachePath(ref string) string {
	if f.config.CacheDir == "" {
		return ""
	}
	hash := sha256.Sum256([]byte(ref))
	return filepath.Join(f.config.CacheDir, fmt.Sprintf("%x%s", hash[:8], getExtension(ref)))
}

func (f *Fetcher) storeCache(path string, data []byte) {
	f.cacheMu.Lock()
	defer f.cacheMu.Unlock()

	tmp := path + ".part"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		log.Printf("Failed to write source cache: %v", err)
		return
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		log.Printf("Failed to commit source cache: %v", err)
		return
	}
	log.Printf("Source cached: %s", path)
}

// Cleanup removes the cache directory
func (f *Fetcher) Cleanup() error {
	if f.config.CacheDir == "" {
		return nil
	}
	return os.RemoveAll(f.config.CacheDir)
}

// getExtension extracts the file extension from a URL, ignoring the query string
func getExtension(ref string) string {
	ref = strings.Split(ref, "?")[0]
	return filepath.Ext(ref)
}
