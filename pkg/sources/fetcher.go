package sources

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/agentstation/harvester/internal/transport"
	"github.com/agentstation/harvester/pkg/constants"
	"github.com/agentstation/harvester/pkg/errors"
	"github.com/agentstation/harvester/pkg/records"
)

// Fetcher retrieves the remote catalog of a source.
type Fetcher interface {
	Fetch(ctx context.Context, src Source) ([]records.Remote, error)
}

// FetcherFunc adapts a function to the Fetcher interface.
type FetcherFunc func(ctx context.Context, src Source) ([]records.Remote, error)

// Fetch implements Fetcher.
func (f FetcherFunc) Fetch(ctx context.Context, src Source) ([]records.Remote, error) {
	return f(ctx, src)
}

// NewFetcher returns a fetcher that reads http(s) URLs over the network and
// everything else from the local filesystem.
func NewFetcher() Fetcher {
	httpFetcher := NewHTTPFetcher()
	fileFetcher := &FileFetcher{}
	return FetcherFunc(func(ctx context.Context, src Source) ([]records.Remote, error) {
		if strings.HasPrefix(src.URL, "http://") || strings.HasPrefix(src.URL, "https://") {
			return httpFetcher.Fetch(ctx, src)
		}
		return fileFetcher.Fetch(ctx, src)
	})
}

// HTTPFetcher downloads a remote data.json document.
type HTTPFetcher struct {
	Client   *transport.Client
	MaxBytes int64
}

// NewHTTPFetcher creates an HTTP fetcher with default timeout and size limit.
func NewHTTPFetcher() *HTTPFetcher {
	return &HTTPFetcher{
		Client:   transport.New(constants.DefaultHTTPTimeout, "harvester/"+constants.HarvesterVersion),
		MaxBytes: constants.MaxCatalogBytes,
	}
}

// Fetch implements Fetcher.
func (f *HTTPFetcher) Fetch(ctx context.Context, src Source) ([]records.Remote, error) {
	resp, err := f.Client.Get(ctx, src.URL, src.Auth)
	if err != nil {
		return nil, errors.NewFetchError(src.ID.String(), src.URL, 0, "request failed", err)
	}
	if resp.StatusCode != http.StatusOK {
		_ = resp.Body.Close()
		return nil, errors.NewFetchError(src.ID.String(), src.URL, resp.StatusCode, resp.Status, nil)
	}

	limit := f.MaxBytes
	if limit <= 0 {
		limit = constants.MaxCatalogBytes
	}
	body, err := transport.ReadLimited(resp, limit)
	if errors.Is(err, transport.ErrTooLarge) {
		return nil, errors.NewFetchError(src.ID.String(), src.URL, resp.StatusCode,
			fmt.Sprintf("catalog exceeds %d bytes", limit), nil)
	}
	if err != nil {
		return nil, errors.NewFetchError(src.ID.String(), src.URL, resp.StatusCode, "read body", err)
	}

	datasets, err := DecodeCatalog(body)
	if err != nil {
		return nil, errors.NewFetchError(src.ID.String(), src.URL, resp.StatusCode, "malformed catalog", err)
	}
	return datasets, nil
}

// FileFetcher reads a data.json document from disk. A "file://" prefix on
// the source URL is stripped.
type FileFetcher struct{}

// Fetch implements Fetcher.
func (f *FileFetcher) Fetch(ctx context.Context, src Source) ([]records.Remote, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.NewFetchError(src.ID.String(), src.URL, 0, "canceled", err)
	}
	path := strings.TrimPrefix(src.URL, "file://")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.NewFetchError(src.ID.String(), src.URL, 0, "read file", err)
	}
	datasets, err := DecodeCatalog(data)
	if err != nil {
		return nil, errors.NewFetchError(src.ID.String(), src.URL, 0, "malformed catalog", err)
	}
	return datasets, nil
}

// DecodeCatalog decodes a catalog document. Both a bare array of datasets
// and a catalog object with a "dataset" array are accepted.
func DecodeCatalog(data []byte) ([]records.Remote, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, errors.NewParseError("json", "", "empty document", nil)
	}

	var raw []json.RawMessage
	switch data[0] {
	case '[':
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, errors.WrapParse("json", "", err)
		}
	case '{':
		var catalog struct {
			Dataset []json.RawMessage `json:"dataset"`
		}
		if err := json.Unmarshal(data, &catalog); err != nil {
			return nil, errors.WrapParse("json", "", err)
		}
		if catalog.Dataset == nil {
			return nil, errors.NewParseError("json", "", "catalog object has no dataset array", nil)
		}
		raw = catalog.Dataset
	default:
		return nil, errors.NewParseError("json", "", "document is neither an array nor a catalog object", nil)
	}

	datasets := make([]records.Remote, 0, len(raw))
	for i, item := range raw {
		var remote records.Remote
		if err := json.Unmarshal(item, &remote); err != nil || remote == nil {
			return nil, errors.NewParseError("json", "", fmt.Sprintf("dataset %d is not an object", i), err)
		}
		datasets = append(datasets, remote)
	}
	return datasets, nil
}
