package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/MattewMattew/ManagmentBoard/internal/client/redmine"
)

type FetchStatus string

const (
	FetchComplete FetchStatus = "complete"
	// FetchPartial: a page failed after some records were accumulated.
	FetchPartial FetchStatus = "partial"
	// FetchEmpty: a page failed before anything was accumulated.
	FetchEmpty FetchStatus = "empty"
)

// IssueLister is the slice of the Redmine client the fetcher needs.
type IssueLister interface {
	ListIssues(ctx context.Context, apiKey string, req redmine.ListIssuesRequest, offset, limit int) (*redmine.IssuePage, error)
}

// APIKeySource returns the current Redmine API key. It is consulted once per
// fetch so a rotated key takes effect on the next run.
type APIKeySource interface {
	APIKey() (string, error)
}

const defaultMaxPages = 10000

// ErrPageLimit ends a fetch that kept receiving pages past MaxPages.
var ErrPageLimit = errors.New("issue page limit reached")

type IssueFetcher struct {
	Client IssueLister
	Keys   APIKeySource
	Logger *zap.Logger
	// MaxPages caps the requests of one fetch; 0 means defaultMaxPages.
	MaxPages int
}

type FetchResult struct {
	Records []json.RawMessage
	Status  FetchStatus
	Pages   int
	// Total is the last total_count reported by the server, -1 if never sent.
	Total int
}

// FetchError stops a fetch midway. Records holds everything accumulated
// before the failing page.
type FetchError struct {
	Status  FetchStatus
	Records []json.RawMessage
	Offset  int
	Cause   error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch issues failed at offset %d (%s, %d records): %v", e.Offset, e.Status, len(e.Records), e.Cause)
}

func (e *FetchError) Unwrap() error {
	return e.Cause
}

// FetchAll walks /issues.json from offset 0 until a page comes back empty or
// the accumulated count reaches total_count. Without total_count a short page
// also ends the walk. One attempt per page; the first failure ends the walk
// with a *FetchError.
func (f *IssueFetcher) FetchAll(ctx context.Context, req redmine.ListIssuesRequest, pageSize int) (FetchResult, error) {
	if f == nil || f.Client == nil {
		return FetchResult{}, fmt.Errorf("redmine client is nil")
	}
	if f.Keys == nil {
		return FetchResult{}, fmt.Errorf("api key source is nil")
	}
	apiKey, err := f.Keys.APIKey()
	if err != nil {
		return FetchResult{}, err
	}
	pageSize = normalizePageSize(pageSize)
	maxPages := f.MaxPages
	if maxPages <= 0 {
		maxPages = defaultMaxPages
	}

	result := FetchResult{Status: FetchComplete, Total: -1}
	offset := 0
	for {
		var page *redmine.IssuePage
		var err error
		if result.Pages >= maxPages {
			err = fmt.Errorf("%w: %d pages", ErrPageLimit, maxPages)
		} else {
			page, err = f.Client.ListIssues(ctx, apiKey, req, offset, pageSize)
		}
		if err != nil {
			status := FetchEmpty
			if len(result.Records) > 0 {
				status = FetchPartial
			}
			result.Status = status
			if f.Logger != nil {
				f.Logger.Warn("issue page fetch failed",
					zap.Int("offset", offset),
					zap.Int("accumulated", len(result.Records)),
					zap.Error(err),
				)
			}
			return result, &FetchError{
				Status:  status,
				Records: result.Records,
				Offset:  offset,
				Cause:   err,
			}
		}
		result.Pages++
		if page.TotalCount >= 0 {
			result.Total = page.TotalCount
		}
		if f.Logger != nil {
			f.Logger.Debug("issue page fetched",
				zap.Int("offset", offset),
				zap.Int("count", len(page.Issues)),
				zap.Int("total", page.TotalCount),
			)
		}
		if len(page.Issues) == 0 {
			break
		}
		result.Records = append(result.Records, page.Issues...)
		if page.TotalCount >= 0 && len(result.Records) >= page.TotalCount {
			break
		}
		if page.TotalCount < 0 && len(page.Issues) < pageSize {
			break
		}
		offset += len(page.Issues)
	}
	return result, nil
}

func normalizePageSize(size int) int {
	if size <= 0 || size > redmine.MaxPageSize {
		return redmine.MaxPageSize
	}
	return size
}
