package redmine

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// ErrMalformedPage is wrapped by page decoding failures.
var ErrMalformedPage = errors.New("malformed issue page")

// IssuePage is one window of the remote listing. TotalCount is -1 when the
// server omitted total_count.
type IssuePage struct {
	Issues     []json.RawMessage
	TotalCount int
	Offset     int
	Limit      int
}

// ListIssuesRequest is the static listing filter applied to every page.
type ListIssuesRequest struct {
	// Status is passed as status_id; "*" selects open and closed issues.
	Status            string
	ExcludeProjectIDs []int
	// CreatedSince is a YYYY-MM-DD floor on created_on.
	CreatedSince string
	Sort         string
}

func (r ListIssuesRequest) Values() url.Values {
	q := url.Values{}
	if s := strings.TrimSpace(r.Status); s != "" {
		q.Set("status_id", s)
	}
	sort := strings.TrimSpace(r.Sort)
	if sort == "" {
		sort = "id"
	}
	q.Set("sort", sort)

	ids := make([]string, 0, len(r.ExcludeProjectIDs))
	for _, id := range r.ExcludeProjectIDs {
		if id > 0 {
			ids = append(ids, strconv.Itoa(id))
		}
	}
	if len(ids) > 0 {
		q.Add("f[]", "project_id")
		q.Set("op[project_id]", "!")
		for _, id := range ids {
			q.Add("v[project_id][]", id)
		}
	}
	if since := strings.TrimSpace(r.CreatedSince); since != "" {
		q.Add("f[]", "created_on")
		q.Set("op[created_on]", ">=")
		q.Add("v[created_on][]", since)
	}
	return q
}

func parseIssuePage(body []byte) (*IssuePage, error) {
	var raw struct {
		Issues     *[]json.RawMessage `json:"issues"`
		TotalCount *int               `json:"total_count"`
		Offset     int                `json:"offset"`
		Limit      int                `json:"limit"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPage, err)
	}
	if raw.Issues == nil {
		return nil, fmt.Errorf("%w: missing issues array", ErrMalformedPage)
	}
	page := &IssuePage{
		Issues: *raw.Issues,
		Offset: raw.Offset,
		Limit:  raw.Limit,
	}
	if raw.TotalCount != nil {
		page.TotalCount = *raw.TotalCount
	} else {
		page.TotalCount = -1
	}
	return page, nil
}
