package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/MattewMattew/ManagmentBoard/internal/client/redmine"
	"github.com/MattewMattew/ManagmentBoard/internal/credentials"
)

type fakeLister struct {
	records []json.RawMessage
	// total is reported as total_count; use -1 to omit it.
	total   int
	failAt  map[int]error
	offsets []int
	limits  []int
}

func newFakeLister(n int) *fakeLister {
	return &fakeLister{records: makeRecords(n, "v1"), total: n}
}

func (f *fakeLister) ListIssues(ctx context.Context, apiKey string, req redmine.ListIssuesRequest, offset, limit int) (*redmine.IssuePage, error) {
	f.offsets = append(f.offsets, offset)
	f.limits = append(f.limits, limit)
	if err, ok := f.failAt[offset]; ok {
		return nil, err
	}
	page := []json.RawMessage{}
	if offset < len(f.records) {
		end := offset + limit
		if end > len(f.records) {
			end = len(f.records)
		}
		page = f.records[offset:end]
	}
	return &redmine.IssuePage{Issues: page, TotalCount: f.total, Offset: offset, Limit: limit}, nil
}

type staticKeys string

func (k staticKeys) APIKey() (string, error) {
	if k == "" {
		return "", credentials.ErrNoAPIKey
	}
	return string(k), nil
}

func makeRecords(n int, subject string) []json.RawMessage {
	out := make([]json.RawMessage, 0, n)
	for i := 1; i <= n; i++ {
		out = append(out, json.RawMessage(fmt.Sprintf(
			`{"id":%d,"subject":"%s %d","created_on":"2025-01-02T03:04:05Z"}`, i, subject, i)))
	}
	return out
}
