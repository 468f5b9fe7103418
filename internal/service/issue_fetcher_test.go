package service

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/MattewMattew/ManagmentBoard/internal/client/redmine"
	"github.com/MattewMattew/ManagmentBoard/internal/credentials"
)

func TestFetchAll_PaginatesUntilTotal(t *testing.T) {
	lister := newFakeLister(250)
	f := &IssueFetcher{Client: lister, Keys: staticKeys("k")}

	res, err := f.FetchAll(context.Background(), redmine.ListIssuesRequest{}, 100)
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if want := []int{0, 100, 200}; !reflect.DeepEqual(lister.offsets, want) {
		t.Fatalf("offsets=%v want %v", lister.offsets, want)
	}
	if len(res.Records) != 250 {
		t.Fatalf("records=%d want 250", len(res.Records))
	}
	for i, rec := range res.Records {
		if string(rec) != string(lister.records[i]) {
			t.Fatalf("record %d out of order: %s", i, rec)
		}
	}
	if res.Status != FetchComplete || res.Pages != 3 || res.Total != 250 {
		t.Fatalf("result=%+v", res)
	}
}

func TestFetchAll_ExactMultipleStopsOnTotal(t *testing.T) {
	lister := newFakeLister(200)
	f := &IssueFetcher{Client: lister, Keys: staticKeys("k")}
	if _, err := f.FetchAll(context.Background(), redmine.ListIssuesRequest{}, 100); err != nil {
		t.Fatalf("err=%v", err)
	}
	if len(lister.offsets) != 2 {
		t.Fatalf("requests=%d want 2", len(lister.offsets))
	}
}

func TestFetchAll_InconsistentTotalStopsOnEmptyPage(t *testing.T) {
	lister := newFakeLister(200)
	lister.total = 500
	f := &IssueFetcher{Client: lister, Keys: staticKeys("k")}

	res, err := f.FetchAll(context.Background(), redmine.ListIssuesRequest{}, 100)
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if len(res.Records) != 200 || len(lister.offsets) != 3 {
		t.Fatalf("records=%d requests=%d", len(res.Records), len(lister.offsets))
	}
}

func TestFetchAll_MissingTotalStopsOnEmptyPage(t *testing.T) {
	lister := newFakeLister(100)
	lister.total = -1
	f := &IssueFetcher{Client: lister, Keys: staticKeys("k")}

	res, err := f.FetchAll(context.Background(), redmine.ListIssuesRequest{}, 50)
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if want := []int{0, 50, 100}; !reflect.DeepEqual(lister.offsets, want) {
		t.Fatalf("offsets=%v want %v", lister.offsets, want)
	}
	if len(res.Records) != 100 || res.Total != -1 {
		t.Fatalf("result=%+v", res)
	}
}

func TestFetchAll_MissingTotalStopsOnShortPage(t *testing.T) {
	lister := newFakeLister(120)
	lister.total = -1
	f := &IssueFetcher{Client: lister, Keys: staticKeys("k")}

	res, err := f.FetchAll(context.Background(), redmine.ListIssuesRequest{}, 50)
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if want := []int{0, 50, 100}; !reflect.DeepEqual(lister.offsets, want) {
		t.Fatalf("offsets=%v want %v", lister.offsets, want)
	}
	if len(res.Records) != 120 || res.Pages != 3 {
		t.Fatalf("result=%+v", res)
	}
}

// offsetBlindLister answers every request with the same full page and no
// total_count, like a server that ignores offset.
type offsetBlindLister struct {
	calls int
}

func (l *offsetBlindLister) ListIssues(ctx context.Context, apiKey string, req redmine.ListIssuesRequest, offset, limit int) (*redmine.IssuePage, error) {
	l.calls++
	return &redmine.IssuePage{Issues: makeRecords(limit, "same"), TotalCount: -1, Offset: 0, Limit: limit}, nil
}

func TestFetchAll_OffsetIgnoredHitsPageLimit(t *testing.T) {
	lister := &offsetBlindLister{}
	f := &IssueFetcher{Client: lister, Keys: staticKeys("k"), MaxPages: 5}

	res, err := f.FetchAll(context.Background(), redmine.ListIssuesRequest{}, 10)
	var fetchErr *FetchError
	if !errors.As(err, &fetchErr) {
		t.Fatalf("err=%v want *FetchError", err)
	}
	if !errors.Is(err, ErrPageLimit) {
		t.Fatalf("err=%v want ErrPageLimit", err)
	}
	if lister.calls != 5 {
		t.Fatalf("calls=%d want 5", lister.calls)
	}
	if fetchErr.Status != FetchPartial || res.Status != FetchPartial {
		t.Fatalf("status=%v/%v want partial", fetchErr.Status, res.Status)
	}
	if len(fetchErr.Records) != 50 || fetchErr.Offset != 50 {
		t.Fatalf("records=%d offset=%d", len(fetchErr.Records), fetchErr.Offset)
	}
}

func TestFetchAll_PartialFailure(t *testing.T) {
	boom := errors.New("connection reset")
	lister := newFakeLister(250)
	lister.failAt = map[int]error{100: boom}
	f := &IssueFetcher{Client: lister, Keys: staticKeys("k")}

	res, err := f.FetchAll(context.Background(), redmine.ListIssuesRequest{}, 100)
	var fetchErr *FetchError
	if !errors.As(err, &fetchErr) {
		t.Fatalf("err=%v want *FetchError", err)
	}
	if !errors.Is(err, boom) {
		t.Fatalf("cause not unwrappable: %v", err)
	}
	if fetchErr.Status != FetchPartial || fetchErr.Offset != 100 || len(fetchErr.Records) != 100 {
		t.Fatalf("fetchErr status=%s offset=%d records=%d", fetchErr.Status, fetchErr.Offset, len(fetchErr.Records))
	}
	if res.Status != FetchPartial || len(res.Records) != 100 {
		t.Fatalf("result status=%s records=%d", res.Status, len(res.Records))
	}
	if len(lister.offsets) != 2 {
		t.Fatalf("requests=%d want 2 (no retry)", len(lister.offsets))
	}
}

func TestFetchAll_FirstPageFailure(t *testing.T) {
	lister := newFakeLister(10)
	lister.failAt = map[int]error{0: &redmine.APIError{Status: 503, Body: "down"}}
	f := &IssueFetcher{Client: lister, Keys: staticKeys("k")}

	_, err := f.FetchAll(context.Background(), redmine.ListIssuesRequest{}, 100)
	var fetchErr *FetchError
	if !errors.As(err, &fetchErr) || fetchErr.Status != FetchEmpty {
		t.Fatalf("err=%v want empty FetchError", err)
	}
	var apiErr *redmine.APIError
	if !errors.As(err, &apiErr) || apiErr.Status != 503 {
		t.Fatalf("api error not reachable: %v", err)
	}
}

func TestFetchAll_NoAPIKey(t *testing.T) {
	lister := newFakeLister(10)
	f := &IssueFetcher{Client: lister, Keys: staticKeys("")}

	if _, err := f.FetchAll(context.Background(), redmine.ListIssuesRequest{}, 100); !errors.Is(err, credentials.ErrNoAPIKey) {
		t.Fatalf("err=%v want ErrNoAPIKey", err)
	}
	if len(lister.offsets) != 0 {
		t.Fatalf("requests=%d want 0", len(lister.offsets))
	}
}

func TestFetchAll_ClampsPageSize(t *testing.T) {
	lister := newFakeLister(5)
	f := &IssueFetcher{Client: lister, Keys: staticKeys("k")}
	if _, err := f.FetchAll(context.Background(), redmine.ListIssuesRequest{}, 500); err != nil {
		t.Fatalf("err=%v", err)
	}
	if lister.limits[0] != redmine.MaxPageSize {
		t.Fatalf("limit=%d want %d", lister.limits[0], redmine.MaxPageSize)
	}
	if normalizePageSize(0) != redmine.MaxPageSize || normalizePageSize(25) != 25 {
		t.Fatalf("normalizePageSize mismatch")
	}
}
