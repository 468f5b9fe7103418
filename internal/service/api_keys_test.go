package service

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/MattewMattew/ManagmentBoard/internal/client/redmine"
	"github.com/MattewMattew/ManagmentBoard/internal/credentials"
)

func TestAPIKeyStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Redmine-API-Key") != "good" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Write([]byte(`{"user":{"id":1}}`))
	}))
	defer srv.Close()

	keys := credentials.NewFileKeyStore(filepath.Join(t.TempDir(), "api_keys.json"))
	svc := &APIKeyService{Keys: keys, Client: redmine.NewClient(srv.Client(), srv.URL)}
	ctx := context.Background()

	st, err := svc.Status(ctx, true)
	if err != nil || st.Configured || st.Valid != nil {
		t.Fatalf("status=%+v err=%v", st, err)
	}

	if err := svc.Save("bad"); err != nil {
		t.Fatalf("save: %v", err)
	}
	st, err = svc.Status(ctx, true)
	if err != nil || !st.Configured || st.Valid == nil || *st.Valid {
		t.Fatalf("status=%+v err=%v", st, err)
	}

	if err := svc.Save("good"); err != nil {
		t.Fatalf("save: %v", err)
	}
	st, err = svc.Status(ctx, true)
	if err != nil || st.Valid == nil || !*st.Valid {
		t.Fatalf("status=%+v err=%v", st, err)
	}

	st, err = svc.Status(ctx, false)
	if err != nil || !st.Configured || st.Valid != nil {
		t.Fatalf("status=%+v err=%v", st, err)
	}
}
