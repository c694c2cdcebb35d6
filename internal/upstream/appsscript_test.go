package upstream

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dennisdiepolder/activations/backend/internal/parser"
	"github.com/dennisdiepolder/activations/backend/internal/types"
	"github.com/google/go-cmp/cmp"
	"github.com/rs/zerolog"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) *AppsScriptClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewAppsScriptClient(srv.URL+"/exec", 5*time.Second, zerolog.Nop())
}

func TestAppsScriptListSources(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/exec" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.URL.Query().Get("action") != "getSheets" {
			t.Errorf("unexpected action %s", r.URL.Query().Get("action"))
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"name":"Master Sheet","date":"Master Sheet"},{"name":"2 Jan","date":"2025-01-02"}]`))
	})

	got, err := client.ListSources(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []types.SheetDescriptor{
		{Name: "Master Sheet", PeriodLabel: "Master Sheet"},
		{Name: "2 Jan", PeriodLabel: "2025-01-02"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ListSources() mismatch (-want +got):\n%s", diff)
	}
}

func TestAppsScriptFetchRows(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("action") != "getData" || q.Get("sheet") != "Master Sheet" {
			t.Errorf("unexpected query %s", r.URL.RawQuery)
		}
		w.Write([]byte(`[["h"],["h"],["E1","Alice",1,2,3,4,10,8,2]]`))
	})

	rows, err := client.FetchRows(context.Background(), "Master Sheet")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(rows))
	}
	if rows[2][1] != "Alice" || rows[2][6] != 10.0 {
		t.Errorf("unexpected row %v", rows[2])
	}
}

func TestAppsScriptErrors(t *testing.T) {
	tests := []struct {
		name          string
		status        int
		body          string
		wantTransport bool
		wantFormat    bool
	}{
		{"server error", http.StatusInternalServerError, `oops`, true, false},
		{"not found", http.StatusNotFound, `[]`, true, false},
		{"error object", http.StatusOK, `{"error":"Sheet not found"}`, false, true},
		{"html page", http.StatusOK, `<html>login</html>`, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			})

			_, rowsErr := client.FetchRows(context.Background(), "x")
			_, listErr := client.ListSources(context.Background())

			for _, err := range []error{rowsErr, listErr} {
				var te *TransportError
				var fe *parser.FormatError
				if got := errors.As(err, &te); got != tt.wantTransport {
					t.Errorf("TransportError: expected %v, got %v (%v)", tt.wantTransport, got, err)
				}
				if got := errors.As(err, &fe); got != tt.wantFormat {
					t.Errorf("FormatError: expected %v, got %v (%v)", tt.wantFormat, got, err)
				}
				if tt.wantTransport && te.StatusCode != tt.status {
					t.Errorf("expected status %d, got %d", tt.status, te.StatusCode)
				}
			}
		})
	}
}

func TestAppsScriptUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	client := NewAppsScriptClient(url, time.Second, zerolog.Nop())
	_, err := client.FetchRows(context.Background(), "Master Sheet")

	var te *TransportError
	if !errors.As(err, &te) {
		t.Fatalf("expected TransportError, got %v", err)
	}
	if te.StatusCode != 0 {
		t.Errorf("expected no status code, got %d", te.StatusCode)
	}
}

func TestAppsScriptEscapesSheetName(t *testing.T) {
	var got string
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		got = r.URL.Query().Get("sheet")
		w.Write([]byte(`[]`))
	})

	if _, err := client.FetchRows(context.Background(), "Jan 2 & 3"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "Jan 2 & 3" {
		t.Errorf("expected sheet name to round-trip, got %q", got)
	}
}
