package provider

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jason-czar/freedomains/internal/dnsspec"
)

func newTestClient(url string) *Client {
	return NewClient(Config{
		BaseURL:      url,
		APIToken:     "secret",
		ParentDomain: "example.com",
	})
}

func TestCheckAvailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer secret" {
			t.Fatalf("missing bearer token")
		}
		var req map[string]any
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if req["action"] != "check" || req["subdomain"] != "acme" || req["domain"] != "example.com" {
			t.Fatalf("unexpected request: %+v", req)
		}
		json.NewEncoder(w).Encode(map[string]any{"success": true, "available": true})
	}))
	defer srv.Close()

	available, err := newTestClient(srv.URL).CheckAvailable(context.Background(), "acme")
	if err != nil {
		t.Fatalf("CheckAvailable: %v", err)
	}
	if !available {
		t.Error("expected label to be available")
	}
}

func TestCreateRecordSendsFQDN(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Action    string `json:"action"`
			Subdomain string `json:"subdomain"`
			Record    struct {
				Type    string `json:"type"`
				Name    string `json:"name"`
				Content string `json:"content"`
				Proxied bool   `json:"proxied"`
			} `json:"record"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if req.Action != "add_record" {
			t.Fatalf("action = %s", req.Action)
		}
		if req.Subdomain != "acme" {
			t.Fatalf("subdomain = %s; want acme", req.Subdomain)
		}
		if req.Record.Name != "acme.example.com" {
			t.Fatalf("record name = %s; want fully qualified", req.Record.Name)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"record": Record{
				ID: "rec-123", Type: req.Record.Type, Name: req.Record.Name,
				Content: req.Record.Content, Proxied: req.Record.Proxied,
			},
		})
	}))
	defer srv.Close()

	record, err := newTestClient(srv.URL).CreateRecord(context.Background(), dnsspec.RecordSpec{
		Role:    dnsspec.RoleMainA,
		Type:    dnsspec.RecordTypeA,
		Name:    "acme.example.com",
		Content: "76.76.21.21",
		TTL:     dnsspec.TTLAutomatic,
		Proxied: true,
	})
	if err != nil {
		t.Fatalf("CreateRecord: %v", err)
	}
	if record.ID != "rec-123" {
		t.Errorf("record ID = %s; want rec-123", record.ID)
	}
}

func TestDeleteRecordNotFoundIsSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"success": false,
			"errors":  []map[string]any{{"code": 81044, "message": "Record not found"}},
		})
	}))
	defer srv.Close()

	if err := newTestClient(srv.URL).DeleteRecord(context.Background(), "gone"); err != nil {
		t.Errorf("deleting an already-deleted record should succeed, got %v", err)
	}
}

func TestRejectedError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"success": false,
			"errors":  []map[string]any{{"code": 9000, "message": "zone locked"}},
		})
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).ListRecords(context.Background(), "acme.example.com")
	var rejected *RejectedError
	if !errors.As(err, &rejected) {
		t.Fatalf("expected RejectedError, got %v", err)
	}
	if rejected.Action != "list_records" {
		t.Errorf("action = %s; want list_records", rejected.Action)
	}
	if !IsRejected(err) {
		t.Error("IsRejected should report true")
	}
}

func TestUnavailableOn5xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).CheckAvailable(context.Background(), "acme")
	if !errors.Is(err, ErrUnavailable) {
		t.Errorf("expected ErrUnavailable, got %v", err)
	}
}

func TestTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		json.NewEncoder(w).Encode(map[string]any{"success": true})
	}))
	defer srv.Close()

	client := NewClient(Config{
		BaseURL:      srv.URL,
		APIToken:     "secret",
		ParentDomain: "example.com",
		Timeout:      20 * time.Millisecond,
	})

	_, err := client.CheckAvailable(context.Background(), "acme")
	if !errors.Is(err, ErrTimeout) {
		t.Errorf("expected ErrTimeout, got %v", err)
	}
}

func TestMutationsOutliveCallerCancellation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(50 * time.Millisecond)
		var req map[string]any
		json.NewDecoder(r.Body).Decode(&req)
		if req["action"] == "add_record" {
			json.NewEncoder(w).Encode(map[string]any{
				"success": true,
				"record":  Record{ID: "rec-9", Type: "A", Name: "acme.example.com"},
			})
			return
		}
		json.NewEncoder(w).Encode(map[string]any{"success": true})
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	record, err := newTestClient(srv.URL).CreateRecord(ctx, dnsspec.RecordSpec{
		Role:    dnsspec.RoleMainA,
		Type:    dnsspec.RecordTypeA,
		Name:    "acme.example.com",
		Content: "76.76.21.21",
		TTL:     dnsspec.TTLAutomatic,
	})
	if err != nil {
		t.Fatalf("in-flight create must complete despite cancellation: %v", err)
	}
	if record.ID != "rec-9" {
		t.Errorf("record ID = %s; want rec-9", record.ID)
	}

	// Rollback deletes run on the same cancelled context
	if err := newTestClient(srv.URL).DeleteRecord(ctx, "rec-9"); err != nil {
		t.Errorf("delete must complete despite cancellation: %v", err)
	}
}

func TestReadsHonorCancellation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(100 * time.Millisecond)
		json.NewEncoder(w).Encode(map[string]any{"success": true, "available": true})
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := newTestClient(srv.URL).CheckAvailable(ctx, "acme"); err == nil {
		t.Error("a cancelled read should not wait out the gateway")
	}
}

func TestListRecords(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req map[string]any
		json.NewDecoder(r.Body).Decode(&req)
		if req["action"] != "list_records" || req["subdomain"] != "_verify.acme" {
			t.Fatalf("unexpected request: %+v", req)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"records": []Record{{ID: "rec-1", Type: "CNAME", Name: "_verify.acme.example.com"}},
		})
	}))
	defer srv.Close()

	records, err := newTestClient(srv.URL).ListRecords(context.Background(), "_verify.acme.example.com")
	if err != nil {
		t.Fatalf("ListRecords: %v", err)
	}
	if len(records) != 1 || records[0].ID != "rec-1" {
		t.Fatalf("unexpected records: %+v", records)
	}
}
