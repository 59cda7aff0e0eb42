package httpx

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func setupTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	return gin.New()
}

func TestOK(t *testing.T) {
	r := setupTestRouter()
	r.GET("/domains/check", func(c *gin.Context) {
		OK(c, gin.H{"label": "acme", "available": true})
	})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/domains/check", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status %d, got %d", http.StatusOK, w.Code)
	}

	var resp Response
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to unmarshal response: %v", err)
	}

	if resp.Code != CodeSuccess {
		t.Errorf("Expected code %d, got %d", CodeSuccess, resp.Code)
	}

	if resp.Message != "success" {
		t.Errorf("Expected message 'success', got '%s'", resp.Message)
	}

	data, ok := resp.Data.(map[string]any)
	if !ok || data["label"] != "acme" {
		t.Errorf("Expected availability payload, got %v", resp.Data)
	}
}

func TestOKMsg(t *testing.T) {
	r := setupTestRouter()
	r.POST("/domains", func(c *gin.Context) {
		OKMsg(c, "registration created", gin.H{"fqdn": "acme.example.com"})
	})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/domains", nil)
	r.ServeHTTP(w, req)

	var resp Response
	json.Unmarshal(w.Body.Bytes(), &resp)

	if resp.Code != CodeSuccess {
		t.Errorf("Expected code %d, got %d", CodeSuccess, resp.Code)
	}

	if resp.Message != "registration created" {
		t.Errorf("Expected message 'registration created', got '%s'", resp.Message)
	}
}

func TestFail(t *testing.T) {
	r := setupTestRouter()
	r.GET("/domains/check", func(c *gin.Context) {
		Fail(c, http.StatusBadRequest, CodeParamMissing, "label is required")
	})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/domains/check", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status %d, got %d", http.StatusBadRequest, w.Code)
	}

	var resp Response
	json.Unmarshal(w.Body.Bytes(), &resp)

	if resp.Code != CodeParamMissing {
		t.Errorf("Expected code %d, got %d", CodeParamMissing, resp.Code)
	}

	if resp.Message != "label is required" {
		t.Errorf("Expected message 'label is required', got '%s'", resp.Message)
	}

	if resp.Data != nil {
		t.Error("Expected data to be nil for error response")
	}
}

func TestFailErr(t *testing.T) {
	r := setupTestRouter()
	r.GET("/domains/missing", func(c *gin.Context) {
		FailErr(c, ErrNotFound("domain not found"))
	})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/domains/missing", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status %d, got %d", http.StatusNotFound, w.Code)
	}

	var resp Response
	json.Unmarshal(w.Body.Bytes(), &resp)

	if resp.Code != CodeNotFound {
		t.Errorf("Expected code %d, got %d", CodeNotFound, resp.Code)
	}

	if resp.Message != "domain not found" {
		t.Errorf("Expected message 'domain not found', got '%s'", resp.Message)
	}

	if resp.Data != nil {
		t.Error("Expected data to be nil for error response")
	}
}

func TestFailErr_WithInternalError(t *testing.T) {
	r := setupTestRouter()
	r.POST("/domains", func(c *gin.Context) {
		// Internal error should be logged but not returned to client
		FailErr(c, ErrDatabaseError("failed to persist registration", nil))
	})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/domains", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Errorf("Expected status %d, got %d", http.StatusInternalServerError, w.Code)
	}

	var resp Response
	json.Unmarshal(w.Body.Bytes(), &resp)

	if resp.Code != CodeDatabaseError {
		t.Errorf("Expected code %d, got %d", CodeDatabaseError, resp.Code)
	}

	// Message should not contain internal error details
	if resp.Message != "failed to persist registration" {
		t.Errorf("Expected message 'failed to persist registration', got '%s'", resp.Message)
	}
}

func TestFailErr_WithData(t *testing.T) {
	r := setupTestRouter()
	r.PUT("/domains/forwarding", func(c *gin.Context) {
		FailErr(c, ErrPartialFailure("", nil).WithData(gin.H{
			"records": []gin.H{{"role": "main-A", "success": false}},
		}))
	})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("PUT", "/domains/forwarding", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadGateway {
		t.Errorf("Expected status %d, got %d", http.StatusBadGateway, w.Code)
	}

	var resp Response
	json.Unmarshal(w.Body.Bytes(), &resp)

	if resp.Code != CodePartialFailure {
		t.Errorf("Expected code %d, got %d", CodePartialFailure, resp.Code)
	}

	if resp.Data == nil {
		t.Error("Expected the per-record detail to reach the client")
	}
}
