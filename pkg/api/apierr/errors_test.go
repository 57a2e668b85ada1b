package apierr

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

// ---------------------------------------------------------------------------
// Helper
// ---------------------------------------------------------------------------

// decodeResponse reads an httptest.ResponseRecorder into a Response struct.
func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) Response {
	t.Helper()
	var resp Response
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response body: %v", err)
	}
	return resp
}

// ---------------------------------------------------------------------------
// Write
// ---------------------------------------------------------------------------

func TestWrite_SetsContentType(t *testing.T) {
	rec := httptest.NewRecorder()
	Write(rec, http.StatusBadRequest, CodeBadRequest, "test")

	ct := rec.Header().Get("Content-Type")
	if ct != "application/json" {
		t.Errorf("expected Content-Type 'application/json', got %q", ct)
	}
}

func TestWrite_SetsStatusCode(t *testing.T) {
	rec := httptest.NewRecorder()
	Write(rec, http.StatusNotFound, CodeNotFound, "not found")

	if rec.Code != http.StatusNotFound {
		t.Errorf("expected status 404, got %d", rec.Code)
	}
}

func TestWrite_BodyStructure(t *testing.T) {
	rec := httptest.NewRecorder()
	Write(rec, http.StatusBadRequest, CodeInvalidJSON, "bad json")

	resp := decodeResponse(t, rec)

	if resp.OK {
		t.Error("ok field should be false")
	}
	if resp.Error != "bad json" {
		t.Errorf("expected error 'bad json', got %q", resp.Error)
	}
	if resp.Code != CodeInvalidJSON {
		t.Errorf("expected code %q, got %q", CodeInvalidJSON, resp.Code)
	}
	if resp.Status != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", resp.Status)
	}
}

// ---------------------------------------------------------------------------
// Convenience shortcuts
// ---------------------------------------------------------------------------

func TestBadRequest(t *testing.T) {
	rec := httptest.NewRecorder()
	BadRequest(rec, CodeBadRequest, "missing field")

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
	resp := decodeResponse(t, rec)
	if resp.Code != CodeBadRequest {
		t.Errorf("expected code %q, got %q", CodeBadRequest, resp.Code)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	rec := httptest.NewRecorder()
	MethodNotAllowed(rec)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected 405, got %d", rec.Code)
	}
	resp := decodeResponse(t, rec)
	if resp.Code != CodeMethodNotAllowed {
		t.Errorf("expected code %q, got %q", CodeMethodNotAllowed, resp.Code)
	}
}

func TestUnauthorized(t *testing.T) {
	rec := httptest.NewRecorder()
	Unauthorized(rec, "invalid credentials")

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rec.Code)
	}
	resp := decodeResponse(t, rec)
	if resp.Code != CodeUnauthorized {
		t.Errorf("expected code %q, got %q", CodeUnauthorized, resp.Code)
	}
}

func TestTooManyRequests(t *testing.T) {
	rec := httptest.NewRecorder()
	TooManyRequests(rec, "")

	if rec.Code != http.StatusTooManyRequests {
		t.Errorf("expected 429, got %d", rec.Code)
	}
	resp := decodeResponse(t, rec)
	if resp.Code != CodeRateLimited {
		t.Errorf("expected code %q, got %q", CodeRateLimited, resp.Code)
	}
	if resp.Error == "" {
		t.Error("empty message should be replaced with a default")
	}
}

func TestInternal(t *testing.T) {
	rec := httptest.NewRecorder()
	Internal(rec, "something broke")

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", rec.Code)
	}
	resp := decodeResponse(t, rec)
	if resp.Code != CodeInternalError {
		t.Errorf("expected code %q, got %q", CodeInternalError, resp.Code)
	}
}

func TestInvalidJSON(t *testing.T) {
	rec := httptest.NewRecorder()
	InvalidJSON(rec)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
	resp := decodeResponse(t, rec)
	if resp.Code != CodeInvalidJSON {
		t.Errorf("expected code %q, got %q", CodeInvalidJSON, resp.Code)
	}
}

func TestTextRequired(t *testing.T) {
	rec := httptest.NewRecorder()
	TextRequired(rec)

	resp := decodeResponse(t, rec)
	if resp.Code != CodeTextRequired {
		t.Errorf("expected code %q, got %q", CodeTextRequired, resp.Code)
	}
}

func TestTextTooLarge(t *testing.T) {
	rec := httptest.NewRecorder()
	TextTooLarge(rec, 1024)

	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("expected 413, got %d", rec.Code)
	}
	resp := decodeResponse(t, rec)
	if resp.Code != CodeTextTooLarge {
		t.Errorf("expected code %q, got %q", CodeTextTooLarge, resp.Code)
	}
	if !strings.Contains(resp.Error, "1024") {
		t.Errorf("message should name the limit, got %q", resp.Error)
	}
}

// ---------------------------------------------------------------------------
// Verify all codes are unique
// ---------------------------------------------------------------------------

func TestCodesAreUnique(t *testing.T) {
	codes := []string{
		CodeBadRequest, CodeInvalidJSON, CodePayloadTooLarge,
		CodeMethodNotAllowed, CodeNotFound, CodeInternalError,
		CodeUnauthorized, CodeRateLimited,
		CodeTextRequired, CodeTextTooLarge,
	}

	seen := make(map[string]bool, len(codes))
	for _, c := range codes {
		if seen[c] {
			t.Errorf("duplicate error code: %q", c)
		}
		seen[c] = true
	}
}
