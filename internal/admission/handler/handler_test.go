package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"matricula/internal/admission/allocator"
	"matricula/internal/admission/lifecycle"
	"matricula/internal/admission/models"
	"matricula/internal/admission/registry"
	applicantstore "matricula/internal/admission/store/applicant"
	requirementstore "matricula/internal/admission/store/requirement"
	slotstore "matricula/internal/admission/store/slot"
	"matricula/internal/audit"
	"matricula/internal/blobstore"
	"matricula/internal/platform/middleware"
	"matricula/internal/roster"
	"matricula/pkg/domain"
)

type fixture struct {
	router http.Handler
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))

	applicants := applicantstore.NewMemory()
	applicants.SetActivePeriod(domain.Period{Year: 2025, SemesterCode: "1"})
	applicants.SeedSequence(domain.Period{Year: 2025, SemesterCode: "1"}, 6)

	slots := slotstore.NewMemory()
	requirements := requirementstore.NewMemory()
	blobs := blobstore.NewMemory()
	events := audit.NewMemoryStore()
	persons := roster.NewMemoryStore()

	if _, err := requirements.Create(ctx, models.RequirementDefinition{
		Description: "Form 138 (Report Card)",
		ShortLabel:  "Form138",
		Category:    models.CategoryRegular,
		Verifiable:  true,
	}); err != nil {
		t.Fatalf("seed requirement: %v", err)
	}

	reg, err := registry.New(slots, requirements, blobs, registry.WithLogger(logger))
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	alloc, err := allocator.New(applicants, allocator.WithLogger(logger))
	if err != nil {
		t.Fatalf("allocator: %v", err)
	}
	publisher := audit.NewPublisher(events, audit.WithLogger(logger))
	svc, err := lifecycle.New(applicants, slots, reg, alloc, persons, blobs, publisher,
		lifecycle.WithLogger(logger))
	if err != nil {
		t.Fatalf("lifecycle: %v", err)
	}

	h := New(svc, reg, publisher, alloc, logger)
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.Actor)
	h.Register(r)

	return &fixture{router: r}
}

func (f *fixture) register(t *testing.T) RegisterResponse {
	t.Helper()
	body, _ := json.Marshal(map[string]string{
		"first_name": "Maria",
		"last_name":  "Santos",
		"email":      "maria.santos@example.com",
		"campus":     "main",
	})
	req := httptest.NewRequest(http.MethodPost, "/applicants", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 registering, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp RegisterResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode register response: %v", err)
	}
	return resp
}

func (f *fixture) upload(t *testing.T, number string, requirementID string, filename, content string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("document", filename)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := io.WriteString(part, content); err != nil {
		t.Fatalf("write form file: %v", err)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart writer: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/applicants/"+number+"/documents/"+requirementID, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func TestRegisterApplicant(t *testing.T) {
	f := newFixture(t)
	resp := f.register(t)

	if resp.ApplicantNumber != "2025100007" {
		t.Fatalf("expected applicant number 2025100007, got %q", resp.ApplicantNumber)
	}
	if resp.AccessCode == "" {
		t.Fatalf("expected access code in response")
	}
	if len(resp.Slots) != 1 {
		t.Fatalf("expected one pre-created slot, got %d", len(resp.Slots))
	}
	if resp.Slots[0].Status != "empty" {
		t.Fatalf("expected empty slot, got %q", resp.Slots[0].Status)
	}
}

func TestRegisterValidation(t *testing.T) {
	f := newFixture(t)

	body, _ := json.Marshal(map[string]string{"email": "x@y.z", "campus": "downtown"})
	req := httptest.NewRequest(http.MethodPost, "/applicants", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown campus, got %d", rec.Code)
	}
	var errResp map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&errResp); err != nil {
		t.Fatalf("decode error response: %v", err)
	}
	if errResp["error"] != "invalid_input" {
		t.Fatalf("expected invalid_input error code, got %q", errResp["error"])
	}
}

func TestUploadDownloadDelete(t *testing.T) {
	f := newFixture(t)
	reg := f.register(t)
	reqID := reg.Slots[0].RequirementID

	rec := f.upload(t, reg.ApplicantNumber, reqID, "report.pdf", "report card scan")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 uploading, got %d: %s", rec.Code, rec.Body.String())
	}
	var slot SlotResponse
	if err := json.NewDecoder(rec.Body).Decode(&slot); err != nil {
		t.Fatalf("decode slot response: %v", err)
	}
	if slot.Status != "uploaded" {
		t.Fatalf("expected status uploaded, got %q", slot.Status)
	}
	if slot.FileKey == nil || *slot.FileKey != "2025100007_Form138_2025.pdf" {
		t.Fatalf("unexpected file key %v", slot.FileKey)
	}

	dlReq := httptest.NewRequest(http.MethodGet, "/applicants/"+reg.ApplicantNumber+"/documents/"+reqID, nil)
	dlRec := httptest.NewRecorder()
	f.router.ServeHTTP(dlRec, dlReq)
	if dlRec.Code != http.StatusOK {
		t.Fatalf("expected 200 downloading, got %d", dlRec.Code)
	}
	if dlRec.Body.String() != "report card scan" {
		t.Fatalf("downloaded bytes do not match upload")
	}

	delReq := httptest.NewRequest(http.MethodDelete, "/applicants/"+reg.ApplicantNumber+"/documents/"+reqID, nil)
	delRec := httptest.NewRecorder()
	f.router.ServeHTTP(delRec, delReq)
	if delRec.Code != http.StatusOK {
		t.Fatalf("expected 200 deleting, got %d", delRec.Code)
	}

	dlRec2 := httptest.NewRecorder()
	f.router.ServeHTTP(dlRec2, httptest.NewRequest(http.MethodGet, "/applicants/"+reg.ApplicantNumber+"/documents/"+reqID, nil))
	if dlRec2.Code != http.StatusNotFound {
		t.Fatalf("expected 404 downloading after delete, got %d", dlRec2.Code)
	}
}

func TestUploadRequiresDocumentField(t *testing.T) {
	f := newFixture(t)
	reg := f.register(t)

	req := httptest.NewRequest(http.MethodPost,
		"/applicants/"+reg.ApplicantNumber+"/documents/"+reg.Slots[0].RequirementID,
		bytes.NewReader([]byte("not multipart")))
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing multipart field, got %d", rec.Code)
	}
}

func TestReviewAndBulkSubmit(t *testing.T) {
	f := newFixture(t)
	reg := f.register(t)
	reqID := reg.Slots[0].RequirementID

	rec := f.upload(t, reg.ApplicantNumber, reqID, "report.pdf", "scan")
	if rec.Code != http.StatusOK {
		t.Fatalf("upload: %d", rec.Code)
	}
	var slot SlotResponse
	if err := json.NewDecoder(rec.Body).Decode(&slot); err != nil {
		t.Fatalf("decode slot: %v", err)
	}

	body, _ := json.Marshal(map[string]string{"verdict": "verified", "remarks": "Complete."})
	patchReq := httptest.NewRequest(http.MethodPatch, "/documents/"+slot.ID, bytes.NewReader(body))
	patchReq.Header.Set("Content-Type", "application/json")
	patchReq.Header.Set(middleware.ActorNameHeader, "evaluator@school.edu")
	patchRec := httptest.NewRecorder()
	f.router.ServeHTTP(patchRec, patchReq)
	if patchRec.Code != http.StatusOK {
		t.Fatalf("expected 200 reviewing, got %d: %s", patchRec.Code, patchRec.Body.String())
	}
	var reviewed SlotResponse
	if err := json.NewDecoder(patchRec.Body).Decode(&reviewed); err != nil {
		t.Fatalf("decode reviewed slot: %v", err)
	}
	if reviewed.Status != "verified" || reviewed.Remarks != "Complete." {
		t.Fatalf("unexpected reviewed slot: %+v", reviewed)
	}
	if reviewed.UpdatedBy != "evaluator@school.edu" {
		t.Fatalf("expected actor attribution, got %q", reviewed.UpdatedBy)
	}

	subReq := httptest.NewRequest(http.MethodPost, "/applicants/"+reg.ApplicantNumber+"/submit", nil)
	subReq.Header.Set(middleware.ActorNameHeader, "registrar@school.edu")
	subRec := httptest.NewRecorder()
	f.router.ServeHTTP(subRec, subReq)
	if subRec.Code != http.StatusOK {
		t.Fatalf("expected 200 submitting, got %d", subRec.Code)
	}
	var bulk BulkResponse
	if err := json.NewDecoder(subRec.Body).Decode(&bulk); err != nil {
		t.Fatalf("decode bulk response: %v", err)
	}
	if bulk.UpdatedSlots != 1 {
		t.Fatalf("expected 1 updated slot, got %d", bulk.UpdatedSlots)
	}

	stReq := httptest.NewRequest(http.MethodGet, "/applicants/"+reg.ApplicantNumber, nil)
	stRec := httptest.NewRecorder()
	f.router.ServeHTTP(stRec, stReq)
	if stRec.Code != http.StatusOK {
		t.Fatalf("expected 200 fetching status, got %d", stRec.Code)
	}
	var status StatusResponse
	if err := json.NewDecoder(stRec.Body).Decode(&status); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if !status.Slots[0].RegistrarConfirmed || !status.Slots[0].SubmittedDocuments {
		t.Fatalf("expected registrar sign-off on slot, got %+v", status.Slots[0])
	}
	if status.Slots[0].Remarks != "Complete." {
		t.Fatalf("remarks must survive bulk submit, got %q", status.Slots[0].Remarks)
	}
}

func TestStatusAndAuditTrail(t *testing.T) {
	f := newFixture(t)
	reg := f.register(t)

	stReq := httptest.NewRequest(http.MethodGet, "/applicants/"+reg.ApplicantNumber, nil)
	stRec := httptest.NewRecorder()
	f.router.ServeHTTP(stRec, stReq)
	if stRec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", stRec.Code)
	}
	var status StatusResponse
	if err := json.NewDecoder(stRec.Body).Decode(&status); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if len(status.MissingDocuments) != 1 || status.MissingDocuments[0] != "Form138" {
		t.Fatalf("expected Form138 missing, got %v", status.MissingDocuments)
	}

	auditReq := httptest.NewRequest(http.MethodGet, "/applicants/"+reg.ApplicantNumber+"/audit", nil)
	auditRec := httptest.NewRecorder()
	f.router.ServeHTTP(auditRec, auditReq)
	if auditRec.Code != http.StatusOK {
		t.Fatalf("expected 200 fetching audit trail, got %d", auditRec.Code)
	}
	var events []EventResponse
	if err := json.NewDecoder(auditRec.Body).Decode(&events); err != nil {
		t.Fatalf("decode events: %v", err)
	}
	if len(events) != 1 || events[0].Type != "register" {
		t.Fatalf("expected single register event, got %+v", events)
	}
}

func TestUnknownApplicantIs404(t *testing.T) {
	f := newFixture(t)

	req := httptest.NewRequest(http.MethodGet, "/applicants/2025199999", nil)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown applicant, got %d", rec.Code)
	}

	badReq := httptest.NewRequest(http.MethodGet, "/applicants/not-a-number", nil)
	badRec := httptest.NewRecorder()
	f.router.ServeHTTP(badRec, badReq)
	if badRec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed number, got %d", badRec.Code)
	}
}

func TestRequirementAdmin(t *testing.T) {
	f := newFixture(t)

	body, _ := json.Marshal(map[string]any{
		"description": "Birth Certificate",
		"short_label": "PSA",
		"verifiable":  false,
	})
	req := httptest.NewRequest(http.MethodPost, "/requirements", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 creating requirement, got %d: %s", rec.Code, rec.Body.String())
	}
	var created RequirementResponse
	if err := json.NewDecoder(rec.Body).Decode(&created); err != nil {
		t.Fatalf("decode requirement: %v", err)
	}
	if created.Category != "Regular" {
		t.Fatalf("expected default category Regular, got %q", created.Category)
	}

	listRec := httptest.NewRecorder()
	f.router.ServeHTTP(listRec, httptest.NewRequest(http.MethodGet, "/requirements", nil))
	var defs []RequirementResponse
	if err := json.NewDecoder(listRec.Body).Decode(&defs); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(defs) != 2 {
		t.Fatalf("expected 2 requirements, got %d", len(defs))
	}

	dup := httptest.NewRequest(http.MethodPost, "/requirements", bytes.NewReader(body))
	dup.Header.Set("Content-Type", "application/json")
	dupRec := httptest.NewRecorder()
	f.router.ServeHTTP(dupRec, dup)
	if dupRec.Code != http.StatusConflict {
		t.Fatalf("expected 409 for duplicate short label, got %d", dupRec.Code)
	}
}

func TestPeriodAdmin(t *testing.T) {
	f := newFixture(t)

	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/periods/active", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 fetching active period, got %d", rec.Code)
	}
	var period PeriodResponse
	if err := json.NewDecoder(rec.Body).Decode(&period); err != nil {
		t.Fatalf("decode period: %v", err)
	}
	if period.Prefix != "20251" {
		t.Fatalf("expected prefix 20251, got %q", period.Prefix)
	}

	body, _ := json.Marshal(map[string]any{"year": 2026, "semester_code": "2"})
	putReq := httptest.NewRequest(http.MethodPut, "/periods/active", bytes.NewReader(body))
	putReq.Header.Set("Content-Type", "application/json")
	putRec := httptest.NewRecorder()
	f.router.ServeHTTP(putRec, putReq)
	if putRec.Code != http.StatusOK {
		t.Fatalf("expected 200 activating period, got %d: %s", putRec.Code, putRec.Body.String())
	}

	badBody, _ := json.Marshal(map[string]any{"year": 2026, "semester_code": "22"})
	badReq := httptest.NewRequest(http.MethodPut, "/periods/active", bytes.NewReader(badBody))
	badReq.Header.Set("Content-Type", "application/json")
	badRec := httptest.NewRecorder()
	f.router.ServeHTTP(badRec, badReq)
	if badRec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad semester code, got %d", badRec.Code)
	}
}

func TestDeleteApplicantCascades(t *testing.T) {
	f := newFixture(t)
	reg := f.register(t)

	rec := f.upload(t, reg.ApplicantNumber, reg.Slots[0].RequirementID, "report.pdf", "scan")
	if rec.Code != http.StatusOK {
		t.Fatalf("upload: %d", rec.Code)
	}

	delReq := httptest.NewRequest(http.MethodDelete, "/applicants/"+reg.ApplicantNumber, nil)
	delRec := httptest.NewRecorder()
	f.router.ServeHTTP(delRec, delReq)
	if delRec.Code != http.StatusNoContent {
		t.Fatalf("expected 204 deleting applicant, got %d", delRec.Code)
	}

	stRec := httptest.NewRecorder()
	f.router.ServeHTTP(stRec, httptest.NewRequest(http.MethodGet, "/applicants/"+reg.ApplicantNumber, nil))
	if stRec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %d", stRec.Code)
	}
}
