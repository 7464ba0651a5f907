package bedmgmt

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

func newTestHandler(t *testing.T) (*Handler, *fixture, *echo.Echo) {
	f := newFixture(t)
	return NewHandler(f.svc), f, echo.New()
}

func TestHandler_Admit(t *testing.T) {
	h, f, e := newTestHandler(t)
	bed := f.newBed(t, BedAvailable)

	body := `{"patient_id":"` + uuid.New().String() + `","bed_id":"` + bed.ID.String() + `","physician_id":"` + uuid.New().String() + `"}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.Admit(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Errorf("expected 201, got %d", rec.Code)
	}
}

func TestHandler_Admit_BedConflict(t *testing.T) {
	h, f, e := newTestHandler(t)
	bed := f.newBed(t, BedAvailable)
	f.admit(t, bed)

	body := `{"patient_id":"` + uuid.New().String() + `","bed_id":"` + bed.ID.String() + `","physician_id":"` + uuid.New().String() + `"}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	err := h.Admit(c)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusConflict {
		t.Errorf("expected 409, got %v", err)
	}
}

func TestHandler_Discharge_Twice(t *testing.T) {
	h, f, e := newTestHandler(t)
	bed := f.newBed(t, BedAvailable)
	a := f.admit(t, bed)

	discharge := func() error {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"disposition":"home"}`))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)
		c.SetParamNames("id")
		c.SetParamValues(a.ID.String())
		return h.Discharge(c)
	}

	if err := discharge(); err != nil {
		t.Fatalf("first discharge: %v", err)
	}
	err := discharge()
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusConflict {
		t.Errorf("expected 409 on repeat discharge, got %v", err)
	}
}

func TestHandler_SetBedStatus_Occupied(t *testing.T) {
	h, f, e := newTestHandler(t)
	bed := f.newBed(t, BedAvailable)

	req := httptest.NewRequest(http.MethodPut, "/", strings.NewReader(`{"status":"occupied"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(bed.ID.String())

	err := h.SetBedStatus(c)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusConflict {
		t.Errorf("expected 409 setting occupied directly, got %v", err)
	}
}

func TestHandler_WardCensus(t *testing.T) {
	h, f, e := newTestHandler(t)
	f.newBed(t, BedAvailable)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(f.ward.ID.String())

	if err := h.WardCensus(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"total":1`) {
		t.Errorf("unexpected census body: %s", rec.Body.String())
	}
}

func TestHandler_Transfer_NotFound(t *testing.T) {
	h, _, e := newTestHandler(t)
	body := `{"to_bed_id":"` + uuid.New().String() + `"}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(uuid.New().String())

	err := h.Transfer(c)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %v", err)
	}
}
