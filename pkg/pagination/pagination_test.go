package pagination

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func ctxWithQuery(query string) echo.Context {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/?"+query, nil)
	return e.NewContext(req, httptest.NewRecorder())
}

func TestFromContext_Defaults(t *testing.T) {
	p := FromContext(ctxWithQuery(""))
	if p.Limit != DefaultLimit || p.Offset != 0 {
		t.Errorf("expected defaults, got limit=%d offset=%d", p.Limit, p.Offset)
	}
}

func TestFromContext_Explicit(t *testing.T) {
	p := FromContext(ctxWithQuery("limit=50&offset=10"))
	if p.Limit != 50 || p.Offset != 10 {
		t.Errorf("expected 50/10, got %d/%d", p.Limit, p.Offset)
	}
}

func TestFromContext_CapsLimit(t *testing.T) {
	p := FromContext(ctxWithQuery("limit=5000"))
	if p.Limit != MaxLimit {
		t.Errorf("expected cap at %d, got %d", MaxLimit, p.Limit)
	}
}

func TestFromContext_NegativeOffset(t *testing.T) {
	p := FromContext(ctxWithQuery("offset=-5"))
	if p.Offset != 0 {
		t.Errorf("expected offset 0, got %d", p.Offset)
	}
}

func TestNewResponse_HasMore(t *testing.T) {
	resp := NewResponse([]int{1, 2, 3}, 10, 3, 0)
	if !resp.HasMore {
		t.Error("expected has_more=true")
	}

	resp = NewResponse([]int{1}, 10, 3, 9)
	if resp.HasMore {
		t.Error("expected has_more=false on last page")
	}
}

func TestParams_NextOffset(t *testing.T) {
	p := Params{Limit: 20, Offset: 40}
	if p.NextOffset() != 60 {
		t.Errorf("expected 60, got %d", p.NextOffset())
	}
	if !p.HasNext(100) {
		t.Error("expected HasNext for total 100")
	}
	if p.HasNext(60) {
		t.Error("expected no next page at total 60")
	}
}
