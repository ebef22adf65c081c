package webapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func renderToRecorder(t *testing.T, resp *Response, build func(req *http.Request)) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req := httptest.NewRequest(http.MethodGet, "/api/test", nil)
	if build != nil {
		build(req)
	}
	c.Request = req
	resp.Render(c)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("response body is not JSON: %v\nbody: %s", err, w.Body.String())
	}
	return out
}

func TestOK_RendersJSONEnvelope(t *testing.T) {
	w := renderToRecorder(t, OK(gin.H{"answer": 42}), nil)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != ContentTypeJSON {
		t.Errorf("content type = %q, want %q", ct, ContentTypeJSON)
	}

	body := decodeBody(t, w)
	if body["stat"] != "ok" {
		t.Errorf("stat = %v, want ok", body["stat"])
	}
	if body["answer"] != float64(42) {
		t.Errorf("answer = %v, want 42", body["answer"])
	}
}

func TestFail_UsesErrorTableStatus(t *testing.T) {
	w := renderToRecorder(t, Fail(ErrDoesNotExist, nil), nil)

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
	body := decodeBody(t, w)
	if body["stat"] != "fail" {
		t.Errorf("stat = %v, want fail", body["stat"])
	}
	errObj, ok := body["err"].(map[string]interface{})
	if !ok {
		t.Fatalf("err key missing or wrong shape: %v", body)
	}
	if errObj["code"] != float64(100) {
		t.Errorf("err.code = %v, want 100", errObj["code"])
	}
	if errObj["msg"] == "" {
		t.Errorf("err.msg empty")
	}
}

func TestWithMessage_PreservesCodeAndStatus(t *testing.T) {
	custom := ErrInvalidAttribute.WithMessage("no such attribute: frobnicate")
	if custom.Code != ErrInvalidAttribute.Code {
		t.Errorf("code changed: %d", custom.Code)
	}
	if custom.HTTPStatus != ErrInvalidAttribute.HTTPStatus {
		t.Errorf("status changed: %d", custom.HTTPStatus)
	}
	if custom.Msg != "no such attribute: frobnicate" {
		t.Errorf("msg = %q", custom.Msg)
	}
	if ErrInvalidAttribute.Msg == custom.Msg {
		t.Errorf("WithMessage mutated the table entry")
	}
}

func TestRequestFormat_DefaultsToJSON(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/api/test", nil)

	format, apiErr := RequestFormat(c)
	if apiErr != nil {
		t.Fatalf("RequestFormat: %v", apiErr)
	}
	if format != FormatJSON {
		t.Errorf("format = %q, want json", format)
	}
}

func TestRequestFormat_RejectsUnknown(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/api/test?api_format=yaml", nil)

	_, apiErr := RequestFormat(c)
	if apiErr == nil {
		t.Fatalf("api_format=yaml accepted")
	}
	if apiErr.Code != ErrInvalidAttribute.Code {
		t.Errorf("code = %d, want %d", apiErr.Code, ErrInvalidAttribute.Code)
	}
}

func TestRender_BadFormatProducesErrorEnvelope(t *testing.T) {
	w := renderToRecorder(t, OK(nil), func(req *http.Request) {
		req.URL.RawQuery = "api_format=yaml"
	})

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
	body := decodeBody(t, w)
	if body["stat"] != "fail" {
		t.Errorf("stat = %v, want fail", body["stat"])
	}
}

func TestRender_XMLFormat(t *testing.T) {
	w := renderToRecorder(t, OK(gin.H{"b": "two", "a": 1}), func(req *http.Request) {
		req.URL.RawQuery = "api_format=xml"
	})

	if ct := w.Header().Get("Content-Type"); ct != ContentTypeXML {
		t.Errorf("content type = %q, want %q", ct, ContentTypeXML)
	}
	body := w.Body.String()
	if !strings.Contains(body, `<rsp stat="ok">`) {
		t.Errorf("rsp element missing: %s", body)
	}
	// Keys render sorted: <a> before <b>
	if strings.Index(body, "<a>") > strings.Index(body, "<b>") {
		t.Errorf("keys not sorted: %s", body)
	}
	if !strings.Contains(body, "<a>1</a>") || !strings.Contains(body, "<b>two</b>") {
		t.Errorf("values missing: %s", body)
	}
}

func TestRender_XMLEscapesText(t *testing.T) {
	w := renderToRecorder(t, Fail(ErrInvalidAttribute.WithMessage("bad <attr> & more"), nil),
		func(req *http.Request) {
			req.URL.RawQuery = "api_format=xml"
		})

	body := w.Body.String()
	if strings.Contains(body, "bad <attr>") {
		t.Errorf("message not escaped: %s", body)
	}
	if !strings.Contains(body, "bad &lt;attr&gt; &amp; more") {
		t.Errorf("escaped message missing: %s", body)
	}
}

func TestRender_UploadWithoutJSONAcceptFallsBackToPlainText(t *testing.T) {
	w := renderToRecorder(t, OK(gin.H{"ok": true}), func(req *http.Request) {
		req.Method = http.MethodPost
		req.Header.Set("Content-Type", "multipart/form-data; boundary=xyz")
		req.Header.Set("Accept", "text/html,application/xhtml+xml")
	})

	if ct := w.Header().Get("Content-Type"); ct != ContentTypePlain {
		t.Errorf("content type = %q, want %q", ct, ContentTypePlain)
	}
	// The body stays valid JSON regardless of the content type
	body := decodeBody(t, w)
	if body["stat"] != "ok" {
		t.Errorf("stat = %v, want ok", body["stat"])
	}
}

func TestRender_UploadAcceptingJSONKeepsJSONType(t *testing.T) {
	w := renderToRecorder(t, OK(nil), func(req *http.Request) {
		req.Method = http.MethodPost
		req.Header.Set("Content-Type", "multipart/form-data; boundary=xyz")
		req.Header.Set("Accept", "application/json")
	})
	if ct := w.Header().Get("Content-Type"); ct != ContentTypeJSON {
		t.Errorf("content type = %q, want %q", ct, ContentTypeJSON)
	}
}

func TestRender_UploadWildcardAcceptKeepsJSONType(t *testing.T) {
	w := renderToRecorder(t, OK(nil), func(req *http.Request) {
		req.Method = http.MethodPost
		req.Header.Set("Content-Type", "multipart/form-data; boundary=xyz")
		req.Header.Set("Accept", "*/*")
	})
	if ct := w.Header().Get("Content-Type"); ct != ContentTypeJSON {
		t.Errorf("content type = %q, want %q", ct, ContentTypeJSON)
	}
}

func TestRender_NonUploadNeverFallsBack(t *testing.T) {
	w := renderToRecorder(t, OK(nil), func(req *http.Request) {
		req.Header.Set("Accept", "text/html")
	})
	if ct := w.Header().Get("Content-Type"); ct != ContentTypeJSON {
		t.Errorf("content type = %q, want %q", ct, ContentTypeJSON)
	}
}

func TestRender_UploadNoAcceptHeaderKeepsJSONType(t *testing.T) {
	w := renderToRecorder(t, OK(nil), func(req *http.Request) {
		req.Method = http.MethodPost
		req.Header.Set("Content-Type", "multipart/form-data; boundary=xyz")
	})
	if ct := w.Header().Get("Content-Type"); ct != ContentTypeJSON {
		t.Errorf("content type = %q, want %q", ct, ContentTypeJSON)
	}
}

func TestRenderStatus_Override(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/api/test", nil)

	OK(gin.H{"created": true}).RenderStatus(c, http.StatusCreated)
	if w.Code != http.StatusCreated {
		t.Errorf("status = %d, want 201", w.Code)
	}
}
