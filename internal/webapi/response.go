package webapi

import (
	"bytes"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"mime"
	"sort"
	"strings"

	"github.com/gin-gonic/gin"
)

// Supported api_format values.
const (
	FormatJSON = "json"
	FormatXML  = "xml"
)

// Content types written by Render.
const (
	ContentTypeJSON  = "application/json; charset=utf-8"
	ContentTypeXML   = "application/xml; charset=utf-8"
	ContentTypePlain = "text/plain; charset=utf-8"
)

// Response is the API envelope. It renders as a flat object:
// {"stat":"ok", <extra keys>} on success or
// {"stat":"fail","err":{...}, <extra keys>} on failure.
type Response struct {
	Stat  string
	Err   *APIError
	Extra gin.H
}

// OK builds a success response with optional extra top-level keys.
func OK(extra gin.H) *Response {
	return &Response{Stat: "ok", Extra: extra}
}

// Fail builds a failure response for the given error.
func Fail(apiErr *APIError, extra gin.H) *Response {
	return &Response{Stat: "fail", Err: apiErr, Extra: extra}
}

// RequestFormat resolves the api_format request parameter. The empty
// value means JSON; anything besides json or xml is an error.
func RequestFormat(c *gin.Context) (string, *APIError) {
	format := c.Query("api_format")
	if format == "" {
		format = c.PostForm("api_format")
	}
	switch format {
	case "", FormatJSON:
		return FormatJSON, nil
	case FormatXML:
		return FormatXML, nil
	default:
		return "", ErrInvalidAttribute.WithMessage(
			fmt.Sprintf("%q is not a valid api_format", format))
	}
}

// payload flattens the envelope into the object that gets serialized.
func (r *Response) payload() gin.H {
	out := gin.H{"stat": r.Stat}
	if r.Err != nil {
		out["err"] = gin.H{"code": r.Err.Code, "msg": r.Err.Msg}
	}
	for k, v := range r.Extra {
		out[k] = v
	}
	return out
}

// status picks the HTTP status for the envelope.
func (r *Response) status() int {
	if r.Err != nil {
		return r.Err.HTTPStatus
	}
	return 200
}

// Render negotiates the format and writes the response. JSON bodies
// headed back to a browser form upload that does not accept
// application/json are served as text/plain, which keeps iframe-based
// upload targets from prompting a download. The body bytes are the
// same either way.
func (r *Response) Render(c *gin.Context) {
	r.RenderStatus(c, r.status())
}

// RenderStatus renders like Render with an explicit HTTP status.
func (r *Response) RenderStatus(c *gin.Context, status int) {
	format, ferr := RequestFormat(c)
	if ferr != nil {
		body, _ := json.Marshal(Fail(ferr, nil).payload())
		c.Data(ferr.HTTPStatus, ContentTypeJSON, body)
		return
	}

	switch format {
	case FormatXML:
		c.Data(status, ContentTypeXML, r.renderXML())
	default:
		body, err := json.Marshal(r.payload())
		if err != nil {
			body, _ = json.Marshal(Fail(ErrInvalidAttribute.WithMessage(err.Error()), nil).payload())
			c.Data(500, ContentTypeJSON, body)
			return
		}
		contentType := ContentTypeJSON
		if wantsPlainTextJSON(c) {
			contentType = ContentTypePlain
		}
		c.Data(status, contentType, body)
	}
}

// wantsPlainTextJSON reports whether the JSON body must be served as
// text/plain: the request is a multipart form upload whose Accept
// header names neither application/json nor */*.
func wantsPlainTextJSON(c *gin.Context) bool {
	contentType, _, err := mime.ParseMediaType(c.GetHeader("Content-Type"))
	if err != nil || !strings.HasPrefix(contentType, "multipart/") {
		return false
	}
	accept := c.GetHeader("Accept")
	if accept == "" {
		return false
	}
	return !strings.Contains(accept, "application/json") &&
		!strings.Contains(accept, "*/*")
}

// renderXML serializes the envelope as <rsp stat="...">...</rsp>.
// Maps are encoded with sorted keys so output is deterministic.
func (r *Response) renderXML() []byte {
	var b bytes.Buffer
	b.WriteString(xml.Header)
	fmt.Fprintf(&b, `<rsp stat="%s">`, r.Stat)
	if r.Err != nil {
		fmt.Fprintf(&b, `<err><code>%d</code><msg>`, r.Err.Code)
		xml.EscapeText(&b, []byte(r.Err.Msg))
		b.WriteString(`</msg></err>`)
	}
	keys := make([]string, 0, len(r.Extra))
	for k := range r.Extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		xmlEncode(&b, k, r.Extra[k])
	}
	b.WriteString(`</rsp>`)
	return b.Bytes()
}

// xmlEncode writes one value as an element named key. Nested maps
// become nested elements, slices repeat <item> children.
func xmlEncode(b *bytes.Buffer, key string, value interface{}) {
	fmt.Fprintf(b, "<%s>", key)
	switch v := value.(type) {
	case gin.H:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			xmlEncode(b, k, v[k])
		}
	case map[string]interface{}:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			xmlEncode(b, k, v[k])
		}
	case map[string][]string:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			xmlEncode(b, k, v[k])
		}
	case []string:
		for _, item := range v {
			xmlEncode(b, "item", item)
		}
	case []interface{}:
		for _, item := range v {
			xmlEncode(b, "item", item)
		}
	case string:
		xml.EscapeText(b, []byte(v))
	default:
		xml.EscapeText(b, []byte(fmt.Sprintf("%v", v)))
	}
	fmt.Fprintf(b, "</%s>", key)
}
