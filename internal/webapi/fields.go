package webapi

import (
	"fmt"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

// FieldType enumerates the value types request fields can declare.
type FieldType int

const (
	StringField FieldType = iota
	IntField
	BoolField
	FileField
	ChoiceField
)

// Field describes one supported request field.
type Field struct {
	Type        FieldType
	Description string
	Choices     []string // only for ChoiceField
}

// FieldSet maps field names to their descriptions.
type FieldSet map[string]Field

// specialParams are always permitted and never validated.
var specialParams = map[string]bool{
	"_method":    true,
	"callback":   true,
	"api_format": true,
}

const maxUploadMemory = 32 << 20 // 32 MB before multipart spills to disk

// FieldErrors aggregates validation failures per field name. It renders
// into the response payload as {"fields": {"name": ["msg", ...]}}.
type FieldErrors struct {
	Fields map[string][]string `json:"fields"`
}

func newFieldErrors() *FieldErrors {
	return &FieldErrors{Fields: make(map[string][]string)}
}

func (fe *FieldErrors) add(name, msg string) {
	fe.Fields[name] = append(fe.Fields[name], msg)
}

// OrNil returns nil when no failures were recorded.
func (fe *FieldErrors) OrNil() *FieldErrors {
	if len(fe.Fields) == 0 {
		return nil
	}
	return fe
}

// Respond renders the aggregated failures as an INVALID_FORM_DATA
// response.
func (fe *FieldErrors) Respond(c *gin.Context) {
	Fail(ErrInvalidFormData, gin.H{"fields": fe.Fields}).Render(c)
}

// Values holds the parsed, typed field values for a validated request.
type Values struct {
	strings map[string]string
	ints    map[string]int
	bools   map[string]bool
	files   map[string]*multipart.FileHeader
}

func newValues() *Values {
	return &Values{
		strings: make(map[string]string),
		ints:    make(map[string]int),
		bools:   make(map[string]bool),
		files:   make(map[string]*multipart.FileHeader),
	}
}

// Has reports whether the request carried the field.
func (v *Values) Has(name string) bool {
	if _, ok := v.strings[name]; ok {
		return true
	}
	if _, ok := v.ints[name]; ok {
		return true
	}
	if _, ok := v.bools[name]; ok {
		return true
	}
	_, ok := v.files[name]
	return ok
}

// String returns the value of a string or choice field.
func (v *Values) String(name string) string { return v.strings[name] }

// Int returns the value of an int field.
func (v *Values) Int(name string) int { return v.ints[name] }

// Bool returns the value of a bool field.
func (v *Values) Bool(name string) bool { return v.bools[name] }

// File returns the upload header of a file field, or nil.
func (v *Values) File(name string) *multipart.FileHeader { return v.files[name] }

// requestFields collects the inspectable request parameters: the query
// string for GET requests, the form body for everything else.
func requestFields(c *gin.Context) (url.Values, map[string][]*multipart.FileHeader) {
	req := c.Request
	if req.Method == http.MethodGet {
		return req.URL.Query(), nil
	}

	contentType := c.GetHeader("Content-Type")
	if strings.HasPrefix(contentType, "multipart/") {
		if err := req.ParseMultipartForm(maxUploadMemory); err != nil {
			return url.Values{}, nil
		}
		return url.Values(req.MultipartForm.Value), req.MultipartForm.File
	}

	if err := req.ParseForm(); err != nil {
		return url.Values{}, nil
	}
	return req.PostForm, nil
}

// parseBool maps form values onto booleans. The accepted spellings are
// deliberately narrow; anything else is a validation failure.
func parseBool(raw string) (bool, bool) {
	switch raw {
	case "1", "true", "True", "on":
		return true, true
	case "0", "false", "False", "":
		return false, true
	default:
		return false, false
	}
}

// ValidateFields checks the request parameters against the required and
// optional field sets. All failures are aggregated; on any failure the
// returned Values is nil and the handler must respond with the errors.
func ValidateFields(c *gin.Context, required, optional FieldSet, allowUnknown bool) (*Values, *FieldErrors) {
	fields, files := requestFields(c)
	errs := newFieldErrors()

	supported := make(FieldSet, len(required)+len(optional))
	for name, f := range required {
		supported[name] = f
	}
	for name, f := range optional {
		supported[name] = f
	}

	if !allowUnknown {
		for name := range fields {
			if specialParams[name] {
				continue
			}
			if _, ok := supported[name]; !ok {
				errs.add(name, "Field is not supported")
			}
		}
		for name := range files {
			if _, ok := supported[name]; !ok {
				errs.add(name, "Field is not supported")
			}
		}
	}

	for name, f := range required {
		if f.Type == FileField {
			if files == nil || len(files[name]) == 0 {
				errs.add(name, "This field is required")
			}
			continue
		}
		if !fields.Has(name) {
			errs.add(name, "This field is required")
		}
	}

	values := newValues()
	for name, f := range supported {
		if f.Type == FileField {
			if files != nil && len(files[name]) > 0 {
				values.files[name] = files[name][0]
			}
			continue
		}
		if !fields.Has(name) {
			continue
		}
		raw := fields.Get(name)

		switch f.Type {
		case ChoiceField:
			valid := false
			for _, choice := range f.Choices {
				if raw == choice {
					valid = true
					break
				}
			}
			if !valid {
				quoted := make([]string, len(f.Choices))
				for i, choice := range f.Choices {
					quoted[i] = "'" + choice + "'"
				}
				errs.add(name, fmt.Sprintf("'%s' is not a valid value. Valid values are: %s",
					raw, strings.Join(quoted, ", ")))
				continue
			}
			values.strings[name] = raw
		case BoolField:
			b, ok := parseBool(raw)
			if !ok {
				errs.add(name, fmt.Sprintf("'%s' is not a valid boolean", raw))
				continue
			}
			values.bools[name] = b
		case IntField:
			n, err := strconv.Atoi(raw)
			if err != nil {
				errs.add(name, fmt.Sprintf("'%s' is not an integer", raw))
				continue
			}
			values.ints[name] = n
		default:
			values.strings[name] = raw
		}
	}

	if fe := errs.OrNil(); fe != nil {
		return nil, fe
	}
	return values, nil
}
