// Package gravatar builds avatar image URLs for the gravatar.com
// service from user email addresses.
package gravatar

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"html/template"
	"net/url"
	"strings"

	"golang.org/x/text/unicode/norm"
)

const (
	// BaseURL is the gravatar endpoint; the hash is appended to it.
	BaseURL = "https://www.gravatar.com/avatar/"

	// MaxSize is the largest image size gravatar serves.
	MaxSize = 2048
)

// Options controls the query parameters of a generated URL. Zero
// values omit the parameter so gravatar applies its own defaults.
type Options struct {
	Size         int    // pixel size (1..2048)
	Rating       string // g, pg, r or x
	Default      string // fallback image: mm, identicon, retro, ... or a URL
	ForceDefault bool   // always serve the fallback image
}

// NormalizeEmail prepares an email address for hashing: Unicode NFC
// normalization, surrounding whitespace trimmed, lowercased.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(norm.NFC.String(email)))
}

// Hash returns the md5 hex digest of the normalized email address.
func Hash(email string) string {
	sum := md5.Sum([]byte(NormalizeEmail(email)))
	return hex.EncodeToString(sum[:])
}

// URL returns the gravatar image URL for the email address.
func URL(email string, opts Options) string {
	var b strings.Builder
	b.WriteString(BaseURL)
	b.WriteString(Hash(email))

	params := make([]string, 0, 4)
	if opts.Size > 0 {
		size := opts.Size
		if size > MaxSize {
			size = MaxSize
		}
		params = append(params, fmt.Sprintf("s=%d", size))
	}
	if opts.Rating != "" {
		params = append(params, "r="+url.QueryEscape(opts.Rating))
	}
	if opts.Default != "" {
		params = append(params, "d="+url.QueryEscape(opts.Default))
	}
	if opts.ForceDefault {
		params = append(params, "f=y")
	}
	if len(params) > 0 {
		b.WriteString("?")
		b.WriteString(strings.Join(params, "&"))
	}
	return b.String()
}

// ImgTag renders an <img> element for the email address. displayName
// is HTML-escaped into the alt attribute.
func ImgTag(email, displayName string, opts Options) template.HTML {
	src := URL(email, opts)
	alt := template.HTMLEscapeString(displayName)
	if opts.Size > 0 {
		size := opts.Size
		if size > MaxSize {
			size = MaxSize
		}
		return template.HTML(fmt.Sprintf(`<img src="%s" width="%d" height="%d" alt="%s" class="gravatar">`,
			src, size, size, alt))
	}
	return template.HTML(fmt.Sprintf(`<img src="%s" alt="%s" class="gravatar">`, src, alt))
}

// FuncMap returns template helpers for rendering gravatars:
// gravatarURL(email, size) and gravatar(email, name, size).
func FuncMap(defaults Options) template.FuncMap {
	return template.FuncMap{
		"gravatarURL": func(email string, size int) string {
			o := defaults
			if size > 0 {
				o.Size = size
			}
			return URL(email, o)
		},
		"gravatar": func(email, name string, size int) template.HTML {
			o := defaults
			if size > 0 {
				o.Size = size
			}
			return ImgTag(email, name, o)
		},
	}
}
