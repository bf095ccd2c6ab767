package publisher

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/h2non/filetype"
)

// ErrorCode classifies a publish failure into a stable category regardless
// of which network produced it.
type ErrorCode string

const (
	ErrorCodeNone       ErrorCode = ""
	ErrorCodeValidation ErrorCode = "validation"
	ErrorCodeAuth       ErrorCode = "auth"
	ErrorCodeRateLimit  ErrorCode = "rate_limited"
	ErrorCodeDuplicate  ErrorCode = "duplicate_content"
	ErrorCodeTooLarge   ErrorCode = "payload_too_large"
	ErrorCodeUnknown    ErrorCode = "unknown"
)

type PublishRequest struct {
	Content   string
	Hashtags  []string
	MediaURLs []string
}

// Text is the caption plus hashtags the way the networks want it rendered.
func (r *PublishRequest) Text() string {
	if len(r.Hashtags) == 0 {
		return r.Content
	}
	return r.Content + "\n\n" + strings.Join(r.Hashtags, " ")
}

// PublishResult is the uniform outcome of a publish attempt. Publishers
// always return a result, never raise across this boundary.
type PublishResult struct {
	Success        bool              `json:"success"`
	PlatformPostID string            `json:"platform_post_id,omitempty"`
	URL            string            `json:"url,omitempty"`
	Error          string            `json:"error,omitempty"`
	ErrorCode      ErrorCode         `json:"error_code,omitempty"`
	Metadata       map[string]string `json:"metadata,omitempty"`
}

func failure(code ErrorCode, format string, args ...interface{}) *PublishResult {
	return &PublishResult{Success: false, ErrorCode: code, Error: fmt.Sprintf(format, args...)}
}

// classifyStatus maps an HTTP status from a publishing API onto the stable
// error categories.
func classifyStatus(status int) ErrorCode {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return ErrorCodeAuth
	case status == http.StatusTooManyRequests:
		return ErrorCodeRateLimit
	case status == http.StatusConflict:
		return ErrorCodeDuplicate
	case status == http.StatusRequestEntityTooLarge:
		return ErrorCodeTooLarge
	default:
		return ErrorCodeUnknown
	}
}

// validate enforces the platform's local constraints. A non-nil return is
// the failure result; no external call has been made.
func validate(p Platform, req *PublishRequest) *PublishResult {
	c := p.Constraints()

	if text := req.Text(); len([]rune(text)) > c.MaxTextLength {
		return failure(ErrorCodeValidation, "text length %d exceeds %s limit of %d characters",
			len([]rune(text)), p, c.MaxTextLength)
	}
	if c.RequiresMedia && len(req.MediaURLs) == 0 {
		return failure(ErrorCodeValidation, "%s requires at least one media item", p)
	}
	if !c.AllowsMedia && len(req.MediaURLs) > 0 {
		return failure(ErrorCodeValidation, "%s does not accept media", p)
	}
	if len(req.MediaURLs) > c.MaxMediaCount {
		return failure(ErrorCodeValidation, "%d media items exceeds %s limit of %d",
			len(req.MediaURLs), p, c.MaxMediaCount)
	}
	for _, url := range req.MediaURLs {
		if mime := mimeFromURL(url); mime != "" && !mimeAllowed(mime, c.AllowedMIME) {
			return failure(ErrorCodeValidation, "media type %s is not supported on %s", mime, p)
		}
	}
	return nil
}

func mimeAllowed(mime string, allowed []string) bool {
	for _, a := range allowed {
		if a == mime {
			return true
		}
	}
	return false
}

// mimeFromURL infers the media type from the URL's extension. Unknown
// extensions pass; the network rejects anything it truly cannot take.
func mimeFromURL(url string) string {
	if i := strings.IndexAny(url, "?#"); i >= 0 {
		url = url[:i]
	}
	dot := strings.LastIndex(url, ".")
	if dot < 0 || dot == len(url)-1 {
		return ""
	}
	t := filetype.GetType(url[dot+1:])
	if t == filetype.Unknown {
		return ""
	}
	return t.MIME.Value
}
