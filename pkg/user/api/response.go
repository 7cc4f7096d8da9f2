package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/render"
)

const contentTypeText = "text/plain; charset=utf-8"

// Response is returned by every Handle method and written by the router.
type Response struct {
	body        interface{}
	Code        int
	contentType string
}

// Render implements render.Renderer
func (resp *Response) Render(w http.ResponseWriter, r *http.Request) error {
	render.Status(r, resp.Code)
	return nil
}

// MarshalJSON encodes the body only
func (resp *Response) MarshalJSON() ([]byte, error) {
	return json.Marshal(resp.body)
}

// write sends resp: JSON unless it is a plain-text response, and just the
// status code when there is no body.
func (resp *Response) write(w http.ResponseWriter, r *http.Request) {
	switch {
	case resp.body == nil:
		w.WriteHeader(resp.Code)
	case resp.contentType == contentTypeText:
		text, _ := resp.body.(string)
		render.Status(r, resp.Code)
		render.PlainText(w, r, text)
	default:
		if err := render.Render(w, r, resp); err != nil {
			slog.Error("Failed to render response", "error", err)
		}
	}
}

// JSONResponse builds a JSON response with the given status.
func JSONResponse(code int, body interface{}) *Response {
	return &Response{body: body, Code: code}
}

// TextResponse builds a text/plain response with the given status.
func TextResponse(code int, body string) *Response {
	return &Response{body: body, Code: code, contentType: contentTypeText}
}

// EmptyResponse builds a response carrying only a status code.
func EmptyResponse(code int) *Response {
	return &Response{Code: code}
}
