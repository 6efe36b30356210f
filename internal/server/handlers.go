package server

import (
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/pdiddy/pdf2md/internal/feedback"
	"github.com/pdiddy/pdf2md/pkg/types"
)

const pdfMIME = "application/pdf"

// multipartMemory is the part of an upload kept in memory before spilling
// to temporary files.
const multipartMemory = 32 << 20

// ErrorResponse is the JSON body of every non-2xx response.
type ErrorResponse struct {
	Kind      string `json:"kind"`
	Reason    string `json:"reason"`
	RequestID string `json:"request_id,omitempty"`
}

// FeedbackRequest is the body of POST /v1/feedback.
type FeedbackRequest struct {
	Name    string `json:"name"`
	Message string `json:"message"`
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "pdf2md",
		"version": s.version,
	})
}

// convert handles POST /v1/convert. The body is multipart with a "file"
// part and optional "requirements" and "translate" fields.
func (s *Server) convert(w http.ResponseWriter, r *http.Request) {
	reqID := chimiddleware.GetReqID(r.Context())
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) || strings.Contains(err.Error(), "request body too large") {
			s.writeError(w, r, http.StatusRequestEntityTooLarge, "RequestTooLarge",
				"upload exceeds "+strconv.FormatInt(s.cfg.MaxUploadBytes, 10)+" bytes")
			return
		}
		s.writeError(w, r, http.StatusBadRequest, "BadRequest", "expected a multipart form: "+err.Error())
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, hdr, err := r.FormFile("file")
	if err != nil {
		s.writeError(w, r, http.StatusBadRequest, "BadRequest", "missing file part")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		s.writeError(w, r, http.StatusBadRequest, "BadRequest", "reading upload: "+err.Error())
		return
	}
	if detected := mimetype.Detect(data); !detected.Is(pdfMIME) {
		s.writeError(w, r, http.StatusUnsupportedMediaType, "UnsupportedMediaType",
			"expected "+pdfMIME+", got "+detected.String())
		return
	}

	req := types.ConversionRequest{
		ID:           reqID,
		Document:     types.Document{Name: hdr.Filename, Data: data},
		Requirements: r.FormValue("requirements"),
		Translate:    formBool(r.FormValue("translate")),
	}
	res := s.conv.Convert(r.Context(), req)
	if !res.OK() {
		s.writeError(w, r, failureStatus(res.Kind), string(res.Kind), res.Reason)
		return
	}

	name := req.Document.MarkdownName()
	if wantsHTML(r) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		w.Write(RenderHTML(res.Text, req.Document.FileName()))
		return
	}

	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": name}))
	w.WriteHeader(http.StatusOK)
	io.WriteString(w, res.Text)
}

// submitFeedback handles POST /v1/feedback with a JSON or form body.
func (s *Server) submitFeedback(w http.ResponseWriter, r *http.Request) {
	if s.feedback == nil {
		s.writeError(w, r, http.StatusServiceUnavailable, "Unavailable", "feedback is not configured")
		return
	}

	var body FeedbackRequest
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		if err := json.NewDecoder(io.LimitReader(r.Body, 64<<10)).Decode(&body); err != nil {
			s.writeError(w, r, http.StatusBadRequest, "BadRequest", "invalid JSON body: "+err.Error())
			return
		}
	} else {
		body.Name = r.FormValue("name")
		body.Message = r.FormValue("message")
	}

	entry, err := s.feedback.Submit(body.Name, body.Message)
	switch {
	case errors.Is(err, feedback.ErrEmptyMessage):
		s.writeError(w, r, http.StatusBadRequest, "BadRequest", err.Error())
		return
	case errors.Is(err, feedback.ErrQueueFull), errors.Is(err, feedback.ErrClosed):
		s.writeError(w, r, http.StatusServiceUnavailable, "Unavailable", err.Error())
		return
	case err != nil:
		s.writeError(w, r, http.StatusInternalServerError, "InternalError", err.Error())
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]string{"id": entry.ID})
}

// failureStatus maps a failure kind to an HTTP status. Configuration
// problems are the host's fault; everything else is a bad gateway.
func failureStatus(kind types.FailureKind) int {
	if kind == types.KindConfiguration {
		return http.StatusInternalServerError
	}
	return http.StatusBadGateway
}

func formBool(v string) bool {
	if strings.EqualFold(v, "on") {
		return true
	}
	b, _ := strconv.ParseBool(v)
	return b
}

func wantsHTML(r *http.Request) bool {
	accept := r.Header.Get("Accept")
	return strings.Contains(accept, "text/html") && !strings.Contains(accept, "text/markdown")
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, status int, kind, reason string) {
	reqID := chimiddleware.GetReqID(r.Context())
	s.log.Warn().Str("request_id", reqID).Int("status", status).Str("kind", kind).Msg(reason)
	writeJSON(w, status, ErrorResponse{Kind: kind, Reason: reason, RequestID: reqID})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
