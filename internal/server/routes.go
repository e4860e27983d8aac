// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Vocalis Contributors

package server

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/danielgtaylor/huma/v2"
	"github.com/go-chi/chi/v5"

	"github.com/vocalis-dev/vocalis/internal/relay"
	vocerr "github.com/vocalis-dev/vocalis/pkg/errors"
	"github.com/vocalis-dev/vocalis/web"
)

// errorBody is the envelope for request validation failures.
type errorBody struct {
	Error string `json:"error"`
}

// fallbackBody is the degraded-but-speakable envelope. Text is always
// present; AudioURL is null when even the fallback synthesis failed.
type fallbackBody struct {
	Text     string  `json:"text"`
	AudioURL *string `json:"audio_url"`
}

type speakBody struct {
	AudioURL string `json:"audio_url"`
}

type echoBody struct {
	Transcript string `json:"transcript"`
	AudioURL   string `json:"audio_url"`
}

type chatBody struct {
	Transcript   string `json:"transcript"`
	ResponseText string `json:"response_text"`
	AudioURL     string `json:"audio_url"`
}

func (s *Server) registerRoutes() {
	s.router.Get("/", s.handleIndex)
	s.router.Handle("/static/*", http.StripPrefix("/static/", http.FileServerFS(web.Static())))
	s.router.Get("/media/{key}", s.handleMedia)

	// The relay routes need raw http.ResponseWriter access (multipart
	// bodies, per-outcome status codes), so they cannot use Huma's
	// standard handler signature. The chi routes handle requests; the
	// OpenAPI entries below document them.
	s.router.Post("/generate-audio", s.handleGenerateAudio)
	s.router.Post("/tts/echo", s.handleEcho)
	s.router.Post("/agent/chat/{sessionID}", s.handleAgentChat)
	s.describeRelayOperations()
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	http.ServeFileFS(w, r, web.Static(), "index.html")
}

func (s *Server) handleMedia(w http.ResponseWriter, r *http.Request) {
	rc, contentType, err := s.media.Open(chi.URLParam(r, "key"))
	if err != nil {
		s.writeJSON(w, vocerr.HTTPStatus(err), errorBody{Error: "media not found"})
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "private, max-age=3600")
	if _, err := io.Copy(w, rc); err != nil {
		slog.Debug("media stream interrupted", "error", err)
	}
}

func (s *Server) handleGenerateAudio(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid request body"})
		return
	}
	text := strings.TrimSpace(req.Text)
	if text == "" {
		s.writeJSON(w, http.StatusBadRequest, errorBody{Error: "text is required"})
		return
	}

	out := s.relay.Speak(r.Context(), text)
	if out.Fallback {
		s.writeFallback(w, out)
		return
	}
	s.writeJSON(w, http.StatusOK, speakBody{AudioURL: out.AudioURL})
}

func (s *Server) handleEcho(w http.ResponseWriter, r *http.Request) {
	audio, ok := s.readUpload(w, r)
	if !ok {
		return
	}

	out := s.relay.Echo(r.Context(), audio)
	if out.Fallback {
		s.writeFallback(w, out)
		return
	}
	s.writeJSON(w, http.StatusOK, echoBody{Transcript: out.Transcript, AudioURL: out.AudioURL})
}

func (s *Server) handleAgentChat(w http.ResponseWriter, r *http.Request) {
	sessionID := strings.TrimSpace(chi.URLParam(r, "sessionID"))
	if sessionID == "" {
		s.writeJSON(w, http.StatusBadRequest, errorBody{Error: "session id is required"})
		return
	}

	audio, ok := s.readUpload(w, r)
	if !ok {
		return
	}

	out := s.relay.Converse(r.Context(), sessionID, audio)
	if out.Fallback {
		s.writeFallback(w, out)
		return
	}
	s.writeJSON(w, http.StatusOK, chatBody{
		Transcript:   out.Transcript,
		ResponseText: out.Response,
		AudioURL:     out.AudioURL,
	})
}

// readUpload pulls the multipart "file" field into memory via the media
// store's spool. A missing field is a validation failure and never reaches
// a provider.
func (s *Server) readUpload(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)

	file, header, err := r.FormFile("file")
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorBody{Error: "audio file is required"})
		return nil, false
	}
	defer file.Close()

	audio, err := s.media.SpoolUpload(header.Filename, file)
	if err != nil {
		slog.Error("spooling upload failed", "error", err)
		s.writeJSON(w, http.StatusInternalServerError, errorBody{Error: "reading upload failed"})
		return nil, false
	}
	return audio, true
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Debug("encoding response failed", "error", err)
	}
}

// writeFallback renders the degraded envelope. The status comes from the
// classified stage error but is clamped to the 5xx range: a fallback is
// always a server-side degradation, never the caller's fault.
func (s *Server) writeFallback(w http.ResponseWriter, out relay.Outcome) {
	status := vocerr.HTTPStatus(out.Err)
	if status < http.StatusInternalServerError {
		status = http.StatusInternalServerError
	}

	body := fallbackBody{Text: out.Text}
	if out.AudioURL != "" {
		body.AudioURL = &out.AudioURL
	}
	s.writeJSON(w, status, body)
}

// describeRelayOperations adds the raw chi routes to the OpenAPI spec.
func (s *Server) describeRelayOperations() {
	minTextLen := 1

	fallbackResponse := &huma.Response{
		Description: "Degraded fallback envelope",
		Content: map[string]*huma.MediaType{
			"application/json": {
				Schema: &huma.Schema{
					Type:     "object",
					Required: []string{"text"},
					Properties: map[string]*huma.Schema{
						"text":      {Type: "string", Description: "Speakable fallback message"},
						"audio_url": {Type: "string", Description: "Synthesized fallback audio, null if unavailable"},
					},
				},
			},
		},
	}

	uploadBody := &huma.RequestBody{
		Required: true,
		Content: map[string]*huma.MediaType{
			"multipart/form-data": {
				Schema: &huma.Schema{
					Type:     "object",
					Required: []string{"file"},
					Properties: map[string]*huma.Schema{
						"file": {
							Type:        "string",
							Format:      "binary",
							Description: "Recorded audio clip",
						},
					},
				},
			},
		},
	}

	s.api.OpenAPI().AddOperation(&huma.Operation{
		OperationID: "generate-audio",
		Method:      http.MethodPost,
		Path:        "/generate-audio",
		Summary:     "Synthesize speech from text",
		Tags:        []string{"relay"},
		RequestBody: &huma.RequestBody{
			Required: true,
			Content: map[string]*huma.MediaType{
				"application/json": {
					Schema: &huma.Schema{
						Type:     "object",
						Required: []string{"text"},
						Properties: map[string]*huma.Schema{
							"text": {
								Type:        "string",
								MinLength:   &minTextLen,
								Description: "Text to speak",
							},
						},
					},
				},
			},
		},
		Responses: map[string]*huma.Response{
			"200": {
				Description: "Synthesized audio URL",
				Content: map[string]*huma.MediaType{
					"application/json": {
						Schema: &huma.Schema{
							Type: "object",
							Properties: map[string]*huma.Schema{
								"audio_url": {Type: "string"},
							},
						},
					},
				},
			},
			"400": {Description: "Missing or empty text"},
			"502": fallbackResponse,
		},
	})

	s.api.OpenAPI().AddOperation(&huma.Operation{
		OperationID: "tts-echo",
		Method:      http.MethodPost,
		Path:        "/tts/echo",
		Summary:     "Transcribe audio and speak the transcript back",
		Tags:        []string{"relay"},
		RequestBody: uploadBody,
		Responses: map[string]*huma.Response{
			"200": {
				Description: "Transcript and synthesized echo",
				Content: map[string]*huma.MediaType{
					"application/json": {
						Schema: &huma.Schema{
							Type: "object",
							Properties: map[string]*huma.Schema{
								"transcript": {Type: "string"},
								"audio_url":  {Type: "string"},
							},
						},
					},
				},
			},
			"400": {Description: "Missing audio file"},
			"502": fallbackResponse,
		},
	})

	s.api.OpenAPI().AddOperation(&huma.Operation{
		OperationID: "agent-chat",
		Method:      http.MethodPost,
		Path:        "/agent/chat/{sessionID}",
		Summary:     "One conversational voice turn",
		Description: "Transcribes the clip, appends it to the session history, generates the next turn from the full history, and speaks it.",
		Tags:        []string{"relay"},
		Parameters: []*huma.Param{
			{
				Name:        "sessionID",
				In:          "path",
				Required:    true,
				Description: "Opaque session identifier; created on first use",
				Schema:      &huma.Schema{Type: "string"},
			},
		},
		RequestBody: uploadBody,
		Responses: map[string]*huma.Response{
			"200": {
				Description: "Transcript, generated reply, and synthesized audio",
				Content: map[string]*huma.MediaType{
					"application/json": {
						Schema: &huma.Schema{
							Type: "object",
							Properties: map[string]*huma.Schema{
								"transcript":    {Type: "string"},
								"response_text": {Type: "string"},
								"audio_url":     {Type: "string"},
							},
						},
					},
				},
			},
			"400": {Description: "Missing audio file or session id"},
			"502": fallbackResponse,
		},
	})
}
