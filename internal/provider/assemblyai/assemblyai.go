// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Vocalis Contributors

// Package assemblyai implements speech-to-text against the AssemblyAI v2
// API: upload the audio bytes, create a transcript job, then poll until
// the job settles. The whole sequence counts as one attempt and shares
// one deadline.
package assemblyai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/vocalis-dev/vocalis/internal/provider"
	vocerr "github.com/vocalis-dev/vocalis/pkg/errors"
)

const (
	// DefaultEndpoint is the AssemblyAI v2 API base.
	DefaultEndpoint = "https://api.assemblyai.com/v2"

	defaultTimeout      = 10 * time.Second
	defaultPollInterval = 500 * time.Millisecond
)

// Config holds AssemblyAI provider configuration.
type Config struct {
	APIKey       string
	Endpoint     string // optional, useful for testing against a mock server
	Timeout      time.Duration
	PollInterval time.Duration
}

// Transcriber implements provider.Transcriber using the AssemblyAI API.
type Transcriber struct {
	cfg    Config
	client *http.Client
}

var _ provider.Transcriber = (*Transcriber)(nil)

// New creates a new AssemblyAI transcriber. Returns an error if the API
// key is missing.
func New(cfg Config) (*Transcriber, error) {
	if cfg.APIKey == "" {
		return nil, vocerr.New(vocerr.CodeProviderRequestInvalid, "assemblyai: missing api_key in config", vocerr.FieldProvider("assemblyai"))
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	cfg.Endpoint = strings.TrimRight(cfg.Endpoint, "/")
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaultPollInterval
	}

	return &Transcriber{cfg: cfg, client: &http.Client{}}, nil
}

func (t *Transcriber) Name() string { return "assemblyai" }

func (t *Transcriber) Close() error { return nil }

type transcriptJob struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Text   string `json:"text"`
	Error  string `json:"error"`
}

// Transcribe uploads the audio and polls the transcript job until it
// completes, errors, or the deadline expires.
func (t *Transcriber) Transcribe(ctx context.Context, audio []byte) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, t.cfg.Timeout)
	defer cancel()

	uploadURL, err := t.upload(ctx, audio)
	if err != nil {
		return "", err
	}

	job, err := t.createJob(ctx, uploadURL)
	if err != nil {
		return "", err
	}

	return t.poll(ctx, job.ID)
}

func (t *Transcriber) upload(ctx context.Context, audio []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.cfg.Endpoint+"/upload", bytes.NewReader(audio))
	if err != nil {
		return "", vocerr.Wrapf(err, vocerr.CodeProviderRequestInvalid, "assemblyai: building upload request")
	}
	req.Header.Set("authorization", t.cfg.APIKey)
	req.Header.Set("Content-Type", "application/octet-stream")

	var out struct {
		UploadURL string `json:"upload_url"`
	}
	if err := t.do(req, &out); err != nil {
		return "", err
	}
	if out.UploadURL == "" {
		return "", vocerr.New(vocerr.CodeProviderUpstreamFailure, "assemblyai: upload returned no URL", vocerr.FieldProvider("assemblyai"))
	}
	return out.UploadURL, nil
}

func (t *Transcriber) createJob(ctx context.Context, audioURL string) (*transcriptJob, error) {
	body, err := json.Marshal(map[string]string{"audio_url": audioURL})
	if err != nil {
		return nil, vocerr.Wrapf(err, vocerr.CodeProviderRequestInvalid, "assemblyai: encoding transcript request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.cfg.Endpoint+"/transcript", bytes.NewReader(body))
	if err != nil {
		return nil, vocerr.Wrapf(err, vocerr.CodeProviderRequestInvalid, "assemblyai: building transcript request")
	}
	req.Header.Set("authorization", t.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	var job transcriptJob
	if err := t.do(req, &job); err != nil {
		return nil, err
	}
	if job.ID == "" {
		return nil, vocerr.New(vocerr.CodeProviderUpstreamFailure, "assemblyai: transcript job has no id", vocerr.FieldProvider("assemblyai"))
	}
	return &job, nil
}

func (t *Transcriber) poll(ctx context.Context, jobID string) (string, error) {
	ticker := time.NewTicker(t.cfg.PollInterval)
	defer ticker.Stop()

	for {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.cfg.Endpoint+"/transcript/"+jobID, nil)
		if err != nil {
			return "", vocerr.Wrapf(err, vocerr.CodeProviderRequestInvalid, "assemblyai: building poll request")
		}
		req.Header.Set("authorization", t.cfg.APIKey)

		var job transcriptJob
		if err := t.do(req, &job); err != nil {
			return "", err
		}

		switch job.Status {
		case "completed":
			if strings.TrimSpace(job.Text) == "" {
				return "", vocerr.New(vocerr.CodeProviderResponseEmpty, "assemblyai: transcript is empty", vocerr.FieldProvider("assemblyai"))
			}
			return job.Text, nil
		case "error":
			return "", vocerr.Errorf(vocerr.CodeProviderUpstreamFailure, "assemblyai: transcription failed: %s", job.Error)
		}

		select {
		case <-ctx.Done():
			return "", vocerr.Wrapf(ctx.Err(), vocerr.CodeProviderCallTimeout, "assemblyai: transcript %s did not settle in time", jobID)
		case <-ticker.C:
		}
	}
}

func (t *Transcriber) do(req *http.Request, out any) error {
	resp, err := t.client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return vocerr.Wrapf(err, vocerr.CodeProviderCallTimeout, "assemblyai: call timed out")
		}
		return vocerr.Wrapf(err, vocerr.CodeProviderUpstreamFailure, "assemblyai: request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return vocerr.Errorf(vocerr.CodeProviderUpstreamFailure,
			"assemblyai: %s returned %d: %s", req.URL.Path, resp.StatusCode, snippet)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return vocerr.Wrapf(err, vocerr.CodeProviderUpstreamFailure, "assemblyai: decoding response")
	}
	return nil
}
