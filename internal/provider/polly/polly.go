// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Vocalis Contributors

// Package polly implements text-to-speech using Amazon Polly. Unlike
// Murf, Polly returns raw audio bytes, so synthesized speech is written
// to the local media store and served from the relay's own /media route.
package polly

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	pollysdk "github.com/aws/aws-sdk-go-v2/service/polly"
	pollytypes "github.com/aws/aws-sdk-go-v2/service/polly/types"
	"github.com/aws/smithy-go"

	"github.com/vocalis-dev/vocalis/internal/provider"
	vocerr "github.com/vocalis-dev/vocalis/pkg/errors"
)

// AudioSink stores synthesized audio bytes and returns the URL they are
// served from. Satisfied by *media.Store.
type AudioSink interface {
	PutAudio(contentType string, data []byte) (string, error)
}

type synthClient interface {
	SynthesizeSpeech(ctx context.Context, params *pollysdk.SynthesizeSpeechInput, optFns ...func(*pollysdk.Options)) (*pollysdk.SynthesizeSpeechOutput, error)
}

// Config holds Polly provider configuration. Credentials come from the
// ambient AWS credential chain.
type Config struct {
	Region  string
	Voice   string
	Engine  string
	Timeout time.Duration
}

// Synthesizer implements provider.Synthesizer using Amazon Polly.
type Synthesizer struct {
	mu     sync.Mutex
	client synthClient
	sink   AudioSink
	cfg    Config
}

var _ provider.Synthesizer = (*Synthesizer)(nil)

// New creates a new Polly synthesizer writing audio into sink.
func New(cfg Config, sink AudioSink) (*Synthesizer, error) {
	return NewWithClient(cfg, sink, nil)
}

// NewWithClient is New with an injected Polly client, for tests.
func NewWithClient(cfg Config, sink AudioSink, client synthClient) (*Synthesizer, error) {
	if sink == nil {
		return nil, vocerr.New(vocerr.CodeProviderRequestInvalid, "polly: audio sink is required", vocerr.FieldProvider("polly"))
	}
	if strings.TrimSpace(cfg.Region) == "" {
		cfg.Region = "us-east-1"
	}
	if strings.TrimSpace(cfg.Voice) == "" {
		cfg.Voice = "Joanna"
	}
	if strings.TrimSpace(cfg.Engine) == "" {
		cfg.Engine = "neural"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}

	return &Synthesizer{client: client, sink: sink, cfg: cfg}, nil
}

func (s *Synthesizer) Name() string { return "polly" }

func (s *Synthesizer) Close() error { return nil }

// Synthesize makes one SynthesizeSpeech call and stores the MP3 result in
// the media store.
func (s *Synthesizer) Synthesize(ctx context.Context, text string) (string, error) {
	client, err := s.resolveClient(ctx)
	if err != nil {
		return "", err
	}

	engine := pollytypes.EngineStandard
	if strings.EqualFold(s.cfg.Engine, "neural") {
		engine = pollytypes.EngineNeural
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	output, err := client.SynthesizeSpeech(ctx, &pollysdk.SynthesizeSpeechInput{
		Engine:       engine,
		OutputFormat: pollytypes.OutputFormatMp3,
		Text:         &text,
		TextType:     pollytypes.TextTypeText,
		VoiceId:      pollytypes.VoiceId(s.cfg.Voice),
	})
	if err != nil {
		return "", classifyError(err)
	}
	if output == nil || output.AudioStream == nil {
		return "", vocerr.New(vocerr.CodeProviderResponseEmpty, "polly: response carried no audio stream", vocerr.FieldProvider("polly"))
	}
	defer output.AudioStream.Close()

	audio, err := io.ReadAll(output.AudioStream)
	if err != nil {
		return "", vocerr.Wrapf(err, vocerr.CodeProviderUpstreamFailure, "polly: reading audio stream")
	}
	if len(audio) == 0 {
		return "", vocerr.New(vocerr.CodeProviderResponseEmpty, "polly: audio stream was empty", vocerr.FieldProvider("polly"))
	}

	url, err := s.sink.PutAudio("audio/mpeg", audio)
	if err != nil {
		return "", vocerr.Wrapf(err, vocerr.CodeProviderUpstreamFailure, "polly: storing synthesized audio")
	}
	return url, nil
}

func classifyError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return vocerr.Wrapf(err, vocerr.CodeProviderCallTimeout, "polly: synthesis timed out")
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return vocerr.Wrapf(err, vocerr.CodeProviderUpstreamFailure, "polly: synthesis failed with %s", apiErr.ErrorCode())
	}

	return vocerr.Wrapf(err, vocerr.CodeProviderUpstreamFailure, "polly: synthesis request")
}

func (s *Synthesizer) resolveClient(ctx context.Context) (synthClient, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.client != nil {
		return s.client, nil
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(s.cfg.Region))
	if err != nil {
		return nil, vocerr.Wrapf(err, vocerr.CodeProviderUpstreamFailure, "polly: loading aws config")
	}
	s.client = pollysdk.NewFromConfig(awsCfg)
	return s.client, nil
}
