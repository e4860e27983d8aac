// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Vocalis Contributors

package provider

import (
	"sync"

	vocerr "github.com/vocalis-dev/vocalis/pkg/errors"
)

// Registry is the capability set resolved once at process start. A stage
// whose provider was never configured short-circuits to fallback without
// attempting a call; there is no hot reload and no mid-request failover.
type Registry struct {
	mu           sync.RWMutex
	transcribers map[string]Transcriber
	synthesizers map[string]Synthesizer
	generators   map[string]Generator

	sttDefault string
	ttsDefault string
	genDefault string
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		transcribers: make(map[string]Transcriber),
		synthesizers: make(map[string]Synthesizer),
		generators:   make(map[string]Generator),
	}
}

// RegisterTranscriber adds a speech-to-text provider. The first registered
// provider becomes the default.
func (r *Registry) RegisterTranscriber(t Transcriber) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.transcribers[t.Name()] = t
	if r.sttDefault == "" {
		r.sttDefault = t.Name()
	}
}

// RegisterSynthesizer adds a text-to-speech provider. The first registered
// provider becomes the default.
func (r *Registry) RegisterSynthesizer(s Synthesizer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.synthesizers[s.Name()] = s
	if r.ttsDefault == "" {
		r.ttsDefault = s.Name()
	}
}

// RegisterGenerator adds a generative-text provider. The first registered
// provider becomes the default.
func (r *Registry) RegisterGenerator(g Generator) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.generators[g.Name()] = g
	if r.genDefault == "" {
		r.genDefault = g.Name()
	}
}

// SetDefaults overrides which registered provider serves each stage.
// Empty names leave the current default untouched; naming an unregistered
// provider is an error so misconfiguration surfaces at startup.
func (r *Registry) SetDefaults(stt, tts, gen string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if stt != "" {
		if _, ok := r.transcribers[stt]; !ok {
			return vocerr.New(vocerr.CodeProviderNotFound, "default transcriber not registered: "+stt, vocerr.FieldProvider(stt))
		}
		r.sttDefault = stt
	}
	if tts != "" {
		if _, ok := r.synthesizers[tts]; !ok {
			return vocerr.New(vocerr.CodeProviderNotFound, "default synthesizer not registered: "+tts, vocerr.FieldProvider(tts))
		}
		r.ttsDefault = tts
	}
	if gen != "" {
		if _, ok := r.generators[gen]; !ok {
			return vocerr.New(vocerr.CodeProviderNotFound, "default generator not registered: "+gen, vocerr.FieldProvider(gen))
		}
		r.genDefault = gen
	}
	return nil
}

// Transcriber returns the default speech-to-text provider, or false when
// none is configured.
func (r *Registry) Transcriber() (Transcriber, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.transcribers[r.sttDefault]
	return t, ok
}

// Synthesizer returns the default text-to-speech provider, or false when
// none is configured.
func (r *Registry) Synthesizer() (Synthesizer, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.synthesizers[r.ttsDefault]
	return s, ok
}

// Generator returns the default generative-text provider, or false when
// none is configured.
func (r *Registry) Generator() (Generator, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	g, ok := r.generators[r.genDefault]
	return g, ok
}

// Names lists every registered provider grouped by capability, for
// diagnostics.
func (r *Registry) Names() (stt, tts, gen []string) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for name := range r.transcribers {
		stt = append(stt, name)
	}
	for name := range r.synthesizers {
		tts = append(tts, name)
	}
	for name := range r.generators {
		gen = append(gen, name)
	}
	return stt, tts, gen
}

// Close shuts down all registered providers.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var errs []error
	for _, t := range r.transcribers {
		if err := t.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	for _, s := range r.synthesizers {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	for _, g := range r.generators {
		if err := g.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return vocerr.Join(errs...)
	}
	return nil
}
