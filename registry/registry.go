package registry

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/isdmx/snipbox/language"
)

// Registry resolves language codes to descriptors and gates execution on availability.
// Availability and versions are written only by probing passes.
type Registry struct {
	logger      *zap.Logger
	builder     ImageBuilder
	probeOpts   ProbeOptions
	descriptors []language.Descriptor
	byCode      map[string]language.Descriptor

	mu        sync.RWMutex
	available map[string]bool
	versions  map[string]string

	// probeMu serializes probing passes.
	probeMu sync.Mutex
}

// Info describes one language for listings.
type Info struct {
	Name      string   `yaml:"name"`
	Codes     []string `yaml:"codes"`
	Image     string   `yaml:"image"`
	Available bool     `yaml:"available"`
	Version   string   `yaml:"version,omitempty"`
	LogoURL   string   `yaml:"logo_url"`
}

// Option defines a functional option for Registry
type Option func(*Registry)

// WithImageBuilder sets the runtime used by probing passes.
func WithImageBuilder(b ImageBuilder) Option {
	return func(r *Registry) {
		r.builder = b
	}
}

// WithProbeOptions overrides the probing settings.
func WithProbeOptions(o ProbeOptions) Option {
	return func(r *Registry) {
		r.probeOpts = o
	}
}

// New creates a registry over descriptors. Every language starts unavailable.
// Two descriptors claiming the same code is an error.
func New(logger *zap.Logger, descriptors []language.Descriptor, opts ...Option) (*Registry, error) {
	r := &Registry{
		logger:      logger,
		probeOpts:   DefaultProbeOptions(),
		descriptors: make([]language.Descriptor, len(descriptors)),
		byCode:      make(map[string]language.Descriptor),
		available:   make(map[string]bool),
		versions:    make(map[string]string),
	}
	copy(r.descriptors, descriptors)
	sort.Slice(r.descriptors, func(i, j int) bool {
		return r.descriptors[i].Name() < r.descriptors[j].Name()
	})

	for _, d := range r.descriptors {
		for _, code := range d.Codes() {
			code = strings.ToLower(code)
			if other, ok := r.byCode[code]; ok {
				return nil, fmt.Errorf("language code %q claimed by both %s and %s", code, other.Name(), d.Name())
			}
			r.byCode[code] = d
		}
	}

	for _, opt := range opts {
		opt(r)
	}

	return r, nil
}

// Descriptors returns every registered descriptor sorted by name.
func (r *Registry) Descriptors() []language.Descriptor {
	out := make([]language.Descriptor, len(r.descriptors))
	copy(out, r.descriptors)
	return out
}

// Lookup resolves a code regardless of availability.
func (r *Registry) Lookup(code string) (language.Descriptor, error) {
	code = strings.ToLower(strings.TrimSpace(code))
	if d, ok := r.byCode[code]; ok {
		return d, nil
	}
	return nil, &UnknownLanguageError{Code: code, Available: r.AvailableCodes()}
}

// Resolve looks up a code and refuses languages that are not available.
func (r *Registry) Resolve(code string) (language.Descriptor, error) {
	d, err := r.Lookup(code)
	if err != nil {
		return nil, err
	}
	if !r.IsAvailable(d) {
		return nil, fmt.Errorf("%w: %s", ErrLanguageUnavailable, d.Name())
	}
	return d, nil
}

// IsAvailable reports whether the descriptor's image was built by the last probe.
func (r *Registry) IsAvailable(d language.Descriptor) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.available[d.Name()]
}

// SetAvailable records the availability of one language.
func (r *Registry) SetAvailable(d language.Descriptor, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.available[d.Name()] = ok
	if !ok {
		delete(r.versions, d.Name())
	}
}

// Version returns the cached toolchain version, if any.
func (r *Registry) Version(d language.Descriptor) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.versions[d.Name()]
	return v, ok
}

func (r *Registry) setVersion(d language.Descriptor, v string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.versions[d.Name()] = v
}

func (r *Registry) clearVersion(d language.Descriptor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.versions, d.Name())
}

// AvailableCodes returns the sorted codes of every available language.
func (r *Registry) AvailableCodes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	codes := make([]string, 0, len(r.byCode))
	for code, d := range r.byCode {
		if r.available[d.Name()] {
			codes = append(codes, code)
		}
	}
	sort.Strings(codes)
	return codes
}

// Languages lists every language with its availability and version.
func (r *Registry) Languages() []Info {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Info, 0, len(r.descriptors))
	for _, d := range r.descriptors {
		out = append(out, Info{
			Name:      d.Name(),
			Codes:     d.Codes(),
			Image:     d.ImageName(),
			Available: r.available[d.Name()],
			Version:   r.versions[d.Name()],
			LogoURL:   d.LogoURL(),
		})
	}
	return out
}
