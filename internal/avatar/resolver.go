// Package avatar resolves a social handle to a usable avatar image URL.
//
// RESOLUTION CHAIN:
// Strategies are tried strictly in order. Each one produces a candidate URL
// (from a template or a profile-API lookup) which is then probed with a HEAD
// request. The first candidate that answers 2xx, declares an image
// content-type and is not a known placeholder wins. The chain always ends in
// a terminal strategy that generates an initials image, so Resolve never
// fails and never returns "".
package avatar

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

const (
	// DefaultProbeTimeout bounds each strategy (lookup + probe).
	DefaultProbeTimeout = 5 * time.Second

	// DefaultPlaceholderSize is the byte size of unavatar's default
	// "no avatar" image. A candidate of exactly this size is a miss.
	DefaultPlaceholderSize = 1506
)

// Strategy is one step in the resolution chain.
//
// Exactly one of URL or Lookup is set. URL builds a candidate
// deterministically; Lookup asks a remote profile API for one. A Terminal
// strategy must use URL: it is accepted without probing.
type Strategy struct {
	Name     string
	URL      func(handle string) string
	Lookup   func(ctx context.Context, handle string) (string, error)
	Terminal bool
}

// Candidate is what a strategy produced and what the probe saw.
type Candidate struct {
	Service     string
	URL         string
	ContentType string
	Size        int64
}

// Config tunes the resolver.
type Config struct {
	ProbeTimeout    time.Duration
	PlaceholderSize int64
}

// DefaultConfig returns the production timeouts and placeholder size.
func DefaultConfig() Config {
	return Config{
		ProbeTimeout:    DefaultProbeTimeout,
		PlaceholderSize: DefaultPlaceholderSize,
	}
}

// Resolver walks the strategy chain.
type Resolver struct {
	strategies []Strategy
	prober     Prober
	cfg        Config
	logger     *slog.Logger
}

// NewResolver validates the chain: every strategy needs a candidate source,
// and only the last one may be (and must be) terminal.
func NewResolver(strategies []Strategy, prober Prober, cfg Config, logger *slog.Logger) (*Resolver, error) {
	if len(strategies) == 0 {
		return nil, errors.New("avatar: at least one strategy is required")
	}
	for i, s := range strategies {
		last := i == len(strategies)-1
		switch {
		case s.URL == nil && s.Lookup == nil:
			return nil, fmt.Errorf("avatar: strategy %q has no candidate source", s.Name)
		case s.Terminal && !last:
			return nil, fmt.Errorf("avatar: terminal strategy %q must be last", s.Name)
		case last && !s.Terminal:
			return nil, fmt.Errorf("avatar: last strategy %q must be terminal", s.Name)
		case s.Terminal && s.URL == nil:
			return nil, fmt.Errorf("avatar: terminal strategy %q must build its URL locally", s.Name)
		}
	}
	if prober == nil {
		return nil, errors.New("avatar: prober is required")
	}
	if cfg.ProbeTimeout <= 0 {
		cfg.ProbeTimeout = DefaultProbeTimeout
	}

	cp := make([]Strategy, len(strategies))
	copy(cp, strategies)
	return &Resolver{strategies: cp, prober: prober, cfg: cfg, logger: logger}, nil
}

// Resolve returns the first acceptable avatar URL for handle, or the
// terminal generated fallback. It never fails.
func (r *Resolver) Resolve(ctx context.Context, handle string) string {
	for _, s := range r.strategies {
		if s.Terminal {
			url := s.URL(handle)
			r.logger.Info("avatar resolved via fallback",
				slog.String("handle", handle),
				slog.String("service", s.Name),
			)
			return url
		}

		cand, err := r.try(ctx, s, handle)
		if err != nil {
			r.logger.Debug("avatar candidate rejected",
				slog.String("handle", handle),
				slog.String("service", s.Name),
				slog.String("reason", err.Error()),
			)
			continue
		}

		r.logger.Info("avatar resolved",
			slog.String("handle", handle),
			slog.String("service", cand.Service),
			slog.String("url", cand.URL),
			slog.Int64("bytes", cand.Size),
		)
		return cand.URL
	}

	// Unreachable with a validated chain, kept so Resolve has no failure path.
	return r.strategies[len(r.strategies)-1].URL(handle)
}

// try runs one non-terminal strategy under its own timeout.
func (r *Resolver) try(ctx context.Context, s Strategy, handle string) (*Candidate, error) {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.ProbeTimeout)
	defer cancel()

	url, err := r.candidateURL(ctx, s, handle)
	if err != nil {
		return nil, err
	}

	res, err := r.prober.Probe(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("probe: %w", err)
	}
	if res.Status < 200 || res.Status > 299 {
		return nil, fmt.Errorf("status %d", res.Status)
	}
	if !strings.Contains(strings.ToLower(res.ContentType), "image") {
		return nil, fmt.Errorf("non-image content type %q", res.ContentType)
	}
	if r.cfg.PlaceholderSize > 0 && res.ContentLength == r.cfg.PlaceholderSize {
		return nil, fmt.Errorf("placeholder image (%d bytes)", res.ContentLength)
	}

	return &Candidate{
		Service:     s.Name,
		URL:         url,
		ContentType: res.ContentType,
		Size:        res.ContentLength,
	}, nil
}

func (r *Resolver) candidateURL(ctx context.Context, s Strategy, handle string) (string, error) {
	if s.Lookup == nil {
		return s.URL(handle), nil
	}
	url, err := s.Lookup(ctx, handle)
	if err != nil {
		return "", fmt.Errorf("lookup: %w", err)
	}
	if url == "" {
		return "", errors.New("lookup: no avatar")
	}
	return url, nil
}
