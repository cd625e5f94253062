// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package research

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pdiddy/market-research/pkg/types"
)

// ErrSessionFinalized is returned by Run after Finalize.
var ErrSessionFinalized = errors.New("research session finalized")

// Session scopes a sequence of research runs to one caller. It starts the
// fetcher once, records every result, and releases the fetcher on
// Finalize. Callers that need run history hold a Session; nothing is kept
// at package level.
type Session struct {
	ID      string
	Started time.Time

	loop   *Loop
	logger *zap.Logger

	mu        sync.Mutex
	results   []types.ResearchResult
	finalized bool
}

// NewSession returns a session over loop.
func NewSession(loop *Loop) *Session {
	id := uuid.NewString()
	return &Session{
		ID:      id,
		Started: time.Now(),
		loop:    loop,
		logger:  loop.logger.With(zap.String("session", id)),
	}
}

// Start prepares the fetcher for the session's runs.
func (s *Session) Start(ctx context.Context) error {
	if err := s.loop.Start(ctx); err != nil {
		return fmt.Errorf("starting session %s: %w", s.ID, err)
	}
	s.logger.Debug("session started")
	return nil
}

// Run executes one research run and records its result.
func (s *Session) Run(ctx context.Context, candidates []types.Candidate, query string, opts Options) (types.ResearchResult, error) {
	s.mu.Lock()
	done := s.finalized
	s.mu.Unlock()
	if done {
		return types.ResearchResult{}, ErrSessionFinalized
	}

	res, err := s.loop.Run(ctx, candidates, query, opts)
	if err != nil {
		return res, err
	}

	s.mu.Lock()
	s.results = append(s.results, res)
	s.mu.Unlock()
	return res, nil
}

// Results returns a copy of the results recorded so far.
func (s *Session) Results() []types.ResearchResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]types.ResearchResult, len(s.results))
	copy(out, s.results)
	return out
}

// Finalize ends the session and closes the fetcher if it holds resources.
// It is safe to call more than once.
func (s *Session) Finalize() error {
	s.mu.Lock()
	if s.finalized {
		s.mu.Unlock()
		return nil
	}
	s.finalized = true
	runs := len(s.results)
	s.mu.Unlock()

	s.logger.Debug("session finalized", zap.Int("runs", runs), zap.Duration("elapsed", time.Since(s.Started)))
	if c, ok := s.loop.fetcher.(io.Closer); ok {
		if err := c.Close(); err != nil {
			return fmt.Errorf("closing fetcher: %w", err)
		}
	}
	return nil
}
