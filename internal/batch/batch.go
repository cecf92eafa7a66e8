// Package batch runs many extraction queries through one conversation and
// keeps going when single queries fail.
package batch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/spigell/resume-extractor/internal/agent"
	"github.com/spigell/resume-extractor/internal/conversation"
	"github.com/spigell/resume-extractor/internal/extract"
	"github.com/spigell/resume-extractor/internal/logger"
)

var now = func() time.Time { return time.Now().UTC() }

type Options struct {
	// SharedSession sends every query in one conversation. When false each
	// query gets a fresh conversation.
	SharedSession bool
	// Preamble is sent before the first query whenever a new conversation is opened.
	Preamble []string
}

type Extractor struct {
	manager *conversation.Manager
	opts    Options
	logger  *zap.Logger
}

func New(manager *conversation.Manager, opts Options, log *zap.Logger) *Extractor {
	return &Extractor{
		manager: manager,
		opts:    opts,
		logger:  logger.WithCommonFields(log, manager.AgentName(), ""),
	}
}

// RunBatch returns exactly one record per query in input order.
// The only error it returns is a failure to open the shared conversation.
func (e *Extractor) RunBatch(ctx context.Context, queries []string, reuseSession bool) (Result, error) {
	result := make(Result, 0, len(queries))

	var shared *conversation.Session
	if e.opts.SharedSession {
		s, err := e.open(ctx, reuseSession)
		if err != nil {
			return nil, err
		}
		shared = s
	}

	for i, query := range queries {
		index := i + 1
		log := e.logger.With(zap.Int("query_index", index), zap.Int("queries_total", len(queries)))

		s := shared
		if s == nil {
			var err error
			s, err = e.open(ctx, false)
			if err != nil {
				rec := requestFailed(index, query, err, now())
				log.Warn("opening conversation failed", zap.String("query", query), zap.Error(err))
				result = append(result, rec)
				continue
			}
		}

		rec := e.process(ctx, s, index, query)
		e.logRecord(log, rec)
		result = append(result, rec)
	}

	summary := result.Summary()
	e.logger.Info("batch completed",
		zap.Int("total", summary.Total),
		zap.Int("ok", summary.ByStatus[StatusOK]),
		zap.Int("parse_failed", summary.ByStatus[StatusParseFailed]),
		zap.Int("request_failed", summary.ByStatus[StatusRequestFailed]),
	)

	return result, nil
}

func (e *Extractor) open(ctx context.Context, reuse bool) (*conversation.Session, error) {
	s, err := e.manager.CreateOrLoad(ctx, reuse)
	if err != nil {
		return nil, err
	}

	if s.Reused || len(e.opts.Preamble) == 0 {
		return s, nil
	}

	turns, err := e.manager.RunRounds(ctx, s, e.opts.Preamble)
	if err != nil {
		return nil, fmt.Errorf("%w: prime conversation %s after %d of %d messages: %w",
			agent.ErrSessionUnavailable, s.ID, len(turns), len(e.opts.Preamble), err)
	}

	return s, nil
}

func (e *Extractor) process(ctx context.Context, s *conversation.Session, index int, query string) Record {
	turn, err := e.manager.SendTurn(ctx, s, query)
	if err != nil {
		rec := requestFailed(index, query, err, now())
		rec.SessionID = s.ID
		return rec
	}

	rec := Record{
		Index:       index,
		SourceQuery: query,
		SessionID:   s.ID,
		Sequence:    turn.Index,
		Timestamp:   turn.Timestamp,
	}

	out := extract.Extract(turn.Reply)
	if !out.OK() {
		rec.Status = StatusParseFailed
		rec.Failure = FailureParse
		rec.Error = out.Reason
		rec.RawReply = out.Raw
		return rec
	}

	rec.Status = StatusOK
	rec.Fields = out.Fields
	rec.RawReply = out.Raw

	return rec
}

func (e *Extractor) logRecord(log *zap.Logger, rec Record) {
	if rec.OK() {
		log.Info("query extracted",
			zap.String("query", rec.SourceQuery),
			zap.Int("fields", rec.Fields.Len()),
		)
		return
	}

	log.Warn("query failed",
		zap.String("query", rec.SourceQuery),
		zap.String("status", string(rec.Status)),
		zap.String("failure", string(rec.Failure)),
		zap.Error(errors.New(rec.Error)),
	)
}
