package game

import (
	"cc-bridge/protocol"
	"context"
	"go.uber.org/zap"
)

// dispatch routes one result from the game:
//   - Retry results are parked at the front of the retry queue.
//   - EffectRequest results are matched with their pending command and reported to the remote side.
//   - Anything else (keep-alive, login) replays the oldest parked retry, if any.
func (s *session) dispatch(ctx context.Context, res protocol.Result) error {
	logger := s.logger.With(
		zap.Uint32("id", res.Id),
		zap.Stringer("status", res.Status),
		zap.Stringer("type", res.Type),
	)

	switch {
	case res.Status == protocol.ResultStatusRetry:
		return s.queueRetry(logger, res)
	case res.Type == protocol.ResultTypeEffectRequest:
		return s.correlate(ctx, logger, res)
	default:
		return s.replay(ctx, logger)
	}
}

func (s *session) queueRetry(logger *zap.Logger, res protocol.Result) error {
	oldest, dropped := s.retries.PushFront(res)
	s.server.counters.retriesQueued.Add(1)
	logger.Info("Result queued for retry", zap.Int("retryQueueLength", s.retries.Len()))

	if dropped {
		s.server.counters.retriesDropped.Add(1)
		logger.Warn("Retry queue full, dropped oldest result",
			zap.Uint32("droppedId", oldest.Id),
			zap.Int("retryLimit", s.server.cfg.RetryLimit))
	}
	return nil
}

func (s *session) correlate(ctx context.Context, logger *zap.Logger, res protocol.Result) error {
	cmd, ok := s.pending.Take(res.Id)
	if !ok {
		s.server.counters.correlationMisses.Add(1)
		logger.Info("Result does not match any pending command, dropped")
		return nil
	}

	msg, ok := protocol.NewRemoteOutbound(cmd, res)
	if !ok {
		s.server.counters.correlationMisses.Add(1)
		logger.Warn("Pending command has no target or code, result dropped")
		return nil
	}

	s.server.counters.correlated.Add(1)
	logger.Debug("Result correlated",
		zap.String("playerId", msg.PlayerId),
		zap.String("code", msg.Code),
		zap.Int64("time", msg.Time))

	return s.server.toRemote.Push(ctx, msg)
}

// replay re-issues the command behind the oldest retry result. The pending entry of
// the replayed command is removed, the writer tracks the reissued command under a new id.
func (s *session) replay(ctx context.Context, logger *zap.Logger) error {
	retry, ok := s.retries.PopBack()
	if !ok {
		logger.Debug("Nothing to replay")
		return nil
	}

	logger = logger.With(zap.Uint32("replayId", retry.Id))

	cmd, ok := s.pending.Take(retry.Id)
	if !ok {
		s.server.counters.replayMisses.Add(1)
		logger.Warn("Retried command is no longer pending, replay dropped")
		return nil
	}

	request, ok := protocol.NewReplay(cmd)
	if !ok {
		s.server.counters.replayMisses.Add(1)
		logger.Warn("Retried command has no target or code, replay dropped")
		return nil
	}

	payload, err := protocol.EncodeRemoteInbound(request)
	if err != nil {
		return err
	}

	s.server.counters.replays.Add(1)
	logger.Info("Replaying command",
		zap.String("playerId", request.PlayerId),
		zap.String("code", request.Code),
		zap.Int("retryQueueLength", s.retries.Len()))

	return s.server.toGame.Push(ctx, payload)
}
