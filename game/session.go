package game

import (
	"cc-bridge/connstate"
	"cc-bridge/protocol"
	"cc-bridge/util"
	"context"
	"errors"
	"go.uber.org/zap"
	"io"
	"net"
)

const framePreviewLimit = 256

// session is the state of one game connection. It is dropped when the connection ends.
type session struct {
	server  *Server
	logger  *zap.Logger
	reader  *protocol.StreamReader
	writer  *protocol.StreamWriter
	pending *PendingTable
	retries *RetryQueue

	// Only touched by the writer.
	nextId uint32
}

func newSession(server *Server, conn net.Conn, logger *zap.Logger) *session {
	return &session{
		server:  server,
		logger:  logger,
		reader:  protocol.NewStreamReader(conn, server.cfg.MaxFrameSize),
		writer:  protocol.NewStreamWriter(conn),
		pending: NewPendingTable(server.cfg.PendingTTL),
		retries: NewRetryQueue(server.cfg.RetryLimit),
	}
}

func (s *session) readLoop(ctx context.Context) error {
	for {
		frame, err := s.reader.ReadFrame()
		if err != nil {
			if errors.Is(err, io.EOF) && ctx.Err() == nil {
				s.logger.Info("Game closed the connection (EOF reached)")
			}
			return connstate.Outcome(ctx, connstate.SideGame, "read", err)
		}
		_ = s.server.cfg.FrameLogger.LogFrame(util.FrameDirectionIn, frame)

		res, err := protocol.DecodeResult(frame)
		if err != nil {
			s.server.counters.decodeFailures.Add(1)
			s.logger.Warn("Dropped undecodable frame from game",
				zap.String("frame", util.FramePreview(frame, framePreviewLimit)),
				zap.Error(err))
			continue
		}
		s.server.counters.resultsReceived.Add(1)

		if err = s.dispatch(ctx, res); err != nil {
			return connstate.Outcome(ctx, connstate.SideGame, "dispatch", err)
		}
	}
}

func (s *session) writeLoop(ctx context.Context) error {
	for {
		payload, err := s.server.toGame.Pop(ctx)
		if err != nil {
			return connstate.Outcome(ctx, connstate.SideGame, "dequeue", err)
		}

		// Payloads are produced by this process, so a bad one is a bug, not peer noise.
		request, err := protocol.DecodeRemoteInbound(payload)
		if err != nil {
			s.server.counters.decodeFailures.Add(1)
			s.logger.Error("Malformed payload queued for the game",
				zap.String("payload", util.FramePreview(payload, framePreviewLimit)),
				zap.Error(err))
			return err
		}

		cmd := protocol.NewStartCommand(s.nextCommandId(), request.PlayerId, request.Code)
		if err = s.track(cmd); err != nil {
			return err
		}

		frame, err := protocol.EncodeCommand(cmd)
		if err != nil {
			return err
		}
		if err = s.writer.WriteFrame(frame); err != nil {
			return connstate.Outcome(ctx, connstate.SideGame, "write", err)
		}
		_ = s.server.cfg.FrameLogger.LogFrame(util.FrameDirectionOut, protocol.StripTerminator(frame))

		s.server.counters.commandsSent.Add(1)
		s.logger.Debug("Command sent to game",
			zap.Uint32("id", cmd.Id),
			zap.String("code", request.Code),
			zap.String("playerId", request.PlayerId))
	}
}

// nextCommandId hands out identifiers in increasing order, skipping any still pending.
func (s *session) nextCommandId() uint32 {
	for s.pending.Contains(s.nextId) {
		s.nextId++
	}
	id := s.nextId
	s.nextId++
	return id
}

// track records cmd as pending. It must happen before cmd is written,
// so the reader can always correlate the result.
func (s *session) track(cmd protocol.Command) error {
	evicted, err := s.pending.Insert(cmd)
	for _, id := range evicted {
		s.server.counters.evictions.Add(1)
		s.logger.Warn("Evicted command that never got a result",
			zap.Uint32("id", id),
			zap.Duration("ttl", s.server.cfg.PendingTTL))
	}
	return err
}
