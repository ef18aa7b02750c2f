package server

import (
	"net"
	"sync/atomic"

	"github.com/tidwall/redcon"
	"go.uber.org/zap"

	"github.com/eternalApril/starlight/internal/resp"
)

// Server accepts RESP connections and hands every command to the Engine.
// Each connection carries its own Session, so the protocol negotiated with
// HELLO applies to that connection only
type Server struct {
	rcon   *redcon.Server
	engine *Engine
	nextID atomic.Int64
	log    *zap.Logger
}

// New prepares a server bound to addr. Nothing is listening until ListenAndServe
func New(addr string, engine *Engine, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Server{
		engine: engine,
		log:    logger.Named("server"),
	}
	s.rcon = redcon.NewServer(addr, s.handleCommand, s.handleConnect, s.handleClose)

	return s
}

// ListenAndServe blocks serving connections until Close
func (s *Server) ListenAndServe() error {
	return s.rcon.ListenAndServe()
}

// ListenServeAndSignal is ListenAndServe that reports on signal once the
// listener is bound, or with the error that prevented it
func (s *Server) ListenServeAndSignal(signal chan error) error {
	return s.rcon.ListenServeAndSignal(signal)
}

// Addr returns the bound address, useful when listening on port 0
func (s *Server) Addr() net.Addr {
	return s.rcon.Addr()
}

// Close stops the listener and drops every connection
func (s *Server) Close() error {
	return s.rcon.Close()
}

func (s *Server) handleConnect(conn redcon.Conn) bool {
	sess := NewSession(s.nextID.Add(1))
	conn.SetContext(sess)

	if s.log.Core().Enabled(zap.DebugLevel) {
		s.log.Debug("client connected", zap.String("addr", conn.RemoteAddr()), zap.Int64("id", sess.id))
	}

	return true
}

func (s *Server) handleClose(conn redcon.Conn, err error) {
	if err != nil {
		s.log.Warn("connection closed with error", zap.String("addr", conn.RemoteAddr()), zap.Error(err))
		return
	}

	if s.log.Core().Enabled(zap.DebugLevel) {
		s.log.Debug("client disconnected", zap.String("addr", conn.RemoteAddr()))
	}
}

func (s *Server) handleCommand(conn redcon.Conn, cmd redcon.Command) {
	sess, ok := conn.Context().(*Session)
	if !ok {
		conn.WriteError("ERR invalid connection context")
		return
	}

	if len(cmd.Args) == 0 {
		return
	}

	args := make([]resp.Value, len(cmd.Args)-1)
	for i, a := range cmd.Args[1:] {
		args[i] = resp.MakeBulkBytes(a)
	}

	reply := s.engine.Execute(sess, string(cmd.Args[0]), args)

	wire, err := sess.Encode(reply)
	if err != nil {
		s.log.Error("error encoding response", zap.Error(err))
		conn.WriteError("ERR internal error")
		return
	}

	conn.WriteRaw(wire)
}
