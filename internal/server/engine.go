package server

import (
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/eternalApril/starlight/internal/config"
	"github.com/eternalApril/starlight/internal/resp"
	"github.com/eternalApril/starlight/internal/storage"
)

// Version is reported by HELLO
const Version = "0.1.0"

// Engine coordinates the execution of commands and manages the background tasks of the repository
type Engine struct {
	commands map[string]command // Registry of available commands (the key is the command name in uppercase)
	storage  storage.Storage    // Interface to the underlying KV storage
	gc       config.GCConfig
	stopGC   chan struct{} // Channel for the background GC stop signal
	gcDone   chan struct{}
	stopOnce sync.Once // Ensures that the stop happens only once
	logger   *zap.Logger
}

// NewEngine initializes the engine, registers the commands, and
// if enabled in the config, starts background cleanup of outdated keys
func NewEngine(s storage.Storage, gc config.GCConfig, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}

	engine := &Engine{
		commands: make(map[string]command),
		storage:  s,
		gc:       gc,
		stopGC:   make(chan struct{}),
		gcDone:   make(chan struct{}),
		logger:   logger.Named("engine"),
	}
	engine.registerBasicCommand()

	if gc.Enabled && gc.Interval > 0 {
		go engine.startGCLoop()
	} else {
		close(engine.gcDone)
	}

	return engine
}

// startGCLoop triggers the active expiration mechanism. A pass that finds
// at least MatchThreshold of its sample expired is repeated at once
func (e *Engine) startGCLoop() {
	defer close(e.gcDone)

	ticker := time.NewTicker(e.gc.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			for {
				ratio := e.storage.DeleteExpired(e.gc.SamplesPerCheck)

				if ratio > 0 && e.logger.Core().Enabled(zap.DebugLevel) {
					e.logger.Debug("GC delete expired", zap.Float64("expired_ratio", ratio))
				}

				if ratio == 0 || ratio < e.gc.MatchThreshold {
					break
				}

				select {
				case <-e.stopGC:
					return
				default:
				}
			}
		case <-e.stopGC:
			return
		}
	}
}

// register adds a new command to the engine. The command name is uppercase
func (e *Engine) register(name string, cmd command) {
	e.commands[strings.ToUpper(name)] = cmd
}

// registerBasicCommand fills the registry with standard commands
func (e *Engine) registerBasicCommand() {
	e.register("PING", commandFunc(ping))
	e.register("ECHO", commandFunc(echo))

	e.register("GET", commandFunc(get))
	e.register("SET", commandFunc(set))
	e.register("SETNX", commandFunc(setnx))
	e.register("GETEX", commandFunc(getex))
	e.register("INCR", incrBy(1))
	e.register("DECR", incrBy(-1))

	e.register("DEL", commandFunc(del))
	e.register("EXISTS", commandFunc(exists))
	e.register("EXPIRE", commandFunc(expire))
	e.register("TTL", commandFunc(ttl))
	e.register("PTTL", commandFunc(pttl))
	e.register("PERSIST", commandFunc(persist))

	e.register("LPUSH", push(true))
	e.register("RPUSH", push(false))
	e.register("LPOP", pop(true))
	e.register("RPOP", pop(false))
	e.register("LRANGE", commandFunc(lrange))

	e.register("HELLO", commandFunc(hello))
	e.register("CLIENT", commandFunc(client))
	e.register("DEBUG", commandFunc(debug))
	e.register("COMMAND", commandFunc(cmd))
}

// Execute finds the command by name and executes it with the passed arguments
// on behalf of the session. Unknown commands and arity violations become error replies
func (e *Engine) Execute(sess *Session, name string, args []resp.Value) resp.Value {
	name = strings.ToUpper(name)

	if e.logger.Core().Enabled(zap.DebugLevel) {
		e.logger.Debug("executing command",
			zap.String("cmd", name),
			zap.Int("args_count", len(args)),
			zap.Int64("session", sess.id),
		)
	}

	cmd, ok := e.commands[name]
	if !ok {
		return unknownCommand(name, args)
	}

	if meta, ok := commandRegistry[name]; ok && !checkArity(meta.arity, len(args)+1) {
		return resp.MakeErrorWrongNumberOfArguments(name)
	}

	ctx := &context{
		args:    args,
		storage: e.storage,
		session: sess,
	}

	return cmd.execute(ctx)
}

func unknownCommand(name string, args []resp.Value) resp.Value {
	var sb strings.Builder
	for _, a := range args {
		sb.WriteString("'")
		sb.Write(a.String)
		sb.WriteString("' ")
	}
	return resp.MakeError("ERR", "unknown command '"+strings.ToLower(name)+"', with args beginning with: "+sb.String())
}

// Shutdown stops the background GC and waits for it to exit
func (e *Engine) Shutdown() {
	e.stopOnce.Do(func() {
		close(e.stopGC)
		<-e.gcDone
		e.logger.Info("GC background process stopped")
	})
}
