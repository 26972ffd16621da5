package telegram

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// UpdateHandler processes one incoming update. Implementations are invoked
// concurrently across conversations.
type UpdateHandler interface {
	HandleUpdate(ctx context.Context, update *Update)
}

// Server receives webhook updates and dispatches them to the handler. Each
// update is acknowledged immediately and processed in its own goroutine so
// one user's multi-second generation does not block another's request.
type Server struct {
	httpSrv *http.Server
	ln      net.Listener
	addr    string
	handler UpdateHandler
	baseCtx context.Context
	log     *zap.Logger
}

func NewServer(addr, webhookPath string, handler UpdateHandler, log *zap.Logger) *Server {
	s := &Server{
		addr:    addr,
		handler: handler,
		log:     log,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST "+webhookPath, s.handleWebhook)

	s.httpSrv = &http.Server{Handler: mux}
	return s
}

func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	var update Update
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		s.log.Warn("discarding malformed update", zap.Error(err))
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	w.WriteHeader(http.StatusOK)

	// Detach from the request context: processing outlives the webhook
	// acknowledgement.
	go s.handler.HandleUpdate(s.baseCtx, &update)
}

func (s *Server) Listen() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	s.ln = ln
	s.addr = ln.Addr().String()
	return nil
}

func (s *Server) Addr() string {
	return s.addr
}

// Serve blocks until ctx is cancelled, then shuts the server down
// gracefully.
func (s *Server) Serve(ctx context.Context) error {
	s.baseCtx = ctx

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpSrv.Serve(s.ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.httpSrv.Shutdown(shutdownCtx)
	}
}
