package channel

import (
	"bytes"
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/mikey/llm-mailbot/internal/config"
	"github.com/mikey/llm-mailbot/internal/ports"
)

// MessageRequest is the body of POST /messages
type MessageRequest struct {
	Initiator string `json:"initiator"`
	Text      string `json:"text"`
}

// MessageResponse carries the bot's reply
type MessageResponse struct {
	RequestID string `json:"request_id"`
	Reply     string `json:"reply"`
}

// HTTPChannel receives chat messages as webhook calls and answers in the response body
type HTTPChannel struct {
	handler          ports.MessageHandler
	logger           *zap.Logger
	listenAddr       string
	apiKey           string
	callbackURL      string
	defaultInitiator string
	client           *http.Client

	server   *http.Server
	listener net.Listener
	done     chan struct{}
}

// NewHTTPChannel creates an HTTP webhook channel
func NewHTTPChannel(cfg config.ChannelConfig, handler ports.MessageHandler, logger *zap.Logger) *HTTPChannel {
	return &HTTPChannel{
		handler:          handler,
		logger:           logger,
		listenAddr:       cfg.ListenAddress,
		apiKey:           cfg.APIKey,
		callbackURL:      cfg.CallbackURL,
		defaultInitiator: cfg.DefaultInitiator,
		client:           &http.Client{Timeout: 10 * time.Second},
	}
}

// Router returns the channel's routes
func (c *HTTPChannel) Router() *mux.Router {
	router := mux.NewRouter()
	router.Use(c.loggingMiddleware)

	router.HandleFunc("/healthz", c.handleHealth).Methods("GET")
	router.Handle("/metrics", promhttp.Handler()).Methods("GET")

	api := router.PathPrefix("/").Subrouter()
	api.Use(c.authMiddleware)
	api.HandleFunc("/messages", c.handleMessage).Methods("POST")

	return router
}

// Start starts the HTTP server
func (c *HTTPChannel) Start() error {
	ln, err := net.Listen("tcp", c.listenAddr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", c.listenAddr, err)
	}
	c.listener = ln
	c.server = &http.Server{
		Handler:           c.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	c.done = make(chan struct{})

	c.logger.Info("HTTP channel starting", zap.String("address", ln.Addr().String()))

	go func() {
		defer close(c.done)
		if err := c.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			c.logger.Error("HTTP channel error", zap.Error(err))
		}
	}()
	return nil
}

// Addr returns the bound address once started
func (c *HTTPChannel) Addr() string {
	if c.listener == nil {
		return c.listenAddr
	}
	return c.listener.Addr().String()
}

// Stop gracefully shuts the server down
func (c *HTTPChannel) Stop() error {
	if c.server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := c.server.Shutdown(ctx)
	<-c.done
	return err
}

// Deliver posts text to the configured callback URL, or logs it when none is set
func (c *HTTPChannel) Deliver(ctx context.Context, initiator, text string) error {
	if c.callbackURL == "" {
		c.logger.Info("No callback URL configured, notification logged only",
			zap.String("initiator", initiator),
			zap.String("text", text))
		return nil
	}

	body, err := json.Marshal(MessageRequest{Initiator: initiator, Text: text})
	if err != nil {
		return fmt.Errorf("encoding notification: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.callbackURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building callback request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("calling %s: %w", c.callbackURL, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("callback returned status %d", resp.StatusCode)
	}
	return nil
}

func (c *HTTPChannel) handleHealth(w http.ResponseWriter, _ *http.Request) {
	c.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (c *HTTPChannel) handleMessage(w http.ResponseWriter, r *http.Request) {
	var req MessageRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64*1024)).Decode(&req); err != nil {
		c.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if strings.TrimSpace(req.Initiator) == "" {
		req.Initiator = c.defaultInitiator
	}
	if req.Initiator == "" {
		c.writeError(w, http.StatusBadRequest, "initiator is required")
		return
	}

	requestID := uuid.NewString()
	reply := c.handler.Handle(r.Context(), req.Initiator, req.Text)

	c.logger.Debug("Message handled",
		zap.String("request_id", requestID),
		zap.String("initiator", req.Initiator))
	c.writeJSON(w, http.StatusOK, MessageResponse{RequestID: requestID, Reply: reply})
}

func (c *HTTPChannel) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		c.logger.Debug("HTTP request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("remote", r.RemoteAddr),
			zap.Duration("duration", time.Since(start)))
	})
}

func (c *HTTPChannel) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if c.apiKey == "" {
			next.ServeHTTP(w, r)
			return
		}

		scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
		if !ok || !strings.EqualFold(scheme, "bearer") {
			c.writeError(w, http.StatusUnauthorized, "Authorization header must be 'Bearer <token>'")
			return
		}
		if subtle.ConstantTimeCompare([]byte(token), []byte(c.apiKey)) != 1 {
			c.writeError(w, http.StatusForbidden, "Invalid API key")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (c *HTTPChannel) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		c.logger.Warn("Error encoding JSON response", zap.Error(err))
	}
}

func (c *HTTPChannel) writeError(w http.ResponseWriter, status int, message string) {
	c.writeJSON(w, status, map[string]string{"error": message})
}
