package server

import (
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/proposal-builder/internal/common"
	"github.com/joseph-ayodele/proposal-builder/internal/formstate"
)

const RequestIDHeader = "X-Request-ID"

const formSessionKey = "form_session"

// RequestID reuses an incoming X-Request-ID when it is a UUID, otherwise
// mints one, and puts it on the request context and the response.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		rid := strings.TrimSpace(c.GetHeader(RequestIDHeader))
		if common.NewValidator().Field("request_id", rid, common.Required, common.UUID).HasErrors() {
			rid = uuid.New().String()
		}
		c.Set("request_id", rid)
		c.Header(RequestIDHeader, rid)
		c.Request = c.Request.WithContext(common.WithRequestID(c.Request.Context(), rid))
		c.Next()
	}
}

func AccessLog(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info("http.request",
			"req_id", c.GetString("request_id"),
			"method", c.Request.Method,
			"route", c.FullPath(),
			"status", c.Writer.Status(),
			"session", c.Param("session"),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
	}
}

// session validates :session, binds a formstate.Session to the request and
// serializes mutating requests for the same id.
func (s *Server) session() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("session")
		v := common.NewValidator().
			Field("session", id, common.Required, common.MaxLength(128), common.NoPathSeparators)
		if err := common.ValidateAndReturnError(v); err != nil {
			fail(c, err)
			c.Abort()
			return
		}
		if s.deps.Sessions == nil {
			unavailable(c, "session store")
			c.Abort()
			return
		}

		if c.Request.Method != "GET" {
			unlock := s.locks.lock(id)
			defer unlock()
		}
		c.Request = c.Request.WithContext(common.WithSessionID(c.Request.Context(), id))
		logger := s.logger.With("req_id", c.GetString("request_id"), "session", id)
		c.Set(formSessionKey, formstate.NewSession(id, s.deps.Sessions.Session(id), logger))
		c.Next()
	}
}

func formSession(c *gin.Context) *formstate.Session {
	return c.MustGet(formSessionKey).(*formstate.Session)
}

// sessionLocks hands out one mutex per session id and forgets it once no
// request holds or waits for it.
type sessionLocks struct {
	mu sync.Mutex
	m  map[string]*lockEntry
}

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

func newSessionLocks() *sessionLocks {
	return &sessionLocks{m: map[string]*lockEntry{}}
}

func (l *sessionLocks) lock(id string) func() {
	l.mu.Lock()
	e, ok := l.m[id]
	if !ok {
		e = &lockEntry{}
		l.m[id] = e
	}
	e.refs++
	l.mu.Unlock()

	e.mu.Lock()
	return func() {
		e.mu.Unlock()
		l.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(l.m, id)
		}
		l.mu.Unlock()
	}
}

func (l *sessionLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.m)
}
