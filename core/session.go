package core

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/alwitt/kxtap/common"
	"github.com/apex/log"
	"github.com/nats-io/nats.go"
)

// NATSConnectParams NATS connection parameter
type NATSConnectParams struct {
	// Endpoints connect to the NATS messaging backbone through these endpoints
	Endpoints []string `validate:"required,min=1,dive,uri"`
	// ConnectTimeout max time to wait for connection
	ConnectTimeout time.Duration
	// MaxReconnectAttempt on connection failure, max number of reconnect
	// attempt. "-1" means infinite
	MaxReconnectAttempt int
	// ReconnectWait wait duration between reconnect attempts
	ReconnectWait time.Duration
	// OnDisconnectCallback callback on disconnect
	OnDisconnectCallback func(*nats.Conn, error)
	// OnReconnectCallback callback on reconnect
	OnReconnectCallback func(*nats.Conn)
	// OnCloseCallback callback on close
	OnCloseCallback func(*nats.Conn)
}

// Session an open logical connection to the NATS messaging backbone.
//
// A process holds at most one open Session at a time. Subscriptions and
// publishers built on a Session are valid only while it remains open.
type Session struct {
	common.Component
	nc *nats.Conn
}

// The single-open guard. OpenSession refuses to run while a previous
// Session has not been closed.
var sessionOpen bool
var sessionGuard sync.Mutex

// Close close a Session, flushing buffered outbound messages first
func (s *Session) Close(ctxt context.Context) {
	if err := s.nc.FlushWithContext(ctxt); err != nil {
		log.WithError(err).WithFields(s.LogTags).Errorf("NATS flush failed")
	}
	s.nc.Close()
	log.WithFields(s.LogTags).Infof("Closed session")
	sessionGuard.Lock()
	defer sessionGuard.Unlock()
	sessionOpen = false
}

// NATS fetch the NATS connection of this Session
func (s *Session) NATS() *nats.Conn {
	return s.nc
}

// Ready verify the Session connection is still up
func (s *Session) Ready() (bool, error) {
	if s.nc == nil {
		return false, fmt.Errorf("session was never opened")
	}
	return s.nc.IsConnected(), nil
}

// OpenSession open a new Session against the NATS messaging backbone
func OpenSession(param NATSConnectParams) (*Session, error) {
	serverURI := strings.Join(param.Endpoints, ",")
	logTags := log.Fields{
		"module":    "core",
		"component": "session",
		"instance":  serverURI,
	}
	{
		sessionGuard.Lock()
		defer sessionGuard.Unlock()
		if sessionOpen {
			err := fmt.Errorf("a session is already open")
			log.WithError(err).WithFields(logTags).Error("Session open rejected")
			return nil, err
		}
		sessionOpen = true
	}
	// Create the NATS transport
	nc, err := nats.Connect(
		serverURI,
		nats.Timeout(param.ConnectTimeout),
		nats.MaxReconnects(param.MaxReconnectAttempt),
		nats.ReconnectWait(param.ReconnectWait),
		nats.DisconnectErrHandler(param.OnDisconnectCallback),
		nats.ReconnectHandler(param.OnReconnectCallback),
		nats.ClosedHandler(param.OnCloseCallback),
	)
	if err != nil {
		log.WithError(err).WithFields(logTags).Errorf("NATS client connect failed")
		sessionGuard.Lock()
		defer sessionGuard.Unlock()
		sessionOpen = false
		return nil, err
	}

	log.WithFields(logTags).Info("Opened session")
	return &Session{
		Component: common.Component{LogTags: logTags},
		nc:        nc,
	}, nil
}
