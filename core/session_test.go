package core

import (
	"context"
	"testing"
	"time"

	"github.com/alwitt/kxtap/common"
	"github.com/apex/log"
	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
)

func TestSessionLifecycle(t *testing.T) {
	assert := assert.New(t)
	log.SetLevel(log.DebugLevel)

	utCtxt, utCtxtCancel := context.WithCancel(context.Background())
	defer utCtxtCancel()

	param := NATSConnectParams{
		Endpoints:            []string{common.GetUnitTestNatsURI()},
		ConnectTimeout:       time.Second,
		MaxReconnectAttempt:  0,
		ReconnectWait:        time.Second,
		OnDisconnectCallback: func(_ *nats.Conn, e error) {},
		OnReconnectCallback:  func(_ *nats.Conn) {},
		OnCloseCallback:      func(_ *nats.Conn) {},
	}

	// Case 0: open a session
	session, err := OpenSession(param)
	assert.Nil(err)
	ready, err := session.Ready()
	assert.Nil(err)
	assert.True(ready)

	// Case 1: only one session may be open at a time
	_, err = OpenSession(param)
	assert.NotNil(err)

	// Case 2: closing releases the session slot
	session.Close(utCtxt)
	ready, err = session.Ready()
	assert.Nil(err)
	assert.False(ready)

	session2, err := OpenSession(param)
	assert.Nil(err)
	session2.Close(utCtxt)
}

func TestSessionOpenFailure(t *testing.T) {
	assert := assert.New(t)

	utCtxt, utCtxtCancel := context.WithCancel(context.Background())
	defer utCtxtCancel()

	badParam := NATSConnectParams{
		Endpoints:            []string{"nats://127.0.0.1:1"},
		ConnectTimeout:       time.Millisecond * 250,
		MaxReconnectAttempt:  0,
		ReconnectWait:        time.Second,
		OnDisconnectCallback: func(_ *nats.Conn, e error) {},
		OnReconnectCallback:  func(_ *nats.Conn) {},
		OnCloseCallback:      func(_ *nats.Conn) {},
	}

	// Case 0: unreachable endpoint fails the open
	_, err := OpenSession(badParam)
	assert.NotNil(err)

	// Case 1: the failed open must not hold on to the session slot
	goodParam := badParam
	goodParam.Endpoints = []string{common.GetUnitTestNatsURI()}
	goodParam.ConnectTimeout = time.Second
	session, err := OpenSession(goodParam)
	assert.Nil(err)
	session.Close(utCtxt)
}
