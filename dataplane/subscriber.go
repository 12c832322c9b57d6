// Copyright 2024 The kxtap Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package dataplane

import (
	"context"
	"fmt"
	"sync"

	"github.com/alwitt/kxtap/common"
	"github.com/alwitt/kxtap/core"
	"github.com/alwitt/kxtap/keyexpr"
	"github.com/apex/log"
	"github.com/nats-io/nats.go"
)

// SampleHandlerCB callback invoked once per inbound sample
type SampleHandlerCB func(ctxt context.Context, sample Sample) error

// AlertOnErrorCB callback used to expose internal error to an outer context for handling
type AlertOnErrorCB func(err error)

// SampleSubscriber is a key-expression subscription delivering samples to a callback.
//
// The subscription belongs to the Session it was declared on and stops being
// valid once that Session closes.
type SampleSubscriber interface {
	// StartListening begin delivering samples to the handler callback
	StartListening(
		handlerCB SampleHandlerCB,
		errorCB AlertOnErrorCB,
		wg *sync.WaitGroup,
	) error
}

// sampleSubscriberImpl implements SampleSubscriber
type sampleSubscriberImpl struct {
	common.Component
	session   *core.Session
	listening bool
	sub       *nats.Subscription
	handler   SampleHandlerCB
	errorCB   AlertOnErrorCB
	lock      *sync.Mutex
	ctxt      context.Context
}

// GetSampleSubscriber declare a new SampleSubscriber on a key-expression pattern
func GetSampleSubscriber(
	ctxt context.Context, session *core.Session, keyExpression string,
) (SampleSubscriber, error) {
	logTags := log.Fields{
		"module":    "dataplane",
		"component": "sample-subscriber",
		"key_expr":  keyExpression,
	}
	logTags, err := common.UpdateLogTags(ctxt, logTags)
	if err != nil {
		log.WithError(err).WithFields(logTags).Errorf("Failed to update logtags")
		return nil, err
	}
	if err := keyexpr.Validate(keyExpression); err != nil {
		log.WithError(err).WithFields(logTags).Error("Unable to declare subscriber")
		return nil, err
	}
	subject, err := keyexpr.ToSubject(keyExpression)
	if err != nil {
		log.WithError(err).WithFields(logTags).Error("Unable to declare subscriber")
		return nil, err
	}
	// Declare the subscription now
	s, err := session.NATS().SubscribeSync(subject)
	if err != nil {
		log.WithError(err).WithFields(logTags).Error("Unable to define subscription")
		return nil, err
	}
	return &sampleSubscriberImpl{
		Component: common.Component{LogTags: logTags},
		session:   session,
		sub:       s,
		handler:   nil,
		errorCB:   nil,
		lock:      &sync.Mutex{},
		ctxt:      ctxt,
	}, nil
}

// StartListening begin delivering samples to the handler callback
func (r *sampleSubscriberImpl) StartListening(
	handlerCB SampleHandlerCB,
	errorCB AlertOnErrorCB,
	wg *sync.WaitGroup,
) error {
	r.lock.Lock()
	defer r.lock.Unlock()
	// Already listening
	if r.listening {
		err := fmt.Errorf("already listening")
		log.WithError(err).WithFields(r.LogTags).Error("Unable to start listening")
		return err
	}
	wg.Add(1)
	r.handler = handlerCB
	r.errorCB = errorCB
	r.listening = true
	// Start reading samples off the subscription
	go func() {
		defer wg.Done()
		log.WithFields(r.LogTags).Infof("Starting sample read loop")
		defer log.WithFields(r.LogTags).Infof("Stopping sample read loop")
		defer func() {
			if err := r.sub.Unsubscribe(); err != nil {
				log.WithError(err).WithFields(r.LogTags).Error("Unsubscribe failed")
			} else {
				log.WithFields(r.LogTags).Infof("Unsubscribed from key-expression")
			}
		}()
		for {
			newMsg, err := r.sub.NextMsgWithContext(r.ctxt)
			if err != nil {
				log.WithError(err).WithFields(r.LogTags).Errorf("Read failure")
				r.errorCB(err)
				break
			}
			if newMsg == nil {
				continue
			}
			sample, err := msgToSample(newMsg)
			if err != nil {
				// A malformed message must not take down the subscription
				log.WithError(err).WithFields(r.LogTags).Errorf(
					"Discarding malformed message on %s", newMsg.Subject,
				)
				continue
			}
			log.WithFields(r.LogTags).Debugf("Received %s", sample)
			r.forward(sample)
		}
	}()
	return nil
}

// forward hand one sample to the handler. Handler failures are logged and
// swallowed so the subscription keeps running.
func (r *sampleSubscriberImpl) forward(sample Sample) {
	defer func() {
		if rec := recover(); rec != nil {
			log.WithFields(r.LogTags).Errorf("Sample handler panic: %v", rec)
		}
	}()
	if err := r.handler(r.ctxt, sample); err != nil {
		log.WithError(err).WithFields(r.LogTags).Error("Sample handler failed")
	}
}
