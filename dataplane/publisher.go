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
	"time"

	"github.com/alwitt/kxtap/common"
	"github.com/alwitt/kxtap/core"
	"github.com/apex/log"
)

// SamplePublisher publishes samples onto key-expressions
type SamplePublisher interface {
	// Put publish a put sample carrying a payload on a literal key-expression
	Put(ctxt context.Context, keyExpr string, payload []byte) error
	// Delete publish a delete sample on a literal key-expression
	Delete(ctxt context.Context, keyExpr string) error
}

// samplePublisherImpl implements SamplePublisher
type samplePublisherImpl struct {
	common.Component
	session  *core.Session
	instance string
}

// GetSamplePublisher get new SamplePublisher operating through a Session
func GetSamplePublisher(session *core.Session, instance string) (SamplePublisher, error) {
	logTags := log.Fields{
		"module": "dataplane", "component": "sample-publisher", "instance": instance,
	}
	return &samplePublisherImpl{
		Component: common.Component{LogTags: logTags}, session: session, instance: instance,
	}, nil
}

// Put publish a put sample carrying a payload on a literal key-expression
func (s *samplePublisherImpl) Put(ctxt context.Context, keyExpr string, payload []byte) error {
	return s.publish(ctxt, Sample{
		Kind:        SampleKindPut,
		KeyExpr:     keyExpr,
		Payload:     payload,
		PublishedAt: time.Now().UTC(),
		Publisher:   s.instance,
	})
}

// Delete publish a delete sample on a literal key-expression
func (s *samplePublisherImpl) Delete(ctxt context.Context, keyExpr string) error {
	return s.publish(ctxt, Sample{
		Kind:        SampleKindDelete,
		KeyExpr:     keyExpr,
		PublishedAt: time.Now().UTC(),
		Publisher:   s.instance,
	})
}

func (s *samplePublisherImpl) publish(ctxt context.Context, sample Sample) error {
	localLogTags, err := common.UpdateLogTags(ctxt, s.LogTags)
	if err != nil {
		log.WithError(err).WithFields(s.LogTags).Errorf("Failed to update logtags")
		return err
	}
	msg, err := sampleToMsg(sample)
	if err != nil {
		log.WithError(err).WithFields(localLogTags).Errorf("Unable to send sample")
		return err
	}
	if err := s.session.NATS().PublishMsg(msg); err != nil {
		log.WithError(err).WithFields(localLogTags).Errorf("Unable to send sample")
		return err
	}
	// Publishing only buffers the message. Flush so the sample is on the
	// wire before reporting success.
	if err := s.session.NATS().FlushWithContext(ctxt); err != nil {
		log.WithError(err).WithFields(localLogTags).Errorf("Sample send flush failed")
		return err
	}
	log.WithFields(localLogTags).Debugf("Sent %s", sample)
	return nil
}
