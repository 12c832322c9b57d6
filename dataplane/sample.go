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
	"fmt"
	"time"

	"github.com/alwitt/kxtap/keyexpr"
	"github.com/nats-io/nats.go"
)

// SampleKind the type of operation a sample announces
type SampleKind string

const (
	// SampleKindPut announces a new value for a key-expression
	SampleKindPut SampleKind = "put"
	// SampleKindDelete announces removal of the value of a key-expression
	SampleKindDelete SampleKind = "delete"
)

// Sample metadata rides NATS message headers
const (
	sampleKindHeader        = "Kxtap-Sample-Kind"
	samplePublishedAtHeader = "Kxtap-Published-At"
	samplePublisherHeader   = "Kxtap-Publisher"
)

// Sample one delivered pub/sub message
type Sample struct {
	// Kind is the sample operation: put or delete
	Kind SampleKind `json:"kind" validate:"required,oneof=put delete"`
	// KeyExpr is the literal key-expression the sample was published on
	KeyExpr string `json:"key_expr" validate:"required"`
	// Payload is the sample body. Empty for delete samples.
	Payload []byte `json:"payload,omitempty"`
	// PublishedAt is the publisher's timestamp, if the publisher provided one
	PublishedAt time.Time `json:"published_at,omitempty"`
	// Publisher identifies the publishing client, if it identified itself
	Publisher string `json:"publisher,omitempty"`
}

// String present the sample as `<kind> ('<key-expression>': '<payload-as-text>')`
func (s Sample) String() string {
	return fmt.Sprintf("%s ('%s': '%s')", s.Kind, s.KeyExpr, string(s.Payload))
}

// sampleToMsg express a sample as the NATS message carrying it
func sampleToMsg(sample Sample) (*nats.Msg, error) {
	if err := keyexpr.ValidateLiteral(sample.KeyExpr); err != nil {
		return nil, err
	}
	subject, err := keyexpr.ToSubject(sample.KeyExpr)
	if err != nil {
		return nil, err
	}
	msg := nats.NewMsg(subject)
	msg.Data = sample.Payload
	msg.Header.Set(sampleKindHeader, string(sample.Kind))
	if !sample.PublishedAt.IsZero() {
		msg.Header.Set(samplePublishedAtHeader, sample.PublishedAt.Format(time.RFC3339Nano))
	}
	if len(sample.Publisher) > 0 {
		msg.Header.Set(samplePublisherHeader, sample.Publisher)
	}
	return msg, nil
}

// msgToSample recover the sample a NATS message carries.
//
// Messages from clients outside this toolkit carry no kind header; those
// are treated as put samples.
func msgToSample(msg *nats.Msg) (Sample, error) {
	keyExpr, err := keyexpr.FromSubject(msg.Subject)
	if err != nil {
		return Sample{}, err
	}
	result := Sample{Kind: SampleKindPut, KeyExpr: keyExpr, Payload: msg.Data}
	switch kind := msg.Header.Get(sampleKindHeader); kind {
	case "", string(SampleKindPut):
		break
	case string(SampleKindDelete):
		result.Kind = SampleKindDelete
	default:
		return Sample{}, fmt.Errorf("message carries unknown sample kind '%s'", kind)
	}
	if at := msg.Header.Get(samplePublishedAtHeader); len(at) > 0 {
		if parsed, err := time.Parse(time.RFC3339Nano, at); err == nil {
			result.PublishedAt = parsed
		}
	}
	result.Publisher = msg.Header.Get(samplePublisherHeader)
	return result, nil
}
