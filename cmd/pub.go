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

package cmd

import (
	"context"
	"fmt"

	"github.com/alwitt/kxtap/common"
	"github.com/alwitt/kxtap/core"
	"github.com/alwitt/kxtap/dataplane"
	"github.com/apex/log"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/urfave/cli/v2"
)

// PublishCLIArgs arguments
type PublishCLIArgs struct {
	KeyExpression string `validate:"required"`
	Kind          string `validate:"required,oneof=put delete"`
	Payload       string
}

// GetPublishCLIFlags retrieve the set of CMD flags for the publish command
func GetPublishCLIFlags(args *PublishCLIArgs) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "key-expression",
			Usage:       "Literal key-expression to publish on",
			Aliases:     []string{"k"},
			EnvVars:     []string{"PUBLISH_KEY_EXPRESSION"},
			Destination: &args.KeyExpression,
			Required:    true,
		},
		&cli.StringFlag{
			Name:        "kind",
			Usage:       "Sample kind: [put delete]",
			Aliases:     []string{"K"},
			EnvVars:     []string{"PUBLISH_KIND"},
			Value:       "put",
			DefaultText: "put",
			Destination: &args.Kind,
			Required:    false,
		},
		&cli.StringFlag{
			Name:        "payload",
			Usage:       "Sample payload. Ignored for delete samples.",
			Aliases:     []string{"p"},
			EnvVars:     []string{"PUBLISH_PAYLOAD"},
			Value:       "",
			DefaultText: "",
			Destination: &args.Payload,
			Required:    false,
		},
	}
}

// RunTapPublish publish one sample through the session, then return
func RunTapPublish(
	runtimeContext context.Context,
	params PublishCLIArgs,
	instance string,
	session *core.Session,
) error {
	logTags := log.Fields{
		"module":    "cmd",
		"component": "tap-publish",
		"instance":  instance,
	}

	validate := validator.New()
	if err := validate.Struct(&params); err != nil {
		log.WithError(err).WithFields(logTags).Error("Invalid CMD args")
		return err
	}

	publisher, err := dataplane.GetSamplePublisher(session, instance)
	if err != nil {
		log.WithError(err).WithFields(logTags).Errorf("Unable to define sample publisher")
		return err
	}

	// Tag the publish operation so its log entries can be matched up
	publishCtxt := context.WithValue(
		runtimeContext, common.RequestParam{}, common.RequestParam{
			ID: uuid.New().String(), Method: params.Kind, URI: params.KeyExpression,
		},
	)

	switch dataplane.SampleKind(params.Kind) {
	case dataplane.SampleKindPut:
		err = publisher.Put(publishCtxt, params.KeyExpression, []byte(params.Payload))
	case dataplane.SampleKindDelete:
		err = publisher.Delete(publishCtxt, params.KeyExpression)
	}
	if err != nil {
		log.WithError(err).WithFields(logTags).Errorf(
			"Unable to publish on %s", params.KeyExpression,
		)
		return err
	}

	fmt.Printf("Published %s ('%s')\n", params.Kind, params.KeyExpression)
	return nil
}
