package common

import (
	"context"
	"os"

	"github.com/apex/log"
)

// Component base structure for a Component
type Component struct {
	LogTags log.Fields
}

// UpdateLogTags produce a copy of the log tags extended with metadata from
// the request parameters recorded in the context, if any
func UpdateLogTags(ctxt context.Context, original log.Fields) (log.Fields, error) {
	result := log.Fields{}
	for field, value := range original {
		result[field] = value
	}
	if param, ok := ctxt.Value(RequestParam{}).(RequestParam); ok {
		param.UpdateLogTags(result)
	}
	return result, nil
}

// GetUnitTestNatsURI fetch the NATS server URI used during unit-testing
func GetUnitTestNatsURI() string {
	if uri, ok := os.LookupEnv("UNITTEST_NATS_URI"); ok {
		return uri
	}
	return "nats://127.0.0.1:4222"
}
