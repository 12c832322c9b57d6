package common

import (
	"context"
	"testing"

	"github.com/apex/log"
	"github.com/stretchr/testify/assert"
)

func TestUpdateLogTags(t *testing.T) {
	assert := assert.New(t)

	original := log.Fields{"module": "common", "component": "testing"}

	// Case 0: no request params in context, tags come back as a copy
	{
		result, err := UpdateLogTags(context.Background(), original)
		assert.Nil(err)
		assert.Equal("common", result["module"])
		assert.Equal("testing", result["component"])
		result["component"] = "changed"
		assert.Equal("testing", original["component"])
	}

	// Case 1: request params in context surface in the tags
	{
		ctxt := context.WithValue(
			context.Background(), RequestParam{}, RequestParam{
				ID: "unit-test-id", Method: "put", URI: "a/b/c",
			},
		)
		result, err := UpdateLogTags(ctxt, original)
		assert.Nil(err)
		assert.Equal("unit-test-id", result["request_id"])
		assert.Equal("put", result["request_method"])
		assert.Equal("'a/b/c'", result["request_uri"])
		_, ok := original["request_id"]
		assert.False(ok)
	}
}
