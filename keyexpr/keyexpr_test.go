package keyexpr

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeyExpressionValidation(t *testing.T) {
	assert := assert.New(t)

	// Case 0: well formed literals and patterns
	assert.Nil(Validate("a"))
	assert.Nil(Validate("a/b/c"))
	assert.Nil(Validate("*"))
	assert.Nil(Validate("**"))
	assert.Nil(Validate("a/*/c"))
	assert.Nil(Validate("a/**"))

	// Case 1: malformed expressions
	assert.NotNil(Validate(""))
	assert.NotNil(Validate("/a"))
	assert.NotNil(Validate("a/"))
	assert.NotNil(Validate("a//b"))
	assert.NotNil(Validate("a/b*"))
	assert.NotNil(Validate("a/***"))
	assert.NotNil(Validate("a.b"))
	assert.NotNil(Validate("a b"))

	// NATS structural tokens can't ride inside chunks
	assert.NotNil(Validate("a/>"))
	assert.NotNil(Validate(">"))
	assert.NotNil(Validate("$SYS/a"))
	assert.NotNil(ValidateLiteral("a/>"))
	_, err := ToSubject("a/>")
	assert.NotNil(err)

	// Case 2: literals only
	assert.Nil(ValidateLiteral("a/b"))
	assert.NotNil(ValidateLiteral("a/*"))
	assert.NotNil(ValidateLiteral("**"))
}

func TestKeyExpressionMatching(t *testing.T) {
	assert := assert.New(t)

	// Case 0: exact match
	assert.True(Matches("a/b", "a/b"))
	assert.False(Matches("a/b", "a/c"))
	assert.False(Matches("a/b", "a/b/c"))

	// Case 1: single chunk wildcard
	assert.True(Matches("a/*/c", "a/b/c"))
	assert.True(Matches("a/*/c", "a/x/c"))
	assert.False(Matches("a/*/c", "a/c"))
	assert.False(Matches("a/*/c", "a/b/x/c"))

	// Case 2: '**' matches arbitrary depth, zero included
	assert.True(Matches("**", "a"))
	assert.True(Matches("**", "a/b"))
	assert.True(Matches("**", "a/b/c"))
	assert.True(Matches("a/**", "a/b/c/d"))
	assert.True(Matches("a/**/d", "a/d"))
	assert.True(Matches("a/**/d", "a/b/c/d"))
	assert.False(Matches("a/**/d", "a/b/c"))

	// Case 3: wildcards in key side are rejected
	assert.False(Matches("**", "a/*"))
}

func TestKeyExpressionSubjectMapping(t *testing.T) {
	assert := assert.New(t)

	type testCase struct {
		keyExpr string
		subject string
	}
	valid := []testCase{
		{keyExpr: "a", subject: "a"},
		{keyExpr: "a/b/c", subject: "a.b.c"},
		{keyExpr: "a/*/c", subject: "a.*.c"},
		{keyExpr: "**", subject: ">"},
		{keyExpr: "a/b/**", subject: "a.b.>"},
	}
	for _, oneCase := range valid {
		subject, err := ToSubject(oneCase.keyExpr)
		assert.Nil(err)
		assert.Equal(oneCase.subject, subject)
		keyExpr, err := FromSubject(oneCase.subject)
		assert.Nil(err)
		assert.Equal(oneCase.keyExpr, keyExpr)
	}

	// NATS can't carry mid-pattern full-depth wildcards
	_, err := ToSubject("a/**/c")
	assert.NotNil(err)

	_, err = FromSubject("")
	assert.NotNil(err)
	_, err = FromSubject("a..b")
	assert.NotNil(err)
}
