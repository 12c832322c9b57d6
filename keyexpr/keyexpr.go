package keyexpr

import (
	"fmt"
	"strings"
)

// Key-expressions are hierarchical topic names with '/' separated chunks.
// Within a pattern, '*' matches exactly one chunk, and '**' matches any
// number of chunks including none. When carried over NATS, chunks map to
// subject tokens: '/' <=> '.', '*' <=> '*', and a trailing '**' <=> '>'.

const (
	// SingleWildcard matches exactly one chunk
	SingleWildcard = "*"
	// MultiWildcard matches any number of chunks
	MultiWildcard = "**"
)

// Validate verify a key-expression is well formed. A literal key-expression
// (no wildcard chunks) names one topic; a pattern may also contain wildcard
// chunks.
func Validate(keyExpr string) error {
	if len(keyExpr) == 0 {
		return fmt.Errorf("key-expression is empty")
	}
	for _, chunk := range strings.Split(keyExpr, "/") {
		if len(chunk) == 0 {
			return fmt.Errorf("key-expression '%s' contains empty chunk", keyExpr)
		}
		if chunk != SingleWildcard && chunk != MultiWildcard && strings.Contains(chunk, "*") {
			return fmt.Errorf(
				"key-expression '%s' mixes wildcard and literal in one chunk", keyExpr,
			)
		}
		// '.', '>', and '$' are structural in the NATS subject space. A '>'
		// chunk passed through verbatim would turn a "literal" key-expression
		// into a full-depth wildcard subscription.
		if strings.ContainsAny(chunk, ".>$ \t") {
			return fmt.Errorf("key-expression '%s' contains reserved characters", keyExpr)
		}
	}
	return nil
}

// ValidateLiteral verify a key-expression is well formed and carries no wildcards
func ValidateLiteral(keyExpr string) error {
	if err := Validate(keyExpr); err != nil {
		return err
	}
	if strings.Contains(keyExpr, "*") {
		return fmt.Errorf("key-expression '%s' is not a literal", keyExpr)
	}
	return nil
}

// Matches check whether a literal key-expression falls within a pattern
func Matches(pattern, keyExpr string) bool {
	if Validate(pattern) != nil || ValidateLiteral(keyExpr) != nil {
		return false
	}
	return chunksMatch(strings.Split(pattern, "/"), strings.Split(keyExpr, "/"))
}

func chunksMatch(pattern, key []string) bool {
	if len(pattern) == 0 {
		return len(key) == 0
	}
	if pattern[0] == MultiWildcard {
		// '**' absorbs zero chunks, or one chunk and tries again
		if chunksMatch(pattern[1:], key) {
			return true
		}
		return len(key) > 0 && chunksMatch(pattern, key[1:])
	}
	if len(key) == 0 {
		return false
	}
	if pattern[0] == SingleWildcard || pattern[0] == key[0] {
		return chunksMatch(pattern[1:], key[1:])
	}
	return false
}

// ToSubject convert a key-expression into the NATS subject carrying it.
//
// NATS only supports the full-depth wildcard as the final subject token, so
// '**' is accepted only as the last chunk of a pattern.
func ToSubject(keyExpr string) (string, error) {
	if err := Validate(keyExpr); err != nil {
		return "", err
	}
	chunks := strings.Split(keyExpr, "/")
	tokens := make([]string, len(chunks))
	for idx, chunk := range chunks {
		if chunk == MultiWildcard {
			if idx != len(chunks)-1 {
				return "", fmt.Errorf(
					"key-expression '%s': '**' only supported as the final chunk", keyExpr,
				)
			}
			tokens[idx] = ">"
			continue
		}
		tokens[idx] = chunk
	}
	return strings.Join(tokens, "."), nil
}

// FromSubject recover the key-expression a NATS subject carries
func FromSubject(subject string) (string, error) {
	if len(subject) == 0 {
		return "", fmt.Errorf("subject is empty")
	}
	tokens := strings.Split(subject, ".")
	chunks := make([]string, len(tokens))
	for idx, token := range tokens {
		if len(token) == 0 {
			return "", fmt.Errorf("subject '%s' contains empty token", subject)
		}
		if token == ">" {
			chunks[idx] = MultiWildcard
			continue
		}
		chunks[idx] = token
	}
	result := strings.Join(chunks, "/")
	if err := Validate(result); err != nil {
		return "", err
	}
	return result, nil
}
