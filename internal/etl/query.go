package etl

import (
	"fmt"
	"regexp"
	"strings"
)

// PartitionToken marks where a partitioned query takes its partition key.
const PartitionToken = ":partition_key"

var partitionToken = regexp.MustCompile(`:partition_key\b`)

// PartitionKey scopes one unit of export work, typically a date.
type PartitionKey string

// QueryTemplate is a validated export query. Partitioned templates contain
// exactly one PartitionToken; the key is always bound as a parameter.
type QueryTemplate struct {
	text        string
	partitioned bool
}

func ParseQueryTemplate(text string, partitioned bool) (QueryTemplate, error) {
	text = strings.TrimRight(strings.TrimSpace(text), ";")
	if text == "" {
		return QueryTemplate{}, fmt.Errorf("query is empty")
	}
	n := len(partitionToken.FindAllStringIndex(code(text), -1))
	switch {
	case partitioned && n != 1:
		return QueryTemplate{}, fmt.Errorf("partitioned query must contain %s exactly once, found %d", PartitionToken, n)
	case !partitioned && n != 0:
		return QueryTemplate{}, fmt.Errorf("query contains %s but the table is not partitioned", PartitionToken)
	}
	return QueryTemplate{text: text, partitioned: partitioned}, nil
}

func (q QueryTemplate) Partitioned() bool { return q.partitioned }

func (q QueryTemplate) String() string { return q.text }

// Bind returns the query with the token replaced by the driver placeholder
// and the arguments to execute it with.
func (q QueryTemplate) Bind(placeholder func(int) string, key PartitionKey) (string, []any) {
	if !q.partitioned {
		return q.text, nil
	}
	loc := partitionToken.FindStringIndex(code(q.text))
	query := q.text[:loc[0]] + placeholder(1) + q.text[loc[1]:]
	return query, []any{string(key)}
}

// code blanks out comments and single-quoted literals, keeping byte offsets,
// so that only tokens in executable SQL match.
func code(text string) string {
	b := []byte(text)
	for i := 0; i < len(b); {
		var end int
		switch {
		case strings.HasPrefix(text[i:], "--"):
			end = strings.IndexByte(text[i:], '\n')
		case strings.HasPrefix(text[i:], "/*"):
			if end = strings.Index(text[i+2:], "*/"); end >= 0 {
				end += 4
			}
		case b[i] == '\'':
			end = literalEnd(text[i:])
		default:
			i++
			continue
		}
		if end < 0 {
			end = len(b) - i
		}
		for j := i; j < i+end; j++ {
			b[j] = ' '
		}
		i += end
	}
	return string(b)
}

// literalEnd returns the length of the quoted literal at the start of s,
// treating a doubled quote as an escaped one, or -1 when it is not terminated.
func literalEnd(s string) int {
	for i := 1; i < len(s); i++ {
		if s[i] != '\'' {
			continue
		}
		if i+1 < len(s) && s[i+1] == '\'' {
			i++
			continue
		}
		return i + 1
	}
	return -1
}
