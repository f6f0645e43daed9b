// Package sqlguard validates ad-hoc SQL before it reaches a crawled source.
// Sources are connected with whatever credentials the operator supplied, so
// the engine refuses anything that is not a plain read.
package sqlguard

import (
	"fmt"
	"regexp"
	"strings"

	libinjection "github.com/corazawaf/libinjection-go"

	"github.com/anshumax/semantiqa-sub001/pkg/apperrors"
)

// StatementType represents the detected type of a SQL statement.
type StatementType string

const (
	StatementSelect   StatementType = "SELECT"
	StatementShow     StatementType = "SHOW"
	StatementExplain  StatementType = "EXPLAIN"
	StatementDescribe StatementType = "DESCRIBE"
	StatementPragma   StatementType = "PRAGMA"
	StatementUnknown  StatementType = "UNKNOWN"
)

// modifyingCTEPattern matches CTEs that contain data-modifying operations.
// Example: WITH deleted AS (DELETE FROM ...) SELECT * FROM deleted
var modifyingCTEPattern = regexp.MustCompile(`(?i)\bAS\s*\(\s*(INSERT|UPDATE|DELETE|MERGE)\b`)

// RejectionError describes why a statement was refused. It unwraps to
// apperrors.ErrQueryRejected so callers can match with errors.Is.
type RejectionError struct {
	Statement StatementType
	Reason    string
}

func (e *RejectionError) Error() string {
	return fmt.Sprintf("query rejected (%s): %s", e.Statement, e.Reason)
}

func (e *RejectionError) Unwrap() error {
	return apperrors.ErrQueryRejected
}

// Classify determines the type of SQL statement based on the first keyword.
// WITH clauses are treated as SELECT unless they contain a modifying CTE.
func Classify(sql string) StatementType {
	normalized := strings.ToUpper(strings.TrimSpace(sql))

	switch {
	case strings.HasPrefix(normalized, "SELECT"):
		return StatementSelect

	case strings.HasPrefix(normalized, "WITH"):
		if modifyingCTEPattern.MatchString(sql) {
			return StatementUnknown
		}
		return StatementSelect

	case strings.HasPrefix(normalized, "SHOW"):
		return StatementShow

	case strings.HasPrefix(normalized, "EXPLAIN"):
		return StatementExplain

	case strings.HasPrefix(normalized, "DESCRIBE"), strings.HasPrefix(normalized, "DESC "):
		return StatementDescribe

	case strings.HasPrefix(normalized, "PRAGMA"):
		return StatementPragma

	default:
		return StatementUnknown
	}
}

// ValidateReadOnly checks that sql is a single read-only statement. It rejects
// anything that writes, runs DDL, controls transactions, or chains a second
// statement after a semicolon.
func ValidateReadOnly(sql string) (StatementType, error) {
	if strings.TrimSpace(sql) == "" {
		return StatementUnknown, &RejectionError{
			Statement: StatementUnknown,
			Reason:    "empty statement",
		}
	}

	if containsMultipleStatements(sql) {
		return StatementUnknown, &RejectionError{
			Statement: StatementUnknown,
			Reason:    "multiple statements are not allowed",
		}
	}

	sqlType := Classify(sql)
	if sqlType == StatementUnknown {
		return sqlType, &RejectionError{
			Statement: sqlType,
			Reason:    "only SELECT, SHOW, EXPLAIN, DESCRIBE, and PRAGMA statements are allowed",
		}
	}

	return sqlType, nil
}

// containsMultipleStatements reports whether sql holds more than one statement.
// A trailing semicolon with nothing but whitespace after it is fine. Semicolons
// inside string literals, quoted identifiers, and comments are ignored.
func containsMultipleStatements(sql string) bool {
	var inSingle, inDouble, inLineComment, inBlockComment bool

	runes := []rune(sql)
	for i := 0; i < len(runes); i++ {
		r := runes[i]

		switch {
		case inLineComment:
			if r == '\n' {
				inLineComment = false
			}
		case inBlockComment:
			if r == '*' && i+1 < len(runes) && runes[i+1] == '/' {
				inBlockComment = false
				i++
			}
		case inSingle:
			if r == '\'' {
				// Doubled quote is an escaped quote inside the literal.
				if i+1 < len(runes) && runes[i+1] == '\'' {
					i++
				} else {
					inSingle = false
				}
			}
		case inDouble:
			if r == '"' {
				inDouble = false
			}
		default:
			switch r {
			case '\'':
				inSingle = true
			case '"':
				inDouble = true
			case '-':
				if i+1 < len(runes) && runes[i+1] == '-' {
					inLineComment = true
					i++
				}
			case '/':
				if i+1 < len(runes) && runes[i+1] == '*' {
					inBlockComment = true
					i++
				}
			case ';':
				if strings.TrimSpace(string(runes[i+1:])) != "" {
					return true
				}
			}
		}
	}

	return false
}

// InjectionFinding describes a query argument that matched a SQL injection
// pattern.
type InjectionFinding struct {
	ArgIndex    int
	Fingerprint string
	Value       any
}

// CheckArg runs libinjection against a single argument value. Only strings are
// checked; numbers and booleans cannot carry injection payloads. Returns nil
// when the value is clean.
func CheckArg(index int, value any) *InjectionFinding {
	strValue, ok := value.(string)
	if !ok {
		return nil
	}

	isSQLi, fingerprint := libinjection.IsSQLi(strValue)
	if !isSQLi {
		return nil
	}

	return &InjectionFinding{
		ArgIndex:    index,
		Fingerprint: string(fingerprint),
		Value:       value,
	}
}

// CheckArgs validates every positional argument and returns a finding per
// argument that failed. An empty result means all arguments are clean.
func CheckArgs(args []any) []*InjectionFinding {
	var findings []*InjectionFinding
	for i, value := range args {
		if finding := CheckArg(i, value); finding != nil {
			findings = append(findings, finding)
		}
	}
	return findings
}
