package persistence

import (
	"strings"

	"golang.org/x/text/cases"
)

// likeEscaper escapes the LIKE wildcards so search text matches literally.
// Queries using it must declare ESCAPE '\'.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// containsPattern turns free search text into a case folded substring pattern
func containsPattern(search string) string {
	return "%" + likeEscaper.Replace(cases.Fold().String(search)) + "%"
}

// likeClause renders "LOWER(col) LIKE ? ESCAPE '\'" for each column, ORed together
func likeClause(columns ...string) string {
	parts := make([]string, len(columns))
	for i, col := range columns {
		parts[i] = "LOWER(" + col + `) LIKE ? ESCAPE '\'`
	}
	return strings.Join(parts, " OR ")
}
