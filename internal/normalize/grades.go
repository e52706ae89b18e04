package normalize

import (
	"strconv"
	"strings"

	"github.com/cartable-app/cartable/pkg/types"
)

// Grades converts the raw marks list into stable records. Values arrive as
// French decimal-comma strings and may be non-numeric (absent, exempt); the
// original string is always preserved and Parsed marks whether the floats
// are meaningful.
func Grades(data RawGradesData) []types.Grade {
	out := make([]types.Grade, 0, len(data.Notes))
	for _, n := range data.Notes {
		score, okScore := parseFrenchDecimal(n.Valeur)
		outOf, okOutOf := parseFrenchDecimal(n.NoteSur)
		out = append(out, types.Grade{
			ID:          n.ID,
			Subject:     n.Libelle,
			SubjectCode: n.CodeMatiere,
			Label:       n.Devoir,
			Kind:        n.TypeDevoir,
			Date:        n.Date,
			Period:      n.CodePeriode,
			Value:       strings.TrimSpace(n.Valeur),
			OutOf:       strings.TrimSpace(n.NoteSur),
			Coefficient: strings.TrimSpace(n.Coef),
			Score:       score,
			ScoreOutOf:  outOf,
			Parsed:      okScore && okOutOf,
			IsExam:      isExamKind(n.TypeDevoir),
		})
	}
	return out
}

func parseFrenchDecimal(s string) (float64, bool) {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", "."))
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func isExamKind(kind string) bool {
	lower := strings.ToLower(kind)
	return strings.Contains(lower, "contrôle") ||
		strings.Contains(lower, "devoir surveillé") ||
		strings.Contains(lower, "examen")
}
