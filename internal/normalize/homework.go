package normalize

import (
	"encoding/json"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/bytedance/sonic"

	"github.com/cartable-app/cartable/pkg/types"
	"github.com/cartable-app/cartable/pkg/utils"
)

// HomeworkShape tags which of the two textbook payload shapes the upstream
// returned. The decision is made once at the boundary so both shapes are
// handled explicitly instead of being sniffed mid-normalization.
type HomeworkShape int

const (
	ShapeUnknown HomeworkShape = iota
	// ShapeDetail is the per-date payload carrying a "matieres" array with
	// full content and attachments.
	ShapeDetail
	// ShapeOverview is the date-keyed payload listing upcoming work without
	// content or attachments.
	ShapeOverview
)

// ClassifyHomework inspects a raw textbook payload and returns its shape.
func ClassifyHomework(data []byte) HomeworkShape {
	var probe struct {
		Matieres []json.RawMessage `json:"matieres"`
	}
	if err := sonic.Unmarshal(data, &probe); err != nil {
		return ShapeUnknown
	}
	if probe.Matieres != nil {
		return ShapeDetail
	}
	var keyed map[string]json.RawMessage
	if err := sonic.Unmarshal(data, &keyed); err != nil {
		return ShapeUnknown
	}
	return ShapeOverview
}

// Homework converts a raw textbook payload of either shape into the stable
// records. dueDate is the requested date for the detail shape; the overview
// shape carries its own dates. Malformed payloads yield an empty list.
func Homework(data []byte, dueDate string) []types.HomeworkItem {
	switch ClassifyHomework(data) {
	case ShapeDetail:
		var detail RawHomeworkDetail
		if err := sonic.Unmarshal(data, &detail); err != nil {
			return []types.HomeworkItem{}
		}
		if dueDate == "" {
			dueDate = detail.Date
		}
		return homeworkFromDetail(detail, dueDate)
	case ShapeOverview:
		var overview RawHomeworkOverview
		if err := sonic.Unmarshal(data, &overview); err != nil {
			return []types.HomeworkItem{}
		}
		return homeworkFromOverview(overview)
	default:
		return []types.HomeworkItem{}
	}
}

func homeworkFromDetail(detail RawHomeworkDetail, dueDate string) []types.HomeworkItem {
	items := make([]types.HomeworkItem, 0, len(detail.Matieres))
	for _, m := range detail.Matieres {
		if m.AFaire == nil {
			continue
		}
		content := utils.DecodeBase64(m.AFaire.Contenu)
		item := types.HomeworkItem{
			ID:          m.AFaire.IDDevoir,
			Subject:     m.Matiere,
			SubjectCode: m.CodeMatiere,
			Teacher:     m.NomProf,
			DueDate:     dueDate,
			GivenDate:   m.AFaire.DonneLe,
			Done:        m.AFaire.Effectue,
			IsTest:      m.Interrogation,
			Weight:      EstimateWorkload(m.Interrogation, content),
			Content:     content,
			HasFiles:    len(m.AFaire.Documents) > 0,
			Files:       attachments(m.AFaire.Documents),
		}
		if m.ContenuDeSeance != nil {
			item.SessionContent = utils.DecodeBase64(m.ContenuDeSeance.Contenu)
		}
		items = append(items, item)
	}
	return items
}

func homeworkFromOverview(overview RawHomeworkOverview) []types.HomeworkItem {
	dates := make([]string, 0, len(overview))
	for date := range overview {
		dates = append(dates, date)
	}
	sort.Strings(dates)

	var items []types.HomeworkItem
	for _, date := range dates {
		for _, raw := range overview[date] {
			weight := types.WorkloadMedium
			if raw.Interrogation {
				weight = types.WorkloadControl
			}
			items = append(items, types.HomeworkItem{
				ID:          raw.IDDevoir,
				Subject:     raw.Matiere,
				SubjectCode: raw.CodeMatiere,
				DueDate:     date,
				GivenDate:   raw.DonneLe,
				Done:        raw.Effectue,
				IsTest:      raw.Interrogation,
				Weight:      weight,
				HasFiles:    raw.DocumentsAFaire,
				Files:       []types.Attachment{},
			})
		}
	}
	if items == nil {
		items = []types.HomeworkItem{}
	}
	return items
}

// Tests extracts the entries classified as supervised tests from a textbook
// payload of either shape. Beyond the explicit interrogation flag, a keyword
// probe on the decoded content catches tests the flag misses; the heuristic
// is approximate and intentionally left as-is.
func Tests(data []byte) []types.TestItem {
	tests := []types.TestItem{}

	appendMatter := func(m RawHomeworkMatter, date string) {
		content := ""
		if m.ContenuDeSeance != nil {
			content = utils.DecodeBase64(m.ContenuDeSeance.Contenu)
		} else if m.AFaire != nil {
			content = utils.DecodeBase64(m.AFaire.Contenu)
		}
		isTest := m.Interrogation || strings.Contains(strings.ToLower(content), "contrôle")
		if !isTest {
			return
		}
		id := m.ID
		if id == 0 && m.AFaire != nil {
			id = m.AFaire.IDDevoir
		}
		tests = append(tests, types.TestItem{
			ID:          id,
			Subject:     m.Matiere,
			SubjectCode: m.CodeMatiere,
			Teacher:     m.NomProf,
			Date:        date,
			Content:     content,
			Weight:      types.WorkloadControl,
		})
	}

	switch ClassifyHomework(data) {
	case ShapeDetail:
		var detail RawHomeworkDetail
		if err := sonic.Unmarshal(data, &detail); err != nil {
			return tests
		}
		for _, m := range detail.Matieres {
			appendMatter(m, detail.Date)
		}
	case ShapeOverview:
		var overview RawHomeworkOverview
		if err := sonic.Unmarshal(data, &overview); err != nil {
			return tests
		}
		dates := make([]string, 0, len(overview))
		for date := range overview {
			dates = append(dates, date)
		}
		sort.Strings(dates)
		for _, date := range dates {
			for _, raw := range overview[date] {
				if !raw.Interrogation {
					continue
				}
				tests = append(tests, types.TestItem{
					ID:          raw.IDDevoir,
					Subject:     raw.Matiere,
					SubjectCode: raw.CodeMatiere,
					Date:        date,
					Weight:      types.WorkloadControl,
				})
			}
		}
	}
	return tests
}

// EstimateWorkload grades a homework item from its explicit test flag and
// keyword matching on the decoded content.
func EstimateWorkload(isTest bool, content string) types.Workload {
	if isTest {
		return types.WorkloadControl
	}
	lower := strings.ToLower(content)

	if strings.Contains(lower, "dst") || strings.Contains(lower, "devoir surveillé") {
		return types.WorkloadDST
	}
	if strings.Contains(lower, "rédaction") || strings.Contains(lower, "dissertation") ||
		strings.Contains(lower, "dm complet") || strings.Contains(lower, "projet") {
		return types.WorkloadHeavy
	}
	if strings.Contains(lower, "exercice") || strings.Contains(lower, "relire") ||
		strings.Contains(lower, "réviser") || utf8.RuneCountInString(lower) < 50 {
		return types.WorkloadLight
	}
	return types.WorkloadMedium
}

func attachments(raw []RawDocument) []types.Attachment {
	out := make([]types.Attachment, 0, len(raw))
	for _, d := range raw {
		out = append(out, types.Attachment{ID: d.ID, Name: d.Libelle, Type: d.Type})
	}
	return out
}
