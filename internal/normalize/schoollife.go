package normalize

import "github.com/cartable-app/cartable/pkg/types"

// RawSchoolLife is the envelope data of a viescolaire fetch.
type RawSchoolLife struct {
	AbsencesRetards         []RawSchoolLifeItem `json:"absencesRetards"`
	SanctionsEncouragements []RawSchoolLifeItem `json:"sanctionsEncouragements"`
}

type RawSchoolLifeItem struct {
	ID           int    `json:"id"`
	TypeElement  string `json:"typeElement"`
	Libelle      string `json:"libelle"`
	Date         string `json:"date"`
	DisplayDate  string `json:"displayDate"`
	Justifie     bool   `json:"justifie"`
	Motif        string `json:"motif"`
	Commentaire  string `json:"commentaire"`
	JustifieParE bool   `json:"justifieParEleve"`
}

// SchoolLife converts a viescolaire payload, splitting absence/delay records
// from sanction/encouragement records.
func SchoolLife(raw RawSchoolLife) types.SchoolLife {
	return types.SchoolLife{
		Absences:  schoolLifeEvents(raw.AbsencesRetards),
		Sanctions: schoolLifeEvents(raw.SanctionsEncouragements),
	}
}

func schoolLifeEvents(items []RawSchoolLifeItem) []types.SchoolLifeEvent {
	out := make([]types.SchoolLifeEvent, 0, len(items))
	for _, item := range items {
		date := item.Date
		if date == "" {
			date = item.DisplayDate
		}
		out = append(out, types.SchoolLifeEvent{
			ID:        item.ID,
			Kind:      item.TypeElement,
			Label:     item.Libelle,
			Date:      date,
			Justified: item.Justifie,
			Reason:    item.Motif,
			Comment:   item.Commentaire,
		})
	}
	return out
}
