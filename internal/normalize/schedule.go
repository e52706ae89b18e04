package normalize

import "github.com/cartable-app/cartable/pkg/types"

// Schedule converts raw timetable entries into stable records. Absent
// cancellation and modification flags come out as false, never as a missing
// value.
func Schedule(raw []RawScheduleEntry) []types.ScheduleEntry {
	out := make([]types.ScheduleEntry, 0, len(raw))
	for _, e := range raw {
		out = append(out, types.ScheduleEntry{
			ID:          e.ID,
			Subject:     e.Matiere,
			SubjectCode: e.CodeMatiere,
			Text:        e.Text,
			Teacher:     e.Prof,
			Room:        e.Salle,
			Start:       e.StartDate,
			End:         e.EndDate,
			Cancelled:   e.IsAnnule,
			Modified:    e.IsModifie,
			Color:       e.Color,
			Kind:        e.TypeCours,
			Class:       e.Classe,
			ClassID:     e.ClasseID,
			Group:       e.Groupe,
		})
	}
	return out
}
