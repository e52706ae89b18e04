package normalize

import (
	"strings"

	"github.com/cartable-app/cartable/pkg/types"
	"github.com/cartable-app/cartable/pkg/utils"
)

// Students converts a group roster payload. Relative photo URLs are made
// absolute the way the upstream web client does.
func Students(data RawGroupStudentsData) []types.Student {
	out := make([]types.Student, 0, len(data.Eleves))
	for _, s := range data.Eleves {
		out = append(out, types.Student{
			ID:             s.ID,
			FirstName:      s.Prenom,
			LastName:       s.Nom,
			Particle:       s.Particule,
			Gender:         s.Sexe,
			ClassID:        s.ClasseID,
			ClassName:      s.ClasseLibelle,
			GroupID:        s.GroupeID,
			Email:          s.Email,
			Phone:          s.Portable,
			Photo:          absolutePhotoURL(s.Photo),
			BirthDate:      s.DateNaissance,
			Regime:         s.Regime,
			Accommodations: accommodations(s.Dispositifs),
		})
	}
	return out
}

func absolutePhotoURL(photo string) string {
	if photo == "" || strings.Contains(photo, "://") {
		return photo
	}
	if strings.HasPrefix(photo, "//") {
		return "https:" + photo
	}
	return photo
}

func accommodations(raw []RawDispositif) []types.Accommodation {
	out := make([]types.Accommodation, 0, len(raw))
	for _, d := range raw {
		out = append(out, types.Accommodation{
			ID:        d.ID,
			Name:      d.Libelle,
			StartDate: d.DateDebut,
			EndDate:   d.DateFin,
		})
	}
	return out
}

// Groups converts a teacher groups payload.
func Groups(data RawGroupsData) []types.Group {
	out := make([]types.Group, 0, len(data.Groupes))
	for _, g := range data.Groupes {
		out = append(out, types.Group{
			ID:           g.ID,
			Code:         g.Code,
			Name:         g.Libelle,
			Kind:         g.Type,
			IsFlexible:   g.IsFlexible,
			IsPrimary:    g.IsPrimaire,
			StudentCount: g.NbEleves,
		})
	}
	return out
}

// Classes converts a teacher classes payload.
func Classes(data RawClassesData) []types.SchoolClass {
	out := make([]types.SchoolClass, 0, len(data.Classes))
	for _, c := range data.Classes {
		out = append(out, types.SchoolClass{
			ID:           c.ID,
			Code:         c.Code,
			Name:         c.Libelle,
			Level:        c.Niveau,
			StudentCount: c.NbEleves,
		})
	}
	return out
}

// TextbookSlots converts the teacher loadslots payload, joining each slot
// with its assigned work when present.
func TextbookSlots(raw []RawTextbookSlot) []types.TextbookSlot {
	out := make([]types.TextbookSlot, 0, len(raw))
	for _, s := range raw {
		subject := s.MatiereLibelle
		if subject == "" {
			subject = s.MatiereCode
		}
		class := s.EntityLibelle
		if class == "" {
			class = s.EntityCode
		}
		slot := types.TextbookSlot{
			ID:      s.IDCours,
			EntryID: s.IDCDT,
			Start:   s.StartDate,
			End:     s.EndDate,
			Date:    s.Date,
			Subject: subject,
			Class:   class,
			Room:    s.Salle,
			Color:   s.Color,
			HasWork: s.TravailAFaire,
			Files:   []types.Attachment{},
		}
		if s.AFaire != nil {
			slot.Assigned = s.AFaire.DonneLe
			slot.Content = utils.DecodeBase64(s.AFaire.Contenu)
			slot.Files = attachments(s.AFaire.Documents)
		}
		out = append(out, slot)
	}
	return out
}
