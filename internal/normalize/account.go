package normalize

import (
	"github.com/cartable-app/cartable/pkg/constants"
	"github.com/cartable-app/cartable/pkg/types"
)

// Account converts one raw login account into the stable record. The
// upstream discriminator decides the variant: E is a student, P a teacher,
// everything else a parent.
func Account(raw RawAccount) *types.Account {
	acc := &types.Account{
		ID:             raw.ID,
		Type:           constants.AccountType(raw.TypeCompte),
		FirstName:      raw.Prenom,
		LastName:       raw.Nom,
		Email:          raw.Email,
		SchoolID:       raw.IDEtablissement,
		SchoolYear:     raw.AnneeScolaireCourante,
		LastConnection: raw.LastConnexion,
		Modules:        modules(raw.Modules),
	}
	if raw.Profile != nil {
		acc.Photo = raw.Profile.Photo
		acc.School = raw.Profile.NomEtablissement
	}

	switch constants.AccountType(raw.TypeCompte) {
	case constants.AccountTypeStudent:
		acc.Variant = types.VariantStudent
		acc.Class = "Inconnue"
		if raw.Profile != nil && raw.Profile.Classe != nil {
			if raw.Profile.Classe.Libelle != "" {
				acc.Class = raw.Profile.Classe.Libelle
			}
			acc.ClassCode = raw.Profile.Classe.Code
			acc.ClassID = raw.Profile.Classe.ID
		}
	case constants.AccountTypeTeacher:
		acc.Variant = types.VariantTeacher
		if raw.Profile != nil {
			acc.Classes = taughtClasses(raw.Profile.Classes)
			acc.Subjects = subjects(raw.Profile.Matieres)
		}
	default:
		acc.Variant = types.VariantParent
		if raw.Profile != nil {
			acc.FamilyID = raw.Profile.IDEntiteFamille
			acc.Children = children(raw.Profile.Eleves)
		}
	}
	return acc
}

func modules(raw []RawModule) []types.Module {
	out := make([]types.Module, 0, len(raw))
	for _, m := range raw {
		out = append(out, types.Module{Code: m.Code, Label: m.Libelle, Enabled: m.Enable})
	}
	return out
}

func taughtClasses(raw []RawTaughtClass) []types.TaughtClass {
	out := make([]types.TaughtClass, 0, len(raw))
	for _, c := range raw {
		out = append(out, types.TaughtClass{
			ID:      c.ID,
			GroupID: c.IDGroupe,
			Code:    c.Code,
			Label:   c.Libelle,
		})
	}
	return out
}

func subjects(raw []RawSubject) []string {
	out := make([]string, 0, len(raw))
	for _, s := range raw {
		if s.Libelle != "" {
			out = append(out, s.Libelle)
		} else if s.Code != "" {
			out = append(out, s.Code)
		}
	}
	return out
}

func children(raw []RawChild) []types.Child {
	out := make([]types.Child, 0, len(raw))
	for _, c := range raw {
		child := types.Child{
			ID:        c.ID,
			FirstName: c.Prenom,
			LastName:  c.Nom,
			Photo:     c.Photo,
			School:    c.NomEtablissement,
		}
		if c.Classe != nil {
			child.Class = c.Classe.Libelle
		}
		out = append(out, child)
	}
	return out
}
