// Package normalize converts raw upstream payloads into the stable records
// exposed by the client. Normalizers never fail: missing or malformed fields
// degrade to zero values so downstream consumers never observe a partially
// converted record alongside an error.
package normalize

import "encoding/json"

// The raw DTOs below mirror the upstream's French field names. They exist
// only at this boundary; nothing outside the package should touch them.

// RawAccount is one entry of the login response's accounts array.
type RawAccount struct {
	ID                    int          `json:"id"`
	TypeCompte            string       `json:"typeCompte"`
	IDEtablissement       int          `json:"idEtablissement"`
	Prenom                string       `json:"prenom"`
	Nom                   string       `json:"nom"`
	Email                 string       `json:"email"`
	AnneeScolaireCourante string       `json:"anneeScolaireCourante"`
	LastConnexion         string       `json:"lastConnexion"`
	AccessToken           string       `json:"accessToken"`
	Modules               []RawModule  `json:"modules"`
	Profile               *RawProfile  `json:"profile"`
}

type RawModule struct {
	Code    string `json:"code"`
	Libelle string `json:"libelle"`
	Enable  bool   `json:"enable"`
}

type RawProfile struct {
	Photo            string        `json:"photo"`
	NomEtablissement string        `json:"nomEtablissement"`
	Classe           *RawClassRef  `json:"classe"`
	Classes          []RawTaughtClass `json:"classes"`
	Matieres         []RawSubject  `json:"matieres"`
	IDEntiteFamille  int           `json:"idEntiteFamille"`
	Eleves           []RawChild    `json:"eleves"`
}

type RawClassRef struct {
	ID      int    `json:"id"`
	Code    string `json:"code"`
	Libelle string `json:"libelle"`
}

type RawTaughtClass struct {
	ID       int    `json:"id"`
	IDGroupe int    `json:"idGroupe"`
	Code     string `json:"code"`
	Libelle  string `json:"libelle"`
}

type RawSubject struct {
	Code    string `json:"code"`
	Libelle string `json:"libelle"`
}

type RawChild struct {
	ID               int          `json:"id"`
	Prenom           string       `json:"prenom"`
	Nom              string       `json:"nom"`
	Photo            string       `json:"photo"`
	Classe           *RawClassRef `json:"classe"`
	NomEtablissement string       `json:"nomEtablissement"`
}

// RawLoginData is the envelope data of a successful login.
type RawLoginData struct {
	Accounts []RawAccount `json:"accounts"`
}

// RawChallenge is the envelope data of the double-auth question fetch.
type RawChallenge struct {
	Question     string   `json:"question"`
	Propositions []string `json:"propositions"`
}

// RawChallengeAnswer is the envelope data of a correct double-auth answer.
type RawChallengeAnswer struct {
	CN string `json:"cn"`
	CV string `json:"cv"`
}

// RawHomeworkDetail is the per-date textbook shape (key "matieres").
type RawHomeworkDetail struct {
	Date     string              `json:"date"`
	Matieres []RawHomeworkMatter `json:"matieres"`
}

type RawHomeworkMatter struct {
	Matiere         string      `json:"matiere"`
	CodeMatiere     string      `json:"codeMatiere"`
	NomProf         string      `json:"nomProf"`
	ID              int         `json:"id"`
	Interrogation   bool        `json:"interrogation"`
	AFaire          *RawAFaire  `json:"aFaire"`
	ContenuDeSeance *RawContenu `json:"contenuDeSeance"`
}

type RawAFaire struct {
	IDDevoir  int           `json:"idDevoir"`
	DonneLe   string        `json:"donneLe"`
	Contenu   string        `json:"contenu"`
	Effectue  bool          `json:"effectue"`
	Documents []RawDocument `json:"documents"`
}

type RawContenu struct {
	Contenu   string        `json:"contenu"`
	Documents []RawDocument `json:"documents"`
}

type RawDocument struct {
	ID      int    `json:"id"`
	Libelle string `json:"libelle"`
	Type    string `json:"type"`
}

// RawHomeworkOverview is the date-keyed textbook shape.
type RawHomeworkOverview map[string][]RawHomeworkOverviewItem

type RawHomeworkOverviewItem struct {
	IDDevoir        int    `json:"idDevoir"`
	Matiere         string `json:"matiere"`
	CodeMatiere     string `json:"codeMatiere"`
	DonneLe         string `json:"donneLe"`
	Effectue        bool   `json:"effectue"`
	Interrogation   bool   `json:"interrogation"`
	DocumentsAFaire bool   `json:"documentsAFaire"`
}

// RawScheduleEntry is one timetable event.
type RawScheduleEntry struct {
	ID          int    `json:"id"`
	Matiere     string `json:"matiere"`
	CodeMatiere string `json:"codeMatiere"`
	Text        string `json:"text"`
	Prof        string `json:"prof"`
	Salle       string `json:"salle"`
	StartDate   string `json:"start_date"`
	EndDate     string `json:"end_date"`
	IsAnnule    bool   `json:"isAnnule"`
	IsModifie   bool   `json:"isModifie"`
	Color       string `json:"color"`
	TypeCours   string `json:"typeCours"`
	Classe      string `json:"classe"`
	ClasseID    int    `json:"classeId"`
	Groupe      string `json:"groupe"`
}

// RawMessagesData is the envelope data of a mailbox fetch.
type RawMessagesData struct {
	Messages RawMessageFolders `json:"messages"`
}

type RawMessageFolders struct {
	Received []RawMessage `json:"received"`
	Sent     []RawMessage `json:"sent"`
	Archived []RawMessage `json:"archived"`
	Draft    []RawMessage `json:"draft"`
}

type RawMessage struct {
	ID         int             `json:"id"`
	Subject    string          `json:"subject"`
	From       json.RawMessage `json:"from"`
	To         []RawPerson     `json:"to"`
	Date       string          `json:"date"`
	Read       bool            `json:"read"`
	IDClasseur int             `json:"idClasseur"`
	Files      []RawDocument   `json:"files"`
}

// RawPerson is a message participant. From may arrive as a bare string
// instead; NormalizeMessages handles both encodings.
type RawPerson struct {
	Civilite string `json:"civilite"`
	Prenom   string `json:"prenom"`
	Nom      string `json:"nom"`
	Name     string `json:"name"`
}

// RawMessageContent is the envelope data of a single-message fetch.
type RawMessageContent struct {
	ID      int             `json:"id"`
	Subject string          `json:"subject"`
	From    json.RawMessage `json:"from"`
	To      []RawPerson     `json:"to"`
	Content string          `json:"content"`
	Files   []RawDocument   `json:"files"`
}

// RawGradesData is the envelope data of a grades fetch.
type RawGradesData struct {
	Notes []RawGrade `json:"notes"`
}

type RawGrade struct {
	ID            int    `json:"id"`
	Devoir        string `json:"devoir"`
	CodePeriode   string `json:"codePeriode"`
	CodeMatiere   string `json:"codeMatiere"`
	Libelle       string `json:"libelleMatiere"`
	TypeDevoir    string `json:"typeDevoir"`
	EnLettre      bool   `json:"enLettre"`
	Coef          string `json:"coef"`
	NoteSur       string `json:"noteSur"`
	Valeur        string `json:"valeur"`
	NonSignificatif bool `json:"nonSignificatif"`
	Date          string `json:"date"`
}

// RawGroupStudentsData is the envelope data of a group roster fetch.
type RawGroupStudentsData struct {
	Eleves []RawStudent `json:"eleves"`
	Entity *RawEntity   `json:"entity"`
}

type RawStudent struct {
	ID            int             `json:"id"`
	Nom           string          `json:"nom"`
	Prenom        string          `json:"prenom"`
	Particule     string          `json:"particule"`
	Sexe          string          `json:"sexe"`
	ClasseID      int             `json:"classeId"`
	ClasseLibelle string          `json:"classeLibelle"`
	GroupeID      int             `json:"groupeId"`
	Email         string          `json:"email"`
	Portable      string          `json:"portable"`
	Photo         string          `json:"photo"`
	DateNaissance string          `json:"dateNaissance"`
	Regime        string          `json:"regime"`
	Dispositifs   []RawDispositif `json:"dispositifs"`
}

type RawDispositif struct {
	ID        int    `json:"id"`
	Libelle   string `json:"libelle"`
	DateDebut string `json:"dateDebut"`
	DateFin   string `json:"dateFin"`
}

type RawEntity struct {
	ID      int    `json:"id"`
	Code    string `json:"code"`
	Libelle string `json:"libelle"`
	Type    string `json:"type"`
}

// RawGroupsData is the envelope data of a teacher groups fetch.
type RawGroupsData struct {
	Groupes []RawGroup `json:"groupes"`
}

type RawGroup struct {
	ID         int    `json:"id"`
	Code       string `json:"code"`
	Libelle    string `json:"libelle"`
	Type       string `json:"type"`
	IsFlexible bool   `json:"isFlexible"`
	IsPrimaire bool   `json:"isPrimaire"`
	NbEleves   int    `json:"nbEleves"`
}

// RawClassesData is the envelope data of a teacher classes fetch.
type RawClassesData struct {
	Classes []RawClass `json:"classes"`
}

type RawClass struct {
	ID       int    `json:"id"`
	Code     string `json:"code"`
	Libelle  string `json:"libelle"`
	Niveau   string `json:"niveau"`
	NbEleves int    `json:"nbEleves"`
}

// RawTextbookSlot is one entry of the teacher loadslots fetch.
type RawTextbookSlot struct {
	IDCours        int        `json:"idCours"`
	IDCDT          int        `json:"idCDT"`
	StartDate      string     `json:"start_date"`
	EndDate        string     `json:"end_date"`
	Date           string     `json:"date"`
	MatiereLibelle string     `json:"matiereLibelle"`
	MatiereCode    string     `json:"matiereCode"`
	EntityLibelle  string     `json:"entityLibelle"`
	EntityCode     string     `json:"entityCode"`
	Salle          string     `json:"salle"`
	Color          string     `json:"color"`
	TravailAFaire  bool       `json:"travailAFaire"`
	AFaire         *RawAFaire `json:"aFaire"`
}
