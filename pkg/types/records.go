package types

// ScheduleEntry is one normalized lesson or event from the timetable.
// Cancelled and Modified default to false when the upstream omits the flags.
type ScheduleEntry struct {
	ID          int    `json:"id"`
	Subject     string `json:"subject"`
	SubjectCode string `json:"subject_code,omitempty"`
	Text        string `json:"text,omitempty"`
	Teacher     string `json:"teacher,omitempty"`
	Room        string `json:"room,omitempty"`
	Start       string `json:"start"`
	End         string `json:"end"`
	Cancelled   bool   `json:"cancelled"`
	Modified    bool   `json:"modified"`
	Color       string `json:"color,omitempty"`
	Kind        string `json:"kind,omitempty"`
	Class       string `json:"class,omitempty"`
	ClassID     int    `json:"class_id,omitempty"`
	Group       string `json:"group,omitempty"`
}

// Workload grades how heavy a homework item is, estimated from the explicit
// interrogation flag and keyword matching on the decoded content. The
// classification is best-effort; the upstream provides no authoritative signal.
type Workload string

const (
	WorkloadControl Workload = "CONTROL"
	WorkloadDST     Workload = "DST"
	WorkloadHeavy   Workload = "HEAVY"
	WorkloadMedium  Workload = "MEDIUM"
	WorkloadLight   Workload = "LIGHT"
)

// Attachment references a downloadable document.
type Attachment struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
	Type string `json:"type,omitempty"`
}

// HomeworkItem is one normalized textbook entry. Detail fields (Content,
// SessionContent, Files) are populated only from the detailed per-date
// upstream shape; the overview shape leaves them empty.
type HomeworkItem struct {
	ID          int    `json:"id"`
	Subject     string `json:"subject"`
	SubjectCode string `json:"subject_code,omitempty"`
	Teacher     string `json:"teacher,omitempty"`
	DueDate     string `json:"due_date"`
	GivenDate   string `json:"given_date,omitempty"`
	Done        bool   `json:"done"`
	IsTest      bool   `json:"is_test"`
	Weight      Workload `json:"weight"`

	Content        string       `json:"content,omitempty"`
	SessionContent string       `json:"session_content,omitempty"`
	HasFiles       bool         `json:"has_files"`
	Files          []Attachment `json:"files"`
}

// TestItem is a homework entry classified as a supervised test or evaluation.
type TestItem struct {
	ID          int    `json:"id"`
	Subject     string `json:"subject"`
	SubjectCode string `json:"subject_code,omitempty"`
	Teacher     string `json:"teacher,omitempty"`
	Date        string `json:"date"`
	Content     string `json:"content,omitempty"`
	Weight      Workload `json:"weight"`
}

// Grade is one normalized mark. Value and OutOf keep the upstream's French
// decimal-comma strings alongside parsed floats; Parsed is false when the
// upstream value was non-numeric (absent, exempt, ...).
type Grade struct {
	ID          int     `json:"id"`
	Subject     string  `json:"subject"`
	SubjectCode string  `json:"subject_code,omitempty"`
	Label       string  `json:"label,omitempty"`
	Kind        string  `json:"kind,omitempty"`
	Date        string  `json:"date,omitempty"`
	Period      string  `json:"period,omitempty"`
	Value       string  `json:"value"`
	OutOf       string  `json:"out_of,omitempty"`
	Coefficient string  `json:"coefficient,omitempty"`
	Score       float64 `json:"score"`
	ScoreOutOf  float64 `json:"score_out_of"`
	Parsed      bool    `json:"parsed"`
	IsExam      bool    `json:"is_exam"`
}

// Message is one normalized mailbox entry, tagged with the folder it came
// from. Content is loaded separately via GetMessageContent.
type Message struct {
	ID             int                    `json:"id"`
	Subject        string                 `json:"subject"`
	From           string                 `json:"from"`
	To             string                 `json:"to,omitempty"`
	Date           string                 `json:"date"`
	Read           bool                   `json:"read"`
	Folder         string                 `json:"folder"`
	FolderID       int                    `json:"folder_id"`
	HasAttachments bool                   `json:"has_attachments"`
	Files          []Attachment           `json:"files"`
}

// MessageContent is the decoded body of one message.
type MessageContent struct {
	ID      int          `json:"id"`
	From    string       `json:"from"`
	To      string       `json:"to,omitempty"`
	Subject string       `json:"subject,omitempty"`
	Content string       `json:"content"`
	Files   []Attachment `json:"files"`
}

// SchoolLifeEvent is one absence, delay, sanction or encouragement record.
type SchoolLifeEvent struct {
	ID        int    `json:"id"`
	Kind      string `json:"kind"`
	Label     string `json:"label,omitempty"`
	Date      string `json:"date,omitempty"`
	Justified bool   `json:"justified"`
	Reason    string `json:"reason,omitempty"`
	Comment   string `json:"comment,omitempty"`
}

// SchoolLife groups the vie scolaire records of one student.
type SchoolLife struct {
	Absences  []SchoolLifeEvent `json:"absences"`
	Sanctions []SchoolLifeEvent `json:"sanctions"`
}

// Accommodation is a special-needs arrangement attached to a student (PAP, PAI, ...).
type Accommodation struct {
	ID        int    `json:"id"`
	Name      string `json:"name"`
	StartDate string `json:"start_date,omitempty"`
	EndDate   string `json:"end_date,omitempty"`
}

// Student is one roster entry as seen by a teacher account.
type Student struct {
	ID             int             `json:"id"`
	FirstName      string          `json:"first_name"`
	LastName       string          `json:"last_name"`
	Particle       string          `json:"particle,omitempty"`
	Gender         string          `json:"gender,omitempty"`
	ClassID        int             `json:"class_id,omitempty"`
	ClassName      string          `json:"class_name,omitempty"`
	GroupID        int             `json:"group_id,omitempty"`
	Email          string          `json:"email,omitempty"`
	Phone          string          `json:"phone,omitempty"`
	Photo          string          `json:"photo,omitempty"`
	BirthDate      string          `json:"birth_date,omitempty"`
	Regime         string          `json:"regime,omitempty"`
	Accommodations []Accommodation `json:"accommodations,omitempty"`
}

// Group is one teaching group a teacher account manages.
type Group struct {
	ID           int    `json:"id"`
	Code         string `json:"code,omitempty"`
	Name         string `json:"name"`
	Kind         string `json:"kind,omitempty"`
	IsFlexible   bool   `json:"is_flexible"`
	IsPrimary    bool   `json:"is_primary"`
	StudentCount int    `json:"student_count"`
}

// SchoolClass is one administrative class.
type SchoolClass struct {
	ID           int    `json:"id"`
	Code         string `json:"code,omitempty"`
	Name         string `json:"name"`
	Level        string `json:"level,omitempty"`
	StudentCount int    `json:"student_count"`
}

// TextbookSlot is one teacher-side schedule slot joined with its homework.
type TextbookSlot struct {
	ID       int    `json:"id"`
	EntryID  int    `json:"entry_id,omitempty"`
	Start    string `json:"start"`
	End      string `json:"end"`
	Date     string `json:"date,omitempty"`
	Subject  string `json:"subject"`
	Class    string `json:"class,omitempty"`
	Room     string `json:"room,omitempty"`
	Color    string `json:"color,omitempty"`
	HasWork  bool   `json:"has_work"`
	Assigned string `json:"assigned,omitempty"`
	Content  string `json:"content,omitempty"`
	Files    []Attachment `json:"files"`
}
