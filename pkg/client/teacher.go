package client

import (
	"context"
	"fmt"
	"math/rand"
	"net/url"
	"time"

	"github.com/cartable-app/cartable/internal/normalize"
	"github.com/cartable-app/cartable/internal/transport"
	"github.com/cartable-app/cartable/pkg/errors"
	"github.com/cartable-app/cartable/pkg/logger"
	"github.com/cartable-app/cartable/pkg/types"
	"github.com/cartable-app/cartable/pkg/utils"
)

// Teacher-only operations. Every entry point checks the account variant and
// returns a permission error on the wrong one; these are never retried.

const teacherOnlyMessage = "Cette méthode est réservée aux professeurs"

// Spacing of the per-group roster fetches. A burst of roster calls looks
// like scraping to the upstream, so each one waits a randomized delay on
// top of the gate's pacing.
const (
	rosterFetchDelayMin    = 500 * time.Millisecond
	rosterFetchDelaySpread = 800 * time.Millisecond
)

// GetTeacherGroups fetches the teaching groups of the teacher account.
func (c *Client) GetTeacherGroups(ctx context.Context) ([]types.Group, error) {
	account, err := c.requireTeacher()
	if err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("/P/%d/groupes.awp", account.ID)
	data, err := c.request(ctx, endpoint, nil, struct{}{})
	if err != nil {
		return nil, err
	}

	var raw normalize.RawGroupsData
	if err := transport.DecodeData(data, &raw); err != nil {
		return nil, errors.ErrTransport("malformed groups payload", err)
	}
	return normalize.Groups(raw), nil
}

// GetTeacherClasses fetches the administrative classes of the teacher account.
func (c *Client) GetTeacherClasses(ctx context.Context) ([]types.SchoolClass, error) {
	account, err := c.requireTeacher()
	if err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("/P/%d/classes.awp", account.ID)
	data, err := c.request(ctx, endpoint, nil, struct{}{})
	if err != nil {
		return nil, err
	}

	var raw normalize.RawClassesData
	if err := transport.DecodeData(data, &raw); err != nil {
		return nil, errors.ErrTransport("malformed classes payload", err)
	}
	return normalize.Classes(raw), nil
}

// GetGroupStudents fetches the roster of one teaching group.
func (c *Client) GetGroupStudents(ctx context.Context, groupID int) ([]types.Student, error) {
	if _, err := c.requireAccount(); err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("/groupes/%d/eleves.awp", groupID)
	data, err := c.request(ctx, endpoint, nil, struct{}{})
	if err != nil {
		return nil, err
	}

	var raw normalize.RawGroupStudentsData
	if err := transport.DecodeData(data, &raw); err != nil {
		return nil, errors.ErrTransport("malformed roster payload", err)
	}
	return normalize.Students(raw), nil
}

// GetAllStudents fetches the deduplicated roster across every group of the
// teacher account. Snapshots are served from the roster cache for a day;
// forceRefresh bypasses it. Group fetches are spaced by randomized delays,
// and a group that fails is skipped rather than failing the whole roster.
func (c *Client) GetAllStudents(ctx context.Context, forceRefresh bool) ([]types.Student, error) {
	account, err := c.requireTeacher()
	if err != nil {
		return nil, err
	}

	if c.roster != nil && !forceRefresh {
		if students, ok := c.roster.Get(ctx, account.ID); ok {
			c.log.Debug(ctx, "roster served from cache", logger.Fields{
				"account_id": account.ID,
				"students":   len(students),
			})
			return students, nil
		}
	}

	groupIDs := uniqueGroupIDs(account.Classes)
	seen := make(map[int]struct{}, 64)
	var all []types.Student

	for _, groupID := range groupIDs {
		if err := sleepContext(ctx, c.rosterDelay()); err != nil {
			return nil, err
		}

		students, err := c.GetGroupStudents(ctx, groupID)
		if err != nil {
			if errors.IsCancelled(err) {
				return nil, err
			}
			c.log.Warn(ctx, "skipping group after roster fetch failure", logger.Fields{
				"group_id": groupID,
				"error":    err.Error(),
			})
			continue
		}
		for _, s := range students {
			if _, dup := seen[s.ID]; dup {
				continue
			}
			seen[s.ID] = struct{}{}
			all = append(all, s)
		}
	}

	if c.roster != nil && len(all) > 0 {
		if err := c.roster.Put(ctx, account.ID, all); err != nil {
			c.log.Warn(ctx, "failed to cache roster snapshot", logger.Fields{"error": err.Error()})
		}
	}
	return all, nil
}

// GetTeacherSchedule fetches the teacher's timetable between two dates.
func (c *Client) GetTeacherSchedule(ctx context.Context, startDate, endDate string) ([]types.ScheduleEntry, error) {
	account, err := c.requireTeacher()
	if err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("/P/%d/emploidutemps.awp", account.ID)
	payload := map[string]interface{}{
		"dateDebut": startDate,
		"dateFin":   endDate,
		"avecTrous": false,
	}
	data, err := c.request(ctx, endpoint, nil, payload)
	if err != nil {
		return nil, err
	}

	var raw []normalize.RawScheduleEntry
	if err := transport.DecodeData(data, &raw); err != nil {
		return nil, errors.ErrTransport("malformed schedule payload", err)
	}
	return normalize.Schedule(raw), nil
}

// GetTextbookSlots fetches the teacher's schedule slots joined with their
// assigned work between two YYYY-MM-DD dates.
func (c *Client) GetTextbookSlots(ctx context.Context, startDate, endDate string) ([]types.TextbookSlot, error) {
	if _, err := c.requireTeacher(); err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("/cahierdetexte/loadslots/%s/%s.awp", startDate, endDate)
	data, err := c.request(ctx, endpoint, nil, struct{}{})
	if err != nil {
		return nil, err
	}

	var raw []normalize.RawTextbookSlot
	if err := transport.DecodeData(data, &raw); err != nil {
		return nil, errors.ErrTransport("malformed textbook slots payload", err)
	}
	return normalize.TextbookSlots(raw), nil
}

// GetClassStudents fetches the roster of one administrative class.
func (c *Client) GetClassStudents(ctx context.Context, classID int) ([]types.Student, error) {
	if _, err := c.requireAccount(); err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("/classes/%d/eleves.awp", classID)
	data, err := c.request(ctx, endpoint, nil, struct{}{})
	if err != nil {
		return nil, err
	}

	var raw normalize.RawGroupStudentsData
	if err := transport.DecodeData(data, &raw); err != nil {
		return nil, errors.ErrTransport("malformed roster payload", err)
	}
	return normalize.Students(raw), nil
}

// GetTeacherMessages fetches the teacher mailbox, which lives under the
// enseignants entity rather than the student/family one.
func (c *Client) GetTeacherMessages(ctx context.Context) ([]types.Message, error) {
	account, err := c.requireTeacher()
	if err != nil {
		return nil, err
	}

	query := map[string]string{
		"force":            "false",
		"typeRecuperation": "received",
		"idClasseur":       "0",
		"orderBy":          "date",
		"order":            "desc",
		"page":             "0",
		"itemsPerPage":     "100",
		"getAll":           "0",
	}
	endpoint := fmt.Sprintf("/enseignants/%d/messages.awp", account.ID)
	data, err := c.request(ctx, endpoint, query, struct{}{})
	if err != nil {
		return nil, err
	}

	var raw normalize.RawMessagesData
	if err := transport.DecodeData(data, &raw); err != nil {
		return nil, errors.ErrTransport("malformed messages payload", err)
	}
	return normalize.Messages(raw), nil
}

// GetTeacherMessageContent fetches and decodes one teacher mailbox message.
func (c *Client) GetTeacherMessageContent(ctx context.Context, messageID int) (*types.MessageContent, error) {
	account, err := c.requireTeacher()
	if err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("/enseignants/%d/messages/%d.awp", account.ID, messageID)
	data, err := c.request(ctx, endpoint, map[string]string{"mode": "destinataire"}, struct{}{})
	if err != nil {
		return nil, err
	}

	var raw normalize.RawMessageContent
	if err := transport.DecodeData(data, &raw); err != nil {
		return nil, errors.ErrTransport("malformed message payload", err)
	}
	content := normalize.MessageContent(raw, utils.DecodeBase64)
	return &content, nil
}

// GetStudentGrades fetches the marks of one student of the teacher's groups.
func (c *Client) GetStudentGrades(ctx context.Context, studentID int) ([]types.Grade, error) {
	if _, err := c.requireTeacher(); err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("/eleves/%d/notes.awp", studentID)
	data, err := c.request(ctx, endpoint, nil, struct{}{})
	if err != nil {
		return nil, err
	}

	var raw normalize.RawGradesData
	if err := transport.DecodeData(data, &raw); err != nil {
		return nil, errors.ErrTransport("malformed grades payload", err)
	}
	return normalize.Grades(raw), nil
}

// GetStudentSchoolLife fetches the vie scolaire records of one student of
// the teacher's groups.
func (c *Client) GetStudentSchoolLife(ctx context.Context, studentID int) (*types.SchoolLife, error) {
	if _, err := c.requireTeacher(); err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("/eleves/%d/viescolaire.awp", studentID)
	data, err := c.request(ctx, endpoint, nil, struct{}{})
	if err != nil {
		return nil, err
	}

	var raw normalize.RawSchoolLife
	if err := transport.DecodeData(data, &raw); err != nil {
		return nil, errors.ErrTransport("malformed school life payload", err)
	}
	life := normalize.SchoolLife(raw)
	return &life, nil
}

// GetTeacherGrades fetches the raw marks of one group for a period and
// subject. The payload shape varies per establishment, so it is returned
// undecoded.
func (c *Client) GetTeacherGrades(ctx context.Context, groupID int, periodCode, subjectCode string) ([]byte, error) {
	account, err := c.requireTeacher()
	if err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("/enseignants/%d/G/%d/periodes/%s/matieres/%s/notes.awp",
		account.ID, groupID, url.PathEscape(periodCode), url.PathEscape(subjectCode))
	return c.request(ctx, endpoint, nil, struct{}{})
}

func (c *Client) requireTeacher() (*types.Account, error) {
	account, err := c.requireAccount()
	if err != nil {
		return nil, err
	}
	if !account.IsTeacher() {
		return nil, errors.ErrPermission(teacherOnlyMessage)
	}
	return account, nil
}

func uniqueGroupIDs(classes []types.TaughtClass) []int {
	seen := make(map[int]struct{}, len(classes))
	ids := make([]int, 0, len(classes))
	for _, class := range classes {
		if class.GroupID == 0 {
			continue
		}
		if _, dup := seen[class.GroupID]; dup {
			continue
		}
		seen[class.GroupID] = struct{}{}
		ids = append(ids, class.GroupID)
	}
	return ids
}

func rosterFetchDelay() time.Duration {
	return rosterFetchDelayMin + time.Duration(rand.Int63n(int64(rosterFetchDelaySpread)))
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return errors.ErrCancelled().WithCause(ctx.Err())
	}
}
