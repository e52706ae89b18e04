package client

import (
	"context"
	"fmt"
	"time"

	"github.com/cartable-app/cartable/internal/normalize"
	"github.com/cartable-app/cartable/internal/transport"
	"github.com/cartable-app/cartable/pkg/constants"
	"github.com/cartable-app/cartable/pkg/errors"
	"github.com/cartable-app/cartable/pkg/logger"
	"github.com/cartable-app/cartable/pkg/types"
	"github.com/cartable-app/cartable/pkg/utils"
)

// GetHomework fetches the textbook. An empty date returns the overview of
// all upcoming work; a YYYY-MM-DD date returns the detailed entries for that
// day, content and attachments included.
func (c *Client) GetHomework(ctx context.Context, date string) ([]types.HomeworkItem, error) {
	account, err := c.requireAccount()
	if err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("/Eleves/%d/cahierdetexte.awp", account.ID)
	if date != "" {
		endpoint = fmt.Sprintf("/Eleves/%d/cahierdetexte/%s.awp", account.ID, date)
	}

	data, err := c.request(ctx, endpoint, nil, struct{}{})
	if err != nil {
		return nil, err
	}
	return normalize.Homework(data, date), nil
}

// GetHomeworkDetails fetches detailed entries for every date carrying work
// within the next daysAhead days. The overview is fetched first so only dates
// that actually have homework cost a detail call; a date that fails to load
// is skipped rather than failing the whole range.
func (c *Client) GetHomeworkDetails(ctx context.Context, daysAhead int) ([]types.HomeworkItem, error) {
	overview, err := c.GetHomework(ctx, "")
	if err != nil {
		return nil, err
	}

	withWork := make(map[string]struct{}, len(overview))
	for _, item := range overview {
		withWork[item.DueDate] = struct{}{}
	}

	today := time.Now()
	var all []types.HomeworkItem
	for i := 0; i < daysAhead; i++ {
		date := today.AddDate(0, 0, i).Format("2006-01-02")
		if _, ok := withWork[date]; !ok {
			continue
		}
		detailed, err := c.GetHomework(ctx, date)
		if err != nil {
			if errors.IsCancelled(err) {
				return nil, err
			}
			c.log.Warn(ctx, "skipping date after homework detail failure", logger.Fields{
				"date":  date,
				"error": err.Error(),
			})
			continue
		}
		all = append(all, detailed...)
	}
	return all, nil
}

// SetHomeworkDone marks homework entries done and not done in one call.
func (c *Client) SetHomeworkDone(ctx context.Context, doneIDs, notDoneIDs []int) error {
	account, err := c.requireAccount()
	if err != nil {
		return err
	}
	if doneIDs == nil {
		doneIDs = []int{}
	}
	if notDoneIDs == nil {
		notDoneIDs = []int{}
	}

	endpoint := fmt.Sprintf("/Eleves/%d/cahierdetexte.awp", account.ID)
	payload := map[string][]int{
		"idDevoirsEffectues":    doneIDs,
		"idDevoirsNonEffectues": notDoneIDs,
	}
	_, err = c.request(ctx, endpoint, map[string]string{"verbe": "put"}, payload)
	return err
}

// GetTests fetches the textbook overview and extracts the entries classified
// as supervised tests.
func (c *Client) GetTests(ctx context.Context) ([]types.TestItem, error) {
	account, err := c.requireAccount()
	if err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("/Eleves/%d/cahierdetexte.awp", account.ID)
	data, err := c.request(ctx, endpoint, nil, struct{}{})
	if err != nil {
		return nil, err
	}
	return normalize.Tests(data), nil
}

// GetSchedule fetches the timetable between two YYYY-MM-DD dates inclusive.
func (c *Client) GetSchedule(ctx context.Context, startDate, endDate string) ([]types.ScheduleEntry, error) {
	account, err := c.requireAccount()
	if err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("/E/%d/emploidutemps.awp", account.ID)
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

// GetGrades fetches the marks for a school year; empty means the current one.
func (c *Client) GetGrades(ctx context.Context, schoolYear string) ([]types.Grade, error) {
	account, err := c.requireAccount()
	if err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("/Eleves/%d/notes.awp", account.ID)
	payload := map[string]string{"anneeScolaire": schoolYear}
	data, err := c.request(ctx, endpoint, nil, payload)
	if err != nil {
		return nil, err
	}

	var raw normalize.RawGradesData
	if err := transport.DecodeData(data, &raw); err != nil {
		return nil, errors.ErrTransport("malformed grades payload", err)
	}
	return normalize.Grades(raw), nil
}

// GetMessages fetches one mailbox folder, flattened into stable records.
func (c *Client) GetMessages(ctx context.Context, folder constants.MessageFolder) ([]types.Message, error) {
	account, err := c.requireAccount()
	if err != nil {
		return nil, err
	}
	if folder == "" {
		folder = constants.FolderReceived
	}

	query := map[string]string{
		"force":            "false",
		"typeRecuperation": string(folder),
		"idClasseur":       "0",
		"orderBy":          "date",
		"order":            "desc",
		"query":            "",
		"onlyRead":         "",
		"getAll":           "1",
	}
	payload := map[string]string{"anneeMessages": currentSchoolYear(time.Now())}

	data, err := c.request(ctx, c.mailboxPath(account)+"/messages.awp", query, payload)
	if err != nil {
		return nil, err
	}

	var raw normalize.RawMessagesData
	if err := transport.DecodeData(data, &raw); err != nil {
		return nil, errors.ErrTransport("malformed messages payload", err)
	}
	return normalize.Messages(raw), nil
}

// GetMessageContent fetches and decodes the body of one message.
func (c *Client) GetMessageContent(ctx context.Context, messageID int) (*types.MessageContent, error) {
	account, err := c.requireAccount()
	if err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("%s/messages/%d.awp", c.mailboxPath(account), messageID)
	query := map[string]string{"mode": "destinataire"}
	payload := map[string]string{"anneeMessages": currentSchoolYear(time.Now())}

	data, err := c.request(ctx, endpoint, query, payload)
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

// GetSchoolLife fetches the vie scolaire records: absences, delays,
// sanctions and encouragements.
func (c *Client) GetSchoolLife(ctx context.Context) (*types.SchoolLife, error) {
	account, err := c.requireAccount()
	if err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("/eleves/%d/viescolaire.awp", account.ID)
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

// GetTimeline fetches the raw activity timeline. The payload shape varies
// per establishment, so it is returned undecoded.
func (c *Client) GetTimeline(ctx context.Context) ([]byte, error) {
	account, err := c.requireAccount()
	if err != nil {
		return nil, err
	}
	return c.request(ctx, fmt.Sprintf("/eleves/%d/timeline.awp", account.ID), nil, struct{}{})
}

// GetDocuments fetches the raw administrative documents listing. An empty
// year targets the current one; past years go through the archive. The
// category set varies per establishment, so the payload is returned
// undecoded.
func (c *Client) GetDocuments(ctx context.Context, year string) ([]byte, error) {
	if _, err := c.requireAccount(); err != nil {
		return nil, err
	}
	return c.request(ctx, "/elevesDocuments.awp", map[string]string{"archive": year}, struct{}{})
}

// Download fetches one attachment's bytes.
func (c *Client) Download(ctx context.Context, fileID int, fileType constants.FileType) ([]byte, error) {
	if err := c.gate.Acquire(ctx); err != nil {
		return nil, err
	}
	defer c.gate.Release()

	if !c.IsAuthenticated() {
		return nil, errors.ErrNotAuthenticated()
	}
	if fileType == "" {
		fileType = constants.FileTypeHomework
	}
	return c.tr.Download(ctx, fileID, fileType)
}

// requireAccount returns the authenticated account or a usage error.
func (c *Client) requireAccount() (*types.Account, error) {
	account := c.Account()
	if account == nil {
		return nil, errors.ErrNotAuthenticated()
	}
	return account, nil
}

// mailboxPath routes mailbox calls by variant: students own their mailbox,
// family accounts go through the family entity.
func (c *Client) mailboxPath(account *types.Account) string {
	if account.Type == constants.AccountTypeStudent {
		return fmt.Sprintf("/eleves/%d", account.ID)
	}
	id := account.FamilyID
	if id == 0 {
		id = account.ID
	}
	return fmt.Sprintf("/familles/%d", id)
}

// currentSchoolYear renders the "2024-2025" label: the year rolls over in
// September.
func currentSchoolYear(now time.Time) string {
	year := now.Year()
	if now.Month() < time.September {
		year--
	}
	return fmt.Sprintf("%d-%d", year, year+1)
}
