package normalize

import (
	"encoding/json"
	"strings"

	"github.com/bytedance/sonic"

	"github.com/cartable-app/cartable/pkg/constants"
	"github.com/cartable-app/cartable/pkg/types"
)

// UnknownSender is the placeholder for a message without sender information.
const UnknownSender = "Inconnu"

// Messages flattens the per-folder mailbox payload into a single list,
// tagging each entry with the folder it came from.
func Messages(data RawMessagesData) []types.Message {
	out := []types.Message{}
	folders := []struct {
		name    constants.MessageFolder
		entries []RawMessage
	}{
		{constants.FolderReceived, data.Messages.Received},
		{constants.FolderSent, data.Messages.Sent},
		{constants.FolderArchived, data.Messages.Archived},
		{constants.FolderDraft, data.Messages.Draft},
	}

	for _, folder := range folders {
		for _, msg := range folder.entries {
			subject := msg.Subject
			if subject == "" {
				subject = "(Sans sujet)"
			}
			folderID := msg.IDClasseur
			if folderID == 0 {
				folderID = constants.FolderID(folder.name)
			}
			out = append(out, types.Message{
				ID:             msg.ID,
				Subject:        subject,
				From:           FormatSender(msg.From),
				To:             recipients(msg.To),
				Date:           msg.Date,
				Read:           msg.Read,
				Folder:         string(folder.name),
				FolderID:       folderID,
				HasAttachments: len(msg.Files) > 0,
				Files:          attachments(msg.Files),
			})
		}
	}
	return out
}

// MessageContent converts a single-message payload, decoding the body.
func MessageContent(raw RawMessageContent, decode func(string) string) types.MessageContent {
	return types.MessageContent{
		ID:      raw.ID,
		Subject: raw.Subject,
		From:    FormatSender(raw.From),
		To:      recipients(raw.To),
		Content: decode(raw.Content),
		Files:   attachments(raw.Files),
	}
}

// FormatSender renders a message participant as "civilite prenom nom". The
// upstream encodes the field inconsistently: an object, a bare string, or
// null. Anything unusable becomes the unknown placeholder.
func FormatSender(raw json.RawMessage) string {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return UnknownSender
	}

	if strings.HasPrefix(trimmed, `"`) {
		var s string
		if err := sonic.Unmarshal(raw, &s); err != nil || s == "" {
			return UnknownSender
		}
		return s
	}

	var person RawPerson
	if err := sonic.Unmarshal(raw, &person); err != nil {
		return UnknownSender
	}
	parts := make([]string, 0, 3)
	for _, p := range []string{person.Civilite, person.Prenom, person.Nom} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	if len(parts) == 0 {
		if person.Name != "" {
			return person.Name
		}
		return UnknownSender
	}
	return strings.Join(parts, " ")
}

func recipients(to []RawPerson) string {
	names := make([]string, 0, len(to))
	for _, p := range to {
		switch {
		case p.Nom != "":
			names = append(names, p.Nom)
		case p.Prenom != "":
			names = append(names, p.Prenom)
		}
	}
	return strings.Join(names, ", ")
}
