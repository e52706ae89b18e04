package cli

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/cartable-app/cartable/pkg/constants"
)

var homeworkCmd = &cobra.Command{
	Use:   "homework [date]",
	Short: "List homework, upcoming or detailed for one YYYY-MM-DD date",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := connectedClient(cmd)
		if err != nil {
			return err
		}
		defer c.Close()

		date := ""
		if len(args) == 1 {
			date = args[0]
		}
		items, err := c.GetHomework(cmd.Context(), date)
		if err != nil {
			return err
		}
		for _, item := range items {
			status := " "
			if item.Done {
				status = "x"
			}
			fmt.Printf("[%s] %s  %-20s %s\n", status, item.DueDate, item.Subject, item.Content)
		}
		return nil
	},
}

var testsCmd = &cobra.Command{
	Use:   "tests",
	Short: "List upcoming supervised tests",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := connectedClient(cmd)
		if err != nil {
			return err
		}
		defer c.Close()

		tests, err := c.GetTests(cmd.Context())
		if err != nil {
			return err
		}
		for _, test := range tests {
			fmt.Printf("%s  %-20s %s\n", test.Date, test.Subject, test.Weight)
		}
		return nil
	},
}

var scheduleCmd = &cobra.Command{
	Use:   "schedule <start> <end>",
	Short: "Show the timetable between two YYYY-MM-DD dates",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := connectedClient(cmd)
		if err != nil {
			return err
		}
		defer c.Close()

		account := c.Account()
		fetch := c.GetSchedule
		if account.IsTeacher() {
			fetch = c.GetTeacherSchedule
		}
		entries, err := fetch(cmd.Context(), args[0], args[1])
		if err != nil {
			return err
		}
		for _, e := range entries {
			flag := ""
			if e.Cancelled {
				flag = " (annulé)"
			} else if e.Modified {
				flag = " (modifié)"
			}
			fmt.Printf("%s - %s  %-20s %s%s\n", e.Start, e.End, e.Subject, e.Room, flag)
		}
		return nil
	},
}

var gradesYear string

var gradesCmd = &cobra.Command{
	Use:   "grades",
	Short: "List marks for a school year",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := connectedClient(cmd)
		if err != nil {
			return err
		}
		defer c.Close()

		grades, err := c.GetGrades(cmd.Context(), gradesYear)
		if err != nil {
			return err
		}
		for _, g := range grades {
			fmt.Printf("%s  %-20s %s/%s  %s\n", g.Date, g.Subject, g.Value, g.OutOf, g.Label)
		}
		return nil
	},
}

var messagesFolder string

var messagesCmd = &cobra.Command{
	Use:   "messages [id]",
	Short: "List a mailbox folder, or print one message body",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := connectedClient(cmd)
		if err != nil {
			return err
		}
		defer c.Close()

		if len(args) == 1 {
			id, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid message id %q", args[0])
			}
			content, err := c.GetMessageContent(cmd.Context(), id)
			if err != nil {
				return err
			}
			fmt.Printf("De : %s\nSujet : %s\n\n%s\n", content.From, content.Subject, content.Content)
			return nil
		}

		messages, err := c.GetMessages(cmd.Context(), constants.MessageFolder(messagesFolder))
		if err != nil {
			return err
		}
		for _, m := range messages {
			marker := " "
			if !m.Read {
				marker = "*"
			}
			fmt.Printf("%s %6d  %s  %-30s %s\n", marker, m.ID, m.Date, m.From, m.Subject)
		}
		return nil
	},
}

var downloadType, downloadOut string

var downloadCmd = &cobra.Command{
	Use:   "download <file-id>",
	Short: "Download an attachment",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		fileID, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid file id %q", args[0])
		}

		c, err := connectedClient(cmd)
		if err != nil {
			return err
		}
		defer c.Close()

		data, err := c.Download(cmd.Context(), fileID, constants.FileType(downloadType))
		if err != nil {
			return err
		}
		if downloadOut == "" || downloadOut == "-" {
			_, err = os.Stdout.Write(data)
			return err
		}
		if err := os.WriteFile(downloadOut, data, 0o644); err != nil {
			return err
		}
		fmt.Printf("Écrit %d octets dans %s\n", len(data), downloadOut)
		return nil
	},
}

func init() {
	gradesCmd.Flags().StringVar(&gradesYear, "year", "", "school year, e.g. 2024-2025 (default: current)")
	messagesCmd.Flags().StringVar(&messagesFolder, "folder", string(constants.FolderReceived), "folder: received, sent, archived or draft")
	downloadCmd.Flags().StringVar(&downloadType, "type", string(constants.FileTypeHomework), "upstream file type")
	downloadCmd.Flags().StringVar(&downloadOut, "out", "", "output file (default: stdout)")

	rootCmd.AddCommand(homeworkCmd)
	rootCmd.AddCommand(testsCmd)
	rootCmd.AddCommand(scheduleCmd)
	rootCmd.AddCommand(gradesCmd)
	rootCmd.AddCommand(messagesCmd)
	rootCmd.AddCommand(downloadCmd)
}
