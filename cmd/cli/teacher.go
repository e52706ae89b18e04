package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var rosterForce bool

var rosterCmd = &cobra.Command{
	Use:   "roster",
	Short: "List every student across the teacher's groups",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := connectedClient(cmd)
		if err != nil {
			return err
		}
		defer c.Close()

		students, err := c.GetAllStudents(cmd.Context(), rosterForce)
		if err != nil {
			return err
		}
		for _, s := range students {
			fmt.Printf("%6d  %-15s %-15s %s\n", s.ID, s.LastName, s.FirstName, s.ClassName)
		}
		fmt.Printf("%d élèves\n", len(students))
		return nil
	},
}

var groupsCmd = &cobra.Command{
	Use:   "groups",
	Short: "List the teacher's groups and classes",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := connectedClient(cmd)
		if err != nil {
			return err
		}
		defer c.Close()

		groups, err := c.GetTeacherGroups(cmd.Context())
		if err != nil {
			return err
		}
		for _, g := range groups {
			fmt.Printf("%6d  %-30s %d élèves\n", g.ID, g.Name, g.StudentCount)
		}

		classes, err := c.GetTeacherClasses(cmd.Context())
		if err != nil {
			return err
		}
		for _, cl := range classes {
			fmt.Printf("%6d  %-30s %d élèves (classe)\n", cl.ID, cl.Name, cl.StudentCount)
		}
		return nil
	},
}

var slotsCmd = &cobra.Command{
	Use:   "slots <start> <end>",
	Short: "Show textbook slots with assigned work between two YYYY-MM-DD dates",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := connectedClient(cmd)
		if err != nil {
			return err
		}
		defer c.Close()

		slots, err := c.GetTextbookSlots(cmd.Context(), args[0], args[1])
		if err != nil {
			return err
		}
		for _, s := range slots {
			work := ""
			if s.HasWork {
				work = "  travail: " + s.Content
			}
			fmt.Printf("%s - %s  %-20s %s%s\n", s.Start, s.End, s.Subject, s.Class, work)
		}
		return nil
	},
}

func init() {
	rosterCmd.Flags().BoolVar(&rosterForce, "force", false, "bypass the cached roster snapshot")
	rootCmd.AddCommand(rosterCmd)
	rootCmd.AddCommand(groupsCmd)
	rootCmd.AddCommand(slotsCmd)
}
