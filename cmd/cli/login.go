package cli

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/cartable-app/cartable/pkg/client"
	"github.com/cartable-app/cartable/pkg/errors"
	"github.com/cartable-app/cartable/pkg/types"
)

var loginRemember bool

var loginCmd = &cobra.Command{
	Use:   "login <identifiant>",
	Short: "Log in to École Directe",
	Long: `Log in with your École Directe identifier. The password is prompted,
never passed on the command line. If the platform asks its security question,
the choices are listed and your answer is read from the terminal.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		defer c.Close()

		fmt.Fprint(os.Stderr, "Mot de passe : ")
		pw, err := term.ReadPassword(int(syscall.Stdin))
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return err
		}

		account, err := c.Login(cmd.Context(), args[0], string(pw), client.LoginOptions{
			Remember: loginRemember,
		})
		if challenge, ok := errors.AsChallengeRequired(err); ok {
			account, err = answerChallenge(cmd, c, challenge)
		}
		if err != nil {
			return err
		}

		fmt.Printf("Connecté : %s %s (%s)\n", account.FirstName, account.LastName, account.Variant)
		return nil
	},
}

func answerChallenge(cmd *cobra.Command, c *client.Client, challenge *errors.ChallengeRequired) (*types.Account, error) {
	fmt.Println(challenge.Question)
	for i, choice := range challenge.Choices {
		fmt.Printf("  %d) %s\n", i+1, choice)
	}
	fmt.Print("Réponse : ")

	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return nil, err
	}
	index, err := strconv.Atoi(strings.TrimSpace(line))
	if err != nil {
		return nil, fmt.Errorf("réponse invalide: %w", err)
	}
	return c.AnswerChallenge(cmd.Context(), index-1)
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Log out and wipe all persisted state",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		defer c.Close()
		if err := c.Logout(cmd.Context()); err != nil {
			return err
		}
		fmt.Println("Déconnecté")
		return nil
	},
}

func init() {
	loginCmd.Flags().BoolVarP(&loginRemember, "remember", "r", false, "persist a renewal token for silent re-authentication")
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
}
