package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/cchalm/codebot/internal/auth"
	"github.com/cchalm/codebot/internal/storage"
)

var useraddCmd = &cobra.Command{
	Use:   "useradd <username>",
	Short: "Create a user who can log in to the web frontend",
	Long: `Creates a user in the database. The password is read from the terminal without echo,
or from the first line of standard input when it is not a terminal.`,
	Args: cobra.ExactArgs(1),
	RunE: runUseradd,
}

func init() {
	rootCmd.AddCommand(useraddCmd)
}

func runUseradd(cmd *cobra.Command, args []string) error {
	ctx := setupContext()

	password, err := readPassword(cmd)
	if err != nil {
		return err
	}

	db, err := storage.Open(ctx, cfg.DBPath)
	if err != nil {
		return err
	}
	defer db.Close()

	user, err := auth.NewUserStore(db).Create(ctx, args[0], password)
	if err != nil {
		return err
	}
	logger.Info("User created", zap.String("username", user.Username), zap.Int64("id", user.ID))
	return nil
}

func readPassword(cmd *cobra.Command) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
		if err != nil && line == "" {
			return "", fmt.Errorf("failed to read password: %w", err)
		}
		return strings.TrimRight(line, "\r\n"), nil
	}

	fmt.Fprint(cmd.ErrOrStderr(), "Password: ")
	password, err := term.ReadPassword(fd)
	fmt.Fprintln(cmd.ErrOrStderr())
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return string(password), nil
}
