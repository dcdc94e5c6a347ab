package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func newLoginCmd(g *globals) *cobra.Command {
	var user, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and save the session token to the active profile",
		Example: `  # Prompt for the password
  cmadmin login --user admin

  # Non-interactive
  CMADMIN_PASSWORD=secret cmadmin login --user admin --host https://cm.example.com`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := loadOrEmptyConfig()
			p := cfg.ActiveProfile(g.profile)

			if user == "" {
				user = p.User
			}
			if user == "" {
				user = "admin"
			}
			if password == "" {
				password = os.Getenv("CMADMIN_PASSWORD")
			}
			if password == "" {
				pw, err := readPassword(cmd.InOrStdin(), cmd.ErrOrStderr())
				if err != nil {
					return err
				}
				password = pw
			}

			token, err := g.client.Login(cmd.Context(), user, password)
			if err != nil {
				return err
			}

			p.Host = g.host
			p.User = user
			p.Token = token
			cfg.SetProfile(g.profile, p)
			if err := SaveUserConfig(cfg); err != nil {
				return fmt.Errorf("save config: %w", err)
			}

			if getOutputFormat(cmd) == "json" {
				return printJSON(cmd.OutOrStdout(), map[string]string{"user": user, "host": g.host})
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Logged in to %s as %s\n", g.host, user)
			return nil
		},
	}
	cmd.Flags().StringVarP(&user, "user", "u", "", "user name (default: profile user, then admin)")
	cmd.Flags().StringVar(&password, "password", "", "password (default: $CMADMIN_PASSWORD, then prompt)")
	return cmd
}

func newLogoutCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End the session and forget the saved token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if g.token != "" {
				if err := g.client.Logout(cmd.Context()); err != nil {
					return err
				}
			}
			cfg := loadOrEmptyConfig()
			p := cfg.ActiveProfile(g.profile)
			p.Token = ""
			cfg.SetProfile(g.profile, p)
			if err := SaveUserConfig(cfg); err != nil {
				return fmt.Errorf("save config: %w", err)
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
			return nil
		},
	}
}

// readPassword prompts without echo on a terminal and reads one line
// otherwise.
func readPassword(in io.Reader, prompt io.Writer) (string, error) {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		_, _ = fmt.Fprint(prompt, "Password: ")
		b, err := term.ReadPassword(int(f.Fd()))
		_, _ = fmt.Fprintln(prompt)
		if err != nil {
			return "", fmt.Errorf("read password: %w", err)
		}
		return string(b), nil
	}
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}
