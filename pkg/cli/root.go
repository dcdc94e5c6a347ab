// Package cli implements cmadmin, a command-line client for the cm-admin
// REST API.
package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

var (
	version = "dev"
	commit  = "none"
)

// Execute runs the CLI.
func Execute() int {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		output, _ := rootCmd.PersistentFlags().GetString("output")
		if output == "json" {
			errObj := map[string]any{"error": err.Error()}
			var apiErr *APIError
			if errors.As(err, &apiErr) {
				errObj["http_status"] = apiErr.HTTPStatus
				errObj["status"] = apiErr.Status
			}
			_ = printJSON(os.Stdout, errObj)
		} else {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		return 1
	}
	return 0
}

// globals are the resolved persistent flags shared by every command.
type globals struct {
	host    string
	token   string
	output  string
	profile string
	client  *Client
}

func newRootCmd() *cobra.Command {
	g := &globals{}

	rootCmd := &cobra.Command{
		Use:           "cmadmin",
		Short:         "cm-admin command-line client",
		Long:          "Command-line client for the cm-admin reference data back office.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			p := loadOrEmptyConfig().ActiveProfile(g.profile)

			// Apply precedence: flag > env > profile > default
			if !cmd.Flags().Changed("host") {
				if v := os.Getenv("CMADMIN_HOST"); v != "" {
					g.host = v
				} else if p.Host != "" {
					g.host = p.Host
				}
			}
			if !cmd.Flags().Changed("token") {
				if v := os.Getenv("CMADMIN_TOKEN"); v != "" {
					g.token = v
				} else if p.Token != "" {
					g.token = p.Token
				}
			}
			if !cmd.Flags().Changed("output") {
				if v := os.Getenv("CMADMIN_OUTPUT"); v != "" {
					g.output = v
				} else if p.Output != "" {
					g.output = p.Output
				}
			}
			if err := validateOutputFormat(g.output); err != nil {
				return err
			}
			g.client = NewClient(g.host, g.token)
			return nil
		},
	}

	g.addFlags(rootCmd.PersistentFlags())

	rootCmd.AddCommand(
		newVersionCmd(),
		newLoginCmd(g),
		newLogoutCmd(g),
		newDatasetsCmd(g),
		newVersionsCmd(g),
		newUploadCmd(g),
		newCompletionCmd(),
	)
	return rootCmd
}

func (g *globals) addFlags(fs *pflag.FlagSet) {
	fs.StringVar(&g.host, "host", "http://localhost:8080", "API host URL")
	fs.StringVar(&g.token, "token", "", "session token for authentication")
	fs.StringVarP(&g.output, "output", "o", "table", "Output format (table, json)")
	fs.StringVarP(&g.profile, "profile", "p", "", "Config profile to use")
}

func newCompletionCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "completion [bash|zsh|fish|powershell]",
		Short:     "Generate shell completion scripts",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"bash", "zsh", "fish", "powershell"},
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletion(out)
			case "zsh":
				return cmd.Root().GenZshCompletion(out)
			case "fish":
				return cmd.Root().GenFishCompletion(out, true)
			case "powershell":
				return cmd.Root().GenPowerShellCompletionWithDesc(out)
			default:
				return fmt.Errorf("unsupported shell: %s", args[0])
			}
		},
	}
}
