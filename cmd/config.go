package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"speech-transcriber/infrastructure/config"

	"github.com/spf13/cobra"
)

// OutputWriter allows capturing output in tests
type OutputWriter interface {
	Write(p []byte) (n int, err error)
}

// DefaultOutput is the default output writer for commands
var DefaultOutput OutputWriter = os.Stdout

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Read and edit the configuration file",
	Long: `Read and edit settings and email recipients in the configuration file.

Examples:
  speech-transcriber config list
  speech-transcriber config get transcription.engine
  speech-transcriber config set youtube.max_duration 90m
  speech-transcriber config recipient add --key jane --name "Jane Doe" --email "jane@example.com"`,
}

var configRecipientCmd = &cobra.Command{
	Use:   "recipient",
	Short: "Manage quick-lookup email recipients",
}

func init() {
	rootCmd.AddCommand(configCmd)

	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configListCmd)
	configCmd.AddCommand(configRecipientCmd)

	configRecipientCmd.AddCommand(recipientAddCmd)
	configRecipientCmd.AddCommand(recipientListCmd)
	configRecipientCmd.AddCommand(recipientRemoveCmd)
	configRecipientCmd.AddCommand(recipientUpdateCmd)
}

// --- GET / SET / LIST ---

var configGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Print the value of a setting",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := requireConfig()
		if err != nil {
			return err
		}
		return RunConfigGetWithDependencies(cfg, cfgFile, args[0], DefaultOutput)
	},
}

// RunConfigGetWithDependencies runs the get command with injected dependencies
func RunConfigGetWithDependencies(cfg *config.Config, configPath, key string, out OutputWriter) error {
	value, err := config.NewConfigManager(cfg, configPath).Get(key)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, value)
	return nil
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Change a setting and save the file",
	Long: `Change a setting and save the file. The new value must pass validation.

Lists are comma separated, durations use Go syntax (90s, 5m, 2h).

Examples:
  speech-transcriber config set transcription.engine whisper-http
  speech-transcriber config set youtube.allowed_hosts youtube.com,youtu.be`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := requireConfig()
		if err != nil {
			return err
		}
		return RunConfigSetWithDependencies(cfg, cfgFile, args[0], args[1], DefaultOutput)
	},
}

// RunConfigSetWithDependencies runs the set command with injected dependencies
func RunConfigSetWithDependencies(cfg *config.Config, configPath, key, value string, out OutputWriter) error {
	mgr := config.NewConfigManager(cfg, configPath)
	if err := mgr.Set(key, value); err != nil {
		return err
	}
	current, _ := mgr.Get(key)
	fmt.Fprintf(out, "Set %s = %s\n", key, current)
	return nil
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "List every setting with its current value",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := requireConfig()
		if err != nil {
			return err
		}
		return RunConfigListWithDependencies(cfg, cfgFile, DefaultOutput)
	},
}

// RunConfigListWithDependencies runs the list command with injected dependencies
func RunConfigListWithDependencies(cfg *config.Config, configPath string, out OutputWriter) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "KEY\tVALUE\tENV")
	for _, s := range config.NewConfigManager(cfg, configPath).List() {
		fmt.Fprintf(w, "%s\t%s\t%s\n", s.Key, s.Value, config.EnvName(s.Key))
	}
	return w.Flush()
}

// --- RECIPIENT commands ---

var (
	addKey      string
	addName     string
	addEmail    string
	updateName  string
	updateEmail string
)

var recipientAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a recipient",
	Long: `Add a quick-lookup recipient for --email.

Example:
  speech-transcriber config recipient add --key jane --name "Jane Doe" --email "jane@example.com"`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := requireConfig()
		if err != nil {
			return err
		}
		return RunRecipientAddWithDependencies(cfg, cfgFile, addKey, addName, addEmail, DefaultOutput)
	},
}

func init() {
	recipientAddCmd.Flags().StringVar(&addKey, "key", "", "Unique key for the recipient (required)")
	recipientAddCmd.Flags().StringVar(&addName, "name", "", "Display name (required)")
	recipientAddCmd.Flags().StringVar(&addEmail, "email", "", "Email address (required)")
	recipientAddCmd.MarkFlagRequired("key")
	recipientAddCmd.MarkFlagRequired("name")
	recipientAddCmd.MarkFlagRequired("email")

	recipientUpdateCmd.Flags().StringVar(&updateName, "name", "", "New display name")
	recipientUpdateCmd.Flags().StringVar(&updateEmail, "email", "", "New email address")
}

// RunRecipientAddWithDependencies runs the recipient add command with injected dependencies
func RunRecipientAddWithDependencies(cfg *config.Config, configPath, key, name, email string, out OutputWriter) error {
	if err := config.NewConfigManager(cfg, configPath).AddRecipient(key, name, email); err != nil {
		return err
	}
	fmt.Fprintf(out, "Added recipient %q: %s <%s>\n", key, name, email)
	return nil
}

var recipientListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recipients",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := requireConfig()
		if err != nil {
			return err
		}
		return RunRecipientListWithDependencies(cfg, cfgFile, DefaultOutput)
	},
}

// RunRecipientListWithDependencies runs the recipient list command with injected dependencies
func RunRecipientListWithDependencies(cfg *config.Config, configPath string, out OutputWriter) error {
	recipients := config.NewConfigManager(cfg, configPath).ListRecipients()
	if len(recipients) == 0 {
		fmt.Fprintln(out, "No recipients configured.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "KEY\tNAME\tEMAIL")
	for _, r := range recipients {
		fmt.Fprintf(w, "%s\t%s\t%s\n", r.Key, r.Name, r.Address)
	}
	if len(cfg.Email.DefaultCC) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "DEFAULT CC\t\t")
		for _, c := range cfg.Email.DefaultCC {
			fmt.Fprintf(w, "\t%s\t%s\n", c.Name, c.Address)
		}
	}
	return w.Flush()
}

var recipientRemoveCmd = &cobra.Command{
	Use:   "remove <key>",
	Short: "Remove a recipient",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := requireConfig()
		if err != nil {
			return err
		}
		return RunRecipientRemoveWithDependencies(cfg, cfgFile, args[0], DefaultOutput)
	},
}

// RunRecipientRemoveWithDependencies runs the recipient remove command with injected dependencies
func RunRecipientRemoveWithDependencies(cfg *config.Config, configPath, key string, out OutputWriter) error {
	if err := config.NewConfigManager(cfg, configPath).RemoveRecipient(key); err != nil {
		return err
	}
	fmt.Fprintf(out, "Removed recipient %q\n", key)
	return nil
}

var recipientUpdateCmd = &cobra.Command{
	Use:   "update <key>",
	Short: "Update a recipient's name or email",
	Long: `Update an existing recipient.

Examples:
  speech-transcriber config recipient update jane --email "jane.new@example.com"
  speech-transcriber config recipient update jane --name "Jane Smith"`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := requireConfig()
		if err != nil {
			return err
		}
		if updateName == "" && updateEmail == "" {
			return fmt.Errorf("at least one of --name or --email is required")
		}
		return RunRecipientUpdateWithDependencies(cfg, cfgFile, args[0], updateName, updateEmail, DefaultOutput)
	},
}

// RunRecipientUpdateWithDependencies runs the recipient update command with injected dependencies
func RunRecipientUpdateWithDependencies(cfg *config.Config, configPath, key, name, email string, out OutputWriter) error {
	if err := config.NewConfigManager(cfg, configPath).UpdateRecipient(key, name, email); err != nil {
		return err
	}
	fmt.Fprintf(out, "Updated recipient %q\n", key)
	return nil
}
