package deltapack

import (
	"embed"
	"io"
	"io/fs"
	"os"

	"github.com/arthur-debert/deltapack/internal/version"
	"github.com/arthur-debert/deltapack/pkg/cobrax/topics"
	"github.com/arthur-debert/deltapack/pkg/config"
	"github.com/arthur-debert/deltapack/pkg/logging"
	"github.com/arthur-debert/deltapack/pkg/style"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

//go:embed topics
var topicsFS embed.FS

// rootOptions is the state shared by every subcommand
type rootOptions struct {
	verbosity int
	// dir is the folder settings files are looked up in
	dir string
}

// NewRootCmd creates the root command with every subcommand attached
func NewRootCmd() *cobra.Command {
	initTemplateFormatting()

	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:     "deltapack",
		Short:   MsgRootShort,
		Long:    MsgRootLong,
		Version: version.Version,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logging.SetupLogger(opts.verbosity)
			log.Debug().Str("command", cmd.Name()).Msg("Command started")
		},
		SilenceUsage:      true,
		SilenceErrors:     true,
		DisableAutoGenTag: true,
	}

	rootCmd.SetUsageTemplate(MsgUsageTemplate)
	rootCmd.PersistentFlags().CountVarP(&opts.verbosity, "verbose", "v", MsgFlagVerbose)
	rootCmd.PersistentFlags().StringVarP(&opts.dir, "settings-dir", "C", ".", MsgFlagSettingsDir)

	rootCmd.AddGroup(
		&cobra.Group{ID: "core", Title: "Commands:"},
		&cobra.Group{ID: "misc", Title: "Misc:"},
	)

	rootCmd.AddCommand(newPackCmd(opts))
	rootCmd.AddCommand(newUnpackCmd(opts))
	rootCmd.AddCommand(newValidateCmd())
	rootCmd.AddCommand(newListCmd())
	rootCmd.AddCommand(newConfigCmd(opts))
	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newCompletionCmd())
	initTopics(rootCmd)

	return rootCmd
}

// initTopics installs the help command that also serves the embedded topics
func initTopics(rootCmd *cobra.Command) {
	tm, err := loadTopics()
	if err != nil {
		log.Warn().Err(err).Msg("Help topics unavailable")
		rootCmd.SetHelpCommandGroupID("misc")
		return
	}
	tm.Install(rootCmd)
}

func loadTopics() (*topics.TopicManager, error) {
	sub, err := fs.Sub(topicsFS, "topics")
	if err != nil {
		return nil, err
	}
	return topics.New(sub, topics.Options{
		Renderer: topics.NewGlamourRenderer(!noColor(os.Stdout)),
	})
}

// settings loads the layered settings for the working directory, with
// overrides taken from command line flags
func (o *rootOptions) settings(overrides map[string]interface{}) (*config.Config, error) {
	return config.Load(o.dir, overrides)
}

// ReportError prints a failed command's error to w
func ReportError(w io.Writer, err error) {
	style.NewConsole(io.Discard, w, noColor(w)).Failed(err)
}

// console builds the progress printer for a command's output streams
func console(cmd *cobra.Command) *style.Console {
	return style.NewConsole(cmd.OutOrStdout(), cmd.ErrOrStderr(), noColor(cmd.OutOrStdout()))
}
