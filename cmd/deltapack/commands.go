package deltapack

import (
	"fmt"
	"io"
	"strings"

	"github.com/arthur-debert/deltapack/internal/version"
	"github.com/arthur-debert/deltapack/pkg/commands"
	"github.com/arthur-debert/deltapack/pkg/config"
	"github.com/arthur-debert/deltapack/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func newPackCmd(root *rootOptions) *cobra.Command {
	var (
		rootDir string
		out     string
		gitFrom string
		gitTo   string
		only    []string
		noClean bool
	)

	cmd := &cobra.Command{
		Use:     "pack <config>",
		Short:   MsgPackShort,
		Long:    MsgPackLong,
		Example: MsgPackExample,
		GroupID: "core",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			flags := cmd.Flags()
			overrides := map[string]interface{}{}
			if flags.Changed("root") {
				overrides["root"] = rootDir
			}
			if flags.Changed("out") {
				overrides["out"] = out
			}
			if flags.Changed("git-from") {
				overrides["git.from"] = gitFrom
			}
			if flags.Changed("git-to") {
				overrides["git.to"] = gitTo
			}
			if flags.Changed("only") {
				overrides["pack.only"] = only
			}
			if noClean {
				overrides["pack.clean"] = false
			}

			cfg, err := root.settings(overrides)
			if err != nil {
				return fmt.Errorf(MsgErrLoadSettings, err)
			}

			log.Debug().Str("config", args[0]).Str("root", cfg.Root).Str("out", cfg.Out).
				Str("from", cfg.Git.From).Str("to", cfg.Git.To).Msg("Packing")

			c := console(cmd)
			result, err := commands.Pack(cmd.Context(), commands.PackOptions{
				Config:    args[0],
				Root:      cfg.Root,
				Out:       cfg.Out,
				GitFrom:   cfg.Git.From,
				GitTo:     cfg.Git.To,
				GitBinary: cfg.Git.Binary,
				Only:      cfg.Pack.Only,
				Clean:     cfg.Pack.Clean,
				Tools:     cfg.Tools,
				Progress:  c,
			})
			if err != nil {
				return err
			}

			c.Done()
			fmt.Fprintf(cmd.OutOrStdout(), MsgPackSummary, len(result.Packages), cfg.Out)
			return nil
		},
	}

	cmd.Flags().StringVarP(&rootDir, "root", "r", "", MsgFlagRoot)
	cmd.Flags().StringVarP(&out, "out", "o", "", MsgFlagOut)
	cmd.Flags().StringVar(&gitFrom, "git-from", "", MsgFlagGitFrom)
	cmd.Flags().StringVar(&gitTo, "git-to", "", MsgFlagGitTo)
	cmd.Flags().StringSliceVar(&only, "only", nil, MsgFlagOnly)
	cmd.Flags().BoolVar(&noClean, "no-clean", false, MsgFlagNoClean)

	return cmd
}

func newUnpackCmd(root *rootOptions) *cobra.Command {
	var (
		out     string
		scratch string
	)

	cmd := &cobra.Command{
		Use:     "unpack <manifest>",
		Short:   MsgUnpackShort,
		Long:    MsgUnpackLong,
		Example: MsgUnpackExample,
		GroupID: "core",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			overrides := map[string]interface{}{}
			if cmd.Flags().Changed("scratch-dir") {
				overrides["unpack.scratch_dir"] = scratch
			}
			cfg, err := root.settings(overrides)
			if err != nil {
				return fmt.Errorf(MsgErrLoadSettings, err)
			}
			if out == "" {
				out = "."
			}

			c := console(cmd)
			c.Unpacking(args[0], out)
			result, err := commands.Unpack(cmd.Context(), commands.UnpackOptions{
				Manifest:   args[0],
				Out:        out,
				ScratchDir: cfg.Unpack.ScratchDir,
				Tools:      cfg.Tools,
				Observer:   c,
			})
			if err != nil {
				return err
			}

			c.Done()
			fmt.Fprintf(cmd.OutOrStdout(), MsgUnpackSummary, result.Steps, result.ManifestPath)
			return nil
		},
	}

	cmd.Flags().StringVarP(&out, "out", "o", "", MsgFlagUnpackOut)
	cmd.Flags().StringVar(&scratch, "scratch-dir", "", MsgFlagScratch)

	return cmd
}

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "validate <config>",
		Short:   MsgValidateShort,
		GroupID: "core",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := commands.Validate(commands.ValidateOptions{
				Config:   args[0],
				Observer: console(cmd),
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), MsgValidFormat, args[0], result.Definitions)
			return nil
		},
	}
}

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "list <config>",
		Short:   MsgListShort,
		GroupID: "core",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := commands.List(commands.ListOptions{Config: args[0]})
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if len(result.Definitions) == 0 {
				fmt.Fprintln(w, MsgNoDefinitions)
				return nil
			}
			for _, d := range result.Definitions {
				line := fmt.Sprintf(MsgDefinitionItem, d.Name)
				if len(d.Imports) > 0 {
					line += fmt.Sprintf(MsgImportsFormat, strings.Join(d.Imports, ", "))
				}
				if d.ExecuteOnce {
					line += MsgExecuteOnceTag
				}
				if !d.AutoPack {
					line += MsgManualTag
				}
				fmt.Fprintln(w, line)
			}
			return nil
		},
	}
}

func newConfigCmd(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "config",
		Short:   MsgConfigShort,
		Long:    MsgConfigLong,
		GroupID: "misc",
	}

	var force bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: MsgConfigInitShort,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := config.WriteConfigFile(root.dir, force)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), MsgConfigWritten, path)
			return nil
		},
	}
	initCmd.Flags().BoolVarP(&force, "force", "f", false, MsgFlagForce)

	showCmd := &cobra.Command{
		Use:   "show",
		Short: MsgConfigShowShort,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.settings(nil)
			if err != nil {
				return fmt.Errorf(MsgErrLoadSettings, err)
			}
			data, err := config.Marshal(cfg)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}

	cmd.AddCommand(initCmd, showCmd)
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "version",
		Short:   MsgVersionShort,
		GroupID: "misc",
		Run: func(cmd *cobra.Command, args []string) {
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, MsgVersionFormat, version.Version)
			fmt.Fprintf(w, MsgVersionCommit, version.Commit)
			fmt.Fprintf(w, MsgVersionBuildDate, version.Date)
		},
	}
}

func newCompletionCmd() *cobra.Command {
	return &cobra.Command{
		Use:                   "completion [bash|zsh|fish|powershell]",
		Short:                 MsgCompletionShort,
		Long:                  MsgCompletionLong,
		GroupID:               "misc",
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			return WriteCompletion(cmd.Root(), args[0], cmd.OutOrStdout())
		},
	}
}

// WriteCompletion writes the completion script of rootCmd for shell
func WriteCompletion(rootCmd *cobra.Command, shell string, w io.Writer) error {
	switch shell {
	case "bash":
		return rootCmd.GenBashCompletionV2(w, true)
	case "zsh":
		return rootCmd.GenZshCompletion(w)
	case "fish":
		return rootCmd.GenFishCompletion(w, true)
	case "powershell":
		return rootCmd.GenPowerShellCompletionWithDesc(w)
	}
	return errors.Newf(errors.ErrInvalidInput, "unknown shell %q (supported: bash, zsh, fish, powershell)", shell)
}
