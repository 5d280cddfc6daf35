package deltapack

import (
	_ "embed"
	"strings"
)

// Short messages (one-liners)
const (
	// Command descriptions
	MsgRootShort       = "Build and replay incremental deployment packages"
	MsgPackShort       = "Pack the definitions of a configuration document"
	MsgUnpackShort     = "Replay a package manifest into a folder"
	MsgValidateShort   = "Validate a configuration document without running it"
	MsgListShort       = "List the definitions of a configuration document"
	MsgConfigShort     = "Inspect and create settings files"
	MsgConfigInitShort = "Write a commented .deltapack.toml"
	MsgConfigShowShort = "Print the effective settings"
	MsgVersionShort    = "Print version information"
	MsgCompletionShort = "Generate shell completion script"

	// Status messages
	MsgValidFormat      = "%s is valid: %d definition(s).\n"
	MsgNoDefinitions    = "No definitions found."
	MsgDefinitionItem   = "  %s"
	MsgImportsFormat    = " (imports: %s)"
	MsgExecuteOnceTag   = " [execute once]"
	MsgManualTag        = " [not auto-packed]"
	MsgConfigWritten    = "Wrote %s\n"
	MsgPackSummary      = "Packed %d package(s) into %s\n"
	MsgUnpackSummary    = "Replayed %d step(s) from %s\n"
	MsgVersionFormat    = "deltapack version %s\n"
	MsgVersionCommit    = "  commit: %s\n"
	MsgVersionBuildDate = "  built:  %s\n"

	// Error messages
	MsgErrLoadSettings = "failed to load settings: %w"

	// Flag descriptions
	MsgFlagVerbose     = "Increase verbosity (-v INFO, -vv DEBUG, -vvv TRACE)"
	MsgFlagSettingsDir = "Folder the settings file is read from"
	MsgFlagRoot        = "Folder the packaging rules read from (default from settings)"
	MsgFlagOut         = "Output folder (default from settings)"
	MsgFlagGitFrom     = "Base revision for git diffs (default from settings)"
	MsgFlagGitTo       = "Target revision for git diffs (default from settings)"
	MsgFlagOnly        = "Pack only these definitions"
	MsgFlagNoClean     = "Keep the existing content of the output folder"
	MsgFlagUnpackOut   = "Folder the manifest is replayed against"
	MsgFlagScratch     = "Parent of the temporary extraction folder"
	MsgFlagForce       = "Overwrite an existing settings file"
)

// Long messages from embedded files
var (
	//go:embed msgs/root-long.txt
	msgRootLongRaw string
	MsgRootLong    = strings.TrimSpace(msgRootLongRaw)

	//go:embed msgs/pack-long.txt
	msgPackLongRaw string
	MsgPackLong    = strings.TrimSpace(msgPackLongRaw)

	//go:embed msgs/pack-example.txt
	msgPackExampleRaw string
	MsgPackExample    = strings.TrimRight(msgPackExampleRaw, "\n")

	//go:embed msgs/unpack-long.txt
	msgUnpackLongRaw string
	MsgUnpackLong    = strings.TrimSpace(msgUnpackLongRaw)

	//go:embed msgs/unpack-example.txt
	msgUnpackExampleRaw string
	MsgUnpackExample    = strings.TrimRight(msgUnpackExampleRaw, "\n")

	//go:embed msgs/config-long.txt
	msgConfigLongRaw string
	MsgConfigLong    = strings.TrimSpace(msgConfigLongRaw)

	//go:embed msgs/completion-long.txt
	msgCompletionLongRaw string
	MsgCompletionLong    = strings.TrimSpace(msgCompletionLongRaw)

	//go:embed msgs/usage-template.txt
	msgUsageTemplateRaw string
	MsgUsageTemplate    = strings.TrimSpace(msgUsageTemplateRaw)
)
