package tmpfiles

import (
	_ "embed"
	"strings"
)

// Short messages (one-liners)
const (
	// Command descriptions
	MsgRootShort       = "Create, clean up and remove volatile files and directories"
	MsgVersionShort    = "Print version information"
	MsgCompletionShort = "Generate shell completion script"
	MsgManShort        = "Generate the man page"

	// Flag descriptions
	MsgFlagCreate        = "Create and adjust files and directories"
	MsgFlagClean         = "Remove entries older than each rule's age"
	MsgFlagRemove        = "Remove files and directories marked for removal"
	MsgFlagBoot          = "Also apply rules marked as boot-only with '!'"
	MsgFlagRoot          = "Operate on an alternate filesystem root"
	MsgFlagPrefix        = "Only apply rules with paths below this prefix (repeatable)"
	MsgFlagExcludePrefix = "Skip rules with paths below this prefix (repeatable)"
	MsgFlagUser          = "Use the per-user configuration directories"
	MsgFlagCatConfig     = "Print the merged configuration and exit"
	MsgFlagDryRun        = "Preview changes without executing them"
	MsgFlagConfig        = "Tool configuration file (default: $XDG_CONFIG_HOME/tmpfiles/config.toml)"
	MsgFlagOutput        = "Output format: text, json, yaml or toml"
	MsgFlagVerbose       = "Increase verbosity (-v INFO, -vv DEBUG, -vvv TRACE)"

	// Version output
	MsgVersionFormat = "tmpfiles version %s\n"
	MsgCommitFormat  = "  commit: %s\n"
	MsgBuiltFormat   = "  built:  %s\n"

	// Error messages
	MsgErrNoMode      = "at least one of --create, --clean or --remove is required"
	MsgErrLoadConfig  = "failed to load configuration"
	MsgErrFormat      = "invalid output format"
	MsgErrRuleFailed  = "%d rule(s) failed"
	MsgErrCancelled   = "run interrupted before every rule was applied"
	MsgErrDiagnostics = "%d configuration line(s) rejected"
)

// Long messages from embedded files
var (
	//go:embed msgs/root-long.txt
	msgRootLongRaw string
	MsgRootLong    = strings.TrimSpace(msgRootLongRaw)

	//go:embed msgs/root-example.txt
	msgRootExampleRaw string
	MsgRootExample    = strings.TrimRight(msgRootExampleRaw, "\n")

	//go:embed msgs/completion-long.txt
	msgCompletionLongRaw string
	MsgCompletionLong    = strings.TrimSpace(msgCompletionLongRaw)
)
