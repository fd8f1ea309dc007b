// Package cli provides the rptree command line interface.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tyemirov/rptree/internal/config"
	"github.com/tyemirov/rptree/internal/services/clipboard"
	"github.com/tyemirov/rptree/internal/tokenizer"
	"github.com/tyemirov/rptree/internal/tree"
	"github.com/tyemirov/rptree/internal/utils"
)

const (
	dirOnlyFlagName     = "dir-only"
	dirOnlyShorthand    = "d"
	outputFileFlagName  = "output-file"
	outputFileShorthand = "o"
	depthFlagName       = "depth"
	compactFlagName     = "compact"
	strictFlagName      = "strict"
	copyFlagName        = "copy"
	tokensFlagName      = "tokens"
	modelFlagName       = "model"
	configFlagName      = "config"
	versionFlagName     = "version"
	globalFlagName      = "global"
	forceFlagName       = "force"

	unlimitedDepth = -1
	defaultPath    = "."

	versionTemplate      = "rptree version: %s\n"
	rootUse              = "rptree [ROOT_DIR]"
	rootShortDescription = "render a directory tree"
	rootLongDescription  = `rptree renders the contents of ROOT_DIR (the current directory by default) as a tree.
Directories are listed before files. Use --dir-only to hide files and --depth to limit how deep
the tree goes. With --output-file the tree is written to a file wrapped in a Markdown code block.`
	rootUsageExample = `  # Render the current directory
  rptree

  # Directories only, two levels deep
  rptree ./src --dir-only --depth 2

  # Write a Markdown snippet for a README
  rptree . -o tree.md`
	initUse              = "init"
	initShortDescription = "write the default configuration file"
	initLongDescription  = `Write the default rptree configuration to ./.rptree.yaml,
or to ~/.rptree/config.yaml with --global.`

	dirOnlyFlagDescription    = "list directories only"
	outputFileFlagDescription = "write the tree to a file instead of standard output"
	depthFlagDescription      = "maximum number of directory levels to expand (unlimited when unset)"
	compactFlagDescription    = "omit the spacer lines around nested directories"
	strictFlagDescription     = "fail instead of skipping directories that cannot be listed"
	copyFlagDescription       = "copy the rendered tree to the clipboard"
	tokensFlagDescription     = "log the token estimate of the rendered tree"
	modelFlagDescription      = "tokenizer model used with --tokens"
	configFlagDescription     = "path to a configuration file replacing ./.rptree.yaml"
	versionFlagDescription    = "display application version"
	globalFlagDescription     = "write the global configuration"
	forceFlagDescription      = "overwrite an existing configuration file"

	configurationWrittenFormat = "configuration written to %s\n"
	configurationErrorFormat   = "%w: %w"
)

// commandDependencies holds the collaborators commands reach outside the process through.
type commandDependencies struct {
	logger     *zap.Logger
	copier     clipboard.Copier
	newCounter func(tokenizer.Config) (tokenizer.Counter, string, error)
	// workingDirectory locates the local configuration file; empty means the process directory.
	workingDirectory string
	// fileSystem is walked by the tree builder; nil means the host operating system.
	fileSystem tree.FileSystem
}

// Execute runs the rptree application with the process arguments.
func Execute(logger *zap.Logger) error {
	rootCommand := createRootCommand(commandDependencies{
		logger:     logger,
		copier:     clipboard.NewSystemClipboard(),
		newCounter: tokenizer.NewCounter,
	})
	rootCommand.SetArgs(normalizeBooleanFlagArguments(rootCommand, os.Args[1:]))
	return rootCommand.Execute()
}

// treeFlags stores the raw flag values of the root command.
type treeFlags struct {
	dirOnly       bool
	outputFile    string
	maxDepth      int
	compact       bool
	strict        bool
	copyEnabled   bool
	tokensEnabled bool
	tokenModel    string
	configPath    string
	showVersion   bool
}

// createRootCommand builds the root Cobra command.
func createRootCommand(dependencies commandDependencies) *cobra.Command {
	if dependencies.logger == nil {
		dependencies.logger = zap.NewNop()
	}
	var flags treeFlags

	rootCommand := &cobra.Command{
		Use:           rootUse,
		Short:         rootShortDescription,
		Long:          rootLongDescription,
		Example:       rootUsageExample,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(command *cobra.Command, arguments []string) error {
			if flags.showVersion {
				fmt.Fprintf(command.OutOrStdout(), versionTemplate, utils.GetApplicationVersion())
				return nil
			}
			rootPath := defaultPath
			if len(arguments) == 1 {
				rootPath = arguments[0]
			}
			applicationConfiguration, configurationError := config.LoadApplicationConfiguration(config.LoadOptions{
				WorkingDirectory: dependencies.workingDirectory,
				ExplicitFilePath: flags.configPath,
			})
			if configurationError != nil {
				return fmt.Errorf(configurationErrorFormat, tree.ErrInvalidConfiguration, configurationError)
			}
			settings := resolveTreeSettings(command, flags, applicationConfiguration)
			return runTree(command, dependencies, rootPath, settings)
		},
	}

	flagSet := rootCommand.Flags()
	registerBooleanFlag(flagSet, &flags.dirOnly, dirOnlyFlagName, dirOnlyShorthand, false, dirOnlyFlagDescription)
	flagSet.StringVarP(&flags.outputFile, outputFileFlagName, outputFileShorthand, "", outputFileFlagDescription)
	flagSet.IntVar(&flags.maxDepth, depthFlagName, unlimitedDepth, depthFlagDescription)
	registerBooleanFlag(flagSet, &flags.compact, compactFlagName, "", false, compactFlagDescription)
	registerBooleanFlag(flagSet, &flags.strict, strictFlagName, "", false, strictFlagDescription)
	registerBooleanFlag(flagSet, &flags.copyEnabled, copyFlagName, "", false, copyFlagDescription)
	registerBooleanFlag(flagSet, &flags.tokensEnabled, tokensFlagName, "", false, tokensFlagDescription)
	flagSet.StringVar(&flags.tokenModel, modelFlagName, "", modelFlagDescription)
	flagSet.StringVar(&flags.configPath, configFlagName, "", configFlagDescription)
	registerBooleanFlag(flagSet, &flags.showVersion, versionFlagName, "", false, versionFlagDescription)

	rootCommand.AddCommand(createInitCommand(dependencies))
	rootCommand.InitDefaultHelpCmd()
	rootCommand.InitDefaultCompletionCmd()
	return rootCommand
}

// createInitCommand returns the init subcommand.
func createInitCommand(dependencies commandDependencies) *cobra.Command {
	var globalTarget bool
	var force bool

	initCommand := &cobra.Command{
		Use:   initUse,
		Short: initShortDescription,
		Long:  initLongDescription,
		Args:  cobra.NoArgs,
		RunE: func(command *cobra.Command, arguments []string) error {
			target := config.InitTargetLocal
			if globalTarget {
				target = config.InitTargetGlobal
			}
			destinationPath, initError := config.InitializeConfiguration(config.InitOptions{
				Target:           target,
				Force:            force,
				WorkingDirectory: dependencies.workingDirectory,
			})
			if initError != nil {
				return initError
			}
			fmt.Fprintf(command.OutOrStdout(), configurationWrittenFormat, destinationPath)
			return nil
		},
	}
	registerBooleanFlag(initCommand.Flags(), &globalTarget, globalFlagName, "", false, globalFlagDescription)
	registerBooleanFlag(initCommand.Flags(), &force, forceFlagName, "", false, forceFlagDescription)
	return initCommand
}
