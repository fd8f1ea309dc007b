package cli

import (
	"errors"

	"github.com/hashicorp/go-multierror"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tyemirov/rptree/internal/config"
	"github.com/tyemirov/rptree/internal/services/clipboard"
	"github.com/tyemirov/rptree/internal/tokenizer"
	"github.com/tyemirov/rptree/internal/tree"
)

const (
	skippedDirectoryMessage = "skipping directory"
	tokenEstimateMessage    = "tree token estimate"
	tokenCountFailedMessage = "failed to count tree tokens"
	treeCopiedMessage       = "tree copied to clipboard"
	skippedSummaryMessage   = "directories skipped"
	countFieldName          = "count"
	tokensFieldName         = "tokens"
	modelFieldName          = "model"
	linesFieldName          = "lines"
)

// treeSettings is the effective configuration after flags are laid over configuration files.
type treeSettings struct {
	dirOnly          bool
	maxDepth         *int
	outputFile       string
	compact          bool
	permissionPolicy tree.PermissionPolicy
	copyEnabled      bool
	tokensEnabled    bool
	tokenModel       string
}

// resolveTreeSettings applies configuration defaults and lets explicitly set flags win.
func resolveTreeSettings(command *cobra.Command, flags treeFlags, configuration config.ApplicationConfiguration) treeSettings {
	settings := treeSettings{
		dirOnly:          config.BoolValue(configuration.DirOnly, false),
		maxDepth:         configuration.MaxDepth,
		outputFile:       configuration.OutputFile,
		compact:          config.BoolValue(configuration.Compact, false),
		permissionPolicy: tree.PermissionPolicySkip,
		copyEnabled:      config.BoolValue(configuration.Copy, false),
		tokensEnabled:    config.BoolValue(configuration.Tokens.Enabled, false),
		tokenModel:       configuration.Tokens.Model,
	}
	if configuration.PermissionPolicy == config.PermissionPolicyAbort {
		settings.permissionPolicy = tree.PermissionPolicyAbort
	}

	changed := command.Flags().Changed
	if changed(dirOnlyFlagName) {
		settings.dirOnly = flags.dirOnly
	}
	if changed(depthFlagName) {
		maxDepth := flags.maxDepth
		settings.maxDepth = &maxDepth
	}
	if changed(outputFileFlagName) {
		settings.outputFile = flags.outputFile
	}
	if changed(compactFlagName) {
		settings.compact = flags.compact
	}
	if changed(strictFlagName) {
		settings.permissionPolicy = tree.PermissionPolicySkip
		if flags.strict {
			settings.permissionPolicy = tree.PermissionPolicyAbort
		}
	}
	if changed(copyFlagName) {
		settings.copyEnabled = flags.copyEnabled
	}
	if changed(tokensFlagName) {
		settings.tokensEnabled = flags.tokensEnabled
	}
	if changed(modelFlagName) {
		settings.tokenModel = flags.tokenModel
	}
	return settings
}

// runTree renders rootPath to the configured destination.
func runTree(command *cobra.Command, dependencies commandDependencies, rootPath string, settings treeSettings) error {
	logger := dependencies.logger
	treeWriter, writerError := tree.NewTreeWriter(tree.WriterConfiguration{
		RootPath: rootPath,
		Builder: tree.BuilderOptions{
			DirOnly:          settings.dirOnly,
			FileSystem:       dependencies.fileSystem,
			MaxDepth:         settings.maxDepth,
			PermissionPolicy: settings.permissionPolicy,
			Compact:          settings.compact,
			Warn: func(skipError error) {
				logger.Warn(skippedDirectoryMessage, zap.Error(skipError))
			},
		},
		Destination:    tree.FileDestination(settings.outputFile),
		StandardOutput: command.OutOrStdout(),
		OnRendered: func(lines []string) error {
			return handleRenderedTree(dependencies, settings, lines)
		},
	})
	if writerError != nil {
		return writerError
	}
	if generateError := treeWriter.Generate(); generateError != nil {
		return generateError
	}
	logSkippedSummary(logger, treeWriter.Builder().Skipped())
	return nil
}

// logSkippedSummary reports how many subtrees the last build left out.
func logSkippedSummary(logger *zap.Logger, skipped error) {
	if skipped == nil {
		return
	}
	skippedCount := 1
	var aggregate *multierror.Error
	if errors.As(skipped, &aggregate) {
		skippedCount = len(aggregate.Errors)
	}
	logger.Warn(skippedSummaryMessage, zap.Int(countFieldName, skippedCount))
}

// handleRenderedTree runs the optional token estimate and clipboard copy.
func handleRenderedTree(dependencies commandDependencies, settings treeSettings, lines []string) error {
	logger := dependencies.logger
	if settings.tokensEnabled {
		counter, resolvedModel, counterError := dependencies.newCounter(tokenizer.Config{Model: settings.tokenModel})
		if counterError != nil {
			return counterError
		}
		tokens, countError := tokenizer.CountLines(counter, lines)
		if countError != nil {
			logger.Warn(tokenCountFailedMessage, zap.Error(countError))
		} else {
			logger.Info(tokenEstimateMessage, zap.Int(tokensFieldName, tokens), zap.String(modelFieldName, resolvedModel))
		}
	}
	if settings.copyEnabled {
		if copyError := clipboard.CopyLines(dependencies.copier, lines); copyError != nil {
			return copyError
		}
		logger.Info(treeCopiedMessage, zap.Int(linesFieldName, len(lines)))
	}
	return nil
}
