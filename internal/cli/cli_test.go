package cli

import (
	"bytes"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/afero"

	"github.com/tyemirov/rptree/internal/config"
	"github.com/tyemirov/rptree/internal/tokenizer"
	"github.com/tyemirov/rptree/internal/tree"
	"github.com/tyemirov/rptree/internal/utils"
)

type recordingCopier struct {
	copied []string
	err    error
}

func (copier *recordingCopier) Copy(text string) error {
	if copier.err != nil {
		return copier.err
	}
	copier.copied = append(copier.copied, text)
	return nil
}

type fixedCounter struct {
	tokens int
}

func (counter fixedCounter) Name() string {
	return "fixed"
}

func (counter fixedCounter) CountString(string) (int, error) {
	return counter.tokens, nil
}

type commandHarness struct {
	dependencies commandDependencies
	copier       *recordingCopier
	logOutput    *bytes.Buffer
	requested    []tokenizer.Config
}

func newCommandHarness(t *testing.T) *commandHarness {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	harness := &commandHarness{copier: &recordingCopier{}, logOutput: &bytes.Buffer{}}
	harness.dependencies = commandDependencies{
		logger: utils.NewWriterLogger(harness.logOutput),
		copier: harness.copier,
		newCounter: func(cfg tokenizer.Config) (tokenizer.Counter, string, error) {
			harness.requested = append(harness.requested, cfg)
			return fixedCounter{tokens: 42}, "fixed-model", nil
		},
		workingDirectory: t.TempDir(),
	}
	return harness
}

func (harness *commandHarness) execute(t *testing.T, arguments ...string) (string, error) {
	t.Helper()
	rootCommand := createRootCommand(harness.dependencies)
	var output bytes.Buffer
	rootCommand.SetOut(&output)
	rootCommand.SetErr(&output)
	rootCommand.SetArgs(normalizeBooleanFlagArguments(rootCommand, arguments))
	executeError := rootCommand.Execute()
	return output.String(), executeError
}

func writeFixtureTree(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	for _, file := range []string{"alpha/one.txt", "beta.txt"} {
		filePath := filepath.Join(root, file)
		if err := os.MkdirAll(filepath.Dir(filePath), 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		if err := os.WriteFile(filePath, []byte(file), 0o644); err != nil {
			t.Fatalf("write %s: %v", file, err)
		}
	}
	return root
}

func expectedFixtureTree(root string, compact bool) string {
	lines := []string{root + string(filepath.Separator)}
	if !compact {
		lines = append(lines, tree.VerticalGlyph)
	}
	lines = append(lines, "├── alpha/", "│   └── one.txt")
	if !compact {
		lines = append(lines, tree.VerticalGlyph)
	}
	lines = append(lines, "└── beta.txt")
	return strings.Join(lines, "\n") + "\n"
}

func TestRootCommandRendersTree(t *testing.T) {
	root := writeFixtureTree(t)

	testCases := []struct {
		name      string
		arguments []string
		expected  string
	}{
		{
			name:      "default",
			arguments: []string{root},
			expected:  expectedFixtureTree(root, false),
		},
		{
			name:      "compact",
			arguments: []string{root, "--compact"},
			expected:  expectedFixtureTree(root, true),
		},
		{
			name:      "dir only",
			arguments: []string{root, "-d"},
			expected:  strings.Join([]string{root + string(filepath.Separator), "│", "└── alpha/"}, "\n") + "\n",
		},
		{
			name:      "dir only disabled by literal",
			arguments: []string{root, "--dir-only", "no", "--compact", "yes"},
			expected:  expectedFixtureTree(root, true),
		},
		{
			name:      "depth zero",
			arguments: []string{root, "--depth", "0"},
			expected:  root + string(filepath.Separator) + "\n",
		},
		{
			name:      "depth one",
			arguments: []string{root, "--depth=1", "--compact"},
			expected:  strings.Join([]string{root + string(filepath.Separator), "├── alpha/", "└── beta.txt"}, "\n") + "\n",
		},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			harness := newCommandHarness(t)
			output, err := harness.execute(t, testCase.arguments...)
			if err != nil {
				t.Fatalf("execute error: %v", err)
			}
			if output != testCase.expected {
				t.Fatalf("unexpected output\nexpected:\n%s\nactual:\n%s", testCase.expected, output)
			}
		})
	}
}

func TestRootCommandWritesFencedOutputFile(t *testing.T) {
	root := writeFixtureTree(t)
	harness := newCommandHarness(t)
	outputPath := filepath.Join(t.TempDir(), "tree.md")

	output, err := harness.execute(t, root, "-o", outputPath, "--compact")
	if err != nil {
		t.Fatalf("execute error: %v", err)
	}
	if output != "" {
		t.Fatalf("expected no standard output, got %q", output)
	}
	content, readErr := os.ReadFile(outputPath)
	if readErr != nil {
		t.Fatalf("read output file: %v", readErr)
	}
	expected := tree.FenceMarker + "\n" + expectedFixtureTree(root, true) + tree.FenceMarker + "\n"
	if string(content) != expected {
		t.Fatalf("unexpected file content\nexpected:\n%s\nactual:\n%s", expected, string(content))
	}
}

func TestRootCommandReportsErrorKinds(t *testing.T) {
	root := writeFixtureTree(t)

	testCases := []struct {
		name      string
		arguments []string
		expected  error
	}{
		{
			name:      "missing root",
			arguments: []string{filepath.Join(root, "missing")},
			expected:  tree.ErrPathNotFound,
		},
		{
			name:      "file root",
			arguments: []string{filepath.Join(root, "beta.txt")},
			expected:  tree.ErrNotADirectory,
		},
		{
			name:      "negative depth",
			arguments: []string{root, "--depth", "-2"},
			expected:  tree.ErrInvalidConfiguration,
		},
		{
			name:      "output into missing directory",
			arguments: []string{root, "-o", filepath.Join(root, "missing", "tree.md")},
			expected:  tree.ErrWriteFailure,
		},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			harness := newCommandHarness(t)
			_, err := harness.execute(t, testCase.arguments...)
			if !errors.Is(err, testCase.expected) {
				t.Fatalf("expected %v, got %v", testCase.expected, err)
			}
		})
	}
}

func TestRootCommandAppliesConfigurationDefaults(t *testing.T) {
	root := writeFixtureTree(t)
	harness := newCommandHarness(t)
	configurationPath := filepath.Join(harness.dependencies.workingDirectory, utils.LocalConfigFileName)
	configuration := "dir_only: true\ncompact: true\n"
	if err := os.WriteFile(configurationPath, []byte(configuration), 0o600); err != nil {
		t.Fatalf("write configuration: %v", err)
	}

	output, err := harness.execute(t, root)
	if err != nil {
		t.Fatalf("execute error: %v", err)
	}
	expected := strings.Join([]string{root + string(filepath.Separator), "└── alpha/"}, "\n") + "\n"
	if output != expected {
		t.Fatalf("unexpected output\nexpected:\n%s\nactual:\n%s", expected, output)
	}

	output, err = harness.execute(t, root, "--dir-only=false")
	if err != nil {
		t.Fatalf("execute error: %v", err)
	}
	if output != expectedFixtureTree(root, true) {
		t.Fatalf("flag did not override configuration:\n%s", output)
	}
}

func TestRootCommandRequiresExplicitConfigurationFile(t *testing.T) {
	root := writeFixtureTree(t)
	harness := newCommandHarness(t)

	_, err := harness.execute(t, root, "--config", filepath.Join(root, "absent.yaml"))
	if !errors.Is(err, tree.ErrInvalidConfiguration) {
		t.Fatalf("expected invalid configuration for missing explicit file, got %v", err)
	}
}

func TestRootCommandRejectsInvalidConfigurationFile(t *testing.T) {
	root := writeFixtureTree(t)
	harness := newCommandHarness(t)
	configurationPath := filepath.Join(harness.dependencies.workingDirectory, utils.LocalConfigFileName)
	if err := os.WriteFile(configurationPath, []byte("permission_policy: sometimes\n"), 0o600); err != nil {
		t.Fatalf("write configuration: %v", err)
	}

	_, err := harness.execute(t, root)
	if tree.ErrorKind(err) != "InvalidConfiguration" {
		t.Fatalf("expected InvalidConfiguration, got %v", err)
	}
}

func TestRootCommandCopiesAndCountsTokens(t *testing.T) {
	root := writeFixtureTree(t)
	harness := newCommandHarness(t)

	output, err := harness.execute(t, root, "--compact", "--copy", "--tokens", "--model", "gpt-4")
	if err != nil {
		t.Fatalf("execute error: %v", err)
	}
	if output != expectedFixtureTree(root, true) {
		t.Fatalf("unexpected output:\n%s", output)
	}
	if len(harness.copier.copied) != 1 || harness.copier.copied[0] != expectedFixtureTree(root, true) {
		t.Fatalf("unexpected clipboard content: %#v", harness.copier.copied)
	}
	if len(harness.requested) != 1 || harness.requested[0].Model != "gpt-4" {
		t.Fatalf("unexpected tokenizer requests: %#v", harness.requested)
	}
	logged := harness.logOutput.String()
	if !strings.Contains(logged, tokenEstimateMessage) || !strings.Contains(logged, "42") {
		t.Fatalf("expected token estimate in log, got %q", logged)
	}
}

func TestRootCommandStopsWhenClipboardFails(t *testing.T) {
	root := writeFixtureTree(t)
	harness := newCommandHarness(t)
	harness.copier.err = errors.New("no display")
	outputPath := filepath.Join(t.TempDir(), "tree.md")

	_, err := harness.execute(t, root, "--copy", "-o", outputPath)
	if err == nil || !strings.Contains(err.Error(), "no display") {
		t.Fatalf("expected clipboard error, got %v", err)
	}
	if _, statErr := os.Stat(outputPath); !os.IsNotExist(statErr) {
		t.Fatalf("expected no output file, stat error: %v", statErr)
	}
}

func TestRootCommandPrintsVersion(t *testing.T) {
	harness := newCommandHarness(t)
	output, err := harness.execute(t, "--version")
	if err != nil {
		t.Fatalf("execute error: %v", err)
	}
	if !strings.HasPrefix(output, "rptree version: ") {
		t.Fatalf("unexpected version output %q", output)
	}
}

func TestInitCommandWritesConfiguration(t *testing.T) {
	harness := newCommandHarness(t)

	output, err := harness.execute(t, "init")
	if err != nil {
		t.Fatalf("init error: %v", err)
	}
	localPath := filepath.Join(harness.dependencies.workingDirectory, utils.LocalConfigFileName)
	if !strings.Contains(output, localPath) {
		t.Fatalf("expected written path in output, got %q", output)
	}
	if _, err := harness.execute(t, "init"); err == nil {
		t.Fatalf("expected init to refuse overwriting without --force")
	}
	if _, err := harness.execute(t, "init", "--force"); err != nil {
		t.Fatalf("init --force error: %v", err)
	}

	loaded, loadErr := config.LoadApplicationConfiguration(config.LoadOptions{WorkingDirectory: harness.dependencies.workingDirectory})
	if loadErr != nil {
		t.Fatalf("load written configuration: %v", loadErr)
	}
	if loaded.PermissionPolicy != config.PermissionPolicySkip || config.BoolValue(loaded.DirOnly, true) {
		t.Fatalf("unexpected written configuration: %#v", loaded)
	}
}

func TestInitCommandWritesGlobalConfiguration(t *testing.T) {
	harness := newCommandHarness(t)

	if _, err := harness.execute(t, "init", "--global"); err != nil {
		t.Fatalf("init --global error: %v", err)
	}
	homeDirectory, _ := os.UserHomeDir()
	globalPath := filepath.Join(homeDirectory, utils.GlobalConfigDirectoryName, utils.ConfigFileName)
	if _, err := os.Stat(globalPath); err != nil {
		t.Fatalf("expected global configuration at %s: %v", globalPath, err)
	}
}

// lockedFileSystem refuses to list the directories in lockedPaths.
type lockedFileSystem struct {
	*tree.AferoFileSystem
	lockedPaths map[string]struct{}
}

func (fileSystem lockedFileSystem) ListChildren(path string) ([]tree.DirectoryEntry, error) {
	if _, locked := fileSystem.lockedPaths[path]; locked {
		return nil, &fs.PathError{Op: "open", Path: path, Err: fs.ErrPermission}
	}
	return fileSystem.AferoFileSystem.ListChildren(path)
}

func newLockedFileSystem(t *testing.T, lockedPaths ...string) lockedFileSystem {
	t.Helper()
	memoryFileSystem := afero.NewMemMapFs()
	for _, file := range []string{"/project/private/secret.txt", "/project/vault/key.txt", "/project/public/readme.txt"} {
		if err := memoryFileSystem.MkdirAll(filepath.Dir(file), 0o755); err != nil {
			t.Fatalf("mkdir for %s: %v", file, err)
		}
		if err := afero.WriteFile(memoryFileSystem, file, []byte(file), 0o644); err != nil {
			t.Fatalf("write %s: %v", file, err)
		}
	}
	locked := make(map[string]struct{}, len(lockedPaths))
	for _, lockedPath := range lockedPaths {
		locked[lockedPath] = struct{}{}
	}
	return lockedFileSystem{AferoFileSystem: tree.NewAferoFileSystem(memoryFileSystem), lockedPaths: locked}
}

func TestRootCommandSummarizesSkippedDirectories(t *testing.T) {
	harness := newCommandHarness(t)
	harness.dependencies.fileSystem = newLockedFileSystem(t, "/project/private", "/project/vault")

	output, err := harness.execute(t, "/project", "--compact")
	if err != nil {
		t.Fatalf("execute error: %v", err)
	}
	expected := strings.Join([]string{
		"/project/",
		"├── private/",
		"├── public/",
		"│   └── readme.txt",
		"└── vault/",
	}, "\n") + "\n"
	if output != expected {
		t.Fatalf("unexpected output\nexpected:\n%s\nactual:\n%s", expected, output)
	}
	logged := harness.logOutput.String()
	if strings.Count(logged, skippedDirectoryMessage) != 2 {
		t.Fatalf("expected a warning per skipped directory, got %q", logged)
	}
	if !strings.Contains(logged, skippedSummaryMessage) || !strings.Contains(logged, `"count": 2`) {
		t.Fatalf("expected skipped summary with count 2, got %q", logged)
	}
}

func TestRootCommandStrictFailsOnLockedDirectory(t *testing.T) {
	harness := newCommandHarness(t)
	harness.dependencies.fileSystem = newLockedFileSystem(t, "/project/private")

	output, err := harness.execute(t, "/project", "--strict")
	if !errors.Is(err, tree.ErrPermissionDenied) {
		t.Fatalf("expected ErrPermissionDenied, got %v", err)
	}
	if output != "" {
		t.Fatalf("expected no output, got %q", output)
	}
	if strings.Contains(harness.logOutput.String(), skippedSummaryMessage) {
		t.Fatalf("strict run must not report skipped directories")
	}
}

func TestRootCommandOmitsSummaryWithoutSkips(t *testing.T) {
	harness := newCommandHarness(t)
	harness.dependencies.fileSystem = newLockedFileSystem(t)

	if _, err := harness.execute(t, "/project"); err != nil {
		t.Fatalf("execute error: %v", err)
	}
	if strings.Contains(harness.logOutput.String(), skippedSummaryMessage) {
		t.Fatalf("unexpected skipped summary: %q", harness.logOutput.String())
	}
}
