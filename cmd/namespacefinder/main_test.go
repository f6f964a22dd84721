package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/feco93/Namespacefinder/clrmeta/clrtest"
)

type cliCase struct {
	Name       string   `yaml:"name"`
	Namespaces []string `yaml:"namespaces"`
	Broken     []string `yaml:"broken"`
	Text       string   `yaml:"text"`
	Flags      []string `yaml:"flags"`
	Exit       int      `yaml:"exit"`
	Stdout     string   `yaml:"stdout"`
}

func loadCases(t *testing.T) []cliCase {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("testdata", "cases.yaml"))
	require.NoError(t, err)

	var doc struct {
		Cases []cliCase `yaml:"cases"`
	}
	require.NoError(t, yaml.Unmarshal(data, &doc))
	require.NotEmpty(t, doc.Cases)
	return doc.Cases
}

// runCLI executes the command line and returns exit code, stdout and stderr.
func runCLI(args ...string) (int, string, string) {
	var stdout, stderr bytes.Buffer
	code := execute(args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func writeText(t *testing.T, dir, text string) string {
	t.Helper()
	path := filepath.Join(dir, "namespaces.txt")
	require.NoError(t, os.WriteFile(path, []byte(text), 0644))
	return path
}

func TestCases(t *testing.T) {
	for _, tc := range loadCases(t) {
		t.Run(tc.Name, func(t *testing.T) {
			dir := t.TempDir()

			asm := clrtest.Assembly{ModuleName: "app.dll", Types: clrtest.Types(tc.Namespaces...)}
			for _, ns := range tc.Broken {
				asm.Types = append(asm.Types, clrtest.Type{Namespace: ns, Name: "Broken", Broken: true})
			}
			asmPath := asm.WriteFile(t, dir, "app.dll")
			textPath := writeText(t, dir, tc.Text)

			args := append(append([]string{}, tc.Flags...), asmPath, textPath)
			code, stdout, stderr := runCLI(args...)

			assert.Equal(t, tc.Exit, code, "stderr: %s", stderr)
			assert.Equal(t, tc.Stdout, stdout)
		})
	}
}

func TestUsage(t *testing.T) {
	for _, args := range [][]string{nil, {"only-one.dll"}, {"a", "b", "c"}} {
		code, stdout, _ := runCLI(args...)
		assert.Equal(t, exitUsage, code, "args %v", args)
		assert.Equal(t, usageLine+"\n", stdout, "args %v", args)
	}
}

func TestMissingInputs(t *testing.T) {
	dir := t.TempDir()
	asmPath := clrtest.Write(t, dir, "app.dll", "A.B")
	textPath := writeText(t, dir, "namespace==A")
	missing := filepath.Join(dir, "missing")

	code, stdout, _ := runCLI(missing, textPath)
	assert.Equal(t, exitFailure, code)
	assert.Equal(t, "Assembly not found: "+missing+"\n", stdout)

	code, stdout, _ = runCLI(asmPath, missing)
	assert.Equal(t, exitFailure, code)
	assert.Equal(t, "File not found: "+missing+"\n", stdout)

	// A directory is not an input file.
	code, stdout, _ = runCLI(asmPath, dir)
	assert.Equal(t, exitFailure, code)
	assert.Equal(t, "File not found: "+dir+"\n", stdout)
}

func TestUnreadableAssembly(t *testing.T) {
	dir := t.TempDir()
	asmPath := filepath.Join(dir, "native.dll")
	require.NoError(t, os.WriteFile(asmPath, clrtest.NotManaged(), 0644))
	textPath := writeText(t, dir, "namespace==A")

	code, stdout, _ := runCLI(asmPath, textPath)
	require.Equal(t, exitOK, code)

	lines := strings.Split(stdout, "\n")
	assert.True(t, strings.HasPrefix(lines[0], "Error loading assembly: "), lines[0])
	assert.Equal(t, "Assembly: native.dll", lines[1])
	assert.Equal(t, "Total assembly namespaces (all): 0", lines[2])
	assert.Contains(t, stdout, "None 🎉")
}

func TestInvalidFlags(t *testing.T) {
	dir := t.TempDir()
	asmPath := clrtest.Write(t, dir, "app.dll", "A.B")
	textPath := writeText(t, dir, "namespace==A")

	code, _, stderr := runCLI("--root", "A.", asmPath, textPath)
	assert.Equal(t, exitUsage, code)
	assert.Contains(t, stderr, "invalid configuration")

	code, _, stderr = runCLI("--no-such-flag", asmPath, textPath)
	assert.Equal(t, exitUsage, code)
	assert.Contains(t, stderr, "unknown flag")

	code, _, stderr = runCLI("--log-level", "loud", asmPath, textPath)
	assert.Equal(t, exitUsage, code)
	assert.Contains(t, stderr, "unknown log level")
}

func TestDebugLogging(t *testing.T) {
	dir := t.TempDir()
	asmPath := clrtest.Write(t, dir, "app.dll", "A.B", "A.C")
	textPath := writeText(t, dir, "namespace==A.B")

	code, stdout, stderr := runCLI("--log-level", "debug", asmPath, textPath)
	require.Equal(t, exitOK, code)
	assert.Contains(t, stdout, "A.C\n")
	assert.Contains(t, stderr, "Coverage computed")
	assert.Contains(t, stderr, "uncovered=1")
}

func TestVersion(t *testing.T) {
	code, stdout, _ := runCLI("--version")
	assert.Equal(t, exitOK, code)
	assert.Equal(t, appName+" version "+Version+" (build: "+BuildTime+")\n", stdout)
}

func TestPathsNamedLikeCommands(t *testing.T) {
	for _, name := range []string{"version", "help", "completion"} {
		t.Run(name, func(t *testing.T) {
			dir := t.TempDir()
			clrtest.Write(t, dir, name, "App.Core", "App.Web")
			text := writeText(t, dir, "namespace==App.Core")

			// Relative paths, as a user would type them from that directory.
			wd, err := os.Getwd()
			require.NoError(t, err)
			require.NoError(t, os.Chdir(dir))
			t.Cleanup(func() { _ = os.Chdir(wd) })
			code, stdout, stderr := runCLI(name, filepath.Base(text))
			require.Equal(t, exitOK, code, stderr)
			assert.Contains(t, stdout, "Assembly: "+name+"\n")
			assert.Contains(t, stdout, "Leaf namespaces considered: 2\n")
			assert.True(t, strings.HasSuffix(stdout, "App.Web\n"), stdout)
		})
	}
}
