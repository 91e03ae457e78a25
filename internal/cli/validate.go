package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/roach88/sleight/internal/harness"
)

// FileValidation holds the validation outcome for one scenario file.
type FileValidation struct {
	File  string `json:"file"`
	Valid bool   `json:"valid"`
	Error string `json:"error,omitempty"`
}

// ValidationResult holds validation results across all files.
type ValidationResult struct {
	Valid bool             `json:"valid"`
	Files []FileValidation `json:"files"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <scenario-file-or-dir>",
		Short: "Validate scenario files without running them",
		Long: `Validate scenario YAML files against the scenario schema.

Performs YAML parsing, CUE schema validation, and strict field checking
without executing any steps. Faster than test for development feedback.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	files, err := collectScenarioFiles(path)
	if err != nil {
		_ = formatter.Error("E_SCENARIO_PATH", err.Error(), nil)
		return WrapExitError(ExitCommandError, "collect scenarios", err)
	}
	if len(files) == 0 {
		_ = formatter.Error("E_NO_SCENARIOS", fmt.Sprintf("no scenario files found under %s", path), nil)
		return NewExitError(ExitCommandError, "no scenario files found")
	}

	result := ValidationResult{Valid: true}
	for _, file := range files {
		formatter.VerboseLog("Validating %s", file)

		fv := FileValidation{File: file, Valid: true}
		if _, err := harness.LoadScenario(file); err != nil {
			fv.Valid = false
			fv.Error = err.Error()
			result.Valid = false
		}
		result.Files = append(result.Files, fv)
	}

	return outputValidation(formatter, result)
}

// collectScenarioFiles resolves a path to the list of YAML files under it.
// A file path returns itself; a directory is walked recursively.
func collectScenarioFiles(path string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}

	if !info.IsDir() {
		return []string{path}, nil
	}

	var files []string
	err = filepath.Walk(path, func(p string, fi os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if fi.IsDir() {
			return nil
		}
		ext := filepath.Ext(p)
		if ext == ".yaml" || ext == ".yml" {
			files = append(files, p)
		}
		return nil
	})
	return files, err
}

// outputValidation renders the validation result and maps failures to exit
// codes: schema violations are validation failures (exit 1), not command
// errors.
func outputValidation(formatter *OutputFormatter, result ValidationResult) error {
	if formatter.Format == "json" {
		response := CLIResponse{Status: "ok", Data: result}
		if !result.Valid {
			response.Status = "error"
			response.Error = &CLIError{
				Code:    "E_SCHEMA_VIOLATION",
				Message: "one or more scenario files are invalid",
			}
		}
		if err := writeJSON(formatter.Writer, response); err != nil {
			return err
		}
		if !result.Valid {
			return NewExitError(ExitFailure, "validation failed")
		}
		return nil
	}

	for _, fv := range result.Files {
		if fv.Valid {
			fmt.Fprintf(formatter.Writer, "✓ %s\n", fv.File)
		} else {
			fmt.Fprintf(formatter.Writer, "✗ %s\n", fv.File)
			fmt.Fprintf(formatter.Writer, "  %s\n", fv.Error)
		}
	}

	if !result.Valid {
		return NewExitError(ExitFailure, "validation failed")
	}
	fmt.Fprintln(formatter.Writer, "✓ All scenarios valid")
	return nil
}
