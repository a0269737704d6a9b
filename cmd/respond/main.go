// Package main implements the respond CLI for one-shot operations against
// the response engine.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/responsed/internal/budget"
	"github.com/fyrsmithlabs/responsed/internal/compression"
	"github.com/fyrsmithlabs/responsed/pkg/engine"
)

var (
	// serverURL is the base URL for the responsed HTTP server, used by
	// commands that talk to a running daemon.
	serverURL string
	// version information
	version = "dev"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "respond",
	Short: "CLI for the responsed budgeting and compression engine",
	Long: `respond runs the response engine in-process for one-shot operations:
computing a budgeting plan for a message, compressing text, and validating
structured responses. The health command talks to a running responsed daemon.`,
	Version: version,
}

var (
	planProfile          string
	planConversationLen  int
	planHasFiles         bool
	planToolsEnabled     bool
	planExtendedThinking bool

	compressMode string
)

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "http://localhost:9292", "responsed server URL")

	planCmd.Flags().StringVar(&planProfile, "profile", "", "explicit profile: concise, standard, or detailed")
	planCmd.Flags().IntVar(&planConversationLen, "conversation", 0, "conversation length in messages")
	planCmd.Flags().BoolVar(&planHasFiles, "files", false, "request has file attachments")
	planCmd.Flags().BoolVar(&planToolsEnabled, "tools", false, "tool use is enabled")
	planCmd.Flags().BoolVar(&planExtendedThinking, "extended", false, "extended thinking is enabled")

	compressCmd.Flags().StringVar(&compressMode, "mode", "auto", "compression mode: none, light, moderate, aggressive, or auto")

	rootCmd.AddCommand(planCmd)
	rootCmd.AddCommand(compressCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(healthCmd)
}

// planCmd computes a budgeting plan for a message.
var planCmd = &cobra.Command{
	Use:   "plan <message>",
	Short: "Compute generation parameters for a message",
	Long: `Compute the token ceiling, thinking budget, profile, and prompt
instruction for a message.

Examples:
  # Plan a simple question
  respond plan "Is the API healthy?"

  # Plan with request context
  respond plan "Analyze the checkout latency" --tools --files --conversation 15 --extended`,
	Args: cobra.ExactArgs(1),
	RunE: runPlan,
}

// compressCmd compresses a file or stdin.
var compressCmd = &cobra.Command{
	Use:   "compress [file]",
	Short: "Compress text from a file or stdin",
	Long: `Compress text under a compression mode, printing the result to stdout.

Examples:
  # Auto-select a mode by estimated token count
  cat response.txt | respond compress -

  # Force a mode
  respond compress --mode aggressive response.txt`,
	Args: cobra.MaximumNArgs(1),
	RunE: runCompress,
}

// validateCmd validates a candidate response against the template for a message.
var validateCmd = &cobra.Command{
	Use:   "validate <message> [file]",
	Short: "Validate a structured response against a message's template",
	Long: `Validate a candidate response (from a file or stdin) against the
structured-output template selected for the original message.

Examples:
  # Validate a saved response
  respond validate "Is the API healthy?" response.json

  # Validate from stdin
  cat response.json | respond validate "Is the API healthy?"`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runValidate,
}

// healthCmd checks daemon health.
var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check responsed daemon health",
	Long: `Check the health status of a running responsed daemon.

Examples:
  # Check health
  respond health

  # Check health on a different server
  respond health --server http://localhost:8080`,
	RunE: runHealth,
}

// HealthResponse matches internal/server HealthResponse.
type HealthResponse struct {
	Status string `json:"status"`
}

func runPlan(cmd *cobra.Command, args []string) error {
	eng := engine.New(zap.NewNop())

	plan := eng.Plan(context.Background(), engine.Request{
		Message:            args[0],
		Profile:            budget.Profile(planProfile),
		ConversationLength: planConversationLen,
		HasFiles:           planHasFiles,
		ToolsEnabled:       planToolsEnabled,
		ExtendedThinking:   planExtendedThinking,
	})

	out, err := json.MarshalIndent(plan, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal plan: %w", err)
	}
	fmt.Println(string(out))
	return nil
}

func runCompress(cmd *cobra.Command, args []string) error {
	text, err := readInput(args, 0)
	if err != nil {
		return err
	}
	if len(text) == 0 {
		return fmt.Errorf("no text to compress")
	}

	eng := engine.New(zap.NewNop())
	ctx := context.Background()

	var res compression.Result
	if compressMode == "auto" {
		res = eng.AutoCompress(ctx, string(text))
	} else {
		mode := compression.Mode(compressMode)
		if !mode.Valid() {
			return fmt.Errorf("unknown compression mode %q", compressMode)
		}
		res = eng.Compress(ctx, string(text), mode)
	}

	fmt.Println(res.Compressed)
	fmt.Fprintf(os.Stderr, "mode=%s original=%d compressed=%d ratio=%.2f tokens_removed=%d\n",
		res.Mode, res.OriginalLength, res.CompressedLength, res.CompressionRatio, res.TokensRemoved)
	return nil
}

func runValidate(cmd *cobra.Command, args []string) error {
	candidate, err := readInput(args, 1)
	if err != nil {
		return err
	}

	eng := engine.New(zap.NewNop())
	result := eng.Validate(args[0], string(candidate))

	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}
	fmt.Println(string(out))

	if !result.Valid {
		os.Exit(1)
	}
	return nil
}

func runHealth(cmd *cobra.Command, args []string) error {
	url := fmt.Sprintf("%s/healthz", serverURL)

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("failed to reach %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("server returned status %d", resp.StatusCode)
	}

	var health HealthResponse
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	fmt.Printf("responsed is %s\n", health.Status)
	return nil
}

// readInput reads from the file named at args[idx], or stdin when the
// argument is absent or "-".
func readInput(args []string, idx int) ([]byte, error) {
	if len(args) <= idx || args[idx] == "-" {
		content, err := io.ReadAll(os.Stdin)
		if err != nil {
			return nil, fmt.Errorf("failed to read from stdin: %w", err)
		}
		return content, nil
	}

	content, err := os.ReadFile(args[idx])
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", args[idx], err)
	}
	return content, nil
}
