// polyglot runs the translation pipeline in-process from the command line.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/dasmlab/polyglot/pkg/app"
	"github.com/dasmlab/polyglot/pkg/config"
)

// Version information (set via -ldflags during build)
var version = "dev"

type cli struct {
	v       *viper.Viper
	app     *app.App
	jsonOut bool
}

func newRootCmd() *cobra.Command {
	c := &cli{v: viper.New()}

	root := &cobra.Command{
		Use:   "polyglot",
		Short: "Translate, detect and score text with an LLM and a free fallback engine",
		Long: `polyglot runs the translation pipeline locally.

The primary backend is an OpenAI-compatible chat model (OPENAI_API_KEY or
POLYGLOT_LLM_API_KEY). When it is missing or fails, Google Translate or a
LibreTranslate server is used instead.

Commands:
  translate   Translate text, optionally chunked and with a glossary
  detect      Detect the language of a text
  candidates  Rank candidate languages for a text
  batch       Translate several texts with back-translation confidence
  document    Translate a document as a tracked job
  task        Translate then summarize, score sentiment or improve a text`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.setup(cmd)
		},
	}

	if err := config.BindFlags(c.v, root.PersistentFlags()); err != nil {
		panic(err)
	}
	root.PersistentFlags().BoolVar(&c.jsonOut, "json", false, "Print results as JSON")

	root.AddCommand(
		c.newTranslateCmd(),
		c.newDetectCmd(),
		c.newCandidatesCmd(),
		c.newBatchCmd(),
		c.newDocumentCmd(),
		c.newTaskCmd(),
	)
	return root
}

func (c *cli) setup(cmd *cobra.Command) error {
	if err := config.LoadDotEnv(); err != nil {
		return err
	}
	configFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(c.v, configFile)
	if err != nil {
		return err
	}
	// Keep the terminal quiet unless a level was asked for.
	if !cmd.Flags().Changed("log-level") && !c.v.InConfig("log") && os.Getenv(config.EnvPrefix+"_LOG_LEVEL") == "" {
		cfg.Log.Level = "warn"
	}

	c.app, err = app.New(cfg, cfg.NewLogger())
	return err
}

// readInput returns the positional arguments joined by spaces, the contents
// of file, or stdin when file is "-".
func readInput(cmd *cobra.Command, args []string, file string) (string, error) {
	var text string
	switch {
	case file == "-":
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		text = string(data)
	case file != "":
		data, err := os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("failed to read input file: %w", err)
		}
		text = string(data)
	default:
		text = strings.Join(args, " ")
	}
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("no input text: pass it as arguments or with --file")
	}
	return text, nil
}

func (c *cli) printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
