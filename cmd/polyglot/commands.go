package main

import (
	"bufio"
	"context"
	"fmt"
	"maps"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/dasmlab/polyglot/pkg/pipeline"
	"github.com/dasmlab/polyglot/pkg/service"
	"github.com/dasmlab/polyglot/pkg/translate"
)

// ---------------------------------------------------------------------------
// translate
// ---------------------------------------------------------------------------

func (c *cli) newTranslateCmd() *cobra.Command {
	var (
		file, to, from string
		long           bool
		terms          map[string]string
	)
	cmd := &cobra.Command{
		Use:   "translate [text...]",
		Short: "Translate text",
		Long: `Translate text into the --to language.

Long inputs are split on blank lines into chunks of at most --chunk-size
characters. A glossary (--glossary file or --term pairs) forces chunked
translation so every chunk gets the substitutions.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readInput(cmd, args, file)
			if err != nil {
				return err
			}

			glossary := maps.Clone(c.app.Glossary)
			if len(terms) > 0 {
				if glossary == nil {
					glossary = pipeline.Glossary{}
				}
				maps.Copy(glossary, terms)
			}

			ctx := cmd.Context()
			var res pipeline.Result
			if long || len(glossary) > 0 {
				res = c.app.Pipeline.TranslateLongTextWithProgress(ctx, text, to, from, glossary, func(done, total int) {
					if total > 1 {
						fmt.Fprintf(cmd.ErrOrStderr(), "\rTranslated chunk %d/%d", done, total)
						if done == total {
							fmt.Fprintln(cmd.ErrOrStderr())
						}
					}
				})
			} else {
				res = c.app.Pipeline.Translate(ctx, text, to, from)
			}

			if c.jsonOut {
				if err := c.printJSON(cmd, res); err != nil {
					return err
				}
			} else if res.OK() {
				fmt.Fprintln(cmd.OutOrStdout(), res.Text())
			}
			if !res.OK() {
				return fmt.Errorf("translation failed (detected source: %s)", res.DetectedSource)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "Read text from a file (- for stdin)")
	cmd.Flags().StringVarP(&to, "to", "t", "en", "Target language code")
	cmd.Flags().StringVarP(&from, "from", "s", translate.AutoLanguage, "Source language code")
	cmd.Flags().BoolVar(&long, "long", false, "Chunk the text even without a glossary")
	cmd.Flags().StringToStringVar(&terms, "term", nil, "Glossary entry source=target (repeatable)")
	return cmd
}

// ---------------------------------------------------------------------------
// detect / candidates
// ---------------------------------------------------------------------------

func (c *cli) newDetectCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "detect [text...]",
		Short: "Detect the language of a text",
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readInput(cmd, args, file)
			if err != nil {
				return err
			}
			code, ok := c.app.Detector.Detect(cmd.Context(), text)
			if !ok {
				code = translate.UndeterminedLanguage
			}
			if c.jsonOut {
				return c.printJSON(cmd, service.DetectResponse{Language: code, Detected: ok})
			}
			fmt.Fprintln(cmd.OutOrStdout(), code)
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "Read text from a file (- for stdin)")
	return cmd
}

func (c *cli) newCandidatesCmd() *cobra.Command {
	var (
		file string
		top  int
	)
	cmd := &cobra.Command{
		Use:   "candidates [text...]",
		Short: "Rank candidate languages for a text",
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readInput(cmd, args, file)
			if err != nil {
				return err
			}
			if top < 1 {
				return fmt.Errorf("--top must be at least 1")
			}
			candidates := c.app.Detector.Candidates(cmd.Context(), text, top)
			if c.jsonOut {
				return c.printJSON(cmd, candidates)
			}
			for _, cand := range candidates {
				fmt.Fprintf(cmd.OutOrStdout(), "%-4s %.3f\n", cand.Code, cand.Probability)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "Read text from a file (- for stdin)")
	cmd.Flags().IntVarP(&top, "top", "n", 3, "Number of candidates")
	return cmd
}

// ---------------------------------------------------------------------------
// batch
// ---------------------------------------------------------------------------

func (c *cli) newBatchCmd() *cobra.Command {
	var (
		file, to, from string
		pronounce      bool
		noBack         bool
	)
	cmd := &cobra.Command{
		Use:   "batch [text...]",
		Short: "Translate several texts with back-translation confidence",
		Long: `Translate each argument, or each non-empty line of --file, independently.

Every item is translated back into its source language and scored by
character similarity with the original. A failed item is reported with an
empty translation and never stops the batch.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			texts := args
			if file != "" {
				var err error
				if texts, err = readLines(cmd, file); err != nil {
					return err
				}
			}
			if len(texts) == 0 {
				return fmt.Errorf("no input texts: pass them as arguments or with --file")
			}

			items := c.app.Pipeline.BatchTranslate(cmd.Context(), texts, to, from, pipeline.BatchOptions{
				Glossary:            c.app.Glossary,
				Pronunciation:       pronounce,
				SkipBackTranslation: noBack || !c.app.Config.Pipeline.BackTranslation,
			})

			if c.jsonOut {
				return c.printJSON(cmd, items)
			}
			out := cmd.OutOrStdout()
			for i, item := range items {
				fmt.Fprintf(out, "[%d] %s (%s)\n", i+1, item.Original, item.Detected)
				fmt.Fprintf(out, "    -> %s\n", orDash(item.Translated))
				if item.BackTranslation != nil {
					fmt.Fprintf(out, "    <- %s\n", *item.BackTranslation)
				}
				if item.Pronunciation != nil {
					fmt.Fprintf(out, "    pronunciation: %s\n", *item.Pronunciation)
				}
				fmt.Fprintf(out, "    confidence: %.2f\n", item.Confidence)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "Read one text per line from a file (- for stdin)")
	cmd.Flags().StringVarP(&to, "to", "t", "en", "Target language code")
	cmd.Flags().StringVarP(&from, "from", "s", translate.AutoLanguage, "Source language code")
	cmd.Flags().BoolVar(&pronounce, "pronounce", false, "Add an LLM pronunciation guide")
	cmd.Flags().BoolVar(&noBack, "no-back-translation", false, "Score without translating back")
	return cmd
}

func readLines(cmd *cobra.Command, file string) ([]string, error) {
	in := cmd.InOrStdin()
	if file != "-" {
		f, err := os.Open(file)
		if err != nil {
			return nil, fmt.Errorf("failed to read input file: %w", err)
		}
		defer f.Close()
		in = f
	}

	var lines []string
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			lines = append(lines, line)
		}
	}
	return lines, scanner.Err()
}

func orDash(s *string) string {
	if s == nil {
		return "-"
	}
	return *s
}

// ---------------------------------------------------------------------------
// document
// ---------------------------------------------------------------------------

func (c *cli) newDocumentCmd() *cobra.Command {
	var (
		file, title, to, from, output string
		timeout                       time.Duration
	)
	cmd := &cobra.Command{
		Use:   "document",
		Short: "Translate a document as a tracked job",
		RunE: func(cmd *cobra.Command, args []string) error {
			if output != "" && output == file {
				return fmt.Errorf("input file and output file cannot be the same")
			}
			text, err := readInput(cmd, nil, file)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			sub, err := c.app.Service.SubmitDocument(ctx, &service.DocumentRequest{
				Title:      title,
				Text:       text,
				SourceLang: from,
				TargetLang: to,
			})
			if err != nil {
				return err
			}
			job, err := c.waitForJob(ctx, cmd, sub.JobID)
			if err != nil {
				return err
			}

			if c.jsonOut {
				if err := c.printJSON(cmd, job); err != nil {
					return err
				}
			}
			if job.Status != service.JobStatusCompleted {
				return fmt.Errorf("job %s failed: %s", job.JobID, job.Error)
			}
			if c.jsonOut {
				return nil
			}

			body := job.TranslatedText
			if job.TranslatedTitle != "" {
				body = job.TranslatedTitle + "\n\n" + body
			}
			if output == "" {
				fmt.Fprintln(cmd.OutOrStdout(), body)
				return nil
			}
			if err := os.WriteFile(output, []byte(body+"\n"), 0o644); err != nil {
				return fmt.Errorf("failed to write output file: %w", err)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Wrote %s (detected source: %s)\n", output, job.DetectedSource)
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "Document to translate (- for stdin)")
	cmd.Flags().StringVar(&title, "title", "", "Document title")
	cmd.Flags().StringVarP(&to, "to", "t", "en", "Target language code")
	cmd.Flags().StringVarP(&from, "from", "s", translate.AutoLanguage, "Source language code")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write the translation to a file")
	cmd.Flags().DurationVar(&timeout, "timeout", 10*time.Minute, "Give up after this long")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func (c *cli) waitForJob(ctx context.Context, cmd *cobra.Command, jobID string) (*service.JobSnapshot, error) {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	last := int32(-1)
	for {
		job, err := c.app.Service.GetJob(ctx, &service.JobRequest{JobID: jobID})
		if err != nil {
			return nil, err
		}
		if job.ProgressPercent != last && !c.jsonOut {
			last = job.ProgressPercent
			fmt.Fprintf(cmd.ErrOrStderr(), "[%3d%%] %s\n", job.ProgressPercent, job.ProgressMessage)
		}
		if job.Status == service.JobStatusCompleted || job.Status == service.JobStatusFailed {
			return job, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

// ---------------------------------------------------------------------------
// task
// ---------------------------------------------------------------------------

func (c *cli) newTaskCmd() *cobra.Command {
	var (
		file, task, template, to, from string
		reverse                        bool
	)
	cmd := &cobra.Command{
		Use:   "task [text...]",
		Short: "Translate then summarize, score sentiment or improve a text",
		Long: `Translate the text into --to, then give the translation to the LLM under a
task prompt: summarize, sentiment or improve. --template overrides the
built-in prompt; {source_lang} and {target_lang} are substituted.

Requires an LLM API key.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readInput(cmd, args, file)
			if err != nil {
				return err
			}
			res, err := c.app.Service.ProcessTask(cmd.Context(), &service.TaskRequest{
				Text:       text,
				TargetLang: to,
				SourceLang: from,
				Task:       task,
				Template:   template,
				Reverse:    reverse,
			})
			if err != nil {
				return err
			}
			if c.jsonOut {
				return c.printJSON(cmd, res)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Detected: %s\n", res.Detected)
			fmt.Fprintf(out, "Translated: %s\n\n", res.Translated)
			fmt.Fprintln(out, res.Result)
			if res.CulturalNotes != nil {
				fmt.Fprintf(out, "\nCultural notes:\n%s\n", *res.CulturalNotes)
			}
			if res.ReverseTranslation != nil {
				fmt.Fprintf(out, "\nReverse translation:\n%s\n", *res.ReverseTranslation)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "Read text from a file (- for stdin)")
	cmd.Flags().StringVar(&task, "task", "summarize", "Task: summarize, sentiment or improve")
	cmd.Flags().StringVar(&template, "template", "", "Custom prompt template")
	cmd.Flags().StringVarP(&to, "to", "t", "en", "Target language code")
	cmd.Flags().StringVarP(&from, "from", "s", translate.AutoLanguage, "Source language code")
	cmd.Flags().BoolVar(&reverse, "reverse", false, "Translate the result back into the source language")
	return cmd
}
