package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/dasmlab/polyglot/pkg/pipeline"
	"github.com/dasmlab/polyglot/pkg/service"
)

var (
	serverAddr   = pflag.String("addr", "localhost:50051", "gRPC server address")
	sourceLang   = pflag.String("source", "auto", "Source language code (e.g., en, fr, auto)")
	targetLang   = pflag.String("target", "fr", "Target language code (e.g., en, fr)")
	textFile     = pflag.String("file", "", "Path to text file to translate")
	text         = pflag.String("text", "", "Text to translate (if file not provided)")
	glossaryFile = pflag.String("glossary", "", "Glossary file (JSON or YAML)")
	mode         = pflag.String("mode", "document", "Call to make: document, translate or batch")
	timeout      = pflag.Duration("timeout", 5*time.Minute, "How long to wait for the server")
)

func main() {
	pflag.Parse()

	logger := logrus.New()
	logger.SetLevel(logrus.InfoLevel)

	var textToTranslate string
	if *textFile != "" {
		data, err := os.ReadFile(*textFile)
		if err != nil {
			logger.WithError(err).Fatalf("Failed to read file: %s", *textFile)
		}
		textToTranslate = string(data)
	} else if *text != "" {
		textToTranslate = *text
	} else {
		logger.Fatal("Either --file or --text must be provided")
	}

	if strings.TrimSpace(textToTranslate) == "" {
		logger.Fatal("Text to translate is empty")
	}

	var glossary pipeline.Glossary
	if *glossaryFile != "" {
		var err error
		if glossary, err = pipeline.LoadGlossaryFile(*glossaryFile); err != nil {
			logger.WithError(err).Fatal("Failed to load glossary")
		}
	}

	logger.WithFields(logrus.Fields{
		"server":      *serverAddr,
		"source_lang": *sourceLang,
		"target_lang": *targetLang,
		"text_length": len(textToTranslate),
	}).Info("Connecting to Polyglot server...")

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	conn, err := grpc.NewClient(*serverAddr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to server")
	}
	defer conn.Close()

	client := service.NewClient(conn, logger)

	ready, err := client.CheckReady(ctx)
	if err != nil {
		logger.WithError(err).Fatal("Readiness check failed")
	}
	logger.WithField("backends", ready.Backends).Info("Server backends")

	switch *mode {
	case "document":
	case "translate":
		runTranslate(ctx, client, textToTranslate, glossary, logger)
		return
	case "batch":
		runBatch(ctx, client, textToTranslate, glossary, logger)
		return
	default:
		logger.WithField("mode", *mode).Fatal("Unknown mode")
	}

	logger.Info("Submitting document...")
	startTime := time.Now()

	sub, err := client.SubmitDocument(ctx, &service.DocumentRequest{
		RequestID:  fmt.Sprintf("test-%d", time.Now().Unix()),
		Title:      "Test Translation",
		Text:       textToTranslate,
		SourceLang: *sourceLang,
		TargetLang: *targetLang,
		Glossary:   glossary,
	})
	if err != nil {
		logger.WithError(err).Fatal("Submit failed")
	}

	job, err := waitForJob(ctx, client, sub.JobID, logger)
	if err != nil {
		logger.WithError(err).Fatal("Job did not complete")
	}
	if job.Status != service.JobStatusCompleted {
		logger.WithFields(logrus.Fields{
			"error":    job.Error,
			"detected": job.DetectedSource,
		}).Fatal("Translation was not successful")
	}

	separator := strings.Repeat("=", 80)
	dashLine := strings.Repeat("-", 80)

	fmt.Println()
	fmt.Println(separator)
	fmt.Println("TRANSLATION RESULTS")
	fmt.Println(separator)
	fmt.Printf("\nSource Language: %s (detected %s)\n", *sourceLang, job.DetectedSource)
	fmt.Printf("Target Language: %s\n", *targetLang)
	fmt.Printf("Translation Time: %.2f seconds\n", time.Since(startTime).Seconds())
	fmt.Println()
	fmt.Println(dashLine)
	fmt.Println("ORIGINAL TEXT:")
	fmt.Println(dashLine)
	fmt.Println(textToTranslate)
	fmt.Println()
	fmt.Println(dashLine)
	fmt.Printf("TRANSLATED TEXT: %s\n", job.TranslatedTitle)
	fmt.Println(dashLine)
	fmt.Println(job.TranslatedText)
	fmt.Println()
	fmt.Println(separator)

	logger.WithFields(logrus.Fields{
		"job_id":           sub.JobID,
		"duration_seconds": time.Since(startTime).Seconds(),
	}).Info("Translation completed successfully")
}

// waitForJob polls until the job leaves the queued and processing states.
func waitForJob(ctx context.Context, client *service.Client, jobID string, logger *logrus.Logger) (*service.JobSnapshot, error) {
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	lastProgress := int32(-1)
	for {
		job, err := client.GetJob(ctx, &service.JobRequest{JobID: jobID})
		if err != nil {
			return nil, err
		}
		if job.ProgressPercent != lastProgress {
			lastProgress = job.ProgressPercent
			logger.WithFields(logrus.Fields{
				"status":   job.Status,
				"progress": job.ProgressPercent,
				"message":  job.ProgressMessage,
			}).Info("Job progress")
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

func runTranslate(ctx context.Context, client *service.Client, text string, glossary pipeline.Glossary, logger *logrus.Logger) {
	startTime := time.Now()
	resp, err := client.Translate(ctx, &service.TranslateRequest{
		Text:       text,
		SourceLang: *sourceLang,
		TargetLang: *targetLang,
		Glossary:   glossary,
		LongText:   true,
	})
	if err != nil {
		logger.WithError(err).Fatal("Translation failed")
	}
	if !resp.Success {
		logger.WithFields(logrus.Fields{
			"error":    resp.Message,
			"detected": resp.DetectedSource,
		}).Fatal("Translation was not successful")
	}

	fmt.Println(*resp.Translated)
	logger.WithFields(logrus.Fields{
		"detected":         resp.DetectedSource,
		"duration_seconds": time.Since(startTime).Seconds(),
	}).Info("Translation completed successfully")
}

// runBatch sends every non-empty line as its own batch item.
func runBatch(ctx context.Context, client *service.Client, text string, glossary pipeline.Glossary, logger *logrus.Logger) {
	var texts []string
	for _, line := range strings.Split(text, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			texts = append(texts, line)
		}
	}

	resp, err := client.TranslateBatch(ctx, &service.BatchRequest{
		Texts:      texts,
		SourceLang: *sourceLang,
		TargetLang: *targetLang,
		Glossary:   glossary,
	})
	if err != nil {
		logger.WithError(err).Fatal("Batch translation failed")
	}

	for i, item := range resp.Items {
		translated := "-"
		if item.Translated != nil {
			translated = *item.Translated
		}
		fmt.Printf("%3d  %-4s %.2f  %s\n     %s\n", i+1, item.Detected, item.Confidence, item.Original, translated)
	}
}
