package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mikey/llm-dm-relay/internal/core"
	"github.com/mikey/llm-dm-relay/internal/di"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newClassifyCmd(opts *di.CLIOptions) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "classify [text]",
		Short: "Classify the intent of a message with the configured LLM provider",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := di.LoadCLIConfig(opts)
			if err != nil {
				return err
			}
			// flags set on the command line win over the file
			v := cfg.GetViper()
			for key, flag := range map[string]string{
				"llm.provider":      "provider",
				"openai.api_key":    "openai-api-key",
				"openai.model_name": "openai-model",
				"openai.base_url":   "openai-base-url",
				"gemini.api_key":    "gemini-api-key",
				"gemini.model_name": "gemini-model",
				"bedrock.region":    "bedrock-region",
				"bedrock.model_id":  "bedrock-model",
			} {
				if err := v.BindPFlag(key, cmd.Flags().Lookup(flag)); err != nil {
					return err
				}
			}

			text, err := readText(cmd, args, file)
			if err != nil {
				return err
			}

			container, err := di.BuildCLIContainer(opts, cfg)
			if err != nil {
				return err
			}
			return container.Invoke(func(logger *zap.Logger, service *core.ClassificationService, classifier core.IntentClassifier) error {
				defer logger.Sync()
				if closer, ok := classifier.(interface{ Close() error }); ok {
					defer closer.Close()
				}

				label := service.Classify(cmd.Context(), text)
				fmt.Fprintf(cmd.OutOrStdout(), "Provider: %s\n", cfg.GetLLM().Provider)
				fmt.Fprintf(cmd.OutOrStdout(), "Label: %s\n", label)
				return nil
			})
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&file, "file", "f", "", "Read the message from a file (default stdin)")
	flags.String("provider", "none", "LLM provider (none, openai, gemini, bedrock)")
	flags.String("openai-api-key", "", "API key for OpenAI")
	flags.String("openai-model", "gpt-4o-mini", "OpenAI model name")
	flags.String("openai-base-url", "", "OpenAI compatible API base URL")
	flags.String("gemini-api-key", "", "API key for Google Gemini")
	flags.String("gemini-model", "gemini-1.5-flash", "Gemini model name")
	flags.String("bedrock-region", "us-east-1", "AWS region for Bedrock")
	flags.String("bedrock-model", "anthropic.claude-3-haiku-20240307-v1:0", "Bedrock model ID")
	return cmd
}

func readText(cmd *cobra.Command, args []string, file string) (string, error) {
	if len(args) == 1 {
		return args[0], nil
	}

	var in io.Reader = cmd.InOrStdin()
	if file != "" && file != "-" {
		f, err := os.Open(file)
		if err != nil {
			return "", fmt.Errorf("open message file: %w", err)
		}
		defer f.Close()
		in = f
	}
	b, err := io.ReadAll(in)
	if err != nil {
		return "", fmt.Errorf("read message: %w", err)
	}
	text := strings.TrimSpace(string(b))
	if text == "" {
		return "", fmt.Errorf("empty message")
	}
	return text, nil
}
