package cli

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/samber/do"
	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"imagen/internal/config"
	"imagen/internal/handler"
	"imagen/internal/inject"
	"imagen/internal/log"
)

func New() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "imagen",
		Short: "Generate and edit images with the gpt-image-1 endpoints",
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			cmd.SilenceUsage = true
			godotenv.Load() // load .env if present

			verbose, _ := cmd.Flags().GetBool("verbose")
			level := lo.Ternary(verbose, slog.LevelDebug, slog.LevelWarn)
			cmd.SetContext(log.NewContext(cmd.Context(), log.New(os.Stderr, level)))
		},
	}

	rootCmd.PersistentFlags().String("output-dir", "", "Directory to write images into (default: working directory)")
	rootCmd.PersistentFlags().String("s3-bucket", "", "Upload images to this S3 bucket instead of the local filesystem")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(createCmd(), editCmd())
	return rootCmd
}

func createCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create <prompt>",
		Short: "Create an image from a text prompt",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			flags := cmd.Flags()
			input := handler.CreateInput{Prompt: args[0]}
			input.N, _ = flags.GetInt("n")
			input.Quality, _ = flags.GetString("quality")
			input.Size, _ = flags.GetString("size")
			input.Background, _ = flags.GetString("background")
			input.OutputFormat, _ = flags.GetString("output-format")
			input.OutputCompression, _ = flags.GetInt("output-compression")
			input.Moderation, _ = flags.GetString("moderation")
			input.User, _ = flags.GetString("user")
			input.OutputPrefix, _ = flags.GetString("output-prefix")

			if err := validateCreate(input); err != nil {
				return err
			}

			h, shutdown, err := newHandler(cmd)
			if err != nil {
				return err
			}
			defer shutdown()
			return h.Create(cmd.Context(), input)
		},
	}

	cmd.Flags().Int("n", 1, "Number of images to generate (1-10)")
	cmd.Flags().String("quality", "low", "Image quality: low, medium, high or auto")
	cmd.Flags().String("size", "1024x1024", "Image size: auto, 1024x1024, 1536x1024 or 1024x1536")
	cmd.Flags().String("background", "opaque", "Background mode: transparent, opaque or auto")
	cmd.Flags().String("output-format", "png", "Output format: png, jpeg or webp")
	cmd.Flags().Int("output-compression", -1, "Compression level 0-100 for jpeg or webp output")
	cmd.Flags().String("moderation", "low", "Content moderation level: low or auto")
	cmd.Flags().String("user", "", "Unique identifier for your end-user")
	cmd.Flags().String("output-prefix", "gen", "Prefix for the output image filename(s)")
	return cmd
}

func editCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "edit <image_paths...> <prompt>",
		Short: "Edit existing image(s) based on a new prompt",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			flags := cmd.Flags()
			input := handler.EditInput{
				Images: args[:len(args)-1],
				Prompt: args[len(args)-1],
			}
			input.Mask, _ = flags.GetString("mask-path")
			input.N, _ = flags.GetInt("n")
			input.Quality, _ = flags.GetString("quality")
			input.Size, _ = flags.GetString("size")
			input.User, _ = flags.GetString("user")
			input.OutputPrefix, _ = flags.GetString("output-prefix")

			if err := validateEdit(input); err != nil {
				return err
			}

			h, shutdown, err := newHandler(cmd)
			if err != nil {
				return err
			}
			defer shutdown()
			return h.Edit(cmd.Context(), input)
		},
	}

	cmd.Flags().String("mask-path", "", "Path to a mask image; with multiple images it applies to the first")
	cmd.Flags().Int("n", 1, "Number of edited images to generate (1-10)")
	cmd.Flags().String("quality", "low", "Image quality: low, medium, high or auto")
	cmd.Flags().String("size", "1024x1024", "Image size: auto, 1024x1024, 1536x1024 or 1024x1536")
	cmd.Flags().String("user", "", "Unique identifier for your end-user")
	cmd.Flags().String("output-prefix", "edi", "Prefix for the output image filename(s)")
	return cmd
}

func newHandler(cmd *cobra.Command) (*handler.Handler, func(), error) {
	outputDir, _ := cmd.Flags().GetString("output-dir")
	bucket, _ := cmd.Flags().GetString("s3-bucket")

	injector := inject.Setup(cmd.Context(), inject.Options{
		OutputDir: outputDir,
		Bucket:    bucket,
		Out:       cmd.OutOrStdout(),
	})

	// resolve the credential before anything else happens
	if _, err := do.Invoke[config.Config](injector); err != nil {
		_ = injector.Shutdown()
		return nil, nil, err
	}

	h, err := do.Invoke[*handler.Handler](injector)
	if err != nil {
		_ = injector.Shutdown()
		return nil, nil, err
	}
	return h, func() { _ = injector.Shutdown() }, nil
}

func validateCreate(in handler.CreateInput) error {
	if err := choice("quality", in.Quality, "low", "medium", "high", "auto"); err != nil {
		return err
	}
	if err := choice("size", in.Size, "auto", "1024x1024", "1536x1024", "1024x1536"); err != nil {
		return err
	}
	if err := choice("background", in.Background, "transparent", "opaque", "auto"); err != nil {
		return err
	}
	if err := choice("output-format", in.OutputFormat, "png", "jpeg", "webp"); err != nil {
		return err
	}
	if err := choice("moderation", in.Moderation, "low", "auto"); err != nil {
		return err
	}
	if in.N < 1 || in.N > 10 {
		return fmt.Errorf("--n must be between 1 and 10, got %d", in.N)
	}
	if in.OutputCompression != -1 && (in.OutputCompression < 0 || in.OutputCompression > 100) {
		return fmt.Errorf("--output-compression must be between 0 and 100, got %d", in.OutputCompression)
	}
	return nil
}

func validateEdit(in handler.EditInput) error {
	if err := choice("quality", in.Quality, "low", "medium", "high", "auto"); err != nil {
		return err
	}
	if err := choice("size", in.Size, "auto", "1024x1024", "1536x1024", "1024x1536"); err != nil {
		return err
	}
	if in.N < 1 || in.N > 10 {
		return fmt.Errorf("--n must be between 1 and 10, got %d", in.N)
	}
	return nil
}

func choice(flag, value string, allowed ...string) error {
	if lo.Contains(allowed, value) {
		return nil
	}
	return fmt.Errorf("invalid --%s %q (choose from %s)", flag, value, strings.Join(allowed, ", "))
}
