package inject

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/samber/do"

	"imagen/internal/api"
	"imagen/internal/config"
	"imagen/internal/handler"
	"imagen/internal/log"
	"imagen/internal/param"
	"imagen/internal/save"
	"imagen/internal/store"
)

// Options carry the per-invocation choices made on the command line.
type Options struct {
	OutputDir string
	Bucket    string
	Out       io.Writer
}

// Setup wires the object graph. AWS clients are lazy: they are only built
// when the S3 destination or the SSM credential path is actually used.
func Setup(ctx context.Context, opts Options) *do.Injector {
	log := log.FromContextOrDiscard(ctx)

	injector := do.NewWithOpts(&do.InjectorOpts{
		Logf: func(format string, args ...any) {
			log.Debug(fmt.Sprintf(format, args...))
		},
	})

	do.Provide[aws.Config](injector, func(i *do.Injector) (aws.Config, error) {
		return awsconfig.LoadDefaultConfig(ctx)
	})
	do.Provide[*ssm.Client](injector, func(i *do.Injector) (*ssm.Client, error) {
		return ssm.NewFromConfig(do.MustInvoke[aws.Config](i)), nil
	})
	do.Provide[*s3.Client](injector, func(i *do.Injector) (*s3.Client, error) {
		return s3.NewFromConfig(do.MustInvoke[aws.Config](i)), nil
	})
	do.Provide[param.Fetcher](injector, param.NewParameterStoreFetcher)

	do.ProvideNamed[string](injector, "api_key", func(i *do.Injector) (string, error) {
		if key := os.Getenv("OPENAI_API_KEY"); key != "" {
			return key, nil
		}
		if path := os.Getenv("OPENAI_API_KEY_PARAM"); path != "" {
			return do.MustInvoke[param.Fetcher](i).Fetch(ctx, path)
		}
		return "", config.ErrMissingKey
	})
	do.Provide[config.Config](injector, func(i *do.Injector) (config.Config, error) {
		key, err := do.InvokeNamed[string](i, "api_key")
		if err != nil {
			return config.Config{}, err
		}
		return config.New(key), nil
	})

	do.Provide[*http.Client](injector, func(i *do.Injector) (*http.Client, error) {
		cfg := do.MustInvoke[config.Config](i)
		return &http.Client{Timeout: cfg.Timeout}, nil
	})

	do.ProvideNamedValue[string](injector, "bucket", opts.Bucket)
	out := opts.Out
	if out == nil {
		out = os.Stdout
	}
	do.ProvideNamedValue[io.Writer](injector, "out", out)

	do.Provide[store.Uploader](injector, func(i *do.Injector) (store.Uploader, error) {
		if opts.Bucket != "" {
			return store.NewS3Uploader(i)
		}
		return &store.FileUploader{Dir: opts.OutputDir}, nil
	})

	do.Provide[*api.Client](injector, api.NewClient)
	do.Provide[*save.Persister](injector, save.NewPersister)
	do.Provide[*handler.Handler](injector, handler.NewHandler)

	return injector
}
