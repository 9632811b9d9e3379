package param

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/samber/do"

	"imagen/internal/log"
)

type ParameterStoreFetcher struct {
	client *ssm.Client
}

func NewParameterStoreFetcher(i *do.Injector) (Fetcher, error) {
	return &ParameterStoreFetcher{client: do.MustInvoke[*ssm.Client](i)}, nil
}

func (f *ParameterStoreFetcher) Fetch(ctx context.Context, path string) (string, error) {
	log := log.FromContextOrDiscard(ctx).WithGroup("parameter store").With("path", path)
	log.Debug("fetching api key parameter")

	out, err := f.client.GetParameter(ctx, &ssm.GetParameterInput{
		Name:           aws.String(path),
		WithDecryption: aws.Bool(true),
	})
	if err != nil {
		return "", err
	}
	return aws.ToString(out.Parameter.Value), nil
}
