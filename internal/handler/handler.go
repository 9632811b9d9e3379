package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/samber/do"
	"github.com/samber/lo"

	"imagen/internal/api"
	"imagen/internal/config"
	"imagen/internal/log"
	"imagen/internal/save"
)

type CreateInput struct {
	Prompt            string
	N                 int
	Quality           string
	Size              string
	Background        string
	OutputFormat      string
	OutputCompression int // -1 when not set on the command line
	Moderation        string
	User              string
	OutputPrefix      string
}

func (in CreateInput) toRequest(model string) api.GenerationRequest {
	req := api.GenerationRequest{
		Prompt:       in.Prompt,
		Model:        model,
		N:            in.N,
		Quality:      in.Quality,
		Size:         in.Size,
		Background:   in.Background,
		OutputFormat: in.OutputFormat,
		Moderation:   in.Moderation,
		User:         in.User,
	}
	if in.OutputCompression >= 0 {
		c := in.OutputCompression
		req.OutputCompression = &c
	}
	return req
}

func (in CreateInput) toMetadata(model string) map[string]string {
	return map[string]string{
		"prompt":  in.Prompt,
		"model":   model,
		"quality": in.Quality,
		"size":    in.Size,
	}
}

type EditInput struct {
	Prompt       string
	Images       []string
	Mask         string
	N            int
	Quality      string
	Size         string
	User         string
	OutputPrefix string
}

func (in EditInput) toRequest(model string) api.EditRequest {
	return api.EditRequest{
		Prompt:  in.Prompt,
		Model:   model,
		N:       in.N,
		Quality: in.Quality,
		Size:    in.Size,
		User:    in.User,
		Images:  in.Images,
		Mask:    in.Mask,
	}
}

func (in EditInput) toMetadata(model string) map[string]string {
	return map[string]string{
		"prompt":  in.Prompt,
		"model":   model,
		"quality": in.Quality,
		"size":    in.Size,
	}
}

type Handler struct {
	client    *api.Client
	persister *save.Persister
	model     string
	out       io.Writer
}

func New(client *api.Client, persister *save.Persister, model string, out io.Writer) *Handler {
	return &Handler{client: client, persister: persister, model: model, out: out}
}

func NewHandler(i *do.Injector) (*Handler, error) {
	cfg := do.MustInvoke[config.Config](i)
	return New(
		do.MustInvoke[*api.Client](i),
		do.MustInvoke[*save.Persister](i),
		cfg.Model,
		do.MustInvokeNamed[io.Writer](i, "out"),
	), nil
}

func (h *Handler) Create(ctx context.Context, input CreateInput) error {
	log := log.FromContextOrDiscard(ctx).WithGroup("Handler")
	log.Debug("handling create", "n", input.N, "size", input.Size)

	fmt.Fprintf(h.out, "Creating image with prompt: %q using model %s\n", input.Prompt, h.model)

	resp, err := h.client.Generate(ctx, input.toRequest(h.model))
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}

	h.report(ctx, api.Interpret(resp), input.toMetadata(h.model), input.OutputPrefix, input.OutputFormat)
	return nil
}

func (h *Handler) Edit(ctx context.Context, input EditInput) error {
	log := log.FromContextOrDiscard(ctx).WithGroup("Handler")
	log.Debug("handling edit", "images", len(input.Images), "mask", input.Mask != "")

	quoted := lo.Map(input.Images, func(p string, _ int) string { return strconv.Quote(p) })
	fmt.Fprintf(h.out, "Editing image(s) %s with prompt: %q using model %s\n",
		strings.Join(quoted, ", "), input.Prompt, h.model)

	if len(input.Images) > 16 {
		fmt.Fprintf(h.out, "Warning: you provided %d images. %s supports up to 16 images for edits. Proceeding, but the API might reject this.\n",
			len(input.Images), h.model)
	}
	if input.Mask != "" && len(input.Images) > 1 {
		fmt.Fprintf(h.out, "Note: a mask was provided with multiple images. The mask will be applied to the first image: %q.\n",
			input.Images[0])
	}

	resp, err := h.client.Edit(ctx, input.toRequest(h.model))
	if err != nil {
		var verr *api.ValidationError
		if errors.As(err, &verr) {
			return verr
		}
		return fmt.Errorf("request failed: %w", err)
	}

	// edited images always come back as png
	h.report(ctx, api.Interpret(resp), input.toMetadata(h.model), input.OutputPrefix, "png")
	return nil
}

func (h *Handler) report(ctx context.Context, outcome api.Outcome, metadata map[string]string, prefix, format string) {
	switch o := outcome.(type) {
	case api.Success:
		if len(o.Items) == 0 {
			fmt.Fprintln(h.out, "No images were generated. This might be due to a safety filter or other issue.")
		} else {
			for i, item := range o.Items {
				if item.B64JSON == "" {
					fmt.Fprintf(h.out, "Warning: item %d does not contain \"b64_json\". Item: %s\n", i, item.Raw())
				}
			}
			items := lo.FilterMap(o.Items, func(item api.ImageItem, i int) (save.Item, bool) {
				return save.Item{Index: i, Payload: item.B64JSON}, item.B64JSON != ""
			})
			h.persister.SaveAll(ctx, items, prefix, format, metadata)
		}
		if o.Usage != nil {
			h.printUsage(o.Usage)
		}
	case api.UnexpectedShape:
		fmt.Fprintf(h.out, "Unexpected response structure: \"data\" field missing or not a list. Full response: %s\n", o.Body)
		if o.Usage != nil {
			h.printUsage(o.Usage)
		}
	case api.MalformedBody:
		fmt.Fprintln(h.out, "Error: could not decode JSON response.")
		fmt.Fprintf(h.out, "Raw response: %s\n", o.Raw)
	case api.APIFailure:
		fmt.Fprintf(h.out, "Error: API request failed with status code %d\n", o.Status)
		if o.Detail != nil {
			fmt.Fprintf(h.out, "Error details: %s\n", o.Detail)
		} else {
			fmt.Fprintf(h.out, "Could not parse error response: %s\n", o.Raw)
		}
	}
}

func (h *Handler) printUsage(u *api.Usage) {
	fmt.Fprintln(h.out)
	fmt.Fprintln(h.out, "Usage Information:")

	table := tablewriter.NewWriter(h.out)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetNoWhiteSpace(true)
	table.SetTablePadding(" ")

	data := [][]string{
		{"  ", "Total Tokens:", strconv.Itoa(u.TotalTokens)},
		{"  ", "Input Tokens:", strconv.Itoa(u.InputTokens)},
		{"  ", "Output Tokens:", strconv.Itoa(u.OutputTokens)},
	}
	if d := u.InputTokensDetails; d != nil {
		data = append(data,
			[]string{"  ", "Input Text Tokens:", strconv.Itoa(d.TextTokens)},
			[]string{"  ", "Input Image Tokens:", strconv.Itoa(d.ImageTokens)},
		)
	}
	table.AppendBulk(data)
	table.Render()
}
