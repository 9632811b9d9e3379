package api

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
)

type Usage struct {
	TotalTokens        int                 `json:"total_tokens"`
	InputTokens        int                 `json:"input_tokens"`
	OutputTokens       int                 `json:"output_tokens"`
	InputTokensDetails *InputTokensDetails `json:"input_tokens_details,omitempty"`
}

type InputTokensDetails struct {
	TextTokens  int `json:"text_tokens"`
	ImageTokens int `json:"image_tokens"`
}

// ImageItem is one element of the response data array. The raw JSON is kept
// so items without a payload can be reported verbatim.
type ImageItem struct {
	B64JSON string `json:"b64_json"`
	raw     json.RawMessage
}

func (it *ImageItem) UnmarshalJSON(data []byte) error {
	type plain ImageItem
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*it = ImageItem(p)
	it.raw = append(json.RawMessage(nil), data...)
	return nil
}

func (it ImageItem) Raw() string { return string(it.raw) }

// Outcome is the classified result of one API call. Interpret always
// produces exactly one of Success, UnexpectedShape, MalformedBody or
// APIFailure; callers switch over the four.
type Outcome interface {
	outcome()
}

// Success is a 200 whose data field is an array. Items may still lack a
// payload, and an empty array means the service produced no images.
type Success struct {
	Items []ImageItem
	Usage *Usage
}

// UnexpectedShape is a 200 with a parseable body whose data field is
// missing, null or not an array.
type UnexpectedShape struct {
	Body  []byte
	Usage *Usage
}

// MalformedBody is a 200 whose body is not valid JSON.
type MalformedBody struct {
	Status int
	Raw    []byte
}

// APIFailure is any non-200. Detail holds the indented structured error
// when the body was JSON, otherwise it is nil and Raw has the body text.
type APIFailure struct {
	Status int
	Detail []byte
	Raw    []byte
}

func (Success) outcome()         {}
func (UnexpectedShape) outcome() {}
func (MalformedBody) outcome()   {}
func (APIFailure) outcome()      {}

// Interpret drains and classifies an HTTP response. Every path yields an
// Outcome; nothing panics or escapes as an error.
func Interpret(resp *http.Response) Outcome {
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return MalformedBody{Status: resp.StatusCode, Raw: body}
	}

	if resp.StatusCode != http.StatusOK {
		var detail bytes.Buffer
		if json.Valid(body) && json.Indent(&detail, body, "", "  ") == nil {
			return APIFailure{Status: resp.StatusCode, Detail: detail.Bytes(), Raw: body}
		}
		return APIFailure{Status: resp.StatusCode, Raw: body}
	}

	if !json.Valid(body) {
		return MalformedBody{Status: resp.StatusCode, Raw: body}
	}

	var envelope struct {
		Data  json.RawMessage `json:"data"`
		Usage *Usage          `json:"usage"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return UnexpectedShape{Body: body}
	}

	// a missing, null or non-array data field is a shape problem, not a
	// decode failure; "data": [] still lands in Success
	var items []ImageItem
	if envelope.Data == nil || json.Unmarshal(envelope.Data, &items) != nil || items == nil {
		return UnexpectedShape{Body: body, Usage: envelope.Usage}
	}
	return Success{Items: items, Usage: envelope.Usage}
}
