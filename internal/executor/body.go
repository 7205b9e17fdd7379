package executor

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime"
	"mime/multipart"
	"net/textproto"
	"net/url"
	"strings"

	"openapi-mcp/internal/api"
)

// bodyFamily is the content-type family that decides how a body is encoded.
type bodyFamily string

const (
	familyNone      bodyFamily = "none"
	familyMultipart bodyFamily = "multipart"
	familyForm      bodyFamily = "form"
	familyFile      bodyFamily = "file"
	familyText      bodyFamily = "text"
	familyBinary    bodyFamily = "binary"
	familyJSON      bodyFamily = "json"
)

const (
	mediaMultipart = "multipart/form-data"
	mediaForm      = "application/x-www-form-urlencoded"
)

// bodyInput is what an encoder sees.
type bodyInput struct {
	body        any
	files       []*loadedFile
	contentType string
}

// encodedBody is a ready-to-send payload. When override is set the content
// type replaces any caller-supplied Content-Type header.
type encodedBody struct {
	data        []byte
	contentType string
	override    bool
}

type bodyEncoder func(in bodyInput) (*encodedBody, error)

var bodyEncoders = map[bodyFamily]bodyEncoder{
	familyNone:      func(bodyInput) (*encodedBody, error) { return nil, nil },
	familyMultipart: encodeMultipart,
	familyForm:      encodeForm,
	familyFile:      encodeFile,
	familyText:      encodeText,
	familyBinary:    encodeBinary,
	familyJSON:      encodeJSON,
}

// encodeBody selects the family for the call and runs its encoder.
func encodeBody(body any, files map[string]api.FileDescriptor, contentType string) (*encodedBody, error) {
	family, err := selectFamily(body, files, contentType)
	if err != nil {
		return nil, err
	}

	loaded, err := loadFiles(files)
	if err != nil {
		return nil, err
	}
	return bodyEncoders[family](bodyInput{body: body, files: loaded, contentType: contentType})
}

func selectFamily(body any, files map[string]api.FileDescriptor, contentType string) (bodyFamily, error) {
	if body == nil && len(files) == 0 {
		return familyNone, nil
	}

	media := mediaType(contentType)
	if media == mediaMultipart {
		return familyMultipart, nil
	}
	if len(files) > 0 {
		if body != nil {
			return familyMultipart, nil
		}
		if len(files) > 1 {
			return "", api.NewRequestError("Multiple files supplied without a structured body; use multipart/form-data", map[string]any{
				"files": sortedKeys(files),
			})
		}
		return familyFile, nil
	}

	switch body.(type) {
	case string:
		return familyText, nil
	case []byte:
		return familyBinary, nil
	}
	if media == mediaForm {
		return familyForm, nil
	}
	return familyJSON, nil
}

func mediaType(contentType string) string {
	if contentType == "" {
		return ""
	}
	media, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(strings.Split(contentType, ";")[0]))
	}
	return media
}

// formFields flattens a plain object into ordered field/value pairs. Arrays
// repeat the field and nested objects are JSON-encoded.
func formFields(body any) ([][2]string, error) {
	if body == nil {
		return nil, nil
	}
	obj, ok := asObject(body)
	if !ok {
		return nil, api.NewRequestError("Form body must be a JSON object", nil)
	}

	var fields [][2]string
	for _, key := range sortedKeys(obj) {
		value := obj[key]
		if value == nil {
			continue
		}
		if items, isArray := asArray(value); isArray {
			for _, item := range items {
				fields = append(fields, [2]string{key, stringify(item)})
			}
			continue
		}
		fields = append(fields, [2]string{key, stringify(value)})
	}
	return fields, nil
}

func encodeMultipart(in bodyInput) (*encodedBody, error) {
	fields, err := formFields(in.body)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for _, field := range fields {
		if err := w.WriteField(field[0], field[1]); err != nil {
			return nil, api.NewRequestError("Cannot encode multipart body", nil).WithCause(err)
		}
	}
	for _, f := range in.files {
		header := make(textproto.MIMEHeader)
		header.Set("Content-Disposition", mime.FormatMediaType("form-data", map[string]string{
			"name":     f.field,
			"filename": f.filename,
		}))
		header.Set(headerContentType, f.contentType)
		part, err := w.CreatePart(header)
		if err != nil {
			return nil, api.NewRequestError("Cannot encode multipart body", nil).WithCause(err)
		}
		if _, err := part.Write(f.data); err != nil {
			return nil, api.NewRequestError("Cannot encode multipart body", nil).WithCause(err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, api.NewRequestError("Cannot encode multipart body", nil).WithCause(err)
	}

	return &encodedBody{data: buf.Bytes(), contentType: w.FormDataContentType(), override: true}, nil
}

func encodeForm(in bodyInput) (*encodedBody, error) {
	fields, err := formFields(in.body)
	if err != nil {
		return nil, err
	}
	values := url.Values{}
	for _, field := range fields {
		values.Add(field[0], field[1])
	}
	return &encodedBody{data: []byte(values.Encode()), contentType: withDefault(in.contentType, mediaForm)}, nil
}

func encodeFile(in bodyInput) (*encodedBody, error) {
	f := in.files[0]
	return &encodedBody{data: f.data, contentType: withDefault(in.contentType, f.contentType)}, nil
}

func encodeText(in bodyInput) (*encodedBody, error) {
	return &encodedBody{data: []byte(in.body.(string)), contentType: withDefault(in.contentType, "text/plain")}, nil
}

func encodeBinary(in bodyInput) (*encodedBody, error) {
	return &encodedBody{data: in.body.([]byte), contentType: withDefault(in.contentType, "application/octet-stream")}, nil
}

func encodeJSON(in bodyInput) (*encodedBody, error) {
	data, err := json.Marshal(in.body)
	if err != nil {
		return nil, api.NewRequestError(fmt.Sprintf("Cannot encode request body as JSON: %v", err), nil).WithCause(err)
	}
	return &encodedBody{data: data, contentType: withDefault(in.contentType, "application/json")}, nil
}

func withDefault(value, fallback string) string {
	if value != "" {
		return value
	}
	return fallback
}
