package executor

import (
	"bytes"
	"io"
	"mime"
	"mime/multipart"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"openapi-mcp/internal/api"
)

func textFile(s string) api.FileDescriptor {
	return api.FileDescriptor{Text: &s}
}

func TestSelectFamily(t *testing.T) {
	tests := []struct {
		name        string
		body        any
		files       map[string]api.FileDescriptor
		contentType string
		expected    bodyFamily
	}{
		{name: "nothing", expected: familyNone},
		{name: "string", body: "hi", expected: familyText},
		{name: "bytes", body: []byte{1}, expected: familyBinary},
		{name: "object", body: map[string]any{"a": 1.0}, expected: familyJSON},
		{name: "array", body: []any{1.0}, expected: familyJSON},
		{name: "form", body: map[string]any{"a": 1.0}, contentType: "application/x-www-form-urlencoded; charset=utf-8", expected: familyForm},
		{name: "multipart declared without content", contentType: "multipart/form-data", expected: familyNone},
		{name: "multipart declared", body: map[string]any{"a": 1.0}, contentType: "multipart/form-data", expected: familyMultipart},
		{name: "single file", files: map[string]api.FileDescriptor{"f": textFile("x")}, expected: familyFile},
		{name: "files with body", body: map[string]any{"a": 1.0}, files: map[string]api.FileDescriptor{"f": textFile("x")}, expected: familyMultipart},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			family, err := selectFamily(tt.body, tt.files, tt.contentType)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, family)
		})
	}
}

func TestSelectFamily_AmbiguousFiles(t *testing.T) {
	_, err := selectFamily(nil, map[string]api.FileDescriptor{"a": textFile("1"), "b": textFile("2")}, "")
	require.Error(t, err)
	assert.True(t, api.IsKind(err, api.KindRequest))
}

func TestEncodeBody_Defaults(t *testing.T) {
	body, err := encodeBody("plain", nil, "")
	require.NoError(t, err)
	assert.Equal(t, "text/plain", body.contentType)
	assert.Equal(t, []byte("plain"), body.data)

	body, err = encodeBody([]byte{0xff}, nil, "")
	require.NoError(t, err)
	assert.Equal(t, "application/octet-stream", body.contentType)

	body, err = encodeBody(map[string]any{"name": "rex"}, nil, "")
	require.NoError(t, err)
	assert.Equal(t, "application/json", body.contentType)
	assert.JSONEq(t, `{"name":"rex"}`, string(body.data))

	body, err = encodeBody(map[string]any{"name": "rex"}, nil, "application/merge-patch+json")
	require.NoError(t, err)
	assert.Equal(t, "application/merge-patch+json", body.contentType)
	assert.False(t, body.override)

	body, err = encodeBody(nil, nil, "application/json")
	require.NoError(t, err)
	assert.Nil(t, body)
}

func TestEncodeBody_Form(t *testing.T) {
	body, err := encodeBody(map[string]any{
		"tags":  []any{"a", "b"},
		"meta":  map[string]any{"k": "v"},
		"name":  "rex dog",
		"empty": nil,
	}, nil, "application/x-www-form-urlencoded")
	require.NoError(t, err)
	assert.Equal(t, "meta=%7B%22k%22%3A%22v%22%7D&name=rex+dog&tags=a&tags=b", string(body.data))
	assert.Equal(t, "application/x-www-form-urlencoded", body.contentType)

	_, err = encodeBody([]any{1.0}, nil, "application/x-www-form-urlencoded")
	assert.True(t, api.IsKind(err, api.KindRequest))
}

func TestEncodeBody_SingleFile(t *testing.T) {
	body, err := encodeBody(nil, map[string]api.FileDescriptor{
		"upload": {Base64: "aGk=", ContentType: "image/png"},
	}, "")
	require.NoError(t, err)
	assert.Equal(t, []byte("hi"), body.data)
	assert.Equal(t, "image/png", body.contentType)
}

func TestEncodeBody_Multipart(t *testing.T) {
	body, err := encodeBody(
		map[string]any{"name": "rex", "tags": []any{"a", "b"}},
		map[string]api.FileDescriptor{"photo": {Base64: "aGk=", Filename: "rex.png", ContentType: "image/png"}},
		"multipart/form-data",
	)
	require.NoError(t, err)
	require.True(t, body.override)

	media, params, err := mime.ParseMediaType(body.contentType)
	require.NoError(t, err)
	assert.Equal(t, "multipart/form-data", media)
	require.NotEmpty(t, params["boundary"])

	reader := multipart.NewReader(bytes.NewReader(body.data), params["boundary"])
	var fields []string
	for {
		part, err := reader.NextPart()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		data, err := io.ReadAll(part)
		require.NoError(t, err)

		if part.FileName() != "" {
			assert.Equal(t, "photo", part.FormName())
			assert.Equal(t, "rex.png", part.FileName())
			assert.Equal(t, "image/png", part.Header.Get("Content-Type"))
			assert.Equal(t, "hi", string(data))
			continue
		}
		fields = append(fields, part.FormName()+"="+string(data))
	}
	assert.Equal(t, []string{"name=rex", "tags=a", "tags=b"}, fields)
}
