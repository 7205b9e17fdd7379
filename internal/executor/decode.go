package executor

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"regexp"
	"strings"

	"openapi-mcp/internal/api"
)

var textContentTypes = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^text/`),
	regexp.MustCompile(`(?i)^application/xml`),
	regexp.MustCompile(`(?i)^application/x-www-form-urlencoded`),
	regexp.MustCompile(`(?i)^application/graphql`),
}

var charsetParam = regexp.MustCompile(`(?i)charset=`)

func isTextContentType(contentType string) bool {
	if charsetParam.MatchString(contentType) {
		return true
	}
	for _, re := range textContentTypes {
		if re.MatchString(contentType) {
			return true
		}
	}
	return false
}

// decodeResponse classifies and decodes a fully read upstream response.
func decodeResponse(status int, header http.Header, body []byte) api.ResponseData {
	data := api.ResponseData{
		Status:  status,
		Headers: flattenHeaders(header),
	}

	if status == http.StatusNoContent || status == http.StatusResetContent {
		data.BodyType = api.BodyTypeEmpty
		return data
	}

	contentType := header.Get(headerContentType)

	if strings.Contains(strings.ToLower(contentType), "json") {
		if len(body) == 0 {
			data.BodyType = api.BodyTypeEmpty
			return data
		}
		var parsed any
		if err := json.Unmarshal(body, &parsed); err != nil {
			text := string(body)
			data.BodyType = api.BodyTypeText
			data.BodyText = &text
			return data
		}
		data.BodyType = api.BodyTypeJSON
		data.BodyJSON = parsed
		return data
	}

	if isTextContentType(contentType) {
		text := string(body)
		data.BodyType = api.BodyTypeText
		data.BodyText = &text
		return data
	}

	if len(body) == 0 {
		data.BodyType = api.BodyTypeEmpty
		return data
	}
	data.BodyType = api.BodyTypeBinary
	data.BodyBase64 = base64.StdEncoding.EncodeToString(body)
	return data
}

// flattenHeaders lower-cases names and joins repeated values with ", ".
func flattenHeaders(header http.Header) map[string]string {
	out := make(map[string]string, len(header))
	for name, values := range header {
		out[strings.ToLower(name)] = strings.Join(values, ", ")
	}
	return out
}
