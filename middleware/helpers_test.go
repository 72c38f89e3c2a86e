package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"testing"

	"github.com/KBesada24/ai-code-sentinel/utils"
	"github.com/stretchr/testify/require"
)

func quietLogger() *utils.Logger {
	return utils.NewLoggerWithWriter("error", "json", io.Discard)
}

func bufferLogger(buf *bytes.Buffer) *utils.Logger {
	return utils.NewLoggerWithWriter("debug", "json", buf)
}

func decodeResponse(t *testing.T, resp *http.Response) utils.StandardResponse {
	t.Helper()
	defer resp.Body.Close()

	var body utils.StandardResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body
}
