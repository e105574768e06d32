package demostf

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
)

// error and upload response bodies are small, cap reads to keep a misbehaving
// server from ballooning memory
const maxTextBody = 64 << 10

// checkStatus maps a non-success response to a *StatusError, preserving the
// status code and raw body for diagnostics.
func checkStatus(op string, resp *http.Response) error {
	if resp.StatusCode >= http.StatusOK && resp.StatusCode < http.StatusMultipleChoices {
		return nil
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxTextBody))
	return &StatusError{Op: op, Code: resp.StatusCode, Body: string(body)}
}

// decodeJSON decodes a response into v, mapping failure statuses and malformed
// bodies into the error taxonomy.
func decodeJSON(op string, resp *http.Response, v any) error {
	if err := checkStatus(op, resp); err != nil {
		return err
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return &DecodeError{Op: op, Err: err}
	}
	return nil
}

// decodeUploadResponse handles the upload endpoint's plain text contract: the
// body is either the literal "Invalid key" or a URL whose last path segment is
// the id of the new demo.
func decodeUploadResponse(op string, resp *http.Response) (uint32, error) {
	if err := checkStatus(op, resp); err != nil {
		return 0, err
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxTextBody))
	if err != nil {
		return 0, &TransportError{Op: op, Err: err}
	}
	text := strings.TrimSpace(string(raw))

	if text == "Invalid key" {
		return 0, fmt.Errorf("demostf: %s: %w", op, ErrUnauthorized)
	}

	tail := text
	if i := strings.LastIndexByte(text, '/'); i >= 0 {
		tail = text[i+1:]
	}
	id, err := strconv.ParseUint(tail, 10, 32)
	if err != nil || id == 0 {
		return 0, &DecodeError{Op: op, Err: fmt.Errorf("unexpected upload response %q", text)}
	}
	return uint32(id), nil
}
