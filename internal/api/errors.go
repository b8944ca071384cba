// FairRank - Fair Reranking Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fairrank

package api

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/goccy/go-json"

	"github.com/tomtom215/fairrank/internal/engine"
	"github.com/tomtom215/fairrank/internal/store"
)

// ErrEmptyBody is returned when a POST has no body.
var ErrEmptyBody = errors.New("request body is empty")

// decodeJSON reads the whole body and unmarshals it into dst. The body is
// read first so a size limit surfaces as *http.MaxBytesError.
func decodeJSON(r *http.Request, dst interface{}) error {
	if r.Body == nil {
		return ErrEmptyBody
	}
	data, err := io.ReadAll(r.Body)
	if err != nil {
		return err
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return ErrEmptyBody
	}
	return json.Unmarshal(data, dst)
}

// respondDecodeError maps a decodeJSON failure.
func respondDecodeError(w http.ResponseWriter, r *http.Request, err error) {
	var mbe *http.MaxBytesError
	if errors.As(err, &mbe) {
		respondError(w, r, http.StatusRequestEntityTooLarge, &APIError{
			Code:    CodePayloadTooLarge,
			Message: fmt.Sprintf("request body exceeds %d bytes", mbe.Limit),
		}, err)
		return
	}
	respondError(w, r, http.StatusBadRequest, &APIError{
		Code:    CodeValidation,
		Message: "invalid JSON body: " + err.Error(),
	}, err)
}

// statusFor maps engine and store errors to an HTTP status and error code.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, engine.ErrTooManyItems), errors.Is(err, engine.ErrTooManyGroups):
		return http.StatusRequestEntityTooLarge, CodePayloadTooLarge
	case errors.Is(err, engine.ErrInvalidRequest):
		return http.StatusBadRequest, CodeValidation
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound, CodeNotFound
	case errors.Is(err, engine.ErrNoHistory), errors.Is(err, engine.ErrNoAnalytics):
		return http.StatusNotImplemented, CodeDisabled
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, CodeTimeout
	case errors.Is(err, store.ErrClosed):
		return http.StatusServiceUnavailable, CodeInternal
	default:
		return http.StatusInternalServerError, CodeInternal
	}
}

// respondEngineError writes the envelope for an engine error. Internal
// error text is replaced with a generic message.
func respondEngineError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, context.Canceled) && r.Context().Err() != nil {
		// Client went away; nothing useful to send.
		return
	}
	status, code := statusFor(err)
	msg := err.Error()
	if status >= http.StatusInternalServerError && status != http.StatusNotImplemented && status != http.StatusGatewayTimeout {
		msg = "internal error"
	}
	respondError(w, r, status, &APIError{Code: code, Message: msg}, err)
}
